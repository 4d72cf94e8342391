package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/domain"
	"github.com/muhammadut/Finite-State-Machine/pkg/modthree"
	"github.com/muhammadut/Finite-State-Machine/pkg/session"
)

type sessionOptions struct {
	*rootOptions
	Store string
}

// open wires a Manager over the selected store. The returned func releases the store.
func (o *sessionOptions) open(cmd *cobra.Command) (*session.Manager, func(), error) {
	machines, err := o.machines()
	if err != nil {
		return nil, nil, err
	}
	store, locker, closeStore, err := o.openStore(cmd.Context(), o.Store, storeFile)
	if err != nil {
		return nil, nil, err
	}
	return o.manager(store, locker, machines, nil), closeStore, nil
}

func newSessionCmd(root *rootOptions) *cobra.Command {
	opts := &sessionOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage persistent sessions",
		Long: `Start, feed, reset, inspect, list and remove sessions.
Sessions are stored in FSM_SESSION_DIR, or in Redis when FSM_REDIS_ADDR is set.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Store, "store", storeAuto, "Session store: auto, file or redis")

	cmd.AddCommand(newSessionNewCmd(opts))
	cmd.AddCommand(newSessionFeedCmd(opts))
	cmd.AddCommand(newSessionResetCmd(opts))
	cmd.AddCommand(newSessionInspectCmd(opts))
	cmd.AddCommand(newSessionLsCmd(opts))
	cmd.AddCommand(newSessionRmCmd(opts))
	return cmd
}

func printSession(w io.Writer, s *domain.Session) {
	status := "non-accepting"
	if s.Accepting {
		status = "accepting"
	}
	fmt.Fprintf(w, "Session '%s' (%s) at %s, %s, %d symbols\n", s.ID, s.Machine, s.Current, status, s.Len())
}

func newSessionNewCmd(opts *sessionOptions) *cobra.Command {
	var machine string

	cmd := &cobra.Command{
		Use:   "new [session-id]",
		Short: "Start a session at the machine's initial state",
		Long:  `Starts a session. Without an ID a random one is generated.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.NewString()
			if len(args) > 0 {
				id = args[0]
			}

			manager, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			s, err := manager.Start(cmd.Context(), id, machine)
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVarP(&machine, "machine", "m", modthree.DefinitionName, "Machine to run")
	return cmd
}

func newSessionFeedCmd(opts *sessionOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "feed <session-id> [symbols...]",
		Short: "Feed symbols to a session",
		Long: `Runs the symbols on the session. When a symbol is rejected the symbols before it stay applied.
Use --input to pass a string split into one symbol per character.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			out := cmd.OutOrStdout()
			s, err := manager.Feed(cmd.Context(), args[0], symbolsFrom(input, args[1:]))
			if s == nil {
				return err
			}
			printSession(out, s)
			if err != nil {
				fmt.Fprintf(out, "Error: %s: %v\n", automaton.Kind(err), err)
				return reported(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "s", "", "Symbols as one string, one per character")
	return cmd
}

func newSessionResetCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <session-id>",
		Short: "Move a session back to its initial state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			s, err := manager.Reset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newSessionInspectCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Inspect the state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			s, err := manager.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading session '%s': %w", args[0], err)
			}

			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newSessionLsCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List all sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			ids, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No active sessions found.")
				return nil
			}
			fmt.Fprintln(out, "Active Sessions:")
			for _, id := range ids {
				fmt.Fprintln(out, "- "+id)
			}
			return nil
		},
	}
}

func newSessionRmCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <session-id>...",
		Short: "Remove one or more sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, done, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer done()

			out := cmd.OutOrStdout()
			var failed error
			for _, id := range args {
				if err := manager.Delete(cmd.Context(), id); err != nil {
					fmt.Fprintf(out, "Error removing '%s': %v\n", id, err)
					failed = err
					continue
				}
				fmt.Fprintf(out, "Removed session '%s'\n", id)
			}
			return reported(failed)
		},
	}
}
