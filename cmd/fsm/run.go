package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/definition"
	"github.com/muhammadut/Finite-State-Machine/pkg/observability"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "run <file|name> [symbols...]",
		Short: "Run a machine over a sequence of symbols",
		Long: `Builds the machine from a definition file, or by name from the registry, and feeds it the
given symbols from its initial state. Use --input to pass a string split into one symbol per character.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := opts.resolve(args[0])
			if err != nil {
				return err
			}

			a, err := def.Build(observability.Options(opts.logger, nil)(def.Name)...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, runErr := a.Run(symbolsFrom(input, args[1:]))
			printRun(out, def.Name, a)
			if runErr != nil {
				fmt.Fprintf(out, "Error: %s: %v\n", automaton.Kind(runErr), runErr)
				return reported(runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "s", "", "Symbols as one string, one per character")
	return cmd
}

// resolve loads a definition file when arg names an existing file, and looks it up in the registry otherwise.
func (o *rootOptions) resolve(arg string) (definition.Definition, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return definition.LoadFile(arg)
	}
	machines, err := o.machines()
	if err != nil {
		return definition.Definition{}, err
	}
	return machines.Get(arg)
}

func printRun(w io.Writer, machine string, a *automaton.Automaton[string, string]) {
	fmt.Fprintf(w, "machine:   %s\n", machine)
	fmt.Fprintf(w, "current:   %s\n", a.Current())
	fmt.Fprintf(w, "accepting: %t\n", a.IsAccepting())
	fmt.Fprintf(w, "history:   %s\n", strings.Join(a.History(), " -> "))
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check machine definitions for consistency",
		Long:  `Parses each definition file and builds its automaton, reporting the first invariant it violates.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var errs []error
			for _, path := range args {
				def, err := definition.LoadFile(path)
				if err == nil {
					_, err = def.Build()
				}
				if err != nil {
					fmt.Fprintf(out, "%s: invalid: %v\n", path, err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(out, "%s: definition %q is valid ✅ (%d states, %d symbols, %d rules)\n",
					path, def.Name, len(def.States), len(def.Alphabet), len(def.Transitions))
			}
			return reported(errors.Join(errs...))
		},
	}
}
