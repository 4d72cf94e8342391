package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	fsm "github.com/muhammadut/Finite-State-Machine"
	"github.com/muhammadut/Finite-State-Machine/internal/cli"
	"github.com/muhammadut/Finite-State-Machine/internal/config"
	"github.com/muhammadut/Finite-State-Machine/internal/presentation/tui"
	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/file"
	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/memory"
	redisAdapter "github.com/muhammadut/Finite-State-Machine/pkg/adapters/redis"
	"github.com/muhammadut/Finite-State-Machine/pkg/observability"
	"github.com/muhammadut/Finite-State-Machine/pkg/persistence/middleware"
	"github.com/muhammadut/Finite-State-Machine/pkg/ports"
	"github.com/muhammadut/Finite-State-Machine/pkg/registry"
	"github.com/muhammadut/Finite-State-Machine/pkg/session"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	Verbose   bool
	LogFormat string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var demo cli.Options

	cmd := &cobra.Command{
		Use:   "fsm",
		Short: "Finite-state automata and the mod-three demonstration",
		Long: `fsm runs deterministic finite automata.

Without a subcommand it demonstrates computing the remainder of a binary number divided by three.`,
		Version:       strings.TrimSpace(fsm.Version),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			demo.In = cmd.InOrStdin()
			demo.Out = out
			demo.Logger = opts.logger

			if cli.IsTerminal(out) && demo.Binary == "" {
				tui.PrintBanner(out, fsm.Version, cli.Profile(out))
				if render, err := tui.NewRenderer(); err == nil {
					demo.Render = render
				}
			}
			return reported(cli.Execute(demo))
		},
	}

	cmd.Flags().StringVarP(&demo.Binary, "binary", "b", "", "Process a specific binary number and exit")
	cmd.Flags().BoolVarP(&demo.ExamplesOnly, "examples-only", "e", false, "Run only the examples from the assignment")
	cmd.Flags().BoolVarP(&demo.Interactive, "interactive", "i", false, "Run in interactive mode after demonstrations")

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Log format: text or json (overrides FSM_LOG_FORMAT)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = o.LogFormat
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	o.cfg = cfg
	o.logger = cfg.Logger(o.Verbose)
	return nil
}

// machines returns the built-in definitions plus FSM_DEFINITIONS_DIR, if set.
func (o *rootOptions) machines() (*registry.Registry, error) {
	r := registry.Default()
	if o.cfg.DefinitionsDir != "" {
		if err := r.LoadDir(o.cfg.DefinitionsDir); err != nil {
			return nil, fmt.Errorf("loading definitions from %s: %w", o.cfg.DefinitionsDir, err)
		}
	}
	return r, nil
}

const (
	storeAuto   = "auto"
	storeMemory = "memory"
	storeFile   = "file"
	storeRedis  = "redis"
)

// openStore opens the session backend named by kind, sealed with FSM_SESSION_KEY when it is set.
// "auto" picks redis when FSM_REDIS_ADDR is set and fallback otherwise.
// The locker is nil unless the backend is shared between processes.
func (o *rootOptions) openStore(ctx context.Context, kind, fallback string) (ports.SessionStore, ports.DistributedLocker, func(), error) {
	store, locker, closer, err := o.openBackend(ctx, kind, fallback)
	if err != nil {
		return nil, nil, nil, err
	}

	active, fallbacks, err := o.cfg.EncryptionKeys()
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	if active == nil {
		return store, locker, closer, nil
	}
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallbacks,
	})
	if err != nil {
		closer()
		return nil, nil, nil, err
	}
	return middleware.Chain(store, encrypt), locker, closer, nil
}

func (o *rootOptions) openBackend(ctx context.Context, kind, fallback string) (ports.SessionStore, ports.DistributedLocker, func(), error) {
	if kind == storeAuto {
		kind = fallback
		if o.cfg.Redis.Enabled() {
			kind = storeRedis
		}
	}

	switch kind {
	case storeMemory:
		return memory.NewStore(), nil, func() {}, nil
	case storeFile:
		return file.NewStore(o.cfg.SessionDir), nil, func() {}, nil
	case storeRedis:
		if !o.cfg.Redis.Enabled() {
			return nil, nil, nil, fmt.Errorf("redis store requires FSM_REDIS_ADDR")
		}
		store := redisAdapter.New(o.cfg.Redis.Addr, o.cfg.Redis.Password, o.cfg.Redis.DB,
			redisAdapter.WithTTL(o.cfg.SessionTTL),
		)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("connecting to redis at %s: %w", o.cfg.Redis.Addr, err)
		}
		locker := redisAdapter.NewLocker(store.Client(), redisAdapter.DefaultPrefix)
		closer := func() {
			if err := store.Close(); err != nil {
				o.logger.Warn("closing redis store", "err", err)
			}
		}
		return store, locker, closer, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store %q: must be one of auto, memory, file, redis", kind)
	}
}

// manager wires a session manager over store. m may be nil.
func (o *rootOptions) manager(store ports.SessionStore, locker ports.DistributedLocker, machines session.Builder, m *observability.Metrics) *session.Manager {
	opts := []session.Option{
		session.WithLogger(o.logger),
		session.WithAutomatonOptions(observability.Options(o.logger, m)),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	return session.NewManager(store, machines, opts...)
}

// symbolsFrom returns input split into characters when set, or args.
func symbolsFrom(input string, args []string) []string {
	if input != "" {
		return strings.Split(input, "")
	}
	return args
}
