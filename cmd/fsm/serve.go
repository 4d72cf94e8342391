package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	httpAdapter "github.com/muhammadut/Finite-State-Machine/pkg/adapters/http"
	"github.com/muhammadut/Finite-State-Machine/pkg/observability"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		addr      string
		storeKind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Serves the JSON API: mod-three, stateless machine runs, sessions and Prometheus metrics.
Sessions live in memory unless FSM_REDIS_ADDR is set or --store says otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.HTTPAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			machines, err := opts.machines()
			if err != nil {
				return err
			}
			store, locker, closeStore, err := opts.openStore(ctx, storeKind, storeMemory)
			if err != nil {
				return err
			}
			defer closeStore()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}

			sessions := opts.manager(store, locker, machines, metrics)
			handler := httpAdapter.NewHandler(machines, sessions,
				httpAdapter.WithLogger(opts.logger),
				httpAdapter.WithMetrics(metrics, reg),
			)

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				opts.logger.Info("starting fsm server", "address", addr, "machines", machines.Names())
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				opts.logger.Info("shutdown signal received")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					opts.logger.Error("graceful shutdown did not complete", "err", err)
					return errors.Join(err, srv.Close())
				}
				opts.logger.Info("fsm server stopped gracefully")
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default FSM_HTTP_ADDR)")
	cmd.Flags().StringVar(&storeKind, "store", storeAuto, "Session store: auto, memory, file or redis")
	return cmd
}
