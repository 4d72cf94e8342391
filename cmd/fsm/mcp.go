package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muhammadut/Finite-State-Machine/pkg/adapters/mcp"
	"github.com/muhammadut/Finite-State-Machine/pkg/observability"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes mod-three and the registered machines as MCP tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			machines, err := opts.machines()
			if err != nil {
				return err
			}
			srv := mcp.NewServer(machines,
				mcp.WithLogger(opts.logger),
				mcp.WithAutomatonOptions(observability.Options(opts.logger, nil)),
			)

			switch transport {
			case "stdio":
				// Logs go to stderr and never corrupt JSON-RPC on stdout.
				opts.logger.Info("starting fsm MCP server (stdio)")
				return srv.ServeStdio()
			case "sse":
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := srv.ServeSSE(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				opts.logger.Info("MCP server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport %q: supported: stdio, sse", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().StringVar(&addr, "addr", ":8081", "Address to listen on (only for SSE)")
	return cmd
}
