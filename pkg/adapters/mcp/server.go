package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	fsm "github.com/muhammadut/Finite-State-Machine"
	"github.com/muhammadut/Finite-State-Machine/internal/logging"
	"github.com/muhammadut/Finite-State-Machine/pkg/automaton"
	"github.com/muhammadut/Finite-State-Machine/pkg/definition"
	"github.com/muhammadut/Finite-State-Machine/pkg/modthree"
)

// MachinesURI is the resource listing every registered definition.
const MachinesURI = "fsm://machines"

// ModThreeResponse is the output of the mod_three tool.
type ModThreeResponse struct {
	Input     string   `json:"input" jsonschema_description:"The binary string that was processed"`
	Remainder int      `json:"remainder" jsonschema_description:"The input modulo three"`
	History   []string `json:"history" jsonschema_description:"States visited, starting with S0"`
}

// RunResponse is the output of the run_machine tool.
type RunResponse struct {
	Machine   string   `json:"machine" jsonschema_description:"The machine that was run"`
	Current   string   `json:"current" jsonschema_description:"The state after the last accepted symbol"`
	Accepting bool     `json:"accepting" jsonschema_description:"Whether the current state is final"`
	History   []string `json:"history" jsonschema_description:"States visited, starting with the initial state"`
}

// Catalog defines what the MCP server needs from a machine registry.
type Catalog interface {
	Names() []string
	Get(name string) (definition.Definition, error)
	Build(name string, opts ...automaton.Option[string, string]) (*automaton.Automaton[string, string], error)
}

// Server exposes the machine catalog as an MCP Server.
type Server struct {
	machines  Catalog
	logger    *slog.Logger
	options   func(machine string) []automaton.Option[string, string]
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAutomatonOptions sets the options applied to every automaton run by run_machine.
func WithAutomatonOptions(fn func(machine string) []automaton.Option[string, string]) Option {
	return func(s *Server) {
		s.options = fn
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(machines Catalog, opts ...Option) *Server {
	s := &Server{
		machines:  machines,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("fsm-mcp", strings.TrimSpace(fsm.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: mod_three
	modThreeTool := mcp.NewTool("mod_three",
		mcp.WithDescription("Compute the remainder of a binary number divided by three using the mod-three automaton."),
		mcp.WithString("input", mcp.Required(), mcp.Description("Binary string, most significant bit first")),
		mcp.WithOutputSchema[ModThreeResponse](),
	)
	s.mcpServer.AddTool(modThreeTool, mcp.NewStructuredToolHandler(s.handleModThree))

	// TOOL: run_machine
	runTool := mcp.NewTool("run_machine",
		mcp.WithDescription("Run a registered machine from its initial state over a sequence of symbols."),
		mcp.WithString("machine", mcp.Required(), mcp.Description("Machine name, see list_machines")),
		mcp.WithString("symbols", mcp.Description("JSON array of symbols")),
		mcp.WithString("input", mcp.Description("String split into one symbol per character (used when symbols is omitted)")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunMachine))

	// TOOL: list_machines
	s.mcpServer.AddTool(mcp.NewTool("list_machines",
		mcp.WithDescription("List the registered machine definitions."),
	), s.handleListMachines)
}

func (s *Server) handleModThree(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ModThreeResponse, error) {
	input, _ := args["input"].(string)

	m, err := modthree.New()
	if err != nil {
		return ModThreeResponse{}, err
	}
	remainder, err := m.Remainder(input)
	if err != nil {
		s.logger.Warn("MCP mod_three: input rejected", "err", err, "size", len(input))
		return ModThreeResponse{}, fmt.Errorf("input rejected: %w", err)
	}

	history := make([]string, 0, len(input)+1)
	for _, r := range m.History() {
		history = append(history, r.Name())
	}
	return ModThreeResponse{Input: input, Remainder: remainder, History: history}, nil
}

func (s *Server) handleRunMachine(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	name, _ := args["machine"].(string)

	var symbols []string
	if raw, ok := args["symbols"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &symbols); err != nil {
			return RunResponse{}, fmt.Errorf("symbols must be a JSON array of strings: %w", err)
		}
	} else if input, ok := args["input"].(string); ok {
		symbols = strings.Split(input, "")
	}

	var opts []automaton.Option[string, string]
	if s.options != nil {
		opts = s.options(name)
	}
	a, err := s.machines.Build(name, opts...)
	if err != nil {
		return RunResponse{}, err
	}
	if _, err := a.Run(symbols); err != nil {
		var stepErr *automaton.StepError
		if errors.As(err, &stepErr) {
			return RunResponse{}, fmt.Errorf("%s: %w (stopped in %s)", automaton.Kind(err), err, a.Current())
		}
		return RunResponse{}, err
	}

	return RunResponse{
		Machine:   name,
		Current:   a.Current(),
		Accepting: a.IsAccepting(),
		History:   a.History(),
	}, nil
}

func (s *Server) handleListMachines(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.machinesJSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: fsm://machines
	s.mcpServer.AddResource(mcp.NewResource(MachinesURI, "Registered Machine Definitions",
		mcp.WithMIMEType("application/json"),
	), s.handleMachinesResource)
}

func (s *Server) handleMachinesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.machinesJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      MachinesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) machinesJSON() ([]byte, error) {
	names := s.machines.Names()
	defs := make([]definition.Definition, 0, len(names))
	for _, name := range names {
		def, err := s.machines.Get(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return json.Marshal(defs)
}
