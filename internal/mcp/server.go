// Package mcp exposes the fluxionctl lifecycle actions as Model Context
// Protocol tools so AI agents can inspect and restart the analysis server.
package mcp

import (
	"context"
	"io"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fluxion-ml/fluxionctl/internal/lifecycle"
	"github.com/fluxion-ml/fluxionctl/pkg/version"
)

const serverName = "fluxionctl"

// Controller is the slice of the lifecycle surface the MCP tools drive.
type Controller interface {
	Restart(ctx context.Context) error
	Status() lifecycle.Status
}

// CommandDispatcher invokes registered host commands by id.
type CommandDispatcher interface {
	ExecuteCommand(ctx context.Context, id string) error
}

// ServerDeps carries the dependencies for the MCP server.
type ServerDeps struct {
	Logger     *slog.Logger
	Controller Controller
	Dispatcher CommandDispatcher
}

// Server wraps the MCP SDK server with the fluxionctl tool set.
type Server struct {
	deps      ServerDeps
	server    *mcpsdk.Server
	toolNames []string
}

// NewServer creates the MCP server and registers all tools.
func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	srv := &Server{deps: deps}

	srv.server = mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    serverName,
		Version: version.Version,
	}, nil)

	registerTool(srv, &mcpsdk.Tool{
		Name:        "fluxion_status",
		Description: "Report the lifecycle state of the fluxion-lsp analysis server",
	}, srv.handleStatus)

	registerTool(srv, &mcpsdk.Tool{
		Name:        "fluxion_restart",
		Description: "Stop and restart the fluxion-lsp analysis server connection",
	}, srv.handleRestart)

	registerTool(srv, &mcpsdk.Tool{
		Name:        "fluxion_hello",
		Description: "Invoke the hello-world notification command",
	}, srv.handleHello)

	return srv
}

// registerTool adds a tool to the SDK server and records its name.
func registerTool[In, Out any](
	srv *Server,
	tool *mcpsdk.Tool,
	handler func(context.Context, *mcpsdk.CallToolRequest, In) (*mcpsdk.CallToolResult, Out, error),
) {
	mcpsdk.AddTool(srv.server, tool, handler)
	srv.toolNames = append(srv.toolNames, tool.Name)
}

// ListToolNames returns the registered tool names.
func (s *Server) ListToolNames() []string {
	return append([]string(nil), s.toolNames...)
}

// Run serves MCP over stdio until ctx is cancelled or the client hangs up.
func (s *Server) Run(ctx context.Context) error {
	s.deps.Logger.Info("mcp server starting", "tools", len(s.toolNames))

	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}
