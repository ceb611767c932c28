// Package mcp exposes the steward core to agent hosts over the Model
// Context Protocol. Tools run on stdio transport; every call goes
// through the same gateway pipeline as every other surface.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/stewardhq/steward/internal/gateway"
	"github.com/stewardhq/steward/internal/history"
)

// Server wraps the MCP SDK server around the gateway.
type Server struct {
	mcpServer *mcpsdk.Server
	gw        *gateway.Gateway
	store     *history.Store
}

// New creates an MCP server over an assembled gateway. store may be nil
// when history is disabled.
func New(gw *gateway.Gateway, store *history.Store) *Server {
	s := &Server{gw: gw, store: store}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "steward",
			Version: "0.1.0",
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds the steward tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "steward_execute",
		Description: "Execute a command through the steward pipeline: sanitization, plan arbitration, scheduling, and routed execution. Blocked commands return the reason.",
	}, s.handleExecute)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "steward_check",
		Description: "Run the sanitizer over a text without executing anything (dry-run). Returns the redacted text and matched pattern families.",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "steward_status",
		Description: "Report the active plan, scheduler queue depth, and recent plan history.",
	}, s.handleStatus)
}
