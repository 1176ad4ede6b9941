package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with the chainrisk tools registered.
func NewMCPServer(cfg Config, version string) *server.MCPServer {
	s := server.NewMCPServer("chainrisk", version)
	h := NewHandlers(NewClient(cfg))

	s.AddTool(ToolAnalyzeAddress, h.HandleAnalyzeAddress)
	s.AddTool(ToolServiceHealth, h.HandleServiceHealth)

	return s
}
