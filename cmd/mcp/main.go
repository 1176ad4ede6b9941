// Chainrisk MCP Server - Exposes address risk analysis as MCP tools for LLMs
package main

import (
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/chainrisk/internal/logging"
	"github.com/mbd888/chainrisk/internal/mcpserver"
)

var version = "dev"

func main() {
	// stdout carries the MCP protocol, so logs go to stderr
	logger := logging.NewWriter(os.Stderr, envOrDefault("LOG_LEVEL", "info"), "text")

	cfg := mcpserver.Config{
		APIURL: envOrDefault("CHAINRISK_API_URL", "http://localhost:8080"),
		APIKey: os.Getenv("CHAINRISK_API_KEY"),
	}
	logger.Info("starting chainrisk mcp server", "api_url", cfg.APIURL, "version", version)

	s := mcpserver.NewMCPServer(cfg, version)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
