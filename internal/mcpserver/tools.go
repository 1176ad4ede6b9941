package mcpserver

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/chainrisk/internal/signal"
)

// Tool definitions for the chainrisk MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeAddress = mcp.NewTool("analyze_address",
	mcp.WithDescription(
		"Compute a 0-100 risk score for a blockchain address. "+
			"Combines OFAC sanctions screening, community scam reports, AI money-laundering "+
			"and anomaly detection over recent transactions, and cross-chain activity. "+
			"Returns the score, its category, the per-component breakdown and the reasons behind it."),
	mcp.WithString("address",
		mcp.Required(),
		mcp.Description("EVM address to analyze, 0x followed by 40 hex characters")),
	mcp.WithString("blockchain",
		mcp.Description("Chain to read transaction history from. Defaults to ethereum."),
		mcp.Enum(signal.SupportedChains...)),
)

var ToolServiceHealth = mcp.NewTool("service_health",
	mcp.WithDescription(
		"Report whether the risk service is healthy and which signal sources currently have "+
			"an open circuit. Use this when analyses come back with failed sources."),
)

// supportedChains is used in error messages.
var supportedChains = strings.Join(signal.SupportedChains, ", ")
