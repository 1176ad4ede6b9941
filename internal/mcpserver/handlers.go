package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mbd888/chainrisk/internal/analyzer"
	"github.com/mbd888/chainrisk/internal/health"
	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/mbd888/chainrisk/internal/validation"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *Client
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *Client) *Handlers {
	return &Handlers{client: client}
}

// HandleAnalyzeAddress scores an address and formats the report.
func (h *Handlers) HandleAnalyzeAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	address := strings.TrimSpace(req.GetString("address", ""))
	if address == "" {
		return mcp.NewToolResultError("address is required"), nil
	}
	if !validation.IsValidEVMAddress(address) {
		return mcp.NewToolResultError("address must be 0x followed by 40 hex characters"), nil
	}
	chain := strings.ToLower(strings.TrimSpace(req.GetString("blockchain", "")))
	if chain != "" && !signal.IsSupportedChain(chain) {
		return mcp.NewToolResultError("blockchain must be one of " + supportedChains), nil
	}

	resp, err := h.client.Analyze(ctx, address, chain)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatReport(resp)), nil
}

// HandleServiceHealth reports service and source health.
func (h *Handlers) HandleServiceHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.Health(ctx)
	if err != nil {
		// 503 carries a body too, but the client folds it into the error
		return mcp.NewToolResultError(fmt.Sprintf("Service unhealthy: %v", err)), nil
	}
	text, err := formatHealth(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse health: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func formatReport(r *analyzer.Response) string {
	var sb strings.Builder
	score := r.RiskScore

	fmt.Fprintf(&sb, "Address: %s (%s)\n", r.Address, r.Blockchain)
	fmt.Fprintf(&sb, "Risk score: %d/100 (%s)\n", score.Overall, strings.ToUpper(string(score.Category)))
	if len(r.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels: %s\n", strings.Join(r.Labels, ", "))
	}
	if score.Sanctions {
		sb.WriteString("SANCTIONED")
		if d := score.SanctionDetails; d != nil && d.Name != "" {
			fmt.Fprintf(&sb, ": %s", d.Name)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nBreakdown:\n")
	for _, c := range score.Breakdown.Components() {
		fmt.Fprintf(&sb, "  %-21s %2d/%d\n", c.Name, c.Score, c.Cap)
	}

	if len(score.MoneyLaunderingIndicators) > 0 {
		sb.WriteString("\nMoney laundering indicators:\n")
		for _, ind := range score.MoneyLaunderingIndicators {
			fmt.Fprintf(&sb, "  - %s (%s): %s\n", ind.SchemeType, ind.Severity, ind.Description)
		}
	}
	if len(score.AIAnomalies) > 0 {
		sb.WriteString("\nAnomalies:\n")
		for _, a := range score.AIAnomalies {
			fmt.Fprintf(&sb, "  - %s (%s): %s\n", a.Type, a.Severity, a.Description)
		}
	}
	if c := r.CrossChainData; c != nil {
		fmt.Fprintf(&sb, "\nCross-chain: %s across %d chain(s), laundering risk %s\n",
			c.Analysis.PatternType, c.TotalChains, c.Analysis.MoneyLaunderingRisk)
	}

	sb.WriteString("\nExplanation:\n")
	for _, line := range score.Explanation {
		fmt.Fprintf(&sb, "  %s\n", line)
	}

	sb.WriteString("\nSources: ")
	sb.WriteString(formatSignals(r.Signals))
	sb.WriteString("\n")

	if r.Alerted {
		sb.WriteString("\nA high-risk alert was dispatched.\n")
	}
	return sb.String()
}

func formatSignals(signals map[string]signal.Outcome) string {
	names := make([]string, 0, len(signals))
	for name := range signals {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		o := signals[name]
		if o.Status == signal.StatusOK {
			parts = append(parts, name+"=ok")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s (%s)", name, o.Status, o.Reason))
	}
	return strings.Join(parts, ", ")
}

type healthDoc struct {
	Status  string          `json:"status"`
	Version string          `json:"version"`
	Checks  []health.Status `json:"checks"`
}

func formatHealth(raw json.RawMessage) (string, error) {
	var doc healthDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Status: %s (version %s)\n", doc.Status, doc.Version)
	for _, c := range doc.Checks {
		state := "healthy"
		if !c.Healthy {
			state = "unhealthy"
		}
		fmt.Fprintf(&sb, "  %s: %s", c.Name, state)
		if c.Detail != "" {
			fmt.Fprintf(&sb, " (%s)", c.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
