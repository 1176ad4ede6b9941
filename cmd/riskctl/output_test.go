package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbd888/chainrisk/internal/analyzer"
	"github.com/mbd888/chainrisk/internal/risk"
	"github.com/mbd888/chainrisk/internal/signal"
)

func TestPrintReport_HighRisk(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &analyzer.Response{
		Address:    "0x00000000000000000000000000000000000000d1",
		Blockchain: "bsc",
		RiskScore: analyzer.RiskScore{
			Overall:         92,
			Sanctions:       true,
			SanctionDetails: &signal.SanctionDetail{Name: "Lazarus Group"},
			Category:        risk.CategoryCritical,
			Breakdown:       risk.Breakdown{Sanctions: 40, ScamReports: 20, MoneyLaundering: 25, AIAnomalies: 7},
			Explanation:     []string{"Sanctions (40%): Address is on OFAC sanctions list"},
		},
		Labels: []string{"OFAC Sanctioned"},
		Signals: map[string]signal.Outcome{
			signal.SourceBehavioral: {Status: signal.StatusFailed, Reason: "timeout"},
		},
		Alerted: true,
	}, true)

	out := buf.String()
	assert.Contains(t, out, "Risk score: 92/100 (CRITICAL)")
	assert.Contains(t, out, "Labels: OFAC Sanctioned")
	assert.Contains(t, out, "SANCTIONED Lazarus Group")
	assert.Contains(t, out, "Money laundering      25/25")
	assert.Contains(t, out, "behavioral    failed (timeout)")
	assert.Contains(t, out, "High-risk alert dispatched")
	assert.NotContains(t, out, "\x1b[", "no-color output must not carry escape codes")
}
