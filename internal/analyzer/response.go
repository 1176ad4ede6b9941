package analyzer

import (
	"github.com/mbd888/chainrisk/internal/risk"
	"github.com/mbd888/chainrisk/internal/signal"
)

// RiskScore is the client-facing score block.
type RiskScore struct {
	Overall                   int                          `json:"overall"`
	Sanctions                 bool                         `json:"sanctions"`
	SanctionDetails           *signal.SanctionDetail       `json:"sanctionDetails"`
	ScamReports               int                          `json:"scamReports"`
	AIAnomalies               []signal.Anomaly             `json:"aiAnomalies"`
	MoneyLaunderingIndicators []signal.LaunderingIndicator `json:"moneyLaunderingIndicators"`
	Category                  risk.Category                `json:"category"`
	Breakdown                 risk.Breakdown               `json:"breakdown"`
	Explanation               []string                     `json:"explanation"`
}

// Response is the JSON body of a successful analysis.
type Response struct {
	Address            string                     `json:"address"`
	Blockchain         string                     `json:"blockchain"`
	RiskScore          RiskScore                  `json:"riskScore"`
	BehavioralAnalysis *signal.BehavioralAnalysis `json:"behavioralAnalysis"`
	CrossChainData     *signal.CrossChainReport   `json:"crossChainData"`
	Transactions       []signal.Transaction       `json:"transactions"`
	Labels             []string                   `json:"labels"`
	Signals            map[string]signal.Outcome  `json:"signals"`
	Alerted            bool                       `json:"alerted"`
}

// NewResponse flattens a report. Payloads of sources that did not return OK
// are null; their status is in Signals.
func NewResponse(rep *Report) *Response {
	a := rep.Assessment
	set := rep.Signals

	score := RiskScore{
		Overall:                   a.OverallScore,
		Sanctions:                 a.Sanctioned,
		AIAnomalies:               []signal.Anomaly{},
		MoneyLaunderingIndicators: []signal.LaunderingIndicator{},
		Category:                  a.Category,
		Breakdown:                 a.Breakdown,
		Explanation:               a.Explanation,
	}
	if m, ok := set.Sanctions.Value(); ok {
		score.SanctionDetails = m.Detail
	}
	if r, ok := set.ScamReports.Value(); ok {
		score.ScamReports = r.Count
	}

	resp := &Response{
		Address:      rep.Address,
		Blockchain:   rep.Chain,
		Transactions: set.Transactions,
		Labels:       a.Labels,
		Signals:      set.Outcomes(),
		Alerted:      rep.Alerted,
	}
	if b, ok := set.Behavioral.Value(); ok {
		resp.BehavioralAnalysis = &b
		if b.Anomalies != nil {
			score.AIAnomalies = b.Anomalies
		}
		if b.Indicators != nil {
			score.MoneyLaunderingIndicators = b.Indicators
		}
	}
	if c, ok := set.CrossChain.Value(); ok {
		resp.CrossChainData = &c
	}
	if resp.Transactions == nil {
		resp.Transactions = []signal.Transaction{}
	}
	resp.RiskScore = score
	return resp
}
