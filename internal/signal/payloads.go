package signal

// SanctionDetail is the identification entry that triggered a sanctions match.
type SanctionDetail struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SanctionsMatch is the sanctions screening payload.
type SanctionsMatch struct {
	Matched bool            `json:"matched"`
	Detail  *SanctionDetail `json:"detail,omitempty"`
}

// ScamReports is the confirmed abuse report count for an address.
type ScamReports struct {
	Count int `json:"count"`
}

// LaunderingIndicator is one money-laundering scheme reported by the
// behavioral analysis service.
type LaunderingIndicator struct {
	SchemeType     string `json:"scheme_type"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Evidence       string `json:"evidence,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	RegulatoryRisk string `json:"regulatory_risk,omitempty"`
}

// Anomaly is one suspicious behavioral pattern.
type Anomaly struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Evidence    string `json:"evidence,omitempty"`
}

// BehavioralAnalysis is the validated behavioral analysis payload.
type BehavioralAnalysis struct {
	RiskScore         int                   `json:"risk_score"`
	Confidence        int                   `json:"confidence"`
	Indicators        []LaunderingIndicator `json:"money_laundering_indicators"`
	Anomalies         []Anomaly             `json:"anomalies"`
	OverallAssessment string                `json:"overall_assessment,omitempty"`
	LegitimateScore   int                   `json:"legitimate_score"`
	RegulatoryFlags   []string              `json:"regulatory_flags"`
	Explanation       string                `json:"explanation,omitempty"`
}

// SchemeTypes lists indicator scheme types in report order.
func (b BehavioralAnalysis) SchemeTypes() []string {
	out := make([]string, 0, len(b.Indicators))
	for _, ind := range b.Indicators {
		out = append(out, ind.SchemeType)
	}
	return out
}

// ChainActivity summarises one chain's activity for an address. Times are
// unix seconds.
type ChainActivity struct {
	Blockchain       string  `json:"blockchain"`
	TransactionCount int     `json:"transactionCount"`
	TotalValue       float64 `json:"totalValue"`
	FirstSeen        int64   `json:"firstSeen"`
	LastSeen         int64   `json:"lastSeen"`
}

// PatternIndicator is one suspicious cross-chain pattern.
type PatternIndicator struct {
	Indicator      string   `json:"indicator"`
	Severity       string   `json:"severity"`
	Evidence       string   `json:"evidence,omitempty"`
	ChainsInvolved []string `json:"chains_involved,omitempty"`
}

// CrossChainAnalysis is the pattern classification for multi-chain activity.
type CrossChainAnalysis struct {
	PatternType         string             `json:"pattern_type"`
	RiskLevel           string             `json:"risk_level"`
	Confidence          int                `json:"confidence"`
	Description         string             `json:"description"`
	Indicators          []PatternIndicator `json:"indicators"`
	MoneyLaunderingRisk string             `json:"money_laundering_risk"`
	SophisticationLevel string             `json:"sophistication_level,omitempty"`
	Recommendation      string             `json:"recommendation,omitempty"`
}

// CrossChainReport is the cross-chain activity payload.
type CrossChainReport struct {
	Chains            []ChainActivity    `json:"chains"`
	Analysis          CrossChainAnalysis `json:"crossChainAnalysis"`
	TotalChains       int                `json:"totalChains"`
	TotalTransactions int                `json:"totalTransactions"`
	TotalValue        float64            `json:"totalValue"`
}
