// Package risk implements composite risk scoring for blockchain addresses.
//
// Every address is evaluated against 6 weighted components: sanctions,
// scam reports, money-laundering indicators, AI anomalies, cross-chain
// pattern risk and high-value transaction count. Each component is capped
// and the caps sum to 100, so the overall score is bounded by construction.
// Components whose source failed contribute nothing.
package risk

import (
	"errors"
	"strings"
)

// Category is a coarse bucketing of the overall score.
type Category string

const (
	CategoryLow      Category = "low"
	CategoryMedium   Category = "medium"
	CategoryHigh     Category = "high"
	CategoryCritical Category = "critical"
)

// Category thresholds, lower bound inclusive.
const (
	criticalThreshold = 80
	highThreshold     = 50
	mediumThreshold   = 30
)

// CategoryFor buckets a score.
func CategoryFor(score int) Category {
	switch {
	case score >= criticalThreshold:
		return CategoryCritical
	case score >= highThreshold:
		return CategoryHigh
	case score >= mediumThreshold:
		return CategoryMedium
	default:
		return CategoryLow
	}
}

// ErrInvariantViolated is returned when a computed assessment breaks the
// score bounds. It indicates a bug, never bad input.
var ErrInvariantViolated = errors.New("risk: scoring invariant violated")

// Breakdown is the per-component contribution table.
type Breakdown struct {
	Sanctions           int `json:"sanctions"`
	ScamReports         int `json:"scamReports"`
	MoneyLaundering     int `json:"moneyLaundering"`
	AIAnomalies         int `json:"aiAnomalies"`
	CrossChain          int `json:"crossChain"`
	TransactionPatterns int `json:"transactionPatterns"`
}

// Sum adds all components.
func (b Breakdown) Sum() int {
	return b.Sanctions + b.ScamReports + b.MoneyLaundering +
		b.AIAnomalies + b.CrossChain + b.TransactionPatterns
}

// Component is one labelled row of a breakdown.
type Component struct {
	Name  string
	Score int
	Cap   int
}

// Components lists the breakdown in display order with each component's cap.
func (b Breakdown) Components() []Component {
	caps := Caps()
	return []Component{
		{"Sanctions", b.Sanctions, caps.Sanctions},
		{"Scam reports", b.ScamReports, caps.ScamReports},
		{"Money laundering", b.MoneyLaundering, caps.MoneyLaundering},
		{"AI anomalies", b.AIAnomalies, caps.AIAnomalies},
		{"Cross-chain", b.CrossChain, caps.CrossChain},
		{"Transaction patterns", b.TransactionPatterns, caps.TransactionPatterns},
	}
}

// Assessment is the result of scoring one signal set. It is never mutated
// after Score returns it.
type Assessment struct {
	OverallScore int       `json:"overallScore"`
	Category     Category  `json:"category"`
	Breakdown    Breakdown `json:"breakdown"`
	Explanation  []string  `json:"explanation"`
	Labels       []string  `json:"labels"`
	Sanctioned   bool      `json:"sanctioned"`
}

// Summary joins the explanation into a single audit line.
func (a *Assessment) Summary() string {
	return strings.Join(a.Explanation, " | ")
}
