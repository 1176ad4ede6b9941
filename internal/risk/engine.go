package risk

import (
	"fmt"
	"strings"

	"github.com/mbd888/chainrisk/internal/labels"
	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/shopspring/decimal"
)

// Component caps. They sum to exactly 100.
const (
	capSanctions           = 40
	capScamReports         = 20
	capMoneyLaundering     = 25
	capAIAnomalies         = 10
	capCrossChain          = 3
	capTransactionPatterns = 2

	maxScore = 100
)

// Per-unit weights.
const (
	weightScamReport   = 4
	weightLaundering   = 8
	weightAnomaly      = 3
	weightHighValueTxn = 1
)

// Caps returns the maximum contribution of each component.
func Caps() Breakdown {
	return Breakdown{
		Sanctions:           capSanctions,
		ScamReports:         capScamReports,
		MoneyLaundering:     capMoneyLaundering,
		AIAnomalies:         capAIAnomalies,
		CrossChain:          capCrossChain,
		TransactionPatterns: capTransactionPatterns,
	}
}

// highValueThreshold is the transaction value (in native units) above which
// a transfer counts toward the transaction pattern component.
var highValueThreshold = decimal.NewFromInt(10)

const sanctionedLabel = "OFAC Sanctioned"

// Engine scores signal sets. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	labels *labels.Directory
}

// NewEngine creates a scoring engine. A nil directory disables entity labels.
func NewEngine(dir *labels.Directory) *Engine {
	return &Engine{labels: dir}
}

// Score combines a fully collected signal set into an assessment. The same
// set always yields an identical assessment.
func (e *Engine) Score(set *signal.Set) (*Assessment, error) {
	var b Breakdown
	explanation := make([]string, 0, 6)

	sanctioned := false
	var detail *signal.SanctionDetail
	if m, ok := set.Sanctions.Value(); ok && m.Matched {
		sanctioned = true
		detail = m.Detail
	}

	// 1. Sanctions
	switch {
	case sanctioned:
		b.Sanctions = capSanctions
		explanation = append(explanation, line("Sanctions", b.Sanctions, "Address is on OFAC sanctions list"))
	case set.Sanctions.IsOK():
		explanation = append(explanation, line("Sanctions", 0, "No sanctions found"))
	default:
		explanation = append(explanation, line("Sanctions", 0, missing("Sanctions screening", set.Sanctions.Status())))
	}

	// 2. Scam reports
	if r, ok := set.ScamReports.Value(); ok {
		if r.Count > 0 {
			b.ScamReports = weighted(r.Count, weightScamReport, capScamReports)
			explanation = append(explanation, line("Scam Reports", b.ScamReports,
				fmt.Sprintf("%d confirmed scam report(s)", r.Count)))
		} else {
			explanation = append(explanation, line("Scam Reports", 0, "No scam reports found"))
		}
	} else {
		explanation = append(explanation, line("Scam Reports", 0, missing("Scam report lookup", set.ScamReports.Status())))
	}

	// 3 and 4 share the behavioral signal.
	if a, ok := set.Behavioral.Value(); ok {
		if k := len(a.Indicators); k > 0 {
			b.MoneyLaundering = weighted(k, weightLaundering, capMoneyLaundering)
			explanation = append(explanation, line("Money Laundering", b.MoneyLaundering,
				fmt.Sprintf("AI detected %d ML scheme(s) - %s", k, strings.Join(a.SchemeTypes(), ", "))))
		} else {
			explanation = append(explanation, line("Money Laundering", 0, "No ML schemes detected"))
		}
		if m := len(a.Anomalies); m > 0 {
			b.AIAnomalies = weighted(m, weightAnomaly, capAIAnomalies)
			explanation = append(explanation, line("Anomalies", b.AIAnomalies,
				fmt.Sprintf("%d suspicious pattern(s) detected", m)))
		} else {
			explanation = append(explanation, line("Anomalies", 0, "No anomalies detected"))
		}
	} else {
		reason := missing("Behavioral analysis", set.Behavioral.Status())
		explanation = append(explanation,
			line("Money Laundering", 0, reason),
			line("Anomalies", 0, reason))
	}

	// 5. Cross-chain
	if r, ok := set.CrossChain.Value(); ok {
		switch {
		case highRisk(r.Analysis.MoneyLaunderingRisk):
			b.CrossChain = capCrossChain
			explanation = append(explanation, line("Cross-Chain", b.CrossChain,
				fmt.Sprintf("%s pattern detected across %d chains", r.Analysis.PatternType, r.TotalChains)))
		case r.TotalChains > 1:
			explanation = append(explanation, line("Cross-Chain", 0,
				fmt.Sprintf("Active on %d chains (low risk)", r.TotalChains)))
		default:
			explanation = append(explanation, line("Cross-Chain", 0, "No cross-chain risk detected"))
		}
	} else {
		explanation = append(explanation, line("Cross-Chain", 0, missing("Cross-chain analysis", set.CrossChain.Status())))
	}

	// 6. Transaction patterns
	if h := countHighValue(set.Transactions); h > 0 {
		b.TransactionPatterns = weighted(h, weightHighValueTxn, capTransactionPatterns)
		explanation = append(explanation, line("Transactions", b.TransactionPatterns,
			fmt.Sprintf("%d high-value transaction(s)", h)))
	} else {
		explanation = append(explanation, line("Transactions", 0, "No high-value transactions"))
	}

	score := b.Sum()
	if score > maxScore {
		score = maxScore
	}

	a := &Assessment{
		OverallScore: score,
		Category:     CategoryFor(score),
		Breakdown:    b,
		Explanation:  explanation,
		Labels:       e.resolveLabels(set.Address, sanctioned, detail),
		Sanctioned:   sanctioned,
	}
	if err := verify(a); err != nil {
		return nil, err
	}
	return a, nil
}

// resolveLabels builds the label list: the sanctions label and the leading
// token of the sanction name, then directory entries for the address.
func (e *Engine) resolveLabels(addr string, sanctioned bool, detail *signal.SanctionDetail) []string {
	out := []string{}
	if sanctioned {
		out = append(out, sanctionedLabel)
		if detail != nil {
			if fields := strings.Fields(detail.Name); len(fields) > 0 {
				out = append(out, fields[0])
			}
		}
	}
	return append(out, e.labels.Lookup(addr)...)
}

// verify checks the score bounds and that every component stays under its cap.
func verify(a *Assessment) error {
	b := a.Breakdown
	checks := []struct {
		name      string
		value, at int
	}{
		{"sanctions", b.Sanctions, capSanctions},
		{"scamReports", b.ScamReports, capScamReports},
		{"moneyLaundering", b.MoneyLaundering, capMoneyLaundering},
		{"aiAnomalies", b.AIAnomalies, capAIAnomalies},
		{"crossChain", b.CrossChain, capCrossChain},
		{"transactionPatterns", b.TransactionPatterns, capTransactionPatterns},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > c.at {
			return fmt.Errorf("%w: %s=%d outside [0,%d]", ErrInvariantViolated, c.name, c.value, c.at)
		}
	}
	want := b.Sum()
	if want > maxScore {
		want = maxScore
	}
	if a.OverallScore != want || a.OverallScore < 0 || a.OverallScore > maxScore {
		return fmt.Errorf("%w: overall=%d, breakdown sum=%d", ErrInvariantViolated, a.OverallScore, b.Sum())
	}
	if a.Category != CategoryFor(a.OverallScore) {
		return fmt.Errorf("%w: category %s for score %d", ErrInvariantViolated, a.Category, a.OverallScore)
	}
	return nil
}

func countHighValue(txs []signal.Transaction) int {
	n := 0
	for _, tx := range txs {
		if tx.Value.GreaterThan(highValueThreshold) {
			n++
		}
	}
	return n
}

func highRisk(level string) bool {
	switch strings.ToLower(level) {
	case "high", "critical":
		return true
	}
	return false
}

// weighted returns n*w clamped to [0, limit]. The count is clamped before
// multiplying so large counts cannot overflow.
func weighted(n, w, limit int) int {
	if n <= 0 {
		return 0
	}
	if n >= (limit+w-1)/w {
		return limit
	}
	return n * w
}

func line(component string, pct int, reason string) string {
	return fmt.Sprintf("%s (%d%%): %s", component, pct, reason)
}

func missing(source string, status signal.Status) string {
	if status == signal.StatusUnavailable {
		return source + " not configured"
	}
	return source + " failed, no evidence"
}
