package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mbd888/chainrisk/internal/ai"
	"github.com/mbd888/chainrisk/internal/signal"
)

// recentShown is how many of the newest transactions the prompt lists.
const recentShown = 5

const reasonNoHistory = "transaction history unavailable"

// Behavioral asks a language model to look for laundering schemes and
// anomalies in an address's transaction history.
type Behavioral struct {
	model ai.Model
	cfg   Config
}

// NewBehavioral creates the behavioral adapter. A nil model makes every
// lookup Unavailable.
func NewBehavioral(model ai.Model, cfg Config) *Behavioral {
	return &Behavioral{model: model, cfg: cfg}
}

// Fetch analyses txs, the already collected history. A failed history
// fails the signal without calling the model.
func (b *Behavioral) Fetch(ctx context.Context, address, chain string, txs signal.Result[[]signal.Transaction]) signal.Result[signal.BehavioralAnalysis] {
	if b == nil || b.model == nil {
		return unavailable[signal.BehavioralAnalysis](signal.SourceBehavioral)
	}
	history, ok := txs.Value()
	if !ok {
		return failed[signal.BehavioralAnalysis](signal.SourceBehavioral, reasonNoHistory)
	}

	prompt := behavioralPrompt(address, chain, history)
	return fetch(ctx, b.cfg, signal.SourceBehavioral, func(ctx context.Context) (signal.BehavioralAnalysis, error) {
		text, err := b.model.Generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, ai.ErrEmptyResponse) {
				return signal.BehavioralAnalysis{}, malformed(err)
			}
			return signal.BehavioralAnalysis{}, err
		}
		return decodeBehavioral(text)
	})
}

// TxMetrics summarises a transaction list for the behavioral prompt.
type TxMetrics struct {
	Count          int
	Total          decimal.Decimal
	Average        decimal.Decimal
	Max            decimal.Decimal
	Min            decimal.Decimal
	Counterparties int
	SpanHours      float64
	LateNight      int // between 00:00 and 05:59 UTC
}

// Summarize computes TxMetrics. Counterparties counts distinct from and to
// addresses, the analysed address included.
func Summarize(txs []signal.Transaction) TxMetrics {
	m := TxMetrics{Count: len(txs)}
	if len(txs) == 0 {
		return m
	}

	seen := make(map[string]struct{}, 2*len(txs))
	first, last := txs[0].Timestamp, txs[0].Timestamp
	m.Max, m.Min = txs[0].Value, txs[0].Value
	for _, tx := range txs {
		m.Total = m.Total.Add(tx.Value)
		if tx.Value.GreaterThan(m.Max) {
			m.Max = tx.Value
		}
		if tx.Value.LessThan(m.Min) {
			m.Min = tx.Value
		}
		seen[signal.NormalizeAddress(tx.From)] = struct{}{}
		seen[signal.NormalizeAddress(tx.To)] = struct{}{}
		first = min(first, tx.Timestamp)
		last = max(last, tx.Timestamp)
		if time.Unix(tx.Timestamp, 0).UTC().Hour() <= 5 {
			m.LateNight++
		}
	}
	m.Average = m.Total.Div(decimal.NewFromInt(int64(len(txs))))
	m.Counterparties = len(seen)
	m.SpanHours = float64(last-first) / 3600
	return m
}

func unitFor(chain string) string {
	if chain == "ethereum" {
		return "ETH"
	}
	return "units"
}

func behavioralPrompt(address, chain string, txs []signal.Transaction) string {
	m := Summarize(txs)
	unit := unitFor(chain)

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert cryptocurrency forensics analyst specializing in money laundering detection. "+
		"Analyze this %s wallet's behavior for suspicious patterns, money laundering schemes, and security risks.\n\n", chain)
	fmt.Fprintf(&sb, "WALLET ADDRESS: %s\nBLOCKCHAIN: %s\n\n", address, chain)

	sb.WriteString("TRANSACTION METRICS:\n")
	fmt.Fprintf(&sb, "• Total Transactions: %d\n", m.Count)
	fmt.Fprintf(&sb, "• Total Value: %s %s\n", m.Total.StringFixed(4), unit)
	fmt.Fprintf(&sb, "• Average Transaction: %s %s\n", m.Average.StringFixed(4), unit)
	fmt.Fprintf(&sb, "• Largest Transaction: %s %s\n", m.Max.StringFixed(4), unit)
	fmt.Fprintf(&sb, "• Smallest Transaction: %s %s\n", m.Min.StringFixed(6), unit)
	fmt.Fprintf(&sb, "• Unique Counterparties: %d\n", m.Counterparties)
	fmt.Fprintf(&sb, "• Activity Period: %.1f hours\n", m.SpanHours)
	fmt.Fprintf(&sb, "• Late Night Transactions (12am-5am): %d\n\n", m.LateNight)

	fmt.Fprintf(&sb, "RECENT TRANSACTIONS (last %d):\n", recentShown)
	for i, tx := range txs[:min(recentShown, len(txs))] {
		direction, other := "RECEIVED from", tx.From
		if signal.NormalizeAddress(tx.From) == address {
			direction, other = "SENT to", tx.To
		}
		fmt.Fprintf(&sb, "%d. %s %s | %s %s... | %s\n", i+1, tx.Value.String(), unit, direction,
			truncate(other, 10), time.Unix(tx.Timestamp, 0).UTC().Format(time.RFC3339))
	}

	sb.WriteString(`
MONEY LAUNDERING DETECTION CRITERIA:
1. **Layering Schemes**: Multiple rapid transfers through intermediary addresses
2. **Structuring**: Breaking large amounts into smaller transactions to avoid detection
3. **Mixing Services**: Interaction with known tumblers/mixers (Tornado Cash, etc.)
4. **Round Numbers**: Frequent use of round amounts (indicator of manual/suspicious activity)
5. **Velocity Patterns**: Unusual bursts of activity or rapid in-and-out transfers
6. **Time Patterns**: Transactions at unusual hours or synchronized timing
7. **Chain Hopping**: Cross-chain transfers to obscure origin
8. **Peel Chains**: Sequential transactions with decreasing amounts

Respond ONLY with valid JSON (no markdown):
{
  "risk_score": 0-100,
  "confidence": 0-100,
  "money_laundering_indicators": [
    {
      "scheme_type": "layering|structuring|mixing|peel_chain|velocity_based|other",
      "severity": "low|medium|high|critical",
      "description": "Detailed explanation of the scheme detected",
      "evidence": "Specific data points supporting this finding",
      "recommendation": "Action for compliance officer/investigator",
      "regulatory_risk": "low|medium|high|critical"
    }
  ],
  "anomalies": [
    {
      "type": "unusual_timing|suspicious_amount|rapid_velocity|mixer_interaction|structuring|round_numbers|other",
      "severity": "low|medium|high|critical",
      "description": "Clear explanation",
      "evidence": "Specific data point"
    }
  ],
  "overall_assessment": "2-3 sentence professional summary for compliance report",
  "legitimate_score": 0-100,
  "regulatory_flags": ["AML", "KYC", "SANCTIONS", "CTF"],
  "explanation": "How the risk score was calculated including weights for each factor"
}`)
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// behavioralAnswer is the strict shape of a model answer. Pointer fields
// distinguish absent from zero.
type behavioralAnswer struct {
	RiskScore         *float64          `json:"risk_score" validate:"required,gte=0,lte=100"`
	Confidence        *float64          `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	Indicators        []indicatorAnswer `json:"money_laundering_indicators" validate:"required,dive"`
	Anomalies         []anomalyAnswer   `json:"anomalies" validate:"required,dive"`
	OverallAssessment string            `json:"overall_assessment"`
	LegitimateScore   *float64          `json:"legitimate_score" validate:"omitempty,gte=0,lte=100"`
	RegulatoryFlags   []string          `json:"regulatory_flags"`
	Explanation       string            `json:"explanation"`
}

type indicatorAnswer struct {
	SchemeType     string `json:"scheme_type" validate:"required"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Evidence       string `json:"evidence"`
	Recommendation string `json:"recommendation"`
	RegulatoryRisk string `json:"regulatory_risk"`
}

type anomalyAnswer struct {
	Type        string `json:"type" validate:"required"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Evidence    string `json:"evidence"`
}

// decodeBehavioral parses and validates a model answer. Anything absent or
// out of range rejects the whole answer.
func decodeBehavioral(text string) (signal.BehavioralAnalysis, error) {
	var ans behavioralAnswer
	if err := json.Unmarshal([]byte(ai.StripFences(text)), &ans); err != nil {
		return signal.BehavioralAnalysis{}, malformed(err)
	}
	if err := payloads.Struct(ans); err != nil {
		return signal.BehavioralAnalysis{}, malformed(err)
	}

	out := signal.BehavioralAnalysis{
		RiskScore:         round(ans.RiskScore),
		Confidence:        round(ans.Confidence),
		Indicators:        make([]signal.LaunderingIndicator, 0, len(ans.Indicators)),
		Anomalies:         make([]signal.Anomaly, 0, len(ans.Anomalies)),
		OverallAssessment: ans.OverallAssessment,
		LegitimateScore:   round(ans.LegitimateScore),
		RegulatoryFlags:   ans.RegulatoryFlags,
		Explanation:       ans.Explanation,
	}
	if out.RegulatoryFlags == nil {
		out.RegulatoryFlags = []string{}
	}
	for _, ind := range ans.Indicators {
		out.Indicators = append(out.Indicators, signal.LaunderingIndicator(ind))
	}
	for _, an := range ans.Anomalies {
		out.Anomalies = append(out.Anomalies, signal.Anomaly(an))
	}
	return out, nil
}

func round(f *float64) int {
	if f == nil {
		return 0
	}
	return int(math.Round(*f))
}
