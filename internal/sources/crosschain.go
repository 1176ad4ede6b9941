package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mbd888/chainrisk/internal/ai"
	"github.com/mbd888/chainrisk/internal/history"
	"github.com/mbd888/chainrisk/internal/logging"
	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/mbd888/chainrisk/internal/upstream"
)

var errNoChainHistory = errors.New("no chain history available")

// CrossChain summarises an address's activity on every supported chain and
// asks a language model to classify the pattern.
type CrossChain struct {
	provider history.Provider
	model    ai.Model
	chains   []string
	cfg      Config
}

// NewCrossChain creates the cross-chain adapter. A nil model or provider
// makes every lookup Unavailable.
func NewCrossChain(p history.Provider, model ai.Model, cfg Config) *CrossChain {
	return &CrossChain{provider: p, model: model, chains: signal.SupportedChains, cfg: cfg}
}

// Fetch collects per-chain activity concurrently. Chains whose history
// cannot be fetched are left out; the signal fails only when every chain
// fails. With no activity anywhere the model is not consulted.
func (c *CrossChain) Fetch(ctx context.Context, address string) signal.Result[signal.CrossChainReport] {
	if c == nil || c.model == nil || c.provider == nil {
		return unavailable[signal.CrossChainReport](signal.SourceCrossChain)
	}
	return fetch(ctx, c.cfg, signal.SourceCrossChain, func(ctx context.Context) (signal.CrossChainReport, error) {
		activity, err := c.activity(ctx, address)
		if err != nil {
			return signal.CrossChainReport{}, err
		}

		report := signal.CrossChainReport{Chains: activity, TotalChains: len(activity)}
		for _, a := range activity {
			report.TotalTransactions += a.TransactionCount
			report.TotalValue += a.TotalValue
		}
		if len(activity) == 0 {
			report.Analysis = singleChain()
			return report, nil
		}

		text, err := c.model.Generate(ctx, crossChainPrompt(address, activity))
		if err != nil {
			if errors.Is(err, ai.ErrEmptyResponse) {
				return signal.CrossChainReport{}, malformed(err)
			}
			return signal.CrossChainReport{}, err
		}
		report.Analysis, err = decodeCrossChain(text)
		if err != nil {
			return signal.CrossChainReport{}, err
		}
		return report, nil
	})
}

func (c *CrossChain) activity(ctx context.Context, address string) ([]signal.ChainActivity, error) {
	found := make([]*signal.ChainActivity, len(c.chains))
	errs := make([]error, len(c.chains))

	var g errgroup.Group
	for i, chain := range c.chains {
		g.Go(func() error {
			txs, err := c.provider.Transactions(ctx, address, chain)
			if err != nil {
				errs[i] = err
				return nil
			}
			if len(txs) > 0 {
				a := summarizeChain(chain, txs)
				found[i] = &a
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]signal.ChainActivity, 0, len(c.chains))
	failures := 0
	for i, a := range found {
		if errs[i] != nil {
			failures++
			logging.L(ctx).Debug("chain history failed", "chain", c.chains[i], "reason", upstream.Reason(errs[i]))
			continue
		}
		if a != nil {
			out = append(out, *a)
		}
	}
	if failures == len(c.chains) {
		// Surface the first error so its reason (timeout, status) survives.
		return nil, fmt.Errorf("%w: %w", errNoChainHistory, errs[0])
	}
	return out, nil
}

func summarizeChain(chain string, txs []signal.Transaction) signal.ChainActivity {
	a := signal.ChainActivity{
		Blockchain:       chain,
		TransactionCount: len(txs),
		FirstSeen:        txs[0].Timestamp,
		LastSeen:         txs[0].Timestamp,
	}
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Value)
		a.FirstSeen = min(a.FirstSeen, tx.Timestamp)
		a.LastSeen = max(a.LastSeen, tx.Timestamp)
	}
	a.TotalValue = total.Round(2).InexactFloat64()
	return a
}

func singleChain() signal.CrossChainAnalysis {
	return signal.CrossChainAnalysis{
		PatternType:         "single_chain",
		RiskLevel:           "low",
		Description:         "No cross-chain activity found",
		Indicators:          []signal.PatternIndicator{},
		MoneyLaunderingRisk: "low",
	}
}

func crossChainPrompt(address string, activity []signal.ChainActivity) string {
	var sb strings.Builder
	sb.WriteString("You are a blockchain forensics expert specializing in cross-chain money laundering detection. " +
		"Analyze this wallet's activity across multiple blockchains.\n\n")
	fmt.Fprintf(&sb, "ADDRESS: %s\n\nCROSS-CHAIN ACTIVITY:\n", address)
	for _, a := range activity {
		fmt.Fprintf(&sb, "• %s:\n", strings.ToUpper(a.Blockchain))
		fmt.Fprintf(&sb, "  - Transactions: %d\n", a.TransactionCount)
		fmt.Fprintf(&sb, "  - Total Value: %.2f units\n", a.TotalValue)
		fmt.Fprintf(&sb, "  - First Seen: %s\n", time.Unix(a.FirstSeen, 0).UTC().Format(time.RFC3339))
		fmt.Fprintf(&sb, "  - Last Seen: %s\n", time.Unix(a.LastSeen, 0).UTC().Format(time.RFC3339))
	}
	sb.WriteString(`
CROSS-CHAIN MONEY LAUNDERING PATTERNS TO DETECT:
1. **Chain Hopping**: Rapidly moving funds between chains to obscure trail
2. **Bridge Abuse**: Using cross-chain bridges for layering
3. **Diversification**: Spreading funds across chains to avoid detection
4. **Synchronized Activity**: Coordinated transactions across multiple chains
5. **Value Disparity**: Different transaction patterns on different chains
6. **Time Correlation**: Suspicious timing of cross-chain transfers

Respond ONLY with valid JSON:
{
  "pattern_type": "single_chain|chain_hopping|bridge_layering|diversification|synchronized",
  "risk_level": "low|medium|high|critical",
  "confidence": 0-100,
  "description": "Overall pattern assessment",
  "indicators": [
    {
      "indicator": "Description of suspicious pattern",
      "severity": "low|medium|high|critical",
      "evidence": "Specific data points",
      "chains_involved": ["ethereum", "polygon"]
    }
  ],
  "money_laundering_risk": "low|medium|high|critical",
  "sophistication_level": "low|medium|high|expert",
  "recommendation": "Action for investigators"
}`)
	return sb.String()
}

type crossChainAnswer struct {
	PatternType         string                    `json:"pattern_type" validate:"required"`
	RiskLevel           string                    `json:"risk_level" validate:"required"`
	Confidence          *float64                  `json:"confidence" validate:"omitempty,gte=0,lte=100"`
	Description         string                    `json:"description"`
	Indicators          []signal.PatternIndicator `json:"indicators"`
	MoneyLaunderingRisk string                    `json:"money_laundering_risk" validate:"required"`
	SophisticationLevel string                    `json:"sophistication_level"`
	Recommendation      string                    `json:"recommendation"`
}

func decodeCrossChain(text string) (signal.CrossChainAnalysis, error) {
	var ans crossChainAnswer
	if err := json.Unmarshal([]byte(ai.StripFences(text)), &ans); err != nil {
		return signal.CrossChainAnalysis{}, malformed(err)
	}
	if err := payloads.Struct(ans); err != nil {
		return signal.CrossChainAnalysis{}, malformed(err)
	}
	if ans.Indicators == nil {
		ans.Indicators = []signal.PatternIndicator{}
	}
	return signal.CrossChainAnalysis{
		PatternType:         strings.ToLower(ans.PatternType),
		RiskLevel:           strings.ToLower(ans.RiskLevel),
		Confidence:          round(ans.Confidence),
		Description:         ans.Description,
		Indicators:          ans.Indicators,
		MoneyLaunderingRisk: strings.ToLower(ans.MoneyLaunderingRisk),
		SophisticationLevel: ans.SophisticationLevel,
		Recommendation:      ans.Recommendation,
	}, nil
}
