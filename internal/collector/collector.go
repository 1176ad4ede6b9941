// Package collector gathers every signal for one address/chain pair.
package collector

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/mbd888/chainrisk/internal/traces"
)

// Source interfaces, satisfied by the adapters in package sources.
type (
	SanctionsSource interface {
		Fetch(ctx context.Context, address string) signal.Result[signal.SanctionsMatch]
	}
	ScamReportSource interface {
		Fetch(ctx context.Context, address string) signal.Result[signal.ScamReports]
	}
	HistorySource interface {
		Fetch(ctx context.Context, address, chain string) signal.Result[[]signal.Transaction]
	}
	BehavioralSource interface {
		Fetch(ctx context.Context, address, chain string, txs signal.Result[[]signal.Transaction]) signal.Result[signal.BehavioralAnalysis]
	}
	CrossChainSource interface {
		Fetch(ctx context.Context, address string) signal.Result[signal.CrossChainReport]
	}
)

// Sources wires the collaborators. A nil field settles as Unavailable.
type Sources struct {
	Sanctions   SanctionsSource
	ScamReports ScamReportSource
	History     HistorySource
	Behavioral  BehavioralSource
	CrossChain  CrossChainSource
}

// Collector issues the adapter calls for one request.
type Collector struct {
	src Sources
}

// New creates a collector.
func New(src Sources) *Collector {
	return &Collector{src: src}
}

// Collect returns a fully populated set. Sanctions, scam reports and
// cross-chain run concurrently with the history fetch; behavioral analysis
// waits for history. Collect returns only after every call has settled and
// never fails: per-source problems are recorded in the set.
func (c *Collector) Collect(ctx context.Context, address, chain string) *signal.Set {
	set := &signal.Set{Address: address, Chain: chain}

	var g errgroup.Group
	g.Go(func() error {
		ctx, span := c.start(ctx, signal.SourceSanctions, address, chain)
		set.Sanctions = signal.Unavailable[signal.SanctionsMatch]()
		if c.src.Sanctions != nil {
			set.Sanctions = c.src.Sanctions.Fetch(ctx, address)
		}
		end(span, set.Sanctions.Outcome())
		return nil
	})
	g.Go(func() error {
		ctx, span := c.start(ctx, signal.SourceScamReports, address, chain)
		set.ScamReports = signal.Unavailable[signal.ScamReports]()
		if c.src.ScamReports != nil {
			set.ScamReports = c.src.ScamReports.Fetch(ctx, address)
		}
		end(span, set.ScamReports.Outcome())
		return nil
	})
	g.Go(func() error {
		ctx, span := c.start(ctx, signal.SourceCrossChain, address, chain)
		set.CrossChain = signal.Unavailable[signal.CrossChainReport]()
		if c.src.CrossChain != nil {
			set.CrossChain = c.src.CrossChain.Fetch(ctx, address)
		}
		end(span, set.CrossChain.Outcome())
		return nil
	})
	g.Go(func() error {
		hctx, span := c.start(ctx, signal.SourceHistory, address, chain)
		txs := signal.Unavailable[[]signal.Transaction]()
		if c.src.History != nil {
			txs = c.src.History.Fetch(hctx, address, chain)
		}
		end(span, txs.Outcome())

		set.History = txs.Outcome()
		set.Transactions, _ = txs.Value()
		if set.Transactions == nil {
			set.Transactions = []signal.Transaction{}
		}

		bctx, span := c.start(ctx, signal.SourceBehavioral, address, chain)
		set.Behavioral = signal.Unavailable[signal.BehavioralAnalysis]()
		if c.src.Behavioral != nil {
			set.Behavioral = c.src.Behavioral.Fetch(bctx, address, chain, txs)
		}
		end(span, set.Behavioral.Outcome())
		return nil
	})
	_ = g.Wait()

	return set
}

func (c *Collector) start(ctx context.Context, source, address, chain string) (context.Context, trace.Span) {
	return traces.StartSpan(ctx, "signal."+source, traces.Source(source), traces.Address(address), traces.Chain(chain))
}

func end(span trace.Span, o signal.Outcome) {
	traces.EndSource(span, string(o.Status), o.Reason)
}
