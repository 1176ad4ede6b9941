// Package analyzer runs one address analysis end to end: validate the
// request, collect signals, score them and, for high scores, start an alert.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mbd888/chainrisk/internal/logging"
	"github.com/mbd888/chainrisk/internal/metrics"
	"github.com/mbd888/chainrisk/internal/risk"
	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/mbd888/chainrisk/internal/traces"
	"github.com/mbd888/chainrisk/internal/validation"
)

// Errors that reach the caller. Per-source problems never do.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// RequestError is an InvalidRequest with a message meant for the client.
type RequestError struct {
	Errs validation.ValidationErrors
}

func (e *RequestError) Error() string { return e.Errs.Error() }
func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

// Collector gathers the signal set for an address.
type Collector interface {
	Collect(ctx context.Context, address, chain string) *signal.Set
}

// Notifier starts best-effort alert delivery.
type Notifier interface {
	Notify(ctx context.Context, address, chain string, a *risk.Assessment) bool
}

// Report is the outcome of one analysis.
type Report struct {
	Address    string
	Chain      string
	Assessment *risk.Assessment
	Signals    *signal.Set
	Alerted    bool
}

// Analyzer is safe for concurrent use; it keeps no per-request state.
type Analyzer struct {
	collector Collector
	engine    *risk.Engine
	notifier  Notifier
}

// New creates an analyzer. notifier may be nil.
func New(c Collector, e *risk.Engine, n Notifier) *Analyzer {
	return &Analyzer{collector: c, engine: e, notifier: n}
}

// Normalize validates address and chain and returns their canonical forms.
// An empty chain means signal.DefaultChain.
func Normalize(address, chain string) (string, string, error) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	if errs := validation.Validate(
		validation.Required("address", address),
		validation.ValidAddress("address", address),
		validation.ValidChain("blockchain", chain),
	); len(errs) > 0 {
		return "", "", &RequestError{Errs: errs}
	}
	if chain == "" {
		chain = signal.DefaultChain
	}
	return signal.NormalizeAddress(address), chain, nil
}

// Analyze scores address on chain. It fails only with a *RequestError or
// ErrInternal.
func (a *Analyzer) Analyze(ctx context.Context, address, chain string) (rep *Report, err error) {
	address, chain, err = Normalize(address, chain)
	if err != nil {
		return nil, err
	}

	ctx, span := traces.StartSpan(ctx, "analyzer.Analyze", traces.Address(address), traces.Chain(chain))
	defer span.End()
	ctx = logging.WithAnalysis(ctx, address, chain)

	defer func() {
		if r := recover(); r != nil {
			logging.L(ctx).Error("analysis panicked", "panic", r)
			rep, err = nil, ErrInternal
		}
	}()

	set := a.collector.Collect(ctx, address, chain)
	assessment, err := a.engine.Score(set)
	if err != nil {
		logging.L(ctx).Error("scoring failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	span.SetAttributes(traces.Score(assessment.OverallScore))
	metrics.ObserveAssessment(string(assessment.Category), assessment.OverallScore)

	alerted := false
	if a.notifier != nil {
		alerted = a.notifier.Notify(ctx, address, chain, assessment)
	}

	logging.L(ctx).Info("analysis complete",
		"score", assessment.OverallScore,
		"category", assessment.Category,
		"alerted", alerted,
	)
	return &Report{
		Address:    address,
		Chain:      chain,
		Assessment: assessment,
		Signals:    set,
		Alerted:    alerted,
	}, nil
}
