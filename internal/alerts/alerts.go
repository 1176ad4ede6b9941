// Package alerts notifies external sinks about high-risk assessments.
//
// Delivery is fire-and-forget: Notify returns as soon as delivery has been
// started, runs on a context detached from the request, and never reports
// a failure back to the caller.
package alerts

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mbd888/chainrisk/internal/idgen"
	"github.com/mbd888/chainrisk/internal/logging"
	"github.com/mbd888/chainrisk/internal/metrics"
	"github.com/mbd888/chainrisk/internal/risk"
)

// Threshold is the overall score at or above which an alert is sent.
const Threshold = 60

const (
	deliveryTimeout = 10 * time.Second
	summaryLimit    = 100
)

// Type classifies an alert by its dominant evidence.
type Type string

const (
	TypeSanctioned      Type = "sanctioned"
	TypeMoneyLaundering Type = "money_laundering"
	TypeAnomaly         Type = "anomaly"
)

// Alert is the payload delivered to every sink.
type Alert struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Severity   string    `json:"severity"`
	Address    string    `json:"address"`
	Blockchain string    `json:"blockchain"`
	Message    string    `json:"message"`
	RiskScore  int       `json:"riskScore"`
	Labels     []string  `json:"labels,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink delivers alerts to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, a *Alert) error
}

// Dispatcher fans alerts out to its sinks.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. With no sinks alerts are still
// counted and logged.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, timeout: deliveryTimeout, now: time.Now}
}

// Notify starts delivery for a when its score reaches Threshold and reports
// whether it did. Cancelling ctx afterwards does not stop delivery.
func (d *Dispatcher) Notify(ctx context.Context, address, chain string, a *risk.Assessment) bool {
	if d == nil || a == nil || a.OverallScore < Threshold {
		return false
	}

	alert := Build(address, chain, a, d.now())
	metrics.AlertsTotal.WithLabelValues(string(alert.Type)).Inc()

	logger := logging.L(ctx)
	logger.Info("high-risk alert", "alert_id", alert.ID, "type", alert.Type, "score", alert.RiskScore)

	detached := context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		d.wg.Add(1)
		go d.deliver(detached, logger, s, alert)
	}
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, logger *slog.Logger, s Sink, a *Alert) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			metrics.AlertDeliveriesTotal.WithLabelValues(s.Name(), "failure").Inc()
			logger.Error("alert sink panicked", "sink", s.Name(), "alert_id", a.ID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := s.Deliver(ctx, a); err != nil {
		metrics.AlertDeliveriesTotal.WithLabelValues(s.Name(), "failure").Inc()
		logger.Warn("alert delivery failed", "sink", s.Name(), "alert_id", a.ID, "error", err)
		return
	}
	metrics.AlertDeliveriesTotal.WithLabelValues(s.Name(), "success").Inc()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Build derives the alert for an assessment.
func Build(address, chain string, a *risk.Assessment, at time.Time) *Alert {
	t := TypeAnomaly
	switch {
	case a.Sanctioned:
		t = TypeSanctioned
	case a.Breakdown.MoneyLaundering > 0:
		t = TypeMoneyLaundering
	}
	return &Alert{
		ID:         idgen.WithPrefix("alrt_"),
		Type:       t,
		Severity:   string(a.Category),
		Address:    address,
		Blockchain: chain,
		Message:    "High-risk address detected: " + truncate(a.Summary(), summaryLimit) + "...",
		RiskScore:  a.OverallScore,
		Labels:     a.Labels,
		Timestamp:  at.UTC(),
	}
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
