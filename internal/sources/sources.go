// Package sources adapts each external collaborator into a signal.Result.
//
// Every adapter call runs under its own timeout and the shared per-source
// circuit breaker. Errors and panics never escape an adapter: they settle
// into Failed with a short reason that is safe to return to API callers.
package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mbd888/chainrisk/internal/circuitbreaker"
	"github.com/mbd888/chainrisk/internal/logging"
	"github.com/mbd888/chainrisk/internal/metrics"
	"github.com/mbd888/chainrisk/internal/signal"
	"github.com/mbd888/chainrisk/internal/upstream"
)

const defaultTimeout = 10 * time.Second

var errPanic = errors.New("adapter panic")

// payloads validates decoded model answers.
var payloads = validator.New(validator.WithRequiredStructEnabled())

// Config is shared by all adapters.
type Config struct {
	Timeout time.Duration
	Breaker *circuitbreaker.Breaker // nil disables short-circuiting
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// fetch runs one bounded adapter call and records its outcome.
func fetch[T any](ctx context.Context, cfg Config, source string, fn func(context.Context) (T, error)) signal.Result[T] {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	var v T
	err := cfg.Breaker.Execute(ctx, source, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", errPanic, r)
			}
		}()
		v, err = fn(callCtx)
		return err
	})

	var res signal.Result[T]
	if err != nil {
		res = signal.Failed[T](reason(err))
		attrs := []any{"source", source, "reason", res.Reason(), "elapsed_ms", time.Since(start).Milliseconds()}
		if errors.Is(err, signal.ErrMalformedPayload) || errors.Is(err, errPanic) {
			attrs = append(attrs, "detail", err.Error())
		}
		logging.L(ctx).Warn("signal source failed", attrs...)
	} else {
		res = signal.OK(v)
	}
	metrics.ObserveSignal(source, string(res.Status()), time.Since(start))
	return res
}

// unavailable records a source that was never configured.
func unavailable[T any](source string) signal.Result[T] {
	metrics.ObserveSignal(source, string(signal.StatusUnavailable), 0)
	return signal.Unavailable[T]()
}

// failed records a source that could not run for want of its input.
func failed[T any](source, why string) signal.Result[T] {
	metrics.ObserveSignal(source, string(signal.StatusFailed), 0)
	return signal.Failed[T](why)
}

func reason(err error) string {
	if errors.Is(err, errPanic) {
		return errPanic.Error()
	}
	return upstream.Reason(err)
}

// malformed wraps a decode or validation problem.
func malformed(err error) error {
	return fmt.Errorf("%w: %v", signal.ErrMalformedPayload, err)
}
