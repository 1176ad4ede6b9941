package sources

import (
	"context"

	"github.com/mbd888/chainrisk/internal/history"
	"github.com/mbd888/chainrisk/internal/signal"
)

// History wraps a transaction history provider. History is not scored as a
// signal of its own but shares the timeout, breaker and metrics plumbing.
type History struct {
	provider history.Provider
	cfg      Config
}

// NewHistory creates the history adapter. A nil provider makes every lookup
// Unavailable.
func NewHistory(p history.Provider, cfg Config) *History {
	return &History{provider: p, cfg: cfg}
}

func (h *History) Fetch(ctx context.Context, address, chain string) signal.Result[[]signal.Transaction] {
	if h == nil || h.provider == nil {
		return unavailable[[]signal.Transaction](signal.SourceHistory)
	}
	return fetch(ctx, h.cfg, signal.SourceHistory, func(ctx context.Context) ([]signal.Transaction, error) {
		return h.provider.Transactions(ctx, address, chain)
	})
}
