package sources

import (
	"context"

	"github.com/mbd888/chainrisk/internal/reports"
	"github.com/mbd888/chainrisk/internal/signal"
)

// ScamReports reads confirmed abuse report counts from a reports.Store.
type ScamReports struct {
	store reports.Store
	cfg   Config
}

// NewScamReports creates the scam report adapter. A nil store makes every
// lookup Unavailable.
func NewScamReports(store reports.Store, cfg Config) *ScamReports {
	return &ScamReports{store: store, cfg: cfg}
}

func (s *ScamReports) Fetch(ctx context.Context, address string) signal.Result[signal.ScamReports] {
	if s == nil || s.store == nil {
		return unavailable[signal.ScamReports](signal.SourceScamReports)
	}
	return fetch(ctx, s.cfg, signal.SourceScamReports, func(ctx context.Context) (signal.ScamReports, error) {
		n, err := s.store.CountReports(ctx, address)
		if err != nil {
			return signal.ScamReports{}, err
		}
		return signal.ScamReports{Count: n}, nil
	})
}
