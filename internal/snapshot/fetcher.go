package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

// Fetcher retrieves per-instrument closing snapshots for anchor dates.
// It is a thin stage over the price provider that applies the empty-
// snapshot policy: only the "now" snapshot is allowed to be fatal.
type Fetcher struct {
	provider contracts.PriceProvider
	logger   *logger.Logger
}

// NewFetcher creates a new fetcher.
func NewFetcher(provider contracts.PriceProvider, log *logger.Logger) *Fetcher {
	return &Fetcher{
		provider: provider,
		logger:   log.WithField("module", "snapshot"),
	}
}

// FetchNow retrieves the snapshot for the current trading date. An empty
// result is fatal: without base prices nothing can be ranked.
func (f *Fetcher) FetchNow(ctx context.Context, date time.Time) (contracts.PriceSnapshot, error) {
	snap, err := f.provider.PriceSnapshot(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetch current snapshot: %w", err)
	}
	if len(snap) == 0 {
		return nil, contracts.ErrNoCurrentSnapshot
	}

	f.logger.WithFields(map[string]interface{}{
		"date":  date.Format("2006-01-02"),
		"count": len(snap),
	}).Debug("Fetched current snapshot")

	return snap, nil
}

// FetchHorizons retrieves one snapshot per horizon anchor. A missing or
// empty snapshot drops that horizon for this run; the ranker will score
// it null for every instrument.
func (f *Fetcher) FetchHorizons(ctx context.Context, dates *contracts.TradingDateSet) map[int]contracts.PriceSnapshot {
	out := make(map[int]contracts.PriceSnapshot, len(dates.Anchors))

	for horizon, date := range dates.Anchors {
		snap, err := f.provider.PriceSnapshot(ctx, date)
		if err != nil {
			f.logger.WithError(err).WithFields(map[string]interface{}{
				"horizon": horizon,
				"date":    date.Format("2006-01-02"),
			}).Warn("Horizon snapshot unavailable")
			continue
		}
		if len(snap) == 0 {
			f.logger.WithFields(map[string]interface{}{
				"horizon": horizon,
				"date":    date.Format("2006-01-02"),
			}).Warn("Horizon snapshot empty")
			continue
		}
		out[horizon] = snap
	}

	return out
}
