package calendar

import (
	"context"
	"fmt"

	"time"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

// lookbackMargin pads the calendar query window beyond the longest
// horizon so holidays and weekends cannot starve the deepest anchor.
// 250 trading days span roughly 360 calendar days.
const lookbackMargin = 150

// Resolver turns a target calendar date into the trading-date anchors a
// run needs: the latest trading date, the one before it, and one date
// per lookback horizon.
type Resolver struct {
	provider contracts.CalendarProvider
	logger   *logger.Logger
}

// NewResolver creates a new resolver.
func NewResolver(provider contracts.CalendarProvider, log *logger.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   log.WithField("module", "calendar"),
	}
}

// Resolve queries the calendar over a window long enough for the given
// horizons and extracts the anchors. The returned set is ordered most
// recent first by construction: index 0 is "now", index N is the date N
// trading sessions back.
//
// Returns ErrCalendarUnavailable when the provider has no dates and
// ErrNonTradingDay when the latest trading date is not the target date
// itself; in both cases the caller must not write.
func (r *Resolver) Resolve(ctx context.Context, target time.Time, horizons []int) (*contracts.TradingDateSet, error) {
	target = contracts.Day(target)

	maxHorizon := 0
	for _, n := range horizons {
		if n > maxHorizon {
			maxHorizon = n
		}
	}
	start := target.AddDate(0, 0, -(maxHorizon + lookbackMargin))

	dates, err := r.provider.TradingDates(ctx, start, target)
	if err != nil {
		return nil, fmt.Errorf("query trading calendar: %w", err)
	}
	if len(dates) == 0 {
		return nil, contracts.ErrCalendarUnavailable
	}

	set := &contracts.TradingDateSet{
		Now:     contracts.Day(dates[0]),
		Anchors: make(map[int]time.Time, len(horizons)),
	}
	if len(dates) > 1 {
		set.Prev = contracts.Day(dates[1])
	}
	for _, n := range horizons {
		if len(dates) > n {
			set.Anchors[n] = contracts.Day(dates[n])
		} else {
			// Horizon degrades rather than failing the run.
			r.logger.WithFields(map[string]interface{}{
				"horizon":   n,
				"available": len(dates),
			}).Warn("Calendar history shorter than horizon")
		}
	}

	if !set.Now.Equal(target) {
		r.logger.WithFields(map[string]interface{}{
			"target":      target.Format("2006-01-02"),
			"latest_open": set.Now.Format("2006-01-02"),
		}).Info("Target date is not a trading day")
		return set, contracts.ErrNonTradingDay
	}

	return set, nil
}
