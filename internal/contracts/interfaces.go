package contracts

import (
	"context"
	"time"
)

// Upstream collaborator interfaces. Implementations live under
// internal/external; the pipeline only sees these.

// CalendarProvider returns trading dates within [start, end], most
// recent first. An empty result is valid (the resolver decides whether
// it is fatal).
type CalendarProvider interface {
	TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

// PriceProvider returns the full per-instrument closing snapshot for a
// date. An empty snapshot is not an error; it means the source has no
// rows for that date.
type PriceProvider interface {
	PriceSnapshot(ctx context.Context, date time.Time) (PriceSnapshot, error)
}

// ListingProvider returns static metadata for all listed instruments of
// a universe: display name and a coarse industry tag.
type ListingProvider interface {
	Listings(ctx context.Context) (map[string]Listing, error)
}

// FundamentalsProvider returns bulk valuation fields for a date. May be
// empty when the upstream has not published yet.
type FundamentalsProvider interface {
	FundamentalsSnapshot(ctx context.Context, date time.Time) (map[string]Fundamentals, error)
}

// CategoryProvider resolves one instrument's category/board text with an
// independent network call. Failures are per-instrument.
type CategoryProvider interface {
	Category(ctx context.Context, code string) (string, error)
}

// SignalStore is the persisted signal pool. Load returns the previous
// run's table keyed by code; an unreadable or corrupt store loads as
// empty history. Replace atomically swaps the whole table for the given
// records.
type SignalStore interface {
	Load(ctx context.Context) (map[string]SignalRecord, error)
	Replace(ctx context.Context, records []SignalRecord) error
}
