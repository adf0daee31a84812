package contracts

import (
	"math"
	"time"
)

// NewEntryDelta marks a newly qualified instrument in the persisted
// delta column. A real percentile difference is always within [-100,100],
// so 999 can never collide with one.
const NewEntryDelta = 999

// CategoryPlaceholder is written when the per-instrument category lookup
// failed and no secondary source could backfill it.
const CategoryPlaceholder = "-"

// TradingDateSet holds the anchor dates for one pipeline run, resolved
// from the trading calendar in descending order.
type TradingDateSet struct {
	Now     time.Time         // latest trading date (index 0)
	Prev    time.Time         // previous trading date (index 1); zero when history is too short
	Anchors map[int]time.Time // horizon length -> trading date N sessions back
}

// HasPrev reports whether a previous trading date was resolved.
func (t *TradingDateSet) HasPrev() bool {
	return !t.Prev.IsZero()
}

// PriceQuote is one instrument's closing observation for a single date.
// AdjFactor is the cumulative adjustment factor; 1 when the source has
// none, so Adjusted() is always usable.
type PriceQuote struct {
	Close     float64
	AdjFactor float64
}

// Adjusted returns the continuity-correct comparison price.
func (q PriceQuote) Adjusted() float64 {
	return q.Close * q.AdjFactor
}

// PriceSnapshot maps instrument code to its quote for one date.
// Immutable once fetched.
type PriceSnapshot map[string]PriceQuote

// RankedInstrument carries per-horizon returns and percentile scores for
// one instrument. A nil entry means the horizon was unavailable for this
// instrument (missing past price or zero base).
type RankedInstrument struct {
	Code      string
	PriceNow  float64              // raw close, for display
	BaseNow   float64              // adjusted close, comparison basis
	PctChange map[int]*float64     // horizon -> return vs N sessions back
	Score     map[int]*float64     // horizon -> percentile score in [0,100]
}

// ScoreFor returns the score for a horizon, or nil when unavailable.
func (r *RankedInstrument) ScoreFor(horizon int) *float64 {
	if r.Score == nil {
		return nil
	}
	return r.Score[horizon]
}

// Listing is the static per-instrument metadata from the listing source.
type Listing struct {
	Code     string
	Name     string
	Industry string // coarse category, backfill source for enrichment
}

// Fundamentals holds the bulk valuation fields joined during enrichment.
type Fundamentals struct {
	PE             *float64 // price-to-earnings, nil when unavailable
	FloatMarketCap *float64 // free-float market value, nil when unavailable
}

// Instrument is a fully ranked and enriched candidate, the filter and
// merger input. Values are immutable once built.
type Instrument struct {
	RankedInstrument

	Name     string
	Category string
	Fundamentals
}

// SignalRecord is one persisted row of the signal pool.
type SignalRecord struct {
	Code              string
	Name              string
	Category          string
	PriceNow          float64
	ScorePrimary      float64
	ScorePrimaryDelta float64 // NewEntryDelta for first-day entries
	ScoreMid          *float64
	ScoreLong         *float64
	StreakDays        int
	FirstQualified    time.Time
	LastUpdate        time.Time
	ExternalLink      string
	PE                *float64
	FloatMarketCap    *float64
}

// IsNewEntry reports whether the record was qualified for the first time
// on its LastUpdate date.
func (r *SignalRecord) IsNewEntry() bool {
	return r.ScorePrimaryDelta == NewEntryDelta
}

// Round2 rounds to two decimals, the fixed precision of the persisted
// table.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Day truncates a timestamp to its calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
