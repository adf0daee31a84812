package contracts

import "errors"

// Fatal pipeline conditions. Anything else degrades in place and is
// logged, never returned.
var (
	// ErrCalendarUnavailable means the trading-calendar source returned
	// no dates at all. The run aborts without writing.
	ErrCalendarUnavailable = errors.New("trading calendar unavailable")

	// ErrNonTradingDay means the resolved latest trading date is earlier
	// than the target date: the target is a weekend or holiday. The run
	// aborts without writing so streaks cannot double-count.
	ErrNonTradingDay = errors.New("target date is not a trading day")

	// ErrNoCurrentSnapshot means the price snapshot for the current
	// trading date is empty. Without a base price nothing can be ranked.
	ErrNoCurrentSnapshot = errors.New("no price snapshot for current trading date")
)
