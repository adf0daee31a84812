package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

// fakeCalendar serves a fixed descending date list, recording the
// queried window.
type fakeCalendar struct {
	dates []time.Time
	err   error

	start, end time.Time
}

func (f *fakeCalendar) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	f.start, f.end = start, end
	return f.dates, f.err
}

// weekdays generates n trading dates ending at end, most recent first,
// skipping weekends.
func weekdays(end time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := end
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

func TestResolve_Anchors(t *testing.T) {
	target := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC) // a Friday
	fake := &fakeCalendar{dates: weekdays(target, 300)}
	resolver := NewResolver(fake, logger.Nop())

	set, err := resolver.Resolve(context.Background(), target, []int{50, 120, 250})
	require.NoError(t, err)

	assert.Equal(t, target, set.Now)
	assert.True(t, set.HasPrev())
	assert.Equal(t, fake.dates[1], set.Prev)

	// Index N of the descending list is the date N sessions back.
	require.Len(t, set.Anchors, 3)
	assert.Equal(t, fake.dates[50], set.Anchors[50])
	assert.Equal(t, fake.dates[120], set.Anchors[120])
	assert.Equal(t, fake.dates[250], set.Anchors[250])

	// The query window must cover the longest horizon plus margin.
	assert.True(t, fake.start.Before(target.AddDate(0, 0, -250)))
	assert.Equal(t, target, fake.end)
}

func TestResolve_NonTradingDay(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	fake := &fakeCalendar{dates: weekdays(friday, 300)}
	resolver := NewResolver(fake, logger.Nop())

	set, err := resolver.Resolve(context.Background(), saturday, []int{50, 120, 250})
	require.ErrorIs(t, err, contracts.ErrNonTradingDay)

	// The set is still returned so callers can log the latest open day.
	require.NotNil(t, set)
	assert.Equal(t, friday, set.Now)
}

func TestResolve_TimeOfDayIgnored(t *testing.T) {
	friday := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	fake := &fakeCalendar{dates: weekdays(friday, 300)}
	resolver := NewResolver(fake, logger.Nop())

	// A target with a wall-clock component still matches the trading
	// date; only the calendar date counts.
	late := time.Date(2026, 8, 28, 23, 15, 42, 0, time.UTC)
	_, err := resolver.Resolve(context.Background(), late, []int{50, 120, 250})
	assert.NoError(t, err)
}

func TestResolve_EmptyCalendarIsFatal(t *testing.T) {
	resolver := NewResolver(&fakeCalendar{}, logger.Nop())

	_, err := resolver.Resolve(context.Background(), time.Now(), []int{50})
	assert.ErrorIs(t, err, contracts.ErrCalendarUnavailable)
}

func TestResolve_ProviderError(t *testing.T) {
	sentinel := errors.New("upstream down")
	resolver := NewResolver(&fakeCalendar{err: sentinel}, logger.Nop())

	_, err := resolver.Resolve(context.Background(), time.Now(), []int{50})
	assert.ErrorIs(t, err, sentinel)
}

func TestResolve_ShortHistorySkipsDeepAnchors(t *testing.T) {
	target := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	fake := &fakeCalendar{dates: weekdays(target, 130)} // covers 120, not 250
	resolver := NewResolver(fake, logger.Nop())

	set, err := resolver.Resolve(context.Background(), target, []int{50, 120, 250})
	require.NoError(t, err, "short history degrades, it does not fail the run")

	assert.Contains(t, set.Anchors, 50)
	assert.Contains(t, set.Anchors, 120)
	assert.NotContains(t, set.Anchors, 250)
}
