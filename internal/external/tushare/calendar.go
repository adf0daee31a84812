package tushare

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chilam/strongpool/pkg/redis"
)

// Calendar implements contracts.CalendarProvider on the trade_cal
// endpoint. Results are cached per window: the calendar for a finished
// window never changes, and the resolver asks for the same window on
// every strategy of a run.
type Calendar struct {
	client *Client
	cache  *redis.Cache // may be nil
}

// NewCalendar creates a calendar provider. cache may be nil.
func NewCalendar(client *Client, cache *redis.Cache) *Calendar {
	return &Calendar{client: client, cache: cache}
}

const calendarTTL = 6 * time.Hour

// TradingDates returns open trading dates within [start, end], most
// recent first.
func (c *Calendar) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	cacheKey := fmt.Sprintf("trade_cal:%s:%s", formatDate(start), formatDate(end))
	if c.cache != nil {
		var cached []time.Time
		if hit, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	frame, err := c.client.Call(ctx, "trade_cal", map[string]string{
		"exchange":   "",
		"is_open":    "1",
		"start_date": formatDate(start),
		"end_date":   formatDate(end),
	}, "cal_date")
	if err != nil {
		return nil, err
	}

	col := frame.Index("cal_date")
	dates := make([]time.Time, 0, frame.Len())
	for row := 0; row < frame.Len(); row++ {
		d, err := parseDate(frame.Str(row, col))
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].After(dates[j])
	})

	if c.cache != nil && len(dates) > 0 {
		_ = c.cache.Set(ctx, cacheKey, dates, calendarTTL)
	}

	return dates, nil
}
