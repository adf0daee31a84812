package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/internal/store"
	"github.com/chilam/strongpool/internal/strategy"
	"github.com/chilam/strongpool/pkg/logger"
)

// fakeMarket is a deterministic upstream: a trading calendar and one
// price snapshot per date, plus listing and fundamentals tables.
type fakeMarket struct {
	calendar []time.Time // descending
	prices   map[string]contracts.PriceSnapshot
	listings map[string]contracts.Listing
	funds    map[string]map[string]contracts.Fundamentals
}

func (m *fakeMarket) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	out := make([]time.Time, 0, len(m.calendar))
	for _, d := range m.calendar {
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *fakeMarket) PriceSnapshot(ctx context.Context, date time.Time) (contracts.PriceSnapshot, error) {
	return m.prices[date.Format("2006-01-02")], nil
}

func (m *fakeMarket) Listings(ctx context.Context) (map[string]contracts.Listing, error) {
	return m.listings, nil
}

func (m *fakeMarket) FundamentalsSnapshot(ctx context.Context, date time.Time) (map[string]contracts.Fundamentals, error) {
	return m.funds[date.Format("2006-01-02")], nil
}

type fakeCategories struct{}

func (fakeCategories) Category(ctx context.Context, code string) (string, error) {
	return "行业" + code[:2], nil
}

// newMarket builds a 300-session calendar ending at end and a universe
// of n instruments whose returns are strictly ordered by index:
// instrument i gains i basis points per session, so higher indices
// always score higher.
func newMarket(end time.Time, n int) *fakeMarket {
	m := &fakeMarket{
		prices:   make(map[string]contracts.PriceSnapshot),
		listings: make(map[string]contracts.Listing),
		funds:    make(map[string]map[string]contracts.Fundamentals),
	}

	d := end
	for len(m.calendar) < 300 {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			m.calendar = append(m.calendar, d)
		}
		d = d.AddDate(0, 0, -1)
	}

	for back, date := range m.calendar {
		snap := make(contracts.PriceSnapshot, n)
		for i := 0; i < n; i++ {
			code := fmt.Sprintf("%06d.SH", 600000+i)
			// Price decays going back in time, faster for high i.
			growth := 1 + float64(i)/10000
			price := 100.0
			for s := 0; s < len(m.calendar)-back; s++ {
				price *= growth
			}
			snap[code] = contracts.PriceQuote{Close: price, AdjFactor: 1}
		}
		m.prices[date.Format("2006-01-02")] = snap
	}

	pe := 15.0
	mv := 5_000_000.0
	nowKey := end.Format("2006-01-02")
	m.funds[nowKey] = make(map[string]contracts.Fundamentals, n)
	for i := 0; i < n; i++ {
		code := fmt.Sprintf("%06d.SH", 600000+i)
		m.listings[code] = contracts.Listing{Code: code, Name: fmt.Sprintf("股票%d", i), Industry: "制造"}
		m.funds[nowKey][code] = contracts.Fundamentals{PE: &pe, FloatMarketCap: &mv}
	}

	return m
}

func newPipeline(t *testing.T, market *fakeMarket, dir string) (*Pipeline, string) {
	t.Helper()

	strat := strategy.DefaultEquity()
	path := filepath.Join(dir, strat.Store.File)
	deps := Deps{
		Calendar:     market,
		Prices:       market,
		Listings:     market,
		Fundamentals: market,
		Categories:   fakeCategories{},
		Store:        store.NewCSVStore(path, logger.Nop()),
		Workers:      4,
	}
	return New(strat, deps, logger.Nop()), path
}

var tradingDay = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC) // a Friday

func TestRun_EndToEnd(t *testing.T) {
	market := newMarket(tradingDay, 200)
	pipe, path := newPipeline(t, market, t.TempDir())

	summary, err := pipe.Run(context.Background(), tradingDay)
	require.NoError(t, err)

	assert.Equal(t, 200, summary.Universe)
	assert.Equal(t, tradingDay, summary.TradingDate)

	// With all three cutoffs at 87 and strictly ordered returns, the
	// top 13% of 200 instruments qualifies: scores are k/200*100 for
	// rank k, and 26 of them exceed 87.
	assert.Equal(t, 26, summary.Qualified)
	assert.Equal(t, summary.Qualified, summary.NewEntries, "first run: everything is a new entry")

	sigStore := store.NewCSVStore(path, logger.Nop())
	records, err := sigStore.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 26)

	// The strongest instrument has the highest index.
	best, ok := records["600199.SH"]
	require.True(t, ok)
	assert.Equal(t, 100.0, best.ScorePrimary)
	assert.Equal(t, 1, best.StreakDays)
	assert.True(t, best.IsNewEntry())
	assert.Equal(t, "股票199", best.Name)
	assert.Equal(t, "行业60", best.Category)
	assert.Equal(t, "https://quote.eastmoney.com/sh600199.html", best.ExternalLink)
	require.NotNil(t, best.PE)
	assert.Equal(t, 15.0, *best.PE)
}

func TestRun_SameDayRerunIsByteIdentical(t *testing.T) {
	market := newMarket(tradingDay, 120)
	pipe, path := newPipeline(t, market, t.TempDir())
	ctx := context.Background()

	_, err := pipe.Run(ctx, tradingDay)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = pipe.Run(ctx, tradingDay)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second), "same-day rerun must reproduce the table byte for byte")
}

func TestRun_ConsecutiveDaysGrowStreaks(t *testing.T) {
	dir := t.TempDir()
	thursday := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// Day one.
	pipeThu, path := newPipeline(t, newMarket(thursday, 120), dir)
	_, err := pipeThu.Run(ctx, thursday)
	require.NoError(t, err)

	// Day two against the same store. The market keeps the same return
	// ordering so the same instruments qualify.
	pipeFri, _ := newPipeline(t, newMarket(tradingDay, 120), dir)
	summary, err := pipeFri.Run(ctx, tradingDay)
	require.NoError(t, err)
	assert.Zero(t, summary.NewEntries)

	records, err := store.NewCSVStore(path, logger.Nop()).Load(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	for code, rec := range records {
		assert.Equal(t, 2, rec.StreakDays, "code %s", code)
		assert.Equal(t, thursday, rec.FirstQualified)
		assert.Equal(t, tradingDay, rec.LastUpdate)
		assert.NotEqual(t, float64(contracts.NewEntryDelta), rec.ScorePrimaryDelta)
	}
}

func TestRun_NonTradingDayLeavesStoreUntouched(t *testing.T) {
	market := newMarket(tradingDay, 120)
	pipe, path := newPipeline(t, market, t.TempDir())
	ctx := context.Background()

	_, err := pipe.Run(ctx, tradingDay)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	saturday := tradingDay.AddDate(0, 0, 1)
	_, err = pipe.Run(ctx, saturday)
	require.ErrorIs(t, err, contracts.ErrNonTradingDay)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_EmptyCurrentSnapshotAborts(t *testing.T) {
	market := newMarket(tradingDay, 120)
	// Wipe the current day's prices: the source has not published.
	market.prices[tradingDay.Format("2006-01-02")] = nil

	pipe, path := newPipeline(t, market, t.TempDir())
	_, err := pipe.Run(context.Background(), tradingDay)
	require.ErrorIs(t, err, contracts.ErrNoCurrentSnapshot)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "aborted run must not create the store")
}

func TestRun_MissingHorizonFailsGatedFilter(t *testing.T) {
	market := newMarket(tradingDay, 120)
	// Remove the 250-session anchor snapshot; every instrument scores
	// null on the long horizon and the equity strategy gates it.
	strat := strategy.DefaultEquity()
	anchorIdx := strat.Horizons.Long
	anchor := market.calendar[anchorIdx]
	delete(market.prices, anchor.Format("2006-01-02"))

	pipe, _ := newPipeline(t, market, t.TempDir())
	summary, err := pipe.Run(context.Background(), tradingDay)
	require.NoError(t, err, "a missing horizon degrades, the run still completes")
	assert.Zero(t, summary.Qualified)
}
