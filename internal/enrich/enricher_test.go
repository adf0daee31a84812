package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

type fakeListings struct {
	listings map[string]contracts.Listing
	err      error
}

func (f *fakeListings) Listings(ctx context.Context) (map[string]contracts.Listing, error) {
	return f.listings, f.err
}

type fakeFundamentals struct {
	byDate map[string]map[string]contracts.Fundamentals
	err    error

	calls []time.Time
}

func (f *fakeFundamentals) FundamentalsSnapshot(ctx context.Context, date time.Time) (map[string]contracts.Fundamentals, error) {
	f.calls = append(f.calls, date)
	if f.err != nil {
		return nil, f.err
	}
	return f.byDate[date.Format("2006-01-02")], nil
}

type fakeCategories struct {
	categories map[string]string
	failCodes  map[string]bool

	mu    sync.Mutex
	calls int
}

func (f *fakeCategories) Category(ctx context.Context, code string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failCodes[code] {
		return "", errors.New("lookup failed")
	}
	return f.categories[code], nil
}

func ranked(codes ...string) []contracts.RankedInstrument {
	out := make([]contracts.RankedInstrument, len(codes))
	for i, code := range codes {
		out[i] = contracts.RankedInstrument{Code: code}
	}
	return out
}

func dates(now time.Time, prev time.Time) *contracts.TradingDateSet {
	return &contracts.TradingDateSet{Now: now, Prev: prev}
}

var (
	nowDay  = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	prevDay = time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
)

func TestEnrich_JoinsAllSources(t *testing.T) {
	pe := 12.5
	enricher := NewEnricher(
		&fakeListings{listings: map[string]contracts.Listing{
			"600519.SH": {Code: "600519.SH", Name: "贵州茅台", Industry: "白酒"},
		}},
		&fakeFundamentals{byDate: map[string]map[string]contracts.Fundamentals{
			"2026-08-28": {"600519.SH": {PE: &pe}},
		}},
		&fakeCategories{categories: map[string]string{"600519.SH": "酿酒行业"}},
		4,
		logger.Nop(),
	)

	out := enricher.Enrich(context.Background(), ranked("600519.SH"), dates(nowDay, prevDay))
	require.Len(t, out, 1)

	assert.Equal(t, "贵州茅台", out[0].Name)
	assert.Equal(t, "酿酒行业", out[0].Category)
	require.NotNil(t, out[0].PE)
	assert.Equal(t, 12.5, *out[0].PE)
}

func TestEnrich_FundamentalsFallsBackToPrevDay(t *testing.T) {
	pe := 8.0
	funds := &fakeFundamentals{byDate: map[string]map[string]contracts.Fundamentals{
		// Nothing published for "now" yet; prev day has data.
		"2026-08-27": {"000001.SZ": {PE: &pe}},
	}}

	enricher := NewEnricher(&fakeListings{}, funds, nil, 2, logger.Nop())
	out := enricher.Enrich(context.Background(), ranked("000001.SZ"), dates(nowDay, prevDay))

	require.Len(t, funds.calls, 2, "must retry exactly once against the previous trading day")
	assert.Equal(t, nowDay, funds.calls[0])
	assert.Equal(t, prevDay, funds.calls[1])

	require.NotNil(t, out[0].PE)
	assert.Equal(t, 8.0, *out[0].PE)
}

func TestEnrich_FundamentalsDoubleMissOmitsFields(t *testing.T) {
	funds := &fakeFundamentals{err: errors.New("upstream down")}

	enricher := NewEnricher(&fakeListings{}, funds, nil, 2, logger.Nop())
	out := enricher.Enrich(context.Background(), ranked("000001.SZ"), dates(nowDay, prevDay))

	require.Len(t, out, 1)
	assert.Nil(t, out[0].PE)
	assert.Nil(t, out[0].FloatMarketCap)
}

func TestEnrich_FundamentalsNoPrevDaySingleCall(t *testing.T) {
	funds := &fakeFundamentals{}

	enricher := NewEnricher(&fakeListings{}, funds, nil, 2, logger.Nop())
	enricher.Enrich(context.Background(), ranked("000001.SZ"), &contracts.TradingDateSet{Now: nowDay})

	assert.Len(t, funds.calls, 1, "no previous trading day means no retry")
}

func TestEnrich_CategoryFailurePlaceholderAndBackfill(t *testing.T) {
	listings := &fakeListings{listings: map[string]contracts.Listing{
		"600519.SH": {Name: "贵州茅台", Industry: "白酒"},
		"000002.SZ": {Name: "万科A"}, // no industry either
	}}
	categories := &fakeCategories{
		categories: map[string]string{"600036.SH": "银行"},
		failCodes:  map[string]bool{"600519.SH": true, "000002.SZ": true},
	}

	enricher := NewEnricher(listings, nil, categories, 8, logger.Nop())
	out := enricher.Enrich(context.Background(), ranked("600519.SH", "000002.SZ", "600036.SH"), dates(nowDay, prevDay))

	byCode := make(map[string]contracts.Instrument)
	for _, inst := range out {
		byCode[inst.Code] = inst
	}

	// Failed lookup with a listing industry: backfilled.
	assert.Equal(t, "白酒", byCode["600519.SH"].Category)
	// Failed lookup without one: placeholder stays.
	assert.Equal(t, contracts.CategoryPlaceholder, byCode["000002.SZ"].Category)
	// Successful lookup: primary source wins.
	assert.Equal(t, "银行", byCode["600036.SH"].Category)
}

func TestEnrich_NilCategoryProviderUsesListingIndustry(t *testing.T) {
	listings := &fakeListings{listings: map[string]contracts.Listing{
		"510300.SH": {Name: "沪深300ETF", Industry: "指数"},
	}}

	enricher := NewEnricher(listings, nil, nil, 4, logger.Nop())
	out := enricher.Enrich(context.Background(), ranked("510300.SH"), dates(nowDay, prevDay))

	require.Len(t, out, 1)
	assert.Equal(t, "指数", out[0].Category)
}

func TestEnrich_ListingFailureDegrades(t *testing.T) {
	listings := &fakeListings{err: errors.New("listing source down")}

	enricher := NewEnricher(listings, nil, nil, 4, logger.Nop())
	out := enricher.Enrich(context.Background(), ranked("600519.SH"), dates(nowDay, prevDay))

	require.Len(t, out, 1)
	assert.Empty(t, out[0].Name)
}

func TestEnrich_WorkerPoolCoversWholeUniverse(t *testing.T) {
	codes := make([]string, 200)
	cats := make(map[string]string, 200)
	for i := range codes {
		codes[i] = fmt.Sprintf("%06d.SH", 600000+i)
		cats[codes[i]] = "行业"
	}
	categories := &fakeCategories{categories: cats}

	enricher := NewEnricher(&fakeListings{}, nil, categories, 8, logger.Nop())
	out := enricher.Enrich(context.Background(), ranked(codes...), dates(nowDay, prevDay))

	require.Len(t, out, 200)
	assert.Equal(t, 200, categories.calls, "exactly one lookup per instrument")
	for _, inst := range out {
		assert.Equal(t, "行业", inst.Category)
	}
}
