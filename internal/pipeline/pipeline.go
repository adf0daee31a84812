package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chilam/strongpool/internal/calendar"
	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/internal/enrich"
	"github.com/chilam/strongpool/internal/filter"
	"github.com/chilam/strongpool/internal/merge"
	"github.com/chilam/strongpool/internal/ranking"
	"github.com/chilam/strongpool/internal/snapshot"
	"github.com/chilam/strongpool/internal/strategy"
	"github.com/chilam/strongpool/pkg/logger"
)

// Pipeline is the daily ranking-and-continuity batch for one strategy.
// Stages run strictly in order; nothing is written until the final
// store replace, so every fatal condition aborts with the previous
// table intact. Same-day reruns are idempotent by construction of the
// merge stage.
type Pipeline struct {
	strat    strategy.Strategy
	resolver *calendar.Resolver
	fetcher  *snapshot.Fetcher
	ranker   *ranking.Ranker
	enricher *enrich.Enricher
	filter   *filter.Filter
	merger   *merge.Merger
	store    contracts.SignalStore
	logger   *logger.Logger
}

// Deps bundles the collaborators a pipeline needs.
type Deps struct {
	Calendar     contracts.CalendarProvider
	Prices       contracts.PriceProvider
	Listings     contracts.ListingProvider
	Fundamentals contracts.FundamentalsProvider // nil when the universe has none
	Categories   contracts.CategoryProvider     // nil when the universe has none
	Store        contracts.SignalStore
	Workers      int
}

// New wires a pipeline for one strategy.
func New(strat strategy.Strategy, deps Deps, log *logger.Logger) *Pipeline {
	plog := log.WithField("strategy", strat.Name)
	return &Pipeline{
		strat:    strat,
		resolver: calendar.NewResolver(deps.Calendar, plog),
		fetcher:  snapshot.NewFetcher(deps.Prices, plog),
		ranker:   ranking.NewRanker(strat.UseAdjusted, plog),
		enricher: enrich.NewEnricher(deps.Listings, deps.Fundamentals, deps.Categories, deps.Workers, plog),
		filter:   filter.New(strat, plog),
		merger:   merge.NewMerger(strat, plog),
		store:    deps.Store,
		logger:   plog.WithField("module", "pipeline"),
	}
}

// RunSummary reports what one run did.
type RunSummary struct {
	Strategy    string
	TradingDate time.Time
	Universe    int
	Qualified   int
	NewEntries  int
	Duration    time.Duration
}

// Run executes the batch for the given target date. It returns
// contracts.ErrNonTradingDay (no write, not a failure for schedulers),
// wraps contracts.ErrCalendarUnavailable and ErrNoCurrentSnapshot for
// the fatal upstream gaps, and otherwise persists the merged table.
func (p *Pipeline) Run(ctx context.Context, target time.Time) (*RunSummary, error) {
	start := time.Now()

	// 1. Resolve trading-date anchors and gate on the trading day.
	dates, err := p.resolver.Resolve(ctx, target, p.strat.Horizons.All())
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(map[string]interface{}{
		"trading_date": dates.Now.Format("2006-01-02"),
		"anchors":      len(dates.Anchors),
	}).Info("Run started")

	// 2. Current snapshot is the ranking base; its absence is fatal.
	nowSnap, err := p.fetcher.FetchNow(ctx, dates.Now)
	if err != nil {
		return nil, err
	}

	// 3. One snapshot per horizon; gaps degrade to null scores.
	pastSnaps := p.fetcher.FetchHorizons(ctx, dates)

	// 4. Score the full universe.
	ranked := p.ranker.Rank(nowSnap, pastSnaps)

	// 5. Best-effort enrichment.
	enriched := p.enricher.Enrich(ctx, ranked, dates)

	// 6. Threshold filter.
	passed := p.filter.Apply(enriched)

	// 7. Continuity merge against the previous table.
	previous, err := p.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load previous signal table: %w", err)
	}
	records := p.merger.Merge(passed, previous, dates.Now)

	// 8. Replace the persisted table.
	if err := p.store.Replace(ctx, records); err != nil {
		return nil, fmt.Errorf("persist signal table: %w", err)
	}

	summary := &RunSummary{
		Strategy:    p.strat.Name,
		TradingDate: dates.Now,
		Universe:    len(ranked),
		Qualified:   len(records),
		Duration:    time.Since(start),
	}
	for i := range records {
		if records[i].IsNewEntry() {
			summary.NewEntries++
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"trading_date": summary.TradingDate.Format("2006-01-02"),
		"universe":     summary.Universe,
		"qualified":    summary.Qualified,
		"new_entries":  summary.NewEntries,
		"duration":     summary.Duration,
	}).Info("Run completed")

	return summary, nil
}
