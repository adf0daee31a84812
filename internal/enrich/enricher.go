package enrich

import (
	"context"
	"sync"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

// Enricher joins best-effort metadata onto the ranked universe: display
// names, valuation fields and category text. Every path degrades
// independently; enrichment can never fail a run.
type Enricher struct {
	listings     contracts.ListingProvider
	fundamentals contracts.FundamentalsProvider // may be nil (funds)
	categories   contracts.CategoryProvider     // may be nil (funds)
	workers      int
	logger       *logger.Logger
}

// NewEnricher creates a new enricher. fundamentals and categories may be
// nil for universes that have no such source; those fields stay absent.
func NewEnricher(
	listings contracts.ListingProvider,
	fundamentals contracts.FundamentalsProvider,
	categories contracts.CategoryProvider,
	workers int,
	log *logger.Logger,
) *Enricher {
	if workers < 1 {
		workers = 1
	}
	return &Enricher{
		listings:     listings,
		fundamentals: fundamentals,
		categories:   categories,
		workers:      workers,
		logger:       log.WithField("module", "enrich"),
	}
}

// Enrich builds one Instrument per ranked entry. dates supplies the
// "now" and "prev" anchors for the fundamentals fallback.
func (e *Enricher) Enrich(ctx context.Context, ranked []contracts.RankedInstrument, dates *contracts.TradingDateSet) []contracts.Instrument {
	listings := e.fetchListings(ctx)
	funds := e.fetchFundamentals(ctx, dates)
	categories := e.fetchCategories(ctx, ranked, listings)

	out := make([]contracts.Instrument, len(ranked))
	for i, ri := range ranked {
		inst := contracts.Instrument{RankedInstrument: ri}

		if l, ok := listings[ri.Code]; ok {
			inst.Name = l.Name
		}
		inst.Category = categories[ri.Code]
		if f, ok := funds[ri.Code]; ok {
			inst.Fundamentals = f
		}

		out[i] = inst
	}

	return out
}

// fetchListings loads the static listing table. Failure degrades to an
// empty join: names and industries stay blank.
func (e *Enricher) fetchListings(ctx context.Context) map[string]contracts.Listing {
	if e.listings == nil {
		return nil
	}

	listings, err := e.listings.Listings(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("Listing fetch failed, names unavailable")
		return nil
	}
	return listings
}

// fetchFundamentals bulk-loads valuation fields for the current trading
// date, retrying once against the previous trading date when the
// upstream has not published today's batch yet. A double miss omits the
// fields entirely.
func (e *Enricher) fetchFundamentals(ctx context.Context, dates *contracts.TradingDateSet) map[string]contracts.Fundamentals {
	if e.fundamentals == nil {
		return nil
	}

	funds, err := e.fundamentals.FundamentalsSnapshot(ctx, dates.Now)
	if err != nil {
		e.logger.WithError(err).Warn("Fundamentals fetch failed for current date")
	}
	if len(funds) > 0 {
		return funds
	}

	if !dates.HasPrev() {
		return nil
	}

	e.logger.WithFields(map[string]interface{}{
		"now":  dates.Now.Format("2006-01-02"),
		"prev": dates.Prev.Format("2006-01-02"),
	}).Warn("Fundamentals empty for current date, falling back to previous trading day")

	funds, err = e.fundamentals.FundamentalsSnapshot(ctx, dates.Prev)
	if err != nil {
		e.logger.WithError(err).Warn("Fundamentals fallback fetch failed, fields omitted")
		return nil
	}
	if len(funds) == 0 {
		e.logger.Warn("Fundamentals empty for previous date too, fields omitted")
	}
	return funds
}

// categoryResult is one worker task outcome: either a category or a
// failure marker, never a propagated error.
type categoryResult struct {
	code     string
	category string
	failed   bool
}

// fetchCategories resolves category text per instrument through a
// bounded worker pool. Each task is independent; a failure yields the
// placeholder for that instrument only. Instruments still on the
// placeholder afterwards are backfilled from the coarser listing
// industry when one exists.
func (e *Enricher) fetchCategories(ctx context.Context, ranked []contracts.RankedInstrument, listings map[string]contracts.Listing) map[string]string {
	out := make(map[string]string, len(ranked))

	if e.categories == nil {
		// No per-instrument source for this universe; the listing
		// industry is all there is.
		for _, ri := range ranked {
			out[ri.Code] = listings[ri.Code].Industry
		}
		return out
	}

	codeCh := make(chan string, len(ranked))
	resultCh := make(chan categoryResult, len(ranked))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for code := range codeCh {
				category, err := e.categories.Category(ctx, code)
				if err != nil {
					e.logger.WithError(err).WithField("code", code).Debug("Category lookup failed")
					resultCh <- categoryResult{code: code, failed: true}
					continue
				}
				resultCh <- categoryResult{code: code, category: category}
			}
		}()
	}

	for _, ri := range ranked {
		codeCh <- ri.Code
	}
	close(codeCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	failed := 0
	for res := range resultCh {
		if res.failed || res.category == "" {
			out[res.code] = contracts.CategoryPlaceholder
			failed++
			continue
		}
		out[res.code] = res.category
	}

	// Secondary, coarser source backfills what the first pass missed.
	backfilled := 0
	for code, category := range out {
		if category != contracts.CategoryPlaceholder {
			continue
		}
		if l, ok := listings[code]; ok && l.Industry != "" {
			out[code] = l.Industry
			backfilled++
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"total":      len(ranked),
		"failed":     failed,
		"backfilled": backfilled,
	}).Info("Category enrichment completed")

	return out
}
