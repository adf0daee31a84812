package filter

import (
	"strings"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/internal/strategy"
	"github.com/chilam/strongpool/pkg/logger"
)

// Filter selects the instruments whose percentile score strictly clears
// the cutoff on every gated horizon. Deterministic, no side effects.
type Filter struct {
	strat  strategy.Strategy
	logger *logger.Logger
}

// New creates a new filter for a strategy.
func New(strat strategy.Strategy, log *logger.Logger) *Filter {
	return &Filter{
		strat:  strat,
		logger: log.WithField("module", "filter"),
	}
}

// Apply returns the qualifying subset, preserving input order. An
// instrument missing a score on a gated horizon fails that horizon; a
// horizon with a non-positive cutoff is not gated at all.
func (f *Filter) Apply(instruments []contracts.Instrument) []contracts.Instrument {
	rejected := make(map[string]int)

	passed := make([]contracts.Instrument, 0, len(instruments)/8)
	for _, inst := range instruments {
		reason := f.check(&inst)
		if reason == "" {
			passed = append(passed, inst)
		} else {
			rejected[reason]++
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"total_input":  len(instruments),
		"passed":       len(passed),
		"filtered_out": len(instruments) - len(passed),
		"filters":      rejected,
	}).Info("Threshold filtering completed")

	return passed
}

// check returns empty string when the instrument passes, otherwise the
// name of the first failing filter.
func (f *Filter) check(inst *contracts.Instrument) string {
	for _, kw := range f.strat.ExcludeNameKeywords {
		if strings.Contains(inst.Name, kw) {
			return "name_keyword"
		}
	}

	gates := []struct {
		name    string
		horizon int
		cutoff  float64
	}{
		{"primary", f.strat.Horizons.Primary, f.strat.Cutoffs.Primary},
		{"mid", f.strat.Horizons.Mid, f.strat.Cutoffs.Mid},
		{"long", f.strat.Horizons.Long, f.strat.Cutoffs.Long},
	}

	for _, g := range gates {
		if g.cutoff <= 0 {
			continue
		}
		score := inst.ScoreFor(g.horizon)
		if score == nil || *score <= g.cutoff {
			return g.name
		}
	}

	return ""
}
