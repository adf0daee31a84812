package ranking

import (
	"sort"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

// Ranker computes multi-horizon returns and their percentile scores
// across the full candidate universe. Scoring before any filtering keeps
// the scale comparable day over day no matter how many instruments later
// pass the cutoffs.
type Ranker struct {
	useAdjusted bool
	logger      *logger.Logger
}

// NewRanker creates a new ranker. When useAdjusted is set the comparison
// basis is close * adjustment factor; PriceNow stays the raw close for
// display either way.
func NewRanker(useAdjusted bool, log *logger.Logger) *Ranker {
	return &Ranker{
		useAdjusted: useAdjusted,
		logger:      log.WithField("module", "ranking"),
	}
}

// Rank builds one RankedInstrument per instrument in the current
// snapshot. For every horizon with an available past snapshot it
// computes pct_change = (base_now - base_past) / base_past and its
// average-rank percentile in [0,100] over all instruments with a valid
// value for that horizon. Instruments with no past quote, or a zero past
// base, score nil for the horizon.
func (r *Ranker) Rank(now contracts.PriceSnapshot, pasts map[int]contracts.PriceSnapshot) []contracts.RankedInstrument {
	// Deterministic iteration order; scores themselves are permutation
	// invariant but log output and downstream slices should be stable.
	codes := make([]string, 0, len(now))
	for code := range now {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	ranked := make([]contracts.RankedInstrument, len(codes))
	index := make(map[string]int, len(codes))
	for i, code := range codes {
		q := now[code]
		ranked[i] = contracts.RankedInstrument{
			Code:      code,
			PriceNow:  q.Close,
			BaseNow:   r.base(q),
			PctChange: make(map[int]*float64),
			Score:     make(map[int]*float64),
		}
		index[code] = i
	}

	for horizon, past := range pasts {
		valid := make([]string, 0, len(codes))
		changes := make([]float64, 0, len(codes))

		for _, code := range codes {
			pq, ok := past[code]
			if !ok {
				continue
			}
			basePast := r.base(pq)
			if basePast == 0 {
				// Zero base would blow up the return; excluded from the
				// percentile population, scored null.
				continue
			}
			pct := (ranked[index[code]].BaseNow - basePast) / basePast
			valid = append(valid, code)
			changes = append(changes, pct)
		}

		scores := percentileScores(changes)
		for i, code := range valid {
			pct := changes[i]
			score := scores[i]
			ri := &ranked[index[code]]
			ri.PctChange[horizon] = &pct
			ri.Score[horizon] = &score
		}

		r.logger.WithFields(map[string]interface{}{
			"horizon": horizon,
			"scored":  len(valid),
			"total":   len(codes),
		}).Debug("Horizon scored")
	}

	return ranked
}

func (r *Ranker) base(q contracts.PriceQuote) float64 {
	if r.useAdjusted {
		return q.Adjusted()
	}
	return q.Close
}

// percentileScores returns the average-rank percentile of each value,
// scaled to [0,100]. Ties share the mean of the ranks they occupy, so
// the result does not depend on input order; the unique maximum always
// scores 100.
func percentileScores(values []float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	scores := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		// Positions i..j-1 form a tie group; mean of 1-based ranks.
		avgRank := float64(i+1+j) / 2
		score := avgRank / float64(n) * 100
		for k := i; k < j; k++ {
			scores[order[k]] = score
		}
		i = j
	}

	return scores
}
