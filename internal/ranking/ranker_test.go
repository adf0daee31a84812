package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

func snap(quotes map[string]float64) contracts.PriceSnapshot {
	out := make(contracts.PriceSnapshot, len(quotes))
	for code, close := range quotes {
		out[code] = contracts.PriceQuote{Close: close, AdjFactor: 1}
	}
	return out
}

func TestRank_PercentileScores(t *testing.T) {
	ranker := NewRanker(false, logger.Nop())

	// Four instruments with strictly ordered 50-session returns:
	// A +50%, B +20%, C 0%, D -10%.
	now := snap(map[string]float64{"A": 15, "B": 12, "C": 10, "D": 9})
	past := map[int]contracts.PriceSnapshot{
		50: snap(map[string]float64{"A": 10, "B": 10, "C": 10, "D": 10}),
	}

	ranked := ranker.Rank(now, past)
	require.Len(t, ranked, 4)

	scores := make(map[string]float64)
	for _, ri := range ranked {
		s := ri.ScoreFor(50)
		require.NotNil(t, s, "code %s", ri.Code)
		scores[ri.Code] = *s
	}

	// Average-rank percentiles over n=4: ranks 4,3,2,1 -> 100,75,50,25.
	assert.Equal(t, 100.0, scores["A"])
	assert.Equal(t, 75.0, scores["B"])
	assert.Equal(t, 50.0, scores["C"])
	assert.Equal(t, 25.0, scores["D"])
}

func TestRank_TiesShareMeanRank(t *testing.T) {
	ranker := NewRanker(false, logger.Nop())

	// B and C tie in the middle; they occupy ranks 2 and 3 and must
	// both score the mean, (2+3)/2 / 4 * 100 = 62.5.
	now := snap(map[string]float64{"A": 20, "B": 12, "C": 12, "D": 9})
	past := map[int]contracts.PriceSnapshot{
		50: snap(map[string]float64{"A": 10, "B": 10, "C": 10, "D": 10}),
	}

	ranked := ranker.Rank(now, past)

	scores := make(map[string]float64)
	for _, ri := range ranked {
		scores[ri.Code] = *ri.ScoreFor(50)
	}

	assert.Equal(t, 62.5, scores["B"])
	assert.Equal(t, 62.5, scores["C"])
	assert.Equal(t, 100.0, scores["A"])
	assert.Equal(t, 25.0, scores["D"])
}

func TestRank_UniqueMaximumScoresHundred(t *testing.T) {
	ranker := NewRanker(false, logger.Nop())

	now := snap(map[string]float64{"A": 11, "B": 12, "C": 13, "D": 14, "E": 30})
	past := map[int]contracts.PriceSnapshot{
		120: snap(map[string]float64{"A": 10, "B": 10, "C": 10, "D": 10, "E": 10}),
	}

	ranked := ranker.Rank(now, past)
	for _, ri := range ranked {
		s := ri.ScoreFor(120)
		require.NotNil(t, s)
		assert.Greater(t, *s, 0.0)
		assert.LessOrEqual(t, *s, 100.0)
		if ri.Code == "E" {
			assert.Equal(t, 100.0, *s)
		}
	}
}

func TestRank_MissingOrZeroPastScoresNil(t *testing.T) {
	ranker := NewRanker(false, logger.Nop())

	now := snap(map[string]float64{"A": 15, "B": 12, "C": 10})
	past := map[int]contracts.PriceSnapshot{
		// B is missing from the past snapshot; C has a zero base.
		50: snap(map[string]float64{"A": 10, "C": 0}),
	}

	ranked := ranker.Rank(now, past)

	byCode := make(map[string]*contracts.RankedInstrument)
	for i := range ranked {
		byCode[ranked[i].Code] = &ranked[i]
	}

	assert.Nil(t, byCode["B"].ScoreFor(50))
	assert.Nil(t, byCode["C"].ScoreFor(50))

	// A is the only valid instrument for the horizon, so it is the
	// entire percentile population.
	a := byCode["A"].ScoreFor(50)
	require.NotNil(t, a)
	assert.Equal(t, 100.0, *a)
}

func TestRank_MissingHorizonDegradesToNil(t *testing.T) {
	ranker := NewRanker(false, logger.Nop())

	now := snap(map[string]float64{"A": 15, "B": 12})
	past := map[int]contracts.PriceSnapshot{
		50: snap(map[string]float64{"A": 10, "B": 10}),
		// 120 and 250 absent entirely.
	}

	ranked := ranker.Rank(now, past)
	for _, ri := range ranked {
		assert.NotNil(t, ri.ScoreFor(50))
		assert.Nil(t, ri.ScoreFor(120))
		assert.Nil(t, ri.ScoreFor(250))
	}
}

func TestRank_AdjustedBasis(t *testing.T) {
	ranker := NewRanker(true, logger.Nop())

	// Raw closes suggest A fell, but the adjustment factor reveals a
	// 2:1 split: adjusted it doubled while B is flat.
	now := contracts.PriceSnapshot{
		"A": {Close: 10, AdjFactor: 2},
		"B": {Close: 10, AdjFactor: 1},
	}
	past := map[int]contracts.PriceSnapshot{
		50: {
			"A": {Close: 10, AdjFactor: 1},
			"B": {Close: 10, AdjFactor: 1},
		},
	}

	ranked := ranker.Rank(now, past)

	byCode := make(map[string]*contracts.RankedInstrument)
	for i := range ranked {
		byCode[ranked[i].Code] = &ranked[i]
	}

	require.NotNil(t, byCode["A"].PctChange[50])
	assert.InDelta(t, 1.0, *byCode["A"].PctChange[50], 1e-9)
	assert.InDelta(t, 0.0, *byCode["B"].PctChange[50], 1e-9)
	assert.Equal(t, 100.0, *byCode["A"].ScoreFor(50))

	// PriceNow stays the raw close for display.
	assert.Equal(t, 10.0, byCode["A"].PriceNow)
}

func TestRank_PermutationInvariant(t *testing.T) {
	ranker := NewRanker(false, logger.Nop())

	quotes := map[string]float64{}
	pastQuotes := map[string]float64{}
	codes := []string{"E", "A", "C", "B", "D", "F", "G", "H"}
	for i, code := range codes {
		quotes[code] = 10 + float64(i%3) // deliberate ties
		pastQuotes[code] = 10
	}

	first := ranker.Rank(snap(quotes), map[int]contracts.PriceSnapshot{50: snap(pastQuotes)})
	second := ranker.Rank(snap(quotes), map[int]contracts.PriceSnapshot{50: snap(pastQuotes)})

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Code, second[i].Code)
		assert.Equal(t, *first[i].ScoreFor(50), *second[i].ScoreFor(50))
	}
}

func TestRank_EmptyUniverse(t *testing.T) {
	ranker := NewRanker(false, logger.Nop())

	ranked := ranker.Rank(contracts.PriceSnapshot{}, map[int]contracts.PriceSnapshot{})
	assert.Empty(t, ranked)
}
