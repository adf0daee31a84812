package merge

import (
	"time"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/internal/strategy"
	"github.com/chilam/strongpool/pkg/logger"
)

// Merger owns the transformation from "today's filtered set plus the
// previously persisted table" into the new persisted table. It derives
// the qualification streak, the first-qualification date and the
// day-over-day primary-score delta, and it is the only component that
// may produce SignalRecords.
//
// The transition trigger is solely the persisted row's last-update date
// compared with the resolved trading date, never the wall clock, so a
// same-day rerun reproduces the previous output byte for byte.
type Merger struct {
	strat  strategy.Strategy
	logger *logger.Logger
}

// NewMerger creates a new merger for a strategy.
func NewMerger(strat strategy.Strategy, log *logger.Logger) *Merger {
	return &Merger{
		strat:  strat,
		logger: log.WithField("module", "merge"),
	}
}

// Merge reconciles the qualifying instruments against the previous
// table. previous holds the last persisted run keyed by code (empty when
// there is no usable history); today is the resolved current trading
// date. Instruments present in previous but absent from passed are
// simply not carried over: the store is presence-only, so their history
// ends here and a later requalification starts a fresh streak.
//
// All numeric fields are rounded before return; records are ready to
// persist as-is.
func (m *Merger) Merge(passed []contracts.Instrument, previous map[string]contracts.SignalRecord, today time.Time) []contracts.SignalRecord {
	today = contracts.Day(today)

	var fresh, continued, rerun int

	records := make([]contracts.SignalRecord, 0, len(passed))
	for i := range passed {
		inst := &passed[i]

		primary := inst.ScoreFor(m.strat.Horizons.Primary)
		if primary == nil {
			// The filter gates the primary horizon, so this cannot
			// happen for a qualifying instrument; skip rather than
			// persist a zero score.
			m.logger.WithField("code", inst.Code).Warn("Qualifying instrument has no primary score, skipped")
			continue
		}

		rec := contracts.SignalRecord{
			Code:           inst.Code,
			Name:           inst.Name,
			Category:       inst.Category,
			PriceNow:       contracts.Round2(inst.PriceNow),
			ScorePrimary:   contracts.Round2(*primary),
			ScoreMid:       roundPtr(inst.ScoreFor(m.strat.Horizons.Mid)),
			ScoreLong:      roundPtr(inst.ScoreFor(m.strat.Horizons.Long)),
			PE:             roundPtr(inst.PE),
			FloatMarketCap: roundPtr(inst.FloatMarketCap),
			LastUpdate:     today,
			ExternalLink:   ExternalLink(inst.Code, m.strat.Link),
		}

		prev, known := previous[inst.Code]
		switch {
		case !known:
			// Newly qualified: fresh streak, sentinel delta.
			rec.StreakDays = 1
			rec.FirstQualified = today
			rec.ScorePrimaryDelta = contracts.NewEntryDelta
			fresh++

		case contracts.Day(prev.LastUpdate).Equal(today):
			// Same-day rerun. The persisted score is today's own stale
			// copy, so recomputing the delta from it would collapse it
			// toward zero; carry everything forward instead.
			rec.StreakDays = prev.StreakDays
			rec.FirstQualified = contracts.Day(prev.FirstQualified)
			rec.ScorePrimaryDelta = prev.ScorePrimaryDelta
			rerun++

		default:
			// Continuing from an earlier trading day.
			rec.StreakDays = prev.StreakDays + 1
			rec.FirstQualified = contracts.Day(prev.FirstQualified)
			rec.ScorePrimaryDelta = contracts.Round2(rec.ScorePrimary - prev.ScorePrimary)
			continued++
		}

		records = append(records, rec)
	}

	m.logger.WithFields(map[string]interface{}{
		"strategy":   m.strat.Name,
		"qualified":  len(records),
		"new":        fresh,
		"continuing": continued,
		"rerun":      rerun,
		"dropped":    len(previous) - continued - rerun,
	}).Info("Continuity merge completed")

	return records
}

func roundPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := contracts.Round2(*v)
	return &r
}
