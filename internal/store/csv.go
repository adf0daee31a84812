package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

const dateLayout = "2006-01-02"

// csvHeader is the stable column set of the persisted table. Order is
// part of the format; the rendering layer reads it positionally.
var csvHeader = []string{
	"code", "name", "category", "price_now",
	"score_primary", "score_primary_delta", "score_mid", "score_long",
	"streak_days", "first_qualified", "last_update", "link",
	"pe", "float_mv",
}

// CSVStore persists the signal pool as one CSV file per strategy, one
// record per line. Replace rewrites the whole file through a temp file
// and rename so readers never observe a half-written table.
type CSVStore struct {
	path   string
	logger *logger.Logger
}

// NewCSVStore creates a CSV-backed store at the given path.
func NewCSVStore(path string, log *logger.Logger) *CSVStore {
	return &CSVStore{
		path:   path,
		logger: log.WithFields(map[string]interface{}{"module": "store", "path": path}),
	}
}

// Load reads the previous table keyed by code. A missing file is simply
// empty history; an unreadable or corrupt file is logged and also
// treated as empty history, so a damaged store costs streak continuity
// but never a run.
func (s *CSVStore) Load(ctx context.Context) (map[string]contracts.SignalRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).Warn("Signal store unreadable, treating as empty history")
		}
		return map[string]contracts.SignalRecord{}, nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		s.logger.WithError(err).Warn("Signal store corrupt, treating as empty history")
		return map[string]contracts.SignalRecord{}, nil
	}

	out := make(map[string]contracts.SignalRecord, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rec, err := parseRow(row)
		if err != nil {
			s.logger.WithError(err).WithField("line", i+1).Warn("Skipping corrupt signal row")
			continue
		}
		out[rec.Code] = rec
	}

	return out, nil
}

// Replace atomically swaps the table for the given records.
func (s *CSVStore) Replace(ctx context.Context, records []contracts.SignalRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".signals-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		if err := w.Write(formatRow(&records[i])); err != nil {
			tmp.Close()
			return fmt.Errorf("write record %s: %w", records[i].Code, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace signal store: %w", err)
	}

	s.logger.WithField("count", len(records)).Info("Signal store replaced")
	return nil
}

func formatRow(r *contracts.SignalRecord) []string {
	return []string{
		r.Code,
		r.Name,
		r.Category,
		fixed2(r.PriceNow),
		fixed2(r.ScorePrimary),
		fixed2(r.ScorePrimaryDelta),
		fixed2Ptr(r.ScoreMid),
		fixed2Ptr(r.ScoreLong),
		strconv.Itoa(r.StreakDays),
		r.FirstQualified.Format(dateLayout),
		r.LastUpdate.Format(dateLayout),
		r.ExternalLink,
		fixed2Ptr(r.PE),
		fixed2Ptr(r.FloatMarketCap),
	}
}

func parseRow(row []string) (contracts.SignalRecord, error) {
	var rec contracts.SignalRecord
	if len(row) != len(csvHeader) {
		return rec, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}

	var err error
	rec.Code = row[0]
	rec.Name = row[1]
	rec.Category = row[2]
	if rec.PriceNow, err = strconv.ParseFloat(row[3], 64); err != nil {
		return rec, fmt.Errorf("price_now: %w", err)
	}
	if rec.ScorePrimary, err = strconv.ParseFloat(row[4], 64); err != nil {
		return rec, fmt.Errorf("score_primary: %w", err)
	}
	if rec.ScorePrimaryDelta, err = strconv.ParseFloat(row[5], 64); err != nil {
		return rec, fmt.Errorf("score_primary_delta: %w", err)
	}
	if rec.ScoreMid, err = parseFloatPtr(row[6]); err != nil {
		return rec, fmt.Errorf("score_mid: %w", err)
	}
	if rec.ScoreLong, err = parseFloatPtr(row[7]); err != nil {
		return rec, fmt.Errorf("score_long: %w", err)
	}
	if rec.StreakDays, err = strconv.Atoi(row[8]); err != nil {
		return rec, fmt.Errorf("streak_days: %w", err)
	}
	if rec.FirstQualified, err = time.Parse(dateLayout, row[9]); err != nil {
		return rec, fmt.Errorf("first_qualified: %w", err)
	}
	if rec.LastUpdate, err = time.Parse(dateLayout, row[10]); err != nil {
		return rec, fmt.Errorf("last_update: %w", err)
	}
	rec.ExternalLink = row[11]
	if rec.PE, err = parseFloatPtr(row[12]); err != nil {
		return rec, fmt.Errorf("pe: %w", err)
	}
	if rec.FloatMarketCap, err = parseFloatPtr(row[13]); err != nil {
		return rec, fmt.Errorf("float_mv: %w", err)
	}

	if rec.Code == "" {
		return rec, fmt.Errorf("empty code")
	}
	return rec, nil
}

func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fixed2Ptr(v *float64) string {
	if v == nil {
		return ""
	}
	return fixed2(*v)
}

func parseFloatPtr(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
