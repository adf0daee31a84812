package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chilam/strongpool/internal/contracts"
	"github.com/chilam/strongpool/pkg/logger"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresStore persists the signal pool in one table per strategy.
// Replace is transactional: delete-all plus insert, so readers see
// either the previous table or the new one, never a mix.
type PostgresStore struct {
	pool   *pgxpool.Pool
	table  string
	logger *logger.Logger
}

// NewPostgresStore creates a Postgres-backed store. The table name comes
// from strategy config and must be a plain lowercase identifier.
func NewPostgresStore(pool *pgxpool.Pool, table string, log *logger.Logger) (*PostgresStore, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid store table name %q", table)
	}
	return &PostgresStore{
		pool:   pool,
		table:  table,
		logger: log.WithFields(map[string]interface{}{"module": "store", "table": table}),
	}, nil
}

// Init creates the table when it does not exist yet.
func (s *PostgresStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			code                TEXT PRIMARY KEY,
			name                TEXT NOT NULL DEFAULT '',
			category            TEXT NOT NULL DEFAULT '',
			price_now           DOUBLE PRECISION NOT NULL,
			score_primary       DOUBLE PRECISION NOT NULL,
			score_primary_delta DOUBLE PRECISION NOT NULL,
			score_mid           DOUBLE PRECISION,
			score_long          DOUBLE PRECISION,
			streak_days         INTEGER NOT NULL,
			first_qualified     DATE NOT NULL,
			last_update         DATE NOT NULL,
			link                TEXT NOT NULL DEFAULT '',
			pe                  DOUBLE PRECISION,
			float_mv            DOUBLE PRECISION
		)
	`, s.table)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("init signal table %s: %w", s.table, err)
	}
	return nil
}

// Load reads the previous table keyed by code. Query failures are logged
// and degrade to empty history, matching the corrupt-state policy of the
// file store.
func (s *PostgresStore) Load(ctx context.Context) (map[string]contracts.SignalRecord, error) {
	query := fmt.Sprintf(`
		SELECT code, name, category, price_now,
		       score_primary, score_primary_delta, score_mid, score_long,
		       streak_days, first_qualified, last_update, link, pe, float_mv
		FROM %s
	`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		s.logger.WithError(err).Warn("Signal table unreadable, treating as empty history")
		return map[string]contracts.SignalRecord{}, nil
	}
	defer rows.Close()

	out := make(map[string]contracts.SignalRecord)
	for rows.Next() {
		var rec contracts.SignalRecord
		if err := rows.Scan(
			&rec.Code, &rec.Name, &rec.Category, &rec.PriceNow,
			&rec.ScorePrimary, &rec.ScorePrimaryDelta, &rec.ScoreMid, &rec.ScoreLong,
			&rec.StreakDays, &rec.FirstQualified, &rec.LastUpdate, &rec.ExternalLink,
			&rec.PE, &rec.FloatMarketCap,
		); err != nil {
			s.logger.WithError(err).Warn("Skipping corrupt signal row")
			continue
		}
		out[rec.Code] = rec
	}
	if err := rows.Err(); err != nil {
		s.logger.WithError(err).Warn("Signal table read incomplete, treating as empty history")
		return map[string]contracts.SignalRecord{}, nil
	}

	return out, nil
}

// Replace swaps the table contents for the given records in one
// transaction.
func (s *PostgresStore) Replace(ctx context.Context, records []contracts.SignalRecord) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", s.table)); err != nil {
		return fmt.Errorf("clear signal table: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (
			code, name, category, price_now,
			score_primary, score_primary_delta, score_mid, score_long,
			streak_days, first_qualified, last_update, link, pe, float_mv
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, s.table)

	for i := range records {
		r := &records[i]
		if _, err := tx.Exec(ctx, insert,
			r.Code, r.Name, r.Category, r.PriceNow,
			r.ScorePrimary, r.ScorePrimaryDelta, r.ScoreMid, r.ScoreLong,
			r.StreakDays, r.FirstQualified, r.LastUpdate, r.ExternalLink,
			r.PE, r.FloatMarketCap,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	s.logger.WithField("count", len(records)).Info("Signal table replaced")
	return nil
}
