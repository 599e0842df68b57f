// Package storage persists extracted match records.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/GriffinCanCode/matchscan/internal/errors"
	"github.com/GriffinCanCode/matchscan/internal/orchestrator/matches"
)

// Connection pool settings
const (
	MaxOpenConns    = 5
	MaxIdleConns    = 2
	ConnMaxLifetime = 5 * time.Minute
	PingTimeout     = 10 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS match_records (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT        NOT NULL,
	source      TEXT        NOT NULL,
	match_type  TEXT        NOT NULL,
	match_no    INTEGER     NOT NULL,
	red         INTEGER[]   NOT NULL,
	blue        INTEGER[]   NOT NULL,
	frame_index INTEGER     NOT NULL,
	offset_ms   BIGINT      NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS match_records_run_idx ON match_records (run_id, frame_index);
`

const insertRecord = `
INSERT INTO match_records (
	run_id, source, match_type, match_no, red, blue, frame_index, offset_ms, detected_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// PostgresClient writes records to PostgreSQL.
type PostgresClient struct {
	db *sql.DB
}

// NewPostgresClient opens and pings the database at databaseURL.
func NewPostgresClient(ctx context.Context, databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, apperrors.New(apperrors.ErrorCodeConfigMissing, "database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorCodeConfigInvalid, "open database")
	}
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxIdleConns)
	db.SetConnMaxLifetime(ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrorCodeUnavailable, "ping database")
	}
	return &PostgresClient{db: db}, nil
}

// EnsureSchema creates the records table if it does not exist.
func (p *PostgresClient) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorCodeStoreFailed, "create schema")
	}
	return nil
}

// InsertRecords writes records in one transaction and returns how many were
// stored.
func (p *PostgresClient) InsertRecords(ctx context.Context, runID string, records []matches.Record) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrorCodeStoreFailed, "begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrorCodeStoreFailed, "prepare insert")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, recordArgs(runID, r)...); err != nil {
			return 0, apperrors.Wrapf(err, apperrors.ErrorCodeStoreFailed, "insert match %s %d", r.Type, r.Number)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrorCodeStoreFailed, "commit")
	}
	return len(records), nil
}

func recordArgs(runID string, r matches.Record) []any {
	detected := r.DetectedAt
	if detected.IsZero() {
		detected = time.Now()
	}
	return []any{
		runID,
		r.Source,
		r.Type,
		r.Number,
		pq.Array(teamIDs(r.Red)),
		pq.Array(teamIDs(r.Blue)),
		r.FrameIndex,
		r.Timestamp.Milliseconds(),
		detected,
	}
}

func teamIDs(teams [matches.TeamsPerAlliance]int) []int64 {
	ids := make([]int64, len(teams))
	for i, t := range teams {
		ids[i] = int64(t)
	}
	return ids
}

// Close closes the pool.
func (p *PostgresClient) Close() error {
	return p.db.Close()
}
