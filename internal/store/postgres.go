package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verte-zerg/stresstype/internal/model"
)

// Schema is the PostgreSQL DDL applied by [PostgresStore.Migrate].
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT PRIMARY KEY,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    passage     TEXT NOT NULL,
    reason      TEXT NOT NULL,
    source      TEXT NOT NULL,
    wpm         INTEGER NOT NULL,
    accuracy    INTEGER NOT NULL,
    corrections INTEGER NOT NULL,
    hesitations INTEGER NOT NULL,
    score       INTEGER NOT NULL,
    duration_ms BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_events (
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    ts         TIMESTAMPTZ NOT NULL,
    delta      INTEGER NOT NULL,
    gap_ms     BIGINT NOT NULL,
    PRIMARY KEY (session_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);
CREATE INDEX IF NOT EXISTS idx_sessions_source ON sessions(source);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL.
type PostgresStore struct {
	db    DB
	close func()
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing connection or pool. The caller owns db
// and must call [PostgresStore.Migrate] before use.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects a pool to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes [Schema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the pool opened by [OpenPostgres].
func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// InsertSession stores a finished session and copies its events in bulk.
func (s *PostgresStore) InsertSession(ctx context.Context, rec model.SessionRecord, events []model.KeystrokeEvent) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		// Rollback after Commit is a no-op.
		_ = tx.Rollback(ctx)
	}()

	const insert = `
		INSERT INTO sessions (id, started_at, ended_at, passage, reason, source,
		                      wpm, accuracy, corrections, hesitations, score, duration_ms)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	if _, err := tx.Exec(ctx, insert,
		rec.ID, rec.StartedAt, rec.EndedAt, rec.Passage, string(rec.Reason), rec.Source,
		rec.Metrics.WordsPerMinute, rec.Metrics.AccuracyPercent, rec.Metrics.CorrectionCount,
		rec.Metrics.HesitationCount, rec.Score, rec.DurationMs,
	); err != nil {
		return fmt.Errorf("store: insert session: %w", err)
	}

	if len(events) > 0 {
		rows := make([][]any, len(events))
		for i, ev := range events {
			rows[i] = []any{rec.ID, i, ev.Timestamp, ev.BufferLengthDelta, ev.GapFromPrevious.Milliseconds()}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"session_events"},
			[]string{"session_id", "seq", "ts", "delta", "gap_ms"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("store: copy events: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// ListSessions returns session records filtered by cfg, oldest first.
func (s *PostgresStore) ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionRecord, error) {
	const query = `
		SELECT id, started_at, ended_at, passage, reason, source,
		       wpm, accuracy, corrections, hesitations, score, duration_ms
		FROM sessions
		WHERE ($1 = '' OR source = $1)
		  AND ($2::timestamptz IS NULL OR ended_at >= $2)
		ORDER BY ended_at ASC`

	var since *time.Time
	if cfg.Since != nil {
		t := cfg.Since.UTC()
		since = &t
	}
	rows, err := s.db.Query(ctx, query, cfg.Source, since)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var records []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var reason string
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.EndedAt, &rec.Passage, &reason, &rec.Source,
			&rec.Metrics.WordsPerMinute, &rec.Metrics.AccuracyPercent, &rec.Metrics.CorrectionCount,
			&rec.Metrics.HesitationCount, &rec.Score, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		rec.Reason = model.FinishReason(reason)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return applyLast(records, cfg.Last), nil
}

// ListEvents returns the keystroke events of one session.
func (s *PostgresStore) ListEvents(ctx context.Context, sessionID string) ([]model.KeystrokeEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT ts, delta, gap_ms FROM session_events WHERE session_id = $1 ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var events []model.KeystrokeEvent
	for rows.Next() {
		var ev model.KeystrokeEvent
		var gapMs int64
		if err := rows.Scan(&ev.Timestamp, &ev.BufferLengthDelta, &gapMs); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		ev.GapFromPrevious = time.Duration(gapMs) * time.Millisecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	return events, nil
}
