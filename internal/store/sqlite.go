package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/stresstype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed-width so text columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore wraps SQLite access for session history.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the SQLite database and applies migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			passage TEXT NOT NULL,
			reason TEXT NOT NULL,
			source TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			corrections INTEGER NOT NULL,
			hesitations INTEGER NOT NULL,
			score INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_events (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			ts TEXT NOT NULL,
			delta INTEGER NOT NULL,
			gap_ms INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_source ON sessions(source);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session and its keystroke events.
func (s *SQLiteStore) InsertSession(ctx context.Context, rec model.SessionRecord, events []model.KeystrokeEvent) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, passage, reason, source, wpm, accuracy, corrections, hesitations, score, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.EndedAt.UTC().Format(timeLayout),
		rec.Passage,
		string(rec.Reason),
		rec.Source,
		rec.Metrics.WordsPerMinute,
		rec.Metrics.AccuracyPercent,
		rec.Metrics.CorrectionCount,
		rec.Metrics.HesitationCount,
		rec.Score,
		rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if len(events) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO session_events (session_id, seq, ts, delta, gap_ms) VALUES (?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, ev := range events {
			if _, err = stmt.ExecContext(ctx, rec.ID, i, ev.Timestamp.UTC().Format(timeLayout), ev.BufferLengthDelta, ev.GapFromPrevious.Milliseconds()); err != nil {
				return fmt.Errorf("insert event %d: %w", i, err)
			}
		}
	}

	err = tx.Commit()
	return err
}

// ListSessions returns session records filtered by cfg, oldest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, cfg.Source)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, passage, reason, source, wpm, accuracy, corrections, hesitations, score, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var startedAt, endedAt, reason string
		if err := rows.Scan(&rec.ID, &startedAt, &endedAt, &rec.Passage, &reason, &rec.Source,
			&rec.Metrics.WordsPerMinute, &rec.Metrics.AccuracyPercent, &rec.Metrics.CorrectionCount,
			&rec.Metrics.HesitationCount, &rec.Score, &rec.DurationMs); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
			return nil, err
		}
		rec.Reason = model.FinishReason(reason)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applyLast(records, cfg.Last), nil
}

// ListEvents returns the keystroke events of one session.
func (s *SQLiteStore) ListEvents(ctx context.Context, sessionID string) ([]model.KeystrokeEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, delta, gap_ms FROM session_events WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var events []model.KeystrokeEvent
	for rows.Next() {
		var ev model.KeystrokeEvent
		var ts string
		var gapMs int64
		if err := rows.Scan(&ts, &ev.BufferLengthDelta, &gapMs); err != nil {
			return nil, err
		}
		if ev.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, err
		}
		ev.GapFromPrevious = time.Duration(gapMs) * time.Millisecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
