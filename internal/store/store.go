// Package store persists finished typing sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/stresstype/internal/model"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Sources label the surface that produced a session.
const (
	SourceTUI = "tui"
	SourceAPI = "api"
)

// ErrNotFinished is returned when a session without a result is inserted.
var ErrNotFinished = errors.New("session is not finished")

// Store is the history backend.
type Store interface {
	// InsertSession writes a finished session and its keystroke events.
	InsertSession(ctx context.Context, rec model.SessionRecord, events []model.KeystrokeEvent) error
	// ListSessions returns records oldest first, filtered by cfg.
	ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionRecord, error)
	// ListEvents returns the keystroke events of one session in order.
	ListEvents(ctx context.Context, sessionID string) ([]model.KeystrokeEvent, error)
	Close() error
}

// Open opens the backend selected by cfg.Driver. An empty driver means SQLite.
func Open(ctx context.Context, cfg model.StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		return OpenSQLite(cfg.DSN)
	case DriverPostgres, "postgresql", "pgx":
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

// NewRecord converts a finished session into a history record.
func NewRecord(s model.TypingSession, source string) (model.SessionRecord, error) {
	if s.Phase != model.PhaseFinished || s.EndedAt == nil || s.Metrics == nil || s.Score == nil {
		return model.SessionRecord{}, ErrNotFinished
	}
	return model.SessionRecord{
		ID:         s.ID,
		StartedAt:  s.StartedAt,
		EndedAt:    *s.EndedAt,
		Passage:    s.ReferenceText,
		Reason:     s.Reason,
		Source:     source,
		Metrics:    *s.Metrics,
		Score:      *s.Score,
		DurationMs: s.EndedAt.Sub(s.StartedAt).Milliseconds(),
	}, nil
}

// applyLast keeps the most recent n records of an oldest-first slice.
func applyLast(records []model.SessionRecord, n int) []model.SessionRecord {
	if n <= 0 || len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}
