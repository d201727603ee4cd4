// Package model defines shared data structures.
package model

import "time"

// Phase is the lifecycle state of a typing session.
type Phase string

// Session phases.
const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseFinished Phase = "finished"
)

// FinishReason records what ended a session.
type FinishReason string

// Finish reasons.
const (
	ReasonTimeout FinishReason = "timeout"
	ReasonManual  FinishReason = "manual"
)

// Valid reports whether r is a known finish reason.
func (r FinishReason) Valid() bool {
	return r == ReasonTimeout || r == ReasonManual
}

// Config defines check settings.
type Config struct {
	Duration     time.Duration
	Hesitation   time.Duration
	Passage      string
	PassagesPath string
}

// StoreConfig selects the history backend.
type StoreConfig struct {
	Driver string
	DSN    string
}

// HistoryConfig defines filters and options for history output.
type HistoryConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
	Source      string
}

// KeystrokeEvent is one observed change to the input buffer.
type KeystrokeEvent struct {
	Timestamp         time.Time     `json:"timestamp" yaml:"timestamp"`
	BufferLengthDelta int           `json:"buffer_length_delta" yaml:"buffer_length_delta"`
	GapFromPrevious   time.Duration `json:"gap_from_previous" yaml:"gap_from_previous"`
}

// SessionMetrics is the reduction of a finished session.
type SessionMetrics struct {
	WordsPerMinute  int `json:"words_per_minute" yaml:"words_per_minute"`
	AccuracyPercent int `json:"accuracy_percent" yaml:"accuracy_percent"`
	CorrectionCount int `json:"correction_count" yaml:"correction_count"`
	HesitationCount int `json:"hesitation_count" yaml:"hesitation_count"`
}

// TypingSession is one attempt at the exercise.
type TypingSession struct {
	ID            string
	ReferenceText string
	StartedAt     time.Time
	EndedAt       *time.Time
	Events        []KeystrokeEvent
	FinalText     string
	Phase         Phase
	Reason        FinishReason
	Metrics       *SessionMetrics
	Score         *int
}

// Result is the outcome of finalizing a session.
type Result struct {
	Metrics SessionMetrics `json:"metrics"`
	Score   int            `json:"score"`
}

// SessionRecord is a persisted, finished session.
type SessionRecord struct {
	ID         string         `json:"id" yaml:"id"`
	StartedAt  time.Time      `json:"started_at" yaml:"started_at"`
	EndedAt    time.Time      `json:"ended_at" yaml:"ended_at"`
	Passage    string         `json:"passage" yaml:"passage"`
	Reason     FinishReason   `json:"reason" yaml:"reason"`
	Source     string         `json:"source" yaml:"source"`
	Metrics    SessionMetrics `json:"metrics" yaml:"metrics"`
	Score      int            `json:"score" yaml:"score"`
	DurationMs int64          `json:"duration_ms" yaml:"duration_ms"`
}
