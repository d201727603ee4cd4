package server

import (
	"time"

	"github.com/verte-zerg/stresstype/internal/model"
)

// EventVersion is bumped when a stream payload changes shape.
const EventVersion = 1

// Event is the envelope shared by every stream message.
type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

// ConnectionEvent greets a new stream client.
type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
	Active    int  `json:"active_sessions"`
}

// SessionStartedEvent is sent when an API session starts.
type SessionStartedEvent struct {
	Event
	SessionID     string `json:"session_id"`
	ReferenceText string `json:"reference_text"`
	Deadline      string `json:"deadline"`
}

// SessionFinishedEvent is sent once per finalized session.
type SessionFinishedEvent struct {
	Event
	SessionID string               `json:"session_id"`
	Reason    model.FinishReason   `json:"reason"`
	Metrics   model.SessionMetrics `json:"metrics"`
	Score     int                  `json:"score"`
	Level     string               `json:"level"`
}

// SessionDiscardedEvent is sent when a session is reset before or after finishing.
type SessionDiscardedEvent struct {
	Event
	SessionID string `json:"session_id"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
