package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/stress"
)

// Hub fans stream messages out to subscribers. Slow subscribers drop messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
	logger  *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[chan []byte]struct{}), logger: logger}
}

// Subscribe registers a new buffered client channel.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every subscriber without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// BroadcastSessionStarted announces a started session.
func (h *Hub) BroadcastSessionStarted(s model.TypingSession, deadline time.Time) {
	h.broadcastEvent(SessionStartedEvent{
		Event:         newEvent("session_started", s.StartedAt),
		SessionID:     s.ID,
		ReferenceText: s.ReferenceText,
		Deadline:      deadline.UTC().Format(time.RFC3339Nano),
	})
}

// BroadcastSessionFinished announces a finalized session.
func (h *Hub) BroadcastSessionFinished(s model.TypingSession) {
	if s.Metrics == nil || s.Score == nil {
		return
	}
	var endedAt time.Time
	if s.EndedAt != nil {
		endedAt = *s.EndedAt
	}
	h.broadcastEvent(SessionFinishedEvent{
		Event:     newEvent("session_finished", endedAt),
		SessionID: s.ID,
		Reason:    s.Reason,
		Metrics:   *s.Metrics,
		Score:     *s.Score,
		Level:     string(stress.LevelFor(*s.Score)),
	})
}

// BroadcastSessionDiscarded announces a reset session.
func (h *Hub) BroadcastSessionDiscarded(sessionID string) {
	h.broadcastEvent(SessionDiscardedEvent{
		Event:     newEvent("session_discarded", time.Now()),
		SessionID: sessionID,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event marshal failed", "err", err)
		return
	}
	h.Broadcast(payload)
}
