package server

import (
	"errors"
	"sync"
	"time"

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/stress"
)

// ErrSessionNotFound is returned for unknown or evicted session handles.
var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	ctrl        *stress.Controller
	unsubscribe func()
}

// Registry holds the live controllers of API sessions keyed by session id.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]*entry{}}
}

// Put stores ctrl under id.
func (r *Registry) Put(id string, ctrl *stress.Controller, unsubscribe func()) {
	r.mu.Lock()
	r.entries[id] = &entry{ctrl: ctrl, unsubscribe: unsubscribe}
	r.mu.Unlock()
}

// Get returns the controller stored under id.
func (r *Registry) Get(id string) (*stress.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.ctrl, nil
}

// Remove drops id and returns its controller.
func (r *Registry) Remove(id string) (*stress.Controller, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.ctrl, nil
}

// Len returns the number of held sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts sessions that finished more than retention before now and
// returns how many were removed.
func (r *Registry) Sweep(now time.Time, retention time.Duration) int {
	r.mu.Lock()
	var evicted []*entry
	for id, e := range r.entries {
		snap := e.ctrl.Snapshot()
		if snap.Phase != model.PhaseFinished || snap.EndedAt == nil {
			continue
		}
		if now.Sub(*snap.EndedAt) >= retention {
			delete(r.entries, id)
			evicted = append(evicted, e)
		}
	}
	r.mu.Unlock()

	for _, e := range evicted {
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
	}
	return len(evicted)
}

// Close stops every held session without finalizing it.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = map[string]*entry{}
	r.mu.Unlock()
	for _, e := range entries {
		e.ctrl.Reset()
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
	}
}
