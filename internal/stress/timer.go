package stress

import (
	"sync"
	"time"
)

// Timer bounds a session to a fixed duration. It fires its callback at most
// once and can be stopped before it does.
type Timer struct {
	duration time.Duration
	onExpire func()

	mu       sync.Mutex
	t        *time.Timer
	deadline time.Time
	done     bool
}

// NewTimer returns a stopped timer that will call onExpire after d once started.
func NewTimer(d time.Duration, onExpire func()) *Timer {
	return &Timer{duration: d, onExpire: onExpire}
}

// Start arms the timer with a deadline of now+duration.
func (t *Timer) Start(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.t != nil || t.done {
		return
	}
	t.deadline = now.Add(t.duration)
	t.t = time.AfterFunc(t.duration, t.fire)
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.done = true
	cb := t.onExpire
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Stop cancels a pending expiry. It reports whether the callback was prevented.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.t != nil {
		t.t.Stop()
	}
	return true
}

// Deadline returns the expiry time, or the zero time if never started.
func (t *Timer) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline
}

// Remaining returns the time left until the deadline, floored at zero.
func (t *Timer) Remaining(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadline.IsZero() {
		return t.duration
	}
	left := t.deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
