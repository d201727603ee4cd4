// Package stress implements the typing-stress session state machine and its scoring.
package stress

import (
	"time"

	"github.com/verte-zerg/stresstype/internal/model"
)

// Capture records buffer changes for one running session and keeps the
// live correction and hesitation counters.
type Capture struct {
	threshold   time.Duration
	text        string
	lastAt      time.Time
	events      []model.KeystrokeEvent
	corrections int
	hesitations int
}

// NewCapture returns an empty capture using threshold to detect hesitations.
func NewCapture(threshold time.Duration) *Capture {
	return &Capture{threshold: threshold}
}

// Record appends an event for the transition from the previous buffer to text.
// An unchanged buffer is not a keystroke and records nothing.
func (c *Capture) Record(text string, at time.Time) (model.KeystrokeEvent, bool) {
	if text == c.text {
		return model.KeystrokeEvent{}, false
	}
	var gap time.Duration
	if len(c.events) > 0 {
		// Timestamps never go backwards even if the wall clock does.
		if at.Before(c.lastAt) {
			at = c.lastAt
		}
		gap = at.Sub(c.lastAt)
	}
	ev := model.KeystrokeEvent{
		Timestamp:         at,
		BufferLengthDelta: len([]rune(text)) - len([]rune(c.text)),
		GapFromPrevious:   gap,
	}
	c.events = append(c.events, ev)
	c.text = text
	c.lastAt = at
	if ev.BufferLengthDelta < 0 {
		c.corrections++
	}
	if gap > c.threshold {
		c.hesitations++
	}
	return ev, true
}

// Text returns the current buffer.
func (c *Capture) Text() string {
	return c.text
}

// Events returns a copy of the recorded events.
func (c *Capture) Events() []model.KeystrokeEvent {
	out := make([]model.KeystrokeEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Corrections returns the running count of deletions.
func (c *Capture) Corrections() int {
	return c.corrections
}

// Hesitations returns the running count of long pauses.
func (c *Capture) Hesitations() int {
	return c.hesitations
}
