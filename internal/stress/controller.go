package stress

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/stresstype/internal/model"
)

// Defaults for a check session.
const (
	DefaultDuration   = 60 * time.Second
	DefaultHesitation = 2000 * time.Millisecond
)

// EventKind names a controller state change.
type EventKind string

// Controller events.
const (
	EventStarted  EventKind = "started"
	EventInput    EventKind = "input"
	EventFinished EventKind = "finished"
	EventReset    EventKind = "reset"
)

// Event is delivered to subscribers after every applied transition.
type Event struct {
	Kind        EventKind
	Session     model.TypingSession
	Corrections int
	Hesitations int
}

// PassageSource yields the reference passage for the next session.
type PassageSource func() string

// Fixed returns a source that always yields text.
func Fixed(text string) PassageSource {
	return func() string { return text }
}

// Option configures a Controller.
type Option func(*Controller)

// WithDuration sets the session budget.
func WithDuration(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithHesitation sets the pause length that counts as a hesitation.
func WithHesitation(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.hesitation = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDs replaces the session id generator.
func WithIDs(newID func() string) Option {
	return func(c *Controller) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// Controller owns one typing session and moves it through
// idle -> running -> finished. Misuse of the state machine is a silent no-op.
type Controller struct {
	source     PassageSource
	duration   time.Duration
	hesitation time.Duration
	now        func() time.Time
	newID      func() string

	mu      sync.Mutex
	next    string
	session *model.TypingSession
	capture *Capture
	timer   *Timer
	result  *model.Result
	subs    map[int]func(Event)
	subSeq  int
}

// NewController returns an idle controller drawing passages from source.
func NewController(source PassageSource, opts ...Option) *Controller {
	c := &Controller{
		source:     source,
		duration:   DefaultDuration,
		hesitation: DefaultHesitation,
		now:        time.Now,
		newID:      uuid.NewString,
		subs:       map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.next = c.pick()
	return c
}

func (c *Controller) pick() string {
	if c.source == nil {
		return ""
	}
	return c.source()
}

// Subscribe registers fn for state changes and returns a func that removes it.
// fn is called without the controller lock held.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subSeq++
	id := c.subSeq
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Duration returns the session budget.
func (c *Controller) Duration() time.Duration {
	return c.duration
}

// ReferenceText returns the passage of the current session, or the passage
// the next session will use when idle.
func (c *Controller) ReferenceText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session.ReferenceText
	}
	return c.next
}

// Phase returns the current phase.
func (c *Controller) Phase() model.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return model.PhaseIdle
	}
	return c.session.Phase
}

// Start begins a new session. It only applies from idle.
func (c *Controller) Start() (model.TypingSession, bool) {
	c.mu.Lock()
	if c.session != nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, false
	}
	startedAt := c.now()
	id := c.newID()
	c.session = &model.TypingSession{
		ID:            id,
		ReferenceText: c.next,
		StartedAt:     startedAt,
		Phase:         model.PhaseRunning,
	}
	c.capture = NewCapture(c.hesitation)
	c.result = nil
	c.timer = NewTimer(c.duration, func() {
		c.finish(id, model.ReasonTimeout)
	})
	c.timer.Start(startedAt)
	ev := c.eventLocked(EventStarted)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, ev)
	return ev.Session, true
}

// RecordInput records the new buffer contents. It only applies while running
// and when the buffer actually changed.
func (c *Controller) RecordInput(text string) bool {
	c.mu.Lock()
	if c.session == nil || c.session.Phase != model.PhaseRunning {
		c.mu.Unlock()
		return false
	}
	ev, ok := c.capture.Record(text, c.now())
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.session.Events = append(c.session.Events, ev)
	c.session.FinalText = c.capture.Text()
	out := c.eventLocked(EventInput)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, out)
	return true
}

// Finish finalizes the running session. A second call, whether from the timer
// or a user, returns the stored result and reports false.
func (c *Controller) Finish(reason model.FinishReason) (model.Result, bool) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return model.Result{}, false
	}
	id := c.session.ID
	c.mu.Unlock()
	return c.finish(id, reason)
}

func (c *Controller) finish(id string, reason model.FinishReason) (model.Result, bool) {
	c.mu.Lock()
	if c.session == nil || c.session.ID != id {
		// Stale timer from a discarded session.
		c.mu.Unlock()
		return model.Result{}, false
	}
	if c.session.Phase == model.PhaseFinished {
		res := *c.result
		c.mu.Unlock()
		return res, false
	}
	if !reason.Valid() {
		reason = model.ReasonManual
	}
	endedAt := c.now()
	if endedAt.Before(c.session.StartedAt) {
		endedAt = c.session.StartedAt
	}
	c.session.EndedAt = &endedAt
	c.session.Reason = reason
	metrics := Extract(*c.session, c.hesitation)
	score := Score(metrics)
	c.session.Metrics = &metrics
	c.session.Score = &score
	c.session.Phase = model.PhaseFinished
	c.timer.Stop()
	c.result = &model.Result{Metrics: metrics, Score: score}
	res := *c.result
	ev := c.eventLocked(EventFinished)
	subs := c.subscribersLocked()
	c.mu.Unlock()

	notify(subs, ev)
	return res, true
}

// Reset discards the current session, if any, and returns to idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	var ev Event
	hadSession := c.session != nil
	if hadSession {
		ev = c.eventLocked(EventReset)
	}
	c.session = nil
	c.capture = nil
	c.timer = nil
	c.result = nil
	c.next = c.pick()
	subs := c.subscribersLocked()
	c.mu.Unlock()

	if hadSession {
		notify(subs, ev)
	}
}

// Snapshot returns a copy of the current session. When idle it returns a
// session in the idle phase carrying the next reference passage.
func (c *Controller) Snapshot() model.TypingSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Result returns the finalized result, if any.
func (c *Controller) Result() (model.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return model.Result{}, false
	}
	return *c.result, true
}

// Counters returns the live correction and hesitation counts.
func (c *Controller) Counters() (corrections, hesitations int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return 0, 0
	}
	return c.capture.Corrections(), c.capture.Hesitations()
}

// Remaining returns the time left in the running session.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.session == nil:
		return c.duration
	case c.session.Phase == model.PhaseFinished:
		return 0
	default:
		return c.timer.Remaining(c.now())
	}
}

// Deadline returns when the running session times out.
func (c *Controller) Deadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return time.Time{}
	}
	return c.timer.Deadline()
}

func (c *Controller) snapshotLocked() model.TypingSession {
	if c.session == nil {
		return model.TypingSession{ReferenceText: c.next, Phase: model.PhaseIdle}
	}
	s := *c.session
	s.Events = append([]model.KeystrokeEvent(nil), c.session.Events...)
	if c.session.EndedAt != nil {
		t := *c.session.EndedAt
		s.EndedAt = &t
	}
	if c.session.Metrics != nil {
		m := *c.session.Metrics
		s.Metrics = &m
	}
	if c.session.Score != nil {
		v := *c.session.Score
		s.Score = &v
	}
	return s
}

func (c *Controller) eventLocked(kind EventKind) Event {
	ev := Event{Kind: kind, Session: c.snapshotLocked()}
	if c.capture != nil {
		ev.Corrections = c.capture.Corrections()
		ev.Hesitations = c.capture.Hesitations()
	}
	return ev
}

func (c *Controller) subscribersLocked() []func(Event) {
	out := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
