package stress

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/stresstype/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

const shortPassage = "The gentle waves lapped against the shore"

func TestControllerEndToEnd(t *testing.T) {
	clock := newFakeClock()
	c := NewController(Fixed(shortPassage), WithClock(clock.Now))

	session, ok := c.Start()
	if !ok || session.Phase != model.PhaseRunning {
		t.Fatalf("expected running session, got %+v", session)
	}
	start := session.StartedAt

	runes := []rune(shortPassage)
	for i := range runes {
		clock.Set(start.Add(time.Duration(i+1) * 300 * time.Millisecond))
		if !c.RecordInput(string(runes[:i+1])) {
			t.Fatalf("input %d not recorded", i)
		}
	}
	clock.Set(start.Add(15 * time.Second))

	res, applied := c.Finish(model.ReasonManual)
	if !applied {
		t.Fatalf("expected finish to apply")
	}
	want := model.SessionMetrics{WordsPerMinute: 28, AccuracyPercent: 100}
	if res.Metrics != want {
		t.Fatalf("expected %+v, got %+v", want, res.Metrics)
	}
	if res.Score != 45 {
		t.Fatalf("expected score 45, got %d", res.Score)
	}

	snap := c.Snapshot()
	if snap.Phase != model.PhaseFinished || snap.EndedAt == nil || snap.Reason != model.ReasonManual {
		t.Fatalf("unexpected final snapshot: %+v", snap)
	}
	if len(snap.Events) != len(runes) {
		t.Fatalf("expected %d events, got %d", len(runes), len(snap.Events))
	}
}

func TestControllerFinishIdempotent(t *testing.T) {
	clock := newFakeClock()
	c := NewController(Fixed(shortPassage), WithClock(clock.Now))
	c.Start()
	clock.Advance(time.Second)
	c.RecordInput("The")
	clock.Advance(10 * time.Second)

	first, ok := c.Finish(model.ReasonManual)
	if !ok {
		t.Fatalf("expected first finish to apply")
	}
	clock.Advance(30 * time.Second)
	second, ok := c.Finish(model.ReasonTimeout)
	if ok {
		t.Fatalf("expected second finish to be a no-op")
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
	if c.Snapshot().Reason != model.ReasonManual {
		t.Fatalf("expected reason to stay manual")
	}
}

func TestControllerInvalidTransitionsAreNoops(t *testing.T) {
	c := NewController(Fixed(shortPassage))
	if c.RecordInput("abc") {
		t.Fatalf("expected input while idle to be ignored")
	}
	if _, ok := c.Finish(model.ReasonManual); ok {
		t.Fatalf("expected finish while idle to be ignored")
	}
	snap := c.Snapshot()
	if snap.Phase != model.PhaseIdle || snap.ID != "" || len(snap.Events) != 0 {
		t.Fatalf("expected untouched idle state, got %+v", snap)
	}

	first, _ := c.Start()
	second, ok := c.Start()
	if ok || second.ID != first.ID {
		t.Fatalf("expected start while running to be ignored")
	}

	c.Finish(model.ReasonManual)
	if c.RecordInput("late") {
		t.Fatalf("expected input after finish to be ignored")
	}
	if _, ok := c.Start(); ok {
		t.Fatalf("expected start from finished to be ignored")
	}
}

func TestControllerResetStartsFresh(t *testing.T) {
	c := NewController(Fixed(shortPassage))
	first, _ := c.Start()
	c.RecordInput("The gentle")
	c.Reset()
	if c.Phase() != model.PhaseIdle {
		t.Fatalf("expected idle after reset")
	}
	second, ok := c.Start()
	if !ok || second.ID == first.ID {
		t.Fatalf("expected a brand-new session")
	}
	if len(second.Events) != 0 || second.FinalText != "" {
		t.Fatalf("expected a cleared buffer, got %+v", second)
	}
}

func TestControllerTimeoutFinishesOnce(t *testing.T) {
	c := NewController(Fixed(shortPassage), WithDuration(20*time.Millisecond))

	var finished atomic.Int32
	done := make(chan Event, 4)
	c.Subscribe(func(ev Event) {
		if ev.Kind == EventFinished {
			finished.Add(1)
			done <- ev
		}
	})

	c.Start()
	c.RecordInput("The")

	var ev Event
	select {
	case ev = <-done:
	case <-time.After(time.Second):
		t.Fatal("expected timeout to finish the session")
	}
	if ev.Session.Reason != model.ReasonTimeout {
		t.Fatalf("expected timeout reason, got %s", ev.Session.Reason)
	}
	if _, ok := c.Finish(model.ReasonManual); ok {
		t.Fatalf("expected manual finish after timeout to be a no-op")
	}
	time.Sleep(30 * time.Millisecond)
	if finished.Load() != 1 {
		t.Fatalf("expected exactly one finalization, got %d", finished.Load())
	}
	if c.Remaining() != 0 {
		t.Fatalf("expected no time remaining after finish")
	}
}

func TestControllerManualFinishCancelsTimer(t *testing.T) {
	c := NewController(Fixed(shortPassage), WithDuration(30*time.Millisecond))
	var finished atomic.Int32
	c.Subscribe(func(ev Event) {
		if ev.Kind == EventFinished {
			finished.Add(1)
		}
	})
	c.Start()
	if _, ok := c.Finish(model.ReasonManual); !ok {
		t.Fatalf("expected manual finish to apply")
	}
	time.Sleep(80 * time.Millisecond)
	if finished.Load() != 1 {
		t.Fatalf("expected one finalization, got %d", finished.Load())
	}
	if c.Snapshot().Reason != model.ReasonManual {
		t.Fatalf("expected manual reason")
	}
}

func TestControllerStaleTimerIgnoredAfterReset(t *testing.T) {
	c := NewController(Fixed(shortPassage), WithDuration(20*time.Millisecond))
	c.Start()
	c.Reset()
	c2, _ := c.Start()
	time.Sleep(5 * time.Millisecond)
	snap := c.Snapshot()
	if snap.ID != c2.ID || snap.Phase != model.PhaseRunning {
		t.Fatalf("expected second session to still run, got %+v", snap)
	}
}

func TestControllerConcurrentFinish(t *testing.T) {
	c := NewController(Fixed(shortPassage))
	c.Start()
	c.RecordInput("The gentle")

	var applied atomic.Int32
	var wg sync.WaitGroup
	results := make([]model.Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, ok := c.Finish(model.ReasonManual)
			if ok {
				applied.Add(1)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()
	if applied.Load() != 1 {
		t.Fatalf("expected exactly one applied finish, got %d", applied.Load())
	}
	for _, r := range results[1:] {
		if r != results[0] {
			t.Fatalf("expected identical results across callers")
		}
	}
}

func TestControllerRemainingFromDeadline(t *testing.T) {
	clock := newFakeClock()
	c := NewController(Fixed(shortPassage), WithClock(clock.Now))
	if c.Remaining() != DefaultDuration {
		t.Fatalf("expected full budget while idle")
	}
	c.Start()
	clock.Advance(15 * time.Second)
	if got := c.Remaining(); got != 45*time.Second {
		t.Fatalf("expected 45s remaining, got %s", got)
	}
	clock.Advance(time.Minute)
	if got := c.Remaining(); got != 0 {
		t.Fatalf("expected remaining to floor at zero, got %s", got)
	}
}

func TestControllerLiveCounters(t *testing.T) {
	clock := newFakeClock()
	c := NewController(Fixed(shortPassage), WithClock(clock.Now))
	c.Start()
	c.RecordInput("Th")
	clock.Advance(3 * time.Second)
	c.RecordInput("T")
	corrections, hesitations := c.Counters()
	if corrections != 1 || hesitations != 1 {
		t.Fatalf("expected 1/1, got %d/%d", corrections, hesitations)
	}
}
