package stress

import (
	"testing"
	"time"

	"github.com/verte-zerg/stresstype/internal/model"
)

func finishedSession(ref, final string, elapsed time.Duration, events []model.KeystrokeEvent) model.TypingSession {
	start := time.Unix(1700000000, 0)
	end := start.Add(elapsed)
	return model.TypingSession{
		ReferenceText: ref,
		StartedAt:     start,
		EndedAt:       &end,
		FinalText:     final,
		Events:        events,
		Phase:         model.PhaseFinished,
	}
}

func TestExtractWordsPerMinuteAndAccuracy(t *testing.T) {
	s := finishedSession("The gentle waves lapped", "the Gentle wave lapped extra", 30*time.Second, nil)
	m := Extract(s, DefaultHesitation)
	if m.WordsPerMinute != 10 {
		t.Fatalf("expected 10 wpm, got %d", m.WordsPerMinute)
	}
	// 3 of 5 typed words match by position.
	if m.AccuracyPercent != 60 {
		t.Fatalf("expected 60%% accuracy, got %d", m.AccuracyPercent)
	}
}

func TestExtractEmptyText(t *testing.T) {
	s := finishedSession("The gentle waves", "   ", 10*time.Second, nil)
	m := Extract(s, DefaultHesitation)
	if m.WordsPerMinute != 0 || m.AccuracyPercent != 0 {
		t.Fatalf("expected zero metrics for empty text, got %+v", m)
	}
	if m.CorrectionCount != 0 || m.HesitationCount != 0 {
		t.Fatalf("expected no corrections or hesitations, got %+v", m)
	}
}

func TestExtractZeroElapsedFloors(t *testing.T) {
	s := finishedSession("a b", "a b", 0, nil)
	m := Extract(s, DefaultHesitation)
	// Two words over the one-second floor.
	if m.WordsPerMinute != 120 {
		t.Fatalf("expected 120 wpm, got %d", m.WordsPerMinute)
	}
}

func TestExtractCountsCorrectionsAndHesitations(t *testing.T) {
	events := []model.KeystrokeEvent{
		{BufferLengthDelta: 1},
		{BufferLengthDelta: 1, GapFromPrevious: 2000 * time.Millisecond},
		{BufferLengthDelta: -1, GapFromPrevious: 2001 * time.Millisecond},
		{BufferLengthDelta: -3, GapFromPrevious: 5 * time.Second},
		{BufferLengthDelta: 2, GapFromPrevious: 100 * time.Millisecond},
	}
	s := finishedSession("x", "x", time.Minute, events)
	m := Extract(s, DefaultHesitation)
	if m.CorrectionCount != 2 {
		t.Fatalf("expected 2 corrections, got %d", m.CorrectionCount)
	}
	if m.HesitationCount != 2 {
		t.Fatalf("expected 2 hesitations (strictly over threshold), got %d", m.HesitationCount)
	}
}

func TestExtractDeterministic(t *testing.T) {
	events := []model.KeystrokeEvent{{BufferLengthDelta: 4}, {BufferLengthDelta: -1, GapFromPrevious: 3 * time.Second}}
	s := finishedSession("one two three", "one twx", 20*time.Second, events)
	first := Extract(s, DefaultHesitation)
	for i := 0; i < 10; i++ {
		if got := Extract(s, DefaultHesitation); got != first {
			t.Fatalf("extract not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestCaptureRecord(t *testing.T) {
	c := NewCapture(DefaultHesitation)
	t0 := time.Unix(0, 0)
	if _, ok := c.Record("", t0); ok {
		t.Fatalf("expected unchanged empty buffer to record nothing")
	}
	ev, ok := c.Record("ab", t0)
	if !ok || ev.BufferLengthDelta != 2 || ev.GapFromPrevious != 0 {
		t.Fatalf("unexpected first event: %+v", ev)
	}
	ev, _ = c.Record("a", t0.Add(3*time.Second))
	if ev.BufferLengthDelta != -1 || ev.GapFromPrevious != 3*time.Second {
		t.Fatalf("unexpected deletion event: %+v", ev)
	}
	// A clock step backwards is clamped.
	ev, _ = c.Record("ab", t0)
	if ev.GapFromPrevious != 0 || ev.Timestamp.Before(t0.Add(3*time.Second)) {
		t.Fatalf("expected monotonic timestamp, got %+v", ev)
	}
	if c.Corrections() != 1 || c.Hesitations() != 1 {
		t.Fatalf("unexpected counters: corrections=%d hesitations=%d", c.Corrections(), c.Hesitations())
	}
	if len(c.Events()) != 3 {
		t.Fatalf("expected 3 events, got %d", len(c.Events()))
	}
}
