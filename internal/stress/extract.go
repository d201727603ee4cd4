package stress

import (
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/stresstype/internal/model"
)

// minElapsedMinutes keeps a same-millisecond finish from dividing by zero.
const minElapsedMinutes = 1.0 / 60.0

// Extract reduces a finished session to its metrics. It reads no clock: the
// elapsed time comes from the session's StartedAt and EndedAt.
func Extract(session model.TypingSession, hesitation time.Duration) model.SessionMetrics {
	var elapsed time.Duration
	if session.EndedAt != nil {
		elapsed = session.EndedAt.Sub(session.StartedAt)
	}
	minutes := elapsed.Minutes()
	if minutes < minElapsedMinutes {
		minutes = minElapsedMinutes
	}

	typed := strings.Fields(session.FinalText)
	reference := strings.Fields(session.ReferenceText)

	matched := 0
	for i, word := range typed {
		if i >= len(reference) {
			break
		}
		if strings.EqualFold(word, reference[i]) {
			matched++
		}
	}
	den := len(typed)
	if den < 1 {
		den = 1
	}

	var m model.SessionMetrics
	m.WordsPerMinute = int(math.Round(float64(len(typed)) / minutes))
	m.AccuracyPercent = int(math.Round(100 * float64(matched) / float64(den)))
	for _, ev := range session.Events {
		if ev.BufferLengthDelta < 0 {
			m.CorrectionCount++
		}
		if ev.GapFromPrevious > hesitation {
			m.HesitationCount++
		}
	}
	return m
}
