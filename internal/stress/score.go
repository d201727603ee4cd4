package stress

import "github.com/verte-zerg/stresstype/internal/model"

// Score bounds.
const (
	MinScore = 10
	MaxScore = 95
)

const (
	baseScore         = 30
	correctionWeight  = 2
	correctionCap     = 25
	hesitationWeight  = 5
	hesitationCap     = 20
	recommendAboveMax = 50
)

// Breakdown lists the additive terms that make up a score.
type Breakdown struct {
	Base        int `json:"base"`
	Speed       int `json:"speed"`
	Corrections int `json:"corrections"`
	Hesitations int `json:"hesitations"`
	Accuracy    int `json:"accuracy"`
	Raw         int `json:"raw"`
	Score       int `json:"score"`
}

// Score maps metrics to a stress score in [MinScore, MaxScore].
//
// This is a fixed rulebook, not a calibrated model: slower typing, more
// corrections, more hesitations and lower accuracy each add points, each
// factor is capped, and the sum is clamped. It is not a clinical measurement.
func Score(m model.SessionMetrics) int {
	return Explain(m).Score
}

// Explain returns the per-factor contributions behind Score.
func Explain(m model.SessionMetrics) Breakdown {
	b := Breakdown{Base: baseScore}

	switch {
	case m.WordsPerMinute < 20:
		b.Speed = 25
	case m.WordsPerMinute < 35:
		b.Speed = 15
	case m.WordsPerMinute < 50:
		b.Speed = 5
	}

	b.Corrections = minInt(m.CorrectionCount*correctionWeight, correctionCap)
	b.Hesitations = minInt(m.HesitationCount*hesitationWeight, hesitationCap)

	switch {
	case m.AccuracyPercent < 60:
		b.Accuracy = 15
	case m.AccuracyPercent < 80:
		b.Accuracy = 10
	}

	b.Raw = b.Base + b.Speed + b.Corrections + b.Hesitations + b.Accuracy
	b.Score = clamp(b.Raw, MinScore, MaxScore)
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
