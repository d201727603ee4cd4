package stress

import (
	"math/rand"
	"testing"

	"github.com/verte-zerg/stresstype/internal/model"
)

func TestScoreRulebook(t *testing.T) {
	cases := []struct {
		name string
		m    model.SessionMetrics
		want int
	}{
		{"fast and clean", model.SessionMetrics{WordsPerMinute: 80, AccuracyPercent: 100}, 30},
		{"speed bucket 35-49", model.SessionMetrics{WordsPerMinute: 49, AccuracyPercent: 100}, 35},
		{"speed bucket 20-34", model.SessionMetrics{WordsPerMinute: 28, AccuracyPercent: 100}, 45},
		{"speed bucket under 20", model.SessionMetrics{WordsPerMinute: 19, AccuracyPercent: 100}, 55},
		{"speed boundary 50", model.SessionMetrics{WordsPerMinute: 50, AccuracyPercent: 100}, 30},
		{"corrections capped", model.SessionMetrics{WordsPerMinute: 80, AccuracyPercent: 100, CorrectionCount: 40}, 55},
		{"hesitations capped", model.SessionMetrics{WordsPerMinute: 80, AccuracyPercent: 100, HesitationCount: 9}, 50},
		{"accuracy 60-79", model.SessionMetrics{WordsPerMinute: 80, AccuracyPercent: 79}, 40},
		{"accuracy under 60", model.SessionMetrics{WordsPerMinute: 80, AccuracyPercent: 59}, 45},
		{"accuracy boundary 80", model.SessionMetrics{WordsPerMinute: 80, AccuracyPercent: 80}, 30},
		{"everything bad clamps", model.SessionMetrics{CorrectionCount: 100, HesitationCount: 50}, MaxScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.m); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestScoreBounded(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		m := model.SessionMetrics{
			WordsPerMinute:  rnd.Intn(201),
			CorrectionCount: rnd.Intn(101),
			HesitationCount: rnd.Intn(51),
			AccuracyPercent: rnd.Intn(101),
		}
		s := Score(m)
		if s < MinScore || s > MaxScore {
			t.Fatalf("score %d out of bounds for %+v", s, m)
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		m := model.SessionMetrics{
			WordsPerMinute:  rnd.Intn(201),
			CorrectionCount: rnd.Intn(101),
			HesitationCount: rnd.Intn(51),
			AccuracyPercent: rnd.Intn(101),
		}
		base := Score(m)

		slower := m
		if slower.WordsPerMinute > 0 {
			slower.WordsPerMinute--
		}
		if Score(slower) < base {
			t.Fatalf("lower wpm decreased score: %+v", m)
		}

		moreCorrections := m
		moreCorrections.CorrectionCount++
		if Score(moreCorrections) < base {
			t.Fatalf("more corrections decreased score: %+v", m)
		}

		moreHesitations := m
		moreHesitations.HesitationCount++
		if Score(moreHesitations) < base {
			t.Fatalf("more hesitations decreased score: %+v", m)
		}

		lessAccurate := m
		if lessAccurate.AccuracyPercent > 0 {
			lessAccurate.AccuracyPercent--
		}
		if Score(lessAccurate) < base {
			t.Fatalf("lower accuracy decreased score: %+v", m)
		}
	}
}

func TestScoreCrossingSpeedThreshold(t *testing.T) {
	fast := Score(model.SessionMetrics{WordsPerMinute: 21, AccuracyPercent: 100})
	slow := Score(model.SessionMetrics{WordsPerMinute: 19, AccuracyPercent: 100})
	if slow <= fast {
		t.Fatalf("expected 19 wpm (%d) to score above 21 wpm (%d)", slow, fast)
	}
}

func TestExplainSumsToRaw(t *testing.T) {
	m := model.SessionMetrics{WordsPerMinute: 30, AccuracyPercent: 70, CorrectionCount: 3, HesitationCount: 1}
	b := Explain(m)
	if b.Base+b.Speed+b.Corrections+b.Hesitations+b.Accuracy != b.Raw {
		t.Fatalf("terms do not sum to raw: %+v", b)
	}
	if b.Score != 66 || b.Speed != 15 || b.Corrections != 6 || b.Hesitations != 5 || b.Accuracy != 10 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
}

func TestGuidanceFor(t *testing.T) {
	cases := []struct {
		score     int
		level     Level
		recommend bool
	}{
		{10, LevelLow, false},
		{30, LevelLow, false},
		{31, LevelModerate, false},
		{50, LevelModerate, false},
		{51, LevelElevated, true},
		{70, LevelElevated, true},
		{71, LevelHigh, true},
		{95, LevelHigh, true},
	}
	for _, tc := range cases {
		g := GuidanceFor(tc.score)
		if g.Level != tc.level {
			t.Fatalf("score %d: expected level %s, got %s", tc.score, tc.level, g.Level)
		}
		if (len(g.Recommendations) > 0) != tc.recommend {
			t.Fatalf("score %d: unexpected recommendations %v", tc.score, g.Recommendations)
		}
		if g.Title == "" || g.Message == "" {
			t.Fatalf("score %d: missing guidance text", tc.score)
		}
	}
}
