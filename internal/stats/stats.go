// Package stats contains history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/stress"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a set of session records.
type Summary struct {
	Sessions     int                  `json:"sessions" yaml:"sessions"`
	AvgScore     float64              `json:"avg_score" yaml:"avg_score"`
	MinScore     int                  `json:"min_score" yaml:"min_score"`
	MaxScore     int                  `json:"max_score" yaml:"max_score"`
	AvgWPM       float64              `json:"avg_wpm" yaml:"avg_wpm"`
	AvgAccuracy  float64              `json:"avg_accuracy" yaml:"avg_accuracy"`
	Timeouts     int                  `json:"timeouts" yaml:"timeouts"`
	LevelCounts  map[stress.Level]int `json:"level_counts" yaml:"level_counts"`
	LastScore    int                  `json:"last_score" yaml:"last_score"`
	HasLastScore bool                 `json:"-" yaml:"-"`
}

// Summarize reduces records to a Summary. Records are expected oldest first.
func Summarize(records []model.SessionRecord) Summary {
	sum := Summary{LevelCounts: map[stress.Level]int{}}
	if len(records) == 0 {
		return sum
	}
	sum.Sessions = len(records)
	sum.MinScore = records[0].Score
	sum.MaxScore = records[0].Score
	var totalScore, totalWPM, totalAcc int
	for _, r := range records {
		totalScore += r.Score
		totalWPM += r.Metrics.WordsPerMinute
		totalAcc += r.Metrics.AccuracyPercent
		if r.Score < sum.MinScore {
			sum.MinScore = r.Score
		}
		if r.Score > sum.MaxScore {
			sum.MaxScore = r.Score
		}
		if r.Reason == model.ReasonTimeout {
			sum.Timeouts++
		}
		sum.LevelCounts[stress.LevelFor(r.Score)]++
	}
	n := float64(len(records))
	sum.AvgScore = float64(totalScore) / n
	sum.AvgWPM = float64(totalWPM) / n
	sum.AvgAccuracy = float64(totalAcc) / n
	sum.LastScore = records[len(records)-1].Score
	sum.HasLastScore = true
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := seriesMinMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// ScoreSeries extracts scores in record order.
func ScoreSeries(records []model.SessionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.Score)
	}
	return out
}

// WPMSeries extracts words per minute in record order.
func WPMSeries(records []model.SessionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.Metrics.WordsPerMinute)
	}
	return out
}

// AccuracySeries extracts accuracy percentages in record order.
func AccuracySeries(records []model.SessionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.Metrics.AccuracyPercent)
	}
	return out
}

// RenderSummary prints a summary block for records.
func RenderSummary(w io.Writer, records []model.SessionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(records)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d (%d timed out)", sum.Sessions, sum.Timeouts),
		fmt.Sprintf("Avg Score: %.1f", sum.AvgScore),
		fmt.Sprintf("Score Range: %d-%d", sum.MinScore, sum.MaxScore),
		fmt.Sprintf("Last Score: %d (%s)", sum.LastScore, stress.GuidanceFor(sum.LastScore).Label),
		fmt.Sprintf("Avg WPM: %.1f", sum.AvgWPM),
		fmt.Sprintf("Avg Accuracy: %.1f%%", sum.AvgAccuracy),
	}
	levels := make([]string, 0, len(stress.Levels))
	for _, lvl := range stress.Levels {
		levels = append(levels, fmt.Sprintf("%s=%d", lvl, sum.LevelCounts[lvl]))
	}
	lines = append(lines, "Levels: "+strings.Join(levels, " "), "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints score and speed curves.
func RenderCurves(w io.Writer, records []model.SessionRecord, window int) error {
	return RenderCurvesWithSize(w, records, window, 0, defaultPlotHeight, false)
}

// RenderCurvesWithSize prints score and speed curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, records []model.SessionRecord, window, totalWidth, height int, useColor bool) error {
	if len(records) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	if err := PlotSeriesWithColor(w, "Stress Score", []Series{
		{Name: "Score", Values: MovingAverage(ScoreSeries(records), window)},
	}, width, height, useColor); err != nil {
		return err
	}
	return PlotSeriesWithColor(w, "Speed & Accuracy", []Series{
		{Name: "WPM", Values: MovingAverage(WPMSeries(records), window)},
		{Name: "Accuracy", Values: MovingAverage(AccuracySeries(records), window)},
	}, width, height, useColor)
}

// RenderSessionTable prints one row per record, newest first.
func RenderSessionTable(w io.Writer, records []model.SessionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	lines := formatTable(SessionTableHeaders, SessionTableRows(records), map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// SessionTableHeaders are the column titles of the session table.
var SessionTableHeaders = []string{"Ended", "Source", "Score", "WPM", "Accuracy", "Corr", "Hes", "Level", "Reason"}

// SessionTableRows formats records newest first.
func SessionTableRows(records []model.SessionRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		rows = append(rows, []string{
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.Source,
			fmt.Sprintf("%d", r.Score),
			fmt.Sprintf("%d", r.Metrics.WordsPerMinute),
			fmt.Sprintf("%d%%", r.Metrics.AccuracyPercent),
			fmt.Sprintf("%d", r.Metrics.CorrectionCount),
			fmt.Sprintf("%d", r.Metrics.HesitationCount),
			stress.GuidanceFor(r.Score).Label,
			string(r.Reason),
		})
	}
	return rows
}
