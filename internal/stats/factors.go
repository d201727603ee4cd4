package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/stress"
)

// Factor names a scored term of the stress rulebook.
type Factor string

// Scored factors.
const (
	FactorSpeed       Factor = "speed"
	FactorCorrections Factor = "corrections"
	FactorHesitations Factor = "hesitations"
	FactorAccuracy    Factor = "accuracy"
)

// FactorTotal is the contribution of one factor across sessions.
type FactorTotal struct {
	Factor  Factor  `json:"factor" yaml:"factor"`
	Total   int     `json:"total" yaml:"total"`
	Average float64 `json:"average" yaml:"average"`
	// Sessions counts records where the factor added anything.
	Sessions int `json:"sessions" yaml:"sessions"`
}

// FactorTotals ranks factors by total contribution, largest first.
func FactorTotals(records []model.SessionRecord) []FactorTotal {
	totals := map[Factor]*FactorTotal{
		FactorSpeed:       {Factor: FactorSpeed},
		FactorCorrections: {Factor: FactorCorrections},
		FactorHesitations: {Factor: FactorHesitations},
		FactorAccuracy:    {Factor: FactorAccuracy},
	}
	add := func(f Factor, v int) {
		t := totals[f]
		t.Total += v
		if v > 0 {
			t.Sessions++
		}
	}
	for _, r := range records {
		b := stress.Explain(r.Metrics)
		add(FactorSpeed, b.Speed)
		add(FactorCorrections, b.Corrections)
		add(FactorHesitations, b.Hesitations)
		add(FactorAccuracy, b.Accuracy)
	}
	out := make([]FactorTotal, 0, len(totals))
	for _, t := range totals {
		if len(records) > 0 {
			t.Average = float64(t.Total) / float64(len(records))
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total == out[j].Total {
			return out[i].Factor < out[j].Factor
		}
		return out[i].Total > out[j].Total
	})
	return out
}

// RenderFactors prints the factor ranking.
func RenderFactors(w io.Writer, records []model.SessionRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Stress Factors"); err != nil {
		return err
	}
	headers := []string{"Factor", "Total", "Avg/Session", "Sessions"}
	rows := make([][]string, 0, 4)
	for _, f := range FactorTotals(records) {
		rows = append(rows, []string{
			string(f.Factor),
			fmt.Sprintf("%d", f.Total),
			fmt.Sprintf("%.1f", f.Average),
			fmt.Sprintf("%d/%d", f.Sessions, len(records)),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
