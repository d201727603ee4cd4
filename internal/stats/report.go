package stats

import (
	"context"

	"github.com/verte-zerg/stresstype/internal/model"
	"github.com/verte-zerg/stresstype/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Sessions      []model.SessionRecord
	Window        []model.SessionRecord
	Summary       Summary
	WindowSummary Summary
	Factors       []FactorTotal
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st store.Store, cfg model.HistoryConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	window := lastSessions(sessions, cfg.CurveWindow)
	return Report{
		Sessions:      sessions,
		Window:        window,
		Summary:       Summarize(sessions),
		WindowSummary: Summarize(window),
		Factors:       FactorTotals(sessions),
	}, nil
}

func lastSessions(sessions []model.SessionRecord, window int) []model.SessionRecord {
	if window <= 0 || len(sessions) <= window {
		return sessions
	}
	return sessions[len(sessions)-window:]
}
