package stats

import (
	"context"

	"pomoquest/internal/model"
	"pomoquest/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Progress model.UserProgress
	Days     []model.DailyStats
	Sessions []model.SessionRecord
	Summary  Summary
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	progress, err := st.LoadProgress(ctx)
	if err != nil {
		return Report{}, err
	}
	days, err := st.DailyStatsSince(ctx, cfg.Since)
	if err != nil {
		return Report{}, err
	}
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Progress: progress,
		Days:     days,
		Sessions: sessions,
		Summary:  Summarize(days),
	}, nil
}
