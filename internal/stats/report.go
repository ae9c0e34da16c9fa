package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Record   model.AnalyticsRecord
	Attempts []store.AttemptSummary
	// History is the record's history from cfg.Since on, limited to the last
	// cfg.Last entries.
	History []model.HistoryEntry
}

// Source is the subset of the store a report reads from.
type Source interface {
	LoadAnalytics(ctx context.Context) (model.AnalyticsRecord, error)
	ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]store.AttemptSummary, error)
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st Source, cfg model.StatsConfig) (Report, error) {
	rec, err := st.LoadAnalytics(ctx)
	if err != nil {
		return Report{}, err
	}
	attempts, err := st.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Record:   rec,
		Attempts: attempts,
		History:  RecentHistory(HistorySince(rec.History, cfg.Since), cfg.Last),
	}, nil
}

// Render writes the full plain-text report.
func Render(w io.Writer, r Report, window int) error {
	if err := RenderSummary(w, r.Record); err != nil {
		return err
	}
	if err := RenderWeakAreas(w, r.Record, WeakAreaCount); err != nil {
		return err
	}
	if err := RenderHistory(w, r.History, HistoryCount); err != nil {
		return err
	}
	if err := RenderTopAttempts(w, r.Attempts, HistoryCount); err != nil {
		return err
	}
	return RenderCurves(w, r.History, window)
}

// Display sizes used by the stats views.
const (
	WeakAreaCount = 3
	HistoryCount  = 5
)
