package stats

import (
	"testing"
	"time"

	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/store"
)

func TestSelectWeakAreas(t *testing.T) {
	rec := model.NewAnalyticsRecord()
	rec.WeakestCategories[model.SectionRW] = map[string]int{"Vocabulary": 2, "Main Idea": 5, "Inference": 1, "Grammar": 3}
	rec.WeakestCategories[model.SectionMath] = map[string]int{"Algebra": 1}

	rows := SelectWeakAreas(rec, WeakAreaCount)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0].Category != "Main Idea" || rows[2].Category != "Vocabulary" {
		t.Fatalf("unexpected order: %+v", rows)
	}
	if rows[3].Section != model.SectionMath || rows[3].Incorrect != 1 {
		t.Fatalf("unexpected math row: %+v", rows[3])
	}
}

func TestTopAttempts(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	attempts := []store.AttemptSummary{
		{ID: "low", FinishedAt: base, RW: model.SectionScore{Correct: 1, Total: 4}, Math: model.SectionScore{Correct: 1, Total: 4}},
		{ID: "high", FinishedAt: base.Add(time.Hour), RW: model.SectionScore{Correct: 4, Total: 4}, Math: model.SectionScore{Correct: 3, Total: 4}},
		{ID: "mid", FinishedAt: base.Add(2 * time.Hour), RW: model.SectionScore{Correct: 2, Total: 4}, Math: model.SectionScore{Correct: 2, Total: 4}},
	}
	top := TopAttempts(attempts, 2)
	if len(top) != 2 || top[0].ID != "high" || top[1].ID != "mid" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if TopAttempts(nil, 3) != nil {
		t.Fatalf("expected nil for empty input")
	}
}
