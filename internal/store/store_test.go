package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/verte-zerg/satprep/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "satprep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestLoadAnalyticsEmpty(t *testing.T) {
	st := openTestStore(t)
	rec, err := st.LoadAnalytics(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.TestsTaken != 0 || len(rec.History) != 0 {
		t.Fatalf("expected empty record, got %+v", rec)
	}
	if rec.WeakestCategories[model.SectionRW] == nil {
		t.Fatalf("expected initialized category maps")
	}
}

func TestSaveAnalyticsRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := model.NewAnalyticsRecord()
	rec.TestsTaken = 2
	rec.AverageScores[model.SectionRW] = 70
	rec.AverageScores[model.SectionMath] = 45.5
	rec.BestScores[model.SectionRW] = 80
	rec.BestScores[model.SectionMath] = 50
	rec.WeakestCategories[model.SectionRW]["Main Idea"] = 3
	rec.WeakestCategories[model.SectionMath]["Algebra"] = 1
	rec.History = []model.HistoryEntry{
		{AttemptID: "a", Date: "2026-01-02", RW: 80, Math: 41},
		{AttemptID: "b", Date: "2026-01-03", RW: 60, Math: 50},
	}
	if err := st.SaveAnalytics(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Saving twice replaces rather than appends.
	if err := st.SaveAnalytics(ctx, rec); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := st.LoadAnalytics(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, rec)
	}
}

func TestInsertAndGetAttempt(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for i, id := range []string{"first", "second"} {
		results := model.Results{
			AttemptID:  id,
			FinishedAt: time.Date(2026, 2, 1+i, 10, 0, 0, 0, time.UTC),
			Scores: map[model.Section]model.SectionScore{
				model.SectionRW:   {Correct: 1, Total: 2},
				model.SectionMath: {Correct: 0, Total: 1},
			},
			Answers: map[model.Section][]model.DetailedAnswer{
				model.SectionRW: {
					{QuestionID: "RW1", QuestionText: "t1", Options: []string{"A. x", "B. y"}, UserAnswer: "A", CorrectAnswer: "A", IsCorrect: true, Category: "Main Idea"},
					{QuestionID: "RW2", QuestionText: "t2", Options: []string{"A. x", "B. y"}, UserAnswer: model.Unanswered, CorrectAnswer: "B", Category: "Vocabulary"},
				},
				model.SectionMath: {
					{QuestionID: "M1", QuestionText: "m1", Options: []string{"A. 1", "B. 2"}, UserAnswer: "A", CorrectAnswer: "B", Category: "Algebra"},
				},
			},
		}
		if err := st.InsertAttempt(ctx, results); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	last, err := st.LastAttemptID(ctx)
	if err != nil {
		t.Fatalf("last attempt: %v", err)
	}
	if last != "second" {
		t.Fatalf("expected second, got %s", last)
	}

	got, err := st.GetAttempt(ctx, "first")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if got.Scores[model.SectionRW].Correct != 1 || got.Scores[model.SectionRW].Total != 2 {
		t.Fatalf("unexpected scores: %+v", got.Scores)
	}
	rw := got.Answers[model.SectionRW]
	if len(rw) != 2 || rw[0].QuestionID != "RW1" || !rw[0].IsCorrect || rw[1].IsCorrect {
		t.Fatalf("unexpected rw answers: %+v", rw)
	}
	if len(rw[1].Options) != 2 || rw[1].UserAnswer != model.Unanswered {
		t.Fatalf("unexpected detail row: %+v", rw[1])
	}

	list, err := st.ListAttempts(ctx, model.StatsConfig{Last: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "second" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if _, err := st.GetAttempt(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordAttemptIsAtomic(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	results := model.Results{
		AttemptID:  "only",
		FinishedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Scores: map[model.Section]model.SectionScore{
			model.SectionRW:   {Correct: 2, Total: 4},
			model.SectionMath: {Correct: 1, Total: 2},
		},
	}
	rec := model.NewAnalyticsRecord()
	rec.TestsTaken = 1
	rec.History = []model.HistoryEntry{{AttemptID: "only", Date: "2026-03-01", RW: 50, Math: 50}}
	if err := st.RecordAttempt(ctx, rec, results); err != nil {
		t.Fatalf("record: %v", err)
	}

	// A duplicate attempt id fails the insert; the record must not advance.
	next := model.NewAnalyticsRecord()
	next.TestsTaken = 2
	next.History = append(append([]model.HistoryEntry{}, rec.History...),
		model.HistoryEntry{AttemptID: "only", Date: "2026-03-02", RW: 75, Math: 0})
	if err := st.RecordAttempt(ctx, next, results); err == nil {
		t.Fatalf("expected duplicate attempt to fail")
	}
	got, err := st.LoadAnalytics(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TestsTaken != 1 || len(got.History) != 1 {
		t.Fatalf("expected first record to survive, got %+v", got)
	}
	if _, err := st.GetAttempt(ctx, got.History[0].AttemptID); err != nil {
		t.Fatalf("expected history to reference a stored attempt: %v", err)
	}
}
