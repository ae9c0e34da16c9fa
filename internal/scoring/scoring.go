// Package scoring computes test results and folds them into analytics.
package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/verte-zerg/satprep/internal/model"
)

// Banks maps each section to its complete, unsampled question pool.
type Banks map[model.Section][]model.Question

// Score compares recorded answers against the complete banks. Answers are
// keyed by index into the complete bank; unanswered counts as incorrect.
func Score(state model.SessionState, banks Banks) map[model.Section]model.SectionScore {
	out := make(map[model.Section]model.SectionScore, len(model.Sections))
	for _, sec := range model.Sections {
		answers := state.Answers[sec]
		score := model.SectionScore{Total: len(banks[sec])}
		for i, q := range banks[sec] {
			if ans, ok := answers[i]; ok && ans == q.Answer {
				score.Correct++
			}
		}
		out[sec] = score
	}
	return out
}

// Detailed builds per-question rows for review and export.
func Detailed(state model.SessionState, banks Banks) map[model.Section][]model.DetailedAnswer {
	out := make(map[model.Section][]model.DetailedAnswer, len(model.Sections))
	for _, sec := range model.Sections {
		answers := state.Answers[sec]
		rows := make([]model.DetailedAnswer, 0, len(banks[sec]))
		for i, q := range banks[sec] {
			user := model.Unanswered
			correct := false
			if ans, ok := answers[i]; ok {
				user = ans.String()
				correct = ans == q.Answer
			}
			rows = append(rows, model.DetailedAnswer{
				QuestionID:    q.ID,
				QuestionText:  q.Text,
				Options:       append([]string(nil), q.Options...),
				UserAnswer:    user,
				CorrectAnswer: q.Answer.String(),
				IsCorrect:     correct,
				Category:      q.Category,
			})
		}
		out[sec] = rows
	}
	return out
}

// UpdateAnalytics folds one completed test into rec.
func UpdateAnalytics(rec *model.AnalyticsRecord, state model.SessionState, banks Banks, now time.Time) {
	ensure(rec)
	scores := Score(state, banks)
	rec.TestsTaken++
	n := float64(rec.TestsTaken)
	pcts := make(map[model.Section]float64, len(model.Sections))
	for _, sec := range model.Sections {
		pct := scores[sec].Percentage()
		pcts[sec] = pct
		rec.AverageScores[sec] = (rec.AverageScores[sec]*(n-1) + pct) / n
		if pct > rec.BestScores[sec] {
			rec.BestScores[sec] = pct
		}
		answers := state.Answers[sec]
		for i, q := range banks[sec] {
			if ans, ok := answers[i]; ok && ans == q.Answer {
				continue
			}
			rec.WeakestCategories[sec][q.Category]++
		}
	}
	rec.History = append(rec.History, model.HistoryEntry{
		Date: now.Format("2006-01-02"),
		RW:   round1(pcts[model.SectionRW]),
		Math: round1(pcts[model.SectionMath]),
	})
}

// TopWeak returns the categories with the most incorrect answers.
func TopWeak(rec model.AnalyticsRecord, sec model.Section, n int) []model.CategoryCount {
	counts := rec.WeakestCategories[sec]
	out := make([]model.CategoryCount, 0, len(counts))
	for cat, c := range counts {
		out = append(out, model.CategoryCount{Category: cat, Incorrect: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Incorrect == out[j].Incorrect {
			return out[i].Category < out[j].Category
		}
		return out[i].Incorrect > out[j].Incorrect
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func ensure(rec *model.AnalyticsRecord) {
	if rec.AverageScores == nil {
		rec.AverageScores = map[model.Section]float64{}
	}
	if rec.BestScores == nil {
		rec.BestScores = map[model.Section]float64{}
	}
	if rec.WeakestCategories == nil {
		rec.WeakestCategories = map[model.Section]map[string]int{}
	}
	for _, sec := range model.Sections {
		if rec.WeakestCategories[sec] == nil {
			rec.WeakestCategories[sec] = map[string]int{}
		}
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
