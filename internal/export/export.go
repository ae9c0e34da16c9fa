// Package export writes completed test results to a file.
package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/satprep/internal/fsutil"
	"github.com/verte-zerg/satprep/internal/model"
)

// Section is one section of the exported payload.
type Section struct {
	Score           int                    `json:"score"`
	TotalQuestions  int                    `json:"total_questions"`
	DetailedAnswers []model.DetailedAnswer `json:"detailed_answers"`
}

// Payload is the exported results document.
type Payload struct {
	Timestamp      string  `json:"timestamp"`
	AttemptID      string  `json:"attempt_id,omitempty"`
	ReadingWriting Section `json:"reading_writing_section"`
	Math           Section `json:"math_section"`
}

// Error reports a failed export and the path it targeted.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to export results to %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Build converts results into the export payload.
func Build(results model.Results) Payload {
	finished := results.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	return Payload{
		Timestamp:      finished.Format(time.RFC3339),
		AttemptID:      results.AttemptID,
		ReadingWriting: buildSection(results, model.SectionRW),
		Math:           buildSection(results, model.SectionMath),
	}
}

func buildSection(results model.Results, sec model.Section) Section {
	answers := results.Answers[sec]
	if answers == nil {
		answers = []model.DetailedAnswer{}
	}
	score := 0
	for _, a := range answers {
		if a.IsCorrect {
			score++
		}
	}
	total := len(answers)
	if s, ok := results.Scores[sec]; ok && total == 0 {
		score, total = s.Correct, s.Total
	}
	return Section{Score: score, TotalQuestions: total, DetailedAnswers: answers}
}

// Write saves the payload to path. A .xlsx extension produces a workbook;
// anything else is written as indented JSON.
func Write(path string, payload Payload) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		data, err = workbook(payload)
	} else {
		data, err = json.MarshalIndent(payload, "", "  ")
	}
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}
