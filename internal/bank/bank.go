// Package bank loads section question banks from JSON files.
package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/verte-zerg/satprep/internal/model"
)

// Load failures. All of them are recoverable by the caller.
var (
	ErrNotFound = errors.New("question bank not found")
	ErrParse    = errors.New("question bank is not valid JSON")
	ErrEmpty    = errors.New("no valid questions in question bank")
)

// Error describes a failed load for one section.
type Error struct {
	Section model.Section
	Path    string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s question bank %s: %v", e.Section, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type fileFormat struct {
	Questions *[]json.RawMessage `json:"questions"`
}

type rawQuestion struct {
	ID       *string   `json:"id"`
	Question *string   `json:"question"`
	Options  *[]string `json:"options"`
	Answer   *string   `json:"answer"`
	Category *string   `json:"category"`
}

// Report summarizes a bank file for diagnostics.
type Report struct {
	Path       string
	Valid      int
	Dropped    int
	Categories map[string]int
}

// ReadFile decodes a bank file and returns its valid questions along with the
// number of malformed entries that were dropped.
func ReadFile(path string) ([]model.Question, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	var file fileFormat
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if file.Questions == nil {
		return nil, 0, fmt.Errorf("%w: missing questions array", ErrParse)
	}
	entries := *file.Questions
	questions := make([]model.Question, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		// A bad entry is dropped without failing the file.
		var raw rawQuestion
		if err := json.Unmarshal(entry, &raw); err != nil {
			dropped++
			continue
		}
		q, ok := raw.toQuestion()
		if !ok {
			dropped++
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, dropped, ErrEmpty
	}
	return questions, dropped, nil
}

// Inspect reads a bank file and reports what it contains.
func Inspect(path string) (Report, error) {
	questions, dropped, err := ReadFile(path)
	report := Report{Path: path, Dropped: dropped, Categories: map[string]int{}}
	if err != nil {
		return report, err
	}
	report.Valid = len(questions)
	for _, q := range questions {
		report.Categories[q.Category]++
	}
	return report, nil
}

func (r rawQuestion) toQuestion() (model.Question, bool) {
	if r.ID == nil || r.Question == nil || r.Options == nil || r.Answer == nil {
		return model.Question{}, false
	}
	options := *r.Options
	if len(options) < 2 || len(options) > model.MaxOptions {
		return model.Question{}, false
	}
	answer, err := model.ParseChoice(*r.Answer)
	if err != nil || answer.Index() >= len(options) {
		return model.Question{}, false
	}
	category := model.DefaultCategory
	if r.Category != nil && strings.TrimSpace(*r.Category) != "" {
		category = *r.Category
	}
	return model.Question{
		ID:       *r.ID,
		Text:     *r.Question,
		Options:  append([]string(nil), options...),
		Answer:   answer,
		Category: category,
	}, true
}
