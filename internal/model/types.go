// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Section identifies one of the two test parts.
type Section string

// Sections in the order they are administered.
const (
	SectionNone Section = ""
	SectionRW   Section = "RW"
	SectionMath Section = "MATH"
)

// Sections lists the administered sections in order.
var Sections = []Section{SectionRW, SectionMath}

// ParseSection parses "rw"/"math" in any case.
func ParseSection(s string) (Section, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RW":
		return SectionRW, nil
	case "MATH":
		return SectionMath, nil
	}
	return SectionNone, fmt.Errorf("unknown section %q", s)
}

// Key returns the lowercase config key for the section.
func (s Section) Key() string {
	return strings.ToLower(string(s))
}

// Title returns the display name of the section.
func (s Section) Title() string {
	switch s {
	case SectionRW:
		return "Reading and Writing"
	case SectionMath:
		return "Math"
	default:
		return ""
	}
}

// Phase is the high-level mode of a session.
type Phase string

// Session phases. PhaseResults is never persisted.
const (
	PhaseMenu    Phase = "MENU"
	PhaseRW      Phase = "RW"
	PhaseMath    Phase = "MATH"
	PhaseBreak   Phase = "BREAK"
	PhaseResults Phase = "RESULTS"
)

// Running reports whether a test section is in progress.
func (p Phase) Running() bool {
	return p == PhaseRW || p == PhaseMath
}

// Section returns the section a running phase belongs to.
func (p Phase) Section() Section {
	switch p {
	case PhaseRW:
		return SectionRW
	case PhaseMath:
		return SectionMath
	default:
		return SectionNone
	}
}

// PhaseFor returns the running phase for a section.
func PhaseFor(s Section) Phase {
	if s == SectionMath {
		return PhaseMath
	}
	return PhaseRW
}

// Choice is an answer option, A through D.
type Choice int

// Valid choices.
const (
	ChoiceA Choice = iota
	ChoiceB
	ChoiceC
	ChoiceD
)

// MaxOptions is the largest number of options a question may carry.
const MaxOptions = 4

const choiceLetters = "ABCD"

// ParseChoice parses a single-letter choice code.
func ParseChoice(s string) (Choice, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 {
		return 0, fmt.Errorf("invalid choice %q", s)
	}
	idx := strings.IndexByte(choiceLetters, s[0])
	if idx < 0 {
		return 0, fmt.Errorf("invalid choice %q", s)
	}
	return Choice(idx), nil
}

// ChoiceFromIndex converts a zero-based option index.
func ChoiceFromIndex(i int) (Choice, error) {
	if i < 0 || i >= MaxOptions {
		return 0, fmt.Errorf("option index %d out of range", i)
	}
	return Choice(i), nil
}

// Index returns the zero-based option index.
func (c Choice) Index() int {
	return int(c)
}

// Valid reports whether c is one of A-D.
func (c Choice) Valid() bool {
	return c >= ChoiceA && c <= ChoiceD
}

func (c Choice) String() string {
	if !c.Valid() {
		return "?"
	}
	return string(choiceLetters[c])
}

// MarshalText implements encoding.TextMarshaler.
func (c Choice) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid choice %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Choice) UnmarshalText(text []byte) error {
	parsed, err := ParseChoice(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DefaultCategory is used for questions without a category tag.
const DefaultCategory = "Uncategorized"

// Question is an immutable multiple-choice item.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"question"`
	Options  []string `json:"options"`
	Answer   Choice   `json:"answer"`
	Category string   `json:"category"`
}

// HasOption reports whether c names one of the question's options.
func (q Question) HasOption(c Choice) bool {
	return c.Valid() && c.Index() < len(q.Options)
}

// ExamConfig defines exam settings resolved from config and flags.
type ExamConfig struct {
	BankPaths     map[Section]string
	Questions     map[Section]int
	TimeLimits    map[Section]time.Duration
	BreakDuration time.Duration
}

// StatsConfig defines filters and options for analytics output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionState is the mutable state of a test in progress.
type SessionState struct {
	CurrentSection   Section                    `json:"current_section"`
	Phase            Phase                      `json:"test_phase"`
	RWIndex          int                        `json:"rw_index"`
	MathIndex        int                        `json:"math_index"`
	Answers          map[Section]map[int]Choice `json:"user_answers"`
	RemainingSeconds int                        `json:"-"`
	Questions        []Question                 `json:"-"`
}

// NewSessionState returns the initial menu state.
func NewSessionState() SessionState {
	return SessionState{
		Phase: PhaseMenu,
		Answers: map[Section]map[int]Choice{
			SectionRW:   {},
			SectionMath: {},
		},
	}
}

// Index returns the question pointer for a section.
func (s *SessionState) Index(sec Section) int {
	if sec == SectionMath {
		return s.MathIndex
	}
	return s.RWIndex
}

// SetIndex sets the question pointer for a section.
func (s *SessionState) SetIndex(sec Section, idx int) {
	if sec == SectionMath {
		s.MathIndex = idx
		return
	}
	s.RWIndex = idx
}

// SectionAnswers returns the answer map for a section, creating it if needed.
func (s *SessionState) SectionAnswers(sec Section) map[int]Choice {
	if s.Answers == nil {
		s.Answers = map[Section]map[int]Choice{}
	}
	m, ok := s.Answers[sec]
	if !ok || m == nil {
		m = map[int]Choice{}
		s.Answers[sec] = m
	}
	return m
}

// Clone returns a deep copy of the state.
func (s SessionState) Clone() SessionState {
	out := s
	out.Answers = make(map[Section]map[int]Choice, len(s.Answers))
	for sec, answers := range s.Answers {
		cp := make(map[int]Choice, len(answers))
		for k, v := range answers {
			cp[k] = v
		}
		out.Answers[sec] = cp
	}
	out.Questions = append([]Question(nil), s.Questions...)
	return out
}

// SectionScore counts correct answers out of the complete bank.
type SectionScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Percentage returns correct/total*100, or 0 for an empty bank.
func (s SectionScore) Percentage() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}

// DetailedAnswer describes one scored question.
type DetailedAnswer struct {
	QuestionID    string   `json:"question_id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	UserAnswer    string   `json:"user_answer"`
	CorrectAnswer string   `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	Category      string   `json:"category"`
}

// Unanswered is the user answer recorded for skipped questions.
const Unanswered = "N/A"

// Results is the outcome of a completed test.
type Results struct {
	AttemptID   string
	FinishedAt  time.Time
	Scores      map[Section]SectionScore
	Answers     map[Section][]DetailedAnswer
	WeakTop     map[Section][]CategoryCount
	SaveWarning string
}

// CategoryCount is a category with its cumulative incorrect count.
type CategoryCount struct {
	Category  string
	Incorrect int
}

// HistoryEntry is one completed test in the progress series.
type HistoryEntry struct {
	AttemptID string  `json:"attempt_id,omitempty"`
	Date      string  `json:"date"`
	RW        float64 `json:"rw"`
	Math      float64 `json:"math"`
}

// AnalyticsRecord aggregates performance across completed tests.
type AnalyticsRecord struct {
	TestsTaken        int                        `json:"tests_taken"`
	AverageScores     map[Section]float64        `json:"average_scores"`
	BestScores        map[Section]float64        `json:"best_scores"`
	WeakestCategories map[Section]map[string]int `json:"weakest_categories"`
	History           []HistoryEntry             `json:"progress_over_time"`
}

// NewAnalyticsRecord returns an empty record.
func NewAnalyticsRecord() AnalyticsRecord {
	return AnalyticsRecord{
		AverageScores: map[Section]float64{SectionRW: 0, SectionMath: 0},
		BestScores:    map[Section]float64{SectionRW: 0, SectionMath: 0},
		WeakestCategories: map[Section]map[string]int{
			SectionRW:   {},
			SectionMath: {},
		},
	}
}
