package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/satprep/internal/bank"
	"github.com/verte-zerg/satprep/internal/model"
)

const resultsWeakTop = 3

// ErrNotRecorded reports a finished test that was scored but left out of the
// analytics because a complete bank could not be loaded.
var ErrNotRecorded = errors.New("attempt not recorded in analytics")

// BankSource loads question banks.
type BankSource interface {
	Load(section model.Section, mode bank.Mode) ([]model.Question, error)
}

// AnalyticsStore persists the analytics record and attempt history.
type AnalyticsStore interface {
	LoadAnalytics(ctx context.Context) (model.AnalyticsRecord, error)
	RecordAttempt(ctx context.Context, rec model.AnalyticsRecord, results model.Results) error
}

// Service scores completed tests and keeps the analytics record current.
type Service struct {
	banks  BankSource
	store  AnalyticsStore
	logger *slog.Logger
	now    func() time.Time
	record model.AnalyticsRecord
}

// NewService loads the analytics record once. A load failure is logged and the
// service starts from an empty record.
func NewService(ctx context.Context, banks BankSource, store AnalyticsStore, logger *slog.Logger) *Service {
	s := &Service{
		banks:  banks,
		store:  store,
		logger: logger,
		now:    time.Now,
		record: model.NewAnalyticsRecord(),
	}
	rec, err := store.LoadAnalytics(ctx)
	if err != nil {
		logger.Error("failed to load analytics; starting empty", "error", err)
		return s
	}
	ensure(&rec)
	s.record = rec
	return s
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Record returns the in-memory analytics record.
func (s *Service) Record() model.AnalyticsRecord {
	return s.record
}

// Finish scores a completed test against the complete banks, updates analytics
// exactly once, and persists the record and the attempt together. A non-nil
// error means the attempt is not on disk; the returned results stay valid.
func (s *Service) Finish(ctx context.Context, state model.SessionState) (model.Results, error) {
	banks := Banks{}
	var missing []string
	for _, sec := range model.Sections {
		questions, err := s.banks.Load(sec, bank.Complete())
		if err != nil {
			s.logger.Error("failed to load complete bank for scoring", "section", sec, "error", err)
			missing = append(missing, err.Error())
		}
		banks[sec] = questions
	}

	now := s.now()
	results := model.Results{
		AttemptID:  uuid.NewString(),
		FinishedAt: now,
		Scores:     Score(state, banks),
		Answers:    Detailed(state, banks),
	}
	if len(missing) > 0 {
		// Analytics only record attempts scored against every complete bank.
		results.WeakTop = s.weakTop()
		results.SaveWarning = "Analytics not updated: " + strings.Join(missing, "; ")
		return results, fmt.Errorf("%w: %s", ErrNotRecorded, strings.Join(missing, "; "))
	}

	UpdateAnalytics(&s.record, state, banks, now)
	s.record.History[len(s.record.History)-1].AttemptID = results.AttemptID
	results.WeakTop = s.weakTop()

	if err := s.store.RecordAttempt(ctx, s.record, results); err != nil {
		saveErr := fmt.Errorf("failed to save analytics: %w", err)
		s.logger.Error("analytics persistence failed", "error", saveErr)
		results.SaveWarning = saveErr.Error()
		return results, saveErr
	}
	return results, nil
}

func (s *Service) weakTop() map[model.Section][]model.CategoryCount {
	return map[model.Section][]model.CategoryCount{
		model.SectionRW:   TopWeak(s.record, model.SectionRW, resultsWeakTop),
		model.SectionMath: TopWeak(s.record, model.SectionMath, resultsWeakTop),
	}
}
