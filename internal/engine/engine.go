// Package engine drives a practice test session through its phases.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/satprep/internal/bank"
	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/snapshot"
)

var (
	// ErrWrongPhase reports an action that is not valid in the current phase.
	ErrWrongPhase = errors.New("action not allowed in current phase")
	// ErrConfirmPending reports an action attempted while a submit awaits confirmation.
	ErrConfirmPending = errors.New("submit confirmation pending")
	// ErrInvalidAnswer reports an out-of-range question index or choice.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrNoSnapshot reports a resume request without a saved session.
	ErrNoSnapshot = errors.New("no saved session")
)

// QuestionSource loads a section's question set.
type QuestionSource interface {
	Load(section model.Section, mode bank.Mode) ([]model.Question, error)
}

// SnapshotStore persists the in-progress session.
type SnapshotStore interface {
	Exists() bool
	Save(state model.SessionState) error
	Load() (model.SessionState, bool, error)
	Delete() error
}

// Finisher scores a completed session and records it.
type Finisher interface {
	Finish(ctx context.Context, state model.SessionState) (model.Results, error)
}

// Deps are the collaborators an Engine needs.
type Deps struct {
	Banks     QuestionSource
	Snapshots SnapshotStore
	Finisher  Finisher
	Logger    *slog.Logger
}

// Engine owns the session state. It is not safe for concurrent use; the
// caller serializes Dispatch calls, as the Bubble Tea update loop does.
type Engine struct {
	ctx  context.Context
	deps Deps
	cfg  model.ExamConfig

	state           model.SessionState
	awaitingConfirm bool
	results         *model.Results
	notice          string

	observers    []subscription
	nextObserver int
}

// New returns an engine in the menu phase.
func New(ctx context.Context, deps Deps, cfg model.ExamConfig) *Engine {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		ctx:   ctx,
		deps:  deps,
		cfg:   cfg,
		state: model.NewSessionState(),
	}
}

// State returns a copy of the session state.
func (e *Engine) State() model.SessionState {
	return e.state.Clone()
}

// HasSnapshot reports whether a resumable session is on disk.
func (e *Engine) HasSnapshot() bool {
	return e.deps.Snapshots.Exists()
}

// Dispatch applies an action and notifies observers.
func (e *Engine) Dispatch(a Action) error {
	e.notice = ""
	err := e.apply(a)
	if err != nil && e.notice == "" {
		e.notice = err.Error()
	}
	e.publish()
	return err
}

func (e *Engine) apply(a Action) error {
	switch a := a.(type) {
	case StartFullTest:
		return e.startFullTest()
	case SubmitSection:
		return e.submit(a.Confirmed)
	case CancelSubmit:
		return e.cancelSubmit()
	case ContinueAfterBreak:
		return e.continueAfterBreak()
	case Navigate:
		return e.navigate(a.Delta)
	case RecordAnswer:
		return e.recordAnswer(a.Index, a.Choice)
	case Tick:
		return e.tick()
	case BackToMenu:
		e.backToMenu()
		return nil
	case Resume:
		return e.resume()
	case DiscardSnapshot:
		e.deleteSnapshot()
		return nil
	default:
		return fmt.Errorf("unknown action %T", a)
	}
}

func (e *Engine) startFullTest() error {
	if e.state.Phase != model.PhaseMenu {
		return fmt.Errorf("start test: %w", ErrWrongPhase)
	}
	e.deleteSnapshot()
	e.state = model.NewSessionState()
	e.results = nil
	if err := e.startSection(model.SectionRW); err != nil {
		e.abandon()
		return err
	}
	return nil
}

func (e *Engine) startSection(sec model.Section) error {
	questions, err := e.deps.Banks.Load(sec, bank.Sampled(e.cfg.Questions[sec]))
	if err != nil {
		e.deps.Logger.Error("load question bank", "section", sec, "error", err)
		return fmt.Errorf("start %s: %w", sec, err)
	}
	e.state.Questions = questions
	e.state.Phase = model.PhaseFor(sec)
	e.state.CurrentSection = sec
	e.state.SetIndex(sec, 0)
	e.state.RemainingSeconds = seconds(e.cfg.TimeLimits[sec])
	e.awaitingConfirm = false
	e.deps.Logger.Info("section started", "section", sec, "questions", len(questions))
	e.persist()
	return nil
}

func (e *Engine) submit(confirmed bool) error {
	if !e.state.Phase.Running() {
		return fmt.Errorf("submit: %w", ErrWrongPhase)
	}
	if !confirmed {
		e.awaitingConfirm = true
		return nil
	}
	return e.commitSubmit()
}

func (e *Engine) cancelSubmit() error {
	if !e.awaitingConfirm {
		return fmt.Errorf("cancel submit: %w", ErrWrongPhase)
	}
	e.awaitingConfirm = false
	return nil
}

func (e *Engine) commitSubmit() error {
	e.awaitingConfirm = false
	sec := e.state.Phase.Section()
	e.deps.Logger.Info("section submitted", "section", sec, "answered", len(e.state.Answers[sec]), "remaining", e.state.RemainingSeconds)
	if sec == model.SectionRW {
		return e.startBreak()
	}
	return e.finish()
}

func (e *Engine) startBreak() error {
	e.state.Phase = model.PhaseBreak
	e.state.CurrentSection = model.SectionRW
	e.state.Questions = nil
	e.state.RemainingSeconds = seconds(e.cfg.BreakDuration)
	if e.state.RemainingSeconds == 0 {
		return e.continueAfterBreak()
	}
	e.persist()
	return nil
}

func (e *Engine) continueAfterBreak() error {
	if e.state.Phase != model.PhaseBreak {
		return fmt.Errorf("continue: %w", ErrWrongPhase)
	}
	e.state.SetIndex(model.SectionMath, 0)
	e.state.Answers[model.SectionMath] = map[int]model.Choice{}
	if err := e.startSection(model.SectionMath); err != nil {
		e.abandon()
		return err
	}
	return nil
}

func (e *Engine) finish() error {
	results, err := e.deps.Finisher.Finish(e.ctx, e.state.Clone())
	if err != nil {
		e.deps.Logger.Error("record attempt", "error", err)
	}
	e.state.Phase = model.PhaseResults
	e.state.Questions = nil
	e.state.RemainingSeconds = 0
	e.results = &results
	e.deleteSnapshot()
	if results.SaveWarning != "" {
		e.notice = results.SaveWarning
	}
	return nil
}

func (e *Engine) navigate(delta int) error {
	if err := e.requireRunning("navigate"); err != nil {
		return err
	}
	sec := e.state.Phase.Section()
	next := e.state.Index(sec) + delta
	if next < 0 || next >= len(e.state.Questions) {
		return nil
	}
	e.state.SetIndex(sec, next)
	e.persist()
	return nil
}

func (e *Engine) recordAnswer(index int, choice model.Choice) error {
	if err := e.requireRunning("record answer"); err != nil {
		return err
	}
	if index < 0 || index >= len(e.state.Questions) {
		return fmt.Errorf("%w: question %d out of range", ErrInvalidAnswer, index)
	}
	if !e.state.Questions[index].HasOption(choice) {
		return fmt.Errorf("%w: question %d has no option %s", ErrInvalidAnswer, index, choice)
	}
	e.state.SectionAnswers(e.state.Phase.Section())[index] = choice
	e.persist()
	return nil
}

func (e *Engine) tick() error {
	switch {
	case e.awaitingConfirm:
		return nil
	case e.state.Phase.Running():
		if e.state.RemainingSeconds > 0 {
			e.state.RemainingSeconds--
		}
		if e.state.RemainingSeconds == 0 {
			e.deps.Logger.Info("time expired", "section", e.state.Phase.Section())
			return e.commitSubmit()
		}
		e.persist()
		return nil
	case e.state.Phase == model.PhaseBreak:
		if e.state.RemainingSeconds > 0 {
			e.state.RemainingSeconds--
		}
		if e.state.RemainingSeconds == 0 {
			return e.continueAfterBreak()
		}
		return nil
	default:
		return nil
	}
}

func (e *Engine) backToMenu() {
	e.deleteSnapshot()
	e.state = model.NewSessionState()
	e.awaitingConfirm = false
	e.results = nil
}

func (e *Engine) resume() error {
	if e.state.Phase != model.PhaseMenu {
		return fmt.Errorf("resume: %w", ErrWrongPhase)
	}
	state, ok, err := e.deps.Snapshots.Load()
	if err != nil {
		e.deps.Logger.Warn("discarding unreadable snapshot", "error", err)
		e.deleteSnapshot()
		if errors.Is(err, snapshot.ErrCorrupt) {
			e.notice = "Saved session was corrupt and has been discarded."
		}
		return err
	}
	if !ok {
		return ErrNoSnapshot
	}

	switch {
	case state.Phase == model.PhaseBreak:
		e.state = state
		e.state.Questions = nil
		e.persist()
	case state.Phase.Running():
		e.state = state
		if len(e.state.Questions) == 0 {
			// The sampled set was lost. Answers indexed into it are meaningless.
			sec := state.Phase.Section()
			e.state.Answers[sec] = map[int]model.Choice{}
			if err := e.startSection(sec); err != nil {
				e.abandon()
				return err
			}
			break
		}
		sec := state.Phase.Section()
		if idx := e.state.Index(sec); idx >= len(e.state.Questions) {
			e.state.SetIndex(sec, len(e.state.Questions)-1)
		}
		e.dropOutOfRange(sec)
		if e.state.RemainingSeconds == 0 {
			return e.commitSubmit()
		}
		e.persist()
	default:
		e.deleteSnapshot()
		return ErrNoSnapshot
	}
	e.awaitingConfirm = false
	e.results = nil
	e.deps.Logger.Info("session resumed", "phase", e.state.Phase, "remaining", e.state.RemainingSeconds)
	return nil
}

func (e *Engine) dropOutOfRange(sec model.Section) {
	answers := e.state.SectionAnswers(sec)
	for idx, choice := range answers {
		if idx < 0 || idx >= len(e.state.Questions) || !e.state.Questions[idx].HasOption(choice) {
			delete(answers, idx)
		}
	}
}

// abandon returns to the menu after a failure that leaves no usable session.
func (e *Engine) abandon() {
	e.deleteSnapshot()
	e.state = model.NewSessionState()
	e.awaitingConfirm = false
}

func (e *Engine) requireRunning(op string) error {
	if !e.state.Phase.Running() {
		return fmt.Errorf("%s: %w", op, ErrWrongPhase)
	}
	if e.awaitingConfirm {
		return fmt.Errorf("%s: %w", op, ErrConfirmPending)
	}
	return nil
}

// persist saves the snapshot. Failures are logged and the session continues.
func (e *Engine) persist() {
	if err := e.deps.Snapshots.Save(e.state); err != nil {
		e.deps.Logger.Error("save snapshot", "error", err)
	}
}

func (e *Engine) deleteSnapshot() {
	if err := e.deps.Snapshots.Delete(); err != nil {
		e.deps.Logger.Error("delete snapshot", "error", err)
	}
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
