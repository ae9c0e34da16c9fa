package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/verte-zerg/satprep/internal/bank"
	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/snapshot"
)

type fakeBanks struct {
	sizes map[model.Section]int
	err   error
	loads int
}

func (f *fakeBanks) Load(section model.Section, mode bank.Mode) ([]model.Question, error) {
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	n := f.sizes[section]
	out := make([]model.Question, n)
	for i := range out {
		out[i] = model.Question{
			ID:       fmt.Sprintf("%s%d", section, i+1),
			Text:     "question",
			Options:  []string{"A. one", "B. two", "C. three"},
			Answer:   model.ChoiceA,
			Category: model.DefaultCategory,
		}
	}
	return out, nil
}

type fakeFinisher struct {
	calls int
	last  model.SessionState
}

func (f *fakeFinisher) Finish(_ context.Context, state model.SessionState) (model.Results, error) {
	f.calls++
	f.last = state
	return model.Results{AttemptID: "attempt"}, nil
}

func testConfig() model.ExamConfig {
	return model.ExamConfig{
		Questions: map[model.Section]int{
			model.SectionRW:   3,
			model.SectionMath: 10,
		},
		TimeLimits: map[model.Section]time.Duration{
			model.SectionRW:   3 * time.Second,
			model.SectionMath: 60 * time.Second,
		},
		BreakDuration: 2 * time.Second,
	}
}

type harness struct {
	engine    *Engine
	banks     *fakeBanks
	finisher  *fakeFinisher
	snapshots *snapshot.Store
}

func newHarness(t *testing.T) harness {
	t.Helper()
	h := harness{
		banks: &fakeBanks{sizes: map[model.Section]int{
			model.SectionRW:   3,
			model.SectionMath: 10,
		}},
		finisher:  &fakeFinisher{},
		snapshots: snapshot.New(filepath.Join(t.TempDir(), "progress.json")),
	}
	h.engine = h.newEngine()
	return h
}

func (h harness) newEngine() *Engine {
	return New(context.Background(), Deps{
		Banks:     h.banks,
		Snapshots: h.snapshots,
		Finisher:  h.finisher,
	}, testConfig())
}

func mustDispatch(t *testing.T, e *Engine, a Action) {
	t.Helper()
	if err := e.Dispatch(a); err != nil {
		t.Fatalf("dispatch %T: %v", a, err)
	}
}

func TestStartFullTest(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})

	v := h.engine.View()
	if v.Phase != model.PhaseRW || v.Index != 0 || v.Total != 3 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Remaining != 3*time.Second {
		t.Fatalf("expected 3s remaining, got %s", v.Remaining)
	}
	if !h.snapshots.Exists() {
		t.Fatalf("expected snapshot after start")
	}
}

func TestNavigateStaysInBounds(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})

	mustDispatch(t, h.engine, Navigate{Delta: -1})
	if got := h.engine.View().Index; got != 0 {
		t.Fatalf("expected index 0, got %d", got)
	}
	for i := 0; i < 5; i++ {
		mustDispatch(t, h.engine, Navigate{Delta: 1})
	}
	if got := h.engine.View().Index; got != 2 {
		t.Fatalf("expected index 2, got %d", got)
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})

	if err := h.engine.Dispatch(RecordAnswer{Index: 3, Choice: model.ChoiceA}); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer for index, got %v", err)
	}
	if err := h.engine.Dispatch(RecordAnswer{Index: 0, Choice: model.ChoiceD}); !errors.Is(err, ErrInvalidAnswer) {
		t.Fatalf("expected ErrInvalidAnswer for missing option, got %v", err)
	}
	mustDispatch(t, h.engine, RecordAnswer{Index: 1, Choice: model.ChoiceC})
	mustDispatch(t, h.engine, RecordAnswer{Index: 1, Choice: model.ChoiceB})
	state := h.engine.State()
	if got := state.Answers[model.SectionRW][1]; got != model.ChoiceB {
		t.Fatalf("expected last write to win, got %s", got)
	}
	if len(state.Answers[model.SectionRW]) != 1 {
		t.Fatalf("expected one answer, got %d", len(state.Answers[model.SectionRW]))
	}
}

func TestDeclinedSubmitLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})
	mustDispatch(t, h.engine, Tick{})

	mustDispatch(t, h.engine, SubmitSection{})
	if !h.engine.View().AwaitingConfirm {
		t.Fatalf("expected confirmation prompt")
	}
	// The countdown pauses while the prompt is open.
	mustDispatch(t, h.engine, Tick{})
	if err := h.engine.Dispatch(Navigate{Delta: 1}); !errors.Is(err, ErrConfirmPending) {
		t.Fatalf("expected ErrConfirmPending, got %v", err)
	}
	mustDispatch(t, h.engine, CancelSubmit{})

	v := h.engine.View()
	if v.Phase != model.PhaseRW || v.AwaitingConfirm {
		t.Fatalf("unexpected view after cancel: %+v", v)
	}
	if v.Remaining != 2*time.Second {
		t.Fatalf("expected 2s remaining, got %s", v.Remaining)
	}
}

func TestTimerExpiryAutoSubmits(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})
	mustDispatch(t, h.engine, RecordAnswer{Index: 0, Choice: model.ChoiceA})

	for i := 0; i < 3; i++ {
		mustDispatch(t, h.engine, Tick{})
	}
	v := h.engine.View()
	if v.Phase != model.PhaseBreak {
		t.Fatalf("expected break after timeout, got %s", v.Phase)
	}
	if v.Remaining != 2*time.Second {
		t.Fatalf("expected break duration, got %s", v.Remaining)
	}
	if got := h.engine.State().Answers[model.SectionRW][0]; got != model.ChoiceA {
		t.Fatalf("expected RW answers kept, got %v", got)
	}

	mustDispatch(t, h.engine, Tick{})
	mustDispatch(t, h.engine, Tick{})
	if got := h.engine.View().Phase; got != model.PhaseMath {
		t.Fatalf("expected MATH after break, got %s", got)
	}
}

func TestFullRunReachesResults(t *testing.T) {
	h := newHarness(t)
	var views []View
	unsubscribe := h.engine.Subscribe(func(v View) {
		views = append(views, v)
	})
	defer unsubscribe()

	mustDispatch(t, h.engine, StartFullTest{})
	mustDispatch(t, h.engine, SubmitSection{Confirmed: true})
	mustDispatch(t, h.engine, ContinueAfterBreak{})
	mustDispatch(t, h.engine, RecordAnswer{Index: 4, Choice: model.ChoiceB})
	mustDispatch(t, h.engine, SubmitSection{Confirmed: true})

	v := h.engine.View()
	if v.Phase != model.PhaseResults || v.Results == nil || v.Results.AttemptID != "attempt" {
		t.Fatalf("unexpected final view: %+v", v)
	}
	if h.finisher.calls != 1 {
		t.Fatalf("expected one finish call, got %d", h.finisher.calls)
	}
	if got := h.finisher.last.Answers[model.SectionMath][4]; got != model.ChoiceB {
		t.Fatalf("expected math answer passed to scorer, got %v", got)
	}
	if h.snapshots.Exists() {
		t.Fatalf("expected snapshot removed after results")
	}
	if len(views) != 5 {
		t.Fatalf("expected 5 published views, got %d", len(views))
	}

	// Ticks on the results screen are ignored.
	mustDispatch(t, h.engine, Tick{})
	if h.engine.View().Phase != model.PhaseResults {
		t.Fatalf("expected to stay on results")
	}
	mustDispatch(t, h.engine, BackToMenu{})
	if h.engine.View().Phase != model.PhaseMenu {
		t.Fatalf("expected menu")
	}
}

func TestResumeRestoresMathSession(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})
	mustDispatch(t, h.engine, SubmitSection{Confirmed: true})
	mustDispatch(t, h.engine, ContinueAfterBreak{})
	for i := 0; i < 5; i++ {
		mustDispatch(t, h.engine, Navigate{Delta: 1})
	}
	mustDispatch(t, h.engine, RecordAnswer{Index: 5, Choice: model.ChoiceC})
	mustDispatch(t, h.engine, Tick{})
	before := h.engine.State()

	restarted := h.newEngine()
	if !restarted.HasSnapshot() {
		t.Fatalf("expected snapshot on disk")
	}
	mustDispatch(t, restarted, Resume{})

	v := restarted.View()
	if v.Phase != model.PhaseMath || v.Index != 5 {
		t.Fatalf("unexpected resumed view: %+v", v)
	}
	if v.Remaining != 59*time.Second {
		t.Fatalf("expected 59s remaining, got %s", v.Remaining)
	}
	if !v.HasSelection || v.Selected != model.ChoiceC {
		t.Fatalf("expected selection C, got %+v", v)
	}
	if after := restarted.State(); !reflect.DeepEqual(after, before) {
		t.Fatalf("resumed state differs:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestResumeBreakKeepsSavedRemaining(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})
	mustDispatch(t, h.engine, RecordAnswer{Index: 1, Choice: model.ChoiceB})
	mustDispatch(t, h.engine, SubmitSection{Confirmed: true})
	// Break ticks are not persisted; the snapshot holds the remaining time at break start.
	mustDispatch(t, h.engine, Tick{})

	restarted := h.newEngine()
	mustDispatch(t, restarted, Resume{})
	v := restarted.View()
	if v.Phase != model.PhaseBreak || v.Remaining != 2*time.Second {
		t.Fatalf("unexpected resumed break: %+v", v)
	}
	if got := restarted.State().Answers[model.SectionRW][1]; got != model.ChoiceB {
		t.Fatalf("expected RW answers to survive the break, got %v", got)
	}

	mustDispatch(t, restarted, Tick{})
	if restarted.View().Phase != model.PhaseBreak {
		t.Fatalf("expected break to continue after one tick")
	}
	mustDispatch(t, restarted, Tick{})
	v = restarted.View()
	if v.Phase != model.PhaseMath || v.Total != 10 || v.Remaining != 60*time.Second {
		t.Fatalf("expected MATH after break expiry, got %+v", v)
	}
}

func TestResumeBreakThenContinue(t *testing.T) {
	h := newHarness(t)
	mustDispatch(t, h.engine, StartFullTest{})
	mustDispatch(t, h.engine, SubmitSection{Confirmed: true})

	restarted := h.newEngine()
	if err := restarted.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := restarted.ContinueAfterBreak(); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if v := restarted.View(); v.Phase != model.PhaseMath || v.Index != 0 {
		t.Fatalf("expected MATH at index 0, got %+v", v)
	}
}

func TestConvenienceMethodsDispatch(t *testing.T) {
	h := newHarness(t)
	e := h.engine
	if err := e.StartFullTest(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Navigate(1); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if err := e.RecordAnswer(1, model.ChoiceC); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := e.SubmitSection(false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := e.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := e.CancelSubmit(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	v := e.View()
	if v.Phase != model.PhaseRW || v.Index != 1 || v.Remaining != 3*time.Second {
		t.Fatalf("unexpected view: %+v", v)
	}
	if err := e.BackToMenu(); err != nil {
		t.Fatalf("back to menu: %v", err)
	}
	if e.View().Phase != model.PhaseMenu || e.HasSnapshot() {
		t.Fatalf("expected menu without snapshot")
	}
	if err := e.DiscardSnapshot(); err != nil {
		t.Fatalf("discard: %v", err)
	}
}

func TestResumeWithoutQuestionsResamples(t *testing.T) {
	h := newHarness(t)
	state := model.NewSessionState()
	state.Phase = model.PhaseRW
	state.CurrentSection = model.SectionRW
	state.RWIndex = 2
	state.Answers[model.SectionRW][2] = model.ChoiceB
	state.RemainingSeconds = 1
	if err := h.snapshots.Save(state); err != nil {
		t.Fatalf("save: %v", err)
	}

	mustDispatch(t, h.engine, Resume{})
	v := h.engine.View()
	if v.Phase != model.PhaseRW || v.Total != 3 || v.Index != 0 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Remaining != 3*time.Second {
		t.Fatalf("expected timer reset to section default, got %s", v.Remaining)
	}
	if v.Answered != 0 {
		t.Fatalf("expected answers for the lost set to be cleared")
	}
}

func TestResumeCorruptSnapshot(t *testing.T) {
	h := newHarness(t)
	if err := os.WriteFile(h.snapshots.Path(), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := h.engine.Dispatch(Resume{})
	if !errors.Is(err, snapshot.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if h.engine.View().Phase != model.PhaseMenu || h.engine.View().Notice == "" {
		t.Fatalf("expected menu with notice: %+v", h.engine.View())
	}
	if h.snapshots.Exists() {
		t.Fatalf("expected corrupt snapshot to be removed")
	}
}

func TestResumeWithoutSnapshot(t *testing.T) {
	h := newHarness(t)
	if err := h.engine.Dispatch(Resume{}); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestBankFailureReturnsToMenu(t *testing.T) {
	h := newHarness(t)
	h.banks.err = bank.ErrNotFound
	err := h.engine.Dispatch(StartFullTest{})
	if !errors.Is(err, bank.ErrNotFound) {
		t.Fatalf("expected bank error, got %v", err)
	}
	v := h.engine.View()
	if v.Phase != model.PhaseMenu || v.Notice == "" {
		t.Fatalf("expected menu with notice, got %+v", v)
	}
	if h.snapshots.Exists() {
		t.Fatalf("expected no snapshot")
	}
}

func TestActionsRejectedInWrongPhase(t *testing.T) {
	h := newHarness(t)
	for _, a := range []Action{SubmitSection{}, Navigate{Delta: 1}, ContinueAfterBreak{}, CancelSubmit{}} {
		if err := h.engine.Dispatch(a); !errors.Is(err, ErrWrongPhase) {
			t.Fatalf("%T: expected ErrWrongPhase, got %v", a, err)
		}
	}
	// Ticks in the menu are a no-op.
	mustDispatch(t, h.engine, Tick{})
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	h := newHarness(t)
	calls := 0
	unsubscribe := h.engine.Subscribe(func(View) { calls++ })
	mustDispatch(t, h.engine, Tick{})
	unsubscribe()
	mustDispatch(t, h.engine, Tick{})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
