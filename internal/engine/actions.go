package engine

import "github.com/verte-zerg/satprep/internal/model"

// Action is a command accepted by Engine.Dispatch.
type Action interface {
	action()
}

// StartFullTest discards any stale session and starts the RW section.
type StartFullTest struct{}

// SubmitSection submits the running section. Unconfirmed submits ask for
// acknowledgement first and pause the countdown.
type SubmitSection struct {
	Confirmed bool
}

// CancelSubmit declines a pending submit confirmation.
type CancelSubmit struct{}

// ContinueAfterBreak ends the break early and starts MATH.
type ContinueAfterBreak struct{}

// Navigate moves the question pointer by Delta (-1 or +1).
type Navigate struct {
	Delta int
}

// RecordAnswer stores a choice for the question at Index.
type RecordAnswer struct {
	Index  int
	Choice model.Choice
}

// Tick advances the countdown by one second.
type Tick struct{}

// BackToMenu abandons the session and resets to the menu.
type BackToMenu struct{}

// Resume restores the persisted session snapshot.
type Resume struct{}

// DiscardSnapshot deletes the persisted snapshot without resuming.
type DiscardSnapshot struct{}

func (StartFullTest) action()      {}
func (SubmitSection) action()      {}
func (CancelSubmit) action()       {}
func (ContinueAfterBreak) action() {}
func (Navigate) action()           {}
func (RecordAnswer) action()       {}
func (Tick) action()               {}
func (BackToMenu) action()         {}
func (Resume) action()             {}
func (DiscardSnapshot) action()    {}

// StartFullTest dispatches StartFullTest.
func (e *Engine) StartFullTest() error { return e.Dispatch(StartFullTest{}) }

// SubmitSection dispatches SubmitSection.
func (e *Engine) SubmitSection(confirmed bool) error {
	return e.Dispatch(SubmitSection{Confirmed: confirmed})
}

// CancelSubmit dispatches CancelSubmit.
func (e *Engine) CancelSubmit() error { return e.Dispatch(CancelSubmit{}) }

// ContinueAfterBreak dispatches ContinueAfterBreak.
func (e *Engine) ContinueAfterBreak() error { return e.Dispatch(ContinueAfterBreak{}) }

// Navigate dispatches Navigate.
func (e *Engine) Navigate(delta int) error { return e.Dispatch(Navigate{Delta: delta}) }

// RecordAnswer dispatches RecordAnswer.
func (e *Engine) RecordAnswer(index int, choice model.Choice) error {
	return e.Dispatch(RecordAnswer{Index: index, Choice: choice})
}

// Tick dispatches Tick.
func (e *Engine) Tick() error { return e.Dispatch(Tick{}) }

// BackToMenu dispatches BackToMenu.
func (e *Engine) BackToMenu() error { return e.Dispatch(BackToMenu{}) }

// Resume dispatches Resume.
func (e *Engine) Resume() error { return e.Dispatch(Resume{}) }

// DiscardSnapshot dispatches DiscardSnapshot.
func (e *Engine) DiscardSnapshot() error { return e.Dispatch(DiscardSnapshot{}) }
