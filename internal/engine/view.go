package engine

import (
	"time"

	"github.com/verte-zerg/satprep/internal/model"
)

// View is the read-only state published to observers after every change.
type View struct {
	Phase           model.Phase
	Section         model.Section
	Index           int
	Total           int
	Answered        int
	Question        *model.Question
	Selected        model.Choice
	HasSelection    bool
	Remaining       time.Duration
	AwaitingConfirm bool
	Results         *model.Results
	Notice          string
}

// Observer receives a View after each state change.
type Observer func(View)

// View returns the current view.
func (e *Engine) View() View {
	v := View{
		Phase:           e.state.Phase,
		Section:         e.state.CurrentSection,
		Remaining:       time.Duration(e.state.RemainingSeconds) * time.Second,
		AwaitingConfirm: e.awaitingConfirm,
		Results:         e.results,
		Notice:          e.notice,
	}
	if !e.state.Phase.Running() {
		return v
	}
	sec := e.state.Phase.Section()
	idx := e.state.Index(sec)
	v.Index = idx
	v.Total = len(e.state.Questions)
	v.Answered = len(e.state.Answers[sec])
	if idx >= 0 && idx < len(e.state.Questions) {
		q := e.state.Questions[idx]
		v.Question = &q
	}
	if c, ok := e.state.Answers[sec][idx]; ok {
		v.Selected = c
		v.HasSelection = true
	}
	return v
}

// Subscribe registers an observer and returns a function that removes it.
func (e *Engine) Subscribe(fn Observer) func() {
	id := e.nextObserver
	e.nextObserver++
	e.observers = append(e.observers, subscription{id: id, fn: fn})
	return func() {
		for i, sub := range e.observers {
			if sub.id == id {
				e.observers = append(e.observers[:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

type subscription struct {
	id int
	fn Observer
}

func (e *Engine) publish() {
	if len(e.observers) == 0 {
		return
	}
	v := e.View()
	for _, sub := range e.observers {
		sub.fn(v)
	}
}
