// Package snapshot persists the in-progress test session.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/verte-zerg/satprep/internal/fsutil"
	"github.com/verte-zerg/satprep/internal/model"
)

// ErrCorrupt marks a snapshot file that could not be decoded.
var ErrCorrupt = errors.New("session snapshot is corrupt")

// Store reads and writes a single snapshot file.
type Store struct {
	path string
}

type document struct {
	TestState        *model.SessionState `json:"test_state"`
	Questions        []model.Question    `json:"questions"`
	RemainingSeconds int                 `json:"remaining_seconds"`
}

// New returns a Store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a snapshot is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save replaces the snapshot with state.
func (s *Store) Save(state model.SessionState) error {
	doc := document{
		TestState:        &state,
		Questions:        state.Questions,
		RemainingSeconds: state.RemainingSeconds,
	}
	if doc.Questions == nil {
		doc.Questions = []model.Question{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	return fsutil.WriteFileAtomic(s.path, data, 0o644)
}

// Load reads the snapshot. ok is false when no snapshot exists.
func (s *Store) Load() (model.SessionState, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.SessionState{}, false, nil
		}
		return model.SessionState{}, false, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.SessionState{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if doc.TestState == nil {
		return model.SessionState{}, false, fmt.Errorf("%w: %s: missing test_state", ErrCorrupt, s.path)
	}
	state := normalize(*doc.TestState)
	state.Questions = doc.Questions
	state.RemainingSeconds = doc.RemainingSeconds
	if state.RemainingSeconds < 0 {
		state.RemainingSeconds = 0
	}
	return state, true, nil
}

// Delete removes the snapshot. A missing snapshot is not an error.
func (s *Store) Delete() error {
	if err := fsutil.RemoveIfExists(s.path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.path, err)
	}
	return nil
}

func normalize(state model.SessionState) model.SessionState {
	switch state.Phase {
	case model.PhaseRW, model.PhaseMath, model.PhaseBreak, model.PhaseMenu:
	default:
		state.Phase = model.PhaseMenu
	}
	if state.Phase.Running() {
		state.CurrentSection = state.Phase.Section()
	}
	if state.Phase == model.PhaseBreak {
		state.CurrentSection = model.SectionRW
	}
	if state.RWIndex < 0 {
		state.RWIndex = 0
	}
	if state.MathIndex < 0 {
		state.MathIndex = 0
	}
	state.SectionAnswers(model.SectionRW)
	state.SectionAnswers(model.SectionMath)
	return state
}
