package bank

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/satprep/internal/model"
)

// Mode selects between a sampled subset and the complete pool.
type Mode struct {
	sample int
}

// Sampled returns a mode drawing up to n questions in random order.
func Sampled(n int) Mode {
	return Mode{sample: n}
}

// Complete returns a mode yielding the entire valid pool in file order.
func Complete() Mode {
	return Mode{}
}

// IsSampled reports whether the mode samples.
func (m Mode) IsSampled() bool {
	return m.sample > 0
}

// Loader reads question banks for both sections.
type Loader struct {
	paths map[model.Section]string
	rnd   *rand.Rand
}

// NewLoader returns a Loader seeded with the current time.
func NewLoader(paths map[model.Section]string) *Loader {
	return NewLoaderWithRand(paths, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewLoaderWithRand returns a Loader using the provided random source.
func NewLoaderWithRand(paths map[model.Section]string, rnd *rand.Rand) *Loader {
	cp := make(map[model.Section]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	return &Loader{paths: cp, rnd: rnd}
}

// Path returns the configured file for a section.
func (l *Loader) Path(section model.Section) string {
	return l.paths[section]
}

// Load returns the valid questions for a section. Failures are *Error values
// wrapping ErrNotFound, ErrParse, ErrEmpty, or an I/O error.
func (l *Loader) Load(section model.Section, mode Mode) ([]model.Question, error) {
	path := l.paths[section]
	questions, _, err := ReadFile(path)
	if err != nil {
		return nil, &Error{Section: section, Path: path, Err: err}
	}
	if !mode.IsSampled() {
		return questions, nil
	}
	return l.sample(questions, mode.sample), nil
}

func (l *Loader) sample(questions []model.Question, n int) []model.Question {
	if n > len(questions) {
		n = len(questions)
	}
	perm := l.rnd.Perm(len(questions))
	out := make([]model.Question, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, questions[idx])
	}
	return out
}
