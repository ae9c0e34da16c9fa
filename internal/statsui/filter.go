package statsui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/satprep/internal/model"
)

const dateLayout = "2006-01-02"

const (
	fieldSince = iota
	fieldLast
	fieldWindow
	fieldCount
)

var (
	errBadSince  = errors.New("invalid since date (expected YYYY-MM-DD)")
	errBadLast   = errors.New("invalid last value (use 0 or a positive integer)")
	errBadWindow = errors.New("invalid curve window (use an integer >= 1)")
)

// filterForm edits the analytics filters in place of the tab body.
type filterForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	err    string
}

func newFilterForm() filterForm {
	var f filterForm
	for i, prompt := range [fieldCount]string{"Since (YYYY-MM-DD): ", "Last N tests: ", "Curve window: "} {
		in := textinput.New()
		in.Prompt = prompt
		in.Cursor.SetMode(cursor.CursorBlink)
		f.inputs[i] = in
	}
	return f
}

func (f *filterForm) load(cfg model.StatsConfig) {
	since := ""
	if cfg.Since != nil {
		since = cfg.Since.Format(dateLayout)
	}
	last := ""
	if cfg.Last > 0 {
		last = strconv.Itoa(cfg.Last)
	}
	f.inputs[fieldSince].SetValue(since)
	f.inputs[fieldLast].SetValue(last)
	f.inputs[fieldWindow].SetValue(strconv.Itoa(cfg.CurveWindow))
	f.err = ""
}

func (f *filterForm) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = maxInt(10, width-lipgloss.Width(f.inputs[i].Prompt)-2)
	}
}

// focusField moves focus, wrapping at both ends.
func (f *filterForm) focusField(idx int) tea.Cmd {
	f.focus = (idx%fieldCount + fieldCount) % fieldCount
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == f.focus {
			cmd = f.inputs[i].Focus()
			continue
		}
		f.inputs[i].Blur()
	}
	return cmd
}

func (f *filterForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// parse validates the form. An empty curve window means no smoothing.
func (f *filterForm) parse() (model.StatsConfig, error) {
	cfg := model.StatsConfig{CurveWindow: 1}
	if v := strings.TrimSpace(f.inputs[fieldSince].Value()); v != "" {
		since, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			return cfg, errBadSince
		}
		cfg.Since = &since
	}
	if v := strings.TrimSpace(f.inputs[fieldLast].Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, errBadLast
		}
		cfg.Last = n
	}
	if v := strings.TrimSpace(f.inputs[fieldWindow].Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, errBadWindow
		}
		cfg.CurveWindow = n
	}
	return cfg, nil
}

func (f *filterForm) view() string {
	lines := make([]string, 0, fieldCount+2)
	lines = append(lines, "Filters")
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}
