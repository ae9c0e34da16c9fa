// Package tui provides the Bubble Tea practice test interface.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/satprep/internal/engine"
	"github.com/verte-zerg/satprep/internal/export"
	"github.com/verte-zerg/satprep/internal/model"
)

// RecordSource provides the analytics record shown on the menu footer.
type RecordSource interface {
	Record() model.AnalyticsRecord
}

type tickMsg time.Time

// Model implements the Bubble Tea practice test UI.
type Model struct {
	engine  *engine.Engine
	records RecordSource
	view    engine.View
	unsub   func()

	width  int
	height int

	resumePrompt bool

	exporting   bool
	exportInput textinput.Model
	exportMsg   string

	reviewing bool
	review    viewport.Model
}

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	textStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	optionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// NewModel constructs the test UI around an engine.
func NewModel(eng *engine.Engine, records RecordSource) *Model {
	m := &Model{
		engine:       eng,
		records:      records,
		view:         eng.View(),
		resumePrompt: eng.HasSnapshot(),
		review:       viewport.New(0, 0),
	}
	m.unsub = eng.Subscribe(func(v engine.View) {
		m.view = v
	})
	m.exportInput = textinput.New()
	m.exportInput.Prompt = "Save to: "
	m.exportInput.Placeholder = "results.json or results.xlsx"
	return m
}

// Close detaches the model from the engine.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.review.Width = msg.Width
		m.review.Height = maxInt(1, msg.Height-2)
		m.exportInput.Width = maxInt(10, msg.Width-lipgloss.Width(m.exportInput.Prompt)-2)
		return m, nil
	case tickMsg:
		m.dispatch(engine.Tick{})
		return m, tick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.resumePrompt:
		return m.updateResumePrompt(msg)
	case m.exporting:
		return m.updateExport(msg)
	case m.reviewing:
		return m.updateReview(msg)
	}
	switch {
	case m.view.Phase == model.PhaseMenu:
		return m.updateMenu(msg)
	case m.view.Phase.Running():
		return m.updateExam(msg)
	case m.view.Phase == model.PhaseBreak:
		return m.updateBreak(msg)
	case m.view.Phase == model.PhaseResults:
		return m.updateResults(msg)
	}
	return m, nil
}

func (m *Model) updateResumePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.resumePrompt = false
		m.dispatch(engine.Resume{})
	case "n", "esc":
		m.resumePrompt = false
		m.dispatch(engine.DiscardSnapshot{})
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "s":
		m.dispatch(engine.StartFullTest{})
	case "q", "esc":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateExam(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view.AwaitingConfirm {
		switch msg.String() {
		case "y", "enter":
			m.dispatch(engine.SubmitSection{Confirmed: true})
		case "n", "esc":
			m.dispatch(engine.CancelSubmit{})
		}
		return m, nil
	}
	key := msg.String()
	switch key {
	case "left", "h", "p":
		m.dispatch(engine.Navigate{Delta: -1})
	case "right", "l", "n":
		m.dispatch(engine.Navigate{Delta: 1})
	case "s":
		m.dispatch(engine.SubmitSection{})
	case "q":
		// The snapshot is kept so the session can be resumed.
		return m, tea.Quit
	default:
		if choice, ok := choiceForKey(key); ok {
			m.dispatch(engine.RecordAnswer{Index: m.view.Index, Choice: choice})
		}
	}
	return m, nil
}

func (m *Model) updateBreak(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "c":
		m.dispatch(engine.ContinueAfterBreak{})
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "e":
		m.exporting = true
		m.exportMsg = ""
		m.exportInput.SetValue("")
		return m, m.exportInput.Focus()
	case "r":
		m.reviewing = true
		m.review.SetContent(renderReview(m.view.Results, m.contentWidth()))
		m.review.GotoTop()
	case "m", "esc":
		m.exportMsg = ""
		m.dispatch(engine.BackToMenu{})
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateExport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.exporting = false
		m.exportInput.Blur()
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.exportInput.Value())
		if path == "" {
			m.exportMsg = "Enter a file path."
			return m, nil
		}
		m.exporting = false
		m.exportInput.Blur()
		m.exportMsg = m.exportResults(path)
		return m, nil
	}
	var cmd tea.Cmd
	m.exportInput, cmd = m.exportInput.Update(msg)
	return m, cmd
}

func (m *Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "r", "q":
		m.reviewing = false
		return m, nil
	}
	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)
	return m, cmd
}

func (m *Model) exportResults(path string) string {
	if m.view.Results == nil {
		return "No results to export."
	}
	if err := export.Write(path, export.Build(*m.view.Results)); err != nil {
		var exportErr *export.Error
		if errors.As(err, &exportErr) {
			return exportErr.Error()
		}
		return fmt.Sprintf("Export failed: %v", err)
	}
	return fmt.Sprintf("Results saved to %s", path)
}

// dispatch forwards an action. Failures surface through View.Notice.
func (m *Model) dispatch(a engine.Action) {
	_ = m.engine.Dispatch(a)
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch {
	case m.resumePrompt:
		content = m.renderModal("Resume previous test?", "A saved session was found.", "y: resume   n: discard")
	case m.reviewing:
		return m.review.View() + "\n" + footerStyle.Render("Scroll: up/down/pgup/pgdn  Back: esc")
	case m.view.Phase == model.PhaseMenu:
		content = m.renderMenu()
	case m.view.Phase.Running():
		if m.view.AwaitingConfirm {
			content = m.renderConfirm()
		} else {
			content = m.renderQuestion()
		}
	case m.view.Phase == model.PhaseBreak:
		content = m.renderBreak()
	case m.view.Phase == model.PhaseResults:
		content = m.renderResults()
	}
	return m.place(content, m.renderFooter())
}

func (m *Model) place(content, footer string) string {
	if m.width == 0 || m.height == 0 {
		if footer == "" {
			return content
		}
		return content + "\n" + footer
	}
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 80
	}
	w := int(float64(m.width) * 0.70)
	if w < 20 {
		w = minInt(m.width, 20)
	}
	return w
}

func (m *Model) renderMenu() string {
	lines := []string{
		titleStyle.Render("SAT Practice Test"),
		"",
		textStyle.Render("enter  Start full test"),
		textStyle.Render("q      Quit"),
		"",
		mutedStyle.Render("Analytics: run `satprep stats`"),
	}
	if m.view.Notice != "" {
		lines = append(lines, "", incorrectStyle.Render(m.view.Notice))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderQuestion() string {
	v := m.view
	width := m.contentWidth()
	header := titleStyle.Render(fmt.Sprintf("%s · Question %d/%d", v.Section.Title(), v.Index+1, v.Total))
	timer := formatRemaining(v.Remaining)
	if v.Remaining <= time.Minute {
		timer = incorrectStyle.Render(timer)
	} else {
		timer = mutedStyle.Render(timer)
	}
	lines := []string{header + "  " + timer, ""}
	if v.Question == nil {
		lines = append(lines, mutedStyle.Render("No questions available."))
		return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
	}
	lines = append(lines, wrapText(v.Question.Text, width, textStyle), "")
	for i, opt := range v.Question.Options {
		style := optionStyle
		prefix := "  "
		if v.HasSelection && v.Selected.Index() == i {
			style = selectedStyle
			prefix = "> "
		}
		lines = append(lines, wrapHanging(prefix, opt, width, style))
	}
	if v.Notice != "" {
		lines = append(lines, "", incorrectStyle.Render(v.Notice))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderConfirm() string {
	v := m.view
	body := fmt.Sprintf("You answered %d of %d questions.", v.Answered, v.Total)
	return m.renderModal(fmt.Sprintf("Submit %s?", v.Section.Title()), body, "y: submit   n: keep working")
}

func (m *Model) renderModal(title, body, help string) string {
	content := strings.Join([]string{
		titleStyle.Render(title),
		"",
		textStyle.Render(body),
		"",
		mutedStyle.Render(help),
	}, "\n")
	return modalStyle.Render(content)
}

func (m *Model) renderBreak() string {
	lines := []string{
		titleStyle.Render("Break"),
		"",
		textStyle.Render(fmt.Sprintf("%s remaining", formatRemaining(m.view.Remaining))),
		mutedStyle.Render(fmt.Sprintf("Next: %s", model.SectionMath.Title())),
		"",
		mutedStyle.Render("enter  Continue now"),
	}
	if m.view.Notice != "" {
		lines = append(lines, "", incorrectStyle.Render(m.view.Notice))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderResults() string {
	r := m.view.Results
	if r == nil {
		return mutedStyle.Render("No results.")
	}
	lines := []string{titleStyle.Render("Results"), ""}
	for _, sec := range model.Sections {
		score := r.Scores[sec]
		lines = append(lines, textStyle.Render(fmt.Sprintf("%-20s %d/%d  (%.1f%%)", sec.Title(), score.Correct, score.Total, score.Percentage())))
	}
	lines = append(lines, "", titleStyle.Render("Focus Areas"))
	for _, sec := range model.Sections {
		weak := r.WeakTop[sec]
		if len(weak) == 0 {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s: none", sec.Title())))
			continue
		}
		names := make([]string, 0, len(weak))
		for _, c := range weak {
			names = append(names, fmt.Sprintf("%s (%d)", c.Category, c.Incorrect))
		}
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s: %s", sec.Title(), strings.Join(names, ", "))))
	}
	if r.SaveWarning != "" {
		lines = append(lines, "", incorrectStyle.Render(r.SaveWarning))
	}
	if m.exporting {
		lines = append(lines, "", m.exportInput.View())
	}
	if m.exportMsg != "" {
		lines = append(lines, "", mutedStyle.Render(m.exportMsg))
	}
	return strings.Join(lines, "\n")
}

func renderReview(r *model.Results, width int) string {
	if r == nil {
		return "No results."
	}
	var b strings.Builder
	for _, sec := range model.Sections {
		b.WriteString(titleStyle.Render(sec.Title()))
		b.WriteString("\n\n")
		for i, a := range r.Answers[sec] {
			mark := incorrectStyle.Render("x")
			if a.IsCorrect {
				mark = correctStyle.Render("ok")
			}
			b.WriteString(wrapHanging(fmt.Sprintf("%d. ", i+1), a.QuestionText, width, textStyle))
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf("   %s  yours: %s  correct: %s  [%s]\n\n", mark, a.UserAnswer, a.CorrectAnswer, a.Category))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderFooter() string {
	var segments []string
	switch {
	case m.view.Phase.Running():
		segments = append(segments,
			fmt.Sprintf("Answered %d/%d", m.view.Answered, m.view.Total),
			"a-d: answer  left/right: move  s: submit  q: quit",
		)
	case m.view.Phase == model.PhaseResults:
		segments = append(segments, "e: export  r: review  m: menu  q: quit")
	case m.view.Phase == model.PhaseMenu && m.records != nil:
		rec := m.records.Record()
		if rec.TestsTaken > 0 {
			segments = append(segments, fmt.Sprintf("Tests %d", rec.TestsTaken))
			if n := len(rec.History); n > 0 {
				last := rec.History[n-1]
				segments = append(segments, fmt.Sprintf("Last RW %.1f%% · Math %.1f%%", last.RW, last.Math))
			}
			segments = append(segments, fmt.Sprintf("Best RW %.1f%% · Math %.1f%%", rec.BestScores[model.SectionRW], rec.BestScores[model.SectionMath]))
		}
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func choiceForKey(key string) (model.Choice, bool) {
	switch strings.ToLower(key) {
	case "a", "1":
		return model.ChoiceA, true
	case "b", "2":
		return model.ChoiceB, true
	case "c", "3":
		return model.ChoiceC, true
	case "d", "4":
		return model.ChoiceD, true
	}
	return 0, false
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
