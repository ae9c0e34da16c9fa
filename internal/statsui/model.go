// Package statsui provides the Bubble Tea analytics interface.
package statsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/stats"
)

// Model implements the Bubble Tea analytics UI.
type Model struct {
	source stats.Source
	cfg    model.StatsConfig

	report  stats.Report
	loadErr error

	active   pane
	overall  viewport.Model
	progress viewport.Model
	weak     table.Model

	filter  filterForm
	editing bool
	help    help.Model

	width  int
	height int
}

// NewModel constructs an analytics UI model and loads the first report.
func NewModel(source stats.Source, cfg model.StatsConfig) *Model {
	if cfg.CurveWindow < 1 {
		cfg.CurveWindow = 1
	}
	m := &Model{
		source:   source,
		cfg:      cfg,
		overall:  viewport.New(0, 0),
		progress: viewport.New(0, 0),
		weak:     newWeakTable(),
		filter:   newFilterForm(),
		help:     help.New(),
	}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderPanes()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.editing {
			return m, m.updateEditing(msg)
		}
		return m, m.updateBrowsing(msg)
	}
	return m, nil
}

func (m *Model) updateBrowsing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.PrevTab):
		m.switchPane(-1)
		return tea.ClearScreen
	case key.Matches(msg, keys.NextTab):
		m.switchPane(1)
		return tea.ClearScreen
	case key.Matches(msg, keys.Wider):
		m.setCurveWindow(nextCurveWindow(m.cfg.CurveWindow))
		return nil
	case key.Matches(msg, keys.Narrower):
		m.setCurveWindow(prevCurveWindow(m.cfg.CurveWindow))
		return nil
	case key.Matches(msg, keys.Settings):
		m.editing = true
		m.filter.load(m.cfg)
		return m.filter.focusField(fieldSince)
	case key.Matches(msg, keys.Top):
		m.scrollEdge(true)
		return nil
	case key.Matches(msg, keys.Bottom):
		m.scrollEdge(false)
		return nil
	}

	var cmd tea.Cmd
	switch m.active {
	case paneWeak:
		m.weak, cmd = m.weak.Update(msg)
	case paneOverall:
		m.overall, cmd = m.overall.Update(msg)
	case paneProgress:
		m.progress, cmd = m.progress.Update(msg)
	}
	return cmd
}

func (m *Model) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, filterKeys.Cancel):
		m.editing = false
		return nil
	case key.Matches(msg, filterKeys.Apply):
		cfg, err := m.filter.parse()
		if err != nil {
			m.filter.err = err.Error()
			return nil
		}
		m.editing = false
		m.cfg = cfg
		m.reload()
		return nil
	case key.Matches(msg, filterKeys.Next):
		return m.filter.focusField(m.filter.focus + 1)
	case key.Matches(msg, filterKeys.Prev):
		return m.filter.focusField(m.filter.focus - 1)
	}
	return m.filter.update(msg)
}

func (m *Model) switchPane(delta int) {
	m.active = pane((int(m.active) + delta + int(paneCount)) % int(paneCount))
	if m.active == paneWeak {
		m.weak.Focus()
	} else {
		m.weak.Blur()
	}
}

func (m *Model) setCurveWindow(n int) {
	m.cfg.CurveWindow = n
	m.reload()
}

func (m *Model) scrollEdge(top bool) {
	switch {
	case m.active == paneWeak && top:
		m.weak.GotoTop()
	case m.active == paneWeak:
		m.weak.GotoBottom()
	case top:
		m.activeViewport().GotoTop()
	default:
		m.activeViewport().GotoBottom()
	}
}

func (m *Model) activeViewport() *viewport.Model {
	if m.active == paneProgress {
		return &m.progress
	}
	return &m.overall
}

// reload rebuilds the report for the current filters.
func (m *Model) reload() {
	report, err := stats.BuildReport(context.Background(), m.source, m.cfg)
	m.loadErr = err
	if err == nil {
		m.report = report
		m.weak.SetRows(weakTableRows(stats.SelectWeakAreas(report.Record, 0)))
	}
	m.resize()
	m.renderPanes()
}

func (m *Model) renderPanes() {
	if m.loadErr != nil {
		m.overall.SetContent(loadFailedText)
		m.progress.SetContent(loadFailedText)
		return
	}
	width := m.width
	if width <= 0 {
		width = narrowCardWidth
	}
	m.overall.SetContent(overallContent(m.report, width))
	m.progress.SetContent(progressContent(m.report, m.cfg.CurveWindow, width))
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, body, _ := m.heights()
	m.overall.Width, m.overall.Height = m.width, body
	m.progress.Width, m.progress.Height = m.width, body
	m.weak.SetWidth(m.width)
	m.weak.SetHeight(maxInt(1, body-1))
	m.filter.setWidth(m.width)
	m.help.Width = m.width
}

func (m *Model) heights() (header, body, footer int) {
	header = lipgloss.Height(activeTabStyle.Render("X")) + 1
	footer = 1
	if !m.editing && m.loadErr != nil {
		footer++
	}
	body = maxInt(1, m.height-header-footer)
	return header, body, footer
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	hh, bh, fh := m.heights()
	return strings.Join([]string{
		fitLines(m.headerView(), m.width, hh),
		fitLines(m.bodyView(), m.width, bh),
		fitLines(m.footerView(), m.width, fh),
	}, "\n")
}

func (m *Model) headerView() string {
	tabs := make([]string, paneCount)
	for i, title := range paneTitles {
		if pane(i) == m.active {
			tabs[i] = activeTabStyle.Render(title)
		} else {
			tabs[i] = idleTabStyle.Render(title)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n" + mutedStyle.Render(truncateLine(m.filterSummary(), m.width))
}

func (m *Model) filterSummary() string {
	since, last := "any", "all"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format(dateLayout)
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	return fmt.Sprintf("Filters: since=%s  last=%s  window=%d", since, last, m.cfg.CurveWindow)
}

func (m *Model) bodyView() string {
	switch {
	case m.editing:
		return m.filter.view()
	case m.active == paneWeak && len(m.weak.Rows()) == 0:
		return "No weak areas recorded."
	case m.active == paneWeak:
		return weakTextStyle.Render(m.weak.View())
	default:
		return m.activeViewport().View()
	}
}

func (m *Model) footerView() string {
	if m.editing {
		return m.help.ShortHelpView(filterKeys.ShortHelp())
	}
	out := m.help.ShortHelpView(keys.ShortHelp())
	if m.loadErr != nil {
		out += "\n" + errorStyle.Render(m.loadErr.Error())
	}
	return out
}
