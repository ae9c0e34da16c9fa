package statsui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/stats"
)

type pane int

const (
	paneOverall pane = iota
	paneWeak
	paneProgress
	paneCount
)

var paneTitles = [paneCount]string{"Overall", "Weak Areas", "Progress"}

const (
	chartHeight     = 10
	narrowCardWidth = 80
	loadFailedText  = "Failed to load analytics."
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	idleTabStyle = activeTabStyle.
			Bold(false).
			Foreground(lipgloss.Color("#B0B0B0")).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	weakTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

func overallContent(report stats.Report, width int) string {
	rec := report.Record
	if rec.TestsTaken == 0 {
		return "No completed tests yet. Finish a full test to see analytics."
	}
	var buf bytes.Buffer
	if err := stats.RenderTopAttempts(&buf, report.Attempts, stats.HistoryCount); err != nil {
		return fmt.Sprintf("Failed to render attempts: %v", err)
	}
	return strings.TrimRight(scoreCards(rec, width)+"\n\n"+buf.String(), "\n")
}

// scoreCards lays out one card per metric, stacking them on narrow screens.
func scoreCards(rec model.AnalyticsRecord, width int) string {
	taken := card("Tests Taken", strconv.Itoa(rec.TestsTaken))
	perSection := make([]string, 0, 2*len(model.Sections))
	for _, sec := range model.Sections {
		perSection = append(perSection,
			card(sec.Title()+" Avg", fmt.Sprintf("%.1f%%", rec.AverageScores[sec])),
			card(sec.Title()+" Best", fmt.Sprintf("%.1f%%", rec.BestScores[sec])),
		)
	}
	if width < narrowCardWidth {
		return lipgloss.JoinVertical(lipgloss.Left, append([]string{taken}, perSection...)...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, taken, lipgloss.JoinHorizontal(lipgloss.Top, perSection...))
}

func card(label, value string) string {
	return cardStyle.Render(cardLabelStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func progressContent(report stats.Report, window, width int) string {
	if len(report.History) == 0 {
		return "No history yet."
	}
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, report.History, window, width, chartHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	if err := stats.RenderHistory(&buf, report.History, stats.HistoryCount); err != nil {
		return fmt.Sprintf("Failed to render history: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func newWeakTable() table.Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.Foreground(lipgloss.Color("#F0F0F0")).Bold(true)

	t := table.New(table.WithColumns([]table.Column{
		{Title: "Section", Width: 20},
		{Title: "Category", Width: 28},
		{Title: "Missed", Width: 7},
	}))
	t.SetStyles(styles)
	return t
}

func weakTableRows(rows []stats.WeakRow) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		out[i] = table.Row{r.Section.Title(), r.Category, strconv.Itoa(r.Incorrect)}
	}
	return out
}
