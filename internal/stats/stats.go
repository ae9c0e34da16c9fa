package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/satprep/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints tests taken and per-section average and best scores.
func RenderSummary(w io.Writer, rec model.AnalyticsRecord) error {
	if rec.TestsTaken == 0 {
		_, err := fmt.Fprintln(w, "No completed tests yet.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Overall"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Tests taken: %d\n", rec.TestsTaken); err != nil {
		return err
	}
	rows := make([][]string, 0, len(model.Sections))
	for _, sec := range model.Sections {
		rows = append(rows, []string{
			sec.Title(),
			fmt.Sprintf("%.1f%%", rec.AverageScores[sec]),
			fmt.Sprintf("%.1f%%", rec.BestScores[sec]),
			Sparkline(historyValues(rec.History, sec)),
		})
	}
	if err := writeTable(w, []column{left("Section"), right("Average"), right("Best"), left("Trend")}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderHistory prints the most recent n history entries, oldest first.
func RenderHistory(w io.Writer, history []model.HistoryEntry, n int) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "No history yet.")
		return err
	}
	recent := RecentHistory(history, n)
	if _, err := fmt.Fprintf(w, "Recent Tests (last %d)\n", len(recent)); err != nil {
		return err
	}
	rows := make([][]string, 0, len(recent))
	for _, h := range recent {
		rows = append(rows, []string{
			h.Date,
			fmt.Sprintf("%.1f%%", h.RW),
			fmt.Sprintf("%.1f%%", h.Math),
			shortID(h.AttemptID),
		})
	}
	if err := writeTable(w, []column{left("Date"), right("RW"), right("Math"), left("Attempt")}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves prints score progress for both sections.
func RenderCurves(w io.Writer, history []model.HistoryEntry, window int) error {
	return RenderCurvesWithSize(w, history, window, 0, 10, false)
}

// RenderCurvesWithSize prints score progress sized to a given total width.
func RenderCurvesWithSize(w io.Writer, history []model.HistoryEntry, window, totalWidth, height int, useColor bool) error {
	if len(history) == 0 {
		return nil
	}
	series := make([]Series, 0, len(model.Sections))
	for _, sec := range model.Sections {
		series = append(series, Series{
			Name:   sec.Title(),
			Values: MovingAverage(historyValues(history, sec), window),
		})
	}
	opts := ChartOptions{Height: height, Color: useColor}
	if totalWidth > 0 {
		opts.Width = ChartWidthFor(totalWidth)
	}
	return PlotScores(w, "Score Progress", series, opts)
}

// HistorySince drops entries dated before since. A nil since keeps everything.
func HistorySince(history []model.HistoryEntry, since *time.Time) []model.HistoryEntry {
	if since == nil {
		return history
	}
	cutoff := since.Format("2006-01-02")
	out := make([]model.HistoryEntry, 0, len(history))
	for _, h := range history {
		if h.Date >= cutoff {
			out = append(out, h)
		}
	}
	return out
}

// RecentHistory returns the last n entries. n <= 0 returns all of them.
func RecentHistory(history []model.HistoryEntry, n int) []model.HistoryEntry {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func historyValues(history []model.HistoryEntry, sec model.Section) []float64 {
	out := make([]float64, len(history))
	for i, h := range history {
		if sec == model.SectionMath {
			out[i] = h.Math
		} else {
			out[i] = h.RW
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
