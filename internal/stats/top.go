package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/verte-zerg/satprep/internal/store"
)

// TopAttempts returns the n attempts with the highest combined percentage.
func TopAttempts(attempts []store.AttemptSummary, n int) []store.AttemptSummary {
	if n <= 0 || len(attempts) == 0 {
		return nil
	}
	items := make([]store.AttemptSummary, len(attempts))
	copy(items, attempts)
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := combined(items[i]), combined(items[j])
		if ci == cj {
			return items[i].FinishedAt.After(items[j].FinishedAt)
		}
		return ci > cj
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// RenderTopAttempts prints the best attempts in the filtered window.
func RenderTopAttempts(w io.Writer, attempts []store.AttemptSummary, n int) error {
	top := TopAttempts(attempts, n)
	if len(top) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Best Attempts"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(top))
	for _, a := range top {
		rows = append(rows, []string{
			a.FinishedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", a.RW.Correct, a.RW.Total),
			fmt.Sprintf("%d/%d", a.Math.Correct, a.Math.Total),
			fmt.Sprintf("%.1f%%", combined(a)),
			shortID(a.ID),
		})
	}
	if err := writeTable(w, []column{left("Finished"), right("RW"), right("Math"), right("Combined"), left("Attempt")}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func combined(a store.AttemptSummary) float64 {
	total := a.RW.Total + a.Math.Total
	if total == 0 {
		return 0
	}
	return float64(a.RW.Correct+a.Math.Correct) / float64(total) * 100
}
