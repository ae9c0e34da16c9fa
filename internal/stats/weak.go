package stats

import (
	"fmt"
	"io"

	"github.com/verte-zerg/satprep/internal/model"
	"github.com/verte-zerg/satprep/internal/scoring"
)

// WeakRow is one category in the weak areas table.
type WeakRow struct {
	Section   model.Section
	Category  string
	Incorrect int
}

// SelectWeakAreas returns the top categories with the most misses per section.
func SelectWeakAreas(rec model.AnalyticsRecord, top int) []WeakRow {
	var out []WeakRow
	for _, sec := range model.Sections {
		for _, c := range scoring.TopWeak(rec, sec, top) {
			out = append(out, WeakRow{Section: sec, Category: c.Category, Incorrect: c.Incorrect})
		}
	}
	return out
}

// categoryWidth caps the category column in plain-text reports.
const categoryWidth = 28

// RenderWeakAreas prints the weakest categories per section.
func RenderWeakAreas(w io.Writer, rec model.AnalyticsRecord, top int) error {
	rows := SelectWeakAreas(rec, top)
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No weak areas recorded.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Weak Areas"); err != nil {
		return err
	}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.Section.Title(),
			r.Category,
			fmt.Sprintf("%d", r.Incorrect),
		})
	}
	if err := writeTable(w, []column{left("Section"), left("Category").capped(categoryWidth), right("Missed")}, tableRows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
