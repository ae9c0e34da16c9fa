package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// column describes one table column. maxWidth 0 means unbounded.
type column struct {
	title    string
	right    bool
	maxWidth int
}

func left(title string) column  { return column{title: title} }
func right(title string) column { return column{title: title, right: true} }

// capped truncates cells wider than n terminal cells with an ellipsis.
func (c column) capped(n int) column {
	c.maxWidth = n
	return c
}

const ellipsis = "..."

// layoutTable renders a header line and one line per row. Widths are measured
// in terminal cells so wide runes in category names keep columns aligned.
func layoutTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	cells := make([][]string, 0, len(rows)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.title
	}
	cells = append(cells, header)
	for _, row := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			if i < len(row) {
				line[i] = fitCell(row[i], c.maxWidth)
			}
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(cols))
	for _, line := range cells {
		for i, cell := range line {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	out := make([]string, len(cells))
	for n, line := range cells {
		var b strings.Builder
		for i, cell := range line {
			if i > 0 {
				b.WriteByte(' ')
			}
			if cols[i].right {
				b.WriteString(runewidth.FillLeft(cell, widths[i]))
			} else if i < len(line)-1 {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			} else {
				b.WriteString(cell)
			}
		}
		out[n] = b.String()
	}
	return out
}

func fitCell(value string, maxWidth int) string {
	if maxWidth <= 0 || runewidth.StringWidth(value) <= maxWidth {
		return value
	}
	return runewidth.Truncate(value, maxWidth, ellipsis)
}

func writeTable(w io.Writer, cols []column, rows [][]string) error {
	for _, line := range layoutTable(cols, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
