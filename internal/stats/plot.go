// Package stats renders analytics for completed practice tests.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// Series is one score line on a progress chart. Values are percentages.
type Series struct {
	Name   string
	Values []float64
}

// ChartOptions controls chart size and color. Zero values pick defaults.
type ChartOptions struct {
	Width  int
	Height int
	Color  bool
}

const (
	defaultChartHeight  = 10
	minChartWidth       = 10
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	fallbackTermWidth   = 80
	dotsPerCellX        = 2
	dotsPerCellY        = 4
	dashPeriod, dashOn  = 6, 3
	chartLegendPrefix   = "Legend: "
	chartScaleCaption   = "Scores in percent."
	chartSeriesTemplate = "%s: latest=%.1f%% best=%.1f%%\n"
)

// Axis ticks, top to bottom.
var axisTicks = []float64{100, 75, 50, 25, 0}

var seriesColors = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
}

// PlotScores draws a braille line chart of percentage series on a fixed 0-100 axis.
func PlotScores(w io.Writer, title string, series []Series, opts ChartOptions) error {
	series = nonEmpty(series)
	if len(series) == 0 {
		return nil
	}
	width, height := opts.Width, opts.Height
	if height <= 0 {
		height = defaultChartHeight
	}
	if width <= 0 {
		width = ChartWidthFor(currentTermWidth())
	}
	width = max(width, minChartWidth)

	layers := make([]*canvas, len(series))
	for i, s := range series {
		layers[i] = newCanvas(width, height)
		layers[i].polyline(resample(s.Values, width), i%2 == 1)
	}
	useColor := colorEnabled(w, opts.Color)

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	b.WriteString(chartScaleCaption + "\n")
	for _, s := range series {
		b.WriteString(fmt.Sprintf(chartSeriesTemplate, s.Name, s.Values[len(s.Values)-1], maxOf(s.Values)))
	}
	labels := tickLabels(height)
	labelWidth := utf8.RuneCountInString("100")
	for y := 0; y < height; y++ {
		b.WriteString(fmt.Sprintf("%*s%s", labelWidth, labels[y], axisSeparator))
		for x := 0; x < width; x++ {
			ch, owner := compose(layers, x, y)
			if useColor && owner >= 0 {
				b.WriteString(seriesColors[owner%len(seriesColors)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(ch)
		}
		b.WriteString("\n")
	}
	b.WriteString(legend(series, useColor) + "\n\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// ChartWidthFor returns the plot area width that fits a total line width.
func ChartWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minChartWidth
	}
	axisWidth := utf8.RuneCountInString("100") + utf8.RuneCountInString(axisSeparator)
	return max(totalWidth-axisWidth, minChartWidth)
}

func nonEmpty(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func maxOf(values []float64) float64 {
	best := math.Inf(-1)
	for _, v := range values {
		best = math.Max(best, v)
	}
	return best
}

func currentTermWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTermWidth
	}
	return width
}

func colorEnabled(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// tickLabels places each axis tick on the row closest to its value.
func tickLabels(height int) []string {
	labels := make([]string, height)
	for _, tick := range axisTicks {
		row := percentToDot(tick, height*dotsPerCellY) / dotsPerCellY
		if labels[row] == "" {
			labels[row] = fmt.Sprintf("%.0f", tick)
		}
	}
	return labels
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		stroke := "solid"
		if i%2 == 1 {
			stroke = "dashed"
		}
		label := fmt.Sprintf("%c %s (%s)", braille(0x01), s.Name, stroke)
		if useColor {
			label = seriesColors[i%len(seriesColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return chartLegendPrefix + strings.Join(parts, "  ")
}

// resample maps values onto width columns, averaging buckets when there are
// more values than columns and interpolating when there are fewer.
func resample(values []float64, width int) []float64 {
	n := len(values)
	out := make([]float64, width)
	switch {
	case n == 0 || width <= 0:
		return nil
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	case n >= width:
		for i := range out {
			lo := i * n / width
			hi := max((i+1)*n/width, lo+1)
			var sum float64
			for _, v := range values[lo:hi] {
				sum += v
			}
			out[i] = sum / float64(hi-lo)
		}
	default:
		step := float64(n-1) / float64(width-1)
		for i := range out {
			pos := float64(i) * step
			idx := min(int(pos), n-2)
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

// percentToDot converts a percentage to a dot row, 0 at the top.
func percentToDot(v float64, dots int) int {
	if dots <= 1 {
		return 0
	}
	v = math.Min(math.Max(v, 0), 100)
	return int(math.Round((1 - v/100) * float64(dots-1)))
}

// canvas is a grid of braille cells, each holding a 2x4 dot mask.
type canvas struct {
	cells [][]uint8
}

func newCanvas(width, height int) *canvas {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return &canvas{cells: cells}
}

func (c *canvas) set(x, y int) {
	cy, cx := y/dotsPerCellY, x/dotsPerCellX
	if x < 0 || y < 0 || cy >= len(c.cells) || cx >= len(c.cells[cy]) {
		return
	}
	c.cells[cy][cx] |= dotBit(x%dotsPerCellX, y%dotsPerCellY)
}

// polyline connects one point per column. Dashed lines skip dots by x.
func (c *canvas) polyline(values []float64, dashed bool) {
	dots := len(c.cells) * dotsPerCellY
	plot := func(x, y int) {
		if !dashed || x%dashPeriod < dashOn {
			c.set(x, y)
		}
	}
	prevX, prevY := -1, -1
	for col, v := range values {
		x, y := col*dotsPerCellX, percentToDot(v, dots)
		if prevX < 0 {
			plot(x, y)
		} else {
			bresenham(prevX, prevY, x, y, plot)
		}
		prevX, prevY = x, y
	}
}

// compose merges layers into one braille rune. The owner is the first layer
// with a dot in the cell, or -1.
func compose(layers []*canvas, x, y int) (rune, int) {
	var mask uint8
	owner := -1
	for i, l := range layers {
		m := l.cells[y][x]
		if m != 0 && owner < 0 {
			owner = i
		}
		mask |= m
	}
	return braille(mask), owner
}

func bresenham(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// dotBit returns the braille bit for a dot at column x (0-1) and row y (0-3).
func dotBit(x, y int) uint8 {
	if y == 3 {
		return 0x40 << x
	}
	return 1 << (y + 3*x)
}

func braille(mask uint8) rune {
	return rune(0x2800 + int(mask))
}
