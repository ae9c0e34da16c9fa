package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotScores(t *testing.T) {
	var buf bytes.Buffer
	err := PlotScores(&buf, "Score Progress", []Series{
		{Name: "Reading and Writing", Values: []float64{40, 55.5, 70}},
		{Name: "Math", Values: []float64{20, 35, 30}},
	}, ChartOptions{Width: 12, Height: 4})
	if err != nil {
		t.Fatalf("PlotScores failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Score Progress",
		chartScaleCaption,
		"Reading and Writing: latest=70.0% best=70.0%",
		"Math: latest=30.0% best=35.0%",
		"Legend:",
		"(dashed)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	// title + caption + 2 series lines + 4 rows + legend
	if len(lines) != 9 {
		t.Fatalf("expected 9 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[4], "100"+axisSeparator) {
		t.Fatalf("expected top row labelled 100, got %q", lines[4])
	}
	if !strings.HasPrefix(lines[7], "  0"+axisSeparator) {
		t.Fatalf("expected bottom row labelled 0, got %q", lines[7])
	}
}

func TestPlotScoresSkipsEmptySeries(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotScores(&buf, "Empty", []Series{{Name: "Math"}}, ChartOptions{}); err != nil {
		t.Fatalf("PlotScores failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestChartWidthFor(t *testing.T) {
	if got := ChartWidthFor(80); got != 80-len("100")-3 {
		t.Fatalf("expected width %d, got %d", 80-len("100")-3, got)
	}
	if got := ChartWidthFor(0); got != minChartWidth {
		t.Fatalf("expected min width %d, got %d", minChartWidth, got)
	}
	if got := ChartWidthFor(5); got != minChartWidth {
		t.Fatalf("expected min width %d, got %d", minChartWidth, got)
	}
}

func TestResampleInterpolatesAndAverages(t *testing.T) {
	up := resample([]float64{0, 100}, 5)
	want := []float64{0, 25, 50, 75, 100}
	for i := range want {
		if up[i] != want[i] {
			t.Fatalf("interpolate[%d]: expected %v, got %v", i, want[i], up[i])
		}
	}
	down := resample([]float64{10, 20, 30, 40}, 2)
	if down[0] != 15 || down[1] != 35 {
		t.Fatalf("expected bucket averages [15 35], got %v", down)
	}
}

func TestDotBitMatchesBrailleLayout(t *testing.T) {
	cases := map[[2]int]uint8{
		{0, 0}: 0x01, {0, 1}: 0x02, {0, 2}: 0x04, {0, 3}: 0x40,
		{1, 0}: 0x08, {1, 1}: 0x10, {1, 2}: 0x20, {1, 3}: 0x80,
	}
	for pos, want := range cases {
		if got := dotBit(pos[0], pos[1]); got != want {
			t.Fatalf("dotBit(%d,%d): expected %#x, got %#x", pos[0], pos[1], want, got)
		}
	}
}
