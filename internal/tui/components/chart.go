package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline renders a unicode sparkline from values, scaled between the
// series minimum and maximum.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	style := lipgloss.NewStyle().Foreground(color)

	var buf strings.Builder
	buf.Grow(len(values) * 4) // UTF-8 block chars are up to 3 bytes
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(blocks)-1))
		idx = max(0, min(idx, len(blocks)-1))
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// Series is one plotted line. NaN values leave a gap.
type Series struct {
	Values []float64
	Color  lipgloss.Color
	Glyph  rune
}

// HLine is a horizontal reference line across the plot.
type HLine struct {
	Value float64
	Color lipgloss.Color
}

type cell struct {
	r     rune
	color lipgloss.Color
}

// LineChart plots series against shared x positions with optional reference
// lines. marker draws a vertical guide at that x index (-1 for none). labels,
// when it has one entry per x position, supplies x-axis labels; only the
// first, marker and last labels are printed.
func LineChart(series []Series, lines []HLine, marker int, labels []string, width, height int) string {
	n := 0
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		n = max(n, len(s.Values))
		for _, v := range s.Values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
	}
	if n == 0 || math.IsInf(lo, 1) {
		return ""
	}
	for _, l := range lines {
		lo, hi = math.Min(lo, l.Value), math.Max(hi, l.Value)
	}
	if hi == lo {
		hi, lo = hi+1, lo-1
	}
	margin := (hi - lo) * 0.05
	hi, lo = hi+margin, lo-margin

	t := theme.Active
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	topLabel, midLabel, botLabel := formatChartLabel(hi), formatChartLabel((hi+lo)/2), formatChartLabel(lo)
	yLabelW := max(len(topLabel), len(midLabel), len(botLabel)) + 1

	plotW := max(width-yLabelW-1, 10)
	plotH := max(height-2, 3)

	grid := make([][]cell, plotH)
	for i := range grid {
		grid[i] = make([]cell, plotW)
		for j := range grid[i] {
			grid[i][j] = cell{r: ' '}
		}
	}
	row := func(v float64) int {
		r := int(math.Round((hi - v) / (hi - lo) * float64(plotH-1)))
		return max(0, min(r, plotH-1))
	}
	col := func(i int) int {
		if n == 1 {
			return 0
		}
		return i * (plotW - 1) / (n - 1)
	}

	for _, l := range lines {
		r := row(l.Value)
		for j := range grid[r] {
			grid[r][j] = cell{r: '┈', color: l.Color}
		}
	}
	if marker >= 0 && marker < n {
		c := col(marker)
		for i := range grid {
			if grid[i][c].r == ' ' {
				grid[i][c] = cell{r: '┊', color: t.TextDim}
			}
		}
	}
	for _, s := range series {
		glyph := s.Glyph
		if glyph == 0 {
			glyph = '•'
		}
		for i, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			grid[row(v)][col(i)] = cell{r: glyph, color: s.Color}
		}
	}

	var b strings.Builder
	for i, line := range grid {
		label := ""
		switch i {
		case 0:
			label = topLabel
		case plotH / 2:
			label = midLabel
		case plotH - 1:
			label = botLabel
		}
		b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, label)))
		b.WriteString(axisStyle.Render("│"))
		for _, c := range line {
			if c.color == "" {
				b.WriteRune(c.r)
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(c.color).Render(string(c.r)))
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat(" ", yLabelW))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", plotW)))

	if len(labels) == n {
		buf := []byte(strings.Repeat(" ", plotW))
		place := func(i int) {
			lbl := labels[i]
			pos := col(i)
			if pos+len(lbl) > plotW {
				pos = plotW - len(lbl)
			}
			if pos < 0 || lbl == "" {
				return
			}
			copy(buf[pos:], lbl)
		}
		place(0)
		if marker > 0 && marker < n-1 {
			place(marker)
		}
		if n > 1 {
			place(n - 1)
		}
		b.WriteString("\n")
		b.WriteString(strings.Repeat(" ", yLabelW+1))
		b.WriteString(axisStyle.Render(strings.TrimRight(string(buf), " ")))
	}

	return b.String()
}

func formatChartLabel(v float64) string {
	if v < 0 {
		return "-" + formatChartLabel(-v)
	}
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	case v >= 10:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
