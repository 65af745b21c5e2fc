package cli

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/kpicast/internal/model"
)

// Flexoki Dark, shared with the dashboard's default theme.
const (
	colorBorder    = lipgloss.Color("#282726")
	colorTextDim   = lipgloss.Color("#575653")
	colorTextMuted = lipgloss.Color("#6F6E69")
	colorText      = lipgloss.Color("#FFFCF0")
	colorAccent    = lipgloss.Color("#3AA99F")
	colorSafe      = lipgloss.Color("#879A39")
	colorWarning   = lipgloss.Color("#DA702C")
	colorDanger    = lipgloss.Color("#D14D41")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorTextMuted)
	dimStyle    = lipgloss.NewStyle().Foreground(colorTextDim)

	tierStyles = map[model.Status]lipgloss.Style{
		model.StatusSafe:    lipgloss.NewStyle().Foreground(colorSafe),
		model.StatusWarning: lipgloss.NewStyle().Foreground(colorWarning),
		model.StatusDanger:  lipgloss.NewStyle().Bold(true).Foreground(colorDanger),
	}
)

// StatusStyle returns the style for a status tier.
func StatusStyle(s model.Status) lipgloss.Style {
	if st, ok := tierStyles[s]; ok {
		return st
	}
	return tierStyles[model.StatusSafe]
}

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

const titleWidth = 55

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Width(titleWidth).
		Padding(0, 1).
		Render(titleStyle.Width(titleWidth - 2).Render(title))
}

// pad fits s to w display cells. Hangul occupies two cells, so byte or rune
// counts cannot be used.
func pad(s string, w int, right bool) string {
	gap := w - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// columnWidths sizes each column to its widest cell unless t.Widths is set.
func (t Table) columnWidths() []int {
	n := len(t.Headers)
	if n == 0 && len(t.Rows) > 0 {
		n = len(t.Rows[0])
	}
	widths := make([]int, n)
	if t.Widths != nil {
		copy(widths, t.Widths)
		return widths
	}
	for _, row := range append([][]string{t.Headers}, t.Rows...) {
		for i, cell := range row {
			if i < n {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	return widths
}

// RenderTable renders a bordered table. The first two columns are left
// aligned and the rest right aligned. A row holding the single cell "---"
// draws a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}
	widths := t.columnWidths()

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	rule := func(left, mid, right string) {
		segs := make([]string, len(widths))
		for i, w := range widths {
			segs[i] = strings.Repeat("─", w+2)
		}
		b.WriteString(dimStyle.Render(left+strings.Join(segs, mid)+right) + "\n")
	}
	line := func(row []string, style lipgloss.Style, alignRight func(int) bool) {
		bar := dimStyle.Render("│")
		b.WriteString(bar)
		for i, w := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(style.Render(" "+pad(cell, w, alignRight(i))+" ") + bar)
		}
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		line(t.Headers, headerStyle, func(int) bool { return false })
		rule("├", "┼", "┤")
	}
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			rule("├", "┼", "┤")
			continue
		}
		line(row, valueStyle, func(i int) bool { return i > 1 })
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// RenderProgressBar renders a simple text progress bar.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 {
		return ""
	}

	pct := min(float64(current)/float64(total), 1)
	filled := min(int(pct*float64(width)), width)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		mutedStyle.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}

// RenderSparkline generates a unicode block sparkline from a series of values,
// scaled between the series minimum and maximum.
func RenderSparkline(values []float64) string {
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

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(blocks)-1))
		idx = max(0, min(idx, len(blocks)-1))
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderGauge draws value on a bar scaled to 1.25x the danger level, with
// the warning and danger positions marked.
func RenderGauge(value, warning, danger float64, width int) string {
	top := math.Max(danger, value) * 1.25
	if top <= 0 || width <= 0 {
		return ""
	}
	pos := func(v float64) int {
		return max(0, min(int(v/top*float64(width)), width-1))
	}

	cells := []rune(strings.Repeat("─", width))
	cells[pos(warning)] = '┊'
	cells[pos(danger)] = '┃'
	cells[pos(value)] = '●'

	s := model.Classify(value, warning, danger)
	return StatusStyle(s).Render(string(cells))
}
