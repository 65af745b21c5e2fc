// Package components provides reusable TUI widgets for the kpicast dashboard.
package components

import (
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// minCardWidth keeps cards legible on very narrow terminals.
const minCardWidth = 10

// LayoutRow splits total into n widths that sum to total, the leading
// widths taking the remainder.
func LayoutRow(total, n int) []int {
	if n <= 0 {
		return nil
	}
	widths := make([]int, n)
	for i := range widths {
		widths[i] = total / n
		if i < total%n {
			widths[i]++
		}
	}
	return widths
}

// Metric is one entry of a MetricCardRow. An empty Color uses the primary
// text color for the value.
type Metric struct {
	Label string
	Value string
	Note  string
	Color lipgloss.Color
}

// frame draws a rounded, padded border of the given outer width.
func frame(border lipgloss.Color, outer int, body string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Width(max(outer-2, minCardWidth)).
		Padding(0, 1).
		Render(body)
}

func (m Metric) render(outer int) string {
	t := theme.Active
	accent := t.TextPrimary
	border := t.Border
	if m.Color != "" {
		accent, border = m.Color, m.Color
	}

	lines := []string{
		lipgloss.NewStyle().Foreground(t.TextMuted).Render(m.Label),
		lipgloss.NewStyle().Foreground(accent).Bold(true).Render(m.Value),
	}
	if m.Note != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.TextDim).Render(m.Note))
	}
	return frame(border, outer, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// MetricCardRow lays metrics out as cards filling exactly total columns.
func MetricCardRow(metrics []Metric, total int) string {
	if len(metrics) == 0 {
		return ""
	}
	widths := LayoutRow(total, len(metrics))
	cards := make([]string, len(metrics))
	for i, m := range metrics {
		cards[i] = m.render(widths[i])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// ContentCard wraps body in a bordered card headed by title, if any.
func ContentCard(title, body string, outer int) string {
	if title != "" {
		heading := lipgloss.NewStyle().Foreground(theme.Active.TextMuted).Bold(true).Render(title)
		body = heading + "\n" + body
	}
	return frame(theme.Active.Border, outer, body)
}

// CardInnerWidth is the text width left inside a card of the given outer
// width once border and padding are taken.
func CardInnerWidth(outer int) int {
	return max(outer-4, minCardWidth)
}
