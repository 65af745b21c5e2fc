package components

import (
	"strings"

	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar. info is shown on the right,
// replaced by a refresh notice while a reload is running.
func RenderStatusBar(width int, info string, refreshing bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Width(width)

	left := " [?]help  [r]efresh  [q]uit"
	right := info + " "
	if refreshing {
		right = lipgloss.NewStyle().Foreground(t.Accent).Render("refreshing… ")
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)

	return style.Render(left + strings.Repeat(" ", padding) + right)
}
