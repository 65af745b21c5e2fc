package components

import (
	"strings"
	"unicode"

	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab is one dashboard view reachable by a single key.
type Tab struct {
	Name string
	Key  rune
}

// Tabs lists the dashboard views in display order.
var Tabs = []Tab{
	{Name: "Forecast", Key: 'f'},
	{Name: "Merchants", Key: 'm'},
	{Name: "Skipped", Key: 's'},
}

const tabPadding = 1

// tabLabel renders the tab name. Inactive tabs bracket their shortcut,
// inline when the name contains it and as a suffix otherwise.
func tabLabel(tab Tab, active bool) string {
	t := theme.Active
	if active {
		return lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render(tab.Name)
	}

	text := lipgloss.NewStyle().Foreground(t.TextMuted)
	bracket := lipgloss.NewStyle().Foreground(t.TextDim)
	key := func(r rune) string {
		return bracket.Render("[") +
			lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Render(string(r)) +
			bracket.Render("]")
	}

	runes := []rune(tab.Name)
	for i, r := range runes {
		if unicode.ToLower(r) == tab.Key {
			return text.Render(string(runes[:i])) + key(r) + text.Render(string(runes[i+1:]))
		}
	}
	return text.Render(tab.Name) + key(tab.Key)
}

// TabVisualWidth is the rendered width of a tab including its padding.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(tabLabel(tab, active)) + 2*tabPadding
}

// RenderTabBar renders the tab bar with tab activeIdx highlighted.
func RenderTabBar(activeIdx, width int) string {
	pad := strings.Repeat(" ", tabPadding)
	labels := make([]string, len(Tabs))
	for i, tab := range Tabs {
		labels[i] = pad + tabLabel(tab, i == activeIdx) + pad
	}
	sep := lipgloss.NewStyle().Foreground(theme.Active.TextDim).Render("│")
	return lipgloss.NewStyle().Width(width).Render(strings.Join(labels, sep))
}

// TabIdxByKey returns the index of the tab bound to key, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
