package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/kpicast/internal/tui/components"
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

type keyBinding struct{ keys, action string }

var helpSections = []struct {
	title    string
	bindings []keyBinding
}{
	{"Navigation", []keyBinding{
		{"f m s", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Select indicator"},
	}},
	{"Actions", []keyBinding{
		{"/", "Search merchants"},
		{"Esc", "Clear search"},
		{"r", "Re-run forecasts"},
		{"L", "Toggle English / Korean"},
		{"S", "Setup"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}},
}

// modal centers body on screen inside an accented border.
func (a App) modal(body string, padY, padX int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Active.BorderAccent).
		Padding(padY, padX).
		Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

func (a App) viewTooNarrow() string {
	msg := fmt.Sprintf("\n  Terminal too narrow (%d cols)\n\n  kpicast needs at least %d columns.\n",
		a.width, minTerminalWidth)
	return fitHeight(msg, max(a.height, 5))
}

func (a App) viewLoading() string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	lines := []string{
		lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ kpicast") +
			muted.Render(" · merchant KPI forecasts"),
		"",
	}
	if a.progressMax == 0 {
		lines = append(lines, a.spinner.View()+muted.Render(" Reading KPI tables..."))
		return a.modal(strings.Join(lines, "\n"), 2, 4)
	}

	pct := float64(a.progress) / float64(a.progressMax)
	lines = append(lines,
		a.spinner.View()+muted.Render(" Forecasting indicators"),
		"",
		components.ProgressBar(pct, max(20, min(40, a.width-30))),
		muted.Render(fmt.Sprintf("%d / %d", a.progress, a.progressMax)),
	)
	return a.modal(strings.Join(lines, "\n"), 2, 4)
}

func (a App) viewHelp() string {
	t := theme.Active
	keyStyle := lipgloss.NewStyle().Foreground(t.Highlight).Bold(true)
	actionStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range helpSections {
		b.WriteString("\n" + sectionStyle.Render(sec.title) + "\n")
		for _, kb := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n", keyStyle.Render(fmt.Sprintf("%-8s", kb.keys)), actionStyle.Render(kb.action))
		}
	}
	b.WriteString("\n" + lipgloss.NewStyle().Foreground(t.TextDim).Render("Press any key to close"))
	return a.modal(b.String(), 1, 3)
}

// fitHeight truncates or pads s to exactly h lines.
func fitHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	switch {
	case len(lines) > h:
		return strings.Join(lines[:h], "\n")
	case len(lines) < h:
		return s + strings.Repeat("\n", h-len(lines))
	}
	return s
}
