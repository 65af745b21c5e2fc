package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/kpicast/internal/cli"
	"github.com/theirongolddev/kpicast/internal/tui/components"
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderSkippedTab(cw int) string {
	if a.result == nil || len(a.result.Outcomes) == 0 {
		return components.ContentCard("Indicators", "No indicators were configured.", cw)
	}

	t := theme.Active
	okStyle := lipgloss.NewStyle().Foreground(t.Safe)
	skipStyle := lipgloss.NewStyle().Foreground(t.Warning)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	inner := components.CardInnerWidth(cw)
	nameW := 22

	var b strings.Builder
	for _, o := range a.result.Outcomes {
		name := truncStr(o.Indicator, nameW)
		name += strings.Repeat(" ", max(nameW-lipgloss.Width(name), 0))

		if !o.Skipped {
			fmt.Fprintf(&b, "%s  %s  %s\n", name, okStyle.Render("✓ forecast"),
				dimStyle.Render(fmt.Sprintf("%d observations", o.Points)))
			continue
		}
		reason := skipStyle.Render("✗ " + cli.FormatSkipReason(o.Reason))
		detail := truncStr(o.Detail, max(inner-nameW-lipgloss.Width(reason)-4, 10))
		fmt.Fprintf(&b, "%s  %s  %s\n", name, reason, dimStyle.Render(detail))
	}

	return components.ContentCard(
		fmt.Sprintf("Indicators · %d of %d skipped", len(a.result.Skipped()), len(a.result.Outcomes)),
		strings.TrimRight(b.String(), "\n"),
		cw,
	)
}
