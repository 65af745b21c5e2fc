package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/pipeline"
	"github.com/theirongolddev/kpicast/internal/tui/components"
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxMerchantCards caps how many matching merchants are drawn.
const maxMerchantCards = 8

type merchantsState struct {
	input     textinput.Model
	searching bool
	query     string
	matches   []merchantStatuses
	total     int // matching merchants before the cap
	err       error
}

// merchantStatuses groups the status rows of one merchant in sheet order.
type merchantStatuses struct {
	id   string
	rows []model.StatusRecord
}

func (m *merchantsState) runLookup(lookup *pipeline.StatusLoadResult) {
	m.matches, m.total, m.err = nil, 0, nil
	if m.query == "" || lookup == nil {
		return
	}
	recs, err := lookup.Lookup.Lookup(m.query)
	if err != nil {
		m.err = err
		return
	}
	m.matches, m.total = groupByMerchant(recs, maxMerchantCards)
}

func groupByMerchant(recs []model.StatusRecord, limit int) ([]merchantStatuses, int) {
	var out []merchantStatuses
	idx := make(map[string]int)
	for _, r := range recs {
		i, ok := idx[r.MerchantID]
		if !ok {
			i = len(out)
			idx[r.MerchantID] = i
			out = append(out, merchantStatuses{id: r.MerchantID})
		}
		out[i].rows = append(out[i].rows, r)
	}
	total := len(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total
}

func (a App) updateMerchantsKey(key string) (bool, App, tea.Cmd) {
	switch key {
	case "/":
		a.merch.searching = true
		a.merch.input.SetValue(a.merch.query)
		a.merch.input.CursorEnd()
		return true, a, a.merch.input.Focus()
	case "esc":
		a.merch.query = ""
		a.merch.runLookup(a.statuses)
		return true, a, nil
	}
	return false, a, nil
}

// updateMerchantSearch handles key events while in search mode.
func (a App) updateMerchantSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.merch.query = strings.TrimSpace(a.merch.input.Value())
		a.merch.searching = false
		a.merch.input.Blur()
		a.merch.runLookup(a.statuses)
		return a, nil
	case "esc":
		a.merch.searching = false
		a.merch.input.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.merch.input, cmd = a.merch.input.Update(msg)
	return a, cmd
}

func (a App) renderMerchantsTab(cw, h int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)

	var b strings.Builder
	switch {
	case a.merch.searching:
		b.WriteString(" " + a.merch.input.View())
	case a.merch.query != "":
		b.WriteString(mutedStyle.Render(" search: ") + accentStyle.Render(a.merch.query) +
			mutedStyle.Render("   (/ to edit, esc to clear)"))
	default:
		b.WriteString(mutedStyle.Render(" press / to look up a merchant"))
	}
	b.WriteString("\n")

	switch {
	case a.statusErr != nil:
		b.WriteString(components.ContentCard("Merchant statuses unavailable", a.statusErr.Error(), cw))
		return b.String()
	case a.merch.err != nil:
		b.WriteString(components.ContentCard("Lookup failed", a.merch.err.Error(), cw))
		return b.String()
	case a.merch.query == "":
		body := "Future status per merchant and indicator, from the status sheet."
		if a.statuses != nil && a.statuses.Skipped > 0 {
			body += fmt.Sprintf("\n%d rows were ignored for an empty id or unknown status.", a.statuses.Skipped)
		}
		b.WriteString(components.ContentCard("Merchants", body, cw))
		return b.String()
	case len(a.merch.matches) == 0:
		b.WriteString(components.ContentCard("Merchants", fmt.Sprintf("No merchant matches %q.", a.merch.query), cw))
		return b.String()
	}

	for _, m := range a.merch.matches {
		if lipgloss.Height(b.String()) >= h {
			break
		}
		cards := make([]components.Metric, len(m.rows))
		worst := model.StatusSafe
		for i, r := range m.rows {
			cards[i] = components.Metric{
				Label: truncStr(r.Indicator, 24),
				Value: r.Status.Label(a.lang),
				Color: statusColor(r.Status),
			}
			worst = max(worst, r.Status)
		}
		title := lipgloss.NewStyle().Foreground(statusColor(worst)).Bold(true).Render(" ● " + m.id)
		b.WriteString(title + "\n")
		b.WriteString(components.MetricCardRow(cards, cw))
		b.WriteString("\n")
	}
	if a.merch.total > len(a.merch.matches) {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" +%d more merchants; refine the search", a.merch.total-len(a.merch.matches))))
	}
	return b.String()
}
