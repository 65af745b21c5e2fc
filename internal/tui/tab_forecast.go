package tui

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/kpicast/internal/cli"
	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/tui/components"
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) updateForecastKey(key string) (bool, App) {
	if a.result == nil || len(a.result.Rows) == 0 {
		return false, a
	}
	n := len(a.result.Rows)
	switch key {
	case "j", "down":
		a.indicator = (a.indicator + 1) % n
	case "k", "up":
		a.indicator = (a.indicator - 1 + n) % n
	default:
		i, err := strconv.Atoi(key)
		if err != nil || i < 1 || i > n {
			return false, a
		}
		a.indicator = i - 1
	}
	return true, a
}

func (a App) indicatorName(row model.ForecastRow) string {
	if a.lang == "ko" || row.Label == "" {
		return row.Indicator
	}
	return row.Label
}

func (a App) renderForecastTab(cw, h int) string {
	if a.result == nil || a.result.Empty() {
		body := "No forecasts available."
		if a.result != nil && len(a.result.Outcomes) > 0 {
			body += "\nEvery indicator was skipped; see the Skipped tab for reasons."
		}
		return components.ContentCard("Forecast", body, cw)
	}

	row := a.result.Rows[min(a.indicator, len(a.result.Rows)-1)]
	labels := forecastLabels(a.lang)

	var b strings.Builder
	b.WriteString(a.renderIndicatorPicker(cw))
	b.WriteString("\n")

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: labels.mean, Value: cli.FormatMetric(row.ForecastMean), Note: row.Status.Label(a.lang), Color: statusColor(row.Status)},
		{Label: "MAE", Value: cli.FormatMetric(row.MAE)},
		{Label: "RMSE", Value: cli.FormatMetric(row.RMSE)},
		{Label: "MAPE", Value: cli.FormatPercent(row.MAPE)},
		{Label: labels.warning, Value: cli.FormatMetric(row.Warning), Color: theme.Active.Warning},
		{Label: labels.danger, Value: cli.FormatMetric(row.Danger), Color: theme.Active.Danger},
	}, cw))
	b.WriteString("\n")

	// Chart gets whatever height is left after picker (1), cards (5) and card chrome.
	chartH := max(h-1-5-4, 8)
	b.WriteString(components.ContentCard(
		a.indicatorName(row)+" · "+row.Model,
		renderForecastChart(row, components.CardInnerWidth(cw), chartH),
		cw,
	))
	return b.String()
}

func (a App) renderIndicatorPicker(cw int) string {
	t := theme.Active
	activeStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	idleStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	numStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	parts := make([]string, len(a.result.Rows))
	for i, r := range a.result.Rows {
		dot := lipgloss.NewStyle().Foreground(statusColor(r.Status)).Render("●")
		name := idleStyle.Render(a.indicatorName(r))
		if i == a.indicator {
			name = activeStyle.Render("▸ " + a.indicatorName(r))
		}
		parts[i] = numStyle.Render(strconv.Itoa(i+1)+" ") + dot + " " + name
	}
	return truncStr(" "+strings.Join(parts, "   "), cw)
}

// renderForecastChart plots history and forecast on the forecast's date
// axis with the thresholds and the start of the horizon marked.
func renderForecastChart(row model.ForecastRow, w, h int) string {
	t := theme.Active
	n := len(row.Forecast)

	observed := make(map[time.Time]float64, len(row.History))
	for _, p := range row.History {
		observed[p.Date] = p.Value
	}

	hist := make([]float64, n)
	fc := make([]float64, n)
	labels := make([]string, n)
	marker := -1
	for i, p := range row.Forecast {
		fc[i] = p.Value
		labels[i] = cli.FormatMonth(p.Date)
		if v, ok := observed[p.Date]; ok {
			hist[i] = v
		} else {
			hist[i] = math.NaN()
		}
		if marker < 0 && !row.Horizon.IsZero() && !p.Date.Before(row.Horizon) {
			marker = i
		}
	}

	chart := components.LineChart(
		[]components.Series{
			{Values: fc, Color: t.Forecast, Glyph: '·'},
			{Values: hist, Color: t.TextPrimary, Glyph: '●'},
		},
		[]components.HLine{
			{Value: row.Warning, Color: t.Warning},
			{Value: row.Danger, Color: t.Danger},
		},
		marker, labels, w, h-1,
	)

	legend := lipgloss.NewStyle().Foreground(t.TextPrimary).Render("● actual  ") +
		lipgloss.NewStyle().Foreground(t.Forecast).Render("· forecast  ") +
		lipgloss.NewStyle().Foreground(t.Warning).Render("┈ warning  ") +
		lipgloss.NewStyle().Foreground(t.Danger).Render("┈ danger  ") +
		lipgloss.NewStyle().Foreground(t.TextDim).Render("┊ horizon")
	return chart + "\n" + legend
}

type forecastLabelSet struct {
	mean, warning, danger string
}

func forecastLabels(lang string) forecastLabelSet {
	cols := model.ColumnLabels(lang)
	return forecastLabelSet{mean: cols[2], warning: cols[6], danger: cols[7]}
}
