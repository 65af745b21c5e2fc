package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"
)

// ForecastTable builds the result table in the given language. Rows keep
// the pipeline's indicator order.
func ForecastTable(rows []model.ForecastRow, lang string) Table {
	headers := append([]string(nil), model.ColumnLabels(lang)...)
	headers = append(headers, statusHeader(lang))

	t := Table{Headers: headers}
	for _, r := range rows {
		name := r.Label
		if lang == "ko" || name == "" {
			name = r.Indicator
		}
		t.Rows = append(t.Rows, []string{
			r.Model,
			name,
			FormatMetric(r.ForecastMean),
			FormatMetric(r.MAE),
			FormatMetric(r.RMSE),
			FormatPercent(r.MAPE),
			FormatMetric(r.Warning),
			FormatMetric(r.Danger),
			FormatStatus(r.Status, lang),
		})
	}
	return t
}

func statusHeader(lang string) string {
	if lang == "ko" {
		return "예측 상태"
	}
	return "Status"
}

// OutcomeTable lists indicators that produced no forecast.
func OutcomeTable(outcomes []model.Outcome) Table {
	t := Table{Title: "Skipped", Headers: []string{"Indicator", "Reason", "Detail"}}
	for _, o := range outcomes {
		if !o.Skipped {
			continue
		}
		t.Rows = append(t.Rows, []string{o.Indicator, FormatSkipReason(o.Reason), o.Detail})
	}
	return t
}

// ForecastChart renders a compact text chart: history and forecast
// sparklines plus a threshold gauge for the forecast mean. Its signature
// matches pipeline.ChartFunc.
func ForecastChart(row model.ForecastRow) (*model.Chart, error) {
	if len(row.Forecast) == 0 {
		return nil, fmt.Errorf("no forecast points for %q", row.Indicator)
	}

	hist := make([]float64, len(row.History))
	for i, p := range row.History {
		hist[i] = p.Value
	}
	var ahead []float64
	for _, p := range row.Forecast {
		if !p.Date.Before(row.Horizon) && !row.Horizon.IsZero() {
			ahead = append(ahead, p.Value)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s ~ %s\n", mutedStyle.Render("history "), RenderSparkline(hist), FormatMonth(lastDate(row.History)))
	fmt.Fprintf(&b, "%s  %s ~ %s\n", mutedStyle.Render("forecast"), RenderSparkline(ahead), FormatMonth(lastDate(row.Forecast)))
	fmt.Fprintf(&b, "%s  %s %s", mutedStyle.Render("mean    "), RenderGauge(row.ForecastMean, row.Warning, row.Danger, 30), FormatMetric(row.ForecastMean))

	title := row.Label
	if title == "" {
		title = row.Indicator
	}
	return &model.Chart{Title: title + " Forecast", Body: b.String()}, nil
}

func lastDate(pts []model.Point) time.Time {
	if len(pts) == 0 {
		return time.Time{}
	}
	return pts[len(pts)-1].Date
}
