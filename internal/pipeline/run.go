package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/kpicast/internal/forecast"
	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/source"
)

// MinObservations is the fewest data points an indicator needs to be fit.
const MinObservations = 10

// ChartFunc renders a chart for an evaluated row. A returned error leaves the
// row without a chart.
type ChartFunc func(row model.ForecastRow) (*model.Chart, error)

// ProgressFunc is called after each indicator with the number processed so
// far and the total.
type ProgressFunc func(current, total int)

// Options tunes a run. Non-positive values select the defaults.
type Options struct {
	ForecastMonths int // default 10
	PreCloseMonths int // default 6

	Chart    ChartFunc
	Progress ProgressFunc
	Logger   *zerolog.Logger
}

// Result is the output of one run. Rows holds one entry per forecast
// indicator in the configured order; Outcomes holds one per indicator,
// including skipped ones.
type Result struct {
	Rows     []model.ForecastRow
	Outcomes []model.Outcome
	Records  int // KPI records after windowing
}

// Empty reports whether no indicator produced a forecast.
func (r *Result) Empty() bool { return len(r.Rows) == 0 }

// Skipped returns the outcomes of indicators that produced no row.
func (r *Result) Skipped() []model.Outcome {
	var out []model.Outcome
	for _, o := range r.Outcomes {
		if o.Skipped {
			out = append(out, o)
		}
	}
	return out
}

// Row returns the row whose indicator or English label matches name.
func (r *Result) Row(name string) (model.ForecastRow, bool) {
	key := source.Norm(name)
	for _, row := range r.Rows {
		if source.Norm(row.Indicator) == key || source.Norm(row.Label) == key {
			return row, true
		}
	}
	return model.ForecastRow{}, false
}

// Run forecasts every indicator of in and evaluates it against its
// thresholds. Indicators that cannot be processed are skipped and reported in
// Outcomes; Run itself never fails.
func Run(in *Inputs, opts Options) *Result {
	if opts.ForecastMonths <= 0 {
		opts.ForecastMonths = 10
	}
	if opts.PreCloseMonths <= 0 {
		opts.PreCloseMonths = 6
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	res := &Result{Rows: []model.ForecastRow{}}
	if in == nil || in.KPI == nil || in.Thresholds == nil {
		return res
	}
	records := Window(in.KPI.Records, opts.PreCloseMonths)
	res.Records = len(records)

	for i, ind := range in.Indicators {
		row, out := runIndicator(in, records, ind, opts)
		if out.Skipped {
			log.Warn().
				Str("indicator", ind).
				Str("reason", string(out.Reason)).
				Str("detail", out.Detail).
				Msg("indicator skipped")
		} else {
			if opts.Chart != nil {
				chart, err := opts.Chart(row)
				if err != nil {
					log.Warn().Err(err).Str("indicator", ind).Msg("chart rendering failed")
				}
				row.Chart = chart
			}
			res.Rows = append(res.Rows, row)
			log.Debug().
				Str("indicator", ind).
				Int("points", out.Points).
				Float64("forecast_mean", row.ForecastMean).
				Str("status", row.Status.String()).
				Msg("indicator forecast")
		}
		res.Outcomes = append(res.Outcomes, out)
		if opts.Progress != nil {
			opts.Progress(i+1, len(in.Indicators))
		}
	}
	return res
}

func runIndicator(in *Inputs, records []model.KPIRecord, indicator string, opts Options) (row model.ForecastRow, out model.Outcome) {
	out = model.Outcome{Indicator: indicator}
	skip := func(reason model.SkipReason, format string, args ...any) {
		out.Skipped = true
		out.Reason = reason
		out.Detail = fmt.Sprintf(format, args...)
	}
	defer func() {
		if r := recover(); r != nil {
			row = model.ForecastRow{}
			skip(model.SkipFitFailed, "panic: %v", r)
		}
	}()

	key, ok := in.Thresholds.Resolve(indicator)
	if !ok {
		skip(model.SkipThresholdMissing, "no threshold row for %q", indicator)
		return
	}
	th, err := in.Thresholds.Threshold(key)
	if err != nil {
		skip(model.SkipThresholdInvalid, "%v", err)
		return
	}

	column, ok := resolveColumn(in.KPI.Columns, indicator)
	if !ok {
		skip(model.SkipColumnMissing, "no kpi column for %q", indicator)
		return
	}

	series := extractSeries(records, column)
	out.Points = len(series)
	if len(series) < MinObservations {
		skip(model.SkipInsufficientData, "%d observations, need %d", len(series), MinObservations)
		return
	}

	m := forecast.New(forecast.DefaultOptions())
	if err := m.Fit(series); err != nil {
		skip(model.SkipFitFailed, "%v", err)
		return
	}
	dates := m.FutureDates(opts.ForecastMonths)
	yhat, err := m.Predict(dates)
	if err != nil {
		skip(model.SkipFitFailed, "%v", err)
		return
	}

	observed := make([]float64, len(series))
	for i, p := range series {
		observed[i] = p.Value
	}
	metrics, mean := Evaluate(observed, yhat, opts.ForecastMonths)

	fc := make([]model.Point, len(dates))
	for i, d := range dates {
		fc[i] = model.Point{Date: d, Value: yhat[i]}
	}

	row = model.ForecastRow{
		Model:        forecast.Name,
		Indicator:    indicator,
		Label:        EnglishLabel(indicator),
		Column:       column,
		Forecast:     fc,
		History:      series,
		Horizon:      horizonStart(series, dates),
		ForecastMean: mean,
		MAE:          metrics.MAE,
		RMSE:         metrics.RMSE,
		MAPE:         metrics.MAPE,
		Warning:      th.Warning,
		Danger:       th.Danger,
		Status:       model.Classify(mean, th.Warning, th.Danger),
	}
	return row, out
}

// resolveColumn finds the KPI header for an indicator: exact match first,
// then whitespace-insensitive.
func resolveColumn(columns []string, indicator string) (string, bool) {
	for _, c := range columns {
		if c == indicator {
			return c, true
		}
	}
	key := source.Norm(indicator)
	for _, c := range columns {
		if source.Norm(c) == key {
			return c, true
		}
	}
	return "", false
}

// extractSeries collects the non-missing (month, value) pairs of column,
// ordered by month.
func extractSeries(records []model.KPIRecord, column string) []model.Point {
	var pts []model.Point
	for _, r := range records {
		if v, ok := r.Value(column); ok {
			pts = append(pts, model.Point{Date: r.Month, Value: v})
		}
	}
	sort.SliceStable(pts, func(i, j int) bool {
		return pts[i].Date.Before(pts[j].Date)
	})
	return pts
}

func horizonStart(history []model.Point, dates []time.Time) time.Time {
	last := history[len(history)-1].Date
	for _, d := range dates {
		if d.After(last) {
			return d
		}
	}
	return time.Time{}
}
