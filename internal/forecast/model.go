// Package forecast fits an additive trend + seasonality model to a
// univariate monthly series and projects it forward.
//
// The model is y(t) = trend(t) + seasonal(t), where the trend is piecewise
// linear with automatically placed changepoints and each seasonal component
// is a truncated Fourier series. Coefficients are estimated as a ridge
// regularised least-squares problem whose penalties play the role of the
// prior scales.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Name identifies the model in result tables.
const Name = "Prophet"

const (
	yearPeriodDays = 365.25
	weekPeriodDays = 7
	dayPeriodDays  = 1

	// prior scale on the intercept and base growth rate
	trendPriorScale = 5.0
)

var (
	// ErrNotFitted is returned by Predict before a successful Fit.
	ErrNotFitted = errors.New("model is not fitted")
	// ErrDegenerate is returned when the series cannot support a fit.
	ErrDegenerate = errors.New("degenerate series")
)

// Options configures the model. Zero values are not meaningful; start from
// DefaultOptions.
type Options struct {
	YearlySeasonality bool
	WeeklySeasonality bool
	DailySeasonality  bool

	YearlyOrder int
	WeeklyOrder int
	DailyOrder  int

	ChangepointPriorScale float64
	SeasonalityPriorScale float64

	NumChangepoints  int
	ChangepointRange float64 // fraction of history eligible for changepoints
}

// DefaultOptions returns yearly seasonality only with a flexible trend.
func DefaultOptions() Options {
	return Options{
		YearlySeasonality:     true,
		YearlyOrder:           10,
		WeeklyOrder:           3,
		DailyOrder:            4,
		ChangepointPriorScale: 1.0,
		SeasonalityPriorScale: 10.0,
		NumChangepoints:       25,
		ChangepointRange:      0.8,
	}
}

// Model is a fitted (or fittable) forecaster. It is not safe for
// concurrent use.
type Model struct {
	opt Options

	start  time.Time
	tSpan  float64 // seconds between first and last observation
	yScale float64

	changepoints []float64 // scaled time of each changepoint
	beta         []float64

	dates []time.Time // unique observed dates, ascending
}

// New returns an unfitted model.
func New(opt Options) *Model {
	return &Model{opt: opt}
}

// Fit estimates the model from points, which need not be sorted and may
// contain several observations per date.
func (m *Model) Fit(points []model.Point) error {
	if len(points) < 2 {
		return fmt.Errorf("%w: %d observations", ErrDegenerate, len(points))
	}
	if m.opt.ChangepointPriorScale <= 0 || m.opt.SeasonalityPriorScale <= 0 {
		return errors.New("prior scales must be positive")
	}

	pts := append([]model.Point(nil), points...)
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })

	m.start = pts[0].Date
	m.tSpan = pts[len(pts)-1].Date.Sub(m.start).Seconds()
	if m.tSpan <= 0 {
		return fmt.Errorf("%w: all observations share one date", ErrDegenerate)
	}

	y := make([]float64, len(pts))
	for i, p := range pts {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: non-finite value at %s", ErrDegenerate, p.Date.Format("2006-01"))
		}
		y[i] = p.Value
	}
	m.yScale = math.Max(math.Abs(floats.Max(y)), math.Abs(floats.Min(y)))
	if m.yScale == 0 {
		m.yScale = 1
	}
	floats.Scale(1/m.yScale, y)

	m.changepoints = m.placeChangepoints(pts)
	m.dates = uniqueDates(pts)

	dates := make([]time.Time, len(pts))
	for i, p := range pts {
		dates[i] = p.Date
	}
	x := m.design(dates)
	_, p := x.Dims()

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	penalty := m.penalties()
	a := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := xtx.At(i, j)
			if i == j {
				v += penalty[i]
			}
			a.SetSym(i, j, v)
		}
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(len(y), y))

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return fmt.Errorf("%w: normal equations are not positive definite", ErrDegenerate)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return fmt.Errorf("solving normal equations: %w", err)
	}

	m.beta = make([]float64, p)
	for i := range m.beta {
		v := beta.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coefficient %d is not finite", ErrDegenerate, i)
		}
		m.beta[i] = v
	}
	return nil
}

// Predict returns the fitted value at each date.
func (m *Model) Predict(dates []time.Time) ([]float64, error) {
	if m.beta == nil {
		return nil, ErrNotFitted
	}
	if len(dates) == 0 {
		return nil, nil
	}

	var yhat mat.VecDense
	yhat.MulVec(m.design(dates), mat.NewVecDense(len(m.beta), m.beta))

	out := make([]float64, len(dates))
	for i := range out {
		out[i] = yhat.AtVec(i) * m.yScale
	}
	return out, nil
}

// FutureDates returns the unique observed dates followed by periods
// month-start dates after the last observation.
func (m *Model) FutureDates(periods int) []time.Time {
	out := append([]time.Time(nil), m.dates...)
	if len(m.dates) == 0 {
		return out
	}
	return append(out, MonthStarts(m.dates[len(m.dates)-1], periods)...)
}

// MonthStarts returns n consecutive first-of-month dates strictly after last.
func MonthStarts(last time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	base := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.AddDate(0, i+1, 0)
	}
	return out
}

// placeChangepoints spreads candidate changepoints evenly over the first
// ChangepointRange of the sorted history rows.
func (m *Model) placeChangepoints(pts []model.Point) []float64 {
	histSize := int(math.Floor(float64(len(pts)) * m.opt.ChangepointRange))
	n := m.opt.NumChangepoints
	if n > histSize-1 {
		n = histSize - 1
	}
	if n <= 0 {
		return nil
	}

	cps := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(float64(i) * float64(histSize-1) / float64(n)))
		cps = append(cps, m.scaleTime(pts[idx].Date))
	}
	return cps
}

func (m *Model) scaleTime(t time.Time) float64 {
	return t.Sub(m.start).Seconds() / m.tSpan
}

// seasonalities lists (period in days, Fourier order) for enabled components.
func (m *Model) seasonalities() [][2]float64 {
	var s [][2]float64
	if m.opt.YearlySeasonality && m.opt.YearlyOrder > 0 {
		s = append(s, [2]float64{yearPeriodDays, float64(m.opt.YearlyOrder)})
	}
	if m.opt.WeeklySeasonality && m.opt.WeeklyOrder > 0 {
		s = append(s, [2]float64{weekPeriodDays, float64(m.opt.WeeklyOrder)})
	}
	if m.opt.DailySeasonality && m.opt.DailyOrder > 0 {
		s = append(s, [2]float64{dayPeriodDays, float64(m.opt.DailyOrder)})
	}
	return s
}

// design builds the regression matrix: intercept, growth, one hinge per
// changepoint, then a sin/cos pair per Fourier term.
func (m *Model) design(dates []time.Time) *mat.Dense {
	seas := m.seasonalities()
	x := mat.NewDense(len(dates), m.numFeatures(), nil)
	for i, d := range dates {
		t := m.scaleTime(d)
		x.Set(i, 0, 1)
		x.Set(i, 1, t)
		col := 2
		for _, c := range m.changepoints {
			x.Set(i, col, math.Max(t-c, 0))
			col++
		}

		days := float64(d.Unix()) / 86400
		for _, s := range seas {
			for k := 1; k <= int(s[1]); k++ {
				arg := 2 * math.Pi * float64(k) * days / s[0]
				x.Set(i, col, math.Sin(arg))
				x.Set(i, col+1, math.Cos(arg))
				col += 2
			}
		}
	}
	return x
}

// penalties returns the ridge weight per design column: 1/scale^2 of the
// prior governing that coefficient.
func (m *Model) penalties() []float64 {
	p := m.numFeatures()
	out := make([]float64, p)
	out[0] = 1 / (trendPriorScale * trendPriorScale)
	out[1] = out[0]
	for i := 0; i < len(m.changepoints); i++ {
		out[2+i] = 1 / (m.opt.ChangepointPriorScale * m.opt.ChangepointPriorScale)
	}
	for i := 2 + len(m.changepoints); i < p; i++ {
		out[i] = 1 / (m.opt.SeasonalityPriorScale * m.opt.SeasonalityPriorScale)
	}
	return out
}

func (m *Model) numFeatures() int {
	p := 2 + len(m.changepoints)
	for _, s := range m.seasonalities() {
		p += 2 * int(s[1])
	}
	return p
}

func uniqueDates(pts []model.Point) []time.Time {
	var out []time.Time
	for _, p := range pts {
		if len(out) == 0 || !out[len(out)-1].Equal(p.Date) {
			out = append(out, p.Date)
		}
	}
	return out
}
