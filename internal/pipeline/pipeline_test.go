package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/source"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

// kpiSeries builds n monthly records for one merchant with a value for every
// listed column.
func kpiSeries(id string, n int, closed bool, columns ...string) []model.KPIRecord {
	recs := make([]model.KPIRecord, n)
	start := month(2023, time.January)
	for i := range recs {
		vals := make(map[string]*float64, len(columns))
		for j, c := range columns {
			vals[c] = ptr(3 + float64(j) + 0.1*float64(i) + math.Sin(float64(i)))
		}
		recs[i] = model.KPIRecord{
			MerchantID: id,
			Month:      start.AddDate(0, i, 0),
			Closed:     closed,
			Values:     vals,
		}
	}
	return recs
}

func thresholds(t testing.TB, rows ...[]string) *source.ThresholdTable {
	t.Helper()
	tt, err := source.ParseThresholds(&source.Table{
		Header: []string{"지표", "경고임계치", "위험임계치"},
		Rows:   rows,
	}, DefaultColumns().Threshold)
	if err != nil {
		t.Fatalf("ParseThresholds: %v", err)
	}
	return tt
}

func inputs(t testing.TB, recs []model.KPIRecord, th *source.ThresholdTable) *Inputs {
	t.Helper()
	cols := []string{"가맹점구분번호", "기준년월", "폐업여부"}
	cols = append(cols, DefaultIndicators...)
	return &Inputs{
		KPI:        &source.KPITable{Records: recs, Columns: cols},
		Thresholds: th,
		Indicators: DefaultIndicators,
	}
}

func TestWindow(t *testing.T) {
	var recs []model.KPIRecord
	recs = append(recs, kpiSeries("B", 10, true)...)
	recs = append(recs, kpiSeries("A", 3, false)...)
	recs = append(recs, kpiSeries("C", 4, true)...)

	got := Window(recs, 6)
	if len(got) != 3+6+4 {
		t.Fatalf("len = %d, want 13", len(got))
	}

	var ids strings.Builder
	for _, r := range got {
		ids.WriteString(r.MerchantID)
	}
	if ids.String() != "AAABBBBBBCCCC" {
		t.Errorf("order = %s", ids.String())
	}

	// B keeps its last six months.
	if first := got[3].Month; !first.Equal(month(2023, time.May)) {
		t.Errorf("first kept closed month = %v, want 2023-05", first)
	}
	for i := 1; i < len(got); i++ {
		if got[i].MerchantID == got[i-1].MerchantID && got[i].Month.Before(got[i-1].Month) {
			t.Fatalf("records %d and %d out of order", i-1, i)
		}
	}
}

func TestWindowDeterministic(t *testing.T) {
	recs := append(kpiSeries("X", 8, true), kpiSeries("Y", 2, false)...)
	a := Window(recs, 6)
	b := Window(recs, 6)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].MerchantID != b[i].MerchantID || !a[i].Month.Equal(b[i].Month) {
			t.Fatalf("record %d differs", i)
		}
	}
}

func TestEvaluate(t *testing.T) {
	observed := []float64{100, 1, 2, 4}
	predicted := []float64{9, 9, 9, 2, 2, 3}

	m, mean := Evaluate(observed, predicted, 3)
	// compared pairs: (1,2) (2,2) (4,3)
	if math.Abs(m.MAE-2.0/3) > 1e-12 {
		t.Errorf("MAE = %f, want %f", m.MAE, 2.0/3)
	}
	if math.Abs(m.RMSE-math.Sqrt(2.0/3)) > 1e-12 {
		t.Errorf("RMSE = %f, want %f", m.RMSE, math.Sqrt(2.0/3))
	}
	wantMAPE := (1.0 + 0 + 0.25) / 3 * 100
	if math.Abs(m.MAPE-wantMAPE) > 1e-9 {
		t.Errorf("MAPE = %f, want %f", m.MAPE, wantMAPE)
	}
	if math.Abs(mean-7.0/3) > 1e-12 {
		t.Errorf("mean = %f, want %f", mean, 7.0/3)
	}
}

func TestEvaluateZeroObserved(t *testing.T) {
	m, _ := Evaluate([]float64{0, 0}, []float64{1, 0}, 10)
	if math.IsInf(m.MAPE, 0) || math.IsNaN(m.MAPE) {
		t.Fatalf("MAPE = %f, want finite", m.MAPE)
	}
	if m.MAPE < 1e9 {
		t.Errorf("MAPE = %g, want a very large finite value", m.MAPE)
	}
}

func TestRunSingleIndicator(t *testing.T) {
	recs := kpiSeries("M1", 15, false, "매출안정성지표")
	in := inputs(t, recs, thresholds(t, []string{"매출안정성지표", "5.0", "8.0"}))
	in.Indicators = []string{"매출안정성지표"}

	res := Run(in, Options{})
	if len(res.Rows) != 1 {
		t.Fatalf("rows = %d, want 1 (outcomes %+v)", len(res.Rows), res.Outcomes)
	}
	row := res.Rows[0]
	if row.Warning != 5.0 || row.Danger != 8.0 {
		t.Errorf("thresholds = %v/%v, want 5/8", row.Warning, row.Danger)
	}
	if row.Model != "Prophet" {
		t.Errorf("model = %q", row.Model)
	}
	if row.Label != "Sales Stability Index" {
		t.Errorf("label = %q", row.Label)
	}
	for name, v := range map[string]float64{
		"mean": row.ForecastMean, "mae": row.MAE, "rmse": row.RMSE, "mape": row.MAPE,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v, want finite", name, v)
		}
	}
	if len(row.Forecast) != 15+10 {
		t.Errorf("forecast points = %d, want 25", len(row.Forecast))
	}
	if !row.Horizon.Equal(month(2024, time.April)) {
		t.Errorf("horizon = %v, want 2024-04-01", row.Horizon)
	}
	if want := model.Classify(row.ForecastMean, 5, 8); row.Status != want {
		t.Errorf("status = %v, want %v", row.Status, want)
	}
}

func TestRunMissingThreshold(t *testing.T) {
	recs := kpiSeries("M1", 12, false, DefaultIndicators...)
	in := inputs(t, recs, thresholds(t,
		[]string{"매출안정성지표", "5", "8"},
		[]string{"고객 충성도 지표", "4", "6"},
	))

	res := Run(in, Options{})
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	if res.Rows[0].Indicator != "매출안정성지표" || res.Rows[1].Indicator != "고객 충성도 지표" {
		t.Errorf("row order = %q, %q", res.Rows[0].Indicator, res.Rows[1].Indicator)
	}
	skipped := res.Skipped()
	if len(skipped) != 1 || skipped[0].Reason != model.SkipThresholdMissing {
		t.Fatalf("skipped = %+v, want one threshold_missing", skipped)
	}
	if skipped[0].Indicator != "경쟁우위 지표" {
		t.Errorf("skipped indicator = %q", skipped[0].Indicator)
	}
}

func TestRunEmptyKPI(t *testing.T) {
	in := inputs(t, nil, thresholds(t, []string{"매출안정성지표", "5", "8"}))
	res := Run(in, Options{})
	if !res.Empty() || res.Rows == nil {
		t.Fatalf("rows = %#v, want empty non-nil slice", res.Rows)
	}
	if len(res.Outcomes) != len(DefaultIndicators) {
		t.Errorf("outcomes = %d, want %d", len(res.Outcomes), len(DefaultIndicators))
	}
}

func TestRunSkipReasons(t *testing.T) {
	tests := []struct {
		name   string
		recs   []model.KPIRecord
		th     [][]string
		cols   []string
		reason model.SkipReason
	}{
		{
			name:   "insufficient data",
			recs:   kpiSeries("M1", MinObservations-1, false, "매출안정성지표"),
			th:     [][]string{{"매출안정성지표", "5", "8"}},
			reason: model.SkipInsufficientData,
		},
		{
			name:   "column missing",
			recs:   kpiSeries("M1", 12, false),
			th:     [][]string{{"매출안정성지표", "5", "8"}},
			cols:   []string{"가맹점구분번호", "기준년월", "폐업여부"},
			reason: model.SkipColumnMissing,
		},
		{
			name:   "threshold not numeric",
			recs:   kpiSeries("M1", 12, false, "매출안정성지표"),
			th:     [][]string{{"매출안정성지표", "high", "8"}},
			reason: model.SkipThresholdInvalid,
		},
		{
			name: "constant dates",
			recs: func() []model.KPIRecord {
				rs := kpiSeries("M1", 12, false, "매출안정성지표")
				for i := range rs {
					rs[i].Month = month(2023, time.March)
				}
				return rs
			}(),
			th:     [][]string{{"매출안정성지표", "5", "8"}},
			reason: model.SkipFitFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := inputs(t, tt.recs, thresholds(t, tt.th...))
			if tt.cols != nil {
				in.KPI.Columns = tt.cols
			}
			in.Indicators = []string{"매출안정성지표"}

			res := Run(in, Options{})
			if len(res.Rows) != 0 {
				t.Fatalf("rows = %d, want 0", len(res.Rows))
			}
			if len(res.Outcomes) != 1 || res.Outcomes[0].Reason != tt.reason {
				t.Errorf("outcomes = %+v, want reason %s", res.Outcomes, tt.reason)
			}
		})
	}
}

func TestRunChartCallback(t *testing.T) {
	recs := kpiSeries("M1", 12, false, DefaultIndicators...)
	in := inputs(t, recs, thresholds(t,
		[]string{"매출안정성지표", "5", "8"},
		[]string{"경쟁우위지표", "5", "8"},
	))
	in.Indicators = DefaultIndicators[:2]

	var progress []int
	res := Run(in, Options{
		Chart: func(row model.ForecastRow) (*model.Chart, error) {
			if row.Indicator == "경쟁우위 지표" {
				return nil, errors.New("no renderer")
			}
			return &model.Chart{Title: row.Label}, nil
		},
		Progress: func(cur, _ int) { progress = append(progress, cur) },
	})
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(res.Rows))
	}
	if res.Rows[0].Chart == nil || res.Rows[0].Chart.Title != "Sales Stability Index" {
		t.Errorf("chart = %+v", res.Rows[0].Chart)
	}
	if res.Rows[1].Chart != nil {
		t.Errorf("failed chart should be nil, got %+v", res.Rows[1].Chart)
	}
	if fmt.Sprint(progress) != "[1 2]" {
		t.Errorf("progress = %v, want [1 2]", progress)
	}
}

func TestRunClosedMerchantWindowed(t *testing.T) {
	// The closed merchant contributes only six points, so eleven survive.
	recs := append(kpiSeries("OPEN", 5, false, "매출안정성지표"),
		kpiSeries("SHUT", 20, true, "매출안정성지표")...)
	in := inputs(t, recs, thresholds(t, []string{"매출안정성지표", "5", "8"}))
	in.Indicators = []string{"매출안정성지표"}

	res := Run(in, Options{PreCloseMonths: 6})
	if res.Records != 11 {
		t.Errorf("records = %d, want 11", res.Records)
	}
	if got := res.Outcomes[0].Points; got != 11 {
		t.Errorf("points = %d, want 11", got)
	}
}

func TestResultRow(t *testing.T) {
	res := &Result{Rows: []model.ForecastRow{{Indicator: "경쟁우위 지표", Label: "Competitive Advantage Index"}}}
	for _, name := range []string{"경쟁우위지표", "competitive advantage index", "Competitive Advantage Index"} {
		_, ok := res.Row(name)
		if name == "competitive advantage index" {
			if ok {
				t.Errorf("Row(%q) matched; lookup is case-sensitive", name)
			}
			continue
		}
		if !ok {
			t.Errorf("Row(%q) not found", name)
		}
	}
}

func writeFile(t testing.TB, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadInputsMissingFile(t *testing.T) {
	dir := t.TempDir()
	th := writeFile(t, dir, "th.csv", "지표,경고임계치,위험임계치\n")

	_, err := LoadInputs(Paths{KPI: filepath.Join(dir, "nope.xlsx"), Thresholds: th}, DefaultColumns(), nil)
	var mf *MissingFileError
	if !errors.As(err, &mf) {
		t.Fatalf("err = %v, want *MissingFileError", err)
	}
	if mf.Role != "kpi" {
		t.Errorf("role = %q, want kpi", mf.Role)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("error should match fs.ErrNotExist")
	}
}

func TestLoadInputsCSV(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("가맹점구분번호, 기준년월 ,폐업여부,매출안정성지표,경쟁우위 지표\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "M1,%d,0,%d,%d\n", 202301+i%12+(i/12)*100, 3+i%4, 2+i%3)
	}
	kpi := writeFile(t, dir, "kpi.csv", b.String())
	th := writeFile(t, dir, "th.csv", "지표, 경고임계치 ,위험임계치\n매출 안정성 지표,5,8\n경쟁우위 지표,4,7\n")

	in, err := LoadInputs(Paths{KPI: kpi, Thresholds: th}, DefaultColumns(), nil)
	if err != nil {
		t.Fatalf("LoadInputs: %v", err)
	}
	if len(in.KPI.Records) != 12 {
		t.Fatalf("records = %d, want 12", len(in.KPI.Records))
	}
	if in.Thresholds.Len() != 2 {
		t.Fatalf("thresholds = %d, want 2", in.Thresholds.Len())
	}

	res := Run(in, Options{})
	if len(res.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (outcomes %+v)", len(res.Rows), res.Outcomes)
	}
	if res.Rows[1].Column != "경쟁우위 지표" {
		t.Errorf("column = %q", res.Rows[1].Column)
	}
	if res.Rows[1].Warning != 4 || res.Rows[1].Danger != 7 {
		t.Errorf("thresholds = %v/%v, want 4/7", res.Rows[1].Warning, res.Rows[1].Danger)
	}
}
