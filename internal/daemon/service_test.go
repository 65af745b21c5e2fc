package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/pipeline"

	"github.com/rs/zerolog"
)

type fakeLoader struct {
	mu     sync.Mutex
	calls  int
	result *pipeline.Result
	err    error
	status pipeline.StatusList
}

func (f *fakeLoader) Forecast(pipeline.ProgressFunc) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeLoader) Statuses() (*pipeline.StatusLoadResult, error) {
	if f.status == nil {
		return nil, errors.New("status file not found: missing.csv")
	}
	return &pipeline.StatusLoadResult{Lookup: f.status}, nil
}

func (f *fakeLoader) set(res *pipeline.Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result, f.err = res, err
}

func sampleResult(status model.Status) *pipeline.Result {
	return &pipeline.Result{
		Rows: []model.ForecastRow{{
			Model:        "Prophet",
			Indicator:    "매출안정성지표",
			Label:        "Sales Stability Index",
			ForecastMean: 6.5,
			MAPE:         3.2,
			Warning:      5,
			Danger:       8,
			Status:       status,
		}},
		Outcomes: []model.Outcome{
			{Indicator: "매출안정성지표", Points: 15},
			{Indicator: "경쟁우위 지표", Skipped: true, Reason: model.SkipThresholdMissing},
		},
		Records: 15,
	}
}

func newTestService(t *testing.T, l *fakeLoader, watch ...string) *Service {
	t.Helper()
	return New(Config{Watch: watch, EventsBuffer: 10}, l, zerolog.Nop())
}

func do(t *testing.T, s *Service, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestDiffStatuses(t *testing.T) {
	prev := []IndicatorState{
		{Indicator: "a", Status: model.StatusSafe},
		{Indicator: "b", Status: model.StatusWarning},
		{Indicator: "gone", Status: model.StatusSafe},
	}
	curr := []IndicatorState{
		{Indicator: "a", Status: model.StatusDanger},
		{Indicator: "b", Status: model.StatusWarning},
		{Indicator: "new", Status: model.StatusDanger},
	}

	changes := diffStatuses(prev, curr)
	if len(changes) != 1 {
		t.Fatalf("changes = %+v, want 1", changes)
	}
	c := changes[0]
	if c.Indicator != "a" || c.From != model.StatusSafe || c.To != model.StatusDanger {
		t.Errorf("change = %+v", c)
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{EventsBuffer: 2}, &fakeLoader{}, zerolog.Nop())

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestRefreshSkipsUnchangedInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "KPI_file.csv")
	if err := os.WriteFile(path, []byte("a,b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	l := &fakeLoader{result: sampleResult(model.StatusWarning)}
	s := newTestService(t, l, path)

	first, ran := s.Refresh(TriggerStartup, true)
	if !ran || first.RunID == "" {
		t.Fatalf("startup run: ran=%v id=%q", ran, first.RunID)
	}

	again, ran := s.Refresh(TriggerSchedule, false)
	if ran {
		t.Fatal("scheduled run with unchanged inputs should be skipped")
	}
	if again.RunID != first.RunID {
		t.Errorf("skipped run returned id %q, want %q", again.RunID, first.RunID)
	}
	if l.calls != 1 {
		t.Errorf("loader calls = %d, want 1", l.calls)
	}

	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	next, ran := s.Refresh(TriggerSchedule, false)
	if !ran {
		t.Fatal("changed input should trigger a run")
	}
	if next.RunID == first.RunID {
		t.Error("each run should get a fresh id")
	}

	if _, ran := s.Refresh(TriggerManual, true); !ran {
		t.Error("forced run should always run")
	}
	if l.calls != 3 {
		t.Errorf("loader calls = %d, want 3", l.calls)
	}
}

func TestRefreshEvents(t *testing.T) {
	l := &fakeLoader{result: sampleResult(model.StatusSafe)}
	s := newTestService(t, l)

	s.Refresh(TriggerStartup, true)
	s.Refresh(TriggerManual, true) // same status
	l.set(sampleResult(model.StatusDanger), nil)
	s.Refresh(TriggerManual, true)
	l.set(nil, errors.New("kpi file not found: KPI_file.xlsx"))
	s.Refresh(TriggerManual, true)

	s.mu.RLock()
	defer s.mu.RUnlock()

	want := []string{EventRun, EventRun, EventStatusChange, EventRunFailed}
	if len(s.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(s.events), len(want))
	}
	for i, typ := range want {
		if s.events[i].Type != typ {
			t.Errorf("event %d type = %q, want %q", i, s.events[i].Type, typ)
		}
	}
	changes := s.events[2].Changes
	if len(changes) != 1 || changes[0].To != model.StatusDanger {
		t.Errorf("changes = %+v", changes)
	}
	// A failed run keeps the last good result.
	if s.result == nil || s.result.Rows[0].Status != model.StatusDanger {
		t.Error("last good result should survive a failed run")
	}
	if s.lastError == "" {
		t.Error("lastError not recorded")
	}
}

func TestHealthz(t *testing.T) {
	s := newTestService(t, &fakeLoader{})
	rec := do(t, s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestForecastsBeforeRun(t *testing.T) {
	s := newTestService(t, &fakeLoader{})
	rec := do(t, s, http.MethodGet, "/v1/forecasts")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestForecastsEndpoints(t *testing.T) {
	l := &fakeLoader{
		result: sampleResult(model.StatusWarning),
		status: pipeline.StatusList{
			{MerchantID: "ABC123", Indicator: "매출안정성지표", Status: model.StatusDanger},
			{MerchantID: "XYZ9", Indicator: "매출안정성지표", Status: model.StatusSafe},
		},
	}
	s := newTestService(t, l)
	s.Refresh(TriggerStartup, true)

	rec := do(t, s, http.MethodGet, "/v1/forecasts?lang=ko")
	if rec.Code != http.StatusOK {
		t.Fatalf("forecasts status = %d", rec.Code)
	}
	var resp ForecastsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Rows) != 1 || len(resp.Outcomes) != 2 {
		t.Errorf("rows=%d outcomes=%d", len(resp.Rows), len(resp.Outcomes))
	}
	if resp.Columns[0] != "모델" {
		t.Errorf("columns = %v, want Korean labels", resp.Columns)
	}
	if !strings.Contains(rec.Body.String(), `"forecast_status":"warning"`) {
		t.Errorf("body lacks forecast status: %s", rec.Body.String())
	}

	tests := []struct {
		target string
		code   int
	}{
		{"/v1/forecasts/" + url.PathEscape("Sales Stability Index"), http.StatusOK},
		{"/v1/forecasts/" + url.PathEscape("매출안정성지표"), http.StatusOK},
		{"/v1/forecasts/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rec := do(t, s, http.MethodGet, tt.target); rec.Code != tt.code {
			t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.code)
		}
	}

	rec = do(t, s, http.MethodGet, "/v1/merchants/abc")
	var m MerchantsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Matches) != 1 || m.Matches[0].MerchantID != "ABC123" {
		t.Errorf("merchant matches = %+v", m.Matches)
	}

	rec = do(t, s, http.MethodGet, "/v1/merchants/nomatch")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"matches":[]`) {
		t.Errorf("no-match lookup = %d %s", rec.Code, rec.Body.String())
	}
}

func TestEmptyForecasts(t *testing.T) {
	l := &fakeLoader{result: &pipeline.Result{Rows: []model.ForecastRow{}}}
	s := newTestService(t, l)
	s.Refresh(TriggerStartup, true)

	rec := do(t, s, http.MethodGet, "/v1/forecasts")
	var resp ForecastsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Message != "no forecasts available" {
		t.Errorf("message = %q", resp.Message)
	}
	if len(resp.Columns) != len(model.Columns) {
		t.Errorf("columns = %v", resp.Columns)
	}
}

func TestMerchantsWithoutStatusTable(t *testing.T) {
	s := newTestService(t, &fakeLoader{result: sampleResult(model.StatusSafe)})
	s.Refresh(TriggerStartup, true)

	rec := do(t, s, http.MethodGet, "/v1/merchants/abc")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing.csv") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRefreshEndpointAndStatus(t *testing.T) {
	l := &fakeLoader{result: sampleResult(model.StatusSafe)}
	s := newTestService(t, l)
	s.Refresh(TriggerStartup, true)

	rec := do(t, s, http.MethodPost, "/v1/refresh")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d", rec.Code)
	}
	var summary RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Trigger != TriggerManual || summary.Forecasts != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v", summary)
	}

	rec = do(t, s, http.MethodGet, "/v1/status")
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.RunCount != 2 || st.LastRunID != summary.RunID {
		t.Errorf("status = %+v", st)
	}

	l.set(nil, errors.New("boom"))
	if rec := do(t, s, http.MethodPost, "/v1/refresh"); rec.Code != http.StatusInternalServerError {
		t.Errorf("failed refresh = %d, want 500", rec.Code)
	}
}

func TestFailedRunKeepsResultRunID(t *testing.T) {
	l := &fakeLoader{result: sampleResult(model.StatusSafe)}
	s := newTestService(t, l)
	good, _ := s.Refresh(TriggerStartup, true)

	l.set(nil, errors.New("kpi file not found: KPI_file.xlsx"))
	failed, _ := s.Refresh(TriggerManual, true)

	var st Status
	if err := json.Unmarshal(do(t, s, http.MethodGet, "/v1/status").Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.LastRunID != failed.RunID || st.LastError == "" {
		t.Errorf("latest run: id %q error %q, want %q with error", st.LastRunID, st.LastError, failed.RunID)
	}
	if st.ResultRunID != good.RunID || st.Forecasts != 1 || st.Skipped != 1 {
		t.Errorf("served result: id %q forecasts %d skipped %d, want %q 1 1",
			st.ResultRunID, st.Forecasts, st.Skipped, good.RunID)
	}

	var resp ForecastsResponse
	if err := json.Unmarshal(do(t, s, http.MethodGet, "/v1/forecasts").Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RunID != good.RunID || len(resp.Rows) != 1 {
		t.Errorf("forecasts served under run %q with %d rows, want %q", resp.RunID, len(resp.Rows), good.RunID)
	}
}

func TestForecastsAfterOnlyFailedRuns(t *testing.T) {
	s := newTestService(t, &fakeLoader{err: errors.New("kpi file not found: KPI_file.xlsx")})
	s.Refresh(TriggerStartup, true)

	rec := do(t, s, http.MethodGet, "/v1/forecasts")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "KPI_file.xlsx") {
		t.Errorf("forecasts = %d %s, want 503 naming the failure", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestService(t, &fakeLoader{result: sampleResult(model.StatusSafe)})
	s.Refresh(TriggerStartup, true)

	body := do(t, s, http.MethodGet, "/metrics").Body.String()
	for _, want := range []string{
		`kpicast_runs_total{result="ok",trigger="startup"} 1`,
		`kpicast_indicator_outcomes_total{reason="threshold_missing"} 1`,
		`kpicast_indicator_outcomes_total{reason="ok"} 1`,
		"kpicast_run_duration_seconds_count 1",
		`kpicast_forecast_mean{indicator="Sales Stability Index"} 6.5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
