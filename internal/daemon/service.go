// Package daemon provides the long-running forecast dashboard service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/pipeline"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Loader runs the forecast pipeline and loads the status table.
type Loader interface {
	Forecast(progress pipeline.ProgressFunc) (*pipeline.Result, error)
	Statuses() (*pipeline.StatusLoadResult, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Addr          string
	RefreshSpec   string   // cron spec, e.g. "@every 5m"
	Watch         []string // input files; scheduled runs are skipped while none changed
	EventsBuffer  int
	ShutdownGrace time.Duration
}

// Run triggers.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// IndicatorState is the compact per-indicator view carried by events.
type IndicatorState struct {
	Indicator    string       `json:"indicator"`
	Label        string       `json:"label"`
	ForecastMean float64      `json:"forecast_mean"`
	Status       model.Status `json:"forecast_status"`
}

// RunSummary describes one pipeline run.
type RunSummary struct {
	RunID      string           `json:"run_id"`
	Trigger    string           `json:"trigger"`
	At         time.Time        `json:"at"`
	DurationMS int64            `json:"duration_ms"`
	Forecasts  int              `json:"forecasts"`
	Skipped    int              `json:"skipped"`
	Records    int              `json:"records"`
	Indicators []IndicatorState `json:"indicators"`
	Error      string           `json:"error,omitempty"`
}

// StatusChange is a forecast status transition between two runs.
type StatusChange struct {
	Indicator string       `json:"indicator"`
	From      model.Status `json:"from"`
	To        model.Status `json:"to"`
}

// Event is emitted after every run.
type Event struct {
	ID        int64          `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Run       RunSummary     `json:"run"`
	Changes   []StatusChange `json:"changes,omitempty"`
}

// Event types.
const (
	EventRun          = "run"
	EventStatusChange = "status_change"
	EventRunFailed    = "run_failed"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastRunAt       time.Time `json:"last_run_at"`
	LastRunID       string    `json:"last_run_id,omitempty"`
	ResultRunID     string    `json:"result_run_id,omitempty"`
	ResultAt        time.Time `json:"result_at"`
	RunCount        int64     `json:"run_count"`
	RefreshSpec     string    `json:"refresh_spec"`
	Inputs          []string  `json:"inputs"`
	Forecasts       int       `json:"forecasts"`
	Skipped         int       `json:"skipped"`
	LastError       string    `json:"last_error,omitempty"`
	StatusError     string    `json:"status_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

type fileStamp struct {
	mtimeNs int64
	size    int64
	missing bool
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	loader  Loader
	log     zerolog.Logger
	metrics *Recorder
	echo    *echo.Echo

	runMu  sync.Mutex // serializes pipeline runs
	stamps map[string]fileStamp

	mu          sync.RWMutex
	startedAt   time.Time
	lastRunAt   time.Time
	runCount    int64
	lastError   string
	statusErr   string
	summary     RunSummary // latest run, failed or not
	lastGood    RunSummary // run that produced result
	result      *pipeline.Result
	statuses    pipeline.StatusLookup
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config, loader Loader, log zerolog.Logger) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.RefreshSpec == "" {
		cfg.RefreshSpec = "@every 5m"
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}

	s := &Service{
		cfg:       cfg,
		loader:    loader,
		log:       log,
		metrics:   NewRecorder(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	s.echo = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Service) Handler() http.Handler { return s.echo }

// Run performs an initial pipeline run, then serves HTTP and refreshes on
// the cron schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	sched := cron.New()
	if _, err := sched.AddFunc(s.cfg.RefreshSpec, func() {
		s.Refresh(TriggerSchedule, false)
	}); err != nil {
		return fmt.Errorf("parsing refresh schedule %q: %w", s.cfg.RefreshSpec, err)
	}

	// Seed the first result so status is useful immediately.
	s.Refresh(TriggerStartup, true)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info().Str("addr", s.cfg.Addr).Str("refresh", s.cfg.RefreshSpec).Msg("serving")

	sched.Start()
	defer sched.Stop()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// Refresh runs the pipeline. Unless force is set, the run is skipped when no
// watched input file changed since the previous run. It reports whether a
// run happened.
func (s *Service) Refresh(trigger string, force bool) (RunSummary, bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	stamps := stampFiles(s.cfg.Watch)
	if !force && s.stamps != nil && sameStamps(s.stamps, stamps) {
		s.log.Debug().Str("trigger", trigger).Msg("inputs unchanged, run skipped")
		s.mu.RLock()
		defer s.mu.RUnlock()
		return s.summary, false
	}
	s.stamps = stamps

	runID := uuid.NewString()
	start := time.Now()
	log := s.log.With().Str("run_id", runID).Str("trigger", trigger).Logger()

	res, err := s.loader.Forecast(nil)
	statuses, statusErr := s.loader.Statuses()
	elapsed := time.Since(start)

	summary := RunSummary{
		RunID:      runID,
		Trigger:    trigger,
		At:         start,
		DurationMS: elapsed.Milliseconds(),
	}

	if err != nil {
		summary.Error = err.Error()
		s.metrics.RecordRun(trigger, "failed", elapsed.Seconds())
		log.Error().Err(err).Msg("pipeline run failed")
	} else {
		summary.Forecasts = len(res.Rows)
		summary.Skipped = len(res.Skipped())
		summary.Records = res.Records
		summary.Indicators = indicatorStates(res)
		s.metrics.RecordRun(trigger, "ok", elapsed.Seconds())
		for _, out := range res.Outcomes {
			reason := "ok"
			if out.Skipped {
				reason = string(out.Reason)
			}
			s.metrics.RecordOutcome(reason)
		}
		for _, row := range res.Rows {
			s.metrics.RecordForecast(row.Label, row.ForecastMean, row.MAPE)
		}
		log.Info().
			Int("forecasts", summary.Forecasts).
			Int("skipped", summary.Skipped).
			Dur("elapsed", elapsed).
			Msg("pipeline run finished")
	}
	if statusErr != nil {
		log.Warn().Err(statusErr).Msg("status table unavailable")
	}

	s.mu.Lock()
	var prev []IndicatorState
	hadRun := s.result != nil
	if hadRun {
		prev = indicatorStates(s.result)
	}

	s.lastRunAt = start
	s.runCount++
	s.summary = summary
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
		s.result = res
		s.lastGood = summary
	}
	if statusErr != nil {
		s.statusErr = statusErr.Error()
	} else if statuses != nil {
		s.statusErr = ""
		s.statuses = statuses.Lookup
	}

	ev := Event{Type: EventRun, Timestamp: time.Now(), Run: summary}
	switch {
	case err != nil:
		ev.Type = EventRunFailed
	case hadRun:
		if changes := diffStatuses(prev, summary.Indicators); len(changes) > 0 {
			ev.Type = EventStatusChange
			ev.Changes = changes
		}
	}
	s.nextEventID++
	ev.ID = s.nextEventID
	s.mu.Unlock()

	s.publishEvent(ev)
	return summary, true
}

func indicatorStates(res *pipeline.Result) []IndicatorState {
	out := make([]IndicatorState, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, IndicatorState{
			Indicator:    row.Indicator,
			Label:        row.Label,
			ForecastMean: row.ForecastMean,
			Status:       row.Status,
		})
	}
	return out
}

// diffStatuses lists indicators whose forecast status changed. Indicators
// that appear or disappear between runs are not reported.
func diffStatuses(prev, curr []IndicatorState) []StatusChange {
	before := make(map[string]model.Status, len(prev))
	for _, p := range prev {
		before[p.Indicator] = p.Status
	}
	var changes []StatusChange
	for _, c := range curr {
		if was, ok := before[c.Indicator]; ok && was != c.Status {
			changes = append(changes, StatusChange{Indicator: c.Indicator, From: was, To: c.Status})
		}
	}
	return changes
}

func stampFiles(paths []string) map[string]fileStamp {
	out := make(map[string]fileStamp, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			out[p] = fileStamp{missing: true}
			continue
		}
		out[p] = fileStamp{mtimeNs: info.ModTime().UnixNano(), size: info.Size()}
	}
	return out
}

func sameStamps(a, b map[string]fileStamp) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastRunAt:       s.lastRunAt,
		LastRunID:       s.summary.RunID,
		ResultRunID:     s.lastGood.RunID,
		ResultAt:        s.lastGood.At,
		RunCount:        s.runCount,
		RefreshSpec:     s.cfg.RefreshSpec,
		Inputs:          s.cfg.Watch,
		Forecasts:       s.lastGood.Forecasts,
		Skipped:         s.lastGood.Skipped,
		LastError:       s.lastError,
		StatusError:     s.statusErr,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// current returns the last good result with the summary of the run that
// produced it, and the latest run's error if that run failed.
func (s *Service) current() (*pipeline.Result, RunSummary, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.lastGood, s.lastError
}

func (s *Service) latestRun() RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
