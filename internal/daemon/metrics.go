package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the Prometheus collectors exported at /metrics.
type Recorder struct {
	registry     *prometheus.Registry
	runsTotal    *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	duration     prometheus.Histogram
	forecastMean *prometheus.GaugeVec
	mape         *prometheus.GaugeVec
}

// NewRecorder registers the service collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpicast_runs_total",
				Help: "Pipeline runs by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kpicast_indicator_outcomes_total",
				Help: "Per-indicator outcomes by reason (ok when forecast)",
			},
			[]string{"reason"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kpicast_run_duration_seconds",
				Help:    "Duration of pipeline runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		forecastMean: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpicast_forecast_mean",
				Help: "Forecast mean of the latest run per indicator",
			},
			[]string{"indicator"},
		),
		mape: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kpicast_forecast_mape_percent",
				Help: "MAPE of the latest run per indicator",
			},
			[]string{"indicator"},
		),
	}
}

// Registry returns the registry backing the /metrics endpoint.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// RecordRun records a finished run.
func (r *Recorder) RecordRun(trigger, result string, seconds float64) {
	r.runsTotal.WithLabelValues(trigger, result).Inc()
	r.duration.Observe(seconds)
}

// RecordOutcome records one indicator outcome.
func (r *Recorder) RecordOutcome(reason string) {
	r.outcomes.WithLabelValues(reason).Inc()
}

// RecordForecast publishes the latest evaluation of an indicator.
func (r *Recorder) RecordForecast(indicator string, mean, mape float64) {
	r.forecastMean.WithLabelValues(indicator).Set(mean)
	r.mape.WithLabelValues(indicator).Set(mape)
}
