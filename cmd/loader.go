package cmd

import (
	"github.com/theirongolddev/kpicast/internal/config"
	"github.com/theirongolddev/kpicast/internal/pipeline"
	"github.com/theirongolddev/kpicast/internal/source"
	"github.com/theirongolddev/kpicast/internal/store"

	"github.com/rs/zerolog"
)

// loader runs the pipeline for one configuration. It serves the table
// commands, the TUI and the HTTP service.
type loader struct {
	cfg   config.Config
	log   zerolog.Logger
	cache *store.Cache // nil reads the status sheet directly
	chart pipeline.ChartFunc
}

func newLoader(cfg config.Config, log zerolog.Logger, cache *store.Cache) *loader {
	return &loader{cfg: cfg, log: log, cache: cache}
}

func (l *loader) paths() pipeline.Paths {
	in := l.cfg.Input
	return pipeline.Paths{
		KPI:            in.KPIPath,
		KPISheet:       in.KPISheet,
		Thresholds:     in.ThresholdPath,
		ThresholdSheet: in.ThresholdSheet,
	}
}

func (l *loader) columns() pipeline.Columns {
	c := l.cfg.Columns
	return pipeline.Columns{
		KPI: source.KPIColumns{
			MerchantID:  c.MerchantID,
			YearMonth:   c.YearMonth,
			ClosureFlag: c.ClosureFlag,
		},
		Threshold: source.ThresholdColumns{
			Indicator: c.Indicator,
			Warning:   c.Warning,
			Danger:    c.Danger,
		},
	}
}

// Forecast loads both input sheets and runs every configured indicator.
func (l *loader) Forecast(progress pipeline.ProgressFunc) (*pipeline.Result, error) {
	in, err := pipeline.LoadInputs(l.paths(), l.columns(), l.cfg.Forecast.Indicators)
	if err != nil {
		return nil, err
	}
	if in.KPI.Dropped > 0 {
		l.log.Warn().Int("rows", in.KPI.Dropped).Str("file", l.cfg.Input.KPIPath).
			Msg("dropped unreadable KPI rows")
	}
	log := l.log
	return pipeline.Run(in, pipeline.Options{
		ForecastMonths: l.cfg.Forecast.ForecastMonths,
		PreCloseMonths: l.cfg.Forecast.PreCloseMonths,
		Chart:          l.chart,
		Progress:       progress,
		Logger:         &log,
	}), nil
}

// Statuses loads the per-merchant status sheet, through the cache when set.
func (l *loader) Statuses() (*pipeline.StatusLoadResult, error) {
	c := l.cfg.Columns
	return pipeline.LoadStatuses(pipeline.StatusSource{
		Path:  l.cfg.Input.StatusPath,
		Sheet: l.cfg.Input.StatusSheet,
		Columns: source.StatusColumns{
			MerchantID: c.StatusMerchant,
			Indicator:  c.StatusIndicator,
			Status:     c.StatusValue,
		},
	}, l.cache)
}

// watched lists the files whose changes trigger a scheduled re-run.
func (l *loader) watched() []string {
	files := []string{l.cfg.Input.KPIPath, l.cfg.Input.ThresholdPath}
	if l.cfg.Input.StatusPath != "" {
		files = append(files, l.cfg.Input.StatusPath)
	}
	return files
}
