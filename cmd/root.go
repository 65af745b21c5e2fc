package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/theirongolddev/kpicast/internal/config"
	"github.com/theirongolddev/kpicast/internal/logger"
	"github.com/theirongolddev/kpicast/internal/pipeline"
	"github.com/theirongolddev/kpicast/internal/store"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagConfig     string
	flagKPI        string
	flagThresholds string
	flagStatus     string
	flagMonths     int
	flagPreClose   int
	flagLang       string
	flagLogLevel   string
	flagNoCache    bool
	flagQuiet      bool
)

// rt is the resolved runtime shared by all commands: the config file merged
// with flag overrides, and the logger built from it.
var rt struct {
	cfg       config.Config
	log       zerolog.Logger
	logCloser io.Closer
}

var rootCmd = &cobra.Command{
	Use:   "kpicast",
	Short: "Merchant KPI forecasting CLI",
	Long: "Forecast merchant KPI indicators month by month and flag the ones\n" +
		"heading past their warning or danger thresholds.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadRuntime,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if rt.logCloser != nil {
			_ = rt.logCloser.Close()
		}
	},
	RunE: runForecast,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var missing *pipeline.MissingFileError
		if errors.As(err, &missing) {
			fmt.Fprintf(os.Stderr, "\n  Error: %v\n", missing)
			fmt.Fprintf(os.Stderr, "  Pass --%s or run `kpicast setup` to point at the file.\n\n", missingFileFlag(missing.Role))
		} else {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default "+config.ConfigPath()+")")
	pf.StringVar(&flagKPI, "kpi", "", "KPI sheet (.xlsx or .csv)")
	pf.StringVar(&flagThresholds, "thresholds", "", "Threshold sheet (.xlsx or .csv)")
	pf.StringVar(&flagStatus, "status", "", "Per-merchant status sheet (.xlsx or .csv)")
	pf.IntVarP(&flagMonths, "months", "m", 0, "Months to forecast past the last observation")
	pf.IntVar(&flagPreClose, "pre-close", 0, "Months kept before closure for closed merchants")
	pf.StringVar(&flagLang, "lang", "", "Output language (en, ko)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Read the status sheet directly, bypassing the SQLite cache")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output and warnings")
}

func loadRuntime(cmd *cobra.Command, _ []string) error {
	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	applyFlags(cmd, &cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if flagQuiet && !cmd.Flags().Changed("log-level") {
		logCfg.Level = "error"
	}
	log, closer, err := logger.New(logCfg)
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.log = log
	rt.logCloser = closer
	return nil
}

// applyFlags overlays explicitly set flags on cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("kpi") {
		cfg.Input.KPIPath = flagKPI
	}
	if f.Changed("thresholds") {
		cfg.Input.ThresholdPath = flagThresholds
	}
	if f.Changed("status") {
		cfg.Input.StatusPath = flagStatus
	}
	if f.Changed("months") {
		cfg.Forecast.ForecastMonths = flagMonths
	}
	if f.Changed("pre-close") {
		cfg.Forecast.PreCloseMonths = flagPreClose
	}
	if f.Changed("lang") {
		cfg.Appearance.Language = flagLang
	}
	if f.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flagNoCache {
		cfg.Input.NoCache = true
	}
}

func missingFileFlag(role string) string {
	switch role {
	case "thresholds":
		return "thresholds"
	case "status":
		return "status"
	default:
		return "kpi"
	}
}

// openCache opens the status cache unless caching is disabled. A cache that
// cannot be opened is not fatal; statuses are then read from the file.
func openCache(cfg config.Config, log zerolog.Logger) (*store.Cache, func()) {
	if cfg.Input.NoCache {
		return nil, func() {}
	}
	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		log.Warn().Err(err).Msg("status cache unavailable, reading the sheet directly")
		return nil, func() {}
	}
	return cache, func() { _ = cache.Close() }
}
