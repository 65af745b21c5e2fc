package tui

import (
	"errors"
	"os"
	"strings"

	"github.com/theirongolddev/kpicast/internal/config"
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// setupValues holds the answers bound to the setup form fields.
type setupValues struct {
	KPIPath       string
	ThresholdPath string
	StatusPath    string
	Months        int
	Theme         string
	Language      string
}

func newSetupValues(cfg config.Config) setupValues {
	return setupValues{
		KPIPath:       cfg.Input.KPIPath,
		ThresholdPath: cfg.Input.ThresholdPath,
		StatusPath:    cfg.Input.StatusPath,
		Months:        cfg.Forecast.ForecastMonths,
		Theme:         cfg.Appearance.Theme,
		Language:      cfg.Appearance.Language,
	}
}

// NewSetupForm builds the setup form bound to a copy of cfg. Call apply after
// the form completes to obtain the updated config.
func NewSetupForm(cfg config.Config) (form *huh.Form, apply func() config.Config) {
	vals := newSetupValues(cfg)
	form = newSetupForm(&vals)
	return form, func() config.Config { return applySetup(cfg, vals) }
}

func newSetupForm(vals *setupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], len(theme.All))
	for i, t := range theme.All {
		themeOpts[i] = huh.NewOption(t.Name, t.Name)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to kpicast").
				Description("Point kpicast at your KPI and threshold sheets.\nPaths may be .xlsx or .csv files."),
			huh.NewInput().
				Title("KPI sheet").
				Description("Monthly per-merchant indicators").
				Value(&vals.KPIPath).
				Validate(fileExists),
			huh.NewInput().
				Title("Threshold sheet").
				Description("Warning and danger level per indicator").
				Value(&vals.ThresholdPath).
				Validate(fileExists),
			huh.NewInput().
				Title("Merchant status sheet").
				Description("Per-merchant future status, used by the Merchants tab").
				Value(&vals.StatusPath),
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Forecast horizon").
				Options(
					huh.NewOption("6 months", 6),
					huh.NewOption("10 months", 10),
					huh.NewOption("12 months", 12),
					huh.NewOption("24 months", 24),
				).
				Value(&vals.Months),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
			huh.NewSelect[string]().
				Title("Language").
				Options(
					huh.NewOption("English", "en"),
					huh.NewOption("한국어", "ko"),
				).
				Value(&vals.Language),
		),
	)
}

func fileExists(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return errors.New("file not found")
	}
	return nil
}

func applySetup(cfg config.Config, vals setupValues) config.Config {
	cfg.Input.KPIPath = strings.TrimSpace(vals.KPIPath)
	cfg.Input.ThresholdPath = strings.TrimSpace(vals.ThresholdPath)
	cfg.Input.StatusPath = strings.TrimSpace(vals.StatusPath)
	if vals.Months > 0 {
		cfg.Forecast.ForecastMonths = vals.Months
	}
	cfg.Appearance.Theme = vals.Theme
	cfg.Appearance.Language = vals.Language
	return cfg
}

// saveSetupConfig applies the form answers and persists them. The updated
// config is returned even when saving fails so the session can use it.
func saveSetupConfig(cfg config.Config, vals setupValues) (config.Config, error) {
	cfg = applySetup(cfg, vals)
	return cfg, config.Save(cfg)
}
