// Package config loads and saves the kpicast TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds all kpicast configuration.
type Config struct {
	Input      InputConfig      `toml:"input"`
	Columns    ColumnsConfig    `toml:"columns"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Appearance AppearanceConfig `toml:"appearance"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
}

// InputConfig locates the input sheets. Relative paths resolve against the
// working directory. Empty sheet names select the first sheet.
type InputConfig struct {
	KPIPath        string `toml:"kpi_path" default:"KPI_file.xlsx" validate:"required"`
	KPISheet       string `toml:"kpi_sheet,omitempty"`
	ThresholdPath  string `toml:"threshold_path" default:"threshold.xlsx" validate:"required"`
	ThresholdSheet string `toml:"threshold_sheet,omitempty"`
	StatusPath     string `toml:"status_path" default:"result_prophet_storewise.csv"`
	StatusSheet    string `toml:"status_sheet,omitempty"`
	NoCache        bool   `toml:"no_cache"`
}

// ColumnsConfig names the fixed columns of each sheet.
type ColumnsConfig struct {
	MerchantID  string `toml:"merchant_id" default:"가맹점구분번호" validate:"required"`
	YearMonth   string `toml:"year_month" default:"기준년월" validate:"required"`
	ClosureFlag string `toml:"closure_flag" default:"폐업여부" validate:"required"`

	Indicator string `toml:"indicator" default:"지표" validate:"required"`
	Warning   string `toml:"warning" default:"경고임계치" validate:"required"`
	Danger    string `toml:"danger" default:"위험임계치" validate:"required"`

	StatusMerchant  string `toml:"status_merchant" default:"가맹점" validate:"required"`
	StatusIndicator string `toml:"status_indicator" default:"지표" validate:"required"`
	StatusValue     string `toml:"status_value" default:"미래상태" validate:"required"`
}

// ForecastConfig tunes the pipeline.
type ForecastConfig struct {
	ForecastMonths int      `toml:"forecast_months" default:"10" validate:"min=1,max=120"`
	PreCloseMonths int      `toml:"pre_close_months" default:"6" validate:"min=1,max=120"`
	Indicators     []string `toml:"indicators" default:"[\"매출안정성지표\",\"경쟁우위 지표\",\"고객 충성도 지표\"]" validate:"min=1,dive,required"`
}

// AppearanceConfig holds theme and language settings.
type AppearanceConfig struct {
	Theme    string `toml:"theme" default:"flexoki-dark" validate:"oneof=flexoki-dark catppuccin-mocha tokyo-night terminal"`
	Language string `toml:"language" default:"en" validate:"oneof=en ko"`
}

// ServerConfig configures `kpicast serve`.
type ServerConfig struct {
	Addr          string `toml:"addr" default:"127.0.0.1:8787" validate:"hostname_port"`
	RefreshCron   string `toml:"refresh_cron" default:"@every 5m" validate:"required"`
	EventsBuffer  int    `toml:"events_buffer" default:"200" validate:"min=1"`
	ShutdownGrace int    `toml:"shutdown_grace_secs" default:"5" validate:"min=0"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `toml:"level" default:"info" validate:"oneof=trace debug info warn error disabled"`
	Format string `toml:"format" default:"console" validate:"oneof=console json"`
	Output string `toml:"output" default:"stderr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	var cfg Config
	_ = defaults.Set(&cfg)
	return cfg
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kpicast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kpicast")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// LoadFile reads the config at path. Keys absent from the file keep their
// defaults. The result is not validated, so callers can overlay flags
// before calling Validate.
func LoadFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return DefaultConfig(), fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := defaults.Set(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("applying defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks cfg against its field rules.
func Validate(cfg Config) error {
	err := validate.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes cfg to path, creating its directory.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
