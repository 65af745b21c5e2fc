// Package cmd implements the kpicast CLI commands.
package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/kpicast/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := rt.cfg

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	fmt.Printf("  Config file: %s\n", path)
	if config.Exists() || flagConfig != "" {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [Input]")
	fmt.Printf("    KPI sheet:        %s%s\n", cfg.Input.KPIPath, sheetSuffix(cfg.Input.KPISheet))
	fmt.Printf("    Threshold sheet:  %s%s\n", cfg.Input.ThresholdPath, sheetSuffix(cfg.Input.ThresholdSheet))
	fmt.Printf("    Status sheet:     %s%s\n", cfg.Input.StatusPath, sheetSuffix(cfg.Input.StatusSheet))
	fmt.Printf("    Status cache:     %v\n", !cfg.Input.NoCache)
	fmt.Println()

	fmt.Println("  [Columns]")
	fmt.Printf("    KPI:        %s, %s, %s\n", cfg.Columns.MerchantID, cfg.Columns.YearMonth, cfg.Columns.ClosureFlag)
	fmt.Printf("    Threshold:  %s, %s, %s\n", cfg.Columns.Indicator, cfg.Columns.Warning, cfg.Columns.Danger)
	fmt.Printf("    Status:     %s, %s, %s\n", cfg.Columns.StatusMerchant, cfg.Columns.StatusIndicator, cfg.Columns.StatusValue)
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Forecast months:   %d\n", cfg.Forecast.ForecastMonths)
	fmt.Printf("    Pre-close months:  %d\n", cfg.Forecast.PreCloseMonths)
	fmt.Printf("    Indicators:        %s\n", strings.Join(cfg.Forecast.Indicators, ", "))
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:     %s\n", cfg.Appearance.Theme)
	fmt.Printf("    Language:  %s\n", cfg.Appearance.Language)
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:  %s\n", cfg.Server.Addr)
	fmt.Printf("    Refresh:  %s\n", cfg.Server.RefreshCron)
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level:   %s (%s to %s)\n", cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	fmt.Println()

	fmt.Println("  Run `kpicast setup` to reconfigure.")
	return nil
}

func sheetSuffix(sheet string) string {
	if sheet == "" {
		return ""
	}
	return " [" + sheet + "]"
}
