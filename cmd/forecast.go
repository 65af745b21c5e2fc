package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/theirongolddev/kpicast/internal/cli"
	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagJSON    bool
	flagNoChart bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast every indicator and print the result table",
	RunE:  runForecast,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, forecastCmd} {
		c.Flags().BoolVar(&flagJSON, "json", false, "Print the result as JSON")
		c.Flags().BoolVar(&flagNoChart, "no-chart", false, "Omit the per-indicator charts")
	}
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(_ *cobra.Command, _ []string) error {
	l := newLoader(rt.cfg, rt.log, nil)
	if !flagJSON && !flagNoChart {
		l.chart = cli.ForecastChart
	}

	var progress pipeline.ProgressFunc
	if !flagQuiet && !flagJSON {
		progress = func(current, total int) {
			fmt.Fprintf(os.Stderr, "\r  Forecasting %s", cli.RenderProgressBar(current, total, 20))
			if current == total {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	res, err := l.Forecast(progress)
	if err != nil {
		return err
	}

	lang := rt.cfg.Appearance.Language
	if flagJSON {
		return writeForecastJSON(os.Stdout, res, lang)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("KPI FORECAST  Next %d months", rt.cfg.Forecast.ForecastMonths)))
	fmt.Println()

	table := cli.ForecastTable(res.Rows, lang)
	fmt.Print(cli.RenderTable(table))
	if res.Empty() {
		fmt.Println("\n  No forecasts available.")
	}

	for _, row := range res.Rows {
		if row.Chart == nil {
			continue
		}
		fmt.Println()
		fmt.Println(cli.RenderTitle(row.Chart.Title))
		fmt.Println(row.Chart.Body)
	}

	if skipped := res.Skipped(); len(skipped) > 0 {
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.OutcomeTable(skipped)))
	}
	fmt.Println()
	return nil
}

type forecastJSON struct {
	Columns  []string            `json:"columns"`
	Rows     []model.ForecastRow `json:"rows"`
	Outcomes []model.Outcome     `json:"outcomes"`
	Message  string              `json:"message,omitempty"`
}

func writeForecastJSON(w io.Writer, res *pipeline.Result, lang string) error {
	out := forecastJSON{
		Columns:  model.ColumnLabels(lang),
		Rows:     res.Rows,
		Outcomes: res.Outcomes,
	}
	if res.Empty() {
		out.Message = "no forecasts available"
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
