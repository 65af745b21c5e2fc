package cmd

import (
	"fmt"

	"github.com/theirongolddev/kpicast/internal/config"
	"github.com/theirongolddev/kpicast/internal/tui"
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	theme.SetActive(rt.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Terminal log output would tear the alt screen; only file logs survive.
	log := rt.log
	if out := rt.cfg.Log.Output; out == "" || out == "stderr" || out == "stdout" {
		log = zerolog.Nop()
	}

	cache, closeCache := openCache(rt.cfg, log)
	defer closeCache()

	app := tui.NewApp(tui.Options{
		Config:    rt.cfg,
		NeedSetup: !config.Exists(),
		NewLoader: func(cfg config.Config) tui.Loader {
			return newLoader(cfg, log, cache)
		},
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
