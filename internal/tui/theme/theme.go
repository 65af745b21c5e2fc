// Package theme defines color themes for the kpicast TUI dashboard.
package theme

import (
	"github.com/theirongolddev/kpicast/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// Theme maps the dashboard's color roles to a palette.
type Theme struct {
	Name string

	// Chrome
	Surface      lipgloss.Color // card and bar backgrounds
	Border       lipgloss.Color
	BorderAccent lipgloss.Color // focused cards, active tab
	TextDim      lipgloss.Color // hints, axis labels
	TextMuted    lipgloss.Color // labels, metadata
	TextPrimary  lipgloss.Color // values and the observed series
	Accent       lipgloss.Color
	AccentBright lipgloss.Color
	Highlight    lipgloss.Color // key hints, early progress

	// Data
	Forecast lipgloss.Color // predicted series
	Safe     lipgloss.Color
	Warning  lipgloss.Color
	Danger   lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default theme, warm and paper-inspired.
var FlexokiDark = Theme{
	Name:         "flexoki-dark",
	Surface:      "#1C1B1A",
	Border:       "#403E3C",
	BorderAccent: "#3AA99F",
	TextDim:      "#575653",
	TextMuted:    "#878580",
	TextPrimary:  "#FFFCF0",
	Accent:       "#3AA99F",
	AccentBright: "#5BC8BE",
	Highlight:    "#24837B",
	Forecast:     "#4385BE",
	Safe:         "#879A39",
	Warning:      "#DA702C",
	Danger:       "#D14D41",
}

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = Theme{
	Name:         "catppuccin-mocha",
	Surface:      "#313244",
	Border:       "#585B70",
	BorderAccent: "#89B4FA",
	TextDim:      "#6C7086",
	TextMuted:    "#A6ADC8",
	TextPrimary:  "#CDD6F4",
	Accent:       "#89B4FA",
	AccentBright: "#B4D0FB",
	Highlight:    "#94E2D5",
	Forecast:     "#89B4FA",
	Safe:         "#A6E3A1",
	Warning:      "#FAB387",
	Danger:       "#F38BA8",
}

// TokyoNight is a cool blue/purple theme.
var TokyoNight = Theme{
	Name:         "tokyo-night",
	Surface:      "#24283B",
	Border:       "#565F89",
	BorderAccent: "#7AA2F7",
	TextDim:      "#565F89",
	TextMuted:    "#A9B1D6",
	TextPrimary:  "#C0CAF5",
	Accent:       "#7AA2F7",
	AccentBright: "#A9C1FF",
	Highlight:    "#7DCFFF",
	Forecast:     "#BB9AF7",
	Safe:         "#9ECE6A",
	Warning:      "#FF9E64",
	Danger:       "#F7768E",
}

// Terminal uses ANSI 16 colors only.
var Terminal = Theme{
	Name:         "terminal",
	Surface:      "0",
	Border:       "8",
	BorderAccent: "6",
	TextDim:      "8",
	TextMuted:    "7",
	TextPrimary:  "15",
	Accent:       "6",
	AccentBright: "14",
	Highlight:    "6",
	Forecast:     "4",
	Safe:         "2",
	Warning:      "3",
	Danger:       "1",
}

// All available themes.
var All = []Theme{FlexokiDark, CatppuccinMocha, TokyoNight, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// Names lists the available theme names in display order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// Tier returns the color of a risk tier.
func (t Theme) Tier(s model.Status) lipgloss.Color {
	switch s {
	case model.StatusDanger:
		return t.Danger
	case model.StatusWarning:
		return t.Warning
	default:
		return t.Safe
	}
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}
