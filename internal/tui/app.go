// Package tui provides the interactive Bubble Tea dashboard for kpicast.
package tui

import (
	"fmt"
	"time"

	"github.com/theirongolddev/kpicast/internal/cli"
	"github.com/theirongolddev/kpicast/internal/config"
	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/pipeline"
	"github.com/theirongolddev/kpicast/internal/tui/components"
	"github.com/theirongolddev/kpicast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Loader produces the data shown by the dashboard.
type Loader interface {
	Forecast(progress pipeline.ProgressFunc) (*pipeline.Result, error)
	Statuses() (*pipeline.StatusLoadResult, error)
}

// Options configures a new App.
type Options struct {
	Config    config.Config
	NewLoader func(cfg config.Config) Loader
	NeedSetup bool // show the setup form after the first load
}

// DataLoadedMsg is sent when the pipeline finishes.
type DataLoadedMsg struct {
	Result    *pipeline.Result
	Err       error // fatal load error, e.g. a missing input file
	Statuses  *pipeline.StatusLoadResult
	StatusErr error
	LoadTime  time.Duration
}

// ProgressMsg reports per-indicator forecasting progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background data refresh completes.
type RefreshDataMsg struct {
	DataLoadedMsg
}

// App is the root Bubble Tea model.
type App struct {
	cfg       config.Config
	newLoader func(cfg config.Config) Loader
	loader    Loader
	lang      string

	// Data
	result    *pipeline.Result
	loadErr   error
	statuses  *pipeline.StatusLoadResult
	statusErr error
	loaded    bool
	loadTime  time.Duration

	lastRefresh time.Time
	refreshing  bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Forecast tab: index into result.Rows
	indicator int

	// Merchants tab
	merch merchantsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals setupValues
	setupErr  error
	needSetup bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg // progress + completion messages from loader goroutine
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 160
	minContentHeight = 5

	tabForecast  = 0
	tabMerchants = 1
	tabSkipped   = 2
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	return App{
		cfg:       opts.Config,
		newLoader: opts.NewLoader,
		loader:    opts.NewLoader(opts.Config),
		lang:      opts.Config.Appearance.Language,
		needSetup: opts.NeedSetup,
		merch:     merchantsState{input: newSearchInput()},
		spinner:   sp,
		loadSub:   make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.loader, a.loadSub),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.applyData(msg)
		a.loaded = true

		if a.needSetup {
			a.setupVals = newSetupValues(a.cfg)
			a.setupForm = newSetupForm(&a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case RefreshDataMsg:
		a.refreshing = false
		a.applyData(msg.DataLoadedMsg)
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case spinner.TickMsg:
		if !a.loaded || a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.merch.searching {
		var cmd tea.Cmd
		a.merch.input, cmd = a.merch.input.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) applyData(msg DataLoadedMsg) {
	a.result = msg.Result
	a.loadErr = msg.Err
	a.statuses = msg.Statuses
	a.statusErr = msg.StatusErr
	a.loadTime = msg.LoadTime
	a.lastRefresh = time.Now()

	if a.result == nil || a.indicator >= len(a.result.Rows) {
		a.indicator = 0
	}
	a.merch.runLookup(a.statuses)
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// First-run setup wizard intercepts all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	// Merchant search mode intercepts all keys when active
	if a.activeTab == tabMerchants && a.merch.searching {
		return a.updateMerchantSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabForecast:
		if handled, next := a.updateForecastKey(key); handled {
			return next, nil
		}
	case tabMerchants:
		if handled, next, cmd := a.updateMerchantsKey(key); handled {
			return next, cmd
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(refreshDataCmd(a.loader), a.spinner.Tick)
		}
		return a, nil
	case "S":
		a.setupVals = newSetupValues(a.cfg)
		a.setupForm = newSetupForm(&a.setupVals)
		if a.width > 0 {
			a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
		}
		return a, a.setupForm.Init()
	case "L":
		if a.lang == "ko" {
			a.lang = "en"
		} else {
			a.lang = "ko"
		}
		return a, nil
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	default:
		if len(key) == 1 {
			if idx := components.TabIdxByKey(rune(key[0])); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.cfg, a.setupErr = saveSetupConfig(a.cfg, a.setupVals)
		theme.SetActive(a.cfg.Appearance.Theme)
		a.lang = a.cfg.Appearance.Language
		a.needSetup = false
		a.setupForm = nil
		a.loader = a.newLoader(a.cfg)
		a.refreshing = true
		return a, tea.Batch(refreshDataCmd(a.loader), a.spinner.Tick)

	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}

	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewMain() string {
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)
	statusBar := components.RenderStatusBar(w, a.statusInfo(), a.refreshing)

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.loadErr != nil:
		content = components.ContentCard("Could not load inputs", a.loadErr.Error()+
			"\n\nCheck the file paths with `kpicast config`, or press S to run setup.", cw)
	case a.activeTab == tabForecast:
		content = a.renderForecastTab(cw, contentH)
	case a.activeTab == tabMerchants:
		content = a.renderMerchantsTab(cw, contentH)
	case a.activeTab == tabSkipped:
		content = a.renderSkippedTab(cw)
	}

	content = fitHeight(content, contentH)
	content = lipgloss.PlaceHorizontal(w, lipgloss.Center, content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (a App) statusInfo() string {
	if a.result == nil {
		return ""
	}
	return fmt.Sprintf("%d forecast · %d skipped · %s records · %.1fs",
		len(a.result.Rows),
		len(a.result.Skipped()),
		cli.FormatNumber(int64(a.result.Records)),
		a.loadTime.Seconds(),
	)
}

// ─── Helpers ────────────────────────────────────────────────────

func statusColor(s model.Status) lipgloss.Color {
	return theme.Active.Tier(s)
}

// loadDataCmd starts the pipeline in a background goroutine.
// It streams ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(l Loader, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			// Non-blocking send so the pipeline isn't stalled.
			// If the channel is full, we skip this update; the next one catches up.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			sub <- load(l, progressFn)
		}()

		// Block until the first message (either ProgressMsg or DataLoadedMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd re-runs the pipeline in the background (no progress UI).
func refreshDataCmd(l Loader) tea.Cmd {
	return func() tea.Msg {
		return RefreshDataMsg{load(l, nil)}
	}
}

func load(l Loader, progress pipeline.ProgressFunc) DataLoadedMsg {
	start := time.Now()
	var msg DataLoadedMsg
	msg.Result, msg.Err = l.Forecast(progress)
	msg.Statuses, msg.StatusErr = l.Statuses()
	msg.LoadTime = time.Since(start)
	return msg
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "merchant id (substring, any case)"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Prompt = "/ "
	return ti
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= limit {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
