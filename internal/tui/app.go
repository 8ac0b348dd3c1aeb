// Package tui is the terminal dashboard. It is a display sink: the
// scheduler pushes snapshots, errors and loading notices through Sink and
// the App renders them; user actions go back through Controller.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/engine"
	"github.com/jtsunne/ncmon/internal/model"
	"github.com/jtsunne/ncmon/internal/sink"
)

// Controller is the part of the scheduler the dashboard drives.
type Controller interface {
	Refresh() bool
	SetInterval(d time.Duration) error
	SwitchConfig(server config.ServerConfig)
	Session() engine.Session
}

type mode int

const (
	modeDashboard mode = iota
	modePicker
	modeInterval
)

// header, tab bar, status line and help line
const chromeHeight = 4

// App is the root Bubble Tea model for ncmon.
type App struct {
	ctrl    Controller
	sink    *Sink
	servers []config.ServerConfig
	theme   Theme

	// Poll state, as last reported by the sink
	active    config.ServerConfig
	snapshot  *model.Snapshot
	history   *model.History
	lastError string

	// Status line
	status string
	level  statusLevel

	// Layout
	width, height int

	// UI state
	tab      int
	raw      viewport.Model
	mode     mode
	picker   pickerModel
	interval intervalModel
	showHelp bool
}

// NewApp returns the dashboard. s must be the sink the scheduler behind
// ctrl notifies.
func NewApp(ctrl Controller, s *Sink, servers []config.ServerConfig, theme Theme) *App {
	raw := viewport.New(80, 20)
	raw.SetContent(rawPlaceholder)

	return &App{
		ctrl:    ctrl,
		sink:    s,
		servers: servers,
		theme:   theme,
		active:  ctrl.Session().Active,
		status:  "Initializing monitor...",
		level:   levelInfo,
		raw:     raw,
		history: model.NewHistory(model.DefaultHistoryCap),
	}
}

// Init implements tea.Model. Starts listening for scheduler notifications.
func (app *App) Init() tea.Cmd {
	return app.sink.Listen()
}

// Update implements tea.Model. It is the single state-mutation entry point.
func (app *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		app.width = msg.Width
		app.height = msg.Height
		app.raw.Width = msg.Width
		app.raw.Height = max(msg.Height-chromeHeight, 1)
		if app.mode == modePicker {
			app.picker.list.SetSize(msg.Width, max(msg.Height-chromeHeight, 1))
		}
		return app, nil

	case LoadingMsg:
		app.active = msg.Server
		app.snapshot = nil
		app.history.Clear()
		app.lastError = ""
		app.setStatus(levelInfo, "Monitoring server: "+msg.Server.BaseURL+"...")
		app.raw.SetContent(rawPlaceholder)
		app.raw.GotoTop()
		return app, app.sink.Listen()

	case SnapshotMsg:
		snap := msg.Snapshot
		app.snapshot = &snap
		app.history.Push(snap)
		app.lastError = ""
		app.setStatus(levelOK, sink.StatusLine(snap.FetchedAt(), app.ctrl.Session().Interval))
		app.raw.SetContent(rawContent(app.snapshot))
		return app, app.sink.Listen()

	case FetchErrorMsg:
		app.lastError = msg.Message
		app.setStatus(levelError, "Error: "+msg.Message)
		return app, app.sink.Listen()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return app, tea.Quit
		}
		switch app.mode {
		case modePicker:
			return app.updatePicker(msg)
		case modeInterval:
			return app.updateInterval(msg)
		}
		return app.updateDashboard(msg)
	}

	switch app.mode {
	case modePicker:
		return app.updatePicker(msg)
	case modeInterval:
		return app.updateInterval(msg)
	}
	if app.onRawTab() {
		var cmd tea.Cmd
		app.raw, cmd = app.raw.Update(msg)
		return app, cmd
	}
	return app, nil
}

func (app *App) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return app, tea.Quit
	case key.Matches(msg, keys.Refresh):
		if app.ctrl.Refresh() {
			app.setStatus(levelInfo, "Fetching new data...")
		} else {
			app.setStatus(levelInfo, "A fetch is already in progress.")
		}
	case key.Matches(msg, keys.Tab):
		app.tab = (app.tab + 1) % tabCount
	case key.Matches(msg, keys.ShiftTab):
		app.tab = (app.tab - 1 + tabCount) % tabCount
	case key.Matches(msg, keys.Jump):
		app.tab = int(msg.String()[0]-'1') % tabCount
	case key.Matches(msg, keys.Servers):
		app.picker = newPicker(app.servers, app.active, app.theme, app.bodyWidth(), app.bodyHeight())
		app.mode = modePicker
	case key.Matches(msg, keys.Interval):
		app.interval = newIntervalEditor(app.ctrl.Session().Interval)
		app.mode = modeInterval
		return app, app.interval.input.Focus()
	case key.Matches(msg, keys.Help):
		app.showHelp = !app.showHelp
	default:
		if app.onRawTab() {
			var cmd tea.Cmd
			app.raw, cmd = app.raw.Update(msg)
			return app, cmd
		}
	}
	return app, nil
}

func (app *App) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	app.picker, cmd = app.picker.Update(msg)

	switch {
	case app.picker.selected != nil:
		selected := *app.picker.selected
		app.mode = modeDashboard
		if selected.SourcePath != app.active.SourcePath {
			// The scheduler's loading notice resets the view.
			app.ctrl.SwitchConfig(selected)
		}
		return app, nil
	case app.picker.cancelled:
		app.mode = modeDashboard
		return app, nil
	}
	return app, cmd
}

func (app *App) updateInterval(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	app.interval, cmd = app.interval.Update(msg)

	switch {
	case app.interval.submitted:
		app.mode = modeDashboard
		d := app.interval.value
		if d == app.ctrl.Session().Interval {
			return app, nil
		}
		if err := app.ctrl.SetInterval(d); err != nil {
			app.setStatus(levelError, "Error: "+err.Error())
			return app, nil
		}
		app.setStatus(levelWarn, fmt.Sprintf("Refresh rate set to %d seconds. Fetching now...", int(d/time.Second)))
		return app, nil
	case app.interval.cancelled:
		app.mode = modeDashboard
		return app, nil
	}
	return app, cmd
}

func (app *App) setStatus(level statusLevel, text string) {
	app.level = level
	app.status = text
}

func (app *App) bodyWidth() int {
	if app.width <= 0 {
		return 80
	}
	return app.width
}

func (app *App) bodyHeight() int {
	if app.height <= 0 {
		return 20
	}
	return max(app.height-chromeHeight, 1)
}

// View implements tea.Model. Renders the full TUI.
func (app *App) View() string {
	parts := []string{renderHeader(app)}

	switch app.mode {
	case modePicker:
		parts = append(parts, app.picker.View())
	case modeInterval:
		parts = append(parts, app.interval.View(app.theme))
	default:
		parts = append(parts, renderTabs(app))
		if app.onRawTab() {
			parts = append(parts, app.raw.View())
		} else {
			sec := model.Sections[app.tab]
			parts = append(parts, renderSection(app, sec))
			if trends := renderTrends(app, sec); trends != "" {
				parts = append(parts, "", trends)
			}
		}
	}
	parts = append(parts, renderFooter(app))

	return strings.Join(parts, "\n")
}
