package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status colors shared by both themes.
var (
	colorGreen  = lipgloss.Color("#10b981")
	colorRed    = lipgloss.Color("#ef4444")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorOrange = lipgloss.Color("#f97316")
	colorGray   = lipgloss.Color("#6b7280")
)

// Theme holds every style the dashboard renders with. It is chosen once
// and passed to NewApp.
type Theme struct {
	Name string

	Header       lipgloss.Style
	TabActive    lipgloss.Style
	TabInactive  lipgloss.Style
	SectionTitle lipgloss.Style
	Label        lipgloss.Style
	Value        lipgloss.Style
	Dim          lipgloss.Style
	Border       lipgloss.Style

	StatusInfo  lipgloss.Style
	StatusOK    lipgloss.Style
	StatusWarn  lipgloss.Style
	StatusError lipgloss.Style
}

// Theme names accepted by ThemeByName.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

func DarkTheme() Theme {
	fg := lipgloss.Color("#ffffff")
	bg := lipgloss.Color("#2e2e2e")
	tab := lipgloss.Color("#3c3c3c")

	return newTheme(ThemeDark, fg, bg, tab, lipgloss.Color("#dddddd"), lipgloss.Color("#5a5a5a"))
}

func LightTheme() Theme {
	fg := lipgloss.Color("#333333")
	bg := lipgloss.Color("#f8fafc")
	tab := lipgloss.Color("#e2e8f0")

	return newTheme(ThemeLight, fg, bg, tab, lipgloss.Color("#475569"), lipgloss.Color("#94a3b8"))
}

func newTheme(name string, fg, bg, tab, tabFg, border lipgloss.Color) Theme {
	status := lipgloss.NewStyle().Bold(true)
	return Theme{
		Name:         name,
		Header:       lipgloss.NewStyle().Background(tab).Foreground(fg).Padding(0, 1),
		TabActive:    lipgloss.NewStyle().Bold(true).Foreground(fg).Background(bg).Padding(0, 2).Underline(true),
		TabInactive:  lipgloss.NewStyle().Foreground(tabFg).Background(tab).Padding(0, 2),
		SectionTitle: lipgloss.NewStyle().Bold(true).Foreground(fg).Padding(1, 0, 0, 0),
		Label:        lipgloss.NewStyle().Foreground(tabFg),
		Value:        lipgloss.NewStyle().Bold(true).Foreground(fg),
		Dim:          lipgloss.NewStyle().Foreground(colorGray),
		Border:       lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),

		StatusInfo:  status.Foreground(colorBlue),
		StatusOK:    status.Foreground(colorGreen),
		StatusWarn:  status.Foreground(colorOrange),
		StatusError: status.Foreground(colorRed),
	}
}

// ThemeByName returns the named theme. An empty name selects the dark theme.
func ThemeByName(name string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ThemeDark:
		return DarkTheme(), nil
	case ThemeLight:
		return LightTheme(), nil
	default:
		return Theme{}, fmt.Errorf("unknown theme %q (want %s or %s)", name, ThemeDark, ThemeLight)
	}
}

// statusLevel selects the color of the status line.
type statusLevel int

const (
	levelInfo statusLevel = iota
	levelOK
	levelWarn
	levelError
)

func (t Theme) statusStyle(level statusLevel) lipgloss.Style {
	switch level {
	case levelOK:
		return t.StatusOK
	case levelWarn:
		return t.StatusWarn
	case levelError:
		return t.StatusError
	default:
		return t.StatusInfo
	}
}
