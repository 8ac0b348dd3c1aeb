package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const appTitle = "Nextcloud Monitor"

// renderHeader renders the top header bar.
//
// Layout:
//
//	left:   active server display name
//	center: "● LIVE", "● LOADING" or "● ERROR"
//	right:  "Last: HH:MM:SS  Poll: Ns"
func renderHeader(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}
	t := app.theme

	left := app.active.DisplayName
	if left == "" {
		left = appTitle
	}

	var center string
	switch {
	case app.lastError != "":
		center = t.StatusError.Render("● ERROR")
	case app.snapshot == nil:
		center = t.StatusInfo.Render("● LOADING")
	default:
		center = t.StatusOK.Render("● LIVE")
	}

	lastStr := "never"
	if app.snapshot != nil {
		lastStr = app.snapshot.FetchedAt().Format("15:04:05")
	}
	right := fmt.Sprintf("Last: %s  Poll: %s", lastStr, formatDuration(app.ctrl.Session().Interval))

	// Header has Padding(0, 1) so inner content width = total width - 2.
	innerWidth := width - 2
	spacing := max(innerWidth-lipgloss.Width(left)-lipgloss.Width(center)-lipgloss.Width(right), 0)
	leftSpacing := spacing / 2
	rightSpacing := spacing - leftSpacing

	row := left +
		strings.Repeat(" ", leftSpacing) +
		center +
		strings.Repeat(" ", rightSpacing) +
		right

	return t.Header.Width(width).Render(row)
}

// formatDuration formats a poll interval as a compact string, e.g. "10s",
// "2m" or "1m30s".
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d > time.Minute {
		return fmt.Sprintf("%dm%ds", int(d/time.Minute), int((d%time.Minute)/time.Second))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
