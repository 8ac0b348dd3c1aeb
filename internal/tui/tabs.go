package tui

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jtsunne/ncmon/internal/engine"
	"github.com/jtsunne/ncmon/internal/model"
)

const (
	rawTabTitle    = "Raw Data"
	rawPlaceholder = "Fetching raw data..."
)

// tabCount is one tab per model section plus the raw response tab.
var tabCount = len(model.Sections) + 1

func tabTitle(i int) string {
	if i < len(model.Sections) {
		return model.Sections[i].Title
	}
	return rawTabTitle
}

func (app *App) onRawTab() bool {
	return app.tab == tabCount-1
}

func renderTabs(app *App) string {
	tabs := make([]string, 0, tabCount)
	for i := 0; i < tabCount; i++ {
		style := app.theme.TabInactive
		if i == app.tab {
			style = app.theme.TabActive
		}
		tabs = append(tabs, style.Render(tabTitle(i)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderSection lays out one section as aligned label/value rows.
// Multi-line values continue under the value column.
func renderSection(app *App, sec model.Section) string {
	var snap model.Snapshot
	if app.snapshot != nil {
		snap = *app.snapshot
	}

	width := 0
	for _, k := range sec.Keys {
		width = max(width, len(k.Label()))
	}
	indent := strings.Repeat(" ", width+3)

	var b strings.Builder
	b.WriteString(app.theme.SectionTitle.Render(strings.ToUpper(sec.Title)))
	b.WriteString("\n")
	for _, k := range sec.Keys {
		lines := strings.Split(snap.Get(k), "\n")
		label := app.theme.Label.Render(padRight(k.Label()+":", width+1))
		b.WriteString(label + "  " + valueStyle(app, k, lines[0]).Render(lines[0]) + "\n")
		for _, line := range lines[1:] {
			b.WriteString(indent + app.theme.Value.Render(line) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// valueStyle highlights values that need attention.
func valueStyle(app *App, k model.Key, v string) lipgloss.Style {
	switch {
	case k == model.KeyMaintenance && v == "Yes":
		return app.theme.StatusWarn
	case k == model.KeyAppList && v == engine.AppListMissing:
		return app.theme.StatusError
	case strings.HasPrefix(v, engine.DataMissing), strings.HasPrefix(v, engine.StorageMissing):
		return app.theme.StatusWarn
	default:
		return app.theme.Value
	}
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

// rawContent pretty-prints the raw response body. Bodies that are not
// valid JSON are shown verbatim.
func rawContent(snap *model.Snapshot) string {
	if snap == nil {
		return rawPlaceholder
	}
	raw := snap.Raw()
	if len(raw) == 0 {
		return rawPlaceholder
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
