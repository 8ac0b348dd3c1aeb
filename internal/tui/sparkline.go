package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jtsunne/ncmon/internal/model"
)

// sparkWidth is the number of points drawn per trend line.
const sparkWidth = 30

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// renderSparkline draws the last width values scaled to their maximum.
// Fewer values than width are left-padded with spaces. Non-positive values
// sit on the floor.
func renderSparkline(values []float64, width int, style lipgloss.Style) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	top := slices.Max(values)

	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", width-len(values)))
	for _, v := range values {
		idx := 0
		if top > 0 {
			idx = min(max(int(v/top*7), 0), 7)
		}
		sb.WriteRune(sparkBlocks[idx])
	}
	return style.Render(sb.String())
}

// trendValue formats the latest reading of k for display after its line.
func trendValue(k model.Key, v float64) string {
	switch k {
	case model.KeyRAMUsed:
		return humanize.IBytes(uint64(max(v, 0)))
	case model.KeyCPULoad1m:
		return fmt.Sprintf("%.2f", v)
	default:
		return humanize.Comma(int64(v))
	}
}

// renderTrends draws a sparkline for every trend key in sec. It returns
// "" when sec has none or no history was recorded yet.
func renderTrends(app *App, sec model.Section) string {
	if app.history == nil || app.history.Len() == 0 {
		return ""
	}

	var keys []model.Key
	width := 0
	for _, k := range sec.Keys {
		if slices.Contains(model.TrendKeys, k) {
			keys = append(keys, k)
			width = max(width, len(k.Label()))
		}
	}
	if len(keys) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(app.theme.SectionTitle.Render(fmt.Sprintf("TRENDS (last %d)", app.history.Len())))
	b.WriteString("\n")
	for _, k := range keys {
		series := app.history.Series(k)
		b.WriteString(app.theme.Label.Render(padRight(k.Label(), width)))
		b.WriteString("  ")
		b.WriteString(renderSparkline(series, sparkWidth, app.theme.StatusInfo))
		b.WriteString("  ")
		b.WriteString(app.theme.Value.Render(trendValue(k, series[len(series)-1])))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
