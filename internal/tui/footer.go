package tui

// renderFooter renders the colored status line above the key binding help.
// When app.showHelp is true, shows all key bindings; otherwise a brief hint.
func renderFooter(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}
	status := app.theme.statusStyle(app.level).Width(width).Render(app.status)

	text := "? for help"
	if app.showHelp {
		text = helpText
	}
	return status + "\n" + app.theme.Dim.Width(width).Render(text)
}
