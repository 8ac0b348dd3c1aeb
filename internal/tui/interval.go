package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jtsunne/ncmon/internal/engine"
)

// intervalModel edits the refresh rate in whole seconds.
type intervalModel struct {
	input     textinput.Model
	err       string
	value     time.Duration
	submitted bool
	cancelled bool
}

func newIntervalEditor(current time.Duration) intervalModel {
	ti := textinput.New()
	ti.CharLimit = 4
	ti.Width = 8
	ti.Prompt = "> "
	ti.Placeholder = strconv.Itoa(int(engine.DefaultInterval / time.Second))
	ti.SetValue(strconv.Itoa(int(current / time.Second)))
	ti.CursorEnd()
	ti.Focus()
	return intervalModel{input: ti}
}

// Update handles keyboard input for the editor. Enter validates the value
// and sets submitted; esc sets cancelled. The parent checks both flags.
func (m intervalModel) Update(msg tea.Msg) (intervalModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.cancelled = true
			return m, nil
		case "enter":
			d, err := parseSeconds(m.input.Value())
			if err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.err = ""
			m.value = d
			m.submitted = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func parseSeconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("enter a whole number of seconds")
	}
	d := time.Duration(n) * time.Second
	if err := engine.ValidateInterval(d); err != nil {
		return 0, fmt.Errorf("refresh rate must be between %d and %d seconds",
			int(engine.MinInterval/time.Second), int(engine.MaxInterval/time.Second))
	}
	return d, nil
}

func (m intervalModel) View(theme Theme) string {
	var b strings.Builder
	b.WriteString(theme.Value.Render("Auto-Refresh Rate (seconds)"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.err != "" {
		b.WriteString(theme.StatusError.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString(theme.Dim.Render(fmt.Sprintf("%d-%d seconds  enter: apply  esc: cancel",
		int(engine.MinInterval/time.Second), int(engine.MaxInterval/time.Second))))
	return theme.Border.Render(b.String())
}
