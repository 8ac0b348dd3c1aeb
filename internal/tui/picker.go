package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jtsunne/ncmon/internal/config"
)

// serverItem implements list.Item for the server picker.
type serverItem struct {
	server config.ServerConfig
	active bool
}

func (i serverItem) Title() string {
	if i.active {
		return i.server.DisplayName + "  (active)"
	}
	return i.server.DisplayName
}

func (i serverItem) Description() string { return i.server.SourcePath }

func (i serverItem) FilterValue() string {
	return i.server.Name() + " " + i.server.BaseURL
}

// pickerModel selects the server to monitor.
type pickerModel struct {
	list      list.Model
	selected  *config.ServerConfig
	cancelled bool
}

func newPicker(servers []config.ServerConfig, active config.ServerConfig, theme Theme, width, height int) pickerModel {
	items := make([]list.Item, len(servers))
	cursor := 0
	for i, s := range servers {
		isActive := s.SourcePath == active.SourcePath
		if isActive {
			cursor = i
		}
		items[i] = serverItem{server: s, active: isActive}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorBlue).
		BorderForeground(colorBlue)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(colorGray).
		BorderForeground(colorBlue)

	l := list.New(items, delegate, width, height)
	l.Title = "Select a server"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.Styles.Title = theme.Value.Padding(0, 0, 1, 0)
	l.Select(cursor)

	return pickerModel{list: l}
}

// Update handles picker input. Enter records the selection and esc cancels;
// both are left to the list while a filter is being typed.
func (m pickerModel) Update(msg tea.Msg) (pickerModel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch keyMsg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(serverItem); ok {
				s := item.server
				m.selected = &s
			}
			return m, nil
		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				break // the list clears its filter
			}
			m.cancelled = true
			return m, nil
		case "q":
			m.cancelled = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}
