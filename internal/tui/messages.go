package tui

import (
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/model"
)

// SnapshotMsg delivers a successful poll result to the TUI.
type SnapshotMsg struct{ Snapshot model.Snapshot }

// FetchErrorMsg signals a poll failure. The last snapshot stays on screen.
type FetchErrorMsg struct{ Message string }

// LoadingMsg signals that Server became the active server and has no
// snapshot yet.
type LoadingMsg struct{ Server config.ServerConfig }
