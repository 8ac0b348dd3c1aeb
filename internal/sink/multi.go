// Package sink holds display sinks that do not need a terminal UI.
package sink

import (
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/engine"
	"github.com/jtsunne/ncmon/internal/model"
)

// Multi fans every notification out to each of its sinks in order.
type Multi []engine.Sink

// NewMulti drops nil sinks. A single remaining sink is returned unwrapped.
func NewMulti(sinks ...engine.Sink) engine.Sink {
	var m Multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m Multi) OnSnapshot(snap model.Snapshot) {
	for _, s := range m {
		s.OnSnapshot(snap)
	}
}

func (m Multi) OnError(message string) {
	for _, s := range m {
		s.OnError(message)
	}
}

func (m Multi) OnLoading(server config.ServerConfig) {
	for _, s := range m {
		s.OnLoading(server)
	}
}
