package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/logger"
	"github.com/jtsunne/ncmon/internal/model"
)

const sinkQueueSize = 64

// Sink turns scheduler notifications into Bubble Tea messages. The
// scheduler calls it under its lock, so sends never block: a snapshot or
// error that finds the queue full is dropped. A loading notice is never
// dropped; it replaces everything still queued, since the App resets its
// state on it anyway.
type Sink struct {
	mu     sync.Mutex // serializes senders
	msgs   chan tea.Msg
	logger zerolog.Logger
}

func NewSink() *Sink {
	return &Sink{
		msgs:   make(chan tea.Msg, sinkQueueSize),
		logger: logger.WithComponent("tui"),
	}
}

func (s *Sink) OnSnapshot(snap model.Snapshot) { s.send(SnapshotMsg{Snapshot: snap}) }

func (s *Sink) OnError(message string) { s.send(FetchErrorMsg{Message: message}) }

func (s *Sink) OnLoading(server config.ServerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
drain:
	for {
		select {
		case <-s.msgs:
			dropped++
		default:
			break drain
		}
	}
	if dropped > 0 {
		s.logger.Debug().Int("dropped", dropped).Msg("Loading notice replaced queued messages")
	}
	// Only the listener drains the queue concurrently, so there is room.
	s.msgs <- LoadingMsg{Server: server}
}

func (s *Sink) send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case s.msgs <- msg:
	default:
		s.logger.Warn().Type("msg", msg).Msg("TUI queue full, message dropped")
	}
}

// Listen waits for the next notification. The App re-issues it after
// handling each one.
func (s *Sink) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-s.msgs
	}
}
