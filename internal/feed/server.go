// Package feed publishes poll results to WebSocket subscribers.
//
// Every subscriber receives JSON events of the form
//
//	{"type":"snapshot","server":"[ncmonitor] cloud.example.com","fetched_at":"...","metrics":{...}}
//	{"type":"error","server":"...","message":"HTTP 401 Unauthorized. Check URL/Token."}
//	{"type":"loading","server":"..."}
//
// A subscriber may send {"type":"refresh"} to request an immediate cycle.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/logger"
	"github.com/jtsunne/ncmon/internal/model"
	"github.com/jtsunne/ncmon/internal/sink"
)

const (
	sendQueueSize = 16
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
)

// Event is one message sent to subscribers.
type Event struct {
	Type      string            `json:"type"`
	ID        string            `json:"id,omitempty"`
	Server    string            `json:"server,omitempty"`
	FetchedAt *time.Time        `json:"fetched_at,omitempty"`
	Metrics   map[string]string `json:"metrics,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// ClientMessage is a message received from a subscriber.
type ClientMessage struct {
	Type string `json:"type"`
}

// Refresher starts a fetch cycle on demand.
type Refresher interface {
	Refresh() bool
}

type subscriber struct {
	id   string
	send chan []byte
}

// Server is a display sink that broadcasts to WebSocket subscribers and
// serves the latest snapshot over plain HTTP.
type Server struct {
	token     string
	refresher Refresher
	upgrader  websocket.Upgrader
	logger    zerolog.Logger

	mu          sync.Mutex
	subscribers map[string]*subscriber
	active      config.ServerConfig
	latest      *Event
}

// NewServer returns a feed server. token may be empty to disable auth;
// refresher may be nil to ignore refresh requests.
func NewServer(token string, refresher Refresher) *Server {
	return &Server{
		token:       token,
		refresher:   refresher,
		subscribers: make(map[string]*subscriber),
		logger:      logger.WithComponent("feed"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetRefresher wires the refresher after construction, for when the
// scheduler is built with this server as its sink.
func (s *Server) SetRefresher(r Refresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresher = r
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "subscribers": s.subscriberCount()})
	})
	return mux
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Live feed listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !checkAuth(r, s.token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()

	if latest == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(latest)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !checkAuth(r, s.token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("ws upgrade")
		return
	}
	defer conn.Close()

	sub := &subscriber{id: uuid.NewString(), send: make(chan []byte, sendQueueSize)}
	initial := s.addSubscriber(sub)
	defer s.removeSubscriber(sub)

	log := s.logger.With().Str("subscriber", sub.id).Logger()
	log.Debug().Str("remote", r.RemoteAddr).Msg("Subscriber connected")

	done := make(chan struct{})
	defer close(done)
	go s.writePump(conn, sub, initial, done)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("Subscriber disconnected")
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendTo(sub, Event{Type: "error", Message: "invalid message"})
			continue
		}

		switch msg.Type {
		case "refresh":
			s.mu.Lock()
			refresher := s.refresher
			s.mu.Unlock()
			if refresher == nil || !refresher.Refresh() {
				s.sendTo(sub, Event{Type: "busy", Message: "refresh dropped: a fetch is already running"})
			}
		case "ping":
			s.sendTo(sub, Event{Type: "pong"})
		default:
			s.sendTo(sub, Event{Type: "error", Message: "unknown message type: " + msg.Type})
		}
	}
}

// writePump is the only writer of conn.
func (s *Server) writePump(conn *websocket.Conn, sub *subscriber, initial [][]byte, done <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	write := func(data []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	for _, data := range initial {
		if err := write(data); err != nil {
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case data := <-sub.send:
			if err := write(data); err != nil {
				_ = conn.Close()
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

// addSubscriber registers sub and returns the messages a new subscriber
// starts with: a hello carrying its id, then the latest snapshot if any.
func (s *Server) addSubscriber(sub *subscriber) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub.id] = sub

	initial := [][]byte{mustMarshal(Event{Type: "hello", ID: sub.id, Server: s.active.DisplayName})}
	if s.latest != nil {
		initial = append(initial, mustMarshal(*s.latest))
	}
	return initial
}

func (s *Server) removeSubscriber(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, sub.id)
}

func (s *Server) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Server) sendTo(sub *subscriber, e Event) {
	select {
	case sub.send <- mustMarshal(e):
	default:
	}
}

// broadcastLocked queues e for every subscriber. Slow subscribers whose
// queue is full miss the event.
func (s *Server) broadcastLocked(e Event) {
	data := mustMarshal(e)
	for id, sub := range s.subscribers {
		select {
		case sub.send <- data:
		default:
			s.logger.Warn().Str("subscriber", id).Str("event", e.Type).Msg("Subscriber queue full, event dropped")
		}
	}
}

func (s *Server) OnSnapshot(snap model.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fetched := snap.FetchedAt()
	e := Event{
		Type:      "snapshot",
		Server:    s.active.DisplayName,
		FetchedAt: &fetched,
		Metrics:   sink.MetricsMap(snap),
	}
	s.latest = &e
	s.broadcastLocked(e)
}

func (s *Server) OnError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcastLocked(Event{Type: "error", Server: s.active.DisplayName, Message: message})
}

func (s *Server) OnLoading(server config.ServerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = server
	s.latest = nil
	s.broadcastLocked(Event{Type: "loading", Server: server.DisplayName})
}

func mustMarshal(e Event) []byte {
	data, err := json.Marshal(e)
	if err != nil {
		// Event holds only strings, a time and a string map.
		panic(err)
	}
	return data
}
