package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/logger"
	"github.com/jtsunne/ncmon/internal/model"
)

// Output formats of Text.
const (
	FormatText = "text"
	FormatJSON = "json"
)

const textQueueSize = 32

type textEvent struct {
	kind   string
	snap   model.Snapshot
	msg    string
	server config.ServerConfig
	at     time.Time
}

// Text writes notifications to an io.Writer from its own goroutine, so the
// scheduler never waits on a slow terminal or pipe. Events that arrive
// while the queue is full are dropped.
type Text struct {
	w        io.Writer
	format   string
	interval func() time.Duration
	now      func() time.Time
	events   chan textEvent
	logger   zerolog.Logger

	// owned by Run
	last   time.Time
	active config.ServerConfig
}

// NewText returns a Text sink. interval reports the current polling period
// for the "next check" hint and may be nil.
func NewText(w io.Writer, format string, interval func() time.Duration) *Text {
	if format == "" {
		format = FormatText
	}
	return &Text{
		w:        w,
		format:   format,
		interval: interval,
		now:      time.Now,
		events:   make(chan textEvent, textQueueSize),
		logger:   logger.WithComponent("sink"),
	}
}

func (t *Text) OnSnapshot(snap model.Snapshot) {
	t.enqueue(textEvent{kind: "snapshot", snap: snap})
}

func (t *Text) OnError(message string) {
	t.enqueue(textEvent{kind: "error", msg: message})
}

func (t *Text) OnLoading(server config.ServerConfig) {
	t.enqueue(textEvent{kind: "loading", server: server})
}

func (t *Text) enqueue(e textEvent) {
	e.at = t.now()
	select {
	case t.events <- e:
	default:
		t.logger.Warn().Str("event", e.kind).Msg("Output queue full, event dropped")
	}
}

// Run writes queued events until ctx is done.
func (t *Text) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-t.events:
			if err := t.write(e); err != nil {
				return fmt.Errorf("write %s event: %w", e.kind, err)
			}
		}
	}
}

func (t *Text) write(e textEvent) error {
	if t.format == FormatJSON {
		return t.writeJSON(e)
	}

	switch e.kind {
	case "loading":
		t.active = e.server
		t.last = time.Time{}
		_, err := fmt.Fprintf(t.w, "Loading metrics for %s...\n", e.server.DisplayName)
		return err
	case "error":
		msg := "Error: " + e.msg
		if !t.last.IsZero() {
			msg += fmt.Sprintf(" (last update %s)", humanize.RelTime(t.last, e.at, "ago", "from now"))
		}
		_, err := fmt.Fprintln(t.w, msg)
		return err
	default:
		t.last = e.snap.FetchedAt()
		_, err := io.WriteString(t.w, RenderSnapshot(e.snap, t.active.DisplayName, t.currentInterval()))
		return err
	}
}

func (t *Text) currentInterval() time.Duration {
	if t.interval == nil {
		return 0
	}
	return t.interval()
}

// jsonEvent is one line of FormatJSON output.
type jsonEvent struct {
	Type      string            `json:"type"`
	Server    string            `json:"server,omitempty"`
	Time      time.Time         `json:"time"`
	FetchedAt *time.Time        `json:"fetched_at,omitempty"`
	Metrics   map[string]string `json:"metrics,omitempty"`
	Message   string            `json:"message,omitempty"`
}

func (t *Text) writeJSON(e textEvent) error {
	out := jsonEvent{Type: e.kind, Time: e.at, Message: e.msg}
	switch e.kind {
	case "loading":
		t.active = e.server
		out.Server = e.server.DisplayName
	case "snapshot":
		fetched := e.snap.FetchedAt()
		out.Server = t.active.DisplayName
		out.FetchedAt = &fetched
		out.Metrics = MetricsMap(e.snap)
	default:
		out.Server = t.active.DisplayName
	}
	return json.NewEncoder(t.w).Encode(out)
}

// MetricsMap converts a snapshot's values to a string-keyed map.
func MetricsMap(snap model.Snapshot) map[string]string {
	values := snap.Values()
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[string(k)] = v
	}
	return out
}

// RenderSnapshot formats snap as labelled sections followed by a status
// line. interval may be 0 when unknown.
func RenderSnapshot(snap model.Snapshot, server string, interval time.Duration) string {
	var b strings.Builder

	width := 0
	for _, k := range model.AllKeys {
		width = max(width, len(k.Label()))
	}

	if server != "" {
		fmt.Fprintf(&b, "== %s ==\n", server)
	}
	for _, sec := range model.Sections {
		fmt.Fprintf(&b, "[%s]\n", sec.Title)
		for _, k := range sec.Keys {
			v := snap.Get(k)
			if strings.Contains(v, "\n") {
				v = strings.ReplaceAll(v, "\n", "\n"+strings.Repeat(" ", width+4))
			}
			fmt.Fprintf(&b, "  %-*s  %s\n", width, k.Label(), v)
		}
	}
	b.WriteString(StatusLine(snap.FetchedAt(), interval))
	b.WriteString("\n")
	return b.String()
}

// StatusLine is the "last updated" summary shown after a successful fetch.
func StatusLine(fetched time.Time, interval time.Duration) string {
	line := "Last updated: " + fetched.Format("2006-01-02 15:04:05") + "."
	if interval > 0 {
		next := fetched.Add(interval)
		line += fmt.Sprintf(" Next check at %s (%ds interval).", next.Format("15:04:05"), int(interval/time.Second))
	}
	return line
}
