package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/model"
)

// MockMetricsClient implements client.MetricsClient for testing.
type MockMetricsClient struct {
	FetchFn func(ctx context.Context, server config.ServerConfig) (*client.Payload, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockMetricsClient) Fetch(ctx context.Context, server config.ServerConfig) (*client.Payload, error) {
	m.mu.Lock()
	m.calls = append(m.calls, server.SourcePath)
	m.mu.Unlock()

	if m.FetchFn != nil {
		return m.FetchFn(ctx, server)
	}
	return payloadFor(server.DisplayName), nil
}

// Calls returns the source paths passed to Fetch, in call order.
func (m *MockMetricsClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// payloadFor builds a minimal valid payload whose version field is version.
func payloadFor(version string) *client.Payload {
	return &client.Payload{
		Tree: map[string]any{
			"ocs": map[string]any{
				"meta": map[string]any{"status": "ok"},
				"data": map[string]any{
					"nextcloud": map[string]any{
						"system": map[string]any{"version": version},
					},
				},
			},
		},
		Body: []byte(`{"version":"` + version + `"}`),
	}
}

// sinkEvent is one call recorded by recordingSink.
type sinkEvent struct {
	kind     string // "loading", "snapshot" or "error"
	server   string
	version  string
	message  string
	snapshot model.Snapshot
}

// recordingSink implements Sink and records every call.
type recordingSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (r *recordingSink) OnSnapshot(snap model.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "snapshot", server: snap.Server(), version: snap.Get(model.KeyVersion), snapshot: snap})
}

func (r *recordingSink) OnError(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "error", message: message})
}

func (r *recordingSink) OnLoading(server config.ServerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sinkEvent{kind: "loading", server: server.SourcePath})
}

func (r *recordingSink) Events() []sinkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sinkEvent(nil), r.events...)
}

func (r *recordingSink) Count(kind string) int {
	n := 0
	for _, e := range r.Events() {
		if e.kind == kind {
			n++
		}
	}
	return n
}

var errMockFailure = errors.New("mock failure")
