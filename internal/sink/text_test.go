package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/model"
)

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var testServer = config.ServerConfig{DisplayName: "[ncmonitor] cloud.example.com", SourcePath: "/cfg/ncmonitor.txt"}

func runText(t *testing.T, format string) (*Text, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	s := NewText(out, format, func() time.Duration { return 30 * time.Second })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return s, out
}

func TestText_Sequence(t *testing.T) {
	s, out := runText(t, FormatText)
	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return fetched.Add(3 * time.Minute) }

	s.OnLoading(testServer)
	s.OnSnapshot(model.NewSnapshot(testServer.SourcePath, fetched, map[model.Key]string{
		model.KeyVersion: "28.0.1",
		model.KeyAppList: "calendar: v1\nfiles: vN/A",
	}, nil))
	s.OnError("HTTP 401 Unauthorized. Check URL/Token.")

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Error:") }, time.Second, 5*time.Millisecond)
	text := out.String()

	assert.True(t, strings.HasPrefix(text, "Loading metrics for [ncmonitor] cloud.example.com...\n"))
	assert.Contains(t, text, "== [ncmonitor] cloud.example.com ==")
	assert.Contains(t, text, "[System Health]")
	assert.Regexp(t, `Nextcloud Version\s+28\.0\.1`, text)
	assert.Contains(t, text, "calendar: v1\n")
	assert.Contains(t, text, "Last updated: 2026-03-01 12:00:00. Next check at 12:00:30 (30s interval).")
	assert.Contains(t, text, "Error: HTTP 401 Unauthorized. Check URL/Token. (last update 3 minutes ago)")
}

func TestText_ErrorWithoutSnapshot(t *testing.T) {
	s, out := runText(t, FormatText)

	s.OnLoading(testServer)
	s.OnError("Request timed out after 15 seconds.")

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Error:") }, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "Error: Request timed out after 15 seconds.\n")
	assert.NotContains(t, out.String(), "last update")
}

func TestText_JSON(t *testing.T) {
	s, out := runText(t, FormatJSON)

	s.OnLoading(testServer)
	s.OnSnapshot(model.NewSnapshot(testServer.SourcePath, time.Unix(1_700_000_000, 0), map[model.Key]string{model.KeyUsers: "12"}, nil))
	s.OnError("boom")

	require.Eventually(t, func() bool { return strings.Count(out.String(), "\n") == 3 }, time.Second, 5*time.Millisecond)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")

	var loading, snap, failed jsonEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &loading))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &snap))
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &failed))

	assert.Equal(t, "loading", loading.Type)
	assert.Equal(t, testServer.DisplayName, loading.Server)

	assert.Equal(t, "snapshot", snap.Type)
	assert.Equal(t, "12", snap.Metrics["users"])
	assert.Equal(t, model.NotAvailable, snap.Metrics["version"])
	assert.Len(t, snap.Metrics, len(model.AllKeys))
	require.NotNil(t, snap.FetchedAt)
	assert.True(t, snap.FetchedAt.Equal(time.Unix(1_700_000_000, 0)))

	assert.Equal(t, "error", failed.Type)
	assert.Equal(t, "boom", failed.Message)
	assert.Equal(t, testServer.DisplayName, failed.Server)
}

func TestText_DropsWhenQueueFull(t *testing.T) {
	s := NewText(&bytes.Buffer{}, FormatText, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < textQueueSize*2; i++ {
			s.OnError("x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnError blocked with no reader")
	}
	assert.Len(t, s.events, textQueueSize)
}

func TestStatusLine(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	assert.Equal(t, "Last updated: 2026-01-02 03:04:05.", StatusLine(at, 0))
	assert.Equal(t, "Last updated: 2026-01-02 03:04:05. Next check at 03:05:05 (60s interval).", StatusLine(at, time.Minute))
}

type countingSink struct {
	snapshots, errors, loadings int
}

func (c *countingSink) OnSnapshot(model.Snapshot) { c.snapshots++ }
func (c *countingSink) OnError(string)            { c.errors++ }
func (c *countingSink) OnLoading(config.ServerConfig) {
	c.loadings++
}

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := NewMulti(a, nil, b)

	m.OnLoading(testServer)
	m.OnSnapshot(model.Snapshot{})
	m.OnError("x")
	m.OnError("y")

	for _, c := range []*countingSink{a, b} {
		assert.Equal(t, 1, c.loadings)
		assert.Equal(t, 1, c.snapshots)
		assert.Equal(t, 2, c.errors)
	}
}

func TestNewMulti_SingleUnwrapped(t *testing.T) {
	a := &countingSink{}
	assert.Same(t, a, NewMulti(nil, a))
}
