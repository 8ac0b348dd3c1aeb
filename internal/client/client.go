package client

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/errors"
)

// DefaultRequestTimeout bounds a single fetch, including reading the body.
const DefaultRequestTimeout = 15 * time.Second

// MetricsClient fetches the serverinfo document of one server.
type MetricsClient interface {
	Fetch(ctx context.Context, server config.ServerConfig) (*Payload, error)
}

// ClientConfig holds process-wide settings for DefaultClient. Per-server
// settings (URL and token) come from config.ServerConfig on each call.
type ClientConfig struct {
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
	UserAgent          string
}

// DefaultClient implements MetricsClient using the standard net/http package.
type DefaultClient struct {
	http   *http.Client
	config ClientConfig
}

// NewDefaultClient constructs a DefaultClient from the given config.
// It configures TLS skip-verify and request timeout from the config.
func NewDefaultClient(cfg ClientConfig) *DefaultClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	return &DefaultClient{
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		config: cfg,
	}
}

// doGet performs one GET request to path (relative to server's base URL)
// and classifies every failure into a structured error.
func (c *DefaultClient) doGet(ctx context.Context, server config.ServerConfig, path string) ([]byte, error) {
	url := strings.TrimRight(server.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("Connection error: invalid URL %q", server.BaseURL), "Check URL/Token.")
	}

	req.Header.Set(TokenHeader, server.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	const maxResponseBytes = 32 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if text := http.StatusText(resp.StatusCode); text != "" {
			msg += " " + text
		}
		return nil, errors.WrapWithCode(
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)),
			errors.ErrHTTP, msg, "Check URL/Token.")
	}

	return body, nil
}

// classify maps a transport error to TIMEOUT or CONNECTION. A cancelled
// parent context is returned as is so callers can tell shutdown apart
// from a network failure.
func (c *DefaultClient) classify(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return fmt.Errorf("request abandoned: %w", ctx.Err())
	}

	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.WrapWithCode(err, errors.ErrTimeout,
			fmt.Sprintf("Request timed out after %g seconds.", c.config.RequestTimeout.Seconds()), "")
	}

	var cause error = err
	var urlErr *neturl.Error
	if stderrors.As(err, &urlErr) {
		cause = urlErr.Err
	}
	return errors.WrapWithCode(err, errors.ErrConnection,
		fmt.Sprintf("Connection error: %v", cause), "Server unreachable.")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ MetricsClient = (*DefaultClient)(nil)
