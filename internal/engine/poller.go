package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/model"
)

// ProbeResult is the outcome of one probe fetch.
type ProbeResult struct {
	Server   config.ServerConfig
	Snapshot *model.Snapshot
	Err      error
	Took     time.Duration
}

// Probe fetches every server once, concurrently, bounded by limit. It is a
// one-shot check and does not touch any Scheduler. A failing server does
// not stop the others; results are returned in the order of servers.
// Probe only returns an error when ctx is cancelled.
func Probe(ctx context.Context, c client.MetricsClient, servers []config.ServerConfig, limit int) ([]ProbeResult, error) {
	results := make([]ProbeResult, len(servers))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, server := range servers {
		g.Go(func() error {
			start := time.Now()
			payload, err := c.Fetch(gctx, server)
			res := ProbeResult{Server: server, Err: err, Took: time.Since(start)}
			if err == nil {
				snap := Normalize(payload, server.SourcePath, time.Now())
				res.Snapshot = &snap
			}
			results[i] = res
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
