package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/config"
	"github.com/jtsunne/ncmon/internal/model"
)

func TestProbe_MixedResults(t *testing.T) {
	mc := &MockMetricsClient{
		FetchFn: func(_ context.Context, server config.ServerConfig) (*client.Payload, error) {
			if server.SourcePath == serverB.SourcePath {
				return nil, errMockFailure
			}
			return payloadFor(server.DisplayName), nil
		},
	}

	results, err := Probe(context.Background(), mc, []config.ServerConfig{serverA, serverB}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, serverA, results[0].Server)
	require.NoError(t, results[0].Err)
	require.NotNil(t, results[0].Snapshot)
	assert.Equal(t, "A", results[0].Snapshot.Get(model.KeyVersion))

	assert.Equal(t, serverB, results[1].Server)
	assert.ErrorIs(t, results[1].Err, errMockFailure)
	assert.Nil(t, results[1].Snapshot)

	assert.ElementsMatch(t, []string{serverA.SourcePath, serverB.SourcePath}, mc.Calls())
}

func TestProbe_Empty(t *testing.T) {
	results, err := Probe(context.Background(), &MockMetricsClient{}, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestProbe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Probe(ctx, &MockMetricsClient{}, []config.ServerConfig{serverA}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
