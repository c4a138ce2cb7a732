package server

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/timepivot/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestObservabilityMiddlewareRecordsTimings(t *testing.T) {
	collector := metrics.NewCollector()
	mw := ObservabilityMiddleware(discardLogger(), collector)

	handler := mw(func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		return nil, nil
	})

	for i := 0; i < 3; i++ {
		_, err := handler(context.Background(), "tools/list", nil)
		require.NoError(t, err)
	}

	snap := collector.Snapshot()
	op, ok := snap.Operations["mcp:tools/list"]
	require.True(t, ok, "transport timings must land in the shared collector")
	assert.EqualValues(t, 3, op.Count)
	assert.EqualValues(t, 0, op.Errors)
}

func TestObservabilityMiddlewareCountsErrors(t *testing.T) {
	collector := metrics.NewCollector()
	mw := ObservabilityMiddleware(discardLogger(), collector)

	failure := errors.New("boom")
	handler := mw(func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		return nil, failure
	})

	_, err := handler(context.Background(), "tools/call", nil)
	require.ErrorIs(t, err, failure, "middleware must pass the error through")

	snap := collector.Snapshot()
	op, ok := snap.Operations["mcp:tools/call"]
	require.True(t, ok)
	assert.EqualValues(t, 1, op.Count)
	assert.EqualValues(t, 1, op.Errors)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactlyten", truncate("exactlyten", 10))
	assert.Equal(t, "toolong...", truncate("toolongstring", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
