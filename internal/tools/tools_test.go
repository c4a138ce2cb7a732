package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/timepivot/internal/engine"
	"github.com/raphaelgruber/timepivot/internal/index"
	"github.com/raphaelgruber/timepivot/internal/store"
	"github.com/raphaelgruber/timepivot/internal/synonym"
	"github.com/raphaelgruber/timepivot/internal/zoom"
)

func testDeps(t *testing.T) *Dependencies {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, store.SeedSample(ctx, mem))
	reg, err := synonym.New(synonym.Default())
	require.NoError(t, err)
	ix := index.New(mem, reg, index.DefaultConfig())
	require.NoError(t, ix.Rebuild(ctx))

	eng := engine.New(engine.Options{
		Store:    mem,
		Synonyms: reg,
		Index:    ix,
		Zoom:     zoom.New(nil),
	})
	return &Dependencies{Engine: eng, Logger: slog.Default()}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestSearchHandler(t *testing.T) {
	deps := testDeps(t)
	handler := NewSearchHandler(deps)

	t.Run("empty query is a tool error", func(t *testing.T) {
		res, _, err := handler(context.Background(), nil, SearchInput{})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("valid query returns hits", func(t *testing.T) {
		res, _, err := handler(context.Background(), nil, SearchInput{Query: "napoleon"})
		require.NoError(t, err)
		require.False(t, res.IsError)

		var payload struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
		assert.Equal(t, 2, payload.Count)
	})

	t.Run("bad date filter", func(t *testing.T) {
		res, _, err := handler(context.Background(), nil, SearchInput{Query: "x", After: "not a date"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestPivotHandler(t *testing.T) {
	deps := testDeps(t)
	handler := NewPivotHandler(deps)

	t.Run("edges returned", func(t *testing.T) {
		res, _, err := handler(context.Background(), nil, PivotInput{EntityID: "Q517", ToDimension: "events"})
		require.NoError(t, err)
		require.False(t, res.IsError)
		assert.Contains(t, resultText(t, res), "Q48314")
	})

	t.Run("unsupported pair is a tool error with a hint", func(t *testing.T) {
		res, _, err := handler(context.Background(), nil, PivotInput{EntityID: "Q517", ToDimension: "category"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(t, res), "No relation registered")
	})

	t.Run("unknown entity", func(t *testing.T) {
		res, _, err := handler(context.Background(), nil, PivotInput{EntityID: "Q0", ToDimension: "events"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestZoomAndExpandHandlers(t *testing.T) {
	deps := testDeps(t)
	zoomHandler := NewZoomHandler(deps)
	expandHandler := NewExpandHandler(deps)

	res, _, err := zoomHandler(context.Background(), nil, ZoomInput{
		Dimension: "events",
		Level:     1,
		EntityIDs: []string{"Q48314", "Q6534"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var payload struct {
		Groups []struct {
			Summary struct {
				ID string `json:"id"`
			} `json:"summary"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	require.Len(t, payload.Groups, 2)

	t.Run("expand round-trips", func(t *testing.T) {
		res, _, err := expandHandler(context.Background(), nil, ExpandInput{AggregateID: payload.Groups[0].Summary.ID})
		require.NoError(t, err)
		assert.False(t, res.IsError)
	})

	t.Run("non-expandable aggregate", func(t *testing.T) {
		res, _, err := expandHandler(context.Background(), nil, ExpandInput{AggregateID: "agg_bogus"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestGetEntityHandler(t *testing.T) {
	deps := testDeps(t)
	handler := NewGetEntityHandler(deps)

	res, _, err := handler(context.Background(), nil, GetEntityInput{EntityID: "Q517"})
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Napoleon Bonaparte")
	assert.Contains(t, text, `"year": 1769`)
}

func TestRandomHandler(t *testing.T) {
	deps := testDeps(t)
	handler := NewRandomHandler(deps)

	res, _, err := handler(context.Background(), nil, RandomInput{Dimension: "people"})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Q517")
}

func TestDimensionsHandler(t *testing.T) {
	deps := testDeps(t)
	handler := NewDimensionsHandler(deps)

	res, _, err := handler(context.Background(), nil, DimensionsInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "century")
}

func TestRegisterAll(t *testing.T) {
	deps := testDeps(t)
	srv := mcp.NewServer(&mcp.Implementation{Name: "timepivot", Version: "test"}, nil)
	RegisterAll(srv, deps)
}
