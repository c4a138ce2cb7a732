package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/store"
)

// RandomInput defines the input schema for the random_entity tool.
type RandomInput struct {
	Dimension string `json:"dimension,omitempty" jsonschema:"Optional dimension to draw from"`
}

// NewRandomHandler creates the random_entity tool handler.
func NewRandomHandler(deps *Dependencies) mcp.ToolHandlerFor[RandomInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RandomInput) (
		*mcp.CallToolResult, any, error,
	) {
		var pred store.Predicate
		if input.Dimension != "" {
			dim := models.Dimension(input.Dimension)
			pred = func(e *models.Entity) bool { return e.Dimension == dim }
		}

		ent, err := deps.Engine.Random(ctx, pred)
		if errors.Is(err, store.ErrNoMatch) {
			return ErrorResult("No entity matches the filter", "Relax the dimension filter"), nil, nil
		}
		if err != nil {
			return ErrorResult("Random draw failed", err.Error()), nil, nil
		}
		return JSONResult(ent), nil, nil
	}
}
