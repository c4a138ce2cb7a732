package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/timepivot/internal/index"
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/store"
)

// PivotInput defines the input schema for the pivot tool.
type PivotInput struct {
	EntityID    string `json:"entity_id" jsonschema:"required,The entity to pivot from"`
	ToDimension string `json:"to_dimension" jsonschema:"required,The target dimension (timeline, geography, people, events, category)"`
}

// NewPivotHandler creates the pivot tool handler.
func NewPivotHandler(deps *Dependencies) mcp.ToolHandlerFor[PivotInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input PivotInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.EntityID == "" || input.ToDimension == "" {
			return ErrorResult("entity_id and to_dimension are required", ""), nil, nil
		}

		edges, err := deps.Engine.Pivot(ctx, input.EntityID, models.Dimension(input.ToDimension))
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrorResult("Entity not found", "Check the entity ID or import it first"), nil, nil
		case errors.Is(err, index.ErrUnsupportedPivot):
			return ErrorResult("No relation registered between these dimensions",
				"Use the dimensions tool to list supported pivots"), nil, nil
		case err != nil:
			deps.Logger.Error("pivot failed", "error", err)
			return ErrorResult("Pivot failed", err.Error()), nil, nil
		}

		return JSONResult(map[string]any{"edges": edges, "count": len(edges)}), nil, nil
	}
}
