package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/zoom"
)

// ZoomInput defines the input schema for the zoom tool.
type ZoomInput struct {
	Dimension string   `json:"dimension" jsonschema:"required,The dimension to aggregate in"`
	Level     int      `json:"level" jsonschema:"required,Zoom level index, 0 is coarsest"`
	EntityIDs []string `json:"entity_ids" jsonschema:"required,The entities to aggregate"`
}

// NewZoomHandler creates the zoom tool handler.
func NewZoomHandler(deps *Dependencies) mcp.ToolHandlerFor[ZoomInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ZoomInput) (
		*mcp.CallToolResult, any, error,
	) {
		if len(input.EntityIDs) == 0 {
			return ErrorResult("entity_ids cannot be empty", "Provide at least one entity"), nil, nil
		}

		res, err := deps.Engine.Zoom(ctx, models.Dimension(input.Dimension), input.Level, input.EntityIDs)
		if errors.Is(err, zoom.ErrUnknownLevel) {
			return ErrorResult("Unknown zoom level for this dimension",
				"Use the dimensions tool to list zoom levels"), nil, nil
		}
		if err != nil {
			deps.Logger.Error("zoom failed", "error", err)
			return ErrorResult("Zoom failed", err.Error()), nil, nil
		}
		return JSONResult(res), nil, nil
	}
}

// ExpandInput defines the input schema for the expand tool.
type ExpandInput struct {
	AggregateID string `json:"aggregate_id" jsonschema:"required,The synthetic aggregate to expand"`
}

// NewExpandHandler creates the expand tool handler.
func NewExpandHandler(deps *Dependencies) mcp.ToolHandlerFor[ExpandInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ExpandInput) (
		*mcp.CallToolResult, any, error,
	) {
		members, err := deps.Engine.Expand(ctx, input.AggregateID)
		if errors.Is(err, zoom.ErrNonExpandable) {
			return ErrorResult("Aggregate is not expandable",
				"Only aggregates built in this session can be expanded"), nil, nil
		}
		if err != nil {
			return ErrorResult("Expand failed", err.Error()), nil, nil
		}
		return JSONResult(map[string]any{"members": members, "count": len(members)}), nil, nil
	}
}
