package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/timepivot/internal/store"
)

// GetEntityInput defines the input schema for the get_entity tool.
type GetEntityInput struct {
	EntityID string `json:"entity_id" jsonschema:"required,The entity ID to retrieve"`
}

// NewGetEntityHandler creates the get_entity tool handler. The result is
// the full normalized entity with its resolved span, point and any
// provenance conflicts.
func NewGetEntityHandler(deps *Dependencies) mcp.ToolHandlerFor[GetEntityInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetEntityInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.EntityID == "" {
			return ErrorResult("entity_id is required", ""), nil, nil
		}

		detail, err := deps.Engine.EntityDetail(ctx, input.EntityID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrorResult("Entity not found", "Check the entity ID or import it first"), nil, nil
		}
		if err != nil {
			deps.Logger.Error("entity detail failed", "error", err)
			return ErrorResult("Lookup failed", err.Error()), nil, nil
		}
		return JSONResult(detail), nil, nil
	}
}

// ImportInput defines the input schema for the import_entity tool.
type ImportInput struct {
	UpstreamID string `json:"upstream_id" jsonschema:"required,The upstream entity ID, e.g. Q517"`
}

// NewImportHandler creates the import_entity tool handler.
func NewImportHandler(deps *Dependencies) mcp.ToolHandlerFor[ImportInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ImportInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.UpstreamID == "" {
			return ErrorResult("upstream_id is required", ""), nil, nil
		}

		ent, err := deps.Engine.Import(ctx, input.UpstreamID)
		if err != nil {
			deps.Logger.Error("import failed", "id", input.UpstreamID, "error", err)
			return ErrorResult("Import failed", err.Error()), nil, nil
		}
		return JSONResult(ent), nil, nil
	}
}
