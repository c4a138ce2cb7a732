package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DimensionsInput defines the (empty) input schema for the dimensions tool.
type DimensionsInput struct{}

// NewDimensionsHandler creates the dimensions tool handler.
func NewDimensionsHandler(deps *Dependencies) mcp.ToolHandlerFor[DimensionsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DimensionsInput) (
		*mcp.CallToolResult, any, error,
	) {
		return JSONResult(deps.Engine.Dimensions()), nil, nil
	}
}
