package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search entities by text with optional dimension, date-range and proximity filters",
	}, NewSearchHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pivot",
		Description: "Navigate from an entity to related entities in another dimension",
	}, NewPivotHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "zoom",
		Description: "Aggregate entities at a zoom level of a dimension",
	}, NewZoomHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "expand",
		Description: "Expand a synthetic aggregate back into its member entities",
	}, NewExpandHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "random_entity",
		Description: "Draw a random entity, optionally restricted to one dimension",
	}, NewRandomHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_entity",
		Description: "Retrieve an entity with its resolved span, point and provenance conflicts",
	}, NewGetEntityHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_entity",
		Description: "Fetch an entity from the upstream provider and add it to the graph",
	}, NewImportHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dimensions",
		Description: "List navigable dimensions with their zoom levels",
	}, NewDimensionsHandler(deps))
}
