package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/timepivot/internal/engine"
	"github.com/raphaelgruber/timepivot/internal/models"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query     string  `json:"query" jsonschema:"required,The search query text"`
	Dimension string  `json:"dimension,omitempty" jsonschema:"Optional dimension filter (timeline, geography, people, events, category)"`
	After     string  `json:"after,omitempty" jsonschema:"Keep entities active on or after this date, e.g. 1789-01-01"`
	Before    string  `json:"before,omitempty" jsonschema:"Keep entities active on or before this date"`
	Lat       float64 `json:"lat,omitempty" jsonschema:"Center latitude for proximity filtering"`
	Lon       float64 `json:"lon,omitempty" jsonschema:"Center longitude for proximity filtering"`
	WithinKm    float64 `json:"within_km,omitempty" jsonschema:"Proximity radius in kilometers, requires lat/lon"`
	ContainedIn string  `json:"contained_in,omitempty" jsonschema:"Keep entities located inside this geography entity"`
	Limit       int     `json:"limit,omitempty" jsonschema:"Max results 1-100, default 10"`
}

// NewSearchHandler creates the search tool handler.
func NewSearchHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			return ErrorResult("Limit must be 1-100", "Reduce limit value"), nil, nil
		}

		filters := engine.SearchFilters{Limit: limit, WithinKm: input.WithinKm, ContainedIn: input.ContainedIn}
		if input.After != "" {
			tv, err := models.ParseDate(input.After)
			if err != nil {
				return ErrorResult("Invalid after date", "Use formats like 1789 or 1789-01-01"), nil, nil
			}
			filters.After = &tv
		}
		if input.Before != "" {
			tv, err := models.ParseDate(input.Before)
			if err != nil {
				return ErrorResult("Invalid before date", "Use formats like 1789 or 1789-01-01"), nil, nil
			}
			filters.Before = &tv
		}
		if input.WithinKm > 0 {
			filters.Near = &models.Coordinate{Latitude: input.Lat, Longitude: input.Lon}
		}

		hits, err := deps.Engine.Search(ctx, models.Dimension(input.Dimension), input.Query, filters)
		if err != nil {
			deps.Logger.Error("search failed", "error", err)
			return ErrorResult("Search failed", err.Error()), nil, nil
		}

		deps.Logger.Info("search completed", "query", input.Query, "results", len(hits))
		return JSONResult(map[string]any{"hits": hits, "count": len(hits)}), nil, nil
	}
}
