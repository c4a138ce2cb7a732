package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/timepivot/internal/engine"
	"github.com/raphaelgruber/timepivot/internal/models"
)

var (
	searchDimension string
	searchAfter     string
	searchBefore    string
	searchLat       float64
	searchLon       float64
	searchWithinKm  float64
	searchInside    string
	searchLimit     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search entities by text with optional filters",
	Long: `Search entities by label and description.

Results can be narrowed by dimension, by a date window the entity's
lifespan must touch, and by proximity to a coordinate.

Examples:
  timepivot search "napoleon"
  timepivot search "battle" --dimension events
  timepivot search "war" --after 1900 --before 1950
  timepivot search "waterloo" --lat 50.85 --lon 4.35 --within-km 50`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchDimension, "dimension", "d", "", "restrict to one dimension")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "keep entities active on or after this date")
	searchCmd.Flags().StringVar(&searchBefore, "before", "", "keep entities active on or before this date")
	searchCmd.Flags().Float64Var(&searchLat, "lat", 0, "center latitude for proximity filter")
	searchCmd.Flags().Float64Var(&searchLon, "lon", 0, "center longitude for proximity filter")
	searchCmd.Flags().Float64Var(&searchWithinKm, "within-km", 0, "proximity radius in kilometers")
	searchCmd.Flags().StringVar(&searchInside, "inside", "", "keep entities located inside this geography entity")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	filters := engine.SearchFilters{Limit: searchLimit, WithinKm: searchWithinKm, ContainedIn: searchInside}
	if searchAfter != "" {
		tv, err := models.ParseDate(searchAfter)
		if err != nil {
			return fmt.Errorf("parse --after: %w", err)
		}
		filters.After = &tv
	}
	if searchBefore != "" {
		tv, err := models.ParseDate(searchBefore)
		if err != nil {
			return fmt.Errorf("parse --before: %w", err)
		}
		filters.Before = &tv
	}
	if searchWithinKm > 0 {
		filters.Near = &models.Coordinate{Latitude: searchLat, Longitude: searchLon}
	}

	hits, err := eng.Search(ctx, models.Dimension(searchDimension), args[0], filters)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(hits))
	for i, hit := range hits {
		fmt.Printf("%d. %s (%s) [%s] confidence %.2f\n",
			i+1, hit.Entity.Label("en"), hit.Entity.ID, hit.Entity.Dimension, hit.Confidence)
		if desc := hit.Entity.Description("en"); desc != "" {
			fmt.Printf("   %s\n", desc)
		}
		if !hit.Span.Empty() {
			fmt.Printf("   %s\n", formatSpan(hit.Span))
		}
		if verbose && hit.Point != nil {
			fmt.Printf("   at %.4f, %.4f\n", hit.Point.Latitude, hit.Point.Longitude)
		}
		fmt.Println()
	}

	return nil
}

// formatSpan renders a lifespan, tolerating open ends.
func formatSpan(s models.Span) string {
	switch {
	case s.Start != nil && s.End != nil:
		return fmt.Sprintf("%s to %s", s.Start, s.End)
	case s.Start != nil:
		return fmt.Sprintf("from %s", s.Start)
	case s.End != nil:
		return fmt.Sprintf("until %s", s.End)
	default:
		return ""
	}
}
