package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/zoom"
)

var zoomCmd = &cobra.Command{
	Use:   "zoom <dimension> <level> <entity-id>...",
	Short: "Aggregate entities at a zoom level",
	Long: `Aggregate entities at a zoom level of a dimension. Level 0 is the
coarsest. Every aggregate can be expanded back into its members with
the expand command.

Examples:
  timepivot zoom events 1 Q48314 Q6534 Q361
  timepivot zoom geography 1 Q31579 Q40104`,
	Args: cobra.MinimumNArgs(3),
	RunE: runZoom,
}

var expandCmd = &cobra.Command{
	Use:   "expand <aggregate-id>",
	Short: "Expand an aggregate into its member entities",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpand,
}

func runZoom(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dimension := models.Dimension(args[0])
	level, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("level must be an integer: %w", err)
	}

	res, err := eng.Zoom(ctx, dimension, level, args[2:])
	if errors.Is(err, zoom.ErrUnknownLevel) {
		return fmt.Errorf("dimension %s has no zoom level %d", dimension, level)
	}
	if err != nil {
		return fmt.Errorf("zoom: %w", err)
	}

	if len(res.Groups) == 0 {
		fmt.Printf("Entities at level %q (no grouping):\n\n", res.LevelName)
		for _, ent := range res.Members {
			fmt.Printf("- %s (%s)\n", ent.Label("en"), ent.ID)
		}
		return nil
	}

	fmt.Printf("Groups at level %q (%d):\n\n", res.LevelName, len(res.Groups))
	for _, g := range res.Groups {
		fmt.Printf("- %s: %d entities [%s]\n", g.Key, g.Count, g.Summary.ID)
		if verbose {
			for _, id := range g.Members {
				fmt.Printf("    %s\n", id)
			}
		}
	}
	return nil
}

func runExpand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	members, err := eng.Expand(ctx, args[0])
	if errors.Is(err, zoom.ErrNonExpandable) {
		return fmt.Errorf("%s is not an expandable aggregate", args[0])
	}
	if err != nil {
		return fmt.Errorf("expand: %w", err)
	}

	fmt.Printf("Members (%d):\n\n", len(members))
	for _, ent := range members {
		fmt.Printf("- %s (%s) [%s]\n", ent.Label("en"), ent.ID, ent.Dimension)
	}

	return nil
}
