package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/timepivot/internal/index"
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/store"
)

var pivotCmd = &cobra.Command{
	Use:   "pivot <entity-id> <dimension>",
	Short: "Navigate from an entity to another dimension",
	Long: `Pivot from an entity to related entities in another dimension,
ranked by relation confidence.

Examples:
  timepivot pivot Q517 events
  timepivot pivot Q48314 geography`,
	Args: cobra.ExactArgs(2),
	RunE: runPivot,
}

func runPivot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	entityID, to := args[0], models.Dimension(args[1])

	edges, err := eng.Pivot(ctx, entityID, to)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("entity %s not found", entityID)
	case errors.Is(err, index.ErrUnsupportedPivot):
		return fmt.Errorf("no relation registered into %s from this entity's dimension", to)
	case err != nil:
		return fmt.Errorf("pivot: %w", err)
	}

	if len(edges) == 0 {
		fmt.Println("No related entities found.")
		return nil
	}

	fmt.Printf("Related entities in %s (%d):\n\n", to, len(edges))
	for _, edge := range edges {
		label := edge.To
		if target, err := eng.EntityDetail(ctx, edge.To); err == nil {
			label = fmt.Sprintf("%s (%s)", target.Entity.Label("en"), edge.To)
		}
		fmt.Printf("- %s via %s, confidence %.2f\n", label, edge.Kind, edge.Confidence)
	}

	return nil
}
