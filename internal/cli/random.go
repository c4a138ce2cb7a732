package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/store"
)

var randomDimension string

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Draw a random entity",
	Long: `Draw a random entity for exploration, optionally restricted to one
dimension.

Examples:
  timepivot random
  timepivot random --dimension people`,
	RunE: runRandom,
}

func init() {
	randomCmd.Flags().StringVarP(&randomDimension, "dimension", "d", "", "restrict to one dimension")
}

func runRandom(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var pred store.Predicate
	if randomDimension != "" {
		dim := models.Dimension(randomDimension)
		pred = func(e *models.Entity) bool { return e.Dimension == dim }
	}

	ent, err := eng.Random(ctx, pred)
	if errors.Is(err, store.ErrNoMatch) {
		return errors.New("no entity matches the filter")
	}
	if err != nil {
		return fmt.Errorf("random: %w", err)
	}

	fmt.Printf("%s (%s) [%s]\n", ent.Label("en"), ent.ID, ent.Dimension)
	if desc := ent.Description("en"); desc != "" {
		fmt.Printf("%s\n", desc)
	}
	return nil
}
