package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildPlain bool

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the pivot edge index",
	Long: `Derive pivot edges for every stored entity from scratch. Queries keep
answering from the previous index until the rebuild publishes.

Examples:
  timepivot rebuild
  timepivot rebuild --plain`,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildPlain, "plain", false, "no progress UI, for scripts")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if rebuildPlain {
		if err := eng.RebuildIndex(ctx); err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}
		prog := eng.IndexProgress()
		fmt.Printf("Index rebuilt, %d entities processed.\n", prog.Done)
		return nil
	}

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- eng.RebuildIndex(ctx)
	}()

	return runRebuildProgress(eng, doneCh)
}
