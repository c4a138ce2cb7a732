package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var dimensionsCmd = &cobra.Command{
	Use:   "dimensions",
	Short: "List navigable dimensions with their zoom levels",
	RunE:  runDimensions,
}

func runDimensions(cmd *cobra.Command, args []string) error {
	for _, d := range eng.Dimensions() {
		fmt.Printf("%s - %s\n", d.ID, d.Name)
		if len(d.ZoomLevels) > 0 {
			fmt.Printf("  zoom: %s\n", strings.Join(d.ZoomLevels, " > "))
		}
		if len(d.PivotTo) > 0 {
			fmt.Printf("  pivot to: %s\n", strings.Join(d.PivotTo, ", "))
		}
	}
	return nil
}
