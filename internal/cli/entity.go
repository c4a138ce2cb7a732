package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/timepivot/internal/engine"
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/store"
)

var entityCmd = &cobra.Command{
	Use:   "entity <entity-id>",
	Short: "Show an entity with its resolved facts and provenance",
	Long: `Show an entity: labels, lifespan, location, claims and any
conflicting facts between sources.

Examples:
  timepivot entity Q517
  timepivot entity Q48314 --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runEntity,
}

var importCmd = &cobra.Command{
	Use:   "import <upstream-id>",
	Short: "Import an entity from the upstream provider",
	Long: `Fetch an entity from the configured upstream provider, normalize it
and add it to the graph. Requires upstream.enabled in the config.

Examples:
  timepivot import Q131691`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runEntity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	detail, err := eng.EntityDetail(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("entity %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("entity detail: %w", err)
	}

	ent := detail.Entity
	fmt.Printf("%s (%s) [%s]\n", ent.Label("en"), ent.ID, ent.Dimension)
	if desc := ent.Description("en"); desc != "" {
		fmt.Printf("%s\n", desc)
	}
	if !detail.Span.Empty() {
		fmt.Printf("Lifespan: %s\n", formatSpan(detail.Span))
	}
	if detail.Point != nil {
		fmt.Printf("Location: %.4f, %.4f\n", detail.Point.Latitude, detail.Point.Longitude)
	}
	fmt.Printf("Confidence: %.2f\n", detail.Confidence)

	if len(ent.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range ent.Sources {
			fmt.Printf("- %s (trust %.2f)\n", src.SourceName, src.TrustWeight)
		}
	}

	if len(detail.Resolutions) > 0 {
		fmt.Println("\nContested facts:")
		props := make([]string, 0, len(detail.Resolutions))
		for prop := range detail.Resolutions {
			props = append(props, prop)
		}
		sort.Strings(props)
		for _, prop := range props {
			res := detail.Resolutions[prop]
			fmt.Printf("- %s: chose %s from %s (confidence %.2f)\n",
				prop, claimValue(res.Chosen), res.SourceID, res.Confidence)
			for _, alt := range res.Alternatives {
				fmt.Printf("    rejected %s from %s (trust %.2f)\n",
					claimValue(alt.Claim), alt.SourceID, alt.Trust)
			}
		}
	}

	if verbose {
		fmt.Println("\nClaims:")
		for _, prop := range ent.PropertyCodes() {
			for _, claim := range ent.Claims[prop] {
				fmt.Printf("- %s = %s\n", prop, claimValue(claim))
			}
		}
	}

	return nil
}

// claimValue renders a claim's value for display.
func claimValue(c models.Claim) string {
	switch {
	case c.Time != nil:
		return c.Time.String()
	case c.Coordinate != nil:
		return fmt.Sprintf("%.4f, %.4f", c.Coordinate.Latitude, c.Coordinate.Longitude)
	case c.EntityRef != "":
		return c.EntityRef
	default:
		return c.Literal
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ent, err := eng.Import(ctx, args[0])
	if errors.Is(err, engine.ErrNoUpstream) {
		return errors.New("no upstream configured, set upstream.enabled in the config")
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	fmt.Printf("Imported %s (%s) into %s with %d properties.\n",
		ent.Label("en"), ent.ID, ent.Dimension, len(ent.Claims))
	return nil
}
