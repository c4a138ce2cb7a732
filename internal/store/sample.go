package store

import (
	"context"
	"time"

	"github.com/raphaelgruber/timepivot/internal/models"
)

// SeedSample loads a small self-consistent dataset so the engine is usable
// without any upstream connectivity. The IDs are stable and referenced by
// the CLI examples.
func SeedSample(ctx context.Context, s Store) error {
	verified := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sources := []*models.Source{
		{ID: "src_wikidata", Name: "Wikidata", Class: models.SourcePublic, TrustWeight: 0.7},
		{ID: "src_britannica", Name: "Encyclopaedia Britannica", Class: models.SourceCurated, TrustWeight: 0.9},
	}
	for _, src := range sources {
		if err := s.PutSource(ctx, src); err != nil {
			return err
		}
	}

	attribution := func(id, name string, trust float64) models.SourceAttribution {
		return models.SourceAttribution{
			SourceID:     id,
			SourceName:   name,
			TrustWeight:  trust,
			LastVerified: verified,
		}
	}

	napoleon := &models.Entity{
		ID:        "Q517",
		Dimension: models.DimensionPeople,
		Labels:    map[string]string{"en": "Napoleon Bonaparte", "fr": "Napoléon Bonaparte"},
		Descriptions: map[string]string{
			"en": "French military leader and emperor",
		},
		Sources: []models.SourceAttribution{attribution("src_wikidata", "Wikidata", 0.7)},
	}
	napoleon.AddClaim(models.NewTimeClaim("P569", models.MustParseDate("1769-08-15")))
	napoleon.AddClaim(models.NewTimeClaim("P570", models.MustParseDate("1821-05-05")))
	napoleon.AddClaim(models.NewEntityRefClaim("P19", "Q40104"))
	napoleon.AddClaim(models.NewEntityRefClaim("P31", "Q5"))

	waterloo := &models.Entity{
		ID:        "Q48314",
		Dimension: models.DimensionEvents,
		Labels:    map[string]string{"en": "Battle of Waterloo"},
		Descriptions: map[string]string{
			"en": "Final battle of the Napoleonic Wars, 1815",
		},
		Sources: []models.SourceAttribution{attribution("src_britannica", "Encyclopaedia Britannica", 0.9)},
	}
	waterloo.AddClaim(models.NewTimeClaim("P585", models.MustParseDate("1815-06-18")))
	waterloo.AddClaim(models.NewEntityRefClaim("P276", "Q31579"))
	waterloo.AddClaim(models.NewEntityRefClaim("P710", "Q517"))

	waterlooTown := &models.Entity{
		ID:        "Q31579",
		Dimension: models.DimensionGeography,
		Labels:    map[string]string{"en": "Waterloo"},
		Descriptions: map[string]string{
			"en": "Municipality in Walloon Brabant, Belgium",
		},
		Center:  &models.Coordinate{Latitude: 50.68, Longitude: 4.41},
		Sources: []models.SourceAttribution{attribution("src_wikidata", "Wikidata", 0.7)},
	}
	waterlooTown.AddClaim(models.NewCoordinateClaim("P625", 50.68, 4.41))
	waterlooTown.AddClaim(models.NewEntityRefClaim("P17", "Q31"))

	ajaccio := &models.Entity{
		ID:        "Q40104",
		Dimension: models.DimensionGeography,
		Labels:    map[string]string{"en": "Ajaccio"},
		Descriptions: map[string]string{
			"en": "Capital of Corsica, France",
		},
		Center:  &models.Coordinate{Latitude: 41.9267, Longitude: 8.7369},
		Sources: []models.SourceAttribution{attribution("src_wikidata", "Wikidata", 0.7)},
	}
	ajaccio.AddClaim(models.NewCoordinateClaim("P625", 41.9267, 8.7369))
	ajaccio.AddClaim(models.NewEntityRefClaim("P17", "Q142"))

	france := &models.Entity{
		ID:        "Q142",
		Dimension: models.DimensionGeography,
		Labels:    map[string]string{"en": "France", "fr": "France"},
		Descriptions: map[string]string{
			"en": "Country in western Europe",
		},
		Center:  &models.Coordinate{Latitude: 46.2276, Longitude: 2.2137},
		Sources: []models.SourceAttribution{attribution("src_wikidata", "Wikidata", 0.7)},
	}
	france.AddClaim(models.NewCoordinateClaim("P625", 46.2276, 2.2137))

	revolution := &models.Entity{
		ID:        "Q6534",
		Dimension: models.DimensionEvents,
		Labels:    map[string]string{"en": "French Revolution"},
		Descriptions: map[string]string{
			"en": "Revolution in France, 1789 to 1799",
		},
		Sources: []models.SourceAttribution{attribution("src_britannica", "Encyclopaedia Britannica", 0.9)},
	}
	revolution.AddClaim(models.NewTimeClaim("P580", models.MustParseDate("1789-05-05")))
	revolution.AddClaim(models.NewTimeClaim("P582", models.MustParseDate("1799-11-09")))
	revolution.AddClaim(models.NewEntityRefClaim("P276", "Q142"))

	jurassic := &models.Entity{
		ID:        "Q45805",
		Dimension: models.DimensionTimeline,
		Labels:    map[string]string{"en": "Jurassic"},
		Descriptions: map[string]string{
			"en": "Geologic period, about 201 to 145 million years ago",
		},
		Sources: []models.SourceAttribution{attribution("src_wikidata", "Wikidata", 0.7)},
	}
	jurassic.AddClaim(models.NewTimeClaim("P571", models.TimeValue{Year: -201000000, Precision: models.PrecisionMegayear}))
	jurassic.AddClaim(models.NewTimeClaim("P576", models.TimeValue{Year: -145000000, Precision: models.PrecisionMegayear}))

	ww1 := &models.Entity{
		ID:        "Q361",
		Dimension: models.DimensionEvents,
		Labels:    map[string]string{"en": "World War I"},
		Descriptions: map[string]string{
			"en": "Global war, 1914 to 1918",
		},
		Sources: []models.SourceAttribution{attribution("src_britannica", "Encyclopaedia Britannica", 0.9)},
	}
	ww1.AddClaim(models.NewTimeClaim("P580", models.MustParseDate("1914-07-28")))
	ww1.AddClaim(models.NewTimeClaim("P582", models.MustParseDate("1918-11-11")))

	for _, e := range []*models.Entity{napoleon, waterloo, waterlooTown, ajaccio, france, revolution, jurassic, ww1} {
		if err := s.Put(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
