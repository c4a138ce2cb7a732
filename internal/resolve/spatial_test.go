package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/timepivot/internal/models"
)

func TestExtractPointDirectClaim(t *testing.T) {
	snap := testSnapshot(t)
	e := entityWithClaims(models.DimensionGeography,
		models.NewCoordinateClaim("P625", 50.68, 4.41),
	)

	pt, ok := ExtractPoint(e, snap, nil)
	require.True(t, ok)
	assert.InDelta(t, 50.68, pt.Latitude, 1e-9)
	assert.InDelta(t, 4.41, pt.Longitude, 1e-9)
}

func TestExtractPointCenterFallback(t *testing.T) {
	snap := testSnapshot(t)
	e := entityWithClaims(models.DimensionGeography)
	e.Center = &models.Coordinate{Latitude: 46.22, Longitude: 2.21}

	pt, ok := ExtractPoint(e, snap, nil)
	require.True(t, ok)
	assert.InDelta(t, 46.22, pt.Latitude, 1e-9)
}

func TestExtractPointOneHop(t *testing.T) {
	snap := testSnapshot(t)
	waterloo := entityWithClaims(models.DimensionGeography,
		models.NewCoordinateClaim("P625", 50.68, 4.41),
	)
	waterloo.ID = "geo_waterloo"

	battle := entityWithClaims(models.DimensionEvents,
		models.NewEntityRefClaim("P276", "geo_waterloo"),
	)

	lookup := LookupFunc(func(id string) (*models.Entity, bool) {
		if id == "geo_waterloo" {
			return waterloo, true
		}
		return nil, false
	})

	pt, ok := ExtractPoint(battle, snap, lookup)
	require.True(t, ok)
	assert.InDelta(t, 50.68, pt.Latitude, 1e-9)

	t.Run("second hop is never taken", func(t *testing.T) {
		// The referenced entity itself only references another entity;
		// resolution must stop after one hop and report no point.
		indirection := entityWithClaims(models.DimensionGeography,
			models.NewEntityRefClaim("P131", "geo_waterloo"),
		)
		indirection.ID = "geo_middle"
		event := entityWithClaims(models.DimensionEvents,
			models.NewEntityRefClaim("P276", "geo_middle"),
		)
		twoHop := LookupFunc(func(id string) (*models.Entity, bool) {
			switch id {
			case "geo_middle":
				return indirection, true
			case "geo_waterloo":
				return waterloo, true
			}
			return nil, false
		})
		_, ok := ExtractPoint(event, snap, twoHop)
		assert.False(t, ok)
	})
}

func TestExtractPointNone(t *testing.T) {
	snap := testSnapshot(t)
	e := entityWithClaims(models.DimensionPeople,
		models.NewTimeClaim("P569", models.MustParseDate("1769-08-15")),
	)

	_, ok := ExtractPoint(e, snap, nil)
	assert.False(t, ok, "no discoverable coordinate is a valid outcome")
}

func TestDistanceKm(t *testing.T) {
	paris := models.Coordinate{Latitude: 48.8566, Longitude: 2.3522}
	brussels := models.Coordinate{Latitude: 50.8503, Longitude: 4.3517}

	d := DistanceKm(paris, brussels)
	assert.InDelta(t, 264, d, 10)
	assert.Zero(t, DistanceKm(paris, paris))
}
