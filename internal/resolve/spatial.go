package resolve

import (
	"math"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/synonym"
)

// EntityLookup resolves an entity ID to its entity, typically backed by
// the store. Used for the single-hop traversal into related geography.
type EntityLookup interface {
	Lookup(id string) (*models.Entity, bool)
}

// LookupFunc adapts a function to the EntityLookup interface.
type LookupFunc func(id string) (*models.Entity, bool)

func (f LookupFunc) Lookup(id string) (*models.Entity, bool) { return f(id) }

// ExtractPoint derives a best-effort coordinate for an entity. Priority:
// a location-role coordinate claim on the entity itself, then the
// entity's precomputed center, then the first location-role entity
// reference that itself resolves directly to a coordinate (one hop only).
// "No point" is a valid, common outcome and returns ok=false.
func ExtractPoint(e *models.Entity, snap *synonym.Snapshot, lookup EntityLookup) (models.Coordinate, bool) {
	bindings, err := snap.Resolve(synonym.RoleLocation)
	if err != nil {
		bindings = nil
	}

	for _, b := range bindings {
		claim, ok := e.BestClaim(b.Code)
		if !ok || claim.Kind != models.KindCoordinate || claim.Coordinate == nil {
			continue
		}
		return *claim.Coordinate, true
	}

	if e.Center != nil {
		return *e.Center, true
	}

	if lookup == nil {
		return models.Coordinate{}, false
	}
	for _, b := range bindings {
		claim, ok := e.BestClaim(b.Code)
		if !ok || claim.Kind != models.KindEntityRef || claim.EntityRef == "" {
			continue
		}
		related, ok := lookup.Lookup(claim.EntityRef)
		if !ok {
			continue
		}
		// One hop only: the related entity must resolve without further
		// traversal, so cycles cannot recurse.
		if pt, ok := directPoint(related, snap); ok {
			return pt, true
		}
	}
	return models.Coordinate{}, false
}

func directPoint(e *models.Entity, snap *synonym.Snapshot) (models.Coordinate, bool) {
	bindings, err := snap.Resolve(synonym.RoleLocation)
	if err == nil {
		for _, b := range bindings {
			claim, ok := e.BestClaim(b.Code)
			if !ok || claim.Kind != models.KindCoordinate || claim.Coordinate == nil {
				continue
			}
			return *claim.Coordinate, true
		}
	}
	if e.Center != nil {
		return *e.Center, true
	}
	return models.Coordinate{}, false
}

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(a, b models.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
