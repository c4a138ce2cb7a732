// Package store holds entities and sources and normalizes raw upstream
// records into the internal representation.
package store

import (
	"context"
	"errors"

	"github.com/raphaelgruber/timepivot/internal/models"
)

// Sentinel errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound indicates the requested entity or source does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoMatch indicates a random draw found no entity satisfying the
	// predicate. Distinct from ErrNotFound so callers can relax the filter.
	ErrNoMatch = errors.New("no entity matches predicate")
)

// Predicate filters entities for random draws.
type Predicate func(*models.Entity) bool

// Store is the persistence boundary of the engine. Implementations must be
// safe for concurrent use; List and Search return entities in a
// deterministic order.
type Store interface {
	// Get returns the entity with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Entity, error)

	// Put creates or replaces an entity.
	Put(ctx context.Context, e *models.Entity) error

	// List returns all entities in a dimension, or every entity when
	// dimension is empty, ordered by ID.
	List(ctx context.Context, dimension models.Dimension) ([]*models.Entity, error)

	// Search returns entities in a dimension whose labels or descriptions
	// match the query, best match first.
	Search(ctx context.Context, dimension models.Dimension, query string, limit int) ([]*models.Entity, error)

	// Random returns a uniformly drawn entity satisfying the predicate;
	// a nil predicate accepts everything.
	Random(ctx context.Context, pred Predicate) (*models.Entity, error)

	// Source returns the source record with the given ID or ErrNotFound.
	Source(ctx context.Context, id string) (*models.Source, error)

	// PutSource creates or replaces a source record.
	PutSource(ctx context.Context, s *models.Source) error

	// Close releases any backing resources.
	Close(ctx context.Context) error
}
