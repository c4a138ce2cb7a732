// Package zoom groups entities into coarser granularities per dimension
// and expands synthetic aggregates back into their members.
package zoom

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/resolve"
	"github.com/raphaelgruber/timepivot/internal/synonym"
)

var (
	// ErrNonExpandable is returned when expansion is requested for an
	// aggregate whose member list was never persisted. Distinct from every
	// other failure so callers can stop zooming in rather than retry.
	ErrNonExpandable = errors.New("aggregate is not expandable")

	// ErrUnknownLevel is returned for a dimension/level pair with no
	// registered aggregation key.
	ErrUnknownLevel = errors.New("unknown zoom level")
)

// KeyKind selects how a level derives its grouping key from an entity.
type KeyKind string

const (
	// KeyIdentity passes entities through ungrouped; the finest level.
	KeyIdentity KeyKind = "identity"
	// KeyTimeBucket buckets the resolved span start into Unit-year bins.
	KeyTimeBucket KeyKind = "time-bucket"
	// KeyTimeMonth buckets the resolved span start into calendar months.
	KeyTimeMonth KeyKind = "time-month"
	// KeyClaim groups on the best claim value for Property.
	KeyClaim KeyKind = "claim"
)

// Level declares one zoom level of a dimension: a display name and the
// aggregation key that coarsens entities into groups at this level.
type Level struct {
	Name     string  `yaml:"name"`
	Key      KeyKind `yaml:"key"`
	Unit     int64   `yaml:"unit,omitempty"`     // years per bucket for time-bucket keys
	Property string  `yaml:"property,omitempty"` // property code for claim keys
}

// Table maps each dimension to its levels, ordered coarsest first. Levels
// are addressed by index, so adding a dimension or level is configuration
// only.
type Table map[models.Dimension][]Level

// DefaultTable mirrors the built-in zoom ladders.
func DefaultTable() Table {
	return Table{
		models.DimensionTimeline: {
			{Name: "era", Key: KeyTimeBucket, Unit: 1000000},
			{Name: "century", Key: KeyTimeBucket, Unit: 100},
			{Name: "decade", Key: KeyTimeBucket, Unit: 10},
			{Name: "year", Key: KeyTimeBucket, Unit: 1},
			{Name: "month", Key: KeyTimeMonth},
			{Name: "day", Key: KeyIdentity},
		},
		models.DimensionGeography: {
			{Name: "continent", Key: KeyClaim, Property: "P30"},
			{Name: "country", Key: KeyClaim, Property: "P17"},
			{Name: "region", Key: KeyClaim, Property: "P131"},
			{Name: "city", Key: KeyClaim, Property: "P131"},
			{Name: "location", Key: KeyIdentity},
		},
		models.DimensionPeople: {
			{Name: "century", Key: KeyTimeBucket, Unit: 100},
			{Name: "decade", Key: KeyTimeBucket, Unit: 10},
			{Name: "person", Key: KeyIdentity},
		},
		models.DimensionEvents: {
			{Name: "era", Key: KeyTimeBucket, Unit: 1000000},
			{Name: "century", Key: KeyTimeBucket, Unit: 100},
			{Name: "decade", Key: KeyTimeBucket, Unit: 10},
			{Name: "event", Key: KeyIdentity},
		},
		models.DimensionCategory: {
			{Name: "class", Key: KeyClaim, Property: "P31"},
			{Name: "item", Key: KeyIdentity},
		},
	}
}

// LevelNames returns the declared level names for a dimension, coarsest
// first, for dimension descriptors.
func (t Table) LevelNames(dim models.Dimension) []string {
	levels := t[dim]
	names := make([]string, len(levels))
	for i, l := range levels {
		names[i] = l.Name
	}
	return names
}

// Group is one aggregate in a zoom result: a synthetic summary entity plus
// the member IDs it stands for.
type Group struct {
	Summary *models.Entity `json:"summary"`
	Key     string         `json:"key"`
	Count   int            `json:"count"`
	Members []string       `json:"members"`
}

// Result is the outcome of one aggregation. At an identity level Groups is
// empty and Members carries the entities through unchanged; otherwise every
// input entity appears in exactly one group.
type Result struct {
	Dimension models.Dimension `json:"dimension"`
	Level     int              `json:"level"`
	LevelName string           `json:"level_name"`
	Groups    []Group          `json:"groups,omitempty"`
	Members   []*models.Entity `json:"members,omitempty"`
}

// Aggregator owns the zoom table and the member registry that makes
// synthetic aggregates expandable within the process lifetime.
type Aggregator struct {
	table Table

	mu      sync.RWMutex
	members map[string][]*models.Entity
}

// New builds an aggregator over a table; nil falls back to the defaults.
func New(table Table) *Aggregator {
	if table == nil {
		table = DefaultTable()
	}
	return &Aggregator{
		table:   table,
		members: make(map[string][]*models.Entity),
	}
}

// Table returns the aggregator's zoom table.
func (a *Aggregator) Table() Table { return a.table }

// Aggregate groups entities at the given level of a dimension. No entity
// is ever dropped: entities whose key cannot be derived land in a shared
// remainder group.
func (a *Aggregator) Aggregate(dim models.Dimension, level int, entities []*models.Entity, snap *synonym.Snapshot) (*Result, error) {
	levels, ok := a.table[dim]
	if !ok || level < 0 || level >= len(levels) {
		return nil, fmt.Errorf("%w: %s/%d", ErrUnknownLevel, dim, level)
	}
	l := levels[level]
	res := &Result{Dimension: dim, Level: level, LevelName: l.Name}

	if l.Key == KeyIdentity {
		res.Members = entities
		return res, nil
	}

	type bucket struct {
		label   string
		members []*models.Entity
	}
	buckets := make(map[string]*bucket)
	order := make([]string, 0)
	for _, e := range entities {
		key, label := a.groupKey(l, e, snap)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{label: label}
			buckets[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, e)
	}
	sort.Strings(order)

	for _, key := range order {
		b := buckets[key]
		res.Groups = append(res.Groups, a.buildGroup(dim, key, b.label, b.members, snap))
	}
	return res, nil
}

// Expand returns the members of a previously built aggregate. Unknown IDs
// fail with ErrNonExpandable so callers can tell "not an aggregate" apart
// from an empty group.
func (a *Aggregator) Expand(aggregateID string) ([]*models.Entity, error) {
	a.mu.RLock()
	members, ok := a.members[aggregateID]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNonExpandable, aggregateID)
	}
	out := make([]*models.Entity, len(members))
	copy(out, members)
	return out, nil
}

func (a *Aggregator) buildGroup(dim models.Dimension, key, label string, members []*models.Entity, snap *synonym.Snapshot) Group {
	summary := &models.Entity{
		ID:        "agg_" + uuid.NewString(),
		Dimension: dim,
		Labels:    map[string]string{"en": label},
	}

	// Union span: earliest member start, latest member end. Union point:
	// member centroid. Both end up as regular claims so the summary entity
	// resolves through the same paths as a stored one.
	var start, end *models.TimeValue
	var latSum, lonSum float64
	var points int
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
		span := resolve.ExtractSpan(m, snap)
		if span.Start != nil && (start == nil || span.Start.Before(*start)) {
			start = span.Start
		}
		last := span.End
		if last == nil {
			last = span.Start
		}
		if last != nil && (end == nil || end.Before(*last)) {
			end = last
		}
		if pt, ok := resolve.ExtractPoint(m, snap, nil); ok {
			latSum += pt.Latitude
			lonSum += pt.Longitude
			points++
		}
	}
	if start != nil {
		summary.AddClaim(models.Claim{
			Property: "P580", Kind: models.KindIntervalEndpoint,
			Rank: models.RankNormal, Time: start,
		})
	}
	if end != nil {
		summary.AddClaim(models.Claim{
			Property: "P582", Kind: models.KindIntervalEndpoint,
			Rank: models.RankNormal, Time: end,
		})
	}
	if points > 0 {
		summary.Center = &models.Coordinate{
			Latitude:  latSum / float64(points),
			Longitude: lonSum / float64(points),
		}
	}

	a.mu.Lock()
	a.members[summary.ID] = members
	a.mu.Unlock()

	return Group{Summary: summary, Key: key, Count: len(members), Members: ids}
}

const remainderKey = "~other"

// groupKey derives the bucket key and display label for one entity at one
// level. Entities with no derivable key share the remainder bucket.
func (a *Aggregator) groupKey(l Level, e *models.Entity, snap *synonym.Snapshot) (key, label string) {
	switch l.Key {
	case KeyTimeBucket, KeyTimeMonth:
		span := resolve.ExtractSpan(e, snap)
		if span.Start == nil {
			return remainderKey, "unplaced"
		}
		if l.Key == KeyTimeMonth {
			key = fmt.Sprintf("%+012d-%02d", span.Start.Year, int(span.Start.Month))
			return key, fmt.Sprintf("%d-%02d", span.Start.Year, int(span.Start.Month))
		}
		base := floorDiv(span.Start.Year, l.Unit) * l.Unit
		key = fmt.Sprintf("%+012d", base)
		if l.Unit == 1 {
			return key, fmt.Sprintf("%d", base)
		}
		return key, fmt.Sprintf("%d to %d", base, base+l.Unit-1)
	case KeyClaim:
		claim, ok := e.BestClaim(l.Property)
		if !ok {
			return remainderKey, "unplaced"
		}
		if claim.Kind == models.KindEntityRef {
			return "e:" + claim.EntityRef, claim.EntityRef
		}
		v := claim.ValueKey()
		return v, claim.Literal
	default:
		return remainderKey, "unplaced"
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
