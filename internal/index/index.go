// Package index maintains the precomputed pivot-edge graph between
// dimensions. The graph is a rebuildable cache over the store, published
// as immutable snapshots so queries never see a half-built version.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/store"
	"github.com/raphaelgruber/timepivot/internal/synonym"
)

// ErrUnsupportedPivot is returned when no relation kind is registered
// between two dimensions. Callers must be able to tell "no relation
// defined" apart from "no matches found", which is an empty, error-free
// result.
var ErrUnsupportedPivot = errors.New("no relation registered between dimensions")

// ClaimRule turns an entity-reference claim into a pivot edge.
type ClaimRule struct {
	Property   string              `yaml:"property"`
	Kind       models.RelationKind `yaml:"kind"`
	From       models.Dimension    `yaml:"from"`
	To         models.Dimension    `yaml:"to"`
	Confidence float64             `yaml:"confidence"`
}

// DimensionPair registers a (from, to) pivot direction for derived edges.
type DimensionPair struct {
	From models.Dimension `yaml:"from"`
	To   models.Dimension `yaml:"to"`
}

// ProximityRule links entities of two dimensions whose points lie within
// RadiusKm of each other.
type ProximityRule struct {
	From     models.Dimension `yaml:"from"`
	To       models.Dimension `yaml:"to"`
	RadiusKm float64          `yaml:"radius_km"`
}

// Config declares every relation the index derives. Pivoting between a
// dimension pair that appears in none of these is unsupported.
type Config struct {
	Rules        []ClaimRule     `yaml:"rules"`
	Contemporary []DimensionPair `yaml:"contemporary"`
	Proximity    []ProximityRule `yaml:"proximity"`

	// MaxGapYears widens contemporary linking to spans separated by at
	// most this many years; the confidence decays with the gap.
	MaxGapYears int64 `yaml:"max_gap_years"`

	// Workers bounds build parallelism. Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// DefaultConfig mirrors the built-in relation table.
func DefaultConfig() Config {
	return Config{
		Rules: []ClaimRule{
			{Property: "P276", Kind: models.RelationLocatedIn, From: models.DimensionEvents, To: models.DimensionGeography, Confidence: 0.9},
			{Property: "P19", Kind: models.RelationLocatedIn, From: models.DimensionPeople, To: models.DimensionGeography, Confidence: 0.8},
			{Property: "P131", Kind: models.RelationLocatedIn, From: models.DimensionGeography, To: models.DimensionGeography, Confidence: 0.9},
			{Property: "P17", Kind: models.RelationLocatedIn, From: models.DimensionGeography, To: models.DimensionGeography, Confidence: 0.85},
			{Property: "P710", Kind: models.RelationParticipantOf, From: models.DimensionEvents, To: models.DimensionPeople, Confidence: 0.9},
		},
		Contemporary: []DimensionPair{
			{From: models.DimensionPeople, To: models.DimensionEvents},
			{From: models.DimensionEvents, To: models.DimensionPeople},
			{From: models.DimensionEvents, To: models.DimensionEvents},
			{From: models.DimensionTimeline, To: models.DimensionEvents},
			{From: models.DimensionEvents, To: models.DimensionTimeline},
			{From: models.DimensionTimeline, To: models.DimensionPeople},
			{From: models.DimensionPeople, To: models.DimensionTimeline},
		},
		Proximity: []ProximityRule{
			{From: models.DimensionGeography, To: models.DimensionGeography, RadiusKm: 100},
			{From: models.DimensionEvents, To: models.DimensionGeography, RadiusKm: 50},
			{From: models.DimensionGeography, To: models.DimensionEvents, RadiusKm: 50},
		},
		MaxGapYears: 50,
	}
}

type dimPair struct {
	from, to models.Dimension
}

// Snapshot is one immutable published version of the edge graph.
type Snapshot struct {
	Version string

	edges     map[string][]models.PivotEdge
	supported map[dimPair]bool
}

// EdgeCount returns the total number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int {
	n := 0
	for _, e := range s.edges {
		n += len(e)
	}
	return n
}

// Index owns the current snapshot and its single-writer rebuild state.
type Index struct {
	store    store.Store
	synonyms *synonym.Registry
	cfg      Config

	current atomic.Pointer[Snapshot]
	buildMu sync.Mutex

	total   atomic.Int64
	done    atomic.Int64
	running atomic.Bool
}

// New creates an index over a store. The index is empty until the first
// Rebuild publishes a snapshot.
func New(s store.Store, synonyms *synonym.Registry, cfg Config) *Index {
	ix := &Index{store: s, synonyms: synonyms, cfg: cfg}
	ix.current.Store(emptySnapshot(cfg))
	return ix
}

// Snapshot returns the currently published version.
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Pivot returns the edges from an entity into the target dimension, ranked
// by descending confidence, then most recently verified, then target ID.
func (ix *Index) Pivot(entityID string, from, to models.Dimension) ([]models.PivotEdge, error) {
	s := ix.current.Load()
	if !s.supported[dimPair{from: from, to: to}] {
		return nil, fmt.Errorf("%w: %s to %s", ErrUnsupportedPivot, from, to)
	}

	var out []models.PivotEdge
	for _, e := range s.edges[entityID] {
		if e.FromDimension == from && e.ToDimension == to {
			out = append(out, e)
		}
	}
	rankEdges(out)
	return out, nil
}

func rankEdges(edges []models.PivotEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Confidence != edges[j].Confidence {
			return edges[i].Confidence > edges[j].Confidence
		}
		if !edges[i].VerifiedAt.Equal(edges[j].VerifiedAt) {
			return edges[i].VerifiedAt.After(edges[j].VerifiedAt)
		}
		return edges[i].To < edges[j].To
	})
}

// PivotTargets returns the dimensions reachable from the given one,
// sorted for stable display.
func (ix *Index) PivotTargets(from models.Dimension) []models.Dimension {
	s := ix.current.Load()
	var out []models.Dimension
	for pair := range s.supported {
		if pair.from == from {
			out = append(out, pair.to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Progress reports rebuild state for display.
type Progress struct {
	Total   int64
	Done    int64
	Running bool
}

// Progress returns the state of the current or last rebuild.
func (ix *Index) Progress() Progress {
	return Progress{
		Total:   ix.total.Load(),
		Done:    ix.done.Load(),
		Running: ix.running.Load(),
	}
}

func supportedPairs(cfg Config) map[dimPair]bool {
	supported := make(map[dimPair]bool)
	for _, r := range cfg.Rules {
		supported[dimPair{from: r.From, to: r.To}] = true
	}
	for _, p := range cfg.Contemporary {
		supported[dimPair{from: p.From, to: p.To}] = true
	}
	for _, p := range cfg.Proximity {
		supported[dimPair{from: p.From, to: p.To}] = true
	}
	return supported
}

func emptySnapshot(cfg Config) *Snapshot {
	return &Snapshot{
		Version:   "empty",
		edges:     map[string][]models.PivotEdge{},
		supported: supportedPairs(cfg),
	}
}
