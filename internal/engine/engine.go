// Package engine is the single entry point external surfaces call. It
// orchestrates the store, resolvers, index, aggregator and provenance
// merging; transports stay free of domain logic.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/raphaelgruber/timepivot/internal/index"
	"github.com/raphaelgruber/timepivot/internal/metrics"
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/provenance"
	"github.com/raphaelgruber/timepivot/internal/resolve"
	"github.com/raphaelgruber/timepivot/internal/store"
	"github.com/raphaelgruber/timepivot/internal/synonym"
	"github.com/raphaelgruber/timepivot/internal/wikidata"
	"github.com/raphaelgruber/timepivot/internal/zoom"
)

// ErrNoUpstream is returned by Import when no upstream client is
// configured.
var ErrNoUpstream = errors.New("no upstream configured")

// Options wires the engine's collaborators. Store, Synonyms, Index and
// Zoom are required; the rest default to working no-ops.
type Options struct {
	Store    store.Store
	Synonyms *synonym.Registry
	Index    *index.Index
	Zoom     *zoom.Aggregator
	Trust    *provenance.TrustTable
	Upstream *wikidata.Client
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// Engine answers every navigation query over the entity graph.
type Engine struct {
	store    store.Store
	synonyms *synonym.Registry
	index    *index.Index
	zoom     *zoom.Aggregator
	trust    *provenance.TrustTable
	upstream *wikidata.Client
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// New builds an engine from its collaborators.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}
	if opts.Trust == nil {
		opts.Trust = provenance.NewTrustTable(opts.Logger)
	}
	return &Engine{
		store:    opts.Store,
		synonyms: opts.Synonyms,
		index:    opts.Index,
		zoom:     opts.Zoom,
		trust:    opts.Trust,
		upstream: opts.Upstream,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
}

// SearchFilters narrows search results after the text match.
type SearchFilters struct {
	// After and Before keep entities whose resolved span touches the
	// window. Either may be nil.
	After  *models.TimeValue
	Before *models.TimeValue

	// Near keeps entities whose resolved point lies within WithinKm of
	// the coordinate.
	Near     *models.Coordinate
	WithinKm float64

	// ContainedIn keeps entities located, directly or through the
	// located-in chain, inside the given geography entity.
	ContainedIn string

	Limit int
}

// SearchHit is one search result annotated with derived facts and the
// trust of its sources.
type SearchHit struct {
	Entity     *models.Entity     `json:"entity"`
	Span       models.Span        `json:"span"`
	Point      *models.Coordinate `json:"point,omitempty"`
	Confidence float64            `json:"confidence"`
}

// Search finds entities by text, applies the temporal and spatial
// filters, and annotates every hit with its source confidence.
func (e *Engine) Search(ctx context.Context, dimension models.Dimension, query string, filters SearchFilters) (hits []SearchHit, err error) {
	defer e.metrics.Observe(metrics.OpSearch, time.Now(), &err)

	limit := filters.Limit
	if limit <= 0 {
		limit = 25
	}
	// Fetch more than requested so post-filtering does not starve the
	// result set.
	entities, err := e.store.Search(ctx, dimension, query, limit*4)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	snap := e.synonyms.Snapshot()
	lookup := e.storeLookup(ctx)
	for _, ent := range entities {
		span := e.resolveSpan(ent, snap)
		point := e.resolvePoint(ent, snap, lookup)

		if !matchesWindow(span, filters.After, filters.Before) {
			continue
		}
		if filters.Near != nil {
			if point == nil || resolve.DistanceKm(*filters.Near, *point) > filters.WithinKm {
				continue
			}
		}
		if filters.ContainedIn != "" && !e.containedIn(ctx, ent, filters.ContainedIn, maxContainmentHops) {
			continue
		}

		hits = append(hits, SearchHit{
			Entity:     ent,
			Span:       span,
			Point:      point,
			Confidence: e.sourceConfidence(ent),
		})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func matchesWindow(span models.Span, after, before *models.TimeValue) bool {
	if after == nil && before == nil {
		return true
	}
	if span.Empty() {
		return false
	}
	start := span.Start
	if start == nil {
		start = span.End
	}
	end := span.End
	if end == nil {
		end = span.Start
	}
	if after != nil && end.Before(*after) {
		return false
	}
	if before != nil && before.Before(*start) {
		return false
	}
	return true
}

// maxContainmentHops bounds the admin-hierarchy climb so cyclic
// located-in claims cannot loop.
const maxContainmentHops = 5

// containedIn reports whether the entity's located-in chain reaches the
// target geography entity.
func (e *Engine) containedIn(ctx context.Context, ent *models.Entity, target string, hops int) bool {
	if ent.ID == target {
		return true
	}
	if hops == 0 {
		return false
	}
	edges, err := e.index.Pivot(ent.ID, ent.Dimension, models.DimensionGeography)
	if err != nil {
		return false
	}
	for _, edge := range edges {
		if edge.Kind != models.RelationLocatedIn {
			continue
		}
		if edge.To == target {
			return true
		}
		parent, err := e.store.Get(ctx, edge.To)
		if err != nil {
			continue
		}
		if e.containedIn(ctx, parent, target, hops-1) {
			return true
		}
	}
	return false
}

// Pivot navigates from an entity into another dimension. The source
// dimension is taken from the entity itself.
func (e *Engine) Pivot(ctx context.Context, entityID string, to models.Dimension) (edges []models.PivotEdge, err error) {
	defer e.metrics.Observe(metrics.OpPivot, time.Now(), &err)

	ent, err := e.store.Get(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("pivot source: %w", err)
	}
	return e.index.Pivot(ent.ID, ent.Dimension, to)
}

// Zoom aggregates the given entities at a zoom level of a dimension.
func (e *Engine) Zoom(ctx context.Context, dimension models.Dimension, level int, entityIDs []string) (res *zoom.Result, err error) {
	defer e.metrics.Observe(metrics.OpZoom, time.Now(), &err)

	entities := make([]*models.Entity, 0, len(entityIDs))
	for _, id := range entityIDs {
		ent, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("zoom member %s: %w", id, err)
		}
		entities = append(entities, ent)
	}
	return e.zoom.Aggregate(dimension, level, entities, e.synonyms.Snapshot())
}

// Expand resolves a synthetic aggregate back into its members.
func (e *Engine) Expand(_ context.Context, aggregateID string) ([]*models.Entity, error) {
	return e.zoom.Expand(aggregateID)
}

// Random draws one entity satisfying the predicate.
func (e *Engine) Random(ctx context.Context, pred store.Predicate) (ent *models.Entity, err error) {
	defer e.metrics.Observe(metrics.OpRandom, time.Now(), &err)
	return e.store.Random(ctx, pred)
}

// Detail is a fully resolved entity: raw claims plus derived span, point
// and per-property provenance resolutions for contested facts.
type Detail struct {
	Entity      *models.Entity                   `json:"entity"`
	Span        models.Span                      `json:"span"`
	Point       *models.Coordinate               `json:"point,omitempty"`
	Confidence  float64                          `json:"confidence"`
	Resolutions map[string]provenance.Resolution `json:"resolutions,omitempty"`
}

// EntityDetail returns the enriched view of one entity.
func (e *Engine) EntityDetail(ctx context.Context, entityID string) (*Detail, error) {
	ent, err := e.store.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}

	snap := e.synonyms.Snapshot()
	d := &Detail{
		Entity:     ent,
		Span:       e.resolveSpan(ent, snap),
		Point:      e.resolvePoint(ent, snap, e.storeLookup(ctx)),
		Confidence: e.sourceConfidence(ent),
	}

	for _, code := range ent.PropertyCodes() {
		claims := ent.Claims[code]
		if len(claims) < 2 {
			continue
		}
		res, ok := provenance.Merge(e.attributeClaims(ctx, ent, claims))
		if !ok || !res.Conflict {
			continue
		}
		if d.Resolutions == nil {
			d.Resolutions = make(map[string]provenance.Resolution)
		}
		d.Resolutions[code] = res
	}
	return d, nil
}

// attributeClaims pairs each claim with the trust of its source. Claims
// without a resolvable source get the lowest class default.
func (e *Engine) attributeClaims(ctx context.Context, ent *models.Entity, claims []models.Claim) []provenance.AttributedClaim {
	out := make([]provenance.AttributedClaim, 0, len(claims))
	for _, c := range claims {
		ac := provenance.AttributedClaim{Claim: c, SourceID: c.SourceID}
		if src, err := e.store.Source(ctx, c.SourceID); err == nil {
			ac.Trust = e.trust.Weight(*src)
		} else {
			ac.Trust = e.trust.Weight(models.Source{Class: models.SourceUserSubmitted})
		}
		for _, attr := range ent.Sources {
			if attr.SourceID == c.SourceID {
				ac.LastVerified = attr.LastVerified
			}
		}
		out = append(out, ac)
	}
	return out
}

// Dimensions lists the navigable dimensions with their zoom ladders and
// registered pivot targets.
func (e *Engine) Dimensions() []models.DimensionDescriptor {
	table := e.zoom.Table()
	out := make([]models.DimensionDescriptor, 0, len(table))
	for dim := range table {
		var targets []string
		for _, t := range e.index.PivotTargets(dim) {
			targets = append(targets, string(t))
		}
		out = append(out, models.DimensionDescriptor{
			ID:         dim,
			Name:       string(dim),
			ZoomLevels: table.LevelNames(dim),
			PivotTo:    targets,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RebuildIndex rebuilds the pivot-edge graph from the store.
func (e *Engine) RebuildIndex(ctx context.Context) (err error) {
	defer e.metrics.Observe(metrics.OpIndexBuild, time.Now(), &err)
	return e.index.Rebuild(ctx)
}

// IndexProgress reports the state of the current or last rebuild.
func (e *Engine) IndexProgress() index.Progress {
	return e.index.Progress()
}

// Import fetches an entity from the upstream provider, normalizes it,
// stores it and refreshes its edges.
func (e *Engine) Import(ctx context.Context, upstreamID string) (ent *models.Entity, err error) {
	defer e.metrics.Observe(metrics.OpUpstreamFetch, time.Now(), &err)

	if e.upstream == nil {
		return nil, ErrNoUpstream
	}
	raw, err := e.upstream.Fetch(ctx, upstreamID)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", upstreamID, err)
	}
	ent, err = store.FromRaw(raw, e.synonyms.Snapshot(), e.logger)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", upstreamID, err)
	}
	if err := e.store.Put(ctx, ent); err != nil {
		return nil, fmt.Errorf("store %s: %w", upstreamID, err)
	}
	if err := e.index.UpdateEntity(ctx, ent.ID); err != nil {
		return nil, fmt.Errorf("reindex %s: %w", upstreamID, err)
	}
	e.logger.Info("imported entity",
		slog.String("id", ent.ID),
		slog.String("dimension", string(ent.Dimension)))
	return ent, nil
}

// Metrics returns the engine's runtime statistics.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}

func (e *Engine) resolveSpan(ent *models.Entity, snap *synonym.Snapshot) models.Span {
	start := time.Now()
	span := resolve.ExtractSpan(ent, snap)
	e.metrics.RecordTiming(metrics.OpResolveSpan, time.Since(start))
	return span
}

func (e *Engine) resolvePoint(ent *models.Entity, snap *synonym.Snapshot, lookup resolve.EntityLookup) *models.Coordinate {
	start := time.Now()
	defer func() {
		e.metrics.RecordTiming(metrics.OpResolvePoint, time.Since(start))
	}()
	if pt, ok := resolve.ExtractPoint(ent, snap, lookup); ok {
		return &pt
	}
	return nil
}

func (e *Engine) storeLookup(ctx context.Context) resolve.EntityLookup {
	return resolve.LookupFunc(func(id string) (*models.Entity, bool) {
		ent, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, false
		}
		return ent, true
	})
}

// sourceConfidence is the mean effective trust of the entity's sources.
// Attribution weights are frozen at contribution time, so each is checked
// against the trust table and a curator override wins at read time.
// Entities with no attribution sit at the user-submitted default.
func (e *Engine) sourceConfidence(ent *models.Entity) float64 {
	if len(ent.Sources) == 0 {
		return e.trust.Weight(models.Source{Class: models.SourceUserSubmitted})
	}
	var sum float64
	for _, attr := range ent.Sources {
		w := attr.TrustWeight
		if pinned, ok := e.trust.OverrideWeight(attr.SourceID); ok {
			w = pinned
		}
		sum += w
	}
	return sum / float64(len(ent.Sources))
}
