package index

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/resolve"
	"github.com/raphaelgruber/timepivot/internal/synonym"
	"github.com/raphaelgruber/timepivot/internal/worker"
)

// entityFacts caches the derived facts edge derivation needs, so spans and
// points are resolved once per entity per build.
type entityFacts struct {
	entity   *models.Entity
	span     models.Span
	point    *models.Coordinate
	verified time.Time
}

// Rebuild derives the full edge graph from the store and publishes it as a
// new snapshot. Cancelling ctx abandons the build and keeps the previously
// published version intact.
func (ix *Index) Rebuild(ctx context.Context) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	entities, err := ix.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list entities: %w", err)
	}
	snap := ix.synonyms.Snapshot()
	facts, byID := buildFacts(entities, snap)

	ix.total.Store(int64(len(facts)))
	ix.done.Store(0)
	ix.running.Store(true)
	defer ix.running.Store(false)

	workers := ix.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	type entityEdges struct {
		id    string
		edges []models.PivotEdge
	}
	pool := worker.NewPool[entityEdges](ctx, workers)
	pool.Start()
	for i := range facts {
		me := &facts[i]
		pool.Submit(func(jobCtx context.Context) entityEdges {
			if jobCtx.Err() != nil {
				return entityEdges{}
			}
			edges := ix.deriveEdges(me, facts, byID)
			ix.done.Add(1)
			return entityEdges{id: me.entity.ID, edges: edges}
		})
	}
	results := pool.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rebuild abandoned: %w", err)
	}

	edges := make(map[string][]models.PivotEdge, len(results))
	for _, r := range results {
		if len(r.edges) > 0 {
			edges[r.id] = r.edges
		}
	}
	ix.current.Store(&Snapshot{
		Version:   uuid.NewString(),
		edges:     edges,
		supported: supportedPairs(ix.cfg),
	})
	return nil
}

// UpdateEntity recomputes only the edges touching one entity after its
// claims changed, without a full rebuild. A missing entity has all its
// edges removed.
func (ix *Index) UpdateEntity(ctx context.Context, id string) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()

	entities, err := ix.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("list entities: %w", err)
	}
	snap := ix.synonyms.Snapshot()
	facts, byID := buildFacts(entities, snap)
	_, exists := byID[id]

	old := ix.current.Load()
	edges := make(map[string][]models.PivotEdge, len(old.edges))
	for from, list := range old.edges {
		if from == id {
			continue
		}
		kept := make([]models.PivotEdge, 0, len(list))
		for _, e := range list {
			if e.To == id && (!exists || symmetricKind(e.Kind)) {
				// Symmetric edges into the entity are re-derived below;
				// edges into a deleted entity are dropped outright.
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) > 0 {
			edges[from] = kept
		}
	}

	if exists {
		me := byID[id]
		mine := ix.deriveEdges(me, facts, byID)
		if len(mine) > 0 {
			edges[id] = mine
		}
		for _, e := range mine {
			if symmetricKind(e.Kind) {
				edges[e.To] = append(edges[e.To], mirrorEdge(e))
			}
		}
	}

	ix.current.Store(&Snapshot{
		Version:   uuid.NewString(),
		edges:     edges,
		supported: old.supported,
	})
	return nil
}

func symmetricKind(k models.RelationKind) bool {
	return k == models.RelationContemporary || k == models.RelationNear
}

func mirrorEdge(e models.PivotEdge) models.PivotEdge {
	return models.PivotEdge{
		From:          e.To,
		To:            e.From,
		FromDimension: e.ToDimension,
		ToDimension:   e.FromDimension,
		Kind:          e.Kind,
		Confidence:    e.Confidence,
		VerifiedAt:    e.VerifiedAt,
	}
}

func buildFacts(entities []*models.Entity, snap *synonym.Snapshot) ([]entityFacts, map[string]*entityFacts) {
	byEntity := make(map[string]*models.Entity, len(entities))
	for _, e := range entities {
		byEntity[e.ID] = e
	}
	lookup := resolve.LookupFunc(func(id string) (*models.Entity, bool) {
		e, ok := byEntity[id]
		return e, ok
	})

	facts := make([]entityFacts, len(entities))
	byID := make(map[string]*entityFacts, len(entities))
	for i, e := range entities {
		facts[i] = entityFacts{
			entity:   e,
			span:     resolve.ExtractSpan(e, snap),
			verified: latestVerification(e),
		}
		if pt, ok := resolve.ExtractPoint(e, snap, lookup); ok {
			p := pt
			facts[i].point = &p
		}
		byID[e.ID] = &facts[i]
	}
	return facts, byID
}

func latestVerification(e *models.Entity) time.Time {
	var latest time.Time
	for _, s := range e.Sources {
		if s.LastVerified.After(latest) {
			latest = s.LastVerified
		}
	}
	return latest
}

// deriveEdges computes every outgoing edge for one entity: explicit
// entity-reference claims, span overlap or adjacency, and point proximity.
func (ix *Index) deriveEdges(me *entityFacts, facts []entityFacts, byID map[string]*entityFacts) []models.PivotEdge {
	var out []models.PivotEdge

	for _, rule := range ix.cfg.Rules {
		if rule.From != me.entity.Dimension {
			continue
		}
		for _, claim := range me.entity.Claims[rule.Property] {
			if claim.Kind != models.KindEntityRef || claim.EntityRef == "" {
				continue
			}
			target, ok := byID[claim.EntityRef]
			if !ok || target.entity.Dimension != rule.To {
				continue
			}
			out = append(out, models.PivotEdge{
				From:          me.entity.ID,
				To:            target.entity.ID,
				FromDimension: me.entity.Dimension,
				ToDimension:   target.entity.Dimension,
				Kind:          rule.Kind,
				Confidence:    rule.Confidence,
				VerifiedAt:    me.verified,
			})
		}
	}

	contemporary := make(map[models.Dimension]bool)
	for _, p := range ix.cfg.Contemporary {
		if p.From == me.entity.Dimension {
			contemporary[p.To] = true
		}
	}
	proximity := make(map[models.Dimension]float64)
	for _, p := range ix.cfg.Proximity {
		if p.From == me.entity.Dimension {
			proximity[p.To] = p.RadiusKm
		}
	}

	for i := range facts {
		other := &facts[i]
		if other.entity.ID == me.entity.ID {
			continue
		}

		if contemporary[other.entity.Dimension] && !me.span.Empty() && !other.span.Empty() {
			if me.span.Overlaps(other.span) {
				out = append(out, ix.derivedEdge(me, other, models.RelationContemporary, 1.0))
			} else if gap := me.span.GapYears(other.span); gap <= ix.cfg.MaxGapYears {
				out = append(out, ix.derivedEdge(me, other, models.RelationContemporary, 1.0/(1.0+float64(gap))))
			}
		}

		if radius, ok := proximity[other.entity.Dimension]; ok && me.point != nil && other.point != nil {
			if dist := resolve.DistanceKm(*me.point, *other.point); dist < radius {
				out = append(out, ix.derivedEdge(me, other, models.RelationNear, 1.0-dist/radius))
			}
		}
	}
	return out
}

func (ix *Index) derivedEdge(me, other *entityFacts, kind models.RelationKind, confidence float64) models.PivotEdge {
	verified := me.verified
	if other.verified.After(verified) {
		verified = other.verified
	}
	return models.PivotEdge{
		From:          me.entity.ID,
		To:            other.entity.ID,
		FromDimension: me.entity.Dimension,
		ToDimension:   other.entity.Dimension,
		Kind:          kind,
		Confidence:    confidence,
		VerifiedAt:    verified,
	}
}
