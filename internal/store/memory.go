package store

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/raphaelgruber/timepivot/internal/models"
)

// Memory is the default in-process store. It keeps deep copies on the way
// in and out so callers can never mutate shared state.
type Memory struct {
	mu       sync.RWMutex
	entities map[string]*models.Entity
	sources  map[string]*models.Source
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entities: make(map[string]*models.Entity),
		sources:  make(map[string]*models.Source),
	}
}

func (m *Memory) Get(_ context.Context, id string) (*models.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: entity %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

func (m *Memory) Put(_ context.Context, e *models.Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity ID must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e.Clone()
	return nil
}

func (m *Memory) List(_ context.Context, dimension models.Dimension) ([]*models.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Entity, 0, len(m.entities))
	for _, e := range m.entities {
		if dimension != "" && e.Dimension != dimension {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Search ranks by simple relevance: exact label match, then label prefix,
// then label substring, then description substring. Ties break on ID.
func (m *Memory) Search(_ context.Context, dimension models.Dimension, query string, limit int) ([]*models.Entity, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	type hit struct {
		entity *models.Entity
		score  int
	}
	m.mu.RLock()
	var hits []hit
	for _, e := range m.entities {
		if dimension != "" && e.Dimension != dimension {
			continue
		}
		if s := matchScore(e, q); s > 0 {
			hits = append(hits, hit{entity: e.Clone(), score: s})
		}
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entity.ID < hits[j].entity.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]*models.Entity, len(hits))
	for i, h := range hits {
		out[i] = h.entity
	}
	return out, nil
}

func matchScore(e *models.Entity, q string) int {
	best := 0
	for _, label := range e.Labels {
		l := strings.ToLower(label)
		switch {
		case l == q:
			return 4
		case strings.HasPrefix(l, q):
			if best < 3 {
				best = 3
			}
		case strings.Contains(l, q):
			if best < 2 {
				best = 2
			}
		}
	}
	if best > 0 {
		return best
	}
	for _, desc := range e.Descriptions {
		if strings.Contains(strings.ToLower(desc), q) {
			return 1
		}
	}
	return 0
}

func (m *Memory) Random(_ context.Context, pred Predicate) (*models.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	candidates := make([]*models.Entity, 0, len(m.entities))
	for _, e := range m.entities {
		if pred == nil || pred(e) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoMatch
	}
	return candidates[rand.Intn(len(candidates))].Clone(), nil
}

func (m *Memory) Source(_ context.Context, id string) (*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: source %s", ErrNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (m *Memory) PutSource(_ context.Context, s *models.Source) error {
	if s.ID == "" {
		return fmt.Errorf("source ID must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sources[s.ID] = &cp
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }
