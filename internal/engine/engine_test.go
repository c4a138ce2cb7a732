package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/timepivot/internal/index"
	"github.com/raphaelgruber/timepivot/internal/metrics"
	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/provenance"
	"github.com/raphaelgruber/timepivot/internal/store"
	"github.com/raphaelgruber/timepivot/internal/synonym"
	"github.com/raphaelgruber/timepivot/internal/wikidata"
	"github.com/raphaelgruber/timepivot/internal/zoom"
)

func testEngine(t *testing.T) (*Engine, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, store.SeedSample(ctx, mem))
	reg, err := synonym.New(synonym.Default())
	require.NoError(t, err)

	ix := index.New(mem, reg, index.DefaultConfig())
	require.NoError(t, ix.Rebuild(ctx))

	eng := New(Options{
		Store:    mem,
		Synonyms: reg,
		Index:    ix,
		Zoom:     zoom.New(nil),
	})
	return eng, mem
}

func TestSearch(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	t.Run("text match with derived facts", func(t *testing.T) {
		hits, err := eng.Search(ctx, "", "napoleon", SearchFilters{})
		require.NoError(t, err)
		require.Len(t, hits, 2, "the man and the battle named after his wars")
		assert.Equal(t, "Q517", hits[0].Entity.ID, "label match outranks description match")
		require.NotNil(t, hits[0].Span.Start)
		assert.Equal(t, "1769-08-15", hits[0].Span.Start.String())
		require.NotNil(t, hits[0].Point, "birthplace reference resolves to a point")
		assert.InDelta(t, 0.7, hits[0].Confidence, 1e-9)
	})

	t.Run("date window filter", func(t *testing.T) {
		after := models.MustParseDate("1900-01-01")
		hits, err := eng.Search(ctx, models.DimensionEvents, "war", SearchFilters{After: &after})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Q361", hits[0].Entity.ID)
	})

	t.Run("date window excludes", func(t *testing.T) {
		before := models.MustParseDate("1700-01-01")
		hits, err := eng.Search(ctx, "", "napoleon", SearchFilters{Before: &before})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("proximity filter", func(t *testing.T) {
		brussels := models.Coordinate{Latitude: 50.85, Longitude: 4.35}
		hits, err := eng.Search(ctx, "", "waterloo", SearchFilters{Near: &brussels, WithinKm: 50})
		require.NoError(t, err)
		require.Len(t, hits, 2, "the town and the battle both resolve nearby")
	})

	t.Run("containment filter", func(t *testing.T) {
		hits, err := eng.Search(ctx, "", "ajaccio", SearchFilters{ContainedIn: "Q142"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Q40104", hits[0].Entity.ID)
	})

	t.Run("containment follows the located-in chain", func(t *testing.T) {
		hits, err := eng.Search(ctx, "", "napoleon", SearchFilters{ContainedIn: "Q142"})
		require.NoError(t, err)
		require.Len(t, hits, 1, "born in Ajaccio, which lies in France")
		assert.Equal(t, "Q517", hits[0].Entity.ID)
	})

	t.Run("containment excludes", func(t *testing.T) {
		hits, err := eng.Search(ctx, "", "ajaccio", SearchFilters{ContainedIn: "Q31579"})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestSearchConfidenceHonorsTrustOverride(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, store.SeedSample(ctx, mem))
	reg, err := synonym.New(synonym.Default())
	require.NoError(t, err)
	ix := index.New(mem, reg, index.DefaultConfig())
	require.NoError(t, ix.Rebuild(ctx))

	trust := provenance.NewTrustTable(nil)
	eng := New(Options{
		Store:    mem,
		Synonyms: reg,
		Index:    ix,
		Zoom:     zoom.New(nil),
		Trust:    trust,
	})

	// The seeded attribution froze src_wikidata at 0.7; a curator override
	// recorded afterwards must show up in read-time confidence.
	trust.Override("src_wikidata", 0.95, "alice")

	hits, err := eng.Search(ctx, "", "napoleon", SearchFilters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Q517", hits[0].Entity.ID)
	assert.InDelta(t, 0.95, hits[0].Confidence, 1e-9)
}

func TestPivot(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	edges, err := eng.Pivot(ctx, "Q517", models.DimensionEvents)
	require.NoError(t, err)
	require.NotEmpty(t, edges)
	assert.Equal(t, models.DimensionPeople, edges[0].FromDimension)

	t.Run("unknown entity", func(t *testing.T) {
		_, err := eng.Pivot(ctx, "Q0", models.DimensionEvents)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unsupported pair", func(t *testing.T) {
		_, err := eng.Pivot(ctx, "Q517", models.DimensionCategory)
		assert.ErrorIs(t, err, index.ErrUnsupportedPivot)
	})
}

func TestZoomAndExpand(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	res, err := eng.Zoom(ctx, models.DimensionEvents, 1, []string{"Q48314", "Q6534", "Q361"})
	require.NoError(t, err)
	require.Len(t, res.Groups, 3, "one group per century")

	var total int
	for _, g := range res.Groups {
		total += g.Count
		members, err := eng.Expand(ctx, g.Summary.ID)
		require.NoError(t, err)
		assert.Len(t, members, g.Count)
	}
	assert.Equal(t, 3, total)

	t.Run("expand unknown aggregate", func(t *testing.T) {
		_, err := eng.Expand(ctx, "agg_bogus")
		assert.ErrorIs(t, err, zoom.ErrNonExpandable)
	})

	t.Run("missing member fails loudly", func(t *testing.T) {
		_, err := eng.Zoom(ctx, models.DimensionEvents, 1, []string{"Q48314", "Q0"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRandom(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	isGeography := func(e *models.Entity) bool { return e.Dimension == models.DimensionGeography }
	ent, err := eng.Random(ctx, isGeography)
	require.NoError(t, err)
	assert.Equal(t, models.DimensionGeography, ent.Dimension)
}

func TestEntityDetail(t *testing.T) {
	eng, mem := testEngine(t)
	ctx := context.Background()

	t.Run("derived facts attached", func(t *testing.T) {
		d, err := eng.EntityDetail(ctx, "Q517")
		require.NoError(t, err)
		require.NotNil(t, d.Span.Start)
		require.NotNil(t, d.Span.End)
		require.NotNil(t, d.Point)
		assert.Empty(t, d.Resolutions, "agreeing claims produce no conflict entries")
	})

	t.Run("conflicting claims surface a resolution", func(t *testing.T) {
		contested := &models.Entity{
			ID:        "contested",
			Dimension: models.DimensionPeople,
			Labels:    map[string]string{"en": "Contested Person"},
		}
		good := models.NewTimeClaim("P570", models.MustParseDate("1821-05-05"))
		good.SourceID = "src_britannica"
		bad := models.NewTimeClaim("P570", models.MustParseDate("1822-01-01"))
		bad.SourceID = "src_wikidata"
		contested.AddClaim(good)
		contested.AddClaim(bad)
		require.NoError(t, mem.Put(ctx, contested))

		d, err := eng.EntityDetail(ctx, "contested")
		require.NoError(t, err)
		require.Contains(t, d.Resolutions, "P570")

		res := d.Resolutions["P570"]
		assert.True(t, res.Conflict)
		assert.Equal(t, "src_britannica", res.SourceID)
		assert.Equal(t, "1821-05-05", res.Chosen.Time.String())
		require.Len(t, res.Alternatives, 1)
	})
}

func TestDimensions(t *testing.T) {
	eng, _ := testEngine(t)

	dims := eng.Dimensions()
	require.Len(t, dims, 5)
	assert.Equal(t, models.DimensionCategory, dims[0].ID, "sorted for determinism")

	for _, d := range dims {
		if d.ID == models.DimensionTimeline {
			assert.Equal(t, []string{"era", "century", "decade", "year", "month", "day"}, d.ZoomLevels)
		}
		if d.ID == models.DimensionPeople {
			assert.Equal(t, []string{"events", "geography", "timeline"}, d.PivotTo)
		}
	}
}

func TestImport(t *testing.T) {
	eng, _ := testEngine(t)
	ctx := context.Background()

	t.Run("no upstream configured", func(t *testing.T) {
		_, err := eng.Import(ctx, "Q517")
		assert.ErrorIs(t, err, ErrNoUpstream)
	})

	t.Run("fetch, normalize, store, reindex", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"entities": {"Q131691": {
				"id": "Q131691",
				"labels": {"en": {"language": "en", "value": "Arthur Wellesley"}},
				"claims": {
					"P31": [{"mainsnak": {"snaktype": "value", "property": "P31",
						"datavalue": {"type": "wikibase-entityid", "value": {"id": "Q5"}}}, "rank": "normal"}],
					"P569": [{"mainsnak": {"snaktype": "value", "property": "P569",
						"datavalue": {"type": "time", "value": {"time": "+1769-05-01T00:00:00Z", "precision": 11}}}, "rank": "normal"}],
					"P570": [{"mainsnak": {"snaktype": "value", "property": "P570",
						"datavalue": {"type": "time", "value": {"time": "+1852-09-14T00:00:00Z", "precision": 11}}}, "rank": "normal"}]
				}
			}}}`))
		}))
		defer srv.Close()

		mem := store.NewMemory()
		require.NoError(t, store.SeedSample(ctx, mem))
		reg, err := synonym.New(synonym.Default())
		require.NoError(t, err)
		ix := index.New(mem, reg, index.DefaultConfig())
		require.NoError(t, ix.Rebuild(ctx))

		withUpstream := New(Options{
			Store:    mem,
			Synonyms: reg,
			Index:    ix,
			Zoom:     zoom.New(nil),
			Upstream: wikidata.New(wikidata.Config{BaseURL: srv.URL, RequestsPerSecond: 1000, Burst: 1000}, nil),
		})

		ent, err := withUpstream.Import(ctx, "Q131691")
		require.NoError(t, err)
		assert.Equal(t, models.DimensionPeople, ent.Dimension)

		edges, err := withUpstream.Pivot(ctx, "Q131691", models.DimensionEvents)
		require.NoError(t, err)
		var targets []string
		for _, e := range edges {
			targets = append(targets, e.To)
		}
		assert.Contains(t, targets, "Q48314", "imported entity joins the edge graph incrementally")

		snap := withUpstream.Metrics()
		assert.Contains(t, snap.Operations, metrics.OpUpstreamFetch)
	})
}
