package zoom

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/synonym"
)

func testSnapshot(t *testing.T) *synonym.Snapshot {
	t.Helper()
	r, err := synonym.New(synonym.Default())
	require.NoError(t, err)
	return r.Snapshot()
}

func timelineEntity(id, start string) *models.Entity {
	e := &models.Entity{ID: id, Dimension: models.DimensionTimeline}
	e.AddClaim(models.NewTimeClaim("P580", models.MustParseDate(start)))
	return e
}

func TestAggregateByCentury(t *testing.T) {
	snap := testSnapshot(t)
	agg := New(nil)
	entities := []*models.Entity{
		timelineEntity("e_napoleon", "1769-08-15"),
		timelineEntity("e_waterloo", "1815-06-18"),
		timelineEntity("e_ww1", "1914-07-28"),
	}

	res, err := agg.Aggregate(models.DimensionTimeline, 1, entities, snap)
	require.NoError(t, err)
	assert.Equal(t, "century", res.LevelName)
	require.Len(t, res.Groups, 3, "1700s, 1800s, 1900s")

	var total int
	seen := map[string]bool{}
	for _, g := range res.Groups {
		total += g.Count
		for _, id := range g.Members {
			seen[id] = true
		}
		assert.True(t, len(g.Summary.ID) > 4 && g.Summary.ID[:4] == "agg_")
	}
	assert.Equal(t, len(entities), total, "no entity may be dropped")
	assert.Len(t, seen, len(entities))
}

func TestAggregateRoundTrip(t *testing.T) {
	snap := testSnapshot(t)
	agg := New(nil)
	entities := []*models.Entity{
		timelineEntity("a", "1804-12-02"),
		timelineEntity("b", "1815-06-18"),
		timelineEntity("c", "1821-05-05"),
	}

	res, err := agg.Aggregate(models.DimensionTimeline, 1, entities, snap)
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)

	members, err := agg.Expand(res.Groups[0].Summary.ID)
	require.NoError(t, err)

	var got []string
	for _, m := range members {
		got = append(got, m.ID)
	}
	sort.Strings(got)
	assert.Equal(t, []string{"a", "b", "c"}, got, "zoom-out then zoom-in recovers the member set")
}

func TestAggregateSummarySpan(t *testing.T) {
	snap := testSnapshot(t)
	agg := New(nil)
	res, err := agg.Aggregate(models.DimensionTimeline, 1, []*models.Entity{
		timelineEntity("a", "1804-12-02"),
		timelineEntity("b", "1815-06-18"),
	}, snap)
	require.NoError(t, err)
	require.Len(t, res.Groups, 1)

	summary := res.Groups[0].Summary
	start, ok := summary.BestClaim("P580")
	require.True(t, ok)
	end, ok := summary.BestClaim("P582")
	require.True(t, ok)
	assert.Equal(t, "1804-12-02", start.Time.String())
	assert.Equal(t, "1815-06-18", end.Time.String())
}

func TestAggregateRemainderGroup(t *testing.T) {
	snap := testSnapshot(t)
	agg := New(nil)

	dated := timelineEntity("dated", "1821-05-05")
	undated := &models.Entity{ID: "undated", Dimension: models.DimensionTimeline}
	undated.AddClaim(models.NewLiteralClaim("P1448", "no dates at all"))

	res, err := agg.Aggregate(models.DimensionTimeline, 1, []*models.Entity{dated, undated}, snap)
	require.NoError(t, err)
	require.Len(t, res.Groups, 2)

	var total int
	for _, g := range res.Groups {
		total += g.Count
	}
	assert.Equal(t, 2, total)
}

func TestAggregateByClaim(t *testing.T) {
	snap := testSnapshot(t)
	agg := New(nil)

	paris := &models.Entity{ID: "geo_paris", Dimension: models.DimensionGeography}
	paris.AddClaim(models.NewEntityRefClaim("P17", "geo_france"))
	lyon := &models.Entity{ID: "geo_lyon", Dimension: models.DimensionGeography}
	lyon.AddClaim(models.NewEntityRefClaim("P17", "geo_france"))
	berlin := &models.Entity{ID: "geo_berlin", Dimension: models.DimensionGeography}
	berlin.AddClaim(models.NewEntityRefClaim("P17", "geo_germany"))

	res, err := agg.Aggregate(models.DimensionGeography, 1, []*models.Entity{paris, lyon, berlin}, snap)
	require.NoError(t, err)
	assert.Equal(t, "country", res.LevelName)
	require.Len(t, res.Groups, 2)
}

func TestIdentityLevelPassesThrough(t *testing.T) {
	snap := testSnapshot(t)
	agg := New(nil)
	entities := []*models.Entity{timelineEntity("a", "1821-05-05")}

	levels := agg.Table()[models.DimensionTimeline]
	res, err := agg.Aggregate(models.DimensionTimeline, len(levels)-1, entities, snap)
	require.NoError(t, err)
	assert.Empty(t, res.Groups)
	assert.Equal(t, entities, res.Members)
}

func TestExpandNonExpandable(t *testing.T) {
	agg := New(nil)
	_, err := agg.Expand("agg_never_built")
	assert.ErrorIs(t, err, ErrNonExpandable)
}

func TestAggregateUnknownLevel(t *testing.T) {
	snap := testSnapshot(t)
	agg := New(nil)

	_, err := agg.Aggregate(models.DimensionTimeline, 99, nil, snap)
	assert.ErrorIs(t, err, ErrUnknownLevel)

	_, err = agg.Aggregate("underworld", 0, nil, snap)
	assert.ErrorIs(t, err, ErrUnknownLevel)
}
