package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/timepivot/internal/models"
	"github.com/raphaelgruber/timepivot/internal/resolve"
	"github.com/raphaelgruber/timepivot/internal/synonym"
)

func rawStatement(t *testing.T, dvType string, value any, rank string) RawStatement {
	t.Helper()
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	return RawStatement{
		MainSnak: RawSnak{
			SnakType:  "value",
			DataValue: &RawDataValue{Type: dvType, Value: raw},
		},
		Rank: rank,
	}
}

func adapterSnapshot(t *testing.T) *synonym.Snapshot {
	t.Helper()
	r, err := synonym.New(synonym.Default())
	require.NoError(t, err)
	return r.Snapshot()
}

func TestFromRaw(t *testing.T) {
	snap := adapterSnapshot(t)
	rec := &RawRecord{
		ID: "Q517",
		Labels: map[string]RawText{
			"en": {Language: "en", Value: "Napoleon Bonaparte"},
		},
		Descriptions: map[string]RawText{
			"en": {Language: "en", Value: "French military leader"},
		},
		Sitelinks: map[string]RawSitelink{
			"enwiki": {Site: "enwiki", Title: "Napoleon"},
		},
		Claims: map[string][]RawStatement{
			"P569": {rawStatement(t, "time", rawTimeValue{Time: "+1769-08-15T00:00:00Z", Precision: 11}, "normal")},
			"P31":  {rawStatement(t, "wikibase-entityid", rawEntityID{ID: "Q5"}, "normal")},
		},
	}

	e, err := FromRaw(rec, snap, nil)
	require.NoError(t, err)
	assert.Equal(t, "Q517", e.ID)
	assert.Equal(t, models.DimensionPeople, e.Dimension)
	assert.Equal(t, "Napoleon Bonaparte", e.Label("en"))
	assert.Equal(t, "Napoleon", e.Sitelinks["enwiki"])

	born, ok := e.BestClaim("P569")
	require.True(t, ok)
	require.NotNil(t, born.Time)
	assert.Equal(t, "1769-08-15", born.Time.String())
	assert.Equal(t, models.PrecisionDay, born.Time.Precision)
}

func TestFromRawGeologicalTime(t *testing.T) {
	snap := adapterSnapshot(t)
	rec := &RawRecord{
		ID: "Q45805",
		Claims: map[string][]RawStatement{
			"P571": {rawStatement(t, "time", rawTimeValue{Time: "-201000000-00-00T00:00:00Z", Precision: 3}, "normal")},
		},
	}

	e, err := FromRaw(rec, snap, nil)
	require.NoError(t, err)
	inception, ok := e.BestClaim("P571")
	require.True(t, ok)
	require.NotNil(t, inception.Time)
	assert.EqualValues(t, -201000000, inception.Time.Year)
	assert.Equal(t, models.PrecisionMegayear, inception.Time.Precision)
}

func TestFromRawIntervalEndpoints(t *testing.T) {
	snap := adapterSnapshot(t)
	// P580/P582 are declared as interval endpoints while the wire format
	// only knows "time"; the declared kind must win, not a degradation.
	rec := &RawRecord{
		ID: "Q361",
		Claims: map[string][]RawStatement{
			"P580": {rawStatement(t, "time", rawTimeValue{Time: "+1939-09-01T00:00:00Z", Precision: 11}, "normal")},
			"P582": {rawStatement(t, "time", rawTimeValue{Time: "+1945-09-02T00:00:00Z", Precision: 11}, "normal")},
		},
	}

	e, err := FromRaw(rec, snap, nil)
	require.NoError(t, err)

	start, ok := e.BestClaim("P580")
	require.True(t, ok)
	assert.Equal(t, models.KindIntervalEndpoint, start.Kind)
	require.NotNil(t, start.Time)

	span := resolve.ExtractSpan(e, snap)
	require.NotNil(t, span.Start, "imported start time must resolve as span start")
	assert.Equal(t, "1939-09-01", span.Start.String())
	require.NotNil(t, span.End)
	assert.Equal(t, "1945-09-02", span.End.String())
}

func TestFromRawKindMismatchDegradesToLiteral(t *testing.T) {
	snap := adapterSnapshot(t)
	// P625 is declared as a coordinate; a string payload must not be
	// reinterpreted, only degraded.
	rec := &RawRecord{
		ID: "Q1",
		Claims: map[string][]RawStatement{
			"P625": {rawStatement(t, "string", "not a coordinate", "normal")},
		},
	}

	e, err := FromRaw(rec, snap, nil)
	require.NoError(t, err)
	claim, ok := e.BestClaim("P625")
	require.True(t, ok)
	assert.Equal(t, models.KindLiteral, claim.Kind)
}

func TestFromRawClassification(t *testing.T) {
	snap := adapterSnapshot(t)

	t.Run("coordinate implies geography", func(t *testing.T) {
		rec := &RawRecord{
			ID: "Q31579",
			Claims: map[string][]RawStatement{
				"P625": {rawStatement(t, "globecoordinate", rawCoordinate{Latitude: 50.68, Longitude: 4.41}, "normal")},
			},
		}
		e, err := FromRaw(rec, snap, nil)
		require.NoError(t, err)
		assert.Equal(t, models.DimensionGeography, e.Dimension)
		require.NotNil(t, e.Center)
		assert.InDelta(t, 50.68, e.Center.Latitude, 1e-9)
	})

	t.Run("unknown class falls back to category", func(t *testing.T) {
		rec := &RawRecord{
			ID: "Q2",
			Claims: map[string][]RawStatement{
				"P31": {rawStatement(t, "wikibase-entityid", rawEntityID{ID: "Q999999"}, "normal")},
			},
		}
		e, err := FromRaw(rec, snap, nil)
		require.NoError(t, err)
		assert.Equal(t, models.DimensionCategory, e.Dimension)
	})
}

func TestFromRawSkipsValuelessSnaks(t *testing.T) {
	snap := adapterSnapshot(t)
	rec := &RawRecord{
		ID: "Q3",
		Claims: map[string][]RawStatement{
			"P570": {
				{MainSnak: RawSnak{SnakType: "somevalue", Property: "P570"}, Rank: "normal"},
				{MainSnak: RawSnak{SnakType: "novalue", Property: "P570"}, Rank: "normal"},
			},
		},
	}

	e, err := FromRaw(rec, snap, nil)
	require.NoError(t, err)
	_, ok := e.BestClaim("P570")
	assert.False(t, ok)
}

func TestFromRawPreservesRank(t *testing.T) {
	snap := adapterSnapshot(t)
	rec := &RawRecord{
		ID: "Q4",
		Claims: map[string][]RawStatement{
			"P569": {
				rawStatement(t, "time", rawTimeValue{Time: "+1769-01-01T00:00:00Z", Precision: 9}, "deprecated"),
				rawStatement(t, "time", rawTimeValue{Time: "+1769-08-15T00:00:00Z", Precision: 11}, "preferred"),
			},
		},
	}

	e, err := FromRaw(rec, snap, nil)
	require.NoError(t, err)
	claim, ok := e.BestClaim("P569")
	require.True(t, ok)
	assert.Equal(t, models.RankPreferred, claim.Rank)
	assert.Equal(t, "1769-08-15", claim.Time.String())
}
