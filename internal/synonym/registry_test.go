package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/timepivot/internal/models"
)

func TestResolve(t *testing.T) {
	r, err := New(Default())
	require.NoError(t, err)
	snap := r.Snapshot()

	t.Run("start role keeps priority order", func(t *testing.T) {
		bindings, err := snap.Resolve(RoleStart)
		require.NoError(t, err)
		require.NotEmpty(t, bindings)
		assert.Equal(t, "P580", bindings[0].Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := snap.Resolve("middle")
		assert.ErrorIs(t, err, ErrUnknownRole)
	})

	t.Run("declared kind lookup", func(t *testing.T) {
		kind, ok := snap.DeclaredKind("P625")
		require.True(t, ok)
		assert.Equal(t, models.KindCoordinate, kind)

		_, ok = snap.DeclaredKind("P9999")
		assert.False(t, ok)
	})
}

func TestLoadIsAtomic(t *testing.T) {
	r, err := New(Default())
	require.NoError(t, err)
	before := r.Snapshot()

	t.Run("invalid config keeps previous snapshot", func(t *testing.T) {
		bad := Config{Roles: map[Role][]Binding{
			RoleStart: {{Code: "P569", Kind: models.KindInstant}, {Code: "P569", Kind: models.KindInstant}},
		}}
		err := r.Load(bad)
		require.Error(t, err)
		assert.Same(t, before, r.Snapshot())
	})

	t.Run("conflicting kinds rejected", func(t *testing.T) {
		bad := Config{Roles: map[Role][]Binding{
			RoleStart: {{Code: "P585", Kind: models.KindInstant}},
			RoleEnd:   {{Code: "P585", Kind: models.KindCoordinate}},
		}}
		require.Error(t, r.Load(bad))
		assert.Same(t, before, r.Snapshot())
	})

	t.Run("valid reload swaps and bumps version", func(t *testing.T) {
		err := r.Load(Config{Roles: map[Role][]Binding{
			RoleStart: {{Code: "P569", Kind: models.KindInstant}},
		}})
		require.NoError(t, err)
		after := r.Snapshot()
		assert.NotEqual(t, before.Version, after.Version)

		// Old snapshot still answers consistently for in-flight readers.
		bindings, err := before.Resolve(RoleEnd)
		require.NoError(t, err)
		assert.NotEmpty(t, bindings)
	})
}

func TestLoadYAML(t *testing.T) {
	r, err := New(Default())
	require.NoError(t, err)

	err = r.LoadYAML([]byte(`
roles:
  start:
    - {code: P571, kind: instant}
  location:
    - {code: P625, kind: coordinate}
`))
	require.NoError(t, err)

	bindings, err := r.Snapshot().Resolve(RoleStart)
	require.NoError(t, err)
	require.Len(t, bindings, 1)
	assert.Equal(t, "P571", bindings[0].Code)

	assert.Error(t, r.LoadYAML([]byte("roles: {")))
}

func TestSubscribe(t *testing.T) {
	r, err := New(Default())
	require.NoError(t, err)
	ch := r.Subscribe()

	require.NoError(t, r.Load(Default()))

	select {
	case version := <-ch:
		assert.Equal(t, r.Snapshot().Version, version)
	default:
		t.Fatal("expected a change notification")
	}
}
