package scenario_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

type failingStore struct {
	*scenario.MemoryStore
	appendErr   error
	setStateErr error
}

func (s *failingStore) Append(ctx context.Context, actor scenario.Actor, names ...string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	return s.MemoryStore.Append(ctx, actor, names...)
}

func (s *failingStore) SetCurrentState(ctx context.Context, actor scenario.Actor, raw string) error {
	if s.setStateErr != nil {
		return s.setStateErr
	}
	return s.MemoryStore.SetCurrentState(ctx, actor, raw)
}

func TestMagazine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := scenario.NewActor(1, 2)

	t.Run("load on never initialized actor", func(t *testing.T) {
		t.Parallel()
		mag := scenario.NewMagazine(scenario.NewMemoryStore(), actor)

		err := mag.Load(ctx)
		assert.True(t, scenario.IsMagazineNotInitialized(err))
		assert.False(t, mag.IsLoaded())

		_, err = mag.CurrentState()
		assert.ErrorIs(t, err, scenario.ErrMagazineNotLoaded)
	})

	t.Run("fresh magazine after initialize", func(t *testing.T) {
		t.Parallel()
		mag := scenario.NewMagazine(scenario.NewMemoryStore(), actor)
		require.NoError(t, mag.Initialize(ctx, "S0"))

		current, err := mag.CurrentState()
		require.NoError(t, err)
		assert.Equal(t, "S0", current)

		_, ok, err := mag.PenultimateState()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("load or initialize keeps an existing log", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()

		first := scenario.NewMagazine(store, actor)
		require.NoError(t, first.LoadOrInitialize(ctx, "S0"))
		first.Set("S1")
		require.NoError(t, first.Commit(ctx))

		second := scenario.NewMagazine(store, actor)
		require.NoError(t, second.LoadOrInitialize(ctx, "S0"))
		entries, err := second.Entries()
		require.NoError(t, err)
		assert.Equal(t, []string{"S0", "S1"}, entries)
	})

	t.Run("set stages without touching the store", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()
		mag := scenario.NewMagazine(store, actor)
		require.NoError(t, mag.Initialize(ctx, "S0"))

		mag.Set("S1")
		current, err := mag.CurrentState()
		require.NoError(t, err)
		assert.Equal(t, "S1", current)

		log, err := store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"S0"}, log)

		require.NoError(t, mag.Commit(ctx))
		log, err = store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"S0", "S1"}, log)

		prev, ok, err := mag.PenultimateState()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "S0", prev)
	})

	t.Run("commit requirements", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()

		unloaded := scenario.NewMagazine(store, actor)
		unloaded.Set("S1")
		assert.ErrorIs(t, unloaded.Commit(ctx), scenario.ErrMagazineNotLoaded)

		mag := scenario.NewMagazine(store, actor)
		require.NoError(t, mag.Initialize(ctx, "S0"))
		assert.ErrorIs(t, mag.Commit(ctx), scenario.ErrNothingToCommit)
	})

	t.Run("load survives a new magazine instance", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()
		first := scenario.NewMagazine(store, actor)
		require.NoError(t, first.Initialize(ctx, "S0"))
		first.Set("S1")
		first.Set("S2")
		require.NoError(t, first.Commit(ctx))

		second := scenario.NewMagazine(store, actor)
		require.NoError(t, second.Load(ctx))
		entries, err := second.Entries()
		require.NoError(t, err)
		assert.Equal(t, []string{"S0", "S1", "S2"}, entries)
	})

	t.Run("failed commit keeps staged entries", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		store := &failingStore{MemoryStore: scenario.NewMemoryStore(), appendErr: boom}
		mag := scenario.NewMagazine(store, actor)
		require.NoError(t, mag.Initialize(ctx, "S0"))

		mag.Set("S1")
		assert.ErrorIs(t, mag.Commit(ctx), boom)

		store.appendErr = nil
		require.NoError(t, mag.Commit(ctx))
		log, err := store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"S0", "S1"}, log)
	})
}
