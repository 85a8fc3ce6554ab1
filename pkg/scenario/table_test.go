package scenario_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

var (
	menu    = scenario.NewState("menu")
	askName = scenario.NewState("ask_name")
	confirm = scenario.NewState("confirm")

	create = scenario.StringSignal("create")
	next   = scenario.StringSignal("next")
	done   = scenario.StringSignal("done")
)

func TestTable(t *testing.T) {
	t.Parallel()

	t.Run("resolves defined pairs", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu,
			scenario.WithTransition(menu, create, askName),
			scenario.WithTransition(askName, next, confirm),
			scenario.WithTransition(confirm, done, menu),
		)

		cases := []struct {
			source scenario.State
			signal scenario.Signal
			want   string
		}{
			{menu, create, "ask_name"},
			{askName, next, "confirm"},
			{confirm, done, "menu"},
		}
		for _, tc := range cases {
			got, err := table.Resolve(tc.source, tc.signal)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Name())

			again, err := table.Resolve(tc.source, tc.signal)
			require.NoError(t, err)
			assert.Same(t, got, again)
		}
	})

	t.Run("fails for undefined pairs", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu, scenario.WithTransition(menu, create, askName))

		_, err := table.Resolve(askName, create)
		assert.ErrorIs(t, err, scenario.ErrStateNotFound)

		_, err = table.Resolve(menu, next)
		assert.True(t, scenario.IsStateNotFound(err))
	})

	t.Run("same signal from different sources", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu,
			scenario.WithTransition(menu, next, askName),
			scenario.WithTransition(askName, next, confirm),
		)

		dst, err := table.Resolve(menu, next)
		require.NoError(t, err)
		assert.Equal(t, "ask_name", dst.Name())

		dst, err = table.Resolve(askName, next)
		require.NoError(t, err)
		assert.Equal(t, "confirm", dst.Name())
		assert.Equal(t, []string{"next"}, table.Signals())
	})

	t.Run("duplicate pair with different destination fails", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu, scenario.WithTransition(menu, create, askName))

		err := table.AddTransition(menu, create, confirm)
		assert.ErrorIs(t, err, scenario.ErrAddingTransition)

		dst, err := table.Resolve(menu, create)
		require.NoError(t, err)
		assert.Equal(t, "ask_name", dst.Name())
	})

	t.Run("re-registering the same transition is a no-op", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu, scenario.WithTransition(menu, create, askName))
		assert.NoError(t, table.AddTransition(menu, create, askName))
	})

	t.Run("self-transition always fails", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu, scenario.WithTransition(menu, create, askName))

		for _, s := range []scenario.State{menu, askName, confirm} {
			err := table.AddTransition(s, next, s)
			assert.ErrorIs(t, err, scenario.ErrAddingTransition, s.Name())
		}
	})

	t.Run("initial state can be set only once", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu)

		err := table.SetInitial(scenario.NewState("other"))
		assert.ErrorIs(t, err, scenario.ErrInitialState)

		initial, err := table.Initial()
		require.NoError(t, err)
		assert.Equal(t, "menu", initial.Name())
	})

	t.Run("nil initial state is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := scenario.NewTable(nil)
		assert.ErrorIs(t, err, scenario.ErrInvalidState)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu)

		assert.ErrorIs(t, table.AddTransition(nil, create, askName), scenario.ErrInvalidState)
		assert.ErrorIs(t, table.AddTransition(menu, nil, askName), scenario.ErrInvalidSignal)
		assert.ErrorIs(t, table.AddTransition(menu, scenario.StringSignal(""), askName), scenario.ErrInvalidSignal)
	})

	t.Run("add transitions aborts on first failure without rollback", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu)

		err := table.AddTransitions([]scenario.State{menu, confirm, askName}, next, askName)
		require.Error(t, err)
		assert.ErrorIs(t, err, scenario.ErrAddingTransition)

		_, err = table.Resolve(menu, next)
		assert.NoError(t, err)
		_, err = table.Resolve(confirm, next)
		assert.NoError(t, err)
	})

	t.Run("states are listed initial first", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu,
			scenario.WithTransition(askName, next, confirm),
			scenario.WithTransition(menu, create, askName),
		)

		names := make([]string, 0)
		for _, s := range table.States() {
			names = append(names, s.Name())
		}
		assert.Equal(t, []string{"menu", "ask_name", "confirm"}, names)
	})

	t.Run("same name resolves to first registered value", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu, scenario.WithTransition(menu, create, askName))

		alias := scenario.NewState("ask_name")
		require.NoError(t, table.AddTransition(alias, next, confirm))

		s, err := table.State("ask_name")
		require.NoError(t, err)
		assert.Same(t, askName, s)
	})

	t.Run("initial state already registered is a duplicate", func(t *testing.T) {
		t.Parallel()
		table := scenario.MustNewTable(menu)
		err := table.SetInitial(menu)
		assert.True(t, errors.Is(err, scenario.ErrInitialState) || errors.Is(err, scenario.ErrDuplicate))
	})
}

func TestTableRemoveState(t *testing.T) {
	t.Parallel()

	table := scenario.MustNewTable(menu,
		scenario.WithTransition(menu, create, askName),
		scenario.WithTransition(askName, next, confirm),
		scenario.WithTransition(confirm, done, menu),
	)

	require.NoError(t, table.RemoveState(confirm))

	_, err := table.State("confirm")
	assert.ErrorIs(t, err, scenario.ErrStateNotFound)
	_, err = table.Resolve(askName, next)
	assert.ErrorIs(t, err, scenario.ErrStateNotFound)
	assert.Equal(t, []string{"create"}, table.Signals())

	assert.ErrorIs(t, table.RemoveState(confirm), scenario.ErrStateNotFound)
	assert.ErrorIs(t, table.RemoveState(menu), scenario.ErrInitialState)
}
