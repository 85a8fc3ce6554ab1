package scenario_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
	"github.com/dmitrymomot/tgscenario/pkg/scenario"
)

type hookCall struct {
	hook  string
	state string
	data  scenario.Data
}

type recorder struct {
	mu    sync.Mutex
	calls []hookCall
}

func (r *recorder) hook(kind, state string) scenario.HookFunc {
	return func(_ context.Context, _ any, data scenario.Data) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, hookCall{hook: kind, state: state, data: data})
		return nil
	}
}

func (r *recorder) snapshot() []hookCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]hookCall(nil), r.calls...)
}

// newWizard builds menu -> ask_name -> confirm -> menu with recorded hooks.
func newWizard(t *testing.T, store scenario.Store) (*scenario.FSM, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := scenario.NewState("menu", scenario.OnExit(rec.hook("exit", "menu")))
	a := scenario.NewState("ask_name",
		scenario.OnEnter(rec.hook("enter", "ask_name"), "bot"),
		scenario.OnExit(rec.hook("exit", "ask_name"), "text"),
	)
	c := scenario.NewState("confirm", scenario.OnEnter(rec.hook("enter", "confirm")))

	table := scenario.MustNewTable(m,
		scenario.WithTransition(m, create, a),
		scenario.WithTransition(a, next, c),
		scenario.WithTransition(c, done, m),
	)
	return scenario.MustNew(table, store, scenario.WithLogger(logger.Nop())), rec
}

func TestFSMNextTransition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := scenario.NewActor(100, 200)

	t.Run("lazily initializes and advances", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()
		fsm, rec := newWizard(t, store)

		data := scenario.Data{"bot": "b", "text": "John", "extra": 1}
		require.NoError(t, fsm.ExecuteNextTransition(ctx, create, "event", data, actor))

		log, err := store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"menu", "ask_name"}, log)

		raw, err := store.GetCurrentState(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, "ask_name", raw)

		calls := rec.snapshot()
		require.Len(t, calls, 2)
		assert.Equal(t, "exit", calls[0].hook)
		assert.Equal(t, "menu", calls[0].state)
		assert.Equal(t, scenario.Data{"bot": "b", "text": "John", "extra": 1}, calls[0].data)
		assert.Equal(t, "enter", calls[1].hook)
		assert.Equal(t, scenario.Data{"bot": "b"}, calls[1].data)
	})

	t.Run("log grows by one per transition", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()
		fsm, _ := newWizard(t, store)

		signals := []scenario.Signal{create, next, done, create, next}
		for _, sig := range signals {
			require.NoError(t, fsm.ExecuteNextTransition(ctx, sig, nil, nil, actor))
		}

		mag := fsm.Magazine(actor)
		require.NoError(t, mag.Load(ctx))
		entries, err := mag.Entries()
		require.NoError(t, err)
		require.Len(t, entries, len(signals)+1)

		prev, ok, err := mag.PenultimateState()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entries[len(signals)-1], prev)
		assert.Equal(t, "ask_name", prev)
	})

	t.Run("signal not allowed from current state", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()
		fsm, rec := newWizard(t, store)

		err := fsm.ExecuteNextTransition(ctx, done, nil, nil, actor)
		assert.ErrorIs(t, err, scenario.ErrStateNotFound)
		assert.Empty(t, rec.snapshot())

		log, err := store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"menu"}, log)
	})

	t.Run("hook failure propagates and releases the lock", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("invalid name")
		store := scenario.NewMemoryStore()
		reg := scenario.NewLockRegistry()

		m := scenario.NewState("menu")
		a := scenario.NewState("ask_name", scenario.OnExit(func(context.Context, any, scenario.Data) error {
			return boom
		}))
		c := scenario.NewState("confirm")
		table := scenario.MustNewTable(m,
			scenario.WithTransition(m, create, a),
			scenario.WithTransition(a, next, c),
		)
		fsm := scenario.MustNew(table, store, scenario.WithLocker(reg), scenario.WithLogger(logger.Nop()))

		require.NoError(t, fsm.ExecuteNextTransition(ctx, create, nil, nil, actor))
		err := fsm.ExecuteNextTransition(ctx, next, nil, nil, actor)
		assert.ErrorIs(t, err, boom)
		assert.False(t, reg.Held(actor))

		log, err := store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"menu", "ask_name"}, log)
	})

	t.Run("state persistence failure leaves magazine untouched", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("store down")
		store := &failingStore{MemoryStore: scenario.NewMemoryStore(), setStateErr: boom}
		fsm, rec := newWizard(t, store)

		err := fsm.ExecuteNextTransition(ctx, create, nil, nil, actor)
		assert.ErrorIs(t, err, boom)
		assert.Len(t, rec.snapshot(), 2)

		log, err := store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"menu"}, log)
	})

	t.Run("unloaded magazine is rejected", func(t *testing.T) {
		t.Parallel()
		fsm, _ := newWizard(t, scenario.NewMemoryStore())
		mag := fsm.Magazine(actor)

		err := fsm.ExecuteTransition(ctx, menu, askName, nil, nil, mag)
		assert.ErrorIs(t, err, scenario.ErrTransition)
		assert.ErrorIs(t, err, scenario.ErrMagazineNotLoaded)
	})
}

// seedGate pauses the first InitLog call until release is closed.
type seedGate struct {
	*scenario.MemoryStore
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func (g *seedGate) InitLog(ctx context.Context, actor scenario.Actor, initial string) ([]string, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.reached)
		<-g.release
	}
	return g.MemoryStore.InitLog(ctx, actor, initial)
}

func TestFSMFirstUpdateSubmittedTwice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := scenario.NewActor(77, 78)

	store := &seedGate{
		MemoryStore: scenario.NewMemoryStore(),
		reached:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	fsm, rec := newWizard(t, store)

	late := make(chan error, 1)
	go func() {
		late <- fsm.ExecuteNextTransition(ctx, create, nil, nil, actor)
	}()

	select {
	case <-store.reached:
	case <-time.After(5 * time.Second):
		t.Fatal("late update did not reach seeding")
	}

	require.NoError(t, fsm.ExecuteNextTransition(ctx, create, nil, nil, actor))
	close(store.release)

	err := <-late
	assert.ErrorIs(t, err, scenario.ErrStateNotFound)
	assert.Len(t, rec.snapshot(), 2)

	log, err := store.GetLog(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "ask_name"}, log)
}

func TestFSMStaleMagazine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := scenario.NewActor(31, 32)
	store := scenario.NewMemoryStore()
	reg := scenario.NewLockRegistry()

	rec := &recorder{}
	m := scenario.NewState("menu", scenario.OnExit(rec.hook("exit", "menu")))
	a := scenario.NewState("ask_name", scenario.OnEnter(rec.hook("enter", "ask_name")))
	table := scenario.MustNewTable(m, scenario.WithTransition(m, create, a))
	fsm := scenario.MustNew(table, store, scenario.WithLocker(reg), scenario.WithLogger(logger.Nop()))

	require.NoError(t, fsm.SetChronology(ctx, actor))
	mag := fsm.Magazine(actor)
	require.NoError(t, mag.Load(ctx))

	require.NoError(t, fsm.ExecuteNextTransition(ctx, create, nil, nil, actor))
	require.Len(t, rec.snapshot(), 2)

	err := fsm.ExecuteTransition(ctx, m, a, nil, nil, mag)
	assert.ErrorIs(t, err, scenario.ErrStaleMagazine)
	assert.ErrorIs(t, err, scenario.ErrTransition)
	assert.Len(t, rec.snapshot(), 2)
	assert.False(t, reg.Held(actor))

	log, err := store.GetLog(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "ask_name"}, log)
}

func TestFSMBackTransition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := scenario.NewActor(7, 7)

	t.Run("requires initialized magazine", func(t *testing.T) {
		t.Parallel()
		fsm, _ := newWizard(t, scenario.NewMemoryStore())

		err := fsm.ExecuteBackTransition(ctx, nil, nil, actor)
		assert.True(t, scenario.IsMagazineNotInitialized(err))
	})

	t.Run("single entry has not enough history", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()
		fsm, _ := newWizard(t, store)
		require.NoError(t, fsm.SetChronology(ctx, actor))

		err := fsm.ExecuteBackTransition(ctx, nil, nil, actor)
		assert.ErrorIs(t, err, scenario.ErrNotEnoughHistory)
		assert.ErrorIs(t, err, scenario.ErrTransition)
	})

	t.Run("appends the penultimate state", func(t *testing.T) {
		t.Parallel()
		store := scenario.NewMemoryStore()
		fsm, rec := newWizard(t, store)

		require.NoError(t, fsm.ExecuteNextTransition(ctx, create, nil, nil, actor))
		require.NoError(t, fsm.ExecuteNextTransition(ctx, next, nil, nil, actor))
		require.NoError(t, fsm.ExecuteBackTransition(ctx, nil, nil, actor))

		log, err := store.GetLog(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, []string{"menu", "ask_name", "confirm", "ask_name"}, log)

		calls := rec.snapshot()
		last := calls[len(calls)-1]
		assert.Equal(t, "enter", last.hook)
		assert.Equal(t, "ask_name", last.state)

		raw, err := store.GetCurrentState(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, "ask_name", raw)
	})
}

func TestFSMConcurrentTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := scenario.NewActor(42, 42)

	entered := make(chan struct{})
	proceed := make(chan struct{})

	m := scenario.NewState("menu", scenario.OnExit(func(context.Context, any, scenario.Data) error {
		close(entered)
		<-proceed
		return nil
	}))
	a := scenario.NewState("ask_name")
	table := scenario.MustNewTable(m, scenario.WithTransition(m, create, a))
	store := scenario.NewMemoryStore()
	fsm := scenario.MustNew(table, store, scenario.WithLogger(logger.Nop()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- fsm.ExecuteNextTransition(ctx, create, nil, nil, actor)
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first transition did not start")
	}

	err := fsm.ExecuteNextTransition(ctx, create, nil, nil, actor)
	require.Error(t, err)
	assert.True(t, scenario.IsLockingError(err))

	close(proceed)
	require.NoError(t, <-errCh)

	log, err := store.GetLog(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "ask_name"}, log)
}

func TestFSMSetChronology(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := scenario.NewActor(9, 9)

	store := scenario.NewMemoryStore()
	fsm, rec := newWizard(t, store)

	require.NoError(t, fsm.ExecuteNextTransition(ctx, create, nil, nil, actor))
	require.NoError(t, fsm.SetChronology(ctx, actor, askName, confirm))

	log, err := store.GetLog(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, []string{"menu", "ask_name", "confirm"}, log)
	assert.Len(t, rec.snapshot(), 2)

	current, err := fsm.CurrentState(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "confirm", current.Name())

	err = fsm.SetChronology(ctx, actor, scenario.NewState("unknown"))
	assert.ErrorIs(t, err, scenario.ErrStateNotFound)
}

func TestFSMCurrentState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fsm, _ := newWizard(t, scenario.NewMemoryStore())

	current, err := fsm.CurrentState(ctx, scenario.NewActor(1, 0))
	require.NoError(t, err)
	assert.Equal(t, "menu", current.Name())
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := scenario.New(nil, scenario.NewMemoryStore())
	assert.Error(t, err)

	_, err = scenario.New(scenario.MustNewTable(menu), nil)
	assert.Error(t, err)

	assert.Panics(t, func() {
		scenario.MustNew(nil, nil)
	})
}
