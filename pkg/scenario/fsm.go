package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/tgscenario/pkg/logger"
)

// FSM executes transitions for many independent actors over one shared table.
// Transitions of different actors run concurrently; transitions of one actor
// are serialized by the Locker and a conflicting attempt fails fast.
type FSM struct {
	table  *Table
	store  Store
	locker Locker
	log    *slog.Logger
}

// Option configures an FSM.
type Option func(*FSM)

// WithLocker replaces the default in-process LockRegistry, e.g. with a
// distributed lock when several bot instances share one store.
func WithLocker(l Locker) Option {
	return func(f *FSM) {
		if l != nil {
			f.locker = l
		}
	}
}

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(f *FSM) {
		if l != nil {
			f.log = l
		}
	}
}

// New creates an FSM over table persisting to store.
func New(table *Table, store Store, opts ...Option) (*FSM, error) {
	if table == nil {
		return nil, errors.New("transitions table cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if _, err := table.Initial(); err != nil {
		return nil, err
	}

	f := &FSM{
		table:  table,
		store:  store,
		locker: NewLockRegistry(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With(logger.Component("fsm"))
	return f, nil
}

// MustNew works like New but panics on error.
func MustNew(table *Table, store Store, opts ...Option) *FSM {
	f, err := New(table, store, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create fsm: %v", err))
	}
	return f
}

// Table returns the transitions table the FSM runs on.
func (f *FSM) Table() *Table { return f.table }

// Magazine returns an unloaded magazine for actor.
func (f *FSM) Magazine(actor Actor) *Magazine {
	return NewMagazine(f.store, actor)
}

// ExecuteTransition runs exit hook, enter hook, state persistence and magazine
// commit under the actor lock. A failing step aborts the remaining ones; steps
// already applied are not rolled back. If another transition committed since
// mag was loaded, no hook runs and ErrStaleMagazine is returned.
func (f *FSM) ExecuteTransition(ctx context.Context, source, destination State, event any, data Data, mag *Magazine) error {
	actor := mag.Actor()
	src, dst := source.Name(), destination.Name()
	attrs := []any{logger.Transition(src, dst), logger.UserID(actor.UserID), logger.ChatID(actor.ChatID)}

	f.log.DebugContext(ctx, "started transition", attrs...)

	if !mag.IsLoaded() {
		return errors.Join(ErrTransition, ErrMagazineNotLoaded)
	}

	release, err := f.locker.Acquire(ctx, source, destination, actor)
	if err != nil {
		if IsLockingError(err) {
			f.log.WarnContext(ctx, "transition rejected by active lock", attrs...)
		}
		return err
	}
	defer release()

	if err := mag.verify(ctx); err != nil {
		if errors.Is(err, ErrStaleMagazine) {
			f.log.WarnContext(ctx, "transition source is stale", attrs...)
			return errors.Join(ErrTransition, err)
		}
		return err
	}

	_, exitParams := f.table.params(src)
	enterParams, _ := f.table.params(dst)

	if err := source.ProcessExit(ctx, event, data.Filter(exitParams)); err != nil {
		return fmt.Errorf("exit from state '%s': %w", src, err)
	}
	f.log.DebugContext(ctx, "produced exit from state", append(attrs, logger.State(src))...)

	if err := destination.ProcessEnter(ctx, event, data.Filter(enterParams)); err != nil {
		return fmt.Errorf("enter to state '%s': %w", dst, err)
	}
	f.log.DebugContext(ctx, "produced enter to state", append(attrs, logger.State(dst))...)

	if err := f.store.SetCurrentState(ctx, actor, RawValue(destination)); err != nil {
		return fmt.Errorf("set state '%s': %w", dst, err)
	}

	mag.Set(dst)
	if err := mag.Commit(ctx); err != nil {
		return fmt.Errorf("commit magazine: %w", err)
	}

	f.log.DebugContext(ctx, "transition completed", attrs...)
	return nil
}

// ExecuteNextTransition moves the actor along the edge selected by signal.
// An actor without history is seeded with the initial state first.
func (f *FSM) ExecuteNextTransition(ctx context.Context, signal Signal, event any, data Data, actor Actor) error {
	initial, err := f.table.Initial()
	if err != nil {
		return err
	}
	mag := f.Magazine(actor)
	if err := mag.LoadOrInitialize(ctx, initial.Name()); err != nil {
		return err
	}

	current, err := f.currentFromMagazine(mag)
	if err != nil {
		return err
	}
	destination, err := f.table.Resolve(current, signal)
	if err != nil {
		return err
	}

	return f.ExecuteTransition(ctx, current, destination, event, data, mag)
}

// ExecuteBackTransition returns the actor to its previous state by appending
// that state to the magazine again. History is never truncated.
func (f *FSM) ExecuteBackTransition(ctx context.Context, event any, data Data, actor Actor) error {
	mag := f.Magazine(actor)
	if err := mag.Load(ctx); err != nil {
		return err
	}

	previous, ok, err := mag.PenultimateState()
	if err != nil {
		return err
	}
	if !ok {
		return errors.Join(ErrTransition, ErrNotEnoughHistory)
	}

	current, err := f.currentFromMagazine(mag)
	if err != nil {
		return err
	}
	destination, err := f.table.State(previous)
	if err != nil {
		return err
	}

	return f.ExecuteTransition(ctx, current, destination, event, data, mag)
}

// SetChronology overwrites the actor's history with the initial state followed
// by states, and records the last one as the current state. Hooks are not run.
func (f *FSM) SetChronology(ctx context.Context, actor Actor, states ...State) error {
	initial, err := f.table.Initial()
	if err != nil {
		return err
	}

	last := initial
	for _, s := range states {
		if !validState(s) {
			return ErrInvalidState
		}
		if _, err := f.table.State(s.Name()); err != nil {
			return err
		}
		last = s
	}

	mag := f.Magazine(actor)
	if err := mag.Initialize(ctx, initial.Name()); err != nil {
		return err
	}
	if len(states) > 0 {
		for _, s := range states {
			mag.Set(s.Name())
		}
		if err := mag.Commit(ctx); err != nil {
			return err
		}
	}

	return f.store.SetCurrentState(ctx, actor, RawValue(last))
}

// CurrentState returns the actor's state as recorded in the session-state
// store, or the initial state if none was recorded yet.
func (f *FSM) CurrentState(ctx context.Context, actor Actor) (State, error) {
	raw, err := f.store.GetCurrentState(ctx, actor)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return f.table.Initial()
	}
	return f.table.State(raw)
}

func (f *FSM) currentFromMagazine(mag *Magazine) (State, error) {
	name, err := mag.CurrentState()
	if err != nil {
		return nil, err
	}
	return f.table.State(name)
}
