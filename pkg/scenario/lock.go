package scenario

import (
	"context"
	"sync"
)

// Locker guards transitions so that at most one runs per actor at a time.
// Acquire fails fast with a *LockingError instead of waiting. The returned
// release func must be called exactly once, usually deferred.
type Locker interface {
	Acquire(ctx context.Context, source, destination State, actor Actor) (release func(), err error)
}

type heldLock struct {
	source      string
	destination string
}

// LockRegistry is an in-process Locker keyed by actor. Source and destination
// are kept only for diagnostics.
type LockRegistry struct {
	mu    sync.Mutex
	locks map[Actor]heldLock
}

// NewLockRegistry creates an empty lock registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[Actor]heldLock)}
}

func (r *LockRegistry) Acquire(ctx context.Context, source, destination State, actor Actor) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.locks[actor]; busy {
		return nil, NewLockingError(source.Name(), destination.Name(), actor)
	}
	r.locks[actor] = heldLock{source: source.Name(), destination: destination.Name()}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.locks, actor)
			r.mu.Unlock()
		})
	}, nil
}

// Held reports whether a transition is in flight for actor.
func (r *LockRegistry) Held(actor Actor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.locks[actor]
	return ok
}
