package scenario

import (
	"context"
	"errors"
	"slices"
)

// Magazine is the persisted, append-only history of state names for one actor.
// It must be loaded (or initialized) before reads. Writes are staged with Set
// and flushed with Commit.
//
// A Magazine is bound to a single transition call and is not safe for
// concurrent use.
type Magazine struct {
	store   Store
	actor   Actor
	entries []string
	staged  []string
	loaded  bool
}

// NewMagazine returns an unloaded magazine for actor backed by store.
func NewMagazine(store Store, actor Actor) *Magazine {
	return &Magazine{store: store, actor: actor}
}

// Actor returns the actor the magazine belongs to.
func (m *Magazine) Actor() Actor { return m.actor }

// IsLoaded reports whether the magazine can be read.
func (m *Magazine) IsLoaded() bool { return m.loaded }

// Load fetches the persisted log. It returns ErrMagazineNotInitialized when
// the actor has no log yet, leaving initialization to the caller.
func (m *Magazine) Load(ctx context.Context) error {
	log, err := m.store.GetLog(ctx, m.actor)
	if errors.Is(err, ErrLogNotFound) || (err == nil && len(log) == 0) {
		return ErrMagazineNotInitialized
	}
	if err != nil {
		return err
	}

	m.entries = log
	m.staged = nil
	m.loaded = true
	return nil
}

// LoadOrInitialize loads the persisted log, seeding it with the initial state
// name when the actor has none. A log created meanwhile by another caller is
// loaded as is.
func (m *Magazine) LoadOrInitialize(ctx context.Context, initial string) error {
	log, err := m.store.InitLog(ctx, m.actor, initial)
	if err != nil {
		return err
	}
	if len(log) == 0 {
		return ErrMagazineNotInitialized
	}

	m.entries = log
	m.staged = nil
	m.loaded = true
	return nil
}

// Initialize overwrites the log with a single entry holding the initial state
// name.
func (m *Magazine) Initialize(ctx context.Context, initial string) error {
	if err := m.store.ReplaceLog(ctx, m.actor, []string{initial}); err != nil {
		return err
	}

	m.entries = []string{initial}
	m.staged = nil
	m.loaded = true
	return nil
}

// verify fails with ErrStaleMagazine when the persisted log no longer matches
// the committed entries.
func (m *Magazine) verify(ctx context.Context) error {
	log, err := m.store.GetLog(ctx, m.actor)
	if err != nil && !errors.Is(err, ErrLogNotFound) {
		return err
	}
	if !slices.Equal(log, m.entries) {
		return ErrStaleMagazine
	}
	return nil
}

// Set stages a state name for the next Commit.
func (m *Magazine) Set(name string) {
	m.staged = append(m.staged, name)
}

// Commit durably appends the staged entries.
func (m *Magazine) Commit(ctx context.Context) error {
	if !m.loaded {
		return ErrMagazineNotLoaded
	}
	if len(m.staged) == 0 {
		return ErrNothingToCommit
	}
	if err := m.store.Append(ctx, m.actor, m.staged...); err != nil {
		return err
	}

	m.entries = append(m.entries, m.staged...)
	m.staged = nil
	return nil
}

// CurrentState returns the last entry, including staged ones.
func (m *Magazine) CurrentState() (string, error) {
	view, err := m.view()
	if err != nil {
		return "", err
	}
	return view[len(view)-1], nil
}

// PenultimateState returns the entry before the current one. ok is false when
// fewer than two entries exist.
func (m *Magazine) PenultimateState() (name string, ok bool, err error) {
	view, err := m.view()
	if err != nil {
		return "", false, err
	}
	if len(view) < 2 {
		return "", false, nil
	}
	return view[len(view)-2], true, nil
}

// Entries returns a copy of the committed and staged entries.
func (m *Magazine) Entries() ([]string, error) {
	view, err := m.view()
	if err != nil {
		return nil, err
	}
	return slices.Clone(view), nil
}

func (m *Magazine) view() ([]string, error) {
	if !m.loaded {
		return nil, ErrMagazineNotLoaded
	}
	return slices.Concat(m.entries, m.staged), nil
}
