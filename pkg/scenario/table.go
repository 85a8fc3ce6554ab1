package scenario

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

type stateEntry struct {
	state       State
	enterParams Params
	exitParams  Params
}

// Table maps (source state, signal) pairs to destination states.
// States are registered implicitly the first time a transition references
// them, and the table owns their assignment: the same name always resolves to
// the first registered State value.
type Table struct {
	mu          sync.RWMutex
	initial     string
	states      map[string]*stateEntry
	order       []string
	transitions map[string]map[string]string
	signals     []string
}

// TableOption configures a table during construction.
type TableOption func(*Table) error

// NewTable creates a transition table with the given initial state.
func NewTable(initial State, opts ...TableOption) (*Table, error) {
	t := newTable()
	if err := t.SetInitial(initial); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNewTable works like NewTable but panics on error.
func MustNewTable(initial State, opts ...TableOption) *Table {
	t, err := NewTable(initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create transitions table: %v", err))
	}
	return t
}

// WithTransition adds a single transition to the table.
func WithTransition(source State, signal Signal, destination State) TableOption {
	return func(t *Table) error {
		return t.AddTransition(source, signal, destination)
	}
}

// WithTransitions adds the same signal from several sources to one destination.
func WithTransitions(sources []State, signal Signal, destination State) TableOption {
	return func(t *Table) error {
		return t.AddTransitions(sources, signal, destination)
	}
}

func newTable() *Table {
	return &Table{
		states:      make(map[string]*stateEntry),
		transitions: make(map[string]map[string]string),
	}
}

// SetInitial registers the initial state. It can be called only once and only
// with a state that is not registered yet.
func (t *Table) SetInitial(state State) error {
	if !validState(state) {
		return ErrInvalidState
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initial != "" {
		return errors.Join(ErrInitialState, fmt.Errorf("initial state '%s' has already been set", t.initial))
	}
	if _, ok := t.states[state.Name()]; ok {
		return errors.Join(ErrDuplicate, fmt.Errorf("state '%s' already exists", state.Name()))
	}

	t.register(state)
	t.initial = state.Name()
	return nil
}

// AddTransition registers source --signal--> destination. Registering the same
// pair with the same destination again is a no-op.
func (t *Table) AddTransition(source State, signal Signal, destination State) error {
	if !validState(source) || !validState(destination) {
		return ErrInvalidState
	}
	if !validSignal(signal) {
		return ErrInvalidSignal
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	src, dst, sig := source.Name(), destination.Name(), signal.Name()

	if t.initial == "" {
		return errors.Join(ErrInitialState, errors.New("initial state must be set before adding transitions"))
	}
	if src == dst {
		return errors.Join(ErrAddingTransition, fmt.Errorf("self-transition for state '%s' is not allowed", src))
	}
	if existing, ok := t.transitions[src][sig]; ok {
		if existing == dst {
			return nil
		}
		return errors.Join(ErrAddingTransition,
			fmt.Errorf("signal '%s' from state '%s' already leads to '%s'", sig, src, existing))
	}

	t.register(source)
	t.register(destination)

	if _, ok := t.transitions[src]; !ok {
		t.transitions[src] = make(map[string]string)
	}
	t.transitions[src][sig] = dst
	if !slices.Contains(t.signals, sig) {
		t.signals = append(t.signals, sig)
	}
	return nil
}

// AddTransitions applies AddTransition for each source. The first failure
// aborts; transitions added before it are kept, so a failed call leaves the
// table in a state callers must not continue with.
func (t *Table) AddTransitions(sources []State, signal Signal, destination State) error {
	for i, source := range sources {
		if err := t.AddTransition(source, signal, destination); err != nil {
			name := "<nil>"
			if source != nil {
				name = source.Name()
			}
			return fmt.Errorf("failed to add transition[%d] from '%s': %w", i, name, err)
		}
	}
	return nil
}

// RemoveState unregisters a non-initial state together with every transition
// into or out of it.
func (t *Table) RemoveState(state State) error {
	if !validState(state) {
		return ErrInvalidState
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	name := state.Name()
	if _, ok := t.states[name]; !ok {
		return errors.Join(ErrStateNotFound, fmt.Errorf("no state '%s' to remove", name))
	}
	if name == t.initial {
		return errors.Join(ErrInitialState, errors.New("initial state cannot be removed"))
	}

	delete(t.states, name)
	delete(t.transitions, name)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == name })

	for src, routes := range t.transitions {
		for sig, dst := range routes {
			if dst == name {
				delete(routes, sig)
			}
		}
		if len(routes) == 0 {
			delete(t.transitions, src)
		}
	}
	t.signals = slices.DeleteFunc(t.signals, func(sig string) bool {
		for _, routes := range t.transitions {
			if _, ok := routes[sig]; ok {
				return false
			}
		}
		return true
	})
	return nil
}

// Resolve returns the destination for source and signal.
func (t *Table) Resolve(source State, signal Signal) (State, error) {
	if !validState(source) {
		return nil, ErrInvalidState
	}
	if !validSignal(signal) {
		return nil, ErrInvalidSignal
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	dst, ok := t.transitions[source.Name()][signal.Name()]
	if !ok {
		return nil, errors.Join(ErrStateNotFound,
			fmt.Errorf("no destination from state '%s' for signal '%s'", source.Name(), signal.Name()))
	}
	return t.states[dst].state, nil
}

// State returns the registered state with the given name.
func (t *Table) State(name string) (State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.states[name]
	if !ok {
		return nil, errors.Join(ErrStateNotFound, fmt.Errorf("no state found for '%s' name", name))
	}
	return e.state, nil
}

// Initial returns the initial state.
func (t *Table) Initial() (State, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.initial == "" {
		return nil, errors.Join(ErrInitialState, errors.New("initial state not set"))
	}
	return t.states[t.initial].state, nil
}

// States returns all registered states, initial first, then in registration order.
func (t *Table) States() []State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]State, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.states[name].state)
	}
	return out
}

// Signals returns signal names in the order they were first registered.
func (t *Table) Signals() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.signals)
}

func (t *Table) params(name string) (enter, exit Params) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if e, ok := t.states[name]; ok {
		return e.enterParams, e.exitParams
	}
	return AcceptAll, AcceptAll
}

// register must be called with t.mu held. Hook manifests are resolved here,
// once per state.
func (t *Table) register(s State) {
	if _, ok := t.states[s.Name()]; ok {
		return
	}
	enter, exit := manifest(s)
	t.states[s.Name()] = &stateEntry{state: s, enterParams: enter, exitParams: exit}
	t.order = append(t.order, s.Name())
}

func validState(s State) bool {
	return s != nil && s.Name() != ""
}

func validSignal(s Signal) bool {
	return s != nil && s.Name() != ""
}
