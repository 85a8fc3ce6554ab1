package scenario

import (
	"context"
	"maps"
	"slices"
)

// Signal identifies what triggered a transition, usually the handler that
// processed an inbound event.
type Signal interface {
	Name() string
}

// StringSignal provides a simple string-based signal implementation.
type StringSignal string

func (s StringSignal) Name() string {
	return string(s)
}

// Data is the shared context mapping handed to state hooks.
type Data map[string]any

// Params is a hook parameter manifest: the context keys a hook accepts.
type Params struct {
	Keys []string
	All  bool
}

// AcceptAll is the manifest of a hook that takes the whole context.
var AcceptAll = Params{All: true}

// Accept declares a hook that only receives the listed context keys.
func Accept(keys ...string) Params {
	return Params{Keys: slices.Clone(keys)}
}

// Filter returns the subset of d declared by p. The result is always a fresh
// map, so hooks cannot mutate the caller's context.
func (d Data) Filter(p Params) Data {
	if p.All {
		out := make(Data, len(d))
		maps.Copy(out, d)
		return out
	}
	out := make(Data, len(p.Keys))
	for _, k := range p.Keys {
		if v, ok := d[k]; ok {
			out[k] = v
		}
	}
	return out
}

// State is a node of the transition graph. States are identified by name.
type State interface {
	Name() string
	ProcessEnter(ctx context.Context, event any, data Data) error
	ProcessExit(ctx context.Context, event any, data Data) error
}

// ParamDeclarer is implemented by states that declare which context keys
// their hooks accept. States without it receive the whole context.
type ParamDeclarer interface {
	EnterParams() Params
	ExitParams() Params
}

// RawValue returns the serialized form of a state used by the session-state store.
func RawValue(s State) string {
	return s.Name()
}

// HookFunc is the signature of a func-backed state hook.
type HookFunc func(ctx context.Context, event any, data Data) error

// FuncState is a State built from optional enter/exit functions.
type FuncState struct {
	name        string
	enter       HookFunc
	exit        HookFunc
	enterParams Params
	exitParams  Params
}

// StateOption configures a FuncState.
type StateOption func(*FuncState)

// OnEnter sets the enter hook. With no keys the hook receives the whole context.
func OnEnter(fn HookFunc, keys ...string) StateOption {
	return func(s *FuncState) {
		s.enter = fn
		s.enterParams = paramsFor(keys)
	}
}

// OnExit sets the exit hook. With no keys the hook receives the whole context.
func OnExit(fn HookFunc, keys ...string) StateOption {
	return func(s *FuncState) {
		s.exit = fn
		s.exitParams = paramsFor(keys)
	}
}

// NewState creates a func-backed state.
func NewState(name string, opts ...StateOption) *FuncState {
	s := &FuncState{
		name:        name,
		enterParams: AcceptAll,
		exitParams:  AcceptAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FuncState) Name() string { return s.name }

func (s *FuncState) String() string { return s.name }

func (s *FuncState) ProcessEnter(ctx context.Context, event any, data Data) error {
	if s.enter == nil {
		return nil
	}
	return s.enter(ctx, event, data)
}

func (s *FuncState) ProcessExit(ctx context.Context, event any, data Data) error {
	if s.exit == nil {
		return nil
	}
	return s.exit(ctx, event, data)
}

func (s *FuncState) EnterParams() Params { return s.enterParams }

func (s *FuncState) ExitParams() Params { return s.exitParams }

func paramsFor(keys []string) Params {
	if len(keys) == 0 {
		return AcceptAll
	}
	return Accept(keys...)
}

// manifest returns the enter/exit parameter manifests of s.
func manifest(s State) (enter, exit Params) {
	if d, ok := s.(ParamDeclarer); ok {
		return d.EnterParams(), d.ExitParams()
	}
	return AcceptAll, AcceptAll
}
