package scenario

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// TransitionsDefinition is the YAML form of a transitions table:
//
//	initial: menu
//	transitions:
//	  - signal: create
//	    from: [menu]
//	    to: ask_name
type TransitionsDefinition struct {
	Initial     string                 `yaml:"initial"`
	Transitions []TransitionDefinition `yaml:"transitions"`
}

type TransitionDefinition struct {
	Signal string   `yaml:"signal"`
	From   []string `yaml:"from"`
	To     string   `yaml:"to"`
}

// LoadTransitions builds a table from a YAML definition. State names in the
// definition are resolved against states; hooks come from those values.
func LoadTransitions(r io.Reader, states ...State) (*Table, error) {
	var def TransitionsDefinition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("decode transitions definition: %w", err)
	}
	return def.Build(states...)
}

// Build creates the table described by the definition.
func (d TransitionsDefinition) Build(states ...State) (*Table, error) {
	byName := make(map[string]State, len(states))
	for _, s := range states {
		if !validState(s) {
			return nil, ErrInvalidState
		}
		if _, ok := byName[s.Name()]; ok {
			return nil, errors.Join(ErrDuplicate, fmt.Errorf("state '%s' is listed twice", s.Name()))
		}
		byName[s.Name()] = s
	}

	lookup := func(name string) (State, error) {
		s, ok := byName[name]
		if !ok {
			return nil, errors.Join(ErrStateNotFound, fmt.Errorf("no state found for '%s' name", name))
		}
		return s, nil
	}

	if d.Initial == "" {
		return nil, errors.Join(ErrInitialState, errors.New("initial state not set"))
	}
	initial, err := lookup(d.Initial)
	if err != nil {
		return nil, err
	}
	table, err := NewTable(initial)
	if err != nil {
		return nil, err
	}

	for i, td := range d.Transitions {
		to, err := lookup(td.To)
		if err != nil {
			return nil, fmt.Errorf("transitions[%d]: %w", i, err)
		}
		sources := make([]State, 0, len(td.From))
		for _, name := range td.From {
			s, err := lookup(name)
			if err != nil {
				return nil, fmt.Errorf("transitions[%d]: %w", i, err)
			}
			sources = append(sources, s)
		}
		if err := table.AddTransitions(sources, StringSignal(td.Signal), to); err != nil {
			return nil, fmt.Errorf("transitions[%d]: %w", i, err)
		}
	}
	return table, nil
}
