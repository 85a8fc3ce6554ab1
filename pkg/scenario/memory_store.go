package scenario

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore implements Store in process memory. Suitable for tests and
// single-instance bots that do not need history across restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	logs   map[string][]string
	states map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:   make(map[string][]string),
		states: make(map[string]string),
	}
}

func (m *MemoryStore) GetLog(ctx context.Context, actor Actor) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	log, ok := m.logs[actor.Key()]
	if !ok {
		return nil, ErrLogNotFound
	}
	return slices.Clone(log), nil
}

func (m *MemoryStore) Append(ctx context.Context, actor Actor, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := actor.Key()
	m.logs[key] = append(m.logs[key], names...)
	return nil
}

func (m *MemoryStore) InitLog(ctx context.Context, actor Actor, initial string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := actor.Key()
	if log, ok := m.logs[key]; ok && len(log) > 0 {
		return slices.Clone(log), nil
	}
	m.logs[key] = []string{initial}
	return []string{initial}, nil
}

func (m *MemoryStore) ReplaceLog(ctx context.Context, actor Actor, names []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs[actor.Key()] = slices.Clone(names)
	return nil
}

func (m *MemoryStore) SetCurrentState(ctx context.Context, actor Actor, raw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[actor.Key()] = raw
	return nil
}

func (m *MemoryStore) GetCurrentState(ctx context.Context, actor Actor) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.states[actor.Key()], nil
}
