package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the state in memory. It is used by tests and by
// callers that do not want persistence.
type MemoryStore struct {
	mu      sync.Mutex
	state   State
	saves   int
	saveErr error
}

// NewMemoryStore returns a store preloaded with st.
func NewMemoryStore(st State) *MemoryStore {
	return &MemoryStore{state: cloneState(st)}
}

// Load returns a copy of the held state.
func (m *MemoryStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state), nil
}

// Save replaces the held state, or returns the error set by FailSaves.
func (m *MemoryStore) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = cloneState(st)
	m.saves++
	return nil
}

// FailSaves makes every following Save return err. A nil err restores
// normal behavior.
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves returns the number of successful saves.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Snapshot returns a copy of the held state.
func (m *MemoryStore) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}
