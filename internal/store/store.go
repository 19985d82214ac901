// Package store persists the scheduler state: pending tasks and the
// completed set, always loaded and saved together.
package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/nibzard/nextup/internal/todo"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// State is the full persisted scheduler state.
type State struct {
	Pending   []todo.Task
	Completed []string
}

// Store is a durable round trip of State. Load returns an empty State when
// nothing has been saved yet and a *todo.CorruptStateError when saved state
// cannot be decoded. Save replaces everything previously saved.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
}

// Open returns the store for the named backend at path.
func Open(backend, path string, logger *log.Logger) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(path, logger), nil
	case BackendSQLite:
		return NewSQLiteStore(path, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (expected json|sqlite)", backend)
	}
}

// Close releases resources held by st, if it holds any.
func Close(st Store) error {
	if c, ok := st.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func cloneState(st State) State {
	out := State{
		Pending:   make([]todo.Task, len(st.Pending)),
		Completed: make([]string, len(st.Completed)),
	}
	for i, t := range st.Pending {
		out.Pending[i] = t.Clone()
	}
	copy(out.Completed, st.Completed)
	return out
}
