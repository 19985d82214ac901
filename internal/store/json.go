package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/todo"
)

// JSONStore keeps the state in a single JSON document on disk.
type JSONStore struct {
	path   string
	logger *log.Logger
}

// NewJSONStore returns a store backed by the JSON file at path.
func NewJSONStore(path string, logger *log.Logger) *JSONStore {
	return &JSONStore{path: path, logger: logging.OrDiscard(logger)}
}

// Path returns the state file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the state file. A missing or empty file is an empty state.
func (s *JSONStore) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("state file not found, starting empty", "path", s.path)
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state file: %w", err)
	}

	pending, completed, err := todo.Decode(data, s.path)
	if err != nil {
		return State{}, err
	}
	s.logger.Debug("state loaded", "path", s.path, "pending", len(pending), "completed", len(completed))
	return State{Pending: pending, Completed: completed}, nil
}

// Save replaces the state file atomically.
func (s *JSONStore) Save(ctx context.Context, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := todo.Encode(st.Pending, st.Completed)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	s.logger.Debug("state saved", "path", s.path, "pending", len(st.Pending), "completed", len(st.Completed))
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory, syncs
// it, and renames it over path. Readers see the old or the new file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some platforms cannot fsync a directory; the rename already happened.
	_ = d.Sync()
	return nil
}
