package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/todo"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pending (
    seq INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    priority INTEGER NOT NULL,
    due_date TEXT NOT NULL,
    dependencies TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS completed (
    name TEXT PRIMARY KEY
);
`

// SQLiteStore keeps the state in a SQLite database. The connection is
// opened on first use.
type SQLiteStore struct {
	path   string
	logger *log.Logger

	mu   sync.Mutex
	conn *sql.DB
}

// NewSQLiteStore returns a store backed by the SQLite database at path.
func NewSQLiteStore(path string, logger *log.Logger) *SQLiteStore {
	return &SQLiteStore{path: path, logger: logging.OrDiscard(logger)}
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) db(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn, nil
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	s.conn = conn
	return conn, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Load reads pending tasks in saved order and the completed set.
func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	conn, err := s.db(ctx)
	if err != nil {
		return State{}, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT name, priority, due_date, dependencies FROM pending ORDER BY seq`)
	if err != nil {
		return State{}, fmt.Errorf("querying pending tasks: %w", err)
	}
	defer rows.Close()

	var st State
	for i := 0; rows.Next(); i++ {
		var rawName, rawPriority, rawDue, rawDeps any
		if err := rows.Scan(&rawName, &rawPriority, &rawDue, &rawDeps); err != nil {
			return State{}, fmt.Errorf("scanning pending task: %w", err)
		}
		path := fmt.Sprintf("pending[%d]", i)
		name, err := textValue(rawName)
		if err != nil {
			return State{}, s.corrupt(path+".name", err)
		}
		if strings.TrimSpace(name) == "" {
			return State{}, s.corrupt(path+".name", fmt.Errorf("empty task name"))
		}
		priority, err := intValue(rawPriority)
		if err != nil {
			return State{}, s.corrupt(path+".priority", err)
		}
		due, err := textValue(rawDue)
		if err != nil {
			return State{}, s.corrupt(path+".due_date", err)
		}
		deps, err := textValue(rawDeps)
		if err != nil {
			return State{}, s.corrupt(path+".dependencies", err)
		}
		date, err := todo.ParseDate(due)
		if err != nil {
			return State{}, s.corrupt(path+".due_date", err)
		}
		task := todo.Task{Name: name, Priority: priority, DueDate: date, Dependencies: []string{}}
		if err := json.Unmarshal([]byte(deps), &task.Dependencies); err != nil {
			return State{}, s.corrupt(path+".dependencies", err)
		}
		st.Pending = append(st.Pending, task)
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("iterating pending tasks: %w", err)
	}

	crows, err := conn.QueryContext(ctx, `SELECT name FROM completed ORDER BY name`)
	if err != nil {
		return State{}, fmt.Errorf("querying completed tasks: %w", err)
	}
	defer crows.Close()
	for i := 0; crows.Next(); i++ {
		var raw any
		if err := crows.Scan(&raw); err != nil {
			return State{}, fmt.Errorf("scanning completed task: %w", err)
		}
		name, err := textValue(raw)
		if err == nil && strings.TrimSpace(name) == "" {
			err = fmt.Errorf("empty task name")
		}
		if err != nil {
			return State{}, s.corrupt(fmt.Sprintf("completed[%d]", i), err)
		}
		st.Completed = append(st.Completed, name)
	}
	if err := crows.Err(); err != nil {
		return State{}, fmt.Errorf("iterating completed tasks: %w", err)
	}

	pendingNames := make(map[string]struct{}, len(st.Pending))
	for _, t := range st.Pending {
		pendingNames[t.Name] = struct{}{}
	}
	for i, name := range st.Completed {
		if _, ok := pendingNames[name]; ok {
			return State{}, s.corrupt(fmt.Sprintf("completed[%d]", i), fmt.Errorf("task %q is both pending and completed", name))
		}
	}

	s.logger.Debug("state loaded", "path", s.path, "pending", len(st.Pending), "completed", len(st.Completed))
	return st, nil
}

// Save replaces both tables in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st State) error {
	conn, err := s.db(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending`); err != nil {
		return fmt.Errorf("clearing pending tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM completed`); err != nil {
		return fmt.Errorf("clearing completed tasks: %w", err)
	}

	for i, t := range st.Pending {
		deps := t.Dependencies
		if deps == nil {
			deps = []string{}
		}
		encoded, err := json.Marshal(deps)
		if err != nil {
			return fmt.Errorf("encoding dependencies of %q: %w", t.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pending (seq, name, priority, due_date, dependencies) VALUES (?, ?, ?, ?, ?)`,
			i, t.Name, t.Priority, t.DueDate.String(), string(encoded),
		); err != nil {
			return fmt.Errorf("inserting task %q: %w", t.Name, err)
		}
	}
	for _, name := range st.Completed {
		if _, err := tx.ExecContext(ctx, `INSERT INTO completed (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("inserting completed task %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing state: %w", err)
	}
	s.logger.Debug("state saved", "path", s.path, "pending", len(st.Pending), "completed", len(st.Completed))
	return nil
}

func (s *SQLiteStore) corrupt(path string, err error) error {
	return &todo.CorruptStateError{Source: s.path, Path: path, Err: err}
}

// textValue accepts the TEXT column forms the driver returns.
func textValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("value is NULL")
	default:
		return "", fmt.Errorf("expected text, got %T", v)
	}
}

// intValue accepts an INTEGER column, or TEXT holding a decimal integer.
func intValue(v any) (int, error) {
	switch v := v.(type) {
	case int64:
		if int64(int(v)) != v {
			return 0, fmt.Errorf("integer %d out of range", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case []byte:
		return strconv.Atoi(strings.TrimSpace(string(v)))
	case nil:
		return 0, fmt.Errorf("value is NULL")
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
