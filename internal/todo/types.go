package todo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SchemaVersion is the state document version this package reads and writes.
const SchemaVersion = 1

// Task is a pending unit of work.
type Task struct {
	Name         string   `json:"name"`
	Priority     int      `json:"priority"`
	DueDate      Date     `json:"due_date"`
	Dependencies []string `json:"dependencies"`
}

// IsZero returns true if the task is empty (has no name).
func (t *Task) IsZero() bool {
	return t.Name == ""
}

// Clone returns a copy of t that shares no memory with it.
func (t Task) Clone() Task {
	deps := make([]string, len(t.Dependencies))
	copy(deps, t.Dependencies)
	t.Dependencies = deps
	return t
}

// Document is the on-disk shape of the scheduler state.
type Document struct {
	SchemaVersion int      `json:"schema_version"`
	Pending       []Entry  `json:"pending"`
	Completed     []string `json:"completed"`
}

// Entry is one pending task together with its ordering key.
type Entry struct {
	Priority int        `json:"priority"`
	DueDate  string     `json:"due_date"`
	Task     TaskRecord `json:"task"`
}

// TaskRecord is the stored form of a Task.
type TaskRecord struct {
	Name         string   `json:"name"`
	Priority     int      `json:"priority"`
	DueDate      string   `json:"due_date"`
	Dependencies []string `json:"dependencies"`
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CorruptStateError reports persisted state that exists but cannot be
// decoded into a consistent task set.
type CorruptStateError struct {
	Source string // file or database the state came from
	Path   string // location inside the document, if known
	Err    error
}

func (e *CorruptStateError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("corrupt state in %s at %s: %v", e.Source, e.Path, e.Err)
	}
	return fmt.Sprintf("corrupt state in %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// NewDocument builds a state document. Pending tasks keep their given order;
// completed names are sorted.
func NewDocument(pending []Task, completed []string) *Document {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		Pending:       make([]Entry, 0, len(pending)),
		Completed:     make([]string, 0, len(completed)),
	}
	for _, t := range pending {
		deps := t.Dependencies
		if deps == nil {
			deps = []string{}
		}
		due := t.DueDate.String()
		doc.Pending = append(doc.Pending, Entry{
			Priority: t.Priority,
			DueDate:  due,
			Task: TaskRecord{
				Name:         t.Name,
				Priority:     t.Priority,
				DueDate:      due,
				Dependencies: deps,
			},
		})
	}
	doc.Completed = append(doc.Completed, completed...)
	sort.Strings(doc.Completed)
	return doc
}

// Encode renders the state with 2-space indentation and a trailing newline.
func Encode(pending []Task, completed []string) ([]byte, error) {
	data, err := json.MarshalIndent(NewDocument(pending, completed), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode validates and decodes a state document. Empty input is an empty
// state. Every failure is a *CorruptStateError naming source.
func Decode(data []byte, source string) ([]Task, []string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, &CorruptStateError{Source: source, Err: fmt.Errorf("parse state: %w", err)}
	}
	if errs := validateWithSchema(raw); len(errs) > 0 {
		return nil, nil, &CorruptStateError{Source: source, Path: errs[0].Path, Err: errs[0].Err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		corrupt := &CorruptStateError{Source: source, Err: err}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			corrupt.Path = typeErr.Field
		}
		return nil, nil, corrupt
	}

	tasks, err := doc.Tasks()
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return nil, nil, &CorruptStateError{Source: source, Path: ve.Path, Err: ve.Err}
		}
		return nil, nil, &CorruptStateError{Source: source, Err: err}
	}
	return tasks, doc.Completed, nil
}

// Tasks converts the pending entries into tasks, checking that the document
// is internally consistent.
func (d *Document) Tasks() ([]Task, error) {
	completed := make(map[string]struct{}, len(d.Completed))
	for i, name := range d.Completed {
		if strings.TrimSpace(name) == "" {
			return nil, &ValidationError{Path: fmt.Sprintf("completed[%d]", i), Err: errors.New("empty task name")}
		}
		completed[name] = struct{}{}
	}

	seen := make(map[string]int, len(d.Pending))
	tasks := make([]Task, 0, len(d.Pending))
	for i, e := range d.Pending {
		path := fmt.Sprintf("pending[%d]", i)
		rec := e.Task
		if strings.TrimSpace(rec.Name) == "" {
			return nil, &ValidationError{Path: path + ".task.name", Err: errors.New("empty task name")}
		}
		due, err := ParseDate(rec.DueDate)
		if err != nil {
			return nil, &ValidationError{Path: path + ".task.due_date", Err: err}
		}
		entryDue, err := ParseDate(e.DueDate)
		if err != nil {
			return nil, &ValidationError{Path: path + ".due_date", Err: err}
		}
		if e.Priority != rec.Priority {
			return nil, &ValidationError{
				Path: path + ".priority",
				Err:  fmt.Errorf("entry priority %d does not match task priority %d", e.Priority, rec.Priority),
			}
		}
		if entryDue != due {
			return nil, &ValidationError{
				Path: path + ".due_date",
				Err:  fmt.Errorf("entry due date %s does not match task due date %s", entryDue, due),
			}
		}
		if first, dup := seen[rec.Name]; dup {
			return nil, &ValidationError{
				Path: path + ".task.name",
				Err:  fmt.Errorf("duplicate pending task %q (first at pending[%d])", rec.Name, first),
			}
		}
		if _, done := completed[rec.Name]; done {
			return nil, &ValidationError{
				Path: path + ".task.name",
				Err:  fmt.Errorf("task %q is both pending and completed", rec.Name),
			}
		}
		seen[rec.Name] = i

		deps := make([]string, len(rec.Dependencies))
		copy(deps, rec.Dependencies)
		tasks = append(tasks, Task{
			Name:         rec.Name,
			Priority:     rec.Priority,
			DueDate:      due,
			Dependencies: deps,
		})
	}
	return tasks, nil
}
