// Package scheduler orders pending tasks, gates them on their dependencies,
// and persists every change through a store.
//
// Pending tasks are ordered by priority (lower first), then due date
// (earlier first), then insertion order. A task is executable when every
// dependency name is in the completed set; this is recomputed on each
// query. A Scheduler is not safe for concurrent use.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/metrics"
	"github.com/nibzard/nextup/internal/store"
	"github.com/nibzard/nextup/internal/todo"
)

// Item is a pending task annotated with its executability.
type Item struct {
	Task       todo.Task
	Executable bool
}

type entry struct {
	task todo.Task
	seq  uint64
}

// Scheduler owns the pending collection and the completed set.
type Scheduler struct {
	store   store.Store
	logger  *log.Logger
	metrics *metrics.Metrics

	pending   []entry
	completed map[string]struct{}
	nextSeq   uint64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics records activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// New loads the state from st and returns a scheduler over it.
func New(ctx context.Context, st store.Store, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		store:     st,
		completed: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger)

	state, err := st.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range state.Completed {
		s.completed[name] = struct{}{}
	}
	seen := make(map[string]struct{}, len(state.Pending))
	for i, t := range state.Pending {
		if _, dup := seen[t.Name]; dup {
			return nil, &todo.CorruptStateError{
				Source: "store",
				Path:   fmt.Sprintf("pending[%d]", i),
				Err:    fmt.Errorf("duplicate pending task %q", t.Name),
			}
		}
		if _, done := s.completed[t.Name]; done {
			return nil, &todo.CorruptStateError{
				Source: "store",
				Path:   fmt.Sprintf("pending[%d]", i),
				Err:    fmt.Errorf("task %q is both pending and completed", t.Name),
			}
		}
		seen[t.Name] = struct{}{}
		s.insert(t.Clone())
	}

	s.logger.Debug("scheduler ready", "pending", len(s.pending), "completed", len(s.completed))
	s.observe()
	return s, nil
}

// ParsePriority parses a priority typed by a user.
func ParsePriority(raw string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &InvalidTaskError{Field: "priority", Reason: fmt.Sprintf("%q is not an integer", raw)}
	}
	return p, nil
}

// Add validates and inserts a task, then persists. Blank dependency names
// are dropped. On a failed save the insert is undone.
func (s *Scheduler) Add(ctx context.Context, name string, priority int, dueDate string, deps []string) (todo.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.reject("add", "invalid", "name", name)
		return todo.Task{}, &InvalidTaskError{Field: "name", Reason: "must not be empty"}
	}
	due, err := todo.ParseDate(dueDate)
	if err != nil {
		s.reject("add", "invalid_date", "name", name, "due", dueDate)
		return todo.Task{}, err
	}
	if _, done := s.completed[name]; done {
		s.reject("add", "duplicate", "name", name)
		return todo.Task{}, &DuplicateTaskError{Name: name, Completed: true}
	}
	if s.find(name) >= 0 {
		s.reject("add", "duplicate", "name", name)
		return todo.Task{}, &DuplicateTaskError{Name: name}
	}

	task := todo.Task{
		Name:         name,
		Priority:     priority,
		DueDate:      due,
		Dependencies: cleanDependencies(deps),
	}
	seq := s.insert(task)

	if err := s.persist(ctx); err != nil {
		s.removeSeq(seq)
		s.nextSeq--
		return todo.Task{}, err
	}

	s.logger.Debug("task added", "name", name, "priority", priority, "due", due, "deps", task.Dependencies)
	if s.metrics != nil {
		s.metrics.TasksAdded.Inc()
	}
	s.observe()
	return task.Clone(), nil
}

// ListPending returns every pending task in scheduling order.
func (s *Scheduler) ListPending() []Item {
	items := make([]Item, len(s.pending))
	for i, e := range s.pending {
		items[i] = Item{Task: e.task.Clone(), Executable: s.IsExecutable(e.task)}
	}
	return items
}

// Complete moves the named task to the completed set and persists. The
// task must be pending and executable. On a failed save nothing changes.
func (s *Scheduler) Complete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	idx := s.find(name)
	if idx < 0 {
		s.reject("complete", "not_found", "name", name)
		return &TaskNotFoundError{Name: name}
	}
	e := s.pending[idx]
	if missing := s.Unresolved(e.task); len(missing) > 0 {
		s.reject("complete", "unresolved", "name", name, "missing", missing)
		return &UnresolvedDependenciesError{Name: name, Missing: missing}
	}

	s.pending = slices.Delete(s.pending, idx, idx+1)
	s.completed[name] = struct{}{}

	if err := s.persist(ctx); err != nil {
		delete(s.completed, name)
		s.pending = slices.Insert(s.pending, idx, e)
		return err
	}

	s.logger.Debug("task completed", "name", name)
	if s.metrics != nil {
		s.metrics.TasksCompleted.Inc()
	}
	s.observe()
	return nil
}

// Next returns the first executable task in scheduling order.
func (s *Scheduler) Next() (todo.Task, bool) {
	for _, e := range s.pending {
		if s.IsExecutable(e.task) {
			return e.task.Clone(), true
		}
	}
	return todo.Task{}, false
}

// IsExecutable reports whether every dependency of t is completed.
func (s *Scheduler) IsExecutable(t todo.Task) bool {
	for _, dep := range t.Dependencies {
		if _, ok := s.completed[dep]; !ok {
			return false
		}
	}
	return true
}

// Unresolved returns the dependencies of t that are not completed, in
// declaration order.
func (s *Scheduler) Unresolved(t todo.Task) []string {
	var missing []string
	for _, dep := range t.Dependencies {
		if _, ok := s.completed[dep]; !ok {
			missing = append(missing, dep)
		}
	}
	return missing
}

// Completed returns the completed names, sorted.
func (s *Scheduler) Completed() []string {
	names := make([]string, 0, len(s.completed))
	for name := range s.completed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pending returns the pending task with the given name.
func (s *Scheduler) Pending(name string) (todo.Task, bool) {
	idx := s.find(strings.TrimSpace(name))
	if idx < 0 {
		return todo.Task{}, false
	}
	return s.pending[idx].task.Clone(), true
}

func (s *Scheduler) insert(t todo.Task) uint64 {
	e := entry{task: t, seq: s.nextSeq}
	s.nextSeq++
	idx, _ := slices.BinarySearchFunc(s.pending, e, compareEntries)
	s.pending = slices.Insert(s.pending, idx, e)
	return e.seq
}

func (s *Scheduler) removeSeq(seq uint64) {
	s.pending = slices.DeleteFunc(s.pending, func(e entry) bool { return e.seq == seq })
}

func (s *Scheduler) find(name string) int {
	return slices.IndexFunc(s.pending, func(e entry) bool { return e.task.Name == name })
}

func (s *Scheduler) persist(ctx context.Context) error {
	st := store.State{
		Pending:   make([]todo.Task, len(s.pending)),
		Completed: s.Completed(),
	}
	for i, e := range s.pending {
		st.Pending[i] = e.task.Clone()
	}
	if err := s.store.Save(ctx, st); err != nil {
		s.logger.Error("failed to save state", "err", err)
		if s.metrics != nil {
			s.metrics.SaveFailures.Inc()
		}
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *Scheduler) reject(op, reason string, keyvals ...interface{}) {
	s.logger.Info(op+" rejected", append([]interface{}{"reason", reason}, keyvals...)...)
	s.metrics.Reject(op, reason)
}

func (s *Scheduler) observe() {
	if s.metrics == nil {
		return
	}
	executable := 0
	for _, e := range s.pending {
		if s.IsExecutable(e.task) {
			executable++
		}
	}
	s.metrics.Observe(len(s.pending), executable, len(s.completed))
}

func compareEntries(a, b entry) int {
	if a.task.Priority != b.task.Priority {
		if a.task.Priority < b.task.Priority {
			return -1
		}
		return 1
	}
	if c := a.task.DueDate.Compare(b.task.DueDate); c != 0 {
		return c
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	}
	return 0
}

func cleanDependencies(deps []string) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
