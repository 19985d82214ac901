package shell

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/todo"
	"github.com/nibzard/nextup/internal/utils"
)

// Status strings shown for pending tasks.
const (
	StatusExecutable = "Executable"
	StatusBlocked    = "Blocked by dependencies"
)

// Status returns the status string for an item.
func Status(item scheduler.Item) string {
	if item.Executable {
		return StatusExecutable
	}
	return StatusBlocked
}

// FormatTask renders a one-line task summary.
func FormatTask(t todo.Task) string {
	return fmt.Sprintf("%s (priority: %d, due: %s)", t.Name, t.Priority, t.DueDate)
}

// FormatItem renders a pending task with its status. With verbose set,
// blocked tasks also name what they wait on.
func FormatItem(s *scheduler.Scheduler, item scheduler.Item, verbose bool) string {
	line := fmt.Sprintf("- %s (priority: %d, due: %s, status: %s)",
		item.Task.Name, item.Task.Priority, item.Task.DueDate, Status(item))
	if verbose && !item.Executable {
		line += " waiting on: " + strings.Join(s.Unresolved(item.Task), ", ")
	}
	return line
}

// PrintPending writes the pending list, or a notice when it is empty.
func PrintPending(w io.Writer, s *scheduler.Scheduler, verbose bool) {
	items := s.ListPending()
	if len(items) == 0 {
		fmt.Fprintln(w, "No pending tasks.")
		return
	}
	fmt.Fprintln(w, "Pending tasks:")
	for _, item := range items {
		fmt.Fprintln(w, FormatItem(s, item, verbose))
	}
}

// PrintNext writes the next executable task. When nothing can run it
// explains whether tasks are stuck on each other or on missing names.
func PrintNext(w io.Writer, s *scheduler.Scheduler) {
	if t, ok := s.Next(); ok {
		fmt.Fprintf(w, "Next task: %s\n", FormatTask(t))
		return
	}
	fmt.Fprintln(w, "No executable tasks.")
	if hint := DeadlockHint(s.Diagnose()); hint != "" {
		fmt.Fprintln(w, hint)
	}
}

// DeadlockHint describes why no pending task can run. It is empty unless
// tasks are pending and none is executable.
func DeadlockHint(d scheduler.Diagnosis) string {
	if !d.Deadlocked() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Blocked: %s, none executable.", utils.Plural(d.Pending, "pending task"))
	for _, cycle := range d.Cycles {
		loop := append(slices.Clone(cycle), cycle[0])
		fmt.Fprintf(&b, "\n  cycle: %s", strings.Join(loop, " -> "))
	}
	if len(d.Dangling) > 0 {
		b.WriteString("\n  some dependencies name tasks that were never added; run 'nextup doctor' for details")
	}
	return b.String()
}

// Describe turns an operation error into the message shown to the user.
func Describe(err error) string {
	var (
		dup        *scheduler.DuplicateTaskError
		notFound   *scheduler.TaskNotFoundError
		unresolved *scheduler.UnresolvedDependenciesError
	)
	switch {
	case errors.As(err, &unresolved):
		return fmt.Sprintf("Cannot complete '%s'. Missing dependencies: %s",
			unresolved.Name, strings.Join(unresolved.Missing, ", "))
	case errors.As(err, &notFound):
		return fmt.Sprintf("Task '%s' not found.", notFound.Name)
	case errors.As(err, &dup):
		if dup.Completed {
			return fmt.Sprintf("Task '%s' is already completed.", dup.Name)
		}
		return fmt.Sprintf("Task '%s' already exists.", dup.Name)
	default:
		return "Error: " + err.Error()
	}
}
