package scheduler

import (
	"fmt"
	"strings"
)

// InvalidTaskError reports a task field rejected at Add time.
type InvalidTaskError struct {
	Field  string
	Reason string
}

func (e *InvalidTaskError) Error() string {
	return fmt.Sprintf("invalid task %s: %s", e.Field, e.Reason)
}

// DuplicateTaskError reports an Add whose name is already pending or
// already completed.
type DuplicateTaskError struct {
	Name      string
	Completed bool
}

func (e *DuplicateTaskError) Error() string {
	if e.Completed {
		return fmt.Sprintf("task %q is already completed", e.Name)
	}
	return fmt.Sprintf("task %q is already pending", e.Name)
}

// TaskNotFoundError reports a Complete for a name that is not pending.
type TaskNotFoundError struct {
	Name string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.Name)
}

// UnresolvedDependenciesError reports a Complete for a task that still has
// dependencies outside the completed set. Missing keeps declaration order.
type UnresolvedDependenciesError struct {
	Name    string
	Missing []string
}

func (e *UnresolvedDependenciesError) Error() string {
	return fmt.Sprintf("task %q has unresolved dependencies: %s", e.Name, strings.Join(e.Missing, ", "))
}
