// Package plan imports tasks in bulk from an HCL plan file:
//
//	task "build" {
//	  priority = 1
//	  due      = today
//	}
//
//	task "deploy" {
//	  priority   = 2
//	  due        = "2025-02-01"
//	  depends_on = ["build"]
//	}
//
// The variable today holds the current date as YYYY-MM-DD.
package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/todo"
)

// Task is one task block of a plan file.
type Task struct {
	Name      string
	Priority  int
	Due       string
	DependsOn []string
	Range     hcl.Range
}

// planSchema lists the blocks a plan file may contain.
var planSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "task", LabelNames: []string{"name"}},
	},
}

// hclTask is the body of a task block.
type hclTask struct {
	Priority  int      `hcl:"priority"`
	Due       string   `hcl:"due"`
	DependsOn []string `hcl:"depends_on,optional"`
}

// EvalContext returns the variables available to plan expressions.
func EvalContext(today todo.Date) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"today": cty.StringVal(today.String()),
		},
	}
}

// ParseFile reads and decodes the plan file at path.
func ParseFile(path string, today todo.Date) ([]Task, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, diags)
	}
	return decode(file, today)
}

// Parse decodes plan source. filename is used in error positions.
func Parse(src []byte, filename string, today todo.Date) ([]Task, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", filename, diags)
	}
	return decode(file, today)
}

func decode(file *hcl.File, today todo.Date) ([]Task, error) {
	content, diags := file.Body.Content(planSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode plan: %w", diags)
	}

	evalCtx := EvalContext(today)
	tasks := make([]Task, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		var t hclTask
		if diags := gohcl.DecodeBody(block.Body, evalCtx, &t); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode plan: %w", diags)
		}
		tasks = append(tasks, Task{
			Name:      block.Labels[0],
			Priority:  t.Priority,
			Due:       t.Due,
			DependsOn: t.DependsOn,
			Range:     block.DefRange,
		})
	}
	return tasks, nil
}

// Adder adds one task. *scheduler.Scheduler implements it.
type Adder interface {
	Add(ctx context.Context, name string, priority int, dueDate string, deps []string) (todo.Task, error)
}

// TaskError reports a plan task that could not be added.
type TaskError struct {
	Name  string
	Range hcl.Range
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: task %q: %v", e.Range, e.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Apply adds tasks in file order. A task that fails does not stop the
// rest; every failure is returned joined, each as a *TaskError.
func Apply(ctx context.Context, a Adder, tasks []Task, logger *log.Logger) ([]todo.Task, error) {
	logger = logging.OrDiscard(logger)
	var (
		added []todo.Task
		errs  []error
	)
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		task, err := a.Add(ctx, t.Name, t.Priority, t.Due, t.DependsOn)
		if err != nil {
			logger.Info("plan task skipped", "name", t.Name, "at", t.Range.String(), "err", err)
			errs = append(errs, &TaskError{Name: t.Name, Range: t.Range, Err: err})
			continue
		}
		added = append(added, task)
	}
	return added, errors.Join(errs...)
}
