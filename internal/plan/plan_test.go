package plan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hashicorp/hcl/v2"

	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/store"
	"github.com/nibzard/nextup/internal/todo"
)

var today = todo.Date{Year: 2025, Month: time.March, Day: 14}

const samplePlan = `
task "build" {
  priority = 1
  due      = today
}

task "deploy" {
  priority   = 2
  due        = "2025-04-01"
  depends_on = ["build", "approve"]
}
`

func TestParse(t *testing.T) {
	tasks, err := Parse([]byte(samplePlan), "plan.hcl", today)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []Task{
		{Name: "build", Priority: 1, Due: "2025-03-14"},
		{Name: "deploy", Priority: 2, Due: "2025-04-01", DependsOn: []string{"build", "approve"}},
	}
	if diff := cmp.Diff(want, tasks, cmpopts.IgnoreTypes(hcl.Range{}), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
	if tasks[1].Range.Start.Line != 7 {
		t.Errorf("deploy declared on line %d, want 7", tasks[1].Range.Start.Line)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"syntax", `task "a" {`, "failed to parse"},
		{"missing priority", `task "a" { due = today }`, "priority"},
		{"fractional priority", `task "a" {
  priority = 1.5
  due = today
}`, "failed to decode"},
		{"unknown variable", `task "a" {
  priority = 1
  due = tomorrow
}`, "tomorrow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "plan.hcl", today)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Parse error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.hcl")
	if err := os.WriteFile(path, []byte(samplePlan), 0644); err != nil {
		t.Fatal(err)
	}
	tasks, err := ParseFile(path, today)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Range.Filename != path {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestApplyContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	s, err := scheduler.New(ctx, store.NewMemoryStore(store.State{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, "existing", 1, "2025-01-01", nil); err != nil {
		t.Fatal(err)
	}

	src := `
task "existing" {
  priority = 1
  due = today
}
task "bad-date" {
  priority = 1
  due = "someday"
}
task "fine" {
  priority = 3
  due = today
  depends_on = ["existing"]
}
`
	tasks, err := Parse([]byte(src), "plan.hcl", today)
	if err != nil {
		t.Fatal(err)
	}

	added, err := Apply(ctx, s, tasks, nil)
	if len(added) != 1 || added[0].Name != "fine" {
		t.Errorf("added = %+v, want [fine]", added)
	}
	if err == nil {
		t.Fatal("Apply should report the failed tasks")
	}

	var dup *scheduler.DuplicateTaskError
	if !errors.As(err, &dup) {
		t.Errorf("joined error should contain the duplicate: %v", err)
	}
	var dateErr *todo.InvalidDateError
	if !errors.As(err, &dateErr) {
		t.Errorf("joined error should contain the bad date: %v", err)
	}
	var taskErr *TaskError
	if !errors.As(err, &taskErr) || !strings.HasPrefix(taskErr.Error(), "plan.hcl:2,") {
		t.Errorf("task errors should carry their position: %v", err)
	}
	if len(s.ListPending()) != 2 {
		t.Errorf("pending = %d, want 2", len(s.ListPending()))
	}
}
