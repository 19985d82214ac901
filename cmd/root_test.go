// Package cmd provides tests for CLI command handlers.
package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nibzard/nextup/internal/config"
	"github.com/nibzard/nextup/internal/store"
	"github.com/nibzard/nextup/internal/todo"
)

// isolate runs the test from an empty project with no user config and no
// NEXTUP_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))
	for _, key := range []string{
		"NEXTUP_STATE", "NEXTUP_STORAGE", "NEXTUP_LOG_LEVEL", "NEXTUP_LOG_FORMAT",
		"NEXTUP_LOG_TIMESTAMPS", "NEXTUP_LOG_FILE", "NEXTUP_METRICS_FILE",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

type result struct {
	out, err string
	runErr   error
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	err := RunWithIO(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return result{out: out.String(), err: errOut.String(), runErr: err}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	r := run(t, "", args...)
	if r.runErr != nil {
		t.Fatalf("nextup %s: %v\nstderr: %s", strings.Join(args, " "), r.runErr, r.err)
	}
	return r.out
}

func loadState(t *testing.T, path string) store.State {
	t.Helper()
	st, err := store.NewJSONStore(path, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("loading %s: %v", path, err)
	}
	return st
}

// TestRun tests the main Run function.
func TestRun(t *testing.T) {
	isolate(t)

	t.Run("shows help with -h flag", func(t *testing.T) {
		r := run(t, "", "-h")
		if r.runErr != nil || !strings.Contains(r.out, "Commands:") {
			t.Errorf("help: err=%v out=%q", r.runErr, r.out)
		}
	})

	t.Run("shows help with help command", func(t *testing.T) {
		r := run(t, "", "help")
		if r.runErr != nil || !strings.Contains(r.out, "Global Options:") {
			t.Errorf("help: err=%v out=%q", r.runErr, r.out)
		}
	})

	t.Run("shows version", func(t *testing.T) {
		for _, args := range [][]string{{"-version"}, {"-v"}, {"version"}} {
			r := run(t, "", args...)
			if r.runErr != nil || !strings.Contains(r.out, "nextup version "+Version) {
				t.Errorf("%v: err=%v out=%q", args, r.runErr, r.out)
			}
		}
	})

	t.Run("unknown command returns error", func(t *testing.T) {
		r := run(t, "", "unknown-command")
		if r.runErr == nil || !strings.Contains(r.runErr.Error(), "unknown command") {
			t.Errorf("expected 'unknown command' error, got %v", r.runErr)
		}
	})

	t.Run("invalid storage is rejected", func(t *testing.T) {
		r := run(t, "", "-storage", "redis", "ls")
		if r.runErr == nil || !strings.Contains(r.runErr.Error(), "loading config") {
			t.Errorf("expected config error, got %v", r.runErr)
		}
	})
}

func TestAddListCompleteNext(t *testing.T) {
	dir := isolate(t)

	mustRun(t, "add", "A", "-p", "1", "-due", "2025-01-01")
	mustRun(t, "add", "B", "-p", "0", "-due", "2025-01-05", "-deps", "A")
	mustRun(t, "add", "-p", "2", "-due", "2025-01-01", "C")

	out := mustRun(t, "ls")
	want := "Pending tasks:\n" +
		"- B (priority: 0, due: 2025-01-05, status: Blocked by dependencies)\n" +
		"- A (priority: 1, due: 2025-01-01, status: Executable)\n" +
		"- C (priority: 2, due: 2025-01-01, status: Executable)\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("ls mismatch (-want +got):\n%s", diff)
	}

	if out := mustRun(t, "ls", "-v"); !strings.Contains(out, "waiting on: A") {
		t.Errorf("ls -v should name the blocker:\n%s", out)
	}
	if out := mustRun(t, "next"); out != "Next task: A (priority: 1, due: 2025-01-01)\n" {
		t.Errorf("next = %q", out)
	}

	if out := mustRun(t, "done", "A"); out != "Task 'A' marked as completed.\n" {
		t.Errorf("done = %q", out)
	}
	if out := mustRun(t, "next"); !strings.HasPrefix(out, "Next task: B") {
		t.Errorf("next after done = %q", out)
	}

	st := loadState(t, filepath.Join(dir, ".nextup", "tasks.json"))
	if diff := cmp.Diff([]string{"A"}, st.Completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
	if len(st.Pending) != 2 || st.Pending[0].Name != "B" {
		t.Errorf("pending = %+v", st.Pending)
	}
}

func TestOperationErrors(t *testing.T) {
	isolate(t)
	mustRun(t, "add", "A", "-p", "1", "-due", "2025-01-01")
	mustRun(t, "add", "B", "-p", "1", "-due", "2025-01-01", "-deps", "A, X")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"blocked", []string{"done", "B"}, "Cannot complete 'B'. Missing dependencies: A, X"},
		{"not found", []string{"done", "Z"}, "Task 'Z' not found."},
		{"duplicate", []string{"add", "A", "-p", "3", "-due", "2025-02-01"}, "Task 'A' already exists."},
		{"bad priority", []string{"add", "C", "-p", "high", "-due", "2025-02-01"}, "not an integer"},
		{"bad date", []string{"add", "C", "-p", "1", "-due", "2025-02-30"}, "Error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := run(t, "", tt.args...)
			var exitErr *ExitError
			if !errors.As(r.runErr, &exitErr) || exitErr.Code != 1 {
				t.Fatalf("expected ExitError, got %v", r.runErr)
			}
			if !strings.Contains(r.err, tt.want) {
				t.Errorf("stderr = %q, want %q", r.err, tt.want)
			}
		})
	}

	if out := mustRun(t, "ls"); strings.Count(out, "\n- ") != 2 {
		t.Errorf("failed operations changed state:\n%s", out)
	}
}

func TestAddUsage(t *testing.T) {
	isolate(t)
	r := run(t, "", "add", "A", "-p", "1")
	if r.runErr == nil || !strings.Contains(r.runErr.Error(), "usage") {
		t.Errorf("expected usage error, got %v", r.runErr)
	}
}

func TestMenuIsDefault(t *testing.T) {
	isolate(t)
	input := strings.Join([]string{
		"1", "A", "1", "2025-01-01", "",
		"4",
		"3", "A",
		"5",
	}, "\n") + "\n"

	r := run(t, input)
	if r.runErr != nil {
		t.Fatalf("menu: %v", r.runErr)
	}
	for _, want := range []string{
		"Task 'A' added.",
		"Next task: A (priority: 1, due: 2025-01-01)",
		"Task 'A' marked as completed.",
		"Exiting...",
	} {
		if !strings.Contains(r.out, want) {
			t.Errorf("menu output missing %q:\n%s", want, r.out)
		}
	}
}

func TestListJSON(t *testing.T) {
	isolate(t)
	mustRun(t, "add", "A", "-p", "1", "-due", "2025-01-01")
	mustRun(t, "add", "B", "-p", "2", "-due", "2025-01-01", "-deps", "A")

	var got []struct {
		Name       string   `json:"name"`
		DueDate    string   `json:"due_date"`
		Executable bool     `json:"executable"`
		WaitingOn  []string `json:"waiting_on"`
	}
	if err := json.Unmarshal([]byte(mustRun(t, "ls", "-json")), &got); err != nil {
		t.Fatalf("ls -json output is not JSON: %v", err)
	}
	if len(got) != 2 || !got[0].Executable || got[1].Executable {
		t.Fatalf("ls -json = %+v", got)
	}
	if got[0].DueDate != "2025-01-01" || cmp.Diff([]string{"A"}, got[1].WaitingOn) != "" {
		t.Errorf("ls -json = %+v", got)
	}
}

func TestImport(t *testing.T) {
	dir := isolate(t)
	now = func() time.Time { return time.Date(2025, 3, 14, 8, 0, 0, 0, time.Local) }
	t.Cleanup(func() { now = time.Now })

	src := `
task "build" {
  priority = 1
  due      = today
}
task "deploy" {
  priority   = 2
  due        = "2025-04-01"
  depends_on = ["build"]
}
`
	planPath := filepath.Join(dir, "plan.hcl")
	if err := os.WriteFile(planPath, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	if out := mustRun(t, "import", planPath); !strings.Contains(out, "Imported 2 tasks") {
		t.Errorf("import = %q", out)
	}
	if out := mustRun(t, "next"); out != "Next task: build (priority: 1, due: 2025-03-14)\n" {
		t.Errorf("next = %q", out)
	}

	// A second import reports the duplicates and adds nothing.
	r := run(t, "", "import", planPath)
	var exitErr *ExitError
	if !errors.As(r.runErr, &exitErr) {
		t.Fatalf("expected ExitError, got %v", r.runErr)
	}
	if !strings.Contains(r.out, "Imported 0 tasks") || !strings.Contains(r.err, "already pending") {
		t.Errorf("second import: out=%q err=%q", r.out, r.err)
	}
}

func TestReport(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "add", "A", "-p", "1", "-due", "2025-01-01")

	path := filepath.Join(dir, "out.pdf")
	mustRun(t, "report", "-o", path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("report is not a PDF")
	}
}

func TestCorruptStateIsFatal(t *testing.T) {
	dir := isolate(t)
	statePath := filepath.Join(dir, ".nextup", "tasks.json")
	if err := os.MkdirAll(filepath.Dir(statePath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(statePath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	r := run(t, "", "ls")
	var corrupt *todo.CorruptStateError
	if !errors.As(r.runErr, &corrupt) {
		t.Fatalf("expected CorruptStateError, got %v", r.runErr)
	}
	if !strings.Contains(r.runErr.Error(), "loading state") {
		t.Errorf("error should name the load step: %v", r.runErr)
	}
}

func TestSQLiteStorage(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "-storage", "sqlite", "add", "A", "-p", "1", "-due", "2025-01-01")
	mustRun(t, "-storage", "sqlite", "done", "A")
	mustRun(t, "-storage", "sqlite", "add", "B", "-p", "1", "-due", "2025-01-01", "-deps", "A")

	if _, err := os.Stat(filepath.Join(dir, ".nextup", "tasks.db")); err != nil {
		t.Fatalf("sqlite database not created: %v", err)
	}
	if out := mustRun(t, "-storage", "sqlite", "next"); !strings.HasPrefix(out, "Next task: B") {
		t.Errorf("next = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".nextup", "tasks.json")); err == nil {
		t.Error("json state should not be written with sqlite storage")
	}
}

func TestMetricsFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "metrics.prom")
	mustRun(t, "-metrics-file", path, "add", "A", "-p", "1", "-due", "2025-01-01")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{"nextup_tasks_added_total 1", "nextup_pending_tasks 1"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestLogFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "logs", "nextup.log")
	r := run(t, "", "-log-file", path, "-log-level", "debug", "add", "A", "-p", "1", "-due", "2025-01-01")
	if r.runErr != nil {
		t.Fatal(r.runErr)
	}
	if r.err != "" {
		t.Errorf("logs should go to the file, stderr = %q", r.err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "task added") {
		t.Errorf("log file = %q", data)
	}
}

func TestDoctor(t *testing.T) {
	isolate(t)

	t.Run("empty project passes", func(t *testing.T) {
		r := run(t, "", "doctor")
		if r.runErr != nil {
			t.Fatalf("doctor failed: %v\n%s", r.runErr, r.out)
		}
		for _, want := range []string{"Config files: none", "storage", "[default]", "Not found", "All checks passed"} {
			if !strings.Contains(r.out, want) {
				t.Errorf("doctor output missing %q:\n%s", want, r.out)
			}
		}
	})

	t.Run("cycle fails", func(t *testing.T) {
		mustRun(t, "add", "A", "-p", "1", "-due", "2025-01-01", "-deps", "B")
		mustRun(t, "add", "B", "-p", "2", "-due", "2025-01-01", "-deps", "A")

		r := run(t, "", "doctor")
		if r.runErr == nil || !strings.Contains(r.runErr.Error(), "failed") {
			t.Fatalf("doctor should fail on a cycle, got %v", r.runErr)
		}
		for _, want := range []string{"Cycle: A -> B -> A", "No pending task can run"} {
			if !strings.Contains(r.out, want) {
				t.Errorf("doctor output missing %q:\n%s", want, r.out)
			}
		}
		if out := mustRun(t, "next"); !strings.Contains(out, "cycle: A -> B -> A") {
			t.Errorf("next should print the cycle hint:\n%s", out)
		}
	})
}

func TestInitCommandCreatesFiles(t *testing.T) {
	dir := isolate(t)

	out := mustRun(t, "init")
	if !strings.Contains(out, "Created state") || !strings.Contains(out, "Created config") {
		t.Errorf("init output = %q", out)
	}

	st := loadState(t, filepath.Join(dir, ".nextup", "tasks.json"))
	if len(st.Pending) != 0 || len(st.Completed) != 0 {
		t.Errorf("init state should be empty: %+v", st)
	}
	configData, err := os.ReadFile(filepath.Join(dir, "nextup.toml"))
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if string(configData) != config.ExampleConfig() {
		t.Error("config file does not match example config")
	}

	// The example config must load cleanly as a project config.
	mustRun(t, "ls")
}

func TestInitCommandSkipsExistingFiles(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "add", "A", "-p", "1", "-due", "2025-01-01")

	out := mustRun(t, "init")
	if !strings.Contains(out, "Kept existing state") {
		t.Errorf("init output = %q", out)
	}
	st := loadState(t, filepath.Join(dir, ".nextup", "tasks.json"))
	if len(st.Pending) != 1 {
		t.Errorf("state was overwritten without -force: %+v", st)
	}

	mustRun(t, "init", "-force")
	st = loadState(t, filepath.Join(dir, ".nextup", "tasks.json"))
	if len(st.Pending) != 0 {
		t.Errorf("-force should reset the state: %+v", st)
	}
}
