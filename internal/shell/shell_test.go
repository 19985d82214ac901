package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/store"
)

func newScheduler(t *testing.T) (*scheduler.Scheduler, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore(store.State{})
	s, err := scheduler.New(context.Background(), mem)
	if err != nil {
		t.Fatal(err)
	}
	return s, mem
}

func run(t *testing.T, s *scheduler.Scheduler, input string) string {
	t.Helper()
	var out strings.Builder
	if err := New(s, strings.NewReader(input), &out, nil).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return out.String()
}

func TestShellScenario(t *testing.T) {
	s, mem := newScheduler(t)
	input := strings.Join([]string{
		"1", "A", "1", "2025-01-01", "",
		"1", "B", "2", "2025-01-01", "A",
		"2",
		"3", "B",
		"3", "A",
		"4",
		"5",
	}, "\n") + "\n"

	out := run(t, s, input)

	for _, want := range []string{
		"Task 'A' added.",
		"Task 'B' added.",
		"- A (priority: 1, due: 2025-01-01, status: Executable)",
		"- B (priority: 2, due: 2025-01-01, status: Blocked by dependencies)",
		"Cannot complete 'B'. Missing dependencies: A",
		"Task 'A' marked as completed.",
		"Next task: B (priority: 2, due: 2025-01-01)",
		"Exiting...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := mem.Snapshot().Completed; len(got) != 1 || got[0] != "A" {
		t.Errorf("completed = %v, want [A]", got)
	}
}

func TestShellRecoversFromBadInput(t *testing.T) {
	s, _ := newScheduler(t)
	input := strings.Join([]string{
		"9",
		"1", "A", "high",
		"1", "A", "1", "01/02/2025",
		"1", " ", "1", "2025-01-01", "",
		"3", "ghost",
		"2",
		"4",
	}, "\n") + "\n"

	out := run(t, s, input)

	for _, want := range []string{
		"Invalid option.",
		`invalid task priority: "high" is not an integer`,
		`invalid due date "01/02/2025"`,
		"invalid task name",
		"Task 'ghost' not found.",
		"No pending tasks.",
		"No executable tasks.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(s.ListPending()) != 0 {
		t.Error("no task should have been added")
	}
}

func TestShellEOFMidPrompt(t *testing.T) {
	s, _ := newScheduler(t)
	out := run(t, s, "1\nA\n")
	if strings.Contains(out, "added") {
		t.Errorf("partial add should not create a task:\n%s", out)
	}
}

func TestShellCanceled(t *testing.T) {
	s, _ := newScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(s, strings.NewReader("5\n"), &strings.Builder{}, nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestShellSkipsOverlongLine(t *testing.T) {
	s, _ := newScheduler(t)
	out := run(t, s, strings.Repeat("x", 70000)+"\n4\n5\n")

	for _, want := range []string{"Invalid option.", "No executable tasks.", "Exiting..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestShellOverlongAnswerFailsAction(t *testing.T) {
	s, _ := newScheduler(t)
	input := "1\n" + strings.Repeat("x", 70000) + "\n1\nA\n1\n2025-01-01\n\n5\n"
	out := run(t, s, input)

	if !strings.Contains(out, "Error: input line too long") {
		t.Errorf("missing line length error:\n%.500s", out)
	}
	if !strings.Contains(out, "Task 'A' added.") {
		t.Errorf("menu should keep working after an overlong answer")
	}
}

func TestReadLineLimit(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader(strings.Repeat("y", maxLineBytes)+"\n"+strings.Repeat("z", maxLineBytes+1)+"\nok"), 16)

	if got, err := readLine(r); err != nil || len(got) != maxLineBytes {
		t.Errorf("line at the limit: len %d, err %v", len(got), err)
	}
	if _, err := readLine(r); !errors.Is(err, errLineTooLong) {
		t.Errorf("line over the limit: err = %v, want errLineTooLong", err)
	}
	if got, err := readLine(r); err != nil || got != "ok" {
		t.Errorf("last line without newline = %q, %v", got, err)
	}
	if _, err := readLine(r); !errors.Is(err, io.EOF) {
		t.Errorf("after last line: err = %v, want io.EOF", err)
	}
}

// runUntilCanceled starts Run on a pipe, writes input, cancels and
// expects Run to return without the pipe being closed.
func runUntilCanceled(t *testing.T, input string) {
	t.Helper()
	s, _ := newScheduler(t)
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- New(s, pr, io.Discard, nil).Run(ctx)
	}()

	if input != "" {
		if _, err := io.WriteString(pw, input); err != nil {
			t.Fatal(err)
		}
	}
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShellCancelAtMenu(t *testing.T) {
	runUntilCanceled(t, "")
}

func TestShellCancelInsidePrompt(t *testing.T) {
	runUntilCanceled(t, "1\n")
}

func TestDeadlockHintSingular(t *testing.T) {
	s, _ := newScheduler(t)
	if _, err := s.Add(context.Background(), "deploy", 1, "2025-01-01", []string{"build"}); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	PrintNext(&out, s)
	if !strings.Contains(out.String(), "Blocked: 1 pending task, none executable.") {
		t.Errorf("hint wording:\n%s", out.String())
	}
}

func TestNextPrintsDeadlockHint(t *testing.T) {
	s, _ := newScheduler(t)
	ctx := context.Background()
	if _, err := s.Add(ctx, "A", 1, "2025-01-01", []string{"B"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, "B", 1, "2025-01-01", []string{"A"}); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	PrintNext(&out, s)
	if !strings.Contains(out.String(), "cycle: A -> B -> A") {
		t.Errorf("missing cycle hint:\n%s", out.String())
	}
}

func TestVerboseListNamesBlockers(t *testing.T) {
	s, _ := newScheduler(t)
	if _, err := s.Add(context.Background(), "deploy", 1, "2025-01-01", []string{"build", "test"}); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	PrintPending(&out, s, true)
	if !strings.Contains(out.String(), "waiting on: build, test") {
		t.Errorf("verbose list should name blockers:\n%s", out.String())
	}
}

func TestDescribeDuplicate(t *testing.T) {
	got := Describe(&scheduler.DuplicateTaskError{Name: "A", Completed: true})
	if got != "Task 'A' is already completed." {
		t.Errorf("Describe = %q", got)
	}
}
