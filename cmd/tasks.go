package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"

	"github.com/nibzard/nextup/internal/plan"
	"github.com/nibzard/nextup/internal/report"
	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/shell"
	"github.com/nibzard/nextup/internal/todo"
	"github.com/nibzard/nextup/internal/ui"
	"github.com/nibzard/nextup/internal/utils"
)

// menuCommand runs the interactive numbered menu.
func menuCommand(ctx context.Context, std streams, sess *session, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return shell.New(sess.sched, std.in, std.out, sess.logger).Run(ctx)
}

// addCommand adds one task. The name may come before or after the flags.
func addCommand(ctx context.Context, std streams, sess *session, args []string) error {
	fs := flag.NewFlagSet("nextup add", flag.ContinueOnError)
	fs.SetOutput(std.err)
	priority := fs.String("p", "", "Priority (lower runs first)")
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")
	deps := fs.String("deps", "", "Comma-separated dependency names")

	var name string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		name, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if name == "" && len(remaining) > 0 {
		name, remaining = remaining[0], remaining[1:]
	}
	if len(remaining) > 0 {
		return fmt.Errorf("unexpected arguments: %v", remaining)
	}
	if name == "" || *priority == "" || *due == "" {
		return fmt.Errorf("usage: nextup add NAME -p N -due YYYY-MM-DD [-deps a,b]")
	}

	p, err := scheduler.ParsePriority(*priority)
	if err != nil {
		return operationFailed(std, err)
	}
	task, err := sess.sched.Add(ctx, name, p, *due, utils.SplitAndTrim(*deps, ","))
	if err != nil {
		return operationFailed(std, err)
	}
	fmt.Fprintf(std.out, "Task '%s' added.\n", task.Name)
	return nil
}

// listedTask is the JSON form of a pending task.
type listedTask struct {
	todo.Task
	Executable bool     `json:"executable"`
	WaitingOn  []string `json:"waiting_on,omitempty"`
}

// lsCommand lists pending tasks in scheduling order.
func lsCommand(ctx context.Context, std streams, sess *session, args []string) error {
	fs := flag.NewFlagSet("nextup ls", flag.ContinueOnError)
	fs.SetOutput(std.err)
	verbose := fs.Bool("v", false, "Name the dependencies blocked tasks wait on")
	asJSON := fs.Bool("json", false, "Print JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if !*asJSON {
		shell.PrintPending(std.out, sess.sched, *verbose)
		return nil
	}

	items := sess.sched.ListPending()
	out := make([]listedTask, 0, len(items))
	for _, item := range items {
		out = append(out, listedTask{
			Task:       item.Task,
			Executable: item.Executable,
			WaitingOn:  sess.sched.Unresolved(item.Task),
		})
	}
	enc := json.NewEncoder(std.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// doneCommand completes one task.
func doneCommand(ctx context.Context, std streams, sess *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: nextup done NAME")
	}
	if err := sess.sched.Complete(ctx, args[0]); err != nil {
		return operationFailed(std, err)
	}
	fmt.Fprintf(std.out, "Task '%s' marked as completed.\n", strings.TrimSpace(args[0]))
	return nil
}

// nextCommand shows the next executable task.
func nextCommand(ctx context.Context, std streams, sess *session, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	shell.PrintNext(std.out, sess.sched)
	return nil
}

// tuiCommand launches the TUI.
func tuiCommand(ctx context.Context, std streams, sess *session, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments: %v", args)
	}
	return ui.RunTUI(ctx, sess.sched)
}

// importCommand adds every task of an HCL plan file.
func importCommand(ctx context.Context, std streams, sess *session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: nextup import FILE.hcl")
	}
	tasks, err := plan.ParseFile(args[0], todo.DateOf(now()))
	if err != nil {
		return err
	}

	added, err := plan.Apply(ctx, sess.sched, tasks, sess.logger)
	fmt.Fprintf(std.out, "Imported %s from %s.\n", utils.Plural(len(added), "task"), args[0])
	if err != nil {
		fmt.Fprintln(std.err, err)
		return &ExitError{Code: 1, Err: err}
	}
	return nil
}

// reportCommand writes a PDF report of the current state.
func reportCommand(ctx context.Context, std streams, sess *session, args []string) error {
	fs := flag.NewFlagSet("nextup report", flag.ContinueOnError)
	fs.SetOutput(std.err)
	output := fs.String("o", "nextup-report.pdf", "Output PDF file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if err := report.WriteFile(*output, report.FromScheduler(sess.sched, now())); err != nil {
		return err
	}
	fmt.Fprintf(std.out, "Report written to %s\n", *output)
	return nil
}

// operationFailed prints the user-facing message for a scheduler error and
// marks it as already reported.
func operationFailed(std streams, err error) error {
	fmt.Fprintln(std.err, shell.Describe(err))
	return &ExitError{Code: 1, Err: err}
}
