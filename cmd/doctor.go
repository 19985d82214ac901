package cmd

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/nibzard/nextup/internal/config"
	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/shell"
	"github.com/nibzard/nextup/internal/store"
)

// doctorCommand checks the configuration, the state file and the
// dependency graph of the pending tasks.
func doctorCommand(ctx context.Context, std streams, cws *config.ConfigWithSources, args []string) error {
	fs := flag.NewFlagSet("nextup doctor", flag.ContinueOnError)
	fs.SetOutput(std.err)
	verbose := fs.Bool("v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := cws.Config
	w := std.out
	fmt.Fprintln(w, "nextup doctor")
	fmt.Fprintln(w, "=============")
	fmt.Fprintln(w)

	allOK := true

	// Config files and effective values
	fmt.Fprintf(w, "Project root: %s\n", cfg.ProjectRoot)
	if len(cws.Files) == 0 {
		fmt.Fprintln(w, "Config files: none (defaults)")
	} else {
		fmt.Fprintln(w, "Config files:")
		for _, f := range cws.Files {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config:")
	for _, field := range config.Fields() {
		value := cfg.Get(field)
		if value == "" {
			value = "(unset)"
		}
		fmt.Fprintf(w, "  %-15s %s [%s]\n", field, value, cws.Sources[field])
	}
	fmt.Fprintln(w)

	// State file
	fmt.Fprintf(w, "State file: %s (%s)\n", cfg.StateFile, cfg.Storage)
	info, err := os.Stat(cfg.StateFile)
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(w, "  ⚠️  Not found (created on the first change)")
	case err != nil:
		fmt.Fprintf(w, "  ❌ Error: %v\n", err)
		allOK = false
	case info.IsDir():
		fmt.Fprintln(w, "  ❌ Error: path is a directory")
		allOK = false
	}

	var sched *scheduler.Scheduler
	if allOK {
		logger := logging.NewFromConfig(std.err, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps)
		st, err := store.Open(cfg.Storage, cfg.StateFile, logger)
		if err == nil {
			sched, err = scheduler.New(ctx, st, scheduler.WithLogger(logger))
			_ = store.Close(st)
		}
		if err != nil {
			fmt.Fprintf(w, "  ❌ Load error: %v\n", err)
			allOK = false
		} else {
			fmt.Fprintf(w, "  ✅ OK (%d pending, %d completed)\n", len(sched.ListPending()), len(sched.Completed()))
		}
	}
	fmt.Fprintln(w)

	// Dependency graph
	if sched != nil {
		d := sched.Diagnose()
		fmt.Fprintln(w, "Dependencies:")
		fmt.Fprintf(w, "  %d pending, %d executable\n", d.Pending, d.Executable)
		for _, cycle := range d.Cycles {
			fmt.Fprintf(w, "  ❌ Cycle: %s\n", strings.Join(append(slices.Clone(cycle), cycle[0]), " -> "))
			allOK = false
		}
		for _, name := range slices.Sorted(maps.Keys(d.Dangling)) {
			fmt.Fprintf(w, "  ⚠️  %s waits on unknown %s\n", name, strings.Join(d.Dangling[name], ", "))
		}
		if d.Deadlocked() {
			fmt.Fprintln(w, "  ❌ No pending task can run")
			allOK = false
		}
		if *verbose {
			fmt.Fprintln(w)
			shell.PrintPending(w, sched, true)
		}
		fmt.Fprintln(w)
	}

	if allOK {
		fmt.Fprintln(w, "✅ All checks passed!")
		return nil
	}
	fmt.Fprintln(w, "⚠️  Some checks failed.")
	return fmt.Errorf("doctor checks failed")
}
