// Package cmd implements the CLI command structure for nextup.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/nextup/internal/config"
	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/metrics"
	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

// now is the clock used for plan dates and report timestamps.
var now = time.Now

// ExitError carries a process exit code for an error whose message has
// already been written.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// streams are the standard streams a command reads and writes.
type streams struct {
	in       io.Reader
	out, err io.Writer
}

// Run executes the nextup CLI on the process streams.
func Run(ctx context.Context, args []string) error {
	return RunWithIO(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO executes the nextup CLI on the given streams.
func RunWithIO(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	std := streams{in: stdin, out: stdout, err: stderr}

	// Create a flag set for global options
	fs := flag.NewFlagSet("nextup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cws, err := config.LoadWithSources(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		return versionCommand(std)
	}

	// No subcommand starts the interactive menu.
	subcommand := "menu"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "version":
		return versionCommand(std)
	case "help":
		printUsage(fs, stdout)
		return nil
	case "init":
		return initCommand(ctx, std, cws.Config, remainingArgs)
	case "doctor":
		return doctorCommand(ctx, std, cws, remainingArgs)
	}

	command, ok := sessionCommands[subcommand]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}

	sess, err := openSession(ctx, cws.Config, stderr)
	if err != nil {
		return err
	}
	runErr := command(ctx, std, sess, remainingArgs)
	if err := sess.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// sessionCommands are the subcommands that operate on the loaded state.
var sessionCommands = map[string]func(context.Context, streams, *session, []string) error{
	"menu":   menuCommand,
	"add":    addCommand,
	"ls":     lsCommand,
	"done":   doneCommand,
	"next":   nextCommand,
	"tui":    tuiCommand,
	"import": importCommand,
	"report": reportCommand,
}

// session holds the scheduler and everything it was built from.
type session struct {
	cfg     *config.Config
	logger  *log.Logger
	store   store.Store
	metrics *metrics.Metrics
	sched   *scheduler.Scheduler
	logFile *os.File
}

// openSession builds the logger, opens the configured store and loads the
// scheduler from it.
func openSession(ctx context.Context, cfg *config.Config, stderr io.Writer) (*session, error) {
	sess := &session{cfg: cfg}

	var logOut io.Writer = stderr
	if cfg.LogFile != "" {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		sess.logFile = f
		logOut = f
	}
	sess.logger = logging.NewFromConfig(logOut, cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps)

	st, err := store.Open(cfg.Storage, cfg.StateFile, sess.logger)
	if err != nil {
		sess.closeLog()
		return nil, err
	}
	sess.store = st
	sess.metrics = metrics.New()

	sched, err := scheduler.New(ctx, st,
		scheduler.WithLogger(sess.logger),
		scheduler.WithMetrics(sess.metrics),
	)
	if err != nil {
		_ = store.Close(st)
		sess.closeLog()
		return nil, fmt.Errorf("loading state from %s: %w", cfg.StateFile, err)
	}
	sess.sched = sched
	sess.logger.Debug("session opened", "storage", cfg.Storage, "state", cfg.StateFile)
	return sess, nil
}

// Close writes the metrics textfile when one is configured and releases
// the store and log file.
func (s *session) Close() error {
	var errs []error
	if s.cfg.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if err := store.Close(s.store); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	s.closeLog()
	return errors.Join(errs...)
}

func (s *session) closeLog() {
	if s.logFile != nil {
		_ = s.logFile.Close()
		s.logFile = nil
	}
}

// versionCommand prints version information.
func versionCommand(std streams) error {
	fmt.Fprintf(std.out, "nextup version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "nextup - A task scheduler with priorities, due dates and dependencies")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nextup [global options] [command] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  menu                 Interactive menu (default command)")
	fmt.Fprintln(w, "  add NAME -p N -due YYYY-MM-DD [-deps a,b]")
	fmt.Fprintln(w, "                       Add a task")
	fmt.Fprintln(w, "  ls [-v] [-json]      List pending tasks in scheduling order")
	fmt.Fprintln(w, "  done NAME            Complete a task")
	fmt.Fprintln(w, "  next                 Show the next executable task")
	fmt.Fprintln(w, "  tui                  Launch terminal UI")
	fmt.Fprintln(w, "  import FILE.hcl      Add the tasks of an HCL plan file")
	fmt.Fprintln(w, "  report -o FILE.pdf   Write a PDF report")
	fmt.Fprintln(w, "  doctor               Check config, state file and dependency graph")
	fmt.Fprintln(w, "  init [-force]        Create .nextup/ and an example nextup.toml")
	fmt.Fprintln(w, "  version              Show version information")
	fmt.Fprintln(w, "  help                 Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
