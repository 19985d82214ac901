// Package shell runs the interactive numbered menu over a scheduler.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nibzard/nextup/internal/logging"
	"github.com/nibzard/nextup/internal/scheduler"
	"github.com/nibzard/nextup/internal/utils"
)

// errEOF ends the loop when input runs out in the middle of a prompt.
var errEOF = errors.New("end of input")

// errLineTooLong reports an input line longer than maxLineBytes. The rest of
// the line is discarded.
var errLineTooLong = errors.New("input line too long")

// maxLineBytes bounds one answer to a prompt.
const maxLineBytes = 4096

const menu = `
Task Scheduler
1. Add task
2. List pending tasks
3. Complete task
4. Next task
5. Exit`

// inputLine is one line read from the input, or the error that ended it.
type inputLine struct {
	text string
	err  error
}

// Shell reads menu choices and prompt answers line by line.
type Shell struct {
	sched  *scheduler.Scheduler
	in     *bufio.Reader
	out    io.Writer
	logger *log.Logger

	lines chan inputLine
	done  chan struct{}
}

// New creates a shell reading from in and writing to out.
func New(sched *scheduler.Scheduler, in io.Reader, out io.Writer, logger *log.Logger) *Shell {
	return &Shell{
		sched:  sched,
		in:     bufio.NewReader(in),
		out:    out,
		logger: logging.OrDiscard(logger),
	}
}

// Run shows the menu until the user exits, input ends, or ctx is done.
// Operation errors are reported and the menu is shown again. A prompt
// waiting for input returns as soon as ctx is done.
func (sh *Shell) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sh.lines = make(chan inputLine)
	sh.done = make(chan struct{})
	defer close(sh.done)
	go sh.readLines()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, menu)
		choice, err := sh.prompt(ctx, "Choose an option: ")
		switch {
		case errors.Is(err, errEOF):
			fmt.Fprintln(sh.out)
			return nil
		case errors.Is(err, errLineTooLong):
			fmt.Fprintln(sh.out, "Invalid option.")
			continue
		case err != nil:
			return err
		}

		switch choice {
		case "1":
			err = sh.add(ctx)
		case "2":
			PrintPending(sh.out, sh.sched, false)
		case "3":
			err = sh.complete(ctx)
		case "4":
			PrintNext(sh.out, sh.sched)
		case "5":
			fmt.Fprintln(sh.out, "Exiting...")
			return nil
		default:
			fmt.Fprintln(sh.out, "Invalid option.")
		}

		switch {
		case errors.Is(err, errEOF):
			fmt.Fprintln(sh.out)
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			sh.logger.Debug("menu action failed", "choice", choice, "err", err)
			fmt.Fprintln(sh.out, Describe(err))
		}
	}
}

func (sh *Shell) add(ctx context.Context) error {
	name, err := sh.prompt(ctx, "Task name: ")
	if err != nil {
		return err
	}
	rawPriority, err := sh.prompt(ctx, "Priority (integer, lower runs first): ")
	if err != nil {
		return err
	}
	priority, err := scheduler.ParsePriority(rawPriority)
	if err != nil {
		return err
	}
	due, err := sh.prompt(ctx, "Due date (YYYY-MM-DD): ")
	if err != nil {
		return err
	}
	rawDeps, err := sh.prompt(ctx, "Dependencies (comma-separated, or empty): ")
	if err != nil {
		return err
	}

	task, err := sh.sched.Add(ctx, name, priority, due, utils.SplitAndTrim(rawDeps, ","))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Task '%s' added.\n", task.Name)
	return nil
}

func (sh *Shell) complete(ctx context.Context) error {
	name, err := sh.prompt(ctx, "Name of the completed task: ")
	if err != nil {
		return err
	}
	if err := sh.sched.Complete(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Task '%s' marked as completed.\n", strings.TrimSpace(name))
	return nil
}

// prompt writes label and waits for the next line or for ctx to be done.
func (sh *Shell) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(sh.out, label)
	select {
	case <-ctx.Done():
		fmt.Fprintln(sh.out)
		return "", ctx.Err()
	case line, ok := <-sh.lines:
		switch {
		case !ok, errors.Is(line.err, io.EOF):
			return "", errEOF
		case errors.Is(line.err, errLineTooLong):
			return "", line.err
		case line.err != nil:
			return "", fmt.Errorf("read input: %w", line.err)
		}
		return strings.TrimSpace(line.text), nil
	}
}

// readLines feeds input lines to prompt until the input fails or Run
// returns. A blocked read on an interactive terminal outlives Run; the
// process exits soon after.
func (sh *Shell) readLines() {
	defer close(sh.lines)
	for {
		text, err := readLine(sh.in)
		select {
		case sh.lines <- inputLine{text: text, err: err}:
		case <-sh.done:
			return
		}
		if err != nil && !errors.Is(err, errLineTooLong) {
			return
		}
	}
}

// readLine reads one line without its line ending. A line longer than
// maxLineBytes is read to its end and reported as errLineTooLong.
func readLine(r *bufio.Reader) (string, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(buf) > 0 || tooLong) {
				break
			}
			return "", err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	if tooLong {
		return "", errLineTooLong
	}
	return string(buf), nil
}
