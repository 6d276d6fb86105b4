package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

var (
	// ErrTimeout marks a command killed after exceeding Command.Timeout.
	ErrTimeout = errors.New("command timed out")
	// ErrNotStarted marks a command whose executable could not be started.
	ErrNotStarted = errors.New("command not started")
	// ErrCanceled marks a command killed because the caller's context ended.
	ErrCanceled = errors.New("command canceled")
)

// ExitNotFound is reported when the executable cannot be started.
const ExitNotFound = 127

// Command describes one external process invocation.
type Command struct {
	Argv []string
	Dir  string
	// Quiet captures stdout/stderr instead of streaming them.
	Quiet bool
	// Stdout and Stderr default to the process streams when not quiet.
	Stdout io.Writer
	Stderr io.Writer
	// Timeout of zero means wait for the process indefinitely.
	Timeout time.Duration
}

// Result is the outcome of a finished or unstartable command.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// CommandRunner abstracts process execution for the installer and the engine.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// Run blocks until the process exits. A nonzero exit is returned as an error
// together with the populated Result.
func (r ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if len(c.Argv) == 0 || c.Argv[0] == "" {
		return Result{ExitCode: ExitNotFound}, fmt.Errorf("%w: empty command", ErrNotStarted)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	configureProcess(cmd)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	if c.Quiet {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = writerOr(c.Stdout, os.Stdout)
		cmd.Stderr = writerOr(c.Stderr, os.Stderr)
	}

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}

	if c.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = exitCodeOf(err, 1)
		return res, fmt.Errorf("%w after %s", ErrTimeout, c.Timeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = exitCodeOf(err, 1)
		return res, fmt.Errorf("%w: %w", ErrCanceled, ctxErr)
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) || errors.Is(err, os.ErrNotExist) {
		res.ExitCode = ExitNotFound
		return res, fmt.Errorf("%w: %w", ErrNotStarted, err)
	}
	res.ExitCode = exitCodeOf(err, 1)
	return res, err
}

func exitCodeOf(err error, fallback int) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	return fallback
}

func writerOr(w io.Writer, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
