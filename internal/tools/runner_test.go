//go:build !windows

package tools

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/lemming/internal/testutil/testlog"
)

func TestExecRunnerSuccessCapturesWhenQuiet(t *testing.T) {
	testlog.Start(t)
	res, err := ExecRunner{}.Run(context.Background(), Command{
		Argv:  []string{"sh", "-c", "echo out; echo err 1>&2"},
		Quiet: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("unexpected exit code: %d", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" || strings.TrimSpace(string(res.Stderr)) != "err" {
		t.Fatalf("unexpected captured output: stdout=%q stderr=%q", res.Stdout, res.Stderr)
	}
}

func TestExecRunnerStreamsToWriters(t *testing.T) {
	testlog.Start(t)
	var stdout bytes.Buffer
	_, err := ExecRunner{}.Run(context.Background(), Command{
		Argv:   []string{"sh", "-c", "echo streamed"},
		Stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "streamed" {
		t.Fatalf("unexpected streamed output: %q", stdout.String())
	}
}

func TestExecRunnerNonzeroExit(t *testing.T) {
	testlog.Start(t)
	res, err := ExecRunner{}.Run(context.Background(), Command{
		Argv:  []string{"sh", "-c", "exit 3"},
		Quiet: true,
	})
	if err == nil {
		t.Fatalf("expected error for nonzero exit")
	}
	if res.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", res.ExitCode)
	}
}

func TestExecRunnerMissingExecutable(t *testing.T) {
	testlog.Start(t)
	res, err := ExecRunner{}.Run(context.Background(), Command{
		Argv:  []string{"lemming-definitely-not-installed"},
		Quiet: true,
	})
	if !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if res.ExitCode != ExitNotFound {
		t.Fatalf("expected exit code %d, got %d", ExitNotFound, res.ExitCode)
	}
}

func TestExecRunnerTimeout(t *testing.T) {
	testlog.Start(t)
	start := time.Now()
	_, err := ExecRunner{}.Run(context.Background(), Command{
		Argv:    []string{"sh", "-c", "sleep 10"},
		Quiet:   true,
		Timeout: 100 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("timeout did not kill the command promptly")
	}
}

func TestExecRunnerCanceledContext(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	start := time.Now()
	res, err := ExecRunner{}.Run(ctx, Command{
		Argv:  []string{"sh", "-c", "sleep 10"},
		Quiet: true,
	})
	if !errors.Is(err, ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected ErrCanceled wrapping context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("cancellation must not be reported as a timeout: %v", err)
	}
	if res.ExitCode == 0 {
		t.Fatalf("killed command reported exit 0")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancellation did not kill the command promptly")
	}
}

func TestExecRunnerEmptyCommand(t *testing.T) {
	testlog.Start(t)
	if _, err := (ExecRunner{}).Run(context.Background(), Command{}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted for empty argv, got %v", err)
	}
}
