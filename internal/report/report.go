package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Exit codes returned by the lemming CLI.
const (
	ExitSuccess = 0
	// ExitFailure is the single code for any failed step.
	ExitFailure = 1
	// ExitConfigError is returned when configuration fails before any tool runs.
	ExitConfigError = 2
)

// Outcome is the lifecycle marker of one step.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
)

// StepResult is one row of the run summary.
type StepResult struct {
	Name    string
	Kind    string
	Mode    string
	Outcome Outcome
	// ExitCode is -1 when the tool command never ran.
	ExitCode int
	Err      error
	Duration time.Duration
}

// Result is the aggregate of a run in plan order.
type Result struct {
	Steps   []StepResult
	Success bool
}

// Aggregate folds step outcomes into a Result. A run succeeds iff no step
// failed; skipped steps only follow a failure, so they never flip it alone.
func Aggregate(steps []StepResult) Result {
	out := Result{Steps: append([]StepResult(nil), steps...), Success: true}
	for _, s := range steps {
		if s.Outcome == OutcomeFailure {
			out.Success = false
		}
	}
	return out
}

func (r Result) ExitCode() int {
	if r.Success {
		return ExitSuccess
	}
	return ExitFailure
}

// Count returns how many steps ended with outcome o.
func (r Result) Count(o Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == o {
			n++
		}
	}
	return n
}

// WriteSummary prints one line per step and a final verdict line.
func WriteSummary(w io.Writer, r Result) error {
	width := 0
	for _, s := range r.Steps {
		width = max(width, len(s.Name))
	}
	var b strings.Builder
	for _, s := range r.Steps {
		b.WriteString(SummaryLine(s, width))
		b.WriteByte('\n')
	}
	if r.Success {
		fmt.Fprintf(&b, "PASSED: %d step(s) succeeded\n", r.Count(OutcomeSuccess))
	} else {
		fmt.Fprintf(&b, "FAILED: %d failed, %d skipped, %d succeeded\n",
			r.Count(OutcomeFailure), r.Count(OutcomeSkipped), r.Count(OutcomeSuccess))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// SummaryLine formats one step, padding the name to width.
func SummaryLine(s StepResult, width int) string {
	line := fmt.Sprintf("%-*s  %-6s %s", width, s.Name, s.Mode, s.Outcome)
	ran := s.Outcome == OutcomeSuccess || s.Outcome == OutcomeFailure
	if ran && s.ExitCode >= 0 {
		line += fmt.Sprintf(" exit=%d (%s)", s.ExitCode, s.Duration.Round(time.Millisecond))
	}
	if s.Err != nil && s.Outcome == OutcomeFailure {
		line += fmt.Sprintf(" error=%q", s.Err.Error())
	}
	return line
}
