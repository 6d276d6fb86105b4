package engine

import (
	"time"

	"github.com/danmuck/lemming/internal/config"
	"github.com/danmuck/lemming/internal/report"
)

// Mode selects which formatter action a run performs.
type Mode string

const (
	ModeFormat Mode = "format"
	ModeCheck  Mode = "check"
)

func (m Mode) Valid() bool {
	return m == ModeFormat || m == ModeCheck
}

type Kind string

const (
	KindFormatter Kind = "formatter"
	KindLinter    Kind = "linter"
)

// Step is one planned tool invocation. It lives for a single run.
type Step struct {
	Name         string
	Kind         Kind
	Mode         Mode
	Template     string
	Package      config.PackageRequirement
	AllowNonzero bool

	Argv     []string
	Outcome  report.Outcome
	ExitCode int
	Err      error
	Duration time.Duration
}

func formatterStep(f config.FormatterSpec, mode Mode) *Step {
	template := f.FormatCommand
	if mode == ModeCheck {
		template = f.CheckCommandOrDefault()
	}
	return &Step{
		Name:         f.Name,
		Kind:         KindFormatter,
		Mode:         mode,
		Template:     template,
		Package:      f.Package,
		AllowNonzero: f.AllowNonzero,
		Outcome:      report.OutcomePending,
		ExitCode:     -1,
	}
}

func linterStep(l config.LinterSpec, mode Mode) *Step {
	return &Step{
		Name:     l.Name,
		Kind:     KindLinter,
		Mode:     mode,
		Template: l.Command,
		Package:  l.Package,
		Outcome:  report.OutcomePending,
		ExitCode: -1,
	}
}

// ToleratesNonzero reports whether a nonzero exit still counts as success.
// Only the format action of a formatter with allow_nonzero qualifies; a check
// must always exit zero.
func (s *Step) ToleratesNonzero() bool {
	return s.Kind == KindFormatter && s.Mode == ModeFormat && s.AllowNonzero
}

// settle records the command outcome for an exit code.
func (s *Step) settle(exitCode int, duration time.Duration) {
	s.ExitCode = exitCode
	s.Duration = duration
	if exitCode == 0 || s.ToleratesNonzero() {
		s.Outcome = report.OutcomeSuccess
		return
	}
	s.Outcome = report.OutcomeFailure
}

func (s *Step) fail(err error) {
	s.Outcome = report.OutcomeFailure
	s.Err = err
}

func (s *Step) skip() {
	s.Outcome = report.OutcomeSkipped
}

func (s *Step) Result() report.StepResult {
	return report.StepResult{
		Name:     s.Name,
		Kind:     string(s.Kind),
		Mode:     string(s.Mode),
		Outcome:  s.Outcome,
		ExitCode: s.ExitCode,
		Err:      s.Err,
		Duration: s.Duration,
	}
}
