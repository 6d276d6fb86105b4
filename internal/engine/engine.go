package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/danmuck/lemming/internal/config"
	"github.com/danmuck/lemming/internal/install"
	"github.com/danmuck/lemming/internal/observability"
	"github.com/danmuck/lemming/internal/python"
	"github.com/danmuck/lemming/internal/render"
	"github.com/danmuck/lemming/internal/report"
	"github.com/danmuck/lemming/internal/tools"
	"github.com/rs/zerolog/log"
)

// ErrCommand marks a tool command that exited with a disqualifying status or
// could not be run at all.
var ErrCommand = errors.New("command failed")

// Ensurer installs a package requirement, also_install extras included,
// before its step runs.
type Ensurer interface {
	Ensure(ctx context.Context, req config.PackageRequirement) error
}

// Options configure one run.
type Options struct {
	Mode  Mode
	Paths []string
	Only  string

	// Resolve locates the config file. Config, when set, is used as-is and
	// discovery is skipped.
	Resolve config.ResolveOptions
	Config  *config.Config

	// Python is an interpreter path or command name. It is always resolved
	// to an absolute path through Lookup; empty means the default search.
	Python        string
	Lookup        python.Lookup
	QuietCommands bool
	QuietPip      bool
	// Timeout overrides the config timeout when positive.
	Timeout time.Duration

	// Stdout and Stderr receive streamed tool output.
	Stdout io.Writer
	Stderr io.Writer

	Runner    tools.CommandRunner
	Installer Ensurer
	Metrics   *observability.Metrics
}

// Run is a single execution of the engine. It is not reusable.
type Run struct {
	opts    Options
	state   State
	cfg     config.Config
	plan    []*Step
	python  string
	runner  tools.CommandRunner
	ensurer Ensurer
	timeout time.Duration
}

func NewRun(opts Options) *Run {
	runner := opts.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Run{opts: opts, state: StateIdle, runner: runner}
}

func (r *Run) State() State {
	return r.state
}

// Config returns the resolved configuration; it is zero before Resolving.
func (r *Run) Config() config.Config {
	return r.cfg
}

// Plan returns the planned steps in execution order.
func (r *Run) Plan() []*Step {
	return r.plan
}

func (r *Run) transition(to State) {
	if err := ValidateTransition(r.state, to); err != nil {
		panic(err)
	}
	log.Debug().Msgf("engine.Run transition from=%s to=%s", r.state, to)
	r.state = to
}

// Execute drives the run to Done. The returned error is non-nil only for
// configuration failures, which abort before any tool is installed or run;
// tool failures are reported through the Result.
func (r *Run) Execute(ctx context.Context) (report.Result, error) {
	r.transition(StateResolving)
	cfg, err := r.resolve()
	if err != nil {
		r.transition(StateDone)
		return report.Result{}, err
	}
	r.cfg = cfg

	r.transition(StateBuildingPlan)
	plan, err := BuildPlan(cfg, r.opts.Mode, r.opts.Only)
	if err != nil {
		r.transition(StateDone)
		return report.Result{}, err
	}
	r.plan = plan
	log.Info().Msgf("engine.Run plan mode=%s steps=%q source=%q", r.opts.Mode, strings.Join(names(plan), ","), cfg.Source)

	r.transition(StateExecuting)
	r.prepare()
	r.executePlan(ctx)

	r.transition(StateReporting)
	steps := make([]report.StepResult, 0, len(r.plan))
	for _, step := range r.plan {
		steps = append(steps, step.Result())
	}
	result := report.Aggregate(steps)
	r.opts.Metrics.RecordRun(result.Success)

	r.transition(StateDone)
	return result, nil
}

func (r *Run) resolve() (config.Config, error) {
	if r.opts.Config != nil {
		if err := r.opts.Config.Validate(); err != nil {
			return config.Config{}, err
		}
		return *r.opts.Config, nil
	}
	return config.Resolve(r.opts.Resolve)
}

// prepare binds the interpreter, timeout, and installer for this run. A
// missing interpreter is not fatal here; steps fail at install time instead.
func (r *Run) prepare() {
	found, err := r.opts.Lookup.Find(r.opts.Python)
	if err != nil {
		log.Warn().Msgf("engine.Run python lookup failed override=%q: %v", r.opts.Python, err)
	}
	r.python = found

	r.timeout = r.cfg.Timeout
	if r.opts.Timeout > 0 {
		r.timeout = r.opts.Timeout
	}

	r.ensurer = r.opts.Installer
	if r.ensurer == nil {
		var observer install.Observer
		if r.opts.Metrics != nil {
			observer = r.opts.Metrics
		}
		r.ensurer = install.NewInstaller(install.InstallerConfig{
			Python:   r.python,
			Runner:   r.runner,
			Quiet:    r.opts.QuietPip,
			Stdout:   r.opts.Stdout,
			Stderr:   r.opts.Stderr,
			Observer: observer,
		})
	}
}

func (r *Run) executePlan(ctx context.Context) {
	halted := false
	for _, step := range r.plan {
		if halted {
			step.skip()
			log.Debug().Msgf("engine.Run skip name=%q", step.Name)
			r.record(step, false)
			continue
		}
		r.runStep(ctx, step)

		// An interrupted step never counts as a success.
		if err := ctx.Err(); err != nil {
			if step.Outcome != report.OutcomeFailure {
				step.fail(fmt.Errorf("%w: interrupted: %w", ErrCommand, err))
			}
			log.Warn().Msgf("engine.Run canceled during name=%q: %v", step.Name, err)
			halted = true
		}
		r.record(step, step.ExitCode >= 0)

		if step.Outcome == report.OutcomeFailure && r.cfg.FailFast && !halted {
			log.Warn().Msgf("engine.Run fail-fast stop after name=%q", step.Name)
			halted = true
		}
	}
}

func (r *Run) runStep(ctx context.Context, step *Step) {
	log.Info().Msgf("engine.Run step start name=%q kind=%s mode=%s", step.Name, step.Kind, step.Mode)

	if err := r.ensurer.Ensure(ctx, step.Package); err != nil {
		log.Error().Msgf("engine.Run install failed name=%q: %v", step.Name, err)
		step.fail(err)
		return
	}

	argv, err := render.Render(step.Template, render.Vars{
		Python:   r.python,
		Paths:    r.opts.Paths,
		Packages: install.Targets(step.Package),
	})
	if err != nil {
		log.Error().Msgf("engine.Run render failed name=%q: %v", step.Name, err)
		step.fail(fmt.Errorf("%w: %w", ErrCommand, err))
		return
	}
	step.Argv = argv

	log.Debug().Msgf("engine.Run exec name=%q argv=%q", step.Name, argv)
	res, err := r.runner.Run(ctx, tools.Command{
		Argv:    argv,
		Quiet:   r.opts.QuietCommands,
		Stdout:  r.opts.Stdout,
		Stderr:  r.opts.Stderr,
		Timeout: r.timeout,
	})
	if errors.Is(err, tools.ErrTimeout) || errors.Is(err, tools.ErrNotStarted) || errors.Is(err, tools.ErrCanceled) || (err != nil && res.ExitCode == 0) {
		step.ExitCode = res.ExitCode
		step.Duration = res.Duration
		step.fail(fmt.Errorf("%w: %w", ErrCommand, err))
		log.Error().Msgf("engine.Run step failed name=%q: %v", step.Name, step.Err)
		return
	}

	step.settle(res.ExitCode, res.Duration)
	switch {
	case step.Outcome == report.OutcomeFailure:
		step.Err = fmt.Errorf("%w: %s exited %d", ErrCommand, argv[0], res.ExitCode)
		log.Error().Msgf("engine.Run step failed name=%q exit=%d%s", step.Name, res.ExitCode, failureHint(step))
	case res.ExitCode != 0:
		log.Warn().Msgf("engine.Run step tolerated name=%q exit=%d (allow_nonzero)", step.Name, res.ExitCode)
	default:
		log.Info().Msgf("engine.Run step ok name=%q duration=%s", step.Name, res.Duration.Round(time.Millisecond))
	}
}

func (r *Run) record(step *Step, ran bool) {
	r.opts.Metrics.RecordStep(step.Name, string(step.Kind), string(step.Mode), string(step.Outcome), step.Duration, ran)
}

func failureHint(step *Step) string {
	switch {
	case step.Kind == KindFormatter && step.Mode == ModeFormat:
		return " (format_command is expected to format the code and exit 0; set allow_nonzero=true to tolerate this)"
	case step.Kind == KindFormatter:
		return " (check_command exits nonzero when the code is not formatted)"
	default:
		return ""
	}
}

// Execute is a convenience wrapper for a single run.
func Execute(ctx context.Context, opts Options) (report.Result, error) {
	return NewRun(opts).Execute(ctx)
}

// FormatPaths runs the format action on paths and writes the summary to
// summary (stdout when nil). It returns the process exit code.
func FormatPaths(ctx context.Context, opts Options, paths []string, summary io.Writer) int {
	opts.Mode = ModeFormat
	opts.Paths = paths
	return RunAndReport(ctx, opts, summary)
}

// RunAndReport executes a run, prints the summary, and maps the outcome to an
// exit code. Errors that abort the run go to opts.Stderr, not the summary.
func RunAndReport(ctx context.Context, opts Options, summary io.Writer) int {
	if summary == nil {
		summary = os.Stdout
	}
	result, err := Execute(ctx, opts)
	if err != nil {
		errOut := opts.Stderr
		if errOut == nil {
			errOut = os.Stderr
		}
		fmt.Fprintf(errOut, "lemming: %v\n", err)
		if errors.Is(err, config.ErrConfig) {
			return report.ExitConfigError
		}
		return report.ExitFailure
	}
	if err := report.WriteSummary(summary, result); err != nil {
		log.Error().Msgf("engine.RunAndReport summary write failed: %v", err)
	}
	return result.ExitCode()
}
