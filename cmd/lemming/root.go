package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/danmuck/lemming/internal/config"
	"github.com/danmuck/lemming/internal/engine"
	"github.com/danmuck/lemming/internal/hook"
	"github.com/danmuck/lemming/internal/logging"
	"github.com/danmuck/lemming/internal/observability"
	"github.com/danmuck/lemming/internal/python"
	"github.com/danmuck/lemming/internal/report"
	"github.com/danmuck/lemming/internal/tools"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var errUsage = errors.New("usage")

type cliFlags struct {
	only          string
	verbose       int
	quiet         int
	configPath    string
	quietCommands bool
	quietPip      bool
	timeout       time.Duration
	metricsFile   string
	python        string
}

// app carries what the commands share. runner, lookup and workDir are
// replaced in tests.
type app struct {
	ctx     context.Context
	flags   cliFlags
	stdout  io.Writer
	stderr  io.Writer
	runner  tools.CommandRunner
	lookup  python.Lookup
	workDir string
	code    int
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{ctx: ctx, stdout: stdout, stderr: stderr}
	return a.run(args)
}

func (a *app) run(args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(a.stderr, "lemming: %v\n", err)
		if errors.Is(err, config.ErrConfig) || errors.Is(err, errUsage) {
			return report.ExitConfigError
		}
		if a.code == report.ExitSuccess {
			return report.ExitFailure
		}
	}
	return a.code
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lemming",
		Short: "Install and run Python formatters and linters",
		Long: `lemming reads a formatter/linter list from .lemming.toml or the
[tool.lemming] table of pyproject.toml, installs each tool with pip on demand,
and runs them in order against the given paths.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.flags.verbose > 0 && a.flags.quiet > 0 {
				return fmt.Errorf("%w: cannot combine -v and -q", errUsage)
			}
			lvl := logging.SetVerbosity(a.flags.verbose, a.flags.quiet)
			log.Debug().Msgf("cli.%s level=%s", cmd.Name(), lvl)
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.only, "only", "", "run only the formatter or linter with this name")
	pf.CountVarP(&a.flags.verbose, "verbose", "v", "log more information (repeatable)")
	pf.CountVarP(&a.flags.quiet, "quiet", "q", "log less information (repeatable)")
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "config file to use instead of discovery")
	pf.BoolVar(&a.flags.quietCommands, "quiet-commands", false, "hide formatter and linter output")
	pf.BoolVar(&a.flags.quietPip, "quiet-pip", false, "hide pip output")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "kill any single command running longer than this (overrides config)")
	pf.StringVar(&a.flags.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here after the run")
	pf.StringVar(&a.flags.python, "python", "", "Python interpreter for {pyexe} and pip (default: $LEMMING_PYTHON, $VIRTUAL_ENV, then PATH)")

	root.AddCommand(
		a.modeCmd(engine.ModeFormat, "format and lint the given paths"),
		a.modeCmd(engine.ModeCheck, "check formatting and lint the given paths without modifying them"),
		a.preCommitCmd(),
		a.configCmd(),
		a.initCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *app) modeCmd(mode engine.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode) + " PATH...",
		Short: short,
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(_ *cobra.Command, args []string) error {
			metrics := observability.NewMetrics()
			opts, err := a.options(metrics)
			if err != nil {
				return err
			}
			opts.Mode = mode
			opts.Paths = args
			a.code = engine.RunAndReport(a.ctx, opts, a.stdout)
			a.writeMetrics(metrics)
			return nil
		},
	}
}

func (a *app) preCommitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "pre-commit",
		Short: "install a git pre-commit hook that runs lemming format",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := a.dir()
			if err != nil {
				return err
			}
			path, err := hook.Install(dir, hook.Options{Force: force})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "installed %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing hook")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the resolved configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			resolve, err := a.resolveOptions()
			if err != nil {
				return err
			}
			cfg, err := config.Resolve(resolve)
			if err != nil {
				return err
			}
			raw, err := config.Encode(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "# source: %s\n", cfg.Source)
			_, err = a.stdout.Write(raw)
			return err
		},
	}
}

func (a *app) initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "write a starter " + config.FileName,
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(_ *cobra.Command, args []string) error {
			dir, err := a.dir()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				dir = args[0]
			}
			path := filepath.Join(dir, config.FileName)
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(a.stdout, version)
		},
	}
}

func (a *app) options(metrics *observability.Metrics) (engine.Options, error) {
	resolve, err := a.resolveOptions()
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		Only:          a.flags.only,
		Resolve:       resolve,
		Python:        a.flags.python,
		Lookup:        a.lookup,
		QuietCommands: a.flags.quietCommands,
		QuietPip:      a.flags.quietPip,
		Timeout:       a.flags.timeout,
		Stdout:        a.stdout,
		Stderr:        a.stderr,
		Runner:        a.runner,
		Metrics:       metrics,
	}, nil
}

func (a *app) resolveOptions() (config.ResolveOptions, error) {
	dir, err := a.dir()
	if err != nil {
		return config.ResolveOptions{}, err
	}
	return config.ResolveOptions{WorkDir: dir, ExplicitPath: a.flags.configPath}, nil
}

func (a *app) dir() (string, error) {
	if a.workDir != "" {
		return a.workDir, nil
	}
	return os.Getwd()
}

// writeMetrics is best effort; a metrics failure never changes the exit code.
func (a *app) writeMetrics(metrics *observability.Metrics) {
	if a.flags.metricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.flags.metricsFile); err != nil {
		log.Error().Msgf("cli.metrics write failed path=%q: %v", a.flags.metricsFile, err)
		return
	}
	log.Debug().Msgf("cli.metrics wrote path=%q", a.flags.metricsFile)
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		return nil
	}
}
