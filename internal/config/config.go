package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrConfig marks malformed, missing, or schema-invalid configuration.
// Callers match it with errors.Is; it is always fatal before any tool runs.
var ErrConfig = errors.New("config error")

// Config is the resolved lemming configuration for one run.
// It is not mutated after Resolve returns.
type Config struct {
	FailFast   bool
	Timeout    time.Duration
	Formatters []FormatterSpec
	Linters    []LinterSpec
	Source     string
}

// PackageRequirement names a pip-installable package with an optional exact pin.
type PackageRequirement struct {
	InstallName string
	Version     string
	AlsoInstall []string
}

// Target renders the pip install target, e.g. "black==23.1.0".
func (r PackageRequirement) Target() string {
	name := strings.TrimSpace(r.InstallName)
	version := strings.TrimSpace(r.Version)
	if version == "" {
		return name
	}
	return name + "==" + version
}

type FormatterSpec struct {
	Name          string
	Package       PackageRequirement
	FormatCommand string
	CheckCommand  string
	AllowNonzero  bool
}

// CheckCommandOrDefault returns the command used in check mode.
// A formatter without a check_command is checked by running format_command.
func (f FormatterSpec) CheckCommandOrDefault() string {
	if strings.TrimSpace(f.CheckCommand) != "" {
		return f.CheckCommand
	}
	return f.FormatCommand
}

type LinterSpec struct {
	Name     string
	Package  PackageRequirement
	Command  string
	RunFirst bool
}

// FirstLinters returns the run_first linters in declared order.
func (c Config) FirstLinters() []LinterSpec {
	out := make([]LinterSpec, 0, len(c.Linters))
	for _, l := range c.Linters {
		if l.RunFirst {
			out = append(out, l)
		}
	}
	return out
}

// OtherLinters returns the linters without run_first in declared order.
func (c Config) OtherLinters() []LinterSpec {
	out := make([]LinterSpec, 0, len(c.Linters))
	for _, l := range c.Linters {
		if !l.RunFirst {
			out = append(out, l)
		}
	}
	return out
}

// Validate checks the schema invariants of an already-built Config.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return configErrorf("timeout must not be negative: %s", c.Timeout)
	}
	seen := make(map[string]string, len(c.Formatters)+len(c.Linters))
	claim := func(kind, name string) error {
		if strings.TrimSpace(name) == "" {
			return configErrorf("%s name is required", kind)
		}
		if prev, ok := seen[name]; ok {
			return configErrorf("duplicate name %q (%s and %s)", name, prev, kind)
		}
		seen[name] = kind
		return nil
	}
	for i, f := range c.Formatters {
		if err := claim("formatter", f.Name); err != nil {
			return fmt.Errorf("formatters[%d]: %w", i, err)
		}
		if err := validateRequirement(f.Package); err != nil {
			return fmt.Errorf("formatters[%d] %q: %w", i, f.Name, err)
		}
		if strings.TrimSpace(f.FormatCommand) == "" {
			return fmt.Errorf("formatters[%d] %q: %w", i, f.Name, configErrorf("format_command is required"))
		}
	}
	for i, l := range c.Linters {
		if err := claim("linter", l.Name); err != nil {
			return fmt.Errorf("linters[%d]: %w", i, err)
		}
		if err := validateRequirement(l.Package); err != nil {
			return fmt.Errorf("linters[%d] %q: %w", i, l.Name, err)
		}
		if strings.TrimSpace(l.Command) == "" {
			return fmt.Errorf("linters[%d] %q: %w", i, l.Name, configErrorf("command is required"))
		}
	}
	return nil
}

func validateRequirement(r PackageRequirement) error {
	if strings.TrimSpace(r.InstallName) == "" {
		return configErrorf("package is required")
	}
	if strings.ContainsAny(r.InstallName, " \t=<>") {
		return configErrorf("package %q must be a bare name; pin versions with version", r.InstallName)
	}
	if strings.ContainsAny(r.Version, " \t=<>") {
		return configErrorf("version %q must be an exact version", r.Version)
	}
	for _, extra := range r.AlsoInstall {
		if strings.TrimSpace(extra) == "" {
			return configErrorf("also_install entries must not be empty")
		}
	}
	return nil
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
