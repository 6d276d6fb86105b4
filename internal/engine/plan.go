package engine

import (
	"fmt"
	"strings"

	"github.com/danmuck/lemming/internal/config"
)

// BuildPlan orders steps as run_first linters, formatters, then the other
// linters, each group in declared order. A non-empty only reduces the plan to
// the formatter or linter with that name.
func BuildPlan(cfg config.Config, mode Mode, only string) ([]*Step, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %q", config.ErrConfig, mode)
	}

	plan := make([]*Step, 0, len(cfg.Formatters)+len(cfg.Linters))
	for _, l := range cfg.FirstLinters() {
		plan = append(plan, linterStep(l, mode))
	}
	for _, f := range cfg.Formatters {
		plan = append(plan, formatterStep(f, mode))
	}
	for _, l := range cfg.OtherLinters() {
		plan = append(plan, linterStep(l, mode))
	}

	only = strings.TrimSpace(only)
	if only == "" {
		return plan, nil
	}
	for _, step := range plan {
		if step.Name == only {
			return []*Step{step}, nil
		}
	}
	return nil, fmt.Errorf("%w: --only=%q matches no formatter or linter (known: %s)", config.ErrConfig, only, strings.Join(names(plan), ", "))
}

func names(plan []*Step) []string {
	out := make([]string, 0, len(plan))
	for _, s := range plan {
		out = append(out, s.Name)
	}
	return out
}
