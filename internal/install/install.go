package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/lemming/internal/config"
	"github.com/danmuck/lemming/internal/tools"
	"github.com/rs/zerolog/log"
)

// ErrInstall marks a failed package manager invocation.
var ErrInstall = errors.New("install failed")

// Cache records targets already installed in this run. It lives as long as
// the Installer that owns it; nothing is persisted.
type Cache struct {
	mu   sync.Mutex
	done map[string]struct{}
}

func NewCache() *Cache {
	return &Cache{done: make(map[string]struct{})}
}

func (c *Cache) Has(target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.done[target]
	return ok
}

func (c *Cache) Mark(targets ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range targets {
		c.done[t] = struct{}{}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.done)
}

// Observer receives one call per pip invocation.
type Observer interface {
	ObserveInstall(targets []string, d time.Duration, err error)
}

// InstallerConfig wires an Installer. Python is the interpreter whose
// environment receives the packages.
type InstallerConfig struct {
	Python   string
	Runner   tools.CommandRunner
	Quiet    bool
	Stdout   io.Writer
	Stderr   io.Writer
	Cache    *Cache
	Observer Observer
}

// Installer ensures requirements are installed with pip, at most once per
// rendered target per run.
type Installer struct {
	python   string
	runner   tools.CommandRunner
	quiet    bool
	stdout   io.Writer
	stderr   io.Writer
	cache    *Cache
	observer Observer
}

func NewInstaller(cfg InstallerConfig) *Installer {
	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	cache := cfg.Cache
	if cache == nil {
		cache = NewCache()
	}
	return &Installer{
		python:   cfg.Python,
		runner:   runner,
		quiet:    cfg.Quiet,
		stdout:   cfg.Stdout,
		stderr:   cfg.Stderr,
		cache:    cache,
		observer: cfg.Observer,
	}
}

// Targets renders the requirement and its extras as pip targets.
func Targets(req config.PackageRequirement) []string {
	out := make([]string, 0, 1+len(req.AlsoInstall))
	if t := req.Target(); t != "" {
		out = append(out, t)
	}
	for _, extra := range req.AlsoInstall {
		if extra = strings.TrimSpace(extra); extra != "" {
			out = append(out, extra)
		}
	}
	return out
}

// Ensure installs the requirement and its also_install extras in one pip
// call, skipping targets already satisfied in this run. Failed targets are
// not cached.
func (i *Installer) Ensure(ctx context.Context, req config.PackageRequirement) error {
	var pending []string
	for _, target := range Targets(req) {
		if i.cache.Has(target) {
			log.Debug().Msgf("install.Ensure cached target=%q", target)
			continue
		}
		pending = append(pending, target)
	}
	if len(pending) == 0 {
		return nil
	}
	if strings.TrimSpace(i.python) == "" {
		return fmt.Errorf("%w: targets=%q: no python interpreter configured", ErrInstall, strings.Join(pending, " "))
	}

	argv := append([]string{i.python, "-m", "pip", "install", "-U"}, pending...)
	log.Info().Msgf("install.Ensure exec targets=%q", strings.Join(pending, " "))
	res, err := i.runner.Run(ctx, tools.Command{
		Argv:   argv,
		Quiet:  i.quiet,
		Stdout: i.stdout,
		Stderr: i.stderr,
	})
	if i.observer != nil {
		i.observer.ObserveInstall(pending, res.Duration, err)
	}
	if err != nil {
		return fmt.Errorf(
			"%w: targets=%q exit=%d stderr=%q: %v",
			ErrInstall,
			strings.Join(pending, " "),
			res.ExitCode,
			strings.TrimSpace(string(res.Stderr)),
			err,
		)
	}
	i.cache.Mark(pending...)
	return nil
}
