// Package hook installs the git pre-commit hook that runs lemming's format
// action before each commit.
package hook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
)

var (
	ErrNoRepository = errors.New("not inside a git repository")
	ErrHookExists   = errors.New("pre-commit hook already exists")
)

const hookName = "pre-commit"

// Options control the generated hook.
type Options struct {
	// Executable is the lemming binary the hook calls; empty means "lemming"
	// resolved from PATH at commit time.
	Executable string
	// Args are passed after "format"; empty means ".".
	Args  []string
	Force bool
}

// FindGitDir walks up from start to the directory holding .git. A .git file
// (worktrees, submodules) is followed through its "gitdir:" pointer.
func FindGitDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ".git")
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return candidate, nil
			}
			return readGitFile(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: %s", ErrNoRepository, start)
		}
		dir = parent
	}
}

func readGitFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line := strings.TrimSpace(string(raw))
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("%w: malformed %s", ErrNoRepository, path)
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), nil
}

// Script returns the hook body.
func Script(opts Options) string {
	exe := opts.Executable
	if exe == "" {
		exe = "lemming"
	}
	args := opts.Args
	if len(args) == 0 {
		args = []string{"."}
	}
	cmd := shellquote.Join(append([]string{exe, "format"}, args...)...)
	return "#!/bin/sh\n# installed by lemming\nexec " + cmd + "\n"
}

// Install writes the hook under the repository containing start and returns
// its path.
func Install(start string, opts Options) (string, error) {
	gitDir, err := FindGitDir(start)
	if err != nil {
		return "", err
	}
	hooksDir := filepath.Join(gitDir, "hooks")
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(hooksDir, hookName)
	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s (use --force to overwrite)", ErrHookExists, path)
		}
	}
	if err := os.WriteFile(path, []byte(Script(opts)), 0o755); err != nil {
		return "", err
	}
	// WriteFile keeps the old mode when the file already existed.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", err
	}
	log.Info().Msgf("hook.Install path=%q force=%t", path, opts.Force)
	return path, nil
}
