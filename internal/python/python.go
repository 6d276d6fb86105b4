package python

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const EnvPython = "LEMMING_PYTHON"

var ErrNoInterpreter = errors.New("python interpreter not found")

// Lookup is the environment seen by Find; tests replace it. Nil fields fall
// back to the process environment.
type Lookup struct {
	Getenv   func(string) string
	LookPath func(string) (string, error)
	Stat     func(string) (os.FileInfo, error)
}

func defaultLookup() Lookup {
	return Lookup{Getenv: os.Getenv, LookPath: exec.LookPath, Stat: os.Stat}
}

// Find resolves the active interpreter: explicit override, then
// LEMMING_PYTHON, then the active virtualenv, then python3/python on PATH.
// The result is absolute.
func Find(override string) (string, error) {
	return defaultLookup().Find(override)
}

func (l Lookup) Find(override string) (string, error) {
	l = l.withDefaults()
	if v := strings.TrimSpace(override); v != "" {
		return l.resolve(v)
	}
	if v := strings.TrimSpace(l.Getenv(EnvPython)); v != "" {
		return l.resolve(v)
	}
	if venv := strings.TrimSpace(l.Getenv("VIRTUAL_ENV")); venv != "" {
		candidate := filepath.Join(venv, "bin", "python")
		if runtime.GOOS == "windows" {
			candidate = filepath.Join(venv, "Scripts", "python.exe")
		}
		if _, err := l.Stat(candidate); err == nil {
			return filepath.Abs(candidate)
		}
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := l.LookPath(name); err == nil {
			return filepath.Abs(path)
		}
	}
	return "", fmt.Errorf("%w: set %s or activate a virtualenv", ErrNoInterpreter, EnvPython)
}

func (l Lookup) withDefaults() Lookup {
	def := defaultLookup()
	if l.Getenv == nil {
		l.Getenv = def.Getenv
	}
	if l.LookPath == nil {
		l.LookPath = def.LookPath
	}
	if l.Stat == nil {
		l.Stat = def.Stat
	}
	return l
}

// resolve accepts either a path or a bare command name.
func (l Lookup) resolve(v string) (string, error) {
	if strings.ContainsRune(v, os.PathSeparator) || strings.ContainsRune(v, '/') {
		if _, err := l.Stat(v); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrNoInterpreter, v, err)
		}
		return filepath.Abs(v)
	}
	path, err := l.LookPath(v)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNoInterpreter, v, err)
	}
	return filepath.Abs(path)
}
