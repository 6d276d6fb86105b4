package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
)

const (
	FileName      = ".lemming.toml"
	PyprojectName = "pyproject.toml"
	// AppDir is the directory name under XDG config dirs.
	AppDir = "lemming"
	// AppFileName is the file looked up inside AppDir.
	AppFileName = "config.toml"
)

type SourceKind int

const (
	// SourceLemmingFile is a dedicated lemming file: the document root or a
	// [lemming] table holds the configuration.
	SourceLemmingFile SourceKind = iota
	// SourcePyproject is a pyproject.toml with a [tool.lemming] table.
	SourcePyproject
)

func (k SourceKind) String() string {
	switch k {
	case SourcePyproject:
		return "pyproject"
	default:
		return "lemming"
	}
}

// Source is one candidate config location.
type Source struct {
	Path string
	Kind SourceKind
}

// ResolveOptions selects where Resolve looks.
// Empty UserConfigHome / nil SystemConfigDirs fall back to the XDG defaults.
type ResolveOptions struct {
	WorkDir          string
	ExplicitPath     string
	UserConfigHome   string
	SystemConfigDirs []string
}

// SourceFor classifies a path by its file name.
func SourceFor(path string) Source {
	if filepath.Base(path) == PyprojectName {
		return Source{Path: path, Kind: SourcePyproject}
	}
	return Source{Path: path, Kind: SourceLemmingFile}
}

// Candidates lists discovery locations in precedence order: each directory
// from WorkDir up to the filesystem root, then the user config home, then the
// system config dirs.
func Candidates(opts ResolveOptions) ([]Source, error) {
	dir := strings.TrimSpace(opts.WorkDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var out []Source
	for {
		out = append(out,
			Source{Path: filepath.Join(dir, FileName), Kind: SourceLemmingFile},
			Source{Path: filepath.Join(dir, PyprojectName), Kind: SourcePyproject},
		)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	home := strings.TrimSpace(opts.UserConfigHome)
	if home == "" {
		home = xdg.ConfigHome
	}
	if home != "" {
		out = append(out, Source{Path: filepath.Join(home, AppDir, AppFileName), Kind: SourceLemmingFile})
	}

	systemDirs := opts.SystemConfigDirs
	if systemDirs == nil {
		systemDirs = xdg.ConfigDirs
	}
	for _, d := range systemDirs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		out = append(out, Source{Path: filepath.Join(d, AppDir, AppFileName), Kind: SourceLemmingFile})
	}
	return out, nil
}

// Resolve produces exactly one Config or fails with ErrConfig.
// An explicit path disables discovery. Otherwise the first candidate holding
// lemming configuration wins; files are never merged.
func Resolve(opts ResolveOptions) (Config, error) {
	if explicit := strings.TrimSpace(opts.ExplicitPath); explicit != "" {
		log.Debug().Msgf("config.Resolve explicit path=%q", explicit)
		return resolveExplicit(explicit)
	}

	candidates, err := Candidates(opts)
	if err != nil {
		return Config{}, configErrorf("build search path: %v", err)
	}
	for _, src := range candidates {
		info, err := os.Stat(src.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, configErrorf("stat %s: %v", src.Path, err)
		}
		if info.IsDir() {
			continue
		}
		cfg, found, err := decodeSource(src)
		if err != nil {
			return Config{}, err
		}
		if !found {
			log.Debug().Msgf("config.Resolve skip path=%q kind=%s reason=no-lemming-section", src.Path, src.Kind)
			continue
		}
		log.Debug().Msgf("config.Resolve found path=%q kind=%s", src.Path, src.Kind)
		return cfg, nil
	}
	return Config{}, configErrorf("no config file found; add a %s file or a [tool.lemming] table to %s", FileName, PyprojectName)
}

func resolveExplicit(path string) (Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Config{}, configErrorf("config path %q: %v", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Config{}, configErrorf("config file %s: %v", abs, err)
	}
	if info.IsDir() {
		return Config{}, configErrorf("config file %s is a directory", abs)
	}
	cfg, found, err := decodeSource(SourceFor(abs))
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Config{}, configErrorf("%s has no [tool.lemming] table", abs)
	}
	return cfg, nil
}
