package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk schema (version 1).
type fileConfig struct {
	FailFast   bool            `toml:"fail_fast"`
	Timeout    string          `toml:"timeout"`
	Formatters []fileFormatter `toml:"formatters"`
	Linters    []fileLinter    `toml:"linters"`
}

type fileFormatter struct {
	Name                 string   `toml:"name"`
	Package              string   `toml:"package"`
	InstallName          string   `toml:"install_name"`
	Packages             []string `toml:"packages"`
	Version              string   `toml:"version"`
	AlsoInstall          []string `toml:"also_install"`
	FormatCommand        string   `toml:"format_command"`
	CheckCommand         string   `toml:"check_command"`
	AllowNonzero         *bool    `toml:"allow_nonzero"`
	AllowNonzeroOnFormat *bool    `toml:"allow_nonzero_on_format"`
}

type fileLinter struct {
	Name        string   `toml:"name"`
	Package     string   `toml:"package"`
	InstallName string   `toml:"install_name"`
	Packages    []string `toml:"packages"`
	Version     string   `toml:"version"`
	AlsoInstall []string `toml:"also_install"`
	Command     string   `toml:"command"`
	RunFirst    bool     `toml:"run_first"`
}

// envelope locates the lemming section without decoding anything else.
type envelope struct {
	Lemming toml.Primitive `toml:"lemming"`
	Tool    struct {
		Lemming toml.Primitive `toml:"lemming"`
	} `toml:"tool"`
}

// decodeSource reads one candidate file. found=false means the file is valid
// TOML but carries no lemming section and the caller may keep searching.
func decodeSource(src Source) (Config, bool, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return Config{}, false, configErrorf("load failed (%s): %v", src.Path, err)
	}

	var env envelope
	meta, err := toml.Decode(string(data), &env)
	if err != nil {
		return Config{}, false, configErrorf("parse failed (%s): %v", src.Path, err)
	}

	var raw fileConfig
	var prefix toml.Key
	switch {
	case meta.IsDefined("tool", "lemming"):
		prefix = toml.Key{"tool", "lemming"}
		err = meta.PrimitiveDecode(env.Tool.Lemming, &raw)
	case src.Kind == SourceLemmingFile && meta.IsDefined("lemming"):
		prefix = toml.Key{"lemming"}
		err = meta.PrimitiveDecode(env.Lemming, &raw)
	case src.Kind == SourceLemmingFile:
		meta, err = toml.Decode(string(data), &raw)
		if err == nil && !definesLemmingKeys(meta) {
			return Config{}, false, configErrorf("%s has no lemming configuration: %s", src.Path, undecodedList(meta.Undecoded(), nil))
		}
	default:
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, configErrorf("decode failed (%s): %v", src.Path, err)
	}

	if unknown := undecodedList(meta.Undecoded(), prefix); unknown != "" {
		return Config{}, false, configErrorf("%s: unknown keys: %s", src.Path, unknown)
	}

	cfg, err := raw.toConfig()
	if err != nil {
		return Config{}, false, fmt.Errorf("%s: %w", src.Path, err)
	}
	cfg.Source = src.Path
	return cfg, true, nil
}

func definesLemmingKeys(meta toml.MetaData) bool {
	for _, key := range []string{"fail_fast", "timeout", "formatters", "linters"} {
		if meta.IsDefined(key) {
			return true
		}
	}
	return false
}

// undecodedList joins undecoded keys under prefix. A nil prefix keeps every key.
func undecodedList(keys []toml.Key, prefix toml.Key) string {
	var out []string
	for _, key := range keys {
		if !hasPrefix(key, prefix) {
			continue
		}
		out = append(out, key.String())
	}
	return strings.Join(out, ", ")
}

func hasPrefix(key, prefix toml.Key) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (raw fileConfig) toConfig() (Config, error) {
	cfg := Config{FailFast: raw.FailFast}

	if t := strings.TrimSpace(raw.Timeout); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return Config{}, configErrorf("parse timeout: %v", err)
		}
		cfg.Timeout = d
	}

	for i, f := range raw.Formatters {
		req, err := requirement(f.Package, f.InstallName, f.Packages, f.Version, f.AlsoInstall)
		if err != nil {
			return Config{}, fmt.Errorf("formatters[%d]: %w", i, err)
		}
		if f.AllowNonzero != nil && f.AllowNonzeroOnFormat != nil {
			return Config{}, fmt.Errorf("formatters[%d]: %w", i, configErrorf("set allow_nonzero or allow_nonzero_on_format, not both"))
		}
		allow := false
		if f.AllowNonzero != nil {
			allow = *f.AllowNonzero
		}
		if f.AllowNonzeroOnFormat != nil {
			allow = *f.AllowNonzeroOnFormat
		}
		cfg.Formatters = append(cfg.Formatters, FormatterSpec{
			Name:          defaultName(f.Name, req),
			Package:       req,
			FormatCommand: strings.TrimSpace(f.FormatCommand),
			CheckCommand:  strings.TrimSpace(f.CheckCommand),
			AllowNonzero:  allow,
		})
	}

	for i, l := range raw.Linters {
		req, err := requirement(l.Package, l.InstallName, l.Packages, l.Version, l.AlsoInstall)
		if err != nil {
			return Config{}, fmt.Errorf("linters[%d]: %w", i, err)
		}
		cfg.Linters = append(cfg.Linters, LinterSpec{
			Name:     defaultName(l.Name, req),
			Package:  req,
			Command:  strings.TrimSpace(l.Command),
			RunFirst: l.RunFirst,
		})
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// requirement maps the package fields onto a PackageRequirement.
// install_name is a synonym of package; legacy packages lists are rejected.
func requirement(pkg, installName string, legacy []string, version string, also []string) (PackageRequirement, error) {
	if len(legacy) > 0 {
		return PackageRequirement{}, configErrorf("packages is no longer supported; use package (with version) and also_install")
	}
	pkg = strings.TrimSpace(pkg)
	installName = strings.TrimSpace(installName)
	if pkg != "" && installName != "" && pkg != installName {
		return PackageRequirement{}, configErrorf("package %q and install_name %q disagree", pkg, installName)
	}
	if pkg == "" {
		pkg = installName
	}
	extras := make([]string, 0, len(also))
	for _, extra := range also {
		extras = append(extras, strings.TrimSpace(extra))
	}
	return PackageRequirement{
		InstallName: pkg,
		Version:     strings.TrimSpace(version),
		AlsoInstall: extras,
	}, nil
}

func defaultName(name string, req PackageRequirement) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return req.InstallName
}
