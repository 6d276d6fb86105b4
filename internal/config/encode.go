package config

import (
	"github.com/pelletier/go-toml/v2"
)

type encodedConfig struct {
	FailFast   bool               `toml:"fail_fast"`
	Timeout    string             `toml:"timeout,omitempty"`
	Linters    []encodedLinter    `toml:"linters,omitempty"`
	Formatters []encodedFormatter `toml:"formatters,omitempty"`
}

type encodedFormatter struct {
	Name          string   `toml:"name"`
	Package       string   `toml:"package"`
	Version       string   `toml:"version,omitempty"`
	AlsoInstall   []string `toml:"also_install,omitempty"`
	FormatCommand string   `toml:"format_command"`
	CheckCommand  string   `toml:"check_command,omitempty"`
	AllowNonzero  bool     `toml:"allow_nonzero,omitempty"`
}

type encodedLinter struct {
	Name        string   `toml:"name"`
	Package     string   `toml:"package"`
	Version     string   `toml:"version,omitempty"`
	AlsoInstall []string `toml:"also_install,omitempty"`
	Command     string   `toml:"command"`
	RunFirst    bool     `toml:"run_first,omitempty"`
}

// Encode renders a resolved Config in the canonical schema, so legacy
// spellings in the source file come out normalized.
func Encode(cfg Config) ([]byte, error) {
	out := encodedConfig{FailFast: cfg.FailFast}
	if cfg.Timeout > 0 {
		out.Timeout = cfg.Timeout.String()
	}
	for _, f := range cfg.Formatters {
		out.Formatters = append(out.Formatters, encodedFormatter{
			Name:          f.Name,
			Package:       f.Package.InstallName,
			Version:       f.Package.Version,
			AlsoInstall:   f.Package.AlsoInstall,
			FormatCommand: f.FormatCommand,
			CheckCommand:  f.CheckCommand,
			AllowNonzero:  f.AllowNonzero,
		})
	}
	for _, l := range cfg.Linters {
		out.Linters = append(out.Linters, encodedLinter{
			Name:        l.Name,
			Package:     l.Package.InstallName,
			Version:     l.Package.Version,
			AlsoInstall: l.Package.AlsoInstall,
			Command:     l.Command,
			RunFirst:    l.RunFirst,
		})
	}
	return toml.Marshal(out)
}
