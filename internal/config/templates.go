package config

import (
	"fmt"
	"os"
)

// Template returns a starter .lemming.toml.
func Template() string {
	return lemmingTemplate
}

// WriteTemplate writes the starter config to path, refusing to clobber an
// existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(lemmingTemplate), 0o644)
}

const lemmingTemplate = `fail_fast = false

[[linters]]
name = "ruff"
package = "ruff"
version = "0.4.4"
command = "{pyexe} -m ruff check {path}"
run_first = true

[[formatters]]
name = "isort"
package = "isort"
version = "5.13.2"
format_command = "{pyexe} -m isort {path}"
check_command = "{pyexe} -m isort --check-only --diff {path}"

[[formatters]]
name = "black"
package = "black"
version = "24.4.2"
format_command = "{pyexe} -m black {path}"
check_command = "{pyexe} -m black --check --diff {path}"

[[linters]]
name = "mypy"
package = "mypy"
version = "1.10.0"
also_install = ["types-requests"]
command = "{pyexe} -m mypy {path}"
`
