// Package render turns command templates into argument vectors.
//
// Substitution and splitting are separate steps: Expand rewrites recognized
// {tokens} and leaves everything else verbatim, Render then splits the result
// with POSIX shell rules. Nothing is ever handed to a shell.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

var ErrEmptyCommand = errors.New("render: empty command")

// DefaultPath is substituted for {path} when no paths are given.
const DefaultPath = "."

// Vars are the values placeholders resolve against.
type Vars struct {
	Python   string
	Paths    []string
	Packages []string
}

type token struct {
	name  string
	value func(Vars) string
}

// tokens is the table of recognized placeholders. Values are shell-quoted so
// that splitting keeps each path or executable a single argument.
var tokens = []token{
	{name: "{pyexe}", value: func(v Vars) string { return shellquote.Join(v.Python) }},
	{name: "{path}", value: func(v Vars) string {
		if len(v.Paths) == 0 {
			return DefaultPath
		}
		return shellquote.Join(v.Paths...)
	}},
	{name: "{packages}", value: func(v Vars) string { return shellquote.Join(v.Packages...) }},
}

// Tokens lists the recognized placeholder names.
func Tokens() []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.name)
	}
	return out
}

// Expand substitutes recognized placeholders in one pass.
func Expand(template string, vars Vars) string {
	pairs := make([]string, 0, 2*len(tokens))
	for _, t := range tokens {
		pairs = append(pairs, t.name, t.value(vars))
	}
	return strings.NewReplacer(pairs...).Replace(strings.TrimSpace(template))
}

// Render expands template and splits it into an argument vector.
func Render(template string, vars Vars) ([]string, error) {
	argv, err := shellquote.Split(Expand(template, vars))
	if err != nil {
		return nil, fmt.Errorf("render %q: %w", template, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCommand, template)
	}
	return argv, nil
}
