package render

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name     string
		template string
		vars     Vars
		want     []string
	}{
		{
			name:     "pyexe and path",
			template: "{pyexe} -m black {path}",
			vars:     Vars{Python: "/usr/bin/python3", Paths: []string{"src/"}},
			want:     []string{"/usr/bin/python3", "-m", "black", "src/"},
		},
		{
			name:     "default path",
			template: "tool fmt {path}",
			want:     []string{"tool", "fmt", "."},
		},
		{
			name:     "multiple paths with spaces stay separate",
			template: "tool {path}",
			vars:     Vars{Paths: []string{"a b", "c"}},
			want:     []string{"tool", "a b", "c"},
		},
		{
			name:     "interpreter path with spaces",
			template: "{pyexe} -V",
			vars:     Vars{Python: "/opt/my py/python"},
			want:     []string{"/opt/my py/python", "-V"},
		},
		{
			name:     "embedded quoting honored",
			template: `tool --config "setup file.cfg" --msg='a b' {path}`,
			vars:     Vars{Paths: []string{"x.py"}},
			want:     []string{"tool", "--config", "setup file.cfg", "--msg=a b", "x.py"},
		},
		{
			name:     "unknown placeholder verbatim",
			template: "tool {line_length} {path}",
			vars:     Vars{Paths: []string{"x"}},
			want:     []string{"tool", "{line_length}", "x"},
		},
		{
			name:     "packages",
			template: "pip show {packages}",
			vars:     Vars{Packages: []string{"black==24.4.2", "isort"}},
			want:     []string{"pip", "show", "black==24.4.2", "isort"},
		},
		{
			name:     "path with shell metacharacters is not interpreted",
			template: "tool {path}",
			vars:     Vars{Paths: []string{"$(rm -rf x);"}},
			want:     []string{"tool", "$(rm -rf x);"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Render(tc.template, tc.vars)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("argv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandIsPureRewrite(t *testing.T) {
	got := Expand("  tool fmt {path}  ", Vars{Paths: []string{"src/"}})
	if got != "tool fmt src/" {
		t.Fatalf("unexpected expansion: %q", got)
	}
}

func TestRenderErrors(t *testing.T) {
	if _, err := Render("   ", Vars{}); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
	if _, err := Render(`tool "unterminated`, Vars{}); err == nil {
		t.Fatalf("expected error for unbalanced quotes")
	}
}

func TestTokens(t *testing.T) {
	if diff := cmp.Diff([]string{"{pyexe}", "{path}", "{packages}"}, Tokens()); diff != "" {
		t.Fatalf("tokens mismatch:\n%s", diff)
	}
}
