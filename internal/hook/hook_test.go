package hook

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/lemming/internal/testutil/testlog"
)

func TestScriptDefaults(t *testing.T) {
	testlog.Start(t)
	got := Script(Options{})
	want := "#!/bin/sh\n# installed by lemming\nexec lemming format .\n"
	if got != want {
		t.Fatalf("unexpected script:\n%s", got)
	}
}

func TestScriptQuotesExecutableAndArgs(t *testing.T) {
	testlog.Start(t)
	got := Script(Options{Executable: "/opt/my tools/lemming", Args: []string{"src", "tests"}})
	if !strings.Contains(got, "exec '/opt/my tools/lemming' format src tests\n") {
		t.Fatalf("unexpected script:\n%s", got)
	}
}

func TestFindGitDirWalksUp(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := FindGitDir(nested)
	if err != nil {
		t.Fatalf("FindGitDir: %v", err)
	}
	if got != filepath.Join(root, ".git") {
		t.Fatalf("unexpected git dir %q", got)
	}
}

func TestFindGitDirFollowsGitFile(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	target := filepath.Join(root, "real-git")
	work := filepath.Join(root, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(work, ".git"), []byte("gitdir: ../real-git\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := FindGitDir(work)
	if err != nil {
		t.Fatalf("FindGitDir: %v", err)
	}
	if got != target {
		t.Fatalf("expected %q, got %q", target, got)
	}
}

func TestFindGitDirOutsideRepository(t *testing.T) {
	testlog.Start(t)
	// t.TempDir is assumed not to live under a git checkout.
	_, err := FindGitDir(t.TempDir())
	if !errors.Is(err, ErrNoRepository) {
		t.Fatalf("expected ErrNoRepository, got %v", err)
	}
}

func TestInstallWritesExecutableHook(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path, err := Install(root, Options{})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if path != filepath.Join(root, ".git", "hooks", "pre-commit") {
		t.Fatalf("unexpected hook path %q", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("hook is not executable: %v", info.Mode())
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != Script(Options{}) {
		t.Fatalf("unexpected hook contents:\n%s", raw)
	}
}

func TestInstallRefusesOverwriteWithoutForce(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	hooks := filepath.Join(root, ".git", "hooks")
	if err := os.MkdirAll(hooks, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	existing := filepath.Join(hooks, "pre-commit")
	if err := os.WriteFile(existing, []byte("#!/bin/sh\nexit 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Install(root, Options{}); !errors.Is(err, ErrHookExists) {
		t.Fatalf("expected ErrHookExists, got %v", err)
	}
	raw, _ := os.ReadFile(existing)
	if string(raw) != "#!/bin/sh\nexit 0\n" {
		t.Fatalf("existing hook was modified")
	}

	if _, err := Install(root, Options{Force: true}); err != nil {
		t.Fatalf("Install --force: %v", err)
	}
	raw, _ = os.ReadFile(existing)
	if !strings.Contains(string(raw), "lemming format .") {
		t.Fatalf("hook was not replaced:\n%s", raw)
	}
	info, _ := os.Stat(existing)
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("forced hook is not executable: %v", info.Mode())
	}
}
