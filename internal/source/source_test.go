package source

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		path     string
		patterns []string
		want     bool
	}{
		{"node_modules/express/index.js", []string{"node_modules/**"}, true},
		{"index.js", []string{"node_modules/**"}, false},
		{"lib/app.min.js", []string{"**/*.min.js"}, true},
		{"app.min.js", []string{"**/*.min.js"}, true},
		{"dist/bundle.js", []string{"**/dist/**"}, true},
		{"packages/web/dist/a/b.js", []string{"**/dist/**"}, true},
		{"src/index.js", []string{"*.js"}, true},
		{"src/index.ts", []string{"*.js"}, false},
		{"src/routes/user.js", []string{"src/*.js"}, false},
		{"src/routes/user.js", []string{"src/**/*.js"}, true},
		{"main.js", nil, false},
	}
	for _, tt := range tests {
		got := MatchesAny(tt.path, tt.patterns)
		if got != tt.want {
			t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.path, tt.patterns, got, tt.want)
		}
	}
}

func TestSupported(t *testing.T) {
	exts := []string{".js", "mjs"}
	tests := map[string]bool{
		"app.js":     true,
		"APP.JS":     true,
		"worker.mjs": true,
		"index.ts":   false,
		"Makefile":   false,
		"README.md":  false,
	}
	for name, want := range tests {
		if got := Supported(name, exts); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
	if Supported("app.js", nil) {
		t.Error("empty extension list should accept nothing")
	}
}

func TestFilter(t *testing.T) {
	paths := []string{"index.js", "lib/db.js", "node_modules/x/index.js", "dist/app.min.js", "README.md"}
	got := Filter(paths, Options{
		Include:    []string{"**/*.js"},
		Exclude:    []string{"node_modules/**", "**/*.min.js"},
		Extensions: []string{".js"},
	})
	want := []string{"index.js", "lib/db.js"}
	if !slices.Equal(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "app.js")
	if err := os.WriteFile(p, []byte("console.log('hi');\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Read(p)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if f.Name != "app.js" || f.Content != "console.log('hi');\n" {
		t.Errorf("File = %+v", f)
	}

	if _, err := Read(dir); err == nil {
		t.Error("reading a directory should fail")
	}
	if _, err := Read(filepath.Join(dir, "missing.js")); err == nil {
		t.Error("reading a missing file should fail")
	}
}

func TestReadStdin(t *testing.T) {
	f, err := ReadStdin(strings.NewReader("let a;"), "")
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "stdin.js" || f.Content != "let a;" {
		t.Errorf("File = %+v", f)
	}

	big := strings.NewReader(strings.Repeat("x", MaxFileBytes+1))
	if _, err := ReadStdin(big, "big.js"); err == nil {
		t.Error("oversized stdin should fail")
	}
}

func setupTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test",
			"GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=test",
			"GIT_COMMITTER_EMAIL=test@test.com",
		)
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("command %v failed: %v\n%s", args, err, out)
		}
	}
	write := func(name, content string) {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	run("git", "init")
	write("index.js", "require('./lib/db');\n")
	write("lib/db.js", "module.exports = {};\n")
	write("node_modules/dep/index.js", "module.exports = 1;\n")
	write("README.md", "# app\n")
	run("git", "add", "-A")
	run("git", "commit", "-m", "init")

	return dir
}

func TestTracked(t *testing.T) {
	dir := setupTestRepo(t)

	files, err := Tracked(context.Background(), Options{
		Dir:        dir,
		Exclude:    []string{"node_modules/**"},
		Extensions: []string{".js"},
	})
	if err != nil {
		t.Fatalf("Tracked error: %v", err)
	}
	want := []string{"index.js", "lib/db.js"}
	if !slices.Equal(files, want) {
		t.Errorf("Tracked = %v, want %v", files, want)
	}

	loaded, errs := ReadAll(dir, files)
	if len(errs) != 0 || len(loaded) != 2 || loaded[1].Path != "lib/db.js" {
		t.Errorf("ReadAll = %+v, %v", loaded, errs)
	}
}

func TestStaged(t *testing.T) {
	dir := setupTestRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "lib", "db.js"), []byte("module.exports = { a: 1 };\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command("git", "add", "lib/db.js")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git add: %v\n%s", err, out)
	}

	files, err := Staged(context.Background(), Options{Dir: dir, Extensions: []string{".js"}})
	if err != nil {
		t.Fatalf("Staged error: %v", err)
	}
	if !slices.Equal(files, []string{"lib/db.js"}) {
		t.Errorf("Staged = %v", files)
	}
}

func TestTracked_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	if _, err := Tracked(context.Background(), Options{Dir: t.TempDir()}); err == nil {
		t.Error("expected error outside a git repository")
	}
}
