package source

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Options selects files from a git work tree.
type Options struct {
	// Dir is the work tree; empty means the current directory.
	Dir        string
	Include    []string
	Exclude    []string
	Extensions []string
}

// Tracked returns the git-tracked files under opts.Dir that pass Filter,
// sorted, relative to opts.Dir.
func Tracked(ctx context.Context, opts Options) ([]string, error) {
	out, err := gitOutput(ctx, opts.Dir, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	return Filter(splitLines(out), opts), nil
}

// Staged returns the added, copied or modified files in the index that pass
// Filter. Deleted files are left out.
func Staged(ctx context.Context, opts Options) ([]string, error) {
	out, err := gitOutput(ctx, opts.Dir, "diff", "--cached", "--name-only", "--diff-filter=ACM")
	if err != nil {
		return nil, fmt.Errorf("git diff --cached: %w", err)
	}
	return Filter(splitLines(out), opts), nil
}

// RepoRoot returns the top-level directory of the work tree containing dir.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	out, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ReadAll loads paths relative to dir. Files that cannot be read are
// returned as errors alongside the files that could.
func ReadAll(dir string, paths []string) ([]File, []error) {
	files := make([]File, 0, len(paths))
	var errs []error
	for _, p := range paths {
		f, err := Read(filepath.Join(dir, p))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		f.Path = p
		files = append(files, f)
	}
	return files, errs
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", err
	}
	return string(out), nil
}
