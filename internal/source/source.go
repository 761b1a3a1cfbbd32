package source

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MaxFileBytes is the largest file Read will load.
const MaxFileBytes = 1 << 20

// File is a unit of source code to analyze. Path is the identity used for
// in-flight tracking; Name is its base name.
type File struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"-"`
}

// NewFile builds a File from in-memory content.
func NewFile(p, content string) File {
	return File{Path: p, Name: filepath.Base(p), Content: content}
}

// Read loads a file from disk.
func Read(p string) (File, error) {
	info, err := os.Stat(p)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", p)
	}
	if info.Size() > MaxFileBytes {
		return File{}, fmt.Errorf("%s is larger than %d bytes", p, MaxFileBytes)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return File{}, err
	}
	return NewFile(p, string(data)), nil
}

// ReadStdin reads all of r as a file called name. An empty name becomes
// "stdin.js".
func ReadStdin(r io.Reader, name string) (File, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("reading stdin: %w", err)
	}
	if len(data) > MaxFileBytes {
		return File{}, fmt.Errorf("stdin is larger than %d bytes", MaxFileBytes)
	}
	if name == "" {
		name = "stdin.js"
	}
	return NewFile(name, string(data)), nil
}

// Supported reports whether name has one of exts (case-insensitive). An
// empty exts list accepts nothing.
func Supported(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// MatchesAny returns true if the slash-separated path matches any of the
// glob patterns. "**" matches any number of directories, and a pattern
// without a slash is matched against the base name.
func MatchesAny(p string, patterns []string) bool {
	p = filepath.ToSlash(p)
	for _, pattern := range patterns {
		if !strings.Contains(pattern, "/") {
			if ok, err := path.Match(pattern, path.Base(p)); err == nil && ok {
				return true
			}
			continue
		}
		if matchSegments(strings.Split(pattern, "/"), strings.Split(p, "/")) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, segs []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pattern[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], segs[0]); err != nil || !ok {
			return false
		}
		pattern, segs = pattern[1:], segs[1:]
	}
	return len(segs) == 0
}

// Filter keeps paths that match include (or any path when include is
// empty), do not match exclude, and have a supported extension.
func Filter(paths []string, opts Options) []string {
	var out []string
	for _, p := range paths {
		if len(opts.Include) > 0 && !MatchesAny(p, opts.Include) {
			continue
		}
		if MatchesAny(p, opts.Exclude) {
			continue
		}
		if len(opts.Extensions) > 0 && !Supported(p, opts.Extensions) {
			continue
		}
		out = append(out, p)
	}
	return out
}
