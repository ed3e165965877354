// Package workspace reads project source files named by element metadata and the
// dependency graph.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
)

// Sources maps file paths as they appear in element metadata and the dependency
// graph onto files under the project root.
type Sources struct {
	guard      *PathGuard
	sourceDirs []string
	defaultDir string
}

// NewSources builds a reader rooted at root. Paths starting with one of sourceDirs are
// taken as-is; anything else is assumed to live under defaultDir.
func NewSources(root string, sourceDirs []string, defaultDir string) (*Sources, error) {
	guard, err := NewPathGuard(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	dirs := make([]string, 0, len(sourceDirs))
	for _, d := range sourceDirs {
		d = strings.Trim(strings.TrimSpace(d), "/")
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	defaultDir = strings.Trim(strings.TrimSpace(defaultDir), "/")
	if defaultDir == "" {
		return nil, errors.New("default source directory is required")
	}
	return &Sources{guard: guard, sourceDirs: dirs, defaultDir: defaultDir}, nil
}

// Root returns the absolute project root.
func (s *Sources) Root() string {
	return s.guard.BaseDir
}

// Locate returns the project-relative path for file.
func (s *Sources) Locate(file string) string {
	file = strings.TrimPrefix(path.Clean(strings.ReplaceAll(file, "\\", "/")), "./")
	for _, dir := range s.sourceDirs {
		if strings.HasPrefix(file, dir+"/") {
			return file
		}
	}
	return path.Join(s.defaultDir, file)
}

// ReadFile returns the contents of file as text.
func (s *Sources) ReadFile(file string) (string, error) {
	resolved, err := s.guard.Resolve(s.Locate(file))
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", file)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
