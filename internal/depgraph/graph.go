// Package depgraph reads the precomputed file dependency graph and answers one-hop
// dependency and dependent queries against it.
package depgraph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Graph maps a file path to the ordered list of files it imports. Keys keep the
// order they had in the source document so that reverse lookups are deterministic.
type Graph struct {
	keys []string
	deps map[string][]string
}

// New builds a graph from ordered keys and their dependency lists. Duplicate keys
// keep their first position and the last list seen.
func New(keys []string, deps map[string][]string) Graph {
	g := Graph{deps: make(map[string][]string, len(deps))}
	for _, k := range keys {
		list, ok := deps[k]
		if !ok {
			continue
		}
		if _, seen := g.deps[k]; !seen {
			g.keys = append(g.keys, k)
		}
		g.deps[k] = append([]string(nil), list...)
	}
	return g
}

// Len returns the number of files with known dependencies.
func (g Graph) Len() int {
	return len(g.keys)
}

// Files returns the graph keys in document order.
func (g Graph) Files() []string {
	return append([]string(nil), g.keys...)
}

// Dependencies returns the files imported by file. An unknown file has none.
func (g Graph) Dependencies(file string) []string {
	return append([]string(nil), g.deps[file]...)
}

// Dependents returns every file whose dependency list contains file, in key order.
func (g Graph) Dependents(file string) []string {
	var out []string
	for _, k := range g.keys {
		for _, dep := range g.deps[k] {
			if dep == file {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// Parse decodes a graph document: a JSON object whose values are arrays of file paths.
func Parse(data []byte) (Graph, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return Graph{}, fmt.Errorf("decode graph: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Graph{}, errors.New("decode graph: top-level value must be an object")
	}

	var (
		keys []string
		deps = make(map[string][]string)
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Graph{}, fmt.Errorf("decode graph: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return Graph{}, fmt.Errorf("decode graph: unexpected key %v", tok)
		}
		var list []string
		if err := dec.Decode(&list); err != nil {
			return Graph{}, fmt.Errorf("decode graph entry %q: %w", key, err)
		}
		keys = append(keys, key)
		deps[key] = list
	}
	if _, err := dec.Token(); err != nil {
		return Graph{}, fmt.Errorf("decode graph: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Graph{}, errors.New("decode graph: trailing data after object")
	}

	return New(keys, deps), nil
}

// Loader reads the graph document from a fixed location on every call, so a graph
// regenerated while the harness runs is picked up by the next request.
type Loader struct {
	Path   string
	Logger *zap.Logger
}

// NewLoader returns a loader for path, resolved against root when relative.
func NewLoader(root, path string, logger *zap.Logger) *Loader {
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Path: path, Logger: logger}
}

// Load returns the graph, or an empty graph when the document is missing or malformed.
func (l *Loader) Load() Graph {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		logger.Warn("dependency graph unavailable", zap.String("path", l.Path), zap.Error(err))
		return Graph{}
	}
	g, err := Parse(data)
	if err != nil {
		logger.Warn("dependency graph malformed", zap.String("path", l.Path), zap.Error(err))
		return Graph{}
	}
	logger.Debug("dependency graph loaded", zap.String("path", l.Path), zap.Int("files", g.Len()))
	return g
}
