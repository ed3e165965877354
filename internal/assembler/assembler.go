// Package assembler expands a modification request into the context bundle handed to
// the coding agent: the selected files, their one-hop graph neighbours, their contents,
// and the rendered prompt.
package assembler

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/depgraph"
	"github.com/animus-coder/visualedit/internal/edit"
)

const (
	omittedMarker   = "// omitted: context budget exhausted"
	truncatedMarker = "\n// ... truncated"
)

// GraphSource yields the current dependency graph.
type GraphSource interface {
	Load() depgraph.Graph
}

// FileReader reads a file named the way element metadata and the graph name files.
type FileReader interface {
	ReadFile(file string) (string, error)
}

// Limits bounds how much file content is embedded into one prompt. Zero disables a limit.
type Limits struct {
	MaxFiles     int
	MaxBytes     int
	PerFileBytes int
}

// FileAnalysis is the dependency report for one direct file.
type FileAnalysis struct {
	File             string   `json:"file" yaml:"file"`
	SelectedElements int      `json:"selected_elements" yaml:"selected_elements"`
	Dependencies     []string `json:"dependencies" yaml:"dependencies"`
	Dependents       []string `json:"dependents" yaml:"dependents"`
}

// Analysis is the machine-readable side of a bundle.
type Analysis struct {
	Headline         string         `json:"analysis" yaml:"analysis"`
	FilesToModify    []string       `json:"files_to_modify" yaml:"files_to_modify"`
	DependentFiles   []string       `json:"dependent_files" yaml:"dependent_files"`
	Files            []FileAnalysis `json:"files" yaml:"files"`
	ModificationPlan string         `json:"modification_plan" yaml:"modification_plan"`
	Unreadable       []string       `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
	Omitted          []string       `json:"omitted,omitempty" yaml:"omitted,omitempty"`
	Truncated        []string       `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	PromptBytes      int            `json:"prompt_bytes" yaml:"prompt_bytes"`
}

// Bundle is the assembled context for one modification request.
type Bundle struct {
	DirectFiles   []string
	RelevantFiles []string
	FileContents  map[string]string
	Prompt        string
	Summary       string
	Analysis      Analysis
}

// Metrics receives context size observations.
type Metrics interface {
	RecordContext(direct, relevant, embeddedBytes int)
}

// Assembler builds bundles. It never fails: missing graph data or unreadable files
// only make the context smaller.
type Assembler struct {
	Graph    GraphSource
	Files    FileReader
	Limits   Limits
	Preamble string
	Metrics  Metrics
	Logger   *zap.Logger
}

// New constructs an assembler.
func New(graph GraphSource, files FileReader, limits Limits, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{Graph: graph, Files: files, Limits: limits, Logger: logger}
}

// Assemble computes the direct and relevant file sets for req, reads every relevant
// file and renders the agent prompt and analysis summary.
func (a *Assembler) Assemble(ctx context.Context, req edit.ModificationRequest) Bundle {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var graph depgraph.Graph
	if a.Graph != nil {
		graph = a.Graph.Load()
	}

	direct := req.Files()
	relevant := newOrderedSet(direct...)
	files := make([]FileAnalysis, 0, len(direct))
	for _, file := range direct {
		fa := FileAnalysis{
			File:             file,
			SelectedElements: req.CountIn(file),
			Dependencies:     graph.Dependencies(file),
			Dependents:       graph.Dependents(file),
		}
		relevant.add(fa.Dependencies...)
		relevant.add(fa.Dependents...)
		files = append(files, fa)
	}

	contents := make(map[string]string, relevant.len())
	var unreadable []string
	for _, file := range relevant.items {
		content, err := a.read(ctx, file)
		if err != nil {
			logger.Warn("context file unreadable", zap.String("file", file), zap.Error(err))
			content = fmt.Sprintf("// could not read %s: %v", file, err)
			unreadable = append(unreadable, file)
		}
		contents[file] = content
	}

	embedded := a.Limits.apply(relevant.items, contents)

	analysis := Analysis{
		Headline:         fmt.Sprintf("Analyzing %d files with %d selected elements", len(direct), len(req.SelectedElements)),
		FilesToModify:    direct,
		DependentFiles:   append([]string(nil), relevant.items[len(direct):]...),
		Files:            files,
		ModificationPlan: fmt.Sprintf("Agent will analyze and implement changes for %d files based on %d selected elements", len(direct), len(req.SelectedElements)),
		Unreadable:       unreadable,
		Omitted:          embedded.omitted,
		Truncated:        embedded.truncated,
	}

	prompt := renderPrompt(a.Preamble, req, files, embedded.blocks)
	analysis.PromptBytes = len(prompt)

	b := Bundle{
		DirectFiles:   direct,
		RelevantFiles: relevant.items,
		FileContents:  contents,
		Prompt:        prompt,
		Analysis:      analysis,
	}
	b.Summary = renderSummary(req, b)

	if a.Metrics != nil {
		a.Metrics.RecordContext(len(direct), relevant.len(), embedded.bytes)
	}
	logger.Info("context assembled",
		zap.Int("direct_files", len(direct)),
		zap.Int("relevant_files", relevant.len()),
		zap.Int("omitted", len(embedded.omitted)),
		zap.Int("prompt_bytes", len(prompt)),
	)
	return b
}

func (a *Assembler) read(ctx context.Context, file string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a.Files == nil {
		return "", fmt.Errorf("no file reader configured")
	}
	return a.Files.ReadFile(file)
}

type fileBlock struct {
	file    string
	content string
}

type embedResult struct {
	blocks    []fileBlock
	omitted   []string
	truncated []string
	bytes     int
}

// apply walks files in order and decides how much of each file's content goes into
// the prompt. Files over budget keep their block with an omission marker.
func (l Limits) apply(files []string, contents map[string]string) embedResult {
	var (
		res   embedResult
		count int
	)
	for _, file := range files {
		content := contents[file]

		if (l.MaxFiles > 0 && count >= l.MaxFiles) || (l.MaxBytes > 0 && res.bytes >= l.MaxBytes) {
			res.omitted = append(res.omitted, file)
			res.blocks = append(res.blocks, fileBlock{file: file, content: omittedMarker})
			continue
		}

		limit := l.PerFileBytes
		if l.MaxBytes > 0 {
			remaining := l.MaxBytes - res.bytes
			if limit == 0 || remaining < limit {
				limit = remaining
			}
		}
		if limit > 0 && len(content) > limit {
			content = cutUTF8(content, limit) + truncatedMarker
			res.truncated = append(res.truncated, file)
		}

		count++
		res.bytes += len(content)
		res.blocks = append(res.blocks, fileBlock{file: file, content: content})
	}
	return res
}

func cutUTF8(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet(items ...string) *orderedSet {
	s := &orderedSet{seen: make(map[string]struct{})}
	s.add(items...)
	return s
}

func (s *orderedSet) add(items ...string) {
	for _, it := range items {
		if _, ok := s.seen[it]; ok {
			continue
		}
		s.seen[it] = struct{}{}
		s.items = append(s.items, it)
	}
}

func (s *orderedSet) len() int {
	return len(s.items)
}
