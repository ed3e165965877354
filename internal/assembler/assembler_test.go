package assembler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/animus-coder/visualedit/internal/depgraph"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/workspace"
)

type staticGraph struct{ g depgraph.Graph }

func (s staticGraph) Load() depgraph.Graph { return s.g }

type mapFiles map[string]string

func (m mapFiles) ReadFile(file string) (string, error) {
	content, ok := m[file]
	if !ok {
		return "", errors.New("no such file")
	}
	return content, nil
}

type recordingMetrics struct {
	direct, relevant, bytes int
}

func (r *recordingMetrics) RecordContext(direct, relevant, embeddedBytes int) {
	r.direct, r.relevant, r.bytes = direct, relevant, embeddedBytes
}

// chain: page -> grid -> card -> price; header is imported by page and cart.
func chainGraph(t *testing.T) depgraph.Graph {
	t.Helper()
	g, err := depgraph.Parse([]byte(`{
		"page.tsx": ["components/header.tsx", "components/product-grid.tsx"],
		"components/product-grid.tsx": ["components/product-card.tsx"],
		"components/product-card.tsx": ["components/price.tsx"],
		"cart/page.tsx": ["components/header.tsx"]
	}`))
	require.NoError(t, err)
	return g
}

func allFiles() mapFiles {
	return mapFiles{
		"page.tsx":                    "export default function Page() {}\n",
		"components/header.tsx":       "export function Header() {}\n",
		"components/product-grid.tsx": "export function ProductGrid() {}\n",
		"components/product-card.tsx": "export function ProductCard() {}\n",
		"components/price.tsx":        "export function Price() {}\n",
		"cart/page.tsx":               "export default function Cart() {}\n",
	}
}

func request(files ...string) edit.ModificationRequest {
	req := edit.ModificationRequest{UserRequest: "make the title larger"}
	for i, f := range files {
		req.SelectedElements = append(req.SelectedElements, edit.ElementInfo{
			Component: "Comp",
			File:      f,
			Line:      10 + i,
			Element:   "h1",
			Position:  "10x20",
			Size:      "300x40",
			Classes:   "text-xl font-bold",
		})
	}
	return req
}

func TestRelevantFilesAreOneHopOnly(t *testing.T) {
	g := chainGraph(t)
	a := New(staticGraph{g}, allFiles(), Limits{}, nil)

	b := a.Assemble(context.Background(), request("components/product-grid.tsx"))

	require.Equal(t, []string{"components/product-grid.tsx"}, b.DirectFiles)
	require.Equal(t, []string{"components/product-grid.tsx", "components/product-card.tsx", "page.tsx"}, b.RelevantFiles)
	require.NotContains(t, b.RelevantFiles, "components/price.tsx", "two hops away")
	require.NotContains(t, b.RelevantFiles, "components/header.tsx", "sibling, not a neighbour")

	direct := make(map[string]bool)
	for _, f := range b.DirectFiles {
		direct[f] = true
	}
	for _, f := range b.RelevantFiles {
		if direct[f] {
			continue
		}
		var neighbour bool
		for _, d := range b.DirectFiles {
			for _, n := range append(g.Dependencies(d), g.Dependents(d)...) {
				if n == f {
					neighbour = true
				}
			}
		}
		require.True(t, neighbour, "%s is not a one-hop neighbour", f)
	}
}

func TestFilesAbsentFromGraphYieldDirectFilesOnly(t *testing.T) {
	a := New(staticGraph{chainGraph(t)}, allFiles(), Limits{}, nil)

	b := a.Assemble(context.Background(), request("lib/products.ts", "lib/types.ts", "lib/products.ts"))

	require.Equal(t, []string{"lib/products.ts", "lib/types.ts"}, b.DirectFiles)
	require.Equal(t, b.DirectFiles, b.RelevantFiles)
	require.Empty(t, b.Analysis.DependentFiles)
}

func TestEmptyGraphStillAssembles(t *testing.T) {
	a := New(staticGraph{}, allFiles(), Limits{}, nil)
	b := a.Assemble(context.Background(), request("page.tsx"))
	require.Equal(t, []string{"page.tsx"}, b.RelevantFiles)
	require.Contains(t, b.Prompt, "export default function Page()")
}

func TestUnreadableFileGetsMarker(t *testing.T) {
	files := allFiles()
	delete(files, "components/header.tsx")
	a := New(staticGraph{chainGraph(t)}, files, Limits{}, nil)

	b := a.Assemble(context.Background(), request("page.tsx"))

	require.Contains(t, b.RelevantFiles, "components/header.tsx")
	require.True(t, strings.HasPrefix(b.FileContents["components/header.tsx"], "// could not read components/header.tsx"))
	require.Equal(t, []string{"components/header.tsx"}, b.Analysis.Unreadable)
	require.Contains(t, b.Prompt, "### components/header.tsx\n```tsx\n// could not read")
}

func TestPromptLayout(t *testing.T) {
	a := New(staticGraph{chainGraph(t)}, allFiles(), Limits{}, nil)
	req := request("page.tsx", "components/header.tsx")

	b := a.Assemble(context.Background(), req)

	require.Contains(t, b.Prompt, "## USER REQUEST\n\"make the title larger\"\n")
	require.Contains(t, b.Prompt, `1. Comp at page.tsx:10 <h1> classes="text-xl font-bold" position=10x20 size=300x40`)
	require.Contains(t, b.Prompt, `2. Comp at components/header.tsx:11 <h1>`)
	require.Contains(t, b.Prompt, "### page.tsx\n- Selected elements: 1\n- Dependencies: components/header.tsx, components/product-grid.tsx\n- Dependents: none\n")
	require.Contains(t, b.Prompt, "### components/header.tsx\n- Selected elements: 1\n- Dependencies: none\n- Dependents: page.tsx, cart/page.tsx\n")
	for _, f := range b.RelevantFiles {
		require.Contains(t, b.Prompt, "### "+f+"\n```tsx\n")
	}
	require.Less(t, strings.Index(b.Prompt, "## USER REQUEST"), strings.Index(b.Prompt, "## SELECTED ELEMENTS"))
	require.Less(t, strings.Index(b.Prompt, "## DEPENDENCY ANALYSIS"), strings.Index(b.Prompt, "## FILE CONTENTS"))
	require.Equal(t, len(b.Prompt), b.Analysis.PromptBytes)
}

func TestPromptKeepsUserRequestVerbatim(t *testing.T) {
	a := New(staticGraph{chainGraph(t)}, allFiles(), Limits{}, nil)
	req := request("page.tsx")
	req.UserRequest = "Make the \"Buy\" button red\nand bigger, café"

	b := a.Assemble(context.Background(), req)

	require.Contains(t, b.Prompt, "## USER REQUEST\n\""+req.UserRequest+"\"\n")
	require.Contains(t, b.Summary, "Analysis of modification request: \""+req.UserRequest+"\"\n")
	require.NotContains(t, b.Prompt, `\"Buy\"`)
}

func TestAssembleIsDeterministic(t *testing.T) {
	a := New(staticGraph{chainGraph(t)}, allFiles(), Limits{}, nil)
	req := request("page.tsx", "components/product-card.tsx")

	first := a.Assemble(context.Background(), req)
	second := a.Assemble(context.Background(), req)
	require.Equal(t, first.Prompt, second.Prompt)
	require.Equal(t, first.Summary, second.Summary)
}

func TestSummary(t *testing.T) {
	a := New(staticGraph{chainGraph(t)}, allFiles(), Limits{}, nil)
	b := a.Assemble(context.Background(), request("page.tsx"))

	require.Contains(t, b.Summary, "Direct files with selected elements: page.tsx")
	require.Contains(t, b.Summary, "- page.tsx: 1 selected elements")
	require.Contains(t, b.Summary, "Context: 3 of 3 files embedded")
	require.Equal(t, "Analyzing 1 files with 1 selected elements", b.Analysis.Headline)
	require.Equal(t, []string{"components/header.tsx", "components/product-grid.tsx"}, b.Analysis.DependentFiles)
}

func TestLimitsOmitFilesButKeepRelevantSet(t *testing.T) {
	metrics := &recordingMetrics{}
	a := New(staticGraph{chainGraph(t)}, allFiles(), Limits{MaxFiles: 2}, nil)
	a.Metrics = metrics

	b := a.Assemble(context.Background(), request("page.tsx"))

	require.Len(t, b.RelevantFiles, 3)
	require.Equal(t, []string{"components/product-grid.tsx"}, b.Analysis.Omitted)
	require.Contains(t, b.Prompt, "### components/product-grid.tsx\n```tsx\n"+omittedMarker+"\n```")
	require.Equal(t, 1, metrics.direct)
	require.Equal(t, 3, metrics.relevant)
}

func TestLimitsTruncateLargeFiles(t *testing.T) {
	files := allFiles()
	files["page.tsx"] = strings.Repeat("é", 100)
	a := New(staticGraph{}, files, Limits{PerFileBytes: 51}, nil)

	b := a.Assemble(context.Background(), request("page.tsx"))

	require.Equal(t, []string{"page.tsx"}, b.Analysis.Truncated)
	require.Contains(t, b.Prompt, strings.Repeat("é", 25)+truncatedMarker)
	require.Len(t, b.FileContents["page.tsx"], 200, "raw contents stay intact")
}

func TestFenceGrowsPastEmbeddedBackticks(t *testing.T) {
	require.Equal(t, "```", fenceFor("const a = `x`"))
	require.Equal(t, "````", fenceFor("see ```js\ncode\n```"))
}

func TestAssembleReadsThroughWorkspace(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "components"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "page.tsx"), []byte("page body\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "components", "header.tsx"), []byte("header body\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dependency-graph.json"), []byte(`{"page.tsx":["components/header.tsx"]}`), 0o644))

	src, err := workspace.NewSources(root, []string{"app", "components"}, "app")
	require.NoError(t, err)
	a := New(depgraph.NewLoader(root, "dependency-graph.json", nil), src, Limits{}, nil)

	b := a.Assemble(context.Background(), request("page.tsx"))
	require.Equal(t, "page body\n", b.FileContents["page.tsx"])
	require.Equal(t, "header body\n", b.FileContents["components/header.tsx"])
}
