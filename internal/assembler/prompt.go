package assembler

import (
	"fmt"
	"path"
	"strings"

	"github.com/animus-coder/visualedit/internal/edit"
)

const defaultPreamble = `You are an expert React/Next.js engineer. A developer pointed at elements of a rendered page and described a change they want. Analyse the request, then implement it by editing the project files.

## PROJECT CONTEXT
- TypeScript and React components; server actions live under app/actions/
- Styling uses Tailwind CSS utility classes
- File relationships below come from a precomputed dependency graph`

const taskSection = `## TASK
1. ANALYSIS: work out what has to change and why
2. PLANNING: decide which files to edit and in which order
3. IMPLEMENTATION: make the edits with your file editing tools
4. VALIDATION: check the edits are consistent with the dependent files listed above

## REQUIREMENTS
- Preserve existing behaviour outside the requested change
- Keep TypeScript types sound and follow the existing code style
- Update dependent files when a change to a shared component requires it`

// renderPrompt renders the agent prompt. Output depends only on its arguments.
func renderPrompt(preamble string, req edit.ModificationRequest, files []FileAnalysis, blocks []fileBlock) string {
	if strings.TrimSpace(preamble) == "" {
		preamble = defaultPreamble
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(preamble))
	b.WriteString("\n\n## USER REQUEST\n")
	b.WriteString(`"` + req.UserRequest + "\"\n")

	b.WriteString("\n## SELECTED ELEMENTS\n")
	for i, el := range req.SelectedElements {
		fmt.Fprintf(&b, "%d. %s\n", i+1, describeElement(el))
	}

	b.WriteString("\n## DEPENDENCY ANALYSIS\n")
	for _, fa := range files {
		fmt.Fprintf(&b, "### %s\n", fa.File)
		fmt.Fprintf(&b, "- Selected elements: %d\n", fa.SelectedElements)
		fmt.Fprintf(&b, "- Dependencies: %s\n", listOrNone(fa.Dependencies))
		fmt.Fprintf(&b, "- Dependents: %s\n", listOrNone(fa.Dependents))
	}

	b.WriteString("\n## FILE CONTENTS\n")
	for _, blk := range blocks {
		fence := fenceFor(blk.content)
		fmt.Fprintf(&b, "### %s\n", blk.file)
		fmt.Fprintf(&b, "%s%s\n", fence, fenceLanguage(blk.file))
		b.WriteString(blk.content)
		if !strings.HasSuffix(blk.content, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(fence)
		b.WriteString("\n\n")
	}

	b.WriteString(taskSection)
	b.WriteString("\n")
	return b.String()
}

// renderSummary renders the log-oriented restatement of a bundle.
func renderSummary(req edit.ModificationRequest, bundle Bundle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis of modification request: \"%s\"\n\n", req.UserRequest)
	fmt.Fprintf(&b, "Direct files with selected elements: %s\n", listOrNone(bundle.DirectFiles))
	fmt.Fprintf(&b, "All relevant files analyzed: %s\n\n", listOrNone(bundle.RelevantFiles))

	b.WriteString("File analysis:\n")
	for _, fa := range bundle.Analysis.Files {
		fmt.Fprintf(&b, "- %s: %d selected elements\n", fa.File, fa.SelectedElements)
		fmt.Fprintf(&b, "    Dependencies: %s\n", listOrNone(fa.Dependencies))
		fmt.Fprintf(&b, "    Dependents: %s\n", listOrNone(fa.Dependents))
	}

	a := bundle.Analysis
	embedded := len(bundle.RelevantFiles) - len(a.Omitted)
	fmt.Fprintf(&b, "\nContext: %d of %d files embedded", embedded, len(bundle.RelevantFiles))
	if len(a.Truncated) > 0 {
		fmt.Fprintf(&b, ", %d truncated", len(a.Truncated))
	}
	if len(a.Unreadable) > 0 {
		fmt.Fprintf(&b, ", %d unreadable", len(a.Unreadable))
	}
	fmt.Fprintf(&b, ", prompt %d bytes", a.PromptBytes)
	return b.String()
}

func describeElement(el edit.ElementInfo) string {
	component := el.Component
	if component == "" {
		component = "(anonymous)"
	}
	tag := el.Element
	if tag == "" {
		tag = "element"
	}
	classes := el.Classes
	if strings.TrimSpace(classes) == "" {
		classes = "none"
	}
	return fmt.Sprintf("%s at %s:%d <%s> classes=%q position=%s size=%s",
		component, el.File, el.Line, tag, classes, orDash(el.Position), orDash(el.Size))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// fenceFor returns a backtick fence longer than any backtick run inside content.
func fenceFor(content string) string {
	longest, run := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

func fenceLanguage(file string) string {
	switch strings.ToLower(path.Ext(file)) {
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".css":
		return "css"
	case ".scss":
		return "scss"
	case ".json":
		return "json"
	case ".html":
		return "html"
	case ".md", ".mdx":
		return "markdown"
	default:
		return ""
	}
}
