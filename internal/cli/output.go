package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/assembler"
	"github.com/animus-coder/visualedit/internal/rpc"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Output formats for analyze.
const (
	formatText   = "text"
	formatPrompt = "prompt"
	formatJSON   = "json"
	formatYAML   = "yaml"
)

func writeAnalysis(w io.Writer, format string, b assembler.Bundle) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatText:
		fmt.Fprintln(w, titleStyle.Render(b.Analysis.Headline))
		fmt.Fprintln(w, boxStyle.Render(b.Summary))
		for _, f := range b.Analysis.Unreadable {
			fmt.Fprintln(w, warnStyle.Render("unreadable: "+f))
		}
		return nil
	case formatPrompt:
		_, err := io.WriteString(w, b.Prompt)
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(rpc.NewAnalyzeResponse(b))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rpc.NewAnalyzeResponse(b)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, prompt, json or yaml)", format)
	}
}

func writeResult(w io.Writer, r agentexec.Result) {
	switch v := r.(type) {
	case agentexec.Success:
		line := "✓ Changes applied successfully"
		if v.CostUSD != nil {
			line += fmt.Sprintf(" (Cost: $%.4f)", *v.CostUSD)
		}
		if d, ok := v.Duration(); ok {
			line += fmt.Sprintf(" (Duration: %dms)", d.Milliseconds())
		}
		fmt.Fprintln(w, successStyle.Render(line))
		if v.SessionID != "" {
			fmt.Fprintln(w, faintStyle.Render("session "+v.SessionID))
		}
		if out := strings.TrimSpace(v.Output); out != "" {
			fmt.Fprintln(w, out)
		}
	case agentexec.Failure:
		fmt.Fprintln(w, errorStyle.Render("✗ Failed to apply changes: "+v.Reason))
		if out := strings.TrimSpace(v.Output); out != "" {
			fmt.Fprintln(w, faintStyle.Render(out))
		}
	}
}
