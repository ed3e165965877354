package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/animus-coder/visualedit/internal/rpc"
)

// newProject lays out a small project with a dependency graph and returns its config path.
func newProject(t *testing.T, agent map[string]interface{}) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, body string) {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
	write("app/page.tsx", "export default function Page() { return <Header /> }\n")
	write("components/header.tsx", "export function Header() { return <h1>Shop</h1> }\n")
	write("dependency-graph.json", `{"page.tsx": ["components/header.tsx"]}`)

	cfg := map[string]interface{}{
		"project": map[string]interface{}{"root": root},
		"logging": map[string]interface{}{"level": "error"},
	}
	if agent != nil {
		cfg["agent"] = agent
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(root, "visualedit.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "visualedit "))
}

func TestVersionShowsConfiguredAgent(t *testing.T) {
	configPath := newProject(t, map[string]interface{}{
		"command": "my-agent",
		"args":    []string{"-p", "--output-format", "json"},
	})

	out, err := execute(t, "version", "--config", configPath)
	require.NoError(t, err)
	require.Contains(t, out, "agent: my-agent -p --output-format json\n")
}

func TestVersionWithoutConfig(t *testing.T) {
	out, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Contains(t, out, "agent: unknown")
}

func TestDoctorWithExampleConfig(t *testing.T) {
	configPath, err := filepath.Abs(filepath.Join("..", "..", "configs", "config.example.yaml"))
	require.NoError(t, err)
	require.FileExists(t, configPath)

	out, err := execute(t, "doctor", "--config", configPath)
	require.NoError(t, err)
	require.Contains(t, out, "Config OK")
	require.Contains(t, out, "Overlay attribute: data-pm-edit")
}

func TestDoctorReportsGraph(t *testing.T) {
	out, err := execute(t, "doctor", "--config", newProject(t, nil))
	require.NoError(t, err)
	require.Contains(t, out, "(1 files)")
}

func TestAnalyzeText(t *testing.T) {
	out, err := execute(t, "analyze", "--config", newProject(t, nil),
		"--request", "rename the shop", "--element", "components/header.tsx:1:Header")

	require.NoError(t, err)
	require.Contains(t, out, "Analyzing 1 files with 1 selected elements")
	require.Contains(t, out, "Direct files with selected elements: components/header.tsx")
	require.Contains(t, out, "All relevant files analyzed: components/header.tsx, page.tsx")
}

func TestAnalyzeJSONFromInput(t *testing.T) {
	cfgPath := newProject(t, nil)
	reqPath := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(reqPath, []byte(`{
		"userRequest": "make the title larger",
		"selectedElements": [{"component": "Page", "file": "page.tsx", "line": 1, "element": "main", "classes": "none"}]
	}`), 0o644))

	out, err := execute(t, "analyze", "--config", cfgPath, "--input", reqPath, "--format", "json")
	require.NoError(t, err)

	var resp rpc.AnalyzeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, []string{"page.tsx"}, resp.DirectFiles)
	require.Equal(t, []string{"page.tsx", "components/header.tsx"}, resp.RelevantFiles)
	require.Contains(t, resp.Prompt, "export function Header()")
	require.Equal(t, []string{"components/header.tsx"}, resp.Analysis.DependentFiles)
}

func TestAnalyzePromptAndYAML(t *testing.T) {
	cfgPath := newProject(t, nil)

	out, err := execute(t, "analyze", "--config", cfgPath, "--request", "x", "--element", "page.tsx:1", "--format", "prompt")
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "## USER REQUEST\n\"x\""))

	out, err = execute(t, "analyze", "--config", cfgPath, "--request", "x", "--element", "page.tsx:1", "--format", "yaml")
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	require.Contains(t, doc, "relevant_files")
	require.Contains(t, doc, "prompt")
}

func TestAnalyzeRejectsInvalidRequest(t *testing.T) {
	_, err := execute(t, "analyze", "--config", newProject(t, nil), "--element", "page.tsx:1")
	require.ErrorContains(t, err, "user request is empty")

	_, err = execute(t, "analyze", "--config", newProject(t, nil), "--request", "x", "--element", "page.tsx")
	require.ErrorContains(t, err, "want file:line[:component]")

	_, err = execute(t, "analyze", "--config", newProject(t, nil), "--request", "x", "--element", "page.tsx:1", "--format", "xml")
	require.ErrorContains(t, err, `unknown format "xml"`)
}

func TestApplyLocal(t *testing.T) {
	requireShell(t)
	cfgPath := newProject(t, map[string]interface{}{
		"command": "sh",
		"args":    []string{"-c", `cat > /dev/null; printf '%s' '{"result":"renamed","cost_usd":0.02}'`},
	})

	out, err := execute(t, "apply", "--local", "--config", cfgPath, "--request", "rename", "--element", "components/header.tsx:1")
	require.NoError(t, err)
	require.Contains(t, out, "Changes applied successfully (Cost: $0.0200)")
	require.Contains(t, out, "renamed")
}

func TestApplyLocalFailureExitsNonZero(t *testing.T) {
	requireShell(t)
	cfgPath := newProject(t, map[string]interface{}{
		"command": "sh",
		"args":    []string{"-c", "cat > /dev/null; echo boom >&2; exit 1"},
	})

	out, err := execute(t, "apply", "--local", "--config", cfgPath, "--request", "rename", "--element", "page.tsx:1")
	require.ErrorIs(t, err, errApplyFailed)
	require.Contains(t, out, "Failed to apply changes: boom")
}

func TestApplyValidatesBeforeContactingDaemon(t *testing.T) {
	_, err := execute(t, "apply", "--config", newProject(t, nil), "--request", "rename")
	require.ErrorContains(t, err, "no elements selected")
}

func TestSelfTest(t *testing.T) {
	requireShell(t)
	cfgPath := newProject(t, map[string]interface{}{
		"command": "sh",
		"args":    []string{"-c", `grep -q "single word" && echo ok`},
	})

	out, err := execute(t, "selftest", "--config", cfgPath)
	require.NoError(t, err)
	require.Contains(t, out, "Changes applied successfully")
	require.Contains(t, out, "ok")
}
