package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/agentexec/mock"
	"github.com/animus-coder/visualedit/internal/config"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/rpc"
	editrpc "github.com/animus-coder/visualedit/internal/rpc/edit"
)

func newTestServer(t *testing.T, transport string, sp agentexec.Spawner) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "page.tsx"), []byte("export default function Page() {}"), 0o644))

	cfg := &config.Config{
		Project: config.ProjectConfig{Root: root, GraphPath: "dependency-graph.json", SourceDirs: []string{"app"}, DefaultSourceDir: "app"},
		Agent:   config.AgentConfig{Command: "claude", Args: []string{"-p", "--output-format", "json"}},
		Server:  config.ServerConfig{Addr: "127.0.0.1:0", MetricsEnabled: true, Transport: transport},
	}
	srv, err := NewServer(cfg, sp, zaptest.NewLogger(t))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func request() edit.ModificationRequest {
	return edit.ModificationRequest{
		UserRequest:      "add a border",
		SelectedElements: []edit.ElementInfo{{Component: "Page", File: "page.tsx", Line: 1, Element: "main"}},
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "ndjson", &mock.Spawner{})
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), `"status":"ok"`)
}

func TestApplyOverNDJSONRecordsMetrics(t *testing.T) {
	sp := &mock.Spawner{Script: mock.Success(`{"result":"bordered","cost_usd":0.03}`)}
	ts := newTestServer(t, "ndjson", sp)

	c := &editrpc.Client{BaseURL: ts.URL, Transport: "ndjson"}
	res, err := c.Apply(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, "bordered", res.Text())
	require.Contains(t, sp.Stdin(0), "export default function Page() {}")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), `visualedit_agent_runs_total{outcome="success"} 1`)
	require.Contains(t, string(body), "visualedit_context_embedded_bytes")
}

func TestApplyOverConnect(t *testing.T) {
	sp := &mock.Spawner{Script: []mock.Step{mock.Stderr("no credits"), mock.Exit(1), mock.Close(1)}}
	ts := newTestServer(t, "connect", sp)

	c := &editrpc.Client{BaseURL: ts.URL, Transport: "connect"}
	res, err := c.Apply(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, agentexec.Failure{Reason: "no credits"}, res)
}

func TestAnalyzeDoesNotSpawn(t *testing.T) {
	sp := &mock.Spawner{}
	ts := newTestServer(t, "ndjson", sp)

	body, err := json.Marshal(request())
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+editrpc.AnalyzePath, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out rpc.AnalyzeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, []string{"page.tsx"}, out.Analysis.FilesToModify)
	require.Contains(t, out.Prompt, "add a border")
	require.Zero(t, sp.Spawns())
}

func TestAnalyzeRejectsInvalidRequest(t *testing.T) {
	ts := newTestServer(t, "ndjson", &mock.Spawner{})
	resp, err := http.Post(ts.URL+editrpc.AnalyzePath, "application/json", bytes.NewBufferString(`{"userRequest":""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
