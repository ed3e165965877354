package workspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePorcelain(t *testing.T) {
	got := parsePorcelain(" M app/page.tsx\n?? components/new.tsx\nR  old.tsx -> components/renamed.tsx\n?? \"with space.tsx\"\n")

	require.Equal(t, map[string]string{
		"app/page.tsx":           " M",
		"components/new.tsx":     "??",
		"components/renamed.tsx": "R ",
		"with space.tsx":         "??",
	}, got)
}

func TestChangedBetween(t *testing.T) {
	before := map[string]string{"a.tsx": " M", "b.tsx": "??"}
	after := map[string]string{"a.tsx": " M", "c.tsx": " M", "b.tsx": "A "}

	require.Equal(t, []string{"b.tsx", "c.tsx"}, ChangedBetween(before, after))
	require.Equal(t, []string{"a.tsx", "b.tsx"}, ChangedBetween(before, nil))
	require.Empty(t, ChangedBetween(before, before))
}

func TestGitStatusReportsAgentEdits(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		c := exec.Command("git", args...)
		c.Dir = dir
		out, err := c.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test User")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.tsx"), []byte("v1\n"), 0o644))
	run("add", "page.tsx")
	run("commit", "-m", "init")

	g := GitStatus{Dir: dir}
	before, err := g.Status(context.Background())
	require.NoError(t, err)
	require.Empty(t, before)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.tsx"), []byte("v2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.tsx"), []byte("new\n"), 0o644))

	after, err := g.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"extra.tsx", "page.tsx"}, ChangedBetween(before, after))
}

func TestGitStatusOutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(t.TempDir()))
	_, err := GitStatus{Dir: t.TempDir()}.Status(context.Background())
	require.ErrorContains(t, err, "git status")
}
