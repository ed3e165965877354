package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// GitStatus reads working tree status through the git CLI.
type GitStatus struct {
	Dir string
}

// Status maps every changed or untracked path to its two-letter porcelain code.
// Paths are relative to the repository root.
func (g GitStatus) Status(ctx context.Context) (map[string]string, error) {
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--untracked-files=all")
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git status: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return parsePorcelain(stdout.String()), nil
}

func parsePorcelain(out string) map[string]string {
	status := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		code, file := line[:2], line[3:]
		if i := strings.Index(file, " -> "); i >= 0 {
			file = file[i+len(" -> "):]
		}
		status[strings.Trim(file, `"`)] = code
	}
	return status
}

// ChangedBetween lists, sorted, the paths whose status differs between two snapshots.
// A file that was already dirty and stays dirty with the same code is not reported.
func ChangedBetween(before, after map[string]string) []string {
	var out []string
	for file, code := range after {
		if before[file] != code {
			out = append(out, file)
		}
	}
	for file := range before {
		if _, ok := after[file]; !ok {
			out = append(out, file)
		}
	}
	sort.Strings(out)
	return out
}
