package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/animus-coder/visualedit/internal/depgraph"
	"github.com/animus-coder/visualedit/internal/workspace"
)

// NewDoctorCmd returns a health-check command validating config and environment.
func NewDoctorCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort

			out := cmd.OutOrStdout()
			ok := func(msg string) { fmt.Fprintln(out, successStyle.Render("✓ ")+msg) }
			warn := func(msg string) { fmt.Fprintln(out, warnStyle.Render("! ")+msg) }

			fmt.Fprintln(out, "Config OK.")

			sources, err := workspace.NewSources(cfg.Project.Root, cfg.Project.SourceDirs, cfg.Project.DefaultSourceDir)
			if err != nil {
				return fmt.Errorf("project root: %w", err)
			}
			ok("project root " + sources.Root())

			if path, err := exec.LookPath(cfg.Agent.Command); err != nil {
				warn(fmt.Sprintf("agent command %q not found on PATH", cfg.Agent.Command))
			} else {
				ok("agent " + path)
			}

			loader := depgraph.NewLoader(sources.Root(), cfg.Project.GraphPath, logger.Named("depgraph"))
			if _, err := os.Stat(loader.Path); err != nil {
				warn("dependency graph " + loader.Path + " missing; context will hold direct files only")
			} else {
				ok(fmt.Sprintf("dependency graph %s (%d files)", loader.Path, loader.Load().Len()))
			}

			fmt.Fprintf(out, "Overlay attribute: %s, position: %s, theme: %s\n", cfg.Overlay.Attribute, cfg.Overlay.Position, cfg.Overlay.Theme)
			fmt.Fprintf(out, "Daemon: %s (%s), metrics: %v\n", cfg.Server.Addr, cfg.Server.Transport, cfg.Server.MetricsEnabled)
			return nil
		},
	}
}
