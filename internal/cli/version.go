package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/animus-coder/visualedit/internal/version"
)

// NewVersionCmd prints the build details and, when a configuration loads, the agent
// command that apply runs.
func NewVersionCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show visualedit version and the configured agent",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "visualedit "+version.Full())

			cfg, err := loadConfig(opts)
			if err != nil {
				fmt.Fprintln(out, faintStyle.Render("agent: unknown (no usable config)"))
				return
			}
			agent := strings.TrimSpace(strings.Join(append([]string{cfg.Agent.Command}, cfg.Agent.Args...), " "))
			fmt.Fprintln(out, "agent: "+agent)
		},
	}
}
