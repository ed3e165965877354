package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/animus-coder/visualedit/internal/agentexec"
)

const selfTestPrompt = "This is a connectivity check from visualedit. Do not modify any files. Reply with the single word: ok"

// NewSelfTestCmd runs the configured agent once with a fixed prompt.
func NewSelfTestCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Invoke the coding agent with a smoke-test prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort

			agentCfg := cfg.Agent
			if agentCfg.WorkingDir == "" {
				agentCfg.WorkingDir = cfg.Project.Root
			}
			orch := agentexec.New(agentCfg, nil, logger.Named("agentexec"))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, faintStyle.Render("running "+cfg.Agent.Command+" ..."))
			result := orch.Invoke(cmd.Context(), selfTestPrompt)
			writeResult(out, result)
			if _, ok := result.(agentexec.Success); !ok {
				return errApplyFailed
			}
			return nil
		},
	}
}
