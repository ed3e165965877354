package cli

import (
	"github.com/spf13/cobra"

	"github.com/animus-coder/visualedit/internal/pipeline"
)

// NewAnalyzeCmd assembles the agent context for a request without running the agent.
func NewAnalyzeCmd(opts *Options) *cobra.Command {
	var (
		input    string
		request  string
		elements []string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the files, dependency analysis and prompt a request would produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort

			req, err := loadRequest(cmd.InOrStdin(), input, request, elements)
			if err != nil {
				return err
			}

			p, err := pipeline.Build(cfg, nil, nil, logger)
			if err != nil {
				return err
			}
			bundle, err := p.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeAnalysis(cmd.OutOrStdout(), format, bundle)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Request JSON file ({userRequest, selectedElements}); - reads stdin")
	cmd.Flags().StringVar(&request, "request", "", "Change to make, overrides the file's userRequest")
	cmd.Flags().StringArrayVar(&elements, "element", nil, "Selected element as file:line[:component] (repeatable)")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, prompt, json or yaml")
	return cmd
}
