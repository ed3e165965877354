package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/browser"
	"github.com/animus-coder/visualedit/internal/config"
	"github.com/animus-coder/visualedit/internal/overlay"
	"github.com/animus-coder/visualedit/internal/pipeline"
	"github.com/animus-coder/visualedit/internal/toolbar"
)

// NewOpenCmd opens the page in a controlled browser and runs the selection overlay on it.
func NewOpenCmd(opts *Options) *cobra.Command {
	var (
		headless bool
		local    bool
	)

	cmd := &cobra.Command{
		Use:   "open [url]",
		Short: "Open a page with the visual edit overlay",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort

			if len(args) == 1 {
				cfg.Browser.URL = args[0]
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			apply, err := applier(cfg, local, logger)
			if err != nil {
				return err
			}

			session, err := browser.Open(ctx, cfg.Browser, logger.Named("browser"))
			if err != nil {
				return err
			}
			defer session.Close() //nolint:errcheck // best-effort

			out := cmd.OutOrStdout()
			ctrl := toolbar.New(session, apply, session, session, toolbar.Options{
				Attribute:    cfg.Overlay.Attribute,
				Position:     cfg.Overlay.Position,
				Theme:        cfg.Overlay.Theme,
				AutoActivate: cfg.Overlay.AutoActivate,
			}, logger.Named("toolbar"))
			ctrl.OnSelectionChanged = func(sel []overlay.Entry) {
				logger.Debug("selection changed", zap.Int("selected", len(sel)))
			}
			ctrl.OnApplied = func(r agentexec.Result) {
				writeResult(out, r)
			}

			fmt.Fprintln(out, titleStyle.Render("visualedit")+" "+faintStyle.Render(cfg.Browser.URL+" • Ctrl+C to quit"))
			if err := ctrl.Run(ctx, session); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&headless, "headless", false, "Run the launched browser without a window")
	cmd.Flags().BoolVar(&local, "local", false, "Run the agent in this process even when browser.remote is set")
	return cmd
}

// applier returns the in-process pipeline, or a daemon client when browser.remote is
// set and local is false.
func applier(cfg *config.Config, local bool, logger *zap.Logger) (toolbar.Applier, error) {
	if local || !cfg.Browser.Remote {
		p, err := pipeline.Build(cfg, nil, nil, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return newDaemonClient(cfg), nil
}
