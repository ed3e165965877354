package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/config"
	"github.com/animus-coder/visualedit/internal/pipeline"
	"github.com/animus-coder/visualedit/internal/rpc"
	editrpc "github.com/animus-coder/visualedit/internal/rpc/edit"
)

// errApplyFailed makes the process exit non-zero after a failed agent run was reported.
var errApplyFailed = errors.New("apply failed")

// NewApplyCmd sends a request to the daemon, or runs it in-process with --local.
func NewApplyCmd(opts *Options) *cobra.Command {
	var (
		input    string
		request  string
		elements []string
		local    bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run the coding agent on a modification request",
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
			if err := req.Validate(); err != nil {
				return fmt.Errorf("invalid request: %w", err)
			}

			out := cmd.OutOrStdout()
			var (
				result  agentexec.Result
				changed []string
			)
			if local {
				p, err := pipeline.Build(cfg, nil, nil, logger)
				if err != nil {
					return err
				}
				rep, err := p.Execute(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, faintStyle.Render(rep.Bundle.Analysis.Headline))
				result, changed = rep.Result, rep.ChangedFiles
			} else {
				client := newDaemonClient(cfg)
				client.OnEvent = func(ev rpc.EditEvent) {
					if ev.Type == rpc.EventAnalysis && ev.Analysis != nil {
						fmt.Fprintln(out, faintStyle.Render(ev.Analysis.Headline))
					}
				}
				logger.Debug("sending request to daemon", zap.String("url", client.BaseURL), zap.String("transport", client.Transport))
				result, err = client.Apply(cmd.Context(), req)
				if err != nil {
					return err
				}
			}

			writeResult(out, result)
			if len(changed) > 0 {
				fmt.Fprintln(out, faintStyle.Render("changed: "+strings.Join(changed, ", ")))
			}
			if _, ok := result.(agentexec.Success); !ok {
				return errApplyFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Request JSON file ({userRequest, selectedElements}); - reads stdin")
	cmd.Flags().StringVar(&request, "request", "", "Change to make, overrides the file's userRequest")
	cmd.Flags().StringArrayVar(&elements, "element", nil, "Selected element as file:line[:component] (repeatable)")
	cmd.Flags().BoolVar(&local, "local", false, "Run the agent in this process instead of the daemon")
	return cmd
}

func newDaemonClient(cfg *config.Config) *editrpc.Client {
	transport := strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
	if transport == "" {
		transport = "connect"
	}
	c := &editrpc.Client{
		BaseURL:   daemonURL(cfg.Server.Addr),
		Transport: transport,
		SessionID: "cli-" + uuid.NewString(),
	}
	if transport == "connect" {
		c.HTTPClient = buildH2CClient()
	}
	return c
}

func daemonURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func buildH2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}
