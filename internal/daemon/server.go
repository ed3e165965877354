package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/config"
	"github.com/animus-coder/visualedit/internal/observability"
	"github.com/animus-coder/visualedit/internal/pipeline"
	editrpc "github.com/animus-coder/visualedit/internal/rpc/edit"
	"github.com/animus-coder/visualedit/internal/version"
)

// Server hosts the daemon endpoints: health, metrics, analyze and the streaming apply.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	runner   editrpc.Runner
	metrics  *observability.Metrics
}

// NewServer constructs a daemon instance. spawner may be nil to run real agent processes.
func NewServer(cfg *config.Config, spawner agentexec.Spawner, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics()
	p, err := pipeline.Build(cfg, spawner, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	runner := &editrpc.PipelineRunner{Pipeline: p, Logger: logger.Named("edit")}
	return &Server{cfg: cfg, logger: logger, pipeline: p, runner: runner, metrics: metrics}, nil
}

// Handler returns the daemon's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.Handle(editrpc.AnalyzePath, editrpc.AnalyzeHandler{Analyzer: s.pipeline, Metrics: s.metrics})
	mux.Handle(editrpc.ApplyPath, editrpc.NewHandler(s.runner, s.metrics, s.logger.Named("ndjson")))

	if s.transport() == "ndjson" {
		return mux
	}
	path, handler := editrpc.NewConnectHandler(s.runner, s.metrics)
	mux.Handle(path, handler)
	return h2c.NewHandler(mux, &http2.Server{})
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting visualedit daemon",
			zap.String("addr", s.cfg.Server.Addr),
			zap.String("transport", s.transport()),
			zap.String("project_root", s.cfg.Project.Root),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down visualedit daemon")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) transport() string {
	t := strings.ToLower(strings.TrimSpace(s.cfg.Server.Transport))
	if t == "" {
		return "connect"
	}
	return t
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"status":"ok","version":%q}`, version.Version)
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.MetricsEnabled {
		http.NotFound(w, r)
		return
	}

	promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
