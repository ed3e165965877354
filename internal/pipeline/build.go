package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/assembler"
	"github.com/animus-coder/visualedit/internal/config"
	"github.com/animus-coder/visualedit/internal/depgraph"
	"github.com/animus-coder/visualedit/internal/workspace"
)

// Metrics is the union of the assembler and orchestrator observers.
type Metrics interface {
	assembler.Metrics
	agentexec.Metrics
}

// Build wires the graph loader, source reader, assembler and orchestrator described
// by cfg. spawner may be nil for real processes.
func Build(cfg *config.Config, spawner agentexec.Spawner, metrics Metrics, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sources, err := workspace.NewSources(cfg.Project.Root, cfg.Project.SourceDirs, cfg.Project.DefaultSourceDir)
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}
	graph := depgraph.NewLoader(sources.Root(), cfg.Project.GraphPath, logger.Named("depgraph"))

	asm := assembler.New(graph, sources, assembler.Limits{
		MaxFiles:     cfg.Context.MaxFiles,
		MaxBytes:     cfg.Context.MaxBytes,
		PerFileBytes: cfg.Context.PerFileBytes,
	}, logger.Named("assembler"))
	asm.Preamble = cfg.Context.Preamble

	agentCfg := cfg.Agent
	if agentCfg.WorkingDir == "" {
		agentCfg.WorkingDir = sources.Root()
	}
	orch := agentexec.New(agentCfg, spawner, logger.Named("agentexec"))

	if metrics != nil {
		asm.Metrics = metrics
		orch.Metrics = metrics
	}

	p := New(asm, orch, logger.Named("pipeline"))
	p.Changes = workspace.GitStatus{Dir: sources.Root()}
	return p, nil
}
