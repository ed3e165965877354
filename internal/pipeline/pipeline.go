// Package pipeline chains the context assembler and the agent orchestrator into the
// apply operation used by the toolbar, the daemon and the CLI.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/assembler"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/workspace"
)

// Assembler builds the agent context for a request.
type Assembler interface {
	Assemble(ctx context.Context, req edit.ModificationRequest) assembler.Bundle
}

// Invoker runs the agent with a prompt.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) agentexec.Result
}

// StatusSource snapshots the working tree so a run can report the files it touched.
type StatusSource interface {
	Status(ctx context.Context) (map[string]string, error)
}

// Report is the outcome of one apply run.
type Report struct {
	RunID        string
	Bundle       assembler.Bundle
	Result       agentexec.Result
	ChangedFiles []string // nil when no status source is available
}

// Pipeline runs modification requests end to end.
type Pipeline struct {
	Assembler Assembler
	Invoker   Invoker
	Changes   StatusSource
	Logger    *zap.Logger
}

// New wires a pipeline.
func New(a Assembler, inv Invoker, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Assembler: a, Invoker: inv, Logger: logger}
}

// Analyze validates req and assembles its context without running the agent.
func (p *Pipeline) Analyze(ctx context.Context, req edit.ModificationRequest) (assembler.Bundle, error) {
	if err := req.Validate(); err != nil {
		return assembler.Bundle{}, fmt.Errorf("invalid request: %w", err)
	}
	if p.Assembler == nil {
		return assembler.Bundle{}, fmt.Errorf("pipeline has no assembler")
	}
	return p.Assembler.Assemble(ctx, req), nil
}

// Invoke runs the agent on an assembled bundle.
func (p *Pipeline) Invoke(ctx context.Context, b assembler.Bundle) agentexec.Result {
	if p.Invoker == nil {
		return agentexec.Failure{Reason: "pipeline has no agent configured"}
	}
	return p.Invoker.Invoke(ctx, b.Prompt)
}

// Execute analyzes req and runs the agent on the result.
func (p *Pipeline) Execute(ctx context.Context, req edit.ModificationRequest) (Report, error) {
	logger := p.logger()
	rep := Report{RunID: uuid.NewString()}

	b, err := p.Analyze(ctx, req)
	if err != nil {
		return rep, err
	}
	rep.Bundle = b
	logger.Info("running agent",
		zap.String("run_id", rep.RunID),
		zap.Strings("files_to_modify", b.Analysis.FilesToModify),
		zap.Int("relevant_files", len(b.RelevantFiles)),
	)
	logger.Debug("analysis summary", zap.String("run_id", rep.RunID), zap.String("summary", b.Summary))

	before := p.snapshot(ctx)
	rep.Result = p.Invoke(ctx, b)
	if before != nil {
		if after := p.snapshot(ctx); after != nil {
			rep.ChangedFiles = workspace.ChangedBetween(before, after)
			logger.Info("working tree changes", zap.String("run_id", rep.RunID), zap.Strings("files", rep.ChangedFiles))
		}
	}
	return rep, nil
}

func (p *Pipeline) snapshot(ctx context.Context) map[string]string {
	if p.Changes == nil {
		return nil
	}
	status, err := p.Changes.Status(ctx)
	if err != nil {
		p.logger().Debug("working tree status unavailable", zap.Error(err))
		return nil
	}
	return status
}

// Apply implements toolbar.Applier.
func (p *Pipeline) Apply(ctx context.Context, req edit.ModificationRequest) (agentexec.Result, error) {
	rep, err := p.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return rep.Result, nil
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
