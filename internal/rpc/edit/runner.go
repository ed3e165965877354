// Package edit serves the apply pipeline over HTTP: an NDJSON stream, a Connect
// server-stream procedure, a plain JSON analyze endpoint, and a client for all of them.
package edit

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/assembler"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/rpc"
)

// Runner executes an edit request and yields streamed events. The channel is closed
// after the last event.
type Runner interface {
	Run(ctx context.Context, req rpc.EditRequest) (<-chan rpc.EditEvent, error)
}

// Pipeline is the part of pipeline.Pipeline the runner needs.
type Pipeline interface {
	Analyze(ctx context.Context, req edit.ModificationRequest) (assembler.Bundle, error)
	Invoke(ctx context.Context, b assembler.Bundle) agentexec.Result
}

// PipelineRunner streams the analysis, then the agent result, then done.
type PipelineRunner struct {
	Pipeline Pipeline
	Logger   *zap.Logger
}

// Run starts the pipeline. The agent keeps running when ctx is cancelled: a
// disconnecting client must not abort an agent that may be half way through editing
// files. Events are buffered so the run never blocks on a departed client.
func (r *PipelineRunner) Run(ctx context.Context, req rpc.EditRequest) (<-chan rpc.EditEvent, error) {
	fillIDs(&req)
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", req.SessionID), zap.String("correlation_id", req.CorrelationID))

	out := make(chan rpc.EditEvent, 3)
	go func() {
		defer close(out)
		base := rpc.EditEvent{SessionID: req.SessionID, CorrelationID: req.CorrelationID}

		if r.Pipeline == nil {
			out <- withError(base, "pipeline unavailable")
			return
		}

		b, err := r.Pipeline.Analyze(ctx, req.Request)
		if err != nil {
			logger.Warn("edit request rejected", zap.Error(err))
			out <- withError(base, err.Error())
			return
		}
		ev := base
		ev.Type = rpc.EventAnalysis
		ev.Analysis = &b.Analysis
		ev.Summary = b.Summary
		out <- ev

		res := r.Pipeline.Invoke(context.WithoutCancel(ctx), b)
		rec := agentexec.ToRecord(res)
		ev = base
		ev.Type = rpc.EventResult
		ev.Result = &rec
		out <- ev

		done := base
		done.Type = rpc.EventDone
		done.Done = true
		out <- done
	}()
	return out, nil
}

func withError(base rpc.EditEvent, msg string) rpc.EditEvent {
	base.Type = rpc.EventError
	base.Error = msg
	return base
}

func fillIDs(req *rpc.EditRequest) {
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.CorrelationID == "" {
		req.CorrelationID = req.SessionID + "-corr"
	}
}
