package edit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/assembler"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/rpc"
)

type fakePipeline struct {
	result     agentexec.Result
	analyzeErr error
	invokeCtx  error
	prompts    []string
}

func (f *fakePipeline) Analyze(_ context.Context, req edit.ModificationRequest) (assembler.Bundle, error) {
	if f.analyzeErr != nil {
		return assembler.Bundle{}, f.analyzeErr
	}
	files := req.Files()
	return assembler.Bundle{
		DirectFiles:   files,
		RelevantFiles: files,
		Prompt:        "prompt for " + req.UserRequest,
		Summary:       "summary",
		Analysis:      assembler.Analysis{Headline: "Analyzing", FilesToModify: files},
	}, nil
}

func (f *fakePipeline) Invoke(ctx context.Context, b assembler.Bundle) agentexec.Result {
	f.invokeCtx = ctx.Err()
	f.prompts = append(f.prompts, b.Prompt)
	return f.result
}

func sampleEdit() rpc.EditRequest {
	return rpc.EditRequest{Request: edit.ModificationRequest{
		UserRequest:      "make it red",
		SelectedElements: []edit.ElementInfo{{Component: "Hero", File: "page.tsx", Line: 3}},
	}}
}

func collect(ch <-chan rpc.EditEvent) []rpc.EditEvent {
	var out []rpc.EditEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestPipelineRunnerEventOrder(t *testing.T) {
	fp := &fakePipeline{result: agentexec.Success{Output: "ok"}}
	r := &PipelineRunner{Pipeline: fp}

	ch, err := r.Run(context.Background(), sampleEdit())
	require.NoError(t, err)
	events := collect(ch)

	require.Len(t, events, 3)
	require.Equal(t, rpc.EventAnalysis, events[0].Type)
	require.Equal(t, []string{"page.tsx"}, events[0].Analysis.FilesToModify)
	require.Equal(t, rpc.EventResult, events[1].Type)
	require.True(t, events[1].Result.Success)
	require.Equal(t, "ok", events[1].Result.Output)
	require.Equal(t, rpc.EventDone, events[2].Type)
	require.True(t, events[2].Done)

	require.NotEmpty(t, events[0].SessionID)
	require.Equal(t, events[0].SessionID+"-corr", events[0].CorrelationID)
	require.Equal(t, events[0].SessionID, events[2].SessionID)
}

func TestPipelineRunnerSurvivesClientCancel(t *testing.T) {
	fp := &fakePipeline{result: agentexec.Failure{Reason: "boom"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch, err := (&PipelineRunner{Pipeline: fp}).Run(ctx, sampleEdit())
	require.NoError(t, err)
	events := collect(ch)

	require.NoError(t, fp.invokeCtx, "agent runs detached from the request context")
	require.Equal(t, "boom", events[1].Result.Error)
}

func TestPipelineRunnerRejection(t *testing.T) {
	fp := &fakePipeline{analyzeErr: errors.New("invalid request: no elements selected")}
	ch, err := (&PipelineRunner{Pipeline: fp}).Run(context.Background(), rpc.EditRequest{SessionID: "s"})
	require.NoError(t, err)
	events := collect(ch)

	require.Len(t, events, 1)
	require.Equal(t, rpc.EventError, events[0].Type)
	require.Contains(t, events[0].Error, "no elements selected")
	require.Empty(t, fp.prompts)
}
