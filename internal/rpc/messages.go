package rpc

import (
	"github.com/animus-coder/visualedit/internal/agentexec"
	"github.com/animus-coder/visualedit/internal/assembler"
	"github.com/animus-coder/visualedit/internal/edit"
)

// Event types streamed by the apply endpoints, in the order they are sent.
const (
	EventAnalysis = "analysis"
	EventResult   = "result"
	EventError    = "error"
	EventDone     = "done"
)

// EditRequest asks the daemon to run one modification request through the agent.
type EditRequest struct {
	SessionID     string                   `json:"session_id,omitempty"`
	CorrelationID string                   `json:"correlation_id,omitempty"`
	Request       edit.ModificationRequest `json:"request"`
}

// EditEvent streams back progress of an apply run.
type EditEvent struct {
	Type          string              `json:"type"` // analysis|result|error|done
	SessionID     string              `json:"session_id,omitempty"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	Analysis      *assembler.Analysis `json:"analysis,omitempty"`
	Summary       string              `json:"summary,omitempty"`
	Result        *agentexec.Record   `json:"result,omitempty"`
	Error         string              `json:"error,omitempty"`
	Done          bool                `json:"done,omitempty"`
}

// AnalyzeResponse is the body of POST /edit/analyze.
type AnalyzeResponse struct {
	DirectFiles   []string           `json:"direct_files" yaml:"direct_files"`
	RelevantFiles []string           `json:"relevant_files" yaml:"relevant_files"`
	Analysis      assembler.Analysis `json:"analysis" yaml:"analysis"`
	Summary       string             `json:"summary" yaml:"summary"`
	Prompt        string             `json:"prompt" yaml:"prompt"`
}

// NewAnalyzeResponse flattens a bundle for the wire. File contents stay server-side.
func NewAnalyzeResponse(b assembler.Bundle) AnalyzeResponse {
	return AnalyzeResponse{
		DirectFiles:   b.DirectFiles,
		RelevantFiles: b.RelevantFiles,
		Analysis:      b.Analysis,
		Summary:       b.Summary,
		Prompt:        b.Prompt,
	}
}
