package edit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/animus-coder/visualedit/internal/assembler"
	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/observability"
	"github.com/animus-coder/visualedit/internal/rpc"
)

// AnalyzePath is the analysis-only endpoint.
const AnalyzePath = "/edit/analyze"

// Analyzer assembles the context for a request without running the agent.
type Analyzer interface {
	Analyze(ctx context.Context, req edit.ModificationRequest) (assembler.Bundle, error)
}

// AnalyzeHandler serves POST /edit/analyze: a ModificationRequest in, an AnalyzeResponse out.
type AnalyzeHandler struct {
	Analyzer Analyzer
	Metrics  *observability.Metrics
}

func (h AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.Metrics.RecordTransportError("http", "method_not_allowed")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req edit.ModificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Metrics.RecordTransportError("http", "decode")
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if h.Analyzer == nil {
		http.Error(w, "analyzer unavailable", http.StatusServiceUnavailable)
		return
	}
	b, err := h.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(rpc.NewAnalyzeResponse(b))
}
