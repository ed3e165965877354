package edit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/observability"
	"github.com/animus-coder/visualedit/internal/rpc"
)

// ApplyPath is the NDJSON apply endpoint.
const ApplyPath = "/edit/apply"

// Handler processes EditRequests and streams NDJSON events.
type Handler struct {
	runner  Runner
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewHandler constructs a handler instance.
func NewHandler(runner Runner, metrics *observability.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{runner: runner, metrics: metrics, logger: logger}
}

// ServeHTTP handles POST /edit/apply with an NDJSON stream of EditEvent.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.metrics.RecordTransportError("ndjson", "method_not_allowed")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.metrics.IncActiveSessions("ndjson")
	defer h.metrics.DecActiveSessions("ndjson")

	var req rpc.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordTransportError("ndjson", "decode")
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if err := req.Request.Validate(); err != nil {
		h.metrics.RecordTransportError("ndjson", "invalid_request")
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if h.runner == nil {
		http.Error(w, "runner unavailable", http.StatusServiceUnavailable)
		return
	}

	events, err := h.runner.Run(r.Context(), req)
	if err != nil {
		h.metrics.RecordTransportError("ndjson", "runner_error")
		http.Error(w, fmt.Sprintf("runner error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	writer := bufio.NewWriter(w)
	enc := json.NewEncoder(writer)
	enc.SetEscapeHTML(false)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			h.metrics.RecordTransportError("ndjson", "encode")
			h.logger.Warn("ndjson stream broken", zap.Error(err))
			break
		}
		writer.Flush()
		flusher.Flush()
	}
}
