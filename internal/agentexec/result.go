package agentexec

import (
	"encoding/json"
	"strings"
	"time"
)

// Result is the terminal outcome of one invocation: either Success or Failure.
type Result interface {
	isResult()
	// Text returns the agent output carried by the result.
	Text() string
}

// Success is a zero-exit invocation. Metadata fields are nil when the agent did not report them.
type Success struct {
	Output     string
	SessionID  string
	CostUSD    *float64
	DurationMs *int64
}

// Failure is any invocation that did not exit cleanly, including spawn errors.
type Failure struct {
	Output string
	Reason string
}

func (Success) isResult() {}
func (Failure) isResult() {}

// Text returns the agent output.
func (s Success) Text() string { return s.Output }

// Text returns whatever the agent printed before failing.
func (f Failure) Text() string { return f.Output }

// Duration converts DurationMs, reporting false when the agent did not send it.
func (s Success) Duration() (time.Duration, bool) {
	if s.DurationMs == nil {
		return 0, false
	}
	return time.Duration(*s.DurationMs) * time.Millisecond, true
}

// Record is the flat wire form of a Result.
type Record struct {
	Success    bool     `json:"success"`
	Output     string   `json:"output"`
	Error      string   `json:"error,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	CostUSD    *float64 `json:"cost_usd,omitempty"`
	DurationMs *int64   `json:"duration_ms,omitempty"`
}

// ToRecord flattens r for transport.
func ToRecord(r Result) Record {
	switch v := r.(type) {
	case Success:
		return Record{Success: true, Output: v.Output, SessionID: v.SessionID, CostUSD: v.CostUSD, DurationMs: v.DurationMs}
	case Failure:
		return Record{Output: v.Output, Error: v.Reason}
	default:
		return Record{Error: "no result"}
	}
}

// Result rebuilds the variant from its wire form.
func (rec Record) Result() Result {
	if rec.Success {
		return Success{Output: rec.Output, SessionID: rec.SessionID, CostUSD: rec.CostUSD, DurationMs: rec.DurationMs}
	}
	reason := rec.Error
	if strings.TrimSpace(reason) == "" {
		reason = "unknown error"
	}
	return Failure{Output: rec.Output, Reason: reason}
}

// agentOutput is the JSON document the agent prints in structured output mode.
type agentOutput struct {
	Result       *string  `json:"result"`
	SessionID    string   `json:"session_id"`
	CostUSD      *float64 `json:"cost_usd"`
	TotalCostUSD *float64 `json:"total_cost_usd"`
	DurationMs   *float64 `json:"duration_ms"`
}

// parseSuccess interprets the stdout of a zero-exit run. Output that is not a JSON
// object is still a success and is returned verbatim.
func parseSuccess(raw string) Success {
	var doc agentOutput
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Success{Output: raw}
	}

	s := Success{Output: raw, SessionID: doc.SessionID, CostUSD: doc.CostUSD}
	if doc.Result != nil {
		s.Output = *doc.Result
	}
	if s.CostUSD == nil {
		s.CostUSD = doc.TotalCostUSD
	}
	if doc.DurationMs != nil {
		ms := int64(*doc.DurationMs)
		s.DurationMs = &ms
	}
	return s
}
