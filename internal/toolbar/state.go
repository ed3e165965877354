// Package toolbar drives the selection overlay and its control panel: it owns the
// interaction state, gates apply requests and turns agent outcomes into notifications.
package toolbar

import (
	"strings"

	"github.com/animus-coder/visualedit/internal/edit"
	"github.com/animus-coder/visualedit/internal/overlay"
)

// State is the whole toolbar state. Transitions are pure.
type State struct {
	Overlay  overlay.State
	Request  string
	Busy     bool
	Expanded bool
}

// WithRequest replaces the request text.
func (s State) WithRequest(text string) State {
	s.Request = text
	return s
}

// ToggleExpanded flips the expanded panel flag.
func (s State) ToggleExpanded() State {
	s.Expanded = !s.Expanded
	return s
}

// ClearAll drops the selection and the request text.
func (s State) ClearAll() State {
	s.Overlay = s.Overlay.Clear()
	s.Request = ""
	return s
}

// Ready reports whether an apply may start: something selected, a non-blank request
// and nothing in flight.
func (s State) Ready() bool {
	return !s.Busy && len(s.Overlay.Selected) > 0 && strings.TrimSpace(s.Request) != ""
}

// BuildRequest converts the selection into the request handed to the agent pipeline.
func (s State) BuildRequest() edit.ModificationRequest {
	req := edit.ModificationRequest{
		UserRequest:      s.Request,
		SelectedElements: make([]edit.ElementInfo, 0, len(s.Overlay.Selected)),
	}
	for _, e := range s.Overlay.Selected {
		classes := strings.TrimSpace(e.Classes)
		if classes == "" {
			classes = "none"
		}
		req.SelectedElements = append(req.SelectedElements, edit.ElementInfo{
			Component: e.Metadata.Component,
			File:      e.Metadata.File,
			Line:      e.Metadata.Line,
			Element:   strings.ToLower(e.Tag),
			Position:  e.Rect.Position(),
			Size:      e.Rect.Size(),
			Classes:   classes,
		})
	}
	return req
}
