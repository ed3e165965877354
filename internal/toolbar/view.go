package toolbar

import (
	"fmt"

	"github.com/animus-coder/visualedit/internal/overlay"
)

// Options configures the panel presentation.
type Options struct {
	Attribute    string
	Position     string
	Theme        string
	AutoActivate bool
}

// View is everything a renderer draws for one state.
type View struct {
	Panel      Panel
	Highlights []overlay.Highlight
}

// Panel is the control surface.
type Panel struct {
	Position     string
	Theme        string
	Annotated    int
	Active       bool
	Expanded     bool // panel body shown
	CanExpand    bool // expand toggle shown
	Status       string
	Hover        *Item
	Selected     []Item
	Request      string
	Processing   bool
	ApplyEnabled bool
}

// Item is one element line in the panel.
type Item struct {
	Index     int // 1-based, shown to the user
	Pos       int // 0-based selection index, sent back by remove actions
	Component string
	Location  string
}

const statusActive = "Detection Active • Hover to highlight • Click to select • ESC to clear"

// Project renders s into a View. annotated is the number of annotated elements on the page.
func Project(s State, opts Options, annotated int) View {
	hasSelection := len(s.Overlay.Selected) > 0
	p := Panel{
		Position:     defaultString(opts.Position, "bottom-center"),
		Theme:        defaultString(opts.Theme, "light"),
		Annotated:    annotated,
		Active:       s.Overlay.Active,
		Expanded:     s.Expanded || hasSelection,
		CanExpand:    hasSelection,
		Request:      s.Request,
		Processing:   s.Busy,
		ApplyEnabled: !s.Busy && hasSelection,
	}
	if s.Overlay.Active {
		p.Status = statusActive
	}
	if h := s.Overlay.Hovered; h != nil {
		p.Hover = &Item{Component: h.Metadata.Component, Location: h.Metadata.Location()}
	}
	for i, e := range s.Overlay.Selected {
		p.Selected = append(p.Selected, Item{Index: i + 1, Pos: i, Component: e.Metadata.Component, Location: e.Metadata.Location()})
	}
	return View{Panel: p, Highlights: overlay.Highlights(s.Overlay)}
}

// Summary is a one-line description of the panel, used in logs and terminal output.
func (v View) Summary() string {
	state := "inactive"
	if v.Panel.Active {
		state = "active"
	}
	if v.Panel.Processing {
		state += ", processing"
	}
	return fmt.Sprintf("%s, %d selected, %d annotated elements", state, len(v.Panel.Selected), v.Panel.Annotated)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
