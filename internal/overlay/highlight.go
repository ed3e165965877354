package overlay

import "fmt"

// HighlightKind distinguishes hover from selection highlights.
type HighlightKind string

const (
	HighlightHover    HighlightKind = "hover"
	HighlightSelected HighlightKind = "selected"
)

const (
	hoverColor    = "#f59e0b"
	selectedColor = "#10b981"
)

// Highlight is one rectangle drawn over the page.
type Highlight struct {
	Kind  HighlightKind `json:"kind"`
	Rect  Rect          `json:"rect"`
	Color string        `json:"color"`
	Label string        `json:"label"` // tooltip for hover, 1-based badge for selections
}

// Highlights projects s into the rectangles to draw: the hover (only while active),
// then every selection in order.
func Highlights(s State) []Highlight {
	out := make([]Highlight, 0, len(s.Selected)+1)
	if s.Active && s.Hovered != nil {
		md := s.Hovered.Metadata
		out = append(out, Highlight{
			Kind:  HighlightHover,
			Rect:  s.Hovered.Rect.Inflate(2),
			Color: hoverColor,
			Label: fmt.Sprintf("%s (%s)", md.Component, md.Location()),
		})
	}
	for i, e := range s.Selected {
		out = append(out, Highlight{
			Kind:  HighlightSelected,
			Rect:  e.Rect,
			Color: selectedColor,
			Label: fmt.Sprint(i + 1),
		})
	}
	return out
}
