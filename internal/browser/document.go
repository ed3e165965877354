package browser

import (
	"context"

	"go.uber.org/zap"

	"github.com/animus-coder/visualedit/internal/overlay"
	"github.com/animus-coder/visualedit/internal/toolbar"
)

type jsElement struct {
	Node       string       `json:"node"`
	Tag        string       `json:"tag"`
	Classes    string       `json:"classes"`
	Annotation string       `json:"annotation"`
	Annotated  bool         `json:"annotated"`
	InControls bool         `json:"inControls"`
	Rect       overlay.Rect `json:"rect"`
}

func (e jsElement) element() overlay.Element {
	return overlay.Element{
		Node:       overlay.NodeRef(e.Node),
		Tag:        e.Tag,
		Classes:    e.Classes,
		Annotation: e.Annotation,
		Annotated:  e.Annotated,
		InControls: e.InControls,
		Rect:       e.Rect,
	}
}

// ElementsAt lists the annotated elements under (x, y), topmost first.
func (s *Session) ElementsAt(ctx context.Context, x, y float64, attr string) ([]overlay.Element, error) {
	var raw []jsElement
	if err := s.call(ctx, &raw, "elementsAt", x, y, attr); err != nil {
		return nil, err
	}
	out := make([]overlay.Element, 0, len(raw))
	for _, e := range raw {
		out = append(out, e.element())
	}
	return out, nil
}

// RectOf returns the current rectangle of node.
func (s *Session) RectOf(ctx context.Context, node overlay.NodeRef) (overlay.Rect, bool, error) {
	var res struct {
		OK   bool         `json:"ok"`
		Rect overlay.Rect `json:"rect"`
	}
	if err := s.call(ctx, &res, "rectOf", string(node)); err != nil {
		return overlay.Rect{}, false, err
	}
	return res.Rect, res.OK, nil
}

// CountAnnotated counts the elements carrying attr.
func (s *Session) CountAnnotated(ctx context.Context, attr string) (int, error) {
	var n int
	if err := s.call(ctx, &n, "count", attr); err != nil {
		return 0, err
	}
	return n, nil
}

// frame is the last drawn view, redrawn when the page reloads.
type frame struct {
	html       string
	highlights []overlay.Highlight
	intercept  bool
}

// newFrame pairs rendered panel markup with v. Page clicks are intercepted only while
// the overlay is active and an element is hovered; other clicks reach the page.
func newFrame(html string, v toolbar.View) *frame {
	return &frame{
		html:       html,
		highlights: v.Highlights,
		intercept:  v.Panel.Active && v.Panel.Hover != nil,
	}
}

// Render draws the panel and highlight layer.
func (s *Session) Render(ctx context.Context, v toolbar.View) error {
	html, err := renderPanel(v.Panel)
	if err != nil {
		return err
	}
	f := newFrame(html, v)
	s.mu.Lock()
	s.last = f
	s.mu.Unlock()
	return s.draw(ctx, f)
}

func (s *Session) draw(ctx context.Context, f *frame) error {
	return s.call(ctx, nil, "render", f.html, f.highlights, f.intercept)
}

func (s *Session) replay(ctx context.Context) {
	s.mu.RLock()
	f := s.last
	s.mu.RUnlock()
	if f == nil {
		return
	}
	if err := s.draw(ctx, f); err != nil {
		s.logger.Debug("redraw after reload failed", zap.Error(err))
	}
}

// Notify shows a transient message over the page.
func (s *Session) Notify(ctx context.Context, n toolbar.Notification) error {
	return s.call(ctx, nil, "notify", string(n.Level), n.Message)
}
