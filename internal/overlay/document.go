package overlay

import (
	"context"

	"go.uber.org/zap"
)

// Element is one page element found under a point.
type Element struct {
	Node       NodeRef
	Tag        string
	Classes    string
	Annotation string // attribute value; empty when Annotated is false
	Annotated  bool
	InControls bool // element belongs to the overlay's own panel or highlight layer
	Rect       Rect
}

// Document answers page queries for the overlay.
type Document interface {
	// ElementsAt lists the elements at a viewport point, topmost first, reading attr.
	ElementsAt(ctx context.Context, x, y float64, attr string) ([]Element, error)
	// RectOf returns the current rectangle of node; false when it is detached.
	RectOf(ctx context.Context, node NodeRef) (Rect, bool, error)
	// CountAnnotated counts the elements carrying attr.
	CountAnnotated(ctx context.Context, attr string) (int, error)
}

// HitTest finds the topmost annotated element at (x, y) outside the control surface.
// An element whose metadata cannot be parsed is logged and yields no match.
func HitTest(ctx context.Context, doc Document, attr string, x, y float64, logger *zap.Logger) (*Entry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	elems, err := doc.ElementsAt(ctx, x, y, attr)
	if err != nil {
		return nil, err
	}
	for _, el := range elems {
		if !el.Annotated || el.InControls {
			continue
		}
		md, err := ParseMetadata(el.Annotation)
		if err != nil {
			logger.Warn("ignoring element with malformed metadata",
				zap.String("node", string(el.Node)),
				zap.String("attribute", attr),
				zap.Error(err),
			)
			return nil, nil
		}
		return &Entry{Node: el.Node, Metadata: md, Tag: el.Tag, Classes: el.Classes, Rect: el.Rect}, nil
	}
	return nil, nil
}

// RelayoutWith refreshes the rectangles of s by querying doc. Query errors count as
// detached nodes.
func RelayoutWith(ctx context.Context, s State, doc Document, logger *zap.Logger) State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return s.Relayout(func(node NodeRef) (Rect, bool) {
		r, ok, err := doc.RectOf(ctx, node)
		if err != nil {
			logger.Debug("rect lookup failed", zap.String("node", string(node)), zap.Error(err))
			return Rect{}, false
		}
		return r, ok
	})
}
