package overlay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeDocument struct {
	elems []Element
	rects map[NodeRef]Rect
	err   error
}

func (d fakeDocument) ElementsAt(context.Context, float64, float64, string) ([]Element, error) {
	return d.elems, d.err
}

func (d fakeDocument) RectOf(_ context.Context, n NodeRef) (Rect, bool, error) {
	r, ok := d.rects[n]
	return r, ok, nil
}

func (d fakeDocument) CountAnnotated(context.Context, string) (int, error) {
	return len(d.rects), nil
}

const cardMeta = `{"id":"c1","component":"ProductCard","file":"components/product-card.tsx","line":12}`

func TestHitTestPicksTopmostAnnotated(t *testing.T) {
	doc := fakeDocument{elems: []Element{
		{Node: "span", Tag: "span"},
		{Node: "panel", Annotated: true, Annotation: cardMeta, InControls: true},
		{Node: "card", Tag: "div", Classes: "p-4", Annotated: true, Annotation: cardMeta},
		{Node: "grid", Annotated: true, Annotation: `{"file":"components/product-grid.tsx"}`},
	}}

	e, err := HitTest(context.Background(), doc, DefaultAttribute, 5, 5, nil)
	require.NoError(t, err)
	require.NotNil(t, e)
	require.Equal(t, NodeRef("card"), e.Node)
	require.Equal(t, "ProductCard", e.Metadata.Component)
	require.Equal(t, 12, e.Metadata.Line)
	require.Equal(t, "p-4", e.Classes)
}

func TestHitTestMalformedMetadataIsLoggedNonMatch(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	doc := fakeDocument{elems: []Element{
		{Node: "bad", Annotated: true, Annotation: "{not json"},
		{Node: "card", Annotated: true, Annotation: cardMeta},
	}}

	e, err := HitTest(context.Background(), doc, DefaultAttribute, 0, 0, zap.New(core))
	require.NoError(t, err)
	require.Nil(t, e)
	require.Equal(t, 1, logs.FilterMessage("ignoring element with malformed metadata").Len())
}

func TestHitTestPropagatesDocumentErrors(t *testing.T) {
	_, err := HitTest(context.Background(), fakeDocument{err: errors.New("page gone")}, DefaultAttribute, 0, 0, nil)
	require.Error(t, err)
}

func TestParseMetadata(t *testing.T) {
	m, err := ParseMetadata(cardMeta)
	require.NoError(t, err)
	require.Equal(t, "components/product-card.tsx:12", m.Location())

	for _, raw := range []string{"", "  ", "[]", `{"component":"X"}`, "{"} {
		_, err := ParseMetadata(raw)
		require.Error(t, err, raw)
	}
}

func TestRelayoutWithDocument(t *testing.T) {
	s := State{}.Activate()
	s = s.Hover(&Entry{Node: "card", Metadata: Metadata{File: "a.tsx"}})
	s, _ = s.Click(false)

	doc := fakeDocument{rects: map[NodeRef]Rect{"card": {Left: 4, Top: 4, Width: 8, Height: 8}}}
	s = RelayoutWith(context.Background(), s, doc, nil)
	require.Equal(t, Rect{Left: 4, Top: 4, Width: 8, Height: 8}, s.Selected[0].Rect)
	require.Equal(t, s.Selected[0].Rect, s.Hovered.Rect)
}
