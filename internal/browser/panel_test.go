package browser

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/animus-coder/visualedit/internal/overlay"
	"github.com/animus-coder/visualedit/internal/toolbar"
)

func TestRenderPanelCollapsed(t *testing.T) {
	html, err := renderPanel(toolbar.Panel{Position: "top-left", Theme: "dark", Annotated: 7})

	require.NoError(t, err)
	require.Contains(t, html, "top:20px;left:20px;")
	require.Contains(t, html, "background:#1f2937")
	require.Contains(t, html, "7 editable elements")
	require.Contains(t, html, "Detection Off")
	require.NotContains(t, html, "visualedit-request")
	require.NotContains(t, html, `data-ve-action="expand"`)
}

func TestRenderPanelWithSelection(t *testing.T) {
	p := toolbar.Panel{
		Position:  "bottom-center",
		Theme:     "light",
		Active:    true,
		Expanded:  true,
		CanExpand: true,
		Status:    "Detection Active",
		Hover:     &toolbar.Item{Component: "Header", Location: "components/header.tsx:4"},
		Selected: []toolbar.Item{
			{Index: 1, Pos: 0, Component: "ProductCard", Location: "components/product-card.tsx:12"},
			{Index: 2, Pos: 1, Component: "Price", Location: "components/price.tsx:3"},
		},
		Request:      `<b>"bigger"</b>`,
		ApplyEnabled: true,
	}

	html, err := renderPanel(p)

	require.NoError(t, err)
	require.Contains(t, html, "Detection On")
	require.Contains(t, html, "Hovering: Header (components/header.tsx:4)")
	require.Contains(t, html, "Selected (2)")
	require.Contains(t, html, `data-ve-action="remove" data-ve-index="1"`)
	require.Contains(t, html, "Apply Changes")
	require.NotContains(t, html, "<b>", "request text is escaped")
	require.Contains(t, html, "&lt;b&gt;")
	require.Equal(t, 1, strings.Count(html, `data-ve-action="apply"`))
}

func TestRenderPanelProcessingDisablesApply(t *testing.T) {
	html, err := renderPanel(toolbar.Panel{
		Expanded:   true,
		Processing: true,
		Selected:   []toolbar.Item{{Index: 1, Component: "A", Location: "a.tsx:1"}},
	})

	require.NoError(t, err)
	require.Contains(t, html, "Processing...")
	require.Contains(t, html, "cursor:not-allowed")
	require.Contains(t, html, " disabled>")
}

func TestRenderPanelUnknownPositionFallsBack(t *testing.T) {
	html, err := renderPanel(toolbar.Panel{Position: "middle", Theme: "neon"})

	require.NoError(t, err)
	require.Contains(t, html, "left:50%;transform:translateX(-50%);")
	require.Contains(t, html, "background:#ffffff")
}

var removeIndex = regexp.MustCompile(`data-ve-action="remove" data-ve-index="(\d+)"`)

func TestRemoveButtonDropsItsOwnRow(t *testing.T) {
	var s toolbar.State
	s.Overlay = s.Overlay.Activate()
	for _, node := range []string{"n1", "n2", "n3"} {
		s.Overlay = s.Overlay.Hover(&overlay.Entry{
			Node:     overlay.NodeRef(node),
			Metadata: overlay.Metadata{ID: node, Component: strings.ToUpper(node), File: node + ".tsx", Line: 1},
		})
		s.Overlay, _ = s.Overlay.Click(false)
	}

	for row, want := range [][]overlay.NodeRef{{"n2", "n3"}, {"n1", "n3"}, {"n1", "n2"}} {
		html, err := renderPanel(toolbar.Project(s, toolbar.Options{}, 3).Panel)
		require.NoError(t, err)
		buttons := removeIndex.FindAllStringSubmatch(html, -1)
		require.Len(t, buttons, 3)

		ev, _, err := decodeEvent(fmt.Sprintf(`{"type":"action","action":"remove","index":%s}`, buttons[row][1]))
		require.NoError(t, err)
		remove, ok := ev.(overlay.RemoveSelected)
		require.True(t, ok)

		next := s.Overlay.Remove(remove.Index)
		var got []overlay.NodeRef
		for _, e := range next.Selected {
			got = append(got, e.Node)
		}
		require.Equal(t, want, got, "row %d", row)
	}
}
