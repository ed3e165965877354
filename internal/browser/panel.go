package browser

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/animus-coder/visualedit/internal/toolbar"
)

type palette struct {
	Background, Text, Muted, Border, Input string
}

var palettes = map[string]palette{
	"light": {Background: "#ffffff", Text: "#111827", Muted: "#6b7280", Border: "#e5e7eb", Input: "#f9fafb"},
	"dark":  {Background: "#1f2937", Text: "#f9fafb", Muted: "#9ca3af", Border: "#374151", Input: "#111827"},
}

var anchors = map[string]template.CSS{
	"top-right":     "top:20px;right:20px;",
	"top-left":      "top:20px;left:20px;",
	"bottom-right":  "bottom:20px;right:20px;",
	"bottom-left":   "bottom:20px;left:20px;",
	"bottom-center": "bottom:20px;left:50%;transform:translateX(-50%);",
}

var panelTemplate = template.Must(template.New("panel").Parse(`
<div data-ve-panel style="position:fixed;z-index:999999;{{.Anchor}}width:{{if .P.Expanded}}420px{{else}}auto{{end}};background:{{.C.Background}};color:{{.C.Text}};border:1px solid {{.C.Border}};border-radius:12px;box-shadow:0 10px 25px rgba(0,0,0,0.15);font-family:-apple-system,BlinkMacSystemFont,sans-serif;font-size:13px;">
  <div style="display:flex;align-items:center;gap:8px;padding:8px 12px;">
    <button data-ve-action="toggle" style="padding:6px 12px;border-radius:6px;border:1px solid {{.C.Border}};cursor:pointer;{{if .P.Active}}background:#10b981;color:#fff;{{else}}background:{{.C.Input}};color:{{.C.Text}};{{end}}">{{if .P.Active}}Detection On{{else}}Detection Off{{end}}</button>
    <span style="color:{{.C.Muted}};">{{.P.Annotated}} editable elements</span>
    {{- if .P.CanExpand}}
    <button data-ve-action="expand" style="margin-left:auto;background:none;border:none;color:{{.C.Text}};cursor:pointer;">{{if .P.Expanded}}&#9662;{{else}}&#9652;{{end}}</button>
    {{- end}}
  </div>
  {{- if .P.Status}}
  <div style="padding:0 12px 8px;color:{{.C.Muted}};font-size:11px;">{{.P.Status}}</div>
  {{- end}}
  {{- if .P.Expanded}}
  <div style="border-top:1px solid {{.C.Border}};padding:12px;">
    {{- with .P.Hover}}
    <div style="margin-bottom:8px;color:#f59e0b;">Hovering: {{.Component}} ({{.Location}})</div>
    {{- end}}
    {{- if .P.Selected}}
    <div style="display:flex;justify-content:space-between;margin-bottom:6px;">
      <strong>Selected ({{len .P.Selected}})</strong>
      <button data-ve-action="clear" style="background:none;border:none;color:#ef4444;cursor:pointer;">Clear all</button>
    </div>
    {{- range .P.Selected}}
    <div style="display:flex;align-items:center;gap:6px;padding:4px 0;">
      <span style="background:#10b981;color:#fff;border-radius:3px;padding:1px 6px;font-size:10px;font-weight:600;">{{.Index}}</span>
      <span>{{.Component}}</span>
      <span style="color:{{$.C.Muted}};font-size:11px;">{{.Location}}</span>
      <button data-ve-action="remove" data-ve-index="{{.Pos}}" style="margin-left:auto;background:none;border:none;color:{{$.C.Muted}};cursor:pointer;">&times;</button>
    </div>
    {{- end}}
    {{- end}}
    <textarea id="visualedit-request" rows="3" placeholder="Describe the change you want..." style="width:100%;box-sizing:border-box;margin-top:8px;padding:8px;border-radius:6px;border:1px solid {{.C.Border}};background:{{.C.Input}};color:{{.C.Text}};resize:vertical;"{{if .P.Processing}} disabled{{end}}>{{.P.Request}}</textarea>
    <button data-ve-action="apply" style="width:100%;margin-top:8px;padding:8px;border:none;border-radius:6px;color:#fff;{{if .P.ApplyEnabled}}background:#3b82f6;cursor:pointer;{{else}}background:#9ca3af;cursor:not-allowed;{{end}}"{{if not .P.ApplyEnabled}} disabled{{end}}>{{if .P.Processing}}Processing...{{else}}Apply Changes{{end}}</button>
  </div>
  {{- end}}
</div>`))

// renderPanel renders the panel markup for p.
func renderPanel(p toolbar.Panel) (string, error) {
	colors, ok := palettes[p.Theme]
	if !ok {
		colors = palettes["light"]
	}
	anchor, ok := anchors[p.Position]
	if !ok {
		anchor = anchors["bottom-center"]
	}

	var buf bytes.Buffer
	err := panelTemplate.Execute(&buf, struct {
		P      toolbar.Panel
		C      palette
		Anchor template.CSS
	}{P: p, C: colors, Anchor: anchor})
	if err != nil {
		return "", fmt.Errorf("render panel: %w", err)
	}
	return buf.String(), nil
}
