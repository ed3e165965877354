// Package overlay models the element-selection overlay: which annotated elements are
// hovered and selected, and how that state projects onto highlight rectangles. The
// package never touches a page directly; element queries go through Document and
// input arrives through Source.
package overlay

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultAttribute is the element attribute carrying source metadata.
const DefaultAttribute = "data-pm-edit"

// Metadata is the source location embedded into a rendered element at build time.
type Metadata struct {
	ID        string `json:"id"`
	Component string `json:"component"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

// Location formats the metadata as file:line.
func (m Metadata) Location() string {
	return fmt.Sprintf("%s:%d", m.File, m.Line)
}

// ParseMetadata decodes an attribute value. Empty or malformed values and values
// without a file are errors.
func ParseMetadata(raw string) (Metadata, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Metadata{}, errors.New("empty metadata attribute")
	}
	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	if strings.TrimSpace(m.File) == "" {
		return Metadata{}, errors.New("metadata has no file")
	}
	return m, nil
}

// NodeRef identifies a live page element without owning it. Two refs are the same
// element exactly when they are equal.
type NodeRef string

// Rect is a viewport rectangle in CSS pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Inflate grows the rectangle by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{Left: r.Left - d, Top: r.Top - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Position formats the rounded top-left corner as "LxT".
func (r Rect) Position() string {
	return fmt.Sprintf("%dx%d", round(r.Left), round(r.Top))
}

// Size formats the rounded dimensions as "WxH".
func (r Rect) Size() string {
	return fmt.Sprintf("%dx%d", round(r.Width), round(r.Height))
}

func round(f float64) int {
	return int(math.Round(f))
}

// Entry is one hovered or selected element with its last-known rectangle.
type Entry struct {
	Node     NodeRef  `json:"node"`
	Metadata Metadata `json:"metadata"`
	Tag      string   `json:"tag"`
	Classes  string   `json:"classes"`
	Rect     Rect     `json:"rect"`
}
