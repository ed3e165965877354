// Package edit holds the change-request payload that crosses from the page overlay
// into the apply pipeline and over the daemon wire.
package edit

import (
	"errors"
	"fmt"
	"strings"
)

// ElementInfo describes one selected element as seen on the page.
type ElementInfo struct {
	Component string `json:"component"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Element   string `json:"element"`  // lower-case tag name
	Position  string `json:"position"` // "<left>x<top>" in CSS pixels
	Size      string `json:"size"`     // "<width>x<height>" in CSS pixels
	Classes   string `json:"classes"`  // class attribute, "none" when empty
}

// ModificationRequest is the user's intent plus the elements it applies to.
type ModificationRequest struct {
	UserRequest      string        `json:"userRequest"`
	SelectedElements []ElementInfo `json:"selectedElements"`
}

// Validate rejects requests that cannot produce a meaningful prompt.
func (r ModificationRequest) Validate() error {
	if strings.TrimSpace(r.UserRequest) == "" {
		return errors.New("user request is empty")
	}
	if len(r.SelectedElements) == 0 {
		return errors.New("no elements selected")
	}
	for i, el := range r.SelectedElements {
		if strings.TrimSpace(el.File) == "" {
			return fmt.Errorf("selected element %d has no file", i+1)
		}
	}
	return nil
}

// Files returns the distinct files of the selected elements in first-seen order.
func (r ModificationRequest) Files() []string {
	seen := make(map[string]struct{}, len(r.SelectedElements))
	out := make([]string, 0, len(r.SelectedElements))
	for _, el := range r.SelectedElements {
		if _, ok := seen[el.File]; ok {
			continue
		}
		seen[el.File] = struct{}{}
		out = append(out, el.File)
	}
	return out
}

// CountIn returns how many selected elements live in file.
func (r ModificationRequest) CountIn(file string) int {
	n := 0
	for _, el := range r.SelectedElements {
		if el.File == file {
			n++
		}
	}
	return n
}
