package overlay

// State is the overlay interaction state. Transitions return a new value and never
// modify the receiver's Selected slice.
type State struct {
	Active   bool
	Hovered  *Entry
	Selected []Entry
}

// Activate turns element detection on.
func (s State) Activate() State {
	s.Active = true
	return s
}

// Deactivate turns detection off and drops hover and selection.
func (s State) Deactivate() State {
	return State{}
}

// Toggle flips between Activate and Deactivate.
func (s State) Toggle() State {
	if s.Active {
		return s.Deactivate()
	}
	return s.Activate()
}

// Hover records the element under the pointer. While inactive the hover is always nil.
func (s State) Hover(e *Entry) State {
	if !s.Active || e == nil {
		s.Hovered = nil
		return s
	}
	h := *e
	s.Hovered = &h
	return s
}

// Click toggles membership of the hovered element. Clicks inside the control surface,
// clicks while inactive and clicks with nothing hovered leave the state unchanged;
// changed reports whether the selection was modified.
func (s State) Click(insideControls bool) (next State, changed bool) {
	if !s.Active || s.Hovered == nil || insideControls {
		return s, false
	}
	if i := s.IndexOf(s.Hovered.Node); i >= 0 {
		return s.Remove(i), true
	}
	sel := make([]Entry, len(s.Selected), len(s.Selected)+1)
	copy(sel, s.Selected)
	s.Selected = append(sel, *s.Hovered)
	return s, true
}

// Key handles a key press. Escape clears hover and selection while active.
func (s State) Key(key string) State {
	if key != "Escape" || !s.Active {
		return s
	}
	s.Hovered = nil
	s.Selected = nil
	return s
}

// Clear empties the selection.
func (s State) Clear() State {
	s.Selected = nil
	return s
}

// Remove drops the i-th selected entry. Out-of-range indexes are ignored.
func (s State) Remove(i int) State {
	if i < 0 || i >= len(s.Selected) {
		return s
	}
	sel := make([]Entry, 0, len(s.Selected)-1)
	sel = append(sel, s.Selected[:i]...)
	sel = append(sel, s.Selected[i+1:]...)
	if len(sel) == 0 {
		sel = nil
	}
	s.Selected = sel
	return s
}

// Relayout refreshes cached rectangles. lookup reports false for nodes that are no
// longer attached: a detached hover is dropped, a detached selection keeps its last rect.
func (s State) Relayout(lookup func(NodeRef) (Rect, bool)) State {
	if len(s.Selected) > 0 {
		sel := make([]Entry, len(s.Selected))
		for i, e := range s.Selected {
			if r, ok := lookup(e.Node); ok {
				e.Rect = r
			}
			sel[i] = e
		}
		s.Selected = sel
	}
	if s.Hovered != nil {
		r, ok := lookup(s.Hovered.Node)
		if !ok {
			s.Hovered = nil
		} else {
			h := *s.Hovered
			h.Rect = r
			s.Hovered = &h
		}
	}
	return s
}

// IndexOf returns the selection index of node, or -1.
func (s State) IndexOf(node NodeRef) int {
	for i, e := range s.Selected {
		if e.Node == node {
			return i
		}
	}
	return -1
}

// SameSelection reports whether a and b select the same nodes in the same order.
func SameSelection(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Node != b[i].Node {
			return false
		}
	}
	return true
}
