package overlay

// Event is an input event delivered to the overlay's owner.
type Event interface {
	isEvent()
}

// PointerMoved reports the pointer position in viewport coordinates.
type PointerMoved struct{ X, Y float64 }

// Clicked reports a primary click. InControls is set for clicks on the control panel.
type Clicked struct {
	X, Y       float64
	InControls bool
}

// KeyPressed reports a key press by its DOM key name ("Escape", "a", ...).
type KeyPressed struct{ Key string }

// ViewportChanged reports a scroll or resize.
type ViewportChanged struct{}

// Control-surface events.
type (
	// ToggleActivation is the activate/deactivate button.
	ToggleActivation struct{}
	// ToggleExpanded is the expand/collapse button.
	ToggleExpanded struct{}
	// ClearAll drops the selection and the request text.
	ClearAll struct{}
	// RemoveSelected drops one entry by zero-based index.
	RemoveSelected struct{ Index int }
	// RequestEdited carries the full request text after an edit.
	RequestEdited struct{ Text string }
	// ApplyClicked is the apply button.
	ApplyClicked struct{}
)

func (PointerMoved) isEvent()     {}
func (Clicked) isEvent()          {}
func (KeyPressed) isEvent()       {}
func (ViewportChanged) isEvent()  {}
func (ToggleActivation) isEvent() {}
func (ToggleExpanded) isEvent()   {}
func (ClearAll) isEvent()         {}
func (RemoveSelected) isEvent()   {}
func (RequestEdited) isEvent()    {}
func (ApplyClicked) isEvent()     {}

// Source delivers input events. The channel is closed when the source ends.
type Source interface {
	Events() <-chan Event
}

// ChanSource adapts a channel to Source.
type ChanSource chan Event

// Events returns the channel itself.
func (c ChanSource) Events() <-chan Event { return c }
