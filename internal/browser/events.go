package browser

import (
	"encoding/json"
	"fmt"

	"github.com/animus-coder/visualedit/internal/overlay"
)

// wireEvent is the JSON the page bridge sends through the binding.
type wireEvent struct {
	Type       string  `json:"type"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	InControls bool    `json:"inControls"`
	Key        string  `json:"key"`
	Text       string  `json:"text"`
	Action     string  `json:"action"`
	Index      int     `json:"index"`
}

// decodeEvent converts one binding payload into an overlay event. ready reports the
// bridge announcing a freshly loaded document, which carries no overlay event.
func decodeEvent(payload string) (ev overlay.Event, ready bool, err error) {
	var w wireEvent
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, false, fmt.Errorf("decode bridge event: %w", err)
	}
	if w.Type == "ready" {
		return nil, true, nil
	}
	ev, err = w.event()
	return ev, false, err
}

func (w wireEvent) event() (overlay.Event, error) {
	switch w.Type {
	case "pointer":
		return overlay.PointerMoved{X: w.X, Y: w.Y}, nil
	case "click":
		return overlay.Clicked{X: w.X, Y: w.Y, InControls: w.InControls}, nil
	case "key":
		return overlay.KeyPressed{Key: w.Key}, nil
	case "viewport":
		return overlay.ViewportChanged{}, nil
	case "request":
		return overlay.RequestEdited{Text: w.Text}, nil
	case "action":
		switch w.Action {
		case "toggle":
			return overlay.ToggleActivation{}, nil
		case "expand":
			return overlay.ToggleExpanded{}, nil
		case "clear":
			return overlay.ClearAll{}, nil
		case "remove":
			return overlay.RemoveSelected{Index: w.Index}, nil
		case "apply":
			return overlay.ApplyClicked{}, nil
		}
		return nil, fmt.Errorf("unknown panel action %q", w.Action)
	default:
		return nil, fmt.Errorf("unknown bridge event %q", w.Type)
	}
}
