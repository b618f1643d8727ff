// internal/browser/humanoid/interface.go
package humanoid

import (
	"context"
)

// Executor defines the low-level browser capability the Humanoid drives.
// Sleeping is not part of it; all waiting goes through the injected Clock.
type Executor interface {
	DispatchMouseEvent(ctx context.Context, data MouseEventData) error
	SendKeys(ctx context.Context, keys string) error
	// DispatchStructuredKey presses a key combination (key down then key up).
	DispatchStructuredKey(ctx context.Context, data KeyEventData) error
	// GetElementGeometry returns ErrElementNotFound (wrapped) when the selector
	// matches nothing visible.
	GetElementGeometry(ctx context.Context, selector string) (*ElementGeometry, error)
}

// ElementGeometry is the border quad and size of a DOM element in viewport
// coordinates.
type ElementGeometry struct {
	Vertices []float64 `json:"vertices"`
	Width    int64     `json:"width"`
	Height   int64     `json:"height"`
	TagName  string    `json:"tagName"`
}

// MouseEventType mirrors the CDP Input.dispatchMouseEvent type names.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
	MouseWheel   MouseEventType = "mouseWheel"
)

// MouseButton defines the mouse button being pressed.
type MouseButton string

const (
	ButtonNone MouseButton = "none"
	ButtonLeft MouseButton = "left"
)

// MouseEventData encapsulates all data for a mouse event.
type MouseEventData struct {
	Type       MouseEventType `json:"type"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Button     MouseButton    `json:"button"`
	Buttons    int64          `json:"buttons"`
	ClickCount int            `json:"clickCount"`
	DeltaX     float64        `json:"deltaX"`
	DeltaY     float64        `json:"deltaY"`
}

// KeyModifier values match the CDP Input.dispatchKeyEvent modifiers bitfield.
type KeyModifier int

const (
	ModNone  KeyModifier = 0
	ModAlt   KeyModifier = 1
	ModCtrl  KeyModifier = 2
	ModMeta  KeyModifier = 4
	ModShift KeyModifier = 8
)

// KeyEventData is a single key press with modifiers.
type KeyEventData struct {
	Key       string
	Modifiers KeyModifier
}

// ControlKey defines control characters understood by SendKeys.
type ControlKey string

const (
	KeyBackspace ControlKey = "\b"
	KeyEnter     ControlKey = "\r"
	KeyTab       ControlKey = "\t"
)

// ScrollDirection is the vertical direction of a logical scroll.
type ScrollDirection string

const (
	ScrollDown ScrollDirection = "down"
	ScrollUp   ScrollDirection = "up"
)
