package schemas

import "time"

// -- Browser Persona Schemas --

// Viewport is the emulated window size applied to every tab of a session.
type Viewport struct {
	Width  int64 `json:"width" mapstructure:"width"`
	Height int64 `json:"height" mapstructure:"height"`
}

// DefaultViewport matches the window size most sessions run with.
var DefaultViewport = Viewport{Width: 1366, Height: 768}

// -- Element Geometry --

// ElementGeometry is the bounding box of a DOM element in viewport coordinates.
// It is re-queried for every interaction since target pages mutate.
type ElementGeometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// TagName (e.g., "INPUT", "BUTTON") is kept for diagnostics.
	TagName string `json:"tagName,omitempty"`
}

// Center returns the geometric center of the box.
func (g ElementGeometry) Center() (float64, float64) {
	return g.X + g.Width/2, g.Y + g.Height/2
}

// -- Input Events --

// MouseEventType defines the type of a mouse event.
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
	ButtonNone   MouseButton = "none"
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
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

// KeyEventType distinguishes key down from key up.
type KeyEventType string

const (
	KeyDown KeyEventType = "keyDown"
	KeyUp   KeyEventType = "keyUp"
)

// KeyModifier is a bitfield of held modifier keys.
type KeyModifier int

const (
	ModNone  KeyModifier = 0
	ModAlt   KeyModifier = 1
	ModCtrl  KeyModifier = 2
	ModMeta  KeyModifier = 4
	ModShift KeyModifier = 8
)

// KeyEventData describes a single named key transition (e.g. "ArrowDown", "Enter").
type KeyEventData struct {
	Type      KeyEventType `json:"type"`
	Key       string       `json:"key"`
	Modifiers KeyModifier  `json:"modifiers"`
}

// -- Diagnostics --

// LogEntry is a single structured record produced by the engine. Entries are
// append-only; the engine never reads them back.
type LogEntry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Screenshot []byte    `json:"screenshot,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ScrollProbe is a snapshot of a target element's position relative to the viewport.
type ScrollProbe struct {
	Exists         bool    `json:"exists"`
	Top            float64 `json:"top"`
	ViewportHeight float64 `json:"viewportHeight"`
}
