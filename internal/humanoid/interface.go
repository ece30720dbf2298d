// internal/humanoid/interface.go
package humanoid

import (
	"context"
	"encoding/json"
	"time"

	"github.com/das-group/HOSIT/api/schemas"
)

// ClickOptions tunes a single Click.
type ClickOptions struct {
	// NoDelay releases the button immediately instead of holding it.
	NoDelay bool
	// Tap dispatches a touch tap instead of a pointer click.
	Tap bool
	// TopRight aims for the top-right 1/8 margin of the element.
	TopRight bool
	// DoTrigger falls back to a scripted element.click() on failure instead of escalating.
	DoTrigger bool
}

// TypeOptions tunes a single Type. A nil Delay uses the identity's typing speed.
type TypeOptions struct {
	Delay *TimeRange
}

// Controller is the high-level interaction surface implemented by Humanoid.
type Controller interface {
	Click(ctx context.Context, selector string, opts ClickOptions) error
	Type(ctx context.Context, selector, text string, opts TypeOptions) error
	Hover(ctx context.Context, selector string) error
	Select(ctx context.Context, selector, value string) error
	ScrollTo(ctx context.Context, req ScrollRequest) (ScrollOutcome, error)
	RandomWait(ctx context.Context, r *TimeRange) error
}

// ScrollDriver is the subset of the driver the scroll engine needs.
type ScrollDriver interface {
	Sleep(ctx context.Context, d time.Duration) error
	// ProbeElement reports whether the selector exists and its viewport-relative top offset.
	ProbeElement(ctx context.Context, selector string) (schemas.ScrollProbe, error)
	// DispatchStructuredKey sends a single key transition.
	DispatchStructuredKey(ctx context.Context, data schemas.KeyEventData) error
}

// Executor is the low-level driver the Humanoid acts through. Every call is a
// fallible round trip to the remote browser.
type Executor interface {
	ScrollDriver
	schemas.Screenshotter

	// BringToFront activates the tab owning this executor.
	BringToFront(ctx context.Context) error
	// URL returns the current document URL.
	URL(ctx context.Context) (string, error)

	GetElementGeometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error)
	// WaitVisible waits for selector to become visible. A zero timeout uses the driver's default budget.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error
	DispatchTap(ctx context.Context, x, y float64) error
	// NativeClick clicks the element center through the driver, holding for hold.
	NativeClick(ctx context.Context, selector string, hold time.Duration) error
	NativeTap(ctx context.Context, selector string) error
	Hover(ctx context.Context, selector string) error
	SelectOption(ctx context.Context, selector, value string) error

	// SendKeys types keys into selector, or into the focused element when selector is empty.
	SendKeys(ctx context.Context, selector, keys string) error

	ExecuteScript(ctx context.Context, script string, args []interface{}) (json.RawMessage, error)
	ElementScreenshot(ctx context.Context, selector string) ([]byte, error)

	// Frame returns an executor bound to the first frame whose URL starts with urlPrefix.
	Frame(ctx context.Context, urlPrefix string) (Executor, error)
}
