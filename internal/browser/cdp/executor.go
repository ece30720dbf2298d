// internal/browser/cdp/executor.go
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/humanoid"
)

// Per-operation budgets. A stuck DevTools round trip must not hang the session.
const (
	inputTimeout      = 10 * time.Second
	keyTimeout        = 5 * time.Second
	scriptTimeout     = 20 * time.Second
	screenshotTimeout = 20 * time.Second
	attachTimeout     = 10 * time.Second

	DefaultWaitTimeout       = 30 * time.Second
	DefaultScreenshotQuality = 75
)

var (
	// ErrElementNotFound is returned when a selector matches nothing or an invisible element.
	// It matches humanoid.ErrElementNotFound under errors.Is.
	ErrElementNotFound = fmt.Errorf("cdp: %w", humanoid.ErrElementNotFound)
	// ErrFrameNotFound is returned when no frame target matches the URL prefix.
	ErrFrameNotFound = errors.New("cdp: frame not found")
)

// RunActionsFunc executes chromedp actions against the executor's target.
type RunActionsFunc func(ctx context.Context, actions ...chromedp.Action) error

// EvaluateFunc evaluates a script expression and returns its JSON value.
type EvaluateFunc func(ctx context.Context, expression string) (json.RawMessage, error)

// Executor implements humanoid.Executor over the DevTools protocol. A page
// executor drives a tab. A frame executor reads the DOM of an out-of-process
// iframe while every input event, pause and screenshot goes through its page,
// so coordinates it reports are page coordinates.
type Executor struct {
	ctx            context.Context // target context carrying the chromedp connection
	logger         *zap.Logger
	runActionsFunc RunActionsFunc
	evalFunc       EvaluateFunc // nil evaluates through chromedp
	quality        int
	waitTimeout    time.Duration

	// Frame executors only.
	parent      *Executor
	framePrefix string

	// Page executors only.
	targetsFunc func(ctx context.Context) ([]*target.Info, error)
	attachFunc  func(ctx context.Context, id target.ID, prefix string) (*Executor, error)
	mu          sync.Mutex
	frames      map[target.ID]*Executor
	releases    []context.CancelFunc
}

var _ humanoid.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithRunActions replaces the action runner, mainly for tests.
func WithRunActions(fn RunActionsFunc) Option {
	return func(e *Executor) { e.runActionsFunc = fn }
}

// WithEvaluate replaces script evaluation, mainly for tests.
func WithEvaluate(fn EvaluateFunc) Option {
	return func(e *Executor) { e.evalFunc = fn }
}

// WithScreenshotQuality sets the JPEG quality of page screenshots.
func WithScreenshotQuality(q int) Option {
	return func(e *Executor) {
		if q > 0 && q <= 100 {
			e.quality = q
		}
	}
}

// WithWaitTimeout sets the default WaitVisible budget.
func WithWaitTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.waitTimeout = d
		}
	}
}

// WithTargets replaces the frame target lookup, mainly for tests.
func WithTargets(fn func(ctx context.Context) ([]*target.Info, error)) Option {
	return func(e *Executor) { e.targetsFunc = fn }
}

// WithAttach replaces how frame targets are attached, mainly for tests.
func WithAttach(fn func(ctx context.Context, id target.ID, prefix string) (*Executor, error)) Option {
	return func(e *Executor) { e.attachFunc = fn }
}

// NewExecutor creates a page executor bound to the chromedp tab context ctx.
func NewExecutor(ctx context.Context, logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		ctx:         ctx,
		logger:      logger.Named("cdp"),
		quality:     DefaultScreenshotQuality,
		waitTimeout: DefaultWaitTimeout,
		frames:      make(map[target.ID]*Executor),
	}
	e.runActionsFunc = e.run
	e.targetsFunc = func(context.Context) ([]*target.Info, error) { return chromedp.Targets(e.ctx) }
	e.attachFunc = e.attach
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// newFrameExecutor binds a frame target context to its page executor.
func newFrameExecutor(ctx context.Context, parent *Executor, prefix string, run RunActionsFunc) *Executor {
	f := &Executor{
		ctx:         ctx,
		logger:      parent.logger.With(zap.String("frame", prefix)),
		quality:     parent.quality,
		waitTimeout: parent.waitTimeout,
		parent:      parent,
		framePrefix: prefix,
	}
	f.runActionsFunc = run
	if f.runActionsFunc == nil {
		f.runActionsFunc = f.run
	}
	return f
}

// run executes actions on the target context, cancelled by either the target
// or the operational context.
func (e *Executor) run(ctx context.Context, actions ...chromedp.Action) error {
	combined, cancel := CombineContext(e.ctx, ctx)
	defer cancel()
	return chromedp.Run(combined, actions...)
}

// page returns the executor that owns input and rendering.
func (e *Executor) page() *Executor {
	if e.parent != nil {
		return e.parent
	}
	return e
}

// do runs actions under a per-operation timeout.
func (e *Executor) do(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := e.runActionsFunc(opCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		e.logger.Debug("Operation timed out.", zap.String("op", op), zap.Duration("timeout", timeout))
		return fmt.Errorf("cdp: %s timed out after %v: %w", op, timeout, opCtx.Err())
	}
	return fmt.Errorf("cdp: %s failed: %w", op, err)
}

func evalParams(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
}

// call invokes the function expression fn with JSON-encoded args in the target.
func (e *Executor) call(ctx context.Context, op, fn string, args ...interface{}) (json.RawMessage, error) {
	encoded := make([]string, len(args))
	for i, a := range args {
		encoded[i] = jsonEncode(a)
	}
	expr := fmt.Sprintf("(%s)(%s)", strings.TrimSpace(fn), strings.Join(encoded, ", "))

	var res json.RawMessage
	if e.evalFunc != nil {
		opCtx, cancel := context.WithTimeout(ctx, scriptTimeout)
		defer cancel()
		var err error
		if res, err = e.evalFunc(opCtx, expr); err != nil {
			return nil, fmt.Errorf("cdp: %s failed: %w", op, err)
		}
	} else if err := e.do(ctx, op, scriptTimeout, chromedp.Evaluate(expr, &res, evalParams)); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		res = json.RawMessage("null")
	}
	return res, nil
}

// jsonEncode safely encodes a value for script injection.
func jsonEncode(v interface{}) string {
	b, err := jsoniter.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// -- Scripts --

const probeScript = `(sel) => {
	const vh = window.innerHeight || document.documentElement.clientHeight;
	const el = document.querySelector(sel);
	if (!el) return { exists: false, top: 0, viewportHeight: vh };
	return { exists: true, top: el.getBoundingClientRect().top, viewportHeight: vh };
}`

const geometryScript = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return null;
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	if (rect.width <= 0 || rect.height <= 0 || style.display === 'none' || style.visibility === 'hidden') return null;
	return { x: rect.left, y: rect.top, width: rect.width, height: rect.height, tagName: el.tagName || '' };
}`

const scrollIntoViewScript = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	if (typeof el.scrollIntoViewIfNeeded === 'function') el.scrollIntoViewIfNeeded(true);
	else el.scrollIntoView({ block: 'center', inline: 'center' });
	return true;
}`

const focusScript = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.focus();
	return true;
}`

const selectScript = `(sel, value) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
}`

const frameOffsetScript = `(prefix) => {
	for (const f of document.querySelectorAll('iframe')) {
		if (f.src && f.src.startsWith(prefix)) {
			const r = f.getBoundingClientRect();
			return { x: r.left + f.clientLeft, y: r.top + f.clientTop };
		}
	}
	return null;
}`

const scrollOffsetScript = `() => ({ x: window.scrollX, y: window.scrollY })`

const hrefScript = `() => document.location.href`

// -- humanoid.ScrollDriver --

// Sleep pauses on the page executor, respecting ctx.
func (e *Executor) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return e.page().runActionsFunc(ctx, chromedp.Sleep(d))
}

// ProbeElement reports the viewport-relative top offset of selector in this target.
func (e *Executor) ProbeElement(ctx context.Context, selector string) (schemas.ScrollProbe, error) {
	var probe schemas.ScrollProbe
	res, err := e.call(ctx, "probe", probeScript, selector)
	if err != nil {
		return probe, err
	}
	if err := jsoniter.Unmarshal(res, &probe); err != nil {
		return probe, fmt.Errorf("cdp: failed to decode probe for '%s': %w (payload: %s)", selector, err, string(res))
	}
	return probe, nil
}

// keyDefinition carries the DevTools fields of a named key.
type keyDefinition struct {
	code string
	vk   int64
	text string
}

var keyDefinitions = map[string]keyDefinition{
	"Enter":      {"Enter", 13, "\r"},
	"Tab":        {"Tab", 9, ""},
	"Escape":     {"Escape", 27, ""},
	"Backspace":  {"Backspace", 8, ""},
	"ArrowUp":    {"ArrowUp", 38, ""},
	"ArrowDown":  {"ArrowDown", 40, ""},
	"ArrowLeft":  {"ArrowLeft", 37, ""},
	"ArrowRight": {"ArrowRight", 39, ""},
	"PageUp":     {"PageUp", 33, ""},
	"PageDown":   {"PageDown", 34, ""},
	"Home":       {"Home", 36, ""},
	"End":        {"End", 35, ""},
	" ":          {"Space", 32, " "},
}

func modifiers(m schemas.KeyModifier) input.Modifier {
	var out input.Modifier
	if m&schemas.ModAlt != 0 {
		out |= input.ModifierAlt
	}
	if m&schemas.ModCtrl != 0 {
		out |= input.ModifierCtrl
	}
	if m&schemas.ModMeta != 0 {
		out |= input.ModifierMeta
	}
	if m&schemas.ModShift != 0 {
		out |= input.ModifierShift
	}
	return out
}

// keyEvent builds the DevTools event of a single key transition. A down
// transition of a key that produces text is a keyDown, otherwise a rawKeyDown.
func keyEvent(data schemas.KeyEventData) *input.DispatchKeyEventParams {
	def, known := keyDefinitions[data.Key]
	if !known && len([]rune(data.Key)) == 1 {
		def = keyDefinition{text: data.Key}
	}

	typ := input.KeyUp
	if data.Type == schemas.KeyDown {
		typ = input.KeyRawDown
		if def.text != "" {
			typ = input.KeyDown
		}
	}

	p := input.DispatchKeyEvent(typ).
		WithKey(data.Key).
		WithModifiers(modifiers(data.Modifiers))
	if def.code != "" {
		p = p.WithCode(def.code)
	}
	if def.vk != 0 {
		p = p.WithWindowsVirtualKeyCode(def.vk).WithNativeVirtualKeyCode(def.vk)
	}
	if typ == input.KeyDown {
		p = p.WithText(def.text).WithUnmodifiedText(def.text)
	}
	return p
}

// DispatchStructuredKey sends a single key transition to the focused element of the page.
func (e *Executor) DispatchStructuredKey(ctx context.Context, data schemas.KeyEventData) error {
	return e.page().do(ctx, "key "+string(data.Type)+" "+data.Key, keyTimeout, keyEvent(data))
}

// -- Page level --

// Screenshot captures the page as JPEG. Frames capture their page.
func (e *Executor) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p := e.page()
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, p.quality)
	} else {
		action = chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(int64(p.quality)).
				Do(ctx)
			return err
		})
	}
	if err := p.do(ctx, "screenshot", screenshotTimeout, action); err != nil {
		return nil, err
	}
	return buf, nil
}

// BringToFront activates the tab.
func (e *Executor) BringToFront(ctx context.Context) error {
	return e.page().do(ctx, "bring to front", inputTimeout, page.BringToFront())
}

// URL returns the document URL of this target.
func (e *Executor) URL(ctx context.Context) (string, error) {
	var url string
	if e.parent == nil {
		if err := e.do(ctx, "location", scriptTimeout, chromedp.Location(&url)); err != nil {
			return "", err
		}
		return url, nil
	}
	res, err := e.call(ctx, "location", hrefScript)
	if err != nil {
		return "", err
	}
	if err := jsoniter.Unmarshal(res, &url); err != nil {
		return "", fmt.Errorf("cdp: failed to decode location: %w", err)
	}
	return url, nil
}

// -- Element geometry --

// frameOffset is the position of this frame's viewport in page coordinates.
func (e *Executor) frameOffset(ctx context.Context) (x, y float64, err error) {
	if e.parent == nil {
		return 0, 0, nil
	}
	res, err := e.parent.call(ctx, "frame offset", frameOffsetScript, e.framePrefix)
	if err != nil {
		return 0, 0, err
	}
	if string(res) == "null" {
		// Nested frames are not reachable from the top document.
		e.logger.Debug("Frame element not found in page, assuming zero offset.")
		return 0, 0, nil
	}
	var off struct{ X, Y float64 }
	if err := jsoniter.Unmarshal(res, &off); err != nil {
		return 0, 0, fmt.Errorf("cdp: failed to decode frame offset: %w", err)
	}
	return off.X, off.Y, nil
}

// GetElementGeometry returns the bounding box of a visible element in page coordinates.
func (e *Executor) GetElementGeometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	res, err := e.call(ctx, "geometry", geometryScript, selector)
	if err != nil {
		return nil, err
	}
	if string(res) == "null" {
		e.logger.Debug("Element geometry evaluation returned null (not found or not visible).", zap.String("selector", selector))
		return nil, fmt.Errorf("%w: '%s' not found or not visible", ErrElementNotFound, selector)
	}

	var geo schemas.ElementGeometry
	if err := jsoniter.Unmarshal(res, &geo); err != nil {
		return nil, fmt.Errorf("cdp: failed to decode geometry for '%s': %w (payload: %s)", selector, err, string(res))
	}
	dx, dy, err := e.frameOffset(ctx)
	if err != nil {
		return nil, err
	}
	geo.X += dx
	geo.Y += dy
	return &geo, nil
}

// WaitVisible waits for selector to become visible in this target.
func (e *Executor) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.waitTimeout
	}
	return e.do(ctx, "wait visible '"+selector+"'", timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// -- Input --

// DispatchMouseEvent dispatches a single mouse event at page coordinates.
func (e *Executor) DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	p := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))
	if data.Type == schemas.MouseWheel {
		p = p.WithDeltaX(data.DeltaX).WithDeltaY(data.DeltaY)
	}
	return e.page().do(ctx, "mouse "+string(data.Type), inputTimeout, p)
}

// DispatchTap sends a touch start and end at page coordinates.
func (e *Executor) DispatchTap(ctx context.Context, x, y float64) error {
	start := input.DispatchTouchEvent(input.TouchStart, []*input.TouchPoint{{X: x, Y: y}})
	end := input.DispatchTouchEvent(input.TouchEnd, []*input.TouchPoint{})
	return e.page().do(ctx, "tap", inputTimeout, start, end)
}

// center scrolls selector into view and returns its center in page coordinates.
func (e *Executor) center(ctx context.Context, selector string) (float64, float64, error) {
	res, err := e.call(ctx, "scroll into view", scrollIntoViewScript, selector)
	if err != nil {
		return 0, 0, err
	}
	if string(res) != "true" {
		return 0, 0, fmt.Errorf("%w: '%s'", ErrElementNotFound, selector)
	}
	geo, err := e.GetElementGeometry(ctx, selector)
	if err != nil {
		return 0, 0, err
	}
	x, y := geo.Center()
	return x, y, nil
}

// NativeClick moves to the element center and clicks, holding the button for hold.
func (e *Executor) NativeClick(ctx context.Context, selector string, hold time.Duration) error {
	x, y, err := e.center(ctx, selector)
	if err != nil {
		return err
	}
	p := e.page()
	events := []schemas.MouseEventData{
		{Type: schemas.MouseMove, X: x, Y: y, Button: schemas.ButtonNone},
		{Type: schemas.MousePress, X: x, Y: y, Button: schemas.ButtonLeft, Buttons: 1, ClickCount: 1},
	}
	for _, ev := range events {
		if err := p.DispatchMouseEvent(ctx, ev); err != nil {
			return err
		}
	}
	if err := p.Sleep(ctx, hold); err != nil {
		return err
	}
	return p.DispatchMouseEvent(ctx, schemas.MouseEventData{Type: schemas.MouseRelease, X: x, Y: y, Button: schemas.ButtonLeft, ClickCount: 1})
}

// NativeTap taps the element center.
func (e *Executor) NativeTap(ctx context.Context, selector string) error {
	x, y, err := e.center(ctx, selector)
	if err != nil {
		return err
	}
	return e.DispatchTap(ctx, x, y)
}

// Hover moves the pointer onto the element center.
func (e *Executor) Hover(ctx context.Context, selector string) error {
	x, y, err := e.center(ctx, selector)
	if err != nil {
		return err
	}
	return e.DispatchMouseEvent(ctx, schemas.MouseEventData{Type: schemas.MouseMove, X: x, Y: y, Button: schemas.ButtonNone})
}

// SelectOption sets the value of a select element and fires its input and change events.
func (e *Executor) SelectOption(ctx context.Context, selector, value string) error {
	res, err := e.call(ctx, "select", selectScript, selector, value)
	if err != nil {
		return err
	}
	if string(res) != "true" {
		return fmt.Errorf("%w: '%s'", ErrElementNotFound, selector)
	}
	return nil
}

// SendKeys focuses selector, when given, and types keys through the page.
func (e *Executor) SendKeys(ctx context.Context, selector, keys string) error {
	if selector != "" {
		res, err := e.call(ctx, "focus", focusScript, selector)
		if err != nil {
			return err
		}
		if string(res) != "true" {
			return fmt.Errorf("%w: '%s'", ErrElementNotFound, selector)
		}
	}
	return e.page().do(ctx, "send keys", inputTimeout, chromedp.KeyEvent(keys))
}

// -- Scripts and captures --

// ExecuteScript calls the function expression script with JSON-encoded args
// and returns its JSON result.
func (e *Executor) ExecuteScript(ctx context.Context, script string, args []interface{}) (json.RawMessage, error) {
	return e.call(ctx, "script", script, args...)
}

// ElementScreenshot captures the visible element as PNG.
func (e *Executor) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	geo, err := e.GetElementGeometry(ctx, selector)
	if err != nil {
		return nil, err
	}
	p := e.page()
	res, err := p.call(ctx, "scroll offset", scrollOffsetScript)
	if err != nil {
		return nil, err
	}
	var scroll struct{ X, Y float64 }
	if err := jsoniter.Unmarshal(res, &scroll); err != nil {
		return nil, fmt.Errorf("cdp: failed to decode scroll offset: %w", err)
	}

	clip := &page.Viewport{X: geo.X + scroll.X, Y: geo.Y + scroll.Y, Width: geo.Width, Height: geo.Height, Scale: 1}
	var buf []byte
	err = p.do(ctx, "element screenshot", screenshotTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(clip).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// -- Frames --

// Frame returns an executor for the first iframe target whose URL starts with
// urlPrefix. Executors are cached per target and released with the page.
func (e *Executor) Frame(ctx context.Context, urlPrefix string) (humanoid.Executor, error) {
	p := e.page()

	opCtx, cancel := context.WithTimeout(ctx, attachTimeout)
	defer cancel()
	infos, err := p.targetsFunc(opCtx)
	if err != nil {
		return nil, fmt.Errorf("cdp: failed to list targets: %w", err)
	}

	var match *target.Info
	for _, info := range infos {
		if info.Type == "iframe" && strings.HasPrefix(info.URL, urlPrefix) {
			match = info
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: no frame with URL prefix %q", ErrFrameNotFound, urlPrefix)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.frames[match.TargetID]; ok {
		return f, nil
	}
	f, err := p.attachFunc(opCtx, match.TargetID, urlPrefix)
	if err != nil {
		return nil, fmt.Errorf("cdp: failed to attach to frame %s: %w", match.TargetID, err)
	}
	p.frames[match.TargetID] = f
	p.logger.Debug("Attached to frame.", zap.String("prefix", urlPrefix), zap.String("url", match.URL))
	return f, nil
}

// attach connects to a frame target through the browser of this page.
func (e *Executor) attach(ctx context.Context, id target.ID, prefix string) (*Executor, error) {
	frameCtx, cancel := chromedp.NewContext(e.ctx, chromedp.WithTargetID(id))
	combined, stop := CombineContext(frameCtx, ctx)
	defer stop()
	if err := chromedp.Run(combined); err != nil {
		cancel()
		return nil, err
	}
	e.releases = append(e.releases, cancel)
	return newFrameExecutor(frameCtx, e, prefix, nil), nil
}

// releaseFrames detaches every frame executor of this page.
func (e *Executor) releaseFrames() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, release := range e.releases {
		release()
	}
	e.releases = nil
	e.frames = make(map[target.ID]*Executor)
}
