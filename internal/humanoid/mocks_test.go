package humanoid

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/captcha"
	"github.com/das-group/HOSIT/internal/random"
	"github.com/das-group/HOSIT/internal/session"
)

// mockExecutor implements Executor for testing. Every call is recorded.
// If a Mock* override is set it replaces the default behavior; overrides may
// call the corresponding Default* method.
type mockExecutor struct {
	t  *testing.T
	mu sync.Mutex

	dispatchedEvents []schemas.MouseEventData
	sentKeys         []string
	keyTargets       []string
	structuredKeys   []schemas.KeyEventData
	sleepDurations   []time.Duration
	scripts          []string
	scriptArgs       [][]interface{}
	nativeClicks     []string
	nativeHolds      []time.Duration
	taps             []Vector2D
	hovered          []string
	selected         map[string]string
	waitTimeouts     []time.Duration
	frontCount       int
	screenshots      int
	elementShots     []string

	// geometry is returned by GetElementGeometry when no override is set.
	geometry schemas.ElementGeometry
	// scriptResults maps a script to the JSON it returns.
	scriptResults map[string]string
	url           string

	MockGetElementGeometry    func(ctx context.Context, selector string) (*schemas.ElementGeometry, error)
	MockExecuteScript         func(ctx context.Context, script string, args []interface{}) (json.RawMessage, error)
	MockSleep                 func(ctx context.Context, d time.Duration) error
	MockDispatchMouseEvent    func(ctx context.Context, data schemas.MouseEventData) error
	MockSendKeys              func(ctx context.Context, selector, keys string) error
	MockDispatchStructuredKey func(ctx context.Context, data schemas.KeyEventData) error
	MockProbeElement          func(ctx context.Context, selector string) (schemas.ScrollProbe, error)
	MockNativeClick           func(ctx context.Context, selector string, hold time.Duration) error
	MockWaitVisible           func(ctx context.Context, selector string, timeout time.Duration) error
	MockScreenshot            func(ctx context.Context, fullPage bool) ([]byte, error)
	MockElementScreenshot     func(ctx context.Context, selector string) ([]byte, error)
	MockURL                   func(ctx context.Context) (string, error)
	MockFrame                 func(ctx context.Context, urlPrefix string) (Executor, error)
	MockHover                 func(ctx context.Context, selector string) error
}

var _ Executor = (*mockExecutor)(nil)

// newMockExecutor creates a mock whose elements are 100x100 boxes at the origin.
func newMockExecutor(t *testing.T) *mockExecutor {
	return &mockExecutor{
		t:             t,
		geometry:      schemas.ElementGeometry{X: 0, Y: 0, Width: 100, Height: 100, TagName: "BUTTON"},
		scriptResults: make(map[string]string),
		selected:      make(map[string]string),
		url:           "https://www.example.org/start",
	}
}

func (m *mockExecutor) Sleep(ctx context.Context, d time.Duration) error {
	if m.MockSleep != nil {
		return m.MockSleep(ctx, d)
	}
	return m.DefaultSleep(ctx, d)
}

func (m *mockExecutor) DefaultSleep(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sleepDurations = append(m.sleepDurations, d)
	return nil
}

func (m *mockExecutor) ProbeElement(ctx context.Context, selector string) (schemas.ScrollProbe, error) {
	if m.MockProbeElement != nil {
		return m.MockProbeElement(ctx, selector)
	}
	return schemas.ScrollProbe{Exists: true, Top: 10, ViewportHeight: 768}, nil
}

func (m *mockExecutor) DispatchStructuredKey(ctx context.Context, data schemas.KeyEventData) error {
	if m.MockDispatchStructuredKey != nil {
		return m.MockDispatchStructuredKey(ctx, data)
	}
	return m.DefaultDispatchStructuredKey(ctx, data)
}

func (m *mockExecutor) DefaultDispatchStructuredKey(ctx context.Context, data schemas.KeyEventData) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structuredKeys = append(m.structuredKeys, data)
	return nil
}

func (m *mockExecutor) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if m.MockScreenshot != nil {
		return m.MockScreenshot(ctx, fullPage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screenshots++
	return []byte{0xff, 0xd8, 0xff, 0xe0}, nil
}

func (m *mockExecutor) BringToFront(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frontCount++
	return nil
}

func (m *mockExecutor) URL(ctx context.Context) (string, error) {
	if m.MockURL != nil {
		return m.MockURL(ctx)
	}
	return m.url, nil
}

func (m *mockExecutor) GetElementGeometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error) {
	if m.MockGetElementGeometry != nil {
		return m.MockGetElementGeometry(ctx, selector)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	geo := m.geometry
	return &geo, nil
}

func (m *mockExecutor) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	m.mu.Lock()
	m.waitTimeouts = append(m.waitTimeouts, timeout)
	m.mu.Unlock()
	if m.MockWaitVisible != nil {
		return m.MockWaitVisible(ctx, selector, timeout)
	}
	return nil
}

func (m *mockExecutor) DispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	if m.MockDispatchMouseEvent != nil {
		return m.MockDispatchMouseEvent(ctx, data)
	}
	return m.DefaultDispatchMouseEvent(ctx, data)
}

func (m *mockExecutor) DefaultDispatchMouseEvent(ctx context.Context, data schemas.MouseEventData) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchedEvents = append(m.dispatchedEvents, data)
	return nil
}

func (m *mockExecutor) DispatchTap(_ context.Context, x, y float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taps = append(m.taps, Vector2D{X: x, Y: y})
	return nil
}

func (m *mockExecutor) NativeClick(ctx context.Context, selector string, hold time.Duration) error {
	if m.MockNativeClick != nil {
		return m.MockNativeClick(ctx, selector, hold)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nativeClicks = append(m.nativeClicks, selector)
	m.nativeHolds = append(m.nativeHolds, hold)
	return nil
}

func (m *mockExecutor) NativeTap(_ context.Context, selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nativeClicks = append(m.nativeClicks, "tap:"+selector)
	return nil
}

func (m *mockExecutor) Hover(ctx context.Context, selector string) error {
	if m.MockHover != nil {
		return m.MockHover(ctx, selector)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hovered = append(m.hovered, selector)
	return nil
}

func (m *mockExecutor) SelectOption(_ context.Context, selector, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected[selector] = value
	return nil
}

func (m *mockExecutor) SendKeys(ctx context.Context, selector, keys string) error {
	if m.MockSendKeys != nil {
		return m.MockSendKeys(ctx, selector, keys)
	}
	return m.DefaultSendKeys(ctx, selector, keys)
}

func (m *mockExecutor) DefaultSendKeys(ctx context.Context, selector, keys string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentKeys = append(m.sentKeys, keys)
	m.keyTargets = append(m.keyTargets, selector)
	return nil
}

func (m *mockExecutor) ExecuteScript(ctx context.Context, script string, args []interface{}) (json.RawMessage, error) {
	m.mu.Lock()
	m.scripts = append(m.scripts, script)
	m.scriptArgs = append(m.scriptArgs, args)
	m.mu.Unlock()
	if m.MockExecuteScript != nil {
		return m.MockExecuteScript(ctx, script, args)
	}
	return m.DefaultExecuteScript(ctx, script, args)
}

func (m *mockExecutor) DefaultExecuteScript(ctx context.Context, script string, _ []interface{}) (json.RawMessage, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.scriptResults[script]; ok {
		return json.RawMessage(res), nil
	}
	return json.RawMessage("true"), nil
}

func (m *mockExecutor) ElementScreenshot(ctx context.Context, selector string) ([]byte, error) {
	if m.MockElementScreenshot != nil {
		return m.MockElementScreenshot(ctx, selector)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elementShots = append(m.elementShots, selector)
	return []byte("element:" + selector), nil
}

func (m *mockExecutor) Frame(ctx context.Context, urlPrefix string) (Executor, error) {
	if m.MockFrame != nil {
		return m.MockFrame(ctx, urlPrefix)
	}
	return nil, errors.New("no matching frame")
}

// pressedKeys returns the keys of all keyDown transitions.
func (m *mockExecutor) pressedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for _, k := range m.structuredKeys {
		if k.Type == schemas.KeyDown {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

// eventsOfType filters the dispatched mouse events.
func (m *mockExecutor) eventsOfType(typ schemas.MouseEventType) []schemas.MouseEventData {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []schemas.MouseEventData
	for _, e := range m.dispatchedEvents {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// -- Collaborator fakes --

// memorySink records entries in memory.
type memorySink struct {
	mu      sync.Mutex
	entries []schemas.LogEntry
}

func (s *memorySink) NewLog(_ context.Context, e schemas.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *memorySink) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// fakeFailureHandler records escalations and sets the fatal flag, standing in
// for the recovery protocol with process exit disabled.
type fakeFailureHandler struct {
	sc    *session.Context
	mu    sync.Mutex
	calls []error
}

func (f *fakeFailureHandler) Handle(_ context.Context, _ schemas.Screenshotter, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, err)
	if f.sc != nil {
		f.sc.Fatal.Set(err)
	}
	return err
}

func (f *fakeFailureHandler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSolver returns canned results.
type fakeSolver struct {
	image     captcha.Result
	challenge captcha.Result
	images    [][]byte
	siteURL   string
	siteKey   string
	userAgent string
}

func (f *fakeSolver) SolveImageCaptcha(_ context.Context, image []byte) captcha.Result {
	f.images = append(f.images, image)
	return f.image
}

func (f *fakeSolver) SolveChallengeCaptcha(_ context.Context, siteURL, siteKey, userAgent string) captcha.Result {
	f.siteURL, f.siteKey, f.userAgent = siteURL, siteKey, userAgent
	return f.challenge
}

// testHarness bundles a Humanoid with its recorded collaborators.
type testHarness struct {
	h        *Humanoid
	exec     *mockExecutor
	sc       *session.Context
	sink     *memorySink
	failures *fakeFailureHandler
	solver   *fakeSolver
}

// newTestHarness builds a Humanoid over a mock executor with a fixed seed.
// mutate may adjust the config before construction.
func newTestHarness(t *testing.T, mutate func(*Config)) *testHarness {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	exec := newMockExecutor(t)
	sink := &memorySink{}
	rng := random.New("test-seed", random.FixedEntropy(42))
	sc := session.New(nil, rng, sink, zaptest.NewLogger(t))
	failures := &fakeFailureHandler{sc: sc}
	solver := &fakeSolver{}
	return &testHarness{
		h:        New(sc, exec, failures, solver, cfg),
		exec:     exec,
		sc:       sc,
		sink:     sink,
		failures: failures,
		solver:   solver,
	}
}
