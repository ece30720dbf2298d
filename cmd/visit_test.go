// cmd/visit_test.go
package cmd

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/das-group/HOSIT/internal/config"
	"github.com/das-group/HOSIT/internal/humanoid"
)

// recordingDriver records every scenario step. failOn makes the named step fail.
type recordingDriver struct {
	mu     sync.Mutex
	calls  []string
	failOn string
	err    error
}

func (d *recordingDriver) record(step string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, step)
	if step == d.failOn {
		return d.err
	}
	return nil
}

func (d *recordingDriver) steps() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *recordingDriver) Navigate(_ context.Context, url string) error {
	return d.record("navigate " + url)
}

func (d *recordingDriver) RandomWait(context.Context, *humanoid.TimeRange) error {
	return d.record("wait")
}

func (d *recordingDriver) WaitForSelector(_ context.Context, selector string, _ bool) error {
	return d.record("waitFor " + selector)
}

func (d *recordingDriver) Click(_ context.Context, selector string, _ humanoid.ClickOptions) error {
	return d.record("click " + selector)
}

func (d *recordingDriver) Type(_ context.Context, selector, text string, _ humanoid.TypeOptions) error {
	return d.record("type " + selector + " " + text)
}

func (d *recordingDriver) TypeEnter(context.Context) error {
	return d.record("enter")
}

func (d *recordingDriver) ScrollToBottom(_ context.Context, _, press bool) (humanoid.ScrollOutcome, error) {
	if press {
		return humanoid.ScrollOutcome{}, d.record("scrollBottom press")
	}
	return humanoid.ScrollOutcome{Phase: humanoid.PhaseConverged}, d.record("scrollBottom")
}

func (d *recordingDriver) LogScreenshot(_ context.Context, text string, _ bool) error {
	return d.record("screenshot " + text)
}

// blockingGuard runs until its context is cancelled.
type blockingGuard struct {
	stopped chan struct{}
}

func (g *blockingGuard) Run(ctx context.Context) error {
	<-ctx.Done()
	close(g.stopped)
	return nil
}

// fakeFactory hands out prepared components.
type fakeFactory struct {
	driver   *recordingDriver
	guard    Runner
	err      error
	shutdown int
	opts     SessionOptions
}

func (f *fakeFactory) Create(_ context.Context, _ *config.Config, opts SessionOptions, _ *zap.Logger) (*Components, error) {
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	c := &Components{
		SessionID: "session-1",
		Seed:      "bundesliga",
		Driver:    f.driver,
		Navigator: f.driver,
		Guard:     f.guard,
	}
	c.onShutdown(func(context.Context) error {
		f.shutdown++
		return nil
	})
	return c, nil
}

func TestRunVisit(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("full scenario with search", func(t *testing.T) {
		d := &recordingDriver{}
		guard := &blockingGuard{stopped: make(chan struct{})}
		f := &fakeFactory{driver: d, guard: guard}

		err := runVisit(context.Background(), zaptest.NewLogger(t), config.NewDefaultConfig(),
			visitOptions{Target: "example.org", SearchSelector: "#q", Scroll: true},
			SessionOptions{Seed: "explicit"}, f)
		require.NoError(t, err)

		want := []string{
			"navigate https://example.org",
			"wait",
			"waitFor #q",
			"click #q",
			"type #q bundesliga",
			"enter",
			"wait",
			"scrollBottom",
			"screenshot visit: https://example.org",
		}
		if diff := cmp.Diff(want, d.steps()); diff != "" {
			t.Errorf("scenario steps mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "explicit", f.opts.Seed)
		assert.Equal(t, 1, f.shutdown)
		<-guard.stopped
	})

	t.Run("without search and scroll", func(t *testing.T) {
		d := &recordingDriver{}
		f := &fakeFactory{driver: d}

		err := runVisit(context.Background(), zaptest.NewLogger(t), config.NewDefaultConfig(),
			visitOptions{Target: "http://example.org/page"}, SessionOptions{}, f)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"navigate http://example.org/page",
			"wait",
			"screenshot visit: http://example.org/page",
		}, d.steps())
	})

	t.Run("page keys", func(t *testing.T) {
		d := &recordingDriver{}
		f := &fakeFactory{driver: d}

		err := runVisit(context.Background(), zaptest.NewLogger(t), config.NewDefaultConfig(),
			visitOptions{Target: "example.org", Scroll: true, Press: true}, SessionOptions{}, f)
		require.NoError(t, err)
		assert.Contains(t, d.steps(), "scrollBottom press")
	})

	t.Run("factory error", func(t *testing.T) {
		boom := errors.New("browser unreachable")
		f := &fakeFactory{err: boom}

		err := runVisit(context.Background(), zaptest.NewLogger(t), config.NewDefaultConfig(),
			visitOptions{Target: "example.org"}, SessionOptions{}, f)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failed to initialize session components")
	})

	t.Run("scenario error stops guard and shuts down", func(t *testing.T) {
		boom := errors.New("navigation failed")
		d := &recordingDriver{failOn: "navigate https://example.org", err: boom}
		guard := &blockingGuard{stopped: make(chan struct{})}
		f := &fakeFactory{driver: d, guard: guard}

		err := runVisit(context.Background(), zaptest.NewLogger(t), config.NewDefaultConfig(),
			visitOptions{Target: "example.org", Scroll: true}, SessionOptions{}, f)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{"navigate https://example.org"}, d.steps())
		assert.Equal(t, 1, f.shutdown)
		<-guard.stopped
	})
}

func TestVisitCmd_RunsThroughFactory(t *testing.T) {
	path, _ := writeConfig(t, "")
	d := &recordingDriver{}
	f := &fakeFactory{driver: d}

	_, err := executeCommand(t, f, "--config", path, "visit", "--scroll=false", "--seed", "forced", "example.org")
	require.NoError(t, err)
	assert.Equal(t, "forced", f.opts.Seed)
	assert.Equal(t, "navigate https://example.org", d.steps()[0])
}

func TestVisitCmd_RequiresTarget(t *testing.T) {
	_, err := executeCommand(t, &fakeFactory{}, "visit")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestApplyVisitFlagOverrides(t *testing.T) {
	t.Run("explicit flags override", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cmd := newVisitCmd(&fakeFactory{})
		require.NoError(t, cmd.ParseFlags([]string{"--headless", "--remote-url", "ws://127.0.0.1:9222", "--reuse-seed"}))

		applyVisitFlagOverrides(cmd, cfg)
		assert.True(t, cfg.Browser().Headless)
		assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser().RemoteURL)
		assert.True(t, cfg.Seed().Reuse)
	})

	t.Run("unset flags keep config", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		cfg.SetBrowserHeadless(true)
		cmd := newVisitCmd(&fakeFactory{})
		require.NoError(t, cmd.ParseFlags(nil))

		applyVisitFlagOverrides(cmd, cfg)
		assert.True(t, cfg.Browser().Headless)
		assert.Empty(t, cfg.Browser().RemoteURL)
	})
}

func TestNormalizeTarget(t *testing.T) {
	assert.Equal(t, "https://example.org", normalizeTarget(" example.org "))
	assert.Equal(t, "http://example.org", normalizeTarget("http://example.org"))
	assert.Equal(t, "https://example.org/x", normalizeTarget("https://example.org/x"))
}

func TestComponents_ShutdownReverseOrder(t *testing.T) {
	var order []int
	c := &Components{}
	c.onShutdown(func(context.Context) error { order = append(order, 1); return nil })
	c.onShutdown(func(context.Context) error { order = append(order, 2); return errors.New("tab gone") })
	c.onShutdown(func(ctx context.Context) error {
		order = append(order, 3)
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Shutdown(ctx)
	assert.EqualError(t, err, "tab gone")
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.NoError(t, c.Shutdown(context.Background()))
}
