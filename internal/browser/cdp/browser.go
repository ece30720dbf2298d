// internal/browser/cdp/browser.go
package cdp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/browser/stealth"
	"github.com/das-group/HOSIT/internal/config"
)

const navigationTimeout = 90 * time.Second

// allocatorFlags returns the command line switches of a launched browser.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	w, h := cfg.ViewportSize()
	flags := map[string]interface{}{
		"no-sandbox":             true,
		"disable-dev-shm-usage":  true,
		"enable-automation":      false,
		"disable-blink-features": "AutomationControlled",
		"window-size":            fmt.Sprintf("%d,%d", w, h),
		"headless":               cfg.Headless,
	}
	if cfg.Headless {
		flags["disable-gpu"] = true
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
	}
	for _, arg := range cfg.Args {
		name, value := parseArg(arg)
		if name != "" {
			flags[name] = value
		}
	}
	return flags
}

// parseArg splits "--name=value" or "--name" into a flag name and value.
func parseArg(arg string) (string, interface{}) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if arg == "" {
		return "", nil
	}
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// AllocatorOptions builds the exec allocator options for a launched browser.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// PersonaFor derives the stealth persona of a tab from the browser configuration.
func PersonaFor(cfg config.BrowserConfig) stealth.Persona {
	p := stealth.DefaultPersona
	if cfg.UserAgent != "" {
		p.UserAgent = cfg.UserAgent
	}
	if cfg.Locale != "" {
		p.Locale = cfg.Locale
		lang, _, _ := strings.Cut(cfg.Locale, "-")
		p.Languages = []string{cfg.Locale}
		if lang != cfg.Locale {
			p.Languages = append(p.Languages, lang)
		}
		if lang != "en" {
			p.Languages = append(p.Languages, "en-US", "en")
		}
	}
	if cfg.Timezone != "" {
		p.Timezone = cfg.Timezone
	}
	w, h := cfg.ViewportSize()
	p.Viewport = schemas.Viewport{Width: int64(w), Height: int64(h)}
	return p
}

// Browser owns the connection to one browser, launched or remote.
type Browser struct {
	cfg     config.BrowserConfig
	persona stealth.Persona
	logger  *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// Connect attaches to cfg.RemoteURL, or launches a local browser when it is empty.
func Connect(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	logger = logger.Named("browser")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		logger.Info("Connecting to remote browser.", zap.String("url", cfg.RemoteURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		logger.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
	}

	sugar := logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("cdp: failed to start browser: %w", err)
	}

	return &Browser{
		cfg:           cfg,
		persona:       PersonaFor(cfg),
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewTab opens a camouflaged tab.
func (b *Browser) NewTab(ctx context.Context) (*Tab, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	combined, stop := CombineContext(tabCtx, ctx)
	defer stop()
	if err := chromedp.Run(combined, stealth.Apply(b.persona, b.logger)); err != nil {
		cancel()
		return nil, fmt.Errorf("cdp: failed to open tab: %w", err)
	}

	exec := NewExecutor(tabCtx, b.logger,
		WithScreenshotQuality(b.cfg.ScreenshotQuality),
		WithWaitTimeout(b.cfg.WaitTimeout),
	)
	return newTab(exec, func() error {
		exec.releaseFrames()
		err := chromedp.Cancel(tabCtx)
		cancel()
		return err
	}, b.logger), nil
}

// Close shuts the browser down, or disconnects from a remote one.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
}

// Tab is a single browser tab. It is the TabCloser tracked by the session.
type Tab struct {
	exec   *Executor
	closer func() error
	logger *zap.Logger

	once     sync.Once
	closeErr error
}

var _ schemas.TabCloser = (*Tab)(nil)

func newTab(exec *Executor, closer func() error, logger *zap.Logger) *Tab {
	return &Tab{exec: exec, closer: closer, logger: logger}
}

// Executor returns the page executor of the tab.
func (t *Tab) Executor() *Executor {
	return t.exec
}

// BringToFront activates the tab.
func (t *Tab) BringToFront(ctx context.Context) error {
	return t.exec.BringToFront(ctx)
}

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.logger.Info("Navigating.", zap.String("url", url))
	return t.exec.do(ctx, "navigate", navigationTimeout, chromedp.Navigate(url))
}

// Close closes the tab once. A second call returns the first result.
func (t *Tab) Close(ctx context.Context) error {
	t.once.Do(func() {
		done := make(chan error, 1)
		go func() { done <- t.closer() }()
		select {
		case err := <-done:
			t.closeErr = err
		case <-ctx.Done():
			t.closeErr = fmt.Errorf("cdp: closing tab: %w", ctx.Err())
		}
	})
	return t.closeErr
}
