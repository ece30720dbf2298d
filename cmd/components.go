// cmd/components.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/browser/cdp"
	"github.com/das-group/HOSIT/internal/captcha"
	"github.com/das-group/HOSIT/internal/config"
	"github.com/das-group/HOSIT/internal/humanoid"
	"github.com/das-group/HOSIT/internal/identity"
	"github.com/das-group/HOSIT/internal/logsink"
	"github.com/das-group/HOSIT/internal/querygen"
	"github.com/das-group/HOSIT/internal/random"
	"github.com/das-group/HOSIT/internal/recovery"
	"github.com/das-group/HOSIT/internal/seed"
	"github.com/das-group/HOSIT/internal/session"
)

const shutdownTimeout = 15 * time.Second

// Driver is the part of the interaction controller a scenario acts through.
type Driver interface {
	RandomWait(ctx context.Context, r *humanoid.TimeRange) error
	WaitForSelector(ctx context.Context, selector string, doThrow bool) error
	Click(ctx context.Context, selector string, opts humanoid.ClickOptions) error
	Type(ctx context.Context, selector, text string, opts humanoid.TypeOptions) error
	TypeEnter(ctx context.Context) error
	ScrollToBottom(ctx context.Context, settle, press bool) (humanoid.ScrollOutcome, error)
	LogScreenshot(ctx context.Context, text string, fullPage bool) error
}

// Navigator loads a URL in the session tab.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Runner is a background task bound to the session, such as the focus guard.
type Runner interface {
	Run(ctx context.Context) error
}

// Components holds everything a running session needs.
type Components struct {
	SessionID string
	Seed      string
	Driver    Driver
	Navigator Navigator
	Guard     Runner

	closers []func(context.Context) error
}

// onShutdown registers cleanup. Cleanup runs in reverse registration order.
func (c *Components) onShutdown(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

// Shutdown releases the tab, the browser and the database pool.
func (c *Components) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// SessionOptions carries the per-run choices made on the command line.
type SessionOptions struct {
	// Seed forces the session seed.
	Seed string
}

// SessionFactory assembles the components of one session.
type SessionFactory interface {
	Create(ctx context.Context, cfg *config.Config, opts SessionOptions, logger *zap.Logger) (*Components, error)
}

type sessionFactory struct{}

func newSessionFactory() SessionFactory {
	return sessionFactory{}
}

// Create wires seed, random engine, identity, log sink, browser tab, recovery
// protocol, CAPTCHA solver and interaction controller. On error everything
// created so far is released.
func (sessionFactory) Create(ctx context.Context, cfg *config.Config, opts SessionOptions, logger *zap.Logger) (c *Components, err error) {
	c = &Components{}
	defer func() {
		if err != nil {
			if serr := c.Shutdown(ctx); serr != nil {
				logger.Warn("Cleanup after failed session setup reported errors.", zap.Error(serr))
			}
			c = nil
		}
	}()

	// 1. Seed and random engine
	sessionSeed, err := bootstrapSeed(ctx, cfg, opts.Seed, logger)
	if err != nil {
		return c, fmt.Errorf("failed to bootstrap seed: %w", err)
	}
	c.Seed = sessionSeed
	rng := random.NewWithLogger(sessionSeed, random.ClockEntropy{}, logger)

	// 2. Identity
	params, err := identityParams(cfg.Identity())
	if err != nil {
		return c, err
	}
	id, err := identity.New(params)
	if err != nil {
		return c, err
	}

	// 3. Log sink and session
	sink, pg, pool, err := openSink(ctx, cfg.LogSink(), logger)
	if err != nil {
		return c, fmt.Errorf("failed to open log sink: %w", err)
	}
	if pool != nil {
		c.onShutdown(func(context.Context) error {
			pool.Close()
			return nil
		})
	}
	sc := session.New(id, rng, sink, logger)
	c.SessionID = sc.ID
	if pg != nil {
		if err := pg.StartSession(ctx, sc.ID, sessionSeed); err != nil {
			return c, err
		}
	}

	// 4. Browser and tab
	browser, err := cdp.Connect(ctx, cfg.Browser(), sc.Logger)
	if err != nil {
		return c, err
	}
	c.onShutdown(func(context.Context) error {
		browser.Close()
		return nil
	})
	tab, err := browser.NewTab(ctx)
	if err != nil {
		return c, err
	}
	sc.TrackTab(tab)
	c.onShutdown(tab.Close)
	c.Navigator = tab

	// 5. Recovery, CAPTCHA and interaction controller
	protocol := recovery.New(sc)
	solver, err := newSolver(cfg.Captcha(), sc.Logger)
	if err != nil {
		return c, err
	}
	c.Driver = humanoid.New(sc, tab.Executor(), protocol, solver, humanoidConfig(cfg.Humanoid()))
	c.Guard = humanoid.NewFocusGuard(sc, tab, cfg.Humanoid().FocusInterval)

	sc.Logger.Info("Session ready.", zap.String("seed", sessionSeed))
	return c, nil
}

// bootstrapSeed resolves the session seed, drawing a fresh one from the
// configured feed file when neither an explicit nor a stored seed applies.
func bootstrapSeed(ctx context.Context, cfg *config.Config, explicit string, logger *zap.Logger) (string, error) {
	store, err := seed.NewStore(cfg.Seed().Path)
	if err != nil {
		return "", err
	}
	source, err := seedSource(cfg.QueryGen(), logger)
	if err != nil {
		return "", err
	}
	return seed.Bootstrap(ctx, store, source, seed.Options{Explicit: explicit, Reuse: cfg.Seed().Reuse}, logger)
}

// generatorSource draws seeds from one named generator.
type generatorSource struct {
	gen  *querygen.Generator
	name string
}

func (s generatorSource) RandomQuery(ctx context.Context) (string, error) {
	return s.gen.Query(ctx, s.name)
}

// seedSource returns nil when no feed file is configured.
func seedSource(qc config.QueryGenConfig, logger *zap.Logger) (seed.Source, error) {
	if qc.FeedFile == "" {
		return nil, nil
	}
	feeds, err := querygen.LoadFileSource(qc.FeedFile)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded feed file.", zap.String("path", qc.FeedFile), zap.Strings("feeds", feeds.Feeds()))
	// Seed selection itself cannot be seeded, so it draws from the clock.
	gen := querygen.NewGenerator(feeds, nil, random.New("", random.ClockEntropy{}), logger)
	name := qc.Generator
	if name == "" {
		name = querygen.GeneratorDefault
	}
	return generatorSource{gen: gen, name: name}, nil
}

// openSink always logs to zap and additionally to Postgres when configured.
func openSink(ctx context.Context, lc config.LogSinkConfig, logger *zap.Logger) (schemas.LogSink, *logsink.PostgresSink, *pgxpool.Pool, error) {
	zs := logsink.NewZapSink(logger)
	if lc.Kind != config.SinkPostgres {
		return zs, nil, nil, nil
	}
	pg, pool, err := logsink.OpenPostgres(ctx, lc.URL, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return logsink.Multi{zs, pg}, pg, pool, nil
}

// newSolver returns a nil Solver when no API key is configured.
func newSolver(cc config.CaptchaConfig, logger *zap.Logger) (captcha.Solver, error) {
	if !cc.Enabled() {
		return nil, nil
	}
	client, err := captcha.NewAntiCaptchaClient(captchaConfig(cc), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create captcha client: %w", err)
	}
	return client, nil
}
