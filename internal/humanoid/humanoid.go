// internal/humanoid/humanoid.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aquilax/go-perlin"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/captcha"
	"github.com/das-group/HOSIT/internal/session"
)

// Humanoid turns driver primitives into temporally randomized, failure-tolerant
// actions for one session. A session is single-threaded, so Humanoid is not
// safe for concurrent use; the focus guard only touches the session context
// and the executor.
type Humanoid struct {
	cfg      Config
	sc       *session.Context
	exec     Executor
	failures schemas.FailureHandler
	solver   captcha.Solver
	timing   *TimingModel
	scroller *ScrollEngine
	logger   *zap.Logger

	// frame is the URL prefix of the frame this controller is bound to, or empty for the page.
	frame string

	// Virtual cursor state for approach paths.
	currentPos Vector2D
	noiseX     *perlin.Perlin
	noiseY     *perlin.Perlin
	noiseTime  float64
}

var _ Controller = (*Humanoid)(nil)

// New creates a Humanoid bound to the session and its page executor. failures
// is the fatal boundary every interaction error is funneled through; solver may
// be nil when CAPTCHA solving is not configured.
func New(sc *session.Context, exec Executor, failures schemas.FailureHandler, solver captcha.Solver, cfg Config) *Humanoid {
	cfg = cfg.normalize()
	logger := sc.Logger.Named("humanoid")
	timing := NewTimingModel(sc.Random)

	// Standard Perlin noise parameters.
	alpha, beta, n := 2.0, 2.0, int32(3)
	seed := sc.Random.Int63()

	return &Humanoid{
		cfg:      cfg,
		sc:       sc,
		exec:     exec,
		failures: failures,
		solver:   solver,
		timing:   timing,
		scroller: NewScrollEngine(exec, timing, sc.Random, cfg, logger).WithActivity(sc.MarkAction),
		logger:   logger,
		noiseX:   perlin.NewPerlin(alpha, beta, n, seed),
		noiseY:   perlin.NewPerlin(alpha, beta, n, seed+1),
	}
}

// InFrame returns a controller bound to the first frame whose URL starts with
// frameURLPrefix. Frame controllers bring the owning page to front before acting.
func (h *Humanoid) InFrame(ctx context.Context, frameURLPrefix string) (*Humanoid, error) {
	if err := h.begin("frame"); err != nil {
		return nil, err
	}
	fe, err := h.exec.Frame(ctx, frameURLPrefix)
	if err != nil {
		return nil, h.escalate(ctx, notFound("frame", frameURLPrefix, err))
	}
	child := *h
	child.exec = fe
	child.frame = frameURLPrefix
	child.logger = h.logger.With(zap.String("frame", frameURLPrefix))
	child.scroller = NewScrollEngine(fe, h.timing, h.sc.Random, h.cfg, child.logger).WithActivity(h.sc.MarkAction)
	return &child, nil
}

// Timing exposes the timing model shared by this session's controllers.
func (h *Humanoid) Timing() *TimingModel {
	return h.timing
}

// Session returns the session context the controller acts for.
func (h *Humanoid) Session() *session.Context {
	return h.sc
}

// begin rejects operations after the session was terminated and records the
// action for the focus guard.
func (h *Humanoid) begin(op string) error {
	if h.sc.Fatal.IsSet() {
		return fmt.Errorf("humanoid: %s: %w", op, ErrSessionFatal)
	}
	h.sc.MarkAction()
	return nil
}

// bringToFront activates the owning tab. Failures only cost focus, so they are logged.
func (h *Humanoid) bringToFront(ctx context.Context) {
	if err := h.exec.BringToFront(ctx); err != nil {
		h.logger.Warn("Failed to bring page to front.", zap.Error(err))
	}
}

// escalate funnels an interaction failure into the fatal boundary. Cancellation
// of the caller's context is returned as is.
func (h *Humanoid) escalate(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	h.logger.Error("Interaction failed.", zap.Error(err))
	if h.failures == nil {
		return err
	}
	if herr := h.failures.Handle(ctx, h.exec, err); herr != nil {
		return herr
	}
	return err
}

// pause sleeps for d and records it as activity.
func (h *Humanoid) pause(ctx context.Context, d time.Duration) error {
	h.sc.MarkAction()
	return h.exec.Sleep(ctx, d)
}

// audit logs an action entry with an optional element screenshot when auditing is enabled.
func (h *Humanoid) audit(ctx context.Context, key, value, selector string) {
	if !h.cfg.AuditActions {
		return
	}
	var shot []byte
	if selector != "" {
		var err error
		shot, err = h.exec.ElementScreenshot(ctx, selector)
		if err != nil {
			h.logger.Debug("Element screenshot failed.", zap.String("selector", selector), zap.Error(err))
		}
	}
	h.sc.LogBestEffort(ctx, key, value, shot)
}
