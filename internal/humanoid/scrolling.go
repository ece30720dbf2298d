// internal/humanoid/scrolling.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/random"
)

// ScrollDirection is the direction keys are pressed in.
type ScrollDirection int

const (
	ScrollDown ScrollDirection = iota
	ScrollUp
)

func (d ScrollDirection) String() string {
	if d == ScrollUp {
		return "up"
	}
	return "down"
}

// ScrollPhase is the state of the convergence loop.
type ScrollPhase string

const (
	PhaseScanning  ScrollPhase = "scanning"
	PhaseConverged ScrollPhase = "converged"
	PhaseStalled   ScrollPhase = "stalled"
	PhaseAborted   ScrollPhase = "aborted"
)

// ScrollRequest describes one scroll-until-visible invocation.
type ScrollRequest struct {
	Selector  string
	Direction ScrollDirection
	// Press scrolls with one page-key press per burst instead of arrow-key bursts.
	Press bool
	// Settle adds a long reading pause after every burst.
	Settle bool
	// MinBurst/MaxBurst bound the arrow presses per burst (inclusive). Zero uses the config.
	MinBurst int
	MaxBurst int
	// MinIterations forces at least this many bursts even if the target is already visible.
	MinIterations int
}

// ScrollState is owned by a single Run and discarded when it terminates.
type ScrollState struct {
	LastPosition float64
	Iterations   int
	Direction    ScrollDirection
}

// ScrollOutcome is the terminal state of a Run.
type ScrollOutcome struct {
	Phase      ScrollPhase
	Iterations int
	Position   float64
}

// Err maps non-converged phases to their sentinel errors.
func (o ScrollOutcome) Err() error {
	switch o.Phase {
	case PhaseStalled:
		return ErrScrollStalled
	case PhaseAborted:
		return ErrScrollAborted
	}
	return nil
}

// ScrollEngine runs the scroll convergence state machine against a ScrollDriver.
type ScrollEngine struct {
	driver   ScrollDriver
	timing   *TimingModel
	rng      *random.Engine
	cfg      Config
	logger   *zap.Logger
	activity func()
}

// NewScrollEngine creates an engine. cfg supplies burst sizes, gaps, settle pause and iteration cap.
func NewScrollEngine(driver ScrollDriver, timing *TimingModel, rng *random.Engine, cfg Config, logger *zap.Logger) *ScrollEngine {
	return &ScrollEngine{
		driver: driver,
		timing: timing,
		rng:    rng,
		cfg:    cfg.normalize(),
		logger: logger,
	}
}

// WithActivity registers a hook invoked on every key press and pause.
func (e *ScrollEngine) WithActivity(fn func()) *ScrollEngine {
	e.activity = fn
	return e
}

// inViewport: scrolling down converges once the target's top enters the
// viewport from below; scrolling up once it is below the viewport's top edge.
func inViewport(p schemas.ScrollProbe, dir ScrollDirection) bool {
	if dir == ScrollUp {
		return p.Top > 0
	}
	return p.Top < p.ViewportHeight
}

// improved is the monotonicity contract: down must strictly decrease the
// target's top offset, up must strictly increase it.
func improved(before, after float64, dir ScrollDirection) bool {
	if dir == ScrollUp {
		return after > before
	}
	return after < before
}

// Run scrolls until the target is visible, the position stops improving, or
// the iteration cap is reached. Stalled and Aborted are returned as outcomes
// with a nil error; only a missing target or a driver failure is an error.
func (e *ScrollEngine) Run(ctx context.Context, req ScrollRequest) (ScrollOutcome, error) {
	state := ScrollState{Direction: req.Direction}
	outcome := func(p ScrollPhase) ScrollOutcome {
		return ScrollOutcome{Phase: p, Iterations: state.Iterations, Position: state.LastPosition}
	}

	probe, err := e.probe(ctx, req.Selector)
	if err != nil {
		return outcome(PhaseScanning), err
	}
	state.LastPosition = probe.Top
	visible := inViewport(probe, req.Direction)

	for {
		if visible && state.Iterations >= req.MinIterations {
			return outcome(PhaseConverged), nil
		}
		if state.Iterations >= e.cfg.ScrollIterationCap {
			e.logger.Warn("Scroll iteration cap reached.",
				zap.String("selector", req.Selector),
				zap.Int("iterations", state.Iterations))
			return outcome(PhaseAborted), nil
		}

		if err := e.burst(ctx, req); err != nil {
			return outcome(PhaseScanning), actionFailed("scroll", req.Selector, err)
		}
		state.Iterations++

		probe, err = e.probe(ctx, req.Selector)
		if err != nil {
			return outcome(PhaseScanning), err
		}
		e.logger.Debug("Scroll burst complete.",
			zap.String("selector", req.Selector),
			zap.Stringer("direction", req.Direction),
			zap.Int("iteration", state.Iterations),
			zap.Float64("before", state.LastPosition),
			zap.Float64("after", probe.Top))

		before := state.LastPosition
		state.LastPosition = probe.Top
		visible = inViewport(probe, req.Direction)
		if visible && state.Iterations >= req.MinIterations {
			continue
		}
		if !improved(before, probe.Top, req.Direction) {
			if visible {
				// Forced bursts at the page end: the target is already in view.
				e.logger.Debug("Forced scroll burst did not move the page, target visible.",
					zap.String("selector", req.Selector),
					zap.Int("iterations", state.Iterations))
				return outcome(PhaseConverged), nil
			}
			e.logger.Warn("Scroll stalled, page does not respond to key events.",
				zap.String("selector", req.Selector),
				zap.Int("iterations", state.Iterations),
				zap.Float64("position", probe.Top))
			return outcome(PhaseStalled), nil
		}
	}
}

func (e *ScrollEngine) probe(ctx context.Context, selector string) (schemas.ScrollProbe, error) {
	p, err := e.driver.ProbeElement(ctx, selector)
	if err != nil {
		return p, actionFailed("scroll", selector, err)
	}
	if !p.Exists {
		return p, notFound("scroll", selector, errors.New("selector does not exist"))
	}
	return p, nil
}

// burst issues one page-key press, or MinBurst..MaxBurst arrow presses separated
// by short gaps, followed by the optional settle pause.
func (e *ScrollEngine) burst(ctx context.Context, req ScrollRequest) error {
	if req.Press {
		key := KeyPageDown
		if req.Direction == ScrollUp {
			key = KeyPageUp
		}
		if err := e.press(ctx, key, 0); err != nil {
			return err
		}
	} else {
		minB, maxB := req.MinBurst, req.MaxBurst
		if minB <= 0 {
			minB = e.cfg.ScrollMinBurst
		}
		if maxB < minB {
			maxB = max(minB, e.cfg.ScrollMaxBurst)
		}
		key := KeyArrowDown
		if req.Direction == ScrollUp {
			key = KeyArrowUp
		}
		n := e.rng.NextInt(minB, maxB+1)
		for j := 0; j < n; j++ {
			if err := e.press(ctx, key, e.timing.Sample(e.cfg.ArrowPress)); err != nil {
				return fmt.Errorf("press %d of %d: %w", j+1, n, err)
			}
			if err := e.sleep(ctx, e.timing.Sample(e.cfg.ScrollKeyGap)); err != nil {
				return err
			}
		}
	}
	if req.Settle {
		return e.sleep(ctx, e.timing.Sample(e.cfg.ScrollSettle))
	}
	return nil
}

func (e *ScrollEngine) press(ctx context.Context, key string, hold time.Duration) error {
	e.touch()
	return pressKey(ctx, e.driver, key, hold)
}

func (e *ScrollEngine) sleep(ctx context.Context, d time.Duration) error {
	e.touch()
	return e.driver.Sleep(ctx, d)
}

func (e *ScrollEngine) touch() {
	if e.activity != nil {
		e.activity()
	}
}

// -- Humanoid scroll operations --

// ScrollTo runs the convergence loop for req. A missing target or driver
// failure escalates; Stalled and Aborted are logged and returned as outcomes.
func (h *Humanoid) ScrollTo(ctx context.Context, req ScrollRequest) (ScrollOutcome, error) {
	if err := h.begin("scroll"); err != nil {
		return ScrollOutcome{}, err
	}
	if req.Selector == "" {
		return ScrollOutcome{Phase: PhaseConverged}, nil
	}
	h.bringToFront(ctx)
	h.logger.Debug("scroll", zap.String("selector", req.Selector), zap.Stringer("direction", req.Direction))

	out, err := h.scroller.Run(ctx, req)
	if err != nil {
		return out, h.escalate(ctx, err)
	}
	if out.Phase != PhaseConverged {
		h.sc.LogBestEffort(ctx, "scroll",
			fmt.Sprintf("%s: %s after %d bursts", req.Selector, out.Phase, out.Iterations), nil)
	}
	return out, nil
}

// ScrollToSelector picks the direction from the target's current position:
// below the viewport scrolls down, above it scrolls up, visible does nothing.
func (h *Humanoid) ScrollToSelector(ctx context.Context, selector string, settle, press bool) (ScrollOutcome, error) {
	if err := h.begin("scrollToSelector"); err != nil {
		return ScrollOutcome{}, err
	}
	p, err := h.scroller.probe(ctx, selector)
	if err != nil {
		return ScrollOutcome{}, h.escalate(ctx, err)
	}
	req := ScrollRequest{Selector: selector, Settle: settle, Press: press}
	switch {
	case !inViewport(p, ScrollDown):
		req.Direction = ScrollDown
	case p.Top < 0:
		req.Direction = ScrollUp
	default:
		return ScrollOutcome{Phase: PhaseConverged, Position: p.Top}, nil
	}
	return h.ScrollTo(ctx, req)
}

const bottomSelectorScript = `() => {
	const divs = document.querySelectorAll('div');
	let last = divs.length - 1;
	let el;
	let idClass;
	do {
		el = divs[last];
		last--;
		idClass = "" + el.id + el.getAttribute('class');
	} while ((el.offsetWidth == 0 && last > 0) || (el.offsetHeight == 0 && last > 0) ||
		idClass.includes("google") || idClass.includes("ad") || idClass == "null");
	let selector = "div";
	const cls = el.getAttribute('class');
	if (el.id != "") selector += "#" + el.id;
	else if (cls != null) selector += "." + cls.split(" ")[0];
	return selector;
}`

// BottomSelector returns a selector for the last visible non-advert div on the page.
func (h *Humanoid) BottomSelector(ctx context.Context) (string, error) {
	var sel string
	if err := h.evalInto(ctx, bottomSelectorScript, nil, &sel); err != nil {
		return "", err
	}
	h.logger.Debug("getBottomSelector", zap.String("selector", sel))
	return sel, nil
}

// ScrollToBottom scrolls down until the last visible content div is reached.
func (h *Humanoid) ScrollToBottom(ctx context.Context, settle, press bool) (ScrollOutcome, error) {
	if err := h.begin("scrollToBottom"); err != nil {
		return ScrollOutcome{}, err
	}
	sel, err := h.BottomSelector(ctx)
	if err != nil {
		return ScrollOutcome{}, h.escalate(ctx, actionFailed("scrollToBottom", "", err))
	}
	return h.ScrollTo(ctx, ScrollRequest{Selector: sel, Direction: ScrollDown, Settle: settle, Press: press})
}

// IsInViewport reports whether selector is visible for the given scroll direction.
func (h *Humanoid) IsInViewport(ctx context.Context, selector string, down bool) (bool, error) {
	if err := h.begin("isInViewport"); err != nil {
		return false, err
	}
	p, err := h.scroller.probe(ctx, selector)
	if err != nil {
		return false, err
	}
	dir := ScrollDown
	if !down {
		dir = ScrollUp
	}
	res := inViewport(p, dir)
	if res {
		h.logger.Debug("isInViewport", zap.String("selector", selector), zap.Float64("top", p.Top))
	}
	h.bringToFront(ctx)
	return res, nil
}
