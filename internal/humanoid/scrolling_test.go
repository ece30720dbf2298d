package humanoid

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/das-group/HOSIT/api/schemas"
)

// fakePage models a target whose top offset moves by fixed steps per key press.
type fakePage struct {
	mu        sync.Mutex
	top       float64
	vh        float64
	arrowStep float64
	pageStep  float64
	exists    bool
	probes    int
}

func newFakePage(top float64) *fakePage {
	return &fakePage{top: top, vh: 768, arrowStep: 40, pageStep: 500, exists: true}
}

// attach wires the page model into the mock's key and probe hooks.
func (p *fakePage) attach(m *mockExecutor) {
	m.MockProbeElement = func(_ context.Context, _ string) (schemas.ScrollProbe, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.probes++
		return schemas.ScrollProbe{Exists: p.exists, Top: p.top, ViewportHeight: p.vh}, nil
	}
	m.MockDispatchStructuredKey = func(ctx context.Context, data schemas.KeyEventData) error {
		if data.Type == schemas.KeyDown {
			p.mu.Lock()
			switch data.Key {
			case KeyArrowDown:
				p.top -= p.arrowStep
			case KeyArrowUp:
				p.top += p.arrowStep
			case KeyPageDown:
				p.top -= p.pageStep
			case KeyPageUp:
				p.top += p.pageStep
			}
			p.mu.Unlock()
		}
		return m.DefaultDispatchStructuredKey(ctx, data)
	}
}

func TestScrollTo_ConvergesAfterThreeBursts(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(1800) // 1800 -> 1300 -> 800 -> 300
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#footer", Direction: ScrollDown, Press: true})

	require.NoError(t, err)
	assert.Equal(t, PhaseConverged, out.Phase)
	assert.Equal(t, 3, out.Iterations)
	assert.Equal(t, 300.0, out.Position)
	assert.Equal(t, []string{KeyPageDown, KeyPageDown, KeyPageDown}, th.exec.pressedKeys())
	assert.Zero(t, th.failures.count())
}

func TestScrollTo_ArrowBurstSizes(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(5000)
	page.arrowStep = 10
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#target", Direction: ScrollDown})
	require.NoError(t, err)
	require.Equal(t, PhaseConverged, out.Phase)

	presses := len(th.exec.pressedKeys())
	assert.GreaterOrEqual(t, presses, 11*out.Iterations)
	assert.LessOrEqual(t, presses, 15*out.Iterations)
	for _, k := range th.exec.pressedKeys() {
		assert.Equal(t, KeyArrowDown, k)
	}
}

func TestScrollTo_StallsOnFrozenPage(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(2000)
	page.arrowStep, page.pageStep = 0, 0
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#target", Direction: ScrollDown})

	require.NoError(t, err)
	assert.Equal(t, PhaseStalled, out.Phase)
	assert.LessOrEqual(t, out.Iterations, 2)
	assert.ErrorIs(t, out.Err(), ErrScrollStalled)
	assert.Zero(t, th.failures.count(), "a stall is an outcome, not an escalation")
	assert.Contains(t, th.sink.keys(), "scroll")
}

func TestScrollTo_WrongDirectionStalls(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(-800)
	page.pageStep = -500 // PageUp moves the target further up
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#header", Direction: ScrollUp, Press: true})
	require.NoError(t, err)
	assert.Equal(t, PhaseStalled, out.Phase)
	assert.Equal(t, 1, out.Iterations)
}

func TestScrollTo_UpConverges(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(-700) // -700 -> -200 -> 300
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#header", Direction: ScrollUp, Press: true})
	require.NoError(t, err)
	assert.Equal(t, PhaseConverged, out.Phase)
	assert.Equal(t, 2, out.Iterations)
	assert.Equal(t, []string{KeyPageUp, KeyPageUp}, th.exec.pressedKeys())
}

func TestScrollTo_AlreadyVisibleIsIdempotent(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(100)
	page.attach(th.exec)

	for i := 0; i < 2; i++ {
		out, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#visible", Direction: ScrollDown})
		require.NoError(t, err)
		assert.Equal(t, PhaseConverged, out.Phase)
		assert.Zero(t, out.Iterations)
	}
	assert.Empty(t, th.exec.structuredKeys)
}

func TestScrollTo_MinIterationsForcesBursts(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(100)
	page.pageStep = 50
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{
		Selector: "#visible", Direction: ScrollDown, Press: true, MinIterations: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, PhaseConverged, out.Phase)
	assert.Equal(t, 2, out.Iterations)
	assert.Len(t, th.exec.pressedKeys(), 2)
}

func TestScrollTo_ForcedBurstsAtPageEndConverge(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(100)
	page.pageStep = 0
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{
		Selector: "#visible", Direction: ScrollDown, Press: true, MinIterations: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, PhaseConverged, out.Phase)
	assert.Equal(t, 1, out.Iterations)
	assert.NoError(t, out.Err())
	assert.NotContains(t, th.sink.keys(), "scroll")
}

func TestScrollTo_IterationCapAborts(t *testing.T) {
	th := newTestHarness(t, func(c *Config) { c.ScrollIterationCap = 5 })
	page := newFakePage(100000)
	page.pageStep = 1
	page.attach(th.exec)

	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#far", Direction: ScrollDown, Press: true})
	require.NoError(t, err)
	assert.Equal(t, PhaseAborted, out.Phase)
	assert.Equal(t, 5, out.Iterations)
	assert.ErrorIs(t, out.Err(), ErrScrollAborted)
}

func TestScrollTo_SettlePause(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(1000)
	page.attach(th.exec)

	_, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#t", Direction: ScrollDown, Press: true, Settle: true})
	require.NoError(t, err)

	require.NotEmpty(t, th.exec.sleepDurations)
	last := th.exec.sleepDurations[len(th.exec.sleepDurations)-1]
	assert.GreaterOrEqual(t, last.Milliseconds(), int64(10000))
	assert.Less(t, last.Milliseconds(), int64(14000))
}

func TestScrollTo_MissingSelectorEscalates(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(0)
	page.exists = false
	page.attach(th.exec)

	_, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#gone", Direction: ScrollDown})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Equal(t, 1, th.failures.count())
	assert.True(t, th.sc.Fatal.IsSet())
}

func TestScrollTo_DriverFailureEscalates(t *testing.T) {
	th := newTestHarness(t, nil)
	page := newFakePage(2000)
	page.attach(th.exec)
	boom := errors.New("target closed")
	th.exec.MockDispatchStructuredKey = func(context.Context, schemas.KeyEventData) error { return boom }

	_, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#t", Direction: ScrollDown})
	assert.ErrorIs(t, err, ErrActionFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, th.failures.count())
}

func TestScrollToSelector_PicksDirection(t *testing.T) {
	tests := []struct {
		name  string
		top   float64
		keys  []string
		phase ScrollPhase
	}{
		{"below viewport scrolls down", 1000, []string{KeyPageDown}, PhaseConverged},
		{"above viewport scrolls up", -300, []string{KeyPageUp}, PhaseConverged},
		{"visible does nothing", 200, nil, PhaseConverged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newTestHarness(t, nil)
			newFakePage(tt.top).attach(th.exec)

			out, err := th.h.ScrollToSelector(context.Background(), "#t", false, true)
			require.NoError(t, err)
			assert.Equal(t, tt.phase, out.Phase)
			assert.Equal(t, tt.keys, th.exec.pressedKeys())
		})
	}
}

func TestScrollToBottom(t *testing.T) {
	th := newTestHarness(t, nil)
	th.exec.scriptResults[bottomSelectorScript] = `"div#footer"`
	page := newFakePage(900)
	page.attach(th.exec)

	var probed []string
	inner := th.exec.MockProbeElement
	th.exec.MockProbeElement = func(ctx context.Context, sel string) (schemas.ScrollProbe, error) {
		probed = append(probed, sel)
		return inner(ctx, sel)
	}

	out, err := th.h.ScrollToBottom(context.Background(), false, true)
	require.NoError(t, err)
	assert.Equal(t, PhaseConverged, out.Phase)
	require.NotEmpty(t, probed)
	assert.Equal(t, "div#footer", probed[0])
}

func TestIsInViewport(t *testing.T) {
	th := newTestHarness(t, nil)
	newFakePage(-20).attach(th.exec)

	down, err := th.h.IsInViewport(context.Background(), "#t", true)
	require.NoError(t, err)
	assert.True(t, down)

	up, err := th.h.IsInViewport(context.Background(), "#t", false)
	require.NoError(t, err)
	assert.False(t, up)
}

func TestScrollTo_EmptySelector(t *testing.T) {
	th := newTestHarness(t, nil)
	out, err := th.h.ScrollTo(context.Background(), ScrollRequest{})
	require.NoError(t, err)
	assert.Equal(t, PhaseConverged, out.Phase)
}

func TestScrollEngine_ActivityHook(t *testing.T) {
	th := newTestHarness(t, nil)
	newFakePage(1000).attach(th.exec)
	th.sc.ConsumeAction()

	_, err := th.h.ScrollTo(context.Background(), ScrollRequest{Selector: "#t", Direction: ScrollDown, Press: true})
	require.NoError(t, err)
	assert.True(t, th.sc.ConsumeAction())
}
