package humanoid

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/das-group/HOSIT/api/schemas"
	"github.com/das-group/HOSIT/internal/identity"
	"github.com/das-group/HOSIT/internal/random"
	"github.com/das-group/HOSIT/internal/session"
)

func TestType_PausesAroundAt(t *testing.T) {
	th := newTestHarness(t, nil)

	err := th.h.Type(context.Background(), "#email", "a@b", TypeOptions{Delay: &TimeRange{Mean: 100}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "@", "b"}, th.exec.sentKeys)
	assert.Equal(t, []string{"#email", "#email", "#email"}, th.exec.keyTargets)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		25 * time.Millisecond,
		100 * time.Millisecond,
		100 * time.Millisecond,
	}, th.exec.sleepDurations)
	assert.Equal(t, 1, th.exec.frontCount)
}

func TestType_UsesIdentityTypingSpeed(t *testing.T) {
	id, err := identity.New(identity.Params{Email: "jane@example.org", TypingSpeedMean: 50})
	require.NoError(t, err)
	// A zero deviation next to an explicit mean is kept as is.
	mean, dev := id.TypingSpeed()
	require.Equal(t, 50.0, mean)
	require.Zero(t, dev)

	exec := newMockExecutor(t)
	sc := session.New(id, random.New("seed", random.FixedEntropy(3)), nil, zaptest.NewLogger(t))
	h := New(sc, exec, &fakeFailureHandler{sc: sc}, nil, DefaultConfig())

	require.NoError(t, h.Type(context.Background(), "", "hi", TypeOptions{}))
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, exec.sleepDurations)
	assert.Equal(t, []string{"", ""}, exec.keyTargets)
}

func TestType_DefaultSpeedRange(t *testing.T) {
	th := newTestHarness(t, nil)
	require.NoError(t, th.h.Type(context.Background(), "#q", "hello world", TypeOptions{}))

	require.Len(t, th.exec.sleepDurations, len("hello world"))
	for _, d := range th.exec.sleepDurations {
		assert.GreaterOrEqual(t, d, 191*time.Millisecond)
		assert.Less(t, d, 721*time.Millisecond)
	}
}

func TestType_FailureEscalates(t *testing.T) {
	th := newTestHarness(t, nil)
	th.exec.MockSendKeys = func(context.Context, string, string) error {
		return errors.New("node detached")
	}

	err := th.h.Type(context.Background(), "#q", "abc", TypeOptions{})
	assert.ErrorIs(t, err, ErrActionFailed)
	assert.Equal(t, 1, th.failures.count())
}

func TestType_MissingElementIsNotFound(t *testing.T) {
	th := newTestHarness(t, nil)
	th.exec.MockSendKeys = func(_ context.Context, selector, _ string) error {
		return fmt.Errorf("driver: %w: '%s'", ErrElementNotFound, selector)
	}

	err := th.h.Type(context.Background(), "#q", "abc", TypeOptions{})
	assert.ErrorIs(t, err, ErrElementNotFound)
	var ie *InteractionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrElementNotFound, ie.Kind)
	assert.Equal(t, 1, th.failures.count())
}

func TestTypeEnter(t *testing.T) {
	th := newTestHarness(t, nil)
	require.NoError(t, th.h.TypeEnter(context.Background()))

	require.Len(t, th.exec.structuredKeys, 2)
	assert.Equal(t, schemas.KeyEventData{Type: schemas.KeyDown, Key: KeyEnter}, th.exec.structuredKeys[0])
	assert.Equal(t, schemas.KeyEventData{Type: schemas.KeyUp, Key: KeyEnter}, th.exec.structuredKeys[1])
	require.Len(t, th.exec.sleepDurations, 1)
	assert.GreaterOrEqual(t, th.exec.sleepDurations[0], 5*time.Millisecond)
	assert.Less(t, th.exec.sleepDurations[0], 15*time.Millisecond)
}

func TestNavigationKeys(t *testing.T) {
	tests := []struct {
		name   string
		press  func(h *Humanoid) error
		key    string
		sleeps int
	}{
		{"tab", func(h *Humanoid) error { return h.TypeTab(context.Background()) }, KeyTab, 0},
		{"escape", func(h *Humanoid) error { return h.TypeEsc(context.Background()) }, KeyEscape, 0},
		{"arrow up", func(h *Humanoid) error { return h.TypeUp(context.Background(), false) }, KeyArrowUp, 1},
		{"page up", func(h *Humanoid) error { return h.TypeUp(context.Background(), true) }, KeyPageUp, 0},
		{"arrow down", func(h *Humanoid) error { return h.TypeDown(context.Background(), false) }, KeyArrowDown, 1},
		{"page down", func(h *Humanoid) error { return h.TypeDown(context.Background(), true) }, KeyPageDown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newTestHarness(t, nil)
			require.NoError(t, tt.press(th.h))
			assert.Equal(t, []string{tt.key}, th.exec.pressedKeys())
			assert.Len(t, th.exec.sleepDurations, tt.sleeps)
		})
	}
}
