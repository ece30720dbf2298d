// internal/humanoid/movement.go
package humanoid

import (
	"context"
	"math"
	"time"

	"github.com/das-group/HOSIT/api/schemas"
)

// noiseStep advances the Perlin time axis per approach step.
const noiseStep = 0.15

// moveTo walks the virtual cursor to target along a jittered straight line.
// The jitter envelope is zero at both ends, so the final event lands exactly on target.
func (h *Humanoid) moveTo(ctx context.Context, target Vector2D) error {
	steps := h.cfg.ApproachSteps
	start := h.currentPos
	if steps == 0 || start.Dist(target) < 1 {
		h.currentPos = target
		return nil
	}

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p := target
		if i < steps {
			p = start.Lerp(target, t)
			envelope := math.Sin(math.Pi * t)
			h.noiseTime += noiseStep
			p.X += h.noiseX.Noise1D(h.noiseTime) * h.cfg.PerlinAmplitude * envelope
			p.Y += h.noiseY.Noise1D(h.noiseTime) * h.cfg.PerlinAmplitude * envelope
		}

		if err := h.exec.DispatchMouseEvent(ctx, schemas.MouseEventData{
			Type:   schemas.MouseMove,
			X:      p.X,
			Y:      p.Y,
			Button: schemas.ButtonNone,
		}); err != nil {
			return err
		}
		h.currentPos = p

		if i < steps {
			if err := h.exec.Sleep(ctx, h.timing.Sample(h.cfg.ApproachStepGap)); err != nil {
				return err
			}
		}
	}
	return nil
}

// pointerClick presses and releases the left button at pt, holding for hold.
func (h *Humanoid) pointerClick(ctx context.Context, pt Vector2D, hold time.Duration) error {
	if err := h.moveTo(ctx, pt); err != nil {
		return err
	}
	if err := h.exec.DispatchMouseEvent(ctx, schemas.MouseEventData{
		Type:       schemas.MousePress,
		X:          pt.X,
		Y:          pt.Y,
		Button:     schemas.ButtonLeft,
		Buttons:    1,
		ClickCount: 1,
	}); err != nil {
		return err
	}
	if hold > 0 {
		if err := h.exec.Sleep(ctx, hold); err != nil {
			return err
		}
	}
	return h.exec.DispatchMouseEvent(ctx, schemas.MouseEventData{
		Type:       schemas.MouseRelease,
		X:          pt.X,
		Y:          pt.Y,
		Button:     schemas.ButtonLeft,
		Buttons:    0,
		ClickCount: 1,
	})
}
