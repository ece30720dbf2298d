// internal/humanoid/keyboard.go
package humanoid

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
)

// Named keys dispatched as structured key events.
const (
	KeyEnter     = "Enter"
	KeyTab       = "Tab"
	KeyEscape    = "Escape"
	KeyArrowUp   = "ArrowUp"
	KeyArrowDown = "ArrowDown"
	KeyPageUp    = "PageUp"
	KeyPageDown  = "PageDown"
)

// Type sends text one character at a time with a sampled pause after each
// keystroke and an extra quarter-length pause before every '@'. An empty
// selector types into the focused element.
func (h *Humanoid) Type(ctx context.Context, selector, text string, opts TypeOptions) error {
	if err := h.begin("type"); err != nil {
		return err
	}
	h.bringToFront(ctx)

	r := h.typingRange(opts)
	h.logger.Debug("Type", zap.String("selector", selector), zap.Int("length", len(text)), zap.Float64("mean", r.Mean))
	h.audit(ctx, "type", selector, "")

	for _, ch := range text {
		if ch == '@' {
			if err := h.pause(ctx, h.timing.Sample(r.Scale(0.25))); err != nil {
				return err
			}
		}
		if err := h.exec.SendKeys(ctx, selector, string(ch)); err != nil {
			return h.escalate(ctx, classify("type", selector, err))
		}
		if err := h.pause(ctx, h.timing.Sample(r)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Humanoid) typingRange(opts TypeOptions) TimeRange {
	if opts.Delay != nil {
		return *opts.Delay
	}
	if h.sc.Identity != nil {
		mean, dev := h.sc.Identity.TypingSpeed()
		return TimeRange{Mean: mean, Deviation: dev}
	}
	return TimeRange{Mean: 456, Deviation: 265}
}

// TypeEnter presses Enter with a short randomized hold.
func (h *Humanoid) TypeEnter(ctx context.Context) error {
	return h.pressKey(ctx, "typeEnter", KeyEnter, h.timing.Sample(h.cfg.KeyPress))
}

// TypeTab presses Tab.
func (h *Humanoid) TypeTab(ctx context.Context) error {
	return h.pressKey(ctx, "typeTab", KeyTab, 0)
}

// TypeEsc presses Escape.
func (h *Humanoid) TypeEsc(ctx context.Context) error {
	return h.pressKey(ctx, "typeEsc", KeyEscape, 0)
}

// TypeUp presses ArrowUp with a short hold, or PageUp without one.
func (h *Humanoid) TypeUp(ctx context.Context, page bool) error {
	if page {
		return h.pressKey(ctx, "typeUp", KeyPageUp, 0)
	}
	return h.pressKey(ctx, "typeUp", KeyArrowUp, h.timing.Sample(h.cfg.ArrowPress))
}

// TypeDown presses ArrowDown with a short hold, or PageDown without one.
func (h *Humanoid) TypeDown(ctx context.Context, page bool) error {
	if page {
		return h.pressKey(ctx, "typeDown", KeyPageDown, 0)
	}
	return h.pressKey(ctx, "typeDown", KeyArrowDown, h.timing.Sample(h.cfg.ArrowPress))
}

func (h *Humanoid) pressKey(ctx context.Context, op, key string, hold time.Duration) error {
	if err := h.begin(op); err != nil {
		return err
	}
	h.logger.Debug(op, zap.String("key", key))
	if err := pressKey(ctx, h.exec, key, hold); err != nil {
		return h.escalate(ctx, actionFailed(op, "", err))
	}
	return nil
}

// pressKey sends key down, holds, then key up.
func pressKey(ctx context.Context, d ScrollDriver, key string, hold time.Duration) error {
	if err := d.DispatchStructuredKey(ctx, schemas.KeyEventData{Type: schemas.KeyDown, Key: key}); err != nil {
		return err
	}
	if hold > 0 {
		if err := d.Sleep(ctx, hold); err != nil {
			return err
		}
	}
	return d.DispatchStructuredKey(ctx, schemas.KeyEventData{Type: schemas.KeyUp, Key: key})
}
