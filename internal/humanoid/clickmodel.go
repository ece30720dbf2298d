// internal/humanoid/clickmodel.go
package humanoid

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
)

// Click clicks selector at a randomized point. Elements larger than the
// minimum clickable size are hit inside their central quarter (or the
// top-right 1/8 margin); smaller ones fall back to a driver-native center click.
func (h *Humanoid) Click(ctx context.Context, selector string, opts ClickOptions) error {
	if err := h.begin("click"); err != nil {
		return err
	}
	h.bringToFront(ctx)

	geo, err := h.exec.GetElementGeometry(ctx, selector)
	if err != nil {
		if opts.DoTrigger && ctx.Err() == nil {
			h.logger.Info("Element geometry unavailable, triggering scripted click.", zap.String("selector", selector), zap.Error(err))
			return h.TriggerClick(ctx, selector)
		}
		return h.escalate(ctx, notFound("click", selector, err))
	}
	if h.cfg.AuditActions {
		value := selector
		if href := h.hrefOf(ctx, selector); href != "" {
			value += ", href: " + href
		}
		h.audit(ctx, "click", fmt.Sprintf("%s, topRight: %t", value, opts.TopRight), selector)
	}

	var hold time.Duration
	if !opts.NoDelay {
		hold = h.timing.Sample(h.cfg.ClickHold)
	}

	if err := h.performClick(ctx, selector, geo, hold, opts); err != nil {
		if opts.DoTrigger {
			h.logger.Info("Click failed, triggering scripted click.", zap.String("selector", selector), zap.Error(err))
			return h.TriggerClick(ctx, selector)
		}
		return h.escalate(ctx, classify("click", selector, err))
	}
	return nil
}

func (h *Humanoid) performClick(ctx context.Context, selector string, geo *schemas.ElementGeometry, hold time.Duration, opts ClickOptions) error {
	if geo.Width > h.cfg.MinClickableSize && geo.Height > h.cfg.MinClickableSize {
		pt := h.clickPoint(geo, opts.TopRight)
		h.logger.Debug("Click position in bounding box.",
			zap.String("selector", selector),
			zap.Float64("dx", pt.X-geo.X),
			zap.Float64("dy", pt.Y-geo.Y),
			zap.Bool("tap", opts.Tap))
		if opts.Tap {
			h.currentPos = pt
			return h.exec.DispatchTap(ctx, pt.X, pt.Y)
		}
		return h.pointerClick(ctx, pt, hold)
	}

	h.logger.Debug("Element below clickable size, using native click.", zap.String("selector", selector))
	if opts.Tap {
		return h.exec.NativeTap(ctx, selector)
	}
	return h.exec.NativeClick(ctx, selector, hold)
}

// clickPoint samples a point inside geo. The default region is the central
// quarter [w/2-w/8, w/2+w/8); topRight uses [w-w/8, w) on both axes.
func (h *Humanoid) clickPoint(geo *schemas.ElementGeometry, topRight bool) Vector2D {
	w, ht := geo.Width, geo.Height
	rng := h.sc.Random
	if topRight {
		return Vector2D{
			X: geo.X + rng.NextFloatRange(w-w/8, w),
			Y: geo.Y + rng.NextFloatRange(ht-ht/8, ht),
		}
	}
	return Vector2D{
		X: geo.X + rng.NextFloatRange(w/2-w/8, w/2+w/8),
		Y: geo.Y + rng.NextFloatRange(ht/2-ht/8, ht/2+ht/8),
	}
}

const triggerClickScript = `(selector) => { document.querySelector(selector).click(); return true; }`

// TriggerClick dispatches element.click() through script, bypassing geometry
// and visibility. Failures escalate.
func (h *Humanoid) TriggerClick(ctx context.Context, selector string) error {
	if err := h.begin("triggerClick"); err != nil {
		return err
	}
	h.logger.Debug("triggerClick", zap.String("selector", selector))
	if _, err := h.exec.ExecuteScript(ctx, triggerClickScript, []interface{}{selector}); err != nil {
		return h.escalate(ctx, actionFailed("triggerClick", selector, err))
	}
	return nil
}
