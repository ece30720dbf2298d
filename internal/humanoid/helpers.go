// internal/humanoid/helpers.go
package humanoid

import (
	"context"
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// osExit is a variable so tests can intercept Exit.
var osExit = os.Exit

// evalInto runs script and decodes its JSON result into out.
func (h *Humanoid) evalInto(ctx context.Context, script string, args []interface{}, out interface{}) error {
	raw, err := h.exec.ExecuteScript(ctx, script, args)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("humanoid: failed to decode script result: %w", err)
	}
	return nil
}

// Hover moves the pointer over selector through the driver.
func (h *Humanoid) Hover(ctx context.Context, selector string) error {
	if err := h.begin("hover"); err != nil {
		return err
	}
	h.bringToFront(ctx)
	h.audit(ctx, "hover", selector, selector)
	if err := h.exec.Hover(ctx, selector); err != nil {
		return h.escalate(ctx, classify("hover", selector, err))
	}
	return nil
}

// Select picks the option with the given value in a <select> element.
func (h *Humanoid) Select(ctx context.Context, selector, value string) error {
	if err := h.begin("select"); err != nil {
		return err
	}
	h.bringToFront(ctx)
	h.logger.Debug("Select", zap.String("selector", selector), zap.String("value", value))
	if err := h.exec.SelectOption(ctx, selector, value); err != nil {
		return h.escalate(ctx, classify("select", selector, err))
	}
	return nil
}

// RandomWait pauses for a sampled duration; nil uses the configured 2000±1000 ms.
func (h *Humanoid) RandomWait(ctx context.Context, r *TimeRange) error {
	if err := h.begin("wait"); err != nil {
		return err
	}
	rng := h.cfg.RandomWait
	if r != nil {
		rng = *r
	}
	d := h.timing.Sample(rng)
	h.logger.Debug("wait", zap.Duration("duration", d))
	return h.pause(ctx, d)
}

// WaitForSelector waits until selector is visible. On timeout the failure
// escalates unless doThrow is set, in which case it is returned to the caller.
func (h *Humanoid) WaitForSelector(ctx context.Context, selector string, doThrow bool) error {
	if err := h.begin("waitForSelector"); err != nil {
		return err
	}
	h.logger.Debug("waitForSelector", zap.String("selector", selector))
	if err := h.exec.WaitVisible(ctx, selector, 0); err != nil {
		nf := notFound("waitForSelector", selector, err)
		if doThrow {
			return nf
		}
		return h.escalate(ctx, nf)
	}
	return nil
}

// IsSelectorVisible reports whether selector becomes visible within the short visibility wait.
func (h *Humanoid) IsSelectorVisible(ctx context.Context, selector string) bool {
	if h.sc.Fatal.IsSet() {
		return false
	}
	h.logger.Debug("isSelectorVisible", zap.String("selector", selector))
	return h.exec.WaitVisible(ctx, selector, h.cfg.VisibilityWait) == nil
}

const setValueScript = `(selector, text) => { document.querySelector(selector).value = text; return true; }`

// SetValue assigns value to the element's value property through script.
func (h *Humanoid) SetValue(ctx context.Context, selector, value string) error {
	if err := h.begin("setValue"); err != nil {
		return err
	}
	h.logger.Debug("setValue", zap.String("selector", selector), zap.Int("length", len(value)))
	if _, err := h.exec.ExecuteScript(ctx, setValueScript, []interface{}{selector, value}); err != nil {
		return h.escalate(ctx, classify("setValue", selector, err))
	}
	return nil
}

const deactivateLinkScript = `(selector) => {
	document.querySelector(selector).addEventListener('click', (event) => event.preventDefault());
	return true;
}`

// DeactivateLink prevents the default navigation of a link's click.
func (h *Humanoid) DeactivateLink(ctx context.Context, selector string) error {
	if err := h.begin("deactivateLink"); err != nil {
		return err
	}
	h.logger.Debug("deactivateLink", zap.String("selector", selector))
	if _, err := h.exec.ExecuteScript(ctx, deactivateLinkScript, []interface{}{selector}); err != nil {
		return h.escalate(ctx, classify("deactivateLink", selector, err))
	}
	return nil
}

const hrefScript = `(selector) => { const el = document.querySelector(selector); return el && el.href ? String(el.href) : ""; }`

// GetHref returns the href of selector, or an empty string when there is none.
func (h *Humanoid) GetHref(ctx context.Context, selector string) (string, error) {
	if err := h.begin("getHref"); err != nil {
		return "", err
	}
	h.bringToFront(ctx)
	return h.hrefOf(ctx, selector), nil
}

func (h *Humanoid) hrefOf(ctx context.Context, selector string) string {
	var href string
	if err := h.evalInto(ctx, hrefScript, []interface{}{selector}, &href); err != nil {
		h.logger.Debug("getHref failed.", zap.String("selector", selector), zap.Error(err))
		return ""
	}
	return href
}

// Screenshot captures the page (or frame) and never fails: errors are logged
// and an empty image is returned.
func (h *Humanoid) Screenshot(ctx context.Context, fullPage bool) []byte {
	shot, err := h.exec.Screenshot(ctx, fullPage)
	if err != nil {
		h.logger.Warn("Screenshot failed.", zap.Error(err))
		return nil
	}
	return shot
}

// LogScreenshot writes a "logScreenshot" entry with a page screenshot. An empty
// text defaults to the current URL.
func (h *Humanoid) LogScreenshot(ctx context.Context, text string, fullPage bool) error {
	if err := h.begin("logScreenshot"); err != nil {
		return err
	}
	if text == "" {
		u, err := h.exec.URL(ctx)
		if err != nil {
			u = "no URL available"
		}
		text = u
	}
	return h.sc.Log(ctx, "logScreenshot", text, h.Screenshot(ctx, fullPage))
}

// Exit ends the session successfully: it logs exit=true and terminates the
// process with status 0.
func (h *Humanoid) Exit(ctx context.Context) {
	h.sc.LogBestEffort(ctx, "exit", "true", nil)
	_ = h.sc.Logger.Sync()
	osExit(0)
}
