// internal/humanoid/captcha.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultRecaptchaResponseSelector is the hidden textarea a reCAPTCHA token is injected into.
const DefaultRecaptchaResponseSelector = "#g-recaptcha-response"

var errNoSolver = errors.New("captcha solver not configured")

// SolveCaptcha screenshots the image CAPTCHA at selector and returns the
// solved text. Adapter failures, including an exhausted balance, are
// returned to the caller and not escalated.
func (h *Humanoid) SolveCaptcha(ctx context.Context, selector string) (string, error) {
	if err := h.begin("solveCaptcha"); err != nil {
		return "", err
	}
	if h.solver == nil {
		return "", errNoSolver
	}
	img, err := h.exec.ElementScreenshot(ctx, selector)
	if err != nil {
		return "", h.escalate(ctx, notFound("solveCaptcha", selector, err))
	}
	h.sc.LogBestEffort(ctx, "logScreenshot", "solveCaptcha: "+selector, img)

	res := h.solver.SolveImageCaptcha(ctx, img)
	if res.Err != nil {
		h.logger.Warn("Image CAPTCHA not solved.", zap.String("selector", selector), zap.Error(res.Err))
		return "", res.Err
	}
	h.logger.Debug("solution", zap.String("selector", selector), zap.String("text", res.Value))
	return res.Value, nil
}

// SolveCaptchaInto solves the image CAPTCHA and types the answer into inputSelector.
func (h *Humanoid) SolveCaptchaInto(ctx context.Context, imageSelector, inputSelector string) error {
	text, err := h.SolveCaptcha(ctx, imageSelector)
	if err != nil {
		return err
	}
	return h.Type(ctx, inputSelector, text, TypeOptions{})
}

const srcAttrScript = `(selector) => document.querySelector(selector).getAttribute('src')`
const userAgentScript = `() => navigator.userAgent`

// SolveRecaptcha reads the site key from the src of the reCAPTCHA iframe at
// iframeSelector and returns the solved token.
func (h *Humanoid) SolveRecaptcha(ctx context.Context, iframeSelector string) (string, error) {
	if err := h.begin("solveRecaptcha"); err != nil {
		return "", err
	}
	if h.solver == nil {
		return "", errNoSolver
	}

	var src string
	if err := h.evalInto(ctx, srcAttrScript, []interface{}{iframeSelector}, &src); err != nil {
		return "", h.escalate(ctx, notFound("solveRecaptcha", iframeSelector, err))
	}
	siteKey, err := SiteKeyFromURL(src)
	if err != nil {
		return "", err
	}
	siteURL, err := h.exec.URL(ctx)
	if err != nil {
		return "", h.escalate(ctx, actionFailed("solveRecaptcha", iframeSelector, err))
	}
	var ua string
	if err := h.evalInto(ctx, userAgentScript, nil, &ua); err != nil {
		h.logger.Debug("Could not read user agent.", zap.Error(err))
	}
	h.logger.Debug("solveRecaptcha",
		zap.String("recaptchaURL", src),
		zap.String("recaptchaKey", siteKey),
		zap.String("siteURL", siteURL))

	res := h.solver.SolveChallengeCaptcha(ctx, siteURL, siteKey, ua)
	if res.Err != nil {
		h.logger.Warn("reCAPTCHA not solved.", zap.String("selector", iframeSelector), zap.Error(res.Err))
		return "", res.Err
	}
	return res.Value, nil
}

// SolveRecaptchaInto solves the reCAPTCHA and injects the token into
// responseSelector (DefaultRecaptchaResponseSelector when empty).
func (h *Humanoid) SolveRecaptchaInto(ctx context.Context, iframeSelector, responseSelector string) error {
	token, err := h.SolveRecaptcha(ctx, iframeSelector)
	if err != nil {
		return err
	}
	if responseSelector == "" {
		responseSelector = DefaultRecaptchaResponseSelector
	}
	return h.SetValue(ctx, responseSelector, token)
}

// SiteKeyFromURL extracts the site key from a reCAPTCHA iframe src: the text
// after the first '=' up to the next '=' or '&'.
func SiteKeyFromURL(src string) (string, error) {
	parts := strings.SplitN(src, "=", 3)
	if len(parts) < 2 {
		return "", fmt.Errorf("humanoid: no site key in reCAPTCHA URL %q", src)
	}
	key, _, _ := strings.Cut(parts[1], "&")
	if key == "" {
		return "", fmt.Errorf("humanoid: empty site key in reCAPTCHA URL %q", src)
	}
	return key, nil
}
