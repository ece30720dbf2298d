// Package stealth hides the automation markers of a DevTools-controlled
// browser so the session looks like an ordinary user's.
package stealth

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/das-group/HOSIT/api/schemas"
)

//go:embed evasions.js
var evasionsScript string

// Persona defines the browser characteristics to emulate.
type Persona struct {
	// UserAgent overrides the browser's own string when set.
	UserAgent string
	Platform  string
	Languages []string
	Timezone  string
	Locale    string
	Viewport  schemas.Viewport
}

// DefaultPersona matches a German desktop user.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"de-DE", "de", "en-US", "en"},
	Timezone:  "Europe/Berlin",
	Locale:    "de-DE",
	Viewport:  schemas.DefaultViewport,
}

// Script returns the evasion script bound to the persona.
func Script(p Persona) string {
	payload, err := json.Marshal(struct {
		Languages []string `json:"languages"`
		Platform  string   `json:"platform"`
	}{p.Languages, p.Platform})
	if err != nil {
		payload = []byte("{}")
	}
	return fmt.Sprintf("%s(%s);", strings.TrimSpace(evasionsScript), payload)
}

// AcceptLanguage renders languages as an Accept-Language header value with
// descending q-values, e.g. "de-DE,de;q=0.9,en;q=0.8".
func AcceptLanguage(languages []string) string {
	parts := make([]string, 0, len(languages))
	for i, lang := range languages {
		if i == 0 {
			parts = append(parts, lang)
			continue
		}
		q := 10 - i
		if q < 1 {
			q = 1
		}
		parts = append(parts, fmt.Sprintf("%s;q=0.%d", lang, q))
	}
	return strings.Join(parts, ",")
}

// Apply constructs the DevTools actions that make the browser appear user-operated.
// It must run before the first navigation of the tab.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
		zap.Strings("languages", p.Languages),
	)

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(Script(p)).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
	}

	if p.UserAgent != "" {
		ua := emulation.SetUserAgentOverride(p.UserAgent).WithPlatform(p.Platform)
		if len(p.Languages) > 0 {
			ua = ua.WithAcceptLanguage(AcceptLanguage(p.Languages))
		}
		tasks = append(tasks, ua)
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(p.Locale))
	}
	if len(p.Languages) > 0 {
		tasks = append(tasks, network.Enable(), network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": AcceptLanguage(p.Languages),
		}))
	}
	if p.Viewport.Width > 0 && p.Viewport.Height > 0 {
		tasks = append(tasks, emulation.SetDeviceMetricsOverride(p.Viewport.Width, p.Viewport.Height, 1, false))
	}
	return tasks
}
