// Package stealth builds the CDP actions that give an automated Chrome the
// surface of an ordinary user-operated browser.
package stealth

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/xkilldash9x/linkmcp/internal/config"
)

//go:embed evasions.js
var evasionsScript string

const personaPlaceholder = "__PERSONA__"

// Persona defines the browser characteristics to emulate. Empty fields keep
// the browser's own value.
type Persona struct {
	UserAgent string   `json:"userAgent,omitempty"`
	Platform  string   `json:"platform,omitempty"`
	Languages []string `json:"languages"`
	Timezone  string   `json:"-"`
	Locale    string   `json:"-"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
}

// DefaultPersona is a desktop Chrome on Windows in US English.
var DefaultPersona = Persona{
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Locale:    "en-US",
	Width:     1366,
	Height:    850,
}

// PersonaFromConfig derives a persona from browser settings. The language
// list is the configured locale followed by its base language.
func PersonaFromConfig(cfg config.BrowserConfig) Persona {
	p := DefaultPersona
	p.UserAgent = cfg.UserAgent
	p.Platform = PlatformFor(cfg.UserAgent)
	p.Timezone = cfg.Timezone
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		p.Width, p.Height = cfg.Viewport.Width, cfg.Viewport.Height
	}
	if cfg.Locale != "" {
		p.Locale = cfg.Locale
		p.Languages = LanguagesFor(cfg.Locale)
	}
	return p
}

// PlatformFor returns the navigator.platform value that matches userAgent.
// Anything unrecognised, including an empty agent, is reported as Windows.
func PlatformFor(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Macintosh"), strings.Contains(userAgent, "Mac OS X"):
		return "MacIntel"
	case strings.Contains(userAgent, "Linux") && !strings.Contains(userAgent, "Android"):
		return "Linux x86_64"
	default:
		return DefaultPersona.Platform
	}
}

// IsMac reports whether platform is a macOS navigator.platform value.
func IsMac(platform string) bool { return strings.HasPrefix(platform, "Mac") }

// LanguagesFor expands a BCP 47 locale into a navigator.languages list.
// Unparseable input falls back to the default persona languages.
func LanguagesFor(locale string) []string {
	tag, err := language.Parse(locale)
	if err != nil {
		return append([]string(nil), DefaultPersona.Languages...)
	}
	langs := []string{tag.String()}
	if base, conf := tag.Base(); conf != language.No && base.String() != tag.String() {
		langs = append(langs, base.String())
	}
	return langs
}

// AcceptLanguage renders languages as an Accept-Language header value with
// descending quality weights.
func AcceptLanguage(langs []string) string {
	parts := make([]string, 0, len(langs))
	for i, l := range langs {
		if i == 0 {
			parts = append(parts, l)
			continue
		}
		q := 1.0 - 0.1*float64(i)
		if q < 0.1 {
			q = 0.1
		}
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", l, q))
	}
	return strings.Join(parts, ",")
}

// Script returns the evasion script with the persona embedded.
func Script(p Persona) string {
	data, err := json.Marshal(p)
	if err != nil {
		data = []byte("{}")
	}
	return strings.Replace(evasionsScript, personaPlaceholder, string(data), 1)
}

// Apply returns the actions that install the persona on the current target.
// They must run through chromedp.Run on a tab context.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
		zap.Strings("languages", p.Languages),
	)

	accept := AcceptLanguage(p.Languages)
	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			if _, err := page.AddScriptToEvaluateOnNewDocument(Script(p)).Do(ctx); err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),
	}
	if p.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(p.UserAgent).
			WithAcceptLanguage(accept).
			WithPlatform(p.Platform))
	}
	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(p.Locale))
	}
	if accept != "" {
		tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": accept}))
	}
	return tasks
}
