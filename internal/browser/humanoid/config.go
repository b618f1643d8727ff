// internal/browser/humanoid/config.go
package humanoid

import (
	"time"

	"github.com/xkilldash9x/linkmcp/internal/browser/stealth"
	"github.com/xkilldash9x/linkmcp/internal/config"
)

// Config holds the shape parameters of the executor. Timing lives in the
// DelayProfile.
type Config struct {
	ViewportWidth       float64
	ViewportHeight      float64
	ThinkingProbability float64
	MinPathSteps        int
	MaxPathSteps        int
	ScrollMinDistance   int
	ScrollMaxDistance   int
	ScrollMinSteps      int
	ScrollMaxSteps      int
	// ElementTimeout bounds the wait for a click target to appear.
	ElementTimeout time.Duration
	PollInterval   time.Duration
	// Platform is the navigator.platform the browser presents. It picks the
	// select-all shortcut.
	Platform string
}

// DefaultConfig returns the stock executor shape.
func DefaultConfig() Config {
	return Config{
		ViewportWidth:       1366,
		ViewportHeight:      850,
		ThinkingProbability: 0.05,
		MinPathSteps:        15,
		MaxPathSteps:        30,
		ScrollMinDistance:   300,
		ScrollMaxDistance:   700,
		ScrollMinSteps:      5,
		ScrollMaxSteps:      10,
		ElementTimeout:      8 * time.Second,
		PollInterval:        250 * time.Millisecond,
		Platform:            stealth.DefaultPersona.Platform,
	}
}

// DefaultDelays is the unscaled delay table.
func DefaultDelays() map[ActionClass]DelayRange {
	ms := time.Millisecond
	return map[ActionClass]DelayRange{
		ClassClick:          {Min: 120 * ms, Max: 350 * ms},
		ClassClickHold:      {Min: 50 * ms, Max: 120 * ms},
		ClassPostClick:      {Min: 250 * ms, Max: 700 * ms},
		ClassType:           {Min: 60 * ms, Max: 180 * ms},
		ClassThinking:       {Min: 400 * ms, Max: 1200 * ms},
		ClassScrollStep:     {Min: 30 * ms, Max: 90 * ms},
		ClassScrollSettle:   {Min: 400 * ms, Max: 900 * ms},
		ClassRead:           {Min: 1500 * ms, Max: 4000 * ms},
		ClassBetweenActions: {Min: 800 * ms, Max: 2500 * ms},
		ClassPointerStep:    {Min: 5 * ms, Max: 20 * ms},
	}
}

// ConfigFromSettings maps the application configuration onto the executor
// shape.
func ConfigFromSettings(cfg config.Interface) Config {
	hc := cfg.Humanoid()
	out := DefaultConfig()
	out.ViewportWidth = float64(cfg.Browser().Viewport.Width)
	out.ViewportHeight = float64(cfg.Browser().Viewport.Height)
	out.ThinkingProbability = hc.ThinkingProbability
	out.MinPathSteps = hc.MinPathSteps
	out.MaxPathSteps = hc.MaxPathSteps
	out.ScrollMinDistance = hc.ScrollMinDistance
	out.ScrollMaxDistance = hc.ScrollMaxDistance
	out.ScrollMinSteps = hc.ScrollMinSteps
	out.ScrollMaxSteps = hc.ScrollMaxSteps
	out.ElementTimeout = cfg.Limits().ElementTimeout
	out.PollInterval = cfg.Limits().PollInterval
	out.Platform = stealth.PersonaFromConfig(cfg.Browser()).Platform
	return out
}

// DelaysFromSettings overlays configured ranges on DefaultDelays. Unknown
// class names are kept so custom classes remain addressable.
func DelaysFromSettings(hc config.HumanoidConfig) map[ActionClass]DelayRange {
	delays := DefaultDelays()
	for name, r := range hc.Delays {
		delays[ActionClass(name)] = DelayRange{Min: r.Min, Max: r.Max}
	}
	return delays
}
