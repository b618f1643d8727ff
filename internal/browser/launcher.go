package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/browser/stealth"
	"github.com/xkilldash9x/linkmcp/internal/config"
)

// Launcher creates a fresh browser with a single ready page.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

// ChromeLauncher starts Chrome on the persistent profile directory so that
// the authenticated session survives restarts.
type ChromeLauncher struct {
	cfg     config.BrowserConfig
	persona stealth.Persona
	logger  *zap.Logger
}

var _ Launcher = (*ChromeLauncher)(nil)

// NewChromeLauncher creates a launcher for cfg.
func NewChromeLauncher(cfg config.BrowserConfig, logger *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{
		cfg:     cfg,
		persona: stealth.PersonaFromConfig(cfg),
		logger:  logger.Named("chrome"),
	}
}

// LaunchFlags returns the command-line switches for cfg. Values are bool
// for bare switches and string otherwise. Custom args are applied last.
func LaunchFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":                 cfg.Headless,
		"enable-automation":        false,
		"disable-blink-features":   "AutomationControlled",
		"disable-infobars":         true,
		"no-first-run":             true,
		"no-default-browser-check": true,
		"password-store":           "basic",
		"disable-features":         "Translate,OptimizationHints,MediaRouter",
		"window-size":              fmt.Sprintf("%d,%d", cfg.Viewport.Width, cfg.Viewport.Height),
	}
	if cfg.Headless {
		flags["hide-scrollbars"] = true
		flags["mute-audio"] = true
	}
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags[name] = value
		} else {
			flags[name] = true
		}
	}
	return flags
}

// AllocatorOptions converts cfg into chromedp allocator options.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range LaunchFlags(cfg) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if cfg.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.ProfileDir))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// Launch starts the browser process and prepares the first tab. The browser
// outlives ctx; ctx only bounds the startup.
func (l *ChromeLauncher) Launch(ctx context.Context) (Page, error) {
	if l.cfg.ProfileDir != "" {
		if err := os.MkdirAll(l.cfg.ProfileDir, 0o700); err != nil {
			return nil, fmt.Errorf("%w: creating profile dir: %w", ErrBrowserUnavailable, err)
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), AllocatorOptions(l.cfg)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(l.logger.Sugar().Debugf),
		chromedp.WithErrorf(l.logger.Sugar().Warnf),
	)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	page := newCDPPage(tabCtx, cancel, l.cfg.NavigationTimeout, l.logger)
	l.logger.Info("Launching browser.",
		zap.String("profile_dir", l.cfg.ProfileDir),
		zap.Bool("headless", l.cfg.Headless))

	if err := startTab(ctx, tabCtx, l.cfg.LaunchTimeout); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}
	if err := page.run(ctx, l.cfg.LaunchTimeout, "stealth", stealth.Apply(l.persona, l.logger)); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}
	return page, nil
}

// startTab performs the first Run on the tab context itself, which allocates
// the process and target. A derived context there would tie the browser's
// lifetime to it, so the bound is applied by waiting instead.
func startTab(ctx, tabCtx context.Context, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("browser start timed out after %v: %w", timeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return ctx.Err()
	}
}
