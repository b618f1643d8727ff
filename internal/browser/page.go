package browser

import (
	"context"
	"errors"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/detector"
)

var (
	// ErrNavigation wraps failures to load a URL.
	ErrNavigation = errors.New("browser: navigation failed")
	// ErrBrowserUnavailable wraps failures to launch or reach the browser.
	ErrBrowserUnavailable = errors.New("browser: browser unavailable")
)

// Page is the driver capability for a single tab. Every method is bounded
// by ctx and by the implementation's own per-call timeout.
type Page interface {
	humanoid.Executor
	detector.Inspector

	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	// Screenshot captures the viewport, or the element matching selector
	// when it is not empty, as PNG bytes.
	Screenshot(ctx context.Context, selector string) ([]byte, error)
	// Evaluate runs a JavaScript expression and decodes its JSON result into
	// res, which may be nil.
	Evaluate(ctx context.Context, expression string, res any) error
	Close(ctx context.Context) error
}
