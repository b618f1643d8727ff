package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
)

const (
	inputTimeout    = 10 * time.Second
	keyTimeout      = 5 * time.Second
	scriptTimeout   = 20 * time.Second
	captureTimeout  = 30 * time.Second
	geometryTimeout = 10 * time.Second
)

// cdpPage drives one Chrome tab through chromedp. ctx is the tab context
// created by chromedp.NewContext; every call combines it with the caller's
// operational context.
type cdpPage struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	navTimeout time.Duration
	closeOnce  sync.Once
}

var _ Page = (*cdpPage)(nil)

func newCDPPage(tabCtx context.Context, cancel context.CancelFunc, navTimeout time.Duration, logger *zap.Logger) *cdpPage {
	return &cdpPage{ctx: tabCtx, cancel: cancel, navTimeout: navTimeout, logger: logger}
}

// run executes actions against the tab under timeout. A deadline hit is
// reported as context.DeadlineExceeded even though chromedp sees a plain
// cancellation.
func (p *cdpPage) run(ctx context.Context, timeout time.Duration, what string, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	runCtx, cancelRun := CombineContext(p.ctx, opCtx)
	defer cancelRun()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		p.logger.Debug("CDP call timed out.", zap.String("call", what), zap.Duration("timeout", timeout))
		return fmt.Errorf("%s timed out after %v: %w", what, timeout, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func evalOpts(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
}

func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx, p.navTimeout, "navigate",
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
	}
	return nil
}

func (p *cdpPage) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, scriptTimeout, "location", chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (p *cdpPage) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, scriptTimeout, "title", chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (p *cdpPage) Text(ctx context.Context) (string, error) {
	var text string
	err := p.Evaluate(ctx, `document.body ? document.body.innerText : ""`, &text)
	return text, err
}

func (p *cdpPage) HTML(ctx context.Context) (string, error) {
	var markup string
	err := p.Evaluate(ctx, `document.documentElement ? document.documentElement.outerHTML : ""`, &markup)
	return markup, err
}

// visibilityScript returns, per selector, whether any match is rendered with a
// non-empty box. Selectors the engine rejects count as not visible.
const visibilityScript = `(function(sels) {
	const shown = (el) => {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
	};
	const out = {};
	for (const sel of sels) {
		try {
			out[sel] = Array.from(document.querySelectorAll(sel)).some(shown);
		} catch (e) {
			out[sel] = false;
		}
	}
	return out;
})(%s)`

func (p *cdpPage) VisibleSelectors(ctx context.Context, selectors []string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(selectors) == 0 {
		return out, nil
	}
	if err := p.Evaluate(ctx, fmt.Sprintf(visibilityScript, jsonEncode(selectors)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

const geometryScript = `(function(sel) {
	const node = document.querySelector(sel);
	if (!node) return null;
	node.scrollIntoView({block: 'center', inline: 'center'});
	const rect = node.getBoundingClientRect();
	const style = window.getComputedStyle(node);
	if (!(rect.width > 0 && rect.height > 0 && style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0')) {
		return null;
	}
	return {
		vertices: [rect.left, rect.top, rect.right, rect.top, rect.right, rect.bottom, rect.left, rect.bottom],
		width: Math.round(rect.width),
		height: Math.round(rect.height),
		tagName: node.tagName || ''
	};
})(%s)`

// GetElementGeometry returns the viewport quad of the first visible match,
// scrolling it into view first.
func (p *cdpPage) GetElementGeometry(ctx context.Context, selector string) (*humanoid.ElementGeometry, error) {
	var res json.RawMessage
	err := p.run(ctx, geometryTimeout, "geometry",
		chromedp.Evaluate(fmt.Sprintf(geometryScript, jsonEncode(selector)), &res, evalOpts))
	if err != nil {
		return nil, fmt.Errorf("geometry for '%s': %w", selector, err)
	}
	if len(res) == 0 || string(res) == "null" {
		return nil, fmt.Errorf("element '%s' not found or not visible: %w", selector, humanoid.ErrElementNotFound)
	}
	var geom humanoid.ElementGeometry
	if err := json.Unmarshal(res, &geom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geometry for '%s': %w (payload: %s)", selector, err, string(res))
	}
	if geom.Width <= 0 || geom.Height <= 0 {
		return nil, fmt.Errorf("element '%s' has no size: %w", selector, humanoid.ErrElementNotFound)
	}
	return &geom, nil
}

func (p *cdpPage) DispatchMouseEvent(ctx context.Context, data humanoid.MouseEventData) error {
	ev := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons).
		WithClickCount(int64(data.ClickCount))
	if data.Type == humanoid.MouseWheel {
		ev = ev.WithDeltaX(data.DeltaX).WithDeltaY(data.DeltaY)
	}
	return p.run(ctx, inputTimeout, "mouse event", ev)
}

func (p *cdpPage) SendKeys(ctx context.Context, keys string) error {
	return p.run(ctx, inputTimeout, "send keys", chromedp.KeyEvent(keys))
}

func (p *cdpPage) DispatchStructuredKey(ctx context.Context, data humanoid.KeyEventData) error {
	var mods input.Modifier
	if data.Modifiers&humanoid.ModAlt != 0 {
		mods |= input.ModifierAlt
	}
	if data.Modifiers&humanoid.ModCtrl != 0 {
		mods |= input.ModifierCtrl
	}
	if data.Modifiers&humanoid.ModMeta != 0 {
		mods |= input.ModifierMeta
	}
	if data.Modifiers&humanoid.ModShift != 0 {
		mods |= input.ModifierShift
	}
	down := input.DispatchKeyEvent(input.KeyDown).WithModifiers(mods).WithKey(data.Key)
	up := input.DispatchKeyEvent(input.KeyUp).WithModifiers(mods).WithKey(data.Key)
	return p.run(ctx, keyTimeout, "key sequence", down, up)
}

func (p *cdpPage) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if selector != "" {
		action = chromedp.Screenshot(selector, &buf, chromedp.ByQuery, chromedp.NodeVisible)
	}
	if err := p.run(ctx, captureTimeout, "screenshot", action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *cdpPage) Evaluate(ctx context.Context, expression string, res any) error {
	var raw json.RawMessage
	if err := p.run(ctx, scriptTimeout, "evaluate", chromedp.Evaluate(expression, &raw, evalOpts)); err != nil {
		return err
	}
	if res == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("evaluate: decoding result: %w", err)
	}
	return nil
}

// Close cancels the tab and the allocator, which terminates the browser
// process. Repeated calls are no-ops.
func (p *cdpPage) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(p.ctx) }()
		select {
		case err = <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		p.cancel()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	})
	return err
}

func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
