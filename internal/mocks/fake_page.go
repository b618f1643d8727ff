package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
)

// ErrTargetClosed is returned by every call on a killed or closed FakePage.
var ErrTargetClosed = errors.New("fake page: target closed")

// PNG is the payload FakePage returns for screenshots.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// PageState is what a FakePage shows after loading one URL.
type PageState struct {
	// URL overrides the requested address, which models redirects.
	URL     string
	Title   string
	HTML    string
	Text    string
	Visible []string
}

// FakePage is an in-memory browser.Page. Routes map URL prefixes to page
// states, and click hooks let a test change the page when a selector is
// pressed.
type FakePage struct {
	mu      sync.Mutex
	url     string
	title   string
	html    string
	text    string
	visible map[string]bool

	routes  map[string]PageState
	onClick map[string]func(*FakePage)
	navErr  error
	dead    bool

	lastGeometry string
	focused      string
	selectAll    bool

	navigations []string
	clicks      []string
	typed       map[string]string
	wheel       []float64
	screenshots []string
	closeCount  int
}

var _ browser.Page = (*FakePage)(nil)

// NewFakePage returns a blank page.
func NewFakePage() *FakePage {
	return &FakePage{
		url:     "about:blank",
		visible: map[string]bool{},
		routes:  map[string]PageState{},
		onClick: map[string]func(*FakePage){},
		typed:   map[string]string{},
	}
}

// Route registers the state shown for URLs starting with prefix. The longest
// matching prefix wins.
func (p *FakePage) Route(prefix string, s PageState) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[prefix] = s
	return p
}

// OnClick registers a hook run after selector is pressed.
func (p *FakePage) OnClick(selector string, fn func(*FakePage)) *FakePage {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick[selector] = fn
	return p
}

// Show replaces the current page state without a navigation.
func (p *FakePage) Show(s PageState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.apply(s, s.URL)
}

// SetVisible toggles one selector on the current page.
func (p *FakePage) SetVisible(selector string, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible[selector] = visible
}

// AppendText adds rendered text to the current page.
func (p *FakePage) AppendText(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text += " " + s
}

// FailNavigation makes every later Navigate fail with err.
func (p *FakePage) FailNavigation(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navErr = err
}

// Kill makes the page unresponsive, as if the browser crashed.
func (p *FakePage) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dead = true
}

func (p *FakePage) apply(s PageState, fallbackURL string) {
	p.url = s.URL
	if p.url == "" {
		p.url = fallbackURL
	}
	p.title = s.Title
	p.html = s.HTML
	p.text = s.Text
	p.visible = make(map[string]bool, len(s.Visible))
	for _, sel := range s.Visible {
		p.visible[sel] = true
	}
}

func (p *FakePage) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.dead {
		return ErrTargetClosed
	}
	return nil
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return err
	}
	p.navigations = append(p.navigations, url)
	if p.navErr != nil {
		return fmt.Errorf("%w: %s: %w", browser.ErrNavigation, url, p.navErr)
	}
	best := ""
	found := false
	for prefix := range p.routes {
		if strings.HasPrefix(url, prefix) && len(prefix) >= len(best) {
			best, found = prefix, true
		}
	}
	if found {
		p.apply(p.routes[best], url)
	} else {
		p.apply(PageState{}, url)
	}
	p.focused = ""
	return nil
}

func (p *FakePage) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return "", err
	}
	return p.url, nil
}

func (p *FakePage) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return "", err
	}
	return p.title, nil
}

func (p *FakePage) Text(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return "", err
	}
	return p.text, nil
}

func (p *FakePage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return "", err
	}
	return p.html, nil
}

func (p *FakePage) VisibleSelectors(ctx context.Context, selectors []string) (map[string]bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(selectors))
	for _, s := range selectors {
		out[s] = p.visible[s]
	}
	return out, nil
}

func (p *FakePage) GetElementGeometry(ctx context.Context, selector string) (*humanoid.ElementGeometry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	if !p.visible[selector] {
		return nil, fmt.Errorf("element '%s' not found or not visible: %w", selector, humanoid.ErrElementNotFound)
	}
	p.lastGeometry = selector
	return &humanoid.ElementGeometry{
		Vertices: []float64{100, 100, 300, 100, 300, 140, 100, 140},
		Width:    200,
		Height:   40,
		TagName:  "BUTTON",
	}, nil
}

func (p *FakePage) DispatchMouseEvent(ctx context.Context, data humanoid.MouseEventData) error {
	p.mu.Lock()
	if err := p.check(ctx); err != nil {
		p.mu.Unlock()
		return err
	}
	var hook func(*FakePage)
	switch data.Type {
	case humanoid.MousePress:
		p.clicks = append(p.clicks, p.lastGeometry)
		p.focused = p.lastGeometry
		hook = p.onClick[p.lastGeometry]
	case humanoid.MouseWheel:
		p.wheel = append(p.wheel, data.DeltaY)
	}
	p.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return nil
}

func (p *FakePage) SendKeys(ctx context.Context, keys string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return err
	}
	if keys == string(humanoid.KeyBackspace) {
		if p.selectAll {
			p.typed[p.focused] = ""
			p.selectAll = false
		} else if cur := []rune(p.typed[p.focused]); len(cur) > 0 {
			p.typed[p.focused] = string(cur[:len(cur)-1])
		}
		return nil
	}
	p.selectAll = false
	p.typed[p.focused] += keys
	return nil
}

func (p *FakePage) DispatchStructuredKey(ctx context.Context, data humanoid.KeyEventData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return err
	}
	if data.Key == "a" && data.Modifiers&(humanoid.ModCtrl|humanoid.ModMeta) != 0 {
		p.selectAll = true
	}
	return nil
}

func (p *FakePage) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return nil, err
	}
	if selector != "" && !p.visible[selector] {
		return nil, fmt.Errorf("screenshot of '%s': %w", selector, humanoid.ErrElementNotFound)
	}
	p.screenshots = append(p.screenshots, selector)
	return append([]byte(nil), PNG...), nil
}

// Evaluate answers the liveness check; other expressions decode to null.
func (p *FakePage) Evaluate(ctx context.Context, expression string, res any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(ctx); err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	if expression == "1+1" {
		return json.Unmarshal([]byte("2"), res)
	}
	return nil
}

func (p *FakePage) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	p.dead = true
	return nil
}

// Navigations returns every URL passed to Navigate.
func (p *FakePage) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Clicks returns the selectors pressed, in order.
func (p *FakePage) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Clicked reports whether selector was pressed at least once.
func (p *FakePage) Clicked(selector string) bool {
	for _, c := range p.Clicks() {
		if c == selector {
			return true
		}
	}
	return false
}

// Typed returns the text entered into selector.
func (p *FakePage) Typed(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[selector]
}

// WheelDeltas returns the vertical deltas of every wheel event.
func (p *FakePage) WheelDeltas() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.wheel...)
}

// Screenshots returns the selector of every capture ("" for the viewport).
func (p *FakePage) Screenshots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.screenshots...)
}

// CloseCount reports how many times Close was called.
func (p *FakePage) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCount
}

// VisibleNow lists the selectors currently shown, sorted.
func (p *FakePage) VisibleNow() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for s, v := range p.visible {
		if v {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
