package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
	"github.com/xkilldash9x/linkmcp/internal/session"
)

const maxScrollTimes = 10

// PageData describes where the browser ended up after a generic action.
type PageData struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// guard classifies the page before a state-changing action.
func (c *call) guard(ctx context.Context) *Outcome {
	p, err := c.classify(ctx)
	if err != nil {
		o := c.fault(ctx, err)
		return &o
	}
	if p != nil {
		o := c.needsHuman(ctx, p)
		return &o
	}
	return nil
}

// pageData reads the location and title after a clean classification.
func (c *call) pageData(ctx context.Context) (PageData, *Outcome) {
	if out := c.guard(ctx); out != nil {
		return PageData{}, out
	}
	url, err := c.page.Location(ctx)
	if err != nil {
		o := c.fault(ctx, err)
		return PageData{}, &o
	}
	title, err := c.page.Title(ctx)
	if err != nil {
		o := c.fault(ctx, err)
		return PageData{}, &o
	}
	return PageData{URL: url, Title: title}, nil
}

type navigateArgs struct {
	URL string `json:"url"`
}

// Navigate loads an absolute URL and classifies the result.
func Navigate(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[navigateArgs](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	target, err := absoluteURL(args.URL)
	if err != nil {
		return Errorf("%v", err)
	}
	c, err := env.begin(ctx, ToolNavigate)
	if err != nil {
		return browserUnavailable(err)
	}
	if err := c.navigate(ctx, target); err != nil {
		return c.fault(ctx, err)
	}
	data, out := c.pageData(ctx)
	if out != nil {
		return *out
	}
	return Success(data)
}

// selectorFor turns a validated target into a concrete selector. Roles wait
// for a visible candidate; raw selectors are left to the click primitive's
// own bounded wait.
func (c *call) selectorFor(ctx context.Context, t target) (string, error) {
	if t.Role != "" {
		return c.resolve(ctx, selectors.Role(t.Role))
	}
	return t.Selector, nil
}

// ClickData reports the element that was pressed.
type ClickData struct {
	Selector string `json:"selector"`
	PageData
}

// Click presses an element by selector or role.
func Click(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[target](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	if err := args.validate(env.Selectors()); err != nil {
		return Errorf("%v", err)
	}
	c, err := env.begin(ctx, ToolClick)
	if err != nil {
		return browserUnavailable(err)
	}
	if out := c.guard(ctx); out != nil {
		return *out
	}
	sel, err := c.selectorFor(ctx, args)
	if err != nil {
		return c.fault(ctx, err)
	}
	if err := c.clickSelector(ctx, sel); err != nil {
		return c.fault(ctx, err)
	}
	data, out := c.pageData(ctx)
	if out != nil {
		return *out
	}
	return Success(ClickData{Selector: sel, PageData: data})
}

type typeArgs struct {
	Selector string `json:"selector,omitempty"`
	Role     string `json:"role,omitempty"`
	Text     string `json:"text"`
	Clear    bool   `json:"clear,omitempty"`
}

// TypeData reports what was entered.
type TypeData struct {
	Selector   string `json:"selector"`
	Characters int    `json:"characters"`
	Cleared    bool   `json:"cleared"`
}

// TypeText types into a field with humanized keystrokes.
func TypeText(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[typeArgs](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	dest := target{Selector: args.Selector, Role: args.Role}
	if err := dest.validate(env.Selectors()); err != nil {
		return Errorf("%v", err)
	}
	if args.Text == "" {
		return Errorf("text is required")
	}
	c, err := env.begin(ctx, ToolTypeText)
	if err != nil {
		return browserUnavailable(err)
	}
	if out := c.guard(ctx); out != nil {
		return *out
	}
	sel, err := c.selectorFor(ctx, dest)
	if err != nil {
		return c.fault(ctx, err)
	}
	if err := c.typeInto(ctx, sel, args.Text, args.Clear); err != nil {
		return c.fault(ctx, err)
	}
	if out := c.guard(ctx); out != nil {
		return *out
	}
	return Success(TypeData{Selector: sel, Characters: runeLen(args.Text), Cleared: args.Clear})
}

type scrollArgs struct {
	Direction string `json:"direction,omitempty"`
	Times     *int   `json:"times,omitempty"`
}

// ScrollData reports the distance covered.
type ScrollData struct {
	Direction string `json:"direction"`
	Times     int    `json:"times"`
	Pixels    int    `json:"pixels"`
}

// Scroll performs one or more humanized scrolls.
func Scroll(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[scrollArgs](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	dir := humanoid.ScrollDirection(strings.ToLower(strings.TrimSpace(args.Direction)))
	switch dir {
	case "":
		dir = humanoid.ScrollDown
	case humanoid.ScrollDown, humanoid.ScrollUp:
	default:
		return Errorf("direction must be %q or %q", humanoid.ScrollDown, humanoid.ScrollUp)
	}
	times := 1
	if args.Times != nil {
		times = *args.Times
	}
	if times < 1 || times > maxScrollTimes {
		return Errorf("times must be between 1 and %d", maxScrollTimes)
	}

	c, err := env.begin(ctx, ToolScroll)
	if err != nil {
		return browserUnavailable(err)
	}
	if out := c.guard(ctx); out != nil {
		return *out
	}
	data := ScrollData{Direction: string(dir), Times: times}
	for i := 0; i < times; i++ {
		px, err := c.scroll(ctx, dir)
		if err != nil {
			return c.fault(ctx, err)
		}
		data.Pixels += px
	}
	if out := c.guard(ctx); out != nil {
		return *out
	}
	return Success(data)
}

type screenshotArgs struct {
	Selector string `json:"selector,omitempty"`
}

// ScreenshotData references a capture on disk.
type ScreenshotData struct {
	EvidenceRef string `json:"evidence_ref"`
	URL         string `json:"url"`
}

// Screenshot captures the viewport or one element and returns its path. A
// page in an adverse state yields NeedsHuman with the capture as evidence.
func Screenshot(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[screenshotArgs](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	c, err := env.begin(ctx, ToolScreenshot)
	if err != nil {
		return browserUnavailable(err)
	}
	seen, err := c.classify(ctx)
	if err != nil {
		return c.fault(ctx, err)
	}
	ref, err := env.evidence.Capture(ctx, c.page, args.Selector, "screenshot")
	if seen != nil {
		if err != nil {
			return c.needsHuman(ctx, seen)
		}
		return c.needsHumanWith(ctx, seen, ref)
	}
	if err != nil {
		if errors.Is(err, humanoid.ErrElementNotFound) {
			return c.needsHuman(ctx, c.problem(detector.ReasonElementNotFound, err.Error()))
		}
		if isCancellation(ctx, err) {
			return Errorf("screenshot cancelled: %v", err)
		}
		return Errorf("screenshot failed: %v", err)
	}
	url, err := c.page.Location(ctx)
	if err != nil {
		return c.fault(ctx, err)
	}
	return Success(ScreenshotData{EvidenceRef: ref, URL: url})
}

// StatusData is the diagnostic payload of session_status.
type StatusData struct {
	Session          session.Stats `json:"session"`
	BrowserRunning   bool          `json:"browser_running"`
	HandleID         string        `json:"handle_id,omitempty"`
	Generation       int           `json:"generation"`
	HandleAge        time.Duration `json:"handle_age,omitempty"`
	InvitationTokens float64       `json:"invitation_tokens"`
	InvitationsLimit string        `json:"invitations_limit"`
	EvidenceFiles    int           `json:"evidence_files"`
}

// SessionStatus reports pacing and browser state without touching the page.
func SessionStatus(_ context.Context, env *Env, raw map[string]any) Outcome {
	if len(raw) > 0 {
		return Errorf("session_status takes no arguments")
	}
	data := StatusData{
		Session:    env.scheduler.Stats(),
		Generation: env.manager.Generation(),
	}
	if h := env.manager.Current(); h != nil {
		data.BrowserRunning = true
		data.HandleID = h.ID
		data.HandleAge = env.clock.Now().Sub(h.CreatedAt)
	}
	if env.budget.Limit() == rate.Inf {
		data.InvitationsLimit = "unlimited"
		data.InvitationTokens = -1
	} else {
		data.InvitationsLimit = fmt.Sprintf("%.0f/hour, burst %d", float64(env.budget.Limit())*3600, env.budget.Burst())
		data.InvitationTokens = env.budget.TokensAt(env.clock.Now())
	}
	if files, err := env.evidence.List(); err == nil {
		data.EvidenceFiles = len(files)
	}
	return Success(data)
}
