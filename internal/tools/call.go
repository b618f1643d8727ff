package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
)

// call is one tool invocation bound to the live browser handle.
type call struct {
	env    *Env
	tool   string
	handle *browser.Handle
	page   browser.Page
	actor  *humanoid.Humanoid
	table  *selectors.Table
	det    *detector.Detector
	logger *zap.Logger
}

// begin acquires the browser for tool. Tables are pinned for the whole call
// so a hot reload never changes selectors halfway through a flow.
func (e *Env) begin(ctx context.Context, tool string) (*call, error) {
	h, err := e.manager.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &call{
		env:    e,
		tool:   tool,
		handle: h,
		page:   h.Page(),
		actor:  e.actorFor(h),
		table:  e.Selectors(),
		det:    e.Detector(),
		logger: e.logger.With(zap.String("tool", tool), zap.Int("generation", h.Generation)),
	}, nil
}

// act brackets one externally observable action with the session scheduler.
func (c *call) act(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return c.env.scheduler.Do(ctx, c.tool+"."+name, fn)
}

func (c *call) navigate(ctx context.Context, url string) error {
	c.logger.Debug("Navigating.", zap.String("url", url))
	return c.act(ctx, "navigate", func(ctx context.Context) error {
		return c.page.Navigate(ctx, url)
	})
}

// click presses the first visible candidate of role.
func (c *call) click(ctx context.Context, role selectors.Role) error {
	sel, err := c.resolve(ctx, role)
	if err != nil {
		return err
	}
	return c.clickSelector(ctx, sel)
}

func (c *call) clickSelector(ctx context.Context, sel string) error {
	return c.act(ctx, "click", func(ctx context.Context) error {
		return c.actor.Click(ctx, sel)
	})
}

func (c *call) typeInto(ctx context.Context, sel, text string, clear bool) error {
	return c.act(ctx, "type", func(ctx context.Context) error {
		return c.actor.Type(ctx, sel, text, clear)
	})
}

func (c *call) scroll(ctx context.Context, dir humanoid.ScrollDirection) (int, error) {
	var px int
	err := c.act(ctx, "scroll", func(ctx context.Context) error {
		var err error
		px, err = c.actor.Scroll(ctx, dir)
		return err
	})
	return px, err
}

// read pauses for a draw from the read row, as a person skims a page that
// just settled.
func (c *call) read(ctx context.Context) error {
	return c.actor.Pause(ctx, humanoid.ClassRead)
}

// resolve waits for any candidate of role to become visible, bounded by the
// element timeout.
func (c *call) resolve(ctx context.Context, role selectors.Role) (string, error) {
	cands := c.table.Candidates(role)
	if len(cands) == 0 {
		return "", fmt.Errorf("no selectors configured for role %q: %w", role, humanoid.ErrElementNotFound)
	}
	var found string
	limits := c.env.cfg.Limits()
	res, err := humanoid.WaitFor(ctx, c.env.clock, limits.ElementTimeout, limits.PollInterval, func(ctx context.Context) (bool, error) {
		vis, err := c.page.VisibleSelectors(ctx, cands)
		if err != nil {
			return false, err
		}
		sel, ok := c.table.Resolve(role, vis)
		found = sel
		return ok, nil
	})
	if err != nil {
		return "", err
	}
	if res == humanoid.WaitTimedOut {
		return "", fmt.Errorf("role %q after %v: %w", role, limits.ElementTimeout, humanoid.ErrElementNotFound)
	}
	return found, nil
}

// visibleRoles checks the candidates of roles once and returns the selector
// that matched for each visible role.
func (c *call) visibleRoles(ctx context.Context, roles ...selectors.Role) (map[selectors.Role]string, error) {
	var sels []string
	for _, role := range roles {
		sels = append(sels, c.table.Candidates(role)...)
	}
	vis, err := c.page.VisibleSelectors(ctx, sels)
	if err != nil {
		return nil, err
	}
	out := make(map[selectors.Role]string, len(roles))
	for _, role := range roles {
		if sel, ok := c.table.Resolve(role, vis); ok {
			out[role] = sel
		}
	}
	return out, nil
}

// pageState is the result of waiting for a page to settle.
type pageState struct {
	snap    detector.Snapshot
	problem *detector.Problem
	// anchor is the first anchor role found visible, if any.
	anchor   selectors.Role
	selector string
}

// awaitPage polls until an adverse state shows up or one of anchors becomes
// visible, bounded by the page timeout. A timeout is reported through the
// result, with the last snapshot taken.
func (c *call) awaitPage(ctx context.Context, anchors ...selectors.Role) (pageState, humanoid.WaitResult, error) {
	sels := c.det.Selectors()
	for _, role := range anchors {
		sels = append(sels, c.table.Candidates(role)...)
	}
	limits := c.env.cfg.Limits()

	var st pageState
	res, err := humanoid.WaitFor(ctx, c.env.clock, limits.PageTimeout, limits.PollInterval, func(ctx context.Context) (bool, error) {
		snap, err := c.det.Capture(ctx, c.page, sels)
		if err != nil {
			return false, err
		}
		st = pageState{snap: snap, problem: c.det.ClassifySnapshot(snap)}
		if st.problem != nil {
			return true, nil
		}
		for _, role := range anchors {
			if sel, ok := c.table.Resolve(role, snap.Visible); ok {
				st.anchor, st.selector = role, sel
				return true, nil
			}
		}
		return false, nil
	})
	return st, res, err
}

// document parses the current page markup.
func (c *call) document(ctx context.Context) (*goquery.Document, error) {
	markup, err := c.page.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page markup: %w", err)
	}
	return selectors.ParseDocument(markup)
}

// classify runs the full precedence check on the current page.
func (c *call) classify(ctx context.Context) (*detector.Problem, error) {
	return c.det.Classify(ctx, c.page)
}

// needsHuman attaches a viewport capture and the current location to p.
// A failed capture is logged; the outcome is still reported.
func (c *call) needsHuman(ctx context.Context, p *detector.Problem) Outcome {
	ref, err := c.env.evidence.Capture(ctx, c.page, "", c.tool+"-"+string(p.Reason))
	if err != nil {
		c.logger.Warn("Could not capture evidence.", zap.Error(err))
	}
	return c.needsHumanWith(ctx, p, ref)
}

// needsHumanWith reports p with an evidence file that was already captured.
func (c *call) needsHumanWith(ctx context.Context, p *detector.Problem, ref string) Outcome {
	if ref != "" {
		p.EvidenceRef = ref
	}
	url, err := c.page.Location(ctx)
	if err != nil {
		c.logger.Debug("Could not read location for outcome.", zap.Error(err))
	}
	c.logger.Info("Stopping for human intervention.",
		zap.String("reason", string(p.Reason)),
		zap.String("variant", p.Variant),
		zap.String("detail", p.Detail),
		zap.String("url", url))
	return NeedsHuman(p, url)
}

// problem builds a localized problem for a non-detector condition.
func (c *call) problem(reason detector.Reason, detail string) *detector.Problem {
	return c.det.Hints().Problem(reason, "", detail)
}

// fault converts an action error into an outcome. A visible adverse state
// wins over the raw error; cancellation is an Error.
func (c *call) fault(ctx context.Context, err error) Outcome {
	if isCancellation(ctx, err) {
		return Errorf("%s cancelled: %v", c.tool, err)
	}
	var p *detector.Problem
	if errors.As(err, &p) {
		return c.needsHuman(ctx, p)
	}
	if seen, cerr := c.classify(ctx); cerr == nil && seen != nil {
		seen.Detail = err.Error()
		return c.needsHuman(ctx, seen)
	}
	c.logger.Warn("Action failed.", zap.Error(err))
	return c.needsHuman(ctx, c.problem(classifyFault(err), err.Error()))
}

// settled turns a page wait into either a clean state or a terminal outcome.
// Timeouts are returned to the caller as ok=false with no outcome so each
// handler can decide what an absent anchor means.
func (c *call) settled(ctx context.Context, anchors ...selectors.Role) (pageState, bool, *Outcome) {
	st, res, err := c.awaitPage(ctx, anchors...)
	if err != nil {
		o := c.fault(ctx, err)
		return st, false, &o
	}
	if st.problem != nil {
		o := c.needsHuman(ctx, st.problem)
		return st, false, &o
	}
	return st, res == humanoid.WaitSatisfied, nil
}
