package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/mocks"
	"github.com/xkilldash9x/linkmcp/internal/tools"
)

func TestAwaitLogin_AlreadySignedIn(t *testing.T) {
	h := newHarness(t, nil)
	// A signed-in profile is redirected straight to the feed.
	h.page.Route(h.cfg.BrowserCfg.LoginURL, mocks.PageState{URL: "https://www.linkedin.com/feed/", Visible: []string{globalNav}})

	var waited []detector.Reason
	url, err := h.env.AwaitLogin(context.Background(), time.Minute, func(p *detector.Problem) { waited = append(waited, p.Reason) })
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/feed/", url)
	assert.Empty(t, waited)
	assert.Equal(t, []string{h.cfg.BrowserCfg.LoginURL}, h.page.Navigations())
}

func TestAwaitLogin_TimesOut(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(h.cfg.BrowserCfg.LoginURL, mocks.PageState{Title: "LinkedIn Login", Text: "Welcome back"})

	var waited []detector.Reason
	_, err := h.env.AwaitLogin(context.Background(), 10*time.Second, func(p *detector.Problem) { waited = append(waited, p.Reason) })
	require.ErrorIs(t, err, tools.ErrLoginTimeout)
	assert.Contains(t, err.Error(), string(detector.ReasonLoginRequired))
	assert.Equal(t, []detector.Reason{detector.ReasonLoginRequired}, waited, "a repeated state is reported once")
	assert.GreaterOrEqual(t, h.clock.Slept(), 10*time.Second)
}

func TestAwaitLogin_Cancelled(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.env.AwaitLogin(ctx, time.Minute, nil)
	require.Error(t, err)
}
