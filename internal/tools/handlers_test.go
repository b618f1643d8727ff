package tools_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/config"
	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/mocks"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
	"github.com/xkilldash9x/linkmcp/internal/tools"
)

func TestSearchPeople_ReturnsResults(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(searchPath, searchPage())

	out := h.call(tools.ToolSearchPeople, map[string]any{"query": "compiler", "location": "London"})
	require.True(t, out.IsSuccess(), "outcome: %+v", out)

	data := out.Data.(tools.SearchData)
	want := []selectors.SearchResult{
		{Name: "Ada Lovelace", Headline: "Analyst at Engines Ltd", Location: "London", ProfileURL: "https://www.linkedin.com/in/ada-lovelace"},
		{Name: "Alan Turing", Headline: "Mathematician", ProfileURL: "https://www.linkedin.com/in/alan-turing"},
	}
	if diff := cmp.Diff(want, data.Results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, data.TotalResults)
	assert.Equal(t, 1, data.PagesVisited)

	navs := h.page.Navigations()
	require.Len(t, navs, 1)
	assert.Contains(t, navs[0], "keywords=compiler+London")
	assert.NotEmpty(t, h.page.WheelDeltas(), "results page should be scrolled before extraction")
}

func TestSearchPeople_ReadsBeforeExtracting(t *testing.T) {
	h := newHarness(t, slowReading)
	h.page.Route(searchPath, searchPage())

	out := h.call(tools.ToolSearchPeople, map[string]any{"query": "compiler"})
	require.True(t, out.IsSuccess(), "outcome: %+v", out)
	assert.Equal(t, 1, h.readPauses(), "one reading pause per settled results page")
}

func TestSearchPeople_LimitTruncates(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(searchPath, searchPage())

	out := h.call(tools.ToolSearchPeople, map[string]any{"query": "compiler", "limit": 1})
	require.True(t, out.IsSuccess())
	data := out.Data.(tools.SearchData)
	assert.Len(t, data.Results, 1)
	assert.Equal(t, 1, data.TotalResults)
}

func TestSearchPeople_PaginatesUntilNoNewResults(t *testing.T) {
	h := newHarness(t, nil)
	// Every page repeats the same two people, so page two adds nothing.
	h.page.Route(searchPath, searchPage())

	out := h.call(tools.ToolSearchPeople, map[string]any{"query": "compiler", "limit": 25})
	require.True(t, out.IsSuccess())
	data := out.Data.(tools.SearchData)
	assert.Equal(t, 2, data.TotalResults)
	assert.Equal(t, 2, data.PagesVisited)
	navs := h.page.Navigations()
	require.Len(t, navs, 2)
	assert.Contains(t, navs[1], "page=2")
}

func TestSearchPeople_ZeroResultsOnCleanPageIsSuccess(t *testing.T) {
	tests := map[string]mocks.PageState{
		"explicit empty state": emptySearchPage(primary(selectors.SearchNoResults)),
		"no containers at all": emptySearchPage(),
	}
	for name, state := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.page.Route(searchPath, state)

			out := h.call(tools.ToolSearchPeople, map[string]any{"query": "zzzz-nobody"})
			require.True(t, out.IsSuccess(), "outcome: %+v", out)
			data := out.Data.(tools.SearchData)
			assert.NotNil(t, data.Results)
			assert.Empty(t, data.Results)
			assert.Equal(t, 0, data.TotalResults)
		})
	}
}

func TestSearchPeople_LoginWallNeedsHuman(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(searchPath, mocks.PageState{
		URL:  "https://www.linkedin.com/authwall?trk=search",
		Text: "Join LinkedIn or sign in to see results",
	})

	out := h.call(tools.ToolSearchPeople, map[string]any{"query": "compiler"})
	require.True(t, out.IsNeedsHuman())
	assert.Equal(t, detector.ReasonLoginRequired, out.Reason)
	assert.NotEmpty(t, out.Hint)
	assert.Equal(t, "https://www.linkedin.com/authwall?trk=search", out.CurrentURL)
	h.requireEvidence(out.EvidenceRef)
}

func TestSearchPeople_ValidationHappensBeforeLaunch(t *testing.T) {
	tests := map[string]map[string]any{
		"missing query":   {},
		"blank query":     {"query": "   "},
		"limit too large": {"query": "x", "limit": 26},
		"limit zero":      {"query": "x", "limit": 0},
		"limit wrong":     {"query": "x", "limit": "ten"},
		"unknown field":   {"query": "x", "sort": "recent"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, nil)
			out := h.call(tools.ToolSearchPeople, args)
			assert.True(t, out.IsError(), "outcome: %+v", out)
			assert.Empty(t, out.EvidenceRef)
			h.assertNotLaunched()
		})
	}
}

func TestGetProfile_Extracts(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(profileURL, profilePage())

	out := h.call(tools.ToolGetProfile, map[string]any{"profile_url": profileURL + "/?trk=feed"})
	require.True(t, out.IsSuccess(), "outcome: %+v", out)
	data := out.Data.(tools.ProfileData)
	assert.Equal(t, "Grace Hopper", data.Name)
	assert.Equal(t, "Arlington, Virginia", data.Location)
	assert.Equal(t, profileURL, data.ProfileURL)
	assert.Equal(t, "2nd", data.ConnectionDegree)
	assert.Equal(t, []selectors.Position{{Title: "Computer Scientist", Subtitle: "US Navy"}}, data.Experience)
	assert.Equal(t, []string{profileURL}, h.page.Navigations())
}

func TestGetProfile_ReadsBeforeExtracting(t *testing.T) {
	h := newHarness(t, slowReading)
	h.page.Route(profileURL, profilePage())

	require.True(t, h.call(tools.ToolGetProfile, map[string]any{"profile_url": profileURL}).IsSuccess())
	assert.Equal(t, 1, h.readPauses())
	msf := humanoid.MinSpeedFactor
	assert.GreaterOrEqual(t, h.clock.Slept(), time.Duration(float64(90*time.Second)*msf))
}

func TestGetProfile_MissingAnchorIsUnexpectedUI(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(profileURL, mocks.PageState{Text: "Something changed", Visible: []string{globalNav}})

	out := h.call(tools.ToolGetProfile, map[string]any{"profile_url": profileURL})
	require.True(t, out.IsNeedsHuman())
	assert.Equal(t, detector.ReasonUnexpectedUI, out.Reason)
	h.requireEvidence(out.EvidenceRef)
}

func TestGetProfile_RejectsNonProfileURL(t *testing.T) {
	h := newHarness(t, nil)
	for _, u := range []string{"", "https://www.linkedin.com/company/acme", "/in/jane", "ftp://www.linkedin.com/in/jane"} {
		out := h.call(tools.ToolGetProfile, map[string]any{"profile_url": u})
		assert.True(t, out.IsError(), "url %q", u)
	}
	h.assertNotLaunched()
}

func TestSendConnection_MessageOverLimitRejectedBeforeNavigation(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(profileURL, profilePage(primary(selectors.ConnectButton)))

	out := h.call(tools.ToolSendConnection, map[string]any{
		"profile_url": profileURL,
		"message":     strings.Repeat("a", 301),
	})
	require.True(t, out.IsError(), "outcome: %+v", out)
	assert.Contains(t, out.Message, "301")
	assert.Empty(t, h.page.Navigations())
	h.assertNotLaunched()
}

func TestSendConnection_LimitCountsCharactersNotBytes(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.LimitsCfg.ConnectionsPerHour = 0 })
	h.page.Route(profileURL, profilePage(primary(selectors.PendingButton)))

	// 300 multi-byte characters are within the limit.
	out := h.call(tools.ToolSendConnection, map[string]any{
		"profile_url": profileURL,
		"message":     strings.Repeat("é", 300),
	})
	assert.True(t, out.IsSuccess(), "outcome: %+v", out)
}

func TestSendConnection_RateLimitAfterConnectNeverClicksSend(t *testing.T) {
	h := newHarness(t, nil)
	connect := primary(selectors.ConnectButton)
	send := primary(selectors.SendButton)
	h.page.Route(profileURL, profilePage(connect))
	h.page.OnClick(connect, func(p *mocks.FakePage) {
		p.SetVisible(primary(selectors.InviteModal), true)
		p.SetVisible(send, true)
		p.SetVisible(".ip-fuse-limit-alert", true)
		p.AppendText("You've reached the weekly invitation limit")
	})

	out := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL, "message": "Hello"})
	require.True(t, out.IsNeedsHuman(), "outcome: %+v", out)
	assert.Equal(t, detector.ReasonRateLimited, out.Reason)
	assert.Contains(t, out.Hint, "weekly invitation limit")
	assert.True(t, h.page.Clicked(connect))
	assert.False(t, h.page.Clicked(send), "send must never be clicked after a limit signal")
	assert.Empty(t, h.page.Typed(primary(selectors.NoteTextarea)))
	h.requireEvidence(out.EvidenceRef)
}

func TestSendConnection_CaptchaBeforeSendStopsFlow(t *testing.T) {
	h := newHarness(t, nil)
	connect := primary(selectors.ConnectButton)
	send := primary(selectors.SendButton)
	h.page.Route(profileURL, profilePage(connect))
	h.page.OnClick(connect, func(p *mocks.FakePage) {
		p.SetVisible(primary(selectors.InviteModal), true)
		p.SetVisible(send, true)
		p.SetVisible(`iframe[src*="recaptcha"]`, true)
	})

	out := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL})
	require.True(t, out.IsNeedsHuman())
	assert.Equal(t, detector.ReasonCaptcha, out.Reason)
	assert.False(t, h.page.Clicked(send))
}

func TestSendConnection_SendsWithNote(t *testing.T) {
	h := newHarness(t, nil)
	connect := primary(selectors.ConnectButton)
	addNote := primary(selectors.AddNoteButton)
	textarea := primary(selectors.NoteTextarea)
	send := primary(selectors.SendButton)

	h.page.Route(profileURL, profilePage(connect))
	h.page.OnClick(connect, func(p *mocks.FakePage) {
		p.SetVisible(primary(selectors.InviteModal), true)
		p.SetVisible(addNote, true)
		p.SetVisible(send, true)
	})
	h.page.OnClick(addNote, func(p *mocks.FakePage) { p.SetVisible(textarea, true) })
	h.page.OnClick(send, func(p *mocks.FakePage) {
		p.SetVisible(primary(selectors.InviteModal), false)
		p.SetVisible(primary(selectors.PendingButton), true)
	})

	note := "Hi Grace, I enjoyed your talk on compilers."
	out := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL, "message": note})
	require.True(t, out.IsSuccess(), "outcome: %+v", out)

	data := out.Data.(tools.ConnectData)
	assert.Equal(t, tools.ConnectionSent, data.Status)
	assert.True(t, data.NoteIncluded)
	assert.Equal(t, "button", data.Via)
	assert.Equal(t, note, h.page.Typed(textarea))
	assert.Equal(t, []string{connect, addNote, textarea, send}, h.page.Clicks())
}

func TestSendConnection_ViaMoreMenu(t *testing.T) {
	h := newHarness(t, nil)
	more := primary(selectors.MoreActionsButton)
	option := primary(selectors.MoreConnectOption)
	send := primary(selectors.SendButton)

	h.page.Route(profileURL, profilePage(more))
	h.page.OnClick(more, func(p *mocks.FakePage) { p.SetVisible(option, true) })
	h.page.OnClick(option, func(p *mocks.FakePage) {
		p.SetVisible(primary(selectors.InviteModal), true)
		p.SetVisible(send, true)
	})

	out := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL})
	require.True(t, out.IsSuccess(), "outcome: %+v", out)
	data := out.Data.(tools.ConnectData)
	assert.Equal(t, "more_menu", data.Via)
	assert.False(t, data.NoteIncluded)
	assert.Equal(t, []string{more, option, send}, h.page.Clicks())
}

func TestSendConnection_AlreadyPendingOrConnected(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		h := newHarness(t, nil)
		h.page.Route(profileURL, profilePage(primary(selectors.PendingButton)))
		out := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL})
		require.True(t, out.IsSuccess())
		assert.Equal(t, tools.ConnectionAlreadyPending, out.Data.(tools.ConnectData).Status)
		assert.Empty(t, h.page.Clicks())
	})
	t.Run("first degree", func(t *testing.T) {
		h := newHarness(t, nil)
		state := profilePage(primary(selectors.MessageButton))
		state.HTML = strings.Replace(state.HTML, ">2nd<", ">1st<", 1)
		h.page.Route(profileURL, state)
		out := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL})
		require.True(t, out.IsSuccess())
		assert.Equal(t, tools.ConnectionAlreadyConnected, out.Data.(tools.ConnectData).Status)
		assert.Empty(t, h.page.Clicks())
	})
}

func TestSendConnection_LocalBudgetExhausted(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.LimitsCfg.ConnectionsPerHour = 1
		c.LimitsCfg.ConnectionBurst = 1
	})
	connect := primary(selectors.ConnectButton)
	send := primary(selectors.SendButton)
	h.page.Route(profileURL, profilePage(connect))
	h.page.OnClick(connect, func(p *mocks.FakePage) {
		p.SetVisible(primary(selectors.InviteModal), true)
		p.SetVisible(send, true)
	})

	first := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL})
	require.True(t, first.IsSuccess(), "outcome: %+v", first)
	navsAfterFirst := len(h.page.Navigations())

	second := h.call(tools.ToolSendConnection, map[string]any{"profile_url": "https://www.linkedin.com/in/alan-turing"})
	require.True(t, second.IsNeedsHuman(), "outcome: %+v", second)
	assert.Equal(t, detector.ReasonRateLimited, second.Reason)
	assert.Contains(t, second.Hint, "local hourly invitation budget")
	assert.Len(t, h.page.Navigations(), navsAfterFirst, "an exhausted budget must not navigate")
}

func TestSendConnection_NoConnectControl(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route(profileURL, profilePage(primary(selectors.MessageButton)))

	out := h.call(tools.ToolSendConnection, map[string]any{"profile_url": profileURL})
	require.True(t, out.IsNeedsHuman())
	assert.Equal(t, detector.ReasonUnexpectedUI, out.Reason)
}

func TestNavigate(t *testing.T) {
	t.Run("clean page", func(t *testing.T) {
		h := newHarness(t, nil)
		h.page.Route("https://www.linkedin.com/feed", mocks.PageState{Title: "Feed | LinkedIn", Visible: []string{globalNav}})
		out := h.call(tools.ToolNavigate, map[string]any{"url": "https://www.linkedin.com/feed/"})
		require.True(t, out.IsSuccess())
		data := out.Data.(tools.PageData)
		assert.Equal(t, "https://www.linkedin.com/feed/", data.URL)
		assert.Equal(t, "Feed | LinkedIn", data.Title)
	})
	t.Run("captcha", func(t *testing.T) {
		h := newHarness(t, nil)
		h.page.Route("https://www.linkedin.com/checkpoint", mocks.PageState{Visible: []string{`iframe[src*="recaptcha"]`}})
		out := h.call(tools.ToolNavigate, map[string]any{"url": "https://www.linkedin.com/checkpoint/challenge"})
		require.True(t, out.IsNeedsHuman())
		assert.Equal(t, detector.ReasonCaptcha, out.Reason)
		assert.Contains(t, out.Hint, "reCAPTCHA")
		h.requireEvidence(out.EvidenceRef)
	})
	t.Run("relative url", func(t *testing.T) {
		h := newHarness(t, nil)
		out := h.call(tools.ToolNavigate, map[string]any{"url": "/feed"})
		assert.True(t, out.IsError())
		h.assertNotLaunched()
	})
}

func TestNavigate_FaultsAreClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want detector.Reason
	}{
		{"dns failure", errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), detector.ReasonNetworkError},
		{"generic failure", errors.New("frame detached"), detector.ReasonNavigationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.page.FailNavigation(tt.err)
			out := h.call(tools.ToolNavigate, map[string]any{"url": "https://www.linkedin.com/feed/"})
			require.True(t, out.IsNeedsHuman(), "outcome: %+v", out)
			assert.Equal(t, tt.want, out.Reason)
		})
	}
}

func TestClick(t *testing.T) {
	t.Run("by role", func(t *testing.T) {
		h := newHarness(t, nil)
		box := primary(selectors.SearchBox)
		h.page.Show(mocks.PageState{URL: "https://www.linkedin.com/feed/", Visible: []string{globalNav, box}})
		out := h.call(tools.ToolClick, map[string]any{"role": string(selectors.SearchBox)})
		require.True(t, out.IsSuccess(), "outcome: %+v", out)
		assert.Equal(t, box, out.Data.(tools.ClickData).Selector)
		assert.True(t, h.page.Clicked(box))
	})
	t.Run("missing element", func(t *testing.T) {
		h := newHarness(t, nil)
		h.page.Show(mocks.PageState{URL: "https://www.linkedin.com/feed/", Visible: []string{globalNav}})
		out := h.call(tools.ToolClick, map[string]any{"selector": "#does-not-exist"})
		require.True(t, out.IsNeedsHuman())
		assert.Equal(t, detector.ReasonElementNotFound, out.Reason)
		assert.Equal(t, "https://www.linkedin.com/feed/", out.CurrentURL)
	})
	t.Run("validation", func(t *testing.T) {
		h := newHarness(t, nil)
		for _, args := range []map[string]any{{}, {"selector": "a", "role": "search_box"}, {"role": "no_such_role"}} {
			assert.True(t, h.call(tools.ToolClick, args).IsError(), "args %v", args)
		}
		h.assertNotLaunched()
	})
}

func TestTypeText(t *testing.T) {
	h := newHarness(t, nil)
	box := primary(selectors.SearchBox)
	h.page.Show(mocks.PageState{URL: "https://www.linkedin.com/feed/", Visible: []string{globalNav, box}})

	out := h.call(tools.ToolTypeText, map[string]any{"selector": box, "text": "compilers"})
	require.True(t, out.IsSuccess(), "outcome: %+v", out)
	assert.Equal(t, 9, out.Data.(tools.TypeData).Characters)
	assert.Equal(t, "compilers", h.page.Typed(box))

	out = h.call(tools.ToolTypeText, map[string]any{"selector": box, "text": "COBOL", "clear": true})
	require.True(t, out.IsSuccess())
	assert.Equal(t, "COBOL", h.page.Typed(box))

	assert.True(t, h.call(tools.ToolTypeText, map[string]any{"selector": box}).IsError())
}

func TestScroll(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Show(mocks.PageState{URL: "https://www.linkedin.com/feed/", Visible: []string{globalNav}})

	out := h.call(tools.ToolScroll, map[string]any{"direction": "down", "times": 3})
	require.True(t, out.IsSuccess())
	data := out.Data.(tools.ScrollData)
	assert.Equal(t, 3, data.Times)
	assert.GreaterOrEqual(t, data.Pixels, 3*300)
	assert.LessOrEqual(t, data.Pixels, 3*700)
	for _, d := range h.page.WheelDeltas() {
		assert.Positive(t, d)
	}

	for _, args := range []map[string]any{{"direction": "left"}, {"times": 0}, {"times": 11}} {
		assert.True(t, h.call(tools.ToolScroll, args).IsError(), "args %v", args)
	}
}

func TestScreenshot(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Show(mocks.PageState{URL: "https://www.linkedin.com/feed/", Visible: []string{globalNav}})

	out := h.call(tools.ToolScreenshot, nil)
	require.True(t, out.IsSuccess(), "outcome: %+v", out)
	data := out.Data.(tools.ScreenshotData)
	h.requireEvidence(data.EvidenceRef)
	assert.Equal(t, "https://www.linkedin.com/feed/", data.URL)

	out = h.call(tools.ToolScreenshot, map[string]any{"selector": "#nope"})
	require.True(t, out.IsNeedsHuman())
	assert.Equal(t, detector.ReasonElementNotFound, out.Reason)
}

func TestScreenshot_AdverseStateNeedsHuman(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Show(mocks.PageState{
		URL:     "https://www.linkedin.com/checkpoint/challenge/x",
		Text:    "Let's do a quick security check",
		Visible: []string{globalNav, `iframe[src*="recaptcha"]`},
	})

	out := h.call(tools.ToolScreenshot, nil)
	require.True(t, out.IsNeedsHuman(), "outcome: %+v", out)
	assert.Equal(t, detector.ReasonCaptcha, out.Reason)
	assert.Equal(t, "https://www.linkedin.com/checkpoint/challenge/x", out.CurrentURL)
	h.requireEvidence(out.EvidenceRef)
	assert.Contains(t, out.EvidenceRef, "-screenshot-")
	assert.Len(t, h.page.Screenshots(), 1, "the requested capture doubles as evidence")
}

func TestSessionStatus(t *testing.T) {
	h := newHarness(t, nil)

	out := h.call(tools.ToolSessionStatus, nil)
	require.True(t, out.IsSuccess())
	before := out.Data.(tools.StatusData)
	assert.False(t, before.BrowserRunning)
	assert.Equal(t, 0, before.Generation)
	h.assertNotLaunched()

	h.page.Route("https://www.linkedin.com/feed", mocks.PageState{Visible: []string{globalNav}})
	require.True(t, h.call(tools.ToolNavigate, map[string]any{"url": "https://www.linkedin.com/feed/"}).IsSuccess())

	after := h.call(tools.ToolSessionStatus, map[string]any{}).Data.(tools.StatusData)
	assert.True(t, after.BrowserRunning)
	assert.Equal(t, 1, after.Generation)
	assert.Equal(t, 1, after.Session.ActionsCount)
	assert.InDelta(t, 3.0, after.InvitationTokens, 0.01)
}

func TestDeadHandleIsReplacedBetweenCalls(t *testing.T) {
	h := newHarness(t, nil)
	h.page.Route("https://www.linkedin.com/feed", mocks.PageState{Visible: []string{globalNav}})
	require.True(t, h.call(tools.ToolNavigate, map[string]any{"url": "https://www.linkedin.com/feed/"}).IsSuccess())
	firstID := h.env.Manager().Current().ID

	h.page.Kill()
	fresh := mocks.NewFakePage()
	fresh.Route("https://www.linkedin.com/feed", mocks.PageState{Visible: []string{globalNav}})
	h.launcher.ExpectedCalls = nil
	h.launcher.On("Launch", mock.Anything).Return(fresh, nil).Once()

	out := h.call(tools.ToolNavigate, map[string]any{"url": "https://www.linkedin.com/feed/"})
	require.True(t, out.IsSuccess(), "outcome: %+v", out)
	assert.NotEqual(t, firstID, h.env.Manager().Current().ID)
	assert.Equal(t, 2, h.env.Manager().Generation())
	assert.Len(t, fresh.Navigations(), 1)
}

func TestLaunchFailureIsError(t *testing.T) {
	h := newHarness(t, nil)
	h.launcher.ExpectedCalls = nil
	h.launcher.On("Launch", mock.Anything).Return(nil, errors.New("chrome not found"))

	out := h.call(tools.ToolNavigate, map[string]any{"url": "https://www.linkedin.com/feed/"})
	require.True(t, out.IsError())
	assert.Contains(t, out.Message, "chrome not found")
	assert.Empty(t, out.EvidenceRef)
}
