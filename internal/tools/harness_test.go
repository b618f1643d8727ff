package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/config"
	"github.com/xkilldash9x/linkmcp/internal/mocks"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
	"github.com/xkilldash9x/linkmcp/internal/tools"
)

const (
	globalNav  = "#global-nav"
	profileURL = "https://www.linkedin.com/in/grace-hopper"
	searchPath = "https://www.linkedin.com/search/results/people/"
)

var table = selectors.Default()

type harness struct {
	t        *testing.T
	cfg      *config.Config
	env      *tools.Env
	registry *tools.Registry
	page     *mocks.FakePage
	launcher *mocks.MockLauncher
	clock    *mocks.FakeClock
}

// newHarness builds an Env over a FakePage with default tables, a fake clock
// and a seeded random source. mutate may adjust the config first.
func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.EvidenceCfg.Dir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	h := &harness{
		t:        t,
		cfg:      cfg,
		page:     mocks.NewFakePage(),
		launcher: new(mocks.MockLauncher),
		clock:    mocks.NewFakeClock(),
		registry: tools.NewRegistry(),
	}
	h.launcher.On("Launch", mock.Anything).Return(h.page, nil).Maybe()

	env, err := tools.BuildWith(cfg, h.launcher, humanoid.NewLockedRand(42), h.clock, zaptest.NewLogger(t))
	require.NoError(t, err)
	h.env = env
	return h
}

func (h *harness) call(name string, args map[string]any) tools.Outcome {
	h.t.Helper()
	out := h.registry.Dispatch(context.Background(), h.env, name, args)
	require.NoError(h.t, out.Check(), "outcome must be well formed")
	return out
}

func (h *harness) assertNotLaunched() {
	h.t.Helper()
	h.launcher.AssertNotCalled(h.t, "Launch", mock.Anything)
}

// requireEvidence checks that ref names a file inside the evidence dir.
func (h *harness) requireEvidence(ref string) {
	h.t.Helper()
	require.NotEmpty(h.t, ref, "needs_human outcome should carry evidence")
	require.Equal(h.t, filepath.Clean(h.cfg.EvidenceCfg.Dir), filepath.Dir(ref))
	_, err := os.Stat(ref)
	require.NoError(h.t, err)
}

// slowReading gives the read row a range no other delay overlaps.
func slowReading(cfg *config.Config) {
	if cfg.HumanoidCfg.Delays == nil {
		cfg.HumanoidCfg.Delays = map[string]config.DelayRangeConfig{}
	}
	cfg.HumanoidCfg.Delays["read"] = config.DelayRangeConfig{Min: 90 * time.Second, Max: 91 * time.Second}
}

// readPauses counts sleeps that fall inside the scaled read range.
func (h *harness) readPauses() int {
	h.t.Helper()
	f := h.env.Scheduler().Stats().SpeedFactor
	lo := time.Duration(float64(90*time.Second) * f)
	hi := time.Duration(float64(91*time.Second) * f)
	n := 0
	for _, d := range h.clock.Sleeps() {
		if d >= lo && d <= hi {
			n++
		}
	}
	return n
}

func primary(role selectors.Role) string { return table.Primary(role) }

const searchResultsHTML = `<html><body><main>
<div class="search-results-container"><ul class="reusable-search__entity-result-list">
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a class="app-aware-link" href="https://www.linkedin.com/in/ada-lovelace?miniProfileUrn=abc"><span aria-hidden="true">Ada Lovelace</span><span class="visually-hidden">View Ada's profile</span></a></span>
  <div class="entity-result__primary-subtitle">Analyst at Engines Ltd</div>
  <div class="entity-result__secondary-subtitle">London</div>
</li>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a class="app-aware-link" href="/in/alan-turing/"><span aria-hidden="true">Alan Turing</span></a></span>
  <div class="entity-result__primary-subtitle">Mathematician</div>
</li>
<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><span aria-hidden="true">LinkedIn Member</span></span>
</li>
</ul></div></main></body></html>`

const profileHTML = `<html><body><main>
<section>
  <h1 class="text-heading-xlarge">Grace Hopper</h1>
  <div class="text-body-medium break-words">Rear Admiral, Compiler Pioneer</div>
  <span class="text-body-small inline t-black--light break-words">Arlington, Virginia</span>
  <div class="pv-top-card-v2-ctas"><span class="distance-badge"><span class="dist-value">2nd</span></span></div>
</section>
<section><div id="experience"></div>
  <ul><li class="artdeco-list__item"><div class="t-bold"><span aria-hidden="true">Computer Scientist</span></div>
      <span class="t-14 t-normal"><span aria-hidden="true">US Navy</span></span></li></ul>
</section>
</main></body></html>`

func searchPage(visible ...string) mocks.PageState {
	return mocks.PageState{
		Title:   "Search | LinkedIn",
		HTML:    searchResultsHTML,
		Text:    "Ada Lovelace Analyst at Engines Ltd London Alan Turing Mathematician",
		Visible: append([]string{globalNav, primary(selectors.SearchResultItem)}, visible...),
	}
}

func emptySearchPage(visible ...string) mocks.PageState {
	return mocks.PageState{
		Title:   "Search | LinkedIn",
		HTML:    `<html><body><main><div class="search-reusable-search-no-results">No results found</div></main></body></html>`,
		Text:    "No results found. Try shortening or rephrasing your search.",
		Visible: append([]string{globalNav}, visible...),
	}
}

// profilePage shows a profile with the given action bar selectors visible.
func profilePage(visible ...string) mocks.PageState {
	return mocks.PageState{
		Title:   "Grace Hopper | LinkedIn",
		HTML:    profileHTML,
		Text:    "Grace Hopper Rear Admiral, Compiler Pioneer Arlington, Virginia Computer Scientist US Navy",
		Visible: append([]string{globalNav, primary(selectors.ProfileName)}, visible...),
	}
}
