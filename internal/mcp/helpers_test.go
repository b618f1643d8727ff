package mcp

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/config"
	"github.com/xkilldash9x/linkmcp/internal/mocks"
	"github.com/xkilldash9x/linkmcp/internal/tools"
)

const feedURL = "https://www.linkedin.com/feed/"

type fixture struct {
	dispatcher *Dispatcher
	registry   *tools.Registry
	page       *mocks.FakePage
	launcher   *mocks.MockLauncher
}

// newFixture wires a dispatcher over a fake browser whose feed page is clean.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.EvidenceCfg.Dir = t.TempDir()

	page := mocks.NewFakePage()
	page.Route("https://www.linkedin.com/feed", mocks.PageState{Title: "Feed | LinkedIn", Visible: []string{"#global-nav"}})
	launcher := new(mocks.MockLauncher)
	launcher.On("Launch", mock.Anything).Return(page, nil).Maybe()

	logger := zaptest.NewLogger(t)
	env, err := tools.BuildWith(cfg, launcher, humanoid.NewLockedRand(7), mocks.NewFakeClock(), logger)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	return &fixture{
		dispatcher: NewDispatcher(registry, env, nil, logger),
		registry:   registry,
		page:       page,
		launcher:   launcher,
	}
}

// gate is a test tool that holds the browser until released.
type gate struct {
	started  chan struct{}
	release  chan struct{}
	active   atomic.Int32
	maxSeen  atomic.Int32
	finished atomic.Int32
}

func newGate() *gate {
	return &gate{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gate) tool(name string) tools.Tool {
	return tools.Tool{
		Name:        name,
		Description: "Blocks until released or cancelled.",
		InputSchema: map[string]any{"type": "object"},
		Handler: func(ctx context.Context, _ *tools.Env, _ map[string]any) tools.Outcome {
			n := g.active.Add(1)
			defer g.active.Add(-1)
			for {
				seen := g.maxSeen.Load()
				if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
					break
				}
			}
			g.started <- struct{}{}
			defer g.finished.Add(1)
			select {
			case <-g.release:
				return tools.Success(map[string]any{"released": true})
			case <-ctx.Done():
				return tools.Errorf("gate: %v", ctx.Err())
			}
		},
	}
}

func mockCaptchaPage() mocks.PageState {
	return mocks.PageState{Title: "Security Verification | LinkedIn", Visible: []string{`iframe[src*="recaptcha"]`}}
}
