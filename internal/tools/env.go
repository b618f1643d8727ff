package tools

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/config"
	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
	"github.com/xkilldash9x/linkmcp/internal/session"
)

// Deps are the collaborators an Env is assembled from. Tests substitute the
// launcher behind Manager, the clock and the random source.
type Deps struct {
	Config    config.Interface
	Manager   *browser.Manager
	Scheduler *session.Scheduler
	Detector  *detector.Detector
	Selectors *selectors.Table
	Evidence  *Evidence
	Profile   *humanoid.DelayProfile
	Rand      humanoid.Rand
	Clock     humanoid.Clock
	Logger    *zap.Logger
}

// Env is the shared state every handler runs against. Only one tool call
// uses it at a time; the dispatcher guarantees that.
type Env struct {
	cfg       config.Interface
	manager   *browser.Manager
	scheduler *session.Scheduler
	evidence  *Evidence
	budget    *rate.Limiter
	profile   *humanoid.DelayProfile
	hcfg      humanoid.Config
	rng       humanoid.Rand
	clock     humanoid.Clock
	logger    *zap.Logger
	// root is the unnamed logger handed to rebuilt collaborators.
	root *zap.Logger

	selectors atomic.Pointer[selectors.Table]
	detector  atomic.Pointer[detector.Detector]

	mu          sync.Mutex
	actor       *humanoid.Humanoid
	actorHandle string
}

// NewEnv validates and assembles deps.
func NewEnv(d Deps) (*Env, error) {
	switch {
	case d.Config == nil:
		return nil, fmt.Errorf("tools: config is required")
	case d.Manager == nil:
		return nil, fmt.Errorf("tools: browser manager is required")
	case d.Scheduler == nil:
		return nil, fmt.Errorf("tools: scheduler is required")
	case d.Detector == nil || d.Selectors == nil:
		return nil, fmt.Errorf("tools: detector and selector table are required")
	case d.Profile == nil || d.Rand == nil || d.Clock == nil:
		return nil, fmt.Errorf("tools: delay profile, random source and clock are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	evidence := d.Evidence
	if evidence == nil {
		evidence = NewEvidence(d.Config.Evidence(), logger)
	}

	e := &Env{
		cfg:       d.Config,
		manager:   d.Manager,
		scheduler: d.Scheduler,
		evidence:  evidence,
		budget:    newInvitationBudget(d.Config.Limits(), d.Clock.Now()),
		profile:   d.Profile,
		hcfg:      humanoid.ConfigFromSettings(d.Config),
		rng:       d.Rand,
		clock:     d.Clock,
		logger:    logger.Named("tools"),
		root:      logger,
	}
	e.selectors.Store(d.Selectors)
	e.detector.Store(d.Detector)
	return e, nil
}

// newInvitationBudget allows ConnectionsPerHour sends with the configured
// burst. A non-positive rate disables the budget.
func newInvitationBudget(lc config.LimitsConfig, now time.Time) *rate.Limiter {
	if lc.ConnectionsPerHour <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := lc.ConnectionBurst
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(lc.ConnectionsPerHour/3600), burst)
	// Start full at the injected clock's notion of now.
	lim.SetBurstAt(now, burst)
	return lim
}

// Selectors returns the active selector table.
func (e *Env) Selectors() *selectors.Table { return e.selectors.Load() }

// Detector returns the active problem detector.
func (e *Env) Detector() *detector.Detector { return e.detector.Load() }

// SwapTables installs new tables; nil arguments keep the current value.
func (e *Env) SwapTables(t *selectors.Table, d *detector.Detector) {
	if t != nil {
		e.selectors.Store(t)
	}
	if d != nil {
		e.detector.Store(d)
	}
}

// Scheduler exposes the session pacing state.
func (e *Env) Scheduler() *session.Scheduler { return e.scheduler }

// Manager exposes the browser lifecycle manager.
func (e *Env) Manager() *browser.Manager { return e.manager }

// Config returns the settings the Env was built from.
func (e *Env) Config() config.Interface { return e.cfg }

// budgetAvailable reports whether one invitation can be sent now without
// consuming it.
func (e *Env) budgetAvailable() bool {
	if e.budget.Limit() == rate.Inf {
		return true
	}
	return e.budget.TokensAt(e.clock.Now()) >= 1
}

// spendBudget consumes one invitation token.
func (e *Env) spendBudget() bool {
	return e.budget.AllowN(e.clock.Now(), 1)
}

// budgetRetryAfter estimates when the next token will be available.
func (e *Env) budgetRetryAfter() time.Duration {
	if e.budget.Limit() == rate.Inf || e.budget.Limit() == 0 {
		return 0
	}
	missing := 1 - e.budget.TokensAt(e.clock.Now())
	if missing <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(missing / float64(e.budget.Limit()) * float64(time.Second)))
}

// actorFor returns the humanoid bound to h, creating a fresh one when the
// handle changed so no pointer state leaks across browsers.
func (e *Env) actorFor(h *browser.Handle) *humanoid.Humanoid {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.actor == nil || e.actorHandle != h.ID {
		e.actor = humanoid.New(e.hcfg, e.profile, e.rng, e.clock, h.Page(), e.logger)
		e.actorHandle = h.ID
	}
	return e.actor
}
