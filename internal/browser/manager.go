package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultLivenessTimeout = 5 * time.Second

// Handle is the live browser page owned by a Manager.
type Handle struct {
	ID         string
	Generation int
	CreatedAt  time.Time
	page       Page
}

// Page returns the driver for this handle.
func (h *Handle) Page() Page { return h.page }

// Manager owns at most one browser handle for the life of the process. A
// handle that fails the liveness check is discarded and replaced, never
// repaired.
type Manager struct {
	launcher        Launcher
	livenessTimeout time.Duration
	logger          *zap.Logger
	now             func() time.Time

	mu         sync.Mutex
	current    *Handle
	generation int
}

// NewManager creates a manager. No browser is started until Acquire.
func NewManager(launcher Launcher, livenessTimeout time.Duration, logger *zap.Logger) *Manager {
	if livenessTimeout <= 0 {
		livenessTimeout = defaultLivenessTimeout
	}
	return &Manager{
		launcher:        launcher,
		livenessTimeout: livenessTimeout,
		logger:          logger.Named("browser_manager"),
		now:             time.Now,
	}
}

// Acquire returns a live handle, launching a browser when there is none or
// when the current one does not answer the liveness check.
func (m *Manager) Acquire(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		err := m.alive(ctx, m.current.page)
		if err == nil {
			return m.current, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Warn("Browser handle failed liveness check, recreating.",
			zap.String("handle_id", m.current.ID),
			zap.Int("generation", m.current.Generation),
			zap.Error(err))
		m.discard(ctx)
	}

	page, err := m.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	m.generation++
	m.current = &Handle{
		ID:         uuid.NewString(),
		Generation: m.generation,
		CreatedAt:  m.now(),
		page:       page,
	}
	m.logger.Info("Browser handle ready.",
		zap.String("handle_id", m.current.ID),
		zap.Int("generation", m.current.Generation))
	return m.current, nil
}

// alive runs a trivial evaluation. Any failure means the page is dead.
func (m *Manager) alive(ctx context.Context, p Page) error {
	checkCtx, cancel := context.WithTimeout(ctx, m.livenessTimeout)
	defer cancel()
	var two int
	if err := p.Evaluate(checkCtx, "1+1", &two); err != nil {
		return err
	}
	if two != 2 {
		return fmt.Errorf("liveness check returned %d", two)
	}
	return nil
}

// discard closes the current handle best-effort. Caller holds mu.
func (m *Manager) discard(ctx context.Context) {
	h := m.current
	m.current = nil
	closeCtx, cancel := context.WithTimeout(Detach(ctx), m.livenessTimeout)
	defer cancel()
	if err := h.page.Close(closeCtx); err != nil {
		m.logger.Debug("Ignoring error while closing dead handle.", zap.String("handle_id", h.ID), zap.Error(err))
	}
}

// Close tears down the current handle. It is safe to call repeatedly and
// tolerates a browser that is already gone. A later Acquire launches anew.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	h := m.current
	m.current = nil
	if err := h.page.Close(ctx); err != nil {
		m.logger.Warn("Browser close reported an error.", zap.String("handle_id", h.ID), zap.Error(err))
	}
	m.logger.Info("Browser handle closed.", zap.String("handle_id", h.ID))
	return nil
}

// Current returns the handle without probing it, or nil.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Generation counts handles created so far.
func (m *Manager) Generation() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}
