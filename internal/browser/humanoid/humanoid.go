// internal/browser/humanoid/humanoid.go
package humanoid

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Humanoid turns high-level intents (click this, type that) into paced,
// randomized low-level input events. It never retries: a failed primitive
// returns its error to the caller.
type Humanoid struct {
	// mu serializes primitives; pointer state is shared between them.
	mu       sync.Mutex
	cfg      Config
	profile  *DelayProfile
	rng      Rand
	clock    Clock
	executor Executor
	logger   *zap.Logger

	currentPos Vector2D
	hasPos     bool
}

// New creates a Humanoid bound to one executor (one page).
func New(cfg Config, profile *DelayProfile, rng Rand, clock Clock, executor Executor, logger *zap.Logger) *Humanoid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Humanoid{
		cfg:      cfg,
		profile:  profile,
		rng:      rng,
		clock:    clock,
		executor: executor,
		logger:   logger.Named("humanoid"),
	}
}

// Position returns the last pointer position and whether one is known.
func (h *Humanoid) Position() (Vector2D, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentPos, h.hasPos
}

// Pause sleeps for a draw from class. Exposed for callers that need a
// reading pause between primitives.
func (h *Humanoid) Pause(ctx context.Context, class ActionClass) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pause(ctx, class)
}

// pause assumes the lock is held.
func (h *Humanoid) pause(ctx context.Context, class ActionClass) error {
	return h.clock.Sleep(ctx, h.profile.Draw(h.rng, class))
}
