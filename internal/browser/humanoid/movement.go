// internal/browser/humanoid/movement.go
package humanoid

import (
	"context"
	"fmt"
)

// MoveTo moves the pointer to target along a humanized curve. The first move
// of a page starts from a random point inside the viewport.
func (h *Humanoid) MoveTo(ctx context.Context, target Vector2D) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.moveTo(ctx, target)
}

func (h *Humanoid) moveTo(ctx context.Context, target Vector2D) error {
	start := h.currentPos
	if !h.hasPos {
		start = Vector2D{
			X: h.rng.Float64() * h.cfg.ViewportWidth,
			Y: h.rng.Float64() * h.cfg.ViewportHeight,
		}
	}
	steps := IntBetween(h.rng, h.cfg.MinPathSteps, h.cfg.MaxPathSteps)
	path := h.generateIdealPath(start, target, steps)
	if err := h.simulateTrajectory(ctx, path); err != nil {
		return fmt.Errorf("humanoid: pointer move failed: %w", err)
	}
	return nil
}
