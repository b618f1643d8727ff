// internal/browser/humanoid/scrolling.go
package humanoid

import (
	"context"
	"fmt"
)

// Scroll performs one logical scroll: a random total distance split into a
// random number of wheel sub-steps, followed by a settle pause. It returns
// the total distance in pixels.
func (h *Humanoid) Scroll(ctx context.Context, direction ScrollDirection) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := IntBetween(h.rng, h.cfg.ScrollMinDistance, h.cfg.ScrollMaxDistance)
	steps := IntBetween(h.rng, h.cfg.ScrollMinSteps, h.cfg.ScrollMaxSteps)
	deltas := h.splitDistance(total, steps)

	sign := 1.0
	if direction == ScrollUp {
		sign = -1.0
	}
	pos := h.currentPos
	if !h.hasPos {
		pos = Vector2D{X: h.cfg.ViewportWidth / 2, Y: h.cfg.ViewportHeight / 2}
	}

	for i, d := range deltas {
		ev := MouseEventData{Type: MouseWheel, X: pos.X, Y: pos.Y, Button: ButtonNone, DeltaY: sign * float64(d)}
		if err := h.executor.DispatchMouseEvent(ctx, ev); err != nil {
			return 0, fmt.Errorf("humanoid: scroll step %d failed: %w", i+1, err)
		}
		if i < len(deltas)-1 {
			if err := h.pause(ctx, ClassScrollStep); err != nil {
				return 0, err
			}
		}
	}
	if err := h.pause(ctx, ClassScrollSettle); err != nil {
		return 0, err
	}
	return total, nil
}

// splitDistance divides total into steps positive integer parts with random
// weights. The parts always sum to total.
func (h *Humanoid) splitDistance(total, steps int) []int {
	if steps < 1 {
		steps = 1
	}
	if steps > total {
		steps = total
	}
	weights := make([]float64, steps)
	var sum float64
	for i := range weights {
		weights[i] = 0.5 + h.rng.Float64()
		sum += weights[i]
	}

	parts := make([]int, steps)
	assigned := 0
	for i := 0; i < steps-1; i++ {
		p := int(float64(total) * weights[i] / sum)
		if p < 1 {
			p = 1
		}
		// Leave at least one pixel for every remaining step.
		if limit := total - assigned - (steps - 1 - i); p > limit {
			p = limit
		}
		parts[i] = p
		assigned += p
	}
	parts[steps-1] = total - assigned
	return parts
}
