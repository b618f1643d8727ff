// internal/browser/humanoid/trajectory.go
package humanoid

import (
	"context"
	"math"

	"go.uber.org/zap"
)

// computeEaseInOutCubic gives the pointer an accelerate/decelerate profile.
func computeEaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

// generateIdealPath samples a cubic Bezier from start to end with two
// randomly perturbed control points. It returns numSteps points after start;
// the last one is exactly end.
func (h *Humanoid) generateIdealPath(start, end Vector2D, numSteps int) []Vector2D {
	if numSteps < 1 {
		numSteps = 1
	}
	p0, p3 := start, end
	mainVec := end.Sub(start)
	dist := mainVec.Mag()
	normal := mainVec.Normalize().Perp()

	// Lateral spread grows with distance; short hops still wobble a little.
	spread := math.Max(dist*0.25, 6.0)
	p1 := start.Add(mainVec.Mul(0.2 + 0.2*h.rng.Float64())).
		Add(normal.Mul((h.rng.Float64()*2 - 1) * spread))
	p2 := start.Add(mainVec.Mul(0.6 + 0.2*h.rng.Float64())).
		Add(normal.Mul((h.rng.Float64()*2 - 1) * spread))

	path := make([]Vector2D, numSteps)
	for i := 1; i <= numSteps; i++ {
		t := computeEaseInOutCubic(float64(i) / float64(numSteps))
		omt := 1.0 - t
		omt2 := omt * omt
		t2 := t * t
		path[i-1] = p0.Mul(omt2 * omt).
			Add(p1.Mul(3 * omt2 * t)).
			Add(p2.Mul(3 * omt * t2)).
			Add(p3.Mul(t2 * t))
	}
	path[numSteps-1] = end
	return path
}

// simulateTrajectory dispatches one mouseMoved event per path point with a
// pointer_step pause between them. Assumes the lock is held.
func (h *Humanoid) simulateTrajectory(ctx context.Context, path []Vector2D) error {
	for _, p := range path {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := MouseEventData{Type: MouseMove, X: p.X, Y: p.Y, Button: ButtonNone}
		if err := h.executor.DispatchMouseEvent(ctx, ev); err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("Failed to dispatch mouse move event", zap.Error(err))
			}
			return err
		}
		h.currentPos = p
		h.hasPos = true
		if err := h.pause(ctx, ClassPointerStep); err != nil {
			return err
		}
	}
	return nil
}
