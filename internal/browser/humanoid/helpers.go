// internal/browser/humanoid/helpers.go
package humanoid

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// ErrElementNotFound is returned when a selector matches no visible element
// within the bounded wait.
var ErrElementNotFound = errors.New("element not found")

// boxToCenter averages the four vertices of the element quad.
func boxToCenter(geo *ElementGeometry) (Vector2D, bool) {
	if geo == nil || len(geo.Vertices) < 8 {
		return Vector2D{}, false
	}
	x := (geo.Vertices[0] + geo.Vertices[2] + geo.Vertices[4] + geo.Vertices[6]) / 4
	y := (geo.Vertices[1] + geo.Vertices[3] + geo.Vertices[5] + geo.Vertices[7]) / 4
	return Vector2D{X: x, Y: y}, true
}

// awaitGeometry waits up to ElementTimeout for selector to resolve to a
// visible, non-empty box. Assumes the lock is held.
func (h *Humanoid) awaitGeometry(ctx context.Context, selector string) (*ElementGeometry, error) {
	var geo *ElementGeometry
	res, err := WaitFor(ctx, h.clock, h.cfg.ElementTimeout, h.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		g, err := h.executor.GetElementGeometry(ctx, selector)
		if err != nil {
			if errors.Is(err, ErrElementNotFound) {
				return false, nil
			}
			return false, err
		}
		if g == nil || len(g.Vertices) < 8 || g.Width <= 0 || g.Height <= 0 {
			return false, nil
		}
		geo = g
		return true, nil
	})
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("humanoid: geometry retrieval failed for '%s': %w", selector, err)
	case res == WaitTimedOut:
		h.logger.Debug("Element did not appear within bound.",
			zap.String("selector", selector),
			zap.Duration("timeout", h.cfg.ElementTimeout))
		return nil, fmt.Errorf("humanoid: '%s' after %v: %w", selector, h.cfg.ElementTimeout, ErrElementNotFound)
	}
	return geo, nil
}

// calculateTargetPoint picks a point near the centre of geo, normally
// distributed and clamped to the inner 90% of the box.
func (h *Humanoid) calculateTargetPoint(geo *ElementGeometry) Vector2D {
	center, ok := boxToCenter(geo)
	if !ok {
		return Vector2D{}
	}
	width, height := float64(geo.Width), float64(geo.Height)
	effW, effH := width*0.9, height*0.9

	x := center.X + h.rng.NormFloat64()*effW/6.0
	y := center.Y + h.rng.NormFloat64()*effH/6.0

	x = math.Max(center.X-effW/2, math.Min(center.X+effW/2, x))
	y = math.Max(center.Y-effH/2, math.Min(center.Y+effH/2, y))
	return Vector2D{X: x, Y: y}
}
