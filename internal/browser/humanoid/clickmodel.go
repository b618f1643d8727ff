// internal/browser/humanoid/clickmodel.go
package humanoid

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Click locates selector (bounded wait), moves to a jittered interior point,
// hesitates, presses, holds, releases and lets the page settle.
func (h *Humanoid) Click(ctx context.Context, selector string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.click(ctx, selector)
}

func (h *Humanoid) click(ctx context.Context, selector string) error {
	geo, err := h.awaitGeometry(ctx, selector)
	if err != nil {
		return err
	}
	target := h.calculateTargetPoint(geo)

	if err := h.moveTo(ctx, target); err != nil {
		return err
	}
	if err := h.pause(ctx, ClassClick); err != nil {
		return err
	}

	press := MouseEventData{
		Type:       MousePress,
		X:          target.X,
		Y:          target.Y,
		Button:     ButtonLeft,
		Buttons:    1,
		ClickCount: 1,
	}
	if err := h.executor.DispatchMouseEvent(ctx, press); err != nil {
		return fmt.Errorf("humanoid: mouse press on '%s' failed: %w", selector, err)
	}

	holdErr := h.pause(ctx, ClassClickHold)

	release := press
	release.Type = MouseRelease
	release.Buttons = 0
	releaseCtx := ctx
	if holdErr != nil {
		// Never leave the button held down on the page.
		releaseCtx = context.Background()
	}
	if err := h.executor.DispatchMouseEvent(releaseCtx, release); err != nil {
		h.logger.Warn("Mouse release failed", zap.String("selector", selector), zap.Error(err))
		return fmt.Errorf("humanoid: mouse release on '%s' failed: %w", selector, err)
	}
	if holdErr != nil {
		return holdErr
	}

	return h.pause(ctx, ClassPostClick)
}
