// internal/browser/humanoid/keyboard.go
package humanoid

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/linkmcp/internal/browser/stealth"
)

// Type clicks into selector, optionally clears it, then types text one rune
// at a time with per-character delays and occasional thinking pauses.
func (h *Humanoid) Type(ctx context.Context, selector, text string, clear bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.click(ctx, selector); err != nil {
		return err
	}
	if clear {
		if err := h.clearField(ctx); err != nil {
			return fmt.Errorf("humanoid: clearing '%s' failed: %w", selector, err)
		}
	}

	for _, r := range text {
		if err := h.executor.SendKeys(ctx, string(r)); err != nil {
			return fmt.Errorf("humanoid: typing into '%s' failed: %w", selector, err)
		}
		if err := h.pause(ctx, ClassType); err != nil {
			return err
		}
		if h.rng.Float64() < h.cfg.ThinkingProbability {
			if err := h.pause(ctx, ClassThinking); err != nil {
				return err
			}
		}
	}
	return nil
}

// clearField selects everything in the focused field and deletes it.
func (h *Humanoid) clearField(ctx context.Context) error {
	if err := h.executor.DispatchStructuredKey(ctx, KeyEventData{Key: "a", Modifiers: h.selectAllModifier()}); err != nil {
		return err
	}
	if err := h.pause(ctx, ClassType); err != nil {
		return err
	}
	return h.executor.SendKeys(ctx, string(KeyBackspace))
}

// selectAllModifier is Cmd on macOS and Ctrl elsewhere.
func (h *Humanoid) selectAllModifier() KeyModifier {
	if stealth.IsMac(h.cfg.Platform) {
		return ModMeta
	}
	return ModCtrl
}
