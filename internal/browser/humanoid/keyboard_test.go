// internal/browser/humanoid/keyboard_test.go
package humanoid

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/linkmcp/internal/config"
)

func TestType_OneKeystrokePerRune(t *testing.T) {
	exec := newMockExecutor()
	h, _ := newTestHumanoid(t, exec, 11)

	text := "Hi Zoë, let's connect"
	require.NoError(t, h.Type(context.Background(), "textarea", text, false))

	assert.Equal(t, text, strings.Join(exec.sentKeys, ""))
	assert.Len(t, exec.sentKeys, len([]rune(text)))
	assert.Len(t, exec.eventsOfType(MousePress), 1, "typing starts with a click into the field")
	assert.Empty(t, exec.structuredKeys)
}

func TestType_ClearsField(t *testing.T) {
	exec := newMockExecutor()
	h, _ := newTestHumanoid(t, exec, 12)

	require.NoError(t, h.Type(context.Background(), "input", "ok", true))
	require.Len(t, exec.structuredKeys, 1)
	assert.Equal(t, KeyEventData{Key: "a", Modifiers: ModCtrl}, exec.structuredKeys[0])
	assert.Equal(t, []string{string(KeyBackspace), "o", "k"}, exec.sentKeys)
}

func TestType_ClearsFieldWithCmdOnMac(t *testing.T) {
	exec := newMockExecutor()
	profile, err := NewDelayProfile(DefaultDelays(), 1.0)
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Platform = "MacIntel"
	h := New(cfg, profile, NewLockedRand(14), newFakeClock(), exec, zaptest.NewLogger(t))

	require.NoError(t, h.Type(context.Background(), "input", "ok", true))
	require.Len(t, exec.structuredKeys, 1)
	assert.Equal(t, KeyEventData{Key: "a", Modifiers: ModMeta}, exec.structuredKeys[0])
	assert.Equal(t, []string{string(KeyBackspace), "o", "k"}, exec.sentKeys)
}

func TestConfigFromSettings_PlatformFromUserAgent(t *testing.T) {
	cfg := config.NewDefaultConfig()
	assert.Equal(t, "Win32", ConfigFromSettings(cfg).Platform)

	cfg.BrowserCfg.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	assert.Equal(t, "MacIntel", ConfigFromSettings(cfg).Platform)
}

func TestType_ThinkingPausesAreRare(t *testing.T) {
	exec := newMockExecutor()
	h, clock := newTestHumanoid(t, exec, 13)

	text := strings.Repeat("a", 2000)
	require.NoError(t, h.Type(context.Background(), "input", text, false))

	thinking := h.profile.Range(ClassThinking)
	typing := h.profile.Range(ClassType)
	pauses := 0
	for _, d := range clock.recorded() {
		// The two ranges do not overlap at factor 1.
		if d >= thinking.Min && d > typing.Max {
			pauses++
		}
	}
	ratio := float64(pauses) / float64(len(text))
	assert.InDelta(t, 0.05, ratio, 0.025)
}
