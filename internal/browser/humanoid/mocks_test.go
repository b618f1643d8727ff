// internal/browser/humanoid/mocks_test.go
package humanoid

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// mockExecutor records every event the Humanoid dispatches.
type mockExecutor struct {
	mu               sync.Mutex
	dispatchedEvents []MouseEventData
	sentKeys         []string
	structuredKeys   []KeyEventData
	geometryCalls    int

	// Function overrides; nil means default behavior.
	MockGetElementGeometry func(ctx context.Context, selector string) (*ElementGeometry, error)
	MockDispatchMouseEvent func(ctx context.Context, data MouseEventData) error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{}
}

func (m *mockExecutor) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	m.mu.Lock()
	m.dispatchedEvents = append(m.dispatchedEvents, data)
	m.mu.Unlock()
	if m.MockDispatchMouseEvent != nil {
		return m.MockDispatchMouseEvent(ctx, data)
	}
	return ctx.Err()
}

func (m *mockExecutor) SendKeys(ctx context.Context, keys string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentKeys = append(m.sentKeys, keys)
	return ctx.Err()
}

func (m *mockExecutor) DispatchStructuredKey(ctx context.Context, data KeyEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.structuredKeys = append(m.structuredKeys, data)
	return ctx.Err()
}

func (m *mockExecutor) GetElementGeometry(ctx context.Context, selector string) (*ElementGeometry, error) {
	m.mu.Lock()
	m.geometryCalls++
	m.mu.Unlock()
	if m.MockGetElementGeometry != nil {
		return m.MockGetElementGeometry(ctx, selector)
	}
	return boxGeometry(100, 200, 120, 40), nil
}

func (m *mockExecutor) eventsOfType(t MouseEventType) []MouseEventData {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MouseEventData
	for _, ev := range m.dispatchedEvents {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// boxGeometry builds an axis-aligned quad with its top-left corner at (x, y).
func boxGeometry(x, y float64, w, h int64) *ElementGeometry {
	fw, fh := float64(w), float64(h)
	return &ElementGeometry{
		Vertices: []float64{x, y, x + fw, y, x + fw, y + fh, x, y + fh},
		Width:    w,
		Height:   h,
		TagName:  "BUTTON",
	}
}

// fakeClock advances virtual time on Sleep and records every sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// newTestHumanoid builds a Humanoid with a seeded source, the default delay
// table at speed factor 1 and a fake clock.
func newTestHumanoid(t *testing.T, exec Executor, seed int64) (*Humanoid, *fakeClock) {
	t.Helper()
	profile, err := NewDelayProfile(DefaultDelays(), 1.0)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	clock := newFakeClock()
	return New(DefaultConfig(), profile, NewLockedRand(seed), clock, exec, zaptest.NewLogger(t)), clock
}
