// internal/browser/humanoid/timing.go
package humanoid

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ActionClass names a row of the delay profile table.
type ActionClass string

const (
	// ClassClick is the hesitation between reaching a target and pressing.
	ClassClick          ActionClass = "click"
	ClassClickHold      ActionClass = "click_hold"
	ClassPostClick      ActionClass = "post_click"
	ClassType           ActionClass = "type"
	ClassThinking       ActionClass = "thinking"
	ClassScrollStep     ActionClass = "scroll_step"
	ClassScrollSettle   ActionClass = "scroll_settle"
	ClassRead           ActionClass = "read"
	ClassBetweenActions ActionClass = "between_actions"
	ClassPointerStep    ActionClass = "pointer_step"
)

// AllClasses lists every class the executor and scheduler draw from.
var AllClasses = []ActionClass{
	ClassClick, ClassClickHold, ClassPostClick, ClassType, ClassThinking,
	ClassScrollStep, ClassScrollSettle, ClassRead, ClassBetweenActions, ClassPointerStep,
}

// Bounds of the per-run speed factor.
const (
	MinSpeedFactor = 0.7
	MaxSpeedFactor = 1.3
)

// DelayRange is an inclusive-exclusive [Min, Max) duration range.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Rand is the random source used for every randomized decision. *rand.Rand
// satisfies it; tests can supply deterministic sequences.
type Rand interface {
	Float64() float64
	Intn(n int) int
	NormFloat64() float64
}

// lockedRand serializes access to a *rand.Rand shared by the scheduler and
// the executor.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLockedRand returns a goroutine-safe Rand seeded with seed.
func NewLockedRand(seed int64) Rand {
	return &lockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Intn(n)
}

func (l *lockedRand) NormFloat64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.NormFloat64()
}

// Clock abstracts wall time and cooperative sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DrawSpeedFactor returns a per-run factor uniform in [0.7, 1.3].
func DrawSpeedFactor(r Rand) float64 {
	return DrawSpeedFactorBetween(r, MinSpeedFactor, MaxSpeedFactor)
}

// DrawSpeedFactorBetween draws uniformly in [lo, hi] after clamping both bounds
// to [0.7, 1.3].
func DrawSpeedFactorBetween(r Rand, lo, hi float64) float64 {
	lo = clampFloat(lo, MinSpeedFactor, MaxSpeedFactor)
	hi = clampFloat(hi, MinSpeedFactor, MaxSpeedFactor)
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + r.Float64()*(hi-lo)
}

// DelayProfile is the scaled, immutable delay table for one session.
type DelayProfile struct {
	factor float64
	ranges map[ActionClass]DelayRange
}

// NewDelayProfile scales every base range by factor once. The result is
// never mutated afterwards.
func NewDelayProfile(base map[ActionClass]DelayRange, factor float64) (*DelayProfile, error) {
	if factor < MinSpeedFactor || factor > MaxSpeedFactor {
		return nil, fmt.Errorf("humanoid: speed factor %.3f outside [%.1f, %.1f]", factor, MinSpeedFactor, MaxSpeedFactor)
	}
	scaled := make(map[ActionClass]DelayRange, len(base))
	for class, r := range base {
		if r.Min < 0 || r.Max < r.Min {
			return nil, fmt.Errorf("humanoid: invalid delay range for %q: [%v, %v]", class, r.Min, r.Max)
		}
		scaled[class] = DelayRange{
			Min: time.Duration(float64(r.Min) * factor),
			Max: time.Duration(float64(r.Max) * factor),
		}
	}
	return &DelayProfile{factor: factor, ranges: scaled}, nil
}

// Factor returns the session speed factor baked into the profile.
func (p *DelayProfile) Factor() float64 { return p.factor }

// Range returns the scaled range for class, or the zero range when unknown.
func (p *DelayProfile) Range(class ActionClass) DelayRange {
	return p.ranges[class]
}

// Draw returns a duration uniform in the scaled range of class.
func (p *DelayProfile) Draw(r Rand, class ActionClass) time.Duration {
	rg, ok := p.ranges[class]
	if !ok {
		return 0
	}
	span := rg.Max - rg.Min
	if span <= 0 {
		return rg.Min
	}
	return rg.Min + time.Duration(r.Float64()*float64(span))
}

// DrawBetween draws a duration uniform in [lo, hi) without scaling. Used for
// session-level ranges such as rest intervals.
func DrawBetween(r Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Float64()*float64(hi-lo))
}

// IntBetween returns an int uniform in [lo, hi].
func IntBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
