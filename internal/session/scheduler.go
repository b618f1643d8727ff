// Package session paces every externally observable browser action so the
// automation keeps a human rhythm across a whole process lifetime.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/config"
)

// Config holds the scheduler's pacing rules.
type Config struct {
	MinActionGap    time.Duration
	RestIntervalMin time.Duration
	RestIntervalMax time.Duration
	RestDurationMin time.Duration
	RestDurationMax time.Duration
}

// ConfigFromSettings copies the session section of the application config.
func ConfigFromSettings(sc config.SessionConfig) Config {
	return Config{
		MinActionGap:    sc.MinActionGap,
		RestIntervalMin: sc.RestIntervalMin,
		RestIntervalMax: sc.RestIntervalMax,
		RestDurationMin: sc.RestDurationMin,
		RestDurationMax: sc.RestDurationMax,
	}
}

// State is the mutable per-process session record. It is never persisted.
type State struct {
	SessionStart time.Time
	LastAction   time.Time
	ActionsCount int
	SpeedFactor  float64
}

// Stats is a read-only snapshot for diagnostics.
type Stats struct {
	ActionsCount  int           `json:"actions_count"`
	RestsTaken    int           `json:"rests_taken"`
	TotalRest     time.Duration `json:"total_rest"`
	SessionAge    time.Duration `json:"session_age"`
	NextRestIn    time.Duration `json:"next_rest_in"`
	SpeedFactor   float64       `json:"speed_factor"`
	LastAction    time.Time     `json:"last_action,omitempty"`
	UptimeStarted time.Time     `json:"started_at"`
}

// Scheduler brackets actions with BeforeAction/AfterAction.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	profile *humanoid.DelayProfile
	rng     humanoid.Rand
	clock   humanoid.Clock
	logger  *zap.Logger

	state        State
	started      time.Time
	restInterval time.Duration
	restsTaken   int
	totalRest    time.Duration
}

// New creates the scheduler. The speed factor is taken from profile and is
// fixed for the life of the scheduler.
func New(cfg Config, profile *humanoid.DelayProfile, rng humanoid.Rand, clock humanoid.Clock, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := clock.Now()
	s := &Scheduler{
		cfg:     cfg,
		profile: profile,
		rng:     rng,
		clock:   clock,
		logger:  logger.Named("scheduler"),
		started: now,
		state: State{
			SessionStart: now,
			SpeedFactor:  profile.Factor(),
		},
	}
	s.restInterval = s.drawRestInterval()
	s.logger.Info("Session scheduler ready",
		zap.Float64("speed_factor", s.state.SpeedFactor),
		zap.Duration("first_rest_in", s.restInterval))
	return s
}

func (s *Scheduler) drawRestInterval() time.Duration {
	return humanoid.DrawBetween(s.rng, s.cfg.RestIntervalMin, s.cfg.RestIntervalMax)
}

// BeforeAction counts the action, takes a mandatory rest when the session
// has run past its rest interval, and enforces the minimum gap since the
// previous action.
func (s *Scheduler) BeforeAction(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ActionsCount++

	if s.clock.Now().Sub(s.state.SessionStart) >= s.restInterval {
		rest := humanoid.DrawBetween(s.rng, s.cfg.RestDurationMin, s.cfg.RestDurationMax)
		s.logger.Info("Session rest started",
			zap.Duration("rest", rest),
			zap.Int("actions", s.state.ActionsCount))
		if err := s.clock.Sleep(ctx, rest); err != nil {
			return fmt.Errorf("session rest interrupted: %w", err)
		}
		s.restsTaken++
		s.totalRest += rest
		s.state.SessionStart = s.clock.Now()
		s.restInterval = s.drawRestInterval()
		s.logger.Info("Session rest finished", zap.Duration("next_rest_in", s.restInterval))
	}

	if !s.state.LastAction.IsZero() {
		gap := s.clock.Now().Sub(s.state.LastAction)
		if gap < s.cfg.MinActionGap {
			if err := s.clock.Sleep(ctx, s.cfg.MinActionGap-gap); err != nil {
				return fmt.Errorf("action gap wait interrupted: %w", err)
			}
		}
	}
	return nil
}

// AfterAction sleeps a between-actions draw and stamps the last action time.
func (s *Scheduler) AfterAction(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.clock.Sleep(ctx, s.profile.Draw(s.rng, humanoid.ClassBetweenActions))
	s.state.LastAction = s.clock.Now()
	if err != nil {
		return fmt.Errorf("between-actions pause interrupted: %w", err)
	}
	return nil
}

// Do runs fn bracketed by BeforeAction and AfterAction. AfterAction runs even
// when fn fails; fn's error takes precedence.
func (s *Scheduler) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := s.BeforeAction(ctx); err != nil {
		return err
	}
	s.logger.Debug("Action", zap.String("name", name))
	actErr := fn(ctx)
	afterErr := s.AfterAction(ctx)
	if actErr != nil {
		return actErr
	}
	return afterErr
}

// State returns a copy of the session state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a diagnostic snapshot.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	next := s.restInterval - now.Sub(s.state.SessionStart)
	if next < 0 {
		next = 0
	}
	return Stats{
		ActionsCount:  s.state.ActionsCount,
		RestsTaken:    s.restsTaken,
		TotalRest:     s.totalRest,
		SessionAge:    now.Sub(s.state.SessionStart),
		NextRestIn:    next,
		SpeedFactor:   s.state.SpeedFactor,
		LastAction:    s.state.LastAction,
		UptimeStarted: s.started,
	}
}
