package tools

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/config"
	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
	"github.com/xkilldash9x/linkmcp/internal/session"
)

// Build assembles a production Env: tables from the configured override
// files, a time-seeded random source, the system clock and one speed factor
// drawn for the whole process.
func Build(cfg config.Interface, launcher browser.Launcher, logger *zap.Logger) (*Env, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := humanoid.NewLockedRand(time.Now().UnixNano())
	return BuildWith(cfg, launcher, rng, humanoid.SystemClock{}, logger)
}

// BuildWith is Build with an explicit random source and clock.
func BuildWith(cfg config.Interface, launcher browser.Launcher, rng humanoid.Rand, clock humanoid.Clock, logger *zap.Logger) (*Env, error) {
	table, err := selectors.Load(cfg.Selectors().File)
	if err != nil {
		return nil, err
	}
	det, err := loadDetector(cfg, logger)
	if err != nil {
		return nil, err
	}

	hc := cfg.Humanoid()
	factor := humanoid.DrawSpeedFactorBetween(rng, hc.SpeedFactorMin, hc.SpeedFactorMax)
	profile, err := humanoid.NewDelayProfile(humanoid.DelaysFromSettings(hc), factor)
	if err != nil {
		return nil, fmt.Errorf("tools: building delay profile: %w", err)
	}

	sched := session.New(session.ConfigFromSettings(cfg.Session()), profile, rng, clock, logger)
	manager := browser.NewManager(launcher, cfg.Browser().LivenessTimeout, logger)

	return NewEnv(Deps{
		Config:    cfg,
		Manager:   manager,
		Scheduler: sched,
		Detector:  det,
		Selectors: table,
		Evidence:  NewEvidence(cfg.Evidence(), logger),
		Profile:   profile,
		Rand:      rng,
		Clock:     clock,
		Logger:    logger,
	})
}

func loadDetector(cfg config.Interface, logger *zap.Logger) (*detector.Detector, error) {
	rules, err := detector.LoadRules(cfg.Detector().RulesFile)
	if err != nil {
		return nil, err
	}
	return detector.New(rules, detector.NewHints(cfg.Detector().Locale), logger)
}
