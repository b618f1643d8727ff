package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/detector"
)

// ErrLoginTimeout is returned when nobody completed the sign-in in time.
var ErrLoginTimeout = errors.New("timed out waiting for sign-in")

// AwaitLogin opens the login page in the shared browser and polls until the
// page classifies clean, meaning an operator signed in on the persistent
// profile. The last problem seen is passed to onWait whenever it changes.
// It returns the URL the browser settled on.
func (e *Env) AwaitLogin(ctx context.Context, timeout time.Duration, onWait func(*detector.Problem)) (string, error) {
	h, err := e.manager.Acquire(ctx)
	if err != nil {
		return "", err
	}
	page := h.Page()
	if err := page.Navigate(ctx, e.cfg.Browser().LoginURL); err != nil {
		return "", fmt.Errorf("opening login page: %w", err)
	}

	poll := e.cfg.Limits().PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	deadline := e.clock.Now().Add(timeout)
	var last detector.Reason
	for {
		p, err := e.Detector().Classify(ctx, page)
		if err != nil {
			return "", err
		}
		if p == nil {
			url, err := page.Location(ctx)
			if err != nil {
				return "", err
			}
			e.logger.Info("Signed in.", zap.String("url", url))
			return url, nil
		}
		if p.Reason != last {
			last = p.Reason
			e.logger.Info("Waiting for the operator.", zap.String("reason", string(p.Reason)))
			if onWait != nil {
				onWait(p)
			}
		}
		if !e.clock.Now().Before(deadline) {
			return "", fmt.Errorf("%w (last state: %s)", ErrLoginTimeout, p.Reason)
		}
		if err := e.clock.Sleep(ctx, poll); err != nil {
			return "", err
		}
	}
}
