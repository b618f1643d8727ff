package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/xkilldash9x/linkmcp/internal/browser"
	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/detector"
)

// classifyFault maps an action error onto the problem taxonomy. Problems
// raised by the detector keep their own reason.
func classifyFault(err error) detector.Reason {
	var p *detector.Problem
	switch {
	case errors.As(err, &p):
		return p.Reason
	case errors.Is(err, humanoid.ErrElementNotFound):
		return detector.ReasonElementNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return detector.ReasonTimeout
	case isNetworkError(err):
		return detector.ReasonNetworkError
	case errors.Is(err, browser.ErrNavigation):
		return detector.ReasonNavigationFailed
	default:
		return detector.ReasonUnexpectedUI
	}
}

// Chrome reports connectivity failures as net::ERR_* codes.
var networkCodes = []string{
	"net::ERR_INTERNET_DISCONNECTED",
	"net::ERR_NAME_NOT_RESOLVED",
	"net::ERR_CONNECTION",
	"net::ERR_PROXY",
	"net::ERR_NETWORK",
	"net::ERR_TIMED_OUT",
	"net::ERR_ADDRESS_UNREACHABLE",
	"net::ERR_SSL",
	"net::ERR_CERT",
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, code := range networkCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// isCancellation reports a caller cancellation, which is never a site
// condition.
func isCancellation(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}
