// Package detector classifies the current page into adverse states that must
// stop automation: login walls, CAPTCHAs and rate limits.
package detector

import "fmt"

// Reason is the taxonomy of site-state problems surfaced to a human.
type Reason string

const (
	ReasonLoginRequired    Reason = "login_required"
	ReasonCaptcha          Reason = "captcha_detected"
	ReasonRateLimited      Reason = "rate_limited"
	ReasonUnexpectedUI     Reason = "unexpected_ui"
	ReasonElementNotFound  Reason = "element_not_found"
	ReasonTimeout          Reason = "timeout"
	ReasonNavigationFailed Reason = "navigation_failed"
	ReasonNetworkError     Reason = "network_error"
)

// Reasons lists the full taxonomy in a stable order.
var Reasons = []Reason{
	ReasonLoginRequired, ReasonCaptcha, ReasonRateLimited, ReasonUnexpectedUI,
	ReasonElementNotFound, ReasonTimeout, ReasonNavigationFailed, ReasonNetworkError,
}

// Problem is one detected adverse condition. It is produced per check and
// never stored.
type Problem struct {
	Reason      Reason `json:"reason"`
	Hint        string `json:"hint"`
	Variant     string `json:"variant,omitempty"`
	EvidenceRef string `json:"evidence_ref,omitempty"`
	// Detail carries the matched signal or the underlying fault for logs.
	Detail string `json:"-"`
}

func (p *Problem) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Reason, p.Detail)
	}
	return string(p.Reason)
}
