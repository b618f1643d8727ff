// Package tools implements the operations exposed to the agent. Every
// operation resolves to exactly one Outcome and never panics past Dispatch.
package tools

import (
	"fmt"

	"github.com/xkilldash9x/linkmcp/internal/detector"
)

// Status is the tri-state result kind.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusNeedsHuman Status = "needs_human"
	StatusError      Status = "error"
)

// Outcome is the single result of a tool call.
type Outcome struct {
	Status Status `json:"status"`
	Data   any    `json:"data,omitempty"`

	// Set for NeedsHuman.
	Reason      detector.Reason `json:"reason,omitempty"`
	Hint        string          `json:"hint,omitempty"`
	EvidenceRef string          `json:"evidence_ref,omitempty"`
	CurrentURL  string          `json:"current_url,omitempty"`

	// Set for Error.
	Message string `json:"message,omitempty"`
}

// Success wraps operation data.
func Success(data any) Outcome {
	return Outcome{Status: StatusSuccess, Data: data}
}

// NeedsHuman reports a site condition an operator must resolve.
func NeedsHuman(p *detector.Problem, currentURL string) Outcome {
	return Outcome{
		Status:      StatusNeedsHuman,
		Reason:      p.Reason,
		Hint:        p.Hint,
		EvidenceRef: p.EvidenceRef,
		CurrentURL:  currentURL,
	}
}

// Errorf reports a fault in the request or in automation itself.
func Errorf(format string, args ...any) Outcome {
	return Outcome{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Check verifies that o is a well-formed member of exactly one state.
func (o Outcome) Check() error {
	switch o.Status {
	case StatusSuccess:
		if o.Reason != "" || o.Message != "" {
			return fmt.Errorf("success outcome carries failure fields")
		}
	case StatusNeedsHuman:
		if o.Reason == "" || o.Hint == "" {
			return fmt.Errorf("needs_human outcome without reason or hint")
		}
		if o.Data != nil || o.Message != "" {
			return fmt.Errorf("needs_human outcome carries success or error fields")
		}
	case StatusError:
		if o.Message == "" {
			return fmt.Errorf("error outcome without message")
		}
		if o.EvidenceRef != "" || o.Reason != "" || o.Data != nil {
			return fmt.Errorf("error outcome carries evidence or site-state fields")
		}
	default:
		return fmt.Errorf("unknown outcome status %q", o.Status)
	}
	return nil
}

// IsSuccess, IsNeedsHuman and IsError are convenience predicates.
func (o Outcome) IsSuccess() bool    { return o.Status == StatusSuccess }
func (o Outcome) IsNeedsHuman() bool { return o.Status == StatusNeedsHuman }
func (o Outcome) IsError() bool      { return o.Status == StatusError }
