package tools

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
)

// maxNoteLength is the site's limit on invitation notes.
const maxNoteLength = 300

// Connection states reported in ConnectData.Status.
const (
	ConnectionSent             = "sent"
	ConnectionAlreadyPending   = "already_pending"
	ConnectionAlreadyConnected = "already_connected"
)

type connectArgs struct {
	ProfileURL string `json:"profile_url"`
	Message    string `json:"message,omitempty"`
}

// ConnectData is the payload of a connection request.
type ConnectData struct {
	Status       string `json:"status"`
	ProfileURL   string `json:"profile_url"`
	NoteIncluded bool   `json:"note_included"`
	// Via is "button" or "more_menu" for sent requests.
	Via string `json:"via,omitempty"`
}

func (e *Env) noteLimit() int {
	if n := e.cfg.Limits().MaxMessageLength; n > 0 && n < maxNoteLength {
		return n
	}
	return maxNoteLength
}

// SendConnection sends an invitation to a profile, optionally with a note.
// Adverse state is checked after the page loads, right after Connect is
// pressed (rate limit only) and again right before Send. Send is never
// pressed once a problem has been seen.
func SendConnection(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[connectArgs](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	target, err := profileURL(args.ProfileURL)
	if err != nil {
		return Errorf("%v", err)
	}
	note := strings.TrimSpace(args.Message)
	if limit := env.noteLimit(); runeLen(note) > limit {
		return Errorf("message is %d characters; the limit is %d", runeLen(note), limit)
	}

	c, err := env.begin(ctx, ToolSendConnection)
	if err != nil {
		return browserUnavailable(err)
	}
	if !env.budgetAvailable() {
		detail := fmt.Sprintf("local invitation budget exhausted; next slot in %v", env.budgetRetryAfter())
		return c.needsHuman(ctx, c.det.Hints().Problem(detector.ReasonRateLimited, "local_budget", detail))
	}

	if err := c.navigate(ctx, target); err != nil {
		return c.fault(ctx, err)
	}
	actionBar := []selectors.Role{
		selectors.PendingButton, selectors.ConnectButton,
		selectors.MoreActionsButton, selectors.MessageButton,
	}
	if _, ok, out := c.settled(ctx, actionBar...); out != nil {
		return *out
	} else if !ok {
		return c.needsHuman(ctx, c.problem(detector.ReasonUnexpectedUI, "profile actions did not appear"))
	}

	vis, err := c.visibleRoles(ctx, actionBar...)
	if err != nil {
		return c.fault(ctx, err)
	}
	data := ConnectData{ProfileURL: target}
	if _, ok := vis[selectors.PendingButton]; ok {
		data.Status = ConnectionAlreadyPending
		return Success(data)
	}
	doc, err := c.document(ctx)
	if err != nil {
		return c.fault(ctx, err)
	}
	if strings.HasPrefix(c.table.ConnectionDegree(doc), "1st") {
		data.Status = ConnectionAlreadyConnected
		return Success(data)
	}

	switch {
	case vis[selectors.ConnectButton] != "":
		data.Via = "button"
		err = c.clickSelector(ctx, vis[selectors.ConnectButton])
	case vis[selectors.MoreActionsButton] != "":
		data.Via = "more_menu"
		if err = c.clickSelector(ctx, vis[selectors.MoreActionsButton]); err == nil {
			err = c.click(ctx, selectors.MoreConnectOption)
		}
	default:
		return c.needsHuman(ctx, c.problem(detector.ReasonUnexpectedUI, "no connect control on profile"))
	}
	if err != nil {
		return c.fault(ctx, err)
	}

	// The weekly limit modal replaces the invite dialog right after Connect.
	if p, err := c.det.CheckRateLimit(ctx, c.page); err != nil {
		return c.fault(ctx, err)
	} else if p != nil {
		return c.needsHuman(ctx, p)
	}
	if _, err := c.resolve(ctx, selectors.InviteModal); err != nil {
		return c.fault(ctx, err)
	}

	if note != "" {
		if err := c.click(ctx, selectors.AddNoteButton); err != nil {
			return c.fault(ctx, err)
		}
		field, err := c.resolve(ctx, selectors.NoteTextarea)
		if err != nil {
			return c.fault(ctx, err)
		}
		if err := c.typeInto(ctx, field, note, true); err != nil {
			return c.fault(ctx, err)
		}
		data.NoteIncluded = true
	}

	sendSel, err := c.resolve(ctx, selectors.SendButton)
	if err != nil {
		return c.fault(ctx, err)
	}
	if p, err := c.classify(ctx); err != nil {
		return c.fault(ctx, err)
	} else if p != nil {
		return c.needsHuman(ctx, p)
	}
	if !env.spendBudget() {
		return c.needsHuman(ctx, c.det.Hints().Problem(detector.ReasonRateLimited, "local_budget", "local invitation budget exhausted"))
	}
	if err := c.clickSelector(ctx, sendSel); err != nil {
		return c.fault(ctx, err)
	}

	// The request went out; a problem now is reported so the operator sees
	// it, and the pending state stops a duplicate on retry.
	if p, err := c.classify(ctx); err == nil && p != nil {
		p.Detail = "after sending: " + p.Detail
		return c.needsHuman(ctx, p)
	}

	data.Status = ConnectionSent
	c.logger.Info("Connection request sent.",
		zap.String("profile_url", target),
		zap.String("via", data.Via),
		zap.Bool("note", data.NoteIncluded))
	return Success(data)
}
