package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/linkmcp/internal/browser/humanoid"
	"github.com/xkilldash9x/linkmcp/internal/detector"
	"github.com/xkilldash9x/linkmcp/internal/selectors"
)

// profileScrolls brings the lazily rendered experience and education
// sections into the DOM.
const profileScrolls = 2

type profileArgs struct {
	ProfileURL string `json:"profile_url"`
}

// ProfileData is the payload of a successful profile fetch.
type ProfileData struct {
	selectors.Profile
	ConnectionDegree string `json:"connection_degree,omitempty"`
}

// GetProfile opens a member profile and extracts its public sections.
func GetProfile(ctx context.Context, env *Env, raw map[string]any) Outcome {
	args, err := mapToStruct[profileArgs](raw)
	if err != nil {
		return Errorf("%v", err)
	}
	target, err := profileURL(args.ProfileURL)
	if err != nil {
		return Errorf("%v", err)
	}

	c, err := env.begin(ctx, ToolGetProfile)
	if err != nil {
		return browserUnavailable(err)
	}
	if err := c.navigate(ctx, target); err != nil {
		return c.fault(ctx, err)
	}
	if _, ok, out := c.settled(ctx, selectors.ProfileName); out != nil {
		return *out
	} else if !ok {
		return c.needsHuman(ctx, c.problem(detector.ReasonUnexpectedUI, "profile name did not appear"))
	}
	if err := c.read(ctx); err != nil {
		return c.fault(ctx, err)
	}

	for i := 0; i < profileScrolls; i++ {
		if _, err := c.scroll(ctx, humanoid.ScrollDown); err != nil {
			return c.fault(ctx, err)
		}
	}
	if p, err := c.classify(ctx); err != nil {
		return c.fault(ctx, err)
	} else if p != nil {
		return c.needsHuman(ctx, p)
	}

	doc, err := c.document(ctx)
	if err != nil {
		return c.fault(ctx, err)
	}
	location, err := c.page.Location(ctx)
	if err != nil {
		return c.fault(ctx, err)
	}
	profile, ok := c.table.ExtractProfile(doc, location)
	if !ok {
		return c.needsHuman(ctx, c.problem(detector.ReasonUnexpectedUI, "profile markup has no name"))
	}
	if profile.ProfileURL == "" {
		profile.ProfileURL = target
	}
	c.logger.Info("Profile extracted.",
		zap.String("profile_url", profile.ProfileURL),
		zap.Int("experience", len(profile.Experience)))
	return Success(ProfileData{Profile: profile, ConnectionDegree: c.table.ConnectionDegree(doc)})
}
