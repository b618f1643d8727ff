package detector

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Inspector is the read-only page capability the detector needs.
type Inspector interface {
	Location(ctx context.Context) (string, error)
	Text(ctx context.Context) (string, error)
	// VisibleSelectors reports, for each selector, whether it matches at least
	// one rendered, visible element.
	VisibleSelectors(ctx context.Context, selectors []string) (map[string]bool, error)
}

// Snapshot is the page state the rule checks run against. Text is already
// normalized.
type Snapshot struct {
	URL     string
	Text    string
	Visible map[string]bool
}

// NewSnapshot builds a Snapshot from raw values, normalizing the text.
func NewSnapshot(url, text string, visible map[string]bool) Snapshot {
	if visible == nil {
		visible = map[string]bool{}
	}
	return Snapshot{URL: url, Text: normalizeText(text), Visible: visible}
}

// Detector evaluates the rule table with strict precedence
// login wall > CAPTCHA > rate limit.
type Detector struct {
	rules  *compiledRules
	hints  *Hints
	logger *zap.Logger
}

// New compiles rules. A nil hints value selects English.
func New(rules Rules, hints *Hints, logger *zap.Logger) (*Detector, error) {
	compiled, err := compile(rules)
	if err != nil {
		return nil, err
	}
	if hints == nil {
		hints = NewHints("en")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{rules: compiled, hints: hints, logger: logger.Named("detector")}, nil
}

// Hints exposes the hint catalog so callers can describe non-rule problems
// (timeouts, missing elements) in the same locale.
func (d *Detector) Hints() *Hints { return d.hints }

// Selectors returns every selector the full classification checks.
func (d *Detector) Selectors() []string { return d.rules.raw.Selectors() }

// Capture reads the page once for the given selectors.
func (d *Detector) Capture(ctx context.Context, insp Inspector, selectors []string) (Snapshot, error) {
	url, err := insp.Location(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("detector: reading location: %w", err)
	}
	text, err := insp.Text(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("detector: reading page text: %w", err)
	}
	visible := map[string]bool{}
	if len(selectors) > 0 {
		visible, err = insp.VisibleSelectors(ctx, selectors)
		if err != nil {
			return Snapshot{}, fmt.Errorf("detector: probing selectors: %w", err)
		}
	}
	return NewSnapshot(url, text, visible), nil
}

// Classify captures the page and returns the highest-precedence problem, or
// nil for a clean page.
func (d *Detector) Classify(ctx context.Context, insp Inspector) (*Problem, error) {
	snap, err := d.Capture(ctx, insp, d.rules.raw.Selectors())
	if err != nil {
		return nil, err
	}
	return d.ClassifySnapshot(snap), nil
}

// ClassifySnapshot applies the precedence order to an existing snapshot.
func (d *Detector) ClassifySnapshot(s Snapshot) *Problem {
	checks := []func(Snapshot) *Problem{d.loginWall, d.captcha, d.rateLimit}
	for _, check := range checks {
		if p := check(s); p != nil {
			d.logger.Info("Adverse page state detected",
				zap.String("reason", string(p.Reason)),
				zap.String("variant", p.Variant),
				zap.String("signal", p.Detail),
				zap.String("url", s.URL))
			return p
		}
	}
	return nil
}

// CheckLoginWall runs only the login-wall check.
func (d *Detector) CheckLoginWall(ctx context.Context, insp Inspector) (*Problem, error) {
	sels := append(append([]string{}, d.rules.raw.Login.ModalSelectors...), d.rules.raw.Login.ChromeSelectors...)
	snap, err := d.Capture(ctx, insp, sels)
	if err != nil {
		return nil, err
	}
	return d.loginWall(snap), nil
}

// CheckCaptcha runs only the CAPTCHA check.
func (d *Detector) CheckCaptcha(ctx context.Context, insp Inspector) (*Problem, error) {
	snap, err := d.Capture(ctx, insp, markerSelectors(d.rules.raw.Captcha.Selectors))
	if err != nil {
		return nil, err
	}
	return d.captcha(snap), nil
}

// CheckRateLimit runs only the rate-limit check. Connection flows call it
// between clicking Connect and clicking Send.
func (d *Detector) CheckRateLimit(ctx context.Context, insp Inspector) (*Problem, error) {
	snap, err := d.Capture(ctx, insp, markerSelectors(d.rules.raw.RateLimit.Selectors))
	if err != nil {
		return nil, err
	}
	return d.rateLimit(snap), nil
}

// IsLoginWall, IsCaptcha and IsRateLimit are the pure forms of the checks.
func (d *Detector) IsLoginWall(s Snapshot) bool { return d.loginWall(s) != nil }
func (d *Detector) IsCaptcha(s Snapshot) bool   { return d.captcha(s) != nil }
func (d *Detector) IsRateLimit(s Snapshot) bool { return d.rateLimit(s) != nil }

func (d *Detector) loginWall(s Snapshot) *Problem {
	for _, re := range d.rules.loginURLs {
		if re.MatchString(s.URL) {
			return d.hints.Problem(ReasonLoginRequired, "", "url "+s.URL)
		}
	}
	for _, sel := range d.rules.raw.Login.ModalSelectors {
		if s.Visible[sel] {
			return d.hints.Problem(ReasonLoginRequired, "", "modal "+sel)
		}
	}
	// Marketing copy often says "sign in"; only trust phrases when the
	// authenticated navigation chrome is absent.
	for _, sel := range d.rules.raw.Login.ChromeSelectors {
		if s.Visible[sel] {
			return nil
		}
	}
	for _, phrase := range d.rules.loginPhrase {
		if phrase != "" && strings.Contains(s.Text, phrase) {
			return d.hints.Problem(ReasonLoginRequired, "", "phrase "+phrase)
		}
	}
	return nil
}

func (d *Detector) captcha(s Snapshot) *Problem {
	if m, ok := firstVisible(s, d.rules.raw.Captcha.Selectors); ok {
		return d.hints.Problem(ReasonCaptcha, m.Variant, "selector "+m.Match)
	}
	if m, ok := firstPhrase(s, d.rules.captchaText); ok {
		return d.hints.Problem(ReasonCaptcha, m.Variant, "phrase "+m.Match)
	}
	return nil
}

func (d *Detector) rateLimit(s Snapshot) *Problem {
	if m, ok := firstVisible(s, d.rules.raw.RateLimit.Selectors); ok {
		return d.hints.Problem(ReasonRateLimited, m.Variant, "selector "+m.Match)
	}
	if m, ok := firstPhrase(s, d.rules.limitText); ok {
		return d.hints.Problem(ReasonRateLimited, m.Variant, "phrase "+m.Match)
	}
	return nil
}

func firstVisible(s Snapshot, markers []Marker) (Marker, bool) {
	for _, m := range markers {
		if s.Visible[m.Match] {
			return m, true
		}
	}
	return Marker{}, false
}

func firstPhrase(s Snapshot, markers []Marker) (Marker, bool) {
	for _, m := range markers {
		if m.Match != "" && strings.Contains(s.Text, m.Match) {
			return m, true
		}
	}
	return Marker{}, false
}

func markerSelectors(markers []Marker) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.Match)
	}
	return out
}
