package detector

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules is the declarative classification table. It is data, loaded from the
// embedded default or an override file, and never hard-coded in checks.
type Rules struct {
	Login     LoginRules  `yaml:"login"`
	Captcha   MarkerRules `yaml:"captcha"`
	RateLimit MarkerRules `yaml:"rate_limit"`
}

// LoginRules describes an authentication wall. A phrase only counts when
// none of the ChromeSelectors is visible.
type LoginRules struct {
	URLPatterns     []string `yaml:"url_patterns"`
	ModalSelectors  []string `yaml:"modal_selectors"`
	Phrases         []string `yaml:"phrases"`
	ChromeSelectors []string `yaml:"chrome_selectors"`
}

// MarkerRules is a selector list plus a phrase list.
type MarkerRules struct {
	Selectors []Marker `yaml:"selectors"`
	Phrases   []Marker `yaml:"phrases"`
}

// Marker is one selector or phrase with an optional hint variant. In YAML it
// may be written as a bare string or as {match, variant}.
type Marker struct {
	Match   string `yaml:"match"`
	Variant string `yaml:"variant,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (m *Marker) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Match = node.Value
		return nil
	}
	type plain Marker
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = Marker(p)
	return nil
}

// DefaultRules returns the embedded rule table.
func DefaultRules() Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("detector: embedded rules are invalid: %v", err))
	}
	return r
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("detector: failed to parse rules: %w", err)
	}
	return r, nil
}

// LoadRules returns the embedded table, or the table at path when set.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("detector: failed to read rules file %q: %w", path, err)
	}
	return ParseRules(data)
}

// Selectors returns every selector referenced by the table, de-duplicated.
func (r Rules) Selectors() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range r.Login.ModalSelectors {
		add(s)
	}
	for _, s := range r.Login.ChromeSelectors {
		add(s)
	}
	for _, m := range r.Captcha.Selectors {
		add(m.Match)
	}
	for _, m := range r.RateLimit.Selectors {
		add(m.Match)
	}
	return out
}

// compiledRules is the matcher form of Rules.
type compiledRules struct {
	raw         Rules
	loginURLs   []*regexp.Regexp
	loginPhrase []string
	captchaText []Marker
	limitText   []Marker
}

func compile(r Rules) (*compiledRules, error) {
	c := &compiledRules{raw: r}
	for _, p := range r.Login.URLPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("detector: bad login url pattern %q: %w", p, err)
		}
		c.loginURLs = append(c.loginURLs, re)
	}
	for _, p := range r.Login.Phrases {
		c.loginPhrase = append(c.loginPhrase, normalizeText(p))
	}
	for _, m := range r.Captcha.Phrases {
		c.captchaText = append(c.captchaText, Marker{Match: normalizeText(m.Match), Variant: m.Variant})
	}
	for _, m := range r.RateLimit.Phrases {
		c.limitText = append(c.limitText, Marker{Match: normalizeText(m.Match), Variant: m.Variant})
	}
	return c, nil
}

var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u00a0", " ")

// normalizeText lower-cases and folds typographic apostrophes so phrase lists
// can be written with plain ASCII.
func normalizeText(s string) string {
	return strings.ToLower(apostrophes.Replace(s))
}
