package tools

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/linkmcp/internal/selectors"
)

// argCodec rejects arguments a tool does not declare.
var argCodec = json.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// mapToStruct converts the loosely typed argument mapping into T.
func mapToStruct[T any](m map[string]any) (T, error) {
	var result T
	if m == nil {
		return result, nil
	}
	data, err := argCodec.Marshal(m)
	if err != nil {
		return result, err
	}
	if err := argCodec.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("invalid arguments: %w", err)
	}
	return result, nil
}

// runeLen counts characters the way the site's note limit does.
func runeLen(s string) int { return utf8.RuneCountInString(s) }

// profileURL validates and canonicalizes a member profile address.
func profileURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("profile_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("profile_url must be an absolute http(s) URL")
	}
	if !selectors.IsProfilePath(u.Path) {
		return "", fmt.Errorf("profile_url must point at a member profile (/in/<id>)")
	}
	return selectors.CanonicalProfileURL(u.Path), nil
}

// absoluteURL validates a navigation target.
func absoluteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("url is malformed: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("url must be an absolute http(s) URL")
	}
	return u.String(), nil
}

// target is a click or type destination named by raw selector or by role.
type target struct {
	Selector string `json:"selector,omitempty"`
	Role     string `json:"role,omitempty"`
}

func (t target) validate(table *selectors.Table) error {
	switch {
	case t.Selector == "" && t.Role == "":
		return fmt.Errorf("one of selector or role is required")
	case t.Selector != "" && t.Role != "":
		return fmt.Errorf("selector and role are mutually exclusive")
	case t.Role != "" && len(table.Candidates(selectors.Role(t.Role))) == 0:
		return fmt.Errorf("unknown role %q", t.Role)
	}
	return nil
}
