// Package selectors maps logical page roles to CSS selector candidates so
// that a site layout change is a data edit, not a code change.
package selectors

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultTableYAML []byte

// Role names one logical element on a page.
type Role string

const (
	SearchResultsContainer Role = "search_results_container"
	SearchResultItem       Role = "search_result"
	ResultName             Role = "result_name"
	ResultHeadline         Role = "result_headline"
	ResultLocation         Role = "result_location"
	ResultLink             Role = "result_link"
	SearchNoResults        Role = "search_no_results"

	ProfileName     Role = "profile_name"
	ProfileHeadline Role = "profile_headline"
	ProfileLocation Role = "profile_location"
	ProfileAbout    Role = "profile_about"
	ExperienceItem  Role = "experience_item"
	EducationItem   Role = "education_item"
	ItemTitle       Role = "item_title"
	ItemSubtitle    Role = "item_subtitle"

	ConnectButton     Role = "connect_button"
	MoreActionsButton Role = "more_actions_button"
	MoreConnectOption Role = "more_connect_option"
	PendingButton     Role = "pending_button"
	ConnectedMarker   Role = "connected_marker"
	MessageButton     Role = "message_button"
	InviteModal       Role = "invite_modal"
	AddNoteButton     Role = "add_note_button"
	NoteTextarea      Role = "note_textarea"
	SendButton        Role = "send_button"

	SearchBox Role = "search_box"
)

// RequiredRoles must be present with at least one candidate after loading.
var RequiredRoles = []Role{
	SearchResultItem, ResultName, ResultLink,
	ProfileName,
	ConnectButton, MoreActionsButton, MoreConnectOption, PendingButton,
	AddNoteButton, NoteTextarea, SendButton,
}

// Table is an immutable role to selector-candidates mapping.
type Table struct {
	roles map[Role][]string
}

// Default returns the embedded table.
func Default() *Table {
	t, err := Parse(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("selectors: embedded table is invalid: %v", err))
	}
	return t
}

// Parse decodes a YAML role table.
func Parse(data []byte) (*Table, error) {
	raw := map[Role][]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("selectors: failed to parse table: %w", err)
	}
	return &Table{roles: raw}, nil
}

// Load returns the embedded table with the roles from path layered on top.
// An empty path returns the embedded table unchanged.
func Load(path string) (*Table, error) {
	base := Default()
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("selectors: failed to read table %q: %w", path, err)
	}
	override, err := Parse(data)
	if err != nil {
		return nil, err
	}
	merged := base.Merge(override)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("selectors: %q: %w", path, err)
	}
	return merged, nil
}

// Merge returns a new table where roles from other replace roles in t.
func (t *Table) Merge(other *Table) *Table {
	out := make(map[Role][]string, len(t.roles))
	for r, c := range t.roles {
		out[r] = c
	}
	for r, c := range other.roles {
		out[r] = c
	}
	return &Table{roles: out}
}

// Validate checks that every required role has a candidate.
func (t *Table) Validate() error {
	for _, r := range RequiredRoles {
		if len(t.roles[r]) == 0 {
			return fmt.Errorf("role %q has no selector", r)
		}
	}
	return nil
}

// Candidates returns a copy of the selectors for role, in priority order.
func (t *Table) Candidates(role Role) []string {
	return append([]string(nil), t.roles[role]...)
}

// Primary returns the first candidate for role, or "".
func (t *Table) Primary(role Role) string {
	if c := t.roles[role]; len(c) > 0 {
		return c[0]
	}
	return ""
}

// Roles lists the defined roles, sorted.
func (t *Table) Roles() []Role {
	out := make([]Role, 0, len(t.roles))
	for r := range t.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve returns the first candidate of role that visible reports as shown.
func (t *Table) Resolve(role Role, visible map[string]bool) (string, bool) {
	for _, sel := range t.roles[role] {
		if visible[sel] {
			return sel, true
		}
	}
	return "", false
}
