package tools

import (
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/linkmcp/internal/detector"
)

func TestOutcome_Check(t *testing.T) {
	p := detector.NewHints("en").Problem(detector.ReasonLoginRequired, "", "")
	tests := []struct {
		name  string
		out   Outcome
		valid bool
	}{
		{"success", Success(map[string]int{"n": 1}), true},
		{"success without data", Success(nil), true},
		{"needs human", NeedsHuman(p, "https://www.linkedin.com/login"), true},
		{"error", Errorf("bad %s", "input"), true},
		{"needs human without hint", Outcome{Status: StatusNeedsHuman, Reason: detector.ReasonCaptcha}, false},
		{"needs human with data", Outcome{Status: StatusNeedsHuman, Reason: detector.ReasonCaptcha, Hint: "h", Data: 1}, false},
		{"success with reason", Outcome{Status: StatusSuccess, Reason: detector.ReasonTimeout}, false},
		{"error with evidence", Outcome{Status: StatusError, Message: "m", EvidenceRef: "/tmp/x.png"}, false},
		{"error without message", Outcome{Status: StatusError}, false},
		{"no status", Outcome{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.out.Check()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestOutcome_WireShape(t *testing.T) {
	p := detector.NewHints("en").Problem(detector.ReasonRateLimited, "invitation", "selector .ip-fuse-limit-alert")
	p.EvidenceRef = "/var/evidence/a.png"

	data, err := json.Marshal(NeedsHuman(p, "https://www.linkedin.com/in/x"))
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "needs_human", wire["status"])
	assert.Equal(t, "rate_limited", wire["reason"])
	assert.Equal(t, "/var/evidence/a.png", wire["evidence_ref"])
	assert.NotContains(t, wire, "data")
	assert.NotContains(t, wire, "message")
}

func TestMapToStruct(t *testing.T) {
	args, err := mapToStruct[searchArgs](map[string]any{"query": "go", "limit": 5})
	require.NoError(t, err)
	assert.Equal(t, "go", args.Query)
	require.NotNil(t, args.Limit)
	assert.Equal(t, 5, *args.Limit)

	_, err = mapToStruct[searchArgs](map[string]any{"query": "go", "page": 2})
	assert.Error(t, err)

	empty, err := mapToStruct[searchArgs](nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Limit)
}

func TestProfileURL(t *testing.T) {
	got, err := profileURL(" https://www.linkedin.com/in/jane-doe-42/?miniProfileUrn=x#top ")
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe-42", got)

	for _, bad := range []string{"", "jane", "/in/jane", "https://www.linkedin.com/company/acme", "https://www.linkedin.com/in/", "mailto:jane@example.com"} {
		_, err := profileURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestSearchURL(t *testing.T) {
	assert.Equal(t,
		"https://www.linkedin.com/search/results/people/?keywords=staff+engineer&origin=GLOBAL_SEARCH_HEADER",
		searchURL(" staff engineer ", "", 1))
	assert.Equal(t,
		"https://www.linkedin.com/search/results/people/?keywords=staff+engineer+Berlin&origin=GLOBAL_SEARCH_HEADER&page=3",
		searchURL("staff engineer", "Berlin", 3))
}
