package linear

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindesk/internal/errs"
	"github.com/lindesk/pkg/models"
)

const teamsResponse = `{"data":{"teams":{"nodes":[
	{"id":"team-eng","key":"ENG","name":"Engineering"},
	{"id":"team-ops","key":"OPS","name":"Operations"}
]}}}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New("lin_api_key")
	client.SetEndpoint(server.URL)
	return client
}

func TestResolveTeamCaseInsensitive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lin_api_key", r.Header.Get("Authorization"))
		w.Write([]byte(teamsResponse))
	})

	id, err := client.ResolveTeam(context.Background(), "eng")
	require.NoError(t, err)
	assert.Equal(t, "team-eng", id)
}

func TestResolveTeamMissListsAvailableKeys(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(teamsResponse))
	})

	_, err := client.ResolveTeam(context.Background(), "XYZ")

	require.Error(t, err)
	var lookupErr *errs.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Contains(t, err.Error(), "ENG, OPS")
}

func TestCreateIssue(t *testing.T) {
	analysis := &models.Analysis{
		Title:               "Fix webhook delivery crash loop",
		Description:         "The delivery worker crashes when the payload exceeds the queue frame size limit.",
		Priority:            models.PriorityUrgent,
		EstimatedComplexity: 2,
		OriginalSubject:     "Webhooks failing",
	}

	var mutationVars map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if strings.Contains(req.Query, "issueCreate") {
			mutationVars = req.Variables
			w.Write([]byte(`{"data":{"issueCreate":{"success":true,"issue":{"id":"i1","identifier":"ENG-42","title":"Fix webhook delivery crash loop","url":"https://linear.app/acme/issue/ENG-42"}}}}`))
			return
		}
		w.Write([]byte(teamsResponse))
	})

	issue, err := client.CreateIssue(context.Background(), analysis, "ENG", "th_1")
	require.NoError(t, err)

	assert.Equal(t, "ENG-42", issue.Identifier)
	assert.Equal(t, "https://linear.app/acme/issue/ENG-42", issue.URL)

	assert.Equal(t, "team-eng", mutationVars["teamId"])
	assert.Equal(t, float64(1), mutationVars["priority"], "urgent maps to 1")
	assert.Equal(t, float64(2), mutationVars["estimate"])

	description, _ := mutationVars["description"].(string)
	assert.Contains(t, description, "## Summary")
	assert.Contains(t, description, "## Next Steps")
	assert.Contains(t, description, "**Source:** ticket #th_1")
	assert.Contains(t, description, "**Original Subject:** Webhooks failing")
}

func TestCreateIssueRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "issueCreate") {
			w.Write([]byte(`{"data":{"issueCreate":{"success":false}}}`))
			return
		}
		w.Write([]byte(teamsResponse))
	})

	_, err := client.CreateIssue(context.Background(), &models.Analysis{Title: "T"}, "ENG", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestCreateIssueGraphQLError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"invalid api key"}]}`))
	})

	_, err := client.CreateIssue(context.Background(), &models.Analysis{Title: "T"}, "ENG", "1")

	var gqlErr *errs.GraphQLError
	require.ErrorAs(t, err, &gqlErr)
}

func TestPriorityValueTotal(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"urgent", 1},
		{"Urgent", 1},
		{"high", 2},
		{"medium", 3},
		{"normal", 3},
		{"low", 4},
		{"", 0},
		{"sev1", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, PriorityValue(tt.input), "input %q", tt.input)
	}
}

func TestExtractSummary(t *testing.T) {
	t.Run("first substantial line", func(t *testing.T) {
		description := "## Problem Summary\n- short bullet\nThe delivery worker crashes when payloads exceed the frame size limit.\nMore detail."
		assert.Equal(t, "The delivery worker crashes when payloads exceed the frame size limit.", extractSummary(description))
	})

	t.Run("falls back to first 500 chars", func(t *testing.T) {
		// Nothing but headings and short bullets: no line qualifies.
		description := strings.Repeat("- item\n", 100)
		got := extractSummary(description)
		assert.Equal(t, strings.TrimSpace(description[:500]), got)
	})

	t.Run("short description returned whole", func(t *testing.T) {
		assert.Equal(t, "Short note.", extractSummary("Short note."))
	})
}

func TestExtractNextSteps(t *testing.T) {
	t.Run("next steps heading", func(t *testing.T) {
		description := "## Problem\nBroken.\n## Next Steps\n1. Check the worker logs\n2. Roll back the deploy\n## Impact\nHigh."
		assert.Equal(t, "1. Check the worker logs\n2. Roll back the deploy", extractNextSteps(description))
	})

	t.Run("recommendations heading", func(t *testing.T) {
		description := "## Recommendations\n- Bump the frame size limit"
		assert.Equal(t, "- Bump the frame size limit", extractNextSteps(description))
	})

	t.Run("default checklist when absent", func(t *testing.T) {
		got := extractNextSteps("No headings here at all.")
		assert.Contains(t, got, "- [ ] Reproduce the reported issue")
	})
}
