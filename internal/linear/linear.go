// Package linear creates tracker issues through the Linear GraphQL API.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lindesk/internal/errs"
	"github.com/lindesk/pkg/models"
)

const defaultEndpoint = "https://api.linear.app/graphql"

// Client talks to the Linear GraphQL endpoint with a personal API key.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

const teamsQuery = `
query FindTeamByKey {
  teams {
    nodes {
      id
      key
      name
    }
  }
}`

const createIssueMutation = `
mutation CreateIssue($title: String!, $description: String!, $teamId: String!, $labelIds: [String!], $estimate: Int, $priority: Int) {
  issueCreate(input: {
    title: $title,
    description: $description,
    teamId: $teamId,
    labelIds: $labelIds,
    estimate: $estimate,
    priority: $priority
  }) {
    success
    issue {
      id
      identifier
      title
      url
    }
  }
}`

// ResolveTeam maps a human-readable team key to Linear's internal team
// id. The match is case-insensitive; a miss lists the keys that do
// exist so the caller can see what to fix.
func (c *Client) ResolveTeam(ctx context.Context, key string) (string, error) {
	var result struct {
		Teams struct {
			Nodes []struct {
				ID   string `json:"id"`
				Key  string `json:"key"`
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.execute(ctx, teamsQuery, nil, &result); err != nil {
		return "", err
	}

	available := make([]string, 0, len(result.Teams.Nodes))
	for _, team := range result.Teams.Nodes {
		if strings.EqualFold(team.Key, key) {
			return team.ID, nil
		}
		available = append(available, team.Key)
	}
	return "", &errs.LookupError{Key: key, Available: available}
}

// CreateIssue resolves the team key and submits the create mutation.
// success:false in the payload is treated as a distinct failure from a
// transport error or a GraphQL errors array.
func (c *Client) CreateIssue(ctx context.Context, analysis *models.Analysis, teamKey, sourceID string) (*models.Issue, error) {
	teamID, err := c.ResolveTeam(ctx, teamKey)
	if err != nil {
		return nil, err
	}

	variables := map[string]interface{}{
		"title":       analysis.Title,
		"description": buildDescription(analysis, sourceID),
		"teamId":      teamID,
		"labelIds":    []string{},
		"priority":    PriorityValue(string(analysis.Priority)),
	}
	if analysis.EstimatedComplexity > 0 {
		variables["estimate"] = analysis.EstimatedComplexity
	}

	var result struct {
		IssueCreate struct {
			Success bool         `json:"success"`
			Issue   models.Issue `json:"issue"`
		} `json:"issueCreate"`
	}
	if err := c.execute(ctx, createIssueMutation, variables, &result); err != nil {
		return nil, err
	}
	if !result.IssueCreate.Success {
		return nil, fmt.Errorf("Linear rejected the issue creation for team %s", teamKey)
	}

	log.Info().
		Str("identifier", result.IssueCreate.Issue.Identifier).
		Str("url", result.IssueCreate.Issue.URL).
		Msg("Created Linear issue")

	issue := result.IssueCreate.Issue
	return &issue, nil
}

// buildDescription assembles the long-form issue body: a synthesized
// summary, the full analysis, a next-steps section, and a source
// footer.
func buildDescription(analysis *models.Analysis, sourceID string) string {
	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString(extractSummary(analysis.Description))
	b.WriteString("\n\n## Details\n\n")
	b.WriteString(analysis.Description)
	b.WriteString("\n\n## Next Steps\n\n")
	b.WriteString(extractNextSteps(analysis.Description))
	b.WriteString(fmt.Sprintf("\n\n---\n**Source:** ticket #%s\n**Original Subject:** %s", sourceID, analysis.OriginalSubject))
	return b.String()
}

// extractSummary picks the first substantial paragraph line: not a
// heading, not a short bullet, at least 50 characters. Falls back to
// the first 500 characters of the description.
func extractSummary(description string) string {
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if (strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*")) && len(line) < 50 {
			continue
		}
		if len(line) >= 50 {
			return line
		}
	}
	if len(description) > 500 {
		return strings.TrimSpace(description[:500])
	}
	return strings.TrimSpace(description)
}

var nextStepsHeadings = []string{"next steps", "recommendations", "to resolve"}

const defaultNextSteps = "- [ ] Reproduce the reported issue\n- [ ] Identify the root cause\n- [ ] Implement and verify a fix\n- [ ] Follow up with the customer"

// extractNextSteps returns the section under a next-steps style heading
// when the analysis has one, else a default checklist.
func extractNextSteps(description string) string {
	lines := strings.Split(description, "\n")
	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimLeft(strings.TrimSpace(line), "# "))
		matched := false
		for _, heading := range nextStepsHeadings {
			if strings.HasPrefix(trimmed, heading) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		var section []string
		for _, rest := range lines[i+1:] {
			if strings.HasPrefix(strings.TrimSpace(rest), "#") {
				break
			}
			section = append(section, rest)
		}
		if body := strings.TrimSpace(strings.Join(section, "\n")); body != "" {
			return body
		}
	}
	return defaultNextSteps
}

// PriorityValue maps a priority label to Linear's numeric scheme.
// Unknown labels map to 0 ("no priority"), never to an error.
func PriorityValue(priority string) int {
	switch strings.ToLower(priority) {
	case "urgent":
		return 1
	case "high":
		return 2
	case "medium", "normal":
		return 3
	case "low":
		return 4
	default:
		return 0
	}
}

func (c *Client) execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{"query": query}
	if variables != nil {
		payload["variables"] = variables
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errs.HTTPError{Endpoint: "Linear", Status: resp.StatusCode, Body: string(raw)}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			messages[i] = e.Message
		}
		return &errs.GraphQLError{Endpoint: "Linear", Messages: messages}
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// SetEndpoint overrides the GraphQL endpoint, used by tests.
func (c *Client) SetEndpoint(endpoint string) { c.endpoint = endpoint }
