// Package plain fetches support threads over the Plain GraphQL API and
// maps their timeline entries into the canonical thread model.
package plain

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

// Client is a GraphQL client for the Plain core API.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// New creates a Plain client. The endpoint defaults to the hosted core
// API when empty.
func New(endpoint, apiKey string) *Client {
	if endpoint == "" {
		endpoint = "https://core-api.uk.plain.com/graphql/v1"
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

const threadQuery = `
  query getThread($threadId: ID!) {
    thread(threadId: $threadId) {
      id
      ref
      title
      description
      previewText
      status
      priority
      customer {
        id
        fullName
        shortName
        email {
          email
        }
      }
      createdAt {
        iso8601
      }
      updatedAt {
        iso8601
      }
      timelineEntries(first: 50) {
        edges {
          node {
            id
            timestamp {
              iso8601
            }
            actor {
              ... on UserActor {
                user {
                  fullName
                  email
                }
              }
              ... on CustomerActor {
                customer {
                  fullName
                  email {
                    email
                  }
                }
              }
              ... on MachineUserActor {
                machineUser {
                  fullName
                }
              }
              ... on SystemActor {
                systemId
              }
            }
            entry {
              ... on ChatEntry {
                chatId
                chatText: text
              }
              ... on EmailEntry {
                emailId
                subject
                textContent
              }
              ... on NoteEntry {
                noteId
                noteText: text
                markdown
              }
              ... on CustomEntry {
                title
                components {
                  ... on ComponentText {
                    componentText: text
                  }
                }
              }
            }
          }
        }
      }
    }
  }
`

type isoTime struct {
	ISO8601 string `json:"iso8601"`
}

func (t isoTime) time() time.Time {
	parsed, err := time.Parse(time.RFC3339, t.ISO8601)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// actor is the tagged union of timeline actors. Exactly one branch is
// populated per entry.
type actor struct {
	User *struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
	} `json:"user"`
	Customer *struct {
		FullName  string `json:"fullName"`
		ShortName string `json:"shortName"`
		Email     *struct {
			Email string `json:"email"`
		} `json:"email"`
	} `json:"customer"`
	MachineUser *struct {
		FullName string `json:"fullName"`
	} `json:"machineUser"`
	SystemID string `json:"systemId"`
}

// entry is the tagged union of timeline entry kinds.
type entry struct {
	ChatID   *string `json:"chatId"`
	ChatText *string `json:"chatText"`

	EmailID     *string `json:"emailId"`
	Subject     string  `json:"subject"`
	TextContent *string `json:"textContent"`

	NoteID   *string `json:"noteId"`
	NoteText *string `json:"noteText"`
	Markdown *string `json:"markdown"`

	Title      *string `json:"title"`
	Components []struct {
		ComponentText string `json:"componentText"`
	} `json:"components"`
}

type timelineNode struct {
	ID        string  `json:"id"`
	Timestamp isoTime `json:"timestamp"`
	Actor     *actor  `json:"actor"`
	Entry     *entry  `json:"entry"`
}

type threadPayload struct {
	Thread *struct {
		ID          string  `json:"id"`
		Ref         string  `json:"ref"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		PreviewText string  `json:"previewText"`
		Status      string  `json:"status"`
		Priority    *int    `json:"priority"`
		Customer    *struct {
			ID        string `json:"id"`
			FullName  string `json:"fullName"`
			ShortName string `json:"shortName"`
			Email     *struct {
				Email string `json:"email"`
			} `json:"email"`
		} `json:"customer"`
		CreatedAt       isoTime `json:"createdAt"`
		UpdatedAt       isoTime `json:"updatedAt"`
		TimelineEntries struct {
			Edges []struct {
				Node timelineNode `json:"node"`
			} `json:"edges"`
		} `json:"timelineEntries"`
	} `json:"thread"`
}

// FetchThread retrieves a thread with up to 50 timeline entries in a
// single GraphQL request. A null thread payload is reported as NotFound,
// distinct from transport and GraphQL errors.
func (c *Client) FetchThread(ctx context.Context, id string) (*models.Thread, error) {
	if id == "" {
		return nil, fmt.Errorf("thread id is required")
	}

	log.Debug().Str("thread", id).Msg("Fetching Plain thread")

	var payload threadPayload
	if err := c.query(ctx, threadQuery, map[string]interface{}{"threadId": id}, &payload); err != nil {
		return nil, err
	}
	if payload.Thread == nil {
		return nil, &errs.NotFoundError{Kind: "thread", ID: id}
	}

	raw := payload.Thread

	thread := &models.Thread{
		ID:          raw.ID,
		Subject:     raw.Title,
		Description: raw.Description,
		Status:      models.ParseStatus(raw.Status),
		Priority:    models.ParseNumericPriority(raw.Priority),
		CreatedAt:   raw.CreatedAt.time(),
		UpdatedAt:   raw.UpdatedAt.time(),
	}
	if thread.Subject == "" {
		thread.Subject = "No subject"
	}
	if thread.Description == "" {
		thread.Description = raw.PreviewText
	}
	if raw.Customer != nil {
		thread.Customer = models.Customer{
			ID:   raw.Customer.ID,
			Name: firstNonEmpty(raw.Customer.FullName, raw.Customer.ShortName, "Unknown"),
		}
		if raw.Customer.Email != nil {
			thread.Customer.Email = raw.Customer.Email.Email
		}
	}

	for _, edge := range raw.TimelineEntries.Edges {
		if comment, ok := mapTimelineEntry(edge.Node); ok {
			thread.Comments = append(thread.Comments, comment)
		}
	}

	log.Debug().
		Str("thread", thread.ID).
		Int("entries", len(thread.Comments)).
		Msg("Fetched Plain thread")

	return thread, nil
}

// mapTimelineEntry extracts (body, public) from the entry union and the
// author from the actor union. Entries with no recognizable kind are
// dropped.
func mapTimelineEntry(node timelineNode) (models.Comment, bool) {
	if node.Entry == nil {
		return models.Comment{}, false
	}

	e := node.Entry
	var body string
	public := true

	switch {
	case e.ChatText != nil:
		body = *e.ChatText
	case e.NoteText != nil || e.Markdown != nil:
		// Internal note.
		body = stringOr(e.NoteText, stringOr(e.Markdown, ""))
		public = false
	case e.TextContent != nil:
		body = *e.TextContent
		if e.Subject != "" {
			body = fmt.Sprintf("Subject: %s\n\n%s", e.Subject, body)
		}
	case e.Title != nil && len(e.Components) > 0:
		// Custom/system entry: concatenate its text components.
		parts := make([]string, 0, len(e.Components))
		for _, component := range e.Components {
			if component.ComponentText != "" {
				parts = append(parts, component.ComponentText)
			}
		}
		body = *e.Title + "\n" + strings.Join(parts, "\n")
		public = false
	default:
		return models.Comment{}, false
	}

	return models.Comment{
		ID:        node.ID,
		Author:    mapActor(node.Actor),
		Body:      body,
		Public:    public,
		CreatedAt: node.Timestamp.time(),
	}, true
}

func mapActor(a *actor) models.Author {
	if a == nil {
		return models.Author{Name: "System", IsAgent: true}
	}
	switch {
	case a.Customer != nil:
		author := models.Author{Name: firstNonEmpty(a.Customer.FullName, a.Customer.ShortName, "Customer")}
		if a.Customer.Email != nil {
			author.Email = a.Customer.Email.Email
		}
		return author
	case a.User != nil:
		return models.Author{
			Name:    firstNonEmpty(a.User.FullName, "Agent"),
			Email:   a.User.Email,
			IsAgent: true,
		}
	case a.MachineUser != nil:
		return models.Author{Name: firstNonEmpty(a.MachineUser.FullName, "Bot"), IsAgent: true}
	default:
		return models.Author{Name: "System", IsAgent: true}
	}
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if c.apiKey == "" {
		return &errs.ConfigMissingError{
			Field: "Plain API key",
			Hint:  "Set LINDESK_PLAIN_APIKEY or configure via lindesk config.",
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "Bearer "+c.apiKey)
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var gql graphqlResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &errs.HTTPError{Endpoint: "Plain", Status: resp.StatusCode, Body: string(raw)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(gql.Errors) > 0 {
		messages := make([]string, len(gql.Errors))
		for i, e := range gql.Errors {
			messages[i] = e.Message
		}
		return &errs.GraphQLError{Endpoint: "Plain", Messages: messages}
	}
	if resp.StatusCode != http.StatusOK {
		return &errs.HTTPError{Endpoint: "Plain", Status: resp.StatusCode, Body: string(raw)}
	}

	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
