// Package zendesk fetches tickets over the Zendesk REST API and maps
// them into the canonical thread model.
package zendesk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lindesk/internal/errs"
	"github.com/lindesk/pkg/models"
)

// Client is an HTTP client for the Zendesk v2 REST API using shared
// Basic-auth API-token credentials.
type Client struct {
	baseURL string
	email   string
	token   string
	client  *http.Client
}

// New creates a Zendesk client for the given subdomain and credentials.
func New(domain, email, token string) *Client {
	return &Client{
		baseURL: "https://" + domain,
		email:   email,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL overrides the API base URL, used by tests.
func (c *Client) SetBaseURL(url string) { c.baseURL = url }

type ticketPayload struct {
	Ticket *struct {
		ID             json.Number `json:"id"`
		Subject        string      `json:"subject"`
		Description    string      `json:"description"`
		Status         string      `json:"status"`
		Priority       string      `json:"priority"`
		RequesterID    json.Number `json:"requester_id"`
		OrganizationID json.Number `json:"organization_id"`
		CreatedAt      time.Time   `json:"created_at"`
		UpdatedAt      time.Time   `json:"updated_at"`
	} `json:"ticket"`
}

type commentsPayload struct {
	Comments []struct {
		ID        json.Number `json:"id"`
		AuthorID  json.Number `json:"author_id"`
		Body      string      `json:"body"`
		Public    *bool       `json:"public"`
		CreatedAt time.Time   `json:"created_at"`
		Metadata  struct {
			IsPrivate bool `json:"is_private"`
		} `json:"metadata"`
	} `json:"comments"`
}

type organizationPayload struct {
	Organization struct {
		Name string `json:"name"`
	} `json:"organization"`
}

type userPayload struct {
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// FetchThread retrieves a ticket, its comments, and (best-effort) its
// organization, and maps them into a Thread. A missing id fails before
// any network call; a 404 is reported as NotFound, distinct from other
// transport failures.
func (c *Client) FetchThread(ctx context.Context, id string) (*models.Thread, error) {
	if id == "" {
		return nil, fmt.Errorf("ticket id is required")
	}

	var ticket ticketPayload
	if err := c.get(ctx, fmt.Sprintf("/api/v2/tickets/%s.json", id), &ticket); err != nil {
		if errs.IsNotFound(err) {
			return nil, &errs.NotFoundError{Kind: "ticket", ID: id}
		}
		return nil, err
	}
	if ticket.Ticket == nil {
		return nil, &errs.NotFoundError{Kind: "ticket", ID: id}
	}

	var comments commentsPayload
	if err := c.get(ctx, fmt.Sprintf("/api/v2/tickets/%s/comments.json", id), &comments); err != nil {
		return nil, fmt.Errorf("failed to fetch ticket comments: %w", err)
	}

	// Organization is best-effort: a failure here leaves it empty
	// rather than failing the fetch.
	organization := ""
	if orgID := ticket.Ticket.OrganizationID.String(); orgID != "" && orgID != "0" {
		var org organizationPayload
		if err := c.get(ctx, fmt.Sprintf("/api/v2/organizations/%s.json", orgID), &org); err != nil {
			log.Warn().Err(err).Str("organization_id", orgID).Msg("Could not fetch organization")
		} else {
			organization = org.Organization.Name
			log.Debug().Str("organization", organization).Msg("Found organization")
		}
	}

	customer := models.Customer{ID: ticket.Ticket.RequesterID.String()}
	if customer.ID != "" && customer.ID != "0" {
		var user userPayload
		if err := c.get(ctx, fmt.Sprintf("/api/v2/users/%s.json", customer.ID), &user); err == nil {
			customer.Name = user.User.Name
			customer.Email = user.User.Email
		}
	}

	thread := &models.Thread{
		ID:           ticket.Ticket.ID.String(),
		Subject:      ticket.Ticket.Subject,
		Description:  ticket.Ticket.Description,
		Status:       models.ParseStatus(ticket.Ticket.Status),
		Priority:     models.ParsePriority(ticket.Ticket.Priority),
		Organization: organization,
		Customer:     customer,
		CreatedAt:    ticket.Ticket.CreatedAt,
		UpdatedAt:    ticket.Ticket.UpdatedAt,
	}
	if thread.Subject == "" {
		thread.Subject = "No subject"
	}

	for _, comment := range comments.Comments {
		// Privacy comes from the explicit public flag when present,
		// otherwise from the nested metadata field.
		public := !comment.Metadata.IsPrivate
		if comment.Public != nil {
			public = *comment.Public
		}
		thread.Comments = append(thread.Comments, models.Comment{
			ID:        comment.ID.String(),
			Author:    models.Author{Name: comment.AuthorID.String()},
			Body:      comment.Body,
			Public:    public,
			CreatedAt: comment.CreatedAt,
		})
	}

	log.Debug().
		Str("ticket", thread.ID).
		Int("comments", len(thread.Comments)).
		Msg("Fetched Zendesk ticket")

	return thread, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	requestURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s/token:%s", c.email, c.token)))
	req.Header.Add("Authorization", "Basic "+auth)
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return &errs.NotFoundError{Kind: "resource", ID: path + ": " + string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &errs.HTTPError{Endpoint: "Zendesk", Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
