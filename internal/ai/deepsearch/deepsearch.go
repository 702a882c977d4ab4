// Package deepsearch analyzes threads through the Sourcegraph Deep
// Search conversation API: create a conversation, then poll its first
// question until it completes or fails.
package deepsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lindesk/internal/conversation"
	"github.com/lindesk/internal/errs"
	"github.com/lindesk/internal/prompts"
	"github.com/lindesk/internal/retry"
	"github.com/lindesk/pkg/models"
)

// Backend analyzes threads through a create+poll HTTP API.
type Backend struct {
	baseURL string
	token   string
	client  *http.Client
	poll    retry.PollConfig
}

// New creates a Deep Search backend rooted at the given Sourcegraph
// instance URL.
func New(baseURL, token string) *Backend {
	return &Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		poll:    retry.DefaultPollConfig("Deep Search analysis"),
	}
}

type question struct {
	ID      json.Number `json:"id"`
	Status  string      `json:"status"`
	Answer  string      `json:"answer"`
	Sources []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"sources"`
	SuggestedFollowups []string `json:"suggested_followups"`
}

type conversationPayload struct {
	ID        json.Number `json:"id"`
	Questions []question  `json:"questions"`
}

// Analyze creates a conversation for the thread's question and polls
// at the configured interval until the first question reports completed or
// failed. Exhausting the attempt cap yields a Timeout error, distinct
// from a backend-reported failure.
func (b *Backend) Analyze(ctx context.Context, thread *models.Thread, customPrompt, _ string) (*models.Analysis, error) {
	if b.baseURL == "" || b.token == "" {
		return nil, &errs.ConfigMissingError{
			Field: "Sourcegraph configuration",
			Hint:  "Set LINDESK_DEEPSEARCH_URL and LINDESK_DEEPSEARCH_TOKEN or configure via lindesk config.",
		}
	}

	doc := conversation.Build(thread, customPrompt != "")
	q := prompts.Question(thread, doc, customPrompt)

	created, err := b.createConversation(ctx, q)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("conversation", created.ID.String()).
		Str("ticket", thread.ID).
		Msg("Created Deep Search conversation")

	var final *question
	err = retry.Poll(ctx, b.poll, func(ctx context.Context, attempt int) (bool, error) {
		state, err := b.getConversation(ctx, created.ID.String())
		if err != nil {
			return false, err
		}
		if len(state.Questions) == 0 {
			return false, nil
		}
		first := state.Questions[0]
		switch first.Status {
		case "completed":
			final = &first
			return true, nil
		case "failed":
			return false, fmt.Errorf("Deep Search analysis failed for conversation %s", created.ID)
		default:
			log.Debug().
				Int("attempt", attempt).
				Str("status", first.Status).
				Msg("Deep Search still running")
			return false, nil
		}
	})
	if err != nil {
		return nil, err
	}

	answer := strings.TrimSpace(final.Answer)
	if answer == "" {
		return nil, &errs.EmptyResponseError{Backend: "Deep Search"}
	}

	return b.buildAnalysis(answer, final, thread), nil
}

var (
	h1Pattern   = regexp.MustCompile(`(?m)^# (.+)$`)
	metaPattern = regexp.MustCompile(`(?i)^(thinking|let me)\b`)
)

// buildAnalysis extracts an H1 title (falling back to the original
// subject), scrubs meta-commentary lines, and passes sources and
// follow-ups through.
func (b *Backend) buildAnalysis(answer string, q *question, thread *models.Thread) *models.Analysis {
	title := thread.Subject
	if m := h1Pattern.FindStringSubmatch(answer); m != nil {
		title = strings.TrimSpace(m[1])
		answer = strings.Replace(answer, m[0], "", 1)
	}

	lines := strings.Split(answer, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if metaPattern.MatchString(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	description := strings.TrimSpace(strings.Join(kept, "\n"))

	analysis := &models.Analysis{
		Title:               title,
		Description:         description,
		Priority:            models.PriorityNormal,
		EstimatedComplexity: 3,
		Components:          []string{"General"},
		OriginalSubject:     thread.Subject,
		Thread:              thread,
		SuggestedFollowups:  q.SuggestedFollowups,
	}
	for _, source := range q.Sources {
		analysis.Sources = append(analysis.Sources, models.Source{Title: source.Title, URL: source.URL})
	}
	return analysis
}

func (b *Backend) createConversation(ctx context.Context, question string) (*conversationPayload, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var payload conversationPayload
	if err := b.do(ctx, http.MethodPost, "/.api/deepsearch/v1/conversations", bytes.NewReader(body), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (b *Backend) getConversation(ctx context.Context, id string) (*conversationPayload, error) {
	var payload conversationPayload
	if err := b.do(ctx, http.MethodGet, "/.api/deepsearch/v1/conversations/"+id, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (b *Backend) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Authorization", "token "+b.token)
	req.Header.Add("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &errs.HTTPError{Endpoint: "Deep Search", Status: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
