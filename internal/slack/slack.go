// Package slack posts analysis notifications as Slack block messages.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/lindesk/internal/errs"
	"github.com/lindesk/pkg/models"
)

const (
	postMessageURL = "https://slack.com/api/chat.postMessage"

	// Slack rejects header blocks longer than 150 characters and
	// section blocks past ~3000, so chunks stay under 2800 with some
	// slack for mrkdwn expansion.
	maxTitleLength = 150
	maxChunkSize   = 2800
	newlineWindow  = 500
)

// ErrNoChannel means the caller never supplied a channel, as opposed to
// Slack rejecting the message.
var ErrNoChannel = errors.New("Slack channel not specified. Use --channel option or set a default channel")

// Client posts messages with a bot token, pacing calls through a rate
// limiter to stay inside Slack's per-channel message limits.
type Client struct {
	token   string
	client  *http.Client
	limiter *rate.Limiter
	apiURL  string
}

func New(token string) *Client {
	return &Client{
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		apiURL:  postMessageURL,
	}
}

type block map[string]interface{}

// Post sends the analysis to the channel as a header, a link button to
// the source ticket, and one section block per description chunk.
func (c *Client) Post(ctx context.Context, analysis *models.Analysis, sourceID, channel, orgName, ticketURL string) error {
	if c.token == "" {
		return &errs.ConfigMissingError{
			Field: "Slack token",
			Hint:  "Set LINDESK_SLACK_TOKEN or configure via lindesk config.",
		}
	}
	if channel == "" {
		return ErrNoChannel
	}

	title := headerTitle(analysis, orgName)
	blocks := []block{
		{"type": "header", "text": block{"type": "plain_text", "text": title}},
		{"type": "divider"},
		{"type": "actions", "elements": []block{{
			"type": "button",
			"text": block{"type": "plain_text", "text": "View Ticket"},
			"url":  ticketURL,
		}}},
	}

	processed := FormatDescription(analysis.Description)
	for _, chunk := range ChunkText(processed, maxChunkSize) {
		blocks = append(blocks, block{"type": "section", "text": block{"type": "mrkdwn", "text": chunk}})
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	log.Debug().Str("channel", channel).Str("ticket", sourceID).Int("blocks", len(blocks)).Msg("Posting to Slack")

	body, err := json.Marshal(map[string]interface{}{"channel": channel, "blocks": blocks})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("Slack API error: %s", result.Error)
	}
	return nil
}

// headerTitle prefers the analysis title and falls back to a generic
// line naming the customer. Slack caps header text at 150 characters.
func headerTitle(analysis *models.Analysis, orgName string) string {
	customer := orgName
	if customer == "" && analysis.Thread != nil && analysis.Thread.Organization != "" {
		customer = analysis.Thread.Organization
	}
	if customer == "" {
		customer = "Customer"
	}

	title := analysis.Title
	if title == "" {
		title = fmt.Sprintf("Need help with below support issue for %s", customer)
	}
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}

var (
	headingPattern   = regexp.MustCompile(`## ([^\n]+)`)
	blankLinePattern = regexp.MustCompile(`\n\n`)
)

// FormatDescription strips the internal-only Engineering
// Recommendations section and rewrites markdown into Slack mrkdwn.
func FormatDescription(description string) string {
	description = stripRecommendations(description)
	description = headingPattern.ReplaceAllString(description, "*$1*")
	description = strings.ReplaceAll(description, "**", "*")
	description = blankLinePattern.ReplaceAllString(description, "\n")
	return strings.TrimSpace(description)
}

// stripRecommendations removes everything from an "## Engineering
// Recommendations" heading up to the next "## " heading or the end of
// the text. That section is internal-only and not meant for the
// notification audience.
func stripRecommendations(description string) string {
	start := strings.Index(description, "## Engineering Recommendations")
	if start < 0 {
		return description
	}
	rest := description[start+len("## Engineering Recommendations"):]
	if next := strings.Index(rest, "## "); next >= 0 {
		return description[:start] + rest[next:]
	}
	return description[:start]
}

// ChunkText splits text into pieces of at most maxSize bytes. When a
// split would land mid-line it backs up to the last newline inside the
// final newlineWindow bytes of the chunk so messages don't break
// mid-sentence; failing that it backs up to a rune boundary so a
// multibyte character is never split.
func ChunkText(text string, maxSize int) []string {
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		chunk := text[start:end]
		lastNewline := strings.LastIndex(chunk, "\n")
		if lastNewline > 0 && lastNewline > maxSize-newlineWindow {
			chunks = append(chunks, chunk[:lastNewline])
			start += lastNewline + 1
		} else {
			chunks = append(chunks, chunk)
			start = end
		}
	}
	return chunks
}

// SetAPIURL overrides the postMessage endpoint, used by tests.
func (c *Client) SetAPIURL(url string) { c.apiURL = url }
