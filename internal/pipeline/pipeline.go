// Package pipeline sequences the transfer flow: fetch a support thread,
// analyze it, create a tracker issue, and post a notification.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lindesk/internal/ai"
	"github.com/lindesk/internal/config"
	"github.com/lindesk/internal/errs"
	"github.com/lindesk/internal/linear"
	"github.com/lindesk/internal/slack"
	"github.com/lindesk/internal/sources"
	"github.com/lindesk/pkg/models"
)

// IssueCreator creates a tracker issue from an analysis.
type IssueCreator interface {
	CreateIssue(ctx context.Context, analysis *models.Analysis, teamKey, sourceID string) (*models.Issue, error)
}

// Notifier posts an analysis to a chat channel.
type Notifier interface {
	Post(ctx context.Context, analysis *models.Analysis, sourceID, channel, orgName, ticketURL string) error
}

// Options selects the optional pipeline steps for one run.
type Options struct {
	Project      string // tracker team key; empty skips issue creation
	Channel      string // chat channel id; empty skips notification
	CustomPrompt string
	CodebasePath string
	OrgName      string
}

// Result is what a completed run hands back to the CLI or web caller.
type Result struct {
	RunID    string           `json:"runId"`
	SourceID string           `json:"sourceId"`
	Analysis *models.Analysis `json:"analysis"`
	Issue    *models.Issue    `json:"issue,omitempty"`
	Actions  []string         `json:"actions"`
	Success  bool             `json:"success"`
}

// Runner holds the configuration and the connectors built from it. One
// Runner serves many runs; each run is independent and stateless.
type Runner struct {
	cfg      *config.Config
	source   sources.Source
	analyzer ai.Analyzer
	issues   IssueCreator
	notifier Notifier
}

// NewRunner constructs every connector the configuration selects.
func NewRunner(cfg *config.Config) (*Runner, error) {
	source, err := sources.New(cfg)
	if err != nil {
		return nil, err
	}
	analyzer, err := ai.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		source:   source,
		analyzer: analyzer,
		issues:   linear.New(cfg.Linear.APIKey),
		notifier: slack.New(cfg.Slack.Token),
	}, nil
}

// Run executes the pipeline for one source id. Fetch, analysis and
// issue-creation failures abort the run; a notification failure after a
// successful issue creation is logged and does not fail the run, so a
// flaky chat API never masks a created issue. A created issue is not
// rolled back when the notification fails.
func (r *Runner) Run(ctx context.Context, sourceID string, opts Options) (*Result, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source id is required")
	}
	if err := r.validate(opts); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:    uuid.New().String(),
		SourceID: sourceID,
	}

	log.Info().Str("run", result.RunID).Str("ticket", sourceID).Msg("Fetching thread")
	thread, err := r.source.FetchThread(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	log.Info().Str("run", result.RunID).Str("backend", r.cfg.AI.Backend).Msg("Analyzing thread")
	analysis, err := r.analyzer.Analyze(ctx, thread, opts.CustomPrompt, opts.CodebasePath)
	if err != nil {
		return nil, err
	}
	result.Analysis = analysis

	if opts.Project != "" {
		log.Info().Str("run", result.RunID).Str("project", opts.Project).Msg("Creating issue")
		issue, err := r.issues.CreateIssue(ctx, analysis, opts.Project, sourceID)
		if err != nil {
			return nil, err
		}
		result.Issue = issue
		result.Actions = append(result.Actions, fmt.Sprintf("Created issue %s", issue.Identifier))
	}

	if opts.Channel != "" {
		orgName := opts.OrgName
		if orgName == "" {
			orgName = thread.Organization
		}
		log.Info().Str("run", result.RunID).Str("channel", opts.Channel).Msg("Posting notification")
		err := r.notifier.Post(ctx, analysis, sourceID, opts.Channel, orgName, r.ticketURL(sourceID))
		if err != nil {
			if result.Issue == nil {
				return nil, err
			}
			log.Warn().Err(err).Str("run", result.RunID).Msg("Notification failed after issue creation")
			result.Actions = append(result.Actions, "Notification failed: "+err.Error())
		} else {
			result.Actions = append(result.Actions, "Posted notification to "+opts.Channel)
		}
	}

	result.Success = true
	return result, nil
}

// validate surfaces missing credentials before any network call, so a
// run never fails halfway through for a reason known up front.
func (r *Runner) validate(opts Options) error {
	switch r.cfg.Source.Backend {
	case "zendesk":
		if r.cfg.Zendesk.Domain == "" || r.cfg.Zendesk.Email == "" || r.cfg.Zendesk.Token == "" {
			return &errs.ConfigMissingError{
				Field: "Zendesk credentials",
				Hint:  "Set LINDESK_ZENDESK_DOMAIN, LINDESK_ZENDESK_EMAIL and LINDESK_ZENDESK_TOKEN.",
			}
		}
	case "plain":
		if r.cfg.Plain.APIKey == "" {
			return &errs.ConfigMissingError{
				Field: "Plain API key",
				Hint:  "Set LINDESK_PLAIN_APIKEY or configure via lindesk config.",
			}
		}
	}

	switch r.cfg.AI.Backend {
	case "amp":
		if r.cfg.Amp.APIKey == "" {
			return &errs.ConfigMissingError{
				Field: "Amp API key",
				Hint:  "Set LINDESK_AMP_APIKEY or configure via lindesk config.",
			}
		}
	case "deepsearch":
		if r.cfg.DeepSearch.URL == "" || r.cfg.DeepSearch.Token == "" {
			return &errs.ConfigMissingError{
				Field: "Sourcegraph configuration",
				Hint:  "Set LINDESK_DEEPSEARCH_URL and LINDESK_DEEPSEARCH_TOKEN or configure via lindesk config.",
			}
		}
	case "llm":
		if r.cfg.LLM.APIKey == "" {
			return &errs.ConfigMissingError{
				Field: "LLM API key",
				Hint:  "Set LINDESK_LLM_APIKEY or configure via lindesk config.",
			}
		}
	}

	if opts.Project != "" && r.cfg.Linear.APIKey == "" {
		return &errs.ConfigMissingError{
			Field: "Linear API key",
			Hint:  "Set LINDESK_LINEAR_APIKEY or configure via lindesk config.",
		}
	}
	if opts.Channel != "" && r.cfg.Slack.Token == "" {
		return &errs.ConfigMissingError{
			Field: "Slack token",
			Hint:  "Set LINDESK_SLACK_TOKEN or configure via lindesk config.",
		}
	}
	return nil
}

// ticketURL points the notification link button back at the source
// system's agent view.
func (r *Runner) ticketURL(sourceID string) string {
	if r.cfg.Source.Backend == "zendesk" {
		return fmt.Sprintf("https://%s/agent/tickets/%s", r.cfg.Zendesk.Domain, sourceID)
	}
	return "https://app.plain.com/thread/" + sourceID
}
