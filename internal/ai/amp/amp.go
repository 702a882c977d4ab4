// Package amp runs the Amp CLI as a child process to analyze a thread.
// The prompt goes in on stdin; the JSON analysis is recovered from
// whatever the tool prints on stdout.
package amp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lindesk/internal/conversation"
	"github.com/lindesk/internal/errs"
	"github.com/lindesk/internal/llm"
	"github.com/lindesk/internal/prompts"
	"github.com/lindesk/pkg/models"
)

const analysisTimeout = 5 * time.Minute

// Backend runs analyses through a local Amp CLI invocation.
type Backend struct {
	command string
	apiKey  string
	timeout time.Duration
}

// New creates a subprocess backend. command is the Amp executable
// (default "amp"); apiKey is exported to the child as AMP_API_KEY.
func New(command, apiKey string) *Backend {
	if command == "" {
		command = "amp"
	}
	return &Backend{
		command: command,
		apiKey:  apiKey,
		timeout: analysisTimeout,
	}
}

// Analyze spawns the CLI, feeds it the analysis prompt, and parses its
// output. The child is bound to a timeout context, so it is killed on
// every exit path, including caller cancellation.
func (b *Backend) Analyze(ctx context.Context, thread *models.Thread, customPrompt, codebasePath string) (*models.Analysis, error) {
	if b.apiKey == "" {
		return nil, &errs.ConfigMissingError{
			Field: "Amp API key",
			Hint:  "Set LINDESK_AMP_APIKEY or configure via lindesk config.",
		}
	}

	doc := conversation.Build(thread, customPrompt != "")
	prompt := prompts.Analysis(thread, doc, customPrompt)

	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, b.command)
	cmd.Env = append(os.Environ(), "AMP_API_KEY="+b.apiKey)
	cmd.Stdin = strings.NewReader(prompt)
	if codebasePath != "" {
		cmd.Dir = codebasePath
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Don't wait forever on inherited pipes if the tool leaves a child
	// behind after the kill.
	cmd.WaitDelay = 10 * time.Second

	log.Debug().
		Str("command", b.command).
		Str("ticket", thread.ID).
		Int("prompt_bytes", len(prompt)).
		Msg("Starting Amp analysis")

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &errs.TimeoutError{Op: "Amp analysis", Limit: b.timeout}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("Amp process exited with code %d: %s",
				exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("failed to start Amp process: %w", err)
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return nil, &errs.EmptyResponseError{Backend: "Amp"}
	}

	if payload, ok := llm.ExtractJSON(output); ok {
		return payload.ToAnalysis(thread), nil
	}

	// No recoverable JSON: keep the run by using the raw output as the
	// description with defaults.
	log.Warn().Str("ticket", thread.ID).Msg("No JSON found in Amp output, using raw text")
	return &models.Analysis{
		Title:               thread.Subject,
		Description:         output,
		Priority:            models.PriorityNormal,
		EstimatedComplexity: 3,
		Components:          []string{"General"},
		OriginalSubject:     thread.Subject,
		Thread:              thread,
	}, nil
}
