// Package ai defines the analysis capability and selects a backend
// implementation from configuration.
package ai

import (
	"context"
	"fmt"

	"github.com/lindesk/internal/ai/amp"
	"github.com/lindesk/internal/ai/deepsearch"
	"github.com/lindesk/internal/ai/langchain"
	"github.com/lindesk/internal/config"
	"github.com/lindesk/pkg/models"
)

// Analyzer submits a thread's conversation to an AI backend and maps
// the response into a canonical Analysis.
//
// customPrompt replaces the default analysis guidance and suppresses
// the internal-notes banner in the conversation. codebasePath
// optionally roots the subprocess backend in a local checkout; the
// HTTP backends ignore it.
type Analyzer interface {
	Analyze(ctx context.Context, thread *models.Thread, customPrompt, codebasePath string) (*models.Analysis, error)
}

// New returns the analysis backend selected by cfg.AI.Backend.
func New(cfg *config.Config) (Analyzer, error) {
	switch cfg.AI.Backend {
	case "amp":
		return amp.New(cfg.Amp.Command, cfg.Amp.APIKey), nil
	case "deepsearch":
		return deepsearch.New(cfg.DeepSearch.URL, cfg.DeepSearch.Token), nil
	case "llm":
		return langchain.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unsupported AI backend: %s", cfg.AI.Backend)
	}
}
