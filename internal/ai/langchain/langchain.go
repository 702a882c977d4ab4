// Package langchain analyzes threads through any OpenAI-compatible
// completion endpoint via langchaingo.
package langchain

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/lindesk/internal/conversation"
	"github.com/lindesk/internal/errs"
	"github.com/lindesk/internal/llm"
	"github.com/lindesk/internal/prompts"
	"github.com/lindesk/pkg/models"
)

// Backend sends the analysis prompt as a single completion call.
type Backend struct {
	baseURL string
	apiKey  string
	model   string
}

func New(baseURL, apiKey, model string) *Backend {
	return &Backend{baseURL: baseURL, apiKey: apiKey, model: model}
}

func (b *Backend) Analyze(ctx context.Context, thread *models.Thread, customPrompt, _ string) (*models.Analysis, error) {
	if b.apiKey == "" {
		return nil, &errs.ConfigMissingError{
			Field: "LLM API key",
			Hint:  "Set LINDESK_LLM_APIKEY or configure via lindesk config.",
		}
	}

	opts := []openai.Option{
		openai.WithToken(b.apiKey),
		openai.WithModel(b.model),
	}
	if b.baseURL != "" {
		opts = append(opts, openai.WithBaseURL(b.baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	doc := conversation.Build(thread, customPrompt != "")
	prompt := prompts.Analysis(thread, doc, customPrompt)

	log.Debug().Str("model", b.model).Str("ticket", thread.ID).Msg("Requesting LLM analysis")

	output, err := llms.GenerateFromSinglePrompt(ctx, client, prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(output) == "" {
		return nil, &errs.EmptyResponseError{Backend: "LLM"}
	}

	payload, ok := llm.ExtractJSON(output)
	if !ok {
		log.Warn().Msg("LLM output contained no parseable JSON, using raw text")
		return (&llm.AnalysisPayload{Description: output}).ToAnalysis(thread), nil
	}
	return payload.ToAnalysis(thread), nil
}
