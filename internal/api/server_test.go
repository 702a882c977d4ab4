package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindesk/internal/config"
	"github.com/lindesk/internal/pipeline"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Source.Backend = "plain"
	cfg.AI.Backend = "deepsearch"
	// No credentials: pipeline runs fail at validation, keeping the
	// handler tests offline.

	runner, err := pipeline.NewRunner(cfg)
	require.NoError(t, err)
	return NewServer(cfg, runner)
}

func doJSON(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestConfigMasksSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Source.Backend = "plain"
	cfg.AI.Backend = "deepsearch"
	cfg.Plain.APIKey = "super-secret"
	runner, err := pipeline.NewRunner(cfg)
	require.NoError(t, err)
	server := NewServer(cfg, runner)

	rec := doJSON(t, server, http.MethodGet, "/api/config", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "super-secret")
	assert.Contains(t, rec.Body.String(), `"plain_api_key":"***"`)
}

func TestAnalyzeMissingID(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/analyze-thread", `{"customPrompt":"x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "threadId is required")
}

func TestAnalyzeInvalidBody(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/analyze-thread", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzePipelineErrorIs500(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/analyze-thread", `{"threadId":"th_1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Contains(t, rec.Body.String(), "Plain API key")
}

func TestAnalyzeLegacyTicketPath(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/analyze-ticket", `{"ticketId":"42"}`)

	// The legacy path binds ticketId and reaches the pipeline.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "threadId is required")
}

func TestConfigUpdate(t *testing.T) {
	server := newTestServer(t)
	path := filepath.Join(t.TempDir(), "lindesk.toml")
	server.SetConfigPath(path)

	rec := doJSON(t, server, http.MethodPost, "/api/config", `{"key":"slack.channel","value":"C099"}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	updated, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "C099", updated.Slack.Channel)
}

func TestConfigUpdateWithoutPath(t *testing.T) {
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/config", `{"key":"slack.channel","value":"C099"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeOversizedPayload(t *testing.T) {
	big := `{"threadId":"1","customPrompt":"` + strings.Repeat("a", 3<<20) + `"}`
	rec := doJSON(t, newTestServer(t), http.MethodPost, "/api/analyze-thread", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
