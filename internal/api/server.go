// Package api exposes the pipeline over HTTP for the web front-end and
// for webhook-style automation.
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/lindesk/internal/config"
	"github.com/lindesk/internal/pipeline"
)

// Server wraps an echo instance serving the analyze and config
// endpoints.
type Server struct {
	echo       *echo.Echo
	cfg        *config.Config
	configPath string
	runner     *pipeline.Runner
}

func NewServer(cfg *config.Config, runner *pipeline.Runner) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("2M"))

	s := &Server{echo: e, cfg: cfg, runner: runner}

	e.GET("/api/health", s.handleHealth)
	e.GET("/api/config", s.handleConfig)
	e.POST("/api/config", s.handleConfigUpdate)
	e.POST("/api/analyze-thread", s.handleAnalyze)
	// Older deployments still post to the ticket-flavored path.
	e.POST("/api/analyze-ticket", s.handleAnalyze)

	return s
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port int) error {
	log.Info().Int("port", port).Msg("Starting API server")
	return s.echo.Start(fmt.Sprintf(":%d", port))
}

// Handler exposes the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler { return s.echo }

type analyzeRequest struct {
	ThreadID      string `json:"threadId"`
	TicketID      string `json:"ticketId"`
	CustomPrompt  string `json:"customPrompt"`
	SlackChannel  string `json:"slackChannel"`
	LinearProject string `json:"linearProject"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	id := req.ThreadID
	if id == "" {
		id = req.TicketID
	}
	if id == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "threadId is required"})
	}

	result, err := s.runner.Run(c.Request().Context(), id, pipeline.Options{
		Project:      req.LinearProject,
		Channel:      req.SlackChannel,
		CustomPrompt: req.CustomPrompt,
	})
	if err != nil {
		log.Error().Err(err).Str("ticket", id).Msg("Pipeline run failed")
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

func (s *Server) handleConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.cfg.Masked())
}

// SetConfigPath sets the file that POST /api/config writes to. Updates
// are rejected until a path is configured.
func (s *Server) SetConfigPath(path string) { s.configPath = path }

type configUpdateRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleConfigUpdate(c echo.Context) error {
	if s.configPath == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "no writable config file; start the server with --config"})
	}

	var req configUpdateRequest
	if err := c.Bind(&req); err != nil || req.Key == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "key and value are required"})
	}

	if err := config.Set(s.configPath, req.Key, req.Value); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	log.Info().Str("key", req.Key).Msg("Updated configuration")
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
