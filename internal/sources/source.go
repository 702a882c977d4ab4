// Package sources defines the ticket-source capability and selects a
// backend implementation from configuration.
package sources

import (
	"context"
	"fmt"

	"github.com/lindesk/internal/config"
	"github.com/lindesk/internal/sources/plain"
	"github.com/lindesk/internal/sources/zendesk"
	"github.com/lindesk/pkg/models"
)

// Source fetches a support thread from a ticketing system and maps it
// into the canonical Thread representation.
type Source interface {
	FetchThread(ctx context.Context, id string) (*models.Thread, error)
}

// New returns the source backend selected by cfg.Source.Backend.
func New(cfg *config.Config) (Source, error) {
	switch cfg.Source.Backend {
	case "zendesk":
		return zendesk.New(cfg.Zendesk.Domain, cfg.Zendesk.Email, cfg.Zendesk.Token), nil
	case "plain":
		return plain.New(cfg.Plain.Endpoint, cfg.Plain.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported source backend: %s", cfg.Source.Backend)
	}
}
