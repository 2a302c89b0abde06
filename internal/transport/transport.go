package transport

import (
	"context"
	"net/url"

	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// Transport is the REST surface the effect handlers depend on. Every call
// returns the decoded response envelope; requests the server rejects return
// *models.APIError and requests that never got a response return
// *models.NetworkError.
type Transport interface {
	Get(ctx context.Context, path string, params url.Values) (*models.Envelope, error)
	Post(ctx context.Context, path string, body interface{}) (*models.Envelope, error)
	Put(ctx context.Context, path string, body interface{}) (*models.Envelope, error)
	Patch(ctx context.Context, path string, body interface{}) (*models.Envelope, error)
	Delete(ctx context.Context, path string) (*models.Envelope, error)

	// Authentication
	SetToken(token string)
	GetToken() string

	// OnUnauthorized registers fn to run whenever the server answers 401.
	OnUnauthorized(fn func())

	// Lifecycle
	Close() error
}

// NewTransport creates the HTTP transport.
func NewTransport(cfg *config.APIConfig, logger *events.Logger) Transport {
	return NewHTTPClient(cfg, logger)
}
