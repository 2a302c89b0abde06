package client

import (
	"context"
	"fmt"

	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/effects"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/selectors"
	"github.com/TheMichaelB/songdeck/internal/services/auth"
	"github.com/TheMichaelB/songdeck/internal/services/songs"
	statsservice "github.com/TheMichaelB/songdeck/internal/services/stats"
	"github.com/TheMichaelB/songdeck/internal/session"
	"github.com/TheMichaelB/songdeck/internal/storage"
	"github.com/TheMichaelB/songdeck/internal/store"
	"github.com/TheMichaelB/songdeck/internal/transport"
)

// Client provides the high-level API for songdeck operations.
type Client struct {
	Auth  *auth.Service
	Songs *songs.Service
	Stats *statsservice.Service

	// Views caches derived collection data for the current state.
	Views *selectors.Memo

	config    *config.Config
	logger    *events.Logger
	transport transport.Transport
	storage   storage.Store
	store     *store.Store
	runner    *effects.Runner
}

// New creates a client backed by the HTTP transport.
func New(ctx context.Context, cfg *config.Config, logger *events.Logger) (*Client, error) {
	if logger == nil {
		logger = events.NewNopLogger()
	}
	return NewWithTransport(ctx, cfg, transport.NewTransport(&cfg.API, logger), logger)
}

// NewWithTransport creates a client on top of t. The session is hydrated
// from the persisted token before the store is created.
func NewWithTransport(ctx context.Context, cfg *config.Config, t transport.Transport, logger *events.Logger) (*Client, error) {
	if logger == nil {
		logger = events.NewNopLogger()
	}

	policy, err := policyFunc(&cfg.Effects)
	if err != nil {
		return nil, err
	}

	kv, err := storage.Open(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	authService := auth.NewService(t, kv, &cfg.Auth, logger)
	songsService := songs.NewService(t, logger)
	statsService := statsservice.NewService(t, logger)

	token, err := authService.RestoreToken()
	if err != nil {
		logger.WithError(err).Warn("Starting without persisted session")
		token = ""
	}

	initial := store.Initial()
	initial.Session = session.Hydrated(token)
	st := store.New(initial, logger)

	runner := effects.NewRunner(ctx, st, logger)
	st.Observe(func(ev intent.Event, _ store.State) {
		runner.Handle(ev)
	})

	authService.Bind(runner, policy)
	songsService.Bind(runner, policy)
	statsService.Bind(runner, policy)

	t.OnUnauthorized(func() {
		logger.Info("Server rejected credentials, logging out locally")
		st.Dispatch(session.ClientLogout())
	})

	logger.WithFields(map[string]interface{}{
		"base_url":      cfg.API.BaseURL,
		"storage":       cfg.Storage.Backend,
		"authenticated": token != "",
	}).Debug("Client ready")

	return &Client{
		Auth:      authService,
		Songs:     songsService,
		Stats:     statsService,
		Views:     selectors.NewMemo(),
		config:    cfg,
		logger:    logger,
		transport: t,
		storage:   kv,
		store:     st,
		runner:    runner,
	}, nil
}

// Dispatch sends ev to the store. Matching effect handlers start in the
// background.
func (c *Client) Dispatch(ev intent.Event) {
	c.store.Dispatch(ev)
}

// State returns the current store state.
func (c *Client) State() store.State {
	return c.store.GetState()
}

// Subscribe registers fn for state changes.
func (c *Client) Subscribe(fn store.Listener) func() {
	return c.store.Subscribe(fn)
}

// Wait blocks until all effect runs, including chained ones, have finished.
func (c *Client) Wait() {
	c.runner.Wait()
}

// Do dispatches ev, waits for the effects it triggers and returns the
// resulting state.
func (c *Client) Do(ev intent.Event) store.State {
	c.Dispatch(ev)
	c.Wait()
	return c.State()
}

// Close stops the effect runner and releases the transport and storage.
func (c *Client) Close() error {
	c.runner.Stop()

	var firstErr error
	if err := c.transport.Close(); err != nil {
		firstErr = err
	}
	if err := c.storage.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// policyFunc validates every configured policy up front so the returned
// function cannot fail.
func policyFunc(cfg *config.EffectsConfig) (effects.PolicyFunc, error) {
	if _, err := effects.ParsePolicy(cfg.Policy); err != nil {
		return nil, fmt.Errorf("effects policy: %w", err)
	}
	for t, name := range cfg.Policies {
		if _, err := effects.ParsePolicy(name); err != nil {
			return nil, fmt.Errorf("effects policy for %s: %w", t, err)
		}
	}

	return func(t intent.Type) effects.Policy {
		p, _ := effects.ParsePolicy(cfg.PolicyFor(string(t)))
		return p
	}, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *config.Config {
	return c.config
}
