package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// HTTPClient handles HTTP communication with the API.
type HTTPClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	apiKey    string
	limiter   *rate.Limiter
	logger    *events.Logger

	mu             sync.RWMutex
	token          string
	onUnauthorized func()

	// Retry configuration, GET only
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPClient creates an HTTP client.
func NewHTTPClient(cfg *config.APIConfig, logger *events.Logger) *HTTPClient {
	if logger == nil {
		logger = events.NewNopLogger()
	}

	// Create transport with HTTP/2 support
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
		},
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	c := &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		retryDelay: 500 * time.Millisecond,
		logger:     logger.WithField("component", "http_client"),
	}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return c
}

// SetToken sets the authentication token. An empty token stops the
// Authorization header from being sent.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// GetToken returns the current authentication token.
func (c *HTTPClient) GetToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// OnUnauthorized registers fn to run on every 401 response, before the
// error is returned to the caller.
func (c *HTTPClient) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *HTTPClient) Get(ctx context.Context, path string, params url.Values) (*models.Envelope, error) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var env *models.Envelope
	err := c.retry(ctx, func() error {
		var err error
		env, err = c.do(ctx, http.MethodGet, path, nil)
		return err
	})
	return env, err
}

func (c *HTTPClient) Post(ctx context.Context, path string, body interface{}) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *HTTPClient) Put(ctx context.Context, path string, body interface{}) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *HTTPClient) Patch(ctx context.Context, path string, body interface{}) (*models.Envelope, error) {
	return c.do(ctx, http.MethodPatch, path, body)
}

func (c *HTTPClient) Delete(ctx context.Context, path string) (*models.Envelope, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// do performs a single request and decodes the envelope.
func (c *HTTPClient) do(ctx context.Context, method, path string, payload interface{}) (*models.Envelope, error) {
	endpoint := c.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &models.NetworkError{Method: method, URL: endpoint, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if token := c.GetToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logger := events.FromContext(ctx).WithFields(map[string]interface{}{
		"method": method,
		"url":    endpoint,
	})
	logger.Debug("Sending request")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &models.NetworkError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.NetworkError{Method: method, URL: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}

	logger.WithFields(map[string]interface{}{
		"status":   resp.StatusCode,
		"size":     len(respBody),
		"duration": time.Since(start).String(),
	}).Debug("Received response")

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseError(resp.StatusCode, respBody)
	}

	env := &models.Envelope{}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(respBody, env); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if err := env.Err(resp.StatusCode); err != nil {
		return nil, err
	}

	return env, nil
}

func (c *HTTPClient) unauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()

	if fn != nil {
		c.logger.Debug("Unauthorized response, running hook")
		fn()
	}
}

// parseError builds an APIError from a non-2xx response. Bodies that are not
// JSON become the message only when they look like plain text.
func parseError(status int, body []byte) error {
	apiErr := &models.APIError{StatusCode: status}

	var env models.Envelope
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Status = env.Status
		apiErr.Message = env.Message
		return apiErr
	}

	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "<") && len(text) < 512 {
		apiErr.Message = text
	}
	return apiErr
}

// retry executes fn with exponential backoff. Only network failures and
// gateway errors are retried.
func (c *HTTPClient) retry(ctx context.Context, fn func() error) error {
	var err error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Debug("Retrying request")

			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
	}

	return err
}

func isRetryable(err error) bool {
	var netErr *models.NetworkError
	if errors.As(err, &netErr) {
		return !errors.Is(err, context.Canceled)
	}

	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}
