package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/TheMichaelB/songdeck/internal/models"
)

// MockTransport provides a mock implementation for testing.
type MockTransport struct {
	mu sync.Mutex

	// Response configuration, keyed by "METHOD path"
	Responses map[string]*models.Envelope
	Errors    map[string]error

	// Error injection for every call
	Err error

	// Request tracking
	Requests []Request

	// State
	token          string
	onUnauthorized func()
	closed         bool
}

// Request tracks a call made through the mock.
type Request struct {
	Method string
	Path   string
	Params url.Values
	Body   interface{}
	Token  string
}

// NewMockTransport creates a mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Responses: make(map[string]*models.Envelope),
		Errors:    make(map[string]error),
		Requests:  []Request{},
	}
}

func (m *MockTransport) Get(ctx context.Context, path string, params url.Values) (*models.Envelope, error) {
	return m.call(ctx, Request{Method: http.MethodGet, Path: path, Params: params})
}

func (m *MockTransport) Post(ctx context.Context, path string, body interface{}) (*models.Envelope, error) {
	return m.call(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (m *MockTransport) Put(ctx context.Context, path string, body interface{}) (*models.Envelope, error) {
	return m.call(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

func (m *MockTransport) Patch(ctx context.Context, path string, body interface{}) (*models.Envelope, error) {
	return m.call(ctx, Request{Method: http.MethodPatch, Path: path, Body: body})
}

func (m *MockTransport) Delete(ctx context.Context, path string) (*models.Envelope, error) {
	return m.call(ctx, Request{Method: http.MethodDelete, Path: path})
}

func (m *MockTransport) call(ctx context.Context, req Request) (*models.Envelope, error) {
	m.mu.Lock()

	req.Token = m.token
	m.Requests = append(m.Requests, req)

	key := req.Method + " " + req.Path
	err := m.Err
	if e, ok := m.Errors[key]; ok {
		err = e
	}
	resp, ok := m.Responses[key]
	hook := m.onUnauthorized
	m.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, &models.NetworkError{Method: req.Method, URL: req.Path, Err: ctxErr}
	}

	if err != nil {
		var apiErr *models.APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() && hook != nil {
			hook()
		}
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("no mock response for %s", key)
	}
	if apiErr := resp.Err(http.StatusOK); apiErr != nil {
		return nil, apiErr
	}
	return resp, nil
}

// SetToken mocks token setting.
func (m *MockTransport) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// GetToken returns the current token.
func (m *MockTransport) GetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// OnUnauthorized registers the 401 hook.
func (m *MockTransport) OnUnauthorized(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUnauthorized = fn
}

// Close mocks connection closing.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Helper methods for test setup

// AddResponse sets a successful response whose data field is data
// marshalled to JSON.
func (m *MockTransport) AddResponse(method, path string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(fmt.Sprintf("mock response for %s %s: %v", method, path, err))
	}
	m.AddEnvelope(method, path, &models.Envelope{Status: models.StatusSuccess, Data: raw})
}

// AddEnvelope sets the full response envelope for a request.
func (m *MockTransport) AddEnvelope(method, path string, env *models.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[method+" "+path] = env
}

// AddError makes a request fail with err.
func (m *MockTransport) AddError(method, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method+" "+path] = err
}

// Calls returns a copy of the tracked requests.
func (m *MockTransport) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.Requests))
	copy(out, m.Requests)
	return out
}
