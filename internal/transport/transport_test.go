package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/transport"
)

func newClient(t *testing.T, baseURL string, modify ...func(*config.APIConfig)) *transport.HTTPClient {
	t.Helper()
	cfg := &config.APIConfig{
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		UserAgent: "test",
	}
	for _, fn := range modify {
		fn(cfg)
	}

	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)
	client := transport.NewHTTPClient(cfg, logger)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestHTTPClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/songs", r.URL.Path)
		assert.Equal(t, "Rock", r.URL.Query().Get("genre"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "secret-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS","data":{"songs":[{"_id":"1","title":"A"}]}}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL+"/api/v1/", func(c *config.APIConfig) {
		c.APIKey = "secret-key"
	})
	client.SetToken("test-token")

	env, err := client.Get(context.Background(), "/songs", url.Values{"genre": {"Rock"}})
	require.NoError(t, err)
	assert.True(t, env.OK())

	var data struct {
		Songs []models.Song `json:"songs"`
	}
	require.NoError(t, env.Decode(&data))
	require.Len(t, data.Songs, 1)
	assert.Equal(t, "1", data.Songs[0].ID)
}

func TestHTTPClientWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{"status":"SUCCESS","token":"fresh"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL)

	env, err := client.Post(context.Background(), "/user/login", map[string]string{"password": "x"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", env.Token)
}

func TestHTTPClientSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "New title", body["title"])
		assert.NotContains(t, body, "_id")

		_, _ = w.Write([]byte(`{"status":"SUCCESS","data":{"_id":"7","title":"New title"}}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	update := models.SongUpdate{ID: "7", SongPayload: models.SongPayload{Title: "New title"}}

	env, err := client.Put(context.Background(), "/songs/7", update)
	require.NoError(t, err)

	var song models.Song
	require.NoError(t, env.Decode(&song))
	assert.Equal(t, "7", song.ID)
}

func TestHTTPClientErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"json message", http.StatusBadRequest, `{"status":"FAILURE","message":"Title too long"}`, 400, "Title too long"},
		{"plain text", http.StatusInternalServerError, "database unavailable", 500, "database unavailable"},
		{"html page", http.StatusNotFound, "<html>nope</html>", 404, ""},
		{"rejected envelope on 200", http.StatusOK, `{"status":"FAILURE","message":"Song not found"}`, 200, "Song not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newClient(t, server.URL)
			_, err := client.Delete(context.Background(), "/songs/1")
			require.Error(t, err)

			var apiErr *models.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestHTTPClientUnauthorizedHook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	client.SetToken("expired")

	var calls int32
	client.OnUnauthorized(func() { atomic.AddInt32(&calls, 1) })

	_, err := client.Post(context.Background(), "/user/login", nil)

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())
	assert.Equal(t, "Invalid credentials", models.ErrorMessage(err, "Login failed"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	client := newClient(t, baseURL)
	_, err := client.Get(context.Background(), "/songs", nil)

	var netErr *models.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.MethodGet, netErr.Method)
	assert.Equal(t, models.NetworkErrorMessage, models.ErrorMessage(err, "Failed to fetch songs"))
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := newClient(t, server.URL, func(c *config.APIConfig) {
		c.Timeout = 50 * time.Millisecond
	})

	_, err := client.Get(context.Background(), "/songs/stats", nil)

	var netErr *models.NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestHTTPClientRateLimit(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"status":"SUCCESS"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, func(c *config.APIConfig) {
		c.RateLimit = 20
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "/songs", nil)
		require.NoError(t, err)
	}

	// Burst of one: the 2nd and 3rd request wait about 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHTTPClientRetriesGetOnly(t *testing.T) {
	var gets, posts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			atomic.AddInt32(&posts, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if atomic.AddInt32(&gets, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"SUCCESS","data":{"stats":{"totalSongs":3}}}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, func(c *config.APIConfig) {
		c.MaxRetries = 3
	})

	_, err := client.Get(context.Background(), "/songs/stats", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&gets))

	_, err = client.Post(context.Background(), "/songs", map[string]string{"title": "x"})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestTransportInterface(t *testing.T) {
	var _ transport.Transport = transport.NewTransport(&config.APIConfig{BaseURL: "http://localhost", Timeout: time.Second}, nil)
	var _ transport.Transport = transport.NewMockTransport()
}

func TestMockTransport(t *testing.T) {
	mock := transport.NewMockTransport()
	mock.AddResponse(http.MethodGet, "/songs", map[string]interface{}{
		"songs": []models.Song{{ID: "1", Title: "A"}},
	})
	mock.AddError(http.MethodPost, "/user/login", &models.APIError{StatusCode: 401, Message: "Invalid credentials"})

	var unauthorized bool
	mock.OnUnauthorized(func() { unauthorized = true })
	mock.SetToken("tok")

	ctx := context.Background()
	env, err := mock.Get(ctx, "/songs", nil)
	require.NoError(t, err)
	assert.Contains(t, string(env.Data), `"_id":"1"`)

	_, err = mock.Post(ctx, "/user/login", nil)
	require.Error(t, err)
	assert.True(t, unauthorized)

	_, err = mock.Delete(ctx, "/songs/unknown")
	assert.EqualError(t, err, "no mock response for DELETE /songs/unknown")

	calls := mock.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "tok", calls[0].Token)
	assert.Equal(t, http.MethodPost, calls[1].Method)

	require.NoError(t, mock.Close())
	assert.True(t, mock.Closed())
}
