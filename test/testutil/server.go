package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/TheMichaelB/songdeck/internal/models"
)

// APIPrefix is the path every backend route lives under.
const APIPrefix = "/api/v1"

var signingKey = []byte("songdeck-test-secret")

type account struct {
	user     models.User
	password string
}

type failure struct {
	status  int
	message string
}

// TestServer is an in-memory song backend speaking the envelope protocol.
type TestServer struct {
	*httptest.Server

	// APIKey, when set, must arrive in the x-api-key header.
	APIKey string
	// RegisterIssuesToken makes registration return a token.
	RegisterIssuesToken bool

	mu       sync.RWMutex
	accounts map[string]*account
	songs    []models.Song
	revoked  map[string]bool
	failures map[string]failure
	hits     map[string]int
	tokenTTL time.Duration
}

// NewTestServer starts a backend with the default test account.
func NewTestServer() *TestServer {
	ts := &TestServer{
		RegisterIssuesToken: true,
		accounts:            make(map[string]*account),
		revoked:             make(map[string]bool),
		failures:            make(map[string]failure),
		hits:                make(map[string]int),
		tokenTTL:            time.Hour,
	}

	r := mux.NewRouter()
	api := r.PathPrefix(APIPrefix).Subrouter()
	api.Use(ts.countMiddleware, ts.apiKeyMiddleware, ts.failureMiddleware)

	api.HandleFunc("/user/login", ts.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/user", ts.handleRegister).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(ts.authMiddleware)
	authed.HandleFunc("/auth/logout", ts.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/songs", ts.handleListSongs).Methods(http.MethodGet)
	authed.HandleFunc("/songs", ts.handleCreateSong).Methods(http.MethodPost)
	authed.HandleFunc("/songs/stats", ts.handleStats).Methods(http.MethodGet)
	authed.HandleFunc("/songs/{id}", ts.handleUpdateSong).Methods(http.MethodPut)
	authed.HandleFunc("/songs/{id}", ts.handleDeleteSong).Methods(http.MethodDelete)

	ts.Server = httptest.NewServer(r)
	ts.AddUser(SampleUser(), TestPassword)
	return ts
}

// BaseURL returns the URL clients should be configured with.
func (ts *TestServer) BaseURL() string {
	return ts.URL + APIPrefix
}

// AddUser registers an account and returns the stored profile.
func (ts *TestServer) AddUser(user *models.User, password string) models.User {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	u := *user
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ts.accounts[strings.ToLower(u.Email)] = &account{user: u, password: password}
	return u
}

// AddSong stores a song, assigning an id when it has none.
func (ts *TestServer) AddSong(song models.Song) models.Song {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	ts.songs = append(ts.songs, song)
	return song
}

// Songs returns a copy of the stored collection.
func (ts *TestServer) Songs() []models.Song {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return append([]models.Song(nil), ts.songs...)
}

// IssueToken signs a token for userID that expires after ttl.
func (ts *TestServer) IssueToken(userID string, ttl time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("sign test token: %v", err))
	}
	return token
}

// RevokeAll rejects every token from now on.
func (ts *TestServer) RevokeAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.revoked["*"] = true
}

// SetFailure makes the route answer with status and message. route is the
// path template relative to the API prefix, e.g. "/songs/{id}".
func (ts *TestServer) SetFailure(method, route string, status int, message string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.failures[method+" "+route] = failure{status: status, message: message}
}

// ClearFailures removes injected failures.
func (ts *TestServer) ClearFailures() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.failures = make(map[string]failure)
}

// Hits returns how many requests reached the route.
func (ts *TestServer) Hits(method, route string) int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.hits[method+" "+route]
}

func routeKey(r *http.Request) string {
	tmpl, err := mux.CurrentRoute(r).GetPathTemplate()
	if err != nil {
		tmpl = r.URL.Path
	}
	return r.Method + " " + strings.TrimPrefix(tmpl, APIPrefix)
}

func (ts *TestServer) countMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.hits[routeKey(r)]++
		ts.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (ts *TestServer) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ts.APIKey != "" && r.Header.Get("x-api-key") != ts.APIKey {
			reject(w, http.StatusForbidden, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ts *TestServer) failureMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.RLock()
		f, ok := ts.failures[routeKey(r)]
		ts.mu.RUnlock()
		if ok {
			reject(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ts *TestServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || !ts.validToken(raw) {
			reject(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ts *TestServer) validToken(raw string) bool {
	ts.mu.RLock()
	revoked := ts.revoked["*"] || ts.revoked[raw]
	ts.mu.RUnlock()
	if revoked {
		return false
	}

	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && token.Valid
}

func (ts *TestServer) findAccount(id string) *account {
	id = strings.ToLower(strings.TrimSpace(id))
	if acc, ok := ts.accounts[id]; ok {
		return acc
	}
	for _, acc := range ts.accounts {
		if acc.user.PhoneNumber == id {
			return acc
		}
	}
	return nil
}

func (ts *TestServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds models.LoginCredentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		reject(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ts.mu.RLock()
	acc := ts.findAccount(creds.EmailOrPhoneNumber)
	ttl := ts.tokenTTL
	ts.mu.RUnlock()

	if acc == nil || acc.password != creds.Password {
		reject(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.StatusSuccess,
		"token":  ts.IssueToken(acc.user.ID, ttl),
		"data":   map[string]interface{}{"user": acc.user},
	})
}

func (ts *TestServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var data models.RegisterData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		reject(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ts.mu.Lock()
	if ts.findAccount(data.Email) != nil {
		ts.mu.Unlock()
		reject(w, http.StatusConflict, "This email is already registered")
		return
	}
	now := time.Now().UTC()
	user := models.User{
		ID:          uuid.NewString(),
		FirstName:   data.FirstName,
		LastName:    data.LastName,
		Email:       data.Email,
		PhoneNumber: data.PhoneNumber,
		Role:        "user",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ts.accounts[strings.ToLower(user.Email)] = &account{user: user, password: data.Password}
	ttl := ts.tokenTTL
	ts.mu.Unlock()

	body := map[string]interface{}{"user": user}
	if ts.RegisterIssuesToken {
		body["token"] = ts.IssueToken(user.ID, ttl)
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   body,
	})
}

func (ts *TestServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	ts.mu.Lock()
	ts.revoked[raw] = true
	ts.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  models.StatusSuccess,
		"message": "Logged out",
	})
}

func (ts *TestServer) handleListSongs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   map[string]interface{}{"songs": ts.Songs()},
	})
}

func (ts *TestServer) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var payload models.SongPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		reject(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := payload.Validate(); err != nil {
		reject(w, http.StatusBadRequest, err.Error())
		return
	}

	song := ts.AddSong(songFromPayload("", payload))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   map[string]interface{}{"song": song},
	})
}

func (ts *TestServer) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var payload models.SongPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		reject(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ts.mu.Lock()
	i := indexOf(ts.songs, id)
	if i < 0 {
		ts.mu.Unlock()
		reject(w, http.StatusNotFound, "Song not found")
		return
	}
	song := songFromPayload(id, payload)
	ts.songs[i] = song
	ts.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   song,
	})
}

func (ts *TestServer) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ts.mu.Lock()
	i := indexOf(ts.songs, id)
	if i < 0 {
		ts.mu.Unlock()
		reject(w, http.StatusNotFound, "Song not found")
		return
	}
	ts.songs = append(ts.songs[:i:i], ts.songs[i+1:]...)
	ts.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  models.StatusSuccess,
		"message": "Song deleted",
	})
}

func (ts *TestServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": models.StatusSuccess,
		"data":   map[string]interface{}{"stats": ComputeStats(ts.Songs())},
	})
}

// ComputeStats aggregates songs the way the backend does.
func ComputeStats(songs []models.Song) *models.SongStats {
	genres := map[string]int{}
	artists := map[string]map[string]bool{}
	artistSongs := map[string]int{}
	albums := map[[2]string]int{}

	for _, s := range songs {
		genres[s.Genre]++
		artistSongs[s.Artist]++
		if artists[s.Artist] == nil {
			artists[s.Artist] = map[string]bool{}
		}
		if s.Album != "" {
			artists[s.Artist][s.Album] = true
			albums[[2]string{s.Artist, s.Album}]++
		}
	}

	stats := &models.SongStats{
		TotalSongs:   len(songs),
		TotalArtists: len(artists),
		TotalAlbums:  len(albums),
		TotalGenres:  len(genres),
	}

	for g, n := range genres {
		stats.SongsPerGenre = append(stats.SongsPerGenre, models.GenreStat{Genre: g, Count: n})
	}
	sort.Slice(stats.SongsPerGenre, func(i, j int) bool {
		return stats.SongsPerGenre[i].Genre < stats.SongsPerGenre[j].Genre
	})

	for a, set := range artists {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		stats.SongsAndAlbumsPerArtist = append(stats.SongsAndAlbumsPerArtist, models.ArtistStat{
			Artist:      a,
			Songs:       artistSongs[a],
			Albums:      names,
			AlbumsCount: len(names),
		})
	}
	sort.Slice(stats.SongsAndAlbumsPerArtist, func(i, j int) bool {
		return stats.SongsAndAlbumsPerArtist[i].Artist < stats.SongsAndAlbumsPerArtist[j].Artist
	})

	for key, n := range albums {
		stats.SongsPerAlbum = append(stats.SongsPerAlbum, models.AlbumStat{Artist: key[0], Album: key[1], Songs: n})
	}
	sort.Slice(stats.SongsPerAlbum, func(i, j int) bool {
		if stats.SongsPerAlbum[i].Artist != stats.SongsPerAlbum[j].Artist {
			return stats.SongsPerAlbum[i].Artist < stats.SongsPerAlbum[j].Artist
		}
		return stats.SongsPerAlbum[i].Album < stats.SongsPerAlbum[j].Album
	})

	return stats
}

func songFromPayload(id string, p models.SongPayload) models.Song {
	return models.Song{
		ID:            id,
		Title:         p.Title,
		Artist:        p.Artist,
		Album:         p.Album,
		Genre:         p.Genre,
		Duration:      p.Duration,
		ReleaseYear:   p.ReleaseYear,
		FileURL:       p.FileURL,
		CoverImageURL: p.CoverImageURL,
	}
}

func indexOf(songs []models.Song, id string) int {
	for i := range songs {
		if songs[i].ID == id {
			return i
		}
	}
	return -1
}

func reject(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"status":  "FAILURE",
		"message": message,
	})
}
