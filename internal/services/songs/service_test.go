package songs_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/songdeck/internal/library"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/services/songs"
	"github.com/TheMichaelB/songdeck/internal/transport"
	"github.com/TheMichaelB/songdeck/test/testutil"
)

func newService() (*songs.Service, *transport.MockTransport) {
	mt := transport.NewMockTransport()
	return songs.NewService(mt, testutil.NewTestLogger()), mt
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("wrapped", func(t *testing.T) {
		svc, mt := newService()
		mt.AddEnvelope(http.MethodGet, "/songs", &models.Envelope{
			Status: models.StatusSuccess,
			Data:   []byte(`{"songs":[{"_id":"1","title":"A","artist":"X","genre":"Rock"}]}`),
		})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		require.Equal(t, library.FetchSuccessType, ev.Type)
		assert.Equal(t, []models.Song{{ID: "1", Title: "A", Artist: "X", Genre: "Rock"}}, ev.Payload)
	})

	t.Run("bare array", func(t *testing.T) {
		svc, mt := newService()
		mt.AddEnvelope(http.MethodGet, "/songs", &models.Envelope{
			Status: models.StatusSuccess,
			Data:   []byte(`[{"id":"1","title":"A"},{"_id":"2","title":"B"}]`),
		})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		require.Equal(t, library.FetchSuccessType, ev.Type)
		got := ev.Payload.([]models.Song)
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "2", got[1].ID)
	})

	t.Run("empty collection", func(t *testing.T) {
		svc, mt := newService()
		mt.AddResponse(http.MethodGet, "/songs", map[string]interface{}{"songs": []models.Song{}})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		require.Equal(t, library.FetchSuccessType, ev.Type)
		assert.Empty(t, ev.Payload)
	})

	t.Run("no data is an empty collection", func(t *testing.T) {
		svc, mt := newService()
		mt.AddEnvelope(http.MethodGet, "/songs", &models.Envelope{Status: models.StatusSuccess})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		require.Equal(t, library.FetchSuccessType, ev.Type)
		assert.Equal(t, []models.Song{}, ev.Payload)
	})

	t.Run("object without songs is an empty collection", func(t *testing.T) {
		svc, mt := newService()
		mt.AddEnvelope(http.MethodGet, "/songs", &models.Envelope{
			Status: models.StatusSuccess,
			Data:   []byte(`{}`),
		})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		require.Equal(t, library.FetchSuccessType, ev.Type)
		assert.Equal(t, []models.Song{}, ev.Payload)
	})

	t.Run("malformed songs", func(t *testing.T) {
		svc, mt := newService()
		mt.AddEnvelope(http.MethodGet, "/songs", &models.Envelope{
			Status: models.StatusSuccess,
			Data:   []byte(`{"songs":"nope"}`),
		})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		assert.Equal(t, library.FetchFailureType, ev.Type)
	})

	t.Run("network error", func(t *testing.T) {
		svc, mt := newService()
		mt.AddError(http.MethodGet, "/songs", &models.NetworkError{Method: "GET", URL: "/songs", Err: errors.New("refused")})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		assert.Equal(t, library.FetchSongsFailure(models.NetworkErrorMessage), ev)
	})

	t.Run("rejected without message", func(t *testing.T) {
		svc, mt := newService()
		mt.AddEnvelope(http.MethodGet, "/songs", &models.Envelope{Data: []byte(`[]`)})

		ev := svc.Fetch(ctx, library.FetchSongsRequest())

		assert.Equal(t, library.FetchSongsFailure("Failed to fetch songs"), ev)
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, mt := newService()
		mt.AddResponse(http.MethodPost, "/songs", models.Song{ID: "new", Title: "Tizita", Genre: "Ethio-jazz"})

		payload := models.SongPayload{Title: "Tizita", Genre: "Ethio-jazz"}
		ev := svc.Add(ctx, library.AddSongRequest(payload))

		require.Equal(t, library.AddSuccessType, ev.Type)
		assert.Equal(t, "new", ev.Payload.(models.Song).ID)
		assert.Equal(t, payload, mt.Calls()[0].Body)
	})

	t.Run("wrapped response", func(t *testing.T) {
		svc, mt := newService()
		mt.AddResponse(http.MethodPost, "/songs", map[string]interface{}{
			"song": models.Song{ID: "w", Title: "Wrapped"},
		})

		ev := svc.Add(ctx, library.AddSongRequest(models.SongPayload{Title: "Wrapped"}))

		require.Equal(t, library.AddSuccessType, ev.Type)
		assert.Equal(t, "w", ev.Payload.(models.Song).ID)
	})

	t.Run("empty title makes no call", func(t *testing.T) {
		svc, mt := newService()

		ev := svc.Add(ctx, library.AddSongRequest(models.SongPayload{Title: "  ", Artist: "X"}))

		assert.Equal(t, library.AddSongFailure("Song title is required"), ev)
		assert.Empty(t, mt.Calls())
	})

	t.Run("server message", func(t *testing.T) {
		svc, mt := newService()
		mt.AddError(http.MethodPost, "/songs", &models.APIError{StatusCode: 400, Message: "Duration must be positive"})

		ev := svc.Add(ctx, library.AddSongRequest(models.SongPayload{Title: "T"}))

		assert.Equal(t, library.AddSongFailure("Duration must be positive"), ev)
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, mt := newService()
		mt.AddResponse(http.MethodPut, "/songs/42", models.Song{ID: "42", Title: "Renamed"})

		update := models.SongUpdate{ID: "42", SongPayload: models.SongPayload{Title: "Renamed"}}
		ev := svc.Edit(ctx, library.EditSongRequest(update))

		require.Equal(t, library.EditSuccessType, ev.Type)
		assert.Equal(t, "Renamed", ev.Payload.(models.Song).Title)

		calls := mt.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "/songs/42", calls[0].Path)
		assert.Equal(t, update.SongPayload, calls[0].Body)
	})

	t.Run("response without id keeps target id", func(t *testing.T) {
		svc, mt := newService()
		mt.AddResponse(http.MethodPut, "/songs/42", map[string]string{"title": "Renamed"})

		ev := svc.Edit(ctx, library.EditSongRequest(models.SongUpdate{ID: "42", SongPayload: models.SongPayload{Title: "Renamed"}}))

		require.Equal(t, library.EditSuccessType, ev.Type)
		assert.Equal(t, "42", ev.Payload.(models.Song).ID)
	})

	t.Run("missing id", func(t *testing.T) {
		svc, mt := newService()

		ev := svc.Edit(ctx, library.EditSongRequest(models.SongUpdate{SongPayload: models.SongPayload{Title: "T"}}))

		assert.Equal(t, library.EditSongFailure("Song id is required"), ev)
		assert.Empty(t, mt.Calls())
	})

	t.Run("not found", func(t *testing.T) {
		svc, mt := newService()
		mt.AddError(http.MethodPut, "/songs/9", &models.APIError{StatusCode: 404, Message: "Song not found"})

		ev := svc.Edit(ctx, library.EditSongRequest(models.SongUpdate{ID: "9", SongPayload: models.SongPayload{Title: "T"}}))

		assert.Equal(t, library.EditSongFailure("Song not found"), ev)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, mt := newService()
		mt.AddResponse(http.MethodDelete, "/songs/7", map[string]string{})

		ev := svc.Delete(ctx, library.DeleteSongRequest("7"))

		assert.Equal(t, library.DeleteSongSuccess("7"), ev)
	})

	t.Run("failure", func(t *testing.T) {
		svc, mt := newService()
		mt.AddError(http.MethodDelete, "/songs/7", &models.APIError{StatusCode: 500})

		ev := svc.Delete(ctx, library.DeleteSongRequest("7"))

		assert.Equal(t, library.DeleteSongFailure("Failed to delete song"), ev)
	})

	t.Run("escapes id", func(t *testing.T) {
		svc, mt := newService()
		mt.AddResponse(http.MethodDelete, "/songs/a%2Fb", map[string]string{})

		ev := svc.Delete(ctx, library.DeleteSongRequest("a/b"))

		assert.Equal(t, library.DeleteSongSuccess("a/b"), ev)
	})
}
