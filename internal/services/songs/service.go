package songs

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/TheMichaelB/songdeck/internal/effects"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/library"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/transport"
)

const songsPath = "/songs"

const (
	fetchFailed  = "Failed to fetch songs"
	addFailed    = "Failed to add song"
	editFailed   = "Failed to edit song"
	deleteFailed = "Failed to delete song"
)

// Service runs the song collection effects.
type Service struct {
	transport transport.Transport
	logger    *events.Logger
}

// NewService creates a songs service.
func NewService(transport transport.Transport, logger *events.Logger) *Service {
	if logger == nil {
		logger = events.NewNopLogger()
	}
	return &Service{
		transport: transport,
		logger:    logger.WithField("service", "songs"),
	}
}

// Bind registers the collection handlers on r.
func (s *Service) Bind(r *effects.Runner, policy effects.PolicyFunc) {
	r.Register(library.FetchRequestType, s.Fetch,
		effects.WithPolicy(policy(library.FetchRequestType)),
		effects.WithFailure(library.FetchSongsFailure))
	r.Register(library.AddRequestType, s.Add,
		effects.WithPolicy(policy(library.AddRequestType)),
		effects.WithFailure(library.AddSongFailure))
	r.Register(library.EditRequestType, s.Edit,
		effects.WithPolicy(policy(library.EditRequestType)),
		effects.WithFailure(library.EditSongFailure))
	r.Register(library.DeleteRequestType, s.Delete,
		effects.WithPolicy(policy(library.DeleteRequestType)),
		effects.WithFailure(library.DeleteSongFailure))
}

// Fetch handles library.FetchRequestType. The collection arrives either as
// {"songs": [...]} or as a bare array.
func (s *Service) Fetch(ctx context.Context, ev intent.Event) intent.Event {
	env, err := s.transport.Get(ctx, songsPath, url.Values{})
	if err == nil {
		err = env.Rejection()
	}
	if err != nil {
		return library.FetchSongsFailure(models.ErrorMessage(err, fetchFailed))
	}

	songs, err := decodeSongs(env)
	if err != nil {
		return library.FetchSongsFailure(models.ErrorMessage(err, fetchFailed))
	}

	events.FromContext(ctx).WithField("count", len(songs)).Debug("Fetched songs")
	return library.FetchSongsSuccess(songs)
}

// Add handles library.AddRequestType.
func (s *Service) Add(ctx context.Context, ev intent.Event) intent.Event {
	payload, ok := ev.Payload.(models.SongPayload)
	if !ok {
		return library.AddSongFailure(addFailed)
	}
	if err := payload.Validate(); err != nil {
		return library.AddSongFailure(models.ErrorMessage(err, addFailed))
	}

	env, err := s.transport.Post(ctx, songsPath, payload)
	if err == nil {
		err = env.Rejection()
	}
	if err != nil {
		return library.AddSongFailure(models.ErrorMessage(err, addFailed))
	}

	song, err := decodeSong(env)
	if err != nil {
		return library.AddSongFailure(models.ErrorMessage(err, addFailed))
	}

	events.FromContext(ctx).WithField("song_id", song.ID).Info("Song added")
	return library.AddSongSuccess(song)
}

// Edit handles library.EditRequestType. The id addresses the resource and
// is not part of the body.
func (s *Service) Edit(ctx context.Context, ev intent.Event) intent.Event {
	update, ok := ev.Payload.(models.SongUpdate)
	if !ok {
		return library.EditSongFailure(editFailed)
	}
	if err := update.Validate(); err != nil {
		return library.EditSongFailure(models.ErrorMessage(err, editFailed))
	}

	env, err := s.transport.Put(ctx, songPath(update.ID), update.SongPayload)
	if err == nil {
		err = env.Rejection()
	}
	if err != nil {
		return library.EditSongFailure(models.ErrorMessage(err, editFailed))
	}

	song, err := decodeSong(env)
	if err != nil {
		return library.EditSongFailure(models.ErrorMessage(err, editFailed))
	}
	if song.ID == "" {
		song.ID = update.ID
	}

	events.FromContext(ctx).WithField("song_id", song.ID).Info("Song updated")
	return library.EditSongSuccess(song)
}

// Delete handles library.DeleteRequestType.
func (s *Service) Delete(ctx context.Context, ev intent.Event) intent.Event {
	id, _ := ev.Payload.(string)
	if id == "" {
		return library.DeleteSongFailure("Song id is required")
	}

	env, err := s.transport.Delete(ctx, songPath(id))
	if err == nil {
		err = env.Rejection()
	}
	if err != nil {
		return library.DeleteSongFailure(models.ErrorMessage(err, deleteFailed))
	}

	events.FromContext(ctx).WithField("song_id", id).Info("Song deleted")
	return library.DeleteSongSuccess(id)
}

func songPath(id string) string {
	return songsPath + "/" + url.PathEscape(id)
}

// decodeSongs treats missing data, or an object without a songs array, as
// an empty collection.
func decodeSongs(env *models.Envelope) ([]models.Song, error) {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return []models.Song{}, nil
	}

	var bare []models.Song
	if err := json.Unmarshal(env.Data, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Songs []models.Song `json:"songs"`
	}
	if err := env.Decode(&wrapped); err != nil {
		return nil, err
	}
	if wrapped.Songs == nil {
		return []models.Song{}, nil
	}
	return wrapped.Songs, nil
}

// decodeSong accepts the song itself or {"song": {...}} as data.
func decodeSong(env *models.Envelope) (models.Song, error) {
	var wrapped struct {
		Song *models.Song `json:"song"`
	}
	if err := json.Unmarshal(env.Data, &wrapped); err == nil && wrapped.Song != nil {
		return *wrapped.Song, nil
	}

	var song models.Song
	if err := env.Decode(&song); err != nil {
		return models.Song{}, err
	}
	return song, nil
}
