// Package library holds the song collection, the active filters and the
// lifecycle transitions for fetching and editing songs.
//
// Transitions never modify a Songs slice in place: any change produces a new
// slice, so consumers can detect changes by slice identity.
package library

import (
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// Event types handled by the collection slice.
const (
	FetchRequestType  intent.Type = "songs/fetchRequest"
	FetchSuccessType  intent.Type = "songs/fetchSuccess"
	FetchFailureType  intent.Type = "songs/fetchFailure"
	AddRequestType    intent.Type = "songs/addRequest"
	AddSuccessType    intent.Type = "songs/addSuccess"
	AddFailureType    intent.Type = "songs/addFailure"
	EditRequestType   intent.Type = "songs/editRequest"
	EditSuccessType   intent.Type = "songs/editSuccess"
	EditFailureType   intent.Type = "songs/editFailure"
	DeleteRequestType intent.Type = "songs/deleteRequest"
	DeleteSuccessType intent.Type = "songs/deleteSuccess"
	DeleteFailureType intent.Type = "songs/deleteFailure"
	UpdateFiltersType intent.Type = "songs/updateFilters"
	ResetFiltersType  intent.Type = "songs/resetFilters"
)

// State is the collection slice. Empty Error means null.
type State struct {
	Songs   []models.Song
	Filters models.Filters
	Loading bool
	Error   string
}

// Initial returns the state of a fresh store.
func Initial() State {
	return State{Songs: []models.Song{}}
}

// FetchSongsRequest starts loading the whole collection.
func FetchSongsRequest() intent.Event {
	return intent.New(FetchRequestType, nil)
}

// FetchSongsSuccess replaces the collection with songs.
func FetchSongsSuccess(songs []models.Song) intent.Event {
	return intent.New(FetchSuccessType, songs)
}

// FetchSongsFailure ends a fetch with an error message.
func FetchSongsFailure(msg string) intent.Event {
	return intent.New(FetchFailureType, msg)
}

// AddSongRequest starts creating a song from payload.
func AddSongRequest(payload models.SongPayload) intent.Event {
	return intent.New(AddRequestType, payload)
}

// AddSongSuccess appends the created song.
func AddSongSuccess(song models.Song) intent.Event {
	return intent.New(AddSuccessType, song)
}

// AddSongFailure ends an add with an error message.
func AddSongFailure(msg string) intent.Event {
	return intent.New(AddFailureType, msg)
}

// EditSongRequest starts updating the song identified by update.ID.
func EditSongRequest(update models.SongUpdate) intent.Event {
	return intent.New(EditRequestType, update)
}

// EditSongSuccess replaces the song with the same id.
func EditSongSuccess(song models.Song) intent.Event {
	return intent.New(EditSuccessType, song)
}

// EditSongFailure ends an edit with an error message.
func EditSongFailure(msg string) intent.Event {
	return intent.New(EditFailureType, msg)
}

// DeleteSongRequest starts deleting the song with id.
func DeleteSongRequest(id string) intent.Event {
	return intent.New(DeleteRequestType, id)
}

// DeleteSongSuccess removes the song with id.
func DeleteSongSuccess(id string) intent.Event {
	return intent.New(DeleteSuccessType, id)
}

// DeleteSongFailure ends a delete with an error message.
func DeleteSongFailure(msg string) intent.Event {
	return intent.New(DeleteFailureType, msg)
}

// UpdateFilters merges patch into the active filters.
func UpdateFilters(patch models.FilterPatch) intent.Event {
	return intent.New(UpdateFiltersType, patch)
}

// ResetFilters clears every filter.
func ResetFilters() intent.Event {
	return intent.New(ResetFiltersType, nil)
}

// Reduce applies ev to s. Events for other slices return s unchanged.
func Reduce(s State, ev intent.Event) State {
	switch ev.Type {
	case FetchRequestType, AddRequestType, EditRequestType, DeleteRequestType:
		s.Loading = true
		s.Error = ""

	case FetchSuccessType:
		songs, _ := ev.Payload.([]models.Song)
		s.Songs = make([]models.Song, len(songs))
		copy(s.Songs, songs)
		s.Loading = false

	case AddSuccessType:
		song, _ := ev.Payload.(models.Song)
		s.Songs = appendSong(s.Songs, song)
		s.Loading = false

	case EditSuccessType:
		song, _ := ev.Payload.(models.Song)
		s.Songs = replaceSong(s.Songs, song)
		s.Loading = false

	case DeleteSuccessType:
		id, _ := ev.Payload.(string)
		s.Songs = removeSong(s.Songs, id)
		s.Loading = false

	case FetchFailureType, AddFailureType, EditFailureType, DeleteFailureType:
		s.Loading = false
		s.Error, _ = ev.Payload.(string)

	case UpdateFiltersType:
		patch, _ := ev.Payload.(models.FilterPatch)
		s.Filters = patch.Apply(s.Filters)

	case ResetFiltersType:
		s.Filters = models.Filters{}
	}

	return s
}

// IndexOf returns the position of the song with id, or -1.
func IndexOf(songs []models.Song, id string) int {
	for i := range songs {
		if songs[i].ID == id {
			return i
		}
	}
	return -1
}

// appendSong replaces instead of appending when the id is already present,
// which happens when a fetch completes between an add and its response.
func appendSong(songs []models.Song, song models.Song) []models.Song {
	if IndexOf(songs, song.ID) >= 0 {
		return replaceSong(songs, song)
	}
	next := make([]models.Song, len(songs), len(songs)+1)
	copy(next, songs)
	return append(next, song)
}

// replaceSong is a no-op when no song has the same id.
func replaceSong(songs []models.Song, song models.Song) []models.Song {
	i := IndexOf(songs, song.ID)
	if i < 0 {
		return songs
	}
	next := append([]models.Song(nil), songs...)
	next[i] = song
	return next
}

// removeSong is a no-op when no song has the id.
func removeSong(songs []models.Song, id string) []models.Song {
	i := IndexOf(songs, id)
	if i < 0 {
		return songs
	}
	next := make([]models.Song, 0, len(songs)-1)
	next = append(next, songs[:i]...)
	return append(next, songs[i+1:]...)
}
