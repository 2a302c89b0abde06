package models

import (
	"encoding/json"
	"strings"
)

// Song is a record in the music library. The backend keys songs by "_id";
// "id" is accepted on input as well.
type Song struct {
	ID            string  `json:"_id"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album,omitempty"`
	Genre         string  `json:"genre"`
	Duration      float64 `json:"duration"` // Seconds
	ReleaseYear   int     `json:"releaseYear"`
	FileURL       string  `json:"fileUrl"`
	CoverImageURL string  `json:"coverImageUrl,omitempty"`
}

// UnmarshalJSON accepts both "_id" and "id" as the identity field.
func (s *Song) UnmarshalJSON(data []byte) error {
	type songAlias Song
	var aux struct {
		songAlias
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = Song(aux.songAlias)
	if s.ID == "" {
		s.ID = aux.AltID
	}
	return nil
}

// SongPayload is the body of a create or update request.
type SongPayload struct {
	Title         string  `json:"title"`
	Artist        string  `json:"artist,omitempty"`
	Album         string  `json:"album,omitempty"`
	Genre         string  `json:"genre,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
	ReleaseYear   int     `json:"releaseYear,omitempty"`
	FileURL       string  `json:"fileUrl,omitempty"`
	CoverImageURL string  `json:"coverImageUrl,omitempty"`
}

// Validate checks the fields the backend cannot do without.
func (p *SongPayload) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Field: "title", Message: "Song title is required"}
	}
	return nil
}

// SongUpdate addresses an edit to an existing song.
type SongUpdate struct {
	ID string `json:"-"`
	SongPayload
}

// Validate checks the update target and payload.
func (u *SongUpdate) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return &ValidationError{Field: "id", Message: "Song id is required"}
	}
	return u.SongPayload.Validate()
}

// Filters are case-insensitive substring patterns; empty means no constraint.
type Filters struct {
	Album  string `json:"album"`
	Artist string `json:"artist"`
	Genre  string `json:"genre"`
}

// IsZero reports whether no filter constrains the collection.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// FilterPatch is a partial filter update; nil fields are left unchanged.
type FilterPatch struct {
	Album  *string `json:"album,omitempty"`
	Artist *string `json:"artist,omitempty"`
	Genre  *string `json:"genre,omitempty"`
}

// Apply shallow-merges the patch into f.
func (p FilterPatch) Apply(f Filters) Filters {
	if p.Album != nil {
		f.Album = *p.Album
	}
	if p.Artist != nil {
		f.Artist = *p.Artist
	}
	if p.Genre != nil {
		f.Genre = *p.Genre
	}
	return f
}

// GenreStat counts songs in one genre.
type GenreStat struct {
	Genre string `json:"_id"`
	Count int    `json:"count"`
}

// ArtistStat summarizes one artist's catalogue.
type ArtistStat struct {
	Artist      string   `json:"artist"`
	Songs       int      `json:"songs"`
	Albums      []string `json:"albums"`
	AlbumsCount int      `json:"albumsCount"`
}

// AlbumStat counts songs on one album.
type AlbumStat struct {
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Songs  int    `json:"songs"`
}

// SongStats is the server-computed statistics snapshot.
type SongStats struct {
	TotalSongs              int          `json:"totalSongs"`
	TotalArtists            int          `json:"totalArtists"`
	TotalAlbums             int          `json:"totalAlbums"`
	TotalGenres             int          `json:"totalGenres"`
	SongsPerGenre           []GenreStat  `json:"songsPerGenre"`
	SongsAndAlbumsPerArtist []ArtistStat `json:"songsAndAlbumsPerArtist"`
	SongsPerAlbum           []AlbumStat  `json:"songsPerAlbum"`
}
