// Package selectors computes derived views over the song collection: the
// filtered list, facet values and counts.
package selectors

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/TheMichaelB/songdeck/internal/models"
)

// FilteredSongs returns the songs matching every non-empty filter. Matching
// is a case-folded substring test. With no constraint set, songs is returned
// as is.
func FilteredSongs(songs []models.Song, filters models.Filters) []models.Song {
	if filters.IsZero() {
		return songs
	}

	// A Caser keeps state between calls and cannot be shared.
	fold := cases.Fold()
	album := fold.String(filters.Album)
	artist := fold.String(filters.Artist)
	genre := fold.String(filters.Genre)

	out := make([]models.Song, 0, len(songs))
	for _, song := range songs {
		if album != "" && (song.Album == "" || !strings.Contains(fold.String(song.Album), album)) {
			continue
		}
		if artist != "" && !strings.Contains(fold.String(song.Artist), artist) {
			continue
		}
		if genre != "" && !strings.Contains(fold.String(song.Genre), genre) {
			continue
		}
		out = append(out, song)
	}
	return out
}

func UniqueAlbums(songs []models.Song) []string {
	return unique(songs, func(s *models.Song) string { return s.Album })
}

func UniqueArtists(songs []models.Song) []string {
	return unique(songs, func(s *models.Song) string { return s.Artist })
}

func UniqueGenres(songs []models.Song) []string {
	return unique(songs, func(s *models.Song) string { return s.Genre })
}

// FilteredCount is the length of the filtered view.
func FilteredCount(songs []models.Song, filters models.Filters) int {
	return len(FilteredSongs(songs, filters))
}

// TotalCount is the size of the whole collection.
func TotalCount(songs []models.Song) int {
	return len(songs)
}

// SongByID returns the song with id.
func SongByID(songs []models.Song, id string) (models.Song, bool) {
	for _, song := range songs {
		if song.ID == id {
			return song, true
		}
	}
	return models.Song{}, false
}

// unique trims values, drops empty ones, deduplicates and sorts ascending.
func unique(songs []models.Song, field func(*models.Song) string) []string {
	seen := make(map[string]struct{}, len(songs))
	out := make([]string, 0, len(songs))
	for i := range songs {
		v := strings.TrimSpace(field(&songs[i]))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
