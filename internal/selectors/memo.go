package selectors

import (
	"sync"

	"github.com/TheMichaelB/songdeck/internal/library"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// songsKey identifies a songs slice by its backing array and length. The
// collection store never modifies a slice after publishing it, so equal keys
// mean equal contents.
type songsKey struct {
	first *models.Song
	n     int
}

func keyOf(songs []models.Song) songsKey {
	if len(songs) == 0 {
		return songsKey{}
	}
	return songsKey{first: &songs[0], n: len(songs)}
}

type facetEntry struct {
	valid  bool
	key    songsKey
	input  []models.Song
	values []string
}

// Memo caches derived views for the last collection it saw. Each view is
// recomputed only when the songs slice or the filters change. A Memo is safe
// for concurrent use.
type Memo struct {
	mu sync.Mutex

	filteredValid   bool
	filteredKey     songsKey
	filteredInput   []models.Song
	filteredFilters models.Filters
	filtered        []models.Song

	albums  facetEntry
	artists facetEntry
	genres  facetEntry

	computations int
}

func NewMemo() *Memo {
	return &Memo{}
}

// FilteredSongs returns the filtered view of st.
func (m *Memo) FilteredSongs(st library.State) []models.Song {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyOf(st.Songs)
	if m.filteredValid && m.filteredKey == key && m.filteredFilters == st.Filters {
		return m.filtered
	}

	m.computations++
	m.filtered = FilteredSongs(st.Songs, st.Filters)
	m.filteredKey = key
	// Holding the input keeps its backing array alive, so the address in
	// the key cannot be reused by a different slice.
	m.filteredInput = st.Songs
	m.filteredFilters = st.Filters
	m.filteredValid = true
	return m.filtered
}

func (m *Memo) FilteredCount(st library.State) int {
	return len(m.FilteredSongs(st))
}

func (m *Memo) TotalCount(st library.State) int {
	return TotalCount(st.Songs)
}

func (m *Memo) UniqueAlbums(st library.State) []string {
	return m.facet(&m.albums, st.Songs, UniqueAlbums)
}

func (m *Memo) UniqueArtists(st library.State) []string {
	return m.facet(&m.artists, st.Songs, UniqueArtists)
}

func (m *Memo) UniqueGenres(st library.State) []string {
	return m.facet(&m.genres, st.Songs, UniqueGenres)
}

// Computations reports how many times a view was actually recomputed.
func (m *Memo) Computations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computations
}

func (m *Memo) facet(e *facetEntry, songs []models.Song, compute func([]models.Song) []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyOf(songs)
	if e.valid && e.key == key {
		return e.values
	}

	m.computations++
	e.values = compute(songs)
	e.key = key
	e.input = songs
	e.valid = true
	return e.values
}
