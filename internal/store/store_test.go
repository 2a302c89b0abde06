package store_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/library"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/session"
	"github.com/TheMichaelB/songdeck/internal/stats"
	"github.com/TheMichaelB/songdeck/internal/store"
)

func TestInitial(t *testing.T) {
	s := store.New(store.Initial(), nil).GetState()

	assert.Empty(t, s.Session.Token)
	assert.NotNil(t, s.Songs.Songs)
	assert.Empty(t, s.Songs.Songs)
	assert.Nil(t, s.Stats.Stats)
}

func TestDispatchRoutesToOwningSlice(t *testing.T) {
	st := store.New(store.Initial(), nil)

	st.Dispatch(library.FetchSongsRequest())
	s := st.GetState()
	assert.True(t, s.Songs.Loading)
	assert.False(t, s.Session.Loading)
	assert.False(t, s.Stats.Loading)

	st.Dispatch(stats.FetchStatisticsFailure("Failed to fetch statistics"))
	s = st.GetState()
	assert.True(t, s.Songs.Loading)
	assert.Empty(t, s.Songs.Error)
	assert.Equal(t, "Failed to fetch statistics", s.Stats.Error)
}

func TestSubscribe(t *testing.T) {
	st := store.New(store.Initial(), nil)

	var seen []bool
	unsubscribe := st.Subscribe(func(s store.State) {
		seen = append(seen, s.Songs.Loading)
	})

	st.Dispatch(library.FetchSongsRequest())
	st.Dispatch(library.FetchSongsSuccess(nil))
	unsubscribe()
	st.Dispatch(library.FetchSongsRequest())

	assert.Equal(t, []bool{true, false}, seen)

	// Calling it again is harmless.
	unsubscribe()
}

func TestNestedDispatchIsDeliveredInOrder(t *testing.T) {
	st := store.New(store.Initial(), nil)

	var order []intent.Type
	var last store.State
	st.Subscribe(func(s store.State) {
		last = s
		if s.Session.Loading {
			order = append(order, session.LoginRequestType)
			st.Dispatch(session.LoginFailure("Invalid credentials"))
			return
		}
		order = append(order, session.LoginFailureType)
	})

	st.Dispatch(session.LoginRequest(models.LoginCredentials{}))

	assert.Equal(t, []intent.Type{session.LoginRequestType, session.LoginFailureType}, order)
	assert.Equal(t, "Invalid credentials", last.Session.Error)
}

func TestListenerPanicDoesNotStopDelivery(t *testing.T) {
	st := store.New(store.Initial(), nil)

	calls := 0
	st.Subscribe(func(store.State) { panic("boom") })
	st.Subscribe(func(store.State) { calls++ })

	st.Dispatch(library.ResetFilters())
	st.Dispatch(library.ResetFilters())

	assert.Equal(t, 2, calls)
}

func TestObserverSeesReducedState(t *testing.T) {
	st := store.New(store.Initial(), nil)

	var got []intent.Event
	st.Observe(func(ev intent.Event, s store.State) {
		got = append(got, ev)
		if ev.Type == library.FetchRequestType {
			assert.True(t, s.Songs.Loading)
		}
	})

	st.Dispatch(library.FetchSongsRequest())

	require.Len(t, got, 1)
	assert.Equal(t, library.FetchRequestType, got[0].Type)
}

func TestConcurrentDispatch(t *testing.T) {
	st := store.New(store.Initial(), nil)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st.Dispatch(library.AddSongSuccess(models.Song{ID: fmt.Sprint(i), Title: "T"}))
		}(i)
	}
	wg.Wait()

	s := st.GetState()
	assert.Len(t, s.Songs.Songs, n)
	for i := 0; i < n; i++ {
		assert.GreaterOrEqual(t, library.IndexOf(s.Songs.Songs, fmt.Sprint(i)), 0)
	}
}

// Terminal events apply in completion order: a fetch that finishes after an
// add overwrites the collection with its own snapshot.
func TestLastWriterWins(t *testing.T) {
	st := store.New(store.Initial(), nil)

	st.Dispatch(library.FetchSongsRequest())
	st.Dispatch(library.AddSongRequest(models.SongPayload{Title: "New"}))
	st.Dispatch(library.AddSongSuccess(models.Song{ID: "new", Title: "New"}))
	st.Dispatch(library.FetchSongsSuccess([]models.Song{{ID: "old", Title: "Old"}}))

	s := st.GetState()
	require.Len(t, s.Songs.Songs, 1)
	assert.Equal(t, "old", s.Songs.Songs[0].ID)
	assert.False(t, s.Songs.Loading)
}
