// Package stats holds the server-computed statistics snapshot.
package stats

import (
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/models"
)

// Event types handled by the statistics slice.
const (
	FetchRequestType intent.Type = "stats/fetchRequest"
	FetchSuccessType intent.Type = "stats/fetchSuccess"
	FetchFailureType intent.Type = "stats/fetchFailure"
)

// State is the statistics slice. Stats is nil until the first successful fetch.
type State struct {
	Stats   *models.SongStats
	Loading bool
	Error   string
}

// Initial returns the state of a fresh store.
func Initial() State {
	return State{}
}

// FetchStatisticsRequest starts loading the statistics snapshot.
func FetchStatisticsRequest() intent.Event {
	return intent.New(FetchRequestType, nil)
}

// FetchStatisticsSuccess stores snapshot.
func FetchStatisticsSuccess(snapshot *models.SongStats) intent.Event {
	return intent.New(FetchSuccessType, snapshot)
}

// FetchStatisticsFailure ends a statistics fetch with an error message.
func FetchStatisticsFailure(msg string) intent.Event {
	return intent.New(FetchFailureType, msg)
}

// Reduce applies ev to s. The snapshot is only ever replaced whole.
func Reduce(s State, ev intent.Event) State {
	switch ev.Type {
	case FetchRequestType:
		s.Loading = true
		s.Error = ""
	case FetchSuccessType:
		s.Stats, _ = ev.Payload.(*models.SongStats)
		s.Loading = false
	case FetchFailureType:
		s.Loading = false
		s.Error, _ = ev.Payload.(string)
	}
	return s
}
