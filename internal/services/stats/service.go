package stats

import (
	"context"

	"github.com/TheMichaelB/songdeck/internal/effects"
	"github.com/TheMichaelB/songdeck/internal/events"
	"github.com/TheMichaelB/songdeck/internal/intent"
	"github.com/TheMichaelB/songdeck/internal/models"
	"github.com/TheMichaelB/songdeck/internal/stats"
	"github.com/TheMichaelB/songdeck/internal/transport"
)

const (
	statsPath   = "/songs/stats"
	fetchFailed = "Failed to fetch statistics"
)

// Service fetches the statistics snapshot.
type Service struct {
	transport transport.Transport
	logger    *events.Logger
}

// NewService creates a statistics service.
func NewService(transport transport.Transport, logger *events.Logger) *Service {
	if logger == nil {
		logger = events.NewNopLogger()
	}
	return &Service{
		transport: transport,
		logger:    logger.WithField("service", "stats"),
	}
}

// Bind registers the statistics handler on r.
func (s *Service) Bind(r *effects.Runner, policy effects.PolicyFunc) {
	r.Register(stats.FetchRequestType, s.Fetch,
		effects.WithPolicy(policy(stats.FetchRequestType)),
		effects.WithFailure(stats.FetchStatisticsFailure))
}

// Fetch handles stats.FetchRequestType.
func (s *Service) Fetch(ctx context.Context, ev intent.Event) intent.Event {
	env, err := s.transport.Get(ctx, statsPath, nil)
	if err == nil {
		err = env.Rejection()
	}
	if err != nil {
		return stats.FetchStatisticsFailure(models.ErrorMessage(err, fetchFailed))
	}

	var data struct {
		Stats *models.SongStats `json:"stats"`
	}
	if err := env.Decode(&data); err != nil {
		return stats.FetchStatisticsFailure(models.ErrorMessage(err, fetchFailed))
	}
	if data.Stats == nil {
		return stats.FetchStatisticsFailure(fetchFailed)
	}

	events.FromContext(ctx).WithField("total_songs", data.Stats.TotalSongs).Debug("Fetched statistics")
	return stats.FetchStatisticsSuccess(data.Stats)
}
