package service

import (
	"context"
	"log/slog"

	"github.com/DingWH03/uchat-sub000/internal/adapter/pubsub"
	"github.com/DingWH03/uchat-sub000/internal/domain/event"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
)

// PresenceService turns the registry's first-login and last-logout edges into
// bus events. The bus handler fans them out to friends, decoupling login and
// logout latency from roster loads.
type PresenceService struct {
	dispatcher pubsub.EventDispatcher
	logger     *slog.Logger
	metrics    metrics.Collector
}

func NewPresenceService(dispatcher pubsub.EventDispatcher, logger *slog.Logger, collector metrics.Collector) *PresenceService {
	return &PresenceService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    collector,
	}
}

// UserOnline publishes the first-connection edge.
func (s *PresenceService) UserOnline(ctx context.Context, user uint32) {
	s.publish(ctx, event.NewPresenceEdge(user, true))
}

// UserOffline publishes the last-connection edge.
func (s *PresenceService) UserOffline(ctx context.Context, user uint32) {
	s.publish(ctx, event.NewPresenceEdge(user, false))
}

func (s *PresenceService) publish(ctx context.Context, ev *event.PresenceEdge) {
	s.metrics.PresenceEdge(ev.Online)
	if err := s.dispatcher.Publish(ctx, ev); err != nil {
		// Presence is advisory. Losing one edge never blocks a login.
		s.logger.Warn("presence edge publish failed",
			"user_id", ev.UserID,
			"online", ev.Online,
			"err", err,
		)
	}
}
