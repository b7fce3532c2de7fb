package bus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/DingWH03/uchat-sub000/internal/adapter/pubsub"
	"github.com/DingWH03/uchat-sub000/internal/domain/event"
)

// PoisonTopic receives events that kept failing after every retry. Nothing
// subscribes to it; on the in-process bus it terminates redelivery.
const PoisonTopic = "presence.edge.poison"

func NewRouter(wmLogger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{}, wmLogger)
}

// RegisterHandlers wires every bus consumer into the router. Must run before
// the router starts.
func RegisterHandlers(router *message.Router, b *pubsub.Bus, h *PresenceHandler, logger *slog.Logger) error {
	poison, err := middleware.PoisonQueue(b.Publisher(), PoisonTopic)
	if err != nil {
		return fmt.Errorf("bus: poison queue setup: %w", err)
	}

	router.AddConsumerHandler(
		"on_presence_edge",
		event.TopicPresenceEdge,
		b.Subscriber(),
		Bind(logger, h.OnPresenceEdge),
	).AddMiddleware(
		TraceIDMiddleware,
		LoggingMiddleware(logger),
		NewRetryMiddleware().Middleware,
		poison,
		middleware.Timeout(time.Second*10),
	)

	logger.Info("bus consumers registered", "topic", event.TopicPresenceEdge)
	return nil
}
