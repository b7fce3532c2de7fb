// Package bus consumes the in-process event bus. Its one consumer today turns
// presence edges into text notices for the user's online friends.
package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DingWH03/uchat-sub000/internal/domain/event"
	"github.com/DingWH03/uchat-sub000/internal/domain/push"
	"github.com/DingWH03/uchat-sub000/internal/roster"
	"github.com/DingWH03/uchat-sub000/internal/service"
)

type PresenceHandler struct {
	deliverer service.Deliverer
	roster    roster.Resolver
	logger    *slog.Logger
}

func NewPresenceHandler(deliverer service.Deliverer, resolver roster.Resolver, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{
		deliverer: deliverer,
		roster:    resolver,
		logger:    logger,
	}
}

// OnPresenceEdge fans one online/offline edge out to the user's friends.
// Offline friends simply have no mailboxes and cost nothing. A roster failure
// is returned so the retry policy gets a chance; the edge itself is never
// re-emitted.
func (h *PresenceHandler) OnPresenceEdge(ctx context.Context, ev *event.PresenceEdge) error {
	friends, err := h.roster.Friends(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("presence fan-out: friends of %d: %w", ev.UserID, err)
	}

	notice := push.OnlineNotice(ev.UserID)
	if !ev.Online {
		notice = push.OfflineNotice(ev.UserID)
	}
	frame := push.Text(notice)

	delivered := 0
	for _, friend := range friends {
		delivered += h.deliverer.ToUser(ctx, friend, frame)
	}

	h.logger.Debug("presence edge fanned out",
		"user_id", ev.UserID,
		"online", ev.Online,
		"friends", len(friends),
		"delivered", delivered,
	)
	return nil
}
