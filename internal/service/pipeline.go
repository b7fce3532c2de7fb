package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DingWH03/uchat-sub000/internal/adapter/pubsub"
	"github.com/DingWH03/uchat-sub000/internal/domain/event"
	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/domain/push"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

// Sender is the inbound message pipeline: persist first, then push. A frame
// a client sees always refers to a durable row.
type Sender interface {
	SendPrivate(ctx context.Context, sessionID string, receiver uint32, body string) error
	SendGroup(ctx context.Context, sessionID string, group uint32, body string) error
}

type MessagePipeline struct {
	registry  registry.SessionRegistry
	store     store.MessageStore
	deliverer Deliverer
	exporter  pubsub.Exporter
	logger    *slog.Logger
	metrics   metrics.Collector
}

func NewMessagePipeline(reg registry.SessionRegistry, st store.MessageStore, deliverer Deliverer, exporter pubsub.Exporter, logger *slog.Logger, collector metrics.Collector) *MessagePipeline {
	return &MessagePipeline{
		registry:  reg,
		store:     st,
		deliverer: deliverer,
		exporter:  exporter,
		logger:    logger,
		metrics:   collector,
	}
}

var _ Sender = (*MessagePipeline)(nil)

func (p *MessagePipeline) SendPrivate(ctx context.Context, sessionID string, receiver uint32, body string) error {
	sender, err := p.registry.LookupUser(ctx, sessionID)
	if err != nil {
		// The session evaporated mid-flight (TTL or admin sweep). The
		// socket teardown will follow shortly.
		p.logger.Warn("send from unknown session", "session_id", sessionID, "err", err)
		return fmt.Errorf("send private: resolve sender: %w", err)
	}

	id, ts, err := p.store.InsertPrivateMessage(ctx, sender, receiver, model.MessageText, body)
	if err != nil {
		p.logger.Error("private message persist failed",
			"sender_id", sender,
			"receiver_id", receiver,
			"err", err,
		)
		return fmt.Errorf("send private: persist: %w", err)
	}
	p.metrics.MessagePersisted("private")

	data, err := push.Encode(push.PrivateMessage{
		MessageID: id,
		Sender:    sender,
		Receiver:  receiver,
		Timestamp: ts,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("send private: encode: %w", err)
	}

	frame := push.Binary(data)
	p.deliverer.ToUser(ctx, receiver, frame)
	if sender != receiver {
		// Multi-device echo: the sender's other connections see the
		// message too.
		p.deliverer.ToUser(ctx, sender, frame)
	}

	p.export(ctx, event.NewPrivateMessageCreated(id, sender, receiver, model.MessageText, body, ts))
	return nil
}

func (p *MessagePipeline) SendGroup(ctx context.Context, sessionID string, group uint32, body string) error {
	sender, err := p.registry.LookupUser(ctx, sessionID)
	if err != nil {
		p.logger.Warn("send from unknown session", "session_id", sessionID, "err", err)
		return fmt.Errorf("send group: resolve sender: %w", err)
	}

	id, ts, err := p.store.InsertGroupMessage(ctx, group, sender, model.MessageText, body)
	if err != nil {
		p.logger.Error("group message persist failed",
			"sender_id", sender,
			"group_id", group,
			"err", err,
		)
		return fmt.Errorf("send group: persist: %w", err)
	}
	p.metrics.MessagePersisted("group")

	data, err := push.Encode(push.GroupMessage{
		MessageID: id,
		Sender:    sender,
		GroupID:   group,
		Timestamp: ts,
		Body:      body,
	})
	if err != nil {
		return fmt.Errorf("send group: encode: %w", err)
	}

	// The sender's echo rides the member fan-out.
	p.deliverer.ToGroup(ctx, group, push.Binary(data))

	p.export(ctx, event.NewGroupMessageCreated(id, sender, group, model.MessageText, body, ts))
	return nil
}

// export publishes a copy of the persisted message for external consumers.
// Failures never reach the client: the message is already durable and
// delivered.
func (p *MessagePipeline) export(ctx context.Context, ev event.Eventer) {
	if !p.exporter.Enabled() {
		return
	}
	if err := p.exporter.Publish(ctx, ev); err != nil {
		p.logger.Warn("message export failed", "routing_key", ev.GetRoutingKey(), "err", err)
	}
}
