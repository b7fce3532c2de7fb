package service

import (
	"context"
	"log/slog"

	"github.com/DingWH03/uchat-sub000/internal/domain/push"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/roster"
)

// Deliverer is the fan-out interface the pipeline and bus handlers push
// through. Delivery is best-effort: a dead or overflowing mailbox drops the
// frame for that connection only.
type Deliverer interface {
	// ToConnection enqueues for one session. False means the mailbox is
	// gone or closing, which callers treat as a successful no-op.
	ToConnection(ctx context.Context, sessionID string, frame push.Outbound) bool
	// ToUser enqueues for every live connection of the user and reports
	// how many mailboxes accepted.
	ToUser(ctx context.Context, user uint32, frame push.Outbound) int
	// ToGroup fans out to every member's every connection.
	ToGroup(ctx context.Context, group uint32, frame push.Outbound) int
}

type DeliveryService struct {
	registry registry.SessionRegistry
	senders  *registry.SenderStore
	roster   roster.Resolver
	logger   *slog.Logger
	metrics  metrics.Collector
}

func NewDeliveryService(reg registry.SessionRegistry, senders *registry.SenderStore, resolver roster.Resolver, logger *slog.Logger, collector metrics.Collector) *DeliveryService {
	return &DeliveryService{
		registry: reg,
		senders:  senders,
		roster:   resolver,
		logger:   logger,
		metrics:  collector,
	}
}

func (s *DeliveryService) ToConnection(_ context.Context, sessionID string, frame push.Outbound) bool {
	ok := s.senders.Send(sessionID, frame)
	s.count(frame, 1, boolToInt(ok))
	return ok
}

func (s *DeliveryService) ToUser(ctx context.Context, user uint32, frame push.Outbound) int {
	ids, err := s.registry.IDsOf(ctx, user)
	if err != nil {
		s.logger.Warn("session lookup failed during fan-out", "user_id", user, "err", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}
	n := s.senders.Broadcast(ids, frame)
	s.count(frame, len(ids), n)
	return n
}

func (s *DeliveryService) ToGroup(ctx context.Context, group uint32, frame push.Outbound) int {
	members, err := s.roster.Members(ctx, group)
	if err != nil {
		// The message is already durable; members catch up over the
		// history endpoints.
		s.logger.Warn("member resolution failed, push skipped", "group_id", group, "err", err)
		return 0
	}
	if len(members) == 0 {
		s.logger.Warn("push to empty group", "group_id", group)
		return 0
	}

	n := 0
	for _, member := range members {
		n += s.ToUser(ctx, member, frame)
	}
	return n
}

func (s *DeliveryService) count(frame push.Outbound, attempted, accepted int) {
	kind := frame.Kind.String()
	for i := 0; i < accepted; i++ {
		s.metrics.PushEnqueued(kind)
	}
	for i := 0; i < attempted-accepted; i++ {
		s.metrics.PushDropped(kind)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
