package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

// MessageCreated is the export copy of a persisted message, published after
// local fan-out so downstream consumers (archiving, bots, sibling nodes) can
// react without touching the database.
type MessageCreated struct {
	ID         string `json:"id"`
	Scope      string `json:"scope"` // "private" or "group"
	MessageID  uint64 `json:"message_id"`
	SenderID   uint32 `json:"sender_id"`
	PeerID     uint32 `json:"peer_id"` // receiver for private, group id for group
	Type       string `json:"message_type"`
	Body       string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
	OccurredAt int64  `json:"occurred_at"`
}

// NewPrivateMessageCreated wraps a persisted direct message for export.
func NewPrivateMessageCreated(id uint64, sender, receiver uint32, typ model.MessageType, body string, ts int64) *MessageCreated {
	return newMessageCreated("private", id, sender, receiver, typ, body, ts)
}

// NewGroupMessageCreated wraps a persisted group message for export.
func NewGroupMessageCreated(id uint64, sender, group uint32, typ model.MessageType, body string, ts int64) *MessageCreated {
	return newMessageCreated("group", id, sender, group, typ, body, ts)
}

func newMessageCreated(scope string, id uint64, sender, peer uint32, typ model.MessageType, body string, ts int64) *MessageCreated {
	return &MessageCreated{
		ID:         uuid.NewString(),
		Scope:      scope,
		MessageID:  id,
		SenderID:   sender,
		PeerID:     peer,
		Type:       string(typ),
		Body:       body,
		Timestamp:  ts,
		OccurredAt: time.Now().UnixMilli(),
	}
}

func (e *MessageCreated) GetID() string { return e.ID }

func (e *MessageCreated) GetRoutingKey() string {
	if e.Scope == "group" {
		return TopicGroupMessageCreated
	}
	return TopicPrivateMessageCreated
}

func (e *MessageCreated) GetOccurredAt() int64 { return e.OccurredAt }
