package event

import (
	"time"

	"github.com/google/uuid"
)

// PresenceEdge announces that a user crossed an online/offline boundary:
// first connection up or last connection down. Exactly one is published per
// edge.
type PresenceEdge struct {
	ID         string `json:"id"`
	UserID     uint32 `json:"user_id"`
	Online     bool   `json:"online"`
	OccurredAt int64  `json:"occurred_at"`
}

// NewPresenceEdge stamps a presence edge for user.
func NewPresenceEdge(user uint32, online bool) *PresenceEdge {
	return &PresenceEdge{
		ID:         uuid.NewString(),
		UserID:     user,
		Online:     online,
		OccurredAt: time.Now().UnixMilli(),
	}
}

func (e *PresenceEdge) GetID() string         { return e.ID }
func (e *PresenceEdge) GetRoutingKey() string { return TopicPresenceEdge }
func (e *PresenceEdge) GetOccurredAt() int64  { return e.OccurredAt }
