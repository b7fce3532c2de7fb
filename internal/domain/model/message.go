package model

// MessageType mirrors the persisted message_type column.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
	MessageVideo MessageType = "video"
	MessageAudio MessageType = "audio"
)

// PrivateMessage is one direct message row. Timestamp is milliseconds since
// the epoch, assigned by the store at insert; rows are immutable afterwards.
// Clients order conversations by (timestamp, id).
type PrivateMessage struct {
	ID         uint64      `db:"id" json:"id"`
	SenderID   uint32      `db:"sender_id" json:"sender_id"`
	ReceiverID uint32      `db:"receiver_id" json:"receiver_id"`
	Type       MessageType `db:"message_type" json:"message_type"`
	Body       string      `db:"message" json:"message"`
	Timestamp  int64       `db:"timestamp" json:"timestamp"`
}

// GroupMessage is the group-scoped counterpart of PrivateMessage.
type GroupMessage struct {
	ID        uint64      `db:"id" json:"id"`
	GroupID   uint32      `db:"group_id" json:"group_id"`
	SenderID  uint32      `db:"sender_id" json:"sender_id"`
	Type      MessageType `db:"message_type" json:"message_type"`
	Body      string      `db:"message" json:"message"`
	Timestamp int64       `db:"timestamp" json:"timestamp"`
}
