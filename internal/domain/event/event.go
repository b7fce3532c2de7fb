// Package event defines the envelopes published on the internal bus and, when
// an exchange is configured, exported to AMQP.
package event

// Topics events are published under. The presence topic stays on the
// in-process bus; message topics are routing keys on the export exchange.
const (
	TopicPresenceEdge = "presence.edge"

	TopicPrivateMessageCreated = "uchat.message.private.created"
	TopicGroupMessageCreated   = "uchat.message.group.created"
)

// Eventer is the contract the dispatcher publishes through.
type Eventer interface {
	GetID() string
	GetRoutingKey() string
	GetOccurredAt() int64
}
