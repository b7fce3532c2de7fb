// Package metrics defines the Collector interface the services record into,
// with a prometheus-backed implementation and a no-op used when the metrics
// endpoint is disabled.
package metrics

// Collector records chat server metrics.
type Collector interface {
	// Websocket connection lifecycle.
	ConnectionOpened()
	ConnectionClosed()

	// Session registry mutations.
	SessionInserted()
	SessionDeleted()

	// Authentication outcomes.
	AuthAttempt(success bool)

	// Message persistence, scope is "private" or "group".
	MessagePersisted(scope string)

	// Push frames entering mailboxes; kind is the frame name. A drop means
	// the mailbox was closed or overflowed.
	PushEnqueued(kind string)
	PushDropped(kind string)

	// Presence transitions fanned out to friends.
	PresenceEdge(online bool)

	// Roster cache outcomes, kind is "friends" or "members".
	CacheHit(kind string)
	CacheMiss(kind string)
}
