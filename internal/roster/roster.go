// Package roster resolves friend lists and group member sets for fan-out.
// Loads go through a cache (in-process LRU or shared Redis), collapse
// concurrent misses with singleflight, and cross a circuit breaker on the way
// to the store. Mutating handlers invalidate the affected entries so the next
// fan-out observes the new membership.
package roster

import "context"

// Resolver is what delivery and presence consult for recipient sets.
type Resolver interface {
	Friends(ctx context.Context, user uint32) ([]uint32, error)
	Members(ctx context.Context, group uint32) ([]uint32, error)

	// Invalidate drops the cached entry after a roster mutation. The
	// mutation is already durable when these are called; a failed drop is
	// reported so the caller can log it, staleness is then bounded by the
	// cache TTL.
	InvalidateFriends(ctx context.Context, user uint32) error
	InvalidateMembers(ctx context.Context, group uint32) error
}

// Cache is the storage behind the Resolver. The bool reports presence, so an
// empty roster caches as ([], true) rather than a miss.
type Cache interface {
	GetFriends(ctx context.Context, user uint32) ([]uint32, bool, error)
	SetFriends(ctx context.Context, user uint32, ids []uint32) error
	DropFriends(ctx context.Context, user uint32) error

	GetMembers(ctx context.Context, group uint32) ([]uint32, bool, error)
	SetMembers(ctx context.Context, group uint32, ids []uint32) error
	DropMembers(ctx context.Context, group uint32) error
}
