// Package registry tracks live sessions and the mailboxes their connections
// drain.
//
// Two structures cooperate without owning each other: the SessionRegistry
// records which user and role a session id binds to, and the SenderStore
// holds the outbound mailbox for the connection currently serving that id.
// Both are keyed by the opaque session id, so teardown is always registry
// delete first, then sender remove. Every operation is linearizable per id;
// a fan-out may still observe a session whose mailbox has just closed, and
// callers treat that as a silent skip.
package registry

import (
	"context"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

// SessionRegistry is the authoritative view of live sessions. Implementations
// keep the reverse index consistent with the primary map: an id appears under
// a user exactly when the primary record names that user, and a user with no
// ids has no bucket at all.
type SessionRegistry interface {
	// Insert creates or overwrites the record for id and reports whether the
	// user had no live sessions before this one (the online edge).
	Insert(ctx context.Context, id string, info model.SessionInfo) (first bool, err error)

	// LookupUser resolves the session's user, refreshing any sliding TTL.
	// model.ErrNotFound when the id is unknown or expired.
	LookupUser(ctx context.Context, id string) (uint32, error)

	// LookupRole resolves the session's role, refreshing any sliding TTL.
	LookupRole(ctx context.Context, id string) (model.Role, error)

	// IDsOf snapshots the session ids of a user; an offline user yields an
	// empty snapshot.
	IDsOf(ctx context.Context, user uint32) ([]string, error)

	// Delete removes id from both maps and reports whether the user now has
	// no sessions left (the offline edge). model.ErrNotFound when unknown.
	Delete(ctx context.Context, id string) (info model.SessionInfo, last bool, err error)

	// OnlineTree snapshots user → sessions for administrative display.
	OnlineTree(ctx context.Context) (map[uint32][]model.SessionEntry, error)

	// ClearAll wipes every session. The caller is responsible for closing
	// the mailboxes in the SenderStore alongside.
	ClearAll(ctx context.Context) error
}
