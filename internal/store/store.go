// Package store persists accounts, rosters, groups, and message history.
// Two implementations exist: a sqlx-backed MySQL store for deployments and a
// mutex-guarded in-memory store used by unit tests and the "memory" database
// type. Both assign message ids and timestamps under their own serialization,
// so a (timestamp, id) sort is a total order within one conversation.
package store

import (
	"context"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

// PageSize is the number of messages returned per history page.
const PageSize = 30

// UserStore manages account rows.
type UserStore interface {
	// CreateUser inserts an account and returns its assigned id.
	CreateUser(ctx context.Context, username, passwordHash string, role model.Role) (uint32, error)
	// UserByID returns the full account row, model.ErrNotFound when absent.
	UserByID(ctx context.Context, id uint32) (model.User, error)
	// Users lists every account ordered by id.
	Users(ctx context.Context) ([]model.User, error)
	UpdatePassword(ctx context.Context, id uint32, passwordHash string) error
	UpdateAvatar(ctx context.Context, id uint32, url string) error
	// DeleteUser removes the account and cascades: friendship rows on both
	// sides (bumping each partner's friends_updated_at), group memberships,
	// private messages the user sent or received, and group messages the
	// user sent. Groups the user created survive.
	DeleteUser(ctx context.Context, id uint32) error
}

// FriendStore manages the symmetric friendship relation. Every edge is stored
// as two rows, one per direction, written atomically.
type FriendStore interface {
	FriendIDs(ctx context.Context, user uint32) ([]uint32, error)
	Friends(ctx context.Context, user uint32) ([]model.UserSummary, error)
	// AddFriend links both directions and bumps both users'
	// friends_updated_at. Adding an existing friend is a no-op.
	AddFriend(ctx context.Context, user, friend uint32) error
	// RemoveFriend unlinks both directions. Removing a non-friend is a
	// no-op and bumps nothing.
	RemoveFriend(ctx context.Context, user, friend uint32) error
}

// GroupStore manages groups and their member sets.
type GroupStore interface {
	// CreateGroup inserts the group with the creator as its first member.
	CreateGroup(ctx context.Context, name string, creator uint32) (uint32, error)
	GroupByID(ctx context.Context, id uint32) (model.Group, error)
	// GroupsOf lists the groups the user belongs to, ordered by group id.
	GroupsOf(ctx context.Context, user uint32) ([]model.Group, error)
	MemberIDs(ctx context.Context, group uint32) ([]uint32, error)
	// AddMember and RemoveMember bump the user's groups_updated_at. Both
	// are idempotent.
	AddMember(ctx context.Context, group, user uint32) error
	RemoveMember(ctx context.Context, group, user uint32) error
}

// MessageStore persists private and group history. Inserts return the
// assigned (id, unix-millisecond timestamp) pair; history reads are ordered
// by (timestamp, id) ascending.
type MessageStore interface {
	InsertPrivateMessage(ctx context.Context, sender, receiver uint32, typ model.MessageType, body string) (uint64, int64, error)
	InsertGroupMessage(ctx context.Context, group, sender uint32, typ model.MessageType, body string) (uint64, int64, error)

	PrivateMessageByID(ctx context.Context, id uint64) (model.PrivateMessage, error)
	GroupMessageByID(ctx context.Context, id uint64) (model.GroupMessage, error)

	// PrivateMessages pages through the two-sided conversation between a
	// and b, skipping offset*PageSize rows. GroupMessages mirrors it for a
	// group's history.
	PrivateMessages(ctx context.Context, a, b uint32, offset int) ([]model.PrivateMessage, error)
	GroupMessages(ctx context.Context, group uint32, offset int) ([]model.GroupMessage, error)

	// The After variants return every row with timestamp strictly greater
	// than the given one, unpaginated. Reconnecting clients use them to
	// catch up from their last seen timestamp.
	PrivateMessagesAfter(ctx context.Context, a, b uint32, ts int64) ([]model.PrivateMessage, error)
	GroupMessagesAfter(ctx context.Context, group uint32, ts int64) ([]model.GroupMessage, error)

	// Latest timestamps are 0 when the conversation is empty.
	LatestPrivateTimestamp(ctx context.Context, a, b uint32) (int64, error)
	LatestGroupTimestamp(ctx context.Context, group uint32) (int64, error)

	DeletePrivateMessage(ctx context.Context, id uint64) error
	DeleteGroupMessage(ctx context.Context, id uint64) error
}

// Store is the full persistence surface the services depend on.
type Store interface {
	UserStore
	FriendStore
	GroupStore
	MessageStore

	Close() error
}
