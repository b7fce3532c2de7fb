package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	alice, err := s.CreateUser(ctx, "alice", "hash-a", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), alice)

	bob, err := s.CreateUser(ctx, "bob", "hash-b", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), bob)

	u, err := s.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, "hash-a", u.PasswordHash)

	_, err = s.UserByID(ctx, 99)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.UpdatePassword(ctx, alice, "hash-a2"))
	require.NoError(t, s.UpdateAvatar(ctx, alice, "/static/avatars/1.png"))
	u, err = s.UserByID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "hash-a2", u.PasswordHash)
	assert.Equal(t, "/static/avatars/1.png", u.AvatarURL)

	assert.ErrorIs(t, s.UpdatePassword(ctx, 99, "x"), model.ErrNotFound)
	assert.ErrorIs(t, s.UpdateAvatar(ctx, 99, "x"), model.ErrNotFound)

	all, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint32(1), all[0].ID)
	assert.Equal(t, uint32(2), all[1].ID)
}

func TestMemoryStoreFriendshipSymmetry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	a, _ := s.CreateUser(ctx, "a", "h", model.RoleUser)
	b, _ := s.CreateUser(ctx, "b", "h", model.RoleUser)

	require.NoError(t, s.AddFriend(ctx, a, b))

	ids, err := s.FriendIDs(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []uint32{b}, ids)
	ids, err = s.FriendIDs(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []uint32{a}, ids)

	ua, _ := s.UserByID(ctx, a)
	ub, _ := s.UserByID(ctx, b)
	assert.NotZero(t, ua.FriendsUpdatedAt)
	assert.NotZero(t, ub.FriendsUpdatedAt)

	friends, err := s.Friends(ctx, a)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "b", friends[0].Username)

	// Re-adding is a no-op and leaves the markers alone.
	before := ua.FriendsUpdatedAt
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.AddFriend(ctx, a, b))
	ua, _ = s.UserByID(ctx, a)
	assert.Equal(t, before, ua.FriendsUpdatedAt)

	require.NoError(t, s.RemoveFriend(ctx, a, b))
	ids, _ = s.FriendIDs(ctx, a)
	assert.Empty(t, ids)
	ids, _ = s.FriendIDs(ctx, b)
	assert.Empty(t, ids)

	// Removing a non-friend is a no-op.
	require.NoError(t, s.RemoveFriend(ctx, a, b))
}

func TestMemoryStoreGroups(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	creator, _ := s.CreateUser(ctx, "c", "h", model.RoleUser)
	other, _ := s.CreateUser(ctx, "o", "h", model.RoleUser)

	gid, err := s.CreateGroup(ctx, "room", creator)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), gid)

	g, err := s.GroupByID(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, "room", g.Name)
	assert.Equal(t, creator, g.CreatorID)

	_, err = s.GroupByID(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)

	members, err := s.MemberIDs(ctx, gid)
	require.NoError(t, err)
	assert.Equal(t, []uint32{creator}, members, "creator joins on creation")

	require.NoError(t, s.AddMember(ctx, gid, other))
	require.NoError(t, s.AddMember(ctx, gid, other))
	members, _ = s.MemberIDs(ctx, gid)
	assert.Equal(t, []uint32{creator, other}, members)

	uo, _ := s.UserByID(ctx, other)
	assert.NotZero(t, uo.GroupsUpdatedAt)

	groups, err := s.GroupsOf(ctx, other)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, gid, groups[0].ID)

	require.NoError(t, s.RemoveMember(ctx, gid, other))
	groups, _ = s.GroupsOf(ctx, other)
	assert.Empty(t, groups)
	require.NoError(t, s.RemoveMember(ctx, gid, other))
}

func TestMemoryStorePrivateMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id1, ts1, err := s.InsertPrivateMessage(ctx, 1, 2, model.MessageText, "first")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id1)
	assert.Positive(t, ts1)

	time.Sleep(2 * time.Millisecond)
	id2, ts2, err := s.InsertPrivateMessage(ctx, 2, 1, model.MessageText, "second")
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
	assert.Greater(t, ts2, ts1)

	// An unrelated conversation stays out of the page.
	_, _, err = s.InsertPrivateMessage(ctx, 1, 3, model.MessageText, "noise")
	require.NoError(t, err)

	m, err := s.PrivateMessageByID(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "first", m.Body)
	assert.Equal(t, model.MessageText, m.Type)

	page, err := s.PrivateMessages(ctx, 1, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "first", page[0].Body)
	assert.Equal(t, "second", page[1].Body, "both directions, timestamp ascending")

	// Same page regardless of which side asks.
	mirror, err := s.PrivateMessages(ctx, 2, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, page, mirror)

	after, err := s.PrivateMessagesAfter(ctx, 1, 2, ts1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "second", after[0].Body)

	latest, err := s.LatestPrivateTimestamp(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, ts2, latest)

	latest, err = s.LatestPrivateTimestamp(ctx, 7, 8)
	require.NoError(t, err)
	assert.Zero(t, latest, "empty conversation reports zero")

	require.NoError(t, s.DeletePrivateMessage(ctx, id1))
	_, err = s.PrivateMessageByID(ctx, id1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.DeletePrivateMessage(ctx, id1), model.ErrNotFound)
}

func TestMemoryStorePagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < PageSize+5; i++ {
		_, _, err := s.InsertGroupMessage(ctx, 10, 1, model.MessageText, "m")
		require.NoError(t, err)
	}

	page0, err := s.GroupMessages(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, page0, PageSize)

	page1, err := s.GroupMessages(ctx, 10, 1)
	require.NoError(t, err)
	assert.Len(t, page1, 5)

	page2, err := s.GroupMessages(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page2)

	// Ids break timestamp ties, so pages never overlap.
	assert.Greater(t, page1[0].ID, page0[PageSize-1].ID)
}

func TestMemoryStoreGroupMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id1, ts1, err := s.InsertGroupMessage(ctx, 10, 1, model.MessageText, "hello")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, ts2, err := s.InsertGroupMessage(ctx, 10, 2, model.MessageImage, "pic")
	require.NoError(t, err)
	_, _, err = s.InsertGroupMessage(ctx, 11, 1, model.MessageText, "elsewhere")
	require.NoError(t, err)

	m, err := s.GroupMessageByID(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), m.GroupID)

	after, err := s.GroupMessagesAfter(ctx, 10, ts1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, model.MessageImage, after[0].Type)

	latest, err := s.LatestGroupTimestamp(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, ts2, latest)

	require.NoError(t, s.DeleteGroupMessage(ctx, id1))
	assert.ErrorIs(t, s.DeleteGroupMessage(ctx, id1), model.ErrNotFound)
}

func TestMemoryStoreDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	victim, _ := s.CreateUser(ctx, "victim", "h", model.RoleUser)
	partner, _ := s.CreateUser(ctx, "partner", "h", model.RoleUser)

	require.NoError(t, s.AddFriend(ctx, victim, partner))
	gid, _ := s.CreateGroup(ctx, "room", victim)
	require.NoError(t, s.AddMember(ctx, gid, partner))

	_, _, err := s.InsertPrivateMessage(ctx, victim, partner, model.MessageText, "from victim")
	require.NoError(t, err)
	_, _, err = s.InsertPrivateMessage(ctx, partner, victim, model.MessageText, "to victim")
	require.NoError(t, err)
	keptID, _, err := s.InsertGroupMessage(ctx, gid, partner, model.MessageText, "kept")
	require.NoError(t, err)
	_, _, err = s.InsertGroupMessage(ctx, gid, victim, model.MessageText, "dropped")
	require.NoError(t, err)

	pu, _ := s.UserByID(ctx, partner)
	markBefore := pu.FriendsUpdatedAt
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, s.DeleteUser(ctx, victim))
	assert.ErrorIs(t, s.DeleteUser(ctx, victim), model.ErrNotFound)

	_, err = s.UserByID(ctx, victim)
	assert.ErrorIs(t, err, model.ErrNotFound)

	ids, _ := s.FriendIDs(ctx, partner)
	assert.Empty(t, ids, "partner side of the friendship is gone")
	pu, _ = s.UserByID(ctx, partner)
	assert.Greater(t, pu.FriendsUpdatedAt, markBefore, "partner's roster marker is bumped")

	members, _ := s.MemberIDs(ctx, gid)
	assert.Equal(t, []uint32{partner}, members)

	_, err = s.GroupByID(ctx, gid)
	assert.NoError(t, err, "groups outlive their creator")

	page, _ := s.PrivateMessages(ctx, victim, partner, 0)
	assert.Empty(t, page, "private history with the victim is gone")

	history, _ := s.GroupMessages(ctx, gid, 0)
	require.Len(t, history, 1)
	assert.Equal(t, keptID, history[0].ID, "only the victim's group messages are dropped")
}
