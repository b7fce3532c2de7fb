package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

// MemoryStore keeps everything in maps behind one mutex. The single lock is
// what serializes message inserts, so assigned (timestamp, id) pairs order
// the same way the MySQL store's auto-increment does.
type MemoryStore struct {
	mu sync.Mutex

	users   map[uint32]model.User
	friends map[uint32]map[uint32]struct{}

	groups  map[uint32]model.Group
	members map[uint32]map[uint32]struct{}

	privMsgs  map[uint64]model.PrivateMessage
	groupMsgs map[uint64]model.GroupMessage

	nextUserID    uint32
	nextGroupID   uint32
	nextPrivID    uint64
	nextGroupMsID uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint32]model.User),
		friends:       make(map[uint32]map[uint32]struct{}),
		groups:        make(map[uint32]model.Group),
		members:       make(map[uint32]map[uint32]struct{}),
		privMsgs:      make(map[uint64]model.PrivateMessage),
		groupMsgs:     make(map[uint64]model.GroupMessage),
		nextUserID:    1,
		nextGroupID:   1,
		nextPrivID:    1,
		nextGroupMsID: 1,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string, role model.Role) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextUserID
	s.nextUserID++
	s.users[id] = model.User{
		ID:           id,
		Username:     username,
		Role:         role,
		PasswordHash: passwordHash,
	}
	return id, nil
}

func (s *MemoryStore) UserByID(_ context.Context, id uint32) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) Users(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, id uint32, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

func (s *MemoryStore) UpdateAvatar(_ context.Context, id uint32, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.AvatarURL = url
	s.users[id] = u
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return model.ErrNotFound
	}

	now := time.Now().UnixMilli()
	for friend := range s.friends[id] {
		if set, ok := s.friends[friend]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.friends, friend)
			}
		}
		s.bumpFriendsLocked(friend, now)
	}
	delete(s.friends, id)

	for _, set := range s.members {
		delete(set, id)
	}

	for mid, m := range s.privMsgs {
		if m.SenderID == id || m.ReceiverID == id {
			delete(s.privMsgs, mid)
		}
	}
	for mid, m := range s.groupMsgs {
		if m.SenderID == id {
			delete(s.groupMsgs, mid)
		}
	}

	delete(s.users, id)
	return nil
}

// bumpFriendsLocked and bumpGroupsLocked touch the contact-list markers on a
// user row when the row still exists. Callers hold s.mu.
func (s *MemoryStore) bumpFriendsLocked(id uint32, now int64) {
	if u, ok := s.users[id]; ok {
		u.FriendsUpdatedAt = now
		s.users[id] = u
	}
}

func (s *MemoryStore) bumpGroupsLocked(id uint32, now int64) {
	if u, ok := s.users[id]; ok {
		u.GroupsUpdatedAt = now
		s.users[id] = u
	}
}

func (s *MemoryStore) FriendIDs(_ context.Context, user uint32) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.friends[user]), nil
}

func (s *MemoryStore) Friends(_ context.Context, user uint32) ([]model.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := sortedIDs(s.friends[user])
	out := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}

func (s *MemoryStore) AddFriend(_ context.Context, user, friend uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.friends[user][friend]; ok {
		return nil
	}
	link := func(a, b uint32) {
		set, ok := s.friends[a]
		if !ok {
			set = make(map[uint32]struct{})
			s.friends[a] = set
		}
		set[b] = struct{}{}
	}
	link(user, friend)
	link(friend, user)

	now := time.Now().UnixMilli()
	s.bumpFriendsLocked(user, now)
	s.bumpFriendsLocked(friend, now)
	return nil
}

func (s *MemoryStore) RemoveFriend(_ context.Context, user, friend uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.friends[user][friend]; !ok {
		return nil
	}
	unlink := func(a, b uint32) {
		set := s.friends[a]
		delete(set, b)
		if len(set) == 0 {
			delete(s.friends, a)
		}
	}
	unlink(user, friend)
	unlink(friend, user)

	now := time.Now().UnixMilli()
	s.bumpFriendsLocked(user, now)
	s.bumpFriendsLocked(friend, now)
	return nil
}

func (s *MemoryStore) CreateGroup(_ context.Context, name string, creator uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextGroupID
	s.nextGroupID++
	s.groups[id] = model.Group{ID: id, Name: name, CreatorID: creator}
	s.members[id] = map[uint32]struct{}{creator: {}}
	s.bumpGroupsLocked(creator, time.Now().UnixMilli())
	return id, nil
}

func (s *MemoryStore) GroupByID(_ context.Context, id uint32) (model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return model.Group{}, model.ErrNotFound
	}
	return g, nil
}

func (s *MemoryStore) GroupsOf(_ context.Context, user uint32) ([]model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Group
	for gid, set := range s.members {
		if _, ok := set[user]; !ok {
			continue
		}
		if g, ok := s.groups[gid]; ok {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) MemberIDs(_ context.Context, group uint32) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.members[group]), nil
}

func (s *MemoryStore) AddMember(_ context.Context, group, user uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.members[group]
	if !ok {
		set = make(map[uint32]struct{})
		s.members[group] = set
	}
	if _, ok := set[user]; ok {
		return nil
	}
	set[user] = struct{}{}
	s.bumpGroupsLocked(user, time.Now().UnixMilli())
	return nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, group, user uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.members[group]
	if !ok {
		return nil
	}
	if _, ok := set[user]; !ok {
		return nil
	}
	delete(set, user)
	s.bumpGroupsLocked(user, time.Now().UnixMilli())
	return nil
}

func (s *MemoryStore) InsertPrivateMessage(_ context.Context, sender, receiver uint32, typ model.MessageType, body string) (uint64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextPrivID
	s.nextPrivID++
	ts := time.Now().UnixMilli()
	s.privMsgs[id] = model.PrivateMessage{
		ID:         id,
		SenderID:   sender,
		ReceiverID: receiver,
		Type:       typ,
		Body:       body,
		Timestamp:  ts,
	}
	return id, ts, nil
}

func (s *MemoryStore) InsertGroupMessage(_ context.Context, group, sender uint32, typ model.MessageType, body string) (uint64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextGroupMsID
	s.nextGroupMsID++
	ts := time.Now().UnixMilli()
	s.groupMsgs[id] = model.GroupMessage{
		ID:        id,
		GroupID:   group,
		SenderID:  sender,
		Type:      typ,
		Body:      body,
		Timestamp: ts,
	}
	return id, ts, nil
}

func (s *MemoryStore) PrivateMessageByID(_ context.Context, id uint64) (model.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.privMsgs[id]
	if !ok {
		return model.PrivateMessage{}, model.ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) GroupMessageByID(_ context.Context, id uint64) (model.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.groupMsgs[id]
	if !ok {
		return model.GroupMessage{}, model.ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) conversationLocked(a, b uint32) []model.PrivateMessage {
	var out []model.PrivateMessage
	for _, m := range s.privMsgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sortPrivate(out)
	return out
}

func (s *MemoryStore) groupHistoryLocked(group uint32) []model.GroupMessage {
	var out []model.GroupMessage
	for _, m := range s.groupMsgs {
		if m.GroupID == group {
			out = append(out, m)
		}
	}
	sortGroup(out)
	return out
}

func (s *MemoryStore) PrivateMessages(_ context.Context, a, b uint32, offset int) ([]model.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pageOf(s.conversationLocked(a, b), offset), nil
}

func (s *MemoryStore) GroupMessages(_ context.Context, group uint32, offset int) ([]model.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pageOf(s.groupHistoryLocked(group), offset), nil
}

func (s *MemoryStore) PrivateMessagesAfter(_ context.Context, a, b uint32, ts int64) ([]model.PrivateMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.conversationLocked(a, b)
	out := all[:0:0]
	for _, m := range all {
		if m.Timestamp > ts {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) GroupMessagesAfter(_ context.Context, group uint32, ts int64) ([]model.GroupMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.groupHistoryLocked(group)
	out := all[:0:0]
	for _, m := range all {
		if m.Timestamp > ts {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) LatestPrivateTimestamp(_ context.Context, a, b uint32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest int64
	for _, m := range s.privMsgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			if m.Timestamp > latest {
				latest = m.Timestamp
			}
		}
	}
	return latest, nil
}

func (s *MemoryStore) LatestGroupTimestamp(_ context.Context, group uint32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest int64
	for _, m := range s.groupMsgs {
		if m.GroupID == group && m.Timestamp > latest {
			latest = m.Timestamp
		}
	}
	return latest, nil
}

func (s *MemoryStore) DeletePrivateMessage(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.privMsgs[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.privMsgs, id)
	return nil
}

func (s *MemoryStore) DeleteGroupMessage(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groupMsgs[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.groupMsgs, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func sortedIDs(set map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortPrivate(ms []model.PrivateMessage) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Timestamp != ms[j].Timestamp {
			return ms[i].Timestamp < ms[j].Timestamp
		}
		return ms[i].ID < ms[j].ID
	})
}

func sortGroup(ms []model.GroupMessage) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Timestamp != ms[j].Timestamp {
			return ms[i].Timestamp < ms[j].Timestamp
		}
		return ms[i].ID < ms[j].ID
	})
}

func pageOf[T any](all []T, offset int) []T {
	start := offset * PageSize
	if start < 0 || start >= len(all) {
		return []T{}
	}
	end := start + PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
