package roster

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const lruCacheSize = 10000

// LRUCache keeps hot rosters in process memory. The default when no Redis is
// configured.
type LRUCache struct {
	friends *lru.Cache[uint32, []uint32]
	members *lru.Cache[uint32, []uint32]
}

func NewLRUCache() *LRUCache {
	friends, _ := lru.New[uint32, []uint32](lruCacheSize)
	members, _ := lru.New[uint32, []uint32](lruCacheSize)
	return &LRUCache{friends: friends, members: members}
}

var _ Cache = (*LRUCache)(nil)

func (c *LRUCache) GetFriends(_ context.Context, user uint32) ([]uint32, bool, error) {
	ids, ok := c.friends.Get(user)
	return ids, ok, nil
}

func (c *LRUCache) SetFriends(_ context.Context, user uint32, ids []uint32) error {
	c.friends.Add(user, ids)
	return nil
}

func (c *LRUCache) DropFriends(_ context.Context, user uint32) error {
	c.friends.Remove(user)
	return nil
}

func (c *LRUCache) GetMembers(_ context.Context, group uint32) ([]uint32, bool, error) {
	ids, ok := c.members.Get(group)
	return ids, ok, nil
}

func (c *LRUCache) SetMembers(_ context.Context, group uint32, ids []uint32) error {
	c.members.Add(group, ids)
	return nil
}

func (c *LRUCache) DropMembers(_ context.Context, group uint32) error {
	c.members.Remove(group)
	return nil
}
