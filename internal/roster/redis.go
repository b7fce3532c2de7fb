package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// rosterTTL bounds staleness when an invalidation is lost.
const rosterTTL = 10 * time.Minute

// RedisCache shares roster entries across nodes. Entries are JSON id arrays
// under roster:friends:<user> and roster:members:<group>.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

var _ Cache = (*RedisCache)(nil)

func friendsKey(user uint32) string  { return fmt.Sprintf("roster:friends:%d", user) }
func membersKey(group uint32) string { return fmt.Sprintf("roster:members:%d", group) }

func (c *RedisCache) get(ctx context.Context, key string) ([]uint32, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []uint32
	if err := json.Unmarshal(raw, &ids); err != nil {
		// A corrupt entry reads as a miss; the reload overwrites it.
		return nil, false, err
	}
	return ids, true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, ids []uint32) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, rosterTTL).Err()
}

func (c *RedisCache) GetFriends(ctx context.Context, user uint32) ([]uint32, bool, error) {
	return c.get(ctx, friendsKey(user))
}

func (c *RedisCache) SetFriends(ctx context.Context, user uint32, ids []uint32) error {
	return c.set(ctx, friendsKey(user), ids)
}

func (c *RedisCache) DropFriends(ctx context.Context, user uint32) error {
	return c.rdb.Del(ctx, friendsKey(user)).Err()
}

func (c *RedisCache) GetMembers(ctx context.Context, group uint32) ([]uint32, bool, error) {
	return c.get(ctx, membersKey(group))
}

func (c *RedisCache) SetMembers(ctx context.Context, group uint32, ids []uint32) error {
	return c.set(ctx, membersKey(group), ids)
}

func (c *RedisCache) DropMembers(ctx context.Context, group uint32) error {
	return c.rdb.Del(ctx, membersKey(group)).Err()
}
