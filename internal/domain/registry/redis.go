package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
)

const (
	sessionKeyPrefix   = "session:"
	userSessionsPrefix = "user_sessions:"
)

// RedisRegistry keeps sessions in a shared key-value store so a restart, or a
// sibling node pointed at the same Redis, sees the same session table. Layout
// mirrors the in-memory registry: a hash per session and a set per user.
type RedisRegistry struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisRegistry(rdb *redis.Client, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func userSessionsKey(user uint32) string {
	return userSessionsPrefix + strconv.FormatUint(uint64(user), 10)
}

func (r *RedisRegistry) Insert(ctx context.Context, id string, info model.SessionInfo) (bool, error) {
	key := sessionKey(id)
	userKey := userSessionsKey(info.UserID)

	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"user", info.UserID,
		"role", string(info.Role),
		"created_sec", info.CreatedAt.Unix(),
		"created_nsec", int64(info.CreatedAt.Nanosecond()),
		"ip", info.IP,
	)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	pipe.SAdd(ctx, userKey, id)
	card := pipe.SCard(ctx, userKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis registry: insert %s: %w", id, err)
	}
	return card.Val() == 1, nil
}

func (r *RedisRegistry) LookupUser(ctx context.Context, id string) (uint32, error) {
	info, err := r.fetch(ctx, id, true)
	if err != nil {
		return 0, err
	}
	return info.UserID, nil
}

func (r *RedisRegistry) LookupRole(ctx context.Context, id string) (model.Role, error) {
	info, err := r.fetch(ctx, id, true)
	if err != nil {
		return model.RoleInvalid, err
	}
	return info.Role, nil
}

// fetch reads a session hash. With refresh set, a configured TTL slides.
func (r *RedisRegistry) fetch(ctx context.Context, id string, refresh bool) (model.SessionInfo, error) {
	vals, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return model.SessionInfo{}, fmt.Errorf("redis registry: lookup %s: %w", id, err)
	}
	if len(vals) == 0 {
		return model.SessionInfo{}, model.ErrNotFound
	}
	if refresh && r.ttl > 0 {
		r.rdb.Expire(ctx, sessionKey(id), r.ttl)
	}
	return parseSessionHash(vals)
}

func parseSessionHash(vals map[string]string) (model.SessionInfo, error) {
	user, err := strconv.ParseUint(vals["user"], 10, 32)
	if err != nil {
		return model.SessionInfo{}, fmt.Errorf("redis registry: bad user field %q", vals["user"])
	}
	sec, _ := strconv.ParseInt(vals["created_sec"], 10, 64)
	nsec, _ := strconv.ParseInt(vals["created_nsec"], 10, 64)
	return model.SessionInfo{
		UserID:    uint32(user),
		Role:      model.ParseRole(vals["role"]),
		CreatedAt: time.Unix(sec, nsec),
		IP:        vals["ip"],
	}, nil
}

func (r *RedisRegistry) IDsOf(ctx context.Context, user uint32) ([]string, error) {
	userKey := userSessionsKey(user)
	ids, err := r.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis registry: sessions of %d: %w", user, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// TTL expiry removes the session hash but leaves the set member behind;
	// prune the leftovers so presence edges stay accurate.
	pipe := r.rdb.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// Best effort: fall back to the unpruned snapshot.
		return ids, nil
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if checks[i].Val() == 0 {
			stale = append(stale, id)
			continue
		}
		live = append(live, id)
	}
	if len(stale) > 0 {
		r.rdb.SRem(ctx, userKey, stale...)
	}
	return live, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) (model.SessionInfo, bool, error) {
	info, err := r.fetch(ctx, id, false)
	if err != nil {
		return model.SessionInfo{}, false, err
	}
	userKey := userSessionsKey(info.UserID)

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, userKey, id)
	card := pipe.SCard(ctx, userKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return model.SessionInfo{}, false, fmt.Errorf("redis registry: delete %s: %w", id, err)
	}
	return info, card.Val() == 0, nil
}

func (r *RedisRegistry) OnlineTree(ctx context.Context) (map[uint32][]model.SessionEntry, error) {
	tree := make(map[uint32][]model.SessionEntry)
	iter := r.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		vals, err := r.rdb.HGetAll(ctx, key).Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		info, err := parseSessionHash(vals)
		if err != nil {
			continue
		}
		id := strings.TrimPrefix(key, sessionKeyPrefix)
		tree[info.UserID] = append(tree[info.UserID], model.SessionEntry{ID: id, Info: info})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis registry: scan: %w", err)
	}
	return tree, nil
}

func (r *RedisRegistry) ClearAll(ctx context.Context) error {
	for _, pattern := range []string{sessionKeyPrefix + "*", userSessionsPrefix + "*"} {
		iter := r.rdb.Scan(ctx, 0, pattern, 256).Iterator()
		batch := make([]string, 0, 256)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == cap(batch) {
				if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
					return fmt.Errorf("redis registry: clear: %w", err)
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("redis registry: scan %s: %w", pattern, err)
		}
		if len(batch) > 0 {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis registry: clear: %w", err)
			}
		}
	}
	return nil
}
