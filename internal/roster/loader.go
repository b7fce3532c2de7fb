package roster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

// Roster is the cache-aside Resolver. Concurrent misses for the same key
// collapse into one store load, and the breaker stops hammering a store
// that keeps failing.
type Roster struct {
	cache   Cache
	friends store.FriendStore
	groups  store.GroupStore

	sf      singleflight.Group
	breaker *gobreaker.CircuitBreaker

	logger  *slog.Logger
	metrics metrics.Collector
}

func NewRoster(cache Cache, friends store.FriendStore, groups store.GroupStore, logger *slog.Logger, collector metrics.Collector) *Roster {
	return &Roster{
		cache:   cache,
		friends: friends,
		groups:  groups,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "roster-store",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
		logger:  logger,
		metrics: collector,
	}
}

var _ Resolver = (*Roster)(nil)

func (r *Roster) Friends(ctx context.Context, user uint32) ([]uint32, error) {
	ids, ok, err := r.cache.GetFriends(ctx, user)
	if err != nil {
		r.logger.Debug("roster cache read failed", "kind", "friends", "user_id", user, "err", err)
	} else if ok {
		r.metrics.CacheHit("friends")
		return ids, nil
	}
	r.metrics.CacheMiss("friends")

	v, err, _ := r.sf.Do(fmt.Sprintf("friends/%d", user), func() (interface{}, error) {
		return r.breaker.Execute(func() (interface{}, error) {
			loaded, err := r.friends.FriendIDs(ctx, user)
			if err != nil {
				return nil, err
			}
			if cerr := r.cache.SetFriends(ctx, user, loaded); cerr != nil {
				r.logger.Warn("roster cache write failed", "kind", "friends", "user_id", user, "err", cerr)
			}
			return loaded, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("roster: load friends of %d: %w", user, err)
	}
	return v.([]uint32), nil
}

func (r *Roster) Members(ctx context.Context, group uint32) ([]uint32, error) {
	ids, ok, err := r.cache.GetMembers(ctx, group)
	if err != nil {
		r.logger.Debug("roster cache read failed", "kind", "members", "group_id", group, "err", err)
	} else if ok {
		r.metrics.CacheHit("members")
		return ids, nil
	}
	r.metrics.CacheMiss("members")

	v, err, _ := r.sf.Do(fmt.Sprintf("members/%d", group), func() (interface{}, error) {
		return r.breaker.Execute(func() (interface{}, error) {
			loaded, err := r.groups.MemberIDs(ctx, group)
			if err != nil {
				return nil, err
			}
			if cerr := r.cache.SetMembers(ctx, group, loaded); cerr != nil {
				r.logger.Warn("roster cache write failed", "kind", "members", "group_id", group, "err", cerr)
			}
			return loaded, nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("roster: load members of %d: %w", group, err)
	}
	return v.([]uint32), nil
}

func (r *Roster) InvalidateFriends(ctx context.Context, user uint32) error {
	return r.cache.DropFriends(ctx, user)
}

func (r *Roster) InvalidateMembers(ctx context.Context, group uint32) error {
	return r.cache.DropMembers(ctx, group)
}
