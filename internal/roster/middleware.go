package roster

import (
	"context"
	"log/slog"
	"time"
)

// resolverMiddleware decorates a Resolver with timing and outcome logging.
type resolverMiddleware struct {
	next   Resolver
	logger *slog.Logger
}

func (m *resolverMiddleware) Friends(ctx context.Context, user uint32) ([]uint32, error) {
	start := time.Now()
	ids, err := m.next.Friends(ctx, user)
	if err != nil {
		m.logger.Warn("friend roster resolution failed",
			"user_id", user,
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	m.logger.Debug("friend roster resolved",
		"user_id", user,
		"count", len(ids),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ids, nil
}

func (m *resolverMiddleware) Members(ctx context.Context, group uint32) ([]uint32, error) {
	start := time.Now()
	ids, err := m.next.Members(ctx, group)
	if err != nil {
		m.logger.Warn("member roster resolution failed",
			"group_id", group,
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	m.logger.Debug("member roster resolved",
		"group_id", group,
		"count", len(ids),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ids, nil
}

func (m *resolverMiddleware) InvalidateFriends(ctx context.Context, user uint32) error {
	if err := m.next.InvalidateFriends(ctx, user); err != nil {
		m.logger.Warn("friend roster invalidation failed", "user_id", user, "err", err)
		return err
	}
	return nil
}

func (m *resolverMiddleware) InvalidateMembers(ctx context.Context, group uint32) error {
	if err := m.next.InvalidateMembers(ctx, group); err != nil {
		m.logger.Warn("member roster invalidation failed", "group_id", group, "err", err)
		return err
	}
	return nil
}
