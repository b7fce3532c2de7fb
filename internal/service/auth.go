package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/roster"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

// passwordHashCost trades hash strength for login latency; the account
// scheme requires at least bcrypt cost 4.
const passwordHashCost = bcrypt.MinCost

// AuthService owns account and session lifecycle: registration, login and
// logout with their presence edges, password changes, and account deletion
// with its cascades.
type AuthService struct {
	users    store.UserStore
	friends  store.FriendStore
	groups   store.GroupStore
	registry registry.SessionRegistry
	senders  *registry.SenderStore
	roster   roster.Resolver
	presence *PresenceService
	logger   *slog.Logger
	metrics  metrics.Collector
}

func NewAuthService(
	users store.UserStore,
	friends store.FriendStore,
	groups store.GroupStore,
	reg registry.SessionRegistry,
	senders *registry.SenderStore,
	resolver roster.Resolver,
	presence *PresenceService,
	logger *slog.Logger,
	collector metrics.Collector,
) *AuthService {
	return &AuthService{
		users:    users,
		friends:  friends,
		groups:   groups,
		registry: reg,
		senders:  senders,
		roster:   resolver,
		presence: presence,
		logger:   logger,
		metrics:  collector,
	}
}

// Register creates an account and returns its id. Usernames are display
// names, not identities; duplicates are allowed because login goes by id.
func (s *AuthService) Register(ctx context.Context, username, password string) (uint32, error) {
	if username == "" || password == "" {
		return 0, fmt.Errorf("register: empty credentials: %w", model.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return 0, fmt.Errorf("register: hash password: %w", err)
	}

	id, err := s.users.CreateUser(ctx, username, string(hash), model.RoleUser)
	if err != nil {
		return 0, fmt.Errorf("register: create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", id, "username", username)
	return id, nil
}

// Login verifies the password and opens a session. The first session of a
// user fires the online presence edge.
func (s *AuthService) Login(ctx context.Context, userID uint32, password, ip string) (string, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		s.metrics.AuthAttempt(false)
		if errors.Is(err, model.ErrNotFound) {
			return "", fmt.Errorf("login: user %d: %w", userID, model.ErrNotFound)
		}
		return "", fmt.Errorf("login: load user %d: %w", userID, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.AuthAttempt(false)
		return "", fmt.Errorf("login: user %d: %w", userID, model.ErrUnauthenticated)
	}

	if user.Role == model.RoleInvalid {
		s.metrics.AuthAttempt(false)
		return "", fmt.Errorf("login: user %d disabled: %w", userID, model.ErrForbidden)
	}

	sessionID := uuid.Must(uuid.NewV7()).String()
	first, err := s.registry.Insert(ctx, sessionID, model.SessionInfo{
		UserID:    userID,
		Role:      user.Role,
		CreatedAt: time.Now(),
		IP:        ip,
	})
	if err != nil {
		s.metrics.AuthAttempt(false)
		return "", fmt.Errorf("login: register session: %w", err)
	}

	s.metrics.AuthAttempt(true)
	s.metrics.SessionInserted()
	s.logger.Info("session opened", "user_id", userID, "session_id", sessionID, "first", first)

	if first {
		s.presence.UserOnline(ctx, userID)
	}
	return sessionID, nil
}

// Logout deletes the session. Logging out an unknown session is a client
// error; the last session of a user fires the offline presence edge.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	info, last, err := s.registry.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("logout: %w", model.ErrUnauthenticated)
		}
		return fmt.Errorf("logout: delete session: %w", err)
	}

	s.senders.Remove(sessionID)
	s.metrics.SessionDeleted()
	s.logger.Info("session closed", "user_id", info.UserID, "session_id", sessionID, "last", last)

	if last {
		s.presence.UserOffline(ctx, info.UserID)
	}
	return nil
}

// CloseSession is the socket-teardown variant of Logout: the session may
// already be gone (TTL expiry, admin sweep, logout racing the close), which
// is fine. The caller releases its own mailbox.
func (s *AuthService) CloseSession(ctx context.Context, sessionID string) {
	info, last, err := s.registry.Delete(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("session teardown failed", "session_id", sessionID, "err", err)
		}
		return
	}

	s.metrics.SessionDeleted()
	s.logger.Debug("session torn down", "user_id", info.UserID, "session_id", sessionID, "last", last)

	if last {
		s.presence.UserOffline(ctx, info.UserID)
	}
}

// ChangePassword verifies the old password and swaps in the new one. Admins
// may reset another user's password without the old one.
func (s *AuthService) ChangePassword(ctx context.Context, caller uint32, callerRole model.Role, target uint32, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("change password: empty password: %w", model.ErrBadRequest)
	}
	adminReset := caller != target
	if adminReset && !callerRole.Admin() {
		return fmt.Errorf("change password: not own account: %w", model.ErrForbidden)
	}

	user, err := s.users.UserByID(ctx, target)
	if err != nil {
		return fmt.Errorf("change password: load user %d: %w", target, err)
	}

	if !adminReset {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
			return fmt.Errorf("change password: old password mismatch: %w", model.ErrBadRequest)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), passwordHashCost)
	if err != nil {
		return fmt.Errorf("change password: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, target, string(hash)); err != nil {
		return fmt.Errorf("change password: update: %w", err)
	}

	s.logger.Info("password changed", "user_id", target, "by", caller)
	return nil
}

// DeleteUser removes the account: sessions first (so the offline edge can
// still resolve the user's friends), then the store cascade, then roster
// invalidation for everyone whose lists the cascade touched.
func (s *AuthService) DeleteUser(ctx context.Context, target uint32) error {
	exFriends, err := s.friends.FriendIDs(ctx, target)
	if err != nil {
		return fmt.Errorf("delete user: load friends: %w", err)
	}
	exGroups, err := s.groups.GroupsOf(ctx, target)
	if err != nil {
		return fmt.Errorf("delete user: load groups: %w", err)
	}

	s.evictSessions(ctx, target)

	if err := s.users.DeleteUser(ctx, target); err != nil {
		return fmt.Errorf("delete user %d: %w", target, err)
	}

	s.invalidateFriends(ctx, target)
	for _, friend := range exFriends {
		s.invalidateFriends(ctx, friend)
	}
	for _, g := range exGroups {
		if err := s.roster.InvalidateMembers(ctx, g.ID); err != nil {
			s.logger.Warn("member cache invalidation failed", "group_id", g.ID, "err", err)
		}
	}

	s.logger.Info("user deleted", "user_id", target)
	return nil
}

// EvictSessions force-closes every session and mailbox of a user, firing the
// offline edge when the last one goes. Used by /manager and DeleteUser.
func (s *AuthService) EvictSessions(ctx context.Context, user uint32) {
	s.evictSessions(ctx, user)
}

func (s *AuthService) evictSessions(ctx context.Context, user uint32) {
	ids, err := s.registry.IDsOf(ctx, user)
	if err != nil {
		s.logger.Warn("session eviction lookup failed", "user_id", user, "err", err)
		return
	}
	for _, id := range ids {
		info, last, err := s.registry.Delete(ctx, id)
		if err != nil {
			continue
		}
		s.senders.Remove(id)
		s.metrics.SessionDeleted()
		if last {
			s.presence.UserOffline(ctx, info.UserID)
		}
	}
}

// ClearAllSessions wipes the registry and every mailbox. Admin only; no
// presence edges fire, matching a node restart.
func (s *AuthService) ClearAllSessions(ctx context.Context) error {
	if err := s.registry.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	s.senders.ClearAll()
	s.logger.Info("all sessions cleared")
	return nil
}

func (s *AuthService) invalidateFriends(ctx context.Context, user uint32) {
	if err := s.roster.InvalidateFriends(ctx, user); err != nil {
		s.logger.Warn("friend cache invalidation failed", "user_id", user, "err", err)
	}
}
