package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/roster"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

type FriendHandler struct {
	users    store.UserStore
	friends  store.FriendStore
	registry registry.SessionRegistry
	resolver roster.Resolver
	logger   *slog.Logger
}

func NewFriendHandler(users store.UserStore, friends store.FriendStore, reg registry.SessionRegistry, resolver roster.Resolver, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{
		users:    users,
		friends:  friends,
		registry: reg,
		resolver: resolver,
		logger:   logger,
	}
}

func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFrom(r.Context())
	list, err := h.friends.Friends(r.Context(), caller)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, list)
}

func (h *FriendHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID uint32 `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	caller, _ := UserFrom(r.Context())
	if req.ID == caller {
		respondError(w, h.logger, fmt.Errorf("%w: cannot befriend yourself", model.ErrBadRequest))
		return
	}
	if _, err := h.users.UserByID(r.Context(), req.ID); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.friends.AddFriend(r.Context(), caller, req.ID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidate(r, caller, req.ID)
	respondOK(w, nil)
}

func (h *FriendHandler) Info(w http.ResponseWriter, r *http.Request) {
	id, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	u, err := h.users.UserByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, u.Summary())
}

// Status answers a bulk online/offline poll over the live registry.
func (h *FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIDs []uint32 `json:"user_ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	type entry struct {
		UserID uint32 `json:"user_id"`
		Online bool   `json:"online"`
	}
	statuses := make([]entry, 0, len(req.UserIDs))
	for _, id := range req.UserIDs {
		ids, err := h.registry.IDsOf(r.Context(), id)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		statuses = append(statuses, entry{UserID: id, Online: len(ids) > 0})
	}
	respondOK(w, statuses)
}

func (h *FriendHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID uint32 `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	caller, _ := UserFrom(r.Context())
	if err := h.friends.RemoveFriend(r.Context(), caller, req.ID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidate(r, caller, req.ID)
	respondOK(w, nil)
}

// invalidate drops both sides' cached rosters before the response goes out,
// so the next fan-out observes the mutation.
func (h *FriendHandler) invalidate(r *http.Request, a, b uint32) {
	for _, user := range []uint32{a, b} {
		if err := h.resolver.InvalidateFriends(r.Context(), user); err != nil {
			h.logger.Warn("friend cache invalidation failed", "user_id", user, "err", err)
		}
	}
}
