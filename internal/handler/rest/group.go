package rest

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/roster"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

type GroupHandler struct {
	groups   store.GroupStore
	resolver roster.Resolver
	logger   *slog.Logger
}

func NewGroupHandler(groups store.GroupStore, resolver roster.Resolver, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, resolver: resolver, logger: logger}
}

func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := UserFrom(r.Context())
	list, err := h.groups.GroupsOf(r.Context(), caller)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, list)
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	if req.Name == "" {
		respondError(w, h.logger, fmt.Errorf("%w: empty group name", model.ErrBadRequest))
		return
	}

	caller, _ := UserFrom(r.Context())
	id, err := h.groups.CreateGroup(r.Context(), req.Name, caller)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidate(r, id)
	respondOK(w, id)
}

func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.decodeExistingGroup(w, r)
	if !ok {
		return
	}

	caller, _ := UserFrom(r.Context())
	if err := h.groups.AddMember(r.Context(), gid, caller); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidate(r, gid)
	respondOK(w, nil)
}

func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.decodeExistingGroup(w, r)
	if !ok {
		return
	}

	caller, _ := UserFrom(r.Context())
	if err := h.groups.RemoveMember(r.Context(), gid, caller); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.invalidate(r, gid)
	respondOK(w, nil)
}

func (h *GroupHandler) Info(w http.ResponseWriter, r *http.Request) {
	gid, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	g, err := h.groups.GroupByID(r.Context(), gid)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, g)
}

func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	gid, err := queryUint32(r, "id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if _, err := h.groups.GroupByID(r.Context(), gid); err != nil {
		respondError(w, h.logger, err)
		return
	}

	members, err := h.groups.MemberIDs(r.Context(), gid)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, members)
}

// decodeExistingGroup reads `{id}` from the body and verifies the group
// exists, answering the error itself when it does not.
func (h *GroupHandler) decodeExistingGroup(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	var req struct {
		ID uint32 `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return 0, false
	}
	if _, err := h.groups.GroupByID(r.Context(), req.ID); err != nil {
		respondError(w, h.logger, err)
		return 0, false
	}
	return req.ID, true
}

func (h *GroupHandler) invalidate(r *http.Request, group uint32) {
	if err := h.resolver.InvalidateMembers(r.Context(), group); err != nil {
		h.logger.Warn("member cache invalidation failed", "group_id", group, "err", err)
	}
}
