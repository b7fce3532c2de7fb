package rest

import (
	"log/slog"
	"net/http"

	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/service"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

// ManagerHandler is the administrative surface. Every route sits behind the
// AdminOnly gate.
type ManagerHandler struct {
	users    store.UserStore
	messages store.MessageStore
	registry registry.SessionRegistry
	auth     *service.AuthService
	logger   *slog.Logger
}

func NewManagerHandler(users store.UserStore, messages store.MessageStore, reg registry.SessionRegistry, auth *service.AuthService, logger *slog.Logger) *ManagerHandler {
	return &ManagerHandler{
		users:    users,
		messages: messages,
		registry: reg,
		auth:     auth,
		logger:   logger,
	}
}

func (h *ManagerHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Users(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, users)
}

// Online snapshots user → live sessions from the registry.
func (h *ManagerHandler) Online(w http.ResponseWriter, r *http.Request) {
	tree, err := h.registry.OnlineTree(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, tree)
}

func (h *ManagerHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	target, err := queryUint32(r, "user_id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.auth.DeleteUser(r.Context(), target); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("user deleted by admin", "user_id", target)
	respondOK(w, nil)
}

func (h *ManagerHandler) PrivateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := queryUint64(r, "message_id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	msg, err := h.messages.PrivateMessageByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, msg)
}

func (h *ManagerHandler) DeletePrivateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := queryUint64(r, "message_id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.messages.DeletePrivateMessage(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("private message deleted by admin", "message_id", id)
	respondOK(w, nil)
}

func (h *ManagerHandler) GroupMessage(w http.ResponseWriter, r *http.Request) {
	id, err := queryUint64(r, "message_id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	msg, err := h.messages.GroupMessageByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, msg)
}

func (h *ManagerHandler) DeleteGroupMessage(w http.ResponseWriter, r *http.Request) {
	id, err := queryUint64(r, "message_id")
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if err := h.messages.DeleteGroupMessage(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("group message deleted by admin", "message_id", id)
	respondOK(w, nil)
}

// ClearSessions drops every live session, the admin kill switch after an
// incident. Connected sockets notice when their mailboxes close.
func (h *ManagerHandler) ClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.ClearAllSessions(r.Context()); err != nil {
		respondError(w, h.logger, err)
		return
	}
	h.logger.Info("all sessions cleared by admin")
	respondOK(w, nil)
}
