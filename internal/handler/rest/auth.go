package rest

import (
	"log/slog"
	"net/http"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/handler/ws"
	"github.com/DingWH03/uchat-sub000/internal/service"
)

type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	id, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, id)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   uint32 `json:"userid"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	sessionID, err := h.auth.Login(r.Context(), req.UserID, req.Password, clientIP(r))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     ws.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondOK(w, sessionID)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := SessionFrom(r.Context())
	if !ok {
		respondError(w, h.logger, model.ErrUnauthenticated)
		return
	}

	if err := h.auth.Logout(r.Context(), sessionID); err != nil {
		respondError(w, h.logger, err)
		return
	}
	clearSessionCookie(w)
	respondOK(w, nil)
}

func (h *AuthHandler) CheckSession(w http.ResponseWriter, r *http.Request) {
	role, ok := RoleFrom(r.Context())
	if !ok {
		respondError(w, h.logger, model.ErrUnauthenticated)
		return
	}
	respondOK(w, map[string]model.Role{"role": role})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      uint32 `json:"user_id"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	caller, _ := UserFrom(r.Context())
	role, _ := RoleFrom(r.Context())
	target := req.UserID
	if target == 0 {
		target = caller
	}

	if err := h.auth.ChangePassword(r.Context(), caller, role, target, req.OldPassword, req.NewPassword); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondOK(w, nil)
}

// DeleteSelf removes the calling account with every cascade the store runs.
func (h *AuthHandler) DeleteSelf(w http.ResponseWriter, r *http.Request) {
	caller, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, h.logger, model.ErrUnauthenticated)
		return
	}

	if err := h.auth.DeleteUser(r.Context(), caller); err != nil {
		respondError(w, h.logger, err)
		return
	}
	clearSessionCookie(w)
	respondOK(w, nil)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     ws.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
