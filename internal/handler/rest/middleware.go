package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/DingWH03/uchat-sub000/internal/domain/model"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/handler/ws"
)

type ctxKey int

const (
	ctxUserKey ctxKey = iota
	ctxRoleKey
	ctxSessionKey
)

// UserFrom returns the authenticated user id placed by SessionAuth.
func UserFrom(ctx context.Context) (uint32, bool) {
	u, ok := ctx.Value(ctxUserKey).(uint32)
	return u, ok
}

// RoleFrom returns the session role placed by SessionAuth.
func RoleFrom(ctx context.Context) (model.Role, bool) {
	r, ok := ctx.Value(ctxRoleKey).(model.Role)
	return r, ok
}

// SessionFrom returns the session id placed by SessionAuth.
func SessionFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxSessionKey).(string)
	return s, ok
}

// Middleware bundles the cross-cutting request wrappers.
type Middleware struct {
	registry registry.SessionRegistry
	logger   *slog.Logger
}

func NewMiddleware(reg registry.SessionRegistry, logger *slog.Logger) *Middleware {
	return &Middleware{registry: reg, logger: logger}
}

// RequestLogger emits one structured line per request.
func (m *Middleware) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		m.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

// SessionAuth resolves the session cookie into (user, role) request context.
// Requests without a live session get the 401 envelope.
func (m *Middleware) SessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(ws.SessionCookie)
		if err != nil {
			respondError(w, m.logger, model.ErrUnauthenticated)
			return
		}

		user, err := m.registry.LookupUser(r.Context(), cookie.Value)
		if err != nil {
			respondError(w, m.logger, model.ErrUnauthenticated)
			return
		}
		role, err := m.registry.LookupRole(r.Context(), cookie.Value)
		if err != nil {
			respondError(w, m.logger, model.ErrUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserKey, user)
		ctx = context.WithValue(ctx, ctxRoleKey, role)
		ctx = context.WithValue(ctx, ctxSessionKey, cookie.Value)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly gates a subtree on the session role. Runs after SessionAuth.
func (m *Middleware) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := RoleFrom(r.Context())
		if !ok || !role.Admin() {
			respondError(w, m.logger, model.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
