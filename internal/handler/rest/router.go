package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DingWH03/uchat-sub000/config"
	"github.com/DingWH03/uchat-sub000/internal/handler/ws"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
)

// NewRouter assembles the full HTTP surface. The websocket endpoint mounts
// outside SessionAuth; it validates its own cookie so it can refuse before
// upgrading.
func NewRouter(
	cfg *config.Config,
	mw *Middleware,
	auth *AuthHandler,
	friends *FriendHandler,
	groups *GroupHandler,
	messages *MessageHandler,
	manager *ManagerHandler,
	avatars *AvatarHandler,
	socket *ws.WSHandler,
	promRegistry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondOK(w, map[string]string{"status": "ok"})
	})
	if cfg.Server.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(promRegistry))
	}

	// Locally stored avatars are served off the same listener. An S3 backend
	// hands out absolute URLs instead, so nothing mounts here.
	if cfg.Storage.Backend == "local" && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		prefix := strings.TrimSuffix(cfg.Storage.PublicBaseURL, "/")
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(cfg.Storage.LocalDir)))
		r.Method(http.MethodGet, prefix+"/*", fs)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", auth.Register)
		r.Post("/login", auth.Login)
		r.Get("/ws", socket.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(mw.SessionAuth)
			r.Post("/logout", auth.Logout)
			r.Get("/check_session", auth.CheckSession)
			r.Post("/password", auth.ChangePassword)
			r.Delete("/user", auth.DeleteSelf)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.SessionAuth)

		r.Route("/friend", func(r chi.Router) {
			r.Get("/list", friends.List)
			r.Post("/add", friends.Add)
			r.Get("/info", friends.Info)
			r.Post("/status", friends.Status)
			r.Post("/delete", friends.Delete)
		})

		r.Route("/group", func(r chi.Router) {
			r.Get("/list", groups.List)
			r.Post("/new", groups.Create)
			r.Post("/join", groups.Join)
			r.Post("/leave", groups.Leave)
			r.Get("/info", groups.Info)
			r.Get("/members", groups.Members)
		})

		r.Route("/message", func(r chi.Router) {
			r.Get("/user", messages.User)
			r.Get("/user/latest", messages.UserLatest)
			r.Get("/user/after", messages.UserAfter)
			r.Get("/group", messages.Group)
			r.Get("/group/latest", messages.GroupLatest)
			r.Get("/group/after", messages.GroupAfter)
		})

		r.Post("/user/avatar", avatars.Upload)
	})

	r.Route("/manager", func(r chi.Router) {
		r.Use(mw.SessionAuth, mw.AdminOnly)
		r.Get("/users", manager.Users)
		r.Get("/online", manager.Online)
		r.Delete("/user", manager.DeleteUser)
		// Path spelling is part of the public contract.
		r.Get("/message/privite", manager.PrivateMessage)
		r.Delete("/message/privite", manager.DeletePrivateMessage)
		r.Get("/message/group", manager.GroupMessage)
		r.Delete("/message/group", manager.DeleteGroupMessage)
		r.Delete("/sessions", manager.ClearSessions)
	})

	return r
}
