// Package http runs the service's single listener. REST and websocket
// upgrades share it, so the server sets no global read or write timeouts;
// slow-client protection lives in the per-connection writer.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/DingWH03/uchat-sub000/config"
)

var Module = fx.Module("http_server",
	fx.Provide(NewServer),
	fx.Invoke(Serve),
)

func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Serve binds the listener during startup so a taken port fails the app
// instead of a background goroutine.
func Serve(lc fx.Lifecycle, srv *http.Server, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("http server listening", "addr", ln.Addr().String())

			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Shutdown does not touch hijacked connections; the websockets
			// die when the sender store closes their mailboxes afterwards.
			return srv.Shutdown(ctx)
		},
	})
}
