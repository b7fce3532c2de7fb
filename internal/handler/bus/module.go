package bus

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
)

var Module = fx.Module("bus",
	fx.Provide(
		NewPresenceHandler,
		NewRouter,
	),
	fx.Invoke(
		RegisterHandlers,
		runRouter,
	),
)

func runRouter(lc fx.Lifecycle, router *message.Router, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Error("bus router stopped", "err", err)
				}
			}()

			select {
			case <-router.Running():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		OnStop: func(context.Context) error {
			return router.Close()
		},
	})
}
