package roster

import (
	"log/slog"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"roster",

	fx.Provide(
		fx.Annotate(
			NewRoster,
			fx.As(new(Resolver)),
		),
	),

	fx.Decorate(func(orig Resolver, logger *slog.Logger) Resolver {
		return &resolverMiddleware{
			next:   orig,
			logger: logger,
		}
	}),
)
