package pubsub

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"pubsub",

	fx.Provide(
		NewBus,
		func(b *Bus) EventDispatcher {
			return NewEventDispatcher(b.Publisher())
		},
	),

	fx.Invoke(func(lc fx.Lifecycle, bus *Bus, exporter Exporter) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				if err := exporter.Close(); err != nil {
					return err
				}
				return bus.Close()
			},
		})
	}),
)
