package service

import (
	"go.uber.org/fx"
)

var Module = fx.Module(
	"service",

	fx.Provide(
		// Domain services
		fx.Annotate(
			NewDeliveryService,
			fx.As(new(Deliverer)),
		),
		fx.Annotate(
			NewMessagePipeline,
			fx.As(new(Sender)),
		),
		NewPresenceService,
		NewAuthService,
	),
)
