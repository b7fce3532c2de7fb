package cmd

import (
	"go.uber.org/fx"

	"github.com/DingWH03/uchat-sub000/config"
	httpsrv "github.com/DingWH03/uchat-sub000/infra/server/http"
	"github.com/DingWH03/uchat-sub000/internal/adapter/pubsub"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/handler/bus"
	"github.com/DingWH03/uchat-sub000/internal/handler/rest"
	"github.com/DingWH03/uchat-sub000/internal/roster"
	"github.com/DingWH03/uchat-sub000/internal/service"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideRedis,
			ProvideSessionRegistry,
			fx.Annotate(
				ProvideStore,
				fx.As(new(store.UserStore)),
				fx.As(new(store.FriendStore)),
				fx.As(new(store.GroupStore)),
				fx.As(new(store.MessageStore)),
			),
			ProvideRosterCache,
			ProvideExporter,
			ProvideMetrics,
			ProvideObjectStore,
			ProvideWSHandler,
		),
		pubsub.Module,
		registry.Module,
		roster.Module,
		service.Module,
		bus.Module,
		rest.Module,
		httpsrv.Module,
	)
}
