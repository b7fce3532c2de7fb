package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/DingWH03/uchat-sub000/config"
	"github.com/DingWH03/uchat-sub000/internal/adapter/pubsub"
	"github.com/DingWH03/uchat-sub000/internal/domain/registry"
	"github.com/DingWH03/uchat-sub000/internal/handler/ws"
	"github.com/DingWH03/uchat-sub000/internal/media"
	"github.com/DingWH03/uchat-sub000/internal/metrics"
	"github.com/DingWH03/uchat-sub000/internal/roster"
	"github.com/DingWH03/uchat-sub000/internal/service"
	"github.com/DingWH03/uchat-sub000/internal/store"
)

func ProvideLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return logger
}

func ProvideWatermillLogger(logger *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logger)
}

// ProvideRedis returns nil when no redis url is configured; the registry and
// roster providers fall back to their in-process implementations.
func ProvideRedis(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	rdb := redis.NewClient(opts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
			}
			logger.Info("redis connected", "addr", opts.Addr)
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideSessionRegistry(lc fx.Lifecycle, cfg *config.Config, rdb *redis.Client, logger *slog.Logger) registry.SessionRegistry {
	ttl := cfg.Server.SessionTTL
	if rdb != nil {
		logger.Info("session registry on redis", "ttl", ttl)
		return registry.NewRedisRegistry(rdb, ttl)
	}

	var opts []registry.MemoryOption
	if ttl > 0 {
		opts = append(opts, registry.WithSessionTTL(ttl))
	}
	r := registry.NewMemoryRegistry(opts...)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			r.Stop()
			return nil
		},
	})
	logger.Info("session registry in memory", "ttl", ttl)
	return r
}

func ProvideStore(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Database.Type {
	case "mysql":
		st, err = store.OpenMySQL(context.Background(), cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		logger.Info("store on mysql")
	case "memory":
		st = store.NewMemoryStore()
		logger.Warn("store in memory, data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return st.Close()
		},
	})
	return st, nil
}

func ProvideRosterCache(rdb *redis.Client) roster.Cache {
	if rdb != nil {
		return roster.NewRedisCache(rdb)
	}
	return roster.NewLRUCache()
}

func ProvideExporter(cfg *config.Config, wmLogger watermill.LoggerAdapter, logger *slog.Logger) (pubsub.Exporter, error) {
	if cfg.AMQP.URL == "" {
		return pubsub.NewDisabledExporter(), nil
	}

	exporter, err := pubsub.NewAMQPExporter(cfg.AMQP.URL, cfg.AMQP.Exchange, wmLogger)
	if err != nil {
		return nil, err
	}
	logger.Info("message export enabled", "exchange", cfg.AMQP.Exchange)
	return exporter, nil
}

func ProvideMetrics(cfg *config.Config) (metrics.Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	if !cfg.Server.MetricsEnabled {
		return metrics.NoopCollector{}, reg
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewPrometheusCollector(reg), reg
}

func ProvideObjectStore(cfg *config.Config, logger *slog.Logger) (media.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "s3":
		logger.Info("object storage on s3", "bucket", cfg.Storage.Bucket)
		return media.NewS3Store(
			cfg.Storage.Bucket,
			cfg.Storage.Region,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.Endpoint,
			cfg.Storage.PublicBaseURL,
		)
	case "local":
		logger.Info("object storage on disk", "dir", cfg.Storage.LocalDir)
		return media.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func ProvideWSHandler(
	reg registry.SessionRegistry,
	senders *registry.SenderStore,
	pipeline service.Sender,
	auth *service.AuthService,
	cfg *config.Config,
	logger *slog.Logger,
	collector metrics.Collector,
) *ws.WSHandler {
	return ws.NewWSHandler(reg, senders, pipeline, auth, logger, collector, cfg.Server.MailboxSize)
}
