package server

import (
	"context"
	"fmt"

	"users-service/cache"
	"users-service/confs"
	"users-service/db"
	"users-service/queue"
	"users-service/services"

	"github.com/sirupsen/logrus"
)

const rabbitMQRetries = 5

// Bootstrap opens every external resource named by cfg and returns them with
// a cleanup func that closes them in reverse order.
func Bootstrap(ctx context.Context, cfg *confs.Config) (Dependencies, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logrus.WithError(err).Warn("cleanup failed")
			}
		}
	}

	database, err := db.Connect(cfg.DatabaseURL, db.Options{Debug: cfg.Debug, Migrate: true})
	if err != nil {
		return Dependencies{}, cleanup, err
	}
	closers = append(closers, database.Close)
	deps := Dependencies{Database: database}

	if cfg.RedisURL != "" {
		rdb, err := cache.SetupRedis(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return Dependencies{}, func() {}, err
		}
		closers = append(closers, rdb.Close)
		deps.Cache = cache.NewRedisUserCache(rdb, cfg.CacheTTL)
	} else if cfg.CacheBackend == confs.CacheMemory {
		logrus.Warn("using in-process user cache; recreate_db from another process will not flush it")
		deps.Cache = cache.NewMemoryUserCache()
	} else {
		logrus.Info("REDIS_URL not set, user lookups are not cached")
	}

	if cfg.RabbitMQURL != "" {
		conn, err := queue.SetupRabbitMQ(cfg.RabbitMQURL, rabbitMQRetries)
		if err != nil {
			cleanup()
			return Dependencies{}, func() {}, err
		}
		publisher, err := queue.NewRabbitPublisher(conn, cfg.EventsExchange)
		if err != nil {
			_ = conn.Close()
			cleanup()
			return Dependencies{}, func() {}, fmt.Errorf("rabbitmq publisher: %w", err)
		}
		closers = append(closers, publisher.Close)
		deps.Sinks = append(deps.Sinks, services.Sink(publisher))
	}

	return deps, cleanup, nil
}

// ConfigureLogging applies the configured log level to logrus.
func ConfigureLogging(cfg *confs.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
