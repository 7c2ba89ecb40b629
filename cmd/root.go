// Package cmd is the hot command line.
package cmd

import (
	"context"
	"os"

	"hot-server/cache"
	"hot-server/config"
	"hot-server/log"
	"hot-server/store"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var rootCMD = &cobra.Command{
	Use:          "hot",
	Short:        "hot events server",
	Long:         `REST backend for campus events, their attendees and friends.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the command named on the command line, serve by default.
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime holds what every command builds from the configuration.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	cols   *store.Collections
	cache  cache.Cache

	closers []func(context.Context) error
}

func setup(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	logger, err := log.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, cache: cache.Nop{}}
	if err := rt.setupStore(ctx); err != nil {
		rt.close(ctx)
		return nil, err
	}
	if err := rt.setupCache(ctx); err != nil {
		rt.close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) setupStore(ctx context.Context) error {
	if rt.cfg.StoreBackend == config.BackendMemory {
		rt.logger.Warn("using in-memory store, data is lost on exit")
		rt.cols = store.NewMemoryCollections()
		return nil
	}

	client, err := store.Connect(ctx, rt.logger, rt.cfg.MongoURI)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, func(ctx context.Context) error {
		return client.Disconnect(ctx)
	})

	db := client.Database(rt.cfg.MongoDB)
	if err := store.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	rt.cols = store.NewMongoCollections(db)
	return nil
}

func (rt *runtime) setupCache(ctx context.Context) error {
	if rt.cfg.RedisAddr == "" {
		rt.logger.Info("REDIS_ADDR not set, caching disabled")
		return nil
	}

	redisCache, err := cache.NewRedis(ctx, rt.cfg.RedisAddr, rt.cfg.RedisDB, rt.cfg.CacheTTL)
	if err != nil {
		return err
	}
	rt.closers = append(rt.closers, func(context.Context) error {
		return redisCache.Close()
	})
	rt.cache = redisCache
	rt.logger.Info("connected to redis", zap.String("addr", rt.cfg.RedisAddr))
	return nil
}

func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
			rt.logger.Warn("close", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}
