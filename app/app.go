package app

import (
	"context"
	"fmt"
	"io"

	"github.com/shardrepo/shardrepo/balancer"
	"github.com/shardrepo/shardrepo/pkg/config"
	"github.com/shardrepo/shardrepo/pkg/datashard"
	"github.com/shardrepo/shardrepo/pkg/models/entity"
	"github.com/shardrepo/shardrepo/pkg/seed"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/pkg/statistics"
	"github.com/shardrepo/shardrepo/repository"
	"github.com/shardrepo/shardrepo/topodb"
)

// App owns the process-wide pieces every repository shares: the
// topology store, logging, statistics and tracing. Typed repositories
// are built on top of it with NewRepository.
type App struct {
	cfg   *config.Repository
	store topodb.XStore

	tracerCloser io.Closer
}

func NewApp(ctx context.Context, cfg *config.Repository) (*App, error) {
	shardlog.ReloadLogger(cfg.LogFileName)
	shardlog.UpdateZeroLogLevel(cfg.LogLevel)
	if len(cfg.StatsQuantiles) != 0 {
		statistics.SetQuantiles(cfg.StatsQuantiles)
	}

	store, err := topodb.NewXStore(cfg.StoreType, cfg.StoreAddr)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:   cfg,
		store: store,
	}

	if cfg.WithJaeger {
		closer, err := initJaegerTracer(cfg)
		if err != nil {
			return nil, fmt.Errorf("could not initialize jaeger tracer: %s", err.Error())
		}
		app.tracerCloser = closer
	}

	if cfg.SeedIfMissing {
		descs := make([]*topodb.ShardDescriptor, 0, len(cfg.Shards))
		for _, sh := range cfg.Shards {
			descs = append(descs, sh.ToDescriptor())
		}
		if err := seed.Run(ctx, store, seed.Opts{
			Descriptors:   descs,
			LocatorLength: cfg.LocatorLength,
		}); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	return app, nil
}

func (app *App) Store() topodb.XStore {
	return app.store
}

func (app *App) Config() *config.Repository {
	return app.cfg
}

func (app *App) Close() error {
	if app.tracerCloser != nil {
		_ = app.tracerCloser.Close()
	}
	return app.store.Close()
}

// NewRepository builds a typed repository over the app's topology
// store, with PostgreSQL sessions mapped through the given mapper.
func NewRepository[T entity.Sharded](app *App, mapper datashard.Mapper[T]) (*repository.ShardedRepository[T], error) {
	strategy, err := balancer.New(app.cfg.BalancingStrategy)
	if err != nil {
		return nil, err
	}

	factory := datashard.NewPGFactory[T](mapper, datashard.PGFactoryOpts{
		ConnectTimeout: app.cfg.ConnectTimeout(),
		TLS:            &app.cfg.ShardTLS,
	})

	return repository.NewShardedRepository[T](app.store, factory, repository.Opts{
		LocatorLength:      app.cfg.LocatorLength,
		Strategy:           strategy,
		CacheEnabled:       app.cfg.TopologyCacheEnabled,
		CacheTTL:           app.cfg.CacheTTL(),
		ServeLastKnownGood: app.cfg.ServeLastKnownGood,
		TraceSpans:         app.cfg.WithJaeger,
	})
}
