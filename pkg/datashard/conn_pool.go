package datashard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/xerrors"

	"github.com/shardrepo/shardrepo/pkg/config"
	"github.com/shardrepo/shardrepo/pkg/models/entity"
	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
)

// poolEntry guards one shard's dial so concurrent sessions share a
// single connection attempt.
type poolEntry struct {
	once sync.Once
	pool *pgxpool.Pool
	err  error
}

// PGFactory hands out PostgreSQL sessions, growing one connection pool
// per shard on first use. A failed dial is forgotten so the next
// session retries instead of pinning the failure.
type PGFactory[T entity.Sharded] struct {
	mapper         Mapper[T]
	connectTimeout time.Duration
	tls            *config.TLSConfig

	mu      sync.Mutex
	entries map[string]*poolEntry
}

type PGFactoryOpts struct {
	// ConnectTimeout bounds dialing and the liveness ping per shard.
	// Zero leaves pgx defaults in place.
	ConnectTimeout time.Duration
	// TLS applies to every shard connection, with the shard server as
	// the verified host. Nil disables TLS.
	TLS *config.TLSConfig
}

func NewPGFactory[T entity.Sharded](mapper Mapper[T], opts PGFactoryOpts) *PGFactory[T] {
	return &PGFactory[T]{
		mapper:         mapper,
		connectTimeout: opts.ConnectTimeout,
		tls:            opts.TLS,
		entries:        map[string]*poolEntry{},
	}
}

func (f *PGFactory[T]) SessionFor(ctx context.Context, sh *topology.Shard) (Session[T], error) {
	pool, err := f.poolFor(ctx, sh)
	if err != nil {
		return nil, err
	}
	return &PGSession[T]{
		pool:   pool,
		mapper: f.mapper,
		shard:  sh,
	}, nil
}

func (f *PGFactory[T]) poolFor(ctx context.Context, sh *topology.Shard) (*pgxpool.Pool, error) {
	f.mu.Lock()
	e, ok := f.entries[sh.ID]
	if !ok {
		e = &poolEntry{}
		f.entries[sh.ID] = e
	}
	f.mu.Unlock()

	e.once.Do(func() {
		e.pool, e.err = f.dial(ctx, sh)
	})

	if e.err != nil {
		// Forget the entry: the shard may come back.
		f.mu.Lock()
		if f.entries[sh.ID] == e {
			delete(f.entries, sh.ID)
		}
		f.mu.Unlock()
		return nil, e.err
	}
	return e.pool, nil
}

func (f *PGFactory[T]) dial(ctx context.Context, sh *topology.Shard) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(sh.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse conn string for shard %s: %w", sh.ID, err)
	}

	if f.connectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = f.connectTimeout
	}

	if f.tls != nil {
		tlsCfg, err := f.tls.Init(sh.Server)
		if err != nil {
			return nil, xerrors.Errorf("init shard TLS: %w", err)
		}
		if tlsCfg != nil {
			poolConfig.ConnConfig.TLSConfig = tlsCfg
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool for shard %s: %w", sh.ID, err)
	}

	pingCtx := ctx
	if f.connectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, f.connectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, sherror.Newf(sherror.SH_SHARD_UNREACHABLE, "shard %s unreachable: %s", sh.ID, err)
	}

	shardlog.Zero.Debug().
		Str("shard", sh.ID).
		Str("server", sh.Server).
		Msg("datashard: opened shard pool")
	return pool, nil
}

// Close tears down every shard pool.
func (f *PGFactory[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, e := range f.entries {
		if e.pool != nil {
			e.pool.Close()
		}
		delete(f.entries, id)
	}
	return nil
}
