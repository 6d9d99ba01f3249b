package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"golang.org/x/sync/errgroup"

	"github.com/shardrepo/shardrepo/balancer"
	"github.com/shardrepo/shardrepo/pkg/datashard"
	"github.com/shardrepo/shardrepo/pkg/models/entity"
	"github.com/shardrepo/shardrepo/pkg/models/locator"
	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/pkg/topocache"
	"github.com/shardrepo/shardrepo/topodb"
)

// Opts configures a sharded repository. Zero values fall back to
// random placement and uuid-derived key suffixes.
type Opts struct {
	// LocatorLength is the fixed locator prefix width shared by every
	// shard in the topology.
	LocatorLength int
	// Strategy places new entities. Nil means random.
	Strategy balancer.Strategy

	CacheEnabled       bool
	CacheTTL           time.Duration
	ServeLastKnownGood bool

	// TraceSpans emits an opentracing span per operation.
	TraceSpans bool

	// SuffixFn generates the key part after the locator. Nil means
	// uuid-derived suffixes.
	SuffixFn func() string
}

// ShardFailure records one shard that could not serve its part of a
// fan-out.
type ShardFailure struct {
	ShardID string
	Err     error
}

// Result carries whatever a fan-out could collect: entities from the
// shards that answered plus a failure per shard that did not.
type Result[T entity.Sharded] struct {
	Entities []T
	Failures []ShardFailure
}

// ShardedRepository routes entity operations across shards by the
// locator prefix baked into each entity key. Writes pick a shard via
// the balancing strategy; reads decode the key and go straight to the
// owning shard.
type ShardedRepository[T entity.Sharded] struct {
	codec    *locator.Codec
	cache    *topocache.Cache
	strategy balancer.Strategy
	factory  datashard.Factory[T]

	traceSpans bool
	suffixFn   func() string
}

func NewShardedRepository[T entity.Sharded](store topodb.Store, factory datashard.Factory[T], opts Opts) (*ShardedRepository[T], error) {
	codec, err := locator.NewCodec(opts.LocatorLength)
	if err != nil {
		return nil, err
	}

	strategy := opts.Strategy
	if strategy == nil {
		strategy = balancer.NewRandomBalancer()
	}

	suffixFn := opts.SuffixFn
	if suffixFn == nil {
		suffixFn = locator.NewSuffix
	}

	return &ShardedRepository[T]{
		codec: codec,
		cache: topocache.NewCache(store, topocache.Opts{
			Enabled:            opts.CacheEnabled,
			TTL:                opts.CacheTTL,
			ServeLastKnownGood: opts.ServeLastKnownGood,
		}),
		strategy:   strategy,
		factory:    factory,
		traceSpans: opts.TraceSpans,
		suffixFn:   suffixFn,
	}, nil
}

// InvalidateTopology drops the cached topology so the next operation
// refetches it.
func (rep *ShardedRepository[T]) InvalidateTopology() {
	rep.cache.Invalidate()
}

// Insert places the entity on a shard chosen by the balancing
// strategy and assigns its key: the shard's locator prefix plus a
// fresh suffix. Any key already set on the entity is overwritten.
func (rep *ShardedRepository[T]) Insert(ctx context.Context, e T) error {
	if rep.traceSpans {
		span := opentracing.StartSpan("repository insert")
		defer span.Finish()
	}

	snap, err := rep.cache.Snapshot(ctx)
	if err != nil {
		return err
	}

	eligible := make([]*topology.Shard, 0, len(snap.Shards))
	for _, sh := range snap.Shards {
		if sh.AcceptsWrites() {
			eligible = append(eligible, sh)
		}
	}

	sh, err := rep.strategy.Select(eligible)
	if err != nil {
		return err
	}

	key, err := rep.codec.Encode(sh.Prefix, rep.suffixFn())
	if err != nil {
		return err
	}
	e.SetShardKey(key)

	session, err := rep.factory.SessionFor(ctx, sh)
	if err != nil {
		return err
	}

	if err := session.Insert(ctx, e); err != nil {
		return err
	}

	shardlog.Zero.Debug().
		Str("key", key).
		Str("shard", sh.ID).
		Msg("repository: inserted entity")
	return nil
}

// GetByKey reads the entity from the shard its key routes to.
func (rep *ShardedRepository[T]) GetByKey(ctx context.Context, key string) (T, error) {
	var zero T

	if rep.traceSpans {
		span := opentracing.StartSpan("repository get")
		defer span.Finish()
		span.SetTag("key", key)
	}

	sh, err := rep.locate(ctx, key)
	if err != nil {
		return zero, err
	}

	if !sh.AcceptsReads() {
		return zero, readsDisabled(sh)
	}

	session, err := rep.factory.SessionFor(ctx, sh)
	if err != nil {
		return zero, err
	}

	return session.GetByKey(ctx, key)
}

// Update rewrites the entity on the shard its key routes to. The
// shard must accept writes and allow in-place updates.
func (rep *ShardedRepository[T]) Update(ctx context.Context, e T) error {
	if rep.traceSpans {
		span := opentracing.StartSpan("repository update")
		defer span.Finish()
		span.SetTag("key", e.ShardKey())
	}

	sh, err := rep.locate(ctx, e.ShardKey())
	if err != nil {
		return err
	}

	if !sh.AcceptsWrites() {
		return writesDisabled(sh)
	}
	if !sh.AcceptsUpdates() {
		return sherror.Newf(sherror.SH_UPDATE_NOT_ALLOWED, "shard %s does not allow updates", sh.ID)
	}

	session, err := rep.factory.SessionFor(ctx, sh)
	if err != nil {
		return err
	}

	return session.Update(ctx, e)
}

// Delete removes the entity from the shard its key routes to. Delete
// follows the write gate only: a shard that blocks in-place updates
// still lets entities leave.
func (rep *ShardedRepository[T]) Delete(ctx context.Context, key string) error {
	if rep.traceSpans {
		span := opentracing.StartSpan("repository delete")
		defer span.Finish()
		span.SetTag("key", key)
	}

	sh, err := rep.locate(ctx, key)
	if err != nil {
		return err
	}

	if !sh.AcceptsWrites() {
		return writesDisabled(sh)
	}

	session, err := rep.factory.SessionFor(ctx, sh)
	if err != nil {
		return err
	}

	return session.Delete(ctx, key)
}

// QueryAcrossShards fans the query out to every shard that accepts
// reads and merges what comes back. Shards that fail do not void the
// result: their errors land in Result.Failures and the entities from
// the shards that answered are returned in topology order.
func (rep *ShardedRepository[T]) QueryAcrossShards(ctx context.Context, q datashard.Query) (*Result[T], error) {
	if rep.traceSpans {
		span := opentracing.StartSpan("repository query across shards")
		defer span.Finish()
	}

	snap, err := rep.cache.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	targets := make([]*topology.Shard, 0, len(snap.Shards))
	for _, sh := range snap.Shards {
		if sh.AcceptsReads() {
			targets = append(targets, sh)
		}
	}

	type slot struct {
		entities []T
		err      error
	}
	slots := make([]slot, len(targets))

	// Collect per shard: a failing shard must not cancel its peers.
	var g errgroup.Group
	for i, sh := range targets {
		i, sh := i, sh
		g.Go(func() error {
			session, err := rep.factory.SessionFor(ctx, sh)
			if err != nil {
				slots[i].err = err
				return nil
			}
			entities, err := session.Select(ctx, q)
			if err != nil {
				slots[i].err = err
				return nil
			}
			slots[i].entities = entities
			return nil
		})
	}
	_ = g.Wait()

	res := &Result[T]{}
	for i, sh := range targets {
		if slots[i].err != nil {
			shardlog.Zero.Warn().
				Err(slots[i].err).
				Str("shard", sh.ID).
				Msg("repository: shard failed during fan-out")
			res.Failures = append(res.Failures, ShardFailure{ShardID: sh.ID, Err: slots[i].err})
			continue
		}
		res.Entities = append(res.Entities, slots[i].entities...)
	}
	return res, nil
}

// locate decodes the key and resolves the owning shard. The master
// gate is checked here: a retired shard serves nothing, not even
// reads.
func (rep *ShardedRepository[T]) locate(ctx context.Context, key string) (*topology.Shard, error) {
	loc, err := rep.codec.Decode(key)
	if err != nil {
		return nil, err
	}

	sh, err := rep.cache.ShardByLocator(ctx, loc)
	if err != nil {
		return nil, err
	}

	if sh.Retired() {
		return nil, sherror.Newf(sherror.SH_SHARD_DISABLED, "shard %s is disabled", sh.ID)
	}
	return sh, nil
}

func readsDisabled(sh *topology.Shard) error {
	return sherror.Newf(sherror.SH_SHARD_DISABLED, "shard %s does not accept reads", sh.ID)
}

func writesDisabled(sh *topology.Shard) error {
	return sherror.Newf(sherror.SH_SHARD_DISABLED, "shard %s does not accept writes", sh.ID)
}
