package topocache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/pkg/statistics"
	"github.com/shardrepo/shardrepo/topodb"
)

// Snapshot is one immutable view of the shard topology. Every lookup
// runs against a single snapshot, so a concurrent refresh never tears
// the shard list out from under a request.
type Snapshot struct {
	Shards []*topology.Shard

	byPrefix  map[string]*topology.Shard
	width     int
	fetchedAt time.Time
}

// ShardByLocator resolves a locator prefix to its shard.
func (s *Snapshot) ShardByLocator(loc string) (*topology.Shard, error) {
	if sh, ok := s.byPrefix[loc]; ok {
		return sh, nil
	}
	return nil, sherror.Newf(sherror.SH_UNKNOWN_SHARD, "no shard registered for locator \"%s\"", loc)
}

// PrefixWidth returns the locator width shared by every shard in the
// snapshot, or zero for an empty topology.
func (s *Snapshot) PrefixWidth() int {
	return s.width
}

type Opts struct {
	// Enabled turns snapshot reuse on. When false every Snapshot call
	// fetches from the store.
	Enabled bool
	// TTL bounds how long a fetched snapshot keeps serving.
	TTL time.Duration
	// ServeLastKnownGood keeps serving the previous snapshot when a
	// refresh fails instead of surfacing the failure.
	ServeLastKnownGood bool

	// Clock overrides time.Now for expiry checks. Tests only.
	Clock func() time.Time
}

// Cache keeps the shard topology close to the request path. Readers
// load the current snapshot through an atomic pointer; refreshes
// build a full replacement off to the side and swap it in.
type Cache struct {
	store topodb.Store
	opts  Opts

	mu  sync.Mutex // serializes refresh, one store hit per expiry
	cur *atomic.Pointer[Snapshot]
}

func NewCache(store topodb.Store, opts Opts) *Cache {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Cache{
		store: store,
		opts:  opts,
		cur:   atomic.NewPointer[Snapshot](nil),
	}
}

// Snapshot returns the current topology view, refreshing from the
// store when the cached one has outlived the TTL.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	if !c.opts.Enabled {
		return c.refresh(ctx)
	}

	if snap := c.cur.Load(); snap != nil && c.fresh(snap) {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Recheck: a concurrent caller may have refreshed while we
	// waited on the lock.
	if snap := c.cur.Load(); snap != nil && c.fresh(snap) {
		return snap, nil
	}

	snap, err := c.refresh(ctx)
	if err != nil {
		if prev := c.cur.Load(); prev != nil && c.opts.ServeLastKnownGood {
			shardlog.Zero.Warn().
				Err(err).
				Msg("topocache: refresh failed, serving last known topology")
			return prev, nil
		}
		return nil, err
	}

	c.cur.Store(snap)
	return snap, nil
}

// ShardByLocator resolves a locator against the current snapshot.
func (c *Cache) ShardByLocator(ctx context.Context, loc string) (*topology.Shard, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ShardByLocator(loc)
}

// Invalidate drops the cached snapshot so the next call refetches.
func (c *Cache) Invalidate() {
	c.cur.Store(nil)
}

func (c *Cache) fresh(s *Snapshot) bool {
	return c.opts.Clock().Sub(s.fetchedAt) < c.opts.TTL
}

func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	t := time.Now()
	descs, err := c.store.ListShards(ctx)
	if err != nil {
		return nil, sherror.Newf(sherror.SH_TOPOLOGY_UNAVAILABLE, "topology fetch failed: %s", err)
	}
	statistics.RecordTopologyOperation("refresh", time.Since(t))

	snap, err := buildSnapshot(descs, c.opts.Clock)
	if err != nil {
		return nil, err
	}

	shardlog.Zero.Debug().
		Int("shards", len(snap.Shards)).
		Msg("topocache: refreshed topology")
	return snap, nil
}

// buildSnapshot converts store descriptors into the routing model and
// rejects topologies that cannot route: mixed prefix widths or two
// shards claiming one prefix.
func buildSnapshot(descs []*topodb.ShardDescriptor, clock func() time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Shards:    make([]*topology.Shard, 0, len(descs)),
		byPrefix:  make(map[string]*topology.Shard, len(descs)),
		fetchedAt: clock(),
	}

	for _, d := range descs {
		sh := topology.ShardFromDB(d)
		if len(sh.Prefix) == 0 {
			return nil, sherror.Newf(sherror.SH_METADATA_CORRUPTION, "shard %s has an empty locator prefix", sh.ID)
		}
		if snap.width == 0 {
			snap.width = len(sh.Prefix)
		}
		if len(sh.Prefix) != snap.width {
			return nil, sherror.Newf(sherror.SH_METADATA_CORRUPTION,
				"shard %s prefix \"%s\" does not match topology prefix width %d", sh.ID, sh.Prefix, snap.width)
		}
		if prev, ok := snap.byPrefix[sh.Prefix]; ok {
			return nil, sherror.Newf(sherror.SH_METADATA_CORRUPTION,
				"shards %s and %s share locator prefix \"%s\"", prev.ID, sh.ID, sh.Prefix)
		}
		snap.Shards = append(snap.Shards, sh)
		snap.byPrefix[sh.Prefix] = sh
	}

	return snap, nil
}
