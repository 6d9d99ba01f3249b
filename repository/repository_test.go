package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shardrepo/shardrepo/pkg/datashard"
	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
	"github.com/shardrepo/shardrepo/repository"
	"github.com/shardrepo/shardrepo/topodb"
)

type order struct {
	Key    string
	Amount int
}

func (o *order) ShardKey() string     { return o.Key }
func (o *order) SetShardKey(k string) { o.Key = k }

func topoShard(id string, prefix string) *topology.Shard {
	return topology.NewShard(id, prefix, "mem://"+id)
}

func newTopology(t *testing.T, descs ...*topodb.ShardDescriptor) *topodb.MemStore {
	t.Helper()

	store, err := topodb.NewMemStore("")
	if err != nil {
		t.Fatalf("create mem store: %v", err)
	}
	for _, desc := range descs {
		if err := store.AddShardIfAbsent(context.Background(), desc); err != nil {
			t.Fatalf("seed shard %s: %v", desc.ID, err)
		}
	}
	return store
}

func newRepository(t *testing.T, store *topodb.MemStore, factory *datashard.MemFactory[*order]) *repository.ShardedRepository[*order] {
	t.Helper()

	rep, err := repository.NewShardedRepository[*order](store, factory, repository.Opts{
		LocatorLength: 2,
		CacheEnabled:  true,
		CacheTTL:      600 * time.Second,
	})
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	return rep
}

func TestInsertAssignsKeyAndBalances(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store := newTopology(t,
		topodb.NewShardDescriptor("sh1", "01", "mem://sh1"),
		topodb.NewShardDescriptor("sh2", "02", "mem://sh2"),
	)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	for i := 0; i < 10000; i++ {
		e := &order{Amount: i}
		assert.NoError(rep.Insert(ctx, e))
		assert.True(len(e.Key) > 2, "key %q has no suffix", e.Key)
	}

	/* random placement: each shard takes roughly half */
	sh1 := len(factory.Keys("sh1"))
	sh2 := len(factory.Keys("sh2"))
	assert.Equal(10000, sh1+sh2)
	assert.Greater(sh1, 4500)
	assert.Less(sh1, 5500)

	/* every key routes back to the shard that stores it */
	for _, key := range factory.Keys("sh1") {
		assert.Equal("01", key[:2])
	}
	for _, key := range factory.Keys("sh2") {
		assert.Equal("02", key[:2])
	}
}

func TestInsertOverwritesCallerKey(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store := newTopology(t, topodb.NewShardDescriptor("sh1", "01", "mem://sh1"))
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	e := &order{Key: "99stale"}
	assert.NoError(rep.Insert(ctx, e))
	assert.Equal("01", e.Key[:2])
	assert.NotEqual("99stale", e.Key)
}

func TestWriteDisabledShardStaysReadable(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	noWrites := topodb.NewShardDescriptor("sh2", "02", "mem://sh2")
	noWrites.WriteEnabled = false

	store := newTopology(t,
		topodb.NewShardDescriptor("sh1", "01", "mem://sh1"),
		noWrites,
	)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	/* an entity that was placed before writes were gated off */
	session, err := factory.SessionFor(ctx, topoShard("sh2", "02"))
	assert.NoError(err)
	assert.NoError(session.Insert(ctx, &order{Key: "02abcd", Amount: 7}))

	/* new placements avoid the write-gated shard entirely */
	for i := 0; i < 100; i++ {
		assert.NoError(rep.Insert(ctx, &order{Amount: i}))
	}
	assert.Len(factory.Keys("sh2"), 1)
	assert.Len(factory.Keys("sh1"), 100)

	/* but its entities are still readable */
	got, err := rep.GetByKey(ctx, "02abcd")
	assert.NoError(err)
	assert.Equal(7, got.Amount)

	/* and not writable */
	assert.Equal(sherror.SH_SHARD_DISABLED, sherror.CodeOf(rep.Delete(ctx, "02abcd")))
}

func TestInsertNoEligibleShard(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	noWrites := topodb.NewShardDescriptor("sh1", "01", "mem://sh1")
	noWrites.WriteEnabled = false

	store := newTopology(t, noWrites)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	err := rep.Insert(ctx, &order{})
	assert.Error(err)
	assert.Equal(sherror.SH_NO_ELIGIBLE_SHARD, sherror.CodeOf(err))
}

func TestGetByKeyMalformed(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store := newTopology(t, topodb.NewShardDescriptor("sh1", "01", "mem://sh1"))
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	_, err := rep.GetByKey(ctx, "0")
	assert.Error(err)
	assert.Equal(sherror.SH_MALFORMED_KEY, sherror.CodeOf(err))
}

func TestGetByKeyUnknownLocator(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store := newTopology(t, topodb.NewShardDescriptor("sh1", "01", "mem://sh1"))
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	_, err := rep.GetByKey(ctx, "99aaaa")
	assert.Error(err)
	assert.Equal(sherror.SH_UNKNOWN_SHARD, sherror.CodeOf(err))
}

func TestDisabledShardExcludedEverywhere(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	retired := topodb.NewShardDescriptor("sh2", "02", "mem://sh2")
	retired.Enabled = false

	store := newTopology(t,
		topodb.NewShardDescriptor("sh1", "01", "mem://sh1"),
		retired,
	)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	/* placements all avoid the retired shard */
	for i := 0; i < 50; i++ {
		assert.NoError(rep.Insert(ctx, &order{Amount: i}))
	}
	assert.Empty(factory.Keys("sh2"))

	/* direct operations against it fail loudly */
	_, err := rep.GetByKey(ctx, "02abcd")
	assert.Equal(sherror.SH_SHARD_DISABLED, sherror.CodeOf(err))
	assert.Equal(sherror.SH_SHARD_DISABLED, sherror.CodeOf(rep.Update(ctx, &order{Key: "02abcd"})))
	assert.Equal(sherror.SH_SHARD_DISABLED, sherror.CodeOf(rep.Delete(ctx, "02abcd")))

	/* fan-outs skip it silently */
	res, err := rep.QueryAcrossShards(ctx, datashard.Query{})
	assert.NoError(err)
	assert.Empty(res.Failures)
	assert.Len(res.Entities, 50)
}

func TestUpdateGate(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	frozen := topodb.NewShardDescriptor("sh1", "01", "mem://sh1")
	frozen.UpdateEnabled = false

	store := newTopology(t, frozen)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	e := &order{Amount: 1}
	assert.NoError(rep.Insert(ctx, e))

	/* in-place updates are gated off */
	e.Amount = 2
	err := rep.Update(ctx, e)
	assert.Error(err)
	assert.Equal(sherror.SH_UPDATE_NOT_ALLOWED, sherror.CodeOf(err))

	/* the update gate does not block deletes */
	assert.NoError(rep.Delete(ctx, e.Key))
}

func TestCRUDRoundTrip(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store := newTopology(t,
		topodb.NewShardDescriptor("sh1", "01", "mem://sh1"),
		topodb.NewShardDescriptor("sh2", "02", "mem://sh2"),
	)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	e := &order{Amount: 42}
	assert.NoError(rep.Insert(ctx, e))

	got, err := rep.GetByKey(ctx, e.Key)
	assert.NoError(err)
	assert.Equal(42, got.Amount)

	e.Amount = 43
	assert.NoError(rep.Update(ctx, e))

	got, err = rep.GetByKey(ctx, e.Key)
	assert.NoError(err)
	assert.Equal(43, got.Amount)

	assert.NoError(rep.Delete(ctx, e.Key))

	_, err = rep.GetByKey(ctx, e.Key)
	assert.Equal(sherror.SH_NOT_FOUND, sherror.CodeOf(err))
	assert.Equal(sherror.SH_NOT_FOUND, sherror.CodeOf(rep.Delete(ctx, e.Key)))
	assert.Equal(sherror.SH_NOT_FOUND, sherror.CodeOf(rep.Update(ctx, e)))
}

func TestQueryAcrossShardsPartialFailure(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store := newTopology(t,
		topodb.NewShardDescriptor("sh1", "01", "mem://sh1"),
		topodb.NewShardDescriptor("sh2", "02", "mem://sh2"),
		topodb.NewShardDescriptor("sh3", "03", "mem://sh3"),
	)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	seed := map[string][]string{
		"sh1": {"01aa", "01bb"},
		"sh2": {"02aa"},
		"sh3": {"03aa", "03bb", "03cc"},
	}
	for id, keys := range seed {
		session, err := factory.SessionFor(ctx, topoShard(id, keys[0][:2]))
		assert.NoError(err)
		for _, key := range keys {
			assert.NoError(session.Insert(ctx, &order{Key: key}))
		}
	}

	factory.FailShard("sh2")

	res, err := rep.QueryAcrossShards(ctx, datashard.Query{})
	assert.NoError(err)

	/* the healthy shards answer in topology order */
	keys := make([]string, 0, len(res.Entities))
	for _, e := range res.Entities {
		keys = append(keys, e.Key)
	}
	assert.Equal([]string{"01aa", "01bb", "03aa", "03bb", "03cc"}, keys)

	/* the dead shard is reported, not dropped */
	assert.Len(res.Failures, 1)
	assert.Equal("sh2", res.Failures[0].ShardID)
	assert.Equal(sherror.SH_SHARD_UNREACHABLE, sherror.CodeOf(res.Failures[0].Err))
}

func TestQueryAcrossShardsMergesInTopologyOrder(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store := newTopology(t,
		topodb.NewShardDescriptor("sh1", "01", "mem://sh1"),
		topodb.NewShardDescriptor("sh2", "02", "mem://sh2"),
	)
	factory := datashard.NewMemFactory[*order]()
	rep := newRepository(t, store, factory)

	for i := 0; i < 20; i++ {
		assert.NoError(rep.Insert(ctx, &order{Amount: i}))
	}

	res, err := rep.QueryAcrossShards(ctx, datashard.Query{})
	assert.NoError(err)
	assert.Empty(res.Failures)
	assert.Len(res.Entities, 20)

	/* sh1 entities come first, each shard's batch ordered by key */
	prev := ""
	sawSecond := false
	for _, e := range res.Entities {
		switch e.Key[:2] {
		case "01":
			assert.False(sawSecond, "shard batches interleaved at key %s", e.Key)
		case "02":
			if !sawSecond {
				sawSecond = true
				prev = ""
			}
		}
		assert.Greater(e.Key, prev)
		prev = e.Key
	}
}
