package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/seed"
	"github.com/shardrepo/shardrepo/topodb"
)

func descriptors() []*topodb.ShardDescriptor {
	return []*topodb.ShardDescriptor{
		topodb.NewShardDescriptor("sh1", "01", "postgres://localhost:6432/db1"),
		topodb.NewShardDescriptor("sh2", "02", "postgres://localhost:6433/db1"),
	}
}

func TestSeedIsIdempotent(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store, err := topodb.NewMemStore("")
	assert.NoError(err)

	opts := seed.Opts{Descriptors: descriptors(), LocatorLength: 2}

	assert.NoError(seed.Run(ctx, store, opts))

	shards, err := store.ListShards(ctx)
	assert.NoError(err)
	assert.Len(shards, 2)

	/* an operator closes a gate between deployments */
	gated := shards[1].Copy()
	gated.WriteEnabled = false
	assert.NoError(store.UpdateShard(ctx, gated))

	/* rerunning the seed must not reopen it */
	assert.NoError(seed.Run(ctx, store, seed.Opts{Descriptors: descriptors(), LocatorLength: 2}))

	shards, err = store.ListShards(ctx)
	assert.NoError(err)
	assert.Len(shards, 2)
	assert.False(shards[1].WriteEnabled)
}

func TestSeedValidation(t *testing.T) {

	assert := assert.New(t)

	for i, c := range []struct {
		descs []*topodb.ShardDescriptor
		width int
		err   bool
	}{
		{
			descs: descriptors(),
			width: 2,
		},
		{
			/* prefix off the configured width */
			descs: descriptors(),
			width: 4,
			err:   true,
		},
		{
			descs: []*topodb.ShardDescriptor{
				topodb.NewShardDescriptor("sh1", "01", "postgres://localhost:6432/db1"),
				topodb.NewShardDescriptor("sh2", "01", "postgres://localhost:6433/db1"),
			},
			width: 2,
			err:   true,
		},
		{
			descs: []*topodb.ShardDescriptor{
				topodb.NewShardDescriptor("", "01", "postgres://localhost:6432/db1"),
			},
			width: 2,
			err:   true,
		},
		{
			descs: []*topodb.ShardDescriptor{
				topodb.NewShardDescriptor("sh1", "01", ""),
			},
			width: 2,
			err:   true,
		},
	} {
		err := seed.Validate(c.descs, c.width)
		if c.err {
			assert.Error(err, "test case %d", i)
			assert.Equal(sherror.SH_INVALID_REQUEST, sherror.CodeOf(err), "test case %d", i)
			continue
		}
		assert.NoError(err, "test case %d", i)
	}
}

func TestSeedRunsProvisionHook(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	store, err := topodb.NewMemStore("")
	assert.NoError(err)

	var provisioned []string
	opts := seed.Opts{
		Descriptors:   descriptors(),
		LocatorLength: 2,
		Provision: func(_ context.Context, desc *topodb.ShardDescriptor) error {
			provisioned = append(provisioned, desc.ID)
			return nil
		},
	}

	assert.NoError(seed.Run(ctx, store, opts))
	assert.Equal([]string{"sh1", "sh2"}, provisioned)
}
