package datashard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
)

type testEntity struct {
	Key  string
	Body string
}

func (e *testEntity) ShardKey() string     { return e.Key }
func (e *testEntity) SetShardKey(k string) { e.Key = k }

var (
	_ Session[*testEntity] = &PGSession[*testEntity]{}
	_ Session[*testEntity] = &MemSession[*testEntity]{}
	_ Factory[*testEntity] = &PGFactory[*testEntity]{}
	_ Factory[*testEntity] = &MemFactory[*testEntity]{}
)

func TestBuildSQL(t *testing.T) {

	assert := assert.New(t)

	cols := []string{"key", "body", "created_at"}

	assert.Equal(
		"INSERT INTO public.orders (key, body, created_at) VALUES ($1, $2, $3)",
		insertSQL("public.orders", cols))

	assert.Equal(
		"SELECT key, body, created_at FROM public.orders WHERE key = $1",
		selectByKeySQL("public.orders", cols))

	assert.Equal(
		"UPDATE public.orders SET body = $2, created_at = $3 WHERE key = $1",
		updateSQL("public.orders", cols))

	assert.Equal(
		"DELETE FROM public.orders WHERE key = $1",
		deleteSQL("public.orders", "key"))
}

func TestBuildSelectSQL(t *testing.T) {

	assert := assert.New(t)

	cols := []string{"key", "body"}

	for i, c := range []struct {
		query Query
		want  string
	}{
		{
			query: Query{},
			want:  "SELECT key, body FROM orders",
		},
		{
			query: Query{Where: "body = $1"},
			want:  "SELECT key, body FROM orders WHERE body = $1",
		},
		{
			query: Query{OrderBy: "key DESC"},
			want:  "SELECT key, body FROM orders ORDER BY key DESC",
		},
		{
			query: Query{Where: "body = $1", OrderBy: "key", Limit: 10},
			want:  "SELECT key, body FROM orders WHERE body = $1 ORDER BY key LIMIT 10",
		},
	} {
		assert.Equal(c.want, selectSQL("orders", cols, c.query), "test case %d", i)
	}
}

func TestMemSessionCRUD(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	factory := NewMemFactory[*testEntity]()
	sh := topology.NewShard("sh1", "01", "mem://sh1")

	session, err := factory.SessionFor(ctx, sh)
	assert.NoError(err)
	assert.Equal("sh1", session.ShardID())

	assert.NoError(session.Insert(ctx, &testEntity{Key: "01aaaa", Body: "first"}))

	got, err := session.GetByKey(ctx, "01aaaa")
	assert.NoError(err)
	assert.Equal("first", got.Body)

	assert.NoError(session.Update(ctx, &testEntity{Key: "01aaaa", Body: "second"}))
	got, err = session.GetByKey(ctx, "01aaaa")
	assert.NoError(err)
	assert.Equal("second", got.Body)

	assert.NoError(session.Delete(ctx, "01aaaa"))

	_, err = session.GetByKey(ctx, "01aaaa")
	assert.Error(err)
	assert.Equal(sherror.SH_NOT_FOUND, sherror.CodeOf(err))

	assert.Equal(sherror.SH_NOT_FOUND, sherror.CodeOf(session.Delete(ctx, "01aaaa")))
	assert.Equal(sherror.SH_NOT_FOUND, sherror.CodeOf(session.Update(ctx, &testEntity{Key: "01aaaa"})))
}

func TestMemFactoryFailShard(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	factory := NewMemFactory[*testEntity]()
	sh := topology.NewShard("sh2", "02", "mem://sh2")

	factory.FailShard("sh2")

	_, err := factory.SessionFor(ctx, sh)
	assert.Error(err)
	assert.Equal(sherror.SH_SHARD_UNREACHABLE, sherror.CodeOf(err))

	factory.RestoreShard("sh2")

	session, err := factory.SessionFor(ctx, sh)
	assert.NoError(err)

	/* an outage mid-session fails in-flight operations too */
	factory.FailShard("sh2")
	err = session.Insert(ctx, &testEntity{Key: "02bbbb"})
	assert.Equal(sherror.SH_SHARD_UNREACHABLE, sherror.CodeOf(err))
}

func TestMemSessionSelect(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	factory := NewMemFactory[*testEntity]()
	sh := topology.NewShard("sh1", "01", "mem://sh1")

	session, err := factory.SessionFor(ctx, sh)
	assert.NoError(err)

	for _, key := range []string{"01cc", "01aa", "01bb"} {
		assert.NoError(session.Insert(ctx, &testEntity{Key: key}))
	}

	got, err := session.Select(ctx, Query{})
	assert.NoError(err)
	assert.Len(got, 3)
	assert.Equal("01aa", got[0].Key)
	assert.Equal("01cc", got[2].Key)

	got, err = session.Select(ctx, Query{Limit: 2})
	assert.NoError(err)
	assert.Len(got, 2)

	_, err = session.Select(ctx, Query{Where: "body = $1"})
	assert.Error(err)
}

func TestMemFactoryKeys(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()

	factory := NewMemFactory[*testEntity]()

	s1, err := factory.SessionFor(ctx, topology.NewShard("sh1", "01", "mem://sh1"))
	assert.NoError(err)
	s2, err := factory.SessionFor(ctx, topology.NewShard("sh2", "02", "mem://sh2"))
	assert.NoError(err)

	assert.NoError(s1.Insert(ctx, &testEntity{Key: "01xx"}))
	assert.NoError(s2.Insert(ctx, &testEntity{Key: "02yy"}))

	assert.Equal([]string{"01xx"}, factory.Keys("sh1"))
	assert.Equal([]string{"02yy"}, factory.Keys("sh2"))
	assert.Empty(factory.Keys("sh3"))
}
