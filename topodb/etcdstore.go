package topodb

import (
	"context"
	"encoding/json"
	"path"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/clientv3util"
	"google.golang.org/grpc"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/pkg/statistics"

	retry "github.com/sethvargo/go-retry"
)

type EtcdStore struct {
	cli *clientv3.Client
}

var _ XStore = &EtcdStore{}

func NewEtcdStore(addr string) (*EtcdStore, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints: []string{addr},
		DialOptions: []grpc.DialOption{ // TODO remove WithInsecure
			grpc.WithInsecure(), //nolint:all
		},
	})
	if err != nil {
		return nil, err
	}

	shardlog.Zero.Debug().
		Str("address", addr).
		Uint("client", shardlog.GetPointer(cli)).
		Msg("etcdstore: NewEtcdStore")

	return &EtcdStore{
		cli: cli,
	}, nil
}

const (
	shardsNamespace        = "/shards/"
	shardPrefixesNamespace = "/shard_prefixes/"
)

func shardNodePath(key string) string {
	return path.Join(shardsNamespace, key)
}

func shardPrefixNodePath(prefix string) string {
	return path.Join(shardPrefixesNamespace, prefix)
}

func (q *EtcdStore) Client() *clientv3.Client {
	return q.cli
}

func (q *EtcdStore) ListShards(ctx context.Context) ([]*ShardDescriptor, error) {
	shardlog.Zero.Debug().Msg("etcdstore: list shards")
	t := time.Now()

	var resp *clientv3.GetResponse
	if err := retry.Do(ctx, retry.WithMaxRetries(7, retry.NewFibonacci(500*time.Millisecond)), func(ctx context.Context) error {
		var err error
		resp, err = q.cli.Get(ctx, shardsNamespace, clientv3.WithPrefix())
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	shards := make([]*ShardDescriptor, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var shard *ShardDescriptor
		if err := json.Unmarshal(kv.Value, &shard); err != nil {
			return nil, err
		}
		shards = append(shards, shard)
	}

	sort.Slice(shards, func(i, j int) bool {
		return shards[i].ID < shards[j].ID
	})

	statistics.RecordTopologyOperation("ListShards", time.Since(t))
	return shards, nil
}

// AddShardIfAbsent puts the descriptor under /shards/ guarded by a
// transaction on the prefix index node, so one prefix is seeded at most
// once no matter how many processes race on startup.
func (q *EtcdStore) AddShardIfAbsent(ctx context.Context, sh *ShardDescriptor) error {
	shardlog.Zero.Debug().
		Str("id", sh.ID).
		Str("prefix", sh.Prefix).
		Msg("etcdstore: add shard if absent")
	t := time.Now()

	bytes, err := json.Marshal(sh)
	if err != nil {
		return err
	}

	tx := q.cli.Txn(ctx).
		If(clientv3util.KeyMissing(shardPrefixNodePath(sh.Prefix))).
		Then(
			clientv3.OpPut(shardPrefixNodePath(sh.Prefix), sh.ID),
			clientv3.OpPut(shardNodePath(sh.ID), string(bytes)),
		)
	stat, err := tx.Commit()
	if err != nil {
		return err
	}

	if !stat.Succeeded {
		shardlog.Zero.Debug().
			Str("prefix", sh.Prefix).
			Msg("etcdstore: prefix already seeded")
	}

	statistics.RecordTopologyOperation("AddShardIfAbsent", time.Since(t))
	return nil
}

// TODO : unit tests
func (q *EtcdStore) GetShard(ctx context.Context, id string) (*ShardDescriptor, error) {
	shardlog.Zero.Debug().
		Str("id", id).
		Msg("etcdstore: get shard")
	t := time.Now()

	resp, err := q.cli.Get(ctx, shardNodePath(id))
	if err != nil {
		return nil, err
	}

	if len(resp.Kvs) == 0 {
		return nil, sherror.Newf(sherror.SH_UNKNOWN_SHARD, "shard \"%s\" not found", id)
	}

	var shard *ShardDescriptor
	if err := json.Unmarshal(resp.Kvs[0].Value, &shard); err != nil {
		return nil, err
	}

	statistics.RecordTopologyOperation("GetShard", time.Since(t))
	return shard, nil
}

// TODO : unit tests
func (q *EtcdStore) UpdateShard(ctx context.Context, sh *ShardDescriptor) error {
	shardlog.Zero.Debug().
		Str("id", sh.ID).
		Msg("etcdstore: update shard")
	t := time.Now()

	bytes, err := json.Marshal(sh)
	if err != nil {
		return err
	}

	resp, err := q.cli.Put(ctx, shardNodePath(sh.ID), string(bytes))
	if err != nil {
		return err
	}

	shardlog.Zero.Debug().
		Interface("response", resp).
		Msg("etcdstore: update shard")

	statistics.RecordTopologyOperation("UpdateShard", time.Since(t))
	return nil
}

// TODO : unit tests
func (q *EtcdStore) DropShard(ctx context.Context, id string) error {
	shardlog.Zero.Debug().
		Str("id", id).
		Msg("etcdstore: drop shard")
	t := time.Now()

	sh, err := q.GetShard(ctx, id)
	if err != nil {
		return err
	}

	if _, err := q.cli.Delete(ctx, shardNodePath(id)); err != nil {
		return err
	}
	if _, err := q.cli.Delete(ctx, shardPrefixNodePath(sh.Prefix)); err != nil {
		return err
	}

	statistics.RecordTopologyOperation("DropShard", time.Since(t))
	return nil
}

func (q *EtcdStore) Close() error {
	return q.cli.Close()
}
