package topodb

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
)

type MemStore struct {
	mu sync.RWMutex

	Shards map[string]*ShardDescriptor `json:"shards"`

	backupPath string
}

var _ XStore = &MemStore{}

func NewMemStore(backupPath string) (*MemStore, error) {
	return &MemStore{
		Shards: map[string]*ShardDescriptor{},

		backupPath: backupPath,
	}, nil
}

// RestoreMemStore loads a store previously persisted via DumpState. A
// missing backup file is not an error, it is created on the next dump.
func RestoreMemStore(backupPath string) (*MemStore, error) {
	store, err := NewMemStore(backupPath)
	if err != nil {
		return nil, err
	}
	if backupPath == "" {
		return store, nil
	}
	if _, err := os.Stat(backupPath); err != nil {
		shardlog.Zero.Info().Err(err).Msg("memstore backup file not exists. Creating new one.")
		f, err := os.Create(backupPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return store, nil
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (q *MemStore) DumpState() error {
	if q.backupPath == "" {
		return nil
	}
	tmpPath := q.backupPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	state, err := json.MarshalIndent(q, "", "	")
	if err != nil {
		return err
	}

	_, err = f.Write(state)
	if err != nil {
		return err
	}
	f.Close()

	err = os.Rename(tmpPath, q.backupPath)
	if err != nil {
		return err
	}

	return nil
}

func (q *MemStore) ListShards(ctx context.Context) ([]*ShardDescriptor, error) {
	shardlog.Zero.Debug().Msg("memstore: list shards")
	q.mu.RLock()
	defer q.mu.RUnlock()

	ret := make([]*ShardDescriptor, 0, len(q.Shards))
	for _, v := range q.Shards {
		ret = append(ret, v)
	}

	slices.SortFunc(ret, func(a, b *ShardDescriptor) int {
		return strings.Compare(a.ID, b.ID)
	})

	return ret, nil
}

// AddShardIfAbsent inserts the descriptor unless one with the same prefix
// is already present, making repeated seeding runs no-ops.
func (q *MemStore) AddShardIfAbsent(ctx context.Context, sh *ShardDescriptor) error {
	shardlog.Zero.Debug().
		Str("id", sh.ID).
		Str("prefix", sh.Prefix).
		Msg("memstore: add shard if absent")
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, v := range q.Shards {
		if v.Prefix == sh.Prefix {
			shardlog.Zero.Debug().
				Str("id", v.ID).
				Str("prefix", v.Prefix).
				Msg("memstore: prefix already seeded")
			return nil
		}
	}

	return ExecuteCommands(q.DumpState, NewUpdateCommand(q.Shards, sh.ID, sh))
}

func (q *MemStore) GetShard(ctx context.Context, id string) (*ShardDescriptor, error) {
	shardlog.Zero.Debug().Str("shard", id).Msg("memstore: get shard")
	q.mu.RLock()
	defer q.mu.RUnlock()

	if sh, ok := q.Shards[id]; ok {
		return sh, nil
	}

	return nil, sherror.Newf(sherror.SH_UNKNOWN_SHARD, "shard \"%s\" not found", id)
}

func (q *MemStore) UpdateShard(ctx context.Context, sh *ShardDescriptor) error {
	shardlog.Zero.Debug().Interface("shard", sh).Msg("memstore: update shard")
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.Shards[sh.ID]; !ok {
		return sherror.Newf(sherror.SH_UNKNOWN_SHARD, "shard \"%s\" not found", sh.ID)
	}

	return ExecuteCommands(q.DumpState, NewUpdateCommand(q.Shards, sh.ID, sh))
}

func (q *MemStore) DropShard(ctx context.Context, id string) error {
	shardlog.Zero.Debug().Str("shard", id).Msg("memstore: drop shard")
	q.mu.Lock()
	defer q.mu.Unlock()

	return ExecuteCommands(q.DumpState, NewDeleteCommand(q.Shards, id))
}

func (q *MemStore) Close() error {
	return nil
}
