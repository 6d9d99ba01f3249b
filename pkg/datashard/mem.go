package datashard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slices"

	"github.com/shardrepo/shardrepo/pkg/models/entity"
	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
	"github.com/shardrepo/shardrepo/pkg/statistics"
)

// MemFactory keeps every shard's entities in process memory. It backs
// tests and local runs: shards can be marked unreachable to rehearse
// partial fan-out failures without a real outage.
type MemFactory[T entity.Sharded] struct {
	mu      sync.RWMutex
	data    map[string]map[string]T
	failing map[string]struct{}
}

func NewMemFactory[T entity.Sharded]() *MemFactory[T] {
	return &MemFactory[T]{
		data:    map[string]map[string]T{},
		failing: map[string]struct{}{},
	}
}

// FailShard makes the shard unreachable for sessions and in-flight
// operations until RestoreShard.
func (f *MemFactory[T]) FailShard(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[id] = struct{}{}
}

func (f *MemFactory[T]) RestoreShard(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failing, id)
}

// Keys returns the sorted entity keys stored on one shard. Tests use
// it to check placement.
func (f *MemFactory[T]) Keys(shardID string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.data[shardID]))
	for k := range f.data[shardID] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (f *MemFactory[T]) SessionFor(_ context.Context, sh *topology.Shard) (Session[T], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.failing[sh.ID]; ok {
		return nil, sherror.Newf(sherror.SH_SHARD_UNREACHABLE, "shard %s unreachable: connection refused", sh.ID)
	}
	if _, ok := f.data[sh.ID]; !ok {
		f.data[sh.ID] = map[string]T{}
	}
	return &MemSession[T]{factory: f, shard: sh}, nil
}

func (f *MemFactory[T]) Close() error {
	return nil
}

// MemSession is a Session over one in-memory shard.
type MemSession[T entity.Sharded] struct {
	factory *MemFactory[T]
	shard   *topology.Shard
}

func (s *MemSession[T]) ShardID() string {
	return s.shard.ID
}

func (s *MemSession[T]) guard() error {
	if _, ok := s.factory.failing[s.shard.ID]; ok {
		return sherror.Newf(sherror.SH_SHARD_UNREACHABLE, "shard %s unreachable: connection reset", s.shard.ID)
	}
	return nil
}

func (s *MemSession[T]) Insert(_ context.Context, e T) error {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	s.factory.data[s.shard.ID][e.ShardKey()] = e
	return nil
}

func (s *MemSession[T]) GetByKey(_ context.Context, key string) (T, error) {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	s.factory.mu.RLock()
	defer s.factory.mu.RUnlock()

	var zero T
	if err := s.guard(); err != nil {
		return zero, err
	}
	e, ok := s.factory.data[s.shard.ID][key]
	if !ok {
		return zero, sherror.Newf(sherror.SH_NOT_FOUND, "no entity with key %s", key)
	}
	return e, nil
}

func (s *MemSession[T]) Update(_ context.Context, e T) error {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, ok := s.factory.data[s.shard.ID][e.ShardKey()]; !ok {
		return sherror.Newf(sherror.SH_NOT_FOUND, "no entity with key %s", e.ShardKey())
	}
	s.factory.data[s.shard.ID][e.ShardKey()] = e
	return nil
}

func (s *MemSession[T]) Delete(_ context.Context, key string) error {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	s.factory.mu.Lock()
	defer s.factory.mu.Unlock()

	if err := s.guard(); err != nil {
		return err
	}
	if _, ok := s.factory.data[s.shard.ID][key]; !ok {
		return sherror.Newf(sherror.SH_NOT_FOUND, "no entity with key %s", key)
	}
	delete(s.factory.data[s.shard.ID], key)
	return nil
}

// Select lists the shard's entities ordered by key. The in-memory
// session has no SQL engine, so Where and OrderBy fragments are
// rejected rather than silently ignored.
func (s *MemSession[T]) Select(_ context.Context, q Query) ([]T, error) {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	s.factory.mu.RLock()
	defer s.factory.mu.RUnlock()

	if err := s.guard(); err != nil {
		return nil, err
	}
	if q.Where != "" || q.OrderBy != "" {
		return nil, fmt.Errorf("mem sessions do not support where or order by fragments")
	}

	keys := make([]string, 0, len(s.factory.data[s.shard.ID]))
	for k := range s.factory.data[s.shard.ID] {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	ret := make([]T, 0, len(keys))
	for _, k := range keys {
		if q.Limit > 0 && len(ret) == q.Limit {
			break
		}
		ret = append(ret, s.factory.data[s.shard.ID][k])
	}
	return ret, nil
}
