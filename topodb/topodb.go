package topodb

import (
	"context"
	"fmt"
)

//go:generate mockgen -source=topodb/topodb.go -destination=topodb/mock/store_mock.go -package=mock

// Store is the topology boundary the routing layer depends on: the full
// descriptor list plus idempotent seeding. Nothing in the routing layer
// mutates descriptors through this interface.
type Store interface {
	ListShards(ctx context.Context) ([]*ShardDescriptor, error)
	AddShardIfAbsent(ctx context.Context, sh *ShardDescriptor) error
}

// XStore extends Store with the operator surface used by the admin CLI.
type XStore interface {
	Store

	GetShard(ctx context.Context, id string) (*ShardDescriptor, error)
	UpdateShard(ctx context.Context, sh *ShardDescriptor) error
	DropShard(ctx context.Context, id string) error

	Close() error
}

func NewXStore(storeType string, addr string) (XStore, error) {
	switch storeType {
	case "etcd":
		return NewEtcdStore(addr)
	case "mem":
		return NewMemStore("")
	case "postgres":
		return NewPGStore(addr)
	default:
		return nil, fmt.Errorf("topology store implementation %s is invalid", storeType)
	}
}
