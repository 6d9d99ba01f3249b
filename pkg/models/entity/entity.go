package entity

// Sharded is the capability an entity type must expose to live in a sharded
// repository. The key is the public identifier, composed of the owning shard
// locator followed by a shard-local suffix. Insert assigns the key, every
// other operation resolves the owning shard from it.
type Sharded interface {
	ShardKey() string
	SetShardKey(key string)
}
