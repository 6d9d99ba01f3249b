package config

import (
	"github.com/shardrepo/shardrepo/topodb"
)

// SeedShard describes one shard to provision into the topology store
// on startup when seed_if_missing is set. Gates are not configurable
// here: a freshly seeded shard starts with every gate open.
type SeedShard struct {
	ID         string `json:"id" toml:"id" yaml:"id"`
	Prefix     string `json:"prefix" toml:"prefix" yaml:"prefix"`
	ConnString string `json:"conn_string" toml:"conn_string" yaml:"conn_string"`
	Server     string `json:"server" toml:"server" yaml:"server"`
	Database   string `json:"database" toml:"database" yaml:"database"`
	Schema     string `json:"schema" toml:"schema" yaml:"schema"`
	Weight     uint32 `json:"weight" toml:"weight" yaml:"weight"`
}

func (s *SeedShard) ToDescriptor() *topodb.ShardDescriptor {
	desc := topodb.NewShardDescriptor(s.ID, s.Prefix, s.ConnString)
	desc.Server = s.Server
	desc.Database = s.Database
	desc.Schema = s.Schema
	desc.Weight = s.Weight
	return desc
}
