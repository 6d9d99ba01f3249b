package topodb

import "time"

// ShardDescriptor is one row of the shard topology: addressing, capability
// gates and the locator prefix that routes entity keys to this shard.
// Prefixes are unique and share one width across the active topology.
type ShardDescriptor struct {
	ID            string    `json:"id" db:"id" yaml:"id"`
	Prefix        string    `json:"prefix" db:"prefix" yaml:"prefix"`
	ConnString    string    `json:"conn_string" db:"conn_string" yaml:"conn_string"`
	Server        string    `json:"server" db:"server" yaml:"server"`
	Database      string    `json:"database" db:"database" yaml:"database"`
	Schema        string    `json:"schema" db:"schema" yaml:"schema"`
	Enabled       bool      `json:"enabled" db:"enabled" yaml:"enabled"`
	ReadEnabled   bool      `json:"read_enabled" db:"read_enabled" yaml:"read_enabled"`
	WriteEnabled  bool      `json:"write_enabled" db:"write_enabled" yaml:"write_enabled"`
	UpdateEnabled bool      `json:"update_enabled" db:"update_enabled" yaml:"update_enabled"`
	Weight        uint32    `json:"weight" db:"weight" yaml:"weight"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" yaml:"created_at"`
}

// NewShardDescriptor returns a descriptor with every gate open.
func NewShardDescriptor(id string, prefix string, connString string) *ShardDescriptor {
	return &ShardDescriptor{
		ID:            id,
		Prefix:        prefix,
		ConnString:    connString,
		Enabled:       true,
		ReadEnabled:   true,
		WriteEnabled:  true,
		UpdateEnabled: true,
		CreatedAt:     time.Now(),
	}
}

func (s *ShardDescriptor) Copy() *ShardDescriptor {
	cp := *s
	return &cp
}
