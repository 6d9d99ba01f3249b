package topology

import (
	"time"

	"github.com/shardrepo/shardrepo/topodb"
)

// Shard is the routing layer's view of one topology descriptor. Gate
// helpers fold the master switch into each capability, so a retired shard
// accepts nothing regardless of the per-capability flags.
type Shard struct {
	ID            string
	Prefix        string
	ConnString    string
	Server        string
	Database      string
	Schema        string
	Enabled       bool
	ReadEnabled   bool
	WriteEnabled  bool
	UpdateEnabled bool
	Weight        uint32
	CreatedAt     time.Time
}

func NewShard(id string, prefix string, connString string) *Shard {
	return &Shard{
		ID:            id,
		Prefix:        prefix,
		ConnString:    connString,
		Enabled:       true,
		ReadEnabled:   true,
		WriteEnabled:  true,
		UpdateEnabled: true,
	}
}

func (s *Shard) AcceptsReads() bool {
	return s.Enabled && s.ReadEnabled
}

func (s *Shard) AcceptsWrites() bool {
	return s.Enabled && s.WriteEnabled
}

func (s *Shard) AcceptsUpdates() bool {
	return s.Enabled && s.UpdateEnabled
}

func (s *Shard) Retired() bool {
	return !s.Enabled
}

// EffectiveWeight treats the zero value as weight one, so descriptors
// seeded before weights existed keep participating.
func (s *Shard) EffectiveWeight() uint32 {
	if s.Weight == 0 {
		return 1
	}
	return s.Weight
}

func ShardFromDB(sh *topodb.ShardDescriptor) *Shard {
	return &Shard{
		ID:            sh.ID,
		Prefix:        sh.Prefix,
		ConnString:    sh.ConnString,
		Server:        sh.Server,
		Database:      sh.Database,
		Schema:        sh.Schema,
		Enabled:       sh.Enabled,
		ReadEnabled:   sh.ReadEnabled,
		WriteEnabled:  sh.WriteEnabled,
		UpdateEnabled: sh.UpdateEnabled,
		Weight:        sh.Weight,
		CreatedAt:     sh.CreatedAt,
	}
}

func ShardToDB(sh *Shard) *topodb.ShardDescriptor {
	return &topodb.ShardDescriptor{
		ID:            sh.ID,
		Prefix:        sh.Prefix,
		ConnString:    sh.ConnString,
		Server:        sh.Server,
		Database:      sh.Database,
		Schema:        sh.Schema,
		Enabled:       sh.Enabled,
		ReadEnabled:   sh.ReadEnabled,
		WriteEnabled:  sh.WriteEnabled,
		UpdateEnabled: sh.UpdateEnabled,
		Weight:        sh.Weight,
		CreatedAt:     sh.CreatedAt,
	}
}
