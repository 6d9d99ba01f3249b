package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shardrepo/shardrepo/pkg/config"
)

func writeTempConfig(t *testing.T, name, contents string) string {
	t.Helper()

	dir := t.TempDir()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	yaml := `
log_level: debug
store_type: mem
locator_length: 2
balancing_strategy: random
topology_cache_enabled: true
topology_cache_ttl_sec: 600
connection_timeout_ms: 1500
seed_if_missing: true
shards:
  - id: sh1
    prefix: "01"
    conn_string: "postgres://localhost:6432/db1"
    weight: 1
  - id: sh2
    prefix: "02"
    conn_string: "postgres://localhost:6433/db1"
    weight: 3
`

	path := writeTempConfig(t, "repo.yaml", yaml)

	if err := config.Load(path); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	cfg := config.RepositoryConfig()
	if cfg.LocatorLength != 2 {
		t.Fatalf("LocatorLength = %d, want 2", cfg.LocatorLength)
	}
	if got := cfg.CacheTTL(); got != 600*time.Second {
		t.Fatalf("CacheTTL() = %v, want 600s", got)
	}
	if got := cfg.ConnectTimeout(); got != 1500*time.Millisecond {
		t.Fatalf("ConnectTimeout() = %v, want 1.5s", got)
	}
	if len(cfg.Shards) != 2 {
		t.Fatalf("len(Shards) = %d, want 2", len(cfg.Shards))
	}
	if cfg.Shards[1].Weight != 3 {
		t.Fatalf("Shards[1].Weight = %d, want 3", cfg.Shards[1].Weight)
	}
}

func TestLoadTOML(t *testing.T) {
	toml := `
log_level = "info"
store_type = "etcd"
store_addr = "localhost:2379"
locator_length = 4

[[shards]]
id = "sh1"
prefix = "0001"
conn_string = "postgres://localhost:6432/db1"
`

	path := writeTempConfig(t, "repo.toml", toml)

	if err := config.Load(path); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	cfg := config.RepositoryConfig()
	if cfg.StoreType != "etcd" {
		t.Fatalf("StoreType = %q, want etcd", cfg.StoreType)
	}
	if cfg.Shards[0].Prefix != "0001" {
		t.Fatalf("Shards[0].Prefix = %q, want 0001", cfg.Shards[0].Prefix)
	}
}

func TestLoadJSON(t *testing.T) {
	json := `{
  "store_type": "postgres",
  "store_addr": "postgres://localhost:5432/topology",
  "locator_length": 2,
  "serve_last_known_good": true
}`

	path := writeTempConfig(t, "repo.json", json)

	if err := config.Load(path); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	cfg := config.RepositoryConfig()
	if !cfg.ServeLastKnownGood {
		t.Fatalf("ServeLastKnownGood = false, want true")
	}
}

func TestLoadUnknownSuffix(t *testing.T) {
	path := writeTempConfig(t, "repo.conf", "store_type: mem")

	err := config.Load(path)
	if err == nil {
		t.Fatalf("Load expected error for unknown suffix, got nil")
	}
	if !strings.Contains(err.Error(), "unknown config format type") {
		t.Fatalf("error %q does not mention unknown config format type", err.Error())
	}
}

func TestSeedShardToDescriptor(t *testing.T) {
	seed := &config.SeedShard{
		ID:         "sh1",
		Prefix:     "01",
		ConnString: "postgres://localhost:6432/db1",
		Server:     "localhost:6432",
		Database:   "db1",
		Schema:     "public",
		Weight:     2,
	}

	desc := seed.ToDescriptor()
	if desc.ID != "sh1" || desc.Prefix != "01" {
		t.Fatalf("descriptor identity mismatch: %+v", desc)
	}
	if !desc.Enabled || !desc.ReadEnabled || !desc.WriteEnabled || !desc.UpdateEnabled {
		t.Fatalf("seeded descriptor must start with every gate open: %+v", desc)
	}
	if desc.Weight != 2 {
		t.Fatalf("Weight = %d, want 2", desc.Weight)
	}
}
