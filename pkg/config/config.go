package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

type JaegerCfg struct {
	JaegerUrl string `json:"jaeger_url" toml:"jaeger_url" yaml:"jaeger_url"`
}

type Repository struct {
	LogLevel    string `json:"log_level" toml:"log_level" yaml:"log_level"`
	LogFileName string `json:"log_filename" toml:"log_filename" yaml:"log_filename"`

	StoreType string `json:"store_type" toml:"store_type" yaml:"store_type"`
	StoreAddr string `json:"store_addr" toml:"store_addr" yaml:"store_addr"`

	LocatorLength     int    `json:"locator_length" toml:"locator_length" yaml:"locator_length"`
	BalancingStrategy string `json:"balancing_strategy" toml:"balancing_strategy" yaml:"balancing_strategy"`

	TopologyCacheEnabled bool `json:"topology_cache_enabled" toml:"topology_cache_enabled" yaml:"topology_cache_enabled"`
	TopologyCacheTTLSec  int  `json:"topology_cache_ttl_sec" toml:"topology_cache_ttl_sec" yaml:"topology_cache_ttl_sec"`
	ServeLastKnownGood   bool `json:"serve_last_known_good" toml:"serve_last_known_good" yaml:"serve_last_known_good"`

	ConnectionTimeoutMs int `json:"connection_timeout_ms" toml:"connection_timeout_ms" yaml:"connection_timeout_ms"`

	SeedIfMissing bool         `json:"seed_if_missing" toml:"seed_if_missing" yaml:"seed_if_missing"`
	Shards        []*SeedShard `json:"shards" toml:"shards" yaml:"shards"`

	ShardTLS TLSConfig `json:"shard_tls" toml:"shard_tls" yaml:"shard_tls"`

	WithJaeger   bool      `json:"with_jaeger" toml:"with_jaeger" yaml:"with_jaeger"`
	JaegerConfig JaegerCfg `json:"jaeger" toml:"jaeger" yaml:"jaeger"`

	StatsQuantiles []float64 `json:"stats_quantiles" toml:"stats_quantiles" yaml:"stats_quantiles"`
}

func (c *Repository) CacheTTL() time.Duration {
	return time.Duration(c.TopologyCacheTTLSec) * time.Second
}

func (c *Repository) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectionTimeoutMs) * time.Millisecond
}

var cfgRepository Repository

func Load(cfgPath string) error {
	file, err := os.Open(cfgPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := initConfig(file, &cfgRepository); err != nil {
		return err
	}

	configBytes, err := json.MarshalIndent(cfgRepository, "", "  ")
	if err != nil {
		return err
	}
	log.Println("Running config:", string(configBytes))
	return nil
}

func RepositoryConfig() *Repository {
	return &cfgRepository
}
