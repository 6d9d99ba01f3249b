package statistics

import (
	"sync"
	"time"

	"github.com/caio/go-tdigest"
)

type StatisticsType string

const (
	Topology = StatisticsType("topology")
	Shard    = StatisticsType("shard")
)

type statistics struct {
	mu sync.Mutex

	TopologyTime map[string]*tdigest.TDigest
	ShardTime    map[string]*tdigest.TDigest
	Quantiles    []float64
}

var shardStatistics = statistics{
	TopologyTime: make(map[string]*tdigest.TDigest),
	ShardTime:    make(map[string]*tdigest.TDigest),
}

func SetQuantiles(q []float64) {
	shardStatistics.mu.Lock()
	defer shardStatistics.mu.Unlock()
	shardStatistics.Quantiles = q
}

func GetQuantiles() []float64 {
	shardStatistics.mu.Lock()
	defer shardStatistics.mu.Unlock()
	return shardStatistics.Quantiles
}

// RecordTopologyOperation records the latency of one topology store call,
// keyed by operation name.
func RecordTopologyOperation(op string, duration time.Duration) {
	shardStatistics.mu.Lock()
	defer shardStatistics.mu.Unlock()

	if shardStatistics.TopologyTime[op] == nil {
		shardStatistics.TopologyTime[op], _ = tdigest.New()
	}
	_ = shardStatistics.TopologyTime[op].Add(toMillis(duration))
}

// RecordShardOperation records the latency of one delegated per-shard
// operation, keyed by shard name.
func RecordShardOperation(shard string, duration time.Duration) {
	shardStatistics.mu.Lock()
	defer shardStatistics.mu.Unlock()

	if shardStatistics.ShardTime[shard] == nil {
		shardStatistics.ShardTime[shard], _ = tdigest.New()
	}
	_ = shardStatistics.ShardTime[shard].Add(toMillis(duration))
}

// GetTimeStatistics returns the latency digest for the given key, an empty
// digest if nothing was recorded yet.
func GetTimeStatistics(tip StatisticsType, key string) *tdigest.TDigest {
	shardStatistics.mu.Lock()
	defer shardStatistics.mu.Unlock()

	var stat *tdigest.TDigest
	switch tip {
	case Topology:
		stat = shardStatistics.TopologyTime[key]
	case Shard:
		stat = shardStatistics.ShardTime[key]
	}

	if stat == nil {
		stat, _ = tdigest.New()
	}
	return stat
}

func toMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
