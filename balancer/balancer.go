package balancer

import (
	"fmt"
	"math/rand"

	"go.uber.org/atomic"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
)

const (
	RandomBalancerType     = "random"
	RoundRobinBalancerType = "round-robin"
	WeightedBalancerType   = "weighted"
)

// Strategy picks the shard that receives a newly placed entity.
// Select never mutates the eligible slice and is safe for concurrent
// use.
type Strategy interface {
	Select(eligible []*topology.Shard) (*topology.Shard, error)
	Name() string
}

// New resolves a strategy by its config name. An empty name means
// random placement.
func New(strategyType string) (Strategy, error) {
	switch strategyType {
	case RandomBalancerType, "":
		return NewRandomBalancer(), nil
	case RoundRobinBalancerType:
		return NewRoundRobinBalancer(), nil
	case WeightedBalancerType:
		return NewWeightedBalancer(), nil
	default:
		return nil, fmt.Errorf("balancing strategy %s is invalid", strategyType)
	}
}

// RandomBalancer places entities uniformly across the eligible shards.
type RandomBalancer struct{}

var _ Strategy = &RandomBalancer{}

func NewRandomBalancer() *RandomBalancer {
	return &RandomBalancer{}
}

func (b *RandomBalancer) Name() string {
	return RandomBalancerType
}

func (b *RandomBalancer) Select(eligible []*topology.Shard) (*topology.Shard, error) {
	if len(eligible) == 0 {
		return nil, sherror.New(sherror.SH_NO_ELIGIBLE_SHARD, "no shard accepts new entities")
	}
	return eligible[rand.Intn(len(eligible))], nil
}

// RoundRobinBalancer cycles over the eligible shards in order. The
// cursor survives topology refreshes; when the eligible set shrinks
// the cursor simply wraps earlier.
type RoundRobinBalancer struct {
	next *atomic.Uint64
}

var _ Strategy = &RoundRobinBalancer{}

func NewRoundRobinBalancer() *RoundRobinBalancer {
	return &RoundRobinBalancer{
		next: atomic.NewUint64(0),
	}
}

func (b *RoundRobinBalancer) Name() string {
	return RoundRobinBalancerType
}

func (b *RoundRobinBalancer) Select(eligible []*topology.Shard) (*topology.Shard, error) {
	if len(eligible) == 0 {
		return nil, sherror.New(sherror.SH_NO_ELIGIBLE_SHARD, "no shard accepts new entities")
	}
	idx := (b.next.Inc() - 1) % uint64(len(eligible))
	return eligible[idx], nil
}

// WeightedBalancer draws shards proportionally to their weight, so an
// operator can drain a shard gradually or favor bigger hardware.
type WeightedBalancer struct{}

var _ Strategy = &WeightedBalancer{}

func NewWeightedBalancer() *WeightedBalancer {
	return &WeightedBalancer{}
}

func (b *WeightedBalancer) Name() string {
	return WeightedBalancerType
}

func (b *WeightedBalancer) Select(eligible []*topology.Shard) (*topology.Shard, error) {
	if len(eligible) == 0 {
		return nil, sherror.New(sherror.SH_NO_ELIGIBLE_SHARD, "no shard accepts new entities")
	}

	total := 0
	for _, sh := range eligible {
		total += int(sh.EffectiveWeight())
	}

	draw := rand.Intn(total)
	for _, sh := range eligible {
		draw -= int(sh.EffectiveWeight())
		if draw < 0 {
			return sh, nil
		}
	}
	// Unreachable: every shard weighs at least one.
	return eligible[len(eligible)-1], nil
}
