package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/shardrepo/shardrepo/pkg/datashard"
	"github.com/shardrepo/shardrepo/pkg/seed"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/pkg/statistics"
	"github.com/shardrepo/shardrepo/repository"
	"github.com/shardrepo/shardrepo/topodb"
)

// order is the synthetic entity the workload inserts.
type order struct {
	Key    string
	Amount int
}

func (o *order) ShardKey() string       { return o.Key }
func (o *order) SetShardKey(key string) { o.Key = key }

var (
	par    int
	count  int
	shards int
)

func worker(rep *repository.ShardedRepository[*order], n int, seedNum int64, wg *sync.WaitGroup) {
	defer wg.Done()
	ctx := context.TODO()
	r := rand.New(rand.NewSource(seedNum))

	for i := 0; i < n; i++ {
		e := &order{Amount: r.Intn(1000)}
		if err := rep.Insert(ctx, e); err != nil {
			panic(err)
		}

		got, err := rep.GetByKey(ctx, e.Key)
		if err != nil {
			panic(err)
		}
		if got.Amount != e.Amount {
			panic(fmt.Errorf("entity %s read back amount %d, inserted %d", e.Key, got.Amount, e.Amount))
		}

		switch r.Intn(10) {
		case 0:
			got.Amount = r.Intn(1000)
			if err := rep.Update(ctx, got); err != nil {
				panic(err)
			}
		case 1:
			if err := rep.Delete(ctx, e.Key); err != nil {
				panic(err)
			}
		}

		if i%100 == 99 {
			res, err := rep.QueryAcrossShards(ctx, datashard.Query{Limit: 10})
			if err != nil {
				panic(err)
			}
			if len(res.Failures) != 0 {
				panic(fmt.Errorf("fan-out hit %d failing shards", len(res.Failures)))
			}
		}
	}
}

var cmd = &cobra.Command{
	Use:   "shardrepo-stress -p `parallel`",
	Short: "shardrepo stress test tool",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if shards <= 0 || shards > 99 {
			return fmt.Errorf("shard count %d is out of range, use 1 to 99", shards)
		}

		ctx := context.TODO()

		db, err := topodb.NewMemStore("")
		if err != nil {
			return err
		}

		descs := make([]*topodb.ShardDescriptor, 0, shards)
		for i := 0; i < shards; i++ {
			id := fmt.Sprintf("sh%d", i+1)
			descs = append(descs, topodb.NewShardDescriptor(id, fmt.Sprintf("%02d", i+1), "mem://"+id))
		}
		if err := seed.Run(ctx, db, seed.Opts{
			Descriptors:   descs,
			LocatorLength: 2,
		}); err != nil {
			return err
		}

		fac := datashard.NewMemFactory[*order]()
		rep, err := repository.NewShardedRepository[*order](db, fac, repository.Opts{
			LocatorLength: 2,
			CacheEnabled:  true,
			CacheTTL:      time.Minute,
		})
		if err != nil {
			return err
		}

		shardlog.Zero.Info().
			Int("parallel", par).
			Int("count", count).
			Int("shards", shards).
			Msg("stress: starting workload")

		t := time.Now()
		wg := &sync.WaitGroup{}
		for i := 0; i < par; i++ {
			wg.Add(1)
			go worker(rep, count, 31337+int64(i), wg)
		}
		wg.Wait()

		fmt.Printf("%d workers x %d entities in %s\n", par, count, time.Since(t))
		for _, desc := range descs {
			st := statistics.GetTimeStatistics(statistics.Shard, desc.ID)
			fmt.Printf("%s: %d entities, op p50 %.3f ms, p99 %.3f ms\n",
				desc.ID, len(fac.Keys(desc.ID)), st.Quantile(0.5), st.Quantile(0.99))
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cmd.PersistentFlags().IntVarP(&par, "parallel", "p", 10, "# of workers")
	cmd.PersistentFlags().IntVarP(&count, "count", "n", 1000, "# of entities per worker")
	cmd.PersistentFlags().IntVar(&shards, "shards", 3, "# of in-memory shards")
}

func main() {
	if err := cmd.Execute(); err != nil {
		shardlog.Zero.Error().Err(err).Msg("")
		os.Exit(1)
	}
}
