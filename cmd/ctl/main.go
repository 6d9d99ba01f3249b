package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shardrepo/shardrepo/pkg"
	"github.com/shardrepo/shardrepo/pkg/config"
	"github.com/shardrepo/shardrepo/pkg/models/locator"
	"github.com/shardrepo/shardrepo/pkg/seed"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/topodb"
)

var (
	cfgPath string

	deriveWidth int
	deriveFn    string

	shardID         string
	shardPrefix     string
	shardConnString string
	shardServer     string
	shardDatabase   string
	shardSchema     string
	shardWeight     uint32
)

var rootCmd = &cobra.Command{
	Use:   "shardrepo-ctl --config `path-to-config`",
	Short: "shardrepo-ctl",
	Long:  "Topology administration for sharded repositories",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func openStore() (topodb.XStore, error) {
	if err := config.Load(cfgPath); err != nil {
		return nil, err
	}
	cfg := config.RepositoryConfig()
	shardlog.UpdateZeroLogLevel(cfg.LogLevel)
	return topodb.NewXStore(cfg.StoreType, cfg.StoreAddr)
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "register configured shards in the topology store",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		cfg := config.RepositoryConfig()
		descs := make([]*topodb.ShardDescriptor, 0, len(cfg.Shards))
		for _, sh := range cfg.Shards {
			descs = append(descs, sh.ToDescriptor())
		}

		if err := seed.Run(context.Background(), db, seed.Opts{
			Descriptors:   descs,
			LocatorLength: cfg.LocatorLength,
		}); err != nil {
			return errors.Wrap(err, "failed to seed topology")
		}
		fmt.Printf("seeded %d shards\n", len(descs))
		return nil
	},
}

var listShardsCmd = &cobra.Command{
	Use:   "list-shards",
	Short: "print every shard registered in the topology store",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		shards, err := db.ListShards(context.Background())
		if err != nil {
			return errors.Wrap(err, "failed to list shards")
		}

		out, err := json.MarshalIndent(shards, "", "\t")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var addShardCmd = &cobra.Command{
	Use:   "add-shard --id `id` --prefix `locator` --conn-string `dsn`",
	Short: "register one shard, a no-op when its prefix is taken",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		desc := topodb.NewShardDescriptor(shardID, shardPrefix, shardConnString)
		desc.Server = shardServer
		desc.Database = shardDatabase
		desc.Schema = shardSchema
		desc.Weight = shardWeight

		if err := seed.Validate([]*topodb.ShardDescriptor{desc}, config.RepositoryConfig().LocatorLength); err != nil {
			return err
		}
		if err := db.AddShardIfAbsent(context.Background(), desc); err != nil {
			return errors.Wrap(err, "failed to add shard")
		}
		return nil
	},
}

var dropShardCmd = &cobra.Command{
	Use:   "drop-shard `id`",
	Short: "remove one shard from the topology store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.DropShard(context.Background(), args[0]); err != nil {
			return errors.Wrap(err, "failed to drop shard")
		}
		return nil
	},
}

var setGateCmd = &cobra.Command{
	Use:   "set-gate `id` `enabled|read|write|update` `on|off`",
	Short: "open or close one capability gate on a shard",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var open bool
		switch args[2] {
		case "on":
			open = true
		case "off":
			open = false
		default:
			return fmt.Errorf("gate state %s is invalid, use on or off", args[2])
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx := context.Background()
		desc, err := db.GetShard(ctx, args[0])
		if err != nil {
			return errors.Wrap(err, "failed to get shard")
		}

		switch args[1] {
		case "enabled":
			desc.Enabled = open
		case "read":
			desc.ReadEnabled = open
		case "write":
			desc.WriteEnabled = open
		case "update":
			desc.UpdateEnabled = open
		default:
			return fmt.Errorf("gate %s is invalid, use enabled, read, write or update", args[1])
		}

		if err := db.UpdateShard(ctx, desc); err != nil {
			return errors.Wrap(err, "failed to update shard")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the shardrepo-ctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shardrepo-ctl %s\n", pkg.ShardRepoVersionRevision)
	},
}

var deriveCmd = &cobra.Command{
	Use:   "derive `shard-name`",
	Short: "derive a locator prefix from a shard name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		df, err := locator.DeriveFunctionByName(deriveFn)
		if err != nil {
			return err
		}
		prefix, err := locator.DerivePrefix(args[0], deriveWidth, df)
		if err != nil {
			return err
		}
		fmt.Println(prefix)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "/etc/shardrepo/config.yaml", "path to config file")

	addShardCmd.Flags().StringVar(&shardID, "id", "", "shard id")
	addShardCmd.Flags().StringVar(&shardPrefix, "prefix", "", "locator prefix")
	addShardCmd.Flags().StringVar(&shardConnString, "conn-string", "", "shard conn string")
	addShardCmd.Flags().StringVar(&shardServer, "server", "", "shard server host")
	addShardCmd.Flags().StringVar(&shardDatabase, "database", "", "shard database")
	addShardCmd.Flags().StringVar(&shardSchema, "schema", "", "shard schema")
	addShardCmd.Flags().Uint32Var(&shardWeight, "weight", 0, "placement weight")

	deriveCmd.Flags().IntVar(&deriveWidth, "width", 2, "locator prefix width")
	deriveCmd.Flags().StringVar(&deriveFn, "derive", "murmur", "derive function: ident, murmur or city")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(listShardsCmd)
	rootCmd.AddCommand(addShardCmd)
	rootCmd.AddCommand(dropShardCmd)
	rootCmd.AddCommand(setGateCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		shardlog.Zero.Error().Err(err).Msg("")
		os.Exit(1)
	}
}

func main() {
	Execute()
}
