package seed

import (
	"context"
	"fmt"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/topodb"
)

type Opts struct {
	Descriptors   []*topodb.ShardDescriptor
	LocatorLength int

	// Provision prepares a shard's storage after registration, e.g.
	// creating the entity table. It runs on every seeding pass, so it
	// has to be idempotent.
	Provision func(ctx context.Context, desc *topodb.ShardDescriptor) error
}

// Run registers the configured shards with the topology store.
// Registration is keyed on the locator prefix: descriptors whose
// prefix is already present are left untouched, so rerunning a
// deployment never resets operator changes.
func Run(ctx context.Context, store topodb.Store, opts Opts) error {
	if err := Validate(opts.Descriptors, opts.LocatorLength); err != nil {
		return err
	}

	for _, desc := range opts.Descriptors {
		if err := store.AddShardIfAbsent(ctx, desc); err != nil {
			return fmt.Errorf("seed shard %s: %w", desc.ID, err)
		}

		shardlog.Zero.Debug().
			Str("shard", desc.ID).
			Str("prefix", desc.Prefix).
			Msg("seed: shard registered")

		if opts.Provision != nil {
			if err := opts.Provision(ctx, desc); err != nil {
				return fmt.Errorf("provision shard %s: %w", desc.ID, err)
			}
		}
	}
	return nil
}

// Validate rejects descriptor sets that could not route: prefixes off
// the configured width, duplicate prefixes, missing identity.
func Validate(descs []*topodb.ShardDescriptor, width int) error {
	seen := map[string]string{}
	for _, desc := range descs {
		if desc.ID == "" {
			return sherror.New(sherror.SH_INVALID_REQUEST, "shard id is empty")
		}
		if desc.ConnString == "" {
			return sherror.Newf(sherror.SH_INVALID_REQUEST, "shard %s has no conn string", desc.ID)
		}
		if len(desc.Prefix) != width {
			return sherror.Newf(sherror.SH_INVALID_REQUEST,
				"shard %s prefix \"%s\" does not match locator length %d", desc.ID, desc.Prefix, width)
		}
		if prev, ok := seen[desc.Prefix]; ok {
			return sherror.Newf(sherror.SH_INVALID_REQUEST,
				"shards %s and %s share locator prefix \"%s\"", prev, desc.ID, desc.Prefix)
		}
		seen[desc.Prefix] = desc.ID
	}
	return nil
}
