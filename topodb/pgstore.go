package topodb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/shardlog"
	"github.com/shardrepo/shardrepo/pkg/statistics"
)

// PGStore keeps the topology in a single relational table, for setups that
// already run a metadata database and do not want an etcd.
type PGStore struct {
	db *sqlx.DB
}

var _ XStore = &PGStore{}

const createTopologyTable = `
CREATE TABLE IF NOT EXISTS shard_topology (
	id TEXT PRIMARY KEY,
	prefix TEXT NOT NULL UNIQUE,
	conn_string TEXT NOT NULL,
	server TEXT NOT NULL DEFAULT '',
	database TEXT NOT NULL DEFAULT '',
	schema TEXT NOT NULL DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT TRUE,
	read_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	write_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	update_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	weight BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	selectShards = `SELECT id, prefix, conn_string, server, database, schema,
	enabled, read_enabled, write_enabled, update_enabled, weight, created_at
	FROM shard_topology ORDER BY id`

	selectShardByID = `SELECT id, prefix, conn_string, server, database, schema,
	enabled, read_enabled, write_enabled, update_enabled, weight, created_at
	FROM shard_topology WHERE id = $1`

	insertShardIfAbsent = `INSERT INTO shard_topology
	(id, prefix, conn_string, server, database, schema,
	enabled, read_enabled, write_enabled, update_enabled, weight, created_at)
	VALUES (:id, :prefix, :conn_string, :server, :database, :schema,
	:enabled, :read_enabled, :write_enabled, :update_enabled, :weight, :created_at)
	ON CONFLICT (prefix) DO NOTHING`

	updateShard = `UPDATE shard_topology SET
	conn_string = :conn_string, server = :server, database = :database, schema = :schema,
	enabled = :enabled, read_enabled = :read_enabled,
	write_enabled = :write_enabled, update_enabled = :update_enabled, weight = :weight
	WHERE id = :id`

	deleteShard = `DELETE FROM shard_topology WHERE id = $1`
)

// NewPGStore opens the metadata database lazily: the DSN is validated here,
// the first connection is dialed on first use.
func NewPGStore(dsn string) (*PGStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	shardlog.Zero.Debug().
		Uint("db", shardlog.GetPointer(db)).
		Msg("pgstore: NewPGStore")

	return &PGStore{db: db}, nil
}

// EnsureSchema provisions the topology table. Idempotent, invoked by the
// seeding step.
func (q *PGStore) EnsureSchema(ctx context.Context) error {
	shardlog.Zero.Debug().Msg("pgstore: ensure schema")
	_, err := q.db.ExecContext(ctx, createTopologyTable)
	return err
}

func (q *PGStore) ListShards(ctx context.Context) ([]*ShardDescriptor, error) {
	shardlog.Zero.Debug().Msg("pgstore: list shards")
	t := time.Now()

	shards := []*ShardDescriptor{}
	if err := q.db.SelectContext(ctx, &shards, selectShards); err != nil {
		return nil, err
	}

	statistics.RecordTopologyOperation("ListShards", time.Since(t))
	return shards, nil
}

func (q *PGStore) AddShardIfAbsent(ctx context.Context, sh *ShardDescriptor) error {
	shardlog.Zero.Debug().
		Str("id", sh.ID).
		Str("prefix", sh.Prefix).
		Msg("pgstore: add shard if absent")
	t := time.Now()

	res, err := q.db.NamedExecContext(ctx, insertShardIfAbsent, sh)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		shardlog.Zero.Debug().
			Str("prefix", sh.Prefix).
			Msg("pgstore: prefix already seeded")
	}

	statistics.RecordTopologyOperation("AddShardIfAbsent", time.Since(t))
	return nil
}

// TODO : unit tests
func (q *PGStore) GetShard(ctx context.Context, id string) (*ShardDescriptor, error) {
	shardlog.Zero.Debug().Str("id", id).Msg("pgstore: get shard")
	t := time.Now()

	var sh ShardDescriptor
	if err := q.db.GetContext(ctx, &sh, selectShardByID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sherror.Newf(sherror.SH_UNKNOWN_SHARD, "shard \"%s\" not found", id)
		}
		return nil, err
	}

	statistics.RecordTopologyOperation("GetShard", time.Since(t))
	return &sh, nil
}

// TODO : unit tests
func (q *PGStore) UpdateShard(ctx context.Context, sh *ShardDescriptor) error {
	shardlog.Zero.Debug().Str("id", sh.ID).Msg("pgstore: update shard")
	t := time.Now()

	res, err := q.db.NamedExecContext(ctx, updateShard, sh)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sherror.Newf(sherror.SH_UNKNOWN_SHARD, "shard \"%s\" not found", sh.ID)
	}

	statistics.RecordTopologyOperation("UpdateShard", time.Since(t))
	return nil
}

// TODO : unit tests
func (q *PGStore) DropShard(ctx context.Context, id string) error {
	shardlog.Zero.Debug().Str("id", id).Msg("pgstore: drop shard")
	t := time.Now()

	_, err := q.db.ExecContext(ctx, deleteShard, id)

	statistics.RecordTopologyOperation("DropShard", time.Since(t))
	return err
}

func (q *PGStore) Close() error {
	return q.db.Close()
}
