package datashard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shardrepo/shardrepo/pkg/models/entity"
	"github.com/shardrepo/shardrepo/pkg/models/sherror"
	"github.com/shardrepo/shardrepo/pkg/models/topology"
	"github.com/shardrepo/shardrepo/pkg/statistics"
)

// Row is the single-row scan surface shared by pgx rows and result
// sets.
type Row interface {
	Scan(dest ...any) error
}

// Mapper binds an entity type to its relational shape. Columns returns
// the full column list with the entity key column first; Args returns
// the values in the same order.
type Mapper[T entity.Sharded] interface {
	Table() string
	Columns() []string
	Args(e T) []any
	Scan(row Row) (T, error)
}

// Query is a per-shard selection. Where and OrderBy are SQL fragments
// over the mapper's columns; Args fills Where placeholders.
type Query struct {
	Where   string
	Args    []any
	OrderBy string
	Limit   int
}

// Session runs entity operations against a single shard.
type Session[T entity.Sharded] interface {
	Insert(ctx context.Context, e T) error
	GetByKey(ctx context.Context, key string) (T, error)
	Update(ctx context.Context, e T) error
	Delete(ctx context.Context, key string) error
	Select(ctx context.Context, q Query) ([]T, error)

	ShardID() string
}

// Factory hands out sessions shard by shard. Implementations own the
// underlying connections; sessions stay cheap to create.
type Factory[T entity.Sharded] interface {
	SessionFor(ctx context.Context, sh *topology.Shard) (Session[T], error)
	Close() error
}

// PGSession is a Session over one PostgreSQL shard. SQL is built from
// the mapper's column list, so one mapper serves every shard.
type PGSession[T entity.Sharded] struct {
	pool   *pgxpool.Pool
	mapper Mapper[T]
	shard  *topology.Shard
}

func (s *PGSession[T]) ShardID() string {
	return s.shard.ID
}

// table returns the schema-qualified relation name for this shard.
func (s *PGSession[T]) table() string {
	if s.shard.Schema != "" {
		return s.shard.Schema + "." + s.mapper.Table()
	}
	return s.mapper.Table()
}

func (s *PGSession[T]) keyColumn() string {
	return s.mapper.Columns()[0]
}

func (s *PGSession[T]) Insert(ctx context.Context, e T) error {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	q := insertSQL(s.table(), s.mapper.Columns())
	_, err := s.pool.Exec(ctx, q, s.mapper.Args(e)...)
	return err
}

func (s *PGSession[T]) GetByKey(ctx context.Context, key string) (T, error) {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	q := selectByKeySQL(s.table(), s.mapper.Columns())
	e, err := s.mapper.Scan(s.pool.QueryRow(ctx, q, key))
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, sherror.Newf(sherror.SH_NOT_FOUND, "no entity with key %s", key)
	}
	return e, err
}

func (s *PGSession[T]) Update(ctx context.Context, e T) error {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	q := updateSQL(s.table(), s.mapper.Columns())
	tag, err := s.pool.Exec(ctx, q, s.mapper.Args(e)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sherror.Newf(sherror.SH_NOT_FOUND, "no entity with key %s", e.ShardKey())
	}
	return nil
}

func (s *PGSession[T]) Delete(ctx context.Context, key string) error {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	q := deleteSQL(s.table(), s.keyColumn())
	tag, err := s.pool.Exec(ctx, q, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return sherror.Newf(sherror.SH_NOT_FOUND, "no entity with key %s", key)
	}
	return nil
}

func (s *PGSession[T]) Select(ctx context.Context, q Query) ([]T, error) {
	t := time.Now()
	defer func() { statistics.RecordShardOperation(s.shard.ID, time.Since(t)) }()

	rows, err := s.pool.Query(ctx, selectSQL(s.table(), s.mapper.Columns(), q), q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []T
	for rows.Next() {
		e, err := s.mapper.Scan(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, rows.Err()
}

func insertSQL(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

func selectByKeySQL(table string, cols []string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(cols, ", "), table, cols[0])
}

// updateSQL rewrites every non-key column, keyed on the first column.
// Placeholders line up with Mapper.Args.
func updateSQL(table string, cols []string) string {
	assignments := make([]string, 0, len(cols)-1)
	for i, col := range cols[1:] {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, i+2))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $1",
		table, strings.Join(assignments, ", "), cols[0])
}

func deleteSQL(table string, keyCol string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, keyCol)
}

func selectSQL(table string, cols []string, q Query) string {
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	if q.Where != "" {
		sql += " WHERE " + q.Where
	}
	if q.OrderBy != "" {
		sql += " ORDER BY " + q.OrderBy
	}
	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return sql
}
