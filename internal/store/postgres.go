package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-gateway/internal/events"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools satisfy
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS record_fetches (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind       TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	url        TEXT NOT NULL,
	count      INTEGER NOT NULL DEFAULT 0,
	lenient    BOOLEAN NOT NULL DEFAULT false,
	payload    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_record_fetches_key ON record_fetches(cache_key, fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_record_fetches_kind ON record_fetches(kind);
CREATE INDEX IF NOT EXISTS idx_record_fetches_fetched_at ON record_fetches(fetched_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Publish implements events.Sink. Replayed events are ignored.
func (s *PostgresStore) Publish(ctx context.Context, ev events.RecordsFetched) error {
	f := fromEvent(ev)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO record_fetches (id, kind, cache_key, url, count, lenient, payload, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		f.ID, f.Kind, f.CacheKey, f.URL, f.Count, f.Lenient, payloadOrEmpty(f.Payload), f.FetchedAt,
	)
	return eris.Wrapf(err, "postgres: insert fetch %s", f.CacheKey)
}

func (s *PostgresStore) Latest(ctx context.Context, cacheKey string) (*Fetch, error) {
	var f Fetch
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, kind, cache_key, url, count, lenient, payload, fetched_at FROM record_fetches
		 WHERE cache_key = $1 ORDER BY fetched_at DESC LIMIT 1`,
		cacheKey,
	).Scan(&f.ID, &f.Kind, &f.CacheKey, &f.URL, &f.Count, &f.Lenient, &payload, &f.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest fetch %s", cacheKey)
	}
	f.Payload = payload
	return &f, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Fetch, error) {
	query := `SELECT id, kind, cache_key, url, count, lenient, fetched_at FROM record_fetches`
	var args []any
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += ` WHERE kind = $1`
	}
	args = append(args, filter.limit(), max(filter.Offset, 0))
	if filter.Kind != "" {
		query += ` ORDER BY fetched_at DESC LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY fetched_at DESC LIMIT $1 OFFSET $2`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list fetches")
	}
	defer rows.Close()

	out := []Fetch{}
	for rows.Next() {
		var f Fetch
		if err := rows.Scan(&f.ID, &f.Kind, &f.CacheKey, &f.URL, &f.Count, &f.Lenient, &f.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fetch")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list fetches iterate")
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM record_fetches WHERE fetched_at < $1`, before.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune fetches")
	}
	return int(tag.RowsAffected()), nil
}
