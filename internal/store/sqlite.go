package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/compliance-gateway/internal/events"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS record_fetches (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	url        TEXT NOT NULL,
	count      INTEGER NOT NULL DEFAULT 0,
	lenient    INTEGER NOT NULL DEFAULT 0,
	payload    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_record_fetches_key ON record_fetches(cache_key, fetched_at);
CREATE INDEX IF NOT EXISTS idx_record_fetches_kind ON record_fetches(kind);
CREATE INDEX IF NOT EXISTS idx_record_fetches_fetched_at ON record_fetches(fetched_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Publish implements events.Sink.
func (s *SQLiteStore) Publish(ctx context.Context, ev events.RecordsFetched) error {
	f := fromEvent(ev)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO record_fetches (id, kind, cache_key, url, count, lenient, payload, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Kind, f.CacheKey, f.URL, f.Count, f.Lenient, string(payloadOrEmpty(f.Payload)), f.FetchedAt,
	)
	return eris.Wrapf(err, "sqlite: insert fetch %s", f.CacheKey)
}

func (s *SQLiteStore) Latest(ctx context.Context, cacheKey string) (*Fetch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, cache_key, url, count, lenient, payload, fetched_at FROM record_fetches
		 WHERE cache_key = ? ORDER BY fetched_at DESC LIMIT 1`,
		cacheKey,
	)

	var f Fetch
	var payload string
	err := row.Scan(&f.ID, &f.Kind, &f.CacheKey, &f.URL, &f.Count, &f.Lenient, &payload, &f.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest fetch")
	}
	f.Payload = []byte(payload)
	return &f, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Fetch, error) {
	query := `SELECT id, kind, cache_key, url, count, lenient, fetched_at FROM record_fetches WHERE 1=1`
	var args []any

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	query += ` ORDER BY fetched_at DESC LIMIT ?`
	args = append(args, filter.limit())
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list fetches")
	}
	defer rows.Close() //nolint:errcheck

	out := []Fetch{}
	for rows.Next() {
		var f Fetch
		if err := rows.Scan(&f.ID, &f.Kind, &f.CacheKey, &f.URL, &f.Count, &f.Lenient, &f.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fetch")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list fetches iterate")
}

func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM record_fetches WHERE fetched_at < ?`, before.UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune fetches")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
