package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS record_fetches`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Publish(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ev := fetchedAt("violation-by-id", "violation-by-id:1034304", 2, t0)

	mock.ExpectExec(`INSERT INTO record_fetches .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(ev.ID.String(), "violation-by-id", "violation-by-id:1034304", ev.URL, 2, false,
			pgxmock.AnyArg(), t0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Publish(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PublishError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO record_fetches`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := s.Publish(context.Background(), fetchedAt("k", "key", 1, t0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert fetch key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Latest(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "kind", "cache_key", "url", "count", "lenient", "payload", "fetched_at"}).
		AddRow("id-1", "tax-bill", "tax-bill:1007930036", "u", 1, false, []byte(`[{"bbl":"1007930036"}]`), t0)
	mock.ExpectQuery(`SELECT id, kind, cache_key, url, count, lenient, payload, fetched_at FROM record_fetches`).
		WithArgs("tax-bill:1007930036").
		WillReturnRows(rows)

	got, err := s.Latest(context.Background(), "tax-bill:1007930036")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.ID)
	assert.Equal(t, 1, got.Count)
	assert.JSONEq(t, `[{"bbl":"1007930036"}]`, string(got.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Latest_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM record_fetches`).
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.Latest(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByKind(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "kind", "cache_key", "url", "count", "lenient", "fetched_at"}).
		AddRow("b", "permit-by-id", "permit-by-id:2", "u", 4, true, t0.Add(time.Minute)).
		AddRow("a", "permit-by-id", "permit-by-id:1", "u", 2, false, t0)
	mock.ExpectQuery(`WHERE kind = \$1 ORDER BY fetched_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("permit-by-id", 10, 0).
		WillReturnRows(rows)

	got, err := s.List(context.Background(), Filter{Kind: "permit-by-id", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.True(t, got[0].Lenient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListDefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`ORDER BY fetched_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(DefaultListLimit, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "kind", "cache_key", "url", "count", "lenient", "fetched_at"}))

	got, err := s.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Prune(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM record_fetches WHERE fetched_at < \$1`).
		WithArgs(t0).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := s.Prune(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseWithoutPool(t *testing.T) {
	s, _ := newMockPostgresStore(t)
	assert.NoError(t, s.Close())
}
