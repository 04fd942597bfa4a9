package metadata

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pocketbank/internal/dbx"

	_ "modernc.org/sqlite"
)

func openKV(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_SetGetDelete(t *testing.T) {
	r := NewSQLiteRepository(openKV(t))
	ctx := context.Background()

	v, err := r.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Nil(t, v, "missing key")

	require.NoError(t, r.Set(ctx, "accessToken", []byte("v1")))
	require.NoError(t, r.Set(ctx, "accessToken", []byte("v2")))
	v, err = r.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	require.NoError(t, r.Delete(ctx, "accessToken"))
	require.NoError(t, r.Delete(ctx, "accessToken"))
	v, err = r.Get(ctx, "accessToken")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLiteRepository_EmptyValueIsNotMissing(t *testing.T) {
	r := NewSQLiteRepository(openKV(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "flag", nil))

	v, err := r.Get(ctx, "flag")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Empty(t, v)
}

func TestSQLiteRepository_KeysByPrefix(t *testing.T) {
	r := NewSQLiteRepository(openKV(t))
	ctx := context.Background()

	require.NoError(t, r.SetMany(ctx, map[string][]byte{
		"rate_limit:ann@example.com": []byte("{}"),
		"rate_limit:bob@example.com": []byte("{}"),
		"rateXlimit:odd":             []byte("{}"),
		"currentSession":             []byte("{}"),
		"100%":                       []byte("x"),
		"100a":                       []byte("x"),
	}))

	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"100%", "100a", "currentSession", "rateXlimit:odd", "rate_limit:ann@example.com", "rate_limit:bob@example.com"}},
		{"rate_limit:", []string{"rate_limit:ann@example.com", "rate_limit:bob@example.com"}},
		{"100%", []string{"100%"}},
		{"nothing", []string{}},
		{"RATE_LIMIT:", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			keys, err := r.Keys(ctx, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestSQLiteRepository_BulkInsideTransaction(t *testing.T) {
	db := openKV(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		if err := r.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	r := NewSQLiteRepository(db)
	keys, err := r.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys, "rolled back")

	require.NoError(t, r.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")}))
	require.NoError(t, r.DeleteMany(ctx, []string{"a", "c", "absent"}))
	require.NoError(t, r.DeleteMany(ctx, nil))

	keys, err = r.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func newMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewSQLiteRepository(sqlx.NewDb(raw, "sqlmock")), mock
}

func TestSQLiteRepository_WrapsDriverErrors(t *testing.T) {
	ctx := context.Background()
	driverErr := errors.New("disk I/O error")

	tests := []struct {
		name   string
		expect func(m sqlmock.Sqlmock)
		call   func(r *SQLiteRepository) error
	}{
		{
			name: "get",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM metadata WHERE key = ?`)).WillReturnError(driverErr)
			},
			call: func(r *SQLiteRepository) error { _, err := r.Get(ctx, "k"); return err },
		},
		{
			name: "set",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).WillReturnError(driverErr)
			},
			call: func(r *SQLiteRepository) error { return r.Set(ctx, "k", []byte("v")) },
		},
		{
			name: "delete",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(`DELETE FROM metadata WHERE key = ?`)).WillReturnError(driverErr)
			},
			call: func(r *SQLiteRepository) error { return r.Delete(ctx, "k") },
		},
		{
			name: "keys",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(`SELECT key FROM metadata`)).WillReturnError(driverErr)
			},
			call: func(r *SQLiteRepository) error { _, err := r.Keys(ctx, "x"); return err },
		},
		{
			name: "set many stops at first failure",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).WithArgs("a", []byte("1")).
					WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).WithArgs("b", []byte("2")).
					WillReturnError(driverErr)
			},
			call: func(r *SQLiteRepository) error {
				return r.SetMany(ctx, map[string][]byte{"b": []byte("2"), "a": []byte("1")})
			},
		},
		{
			name: "delete many",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(`DELETE FROM metadata WHERE key IN (?, ?)`)).
					WithArgs("a", "b").WillReturnError(driverErr)
			},
			call: func(r *SQLiteRepository) error { return r.DeleteMany(ctx, []string{"a", "b"}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newMock(t)
			tt.expect(mock)

			err := tt.call(r)
			require.ErrorIs(t, err, driverErr)
			assert.Contains(t, err.Error(), "metadata")
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
