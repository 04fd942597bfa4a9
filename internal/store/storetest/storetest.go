// Package storetest opens throwaway databases carrying the full schema, for
// repository and service tests.
package storetest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/pocketbank/internal/store/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

var gooseMu sync.Mutex

// NewDB returns a migrated database in a temp dir, closed on cleanup.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlx.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db.DB, "."))

	return db
}

// InsertUser adds a bare user row.
func InsertUser(t testing.TB, db *sqlx.DB, id, email string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO users (id, email, name, password, created_at) VALUES (?, ?, '', 'aa:bb', 0)`, id, email)
	require.NoError(t, err)
}

// InsertAccount adds an account row for an existing user.
func InsertAccount(t testing.TB, db *sqlx.DB, userID, accountNumber string, balance float64) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO accounts (id, user_id, account_number, agency, owner_name, owner_email, balance, created_at)
		VALUES (?, ?, ?, '0001', 'Owner', 'owner@example.com', ?, 0)`,
		"acc-"+accountNumber, userID, accountNumber, balance)
	require.NoError(t, err)
}
