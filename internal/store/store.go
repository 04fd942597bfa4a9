// Package store owns the single local database handle. The handle is opened
// lazily by the first caller, which also applies the schema and any pending
// one-time migrations. A failed initialization is remembered, so later calls
// fail fast instead of running against a partial schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Migrator applies the schema. repomanager.RepositoryManager satisfies it.
type Migrator interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
}

type Store struct {
	path         string
	maxOpenConns int
	migrator     Migrator
	logger       logging.Logger

	mu      sync.Mutex
	db      *sqlx.DB
	initErr error
}

type Option func(*Store)

// WithMaxOpenConns caps the pool. SQLite allows one writer at a time;
// extra connections only help concurrent readers.
func WithMaxOpenConns(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New prepares a Store for the database at path. Nothing is opened until
// the first call to DB.
func New(path string, m Migrator, opts ...Option) *Store {
	s := &Store{
		path:         path,
		maxOpenConns: 1,
		migrator:     m,
		logger:       logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("module", "store")
	return s
}

// openFn is a seam for tests to count or fail opens.
var openFn = func(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DB returns the shared handle, opening and migrating the database on the
// first call. Concurrent first callers wait for a single initialization.
func (s *Store) DB(ctx context.Context) (*sqlx.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initErr != nil {
		return nil, s.initErr
	}
	if s.db != nil {
		return s.db, nil
	}

	// initialization must not be abandoned halfway by a cancelled caller
	ctx = context.WithoutCancel(ctx)

	db, err := openFn(ctx, buildDSN(s.path))
	if err != nil {
		s.initErr = common.Storage("open database", err)
		s.logger.Error(ctx, "database open failed", "path", s.path, "error", err)
		return nil, s.initErr
	}

	if err := s.migrator.RunMigrations(ctx, db.DB); err != nil {
		_ = db.Close()
		s.initErr = common.Storage("apply schema", err)
		s.logger.Error(ctx, "schema migration failed", "path", s.path, "error", err)
		return nil, s.initErr
	}

	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxOpenConns)

	s.logger.Debug(ctx, "database ready", "path", s.path)
	s.db = db
	return db, nil
}

// Close releases the handle. A later DB call opens it again, and a failed
// initialization may then be retried.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initErr = nil
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ClearAllData deletes every ledger row in dependency order inside one
// transaction. Key-value metadata is kept.
func (s *Store) ClearAllData(ctx context.Context) error {
	db, err := s.DB(ctx)
	if err != nil {
		return err
	}
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, table := range []string{"transactions", "cards", "accounts", "users"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	return common.Storage("clear all data", err)
}

// buildDSN turns a file path (or a ready "file:" URI) into a modernc DSN
// with foreign keys on, a busy timeout, and write-locking transactions.
func buildDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
}
