// Package repomanager wires the SQLite repository constructors together and
// exposes the schema migration hook (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/accounts"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/cards"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/metadata"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/transactions"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// runs against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Cards(db dbx.DBTX) cards.Repository
	Transactions(db dbx.DBTX) transactions.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}
