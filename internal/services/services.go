// Package services implements the three ledgers on top of the local store:
// identity (users, session, bank account), transactions and cards.
//
// The same interfaces are implemented by remote.Client, so callers can swap
// the local ledger for a server without changes.
package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/dmitrijs2005/pocketbank/internal/throttle"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
)

// IdentityLedger signs users in and out and provisions their bank account.
type IdentityLedger interface {
	SignUp(ctx context.Context, creds models.Credentials) (*models.User, error)
	SignIn(ctx context.Context, creds models.Credentials) (*models.User, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns nil when nobody is signed in.
	CurrentUser(ctx context.Context) *models.User
	// OnAuthStateChange calls fn with the current user right away and on
	// every later change, until the returned function is called.
	OnAuthStateChange(ctx context.Context, fn AuthListener) (unsubscribe func())
	UpdateProfile(ctx context.Context, p models.ProfileUpdate) (*models.User, error)
	CreateAccount(ctx context.Context, p models.CreateAccountParams) (*models.Account, error)
	AccountDetails(ctx context.Context) (*models.Account, error)
}

// TransactionLedger is the only way to change an account balance.
type TransactionLedger interface {
	CreateTransaction(ctx context.Context, p models.CreateTransactionParams) (*models.Transaction, error)
	Transactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error)
	YearlyTransactions(ctx context.Context, year int) (*models.YearlyStatement, error)
	AccountStatement(ctx context.Context, p models.StatementParams) (*models.Statement, error)
}

// CardLedger issues and retires payment cards.
type CardLedger interface {
	CreateCard(ctx context.Context, p models.CreateCardParams) (*models.Card, error)
	ListCards(ctx context.Context, accountNumber string) ([]models.Card, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	DeleteCard(ctx context.Context, id string) error
	CardTransactions(ctx context.Context, cardID string, limit int) ([]models.Transaction, error)
}

type Ledger interface {
	IdentityLedger
	TransactionLedger
	CardLedger
}

// DBProvider hands out the shared database handle. *store.Store satisfies it.
type DBProvider interface {
	DB(ctx context.Context) (*sqlx.DB, error)
}

// Throttle guards sign-in. *throttle.Limiter satisfies it.
type Throttle interface {
	Check(ctx context.Context, id string) throttle.Status
	RecordAttempt(ctx context.Context, id string)
	Reset(ctx context.Context, id string)
}

// Deps bundles what the ledgers are built from.
type Deps struct {
	Store    DBProvider
	Repos    repomanager.RepositoryManager
	Sessions SessionStore
	Throttle Throttle
	Logger   logging.Logger
	// Location sets month and year boundaries of statements. Defaults to UTC.
	Location *time.Location
	// Clock defaults to time.Now.
	Clock func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	return d
}

// Local is the on-device Ledger.
type Local struct {
	*IdentityService
	*TransactionService
	*CardService
}

var _ Ledger = (*Local)(nil)

func NewLocal(d Deps) *Local {
	d = d.withDefaults()
	v := newValidator()
	return &Local{
		IdentityService:    newIdentityService(d, v),
		TransactionService: newTransactionService(d, v),
		CardService:        newCardService(d, v),
	}
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
