package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/transactions"
	"github.com/go-playground/validator/v10"
	"github.com/segmentio/ksuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxClockSkew is how far past the clock a caller-supplied timestamp
	// may lie.
	MaxClockSkew = time.Minute
)

// TransactionService records deposits and withdrawals and builds
// statements from them.
type TransactionService struct {
	store    DBProvider
	repos    repomanager.RepositoryManager
	sessions *sessions
	locks    *keyLock
	validate *validator.Validate
	logger   logging.Logger
	loc      *time.Location
	now      func() time.Time
}

func newTransactionService(d Deps, v *validator.Validate) *TransactionService {
	l := d.Logger.With("module", "transactions")
	return &TransactionService{
		store:    d.Store,
		repos:    d.Repos,
		sessions: &sessions{store: d.Sessions, logger: l},
		locks:    newKeyLock(),
		validate: v,
		logger:   l,
		loc:      d.Location,
		now:      d.Clock,
	}
}

// sessionAccount returns the account number of the caller, or "" when
// nobody is signed in or the user has no account yet.
func (s *TransactionService) sessionAccount(ctx context.Context) (string, error) {
	u := s.sessions.user(ctx)
	if u == nil {
		return "", nil
	}
	db, err := s.store.DB(ctx)
	if err != nil {
		return "", err
	}
	a, err := s.repos.Accounts(db).GetByUserID(ctx, u.ID)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", common.Storage("get account", err)
	}
	return a.AccountNumber, nil
}

// CreateTransaction applies one deposit or withdrawal. The row and the new
// balance are written in one database transaction, serialized per account.
// A withdrawal larger than the balance fails with ErrInsufficientFunds and
// writes nothing. Once the write starts, cancelling ctx does not stop it.
func (s *TransactionService) CreateTransaction(ctx context.Context, p models.CreateTransactionParams) (*models.Transaction, error) {
	if !p.Amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}
	p.Category = sanitizeText(p.Category)
	if err := s.validate.Struct(p); err != nil {
		return nil, invalid(err)
	}

	accountNumber := p.AccountNumber
	if accountNumber == "" {
		if s.sessions.user(ctx) == nil {
			return nil, common.ErrUnauthenticated
		}
		n, err := s.sessionAccount(ctx)
		if err != nil {
			return nil, err
		}
		if n == "" {
			return nil, common.ErrNotFound
		}
		accountNumber = n
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	ts := p.Timestamp.UTC().Truncate(time.Millisecond)
	if p.Timestamp.IsZero() {
		ts = now
	}
	if ts.After(now.Add(MaxClockSkew)) {
		return nil, fmt.Errorf("%w: Timestamp must not be in the future", common.ErrValidation)
	}

	var category *string
	if p.Category != "" {
		c := p.Category
		category = &c
	}

	ctx = context.WithoutCancel(ctx)

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(accountNumber)
	defer unlock()

	var created *models.Transaction
	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		accounts := s.repos.Accounts(tx)
		txs := s.repos.Transactions(tx)

		a, err := accounts.GetByNumber(ctx, accountNumber)
		if err != nil {
			return err
		}

		// NewBalance is the balance at insertion, also for past-dated rows.
		balance := a.Balance.Add(p.Type.Signed(p.Amount))
		if balance.IsNegative() {
			return common.ErrInsufficientFunds
		}

		t := &models.Transaction{
			ID:            ksuid.New().String(),
			AccountNumber: accountNumber,
			Amount:        p.Amount,
			Type:          p.Type,
			Timestamp:     ts,
			NewBalance:    balance,
			Category:      category,
			CreatedAt:     now,
		}
		if err := txs.Create(ctx, t); err != nil {
			return err
		}
		if err := accounts.UpdateBalance(ctx, accountNumber, balance); err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return nil, err
		}
		return nil, common.Storage("create transaction", err)
	}

	s.logger.Info(ctx, "transaction recorded",
		"id", created.ID, "type", string(created.Type), "amount", created.Amount.String())
	return created, nil
}

// resolveAccount picks the explicit account or the caller's one.
func (s *TransactionService) resolveAccount(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	return s.sessionAccount(ctx)
}

// Transactions lists the transactions of an account, newest first. Without
// an account to resolve, the list is empty.
func (s *TransactionService) Transactions(ctx context.Context, q models.TransactionQuery) ([]models.Transaction, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, fmt.Errorf("%w: Type must be DEPOSIT or WITHDRAWAL", common.ErrValidation)
	}
	accountNumber, err := s.resolveAccount(ctx, q.AccountNumber)
	if err != nil {
		return nil, err
	}
	if accountNumber == "" {
		return []models.Transaction{}, nil
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Transactions(db).List(ctx, transactions.Filter{
		AccountNumber: accountNumber,
		Type:          q.Type,
	})
	if err != nil {
		return nil, common.Storage("list transactions", err)
	}
	return list, nil
}

// YearlyTransactions groups the caller's transactions of year by month.
// Only months with transactions are returned, in calendar order; each month
// is newest first. The window runs through Dec 31 23:59:59.999 in the
// configured location.
func (s *TransactionService) YearlyTransactions(ctx context.Context, year int) (*models.YearlyStatement, error) {
	out := &models.YearlyStatement{Year: year, Months: []models.MonthlyTransactions{}}

	accountNumber, err := s.sessionAccount(ctx)
	if err != nil {
		return nil, err
	}
	if accountNumber == "" {
		return out, nil
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Transactions(db).List(ctx, transactions.Filter{
		AccountNumber: accountNumber,
		From:          time.Date(year, time.January, 1, 0, 0, 0, 0, s.loc),
		To:            time.Date(year+1, time.January, 1, 0, 0, 0, 0, s.loc),
	})
	if err != nil {
		return nil, common.Storage("list transactions", err)
	}

	var byMonth [13][]models.Transaction
	for _, t := range list {
		m := t.Timestamp.In(s.loc).Month()
		byMonth[m] = append(byMonth[m], t)
	}
	for m := time.January; m <= time.December; m++ {
		if len(byMonth[m]) > 0 {
			out.Months = append(out.Months, models.MonthlyTransactions{Month: m, Transactions: byMonth[m]})
		}
	}
	return out, nil
}

// AccountStatement returns one page of the caller's transactions. HasMore
// is found by reading one row past the page.
func (s *TransactionService) AccountStatement(ctx context.Context, p models.StatementParams) (*models.Statement, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 || p.PageSize < 1 || p.PageSize > MaxPageSize || p.Page > math.MaxInt/p.PageSize {
		return nil, common.ErrInvalidPageParams
	}
	if p.Type != "" && !p.Type.Valid() {
		return nil, fmt.Errorf("%w: Type must be DEPOSIT or WITHDRAWAL", common.ErrValidation)
	}

	if s.sessions.user(ctx) == nil {
		return nil, common.ErrUnauthenticated
	}
	accountNumber, err := s.sessionAccount(ctx)
	if err != nil {
		return nil, err
	}
	if accountNumber == "" {
		return nil, common.ErrNotFound
	}

	db, err := s.store.DB(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.Transactions(db).List(ctx, transactions.Filter{
		AccountNumber: accountNumber,
		Type:          p.Type,
		Limit:         p.PageSize + 1,
		Offset:        (p.Page - 1) * p.PageSize,
	})
	if err != nil {
		return nil, common.Storage("account statement", err)
	}

	hasMore := len(list) > p.PageSize
	if hasMore {
		list = list[:p.PageSize]
	}
	return &models.Statement{
		Transactions: list,
		Page:         p.Page,
		PageSize:     p.PageSize,
		HasMore:      hasMore,
	}, nil
}
