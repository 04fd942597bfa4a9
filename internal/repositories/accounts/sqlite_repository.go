package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/shopspring/decimal"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type accountRow struct {
	ID            string  `db:"id"`
	UserID        string  `db:"user_id"`
	AccountNumber string  `db:"account_number"`
	Agency        string  `db:"agency"`
	OwnerName     string  `db:"owner_name"`
	OwnerEmail    string  `db:"owner_email"`
	Balance       float64 `db:"balance"`
	CreatedAt     int64   `db:"created_at"`
}

func (r accountRow) toModel() *models.Account {
	return &models.Account{
		ID:            r.ID,
		UserID:        r.UserID,
		AccountNumber: r.AccountNumber,
		Agency:        r.Agency,
		OwnerName:     r.OwnerName,
		OwnerEmail:    r.OwnerEmail,
		Balance:       decimal.NewFromFloat(r.Balance),
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
	}
}

const selectAccount = `SELECT id, user_id, account_number, agency, owner_name, owner_email, balance, created_at FROM accounts`

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Account) error {
	row := accountRow{
		ID:            a.ID,
		UserID:        a.UserID,
		AccountNumber: a.AccountNumber,
		Agency:        a.Agency,
		OwnerName:     a.OwnerName,
		OwnerEmail:    a.OwnerEmail,
		Balance:       a.Balance.InexactFloat64(),
		CreatedAt:     a.CreatedAt.UnixMilli(),
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO accounts (id, user_id, account_number, agency, owner_name, owner_email, balance, created_at)
		VALUES (:id, :user_id, :account_number, :agency, :owner_name, :owner_email, :balance, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) get(ctx context.Context, where string, arg any) (*models.Account, error) {
	var row accountRow
	err := r.db.GetContext(ctx, &row, selectAccount+" WHERE "+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return row.toModel(), nil
}

func (r *SQLiteRepository) GetByUserID(ctx context.Context, userID string) (*models.Account, error) {
	return r.get(ctx, "user_id = ? ORDER BY created_at LIMIT 1", userID)
}

func (r *SQLiteRepository) GetByNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return r.get(ctx, "account_number = ?", accountNumber)
}

func (r *SQLiteRepository) UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE account_number = ?`,
		balance.InexactFloat64(), accountNumber)
	if err != nil {
		return fmt.Errorf("failed to update balance of %s: %w", accountNumber, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update balance of %s: %w", accountNumber, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
