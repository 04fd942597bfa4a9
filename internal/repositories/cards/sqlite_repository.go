package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type cardRow struct {
	ID             string `db:"id"`
	AccountNumber  string `db:"account_number"`
	CardNumber     string `db:"card_number"`
	CardType       string `db:"card_type"`
	CardholderName string `db:"cardholder_name"`
	CVV            string `db:"cvv"`
	ExpiryDate     string `db:"expiry_date"`
	Brand          string `db:"brand"`
	IsActive       bool   `db:"is_active"`
	CreatedAt      int64  `db:"created_at"`
}

func (r cardRow) toModel() models.Card {
	status := models.CardRetired
	if r.IsActive {
		status = models.CardActive
	}
	return models.Card{
		ID:             r.ID,
		AccountNumber:  r.AccountNumber,
		CardNumber:     r.CardNumber,
		CardType:       models.CardType(r.CardType),
		CardholderName: r.CardholderName,
		CVV:            r.CVV,
		ExpiryDate:     r.ExpiryDate,
		Brand:          r.Brand,
		Status:         status,
		CreatedAt:      time.UnixMilli(r.CreatedAt).UTC(),
	}
}

const selectActiveCards = `
	SELECT id, account_number, card_number, card_type, cardholder_name, cvv, expiry_date, brand, is_active, created_at
	FROM cards
	WHERE is_active = 1`

func (r *SQLiteRepository) Create(ctx context.Context, c *models.Card) error {
	row := cardRow{
		ID:             c.ID,
		AccountNumber:  c.AccountNumber,
		CardNumber:     c.CardNumber,
		CardType:       string(c.CardType),
		CardholderName: c.CardholderName,
		CVV:            c.CVV,
		ExpiryDate:     c.ExpiryDate,
		Brand:          c.Brand,
		IsActive:       c.Status != models.CardRetired,
		CreatedAt:      c.CreatedAt.UnixMilli(),
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO cards (id, account_number, card_number, card_type, cardholder_name, cvv, expiry_date, brand, is_active, created_at)
		VALUES (:id, :account_number, :card_number, :card_type, :cardholder_name, :cvv, :expiry_date, :brand, :is_active, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert card: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListActive(ctx context.Context, accountNumber string) ([]models.Card, error) {
	query := selectActiveCards
	var args []any
	if accountNumber != "" {
		query += " AND account_number = ?"
		args = append(args, accountNumber)
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	var rows []cardRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	result := make([]models.Card, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func (r *SQLiteRepository) GetActive(ctx context.Context, id string) (*models.Card, error) {
	var row cardRow
	err := r.db.GetContext(ctx, &row, selectActiveCards+" AND id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	c := row.toModel()
	return &c, nil
}

func (r *SQLiteRepository) Retire(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE cards SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to retire card %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to retire card %s: %w", id, err)
	}
	if n != 1 {
		return common.ErrNotFound
	}
	return nil
}
