package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

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

type transactionRow struct {
	ID            string         `db:"id"`
	AccountNumber string         `db:"account_number"`
	Amount        float64        `db:"amount"`
	Type          string         `db:"type"`
	Timestamp     int64          `db:"timestamp"`
	NewBalance    float64        `db:"new_balance"`
	Category      sql.NullString `db:"category"`
	CreatedAt     int64          `db:"created_at"`
}

func (r transactionRow) toModel() models.Transaction {
	t := models.Transaction{
		ID:            r.ID,
		AccountNumber: r.AccountNumber,
		Amount:        decimal.NewFromFloat(r.Amount),
		Type:          models.TransactionType(r.Type),
		Timestamp:     time.UnixMilli(r.Timestamp).UTC(),
		NewBalance:    decimal.NewFromFloat(r.NewBalance),
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
	}
	if r.Category.Valid {
		c := r.Category.String
		t.Category = &c
	}
	return t
}

func (r *SQLiteRepository) Create(ctx context.Context, t *models.Transaction) error {
	row := transactionRow{
		ID:            t.ID,
		AccountNumber: t.AccountNumber,
		Amount:        t.Amount.InexactFloat64(),
		Type:          string(t.Type),
		Timestamp:     t.Timestamp.UnixMilli(),
		NewBalance:    t.NewBalance.InexactFloat64(),
		CreatedAt:     t.CreatedAt.UnixMilli(),
	}
	if t.Category != nil {
		row.Category = sql.NullString{String: *t.Category, Valid: true}
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO transactions (id, account_number, amount, type, timestamp, new_balance, category, created_at)
		VALUES (:id, :account_number, :amount, :type, :timestamp, :new_balance, :category, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.AccountNumber != "" {
		where = append(where, "account_number = ?")
		args = append(args, f.AccountNumber)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, f.From.UnixMilli())
	}
	if !f.To.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, f.To.UnixMilli())
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, account_number, amount, type, timestamp, new_balance, category, created_at FROM transactions`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY timestamp DESC, rowid DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, f.Limit, f.Offset)
	}

	var rows []transactionRow
	if err := r.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	result := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}
