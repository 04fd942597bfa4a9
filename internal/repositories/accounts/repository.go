// Package accounts persists bank accounts and their balances.
package accounts

import (
	"context"

	"github.com/dmitrijs2005/pocketbank/internal/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	// Create inserts a. A taken account number surfaces as a unique
	// violation (see dbx.IsUniqueViolation) so callers can retry.
	Create(ctx context.Context, a *models.Account) error
	GetByUserID(ctx context.Context, userID string) (*models.Account, error)
	GetByNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	UpdateBalance(ctx context.Context, accountNumber string, balance decimal.Decimal) error
}
