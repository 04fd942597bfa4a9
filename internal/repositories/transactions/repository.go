// Package transactions persists the immutable ledger rows.
package transactions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pocketbank/internal/models"
)

// Filter narrows a listing. Zero values mean "no constraint"; From is
// inclusive and To is exclusive.
type Filter struct {
	AccountNumber string
	Type          models.TransactionType
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}

type Repository interface {
	Create(ctx context.Context, t *models.Transaction) error
	// List returns matching rows newest first; rows with equal timestamps
	// come in reverse insertion order.
	List(ctx context.Context, f Filter) ([]models.Transaction, error)
}
