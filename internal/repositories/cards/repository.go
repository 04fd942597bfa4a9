// Package cards persists payment cards. Reads only ever see active cards;
// retired rows are kept for history.
package cards

import (
	"context"

	"github.com/dmitrijs2005/pocketbank/internal/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Card) error
	// ListActive returns active cards, newest first. An empty accountNumber
	// lists the cards of every account.
	ListActive(ctx context.Context, accountNumber string) ([]models.Card, error)
	// GetActive yields common.ErrNotFound for unknown or retired cards.
	GetActive(ctx context.Context, id string) (*models.Card, error)
	// Retire marks an active card retired; common.ErrNotFound otherwise.
	Retire(ctx context.Context, id string) error
}
