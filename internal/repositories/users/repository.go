// Package users persists login identities.
package users

import (
	"context"

	"github.com/dmitrijs2005/pocketbank/internal/models"
)

type Repository interface {
	// Create inserts u. A taken email yields common.ErrDuplicateEmail.
	Create(ctx context.Context, u *models.User) error
	// GetByEmail and GetByID yield common.ErrNotFound for unknown users.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}
