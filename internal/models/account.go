package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the single bank account owned by a user.
type Account struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	AccountNumber string          `json:"accountNumber"`
	Agency        string          `json:"agency"`
	OwnerName     string          `json:"ownerName"`
	OwnerEmail    string          `json:"ownerEmail"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CreateAccountParams is the input of the account provisioning call.
type CreateAccountParams struct {
	UserID     string `json:"userId" validate:"required"`
	OwnerEmail string `json:"ownerEmail" validate:"required,email"`
	OwnerName  string `json:"ownerName" validate:"required,min=2,max=80"`
}
