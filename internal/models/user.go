// Package models defines the domain types of the ledger: users, bank accounts,
// payment cards, transactions and the statements built from them.
package models

import "time"

// User is a registered identity. The password hash never leaves the
// storage layer in serialized form.
type User struct {
	// ID is an opaque unique identifier.
	ID string `json:"uid"`

	// Email is unique across the installation and stored lower-cased.
	Email string `json:"email"`

	DisplayName string `json:"displayName"`

	// PasswordHash is "hexsalt:hexdigest" as produced by cryptox.HashPassword.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

// Credentials carries sign-up and sign-in input.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// ProfileUpdate changes the display name of a user.
type ProfileUpdate struct {
	UserID      string `json:"userId" validate:"required"`
	DisplayName string `json:"displayName" validate:"required,min=2,max=80"`
}
