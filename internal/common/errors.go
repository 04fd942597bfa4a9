// Package common defines shared constants, sentinel errors and small helpers
// used across the ledger, its storage layer and the callable transports.
// Callers should use errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Identity errors.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateAccount   = errors.New("user already owns an account")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many attempts")
	ErrUnauthenticated    = errors.New("not signed in")

	// Ledger errors.
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidPageParams = errors.New("invalid page parameters")

	// Repository-level errors.
	ErrNotFound       = errors.New("not found")
	ErrStorageFailure = errors.New("storage failure")

	// Input errors.
	ErrValidation = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ThrottledError is returned when the login throttle denies an attempt.
// It matches ErrTooManyAttempts.
type ThrottledError struct {
	BlockedUntil time.Time
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many attempts, blocked until %s", e.BlockedUntil.UTC().Format(time.RFC3339))
}

func (e *ThrottledError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

// StorageError wraps a database or key-value failure with the operation name.
// It matches both ErrStorageFailure and the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// Storage wraps err into a StorageError unless it is nil or already
// carries a domain meaning.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}

var domainErrors = []error{
	ErrDuplicateEmail,
	ErrDuplicateAccount,
	ErrInvalidCredentials,
	ErrTooManyAttempts,
	ErrUnauthenticated,
	ErrInsufficientFunds,
	ErrInvalidAmount,
	ErrInvalidPageParams,
	ErrNotFound,
	ErrStorageFailure,
	ErrValidation,
}
