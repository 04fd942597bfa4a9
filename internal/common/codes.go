package common

import (
	"errors"
	"fmt"
	"time"
)

const (
	CodeDuplicateEmail     = "duplicate-email"
	CodeDuplicateAccount   = "duplicate-account"
	CodeInvalidCredentials = "invalid-credentials"
	CodeTooManyAttempts    = "too-many-attempts"
	CodeInsufficientFunds  = "insufficient-funds"
	CodeInvalidAmount      = "invalid-amount"
	CodeInvalidPageParams  = "invalid-page-params"
	CodeNotFound           = "not-found"
	CodeStorageFailure     = "storage-failure"
	CodeUnauthenticated    = "unauthenticated"
	CodeTokenExpired       = "token-expired"
	CodeValidation         = "validation"
	CodeInternal           = "internal"
)

type errorKind struct {
	err     error
	code    string
	message string
}

// kinds is ordered: the first match wins, so ErrStorageFailure goes last
// to let a more specific cause surface first.
var kinds = []errorKind{
	{ErrDuplicateEmail, CodeDuplicateEmail, "An account with this email already exists."},
	{ErrDuplicateAccount, CodeDuplicateAccount, "You already have a bank account."},
	{ErrInvalidCredentials, CodeInvalidCredentials, "Invalid email or password."},
	{ErrTooManyAttempts, CodeTooManyAttempts, "Too many login attempts. Please try again later."},
	{ErrInsufficientFunds, CodeInsufficientFunds, "Insufficient funds for this withdrawal."},
	{ErrInvalidAmount, CodeInvalidAmount, "Amount must be greater than zero."},
	{ErrInvalidPageParams, CodeInvalidPageParams, "Page must be at least 1 and page size between 1 and 100."},
	{ErrNotFound, CodeNotFound, "The requested record was not found."},
	{ErrUnauthenticated, CodeUnauthenticated, "Please sign in to continue."},
	{ErrInvalidToken, CodeUnauthenticated, "Please sign in to continue."},
	{ErrTokenExpired, CodeTokenExpired, "Your session has expired. Please sign in again."},
	{ErrValidation, CodeValidation, "Some of the provided data is invalid."},
	{ErrStorageFailure, CodeStorageFailure, "Could not access local storage. Please try again."},
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return CodeInternal
}

// Message returns a human-readable message for err, suitable for end users.
// Credential failures never reveal which part was wrong.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var te *ThrottledError
	if errors.As(err, &te) {
		return fmt.Sprintf("Too many login attempts. Try again after %s.", te.BlockedUntil.Local().Format("15:04"))
	}

	if errors.Is(err, ErrValidation) {
		return err.Error()
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.message
		}
	}
	return "Something went wrong. Please try again."
}

// FromCode rebuilds an error received from a remote peer so that errors.Is
// keeps working on the caller side.
func FromCode(code, message string, blockedUntil time.Time) error {
	switch code {
	case CodeTooManyAttempts:
		return &ThrottledError{BlockedUntil: blockedUntil}
	case CodeValidation:
		return fmt.Errorf("%w: %s", ErrValidation, message)
	case CodeStorageFailure:
		return &StorageError{Op: "remote", Err: errors.New(message)}
	}

	for _, k := range kinds {
		if k.code == code {
			return k.err
		}
	}
	if message == "" {
		message = "remote call failed"
	}
	return errors.New(message)
}
