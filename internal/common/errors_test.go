package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledError_MatchesSentinel(t *testing.T) {
	until := time.Now().Add(30 * time.Minute)
	err := fmt.Errorf("sign in: %w", &ThrottledError{BlockedUntil: until})

	require.ErrorIs(t, err, ErrTooManyAttempts)

	var te *ThrottledError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, until, te.BlockedUntil)
	assert.Equal(t, CodeTooManyAttempts, Code(err))
}

func TestStorageError_MatchesBoth(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Storage("insert user", cause)

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert user")
	assert.Equal(t, CodeStorageFailure, Code(err))
}

func TestStorage_KeepsDomainErrors(t *testing.T) {
	assert.Nil(t, Storage("op", nil))

	err := Storage("lookup", fmt.Errorf("account 1: %w", ErrNotFound))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrStorageFailure)
}

func TestMessage_CredentialsDoNotLeakCause(t *testing.T) {
	msg := Message(fmt.Errorf("user lookup: %w", ErrInvalidCredentials))
	assert.Equal(t, "Invalid email or password.", msg)
	assert.Empty(t, Message(nil))
	assert.Equal(t, "Something went wrong. Please try again.", Message(errors.New("boom")))
}

func TestMessage_ValidationKeepsDetail(t *testing.T) {
	err := fmt.Errorf("%w: email: invalid email format", ErrValidation)
	assert.Equal(t, err.Error(), Message(err))
}

func TestFromCode_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		ErrDuplicateEmail, ErrDuplicateAccount, ErrInvalidCredentials, ErrInsufficientFunds,
		ErrInvalidAmount, ErrInvalidPageParams, ErrNotFound, ErrUnauthenticated, ErrTokenExpired,
	} {
		t.Run(Code(sentinel), func(t *testing.T) {
			got := FromCode(Code(sentinel), Message(sentinel), time.Time{})
			assert.ErrorIs(t, got, sentinel)
		})
	}

	until := time.UnixMilli(1_700_000_000_000)
	got := FromCode(CodeTooManyAttempts, "", until)
	var te *ThrottledError
	require.ErrorAs(t, got, &te)
	assert.True(t, te.BlockedUntil.Equal(until))

	assert.ErrorIs(t, FromCode(CodeStorageFailure, "db locked", time.Time{}), ErrStorageFailure)
	assert.ErrorIs(t, FromCode(CodeValidation, "bad email", time.Time{}), ErrValidation)
	assert.EqualError(t, FromCode("weird", "remote says no", time.Time{}), "remote says no")
}
