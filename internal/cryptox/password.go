// Package cryptox holds the cryptographic primitives of the ledger:
// salted password digests, the device-local field cipher and card masking.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	PasswordIterations = 10000
	passwordSaltSize   = 16
	passwordKeyLen     = 32
	hashSeparator      = ":"
)

// HashPassword salts password with 16 random bytes and returns
// "hex(salt):hex(digest)".
func HashPassword(password string) (string, error) {
	salt, err := common.RandomHex(passwordSaltSize)
	if err != nil {
		return "", err
	}
	return HashPasswordWithSalt(password, salt), nil
}

// HashPasswordWithSalt is the deterministic half of HashPassword.
func HashPasswordWithSalt(password, salt string) string {
	digest := pbkdf2.Key([]byte(password), []byte(salt), PasswordIterations, passwordKeyLen, sha256.New)
	return salt + hashSeparator + hex.EncodeToString(digest)
}

// VerifyPassword reports whether password matches stored. Malformed stored
// values never match.
func VerifyPassword(password, stored string) bool {
	if !IsHashed(stored) {
		return false
	}
	salt, want, _ := strings.Cut(stored, hashSeparator)
	if salt == "" || want == "" {
		return false
	}
	got := HashPasswordWithSalt(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(stored)) == 1
}

// IsHashed distinguishes a stored digest from a legacy plaintext value:
// digests contain exactly one separator.
func IsHashed(value string) bool {
	return strings.Count(value, hashSeparator) == 1
}
