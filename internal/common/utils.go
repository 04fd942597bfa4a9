package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// RandomBytes returns n bytes from crypto/rand. It panics if the system
// random source fails.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Errorf("random source: %w", err))
	}
	return b
}

// RandomHex returns n random bytes hex-encoded, 2n characters long.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomDigits returns n decimal digits. Leading zeros are allowed.
func RandomDigits(n int) (string, error) {
	out := make([]byte, n)
	ten := big.NewInt(10)
	for i := range out {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		out[i] = '0' + byte(d.Int64())
	}
	return string(out), nil
}

// RandomInt returns a uniform integer in [lo, hi].
func RandomInt(lo, hi int64) (int64, error) {
	if hi < lo {
		return 0, fmt.Errorf("random int: empty range [%d, %d]", lo, hi)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo+1))
	if err != nil {
		return 0, err
	}
	return lo + n.Int64(), nil
}

// Wipe zeroes b in place. Use it on passwords and key material once they
// are no longer needed.
func Wipe(b []byte) {
	clear(b)
}
