package cryptox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"golang.org/x/crypto/hkdf"
)

// EncryptionKeyName is the storage key of the root key.
const EncryptionKeyName = "encryption_key"

const (
	rootKeySize   = 32
	fieldSaltSize = 16
	fieldInfo     = "pocketbank field cipher v1"
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// ErrCorruptRootKey means a root key is stored but unusable. It is never
// replaced automatically: values sealed with it would become unreadable.
var ErrCorruptRootKey = errors.New("stored root key is corrupt")

// KeyStore persists the root key. metadata.Repository satisfies it.
type KeyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// FieldCipher encrypts individual storage values with a key derived per call
// from a device-local root key and a fresh salt.
//
// The root key is stored unencrypted next to the data it protects. It keeps
// values away from casual inspection only.
type FieldCipher struct {
	store KeyStore

	mu  sync.Mutex
	key []byte
}

func NewFieldCipher(ks KeyStore) *FieldCipher {
	return &FieldCipher{store: ks}
}

// GetOrCreateKey returns the root key, generating and persisting it on first
// use. A stored key that does not decode fails with ErrCorruptRootKey.
func (c *FieldCipher) GetOrCreateKey(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return c.key, nil
	}

	stored, err := c.store.Get(ctx, EncryptionKeyName)
	if err != nil {
		return nil, fmt.Errorf("load root key: %w", err)
	}

	if stored != nil {
		key, err := hex.DecodeString(string(stored))
		if err != nil || len(key) != rootKeySize {
			return nil, ErrCorruptRootKey
		}
		c.key = key
		return key, nil
	}

	key := common.RandomBytes(rootKeySize)
	if err := c.store.Set(ctx, EncryptionKeyName, []byte(hex.EncodeToString(key))); err != nil {
		return nil, fmt.Errorf("save root key: %w", err)
	}
	c.key = key
	return key, nil
}

// Encrypt returns "hex(salt):base64(nonce||ciphertext)".
func (c *FieldCipher) Encrypt(ctx context.Context, plaintext string) (string, error) {
	root, err := c.GetOrCreateKey(ctx)
	if err != nil {
		return "", err
	}

	salt := common.RandomBytes(fieldSaltSize)
	aead, err := newAEAD(root, salt)
	if err != nil {
		return "", err
	}

	nonce := common.RandomBytes(aead.NonceSize())
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return hex.EncodeToString(salt) + hashSeparator + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *FieldCipher) Decrypt(ctx context.Context, value string) (string, error) {
	saltHex, body, ok := strings.Cut(value, hashSeparator)
	if !ok {
		return "", ErrMalformedCiphertext
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) != fieldSaltSize {
		return "", ErrMalformedCiphertext
	}
	sealed, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	root, err := c.GetOrCreateKey(ctx)
	if err != nil {
		return "", err
	}
	aead, err := newAEAD(root, salt)
	if err != nil {
		return "", err
	}
	if len(sealed) < aead.NonceSize() {
		return "", ErrMalformedCiphertext
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	return string(plaintext), nil
}

func newAEAD(root, salt []byte) (cipher.AEAD, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, root, salt, []byte(fieldInfo)), key); err != nil {
		return nil, err
	}
	defer common.Wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
