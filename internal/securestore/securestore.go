// Package securestore wraps the key-value table so that values of sensitive
// keys (session and auth tokens) are encrypted at rest. Callers read and
// write plaintext; other keys pass through unchanged.
package securestore

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/cryptox"
	"github.com/dmitrijs2005/pocketbank/internal/logging"
)

// ReservedPrefix marks keys owned by other components (login throttle).
// They are hidden from AllKeys and survive Clear.
const ReservedPrefix = "rate_limit:"

var sensitiveKeys = []string{
	"usertoken",
	"token",
	"authtoken",
	"accesstoken",
	"refreshtoken",
	"session",
}

// KV is the raw storage. store.KV satisfies it.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	SetMany(ctx context.Context, items map[string][]byte) error
	DeleteMany(ctx context.Context, keys []string) error
}

// Cipher encrypts single values. *cryptox.FieldCipher satisfies it.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, value string) (string, error)
}

type SecureStore struct {
	kv     KV
	cipher Cipher
	logger logging.Logger
}

func New(kv KV, c Cipher, l logging.Logger) *SecureStore {
	return &SecureStore{kv: kv, cipher: c, logger: l.With("module", "securestore")}
}

// IsSensitiveKey reports whether values under key are encrypted.
// Matching is a case-insensitive substring test.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func isReserved(key string) bool {
	return key == cryptox.EncryptionKeyName || strings.HasPrefix(key, ReservedPrefix)
}

func (s *SecureStore) encode(ctx context.Context, key, value string) ([]byte, error) {
	if !IsSensitiveKey(key) {
		return []byte(value), nil
	}
	enc, err := s.cipher.Encrypt(ctx, value)
	if err != nil {
		return nil, common.Storage("encrypt "+key, err)
	}
	return []byte(enc), nil
}

// decode never fails: a value that cannot be decrypted is returned as stored.
func (s *SecureStore) decode(ctx context.Context, key string, raw []byte) string {
	if !IsSensitiveKey(key) {
		return string(raw)
	}
	plain, err := s.cipher.Decrypt(ctx, string(raw))
	if err != nil {
		s.logger.Warn(ctx, "decrypt failed, returning stored value", "key", key, "error", err)
		return string(raw)
	}
	return plain
}

func (s *SecureStore) SetItem(ctx context.Context, key, value string) error {
	b, err := s.encode(ctx, key, value)
	if err != nil {
		return err
	}
	return common.Storage("set "+key, s.kv.Set(ctx, key, b))
}

// GetItem returns the plaintext value and whether the key exists.
func (s *SecureStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", false, common.Storage("get "+key, err)
	}
	if raw == nil {
		return "", false, nil
	}
	return s.decode(ctx, key, raw), true, nil
}

func (s *SecureStore) RemoveItem(ctx context.Context, key string) error {
	return common.Storage("remove "+key, s.kv.Delete(ctx, key))
}

// MultiGet returns the values of the existing keys among keys.
func (s *SecureStore) MultiGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		v, ok, err := s.GetItem(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = v
		}
	}
	return out, nil
}

// MultiSet writes all items atomically.
func (s *SecureStore) MultiSet(ctx context.Context, items map[string]string) error {
	encoded := make(map[string][]byte, len(items))
	for key, value := range items {
		b, err := s.encode(ctx, key, value)
		if err != nil {
			return err
		}
		encoded[key] = b
	}
	return common.Storage("multi set", s.kv.SetMany(ctx, encoded))
}

// MultiRemove deletes all keys atomically.
func (s *SecureStore) MultiRemove(ctx context.Context, keys []string) error {
	return common.Storage("multi remove", s.kv.DeleteMany(ctx, keys))
}

// AllKeys lists stored keys, excluding the root key and throttle state.
func (s *SecureStore) AllKeys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, "")
	if err != nil {
		return nil, common.Storage("list keys", err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !isReserved(k) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Clear removes every key returned by AllKeys.
func (s *SecureStore) Clear(ctx context.Context) error {
	keys, err := s.AllKeys(ctx)
	if err != nil {
		return err
	}
	return s.MultiRemove(ctx, keys)
}
