package throttle

import (
	"context"
	"time"
)

// KV is the local key-value table. store.KV satisfies it.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KVStore keeps entries in the local database. Expiry is handled by the
// limiter itself, so ttl is ignored.
type KVStore struct {
	kv KV
}

func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, key)
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return s.kv.Set(ctx, key, value)
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}
