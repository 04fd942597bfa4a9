// Package metadata is the key-value table of the local database. It backs
// the secure store, the login throttle and the root encryption key.
package metadata

import "context"

// Repository stores opaque values by key. Get returns (nil, nil) for a
// missing key. Keys lists keys starting with prefix in ascending order; an
// empty prefix lists everything.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	SetMany(ctx context.Context, items map[string][]byte) error
	DeleteMany(ctx context.Context, keys []string) error
}
