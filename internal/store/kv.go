package store

import (
	"context"

	"github.com/dmitrijs2005/pocketbank/internal/dbx"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/metadata"
)

// KV is the metadata table reached through the lazy handle. It satisfies
// metadata.Repository and adds atomic batch writes.
type KV struct {
	s *Store
}

// KV returns the key-value view of the store.
func (s *Store) KV() *KV {
	return &KV{s: s}
}

var _ metadata.Repository = (*KV)(nil)

func (k *KV) repo(ctx context.Context) (metadata.Repository, error) {
	db, err := k.s.DB(ctx)
	if err != nil {
		return nil, err
	}
	return metadata.NewSQLiteRepository(db), nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := k.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, key)
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	r, err := k.repo(ctx)
	if err != nil {
		return err
	}
	return r.Set(ctx, key, value)
}

func (k *KV) Delete(ctx context.Context, key string) error {
	r, err := k.repo(ctx)
	if err != nil {
		return err
	}
	return r.Delete(ctx, key)
}

// Keys lists keys starting with prefix, sorted.
func (k *KV) Keys(ctx context.Context, prefix string) ([]string, error) {
	r, err := k.repo(ctx)
	if err != nil {
		return nil, err
	}
	return r.Keys(ctx, prefix)
}

// SetMany writes all items or none.
func (k *KV) SetMany(ctx context.Context, items map[string][]byte) error {
	db, err := k.s.DB(ctx)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SetMany(ctx, items)
	})
}

// DeleteMany removes all keys or none.
func (k *KV) DeleteMany(ctx context.Context, keys []string) error {
	db, err := k.s.DB(ctx)
	if err != nil {
		return err
	}
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).DeleteMany(ctx, keys)
	})
}
