package store

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/pocketbank/internal/common"
	"github.com/dmitrijs2005/pocketbank/internal/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV_OpensLazilyAndRoundTrips(t *testing.T) {
	opens := countOpens(t)
	s := New(tempPath(t), repomanager.NewSQLiteRepositoryManager())
	t.Cleanup(func() { _ = s.Close() })
	kv := s.KV()
	ctx := context.Background()

	assert.Equal(t, int32(0), opens.Load())

	require.NoError(t, kv.Set(ctx, "a", []byte("1")))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, int32(1), opens.Load())

	require.NoError(t, kv.SetMany(ctx, map[string][]byte{"b": []byte("2"), "c": []byte("3")}))
	keys, err := kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	require.NoError(t, kv.DeleteMany(ctx, []string{"a", "b"}))
	keys, err = kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, keys)

	require.NoError(t, kv.Delete(ctx, "c"))
	keys, err = kv.Keys(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKV_PropagatesInitFailure(t *testing.T) {
	s := New(tempPath(t), &failingMigrator{})
	kv := s.KV()
	ctx := context.Background()

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrStorageFailure)
	assert.ErrorIs(t, kv.Set(ctx, "a", nil), common.ErrStorageFailure)
	assert.ErrorIs(t, kv.SetMany(ctx, map[string][]byte{"a": nil}), common.ErrStorageFailure)
	assert.ErrorIs(t, kv.DeleteMany(ctx, []string{"a"}), common.ErrStorageFailure)
}
