package storage_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starklens/starklens/internal/testutil"
	"github.com/starklens/starklens/storage"
)

func TestGetCFStats(t *testing.T) {
	dir := t.TempDir()
	testutil.BuildChain(t, dir, 3, 0)
	store := testutil.OpenFixture(t, dir)

	t.Run("populated family", func(t *testing.T) {
		stats, err := store.GetCFStats(storage.CFBlockInfo)
		require.NoError(t, err)
		assert.Equal(t, "block_info", stats.Name)
		assert.Equal(t, uint64(3), stats.KeyCount)
		require.NotNil(t, stats.FirstKeyHex)
		require.NotNil(t, stats.LastKeyHex)
		assert.Equal(t, hexutil.Encode(storage.BlockNumberKey(0)), *stats.FirstKeyHex)
		assert.Equal(t, hexutil.Encode(storage.BlockNumberKey(2)), *stats.LastKeyHex)
	})

	t.Run("empty family", func(t *testing.T) {
		stats, err := store.GetCFStats(storage.CFClassInfo)
		require.NoError(t, err)
		assert.Zero(t, stats.KeyCount)
		assert.Nil(t, stats.FirstKeyHex)
		assert.Nil(t, stats.LastKeyHex)
	})
}

func TestListKeys(t *testing.T) {
	dir := t.TempDir()
	testutil.BuildChain(t, dir, 5, 0)
	store := testutil.OpenFixture(t, dir)

	keys, hasMore, err := store.ListKeys(storage.CFBlockInfo, 0, 3)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.True(t, hasMore)
	assert.Equal(t, hexutil.Encode(storage.BlockNumberKey(0)), keys[0])

	keys, hasMore, err = store.ListKeys(storage.CFBlockInfo, 3, 10)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.False(t, hasMore)
	assert.Equal(t, hexutil.Encode(storage.BlockNumberKey(4)), keys[1])

	t.Run("offset past the keyspace", func(t *testing.T) {
		keys, hasMore, err := store.ListKeys(storage.CFBlockInfo, 5, 10)
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.False(t, hasMore)
	})

	t.Run("huge offset must not allocate", func(t *testing.T) {
		keys, hasMore, err := store.ListKeys(storage.CFBlockInfo, 1<<50, 10)
		require.NoError(t, err)
		assert.Empty(t, keys)
		assert.False(t, hasMore)
	})
}

func TestGetRawValue(t *testing.T) {
	dir := t.TempDir()
	testutil.BuildChain(t, dir, 2, 1)
	store := testutil.OpenFixture(t, dir)

	key := storage.BlockNumberKey(1)
	kv, err := store.GetRawValue(storage.CFBlockInfo, key)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(key), kv.KeyHex)
	assert.NotEmpty(t, kv.ValueHex)
	assert.Positive(t, kv.ValueSize)
	assert.Equal(t, "block 1", kv.DecodedHint)

	_, err = store.GetRawValue(storage.CFBlockInfo, storage.BlockNumberKey(99))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDecodedHints(t *testing.T) {
	dir := t.TempDir()
	testutil.BuildChain(t, dir, 2, 1)
	store := testutil.OpenFixture(t, dir)

	t.Run("meta chain tip", func(t *testing.T) {
		kv, err := store.GetRawValue(storage.CFMeta, storage.MetaChainTipKey)
		require.NoError(t, err)
		assert.Equal(t, "chain tip: block 1", kv.DecodedHint)
	})

	t.Run("tx location", func(t *testing.T) {
		kv, err := store.GetRawValue(storage.CFTxInfo, storage.TxKey(1, 0))
		require.NoError(t, err)
		assert.Equal(t, "block 1, tx 0", kv.DecodedHint)
	})
}

func TestBatchGetRawValues(t *testing.T) {
	dir := t.TempDir()
	testutil.BuildChain(t, dir, 3, 0)
	store := testutil.OpenFixture(t, dir)

	results, err := store.BatchGetRawValues(storage.CFBlockInfo, [][]byte{
		storage.BlockNumberKey(0),
		storage.BlockNumberKey(99), // absent: skipped, not an error
		storage.BlockNumberKey(2),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, hexutil.Encode(storage.BlockNumberKey(0)), results[0].KeyHex)
	assert.Equal(t, hexutil.Encode(storage.BlockNumberKey(2)), results[1].KeyHex)
}
