// Package testutil builds fixture stores for tests. Production code never
// writes the primary store; the fixture writer here opens pebble read-write
// to lay down the same key and value encodings the read path expects.
package testutil

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/starklens/starklens/storage"
	"github.com/starklens/starklens/types"
)

// NewTestLogger creates a logger wired to the test's log output.
func NewTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t)
}

// FeltFromByte builds a deterministic felt with the given tag in its last byte.
func FeltFromByte(tag byte) types.Felt {
	var f types.Felt
	f[31] = tag
	return f
}

// NumberedFelt builds a deterministic felt from a domain tag and a counter,
// so fixtures across blocks never collide.
func NumberedFelt(domain byte, n uint64) types.Felt {
	var f types.Felt
	f[0] = domain
	copy(f[24:], storage.EncodeUint64(n))
	return f
}

// ChainBuilder writes a fixture chain into a pebble directory using the
// store's key and value encodings.
type ChainBuilder struct {
	t   *testing.T
	db  *pebble.DB
	tip int64
}

// NewChainBuilder opens (or creates) a fixture store at dir.
func NewChainBuilder(t *testing.T, dir string) *ChainBuilder {
	t.Helper()
	db, err := pebble.Open(dir, &pebble.Options{})
	require.NoError(t, err)
	return &ChainBuilder{t: t, db: db, tip: -1}
}

func (b *ChainBuilder) set(cf storage.ColumnFamily, key, value []byte) {
	b.t.Helper()
	full := append(cf.Prefix(), key...)
	require.NoError(b.t, b.db.Set(full, value, pebble.Sync))
}

// enc unwraps an Encode* result, failing the test on encoding errors.
func (b *ChainBuilder) enc(value []byte, err error) []byte {
	b.t.Helper()
	require.NoError(b.t, err)
	return value
}

// PutBlock writes a block record, its hash index, its transactions and their
// hash locations, and advances the chain tip.
func (b *ChainBuilder) PutBlock(block *types.Block, txs []*types.Transaction) {
	b.t.Helper()

	key := storage.BlockNumberKey(block.Number)
	b.set(storage.CFBlockInfo, key, b.enc(storage.EncodeBlock(block)))
	b.set(storage.CFBlockNumber, storage.BlockHashKey(block.Hash), b.enc(storage.EncodeBlockNumber(block.Number)))

	for _, tx := range txs {
		b.set(storage.CFTxInfo, storage.TxKey(tx.BlockNumber, tx.Index), b.enc(storage.EncodeTransaction(tx)))
		b.set(storage.CFTxLocation, storage.TxHashKey(tx.Hash),
			b.enc(storage.EncodeTxLocation(&types.TxLocation{BlockNumber: tx.BlockNumber, Index: tx.Index})))
	}

	if int64(block.Number) > b.tip {
		b.tip = int64(block.Number)
		b.set(storage.CFMeta, storage.MetaChainTipKey, b.enc(storage.EncodeChainTip(block.Number)))
	}
}

// PutStateDiff writes a block's state diff record.
func (b *ChainBuilder) PutStateDiff(diff *types.StateDiff) {
	b.t.Helper()
	b.set(storage.CFStateDiff, storage.BlockNumberKey(diff.BlockNumber), b.enc(storage.EncodeStateDiff(diff)))
}

// PutContract writes a contract record.
func (b *ChainBuilder) PutContract(contract *types.Contract) {
	b.t.Helper()
	b.set(storage.CFContractInfo, storage.ContractKey(contract.Address), b.enc(storage.EncodeContract(contract)))
}

// PutStorage writes one contract storage slot.
func (b *ChainBuilder) PutStorage(address, slot, value types.Felt) {
	b.t.Helper()
	b.set(storage.CFContractStorage, storage.ContractStorageKey(address, slot), b.enc(storage.EncodeStorageValue(value)))
}

// PutClass writes a class record.
func (b *ChainBuilder) PutClass(class *types.Class) {
	b.t.Helper()
	b.set(storage.CFClassInfo, storage.ClassKey(class.Hash), b.enc(storage.EncodeClass(class)))
}

// PutRaw writes arbitrary bytes under a column family key, for decode
// failure fixtures.
func (b *ChainBuilder) PutRaw(cf storage.ColumnFamily, key, value []byte) {
	b.t.Helper()
	b.set(cf, key, value)
}

// Close flushes and closes the fixture store. Must be called before the
// read path opens the directory.
func (b *ChainBuilder) Close() {
	b.t.Helper()
	require.NoError(b.t, b.db.Close())
}

// BuildChain writes a simple chain of n blocks starting at genesis, with
// txsPerBlock transactions each, and returns the blocks.
func BuildChain(t *testing.T, dir string, n uint64, txsPerBlock int) []*types.Block {
	t.Helper()

	builder := NewChainBuilder(t, dir)
	defer builder.Close()

	blocks := make([]*types.Block, 0, n)
	var txCounter uint64
	for number := uint64(0); number < n; number++ {
		var parent types.Felt
		if number > 0 {
			parent = blocks[number-1].Hash
		}

		txs := make([]*types.Transaction, 0, txsPerBlock)
		hashes := make([]types.Felt, 0, txsPerBlock)
		for i := 0; i < txsPerBlock; i++ {
			tx := NewTestTransaction(number, uint64(i), txCounter)
			txCounter++
			txs = append(txs, tx)
			hashes = append(hashes, tx.Hash)
		}

		block := &types.Block{
			Number:           number,
			Hash:             NumberedFelt('b', number),
			ParentHash:       parent,
			StateRoot:        NumberedFelt('r', number),
			SequencerAddress: FeltFromByte(0x5e),
			Timestamp:        1700000000 + number*12,
			GasUsed:          21000 * uint64(txsPerBlock),
			TxHashes:         hashes,
			EventCount:       uint64(txsPerBlock),
		}
		builder.PutBlock(block, txs)
		blocks = append(blocks, block)
	}
	return blocks
}

// NewTestTransaction builds a deterministic transaction fixture.
func NewTestTransaction(blockNumber, index, counter uint64) *types.Transaction {
	return &types.Transaction{
		Hash:          NumberedFelt('t', counter),
		BlockNumber:   blockNumber,
		Index:         index,
		Type:          types.TxTypeInvoke,
		Version:       "0x3",
		Status:        types.TxSucceeded,
		SenderAddress: NumberedFelt('a', counter%7),
		Nonce:         counter,
		ActualFee:     1000 + counter,
		FeeUnit:       "FRI",
		Calldata:      []types.Felt{NumberedFelt('d', counter)},
		Signature:     []types.Felt{NumberedFelt('s', counter), NumberedFelt('s', counter+1)},
		Events: []types.Event{{
			FromAddress: NumberedFelt('a', counter%7),
			Keys:        []types.Felt{FeltFromByte(0xe1)},
			Data:        []types.Felt{NumberedFelt('v', counter)},
		}},
	}
}

// NewTestStateDiff builds a deterministic state diff fixture for a block.
func NewTestStateDiff(blockNumber uint64) *types.StateDiff {
	address := NumberedFelt('c', blockNumber)
	return &types.StateDiff{
		BlockNumber: blockNumber,
		DeployedContracts: []types.DeployedContract{
			{Address: address, ClassHash: NumberedFelt('k', blockNumber)},
		},
		StorageDiffs: []types.ContractStorageDiff{{
			Address: address,
			Entries: []types.StorageEntry{
				{Key: FeltFromByte(0x01), Value: NumberedFelt('v', blockNumber)},
			},
		}},
		DeclaredClasses: []types.DeclaredClass{
			{ClassHash: NumberedFelt('k', blockNumber), CompiledClassHash: NumberedFelt('m', blockNumber)},
		},
		Nonces: []types.NonceUpdate{
			{ContractAddress: address, Nonce: blockNumber + 1},
		},
	}
}

// OpenFixture opens a read-only store over a fixture directory.
func OpenFixture(t *testing.T, dir string) *storage.Store {
	t.Helper()
	store, err := storage.Open(storage.DefaultConfig(dir))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close fixture store: %v", err)
		}
	})
	return store
}

// Describe returns a short fixture description, handy in test failure output.
func Describe(blocks []*types.Block) string {
	if len(blocks) == 0 {
		return "empty chain"
	}
	return fmt.Sprintf("chain of %d blocks (tip %d)", len(blocks), blocks[len(blocks)-1].Number)
}
