package storage

import (
	"errors"
	"fmt"

	"github.com/starklens/starklens/types"
)

// Stats summarizes the primary store.
type Stats struct {
	Path              string
	LatestBlock       *uint64
	ColumnFamilyCount int
	StoreVersion      VersionDetection
}

// GetStats returns store-level statistics. LatestBlock is nil when the
// store holds no blocks yet.
func (s *Store) GetStats() Stats {
	stats := Stats{
		Path:              s.path,
		ColumnFamilyCount: len(ColumnFamilies),
		StoreVersion:      DetectStoreVersion(s.path),
	}
	if tip, err := s.TipNumber(); err == nil {
		stats.LatestBlock = &tip
	}
	return stats
}

// TipNumber returns the primary store's current tip block number. It reads
// the meta chain-tip record first and falls back to the highest CFBlockInfo
// key when the record is absent.
func (s *Store) TipNumber() (uint64, error) {
	value, err := s.Get(CFMeta, MetaChainTipKey)
	if err == nil {
		return DecodeChainTip(value)
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	// Fallback: highest block_info key.
	entries, err := s.Scan(CFBlockInfo, nil, Descending, 1)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, ErrNotFound
	}
	return ParseBlockNumberKey(entries[0].Key)
}

// GetBlockByNumber returns the block with the given number.
func (s *Store) GetBlockByNumber(number uint64) (*types.Block, error) {
	key := BlockNumberKey(number)
	value, err := s.Get(CFBlockInfo, key)
	if err != nil {
		return nil, err
	}
	return DecodeBlock(key, value)
}

// GetBlockByHash returns the block with the given hash.
func (s *Store) GetBlockByHash(hash types.Felt) (*types.Block, error) {
	key := BlockHashKey(hash)
	value, err := s.Get(CFBlockNumber, key)
	if err != nil {
		return nil, err
	}
	number, err := DecodeBlockNumber(key, value)
	if err != nil {
		return nil, err
	}
	return s.GetBlockByNumber(number)
}

// GetBlockNumberByHash returns the number of the block with the given hash.
func (s *Store) GetBlockNumberByHash(hash types.Felt) (uint64, error) {
	key := BlockHashKey(hash)
	value, err := s.Get(CFBlockNumber, key)
	if err != nil {
		return 0, err
	}
	return DecodeBlockNumber(key, value)
}

// GetTransaction returns the transaction at (block number, index).
func (s *Store) GetTransaction(blockNumber, index uint64) (*types.Transaction, error) {
	key := TxKey(blockNumber, index)
	value, err := s.Get(CFTxInfo, key)
	if err != nil {
		return nil, err
	}
	return DecodeTransaction(key, value)
}

// GetTransactionByHash returns the transaction with the given hash.
func (s *Store) GetTransactionByHash(hash types.Felt) (*types.Transaction, error) {
	loc, err := s.GetTransactionLocation(hash)
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(loc.BlockNumber, loc.Index)
}

// GetTransactionLocation returns the location of a transaction by hash.
func (s *Store) GetTransactionLocation(hash types.Felt) (*types.TxLocation, error) {
	key := TxHashKey(hash)
	value, err := s.Get(CFTxLocation, key)
	if err != nil {
		return nil, err
	}
	return DecodeTxLocation(key, value)
}

// GetTransactionsByBlock returns all transactions of a block in index order.
// Returns ErrNotFound when the block itself does not exist.
func (s *Store) GetTransactionsByBlock(blockNumber uint64) ([]*types.Transaction, error) {
	block, err := s.GetBlockByNumber(blockNumber)
	if err != nil {
		return nil, err
	}

	txs := make([]*types.Transaction, 0, len(block.TxHashes))
	for i := range block.TxHashes {
		tx, err := s.GetTransaction(blockNumber, uint64(i))
		if err != nil {
			return nil, fmt.Errorf("block %d tx %d: %w", blockNumber, i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// GetStateDiff returns the state diff introduced by a block.
func (s *Store) GetStateDiff(blockNumber uint64) (*types.StateDiff, error) {
	key := BlockNumberKey(blockNumber)
	value, err := s.Get(CFStateDiff, key)
	if err != nil {
		return nil, err
	}
	return DecodeStateDiff(key, value)
}

// GetContract returns the current state of a contract.
func (s *Store) GetContract(address types.Felt) (*types.Contract, error) {
	key := ContractKey(address)
	value, err := s.Get(CFContractInfo, key)
	if err != nil {
		return nil, err
	}
	return DecodeContract(key, value)
}

// GetStorageValue returns the latest value of one storage slot.
func (s *Store) GetStorageValue(address, slot types.Felt) (types.Felt, error) {
	key := ContractStorageKey(address, slot)
	value, err := s.Get(CFContractStorage, key)
	if err != nil {
		return types.Felt{}, err
	}
	return DecodeStorageValue(key, value)
}

// GetClass returns the class with the given hash.
func (s *Store) GetClass(hash types.Felt) (*types.Class, error) {
	key := ClassKey(hash)
	value, err := s.Get(CFClassInfo, key)
	if err != nil {
		return nil, err
	}
	return DecodeClass(key, value)
}

// HasBlockHash reports whether a block with the given hash exists.
func (s *Store) HasBlockHash(hash types.Felt) (bool, error) {
	return s.Has(CFBlockNumber, BlockHashKey(hash))
}

// HasTransactionHash reports whether a transaction with the given hash exists.
func (s *Store) HasTransactionHash(hash types.Felt) (bool, error) {
	return s.Has(CFTxLocation, TxHashKey(hash))
}

// HasContract reports whether a contract with the given address exists.
func (s *Store) HasContract(address types.Felt) (bool, error) {
	return s.Has(CFContractInfo, ContractKey(address))
}

// HasClass reports whether a class with the given hash exists.
func (s *Store) HasClass(hash types.Felt) (bool, error) {
	return s.Has(CFClassInfo, ClassKey(hash))
}
