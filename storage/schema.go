package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/starklens/starklens/types"
)

// ColumnFamily names an independently ordered keyspace of the primary store.
// Each column family lives under its own key prefix; within a family, entries
// are ordered by the raw bytes of the family-specific key encoding below.
type ColumnFamily string

const (
	// CFMeta holds store-level metadata such as the chain tip.
	// Key: literal string. Value: versioned RLP.
	CFMeta ColumnFamily = "meta"

	// CFBlockInfo maps block number -> block header record.
	// Key: 8-byte big-endian block number, so ascending key order is
	// ascending block number order.
	CFBlockInfo ColumnFamily = "block_info"

	// CFBlockNumber maps block hash -> block number (inverse of CFBlockInfo).
	// Key: raw 32-byte block hash.
	CFBlockNumber ColumnFamily = "block_n"

	// CFTxInfo maps (block number, tx index) -> transaction record.
	// Key: 8-byte big-endian block number || 8-byte big-endian tx index,
	// so transactions iterate in chain order.
	CFTxInfo ColumnFamily = "tx_info"

	// CFTxLocation maps transaction hash -> (block number, tx index).
	// Key: raw 32-byte transaction hash.
	CFTxLocation ColumnFamily = "tx_hash"

	// CFStateDiff maps block number -> state diff record.
	// Key: 8-byte big-endian block number.
	CFStateDiff ColumnFamily = "block_state_diff"

	// CFContractInfo maps contract address -> {class hash, nonce}.
	// Key: raw 32-byte contract address.
	CFContractInfo ColumnFamily = "contract_info"

	// CFContractStorage maps (contract address, storage key) -> storage value.
	// Key: 32-byte contract address || 32-byte storage key, so one contract's
	// slots are contiguous and ordered by storage key.
	CFContractStorage ColumnFamily = "contract_storage"

	// CFClassInfo maps class hash -> class record.
	// Key: raw 32-byte class hash.
	CFClassInfo ColumnFamily = "class_info"
)

// ColumnFamilies lists every column family in iteration order.
// This slice is the single source of truth for store enumeration.
var ColumnFamilies = []ColumnFamily{
	CFMeta,
	CFBlockInfo,
	CFBlockNumber,
	CFTxInfo,
	CFTxLocation,
	CFStateDiff,
	CFContractInfo,
	CFContractStorage,
	CFClassInfo,
}

// schemaVersions declares the expected value schema version per column
// family. DecodeError fires when stored bytes carry a different version;
// bytes are never silently reinterpreted.
var schemaVersions = map[ColumnFamily]byte{
	CFMeta:            1,
	CFBlockInfo:       1,
	CFBlockNumber:     1,
	CFTxInfo:          1,
	CFTxLocation:      1,
	CFStateDiff:       1,
	CFContractInfo:    1,
	CFContractStorage: 1,
	CFClassInfo:       1,
}

// keyEncodings documents the key encoding per column family, surfaced
// through ColumnFamilyDescriptor for raw inspection.
var keyEncodings = map[ColumnFamily]string{
	CFMeta:            "literal",
	CFBlockInfo:       "u64 big-endian",
	CFBlockNumber:     "felt (32 bytes)",
	CFTxInfo:          "u64 big-endian || u64 big-endian",
	CFTxLocation:      "felt (32 bytes)",
	CFStateDiff:       "u64 big-endian",
	CFContractInfo:    "felt (32 bytes)",
	CFContractStorage: "felt (32 bytes) || felt (32 bytes)",
	CFClassInfo:       "felt (32 bytes)",
}

// MetaChainTipKey is the CFMeta key holding the latest block number.
var MetaChainTipKey = []byte("CHAIN_TIP")

// Valid reports whether cf names a declared column family.
func (cf ColumnFamily) Valid() bool {
	_, ok := schemaVersions[cf]
	return ok
}

// KeyEncoding returns the documented key encoding of the column family.
func (cf ColumnFamily) KeyEncoding() string {
	return keyEncodings[cf]
}

// SchemaVersion returns the expected value schema version of the column
// family.
func (cf ColumnFamily) SchemaVersion() byte {
	return schemaVersions[cf]
}

// Prefix returns the key prefix under which the column family's entries are
// stored. The trailing separator keeps family prefixes from shadowing each
// other ("block_n" vs "block_number").
func (cf ColumnFamily) Prefix() []byte {
	return []byte(fmt.Sprintf("/cf/%s/", cf))
}

func cfPrefix(cf ColumnFamily) []byte {
	return cf.Prefix()
}

// prefixUpperBound returns the smallest key greater than every key carrying
// the given prefix, for use as an exclusive iterator upper bound.
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff; no upper bound
}

// EncodeUint64 encodes n as 8 big-endian bytes.
func EncodeUint64(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// DecodeUint64 decodes 8 big-endian bytes into a uint64.
func DecodeUint64(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: invalid uint64 length %d", ErrInvalidKey, len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// BlockNumberKey returns the CFBlockInfo / CFStateDiff key for a block number.
func BlockNumberKey(number uint64) []byte {
	return EncodeUint64(number)
}

// ParseBlockNumberKey parses a CFBlockInfo key back into a block number.
func ParseBlockNumberKey(key []byte) (uint64, error) {
	return DecodeUint64(key)
}

// BlockHashKey returns the CFBlockNumber key for a block hash.
func BlockHashKey(hash types.Felt) []byte {
	return hash.Bytes()
}

// TxKey returns the CFTxInfo key for a transaction's composite identity.
func TxKey(blockNumber, txIndex uint64) []byte {
	key := make([]byte, 16)
	binary.BigEndian.PutUint64(key[:8], blockNumber)
	binary.BigEndian.PutUint64(key[8:], txIndex)
	return key
}

// ParseTxKey parses a CFTxInfo key into (block number, tx index).
func ParseTxKey(key []byte) (uint64, uint64, error) {
	if len(key) != 16 {
		return 0, 0, fmt.Errorf("%w: invalid tx key length %d", ErrInvalidKey, len(key))
	}
	return binary.BigEndian.Uint64(key[:8]), binary.BigEndian.Uint64(key[8:]), nil
}

// TxHashKey returns the CFTxLocation key for a transaction hash.
func TxHashKey(hash types.Felt) []byte {
	return hash.Bytes()
}

// ContractKey returns the CFContractInfo key for a contract address.
func ContractKey(address types.Felt) []byte {
	return address.Bytes()
}

// ContractStorageKey returns the CFContractStorage key for one storage slot.
func ContractStorageKey(address, slot types.Felt) []byte {
	key := make([]byte, 64)
	copy(key[:32], address.Bytes())
	copy(key[32:], slot.Bytes())
	return key
}

// ContractStoragePrefix returns the CFContractStorage key prefix covering all
// slots of one contract.
func ContractStoragePrefix(address types.Felt) []byte {
	return address.Bytes()
}

// ParseContractStorageKey parses a CFContractStorage key into (address, slot).
func ParseContractStorageKey(key []byte) (types.Felt, types.Felt, error) {
	if len(key) != 64 {
		return types.Felt{}, types.Felt{}, fmt.Errorf("%w: invalid storage key length %d", ErrInvalidKey, len(key))
	}
	var addr, slot types.Felt
	copy(addr[:], key[:32])
	copy(slot[:], key[32:])
	return addr, slot, nil
}

// ClassKey returns the CFClassInfo key for a class hash.
func ClassKey(hash types.Felt) []byte {
	return hash.Bytes()
}
