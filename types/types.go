// Package types defines the domain entities decoded from the primary
// column-family store and projected into the secondary index.
package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Felt is a 32-byte field element. Block hashes, transaction hashes,
// contract addresses, class hashes, storage keys and storage values are
// all felts in this chain's state model.
type Felt = common.Hash

// HexToFelt parses a 0x-prefixed (or bare) hex string into a Felt.
func HexToFelt(s string) (Felt, error) {
	trimmed := strings.TrimPrefix(s, "0x")
	if len(trimmed) == 0 || len(trimmed) > 64 {
		return Felt{}, fmt.Errorf("invalid felt hex %q", s)
	}
	for _, c := range trimmed {
		if !isHexDigit(c) {
			return Felt{}, fmt.Errorf("invalid felt hex %q", s)
		}
	}
	return common.HexToHash(trimmed), nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// TxStatus is the execution status of a transaction.
type TxStatus string

const (
	TxSucceeded TxStatus = "SUCCEEDED"
	TxReverted  TxStatus = "REVERTED"
)

// TxType tags the kind of a transaction.
type TxType string

const (
	TxTypeInvoke        TxType = "INVOKE"
	TxTypeDeclare       TxType = "DECLARE"
	TxTypeDeployAccount TxType = "DEPLOY_ACCOUNT"
	TxTypeL1Handler     TxType = "L1_HANDLER"
)

// ClassKind tags the variant of a declared class.
type ClassKind string

const (
	ClassSierra ClassKind = "SIERRA"
	ClassLegacy ClassKind = "LEGACY"
)

// Block is an immutable block header record. Blocks are appended to the
// primary store in contiguous number order and never updated or removed.
type Block struct {
	Number           uint64
	Hash             Felt
	ParentHash       Felt
	StateRoot        Felt
	SequencerAddress Felt
	Timestamp        uint64
	GasUsed          uint64
	TxHashes         []Felt
	EventCount       uint64
}

// TransactionCount returns the number of transactions in the block.
func (b *Block) TransactionCount() uint64 {
	return uint64(len(b.TxHashes))
}

// Transaction is a transaction together with its receipt-level outcome.
// Its composite identity within the store is (block number, index).
type Transaction struct {
	Hash          Felt
	BlockNumber   uint64
	Index         uint64
	Type          TxType
	Version       string
	Status        TxStatus
	RevertReason  string
	SenderAddress Felt
	Nonce         uint64
	ActualFee     uint64
	FeeUnit       string
	Calldata      []Felt
	Signature     []Felt
	Events        []Event
}

// Event is emitted by a contract during a transaction. Events are ordered
// by emission order within their transaction.
type Event struct {
	FromAddress Felt
	Keys        []Felt
	Data        []Felt
}

// TxLocation locates a transaction inside the primary store.
type TxLocation struct {
	BlockNumber uint64
	Index       uint64
}

// Contract is the current state of a deployed contract.
type Contract struct {
	Address   Felt
	ClassHash Felt
	Nonce     uint64
}

// StorageEntry is one (key, value) slot of a contract's storage.
type StorageEntry struct {
	Key   Felt
	Value Felt
}

// Class is a declared class definition.
type Class struct {
	Hash              Felt
	Kind              ClassKind
	CompiledClassHash Felt
	SierraSize        uint64
}

// StateDiff is the set of state changes introduced by a single block.
type StateDiff struct {
	BlockNumber       uint64
	DeployedContracts []DeployedContract
	StorageDiffs      []ContractStorageDiff
	DeclaredClasses   []DeclaredClass
	Nonces            []NonceUpdate
	ReplacedClasses   []ReplacedClass
}

// DeployedContract records a contract deployment in a state diff.
type DeployedContract struct {
	Address   Felt
	ClassHash Felt
}

// ContractStorageDiff groups the storage changes of one contract.
type ContractStorageDiff struct {
	Address Felt
	Entries []StorageEntry
}

// DeclaredClass records a class declaration in a state diff.
type DeclaredClass struct {
	ClassHash         Felt
	CompiledClassHash Felt
}

// NonceUpdate records a nonce change in a state diff.
type NonceUpdate struct {
	ContractAddress Felt
	Nonce           uint64
}

// ReplacedClass records a class replacement in a state diff.
type ReplacedClass struct {
	ContractAddress Felt
	ClassHash       Felt
}
