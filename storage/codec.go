package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/starklens/starklens/types"
)

// Every stored value carries a one-byte schema-version envelope followed by
// an RLP payload. The version must equal the column family's declared
// schema version; a mismatch is a DecodeError, never a silent reinterpret.

// encodeEnvelope wraps an RLP payload with the column family's schema version.
func encodeEnvelope(cf ColumnFamily, payload []byte) []byte {
	out := make([]byte, 0, len(payload)+1)
	out = append(out, cf.SchemaVersion())
	return append(out, payload...)
}

// openEnvelope validates the version byte and returns the RLP payload.
func openEnvelope(cf ColumnFamily, key, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &DecodeError{CF: cf, Key: key, Reason: "empty value"}
	}
	if got, want := data[0], cf.SchemaVersion(); got != want {
		return nil, &DecodeError{
			CF:     cf,
			Key:    key,
			Reason: fmt.Sprintf("schema version mismatch: got %d, want %d", got, want),
		}
	}
	return data[1:], nil
}

func encodeEntity(cf ColumnFamily, v interface{}) ([]byte, error) {
	payload, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, err
	}
	return encodeEnvelope(cf, payload), nil
}

func decodeEntity(cf ColumnFamily, key, data []byte, v interface{}) error {
	payload, err := openEnvelope(cf, key, data)
	if err != nil {
		return err
	}
	if err := rlp.DecodeBytes(payload, v); err != nil {
		return &DecodeError{CF: cf, Key: key, Reason: err.Error()}
	}
	return nil
}

// EncodeBlock encodes a block record for CFBlockInfo.
func EncodeBlock(block *types.Block) ([]byte, error) {
	return encodeEntity(CFBlockInfo, block)
}

// DecodeBlock decodes a CFBlockInfo value.
func DecodeBlock(key, data []byte) (*types.Block, error) {
	var block types.Block
	if err := decodeEntity(CFBlockInfo, key, data, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// EncodeBlockNumber encodes a block number value for CFBlockNumber.
func EncodeBlockNumber(number uint64) ([]byte, error) {
	return encodeEntity(CFBlockNumber, number)
}

// DecodeBlockNumber decodes a CFBlockNumber value.
func DecodeBlockNumber(key, data []byte) (uint64, error) {
	var number uint64
	if err := decodeEntity(CFBlockNumber, key, data, &number); err != nil {
		return 0, err
	}
	return number, nil
}

// EncodeTransaction encodes a transaction record for CFTxInfo.
func EncodeTransaction(tx *types.Transaction) ([]byte, error) {
	return encodeEntity(CFTxInfo, tx)
}

// DecodeTransaction decodes a CFTxInfo value.
func DecodeTransaction(key, data []byte) (*types.Transaction, error) {
	var tx types.Transaction
	if err := decodeEntity(CFTxInfo, key, data, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// EncodeTxLocation encodes a transaction location for CFTxLocation.
func EncodeTxLocation(loc *types.TxLocation) ([]byte, error) {
	return encodeEntity(CFTxLocation, loc)
}

// DecodeTxLocation decodes a CFTxLocation value.
func DecodeTxLocation(key, data []byte) (*types.TxLocation, error) {
	var loc types.TxLocation
	if err := decodeEntity(CFTxLocation, key, data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// EncodeStateDiff encodes a state diff record for CFStateDiff.
func EncodeStateDiff(diff *types.StateDiff) ([]byte, error) {
	return encodeEntity(CFStateDiff, diff)
}

// DecodeStateDiff decodes a CFStateDiff value.
func DecodeStateDiff(key, data []byte) (*types.StateDiff, error) {
	var diff types.StateDiff
	if err := decodeEntity(CFStateDiff, key, data, &diff); err != nil {
		return nil, err
	}
	return &diff, nil
}

// EncodeContract encodes a contract record for CFContractInfo.
func EncodeContract(contract *types.Contract) ([]byte, error) {
	return encodeEntity(CFContractInfo, contract)
}

// DecodeContract decodes a CFContractInfo value.
func DecodeContract(key, data []byte) (*types.Contract, error) {
	var contract types.Contract
	if err := decodeEntity(CFContractInfo, key, data, &contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

// EncodeStorageValue encodes a storage slot value for CFContractStorage.
func EncodeStorageValue(value types.Felt) ([]byte, error) {
	return encodeEntity(CFContractStorage, value)
}

// DecodeStorageValue decodes a CFContractStorage value.
func DecodeStorageValue(key, data []byte) (types.Felt, error) {
	var value types.Felt
	if err := decodeEntity(CFContractStorage, key, data, &value); err != nil {
		return types.Felt{}, err
	}
	return value, nil
}

// EncodeClass encodes a class record for CFClassInfo.
func EncodeClass(class *types.Class) ([]byte, error) {
	return encodeEntity(CFClassInfo, class)
}

// DecodeClass decodes a CFClassInfo value.
func DecodeClass(key, data []byte) (*types.Class, error) {
	var class types.Class
	if err := decodeEntity(CFClassInfo, key, data, &class); err != nil {
		return nil, err
	}
	return &class, nil
}

// EncodeChainTip encodes the chain tip value for CFMeta.
func EncodeChainTip(number uint64) ([]byte, error) {
	return encodeEntity(CFMeta, number)
}

// DecodeChainTip decodes the CFMeta chain tip value.
func DecodeChainTip(data []byte) (uint64, error) {
	var number uint64
	if err := decodeEntity(CFMeta, MetaChainTipKey, data, &number); err != nil {
		return 0, err
	}
	return number, nil
}
