package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CFStats holds statistics for a single column family.
type CFStats struct {
	Name        string  `json:"name"`
	KeyCount    uint64  `json:"key_count"`
	FirstKeyHex *string `json:"first_key_hex"`
	LastKeyHex  *string `json:"last_key_hex"`
}

// RawKeyValue is a raw key/value pair with an optional decoded hint.
type RawKeyValue struct {
	KeyHex      string `json:"key_hex"`
	ValueHex    string `json:"value_hex"`
	ValueSize   int    `json:"value_size"`
	DecodedHint string `json:"decoded_hint,omitempty"`
}

// GetCFStats returns key count and boundary keys for a column family.
func (s *Store) GetCFStats(cf ColumnFamily) (*CFStats, error) {
	count, err := s.CountKeys(cf)
	if err != nil {
		return nil, err
	}

	stats := &CFStats{Name: string(cf), KeyCount: count}

	first, err := s.Scan(cf, nil, Ascending, 1)
	if err != nil {
		return nil, err
	}
	if len(first) > 0 {
		hex := hexutil.Encode(first[0].Key)
		stats.FirstKeyHex = &hex
	}

	last, err := s.Scan(cf, nil, Descending, 1)
	if err != nil {
		return nil, err
	}
	if len(last) > 0 {
		hex := hexutil.Encode(last[0].Key)
		stats.LastKeyHex = &hex
	}

	return stats, nil
}

// ListKeys returns up to limit raw keys of a column family after skipping
// offset keys, in ascending key order, plus whether more keys follow.
func (s *Store) ListKeys(cf ColumnFamily, offset, limit uint64) ([]string, bool, error) {
	// Scan one past the window to learn whether more keys follow.
	want := limit + 1
	if want == 0 {
		want = limit
	}
	entries, err := s.scanOffset(cf, nil, Ascending, offset, want)
	if err != nil {
		return nil, false, err
	}

	hasMore := uint64(len(entries)) > limit
	if hasMore {
		entries = entries[:limit]
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, hexutil.Encode(entry.Key))
	}
	return keys, hasMore, nil
}

// GetRawValue fetches the raw value for a key, with a best-effort decoded
// hint. Returns ErrNotFound when the key is absent.
func (s *Store) GetRawValue(cf ColumnFamily, key []byte) (*RawKeyValue, error) {
	value, err := s.Get(cf, key)
	if err != nil {
		return nil, err
	}
	return &RawKeyValue{
		KeyHex:      hexutil.Encode(key),
		ValueHex:    hexutil.Encode(value),
		ValueSize:   len(value),
		DecodedHint: s.decodeHint(cf, key, value),
	}, nil
}

// BatchGetRawValues fetches raw values for multiple keys. Absent keys are
// skipped rather than reported as errors.
func (s *Store) BatchGetRawValues(cf ColumnFamily, keys [][]byte) ([]RawKeyValue, error) {
	results := make([]RawKeyValue, 0, len(keys))
	for _, key := range keys {
		kv, err := s.GetRawValue(cf, key)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		results = append(results, *kv)
	}
	return results, nil
}

// decodeHint produces a human-readable hint for a raw key/value pair based
// on the column family's declared schema. Best effort only; raw inspection
// never fails on undecodable bytes.
func (s *Store) decodeHint(cf ColumnFamily, key, value []byte) string {
	switch cf {
	case CFMeta:
		if string(key) == string(MetaChainTipKey) {
			if tip, err := DecodeChainTip(value); err == nil {
				return fmt.Sprintf("chain tip: block %d", tip)
			}
		}
	case CFBlockInfo, CFStateDiff:
		if number, err := ParseBlockNumberKey(key); err == nil {
			return fmt.Sprintf("block %d", number)
		}
	case CFBlockNumber:
		if number, err := DecodeBlockNumber(key, value); err == nil {
			return fmt.Sprintf("block %d", number)
		}
	case CFTxInfo:
		if block, index, err := ParseTxKey(key); err == nil {
			return fmt.Sprintf("block %d, tx %d", block, index)
		}
	case CFTxLocation:
		if loc, err := DecodeTxLocation(key, value); err == nil {
			return fmt.Sprintf("block %d, tx %d", loc.BlockNumber, loc.Index)
		}
	case CFContractInfo:
		return "contract address -> class hash + nonce"
	case CFContractStorage:
		return "contract storage slot"
	case CFClassInfo:
		return fmt.Sprintf("class data, %d bytes", len(value))
	}
	if len(value) > 100 {
		return fmt.Sprintf("large value: %d bytes", len(value))
	}
	return ""
}
