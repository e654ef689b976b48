package storage

import (
	"errors"
	"fmt"

	"github.com/starklens/starklens/types"
)

// Page is one cursor-stable window of an ordered scan.
type Page[T any] struct {
	Items   []T    `json:"items"`
	Offset  uint64 `json:"offset"`
	Limit   uint64 `json:"limit"`
	Total   uint64 `json:"total"`
	HasMore bool   `json:"has_more"`
}

// Order selects the presentation order of a paginated listing.
//
// Per-column-family native directions:
//   - block_info is keyed by big-endian block number, so Ascending is its
//     native order; block listings default to Descending because the caller
//     surface expects "latest first".
//   - contract_storage iterates a contract's slots in ascending storage-key
//     order; Descending is not offered there.
//
// Because the store is append-only by block number, pages over already-written
// ranges are stable; only the tail may grow between pages, which is an
// accepted staleness window rather than a correctness violation.
type Order int

const (
	// OrderDescending lists newest entries first.
	OrderDescending Order = iota
	// OrderAscending lists oldest entries first.
	OrderAscending
)

// ListBlocks returns one page of blocks. Offsets address block positions in
// the requested order: with OrderDescending, offset 0 is the tip block.
// Block numbers are contiguous, so offsets map directly to block numbers and
// page boundaries are stable cursor positions rather than re-counted scans.
func (s *Store) ListBlocks(offset, limit uint64, order Order) (*Page[*types.Block], error) {
	tip, err := s.TipNumber()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Page[*types.Block]{Items: []*types.Block{}, Offset: offset, Limit: limit}, nil
		}
		return nil, err
	}
	total := tip + 1

	page := &Page[*types.Block]{
		Items:  []*types.Block{},
		Offset: offset,
		Limit:  limit,
		Total:  total,
	}
	if offset >= total || limit == 0 {
		return page, nil
	}

	count := limit
	if remaining := total - offset; count > remaining {
		count = remaining
	}

	for i := uint64(0); i < count; i++ {
		var number uint64
		switch order {
		case OrderDescending:
			number = tip - offset - i
		case OrderAscending:
			number = offset + i
		default:
			return nil, fmt.Errorf("invalid order %d", order)
		}

		block, err := s.GetBlockByNumber(number)
		if err != nil {
			return nil, fmt.Errorf("list blocks at %d: %w", number, err)
		}
		page.Items = append(page.Items, block)
	}

	page.HasMore = offset+count < total
	return page, nil
}

// ContractStoragePage returns one page of a contract's storage slots in
// ascending storage-key order. Returns ErrNotFound when the contract does
// not exist.
func (s *Store) ContractStoragePage(address types.Felt, offset, limit uint64) (*Page[types.StorageEntry], error) {
	if _, err := s.GetContract(address); err != nil {
		return nil, err
	}

	page := &Page[types.StorageEntry]{
		Items:  []types.StorageEntry{},
		Offset: offset,
		Limit:  limit,
	}
	if limit == 0 {
		return page, nil
	}

	// Slots of one contract are contiguous under the address prefix. The
	// offset is stepped over inside the scan; if it runs past the contract's
	// slots, the first collected entry belongs to another address and the
	// page stays empty.
	prefix := ContractStoragePrefix(address)
	entries, err := s.scanOffset(CFContractStorage, prefix, Ascending, offset, limit)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		addr, slot, err := ParseContractStorageKey(entry.Key)
		if err != nil {
			return nil, err
		}
		if addr != address {
			break
		}
		value, err := DecodeStorageValue(entry.Key, entry.Value)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, types.StorageEntry{Key: slot, Value: value})
	}

	total, err := s.CountKeysWithPrefix(CFContractStorage, prefix)
	if err != nil {
		return nil, err
	}
	page.Total = total
	page.HasMore = offset+uint64(len(page.Items)) < total
	return page, nil
}
