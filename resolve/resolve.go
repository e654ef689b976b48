// Package resolve classifies free-form search tokens into store entities.
package resolve

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/starklens/starklens/storage"
	"github.com/starklens/starklens/types"
)

// ErrAmbiguousToken indicates a hash token that matched more than one entity
// kind. Callers must disambiguate by querying a specific endpoint.
var ErrAmbiguousToken = errors.New("token matches multiple entities")

// ErrInvalidToken indicates a token that is neither a block number nor a
// felt-sized hex string.
var ErrInvalidToken = errors.New("token is not a block number or hash")

// StoreProber is the slice of the primary store the resolver needs.
type StoreProber interface {
	TipNumber() (uint64, error)
	GetBlockNumberByHash(hash types.Felt) (uint64, error)
	HasBlockHash(hash types.Felt) (bool, error)
	HasTransactionHash(hash types.Felt) (bool, error)
	HasContract(address types.Felt) (bool, error)
	HasClass(hash types.Felt) (bool, error)
}

// Resolver resolves search tokens against a primary store.
type Resolver struct {
	store StoreProber
}

// New creates a resolver over the given store.
func New(store StoreProber) *Resolver {
	return &Resolver{store: store}
}

// Resolve classifies a token and verifies the entity exists.
//
// A decimal integer resolves to a block number. A hex string (with or
// without 0x prefix, up to 64 digits) is probed as block hash, transaction
// hash, contract address and class hash, in that order of presentation.
// Exactly one probe hit resolves to that entity; several hits return
// ErrAmbiguousToken; none returns storage.ErrNotFound.
func (r *Resolver) Resolve(token string) (*types.EntityRef, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	if number, err := strconv.ParseUint(token, 10, 64); err == nil {
		return r.resolveBlockNumber(number)
	}

	felt, err := types.HexToFelt(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	return r.resolveFelt(felt)
}

func (r *Resolver) resolveBlockNumber(number uint64) (*types.EntityRef, error) {
	tip, err := r.store.TipNumber()
	if err != nil {
		return nil, err
	}
	if number > tip {
		return nil, storage.ErrNotFound
	}
	return &types.EntityRef{Kind: types.KindBlock, BlockNumber: number}, nil
}

func (r *Resolver) resolveFelt(felt types.Felt) (*types.EntityRef, error) {
	var matches []types.EntityRef

	if ok, err := r.store.HasBlockHash(felt); err != nil {
		return nil, err
	} else if ok {
		// Block hashes resolve to the block's number.
		number, err := r.store.GetBlockNumberByHash(felt)
		if err != nil {
			return nil, err
		}
		matches = append(matches, types.EntityRef{Kind: types.KindBlock, BlockNumber: number})
	}
	if ok, err := r.store.HasTransactionHash(felt); err != nil {
		return nil, err
	} else if ok {
		matches = append(matches, types.EntityRef{Kind: types.KindTx, TxHash: felt})
	}
	if ok, err := r.store.HasContract(felt); err != nil {
		return nil, err
	} else if ok {
		matches = append(matches, types.EntityRef{Kind: types.KindContract, Address: felt})
	}
	if ok, err := r.store.HasClass(felt); err != nil {
		return nil, err
	} else if ok {
		matches = append(matches, types.EntityRef{Kind: types.KindClass, ClassHash: felt})
	}

	switch len(matches) {
	case 0:
		return nil, storage.ErrNotFound
	case 1:
		return &matches[0], nil
	default:
		kinds := make([]string, len(matches))
		for i, m := range matches {
			kinds[i] = string(m.Kind)
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousToken, strings.Join(kinds, ", "))
	}
}
