package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Common errors
var (
	// ErrStoreUnavailable is returned when the primary store cannot be
	// opened (missing path or not a valid store directory). Fatal at startup.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a key or entity is absent. This is a
	// normal, expected outcome and is never logged as an error.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrInvalidKey is returned when a key does not match the column
	// family's declared encoding.
	ErrInvalidKey = errors.New("invalid key")

	// ErrUnknownColumnFamily is returned for undeclared column family names.
	ErrUnknownColumnFamily = errors.New("unknown column family")
)

// DecodeError reports a schema mismatch or corrupt record in a column
// family. It is surfaced to the caller with the offending location and is
// never masked by returning a partial or default entity.
type DecodeError struct {
	CF     ColumnFamily
	Key    []byte
	Reason string
}

func (e *DecodeError) Error() string {
	if len(e.Key) == 0 {
		return fmt.Sprintf("decode %s: %s", e.CF, e.Reason)
	}
	return fmt.Sprintf("decode %s key %s: %s", e.CF, hexutil.Encode(e.Key), e.Reason)
}

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
