package storage

import (
	"bytes"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/starklens/starklens/types"
)

// Direction selects the iteration order of a scan.
type Direction int

const (
	// Ascending iterates in the column family's native key order.
	Ascending Direction = iota
	// Descending iterates in reverse key order.
	Descending
)

// RawEntry is one raw key/value pair from a column family scan. Key is
// relative to the column family (the family prefix is stripped).
type RawEntry struct {
	Key   []byte
	Value []byte
}

// Config holds store configuration.
type Config struct {
	// Path to the store directory.
	Path string

	// Cache size in MB (default: 64).
	Cache int

	// MaxOpenFiles is the maximum number of open files (default: 500).
	MaxOpenFiles int
}

// DefaultConfig returns a Config with reasonable defaults for the given path.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:         path,
		Cache:        64,
		MaxOpenFiles: 500,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if c.Cache < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.MaxOpenFiles < 0 {
		return fmt.Errorf("max open files cannot be negative")
	}
	return nil
}

// Store provides read-only access to the column-family-organized primary
// store. It never acquires write locks; any number of Stores may open the
// same path concurrently, and every read is snapshot-consistent per call.
type Store struct {
	db     *pebble.DB
	path   string
	logger *zap.Logger
	closed atomic.Bool
}

// Open opens the primary store in read-only mode. It returns an error
// wrapping ErrStoreUnavailable if the path is missing or is not a valid
// store directory.
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if info, err := os.Stat(cfg.Path); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a store directory", ErrStoreUnavailable, cfg.Path)
	}

	opts := &pebble.Options{
		Cache:            pebble.NewCache(int64(cfg.Cache) << 20),
		MaxOpenFiles:     cfg.MaxOpenFiles,
		ReadOnly:         true,
		ErrorIfNotExists: true,
	}

	db, err := pebble.Open(cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &Store{
		db:     db,
		path:   cfg.Path,
		logger: zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Path returns the store directory path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the store's resources. The store must not be used after
// Close returns.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil // already closed
	}
	return s.db.Close()
}

func (s *Store) ensureNotClosed() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Get returns the raw value stored under key in the given column family.
// Returns ErrNotFound when the key is absent.
func (s *Store) Get(cf ColumnFamily, key []byte) ([]byte, error) {
	if err := s.ensureNotClosed(); err != nil {
		return nil, err
	}
	if !cf.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumnFamily, cf)
	}

	full := append(cfPrefix(cf), key...)
	value, closer, err := s.db.Get(full)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s key: %w", cf, err)
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Has reports whether key exists in the given column family.
func (s *Store) Has(cf ColumnFamily, key []byte) (bool, error) {
	_, err := s.Get(cf, key)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// scanPreallocCap bounds the result preallocation of a scan. The requested
// limit is caller input and must never size an allocation directly.
const scanPreallocCap = 1024

// Scan returns up to limit entries of a column family in the requested
// direction, starting at start (inclusive; nil means the first key for
// Ascending and the last key for Descending). The scan is bounded by limit
// and restartable: passing the key after the last returned entry continues
// where the previous scan stopped.
func (s *Store) Scan(cf ColumnFamily, start []byte, dir Direction, limit int) ([]RawEntry, error) {
	if limit < 0 {
		limit = 0
	}
	return s.scanOffset(cf, start, dir, 0, uint64(limit))
}

// scanOffset is Scan with the first offset matching entries stepped over
// inside the iterator, so a large offset costs iteration, never allocation.
func (s *Store) scanOffset(cf ColumnFamily, start []byte, dir Direction, offset, limit uint64) ([]RawEntry, error) {
	if err := s.ensureNotClosed(); err != nil {
		return nil, err
	}
	if !cf.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumnFamily, cf)
	}
	if limit == 0 {
		return nil, nil
	}

	prefix := cfPrefix(cf)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s iterator: %w", cf, err)
	}
	defer iter.Close()

	var ok bool
	switch dir {
	case Ascending:
		if start == nil {
			ok = iter.First()
		} else {
			ok = iter.SeekGE(append(prefix, start...))
		}
	case Descending:
		if start == nil {
			ok = iter.Last()
		} else {
			// SeekLT positions before the key; include start itself.
			ok = iter.SeekGE(append(prefix, start...))
			if ok && !bytes.Equal(iter.Key(), append(prefix, start...)) {
				ok = iter.Prev()
			} else if !ok {
				ok = iter.Last()
			}
		}
	default:
		return nil, fmt.Errorf("invalid scan direction %d", dir)
	}

	prealloc := limit
	if prealloc > scanPreallocCap {
		prealloc = scanPreallocCap
	}
	entries := make([]RawEntry, 0, prealloc)
	var skipped uint64
	for ; ok && uint64(len(entries)) < limit; ok = s.step(iter, dir) {
		if skipped < offset {
			skipped++
			continue
		}
		key := make([]byte, len(iter.Key())-len(prefix))
		copy(key, iter.Key()[len(prefix):])

		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s value: %w", cf, err)
		}
		val := make([]byte, len(value))
		copy(val, value)

		entries = append(entries, RawEntry{Key: key, Value: val})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%s scan failed: %w", cf, err)
	}

	return entries, nil
}

func (s *Store) step(iter *pebble.Iterator, dir Direction) bool {
	if dir == Descending {
		return iter.Prev()
	}
	return iter.Next()
}

// CountKeys returns the exact number of entries in a column family by
// iterating it. Can be expensive for large families.
func (s *Store) CountKeys(cf ColumnFamily) (uint64, error) {
	if err := s.ensureNotClosed(); err != nil {
		return 0, err
	}
	if !cf.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumnFamily, cf)
	}

	prefix := cfPrefix(cf)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open %s iterator: %w", cf, err)
	}
	defer iter.Close()

	var count uint64
	for ok := iter.First(); ok; ok = iter.Next() {
		count++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("%s count failed: %w", cf, err)
	}
	return count, nil
}

// CountKeysWithPrefix returns the exact number of keys in a column family
// that start with the given key prefix.
func (s *Store) CountKeysWithPrefix(cf ColumnFamily, keyPrefix []byte) (uint64, error) {
	if err := s.ensureNotClosed(); err != nil {
		return 0, err
	}
	if !cf.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumnFamily, cf)
	}

	full := append(cfPrefix(cf), keyPrefix...)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: full,
		UpperBound: prefixUpperBound(full),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open %s iterator: %w", cf, err)
	}
	defer iter.Close()

	var count uint64
	for ok := iter.First(); ok; ok = iter.Next() {
		count++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("%s prefix count failed: %w", cf, err)
	}
	return count, nil
}

// ListColumnFamilies enumerates the declared column families with their key
// encodings and entry counts.
func (s *Store) ListColumnFamilies() ([]types.ColumnFamilyDescriptor, error) {
	if err := s.ensureNotClosed(); err != nil {
		return nil, err
	}

	descriptors := make([]types.ColumnFamilyDescriptor, 0, len(ColumnFamilies))
	for _, cf := range ColumnFamilies {
		count, err := s.CountKeys(cf)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, types.ColumnFamilyDescriptor{
			Name:        string(cf),
			KeyEncoding: cf.KeyEncoding(),
			EntryCount:  count,
		})
	}
	return descriptors, nil
}
