// Package index maintains a queryable SQLite projection of the primary
// store: blocks, transactions, events and state-diff rows, advanced block by
// block behind a persisted watermark.
package index

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/starklens/starklens/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the secondary index database. All projection writes go through
// ApplyBlock, which commits one block's rows and the advanced watermark in a
// single transaction; a crash mid-sync therefore leaves the index at a
// consistent earlier watermark rather than with partial rows.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	closed atomic.Bool
}

// Open opens (or creates) the index database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("index path cannot be empty")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids lock contention
	// between the syncer and readers under WAL.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate index database: %w", err)
	}

	return &Store{
		db:     db,
		path:   path,
		logger: zap.NewNop(),
	}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("init migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Path returns the index database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the index database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureNotClosed() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Watermark returns the highest block number projected into the index, or
// -1 when nothing has been projected yet.
func (s *Store) Watermark() (int64, error) {
	if err := s.ensureNotClosed(); err != nil {
		return 0, err
	}
	var watermark int64
	err := s.db.QueryRow(`SELECT watermark FROM sync_state WHERE id = 1`).Scan(&watermark)
	if err != nil {
		return 0, fmt.Errorf("failed to read watermark: %w", err)
	}
	return watermark, nil
}

// SyncState returns the persisted sync record.
func (s *Store) SyncState() (*types.IndexSyncState, error) {
	if err := s.ensureNotClosed(); err != nil {
		return nil, err
	}
	state := &types.IndexSyncState{}
	err := s.db.QueryRow(`
		SELECT watermark, last_sync_at, last_error,
		       total_transactions, failed_transactions, total_events
		FROM sync_state WHERE id = 1`).Scan(
		&state.Watermark, &state.LastSyncAt, &state.LastError,
		&state.TotalTransactions, &state.FailedTransactions, &state.TotalEvents,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}
	return state, nil
}

// ApplyBlock projects one block into the index. The block's rows and the
// advanced watermark commit in a single transaction. Re-applying an already
// projected block number is harmless: all projection writes are upserts, the
// watermark only moves forward, and the aggregate counters do not advance
// again.
func (s *Store) ApplyBlock(block *types.Block, txs []*types.Transaction, diff *types.StateDiff) error {
	if err := s.ensureNotClosed(); err != nil {
		return err
	}

	dbtx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin block transaction: %w", err)
	}
	defer dbtx.Rollback()

	if err := insertBlock(dbtx, block); err != nil {
		return err
	}

	var failed, events uint64
	for _, tx := range txs {
		if err := insertTransaction(dbtx, tx); err != nil {
			return err
		}
		if tx.Status == types.TxReverted {
			failed++
		}
		events += uint64(len(tx.Events))
	}

	if diff != nil {
		if err := applyStateDiff(dbtx, block.Number, diff); err != nil {
			return err
		}
	}

	// Counters only advance for blocks beyond the watermark; a re-applied
	// block replaces its rows but must not inflate the aggregates.
	var watermark int64
	if err := dbtx.QueryRow(`SELECT watermark FROM sync_state WHERE id = 1`).Scan(&watermark); err != nil {
		return fmt.Errorf("failed to read watermark: %w", err)
	}
	total := uint64(len(txs))
	if int64(block.Number) <= watermark {
		total, failed, events = 0, 0, 0
	}

	_, err = dbtx.Exec(`
		UPDATE sync_state SET
			watermark = MAX(watermark, ?),
			last_sync_at = ?,
			last_error = '',
			total_transactions = total_transactions + ?,
			failed_transactions = failed_transactions + ?,
			total_events = total_events + ?
		WHERE id = 1`,
		int64(block.Number), time.Now().Unix(), total, failed, events)
	if err != nil {
		return fmt.Errorf("failed to advance watermark: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit block %d: %w", block.Number, err)
	}
	return nil
}

func insertBlock(dbtx *sql.Tx, block *types.Block) error {
	_, err := dbtx.Exec(`
		INSERT OR REPLACE INTO blocks
			(number, hash, parent_hash, state_root, sequencer_address,
			 timestamp, gas_used, tx_count, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		block.Number, block.Hash.Hex(), block.ParentHash.Hex(),
		block.StateRoot.Hex(), block.SequencerAddress.Hex(),
		block.Timestamp, block.GasUsed, block.TransactionCount(), block.EventCount)
	if err != nil {
		return fmt.Errorf("failed to insert block %d: %w", block.Number, err)
	}
	return nil
}

func insertTransaction(dbtx *sql.Tx, tx *types.Transaction) error {
	_, err := dbtx.Exec(`
		INSERT OR REPLACE INTO transactions
			(hash, block_number, tx_index, type, version, status, revert_reason,
			 sender_address, nonce, actual_fee, fee_unit, calldata_size, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Hash.Hex(), tx.BlockNumber, tx.Index, string(tx.Type), tx.Version,
		string(tx.Status), tx.RevertReason, tx.SenderAddress.Hex(), tx.Nonce,
		tx.ActualFee, tx.FeeUnit, len(tx.Calldata), len(tx.Events))
	if err != nil {
		return fmt.Errorf("failed to insert tx %s: %w", tx.Hash.Hex(), err)
	}

	// Re-applied blocks replace the transaction row above; drop the old
	// event rows so they are not duplicated.
	if _, err := dbtx.Exec(`DELETE FROM events WHERE tx_hash = ?`, tx.Hash.Hex()); err != nil {
		return fmt.Errorf("failed to clear events of tx %s: %w", tx.Hash.Hex(), err)
	}
	for i, event := range tx.Events {
		var key0 any
		if len(event.Keys) > 0 {
			key0 = event.Keys[0].Hex()
		}
		_, err := dbtx.Exec(`
			INSERT INTO events
				(tx_hash, block_number, event_index, from_address, key0, key_count, data_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tx.Hash.Hex(), tx.BlockNumber, i, event.FromAddress.Hex(),
			key0, len(event.Keys), len(event.Data))
		if err != nil {
			return fmt.Errorf("failed to insert event %d of tx %s: %w", i, tx.Hash.Hex(), err)
		}
	}
	return nil
}

func applyStateDiff(dbtx *sql.Tx, blockNumber uint64, diff *types.StateDiff) error {
	for _, deployed := range diff.DeployedContracts {
		_, err := dbtx.Exec(`
			INSERT OR REPLACE INTO deployed_contracts
				(contract_address, class_hash, deployed_at_block)
			VALUES (?, ?, ?)`,
			deployed.Address.Hex(), deployed.ClassHash.Hex(), blockNumber)
		if err != nil {
			return fmt.Errorf("failed to insert deployed contract: %w", err)
		}
		if err := upsertContractClass(dbtx, deployed.Address, deployed.ClassHash, blockNumber); err != nil {
			return err
		}
	}

	for _, storageDiff := range diff.StorageDiffs {
		for _, entry := range storageDiff.Entries {
			_, err := dbtx.Exec(`
				INSERT OR REPLACE INTO storage_updates
					(block_number, contract_address, storage_key, storage_value)
				VALUES (?, ?, ?, ?)`,
				blockNumber, storageDiff.Address.Hex(), entry.Key.Hex(), entry.Value.Hex())
			if err != nil {
				return fmt.Errorf("failed to insert storage update: %w", err)
			}
		}
	}

	for _, declared := range diff.DeclaredClasses {
		_, err := dbtx.Exec(`
			INSERT OR REPLACE INTO classes
				(class_hash, compiled_class_hash, declared_at_block)
			VALUES (?, ?, ?)`,
			declared.ClassHash.Hex(), declared.CompiledClassHash.Hex(), blockNumber)
		if err != nil {
			return fmt.Errorf("failed to insert declared class: %w", err)
		}
	}

	for _, nonce := range diff.Nonces {
		_, err := dbtx.Exec(`
			INSERT INTO contracts (address, class_hash, nonce, last_updated_block)
			VALUES (?, '', ?, ?)
			ON CONFLICT (address) DO UPDATE SET
				nonce = excluded.nonce,
				last_updated_block = excluded.last_updated_block`,
			nonce.ContractAddress.Hex(), nonce.Nonce, blockNumber)
		if err != nil {
			return fmt.Errorf("failed to update nonce: %w", err)
		}
	}

	for _, replaced := range diff.ReplacedClasses {
		if err := upsertContractClass(dbtx, replaced.ContractAddress, replaced.ClassHash, blockNumber); err != nil {
			return err
		}
	}
	return nil
}

func upsertContractClass(dbtx *sql.Tx, address, classHash types.Felt, blockNumber uint64) error {
	_, err := dbtx.Exec(`
		INSERT INTO contracts (address, class_hash, nonce, last_updated_block)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (address) DO UPDATE SET
			class_hash = excluded.class_hash,
			last_updated_block = excluded.last_updated_block`,
		address.Hex(), classHash.Hex(), blockNumber)
	if err != nil {
		return fmt.Errorf("failed to update contract class: %w", err)
	}
	return nil
}

// RecordSyncError persists the failure message of the latest sync attempt.
// The watermark is untouched: the index stays consistent at the last
// committed block.
func (s *Store) RecordSyncError(msg string) error {
	if err := s.ensureNotClosed(); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE sync_state SET last_error = ?, last_sync_at = ? WHERE id = 1`,
		msg, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record sync error: %w", err)
	}
	return nil
}

// Reset drops all projected rows and rewinds the watermark to -1. Callers
// must guarantee no sync pass is running.
func (s *Store) Reset() error {
	if err := s.ensureNotClosed(); err != nil {
		return err
	}

	dbtx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer dbtx.Rollback()

	for _, table := range []string{
		"events", "transactions", "storage_updates",
		"deployed_contracts", "classes", "contracts", "blocks",
	} {
		if _, err := dbtx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = dbtx.Exec(`
		UPDATE sync_state SET
			watermark = -1, last_sync_at = 0, last_error = '',
			total_transactions = 0, failed_transactions = 0, total_events = 0
		WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	s.logger.Info("index reset", zap.String("path", s.path))
	return nil
}
