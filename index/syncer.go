package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/starklens/starklens/storage"
	"github.com/starklens/starklens/types"
)

// ChainReader is the slice of the primary store the syncer needs.
type ChainReader interface {
	TipNumber() (uint64, error)
	GetBlockByNumber(number uint64) (*types.Block, error)
	GetTransactionsByBlock(blockNumber uint64) ([]*types.Transaction, error)
	GetStateDiff(blockNumber uint64) (*types.StateDiff, error)
}

// State is the syncer's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateSyncing
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Syncer advances the index watermark toward the primary store's tip, one
// block per commit. A single goroutine runs sync passes; TriggerSync requests
// coalesce while a pass is running, so concurrent triggers never produce
// concurrent passes.
type Syncer struct {
	store   *Store
	chain   ChainReader
	logger  *zap.Logger
	metrics *Metrics

	interval time.Duration

	mu      sync.Mutex
	state   State
	trigger chan struct{}
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithInterval sets the periodic sync interval (default: 30s; 0 disables
// periodic passes, leaving only explicit triggers).
func WithInterval(interval time.Duration) SyncerOption {
	return func(s *Syncer) { s.interval = interval }
}

// WithLogger sets the syncer logger.
func WithLogger(logger *zap.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = logger }
}

// WithMetrics sets the syncer metrics.
func WithMetrics(metrics *Metrics) SyncerOption {
	return func(s *Syncer) { s.metrics = metrics }
}

// NewSyncer creates a syncer projecting chain into store.
func NewSyncer(store *Store, chain ChainReader, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		store:    store,
		chain:    chain,
		logger:   zap.NewNop(),
		interval: 30 * time.Second,
		state:    StateIdle,
		trigger:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current syncer state.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status composes the persisted sync record with the live store tip and
// syncer state.
func (s *Syncer) Status() (*types.IndexSyncState, error) {
	state, err := s.store.SyncState()
	if err != nil {
		return nil, err
	}

	tip, err := s.chain.TipNumber()
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		// An empty store has no tip; the index is synced iff it is empty too.
		state.Synced = state.Watermark < 0
		return state, nil
	}

	state.LatestBlock = tip
	state.Synced = state.Watermark >= 0 && uint64(state.Watermark) >= tip
	return state, nil
}

// TriggerSync requests a sync pass. It never blocks: if a pass is already
// running or pending, the request coalesces into it. Returns the state the
// syncer was in when the trigger landed.
func (s *Syncer) TriggerSync() State {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	select {
	case s.trigger <- struct{}{}:
	default: // a pass is already pending
	}
	return state
}

// Run processes periodic and triggered sync passes until ctx is canceled.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Info("syncer started", zap.Duration("interval", s.interval))

	var ticker *time.Ticker
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Initial pass brings a fresh index up before the first tick.
	s.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("syncer stopped")
			return ctx.Err()
		case <-tick:
			s.runPass(ctx)
		case <-s.trigger:
			s.runPass(ctx)
		}
	}
}

func (s *Syncer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SyncerState.Set(float64(state))
	}
}

// runPass advances the watermark to the current tip. Each block commits
// independently, so cancellation or failure mid-pass leaves all prior blocks
// durably indexed.
func (s *Syncer) runPass(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateSyncing {
		s.mu.Unlock()
		return
	}
	s.state = StateSyncing
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.SyncerState.Set(float64(StateSyncing))
	}

	start := time.Now()
	indexed, err := s.syncToTip(ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.setState(StateIdle)
		if s.metrics != nil {
			s.metrics.SyncPassesTotal.WithLabelValues("ok").Inc()
			s.metrics.SyncPassDuration.Observe(elapsed.Seconds())
		}
		if indexed > 0 {
			s.logger.Info("sync pass complete",
				zap.Uint64("blocks_indexed", indexed),
				zap.Duration("elapsed", elapsed))
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.setState(StateIdle)
		if s.metrics != nil {
			s.metrics.SyncPassesTotal.WithLabelValues("canceled").Inc()
		}
		s.logger.Info("sync pass canceled", zap.Uint64("blocks_indexed", indexed))
	default:
		s.setState(StateFailed)
		if s.metrics != nil {
			s.metrics.SyncPassesTotal.WithLabelValues("error").Inc()
		}
		s.logger.Error("sync pass failed",
			zap.Uint64("blocks_indexed", indexed),
			zap.Error(err))
		if recErr := s.store.RecordSyncError(err.Error()); recErr != nil {
			s.logger.Error("failed to record sync error", zap.Error(recErr))
		}
	}
}

func (s *Syncer) syncToTip(ctx context.Context) (uint64, error) {
	tip, err := s.chain.TipNumber()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil // empty store, nothing to project
		}
		return 0, fmt.Errorf("failed to read store tip: %w", err)
	}
	if s.metrics != nil {
		s.metrics.StoreTip.Set(float64(tip))
	}

	watermark, err := s.store.Watermark()
	if err != nil {
		return 0, err
	}
	if watermark >= 0 && uint64(watermark) > tip {
		return 0, fmt.Errorf("%w: watermark %d, tip %d", ErrIndexAheadOfStore, watermark, tip)
	}

	var indexed uint64
	for next := watermark + 1; uint64(next) <= tip; next++ {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		number := uint64(next)
		if err := s.applyBlock(number); err != nil {
			return indexed, fmt.Errorf("block %d: %w", number, err)
		}
		indexed++

		if s.metrics != nil {
			s.metrics.Watermark.Set(float64(number))
			s.metrics.BlocksIndexedTotal.Inc()
		}
	}
	return indexed, nil
}

func (s *Syncer) applyBlock(number uint64) error {
	start := time.Now()

	block, err := s.chain.GetBlockByNumber(number)
	if err != nil {
		return fmt.Errorf("failed to read block: %w", err)
	}
	txs, err := s.chain.GetTransactionsByBlock(number)
	if err != nil {
		return fmt.Errorf("failed to read transactions: %w", err)
	}
	diff, err := s.chain.GetStateDiff(number)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read state diff: %w", err)
	}

	if err := s.store.ApplyBlock(block, txs, diff); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.BlockApplyDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

// Reset rewinds the index to empty. Rejected while a sync pass is running.
func (s *Syncer) Reset() error {
	s.mu.Lock()
	if s.state == StateSyncing {
		s.mu.Unlock()
		return ErrSyncInProgress
	}
	s.mu.Unlock()

	if err := s.store.Reset(); err != nil {
		return err
	}
	s.setState(StateIdle)
	if s.metrics != nil {
		s.metrics.Watermark.Set(-1)
	}
	return nil
}
