package index

import "errors"

var (
	// ErrQueryRejected indicates a raw query that is not a single read-only
	// SELECT statement.
	ErrQueryRejected = errors.New("query rejected: only single SELECT statements are allowed")

	// ErrIndexAheadOfStore indicates the index watermark exceeds the primary
	// store's tip. The index was built from a different or newer store and
	// must be reset explicitly before syncing can continue.
	ErrIndexAheadOfStore = errors.New("index watermark is ahead of the store tip; reset required")

	// ErrSyncInProgress indicates a reset was requested while a sync pass is
	// running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrClosed indicates use of a closed index.
	ErrClosed = errors.New("index is closed")
)
