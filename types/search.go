package types

// EntityKind identifies which entity a search token resolved to.
type EntityKind string

const (
	KindBlock    EntityKind = "block"
	KindTx       EntityKind = "transaction"
	KindContract EntityKind = "contract"
	KindClass    EntityKind = "class"
)

// EntityRef is the tagged result of resolving a search token. Exactly the
// fields relevant to Kind are populated.
type EntityRef struct {
	Kind        EntityKind `json:"kind"`
	BlockNumber uint64     `json:"block_number,omitempty"`
	TxHash      Felt       `json:"tx_hash,omitempty"`
	Address     Felt       `json:"address,omitempty"`
	ClassHash   Felt       `json:"class_hash,omitempty"`
}

// IndexSyncState is the persisted watermark record of the secondary index.
// Watermark -1 means no block has been projected yet.
type IndexSyncState struct {
	Watermark   int64  `json:"watermark"`
	LatestBlock uint64 `json:"latest_block"`
	Synced      bool   `json:"synced"`
	LastSyncAt  int64  `json:"last_sync_at,omitempty"`
	LastError   string `json:"last_error,omitempty"`

	TotalTransactions  uint64 `json:"total_transactions"`
	FailedTransactions uint64 `json:"failed_transactions"`
	TotalEvents        uint64 `json:"total_events"`
}

// ColumnFamilyDescriptor describes one named keyspace of the primary store.
type ColumnFamilyDescriptor struct {
	Name        string `json:"name"`
	KeyEncoding string `json:"key_encoding"`
	EntryCount  uint64 `json:"entry_count"`
}
