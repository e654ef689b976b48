package index

import (
	"context"
	"fmt"
	"strings"
)

// maxQueryRows caps the rows returned by a raw query.
const maxQueryRows = 1000

// TxFilter selects indexed transactions. Zero-valued fields do not filter.
type TxFilter struct {
	Status     string
	Type       string
	Sender     string
	FromBlock  *uint64
	ToBlock    *uint64
	WithEvents bool
}

// TxRecord is one indexed transaction row.
type TxRecord struct {
	Hash          string `json:"hash"`
	BlockNumber   uint64 `json:"block_number"`
	Index         uint64 `json:"index"`
	Type          string `json:"type"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	RevertReason  string `json:"revert_reason,omitempty"`
	SenderAddress string `json:"sender_address"`
	Nonce         uint64 `json:"nonce"`
	ActualFee     uint64 `json:"actual_fee"`
	FeeUnit       string `json:"fee_unit"`
	CalldataSize  uint64 `json:"calldata_size"`
	EventCount    uint64 `json:"event_count"`
}

// TxPage is one page of indexed transactions.
type TxPage struct {
	Items   []TxRecord `json:"items"`
	Offset  uint64     `json:"offset"`
	Limit   uint64     `json:"limit"`
	Total   uint64     `json:"total"`
	HasMore bool       `json:"has_more"`
}

// ListTransactions returns one page of indexed transactions matching the
// filter, newest first.
func (s *Store) ListTransactions(ctx context.Context, filter TxFilter, offset, limit uint64) (*TxPage, error) {
	if err := s.ensureNotClosed(); err != nil {
		return nil, err
	}

	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Sender != "" {
		conds = append(conds, "sender_address = ?")
		args = append(args, filter.Sender)
	}
	if filter.FromBlock != nil {
		conds = append(conds, "block_number >= ?")
		args = append(args, *filter.FromBlock)
	}
	if filter.ToBlock != nil {
		conds = append(conds, "block_number <= ?")
		args = append(args, *filter.ToBlock)
	}
	if filter.WithEvents {
		conds = append(conds, "event_count > 0")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total uint64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `
		SELECT hash, block_number, tx_index, type, version, status,
		       COALESCE(revert_reason, ''), sender_address, nonce,
		       actual_fee, fee_unit, calldata_size, event_count
		FROM transactions` + where + `
		ORDER BY block_number DESC, tx_index DESC
		LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	page := &TxPage{Items: []TxRecord{}, Offset: offset, Limit: limit, Total: total}
	for rows.Next() {
		var rec TxRecord
		if err := rows.Scan(
			&rec.Hash, &rec.BlockNumber, &rec.Index, &rec.Type, &rec.Version,
			&rec.Status, &rec.RevertReason, &rec.SenderAddress, &rec.Nonce,
			&rec.ActualFee, &rec.FeeUnit, &rec.CalldataSize, &rec.EventCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		page.Items = append(page.Items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transaction listing failed: %w", err)
	}

	page.HasMore = offset+uint64(len(page.Items)) < total
	return page, nil
}

// QueryResult is the outcome of a raw read-only query.
type QueryResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	Capped   bool     `json:"capped"`
}

// Query runs a raw SELECT against the index. Anything other than a single
// SELECT statement is rejected with ErrQueryRejected; results are capped at
// maxQueryRows.
func (s *Store) Query(ctx context.Context, query string) (*QueryResult, error) {
	if err := s.ensureNotClosed(); err != nil {
		return nil, err
	}
	if err := validateReadOnly(query); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if len(result.Rows) == maxQueryRows {
			result.Capped = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan query row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query iteration failed: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}

// validateReadOnly enforces the single-SELECT-statement gate. The check is
// lexical, not a SQL parse, and over-rejects: a semicolon or a blocklisted
// keyword is refused even when it only appears inside a string literal
// (`SELECT ';'` is rejected).
func validateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" {
		return ErrQueryRejected
	}
	// A remaining semicolon means multiple statements.
	if strings.Contains(trimmed, ";") {
		return ErrQueryRejected
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return ErrQueryRejected
	}

	// WITH ... must still terminate in a SELECT, and neither form may smuggle
	// in a write keyword.
	for _, forbidden := range []string{
		"insert", "update", "delete", "replace", "drop", "alter",
		"create", "attach", "detach", "pragma", "vacuum", "reindex",
	} {
		for _, field := range strings.Fields(lower) {
			if strings.Trim(field, "(),") == forbidden {
				return ErrQueryRejected
			}
		}
	}
	return nil
}

// TableInfo describes one index table.
type TableInfo struct {
	Name     string   `json:"name"`
	RowCount uint64   `json:"row_count"`
	Columns  []string `json:"columns"`
}

// Tables enumerates the index tables with row counts and column names.
func (s *Store) Tables(ctx context.Context) ([]TableInfo, error) {
	if err := s.ensureNotClosed(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE 'schema_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table listing failed: %w", err)
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		info := TableInfo{Name: name}

		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&info.RowCount); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", name, err)
		}

		colRows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", name))
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", name, err)
		}
		for colRows.Next() {
			var cid int
			var colName, colType string
			var notNull, pk int
			var dflt any
			if err := colRows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("failed to scan column of %s: %w", name, err)
			}
			info.Columns = append(info.Columns, colName)
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, fmt.Errorf("column listing of %s failed: %w", name, err)
		}
		colRows.Close()

		tables = append(tables, info)
	}
	return tables, nil
}
