package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starklens/starklens/internal/testutil"
	"github.com/starklens/starklens/types"
)

func TestValidateReadOnly(t *testing.T) {
	allowed := []string{
		"SELECT * FROM blocks",
		"select hash from transactions where block_number = 1",
		"SELECT COUNT(*) FROM events;",
		"  WITH recent AS (SELECT * FROM blocks ORDER BY number DESC LIMIT 5) SELECT * FROM recent",
		// Column names merely containing a write keyword are fine.
		"SELECT deployed_at_block, last_updated_block FROM contracts",
	}
	for _, query := range allowed {
		t.Run(query, func(t *testing.T) {
			assert.NoError(t, validateReadOnly(query))
		})
	}

	rejected := []string{
		"",
		"   ",
		"INSERT INTO blocks VALUES (1)",
		"UPDATE sync_state SET watermark = 999",
		"DELETE FROM blocks",
		"DROP TABLE blocks",
		"PRAGMA journal_mode = DELETE",
		"ATTACH DATABASE '/etc/passwd' AS pwned",
		"VACUUM",
		"SELECT 1; DROP TABLE blocks",
		"SELECT 1; SELECT 2",
		"WITH x AS (SELECT 1) INSERT INTO blocks SELECT * FROM x",
		"CREATE TABLE evil (id INTEGER)",
		// The gate is lexical: a semicolon inside a string literal is
		// over-rejected rather than parsed.
		"SELECT ';'",
	}
	for _, query := range rejected {
		t.Run("rejects "+query, func(t *testing.T) {
			assert.ErrorIs(t, validateReadOnly(query), ErrQueryRejected)
		})
	}
}

func TestQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for n := uint64(0); n < 3; n++ {
		block, txs := testBlock(n, 2, n*10)
		require.NoError(t, store.ApplyBlock(block, txs, nil))
	}

	t.Run("select rows", func(t *testing.T) {
		result, err := store.Query(ctx, "SELECT number, tx_count FROM blocks ORDER BY number")
		require.NoError(t, err)
		assert.Equal(t, []string{"number", "tx_count"}, result.Columns)
		require.Len(t, result.Rows, 3)
		assert.Equal(t, 3, result.RowCount)
		assert.False(t, result.Capped)
		assert.Equal(t, int64(0), result.Rows[0][0])
		assert.Equal(t, int64(2), result.Rows[0][1])
	})

	t.Run("empty result", func(t *testing.T) {
		result, err := store.Query(ctx, "SELECT * FROM blocks WHERE number > 100")
		require.NoError(t, err)
		assert.Empty(t, result.Rows)
		assert.Zero(t, result.RowCount)
	})

	t.Run("write rejected before touching the database", func(t *testing.T) {
		_, err := store.Query(ctx, "DELETE FROM blocks")
		assert.ErrorIs(t, err, ErrQueryRejected)

		result, err := store.Query(ctx, "SELECT COUNT(*) FROM blocks")
		require.NoError(t, err)
		assert.Equal(t, int64(3), result.Rows[0][0])
	})

	t.Run("invalid sql surfaces the driver error", func(t *testing.T) {
		_, err := store.Query(ctx, "SELECT nope FROM nothing")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrQueryRejected)
	})
}

func TestListTransactions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// 3 blocks, 2 txs each; every second tx reverted.
	var counter uint64
	for n := uint64(0); n < 3; n++ {
		block, txs := testBlock(n, 2, counter)
		for i, tx := range txs {
			if i%2 == 1 {
				tx.Status = types.TxReverted
				tx.RevertReason = "reverted"
			}
		}
		counter += 2
		require.NoError(t, store.ApplyBlock(block, txs, nil))
	}

	t.Run("newest first", func(t *testing.T) {
		page, err := store.ListTransactions(ctx, TxFilter{}, 0, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 6)
		assert.Equal(t, uint64(6), page.Total)
		assert.False(t, page.HasMore)
		assert.Equal(t, uint64(2), page.Items[0].BlockNumber)
		assert.Equal(t, uint64(1), page.Items[0].Index)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := store.ListTransactions(ctx, TxFilter{}, 4, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.False(t, page.HasMore)

		page, err = store.ListTransactions(ctx, TxFilter{}, 0, 2)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
	})

	t.Run("status filter", func(t *testing.T) {
		page, err := store.ListTransactions(ctx, TxFilter{Status: "REVERTED"}, 0, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 3)
		for _, item := range page.Items {
			assert.Equal(t, "REVERTED", item.Status)
			assert.Equal(t, "reverted", item.RevertReason)
		}
	})

	t.Run("block range filter", func(t *testing.T) {
		from, to := uint64(1), uint64(1)
		page, err := store.ListTransactions(ctx, TxFilter{FromBlock: &from, ToBlock: &to}, 0, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		for _, item := range page.Items {
			assert.Equal(t, uint64(1), item.BlockNumber)
		}
	})

	t.Run("sender filter", func(t *testing.T) {
		sender := testutil.NumberedFelt('a', 0).Hex()
		page, err := store.ListTransactions(ctx, TxFilter{Sender: sender}, 0, 10)
		require.NoError(t, err)
		require.NotEmpty(t, page.Items)
		for _, item := range page.Items {
			assert.Equal(t, sender, item.SenderAddress)
		}
	})

	t.Run("with events filter", func(t *testing.T) {
		page, err := store.ListTransactions(ctx, TxFilter{WithEvents: true}, 0, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 6, "every fixture tx emits one event")
	})

	t.Run("no matches", func(t *testing.T) {
		page, err := store.ListTransactions(ctx, TxFilter{Type: "DECLARE"}, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Zero(t, page.Total)
	})
}

func TestTables(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	block, txs := testBlock(0, 3, 0)
	require.NoError(t, store.ApplyBlock(block, txs, nil))

	tables, err := store.Tables(ctx)
	require.NoError(t, err)

	byName := make(map[string]TableInfo, len(tables))
	for _, tbl := range tables {
		byName[tbl.Name] = tbl
		assert.NotContains(t, tbl.Name, "schema_", "migration bookkeeping is hidden")
	}

	require.Contains(t, byName, "transactions")
	assert.Equal(t, uint64(3), byName["transactions"].RowCount)
	assert.Contains(t, byName["transactions"].Columns, "hash")
	assert.Contains(t, byName["transactions"].Columns, "block_number")

	require.Contains(t, byName, "blocks")
	assert.Equal(t, uint64(1), byName["blocks"].RowCount)
}
