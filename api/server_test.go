package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starklens/starklens/index"
	"github.com/starklens/starklens/internal/testutil"
	"github.com/starklens/starklens/storage"
	"github.com/starklens/starklens/types"
)

// ambiguousFelt is planted as both a contract address and a class hash.
var ambiguousFelt = testutil.FeltFromByte(0xab)

type testServer struct {
	*Server
	blocks []*types.Block
	syncer *index.Syncer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	blocks := testutil.BuildChain(t, dir, 4, 2)

	builder := testutil.NewChainBuilder(t, dir)
	for _, block := range blocks {
		builder.PutStateDiff(testutil.NewTestStateDiff(block.Number))
	}
	address := testutil.NumberedFelt('c', 0)
	builder.PutContract(&types.Contract{
		Address:   address,
		ClassHash: testutil.NumberedFelt('k', 0),
		Nonce:     7,
	})
	builder.PutStorage(address, testutil.FeltFromByte(0x01), testutil.NumberedFelt('v', 1))
	builder.PutStorage(address, testutil.FeltFromByte(0x02), testutil.NumberedFelt('v', 2))
	builder.PutClass(&types.Class{
		Hash:              testutil.NumberedFelt('k', 0),
		Kind:              types.ClassSierra,
		CompiledClassHash: testutil.NumberedFelt('m', 0),
		SierraSize:        2048,
	})
	builder.PutContract(&types.Contract{Address: ambiguousFelt})
	builder.PutClass(&types.Class{Hash: ambiguousFelt, Kind: types.ClassLegacy})
	builder.Close()

	store := testutil.OpenFixture(t, dir)

	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	syncer := index.NewSyncer(idx, store, index.WithLogger(testutil.NewTestLogger(t)))

	server, err := NewServer(DefaultConfig(), testutil.NewTestLogger(t), store, idx, syncer)
	require.NoError(t, err)

	return &testServer{Server: server, blocks: blocks, syncer: syncer}
}

// syncIndex runs the syncer until the index catches up with the store tip.
func (ts *testServer) syncIndex(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ts.syncer.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		status, err := ts.syncer.Status()
		return err == nil && status.Synced
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func (ts *testServer) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body statsResponse
	decodeBody(t, rec, &body)
	require.NotNil(t, body.Store.LatestBlock)
	assert.Equal(t, uint64(3), *body.Store.LatestBlock)
	assert.Equal(t, len(storage.ColumnFamilies), body.Store.ColumnFamilyCount)
	require.NotNil(t, body.Index)
	assert.Equal(t, int64(-1), body.Index.Watermark)
	assert.False(t, body.Index.Synced)
}

func TestListBlocks(t *testing.T) {
	ts := newTestServer(t)

	t.Run("default newest first", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/blocks?limit=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page storage.Page[blockView]
		decodeBody(t, rec, &page)
		require.Len(t, page.Items, 2)
		assert.Equal(t, uint64(3), page.Items[0].Number)
		assert.Equal(t, uint64(2), page.Items[1].Number)
		assert.Equal(t, uint64(4), page.Total)
		assert.True(t, page.HasMore)
		assert.Empty(t, page.Items[0].TxHashes, "listing omits tx hashes")
	})

	t.Run("ascending", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/blocks?order=asc&limit=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page storage.Page[blockView]
		decodeBody(t, rec, &page)
		require.Len(t, page.Items, 2)
		assert.Equal(t, uint64(0), page.Items[0].Number)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/blocks?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetBlock(t *testing.T) {
	ts := newTestServer(t)

	t.Run("by number", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/blocks/2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view blockView
		decodeBody(t, rec, &view)
		assert.Equal(t, uint64(2), view.Number)
		assert.Equal(t, ts.blocks[2].Hash.Hex(), view.Hash)
		assert.Len(t, view.TxHashes, 2)
	})

	t.Run("latest", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/blocks/latest", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var view blockView
		decodeBody(t, rec, &view)
		assert.Equal(t, uint64(3), view.Number)
	})

	t.Run("not found", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/blocks/99", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid number", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/blocks/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBlockTransactions(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/blocks/1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		BlockNumber  uint64   `json:"block_number"`
		Transactions []txView `json:"transactions"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, uint64(1), body.BlockNumber)
	require.Len(t, body.Transactions, 2)
	assert.Equal(t, ts.blocks[1].TxHashes[0].Hex(), body.Transactions[0].Hash)
	require.Len(t, body.Transactions[0].Events, 1)
}

func TestBlockStateDiff(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/blocks/1/state-diff", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view stateDiffView
	decodeBody(t, rec, &view)
	assert.Equal(t, uint64(1), view.BlockNumber)
	require.Len(t, view.DeployedContracts, 1)
	assert.Equal(t, testutil.NumberedFelt('c', 1).Hex(), view.DeployedContracts[0]["address"])
	require.Len(t, view.StorageDiffs, 1)
	require.Len(t, view.Nonces, 1)
	assert.Equal(t, uint64(2), view.Nonces[0].Nonce)
}

func TestGetTransaction(t *testing.T) {
	ts := newTestServer(t)

	hash := ts.blocks[2].TxHashes[1]
	rec := ts.request(t, http.MethodGet, "/api/transactions/"+hash.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view txView
	decodeBody(t, rec, &view)
	assert.Equal(t, hash.Hex(), view.Hash)
	assert.Equal(t, uint64(2), view.BlockNumber)
	assert.Equal(t, uint64(1), view.Index)
	assert.Equal(t, "INVOKE", view.Type)
	assert.Equal(t, "SUCCEEDED", view.Status)

	t.Run("not found", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/transactions/"+testutil.FeltFromByte(0xde).Hex(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid hash", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/transactions/nope", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetContract(t *testing.T) {
	ts := newTestServer(t)

	address := testutil.NumberedFelt('c', 0)
	rec := ts.request(t, http.MethodGet, "/api/contracts/"+address.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, address.Hex(), body["address"])
	assert.Equal(t, float64(7), body["nonce"])

	t.Run("not found", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/contracts/"+testutil.FeltFromByte(0xde).Hex(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestContractStorage(t *testing.T) {
	ts := newTestServer(t)

	address := testutil.NumberedFelt('c', 0)
	rec := ts.request(t, http.MethodGet, "/api/contracts/"+address.Hex()+"/storage?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page storage.Page[storageEntryView]
	decodeBody(t, rec, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, uint64(2), page.Total)
	assert.True(t, page.HasMore)
	assert.Equal(t, testutil.FeltFromByte(0x01).Hex(), page.Items[0].Key)

	t.Run("unknown contract", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/contracts/"+testutil.FeltFromByte(0xde).Hex()+"/storage", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetClass(t *testing.T) {
	ts := newTestServer(t)

	hash := testutil.NumberedFelt('k', 0)
	rec := ts.request(t, http.MethodGet, "/api/classes/"+hash.Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "SIERRA", body["kind"])
	assert.Equal(t, float64(2048), body["sierra_size"])
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/search", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("block number", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/search?q=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var ref types.EntityRef
		decodeBody(t, rec, &ref)
		assert.Equal(t, types.KindBlock, ref.Kind)
		assert.Equal(t, uint64(2), ref.BlockNumber)
	})

	t.Run("block hash resolves to number", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/search?q="+ts.blocks[1].Hash.Hex(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var ref types.EntityRef
		decodeBody(t, rec, &ref)
		assert.Equal(t, types.KindBlock, ref.Kind)
		assert.Equal(t, uint64(1), ref.BlockNumber)
	})

	t.Run("transaction hash", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/search?q="+ts.blocks[0].TxHashes[0].Hex(), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var ref types.EntityRef
		decodeBody(t, rec, &ref)
		assert.Equal(t, types.KindTx, ref.Kind)
	})

	t.Run("ambiguous token", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/search?q="+ambiguousFelt.Hex(), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("no match", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/search?q="+testutil.FeltFromByte(0xde).Hex(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/search?q=n0pe", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestIndexEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("status before sync", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/index/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			State string               `json:"state"`
			Sync  types.IndexSyncState `json:"sync"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, "idle", body.State)
		assert.Equal(t, int64(-1), body.Sync.Watermark)
		assert.False(t, body.Sync.Synced)
	})

	t.Run("trigger sync", func(t *testing.T) {
		rec := ts.request(t, http.MethodPost, "/api/index/sync", nil)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var body map[string]string
		decodeBody(t, rec, &body)
		assert.Equal(t, "sync triggered", body["status"])
		assert.Equal(t, "idle", body["previous_state"])
	})

	ts.syncIndex(t)

	t.Run("status after sync", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/index/status", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Sync types.IndexSyncState `json:"sync"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, int64(3), body.Sync.Watermark)
		assert.True(t, body.Sync.Synced)
		assert.Equal(t, uint64(8), body.Sync.TotalTransactions)
	})

	t.Run("transactions", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/index/transactions?limit=3", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page index.TxPage
		decodeBody(t, rec, &page)
		require.Len(t, page.Items, 3)
		assert.Equal(t, uint64(8), page.Total)
		assert.Equal(t, uint64(3), page.Items[0].BlockNumber)
	})

	t.Run("transactions with filter", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/index/transactions?from_block=2&to_block=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page index.TxPage
		decodeBody(t, rec, &page)
		assert.Len(t, page.Items, 2)
	})

	t.Run("invalid from_block", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/index/transactions?from_block=abc", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("query", func(t *testing.T) {
		rec := ts.request(t, http.MethodPost, "/api/index/query",
			queryRequest{Query: "SELECT COUNT(*) AS n FROM blocks"})
		require.Equal(t, http.StatusOK, rec.Code)

		var result index.QueryResult
		decodeBody(t, rec, &result)
		assert.Equal(t, []string{"n"}, result.Columns)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, float64(4), result.Rows[0][0])
	})

	t.Run("query rejected", func(t *testing.T) {
		rec := ts.request(t, http.MethodPost, "/api/index/query",
			queryRequest{Query: "DELETE FROM blocks"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("query missing body", func(t *testing.T) {
		rec := ts.request(t, http.MethodPost, "/api/index/query", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("tables", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/index/tables", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Tables []index.TableInfo `json:"tables"`
		}
		decodeBody(t, rec, &body)
		assert.NotEmpty(t, body.Tables)
	})

	t.Run("reset", func(t *testing.T) {
		rec := ts.request(t, http.MethodPost, "/api/index/reset", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.request(t, http.MethodGet, "/api/index/status", nil)
		var body struct {
			Sync types.IndexSyncState `json:"sync"`
		}
		decodeBody(t, rec, &body)
		assert.Equal(t, int64(-1), body.Sync.Watermark)
	})
}

func TestRawEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("list column families", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/raw/cf", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			ColumnFamilies []types.ColumnFamilyDescriptor `json:"column_families"`
		}
		decodeBody(t, rec, &body)
		assert.Len(t, body.ColumnFamilies, len(storage.ColumnFamilies))
	})

	t.Run("cf stats", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/raw/cf/block_info/stats", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats storage.CFStats
		decodeBody(t, rec, &stats)
		assert.Equal(t, uint64(4), stats.KeyCount)
	})

	t.Run("cf keys", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/raw/cf/block_info/keys?limit=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Keys    []string `json:"keys"`
			HasMore bool     `json:"has_more"`
		}
		decodeBody(t, rec, &body)
		assert.Len(t, body.Keys, 2)
		assert.True(t, body.HasMore)
	})

	t.Run("cf value", func(t *testing.T) {
		keyHex := "0x0000000000000001"
		rec := ts.request(t, http.MethodGet, "/api/raw/cf/block_info/value?key="+keyHex, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var kv storage.RawKeyValue
		decodeBody(t, rec, &kv)
		assert.Equal(t, keyHex, kv.KeyHex)
		assert.Equal(t, "block 1", kv.DecodedHint)
	})

	t.Run("cf value absent", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/raw/cf/block_info/value?key=0x00000000000000ff", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cf value missing key", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/raw/cf/block_info/value", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cf value invalid hex", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/raw/cf/block_info/value?key=zz", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown column family", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/raw/cf/bogus/stats", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("batch values", func(t *testing.T) {
		rec := ts.request(t, http.MethodPost, "/api/raw/cf/block_info/values", batchValuesRequest{
			Keys: []string{"0x0000000000000000", "0x00000000000000ff", "0x0000000000000002"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Values []storage.RawKeyValue `json:"values"`
		}
		decodeBody(t, rec, &body)
		assert.Len(t, body.Values, 2, "absent keys are skipped")
	})

	t.Run("batch values empty", func(t *testing.T) {
		rec := ts.request(t, http.MethodPost, "/api/raw/cf/block_info/values", batchValuesRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSchemaEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("all", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/schema/", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			ColumnFamilies []json.RawMessage `json:"column_families"`
		}
		decodeBody(t, rec, &body)
		assert.Len(t, body.ColumnFamilies, len(storage.ColumnFamilies))
	})

	t.Run("categories", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/schema/categories", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("category", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/schema/category/blocks", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown category", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/schema/category/bogus", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cf", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/schema/cf/tx_info", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown cf", func(t *testing.T) {
		rec := ts.request(t, http.MethodGet, "/api/schema/cf/bogus", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	dir := t.TempDir()
	testutil.BuildChain(t, dir, 1, 0)
	store := testutil.OpenFixture(t, dir)

	idx, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	cfg := DefaultConfig()
	cfg.EnableCORS = true
	cfg.AllowedOrigins = []string{"https://allowed.example"}

	server, err := NewServer(cfg, testutil.NewTestLogger(t), store, idx,
		index.NewSyncer(idx, store, index.WithLogger(testutil.NewTestLogger(t))))
	require.NoError(t, err)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://allowed.example")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "https://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("denied origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
		req.Header.Set("Origin", "https://allowed.example")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	})
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantOffset uint64
		wantLimit  uint64
		wantErr    bool
	}{
		{"defaults", "", 0, 20, false},
		{"explicit", "offset=5&limit=50", 5, 50, false},
		{"limit capped", "limit=5000", 0, 100, false},
		{"zero limit", "limit=0", 0, 0, true},
		{"bad offset", "offset=x", 0, 0, true},
		{"bad limit", "limit=x", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/blocks?"+tt.query, nil)
			offset, limit, err := parsePagination(req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
