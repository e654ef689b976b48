package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starklens/starklens/storage"
	"github.com/starklens/starklens/types"
)

// blockView is the JSON shape of a block.
type blockView struct {
	Number           uint64   `json:"number"`
	Hash             string   `json:"hash"`
	ParentHash       string   `json:"parent_hash"`
	StateRoot        string   `json:"state_root"`
	SequencerAddress string   `json:"sequencer_address"`
	Timestamp        uint64   `json:"timestamp"`
	GasUsed          uint64   `json:"gas_used"`
	TxCount          uint64   `json:"tx_count"`
	EventCount       uint64   `json:"event_count"`
	TxHashes         []string `json:"tx_hashes,omitempty"`
}

func toBlockView(b *types.Block, withHashes bool) blockView {
	view := blockView{
		Number:           b.Number,
		Hash:             b.Hash.Hex(),
		ParentHash:       b.ParentHash.Hex(),
		StateRoot:        b.StateRoot.Hex(),
		SequencerAddress: b.SequencerAddress.Hex(),
		Timestamp:        b.Timestamp,
		GasUsed:          b.GasUsed,
		TxCount:          b.TransactionCount(),
		EventCount:       b.EventCount,
	}
	if withHashes {
		view.TxHashes = feltsToHex(b.TxHashes)
	}
	return view
}

// txView is the JSON shape of a transaction.
type txView struct {
	Hash          string      `json:"hash"`
	BlockNumber   uint64      `json:"block_number"`
	Index         uint64      `json:"index"`
	Type          string      `json:"type"`
	Version       string      `json:"version"`
	Status        string      `json:"status"`
	RevertReason  string      `json:"revert_reason,omitempty"`
	SenderAddress string      `json:"sender_address"`
	Nonce         uint64      `json:"nonce"`
	ActualFee     uint64      `json:"actual_fee"`
	FeeUnit       string      `json:"fee_unit"`
	Calldata      []string    `json:"calldata"`
	Signature     []string    `json:"signature"`
	Events        []eventView `json:"events"`
}

type eventView struct {
	FromAddress string   `json:"from_address"`
	Keys        []string `json:"keys"`
	Data        []string `json:"data"`
}

func toTxView(tx *types.Transaction) txView {
	events := make([]eventView, 0, len(tx.Events))
	for _, event := range tx.Events {
		events = append(events, eventView{
			FromAddress: event.FromAddress.Hex(),
			Keys:        feltsToHex(event.Keys),
			Data:        feltsToHex(event.Data),
		})
	}
	return txView{
		Hash:          tx.Hash.Hex(),
		BlockNumber:   tx.BlockNumber,
		Index:         tx.Index,
		Type:          string(tx.Type),
		Version:       tx.Version,
		Status:        string(tx.Status),
		RevertReason:  tx.RevertReason,
		SenderAddress: tx.SenderAddress.Hex(),
		Nonce:         tx.Nonce,
		ActualFee:     tx.ActualFee,
		FeeUnit:       tx.FeeUnit,
		Calldata:      feltsToHex(tx.Calldata),
		Signature:     feltsToHex(tx.Signature),
		Events:        events,
	}
}

func feltsToHex(felts []types.Felt) []string {
	out := make([]string, len(felts))
	for i, f := range felts {
		out[i] = f.Hex()
	}
	return out
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// statsResponse combines store statistics with the index sync state.
type statsResponse struct {
	Store struct {
		Path              string                   `json:"path"`
		LatestBlock       *uint64                  `json:"latest_block"`
		ColumnFamilyCount int                      `json:"column_family_count"`
		Version           storage.VersionDetection `json:"version"`
	} `json:"store"`
	Index *types.IndexSyncState `json:"index"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	storeStats := s.store.GetStats()

	indexState, err := s.syncer.Status()
	if err != nil {
		s.writeError(w, err)
		return
	}

	var resp statsResponse
	resp.Store.Path = storeStats.Path
	resp.Store.LatestBlock = storeStats.LatestBlock
	resp.Store.ColumnFamilyCount = storeStats.ColumnFamilyCount
	resp.Store.Version = storeStats.StoreVersion
	resp.Index = indexState
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("q")
	if token == "" {
		s.writeErrorMsg(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	ref, err := s.resolver.Resolve(token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePagination(r)
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	order := storage.OrderDescending
	if r.URL.Query().Get("order") == "asc" {
		order = storage.OrderAscending
	}

	page, err := s.store.ListBlocks(offset, limit, order)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]blockView, 0, len(page.Items))
	for _, block := range page.Items {
		items = append(items, toBlockView(block, false))
	}
	s.writeJSON(w, http.StatusOK, storage.Page[blockView]{
		Items:   items,
		Offset:  page.Offset,
		Limit:   page.Limit,
		Total:   page.Total,
		HasMore: page.HasMore,
	})
}

// blockNumberParam parses {number}, also accepting "latest".
func (s *Server) blockNumberParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "number")
	if raw == "latest" {
		return s.store.TipNumber()
	}
	number, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, storage.ErrInvalidKey
	}
	return number, nil
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	number, err := s.blockNumberParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	block, err := s.store.GetBlockByNumber(number)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toBlockView(block, true))
}

func (s *Server) handleBlockTransactions(w http.ResponseWriter, r *http.Request) {
	number, err := s.blockNumberParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	txs, err := s.store.GetTransactionsByBlock(number)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]txView, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTxView(tx))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"block_number": number,
		"transactions": items,
	})
}

// stateDiffView is the JSON shape of a block's state diff.
type stateDiffView struct {
	BlockNumber       uint64              `json:"block_number"`
	DeployedContracts []map[string]string `json:"deployed_contracts"`
	StorageDiffs      []storageDiffView   `json:"storage_diffs"`
	DeclaredClasses   []map[string]string `json:"declared_classes"`
	Nonces            []nonceView         `json:"nonces"`
	ReplacedClasses   []map[string]string `json:"replaced_classes"`
}

type storageDiffView struct {
	Address string             `json:"address"`
	Entries []storageEntryView `json:"entries"`
}

type storageEntryView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type nonceView struct {
	ContractAddress string `json:"contract_address"`
	Nonce           uint64 `json:"nonce"`
}

func (s *Server) handleBlockStateDiff(w http.ResponseWriter, r *http.Request) {
	number, err := s.blockNumberParam(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	diff, err := s.store.GetStateDiff(number)
	if err != nil {
		s.writeError(w, err)
		return
	}

	view := stateDiffView{
		BlockNumber:       diff.BlockNumber,
		DeployedContracts: []map[string]string{},
		StorageDiffs:      []storageDiffView{},
		DeclaredClasses:   []map[string]string{},
		Nonces:            []nonceView{},
		ReplacedClasses:   []map[string]string{},
	}
	for _, d := range diff.DeployedContracts {
		view.DeployedContracts = append(view.DeployedContracts, map[string]string{
			"address": d.Address.Hex(), "class_hash": d.ClassHash.Hex(),
		})
	}
	for _, sd := range diff.StorageDiffs {
		entries := make([]storageEntryView, 0, len(sd.Entries))
		for _, e := range sd.Entries {
			entries = append(entries, storageEntryView{Key: e.Key.Hex(), Value: e.Value.Hex()})
		}
		view.StorageDiffs = append(view.StorageDiffs, storageDiffView{Address: sd.Address.Hex(), Entries: entries})
	}
	for _, d := range diff.DeclaredClasses {
		view.DeclaredClasses = append(view.DeclaredClasses, map[string]string{
			"class_hash": d.ClassHash.Hex(), "compiled_class_hash": d.CompiledClassHash.Hex(),
		})
	}
	for _, n := range diff.Nonces {
		view.Nonces = append(view.Nonces, nonceView{ContractAddress: n.ContractAddress.Hex(), Nonce: n.Nonce})
	}
	for _, rc := range diff.ReplacedClasses {
		view.ReplacedClasses = append(view.ReplacedClasses, map[string]string{
			"contract_address": rc.ContractAddress.Hex(), "class_hash": rc.ClassHash.Hex(),
		})
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) feltParam(r *http.Request, name string) (types.Felt, error) {
	return types.HexToFelt(chi.URLParam(r, name))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	hash, err := s.feltParam(r, "hash")
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.store.GetTransactionByHash(hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTxView(tx))
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	address, err := s.feltParam(r, "address")
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	contract, err := s.store.GetContract(address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"address":    contract.Address.Hex(),
		"class_hash": contract.ClassHash.Hex(),
		"nonce":      contract.Nonce,
	})
}

func (s *Server) handleContractStorage(w http.ResponseWriter, r *http.Request) {
	address, err := s.feltParam(r, "address")
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, limit, err := parsePagination(r)
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.store.ContractStoragePage(address, offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	items := make([]storageEntryView, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, storageEntryView{Key: entry.Key.Hex(), Value: entry.Value.Hex()})
	}
	s.writeJSON(w, http.StatusOK, storage.Page[storageEntryView]{
		Items:   items,
		Offset:  page.Offset,
		Limit:   page.Limit,
		Total:   page.Total,
		HasMore: page.HasMore,
	})
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	hash, err := s.feltParam(r, "hash")
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	class, err := s.store.GetClass(hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"hash":                class.Hash.Hex(),
		"kind":                string(class.Kind),
		"compiled_class_hash": class.CompiledClassHash.Hex(),
		"sierra_size":         class.SierraSize,
	})
}
