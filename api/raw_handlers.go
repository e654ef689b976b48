package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"

	"github.com/starklens/starklens/storage"
)

func (s *Server) cfParam(r *http.Request) (storage.ColumnFamily, bool) {
	cf := storage.ColumnFamily(chi.URLParam(r, "name"))
	return cf, cf.Valid()
}

func (s *Server) handleListColumnFamilies(w http.ResponseWriter, r *http.Request) {
	descriptors, err := s.store.ListColumnFamilies()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"column_families": descriptors})
}

func (s *Server) handleCFStats(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.cfParam(r)
	if !ok {
		s.writeErrorMsg(w, http.StatusBadRequest, "unknown column family")
		return
	}

	stats, err := s.store.GetCFStats(cf)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCFKeys(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.cfParam(r)
	if !ok {
		s.writeErrorMsg(w, http.StatusBadRequest, "unknown column family")
		return
	}
	offset, limit, err := parsePagination(r)
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	keys, hasMore, err := s.store.ListKeys(cf, offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"column_family": string(cf),
		"keys":          keys,
		"offset":        offset,
		"limit":         limit,
		"has_more":      hasMore,
	})
}

func (s *Server) handleCFValue(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.cfParam(r)
	if !ok {
		s.writeErrorMsg(w, http.StatusBadRequest, "unknown column family")
		return
	}

	keyHex := r.URL.Query().Get("key")
	if keyHex == "" {
		s.writeErrorMsg(w, http.StatusBadRequest, "missing query parameter key")
		return
	}
	key, err := hexutil.Decode(keyHex)
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, "invalid key hex")
		return
	}

	kv, err := s.store.GetRawValue(cf, key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, kv)
}

// batchValuesRequest is the body of POST /api/raw/cf/{name}/values.
type batchValuesRequest struct {
	Keys []string `json:"keys"`
}

// maxBatchKeys bounds one batch lookup.
const maxBatchKeys = 100

func (s *Server) handleCFValues(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.cfParam(r)
	if !ok {
		s.writeErrorMsg(w, http.StatusBadRequest, "unknown column family")
		return
	}

	var req batchValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Keys) == 0 || len(req.Keys) > maxBatchKeys {
		s.writeErrorMsg(w, http.StatusBadRequest, "keys must contain between 1 and 100 entries")
		return
	}

	keys := make([][]byte, 0, len(req.Keys))
	for _, keyHex := range req.Keys {
		key, err := hexutil.Decode(keyHex)
		if err != nil {
			s.writeErrorMsg(w, http.StatusBadRequest, "invalid key hex: "+keyHex)
			return
		}
		keys = append(keys, key)
	}

	values, err := s.store.BatchGetRawValues(cf, keys)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"column_family": string(cf),
		"values":        values,
	})
}
