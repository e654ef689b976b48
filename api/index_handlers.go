package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/starklens/starklens/index"
)

func (s *Server) handleIndexStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.syncer.Status()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"state": s.syncer.State().String(),
		"sync":  state,
	})
}

func (s *Server) handleIndexSync(w http.ResponseWriter, r *http.Request) {
	state := s.syncer.TriggerSync()
	status := "sync triggered"
	if state == index.StateSyncing {
		status = "sync already in progress"
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":         status,
		"previous_state": state.String(),
	})
}

func (s *Server) handleIndexReset(w http.ResponseWriter, r *http.Request) {
	if err := s.syncer.Reset(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "index reset"})
}

func (s *Server) handleIndexTransactions(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := parsePagination(r)
	if err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	filter := index.TxFilter{
		Status:     query.Get("status"),
		Type:       query.Get("type"),
		Sender:     query.Get("sender"),
		WithEvents: query.Get("with_events") == "true",
	}
	if raw := query.Get("from_block"); raw != "" {
		from, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeErrorMsg(w, http.StatusBadRequest, "invalid from_block")
			return
		}
		filter.FromBlock = &from
	}
	if raw := query.Get("to_block"); raw != "" {
		to, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeErrorMsg(w, http.StatusBadRequest, "invalid to_block")
			return
		}
		filter.ToBlock = &to
	}

	page, err := s.index.ListTransactions(r.Context(), filter, offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// queryRequest is the body of POST /api/index/query.
type queryRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleIndexQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.writeErrorMsg(w, http.StatusBadRequest, "missing query")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.QueryTimeout)
	defer cancel()

	result, err := s.index.Query(ctx, req.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIndexTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.index.Tables(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}
