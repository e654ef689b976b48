package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/starklens/starklens/index"
	"github.com/starklens/starklens/internal/constants"
	"github.com/starklens/starklens/resolve"
	"github.com/starklens/starklens/storage"
)

// errorResponse is the uniform error body of the API.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeErrorMsg(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrUnknownColumnFamily),
		errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, resolve.ErrInvalidToken),
		errors.Is(err, index.ErrQueryRejected):
		s.writeErrorMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, resolve.ErrAmbiguousToken),
		errors.Is(err, index.ErrIndexAheadOfStore),
		errors.Is(err, index.ErrSyncInProgress):
		s.writeErrorMsg(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrStoreUnavailable):
		s.writeErrorMsg(w, http.StatusServiceUnavailable, err.Error())
	case storage.IsDecodeError(err):
		s.writeErrorMsg(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeErrorMsg(w, http.StatusInternalServerError, "internal server error")
	}
}

// parsePagination reads offset/limit query parameters with defaults and caps.
func parsePagination(r *http.Request) (offset, limit uint64, err error) {
	limit = constants.DefaultPaginationLimit

	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, errors.New("invalid offset")
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.ParseUint(raw, 10, 64)
		if err != nil || limit < constants.MinPaginationLimit {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if limit > constants.DefaultMaxPaginationLimit {
		limit = constants.DefaultMaxPaginationLimit
	}
	return offset, limit, nil
}
