package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starklens/starklens/schema"
)

func (s *Server) handleSchemaAll(w http.ResponseWriter, r *http.Request) {
	schemas, err := schema.Load()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"column_families": schemas})
}

func (s *Server) handleSchemaCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := schema.Categories()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleSchemaCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	schemas, err := schema.ByCategory(category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(schemas) == 0 {
		s.writeErrorMsg(w, http.StatusNotFound, "unknown category")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"category":        category,
		"column_families": schemas,
	})
}

func (s *Server) handleSchemaCF(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	cf, err := schema.ByName(name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if cf == nil {
		s.writeErrorMsg(w, http.StatusNotFound, "unknown column family")
		return
	}
	s.writeJSON(w, http.StatusOK, cf)
}
