package api

import (
	"net/http"
	"strings"

	"github.com/rkayurveda/storefront/commerce"
)

type describeRequest struct {
	Name     string            `json:"name"`
	Category commerce.Category `json:"category"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleSaveProduct(w http.ResponseWriter, r *http.Request) {
	var p commerce.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	writeJSON(w, http.StatusOK, s.store.SaveProduct(p))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	s.store.DeleteProduct(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDescribeProduct(w http.ResponseWriter, r *http.Request) {
	var req describeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	text, ok := s.advisor.DescribeProduct(r.Context(), req.Name, string(req.Category))
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "description unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": text})
}
