package api

import (
	"net/http"

	"github.com/rkayurveda/storefront/telemetry"
)

type codeRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// handleRequestCode returns the code in the response body in place of an SMS
func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	code, err := s.auth.RequestCode(r.Context(), req.Phone)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, err := s.auth.VerifyCode(r.Context(), req.Phone, req.Code)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.store.Login(identity)
	s.logger.Info("Login succeeded", telemetry.LogFields(r.Context(), map[string]interface{}{
		"operation": "verify_code",
		"role":      string(identity.Role),
	}))
	writeJSON(w, http.StatusOK, identity)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := s.store.CurrentIdentity()
	if identity == nil {
		writeLoginRequired(w)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}
