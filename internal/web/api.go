package web

import (
	"encoding/json"
	"net/http"

	"github.com/mmynk/familyfund/internal/middleware"
	"github.com/mmynk/familyfund/internal/service"
)

// TokenRequest is the body of POST /api/v1/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token for the other API routes.
type TokenResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, id, err := s.Auth.IssueToken(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, authStatus(err), map[string]string{"error": service.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, Username: id.Username, Role: string(id.Role)})
}

func (s *Server) mySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Reports.UserDashboard(r.Context(), middleware.GetUsername(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": service.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) adminSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := s.Reports.AdminDashboard(r.Context(), adminFilter(q.Get), q.Get("refresh") == "1")
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": service.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
