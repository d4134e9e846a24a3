package api

import (
	"net/http"
	"strings"

	"crowny-exchange/internal/apperr"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type sessionResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	principal, token, err := s.auth.Register(req.Email, req.Username, req.Password)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, sessionResponse{ID: principal.ID, Email: principal.Email, Username: principal.Username, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	principal, token, err := s.auth.Login(req.EmailOrUsername, req.Password)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, sessionResponse{ID: principal.ID, Email: principal.Email, Username: principal.Username, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, principal string) {
	token := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); auth != "" {
		if t, ok := strings.CutPrefix(auth, "Bearer "); ok {
			token = t
		}
	}
	if token == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindAuthRequired, "missing token"))
		return
	}
	if err := s.auth.Logout(token); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}
