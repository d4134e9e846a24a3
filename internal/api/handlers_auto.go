package api

import (
	"net/http"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/gateway"
)

type apiKeysRequest struct {
	Exchange  string `json:"exchange"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
}

func (s *Server) handleSaveApiKeys(w http.ResponseWriter, r *http.Request, principal string) {
	var req apiKeysRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	if err := s.gw.SaveApiKeys(principal, req.Exchange, req.AccessKey, req.SecretKey); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleGetApiKeys(w http.ResponseWriter, r *http.Request, principal string) {
	venueName := r.URL.Query().Get("exchange")
	if venueName == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange required"))
		return
	}
	masked, err := s.gw.GetApiKeys(principal, venueName)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, masked))
}

func (s *Server) handleDeleteApiKeys(w http.ResponseWriter, r *http.Request, principal string) {
	venueName := r.URL.Query().Get("exchange")
	if venueName == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange required"))
		return
	}
	if err := s.gw.DeleteApiKeys(principal, venueName); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

type autoToggleRequest struct {
	Exchange string `json:"exchange"`
}

func (s *Server) handleAutoEnable(w http.ResponseWriter, r *http.Request, principal string) {
	var req autoToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	cfg, err := s.gw.AutoEnable(principal, req.Exchange)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritPositive, cfg))
}

func (s *Server) handleAutoDisable(w http.ResponseWriter, r *http.Request, principal string) {
	var req autoToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	if err := s.gw.AutoDisable(principal, req.Exchange); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleAutoStatus(w http.ResponseWriter, r *http.Request, principal string) {
	venueName := r.URL.Query().Get("exchange")
	if venueName == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange required"))
		return
	}
	cfg, err := s.gw.AutoStatus(principal, venueName)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, cfg))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, principal string) {
	limit := queryInt(r, "limit", 100)
	writeJSON(w, gateway.Wrap(engine.TritNeutral, s.gw.Events().Recent(limit)))
}
