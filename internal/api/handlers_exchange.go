package api

import (
	"net/http"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/gateway"
	"crowny-exchange/internal/venues"
)

type exchangeOrderRequest struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

func (s *Server) handleExchangeOrder(w http.ResponseWriter, r *http.Request, principal string) {
	var req exchangeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	side := venues.SideBuy
	if req.Side == string(venues.SideSell) {
		side = venues.SideSell
	}
	orderType := venues.OrderTypeMarket
	if req.Type == string(venues.OrderTypeLimit) {
		orderType = venues.OrderTypeLimit
	}
	order, err := s.gw.ExchangePlaceOrder(principal, req.Exchange, req.Symbol, side, orderType, req.Quantity, req.Price)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritPositive, order))
}

type exchangeCancelRequest struct {
	Exchange        string `json:"exchange"`
	Symbol          string `json:"symbol"`
	ExchangeOrderID string `json:"exchangeOrderId"`
}

func (s *Server) handleExchangeCancel(w http.ResponseWriter, r *http.Request, principal string) {
	var req exchangeCancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	if err := s.gw.ExchangeCancelOrder(principal, req.Exchange, req.Symbol, req.ExchangeOrderID); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) handleExchangeBalance(w http.ResponseWriter, r *http.Request, principal string) {
	venueName := r.URL.Query().Get("exchange")
	if venueName == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange required"))
		return
	}
	accounts, err := s.gw.ExchangeBalance(principal, venueName)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, accounts))
}

func (s *Server) handleExchangeOpenOrders(w http.ResponseWriter, r *http.Request, principal string) {
	venueName := r.URL.Query().Get("exchange")
	symbol := r.URL.Query().Get("symbol")
	if venueName == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange required"))
		return
	}
	orders, err := s.gw.ExchangeOpenOrders(principal, venueName, symbol)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, orders))
}

func (s *Server) handleExchangeHistory(w http.ResponseWriter, r *http.Request, principal string) {
	venueName := r.URL.Query().Get("exchange")
	if venueName == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange required"))
		return
	}
	limit := queryInt(r, "limit", 50)
	history, err := s.gw.ExchangeHistory(principal, venueName, limit)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, history))
}
