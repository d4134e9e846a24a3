package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/gateway"
)

func (s *Server) handleDexSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, gateway.Wrap(engine.TritNeutral, s.gw.DEXSummary()))
}

func (s *Server) handleDexPools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, gateway.Wrap(engine.TritNeutral, s.gw.DEXPools()))
}

func (s *Server) handleDexTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, gateway.Wrap(engine.TritNeutral, s.gw.DEXTokens()))
}

func (s *Server) handleDexOrderbook(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool")
	if poolID == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "pool"))
		return
	}
	orders, err := s.gw.DEXOrderbook(poolID)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, orders))
}

func (s *Server) handleDexHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	swaps, err := s.gw.DEXHistory(limit)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, swaps))
}

func (s *Server) handleDexBalances(w http.ResponseWriter, r *http.Request, principal string) {
	wallets, err := s.gw.DEXBalances(principal)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, wallets))
}

type swapRequest struct {
	PoolID  string          `json:"poolId"`
	TokenIn string          `json:"tokenIn"`
	Amount  decimal.Decimal `json:"amount"`
}

func (s *Server) handleDexSwap(w http.ResponseWriter, r *http.Request, principal string) {
	var req swapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	result, err := s.gw.Swap(principal, req.PoolID, req.TokenIn, req.Amount)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(result.Trit, result))
}

type liquidityRequest struct {
	PoolID  string          `json:"poolId"`
	AmountA decimal.Decimal `json:"amountA"`
	AmountB decimal.Decimal `json:"amountB"`
}

func (s *Server) handleDexLiquidity(w http.ResponseWriter, r *http.Request, principal string) {
	var req liquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	shares, err := s.gw.AddLiquidity(principal, req.PoolID, req.AmountA, req.AmountB)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritPositive, map[string]interface{}{"shares": shares}))
}

type removeLiquidityRequest struct {
	PoolID string          `json:"poolId"`
	Shares decimal.Decimal `json:"shares"`
}

func (s *Server) handleDexRemoveLiquidity(w http.ResponseWriter, r *http.Request, principal string) {
	var req removeLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	amountA, amountB, err := s.gw.RemoveLiquidity(principal, req.PoolID, req.Shares)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, map[string]interface{}{"amountA": amountA, "amountB": amountB}))
}

type placeOrderRequest struct {
	PoolID string          `json:"poolId"`
	Side   string          `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleDexPlaceOrder(w http.ResponseWriter, r *http.Request, principal string) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	side := engine.OrderSideBuy
	if req.Side == string(engine.OrderSideSell) {
		side = engine.OrderSideSell
	}
	order, fills, err := s.gw.PlaceOrder(principal, req.PoolID, side, req.Price, req.Amount)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, map[string]interface{}{"order": order, "fills": fills}))
}

func (s *Server) handleDexCancelOrder(w http.ResponseWriter, r *http.Request, principal string) {
	poolID := r.URL.Query().Get("pool")
	orderID := r.PathValue("id")
	if poolID == "" || orderID == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "pool and id required"))
		return
	}
	if err := s.gw.CancelOrder(principal, poolID, orderID); err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}
