// Package api is the HTTP+WebSocket transport in front of the gateway: it
// decodes requests, extracts the caller's principal from a bearer token,
// calls into gateway.Gateway, and wraps every result in the `{ctp: ...}`
// envelope — one ServeMux built in Handler(), method-pattern routes, and
// small writeJSON/writeErrorEnvelope helpers covering the DEX/AI/Exchange/Auto
// surface.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/auth"
	"crowny-exchange/internal/config"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/gateway"
	"crowny-exchange/internal/metrics"
)

const maxBodyBytes = 1 << 20 // spec §6 "request body limit ~1MB"

// Server wires the gateway and auth service to an HTTP handler.
type Server struct {
	cfg  *config.Config
	gw   *gateway.Gateway
	auth *auth.Service
	hub  *hub
}

// NewServer builds a Server around the already-constructed gateway and auth
// service.
func NewServer(cfg *config.Config, gw *gateway.Gateway, authSvc *auth.Service) *Server {
	s := &Server{cfg: cfg, gw: gw, auth: authSvc, hub: newHub(gw)}
	go s.hub.run()
	return s
}

// Handler returns the HTTP handler with every API route, the websocket
// upgrade endpoint, and CORS middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.withAuth(s.handleLogout))

	mux.HandleFunc("GET /api/dex/summary", s.handleDexSummary)
	mux.HandleFunc("GET /api/dex/pools", s.handleDexPools)
	mux.HandleFunc("GET /api/dex/tokens", s.handleDexTokens)
	mux.HandleFunc("GET /api/dex/orderbook", s.handleDexOrderbook)
	mux.HandleFunc("GET /api/dex/history", s.handleDexHistory)
	mux.HandleFunc("GET /api/dex/balances", s.withAuth(s.handleDexBalances))
	mux.HandleFunc("POST /api/dex/swap", s.withAuth(s.handleDexSwap))
	mux.HandleFunc("POST /api/dex/liquidity", s.withAuth(s.handleDexLiquidity))
	mux.HandleFunc("DELETE /api/dex/liquidity", s.withAuth(s.handleDexRemoveLiquidity))
	mux.HandleFunc("POST /api/dex/order", s.withAuth(s.handleDexPlaceOrder))
	mux.HandleFunc("DELETE /api/dex/order/{id}", s.withAuth(s.handleDexCancelOrder))

	mux.HandleFunc("GET /api/market/prices", s.handleMarketPrices)
	mux.HandleFunc("GET /api/market/candles", s.handleMarketCandles)
	mux.HandleFunc("GET /api/market/orderbook", s.handleMarketOrderbook)

	mux.HandleFunc("GET /api/ai/analyze", s.handleAiAnalyze)
	mux.HandleFunc("GET /api/ai/backtest", s.handleAiBacktest)
	mux.HandleFunc("GET /api/ai/multi-analyze", s.handleAiMultiAnalyze)

	mux.HandleFunc("POST /api/exchange/order", s.withAuth(s.handleExchangeOrder))
	mux.HandleFunc("POST /api/exchange/cancel", s.withAuth(s.handleExchangeCancel))
	mux.HandleFunc("GET /api/exchange/balance", s.withAuth(s.handleExchangeBalance))
	mux.HandleFunc("GET /api/exchange/orders", s.withAuth(s.handleExchangeOpenOrders))
	mux.HandleFunc("GET /api/exchange/history", s.withAuth(s.handleExchangeHistory))

	mux.HandleFunc("POST /api/settings/api-keys", s.withAuth(s.handleSaveApiKeys))
	mux.HandleFunc("GET /api/settings/api-keys", s.withAuth(s.handleGetApiKeys))
	mux.HandleFunc("DELETE /api/settings/api-keys", s.withAuth(s.handleDeleteApiKeys))

	mux.HandleFunc("POST /api/auto/enable", s.withAuth(s.handleAutoEnable))
	mux.HandleFunc("POST /api/auto/disable", s.withAuth(s.handleAutoDisable))
	mux.HandleFunc("GET /api/auto/status", s.withAuth(s.handleAutoStatus))

	mux.HandleFunc("GET /api/events", s.withAuth(s.handleEvents))

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return corsMiddleware(limitBody(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// principalFromRequest extracts a bearer token from the Authorization
// header or a `token` query parameter and resolves it to a principal id
// (spec §6 "authentication via Authorization: Bearer <token> or ?token=").
func (s *Server) principalFromRequest(r *http.Request) (string, error) {
	token := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); auth != "" {
		if t, ok := strings.CutPrefix(auth, "Bearer "); ok {
			token = t
		}
	}
	if token == "" {
		return "", apperr.New(apperr.KindAuthRequired, "missing token")
	}
	p, err := s.auth.Authenticate(token)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// withAuth wraps a handler requiring a valid principal, passing the resolved
// principal id to the handler as its third argument.
func (s *Server) withAuth(next func(w http.ResponseWriter, r *http.Request, principal string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := s.principalFromRequest(r)
		if err != nil {
			writeErrorEnvelope(w, err)
			return
		}
		next(w, r, principal)
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.gw.Status()
	writeJSON(w, gateway.Wrap(engine.TritNeutral, map[string]interface{}{
		"status":              "ok",
		"db_ok":               st.DBOk,
		"pools":               st.Pools,
		"active_auto_traders": st.ActiveAutoTraders,
		"venues":              st.Venues,
	}))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorEnvelope maps an error to its HTTP status and writes it in the
// same envelope shape successful responses use, carrying a negative trit.
func writeErrorEnvelope(w http.ResponseWriter, err error) {
	writeJSONStatus(w, apperr.HTTPStatus(err), gateway.Wrap(engine.TritNegative, map[string]string{"error": err.Error()}))
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindBadInput, "malformed request body", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
