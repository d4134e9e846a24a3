package api

import (
	"net/http"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/gateway"
)

func marketParams(r *http.Request) (venueName, symbol, interval string, count int) {
	q := r.URL.Query()
	return q.Get("exchange"), q.Get("symbol"), q.Get("interval"), queryInt(r, "count", 100)
}

func (s *Server) handleMarketPrices(w http.ResponseWriter, r *http.Request) {
	venueName, symbol, _, _ := marketParams(r)
	if venueName == "" || symbol == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange and symbol required"))
		return
	}
	ticker, err := s.gw.MarketTicker(venueName, symbol)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, ticker))
}

func (s *Server) handleMarketCandles(w http.ResponseWriter, r *http.Request) {
	venueName, symbol, interval, count := marketParams(r)
	if venueName == "" || symbol == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange and symbol required"))
		return
	}
	if interval == "" {
		interval = "1h"
	}
	candles, err := s.gw.MarketCandles(venueName, symbol, interval, count)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, candles))
}

func (s *Server) handleMarketOrderbook(w http.ResponseWriter, r *http.Request) {
	venueName, symbol, _, _ := marketParams(r)
	if venueName == "" || symbol == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange and symbol required"))
		return
	}
	book, err := s.gw.MarketOrderBook(venueName, symbol)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, book))
}

func (s *Server) handleAiAnalyze(w http.ResponseWriter, r *http.Request) {
	venueName, symbol, interval, count := marketParams(r)
	if venueName == "" || symbol == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange and symbol required"))
		return
	}
	if interval == "" {
		interval = "1h"
	}
	result, err := s.gw.Analyze(venueName, symbol, interval, count)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(result.Consensus.Trit, result))
}

func (s *Server) handleAiBacktest(w http.ResponseWriter, r *http.Request) {
	venueName, symbol, interval, count := marketParams(r)
	if venueName == "" || symbol == "" {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange and symbol required"))
		return
	}
	if interval == "" {
		interval = "1h"
	}
	result, err := s.gw.Backtest(venueName, symbol, interval, count)
	if err != nil {
		writeErrorEnvelope(w, err)
		return
	}
	writeJSON(w, gateway.Wrap(engine.TritNeutral, result))
}

func (s *Server) handleAiMultiAnalyze(w http.ResponseWriter, r *http.Request) {
	venueName, _, interval, count := marketParams(r)
	symbols := r.URL.Query()["symbol"]
	if venueName == "" || len(symbols) == 0 {
		writeErrorEnvelope(w, apperr.New(apperr.KindBadInput, "exchange and symbol required"))
		return
	}
	if interval == "" {
		interval = "1h"
	}
	results := s.gw.MultiAnalyze(venueName, symbols, interval, count)
	writeJSON(w, gateway.Wrap(engine.TritNeutral, results))
}
