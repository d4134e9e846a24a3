package gateway

import (
	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/metrics"
	"crowny-exchange/internal/venues"
)

const minAnalysisCandles = 50

// AnalyzeResult is AI.analyze's response shape (spec §4.9).
type AnalyzeResult struct {
	SignalID   string                  `json:"signalId"`
	Consensus  engine.Consensus        `json:"consensus"`
	Strategies []engine.StrategySignal `json:"strategies"`
	Risk       engine.RiskResult       `json:"risk"`
}

func (g *Gateway) fetchCandles(venueName, symbol, interval string, count int) ([]engine.Candle, error) {
	client, err := g.newVenueClient(venues.Name(venueName))
	if err != nil {
		return nil, err
	}
	raw, err := client.GetCandles(symbol, interval, count)
	if err != nil {
		return nil, err
	}
	candles := make([]engine.Candle, len(raw))
	for i, c := range raw {
		candles[i] = engine.Candle{
			Timestamp: c.OpenTime, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
		}
	}
	if len(candles) < minAnalysisCandles {
		return nil, apperr.New(apperr.KindBadInput, "at least 50 candles required")
	}
	return candles, nil
}

// Analyze runs AI.analyze (spec §4.9): fetch candles, compute consensus,
// persist the signal, return it alongside the contributing strategies/risk.
// Public (no rate limit, no principal) the way GET /api/ai/analyze is.
func (g *Gateway) Analyze(venueName, symbol, interval string, count int) (AnalyzeResult, error) {
	candles, err := g.fetchCandles(venueName, symbol, interval, count)
	if err != nil {
		return AnalyzeResult{}, err
	}
	risk := engine.Evaluate(engine.RiskActionBuy, engine.RiskParams{})
	consensus := engine.Analyze(candles, risk)

	signalID, err := g.store.AppendSignal(symbol, venueName, interval, consensus)
	if err != nil {
		return AnalyzeResult{}, err
	}
	metrics.SignalsComputed.WithLabelValues(string(consensus.Decision)).Inc()
	return AnalyzeResult{SignalID: signalID, Consensus: consensus, Strategies: consensus.Strategies, Risk: consensus.Risk}, nil
}

// Backtest runs AI.backtest (spec §4.9/§4.4).
func (g *Gateway) Backtest(venueName, symbol, interval string, count int) (engine.BacktestResult, error) {
	candles, err := g.fetchCandles(venueName, symbol, interval, count)
	if err != nil {
		return engine.BacktestResult{}, err
	}
	return engine.Backtest(candles), nil
}

// MultiAnalyzeResult pairs a symbol with its analysis outcome (or error).
type MultiAnalyzeResult struct {
	Symbol string         `json:"symbol"`
	Result *AnalyzeResult `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// MultiAnalyze runs AI.multiAnalyze over several symbols (spec §4.9),
// isolating one symbol's failure from the rest of the batch.
func (g *Gateway) MultiAnalyze(venueName string, symbols []string, interval string, count int) []MultiAnalyzeResult {
	out := make([]MultiAnalyzeResult, 0, len(symbols))
	for _, symbol := range symbols {
		result, err := g.Analyze(venueName, symbol, interval, count)
		if err != nil {
			out = append(out, MultiAnalyzeResult{Symbol: symbol, Error: err.Error()})
			continue
		}
		r := result
		out = append(out, MultiAnalyzeResult{Symbol: symbol, Result: &r})
	}
	return out
}
