package gateway

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/db"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/executor"
	"crowny-exchange/internal/logger"
	"crowny-exchange/internal/metrics"
	"crowny-exchange/internal/vault"
	"crowny-exchange/internal/venues"
)

// autoCycleConcurrency bounds how many of a principal's configured symbols
// run their auto-trade cycle at once per tick (spec §4.10 "isolating one
// symbol's failure from its siblings" — isolation extends to concurrency,
// not just error handling).
const autoCycleConcurrency = 4

const autoTradeCadence = 30 * time.Second
const autoTradeCandleCount = 200
const autoTradeInterval = "1h"

// autoKey identifies one running scheduler loop.
type autoKey struct {
	principal string
	venue     string
}

// autoTrader is the in-memory state behind one running (principal, venue)
// scheduler: its stop signal, and the entry price of any open long per
// symbol, needed to settle the consecutive-loss counter on exit (spec §9
// "consecutive-loss accounting" resolved here rather than left unresolved).
type autoTrader struct {
	stop chan struct{}

	mu       sync.Mutex
	entry    map[string]float64
	peakUSDT float64
}

// startScheduler launches the 30s-cadence loop for (principal, venue) if one
// isn't already running (spec §4.10 "enable is idempotent").
func (g *Gateway) startScheduler(principal, venueName string) {
	key := autoKey{principal, venueName}

	g.autoMu.Lock()
	if _, ok := g.auto[key]; ok {
		g.autoMu.Unlock()
		return
	}
	trader := &autoTrader{stop: make(chan struct{}), entry: make(map[string]float64)}
	g.auto[key] = trader
	g.autoMu.Unlock()

	metrics.ActiveAutoTraders.Inc()
	go g.runScheduler(principal, venueName, trader)
}

// stopScheduler halts and forgets the (principal, venue) loop, a no-op if
// none is running.
func (g *Gateway) stopScheduler(principal, venueName string) {
	key := autoKey{principal, venueName}

	g.autoMu.Lock()
	defer g.autoMu.Unlock()
	if t, ok := g.auto[key]; ok {
		close(t.stop)
		delete(g.auto, key)
		metrics.ActiveAutoTraders.Dec()
	}
}

func (g *Gateway) runScheduler(principal, venueName string, trader *autoTrader) {
	ticker := time.NewTicker(autoTradeCadence)
	defer ticker.Stop()
	for {
		select {
		case <-trader.stop:
			return
		case <-ticker.C:
			g.runAutoCycle(principal, venueName, trader)
		}
	}
}

// runAutoCycle runs one tick of the scheduler across every configured
// symbol, bounding concurrency with a weighted semaphore and isolating one
// symbol's failure from its siblings.
func (g *Gateway) runAutoCycle(principal, venueName string, trader *autoTrader) {
	cfg, err := g.store.GetAutoTradeConfig(principal, venueName)
	if err != nil || !cfg.Enabled {
		return
	}

	sem := semaphore.NewWeighted(autoCycleConcurrency)
	var wg sync.WaitGroup
	ctx := context.Background()

	for _, symbol := range strings.Split(cfg.Symbols, ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			continue
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer sem.Release(1)
			if err := g.autoCycleSymbol(principal, venueName, symbol, trader); err != nil {
				g.events.Emit(Event{Type: "auto_error", Principal: principal, Payload: map[string]interface{}{
					"venue": venueName, "symbol": symbol, "error": err.Error(),
				}})
			}
		}(symbol)
	}
	wg.Wait()
}

func quoteAssetFor(symbol string) string {
	if strings.HasSuffix(symbol, "USDT") {
		return "USDT"
	}
	return "USDT"
}

func baseAssetFor(symbol, quote string) string {
	return strings.TrimSuffix(symbol, quote)
}

func truncate(v float64, decimals int) float64 {
	factor := math.Pow10(decimals)
	return math.Trunc(v*factor) / factor
}

// pause emits auto_trade_paused for an otherwise-valid signal blocked by a
// safety gate, rather than silently dropping it (spec §9 scenario: a
// consecutive-loss cap must surface as an observable pause, not nothing).
func (g *Gateway) pause(principal, venueName, symbol, reason string) {
	metrics.AutoTradePauses.WithLabelValues(reason).Inc()
	g.events.Emit(Event{Type: "auto_trade_paused", Principal: principal, Payload: map[string]interface{}{
		"venue": venueName, "symbol": symbol, "reason": reason,
	}})
}

// autoCycleSymbol runs the per-symbol auto-trade cycle (spec §4.10 steps
// 1-8): fetch candles, analyze, gate on confidence/decision/risk/daily
// cap/consecutive-loss cap, size the order, execute, and reconcile the
// consecutive-loss counter against the realized outcome.
func (g *Gateway) autoCycleSymbol(principal, venueName, symbol string, trader *autoTrader) error {
	candles, err := g.fetchCandles(venueName, symbol, autoTradeInterval, autoTradeCandleCount)
	if err != nil {
		return err
	}

	wallets, err := g.store.AllWallets(principal)
	if err != nil {
		return err
	}
	quoteSymbol := quoteAssetFor(symbol)
	baseSymbol := baseAssetFor(symbol, quoteSymbol)
	quoteAvailable, baseAvailable := 0.0, 0.0
	for _, w := range wallets {
		if w.Symbol == quoteSymbol {
			quoteAvailable, _ = w.Available().Float64()
		}
		if w.Symbol == baseSymbol {
			baseAvailable, _ = w.Available().Float64()
		}
	}

	cfg, err := g.store.GetAutoTradeConfig(principal, venueName)
	if err != nil {
		return err
	}

	trader.mu.Lock()
	if quoteAvailable > trader.peakUSDT {
		trader.peakUSDT = quoteAvailable
	}
	peak := trader.peakUSDT
	entryPrice, hasPosition := trader.entry[symbol]
	trader.mu.Unlock()

	var openPosition *engine.Position
	if hasPosition && entryPrice > 0 {
		last := candles[len(candles)-1].Close
		openPosition = &engine.Position{EntryPrice: entryPrice, PnLPct: (last - entryPrice) / entryPrice}
	}

	risk := engine.Evaluate(engine.RiskActionBuy, engine.RiskParams{
		MaxDailyTrades:  cfg.MaxDailyTrades,
		DailyTradesUsed: cfg.DailyTradesUsed,
		StopLossPct:     cfg.StopLossPct,
		TakeProfitPct:   cfg.TakeProfitPct,
		PeakBalance:     peak,
		CurrentBalance:  quoteAvailable,
		OpenPosition:    openPosition,
	})
	consensus := engine.Analyze(candles, risk)

	if consensus.AvgConfidence < cfg.MinConfidence {
		return nil
	}
	if consensus.Decision == engine.DecisionHold {
		return nil
	}
	if !risk.Allowed {
		g.pause(principal, venueName, symbol, "risk gate")
		return nil
	}
	if cfg.DailyTradesUsed >= cfg.MaxDailyTrades {
		g.pause(principal, venueName, symbol, "daily trade cap reached")
		return nil
	}
	if cfg.MaxConsecutiveLosses > 0 && cfg.ConsecutiveLosses >= cfg.MaxConsecutiveLosses {
		g.pause(principal, venueName, symbol, "consecutive loss cap reached")
		return nil
	}

	var side venues.Side
	var quantity float64
	switch consensus.Decision {
	case engine.DecisionBuy:
		side = venues.SideBuy
		quantity = truncate(quoteAvailable*cfg.MaxPositionPct, 2)
	case engine.DecisionSell:
		side = venues.SideSell
		quantity = truncate(baseAvailable*cfg.MaxPositionPct, 3)
	}
	if quantity <= 0 {
		return nil
	}

	signalID, err := g.store.AppendSignal(symbol, venueName, autoTradeInterval, consensus)
	if err != nil {
		return err
	}

	order, err := g.exec.ExecuteOrder(executor.OrderRequest{
		Principal: principal, Venue: venueName, Symbol: symbol,
		Side: side, Type: venues.OrderTypeMarket, Quantity: quantity,
		Source: "auto", SignalID: signalID,
	})
	if err != nil {
		return err
	}

	g.reconcile(principal, venueName, symbol, trader, consensus.Decision, order.FilledPrice)

	metrics.AutoTrades.WithLabelValues(venueName, string(side)).Inc()
	g.events.Emit(Event{Type: "auto_trade", Principal: principal, Payload: map[string]interface{}{
		"venue": venueName, "symbol": symbol, "decision": string(consensus.Decision), "order": order,
	}})
	return nil
}

// reconcile tracks the entry price of an opened long and, on close, compares
// the exit fill against it to settle the consecutive-loss counter (spec §9
// "consecutive-loss accounting" across fills the executor's safety gate
// alone cannot see, since it only knows the counter, not the PnL behind it).
func (g *Gateway) reconcile(principal, venueName, symbol string, trader *autoTrader, decision engine.Decision, fillPrice float64) {
	trader.mu.Lock()
	defer trader.mu.Unlock()
	switch decision {
	case engine.DecisionBuy:
		trader.entry[symbol] = fillPrice
	case engine.DecisionSell:
		entryPrice, ok := trader.entry[symbol]
		delete(trader.entry, symbol)
		if !ok || entryPrice <= 0 {
			return
		}
		isProfit := fillPrice > entryPrice
		if err := g.exec.RecordTradeResult(principal, venueName, isProfit); err != nil {
			logger.Warn(tag, "record trade result: "+err.Error())
		}
	}
}

// SaveApiKeys encrypts and stores a principal's venue credentials (spec
// §4.9 Auto.saveApiKeys), invalidating any cached executor client so the
// next order picks up the new keys.
func (g *Gateway) SaveApiKeys(principal, venueName, accessKey, secretKey string) error {
	if err := g.checkRate(principal); err != nil {
		return err
	}
	sealed, err := g.vault.EncryptKeyPair(accessKey, secretKey)
	if err != nil {
		return err
	}
	if err := g.store.UpsertKey(principal, venueName, sealed, "trade"); err != nil {
		return err
	}
	g.exec.Invalidate(principal, venueName)
	return nil
}

// GetApiKeys returns the masked view of a principal's stored venue
// credentials (spec §4.9 Auto.getApiKeys).
func (g *Gateway) GetApiKeys(principal, venueName string) (vault.Masked, error) {
	if err := g.checkRate(principal); err != nil {
		return vault.Masked{}, err
	}
	sealed, _, err := g.store.GetKey(principal, venueName)
	if err != nil {
		return vault.Masked{}, err
	}
	accessKey, secretKey, err := g.vault.DecryptKeyPair(sealed)
	if err != nil {
		return vault.Masked{}, err
	}
	return vault.MaskKeyPair(accessKey, secretKey), nil
}

// DeleteApiKeys removes a principal's stored venue credentials and stops
// any running auto-trader for that venue, since it can no longer place
// orders without them (spec §4.9 Auto.deleteApiKeys).
func (g *Gateway) DeleteApiKeys(principal, venueName string) error {
	if err := g.checkRate(principal); err != nil {
		return err
	}
	if err := g.store.DeleteKey(principal, venueName); err != nil {
		return err
	}
	g.exec.Invalidate(principal, venueName)
	_ = g.store.SetAutoTradeEnabled(principal, venueName, false)
	g.stopScheduler(principal, venueName)
	return nil
}

// AutoEnable turns on the scheduler for (principal, venue), seeding a fresh
// config from config.DefaultAutoTrade on first use. Re-enabling an already
// enabled tuple is a no-op (spec §4.10 "enable is idempotent").
func (g *Gateway) AutoEnable(principal, venueName string) (db.AutoTradeConfig, error) {
	if err := g.checkRate(principal); err != nil {
		return db.AutoTradeConfig{}, err
	}
	if _, _, err := g.store.GetKey(principal, venueName); err != nil {
		return db.AutoTradeConfig{}, apperr.New(apperr.KindBadInput, "venue credentials must be saved before auto-trade can be enabled")
	}

	existing, err := g.store.GetAutoTradeConfig(principal, venueName)
	if err == nil && existing.Enabled {
		g.startScheduler(principal, venueName)
		return existing, nil
	}

	defaults := autoTradeDefaults()
	cfg := db.AutoTradeConfig{
		UserID: principal, Venue: venueName, Enabled: true,
		Symbols:              defaults.Symbols,
		MaxPositionPct:       defaults.MaxPositionPct,
		StopLossPct:          defaults.StopLossPct,
		TakeProfitPct:        defaults.TakeProfitPct,
		MinConfidence:        defaults.MinConfidence,
		MaxDailyTrades:       defaults.MaxDailyTrades,
		MaxConsecutiveLosses: 3,
		DailyResetAt:         nextLocalMidnight(time.Now()),
	}
	if err := g.store.UpsertAutoTradeConfig(cfg); err != nil {
		return db.AutoTradeConfig{}, err
	}
	g.startScheduler(principal, venueName)
	return g.store.GetAutoTradeConfig(principal, venueName)
}

// AutoDisable turns off the scheduler for (principal, venue) (spec §4.9
// Auto.disable). The persisted config and its counters survive so a later
// re-enable resumes with the same safety history.
func (g *Gateway) AutoDisable(principal, venueName string) error {
	if err := g.checkRate(principal); err != nil {
		return err
	}
	if err := g.store.SetAutoTradeEnabled(principal, venueName, false); err != nil {
		return err
	}
	g.stopScheduler(principal, venueName)
	return nil
}

// AutoStatus returns the persisted config and running counters for
// (principal, venue) (spec §4.9 Auto.status).
func (g *Gateway) AutoStatus(principal, venueName string) (db.AutoTradeConfig, error) {
	if err := g.checkRate(principal); err != nil {
		return db.AutoTradeConfig{}, err
	}
	return g.store.GetAutoTradeConfig(principal, venueName)
}

// runDailyReset waits for the next local midnight, resets every config's
// daily trade counter, and repeats every 24h thereafter (spec §4.10 "daily
// reset").
func (g *Gateway) runDailyReset(stop chan struct{}) {
	timer := time.NewTimer(time.Until(nextLocalMidnight(time.Now())))
	select {
	case <-stop:
		timer.Stop()
		return
	case <-timer.C:
	}
	g.resetAllDailyCounters()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.resetAllDailyCounters()
		}
	}
}

func (g *Gateway) resetAllDailyCounters() {
	configs, err := g.store.ListAutoTradeConfigs()
	if err != nil {
		logger.Warn(tag, "list auto trade configs for daily reset: "+err.Error())
		return
	}
	resetAt := nextLocalMidnight(time.Now())
	for _, c := range configs {
		if err := db.ResetDailyTrades(g.store.SqlDB(), c.UserID, c.Venue, resetAt); err != nil {
			logger.Warn(tag, "reset daily trades for "+c.UserID+"/"+c.Venue+": "+err.Error())
		}
	}
}
