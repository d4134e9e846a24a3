package gateway

import (
	"time"

	"crowny-exchange/internal/db"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/venues"
)

// DEXPools returns every pool's current snapshot (spec §6 GET /api/dex/pools).
func (g *Gateway) DEXPools() []engine.Snapshot { return g.dex.Pools() }

// DEXTokens returns the fixed token registry (spec §6 GET /api/dex/tokens).
func (g *Gateway) DEXTokens() []engine.Token { return g.dex.Tokens() }

// DEXSummary is the coarse read used by GET /api/dex/summary: pool count
// and aggregate volume/fees.
func (g *Gateway) DEXSummary() map[string]interface{} {
	pools := g.dex.Pools()
	volume, fees := 0.0, 0.0
	for _, p := range pools {
		v, _ := p.Volume24h.Float64()
		f, _ := p.FeesCollected.Float64()
		volume += v
		fees += f
	}
	return map[string]interface{}{
		"pools":      len(pools),
		"tokens":     len(g.dex.Tokens()),
		"volume_24h": volume,
		"fees_24h":   fees,
	}
}

// DEXOrderbook returns the open orders resting against a pool (spec §6
// GET /api/dex/orderbook?pool).
func (g *Gateway) DEXOrderbook(poolID string) ([]*engine.LimitOrder, error) {
	if _, err := g.dex.Pool(poolID); err != nil {
		return nil, err
	}
	return g.dex.Book.OpenOrders(poolID), nil
}

// DEXHistory returns the most recent swaps across all pools (spec §6
// GET /api/dex/history?limit).
func (g *Gateway) DEXHistory(limit int) ([]db.Swap, error) {
	return g.store.ListSwaps(limit)
}

// DEXBalances returns a principal's wallet view (spec §6 GET /api/dex/balances).
func (g *Gateway) DEXBalances(principal string) ([]db.Wallet, error) {
	return g.store.AllWallets(principal)
}

// MarketTicker proxies a venue's current best price (spec §6
// GET /api/market/prices).
func (g *Gateway) MarketTicker(venueName, symbol string) (venues.Ticker, error) {
	client, err := g.newVenueClient(venues.Name(venueName))
	if err != nil {
		return venues.Ticker{}, err
	}
	return client.GetTicker(symbol)
}

// MarketCandles proxies a venue's OHLCV series (spec §6 GET /api/market/candles).
func (g *Gateway) MarketCandles(venueName, symbol, interval string, count int) ([]venues.Candle, error) {
	client, err := g.newVenueClient(venues.Name(venueName))
	if err != nil {
		return nil, err
	}
	return client.GetCandles(symbol, interval, count)
}

// MarketOrderBook proxies a venue's public order book (spec §6
// GET /api/market/orderbook).
func (g *Gateway) MarketOrderBook(venueName, symbol string) (venues.OrderBook, error) {
	client, err := g.newVenueClient(venues.Name(venueName))
	if err != nil {
		return venues.OrderBook{}, err
	}
	return client.GetOrderBook(symbol)
}

// statusHealthSymbol is the ticker probed against each venue for
// GET /api/status's health check.
const statusHealthSymbol = "BTCUSDT"

// Status is GET /api/status's payload: DB connectivity, the number of
// (principal, venue) auto-traders currently scheduled, and a best-effort
// health check against each configured venue.
type Status struct {
	DBOk              bool            `json:"db_ok"`
	Pools             int             `json:"pools"`
	ActiveAutoTraders int             `json:"active_auto_traders"`
	Venues            map[string]bool `json:"venues"`
}

// Status reports the process health summary (spec §6 GET /api/status).
func (g *Gateway) Status() Status {
	st := Status{
		Pools:  len(g.dex.Pools()),
		Venues: make(map[string]bool),
	}
	st.DBOk = g.store.SqlDB().Ping() == nil

	g.autoMu.Lock()
	st.ActiveAutoTraders = len(g.auto)
	g.autoMu.Unlock()

	for _, name := range []venues.Name{venues.VenueA, venues.VenueB} {
		client, err := g.newVenueClient(name)
		if err != nil {
			st.Venues[string(name)] = false
			continue
		}
		_, err = client.GetTicker(statusHealthSymbol)
		st.Venues[string(name)] = err == nil
	}
	return st
}

// runDexTicker emits a dex_update event every dexTickInterval carrying the
// current pool snapshots, the synthetic print websocket subscribers key off
// (spec §5 "a global ticker drives synthetic DEX prints every 5s").
func (g *Gateway) runDexTicker(stop chan struct{}) {
	ticker := time.NewTicker(dexTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.events.Emit(Event{Type: "dex_update", Payload: g.dex.Pools()})
		}
	}
}
