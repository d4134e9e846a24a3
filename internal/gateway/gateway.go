// Package gateway is the kernel's single funnel: every authenticated
// operation runs rate-limit → route → transact → emit, hosting the
// DEX/AI/Exchange/Auto surfaces, the event bus, and the auto-trade
// scheduler as the one place that wires every subsystem together.
package gateway

import (
	"sync"
	"time"

	"crowny-exchange/internal/config"
	"crowny-exchange/internal/db"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/executor"
	"crowny-exchange/internal/logger"
	"crowny-exchange/internal/vault"
	"crowny-exchange/internal/venues"
)

const tag = "GATEWAY"

// dexTickInterval drives the synthetic DEX price print (spec §5 "a global
// ticker drives synthetic DEX prints every 5s").
const dexTickInterval = 5 * time.Second

const (
	protocolName    = "CTP-T"
	protocolVersion = "1.0.0"
	engineName      = "crowny-kernel"
)

// Header is the envelope wrapper every gateway result carries (spec §4.9).
type Header struct {
	Protocol string `json:"protocol"`
	Version  string `json:"version"`
	Trit     string `json:"trit"`
	Engine   string `json:"engine"`
}

// Envelope is the `{ctp: header, ...}` response shape (spec §4.9).
type Envelope struct {
	CTP  Header      `json:"ctp"`
	Data interface{} `json:"data"`
}

// Wrap builds the standard envelope around a result, tagging it with the
// trit that best characterizes the outcome (e.g. swap quality, consensus
// decision, or neutral for reads).
func Wrap(trit engine.Trit, data interface{}) Envelope {
	return Envelope{
		CTP: Header{Protocol: protocolName, Version: protocolVersion, Trit: trit.Glyph(), Engine: engineName},
		Data: data,
	}
}

// Gateway owns every process-wide shared resource named in spec §5: the
// DEX engine, the rate-bucket map, the event-log ring, and the auto-trader
// map. None of these are ambient singletons; all are fields here,
// constructed once in New and torn down in Shutdown.
type Gateway struct {
	store *db.DB
	dex   *engine.DEX
	exec  *executor.Executor
	vault *vault.Vault

	// newVenueClient builds a credential-less client for public market data
	// (AI.analyze/backtest, auto-trade candle fetches). A field, like
	// executor.newClient, so tests can stub it out.
	newVenueClient func(venues.Name) (venues.Client, error)

	limiter *rateLimiter
	events  *EventBus

	autoMu         sync.Mutex
	auto           map[autoKey]*autoTrader
	dailyResetStop chan struct{}
	dexTickStop    chan struct{}
}

// New wires a Gateway around the already-constructed store/DEX/executor/vault.
func New(store *db.DB, dex *engine.DEX, exec *executor.Executor, v *vault.Vault) *Gateway {
	g := &Gateway{
		store: store,
		dex:   dex,
		exec:  exec,
		vault: v,
		newVenueClient: func(name venues.Name) (venues.Client, error) {
			return venues.NewClient(name, venues.Credentials{})
		},
		limiter: newRateLimiter(),
		events:  NewEventBus(),
		auto:    make(map[autoKey]*autoTrader),
	}
	return g
}

// Events exposes the event bus for the transport layer's websocket fan-out
// and GET /api/events.
func (g *Gateway) Events() *EventBus { return g.events }

// checkRate applies the per-principal token bucket (spec §4.9). Public
// (unauthenticated) reads pass an empty principal and are never limited.
func (g *Gateway) checkRate(principal string) error {
	if principal == "" {
		return nil
	}
	return g.limiter.Allow(principal)
}

// autoTradeDefaults is the config applied on first enable (spec §4.10),
// sourced from config.DefaultAutoTrade rather than hardcoded again here.
func autoTradeDefaults() config.AutoTradeDefaults {
	return config.DefaultAutoTrade()
}

// StartBackground launches the daily trade-counter reset loop (spec §4.10
// "daily reset: one-shot delay to next local midnight, then every 24h") and
// resumes any auto-traders left enabled from a prior process run.
func (g *Gateway) StartBackground() {
	g.dailyResetStop = make(chan struct{})
	go g.runDailyReset(g.dailyResetStop)

	g.dexTickStop = make(chan struct{})
	go g.runDexTicker(g.dexTickStop)

	configs, err := g.store.ListEnabledAutoTrade()
	if err != nil {
		logger.Warn(tag, "resume auto-traders: "+err.Error())
		return
	}
	for _, c := range configs {
		g.startScheduler(c.UserID, c.Venue)
	}
}

// Shutdown stops the daily-reset loop and every running auto-trader timer,
// then flushes every pool's current snapshot to the store (spec §5
// "process termination ... best-effort, not transactional").
func (g *Gateway) Shutdown() {
	if g.dailyResetStop != nil {
		close(g.dailyResetStop)
	}
	if g.dexTickStop != nil {
		close(g.dexTickStop)
	}
	g.autoMu.Lock()
	for key, t := range g.auto {
		close(t.stop)
		delete(g.auto, key)
	}
	g.autoMu.Unlock()

	now := time.Now()
	for _, snap := range g.dex.Pools() {
		if err := db.UpsertPoolSnapshot(g.store.SqlDB(), snap, now); err != nil {
			logger.Warn(tag, "flush pool "+snap.ID+" on shutdown: "+err.Error())
		}
	}
}

func nextLocalMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
