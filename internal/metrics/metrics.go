// Package metrics exposes Prometheus collectors for the kernel's core
// counters: swaps, order-book fills, exchange orders, auto-trade decisions
// and pauses, and rate-limit rejections. Registered in init() and served
// by promhttp.Handler() at /metrics, the way chidi150c-coinbase's bot
// wires its trading metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Swaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowny_dex_swaps_total",
			Help: "DEX swaps executed, by pool.",
		},
		[]string{"pool"},
	)

	OrdersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowny_dex_orders_total",
			Help: "DEX limit orders placed, by side.",
		},
		[]string{"side"},
	)

	Fills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crowny_dex_fills_total",
			Help: "Order book fills settled.",
		},
	)

	ExchangeOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowny_exchange_orders_total",
			Help: "Venue exchange orders placed, by venue and side.",
		},
		[]string{"venue", "side"},
	)

	AutoTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowny_auto_trades_total",
			Help: "Auto-trade executions, by venue and side.",
		},
		[]string{"venue", "side"},
	)

	AutoTradePauses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowny_auto_trade_pauses_total",
			Help: "Auto-trade cycles paused by a safety gate, by reason.",
		},
		[]string{"reason"},
	)

	SignalsComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crowny_ai_signals_total",
			Help: "AI consensus signals computed, by decision.",
		},
		[]string{"decision"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crowny_rate_limited_total",
			Help: "Requests rejected by the per-principal rate limiter.",
		},
	)

	ActiveAutoTraders = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crowny_active_auto_traders",
			Help: "Number of (principal, venue) auto-trade schedulers currently running.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		Swaps, OrdersPlaced, Fills, ExchangeOrders,
		AutoTrades, AutoTradePauses, SignalsComputed,
		RateLimited, ActiveAutoTraders,
	)
}

// Handler serves the Prometheus text exposition format at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
