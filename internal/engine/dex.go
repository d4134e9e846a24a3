package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crowny-exchange/internal/apperr"
)

// poolSpec describes one of the six bootstrap pools (spec §4.1).
type poolSpec struct {
	tokenA, tokenB     string
	feeBps             int64
	reserveA, reserveB int64
}

func bootstrapPools() []poolSpec {
	return []poolSpec{
		{"CRWN", "USDT", 30, 10_000_000, 1_250_000},
		{"CRWN", "ETH", 30, 10_000_000, 400},
		{"CRWN", "BTC", 30, 10_000_000, 25},
		{"CRWN", "KRW", 20, 10_000_000, 1_625_000_000},
		{"BTC", "USDT", 10, 100, 6_500_000},
		{"ETH", "USDT", 15, 1_000, 3_200_000},
	}
}

const systemLiquidityOwner = "system"

// DEX owns the token registry, pool map, and shared order book (spec §4.1,
// §5 "single in-memory owner").
type DEX struct {
	tokens map[string]Token

	mu    sync.RWMutex
	pools map[string]*Pool
	Book  *OrderBook
}

// NewDEX builds the DEX engine with the fixed token registry and the six
// bootstrap pools, seeded with system-owned liquidity.
func NewDEX(now time.Time) *DEX {
	d := &DEX{
		tokens: make(map[string]Token),
		pools:  make(map[string]*Pool),
		Book:   NewOrderBook(),
	}
	for _, t := range DefaultTokens() {
		d.tokens[t.Symbol] = t
	}
	for _, spec := range bootstrapPools() {
		pool := NewPool(spec.tokenA, spec.tokenB, spec.feeBps)
		pool.Bootstrap(systemLiquidityOwner,
			decimal.NewFromInt(spec.reserveA), decimal.NewFromInt(spec.reserveB), now)
		d.pools[pool.ID] = pool
	}
	return d
}

// Token looks up a registered token by symbol.
func (d *DEX) Token(symbol string) (Token, bool) {
	t, ok := d.tokens[symbol]
	return t, ok
}

// Tokens returns the full registry.
func (d *DEX) Tokens() []Token {
	out := make([]Token, 0, len(d.tokens))
	for _, t := range d.tokens {
		out = append(out, t)
	}
	return out
}

// Pool returns the pool for the given id, or an apperr NotFound.
func (d *DEX) Pool(id string) (*Pool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.pools[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "pool "+id)
	}
	return p, nil
}

// Pools returns every pool's current snapshot.
func (d *DEX) Pools() []Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Snapshot, 0, len(d.pools))
	for _, p := range d.pools {
		out = append(out, p.Snapshot())
	}
	return out
}

// SwapDirection resolves which side of a pool tokenIn corresponds to.
func SwapDirection(pool *Pool, tokenIn string) (aToB bool, ok bool) {
	switch tokenIn {
	case pool.TokenA:
		return true, true
	case pool.TokenB:
		return false, true
	default:
		return false, false
	}
}

// OtherToken returns the pool's non-tokenIn side.
func OtherToken(pool *Pool, tokenIn string) string {
	if tokenIn == pool.TokenA {
		return pool.TokenB
	}
	return pool.TokenA
}
