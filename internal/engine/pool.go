package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crowny-exchange/internal/apperr"
)

const priceHistoryCap = 1000

// PricePoint is one sample in a pool's price history ring.
type PricePoint struct {
	Timestamp int64
	Price     float64
}

// Pool is a constant-product AMM pool (spec §3, §4.1). Reserves and LP
// shares are mutated only through AddLiquidity/RemoveLiquidity/Swap, all
// under mu.
type Pool struct {
	ID       string
	TokenA   string
	TokenB   string
	FeeBps   int64

	mu            sync.Mutex
	reserveA      decimal.Decimal
	reserveB      decimal.Decimal
	totalLPShares decimal.Decimal
	lpHolders     map[string]decimal.Decimal
	volume24h     decimal.Decimal
	feesCollected decimal.Decimal
	swapCount     int64
	priceHistory  []PricePoint
}

// NewPool builds an empty pool for the given token pair.
func NewPool(tokenA, tokenB string, feeBps int64) *Pool {
	return &Pool{
		ID:        PoolID(tokenA, tokenB),
		TokenA:    tokenA,
		TokenB:    tokenB,
		FeeBps:    feeBps,
		reserveA:  decimal.Zero,
		reserveB:  decimal.Zero,
		totalLPShares: decimal.Zero,
		lpHolders: make(map[string]decimal.Decimal),
	}
}

// PoolID builds the canonical "A-B" pool identifier (spec §3).
func PoolID(tokenA, tokenB string) string {
	return fmt.Sprintf("%s-%s", tokenA, tokenB)
}

// Snapshot is a read-only copy of a pool's state for API/event serialization.
type Snapshot struct {
	ID            string          `json:"id"`
	TokenA        string          `json:"token_a"`
	TokenB        string          `json:"token_b"`
	ReserveA      decimal.Decimal `json:"reserve_a"`
	ReserveB      decimal.Decimal `json:"reserve_b"`
	FeeBps        int64           `json:"fee_bps"`
	TotalLPShares decimal.Decimal `json:"total_lp_shares"`
	Volume24h     decimal.Decimal `json:"volume_24h"`
	FeesCollected decimal.Decimal `json:"fees_collected"`
	SwapCount     int64           `json:"swap_count"`
	PriceAinB     float64         `json:"price_a_in_b"`
}

// Snapshot returns a consistent read of the pool's public state.
func (p *Pool) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		ID: p.ID, TokenA: p.TokenA, TokenB: p.TokenB,
		ReserveA: p.reserveA, ReserveB: p.reserveB, FeeBps: p.FeeBps,
		TotalLPShares: p.totalLPShares, Volume24h: p.volume24h,
		FeesCollected: p.feesCollected, SwapCount: p.swapCount,
		PriceAinB: p.priceAinBLocked(),
	}
}

func (p *Pool) priceAinBLocked() float64 {
	if p.reserveA.IsZero() {
		return 0
	}
	f, _ := p.reserveB.Div(p.reserveA).Float64()
	return f
}

func (p *Pool) appendPrice(ts int64) {
	price := p.priceAinBLocked()
	p.priceHistory = append(p.priceHistory, PricePoint{Timestamp: ts, Price: price})
	if len(p.priceHistory) > priceHistoryCap {
		p.priceHistory = p.priceHistory[len(p.priceHistory)-priceHistoryCap:]
	}
}

// PriceHistory returns a copy of the pool's price ring buffer.
func (p *Pool) PriceHistory() []PricePoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PricePoint, len(p.priceHistory))
	copy(out, p.priceHistory)
	return out
}

// Bootstrap seeds a freshly-created pool with system-owned liquidity,
// bypassing the usual share-minting math (used only at process init).
func (p *Pool) Bootstrap(owner string, reserveA, reserveB decimal.Decimal, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserveA = reserveA
	p.reserveB = reserveB
	shares := isqrt(reserveA.Mul(reserveB))
	p.totalLPShares = shares
	p.lpHolders[owner] = shares
	p.appendPrice(now.UnixMilli())
}

// AddLiquidity mints LP shares for amountA/amountB at the pool's current
// ratio (or seeds the ratio if the pool is empty), per spec §4.1.
func (p *Pool) AddLiquidity(owner string, amountA, amountB decimal.Decimal, now time.Time) (shares decimal.Decimal, err error) {
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return decimal.Zero, apperr.New(apperr.KindBadInput, "amount must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.totalLPShares.IsZero() {
		shares = isqrt(amountA.Mul(amountB))
	} else {
		shareFromA := floorDiv(amountA.Mul(p.totalLPShares), p.reserveA)
		shareFromB := floorDiv(amountB.Mul(p.totalLPShares), p.reserveB)
		if shareFromA.LessThan(shareFromB) {
			shares = shareFromA
		} else {
			shares = shareFromB
		}
	}
	if shares.Sign() <= 0 {
		return decimal.Zero, apperr.New(apperr.KindZeroOutput, "liquidity too small to mint shares")
	}

	p.reserveA = p.reserveA.Add(amountA)
	p.reserveB = p.reserveB.Add(amountB)
	p.totalLPShares = p.totalLPShares.Add(shares)
	p.lpHolders[owner] = p.lpHolders[owner].Add(shares)
	p.appendPrice(now.UnixMilli())
	return shares, nil
}

// RemoveLiquidity burns shares held by owner and returns the proportional
// payout of each reserve (spec §4.1).
func (p *Pool) RemoveLiquidity(owner string, shares decimal.Decimal, now time.Time) (amountA, amountB decimal.Decimal, err error) {
	if shares.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, apperr.New(apperr.KindBadInput, "shares must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	held := p.lpHolders[owner]
	if shares.GreaterThan(held) {
		return decimal.Zero, decimal.Zero, apperr.New(apperr.KindBadInput, "shares exceed holding")
	}

	amountA = floorDiv(shares.Mul(p.reserveA), p.totalLPShares)
	amountB = floorDiv(shares.Mul(p.reserveB), p.totalLPShares)

	p.reserveA = p.reserveA.Sub(amountA)
	p.reserveB = p.reserveB.Sub(amountB)
	p.totalLPShares = p.totalLPShares.Sub(shares)
	p.lpHolders[owner] = held.Sub(shares)
	p.appendPrice(now.UnixMilli())
	return amountA, amountB, nil
}

// SwapResult is the outcome of one constant-product swap (spec §4.1).
type SwapResult struct {
	AmountOut   decimal.Decimal
	Fee         decimal.Decimal
	PriceImpact float64
	Trit        Trit
}

const feeBpsDenominator = 10000

// SwapAToB executes amountIn of TokenA into TokenB, advancing the pool's
// reserves and k invariant in place (spec §4.1 steps 1-8).
func (p *Pool) SwapAToB(amountIn decimal.Decimal, now time.Time) (SwapResult, error) {
	return p.swap(true, amountIn, now)
}

// SwapBToA executes amountIn of TokenB into TokenA, symmetric to SwapAToB.
func (p *Pool) SwapBToA(amountIn decimal.Decimal, now time.Time) (SwapResult, error) {
	return p.swap(false, amountIn, now)
}

func (p *Pool) swap(aToB bool, amountIn decimal.Decimal, now time.Time) (SwapResult, error) {
	if amountIn.Sign() <= 0 {
		return SwapResult{}, apperr.New(apperr.KindBadInput, "amountIn must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	reserveIn, reserveOut := p.reserveA, p.reserveB
	if !aToB {
		reserveIn, reserveOut = p.reserveB, p.reserveA
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return SwapResult{}, apperr.New(apperr.KindInsufficientLiquidity, p.ID)
	}

	fee := floorDiv(amountIn.Mul(decimal.NewFromInt(p.FeeBps)), decimal.NewFromInt(feeBpsDenominator))
	afterFee := amountIn.Sub(fee)
	k := reserveIn.Mul(reserveOut)
	newIn := reserveIn.Add(afterFee)
	newOut := floorDiv(k, newIn)
	amountOut := reserveOut.Sub(newOut)
	if amountOut.Sign() <= 0 {
		return SwapResult{}, apperr.New(apperr.KindZeroOutput, p.ID)
	}

	impact := priceImpact(reserveIn, reserveOut, newIn, newOut)

	if aToB {
		p.reserveA = newIn
		p.reserveB = newOut
	} else {
		p.reserveB = newIn
		p.reserveA = newOut
	}
	p.volume24h = p.volume24h.Add(amountIn)
	p.feesCollected = p.feesCollected.Add(fee)
	p.swapCount++
	p.appendPrice(now.UnixMilli())

	return SwapResult{
		AmountOut:   amountOut,
		Fee:         fee,
		PriceImpact: impact,
		Trit:        tritFromImpact(impact),
	}, nil
}

// priceImpact computes 1 - (newOut*reserveIn)/(reserveOut*newIn), spec §4.1
// step 6.
func priceImpact(reserveIn, reserveOut, newIn, newOut decimal.Decimal) float64 {
	if reserveOut.IsZero() || newIn.IsZero() {
		return 0
	}
	num, _ := newOut.Mul(reserveIn).Float64()
	den, _ := reserveOut.Mul(newIn).Float64()
	if den == 0 {
		return 0
	}
	return 1 - num/den
}

func tritFromImpact(impact float64) Trit {
	switch {
	case impact < 0.01:
		return TritPositive
	case impact < 0.05:
		return TritNeutral
	default:
		return TritNegative
	}
}

// LPShareOf returns owner's current LP share balance.
func (p *Pool) LPShareOf(owner string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lpHolders[owner]
}
