package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/db"
	"crowny-exchange/internal/engine"
	"crowny-exchange/internal/logger"
	"crowny-exchange/internal/metrics"
)

// Swap runs DEX.swap (spec §4.9): subtractBalance(tokenIn) → dex.swap →
// addBalance(tokenOut) → recordSwap → savePool → emit('swap'), inside one
// store transaction. The pool itself is the single in-memory authority
// (spec §5); the transaction covers the wallet/audit rows around it.
func (g *Gateway) Swap(principal, poolID, tokenIn string, amount decimal.Decimal) (engine.SwapResult, error) {
	if err := g.checkRate(principal); err != nil {
		return engine.SwapResult{}, err
	}
	pool, err := g.dex.Pool(poolID)
	if err != nil {
		return engine.SwapResult{}, err
	}
	aToB, ok := engine.SwapDirection(pool, tokenIn)
	if !ok {
		return engine.SwapResult{}, apperr.New(apperr.KindBadInput, "tokenIn")
	}
	tokenOut := engine.OtherToken(pool, tokenIn)

	now := time.Now()
	var result engine.SwapResult
	err = g.store.Transaction(func(q db.Querier) error {
		if err := db.SubtractBalance(q, principal, tokenIn, amount); err != nil {
			return err
		}
		var swapErr error
		if aToB {
			result, swapErr = pool.SwapAToB(amount, now)
		} else {
			result, swapErr = pool.SwapBToA(amount, now)
		}
		if swapErr != nil {
			return swapErr
		}
		if err := db.AddBalance(q, principal, tokenOut, result.AmountOut); err != nil {
			return err
		}
		if err := db.AppendSwap(q, principal, poolID, tokenIn, amount, result.AmountOut, result.Fee, result.PriceImpact, now); err != nil {
			return err
		}
		return db.UpsertPoolSnapshot(q, pool.Snapshot(), now)
	})
	if err != nil {
		return engine.SwapResult{}, err
	}

	metrics.Swaps.WithLabelValues(poolID).Inc()
	g.events.Emit(Event{Type: "swap", Principal: principal, Payload: map[string]interface{}{
		"poolId": poolID, "tokenIn": tokenIn, "tokenOut": tokenOut,
		"amountIn": amount.String(), "amountOut": result.AmountOut.String(),
		"fee": result.Fee.String(), "priceImpact": result.PriceImpact, "trit": result.Trit.Glyph(),
	}})
	return result, nil
}

// AddLiquidity runs DEX.addLiquidity (spec §4.9): subtractBalance(A) +
// subtractBalance(B) → pool.addLiquidity → savePool, one transaction.
func (g *Gateway) AddLiquidity(principal, poolID string, amountA, amountB decimal.Decimal) (decimal.Decimal, error) {
	if err := g.checkRate(principal); err != nil {
		return decimal.Zero, err
	}
	pool, err := g.dex.Pool(poolID)
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now()
	var shares decimal.Decimal
	err = g.store.Transaction(func(q db.Querier) error {
		if err := db.SubtractBalance(q, principal, pool.TokenA, amountA); err != nil {
			return err
		}
		if err := db.SubtractBalance(q, principal, pool.TokenB, amountB); err != nil {
			return err
		}
		var lpErr error
		shares, lpErr = pool.AddLiquidity(principal, amountA, amountB, now)
		if lpErr != nil {
			return lpErr
		}
		if err := db.UpsertLPPosition(q, poolID, principal, pool.LPShareOf(principal)); err != nil {
			return err
		}
		return db.UpsertPoolSnapshot(q, pool.Snapshot(), now)
	})
	if err != nil {
		return decimal.Zero, err
	}

	g.events.Emit(Event{Type: "liquidity", Principal: principal, Payload: map[string]interface{}{
		"poolId": poolID, "amountA": amountA.String(), "amountB": amountB.String(), "shares": shares.String(),
	}})
	return shares, nil
}

// RemoveLiquidity runs DEX.removeLiquidity (spec §4.9 LP lifecycle:
// mint on add, burn on remove): pool.removeLiquidity → addBalance(A) +
// addBalance(B) → savePool, one transaction.
func (g *Gateway) RemoveLiquidity(principal, poolID string, shares decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := g.checkRate(principal); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	pool, err := g.dex.Pool(poolID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	now := time.Now()
	var amountA, amountB decimal.Decimal
	err = g.store.Transaction(func(q db.Querier) error {
		var lpErr error
		amountA, amountB, lpErr = pool.RemoveLiquidity(principal, shares, now)
		if lpErr != nil {
			return lpErr
		}
		if err := db.AddBalance(q, principal, pool.TokenA, amountA); err != nil {
			return err
		}
		if err := db.AddBalance(q, principal, pool.TokenB, amountB); err != nil {
			return err
		}
		if err := db.UpsertLPPosition(q, poolID, principal, pool.LPShareOf(principal)); err != nil {
			return err
		}
		return db.UpsertPoolSnapshot(q, pool.Snapshot(), now)
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	g.events.Emit(Event{Type: "liquidity", Principal: principal, Payload: map[string]interface{}{
		"poolId": poolID, "amountA": amountA.String(), "amountB": amountB.String(), "shares": shares.Neg().String(),
	}})
	return amountA, amountB, nil
}

// lockFor returns the symbol and amount a limit order must lock at
// placement: a sell locks tokenA (the amount being offered), a buy locks
// tokenB at the order's limit price (spec §4.9 DEX.placeOrder).
func lockFor(pool *engine.Pool, side engine.OrderSide, price, amount decimal.Decimal) (symbol string, lockAmount decimal.Decimal) {
	if side == engine.OrderSideSell {
		return pool.TokenA, amount
	}
	return pool.TokenB, price.Mul(amount)
}

// PlaceOrder runs DEX.placeOrder (spec §4.9): lock the appropriate side,
// place the order, run the matcher, and settle any resulting fills.
func (g *Gateway) PlaceOrder(principal, poolID string, side engine.OrderSide, price, amount decimal.Decimal) (*engine.LimitOrder, []engine.Fill, error) {
	if err := g.checkRate(principal); err != nil {
		return nil, nil, err
	}
	pool, err := g.dex.Pool(poolID)
	if err != nil {
		return nil, nil, err
	}
	if price.Sign() <= 0 || amount.Sign() <= 0 {
		return nil, nil, apperr.New(apperr.KindBadInput, "price and amount must be positive")
	}

	order := &engine.LimitOrder{
		ID: uuid.NewString(), Owner: principal, PoolID: poolID,
		Side: side, Price: price, Amount: amount, CreatedAt: time.Now(),
	}
	lockSymbol, lockAmount := lockFor(pool, side, price, amount)

	err = g.store.Transaction(func(q db.Querier) error {
		if err := db.LockBalance(q, principal, lockSymbol, lockAmount); err != nil {
			return err
		}
		g.dex.Book.Place(order)
		return db.UpsertOrder(q, order)
	})
	if err != nil {
		return nil, nil, err
	}

	fills := g.dex.Book.MatchOrders(poolID)
	if len(fills) > 0 {
		if err := g.settleFills(pool, fills); err != nil {
			logger.Warn(tag, "settle fills: "+err.Error())
		} else {
			metrics.Fills.Add(float64(len(fills)))
		}
	}

	metrics.OrdersPlaced.WithLabelValues(string(side)).Inc()
	g.events.Emit(Event{Type: "order", Principal: principal, Payload: map[string]interface{}{
		"orderId": order.ID, "poolId": poolID, "side": string(side), "fills": len(fills),
	}})
	return order, fills, nil
}

// settleFills resolves spec §9's open question: on each fill the maker's
// locked balance is debited and the counter-token credited by fill·price
// (buy) or fill (sell); a buy order's excess reservation (it locked at its
// own limit price, which may exceed the resting sell's execution price) is
// released back to available in the same step rather than staying locked.
func (g *Gateway) settleFills(pool *engine.Pool, fills []engine.Fill) error {
	return g.store.Transaction(func(q db.Querier) error {
		for _, f := range fills {
			buy := g.dex.Book.Get(f.BuyOrderID)
			sell := g.dex.Book.Get(f.SellOrderID)
			if buy == nil || sell == nil {
				continue
			}

			reserved := buy.Price.Mul(f.Amount) // what the buyer reserved for this slice
			spent := f.Price.Mul(f.Amount)       // what the buyer actually owes at the maker price
			if err := db.SettleLock(q, buy.Owner, pool.TokenB, reserved, spent); err != nil {
				return err
			}
			if err := db.AddBalance(q, buy.Owner, pool.TokenA, f.Amount); err != nil {
				return err
			}

			if err := db.SettleLock(q, sell.Owner, pool.TokenA, f.Amount, f.Amount); err != nil {
				return err
			}
			if err := db.AddBalance(q, sell.Owner, pool.TokenB, spent); err != nil {
				return err
			}

			if err := db.UpsertOrder(q, buy); err != nil {
				return err
			}
			if err := db.UpsertOrder(q, sell); err != nil {
				return err
			}
		}
		return nil
	})
}

// CancelOrder runs the cancel side of DEX.placeOrder's lifecycle: release
// whatever remains locked for the order (spec §9 "on cancel the remaining
// lock be released").
func (g *Gateway) CancelOrder(principal, poolID, orderID string) error {
	if err := g.checkRate(principal); err != nil {
		return err
	}
	pool, err := g.dex.Pool(poolID)
	if err != nil {
		return err
	}
	remaining, ok := g.dex.Book.Cancel(orderID, principal)
	if !ok {
		return apperr.New(apperr.KindNotFound, "order")
	}
	order := g.dex.Book.Get(orderID)

	releaseSymbol, releaseAmount := pool.TokenA, remaining
	if order != nil && order.Side == engine.OrderSideBuy {
		releaseSymbol, releaseAmount = pool.TokenB, order.Price.Mul(remaining)
	}

	err = g.store.Transaction(func(q db.Querier) error {
		if err := db.UnlockBalance(q, principal, releaseSymbol, releaseAmount); err != nil {
			return err
		}
		if order != nil {
			return db.UpsertOrder(q, order)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.events.Emit(Event{Type: "order", Principal: principal, Payload: map[string]interface{}{
		"orderId": orderID, "poolId": poolID, "cancelled": true,
	}})
	return nil
}
