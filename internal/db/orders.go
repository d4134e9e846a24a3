package db

import (
	"time"

	"github.com/shopspring/decimal"

	"crowny-exchange/internal/engine"
)

// UpsertOrder persists a LimitOrder's current state, insert-or-replace.
func UpsertOrder(q Querier, o *engine.LimitOrder) error {
	_, err := q.Exec(`
		INSERT INTO orders (id, user_id, pool_id, side, price, amount, filled, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET filled = excluded.filled, status = excluded.status`,
		o.ID, o.Owner, o.PoolID, string(o.Side), o.Price.String(), o.Amount.String(),
		o.Filled.String(), string(o.Status), o.CreatedAt.Unix())
	return err
}

// AppendSwap records a completed swap for history/audit (spec §4.8).
func AppendSwap(q Querier, userID, poolID, tokenIn string, amountIn, amountOut, fee decimal.Decimal, priceImpact float64, now time.Time) error {
	_, err := q.Exec(`
		INSERT INTO swaps (user_id, pool_id, token_in, amount_in, amount_out, fee, price_impact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, poolID, tokenIn, amountIn.String(), amountOut.String(), fee.String(), priceImpact, now.Unix())
	return err
}

// Swap is one completed swap row, newest first (spec §6 GET /api/dex/history).
type Swap struct {
	UserID      string
	PoolID      string
	TokenIn     string
	AmountIn    decimal.Decimal
	AmountOut   decimal.Decimal
	Fee         decimal.Decimal
	PriceImpact float64
	CreatedAt   time.Time
}

// ListSwaps returns the most recent swaps across all pools, newest first.
func (d *DB) ListSwaps(limit int) ([]Swap, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(`
		SELECT user_id, pool_id, token_in, amount_in, amount_out, fee, price_impact, created_at
		FROM swaps ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Swap
	for rows.Next() {
		var s Swap
		var amountIn, amountOut, fee string
		var createdAt int64
		if err := rows.Scan(&s.UserID, &s.PoolID, &s.TokenIn, &amountIn, &amountOut, &fee, &s.PriceImpact, &createdAt); err != nil {
			return nil, err
		}
		s.AmountIn, _ = decimal.NewFromString(amountIn)
		s.AmountOut, _ = decimal.NewFromString(amountOut)
		s.Fee, _ = decimal.NewFromString(fee)
		s.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertPoolSnapshot persists a pool's current reserves/LP/volume state so
// it can be reloaded after a restart (spec §4.8 "pool upsert"); the engine's
// in-memory Pool remains authoritative while the process is running.
func UpsertPoolSnapshot(q Querier, snap engine.Snapshot, now time.Time) error {
	_, err := q.Exec(`
		INSERT INTO pools (id, token_a, token_b, reserve_a, reserve_b, fee_bps, total_lp_shares, volume_24h, fees_collected, swap_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reserve_a = excluded.reserve_a, reserve_b = excluded.reserve_b,
			total_lp_shares = excluded.total_lp_shares, volume_24h = excluded.volume_24h,
			fees_collected = excluded.fees_collected, swap_count = excluded.swap_count,
			updated_at = excluded.updated_at`,
		snap.ID, snap.TokenA, snap.TokenB, snap.ReserveA.String(), snap.ReserveB.String(), snap.FeeBps,
		snap.TotalLPShares.String(), snap.Volume24h.String(), snap.FeesCollected.String(), snap.SwapCount, now.Unix())
	return err
}

// UpsertLPPosition persists a user's LP share balance for a pool.
func UpsertLPPosition(q Querier, poolID, userID string, shares decimal.Decimal) error {
	_, err := q.Exec(`
		INSERT INTO lp_positions (pool_id, user_id, shares) VALUES (?, ?, ?)
		ON CONFLICT(pool_id, user_id) DO UPDATE SET shares = excluded.shares`,
		poolID, userID, shares.String())
	return err
}
