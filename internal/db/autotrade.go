package db

import (
	"database/sql"
	"time"

	"crowny-exchange/internal/apperr"
)

// AutoTradeConfig is the per-(user,venue) scheduler configuration and
// running counters (spec §3 AutoTradeConfig).
type AutoTradeConfig struct {
	UserID               string
	Venue                string
	Enabled              bool
	Symbols              string
	MaxPositionPct       float64
	StopLossPct          float64
	TakeProfitPct        float64
	MinConfidence        float64
	MaxDailyTrades       int
	DailyTradesUsed      int
	ConsecutiveLosses    int
	MaxConsecutiveLosses int
	DailyResetAt         time.Time
}

// UpsertAutoTradeConfig creates or replaces the static configuration
// fields, leaving the running counters untouched on update.
func (d *DB) UpsertAutoTradeConfig(c AutoTradeConfig) error {
	_, err := d.sql.Exec(`
		INSERT INTO auto_trade_config
			(user_id, venue, enabled, symbols, max_position_pct, stop_loss_pct, take_profit_pct,
			 min_confidence, max_daily_trades, max_consecutive_losses, daily_reset_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, venue) DO UPDATE SET
			enabled = excluded.enabled, symbols = excluded.symbols,
			max_position_pct = excluded.max_position_pct, stop_loss_pct = excluded.stop_loss_pct,
			take_profit_pct = excluded.take_profit_pct, min_confidence = excluded.min_confidence,
			max_daily_trades = excluded.max_daily_trades, max_consecutive_losses = excluded.max_consecutive_losses`,
		c.UserID, c.Venue, boolToInt(c.Enabled), c.Symbols, c.MaxPositionPct, c.StopLossPct, c.TakeProfitPct,
		c.MinConfidence, c.MaxDailyTrades, c.MaxConsecutiveLosses, c.DailyResetAt.Unix())
	return err
}

// GetAutoTradeConfig returns one (user, venue) config row, or KindNotFound.
func (d *DB) GetAutoTradeConfig(userID, venue string) (AutoTradeConfig, error) {
	var c AutoTradeConfig
	var enabled int
	var dailyResetAt int64
	err := d.sql.QueryRow(`
		SELECT user_id, venue, enabled, symbols, max_position_pct, stop_loss_pct, take_profit_pct,
		       min_confidence, max_daily_trades, daily_trades_used, consecutive_losses, max_consecutive_losses, daily_reset_at
		FROM auto_trade_config WHERE user_id = ? AND venue = ?`, userID, venue).
		Scan(&c.UserID, &c.Venue, &enabled, &c.Symbols, &c.MaxPositionPct, &c.StopLossPct, &c.TakeProfitPct,
			&c.MinConfidence, &c.MaxDailyTrades, &c.DailyTradesUsed, &c.ConsecutiveLosses, &c.MaxConsecutiveLosses, &dailyResetAt)
	if err == sql.ErrNoRows {
		return AutoTradeConfig{}, apperr.New(apperr.KindNotFound, "auto trade config")
	}
	if err != nil {
		return AutoTradeConfig{}, err
	}
	c.Enabled = enabled == 1
	c.DailyResetAt = time.Unix(dailyResetAt, 0)
	return c, nil
}

// ListEnabledAutoTrade returns every (user, venue) pair with enabled=1, for
// the scheduler to build its tick set from at startup.
func (d *DB) ListEnabledAutoTrade() ([]AutoTradeConfig, error) {
	rows, err := d.sql.Query(`SELECT user_id, venue FROM auto_trade_config WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AutoTradeConfig
	for rows.Next() {
		var c AutoTradeConfig
		if err := rows.Scan(&c.UserID, &c.Venue); err != nil {
			return nil, err
		}
		full, err := d.GetAutoTradeConfig(c.UserID, c.Venue)
		if err != nil {
			continue
		}
		out = append(out, full)
	}
	return out, rows.Err()
}

// ListAutoTradeConfigs returns every (user, venue) config row regardless of
// enabled state, for the daily reset sweep (spec §4.10 "across all configs").
func (d *DB) ListAutoTradeConfigs() ([]AutoTradeConfig, error) {
	rows, err := d.sql.Query(`SELECT user_id, venue FROM auto_trade_config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AutoTradeConfig
	for rows.Next() {
		var userID, venue string
		if err := rows.Scan(&userID, &venue); err != nil {
			return nil, err
		}
		full, err := d.GetAutoTradeConfig(userID, venue)
		if err != nil {
			continue
		}
		out = append(out, full)
	}
	return out, rows.Err()
}

// SetAutoTradeEnabled flips the enabled flag for a (user, venue) pair.
func (d *DB) SetAutoTradeEnabled(userID, venue string, enabled bool) error {
	_, err := d.sql.Exec(`UPDATE auto_trade_config SET enabled = ? WHERE user_id = ? AND venue = ?`,
		boolToInt(enabled), userID, venue)
	return err
}

// IncrementDailyTrades bumps the daily trade counter by one.
func IncrementDailyTrades(q Querier, userID, venue string) error {
	_, err := q.Exec(`UPDATE auto_trade_config SET daily_trades_used = daily_trades_used + 1 WHERE user_id = ? AND venue = ?`,
		userID, venue)
	return err
}

// IncrementConsecutiveLosses bumps the consecutive-loss counter by one.
func IncrementConsecutiveLosses(q Querier, userID, venue string) error {
	_, err := q.Exec(`UPDATE auto_trade_config SET consecutive_losses = consecutive_losses + 1 WHERE user_id = ? AND venue = ?`,
		userID, venue)
	return err
}

// ResetConsecutiveLosses zeroes the consecutive-loss counter (on a
// profitable trade).
func ResetConsecutiveLosses(q Querier, userID, venue string) error {
	_, err := q.Exec(`UPDATE auto_trade_config SET consecutive_losses = 0 WHERE user_id = ? AND venue = ?`, userID, venue)
	return err
}

// ResetDailyTrades zeroes the daily trade counter and advances
// daily_reset_at, called at local midnight by the scheduler.
func ResetDailyTrades(q Querier, userID, venue string, resetAt time.Time) error {
	_, err := q.Exec(`UPDATE auto_trade_config SET daily_trades_used = 0, daily_reset_at = ? WHERE user_id = ? AND venue = ?`,
		resetAt.Unix(), userID, venue)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
