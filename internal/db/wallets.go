package db

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"crowny-exchange/internal/apperr"
)

// Wallet is one user/symbol balance row. Available is balance-locked,
// computed rather than stored.
type Wallet struct {
	UserID  string
	Symbol  string
	Balance decimal.Decimal
	Locked  decimal.Decimal
}

func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.Locked)
}

func getWallet(q Querier, userID, symbol string) (Wallet, error) {
	var balanceStr, lockedStr string
	err := q.QueryRow(`SELECT balance, locked FROM wallets WHERE user_id = ? AND symbol = ?`, userID, symbol).
		Scan(&balanceStr, &lockedStr)
	if err == sql.ErrNoRows {
		return Wallet{UserID: userID, Symbol: symbol, Balance: decimal.Zero, Locked: decimal.Zero}, nil
	}
	if err != nil {
		return Wallet{}, err
	}
	balance, _ := decimal.NewFromString(balanceStr)
	locked, _ := decimal.NewFromString(lockedStr)
	return Wallet{UserID: userID, Symbol: symbol, Balance: balance, Locked: locked}, nil
}

func upsertWalletBalance(q Querier, userID, symbol string, balance, locked decimal.Decimal) error {
	_, err := q.Exec(`
		INSERT INTO wallets (user_id, symbol, balance, locked) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, symbol) DO UPDATE SET balance = excluded.balance, locked = excluded.locked`,
		userID, symbol, balance.String(), locked.String())
	return err
}

// GetWallet returns a user's balance/locked for one symbol, zero-valued if
// no row exists yet.
func (d *DB) GetWallet(userID, symbol string) (Wallet, error) {
	return getWallet(d.sql, userID, symbol)
}

// AllWallets returns every symbol balance a user holds.
func (d *DB) AllWallets(userID string) ([]Wallet, error) {
	rows, err := d.sql.Query(`SELECT symbol, balance, locked FROM wallets WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Wallet
	for rows.Next() {
		var symbol, balanceStr, lockedStr string
		if err := rows.Scan(&symbol, &balanceStr, &lockedStr); err != nil {
			return nil, err
		}
		balance, _ := decimal.NewFromString(balanceStr)
		locked, _ := decimal.NewFromString(lockedStr)
		out = append(out, Wallet{UserID: userID, Symbol: symbol, Balance: balance, Locked: locked})
	}
	return out, rows.Err()
}

// AddBalance credits amount to user's symbol balance.
func AddBalance(q Querier, userID, symbol string, amount decimal.Decimal) error {
	w, err := getWallet(q, userID, symbol)
	if err != nil {
		return err
	}
	return upsertWalletBalance(q, userID, symbol, w.Balance.Add(amount), w.Locked)
}

// SubtractBalance debits amount from user's symbol balance, failing with
// KindInsufficientBalance if the unlocked available amount is too small.
func SubtractBalance(q Querier, userID, symbol string, amount decimal.Decimal) error {
	w, err := getWallet(q, userID, symbol)
	if err != nil {
		return err
	}
	if w.Available().LessThan(amount) {
		return apperr.New(apperr.KindInsufficientBalance, symbol)
	}
	return upsertWalletBalance(q, userID, symbol, w.Balance.Sub(amount), w.Locked)
}

// LockBalance moves amount from available into locked, failing with
// KindInsufficientBalance if available = balance-locked is too small.
func LockBalance(q Querier, userID, symbol string, amount decimal.Decimal) error {
	w, err := getWallet(q, userID, symbol)
	if err != nil {
		return err
	}
	if w.Available().LessThan(amount) {
		return apperr.New(apperr.KindInsufficientBalance, symbol)
	}
	return upsertWalletBalance(q, userID, symbol, w.Balance, w.Locked.Add(amount))
}

// UnlockBalance releases amount from locked back to available, without
// changing the total balance.
func UnlockBalance(q Querier, userID, symbol string, amount decimal.Decimal) error {
	w, err := getWallet(q, userID, symbol)
	if err != nil {
		return err
	}
	newLocked := w.Locked.Sub(amount)
	if newLocked.IsNegative() {
		newLocked = decimal.Zero
	}
	return upsertWalletBalance(q, userID, symbol, w.Balance, newLocked)
}

// SettleLock retires lockedAmt of a prior lock and spends balanceAmt of the
// underlying balance for it (lockedAmt >= balanceAmt when the lock was
// reserved at a price the actual fill bettered; the difference is released
// back to available, never charged). Used on limit-order fill to settle the
// maker's locked balance against the executed price, closing the gap where
// locked funds would otherwise never be debited on a match.
func SettleLock(q Querier, userID, symbol string, lockedAmt, balanceAmt decimal.Decimal) error {
	w, err := getWallet(q, userID, symbol)
	if err != nil {
		return err
	}
	newLocked := w.Locked.Sub(lockedAmt)
	if newLocked.IsNegative() {
		newLocked = decimal.Zero
	}
	newBalance := w.Balance.Sub(balanceAmt)
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}
	return upsertWalletBalance(q, userID, symbol, newBalance, newLocked)
}
