package db

import "database/sql"

// Querier is the subset of *sql.DB / *sql.Tx every row-level helper in this
// package needs, so each helper works standalone or inside a Transaction.
type Querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Transaction runs fn inside a single SQLite transaction, committing on
// success and rolling back on error or panic. The swap, addLiquidity, and
// placeOrder gateway flows each wrap their wallet/order/pool mutations in
// one Transaction call (spec §4.8).
func (d *DB) Transaction(fn func(q Querier) error) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
