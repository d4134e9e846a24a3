package db

import (
	"database/sql"
	"fmt"
	"strings"

	"crowny-exchange/internal/logger"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection holding every table the gateway,
// executor, and auth layers read and write (spec §4.8).
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// OpenFromHandle wraps an already-open *sql.DB (e.g. an in-memory SQLite
// handle in tests) and runs migrations against it.
func OpenFromHandle(sqlDB *sql.DB) (*DB, error) {
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// SqlDB returns the underlying *sql.DB for use by other packages.
func (d *DB) SqlDB() *sql.DB {
	return d.sql
}

func (d *DB) migrate() error {
	version := 0
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at    INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS wallets (
				user_id TEXT NOT NULL,
				symbol  TEXT NOT NULL,
				balance TEXT NOT NULL DEFAULT '0',
				locked  TEXT NOT NULL DEFAULT '0',
				PRIMARY KEY (user_id, symbol),
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS pools (
				id              TEXT PRIMARY KEY,
				token_a         TEXT NOT NULL,
				token_b         TEXT NOT NULL,
				reserve_a       TEXT NOT NULL,
				reserve_b       TEXT NOT NULL,
				fee_bps         INTEGER NOT NULL,
				total_lp_shares TEXT NOT NULL,
				volume_24h      TEXT NOT NULL,
				fees_collected  TEXT NOT NULL,
				swap_count      INTEGER NOT NULL DEFAULT 0,
				updated_at      INTEGER NOT NULL
			);

			CREATE TABLE IF NOT EXISTS lp_positions (
				pool_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				shares  TEXT NOT NULL,
				PRIMARY KEY (pool_id, user_id)
			);

			CREATE TABLE IF NOT EXISTS orders (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL,
				pool_id    TEXT NOT NULL,
				side       TEXT NOT NULL,
				price      TEXT NOT NULL,
				amount     TEXT NOT NULL,
				filled     TEXT NOT NULL DEFAULT '0',
				status     TEXT NOT NULL,
				created_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_orders_pool ON orders(pool_id, status);
			CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);

			CREATE TABLE IF NOT EXISTS swaps (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id       TEXT NOT NULL,
				pool_id       TEXT NOT NULL,
				token_in      TEXT NOT NULL,
				amount_in     TEXT NOT NULL,
				amount_out    TEXT NOT NULL,
				fee           TEXT NOT NULL,
				price_impact  REAL NOT NULL,
				created_at    INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_swaps_pool ON swaps(pool_id, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_swaps_user ON swaps(user_id, created_at DESC);

			CREATE TABLE IF NOT EXISTS venue_orders (
				id                TEXT PRIMARY KEY,
				user_id           TEXT NOT NULL,
				venue             TEXT NOT NULL,
				symbol            TEXT NOT NULL,
				side              TEXT NOT NULL,
				type              TEXT NOT NULL,
				price             REAL,
				quantity          REAL NOT NULL,
				status            TEXT NOT NULL,
				exchange_order_id TEXT,
				filled_qty        REAL NOT NULL DEFAULT 0,
				filled_price      REAL NOT NULL DEFAULT 0,
				fee               REAL NOT NULL DEFAULT 0,
				source            TEXT NOT NULL,
				ai_signal_id      TEXT,
				error             TEXT,
				created_at        INTEGER NOT NULL,
				updated_at        INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_venue_orders_user ON venue_orders(user_id, venue, created_at DESC);

			CREATE TABLE IF NOT EXISTS ai_signals (
				id         TEXT PRIMARY KEY,
				symbol     TEXT NOT NULL,
				venue      TEXT NOT NULL,
				interval   TEXT NOT NULL,
				signal     TEXT NOT NULL,
				score      REAL NOT NULL,
				confidence REAL NOT NULL,
				trit       TEXT NOT NULL,
				strategies TEXT NOT NULL,
				risk       TEXT NOT NULL,
				created_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_ai_signals_symbol ON ai_signals(symbol, venue, created_at DESC);

			CREATE TABLE IF NOT EXISTS auto_trade_config (
				user_id             TEXT NOT NULL,
				venue               TEXT NOT NULL,
				enabled             INTEGER NOT NULL DEFAULT 0,
				symbols             TEXT NOT NULL,
				max_position_pct    REAL NOT NULL,
				stop_loss_pct       REAL NOT NULL,
				take_profit_pct     REAL NOT NULL,
				min_confidence      REAL NOT NULL,
				max_daily_trades    INTEGER NOT NULL,
				daily_trades_used   INTEGER NOT NULL DEFAULT 0,
				consecutive_losses  INTEGER NOT NULL DEFAULT 0,
				max_consecutive_losses INTEGER NOT NULL DEFAULT 3,
				daily_reset_at      INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, venue)
			);

			CREATE TABLE IF NOT EXISTS keys (
				user_id           TEXT NOT NULL,
				venue             TEXT NOT NULL,
				access_key_cipher TEXT NOT NULL,
				secret_key_cipher TEXT NOT NULL,
				iv                TEXT NOT NULL,
				tag               TEXT NOT NULL,
				permissions       TEXT NOT NULL DEFAULT '',
				created_at        INTEGER NOT NULL,
				PRIMARY KEY (user_id, venue)
			);

			CREATE TABLE IF NOT EXISTS sessions (
				token      TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL,
				created_at INTEGER NOT NULL,
				expires_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);
			CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expires_at);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1 (core schema)")
	}

	if version < 2 {
		// Early deployments predate max_consecutive_losses / daily_reset_at;
		// ensureTableColumn backfills them idempotently for anyone upgrading
		// from a v1 database that was hand-migrated before this column existed.
		autoTradeExists, err := d.tableExists("auto_trade_config")
		if err != nil {
			return fmt.Errorf("migration v2 check auto_trade_config exists: %w", err)
		}
		if autoTradeExists {
			if err := d.ensureTableColumn("auto_trade_config", "max_consecutive_losses", "INTEGER NOT NULL DEFAULT 3"); err != nil {
				return fmt.Errorf("migration v2 add max_consecutive_losses: %w", err)
			}
			if err := d.ensureTableColumn("auto_trade_config", "daily_reset_at", "INTEGER NOT NULL DEFAULT 0"); err != nil {
				return fmt.Errorf("migration v2 add daily_reset_at: %w", err)
			}
		}
		if _, err := d.sql.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (2);`); err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (auto_trade_config backfill)")
	}

	return nil
}

func (d *DB) tableExists(tableName string) (bool, error) {
	var name string
	err := d.sql.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? LIMIT 1`,
		tableName,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *DB) ensureTableColumn(tableName, columnName, columnDef string) error {
	rows, err := d.sql.Query("PRAGMA table_info(" + tableName + ")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, columnName) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = d.sql.Exec("ALTER TABLE " + tableName + " ADD COLUMN " + columnName + " " + columnDef)
	return err
}
