// Package config holds process-wide runtime settings sourced from the
// environment, plus the per-venue auto-trade defaults applied on enable.
package config

import (
	"os"
	"strconv"
)

// Config holds process settings read once at startup.
type Config struct {
	Port          int
	DBPath        string
	JWTSecret     string
	EncryptionKey string // hex, 32 bytes decoded
}

// Default returns a Config with sensible defaults, before environment
// overrides are applied by Load.
func Default() *Config {
	return &Config{
		Port:   7400,
		DBPath: "crowny.db",
	}
}

// Load builds a Config from the process environment, falling back to
// Default() for anything unset.
func Load() *Config {
	c := Default()
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	c.EncryptionKey = os.Getenv("ENCRYPTION_KEY")
	return c
}

// AutoTradeDefaults are applied when a principal enables auto-trading for a
// venue for the first time (spec §4.10).
type AutoTradeDefaults struct {
	Symbols        string
	MaxPositionPct float64
	StopLossPct    float64
	TakeProfitPct  float64
	MinConfidence  float64
	MaxDailyTrades int
}

// DefaultAutoTrade returns the standard starting configuration for a new
// (principal, venue) auto-trader.
func DefaultAutoTrade() AutoTradeDefaults {
	return AutoTradeDefaults{
		Symbols:        "BTCUSDT,ETHUSDT",
		MaxPositionPct: 0.1,
		StopLossPct:    0.03,
		TakeProfitPct:  0.06,
		MinConfidence:  0.7,
		MaxDailyTrades: 10,
	}
}
