package config

import "testing"

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.Port != 7400 {
		t.Errorf("Port = %v, want 7400", c.Port)
	}
	if c.DBPath != "crowny.db" {
		t.Errorf("DBPath = %v, want crowny.db", c.DBPath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("ENCRYPTION_KEY", "deadbeef")

	c := Load()
	if c.Port != 9000 {
		t.Errorf("Port = %v, want 9000", c.Port)
	}
	if c.DBPath != "/tmp/x.db" {
		t.Errorf("DBPath = %v, want /tmp/x.db", c.DBPath)
	}
	if c.JWTSecret != "s3cr3t" {
		t.Errorf("JWTSecret = %v, want s3cr3t", c.JWTSecret)
	}
	if c.EncryptionKey != "deadbeef" {
		t.Errorf("EncryptionKey = %v, want deadbeef", c.EncryptionKey)
	}
}

func TestDefaultAutoTrade_Values(t *testing.T) {
	d := DefaultAutoTrade()
	if d.Symbols != "BTCUSDT,ETHUSDT" {
		t.Errorf("Symbols = %v", d.Symbols)
	}
	if d.MaxDailyTrades != 10 {
		t.Errorf("MaxDailyTrades = %v, want 10", d.MaxDailyTrades)
	}
}
