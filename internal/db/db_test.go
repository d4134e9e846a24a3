package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// openTestDB opens an in-memory SQLite DB and runs migrations (for testing only).
func openTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestCreateUser_And_GetUserByEmail(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	u, err := d.CreateUser("alice@example.com", "alice", "hashed")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" {
		t.Fatal("expected a generated id")
	}

	got, err := d.GetUserByEmail("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID || got.Username != "alice" {
		t.Errorf("got %+v, want matching alice row", got)
	}
}

func TestCreateUser_DuplicateEmailConflicts(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	if _, err := d.CreateUser("bob@example.com", "bob", "h1"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateUser("bob@example.com", "bob2", "h2"); err == nil {
		t.Fatal("expected conflict on duplicate email")
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	if _, err := d.GetUserByEmail("nobody@example.com"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestWallet_AddSubtractLockUnlock(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	if err := AddBalance(d.sql, "u1", "CRWN", decimal.NewFromInt(1000)); err != nil {
		t.Fatal(err)
	}
	w, err := d.GetWallet("u1", "CRWN")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance = %v, want 1000", w.Balance)
	}

	if err := LockBalance(d.sql, "u1", "CRWN", decimal.NewFromInt(400)); err != nil {
		t.Fatal(err)
	}
	w, _ = d.GetWallet("u1", "CRWN")
	if !w.Available().Equal(decimal.NewFromInt(600)) {
		t.Errorf("available = %v, want 600", w.Available())
	}

	if err := SubtractBalance(d.sql, "u1", "CRWN", decimal.NewFromInt(2000)); err == nil {
		t.Fatal("expected insufficient balance error (available < 2000)")
	}

	if err := UnlockBalance(d.sql, "u1", "CRWN", decimal.NewFromInt(400)); err != nil {
		t.Fatal(err)
	}
	w, _ = d.GetWallet("u1", "CRWN")
	if !w.Locked.IsZero() {
		t.Errorf("locked = %v, want 0 after unlock", w.Locked)
	}
}

func TestSubtractBalance_InsufficientFunds(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	if err := SubtractBalance(d.sql, "u1", "USDT", decimal.NewFromInt(10)); err == nil {
		t.Fatal("expected insufficient balance on empty wallet")
	}
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	err := d.Transaction(func(q Querier) error {
		if err := AddBalance(q, "u2", "CRWN", decimal.NewFromInt(500)); err != nil {
			return err
		}
		return SubtractBalance(q, "u2", "CRWN", decimal.NewFromInt(999999))
	})
	if err == nil {
		t.Fatal("expected transaction to fail")
	}

	w, _ := d.GetWallet("u2", "CRWN")
	if !w.Balance.IsZero() {
		t.Errorf("balance = %v, want 0 (transaction should have rolled back)", w.Balance)
	}
}

func TestSessions_CreateGetExpireSweep(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	if err := d.CreateSession("tok1", "user1"); err != nil {
		t.Fatal(err)
	}
	userID, err := d.GetSessionUserID("tok1")
	if err != nil {
		t.Fatal(err)
	}
	if userID != "user1" {
		t.Errorf("userID = %q, want user1", userID)
	}

	if _, err := d.sql.Exec(`UPDATE sessions SET expires_at = ? WHERE token = ?`, time.Now().Add(-time.Hour).Unix(), "tok1"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.GetSessionUserID("tok1"); err == nil {
		t.Fatal("expected expired session to fail lookup")
	}

	n, err := d.SweepExpiredSessions(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("swept %d sessions, want 1", n)
	}
}

func TestAutoTradeConfig_UpsertAndCounters(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	cfg := AutoTradeConfig{
		UserID: "u1", Venue: "venue_a", Enabled: true, Symbols: "BTCUSDT",
		MaxPositionPct: 0.1, StopLossPct: 0.03, TakeProfitPct: 0.06,
		MinConfidence: 0.7, MaxDailyTrades: 10, MaxConsecutiveLosses: 3,
	}
	if err := d.UpsertAutoTradeConfig(cfg); err != nil {
		t.Fatal(err)
	}

	if err := IncrementDailyTrades(d.sql, "u1", "venue_a"); err != nil {
		t.Fatal(err)
	}
	if err := IncrementConsecutiveLosses(d.sql, "u1", "venue_a"); err != nil {
		t.Fatal(err)
	}
	if err := IncrementConsecutiveLosses(d.sql, "u1", "venue_a"); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetAutoTradeConfig("u1", "venue_a")
	if err != nil {
		t.Fatal(err)
	}
	if got.DailyTradesUsed != 1 {
		t.Errorf("dailyTradesUsed = %d, want 1", got.DailyTradesUsed)
	}
	if got.ConsecutiveLosses != 2 {
		t.Errorf("consecutiveLosses = %d, want 2", got.ConsecutiveLosses)
	}

	if err := ResetConsecutiveLosses(d.sql, "u1", "venue_a"); err != nil {
		t.Fatal(err)
	}
	got, _ = d.GetAutoTradeConfig("u1", "venue_a")
	if got.ConsecutiveLosses != 0 {
		t.Errorf("consecutiveLosses after reset = %d, want 0", got.ConsecutiveLosses)
	}
}

func TestVenueOrder_PendingToSubmittedLifecycle(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	now := time.Now()
	o := &VenueOrder{ID: "vo1", UserID: "u1", Venue: "venue_a", Symbol: "BTCUSDT", Side: "buy", Type: "market", Quantity: 1, Source: "manual", CreatedAt: now}
	if err := InsertVenueOrder(d.sql, o); err != nil {
		t.Fatal(err)
	}

	if err := MarkVenueOrderSubmitted(d.sql, "vo1", "exch-123", VenueOrderSubmitted, 1, 50000, 0.1, now); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetVenueOrder("vo1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != VenueOrderSubmitted {
		t.Errorf("status = %v, want submitted", got.Status)
	}
	if got.ExchangeOrderID != "exch-123" {
		t.Errorf("exchangeOrderID = %v, want exch-123", got.ExchangeOrderID)
	}

	// A second transition attempt out of a non-pending state should be a no-op.
	if err := MarkVenueOrderFailed(d.sql, "vo1", errTest, now); err != nil {
		t.Fatal(err)
	}
	got, _ = d.GetVenueOrder("vo1")
	if got.Status != VenueOrderSubmitted {
		t.Errorf("status changed after terminal transition attempt: %v", got.Status)
	}
}

func TestVenueOrder_PendingToFailed(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	now := time.Now()
	o := &VenueOrder{ID: "vo2", UserID: "u1", Venue: "venue_b", Symbol: "ETHUSDT", Side: "sell", Type: "limit", Quantity: 2, Source: "auto", CreatedAt: now}
	if err := InsertVenueOrder(d.sql, o); err != nil {
		t.Fatal(err)
	}
	if err := MarkVenueOrderFailed(d.sql, "vo2", errTest, now); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetVenueOrder("vo2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != VenueOrderFailed {
		t.Errorf("status = %v, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("expected error message to be recorded")
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("venue unavailable")
