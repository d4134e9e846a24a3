package executor

import (
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"

	"crowny-exchange/internal/db"
	"crowny-exchange/internal/vault"
	"crowny-exchange/internal/venues"

	_ "modernc.org/sqlite"
)

// stubVenueClient is a fake venues.Client so executor tests never reach
// the network.
type stubVenueClient struct{}

func (stubVenueClient) GetAccounts() ([]venues.Account, error) { return nil, nil }
func (stubVenueClient) GetAccount(currency string) (venues.Account, error) {
	return venues.Account{Currency: currency}, nil
}
func (stubVenueClient) GetTicker(symbol string) (venues.Ticker, error) {
	return venues.Ticker{Symbol: symbol, Price: 50000}, nil
}
func (stubVenueClient) GetCandles(symbol, interval string, count int) ([]venues.Candle, error) {
	return nil, nil
}
func (stubVenueClient) GetOrderBook(symbol string) (venues.OrderBook, error) {
	return venues.OrderBook{Symbol: symbol}, nil
}
func (stubVenueClient) PlaceOrder(symbol string, side venues.Side, orderType venues.OrderType, quantity, price float64) (venues.OrderResult, error) {
	return venues.OrderResult{ExchangeOrderID: "stub-order-1", Status: venues.OrderStatusFilled, FilledQty: quantity, FilledPrice: 50000}, nil
}
func (stubVenueClient) CancelOrder(symbol, exchangeOrderID string) error { return nil }
func (stubVenueClient) GetOrder(symbol, exchangeOrderID string) (venues.OrderResult, error) {
	return venues.OrderResult{ExchangeOrderID: exchangeOrderID}, nil
}
func (stubVenueClient) GetOpenOrders(symbol string) ([]venues.OrderResult, error) { return nil, nil }

func withStubClient(e *Executor) *Executor {
	e.newClient = func(venues.Name, venues.Credentials) (venues.Client, error) {
		return stubVenueClient{}, nil
	}
	return e
}

func openTestStore(t *testing.T) *db.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	store, err := db.OpenFromHandle(sqlDB)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New("test-password")
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func seedKey(t *testing.T, store *db.DB, v *vault.Vault, userID, venueName string) {
	t.Helper()
	sealed, err := v.EncryptKeyPair("AK_test_access_key", "SK_test_secret_key")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertKey(userID, venueName, sealed, "trade"); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteOrder_SubmitsAndPersists(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)
	seedKey(t, store, v, "u1", string(venues.VenueA))

	e := withStubClient(New(store, v))

	order, err := e.ExecuteOrder(OrderRequest{
		Principal: "u1", Venue: string(venues.VenueA), Symbol: "BTCUSDT",
		Side: venues.SideBuy, Type: venues.OrderTypeMarket, Quantity: 1, Source: "manual",
	})
	if err != nil {
		t.Fatal(err)
	}
	if order.Status != db.VenueOrderFilled {
		t.Errorf("status = %v, want filled", order.Status)
	}
	if order.ExchangeOrderID == "" {
		t.Error("expected an exchange order id")
	}
}

func TestCancelOrder_MarksLocalRowCancelled(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)
	seedKey(t, store, v, "u1", string(venues.VenueA))

	e := withStubClient(New(store, v))
	e.newClient = func(venues.Name, venues.Credentials) (venues.Client, error) {
		return stubVenueClient{}, nil
	}

	order := &db.VenueOrder{ID: "vo-cancel", UserID: "u1", Venue: string(venues.VenueA), Symbol: "BTCUSDT", Side: "buy", Type: "limit", Quantity: 1, Source: "manual"}
	if err := db.InsertVenueOrder(store.SqlDB(), order); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkVenueOrderSubmitted(store.SqlDB(), order.ID, "stub-order-1", db.VenueOrderSubmitted, 0, 0, 0, order.CreatedAt); err != nil {
		t.Fatal(err)
	}

	if err := e.CancelOrder("u1", string(venues.VenueA), "BTCUSDT", "stub-order-1"); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetVenueOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != db.VenueOrderCancelled {
		t.Errorf("status = %v, want cancelled", got.Status)
	}
}

func TestExecuteOrder_MissingKeyFailsOrder(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)

	e := withStubClient(New(store, v))
	_, err := e.ExecuteOrder(OrderRequest{
		Principal: "u1", Venue: string(venues.VenueA), Symbol: "BTCUSDT",
		Side: venues.SideBuy, Type: venues.OrderTypeMarket, Quantity: 1, Source: "manual",
	})
	if err == nil {
		t.Fatal("expected error with no stored key")
	}
}

func TestExecuteOrder_DailyCapBlocks(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)
	seedKey(t, store, v, "u1", string(venues.VenueA))

	if err := store.UpsertAutoTradeConfig(db.AutoTradeConfig{
		UserID: "u1", Venue: string(venues.VenueA), Enabled: true, Symbols: "BTCUSDT",
		MaxPositionPct: 1, MaxDailyTrades: 1, MaxConsecutiveLosses: 3,
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.IncrementDailyTrades(store.SqlDB(), "u1", string(venues.VenueA)); err != nil {
		t.Fatal(err)
	}

	e := withStubClient(New(store, v))
	_, err := e.ExecuteOrder(OrderRequest{
		Principal: "u1", Venue: string(venues.VenueA), Symbol: "BTCUSDT",
		Side: venues.SideBuy, Type: venues.OrderTypeMarket, Quantity: 1, Source: "auto",
	})
	if err == nil {
		t.Fatal("expected safety gate to block on daily cap")
	}

	orders, err := store.ListVenueOrders("u1", string(venues.VenueA), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Errorf("expected no VenueOrder row when blocked, got %d", len(orders))
	}
}

func TestExecuteOrder_ConsecutiveLossCapBlocks(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)
	seedKey(t, store, v, "u1", string(venues.VenueA))

	if err := store.UpsertAutoTradeConfig(db.AutoTradeConfig{
		UserID: "u1", Venue: string(venues.VenueA), Enabled: true, Symbols: "BTCUSDT",
		MaxPositionPct: 1, MaxDailyTrades: 10, MaxConsecutiveLosses: 3,
	}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := db.IncrementConsecutiveLosses(store.SqlDB(), "u1", string(venues.VenueA)); err != nil {
			t.Fatal(err)
		}
	}

	e := withStubClient(New(store, v))
	_, err := e.ExecuteOrder(OrderRequest{
		Principal: "u1", Venue: string(venues.VenueA), Symbol: "BTCUSDT",
		Side: venues.SideBuy, Type: venues.OrderTypeMarket, Quantity: 1, Source: "auto",
	})
	if err == nil {
		t.Fatal("expected safety gate to block on consecutive-loss cap")
	}
}

func TestExecuteOrder_PositionSizeGateBlocks(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)
	seedKey(t, store, v, "u1", string(venues.VenueA))

	if err := db.AddBalance(store.SqlDB(), "u1", "USDT", decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertAutoTradeConfig(db.AutoTradeConfig{
		UserID: "u1", Venue: string(venues.VenueA), Enabled: true, Symbols: "BTCUSDT",
		MaxPositionPct: 0.1, MaxDailyTrades: 10, MaxConsecutiveLosses: 3,
	}); err != nil {
		t.Fatal(err)
	}

	e := withStubClient(New(store, v))
	// Quantity 50 at price 1 against a 100-unit wallet is 50% > 10% cap.
	_, err := e.ExecuteOrder(OrderRequest{
		Principal: "u1", Venue: string(venues.VenueA), Symbol: "BTCUSDT",
		Side: venues.SideBuy, Type: venues.OrderTypeLimit, Quantity: 50, Price: 1, Source: "manual",
	})
	if err == nil {
		t.Fatal("expected safety gate to block oversized position")
	}
}

func TestInvalidate_ForcesFreshClient(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)
	seedKey(t, store, v, "u1", string(venues.VenueA))

	e := withStubClient(New(store, v))
	if _, err := e.clientFor("u1", string(venues.VenueA)); err != nil {
		t.Fatal(err)
	}
	if len(e.clients) != 1 {
		t.Fatalf("expected 1 cached client, got %d", len(e.clients))
	}

	e.Invalidate("u1", string(venues.VenueA))
	if len(e.clients) != 0 {
		t.Errorf("expected cache cleared after invalidate, got %d entries", len(e.clients))
	}
}

func TestRecordTradeResult_ResetsAndIncrements(t *testing.T) {
	store := openTestStore(t)
	defer store.Close()
	v := testVault(t)

	if err := store.UpsertAutoTradeConfig(db.AutoTradeConfig{
		UserID: "u1", Venue: string(venues.VenueA), MaxConsecutiveLosses: 3,
	}); err != nil {
		t.Fatal(err)
	}

	e := withStubClient(New(store, v))
	if err := e.RecordTradeResult("u1", string(venues.VenueA), false); err != nil {
		t.Fatal(err)
	}
	cfg, _ := store.GetAutoTradeConfig("u1", string(venues.VenueA))
	if cfg.ConsecutiveLosses != 1 {
		t.Errorf("consecutiveLosses = %d, want 1", cfg.ConsecutiveLosses)
	}

	if err := e.RecordTradeResult("u1", string(venues.VenueA), true); err != nil {
		t.Fatal(err)
	}
	cfg, _ = store.GetAutoTradeConfig("u1", string(venues.VenueA))
	if cfg.ConsecutiveLosses != 0 {
		t.Errorf("consecutiveLosses after profit = %d, want 0", cfg.ConsecutiveLosses)
	}
}
