// Package executor is the trade executor (spec §4.6): it caches one venue
// client per (principal, venue), runs the pre-trade safety gate against a
// principal's AutoTradeConfig, and persists the VenueOrder lifecycle around
// every call out to a venue, with a mutex-guarded in-memory client cache.
package executor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crowny-exchange/internal/apperr"
	"crowny-exchange/internal/db"
	"crowny-exchange/internal/logger"
	"crowny-exchange/internal/vault"
	"crowny-exchange/internal/venues"
)

const tag = "EXECUTOR"

type cacheKey struct {
	principal string
	venue     string
}

// Executor holds the per-(principal,venue) signed client cache and the
// store/vault handles needed to run the safety gate and persist orders.
type Executor struct {
	store *db.DB
	vault *vault.Vault

	// newClient builds a signed venue client from credentials. A field
	// rather than a direct venues.NewClient call so tests can substitute a
	// stub client without reaching the network.
	newClient func(venues.Name, venues.Credentials) (venues.Client, error)

	mu      sync.Mutex
	clients map[cacheKey]venues.Client
}

// New builds an Executor backed by the given store and key vault.
func New(store *db.DB, v *vault.Vault) *Executor {
	return &Executor{
		store:     store,
		vault:     v,
		newClient: venues.NewClient,
		clients:   make(map[cacheKey]venues.Client),
	}
}

// Invalidate drops a cached client, forcing the next order for that
// (principal, venue) to rebuild it from the currently stored keys (spec
// §4.6: called on key rotation or deletion).
func (e *Executor) Invalidate(principal, venue string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.clients, cacheKey{principal, venue})
}

func (e *Executor) clientFor(principal, venueName string) (venues.Client, error) {
	key := cacheKey{principal, venueName}

	e.mu.Lock()
	c, ok := e.clients[key]
	e.mu.Unlock()
	if ok {
		return c, nil
	}

	sealed, _, err := e.store.GetKey(principal, venueName)
	if err != nil {
		return nil, err
	}
	accessKey, secretKey, err := e.vault.DecryptKeyPair(sealed)
	if err != nil {
		return nil, err
	}
	client, err := e.newClient(venues.Name(venueName), venues.Credentials{AccessKey: accessKey, SecretKey: secretKey})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.clients[key] = client
	e.mu.Unlock()
	return client, nil
}

// OrderRequest is the input to ExecuteOrder (spec §4.6).
type OrderRequest struct {
	Principal string
	Venue     string
	Symbol    string
	Side      venues.Side
	Type      venues.OrderType
	Quantity  float64
	Price     float64 // zero for market orders
	Source    string  // "manual" or "auto"
	SignalID  string
}

// ExecuteOrder runs the safety gate, persists a pending VenueOrder, submits
// to the venue, and records the outcome (spec §4.6 steps 1-5).
func (e *Executor) ExecuteOrder(req OrderRequest) (db.VenueOrder, error) {
	if err := e.safetyGate(req); err != nil {
		return db.VenueOrder{}, err
	}

	now := time.Now()
	order := &db.VenueOrder{
		ID:        uuid.NewString(),
		UserID:    req.Principal,
		Venue:     req.Venue,
		Symbol:    req.Symbol,
		Side:      string(req.Side),
		Type:      string(req.Type),
		Quantity:  req.Quantity,
		Source:    req.Source,
		AiSignalID: req.SignalID,
		CreatedAt: now,
	}
	if req.Type == venues.OrderTypeLimit {
		price := req.Price
		order.Price = &price
	}
	if err := db.InsertVenueOrder(e.store.SqlDB(), order); err != nil {
		return db.VenueOrder{}, err
	}

	client, err := e.clientFor(req.Principal, req.Venue)
	if err != nil {
		_ = db.MarkVenueOrderFailed(e.store.SqlDB(), order.ID, err, time.Now())
		return db.VenueOrder{}, err
	}

	result, err := client.PlaceOrder(req.Symbol, req.Side, req.Type, req.Quantity, req.Price)
	if err != nil {
		_ = db.MarkVenueOrderFailed(e.store.SqlDB(), order.ID, err, time.Now())
		logger.Warn(tag, "order failed: "+req.Principal+"/"+req.Venue+"/"+req.Symbol+": "+err.Error())
		return db.VenueOrder{}, err
	}

	status := venueStatusToStored(result.Status)
	if err := db.MarkVenueOrderSubmitted(e.store.SqlDB(), order.ID, result.ExchangeOrderID, status, result.FilledQty, result.FilledPrice, result.Fee, time.Now()); err != nil {
		return db.VenueOrder{}, err
	}
	if err := db.IncrementDailyTrades(e.store.SqlDB(), req.Principal, req.Venue); err != nil {
		return db.VenueOrder{}, err
	}

	return e.store.GetVenueOrder(order.ID)
}

// venueStatusToStored maps a venue's reported order status to the locally
// persisted lifecycle state (spec §3 submitted -> {filled, cancelled}).
// A freshly placed order the venue still reports as open or partially
// filled stays "submitted" until a later poll or cancel resolves it.
func venueStatusToStored(status venues.OrderStatus) db.VenueOrderStatus {
	switch status {
	case venues.OrderStatusFilled:
		return db.VenueOrderFilled
	case venues.OrderStatusCancelled:
		return db.VenueOrderCancelled
	default:
		return db.VenueOrderSubmitted
	}
}

// safetyGate consults the principal's AutoTradeConfig for the venue (spec
// §4.6 step 1). A principal with no config on file for the venue trades
// without a gate — manual trading predates auto-trade configuration.
func (e *Executor) safetyGate(req OrderRequest) error {
	cfg, err := e.store.GetAutoTradeConfig(req.Principal, req.Venue)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if cfg.DailyTradesUsed >= cfg.MaxDailyTrades {
		return apperr.New(apperr.KindSafetyBlocked, "daily trade cap reached")
	}
	if cfg.MaxConsecutiveLosses > 0 && cfg.ConsecutiveLosses >= cfg.MaxConsecutiveLosses {
		return apperr.New(apperr.KindSafetyBlocked, "consecutive loss cap reached")
	}

	wallets, err := e.store.AllWallets(req.Principal)
	if err != nil {
		return err
	}
	var total decimal.Decimal
	for _, w := range wallets {
		total = total.Add(w.Balance)
	}
	if total.IsPositive() {
		refPrice := req.Price
		if refPrice == 0 {
			refPrice = 1
		}
		notional := decimal.NewFromFloat(req.Quantity).Mul(decimal.NewFromFloat(refPrice))
		if notional.Div(total).GreaterThan(decimal.NewFromFloat(cfg.MaxPositionPct)) {
			return apperr.New(apperr.KindSafetyBlocked, "position size exceeds maxPositionPct")
		}
	}
	return nil
}

// RecordTradeResult resets the consecutive-loss counter on a profitable
// trade, or increments it on a loss (spec §4.6). A reconciler — not part of
// the executor itself — calls this once a VenueOrder transitions to filled
// and its realized PnL is known.
func (e *Executor) RecordTradeResult(principal, venueName string, isProfit bool) error {
	if isProfit {
		return db.ResetConsecutiveLosses(e.store.SqlDB(), principal, venueName)
	}
	return db.IncrementConsecutiveLosses(e.store.SqlDB(), principal, venueName)
}

// CancelOrder forwards a cancel to the signed venue client and marks the
// local VenueOrder row cancelled (spec §6 POST /api/exchange/cancel; §3
// submitted -> cancelled).
func (e *Executor) CancelOrder(principal, venueName, symbol, exchangeOrderID string) error {
	client, err := e.clientFor(principal, venueName)
	if err != nil {
		return err
	}
	if err := client.CancelOrder(symbol, exchangeOrderID); err != nil {
		return err
	}
	if err := db.MarkVenueOrderCancelledByExchangeID(e.store.SqlDB(), principal, venueName, exchangeOrderID, time.Now()); err != nil {
		logger.Warn(tag, "mark order cancelled: "+err.Error())
	}
	return nil
}

// Balance returns the principal's venue-side account balances (spec §6
// GET /api/exchange/balance).
func (e *Executor) Balance(principal, venueName string) ([]venues.Account, error) {
	client, err := e.clientFor(principal, venueName)
	if err != nil {
		return nil, err
	}
	return client.GetAccounts()
}

// OpenOrders returns the principal's resting orders at the venue (spec §6
// GET /api/exchange/orders).
func (e *Executor) OpenOrders(principal, venueName, symbol string) ([]venues.OrderResult, error) {
	client, err := e.clientFor(principal, venueName)
	if err != nil {
		return nil, err
	}
	return client.GetOpenOrders(symbol)
}

// History returns the principal's recent VenueOrder rows for a venue (spec
// §6 GET /api/exchange/history).
func (e *Executor) History(principal, venueName string, limit int) ([]db.VenueOrder, error) {
	return e.store.ListVenueOrders(principal, venueName, limit)
}
