// Package venues implements signed REST clients for the two external
// trading venues the auto-trade scheduler and manual exchange endpoints
// submit orders to (spec §4.5).
package venues

import (
	"time"

	"crowny-exchange/internal/apperr"
)

// Name identifies a venue. A typed enum keyed dispatch table replaces the
// substring-on-name routing of the original source (spec §9 open question).
type Name string

const (
	VenueA Name = "venue_a"
	VenueB Name = "venue_b"
)

// Side is an order's direction as understood by both venues.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType distinguishes limit from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// Credentials is a venue API key pair, held in plaintext only in memory
// after vault decryption (spec §4.7).
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Candle is one OHLCV bar as returned by a venue's public market data
// endpoint.
type Candle struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}

// OrderBookLevel is one price/quantity level of a venue's order book.
type OrderBookLevel struct {
	Price    float64
	Quantity float64
}

// OrderBook is the public best-levels snapshot for a symbol.
type OrderBook struct {
	Symbol string
	Bids   []OrderBookLevel
	Asks   []OrderBookLevel
}

// Ticker is the current best price for a symbol.
type Ticker struct {
	Symbol string
	Price  float64
}

// Account is a venue balance line for one asset.
type Account struct {
	Currency  string
	Balance   float64
	Locked    float64
	Available float64
}

// OrderStatus mirrors the venue's reported order lifecycle state.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// OrderResult is the venue's response to a place/query order call.
type OrderResult struct {
	ExchangeOrderID string
	Status          OrderStatus
	FilledQty       float64
	FilledPrice     float64
	Fee             float64
}

// Client is the shape both venue implementations satisfy (spec §4.5).
type Client interface {
	GetAccounts() ([]Account, error)
	GetAccount(currency string) (Account, error)
	GetTicker(symbol string) (Ticker, error)
	GetCandles(symbol, interval string, count int) ([]Candle, error)
	GetOrderBook(symbol string) (OrderBook, error)
	PlaceOrder(symbol string, side Side, orderType OrderType, quantity, price float64) (OrderResult, error)
	CancelOrder(symbol, exchangeOrderID string) error
	GetOrder(symbol, exchangeOrderID string) (OrderResult, error)
	GetOpenOrders(symbol string) ([]OrderResult, error)
}

const requestTimeout = 10 * time.Second

// NewClient builds the signed client for venue v from the given credentials.
func NewClient(v Name, creds Credentials) (Client, error) {
	switch v {
	case VenueA:
		return newVenueAClient(creds), nil
	case VenueB:
		return newVenueBClient(creds), nil
	default:
		return nil, apperr.New(apperr.KindBadInput, "venue "+string(v))
	}
}
