package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is a limit order's direction.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderStatus tracks a LimitOrder's lifecycle (spec §3).
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// LimitOrder is a resting order against a pool (spec §3).
type LimitOrder struct {
	ID        string
	Owner     string
	PoolID    string
	Side      OrderSide
	Price     decimal.Decimal
	Amount    decimal.Decimal
	Filled    decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
}

// Remaining returns amount-filled.
func (o *LimitOrder) Remaining() decimal.Decimal {
	return o.Amount.Sub(o.Filled)
}

// Terminal reports whether the order is in a terminal state.
func (o *LimitOrder) Terminal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCancelled
}

// Fill is one match produced by MatchOrders: maker/taker amount exchanged
// at the resting order's price (spec §4.1 "maker price" convention).
type Fill struct {
	BuyOrderID  string
	SellOrderID string
	PoolID      string
	Price       decimal.Decimal
	Amount      decimal.Decimal
}

// OrderBook is the in-process, append-only limit order store shared by all
// pools (spec §4.1, §5).
type OrderBook struct {
	mu     sync.Mutex
	orders []*LimitOrder
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

// Place marks the order open and appends it to the book.
func (b *OrderBook) Place(order *LimitOrder) {
	order.Status = OrderStatusOpen
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, order)
}

// Get returns the order with the given id, or nil.
func (b *OrderBook) Get(id string) *LimitOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Cancel transitions an open/partial order to cancelled, returning the
// remaining (previously locked) amount so the caller can release funds.
func (b *OrderBook) Cancel(id, owner string) (remaining decimal.Decimal, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range b.orders {
		if o.ID == id && o.Owner == owner && !o.Terminal() {
			remaining = o.Remaining()
			o.Status = OrderStatusCancelled
			return remaining, true
		}
	}
	return decimal.Zero, false
}

// OpenOrders returns all non-terminal orders for a pool.
func (b *OrderBook) OpenOrders(poolID string) []*LimitOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*LimitOrder
	for _, o := range b.orders {
		if o.PoolID == poolID && !o.Terminal() {
			out = append(out, o)
		}
	}
	return out
}

// MatchOrders matches resting buy/sell orders for one pool: buys sorted by
// price descending, sells by price ascending, filling at the maker
// (resting sell) price whenever buy.price >= sell.price (spec §4.1).
func (b *OrderBook) MatchOrders(poolID string) []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()

	var buys, sells []*LimitOrder
	for _, o := range b.orders {
		if o.PoolID != poolID || o.Terminal() {
			continue
		}
		if o.Side == OrderSideBuy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].Price.GreaterThan(buys[j].Price) })
	sort.SliceStable(sells, func(i, j int) bool { return sells[i].Price.LessThan(sells[j].Price) })

	var fills []Fill
	si := 0
	for _, buy := range buys {
		for si < len(sells) {
			sell := sells[si]
			if sell.Terminal() || sell.Remaining().Sign() <= 0 {
				si++
				continue
			}
			if buy.Price.LessThan(sell.Price) {
				break
			}
			if buy.Remaining().Sign() <= 0 {
				break
			}
			amount := decimal.Min(buy.Remaining(), sell.Remaining())
			if amount.Sign() <= 0 {
				break
			}
			buy.Filled = buy.Filled.Add(amount)
			sell.Filled = sell.Filled.Add(amount)
			advanceStatus(buy)
			advanceStatus(sell)
			fills = append(fills, Fill{
				BuyOrderID: buy.ID, SellOrderID: sell.ID,
				PoolID: poolID, Price: sell.Price, Amount: amount,
			})
			if sell.Remaining().Sign() <= 0 {
				si++
			}
			if buy.Remaining().Sign() <= 0 {
				break
			}
		}
	}
	return fills
}

func advanceStatus(o *LimitOrder) {
	switch {
	case o.Remaining().Sign() <= 0:
		o.Status = OrderStatusFilled
	case o.Filled.Sign() > 0:
		o.Status = OrderStatusPartial
	}
}
