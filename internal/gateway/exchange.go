package gateway

import (
	"crowny-exchange/internal/db"
	"crowny-exchange/internal/executor"
	"crowny-exchange/internal/metrics"
	"crowny-exchange/internal/venues"
)

// ExchangePlaceOrder forwards Exchange.placeOrder to the executor (spec
// §4.9/§4.6), emitting the principal-scoped exchange_order event either way.
func (g *Gateway) ExchangePlaceOrder(principal, venueName, symbol string, side venues.Side, orderType venues.OrderType, quantity, price float64) (db.VenueOrder, error) {
	if err := g.checkRate(principal); err != nil {
		return db.VenueOrder{}, err
	}
	order, err := g.exec.ExecuteOrder(executor.OrderRequest{
		Principal: principal, Venue: venueName, Symbol: symbol,
		Side: side, Type: orderType, Quantity: quantity, Price: price, Source: "manual",
	})
	if err != nil {
		g.events.Emit(Event{Type: "exchange_order", Principal: principal, Payload: map[string]interface{}{"error": err.Error()}})
		return db.VenueOrder{}, err
	}
	metrics.ExchangeOrders.WithLabelValues(venueName, string(side)).Inc()
	g.events.Emit(Event{Type: "exchange_order", Principal: principal, Payload: order})
	return order, nil
}

// ExchangeCancelOrder forwards Exchange.cancelOrder.
func (g *Gateway) ExchangeCancelOrder(principal, venueName, symbol, exchangeOrderID string) error {
	if err := g.checkRate(principal); err != nil {
		return err
	}
	return g.exec.CancelOrder(principal, venueName, symbol, exchangeOrderID)
}

// ExchangeBalance forwards Exchange.balance.
func (g *Gateway) ExchangeBalance(principal, venueName string) ([]venues.Account, error) {
	if err := g.checkRate(principal); err != nil {
		return nil, err
	}
	return g.exec.Balance(principal, venueName)
}

// ExchangeOpenOrders forwards Exchange.openOrders.
func (g *Gateway) ExchangeOpenOrders(principal, venueName, symbol string) ([]venues.OrderResult, error) {
	if err := g.checkRate(principal); err != nil {
		return nil, err
	}
	return g.exec.OpenOrders(principal, venueName, symbol)
}

// ExchangeHistory forwards Exchange.history.
func (g *Gateway) ExchangeHistory(principal, venueName string, limit int) ([]db.VenueOrder, error) {
	if err := g.checkRate(principal); err != nil {
		return nil, err
	}
	return g.exec.History(principal, venueName, limit)
}
