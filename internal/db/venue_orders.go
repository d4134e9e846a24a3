package db

import (
	"database/sql"
	"time"

	"crowny-exchange/internal/apperr"
)

// VenueOrderStatus mirrors the lifecycle from spec §3/§7: transitions occur
// only along pending -> {submitted, failed} and submitted -> {filled, cancelled}.
type VenueOrderStatus string

const (
	VenueOrderPending   VenueOrderStatus = "pending"
	VenueOrderSubmitted VenueOrderStatus = "submitted"
	VenueOrderFilled    VenueOrderStatus = "filled"
	VenueOrderCancelled VenueOrderStatus = "cancelled"
	VenueOrderFailed    VenueOrderStatus = "failed"
)

// VenueOrder is a row tracking one order sent (or attempted) to an
// external venue.
type VenueOrder struct {
	ID              string
	UserID          string
	Venue           string
	Symbol          string
	Side            string
	Type            string
	Price           *float64
	Quantity        float64
	Status          VenueOrderStatus
	ExchangeOrderID string
	FilledQty       float64
	FilledPrice     float64
	Fee             float64
	Source          string
	AiSignalID      string
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const maxVenueOrderErrorLen = 500

// InsertVenueOrder creates a pending VenueOrder row (spec §4.6 step 2).
func InsertVenueOrder(q Querier, o *VenueOrder) error {
	_, err := q.Exec(`
		INSERT INTO venue_orders (id, user_id, venue, symbol, side, type, price, quantity, status, source, ai_signal_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.Venue, o.Symbol, o.Side, o.Type, o.Price, o.Quantity,
		string(VenueOrderPending), o.Source, nullableString(o.AiSignalID), o.CreatedAt.Unix(), o.CreatedAt.Unix())
	return err
}

// MarkVenueOrderFailed transitions a pending order to failed, truncating
// the error message to 500 chars (spec §4.6 step 4).
func MarkVenueOrderFailed(q Querier, id string, cause error, now time.Time) error {
	msg := cause.Error()
	if len(msg) > maxVenueOrderErrorLen {
		msg = msg[:maxVenueOrderErrorLen]
	}
	_, err := q.Exec(`UPDATE venue_orders SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(VenueOrderFailed), msg, now.Unix(), id, string(VenueOrderPending))
	return err
}

// MarkVenueOrderSubmitted records the venue's response on success, carrying
// over whatever lifecycle status the venue itself reported rather than
// assuming "submitted" (spec §4.6 step 5; §3 submitted -> {filled, cancelled}).
func MarkVenueOrderSubmitted(q Querier, id, exchangeOrderID string, status VenueOrderStatus, filledQty, filledPrice, fee float64, now time.Time) error {
	_, err := q.Exec(`
		UPDATE venue_orders
		   SET status = ?, exchange_order_id = ?, filled_qty = ?, filled_price = ?, fee = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), exchangeOrderID, filledQty, filledPrice, fee, now.Unix(), id, string(VenueOrderPending))
	return err
}

// MarkVenueOrderCancelled transitions a submitted order to cancelled
// (spec §3 submitted -> cancelled).
func MarkVenueOrderCancelled(q Querier, id string, now time.Time) error {
	_, err := q.Exec(`UPDATE venue_orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(VenueOrderCancelled), now.Unix(), id, string(VenueOrderSubmitted))
	return err
}

// MarkVenueOrderCancelledByExchangeID transitions a submitted order to
// cancelled, looked up by the venue's own order id rather than the local
// row id (the shape POST /api/exchange/cancel is called with).
func MarkVenueOrderCancelledByExchangeID(q Querier, userID, venueName, exchangeOrderID string, now time.Time) error {
	_, err := q.Exec(`
		UPDATE venue_orders SET status = ?, updated_at = ?
		 WHERE user_id = ? AND venue = ? AND exchange_order_id = ? AND status = ?`,
		string(VenueOrderCancelled), now.Unix(), userID, venueName, exchangeOrderID, string(VenueOrderSubmitted))
	return err
}

// GetVenueOrder returns one venue order by id.
func (d *DB) GetVenueOrder(id string) (VenueOrder, error) {
	var o VenueOrder
	var price sql.NullFloat64
	var exchangeOrderID, aiSignalID, errMsg sql.NullString
	var createdAt, updatedAt int64
	err := d.sql.QueryRow(`
		SELECT id, user_id, venue, symbol, side, type, price, quantity, status,
		       exchange_order_id, filled_qty, filled_price, fee, source, ai_signal_id, error, created_at, updated_at
		FROM venue_orders WHERE id = ?`, id).
		Scan(&o.ID, &o.UserID, &o.Venue, &o.Symbol, &o.Side, &o.Type, &price, &o.Quantity, &o.Status,
			&exchangeOrderID, &o.FilledQty, &o.FilledPrice, &o.Fee, &o.Source, &aiSignalID, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return VenueOrder{}, apperr.New(apperr.KindNotFound, "venue order")
	}
	if err != nil {
		return VenueOrder{}, err
	}
	if price.Valid {
		o.Price = &price.Float64
	}
	o.ExchangeOrderID = exchangeOrderID.String
	o.AiSignalID = aiSignalID.String
	o.Error = errMsg.String
	o.CreatedAt = time.Unix(createdAt, 0)
	o.UpdatedAt = time.Unix(updatedAt, 0)
	return o, nil
}

// ListVenueOrders returns the most recent venue orders for a (user, venue).
func (d *DB) ListVenueOrders(userID, venue string, limit int) ([]VenueOrder, error) {
	rows, err := d.sql.Query(`
		SELECT id, status, symbol, side, quantity, filled_qty, filled_price, created_at
		FROM venue_orders WHERE user_id = ? AND venue = ? ORDER BY created_at DESC LIMIT ?`, userID, venue, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VenueOrder
	for rows.Next() {
		var o VenueOrder
		var createdAt int64
		if err := rows.Scan(&o.ID, &o.Status, &o.Symbol, &o.Side, &o.Quantity, &o.FilledQty, &o.FilledPrice, &createdAt); err != nil {
			return nil, err
		}
		o.UserID, o.Venue = userID, venue
		o.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
