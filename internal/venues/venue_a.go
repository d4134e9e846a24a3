package venues

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"crowny-exchange/internal/apperr"
)

const venueABaseURL = "https://api.venue-a.example/v1"
const venueAMinGap = 100 * time.Millisecond

// venueAClient signs requests as an HS256 JWT carrying {access_key, nonce}
// and, when query parameters are present, a SHA-512 query hash (spec §4.5).
type venueAClient struct {
	creds    Credentials
	http     *http.Client
	throttle *throttle
}

func newVenueAClient(creds Credentials) *venueAClient {
	return &venueAClient{
		creds:    creds,
		http:     &http.Client{Timeout: requestTimeout},
		throttle: newThrottle(venueAMinGap),
	}
}

func (c *venueAClient) authHeader(params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.creds.AccessKey,
		"nonce":      uuid.NewString(),
	}
	if len(params) > 0 {
		sum := sha512.Sum512([]byte(params.Encode()))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = "SHA512"
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.creds.SecretKey))
	if err != nil {
		return "", apperr.Wrap(apperr.KindCryptographic, "venue_a jwt", err)
	}
	return "Bearer " + signed, nil
}

// do issues a signed (or public, when auth is false) request and decodes
// the JSON response into dst. Status 200/201 is success; any other status
// is a fatal client error carrying the decoded response body (spec §4.5).
func (c *venueAClient) do(method, path string, params url.Values, auth bool, dst interface{}) error {
	c.throttle.wait()

	reqURL := venueABaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequest(method, reqURL, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindVenueError, "venue_a", err)
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		header, err := c.authHeader(params)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", header)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindVenueError, "venue_a", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apperr.New(apperr.KindVenueError, fmt.Sprintf("venue_a %d: %s", resp.StatusCode, string(body)))
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Wrap(apperr.KindVenueError, "venue_a decode", err)
	}
	return nil
}

func (c *venueAClient) GetAccounts() ([]Account, error) {
	var raw []struct {
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
		Locked   string `json:"locked"`
	}
	if err := c.do(http.MethodGet, "/accounts", nil, true, &raw); err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(raw))
	for _, r := range raw {
		bal, _ := strconv.ParseFloat(r.Balance, 64)
		locked, _ := strconv.ParseFloat(r.Locked, 64)
		out = append(out, Account{Currency: r.Currency, Balance: bal, Locked: locked, Available: bal - locked})
	}
	return out, nil
}

func (c *venueAClient) GetAccount(currency string) (Account, error) {
	accounts, err := c.GetAccounts()
	if err != nil {
		return Account{}, err
	}
	for _, a := range accounts {
		if a.Currency == currency {
			return a, nil
		}
	}
	return Account{}, apperr.New(apperr.KindNotFound, "account "+currency)
}

func (c *venueAClient) GetTicker(symbol string) (Ticker, error) {
	var raw struct {
		TradePrice float64 `json:"trade_price"`
	}
	params := url.Values{"markets": {symbol}}
	if err := c.do(http.MethodGet, "/ticker", params, false, &raw); err != nil {
		return Ticker{}, err
	}
	return Ticker{Symbol: symbol, Price: raw.TradePrice}, nil
}

func (c *venueAClient) GetCandles(symbol, interval string, count int) ([]Candle, error) {
	var raw []struct {
		TimestampMs  int64   `json:"timestamp"`
		OpeningPrice float64 `json:"opening_price"`
		HighPrice    float64 `json:"high_price"`
		LowPrice     float64 `json:"low_price"`
		TradePrice   float64 `json:"trade_price"`
		Volume       float64 `json:"candle_acc_trade_volume"`
	}
	params := url.Values{"market": {symbol}, "count": {strconv.Itoa(count)}}
	if err := c.do(http.MethodGet, "/candles/"+interval, params, false, &raw); err != nil {
		return nil, err
	}
	out := make([]Candle, 0, len(raw))
	for _, r := range raw {
		out = append(out, Candle{
			OpenTime: r.TimestampMs, Open: r.OpeningPrice, High: r.HighPrice,
			Low: r.LowPrice, Close: r.TradePrice, Volume: r.Volume, CloseTime: r.TimestampMs,
		})
	}
	return out, nil
}

func (c *venueAClient) GetOrderBook(symbol string) (OrderBook, error) {
	var raw []struct {
		OrderbookUnits []struct {
			AskPrice float64 `json:"ask_price"`
			AskSize  float64 `json:"ask_size"`
			BidPrice float64 `json:"bid_price"`
			BidSize  float64 `json:"bid_size"`
		} `json:"orderbook_units"`
	}
	params := url.Values{"markets": {symbol}}
	if err := c.do(http.MethodGet, "/orderbook", params, false, &raw); err != nil {
		return OrderBook{}, err
	}
	ob := OrderBook{Symbol: symbol}
	if len(raw) == 0 {
		return ob, nil
	}
	for _, u := range raw[0].OrderbookUnits {
		ob.Bids = append(ob.Bids, OrderBookLevel{Price: u.BidPrice, Quantity: u.BidSize})
		ob.Asks = append(ob.Asks, OrderBookLevel{Price: u.AskPrice, Quantity: u.AskSize})
	}
	return ob, nil
}

// venueAOrdType translates a generic side/type pair into Venue A's
// ord_type vocabulary (spec §4.6 step 3).
func venueAOrdType(side Side, orderType OrderType) string {
	switch {
	case orderType == OrderTypeLimit:
		return "limit"
	case orderType == OrderTypeMarket && side == SideBuy:
		return "price"
	default:
		return "market"
	}
}

func (c *venueAClient) PlaceOrder(symbol string, side Side, orderType OrderType, quantity, price float64) (OrderResult, error) {
	params := url.Values{
		"market":   {symbol},
		"side":     {string(side)},
		"ord_type": {venueAOrdType(side, orderType)},
	}
	if orderType == OrderTypeLimit {
		params.Set("volume", strconv.FormatFloat(quantity, 'f', -1, 64))
		params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	} else if side == SideBuy {
		params.Set("price", strconv.FormatFloat(price*quantity, 'f', -1, 64))
	} else {
		params.Set("volume", strconv.FormatFloat(quantity, 'f', -1, 64))
	}

	var raw venueAOrderResponse
	if err := c.do(http.MethodPost, "/orders", params, true, &raw); err != nil {
		return OrderResult{}, err
	}
	return raw.toResult(), nil
}

func (c *venueAClient) CancelOrder(symbol, exchangeOrderID string) error {
	params := url.Values{"uuid": {exchangeOrderID}}
	return c.do(http.MethodDelete, "/order", params, true, nil)
}

func (c *venueAClient) GetOrder(symbol, exchangeOrderID string) (OrderResult, error) {
	var raw venueAOrderResponse
	params := url.Values{"uuid": {exchangeOrderID}}
	if err := c.do(http.MethodGet, "/order", params, true, &raw); err != nil {
		return OrderResult{}, err
	}
	return raw.toResult(), nil
}

func (c *venueAClient) GetOpenOrders(symbol string) ([]OrderResult, error) {
	var raw []venueAOrderResponse
	params := url.Values{"market": {symbol}, "state": {"wait"}}
	if err := c.do(http.MethodGet, "/orders", params, true, &raw); err != nil {
		return nil, err
	}
	out := make([]OrderResult, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toResult())
	}
	return out, nil
}

type venueAOrderResponse struct {
	UUID            string `json:"uuid"`
	State           string `json:"state"`
	ExecutedVolume  string `json:"executed_volume"`
	Price           string `json:"price"`
	PaidFee         string `json:"paid_fee"`
}

func (r venueAOrderResponse) toResult() OrderResult {
	filled, _ := strconv.ParseFloat(r.ExecutedVolume, 64)
	price, _ := strconv.ParseFloat(r.Price, 64)
	fee, _ := strconv.ParseFloat(r.PaidFee, 64)
	return OrderResult{
		ExchangeOrderID: r.UUID,
		Status:          venueAStatus(r.State),
		FilledQty:       filled,
		FilledPrice:     price,
		Fee:             fee,
	}
}

func venueAStatus(state string) OrderStatus {
	switch state {
	case "done":
		return OrderStatusFilled
	case "cancel":
		return OrderStatusCancelled
	case "wait":
		return OrderStatusOpen
	default:
		return OrderStatusOpen
	}
}
