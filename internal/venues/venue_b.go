package venues

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crowny-exchange/internal/apperr"
)

const venueBBaseURL = "https://api.venue-b.example/api/v3"
const venueBMinGap = 50 * time.Millisecond

// venueBClient signs requests by appending a timestamp and an
// HMAC-SHA256 signature of the url-encoded query string, carried via
// X-MBX-APIKEY (spec §4.5).
type venueBClient struct {
	creds    Credentials
	http     *http.Client
	throttle *throttle
}

func newVenueBClient(creds Credentials) *venueBClient {
	return &venueBClient{
		creds:    creds,
		http:     &http.Client{Timeout: requestTimeout},
		throttle: newThrottle(venueBMinGap),
	}
}

func (c *venueBClient) sign(params url.Values) string {
	mac := hmac.New(sha256.New, []byte(c.creds.SecretKey))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

// do issues a request, signing it when auth is true. Only HTTP 200 counts
// as success (spec §4.5); anything else is a fatal client error.
func (c *venueBClient) do(method, path string, params url.Values, auth bool, dst interface{}) error {
	c.throttle.wait()

	if params == nil {
		params = url.Values{}
	}
	if auth {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	}
	query := params.Encode()
	if auth {
		query += "&signature=" + c.sign(params)
	}

	reqURL := venueBBaseURL + path
	if query != "" {
		reqURL += "?" + query
	}
	req, err := http.NewRequest(method, reqURL, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindVenueError, "venue_b", err)
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("X-MBX-APIKEY", c.creds.AccessKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindVenueError, "venue_b", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindVenueError, fmt.Sprintf("venue_b %d: %s", resp.StatusCode, string(body)))
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperr.Wrap(apperr.KindVenueError, "venue_b decode", err)
	}
	return nil
}

func (c *venueBClient) GetAccounts() ([]Account, error) {
	var raw struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := c.do(http.MethodGet, "/account", nil, true, &raw); err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(raw.Balances))
	for _, b := range raw.Balances {
		free, _ := strconv.ParseFloat(b.Free, 64)
		locked, _ := strconv.ParseFloat(b.Locked, 64)
		out = append(out, Account{Currency: b.Asset, Balance: free + locked, Locked: locked, Available: free})
	}
	return out, nil
}

func (c *venueBClient) GetAccount(currency string) (Account, error) {
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

func (c *venueBClient) GetTicker(symbol string) (Ticker, error) {
	var raw struct {
		Price string `json:"price"`
	}
	params := url.Values{"symbol": {symbol}}
	if err := c.do(http.MethodGet, "/ticker/price", params, false, &raw); err != nil {
		return Ticker{}, err
	}
	price, _ := strconv.ParseFloat(raw.Price, 64)
	return Ticker{Symbol: symbol, Price: price}, nil
}

func (c *venueBClient) GetCandles(symbol, interval string, count int) ([]Candle, error) {
	var raw [][]interface{}
	params := url.Values{"symbol": {symbol}, "interval": {interval}, "limit": {strconv.Itoa(count)}}
	if err := c.do(http.MethodGet, "/klines", params, false, &raw); err != nil {
		return nil, err
	}
	out := make([]Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		out = append(out, Candle{
			OpenTime:  toInt64(k[0]),
			Open:      toFloat(k[1]),
			High:      toFloat(k[2]),
			Low:       toFloat(k[3]),
			Close:     toFloat(k[4]),
			Volume:    toFloat(k[5]),
			CloseTime: toInt64(k[6]),
		})
	}
	return out, nil
}

func (c *venueBClient) GetOrderBook(symbol string) (OrderBook, error) {
	var raw struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	params := url.Values{"symbol": {symbol}, "limit": {"20"}}
	if err := c.do(http.MethodGet, "/depth", params, false, &raw); err != nil {
		return OrderBook{}, err
	}
	ob := OrderBook{Symbol: symbol}
	for _, b := range raw.Bids {
		ob.Bids = append(ob.Bids, levelFromStrings(b))
	}
	for _, a := range raw.Asks {
		ob.Asks = append(ob.Asks, levelFromStrings(a))
	}
	return ob, nil
}

func levelFromStrings(pair [2]string) OrderBookLevel {
	price, _ := strconv.ParseFloat(pair[0], 64)
	qty, _ := strconv.ParseFloat(pair[1], 64)
	return OrderBookLevel{Price: price, Quantity: qty}
}

// venueBOrdType translates side/type into Venue B's type vocabulary
// (spec §4.6 step 3).
func venueBOrdType(orderType OrderType) string {
	if orderType == OrderTypeMarket {
		return "MARKET"
	}
	return "LIMIT"
}

func (c *venueBClient) PlaceOrder(symbol string, side Side, orderType OrderType, quantity, price float64) (OrderResult, error) {
	params := url.Values{
		"symbol": {symbol},
		"side":   {upperSide(side)},
		"type":   {venueBOrdType(orderType)},
		"quantity": {strconv.FormatFloat(quantity, 'f', -1, 64)},
	}
	if orderType == OrderTypeLimit {
		params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
		params.Set("timeInForce", "GTC")
	}

	var raw venueBOrderResponse
	if err := c.do(http.MethodPost, "/order", params, true, &raw); err != nil {
		return OrderResult{}, err
	}
	return raw.toResult(), nil
}

func upperSide(side Side) string {
	if side == SideBuy {
		return "BUY"
	}
	return "SELL"
}

func (c *venueBClient) CancelOrder(symbol, exchangeOrderID string) error {
	params := url.Values{"symbol": {symbol}, "orderId": {exchangeOrderID}}
	return c.do(http.MethodDelete, "/order", params, true, nil)
}

func (c *venueBClient) GetOrder(symbol, exchangeOrderID string) (OrderResult, error) {
	var raw venueBOrderResponse
	params := url.Values{"symbol": {symbol}, "orderId": {exchangeOrderID}}
	if err := c.do(http.MethodGet, "/order", params, true, &raw); err != nil {
		return OrderResult{}, err
	}
	return raw.toResult(), nil
}

func (c *venueBClient) GetOpenOrders(symbol string) ([]OrderResult, error) {
	var raw []venueBOrderResponse
	params := url.Values{"symbol": {symbol}}
	if err := c.do(http.MethodGet, "/openOrders", params, true, &raw); err != nil {
		return nil, err
	}
	out := make([]OrderResult, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toResult())
	}
	return out, nil
}

type venueBOrderResponse struct {
	OrderID             int64  `json:"orderId"`
	Status              string `json:"status"`
	ExecutedQty         string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
}

func (r venueBOrderResponse) toResult() OrderResult {
	filled, _ := strconv.ParseFloat(r.ExecutedQty, 64)
	quote, _ := strconv.ParseFloat(r.CummulativeQuoteQty, 64)
	price := 0.0
	if filled > 0 {
		price = quote / filled
	}
	return OrderResult{
		ExchangeOrderID: strconv.FormatInt(r.OrderID, 10),
		Status:          venueBStatus(r.Status),
		FilledQty:       filled,
		FilledPrice:     price,
	}
}

func venueBStatus(status string) OrderStatus {
	switch status {
	case "FILLED":
		return OrderStatusFilled
	case "PARTIALLY_FILLED":
		return OrderStatusPartiallyFilled
	case "CANCELED", "EXPIRED", "REJECTED":
		return OrderStatusCancelled
	default:
		return OrderStatusOpen
	}
}

func toFloat(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	default:
		return 0
	}
}

func toInt64(v interface{}) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case string:
		i, _ := strconv.ParseInt(x, 10, 64)
		return i
	default:
		return 0
	}
}
