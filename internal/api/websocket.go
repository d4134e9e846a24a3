package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crowny-exchange/internal/gateway"
	"crowny-exchange/internal/logger"
)

const apiTag = "API"

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true }, // spec §6 CORS: "*"
}

// wsClient is one connected websocket socket (spec §5 "websocket client set:
// mutation only on connect/close").
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	principal string

	mu     sync.Mutex
	prices bool
}

// hub fans gateway events out to every connected client, scoping
// principal-tagged events (exchange_order, auto_trade, auto_error) to their
// owner and broadcasting everything else (spec §6 server-pushed events).
type hub struct {
	gw *gateway.Gateway

	mu      sync.Mutex
	clients map[*wsClient]bool
}

func newHub(gw *gateway.Gateway) *hub {
	return &hub{gw: gw, clients: make(map[*wsClient]bool)}
}

func (h *hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// run drains the gateway event bus and fans each event out to every client
// it is visible to.
func (h *hub) run() {
	events, unsubscribe := h.gw.Events().Subscribe(256)
	defer unsubscribe()
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		h.mu.Lock()
		for c := range h.clients {
			if !h.visibleTo(c, ev) {
				continue
			}
			select {
			case c.send <- data:
			default:
				logger.Warn(apiTag, "dropping slow websocket client")
			}
		}
		h.mu.Unlock()
	}
}

func (h *hub) visibleTo(c *wsClient, ev gateway.Event) bool {
	if ev.Principal != "" {
		return ev.Principal == c.principal
	}
	if ev.Type == "dex_update" {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.prices
	}
	return true
}

// handleWebSocket upgrades the connection and starts its read/write pumps
// (spec §6 "WebSocket on the same port").
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(apiTag, "websocket upgrade: "+err.Error())
		return
	}

	principal, _ := s.principalFromRequest(r)
	client := &wsClient{conn: conn, send: make(chan []byte, 64), principal: principal}
	s.hub.register(client)

	greeting, _ := json.Marshal(map[string]interface{}{"type": "connected", "authenticated": principal != ""})
	client.send <- greeting

	go client.writePump()
	go s.readPump(client)
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type wsInbound struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Count    int    `json:"count"`
}

// readPump handles inbound client messages: auth, subscribe_prices, and
// analyze (spec §6).
func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in wsInbound
		if err := json.Unmarshal(raw, &in); err != nil {
			continue
		}
		switch in.Type {
		case "auth":
			if p, err := s.auth.Authenticate(in.Token); err == nil {
				c.principal = p.ID
			}
		case "subscribe_prices":
			c.mu.Lock()
			c.prices = true
			c.mu.Unlock()
		case "analyze":
			interval := in.Interval
			if interval == "" {
				interval = "1h"
			}
			count := in.Count
			if count == 0 {
				count = 100
			}
			result, err := s.gw.Analyze(in.Exchange, in.Symbol, interval, count)
			var out []byte
			if err != nil {
				out, _ = json.Marshal(map[string]string{"type": "analyze_error", "error": err.Error()})
			} else {
				out, _ = json.Marshal(map[string]interface{}{"type": "analyze_result", "result": result})
			}
			select {
			case c.send <- out:
			default:
			}
		}
	}
}
