package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teranos/hamcall/db"
	"github.com/teranos/hamcall/logger"
)

// WebSocket timeout constants following Gorilla best practices
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outgoing messages queued per client
	sendBuffer = 64
)

// Client is one websocket connection streaming lookups.
type Client struct {
	server *Server
	conn   *websocket.Conn
	send   chan interface{}
	id     string

	mu     sync.Mutex
	closed bool
}

// HandleWebSocket upgrades GET /ws and starts the client pumps.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.getState() == ServerStateDraining {
		writeWrappedError(w, s.logger, ErrDraining, "websocket")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Debugw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	client := &Client{
		server: s,
		conn:   conn,
		send:   make(chan interface{}, sendBuffer),
		id:     uuid.NewString(),
	}
	s.register(client)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	s.clients[c] = true
	n := len(s.clients)
	s.mu.Unlock()

	s.metrics.wsClients.Set(float64(n))
	s.logger.Debugw("Client connected", logger.FieldClientID, c.id, "clients", n)
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	n := len(s.clients)
	s.mu.Unlock()

	if ok {
		s.metrics.wsClients.Set(float64(n))
		s.logger.Debugw("Client disconnected", logger.FieldClientID, c.id, "clients", n)
	}
	c.close()
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues msg without blocking. It reports false when the queue is
// full or the client is gone.
func (c *Client) trySend(msg interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.server.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var msg LookupMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.reply(ResultMessage{Type: "error", LookupResponse: LookupResponse{
				Outcome: "error",
				Error:   "invalid message: " + err.Error(),
			}})
			continue
		}
		c.routeMessage(&msg)
	}
}

// handleReadError logs unexpected WebSocket read errors.
// Expected closure codes (going away, abnormal, no status) are silently ignored.
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseNormalClosure,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		c.server.logger.Warnw("WebSocket read error",
			logger.FieldClientID, c.id,
			logger.FieldError, err)
	}
}

// routeMessage dispatches one client message.
func (c *Client) routeMessage(msg *LookupMessage) {
	switch strings.ToLower(msg.Type) {
	case "lookup", "":
		c.handleLookup(msg)
	default:
		c.reply(ResultMessage{Type: "error", ID: msg.ID, LookupResponse: LookupResponse{
			Call:    msg.Call,
			Outcome: "error",
			Error:   "unknown message type " + msg.Type,
		}})
	}
}

func (c *Client) handleLookup(msg *LookupMessage) {
	at, err := parseAt(msg.At)
	if err != nil {
		c.reply(ResultMessage{Type: "error", ID: msg.ID, LookupResponse: LookupResponse{
			Call: msg.Call, Outcome: "error", Error: err.Error(),
		}})
		return
	}
	a, err := c.server.store.Analyzer()
	if err != nil {
		c.reply(ResultMessage{Type: "error", ID: msg.ID, LookupResponse: LookupResponse{
			Call: msg.Call, Outcome: "error", Error: err.Error(),
		}})
		return
	}

	resp := c.server.lookup(c.server.ctx, a, db.SourceWS, msg.Call, at)
	c.reply(ResultMessage{Type: "result", ID: msg.ID, LookupResponse: resp})
}

// reply queues a response. A client that does not drain its queue loses
// replies rather than stalling the read pump.
func (c *Client) reply(msg ResultMessage) {
	if !c.trySend(msg) {
		c.server.logger.Warnw("Client send queue full, dropping reply",
			logger.FieldClientID, c.id,
			logger.FieldCall, msg.Call)
	}
}

// writePump serializes queued messages to the connection and keeps it
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.server.ctx.Done():
			return
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debugw("WebSocket write error",
					logger.FieldClientID, c.id,
					logger.FieldError, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
