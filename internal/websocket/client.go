package websocket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"organizer/internal/store"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024

	sendBuffer = 256

	// Time allowed to look up the user's couple on subscribe
	resolveWait = 5 * time.Second
)

// ClientMessage represents incoming messages from clients
type ClientMessage struct {
	Type string `json:"type"`
	// ID names the subscription; defaults to table plus filter.
	ID     string `json:"id,omitempty"`
	Table  string `json:"table,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// Client message types
const (
	ClientMessageSubscribe   = "subscribe"
	ClientMessageUnsubscribe = "unsubscribe"
	ClientMessagePing        = "ping"
)

type subscription struct {
	table  string
	filter *store.Filter
}

// Client represents a connected WebSocket client
type Client struct {
	ID     string
	UserID uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	send   chan Message

	mutex         sync.Mutex
	closed        bool
	coupleID      *uuid.UUID
	subscriptions map[string]subscription
}

func newClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, coupleID *uuid.UUID) *Client {
	return &Client{
		ID:            generateClientID(),
		UserID:        userID,
		coupleID:      coupleID,
		hub:           hub,
		conn:          conn,
		send:          make(chan Message, sendBuffer),
		subscriptions: make(map[string]subscription),
	}
}

// trySend queues a message without blocking. It reports false when the
// buffer is full.
func (c *Client) trySend(message Message) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) inCouple(coupleID string) bool {
	couple := c.couple()
	return couple != nil && couple.String() == coupleID
}

func (c *Client) couple() *uuid.UUID {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.coupleID
}

// refreshCouple re-reads the user's couple. On lookup failure the known
// couple is kept.
func (c *Client) refreshCouple() {
	resolve := c.hub.coupleResolver()
	if resolve == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), resolveWait)
	defer cancel()
	couple, err := resolve(ctx, c.UserID)
	if err != nil {
		c.hub.logger.Warn("couple lookup failed", zap.String("client_id", c.ID), zap.Error(err))
		return
	}
	c.mutex.Lock()
	c.coupleID = couple
	c.mutex.Unlock()
}

// matching returns the ids of subscriptions that accept a record of table.
func (c *Client) matching(table string, record map[string]any) []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var ids []string
	for id, sub := range c.subscriptions {
		if sub.table != table {
			continue
		}
		if sub.filter != nil && !sub.filter.Matches(record) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *Client) subscribe(id string, sub subscription) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.subscriptions[id] = sub
}

func (c *Client) unsubscribe(id string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.subscriptions[id]
	delete(c.subscriptions, id)
	return ok
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.logger.Info("websocket closed unexpectedly", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var clientMessage ClientMessage
		if err := json.Unmarshal(messageBytes, &clientMessage); err != nil {
			c.reply(Message{Type: MessageTypeError, Data: map[string]string{"error": "invalid message"}})
			continue
		}

		c.handleClientMessage(clientMessage)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			message.Time = now()
			if err := c.conn.WriteJSON(message); err != nil {
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

func (c *Client) reply(message Message) {
	if !c.trySend(message) {
		c.hub.logger.Warn("client send buffer full", zap.String("client_id", c.ID))
	}
}

// handleClientMessage processes incoming messages from the client
func (c *Client) handleClientMessage(message ClientMessage) {
	switch message.Type {
	case ClientMessageSubscribe:
		if err := store.CheckTable(message.Table); err != nil {
			c.reply(Message{Type: MessageTypeError, Subscription: message.ID, Data: map[string]string{"error": err.Error()}})
			return
		}
		sub := subscription{table: message.Table}
		if message.Filter != "" {
			filter, err := store.ParseFilter(message.Filter)
			if err != nil {
				c.reply(Message{Type: MessageTypeError, Subscription: message.ID, Data: map[string]string{"error": err.Error()}})
				return
			}
			sub.filter = &filter
		}
		c.refreshCouple()
		id := subscriptionID(message)
		c.subscribe(id, sub)
		c.reply(Message{Type: MessageTypeSubscribed, Subscription: id, Table: message.Table})

	case ClientMessageUnsubscribe:
		id := subscriptionID(message)
		if c.unsubscribe(id) {
			c.reply(Message{Type: MessageTypeUnsubscribed, Subscription: id, Table: message.Table})
		}

	case ClientMessagePing:
		c.reply(Message{Type: MessageTypePong})

	default:
		c.reply(Message{Type: MessageTypeError, Data: map[string]string{"error": "unknown message type " + message.Type}})
	}
}

func subscriptionID(message ClientMessage) string {
	if message.ID != "" {
		return message.ID
	}
	if message.Filter == "" {
		return message.Table
	}
	return message.Table + ":" + message.Filter
}

// generateClientID creates a unique client ID
func generateClientID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return "client_" + hex.EncodeToString(bytes)
}
