package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"organizer/internal/store"
)

// Message types sent to clients
const (
	MessageTypeChange       = "change"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypePong         = "pong"
	MessageTypeError        = "error"
	MessageTypeUserOnline   = "user_online"
	MessageTypeUserOffline  = "user_offline"
)

// Message is the envelope written to websocket clients.
type Message struct {
	Type         string           `json:"type"`
	Subscription string           `json:"subscription,omitempty"`
	Table        string           `json:"table,omitempty"`
	Event        store.ChangeType `json:"event,omitempty"`
	UserID       *uuid.UUID       `json:"user_id,omitempty"`
	Data         interface{}      `json:"data,omitempty"`
	Time         int64            `json:"time"`
}

// Observer receives hub activity, typically the metrics collector.
type Observer interface {
	ClientConnected()
	ClientDisconnected()
	ObserveEvent(table, kind string)
}

// CoupleResolver looks up a user's current couple, nil when unpaired.
type CoupleResolver func(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)

// Listener is an in-process subscriber that receives every change event.
// It runs on the publishing goroutine and must not block.
type Listener func(store.ChangeEvent)

// Hub maintains the set of active clients and fans change events out to
// the ones whose subscriptions match.
type Hub struct {
	// Registered clients by user ID
	clients map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan store.ChangeEvent
	done       chan struct{}

	listeners     []Listener
	resolveCouple CoupleResolver
	observer      Observer
	logger    *zap.Logger
	upgrader  websocket.Upgrader

	mutex sync.RWMutex
}

// NewHub creates a hub. allowedOrigins limits websocket upgrades; an empty
// list accepts any origin.
func NewHub(logger *zap.Logger, observer Observer, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan store.ChangeEvent, 256),
		done:       make(chan struct{}),
		observer:   observer,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Run starts the hub's main loop. It returns when ctx is cancelled, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// ResolveCouplesWith makes clients look their couple up again on every
// subscribe, so pairing after connecting takes effect without reconnecting.
func (h *Hub) ResolveCouplesWith(resolve CoupleResolver) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.resolveCouple = resolve
}

func (h *Hub) coupleResolver() CoupleResolver {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.resolveCouple
}

// AddListener registers an in-process subscriber. Call before Run.
func (h *Hub) AddListener(l Listener) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.listeners = append(h.listeners, l)
}

// Publish implements store.Publisher. Listeners are called synchronously;
// websocket delivery is queued and dropped with a warning when the queue is
// full, so writers never block on slow subscribers.
func (h *Hub) Publish(event store.ChangeEvent) {
	h.mutex.RLock()
	listeners := h.listeners
	h.mutex.RUnlock()
	for _, l := range listeners {
		l(event)
	}

	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
		h.logger.Warn("realtime queue full, dropping event", zap.String("table", event.Table))
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true
	if h.observer != nil {
		h.observer.ClientConnected()
	}

	h.logger.Debug("client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID.String()),
		zap.Int("user_clients", len(h.clients[client.UserID])))

	// Notify the partner that this user is online
	if len(h.clients[client.UserID]) == 1 {
		h.broadcastUserStatus(client, MessageTypeUserOnline)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeClient(client)
}

// removeClient must be called with h.mutex held.
func (h *Hub) removeClient(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	client.close()
	if h.observer != nil {
		h.observer.ClientDisconnected()
	}

	if len(clients) == 0 {
		delete(h.clients, client.UserID)
		h.broadcastUserStatus(client, MessageTypeUserOffline)
	}
	h.logger.Debug("client unregistered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID.String()))
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for userID, clients := range h.clients {
		for client := range clients {
			client.close()
			if h.observer != nil {
				h.observer.ClientDisconnected()
			}
		}
		delete(h.clients, userID)
	}
}

// deliver sends event to every client subscription matching its table and
// filter. Records carrying a couple_id only go to members of that couple.
func (h *Hub) deliver(event store.ChangeEvent) {
	var record map[string]any
	if err := json.Unmarshal(event.Record, &record); err != nil {
		h.logger.Warn("undeliverable change event", zap.String("table", event.Table), zap.Error(err))
		return
	}
	if h.observer != nil {
		h.observer.ObserveEvent(event.Table, string(event.Type))
	}
	couple, scoped := event.Column("couple_id")

	h.mutex.Lock()
	defer h.mutex.Unlock()

	var slow []*Client
	for _, clients := range h.clients {
		for client := range clients {
			if scoped && !client.inCouple(couple) {
				continue
			}
			for _, id := range client.matching(event.Table, record) {
				message := Message{
					Type:         MessageTypeChange,
					Subscription: id,
					Table:        event.Table,
					Event:        event.Type,
					Data:         event.Record,
				}
				if !client.trySend(message) {
					slow = append(slow, client)
					break
				}
			}
		}
	}
	for _, client := range slow {
		h.logger.Warn("dropping slow client", zap.String("client_id", client.ID))
		h.removeClient(client)
	}
}

// broadcastUserStatus tells the other members of subject's couple that it
// came online or went offline. Unpaired users have nobody to tell. Must be
// called with h.mutex held.
func (h *Hub) broadcastUserStatus(subject *Client, messageType string) {
	couple := subject.couple()
	if couple == nil {
		return
	}
	id := subject.UserID
	message := Message{
		Type:   messageType,
		UserID: &id,
	}

	for otherUserID, clients := range h.clients {
		if otherUserID == subject.UserID {
			continue
		}
		for client := range clients {
			if client.inCouple(couple.String()) {
				client.trySend(message)
			}
		}
	}
}

// GetOnlineUsers returns the ids of users with at least one connection.
func (h *Hub) GetOnlineUsers() []uuid.UUID {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	onlineUsers := make([]uuid.UUID, 0, len(h.clients))
	for userID := range h.clients {
		onlineUsers = append(onlineUsers, userID)
	}
	sort.Slice(onlineUsers, func(i, j int) bool { return onlineUsers[i].String() < onlineUsers[j].String() })
	return onlineUsers
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(c *gin.Context, userID uuid.UUID, coupleID *uuid.UUID) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, userID, coupleID)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func now() int64 { return time.Now().Unix() }
