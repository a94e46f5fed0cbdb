package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"organizer/internal/store"
)

type countingObserver struct {
	clients atomic.Int32
	events  atomic.Int32
}

func (o *countingObserver) ClientConnected()         { o.clients.Add(1) }
func (o *countingObserver) ClientDisconnected()      { o.clients.Add(-1) }
func (o *countingObserver) ObserveEvent(_, _ string) { o.events.Add(1) }

type harness struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
	stop   chan struct{}
}

// newHarness serves the hub at /ws. The user and couple come from the
// user and couple query parameters.
func newHarness(t *testing.T, observer Observer) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(zap.NewNop(), observer, nil)
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stop)
	}()

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		userID := uuid.MustParse(c.Query("user"))
		var couple *uuid.UUID
		if raw := c.Query("couple"); raw != "" {
			id := uuid.MustParse(raw)
			couple = &id
		}
		hub.ServeWS(c, userID, couple)
	})
	server := httptest.NewServer(router)

	return &harness{hub: hub, server: server, cancel: cancel, stop: stop}
}

func (h *harness) close() {
	h.cancel()
	<-h.stop
	h.server.Close()
}

func (h *harness) dial(t *testing.T, user uuid.UUID, couple *uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/ws?user=" + user.String()
	if couple != nil {
		url += "&couple=" + couple.String()
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var message Message
	require.NoError(t, conn.ReadJSON(&message))
	return message
}

// readUntil skips presence messages.
func readUntil(t *testing.T, conn *websocket.Conn, messageType string) Message {
	t.Helper()
	for {
		message := readMessage(t, conn)
		if message.Type == messageType {
			return message
		}
	}
}

func subscribe(t *testing.T, conn *websocket.Conn, table, filter string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: ClientMessageSubscribe, Table: table, Filter: filter}))
	readUntil(t, conn, MessageTypeSubscribed)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DeliversMatchingSubscriptions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	observer := &countingObserver{}
	h := newHarness(t, observer)
	defer h.close()

	couple := uuid.New()
	listID := uuid.New()
	conn := h.dial(t, uuid.New(), &couple)
	defer conn.Close()

	subscribe(t, conn, store.TableLists, "id=eq."+listID.String())
	waitFor(t, func() bool { return observer.clients.Load() == 1 })

	other := `{"id":"` + uuid.NewString() + `","couple_id":"` + couple.String() + `"}`
	h.hub.Publish(store.ChangeEvent{Table: store.TableLists, Type: store.ChangeUpdate, Record: json.RawMessage(other)})
	h.hub.Publish(store.ChangeEvent{Table: store.TableRecipes, Type: store.ChangeInsert, Record: json.RawMessage(`{"id":"x","couple_id":"`+couple.String()+`"}`)})
	match := `{"id":"` + listID.String() + `","couple_id":"` + couple.String() + `","name":"Mercado"}`
	h.hub.Publish(store.ChangeEvent{Table: store.TableLists, Type: store.ChangeUpdate, Record: json.RawMessage(match)})

	message := readUntil(t, conn, MessageTypeChange)
	assert.Equal(t, store.TableLists, message.Table)
	assert.Equal(t, store.ChangeUpdate, message.Event)
	assert.Equal(t, "lists:id=eq."+listID.String(), message.Subscription)
	data, err := json.Marshal(message.Data)
	require.NoError(t, err)
	assert.JSONEq(t, match, string(data))
	waitFor(t, func() bool { return observer.events.Load() == 3 })
}

func TestHub_CoupleScopedRecordsStayInCouple(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, nil)
	defer h.close()

	mine, theirs := uuid.New(), uuid.New()
	conn := h.dial(t, uuid.New(), &mine)
	defer conn.Close()
	subscribe(t, conn, store.TableLists, "")

	h.hub.Publish(store.ChangeEvent{Table: store.TableLists, Type: store.ChangeInsert, Record: json.RawMessage(`{"id":"1","couple_id":"` + theirs.String() + `"}`)})
	h.hub.Publish(store.ChangeEvent{Table: store.TableLists, Type: store.ChangeInsert, Record: json.RawMessage(`{"id":"2","couple_id":"` + mine.String() + `"}`)})

	message := readUntil(t, conn, MessageTypeChange)
	data, err := json.Marshal(message.Data)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"2"`)
}

func TestHub_PresenceAndOnlineUsers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, nil)
	defer h.close()

	ana, bia := uuid.New(), uuid.New()
	couple := uuid.New()
	first := h.dial(t, ana, &couple)
	defer first.Close()
	waitFor(t, func() bool { return len(h.hub.GetOnlineUsers()) == 1 })

	second := h.dial(t, bia, &couple)
	online := readUntil(t, first, MessageTypeUserOnline)
	require.NotNil(t, online.UserID)
	assert.Equal(t, bia, *online.UserID)
	waitFor(t, func() bool { return len(h.hub.GetOnlineUsers()) == 2 })

	require.NoError(t, second.Close())
	offline := readUntil(t, first, MessageTypeUserOffline)
	assert.Equal(t, bia, *offline.UserID)
	waitFor(t, func() bool { return len(h.hub.GetOnlineUsers()) == 1 })
}

func TestHub_PresenceStaysInCouple(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, nil)
	defer h.close()

	ours, theirs := uuid.New(), uuid.New()
	ana, bia := uuid.New(), uuid.New()
	first := h.dial(t, ana, &ours)
	defer first.Close()
	waitFor(t, func() bool { return len(h.hub.GetOnlineUsers()) == 1 })

	stranger := h.dial(t, uuid.New(), &theirs)
	defer stranger.Close()
	loner := h.dial(t, uuid.New(), nil)
	defer loner.Close()
	waitFor(t, func() bool { return len(h.hub.GetOnlineUsers()) == 3 })

	partner := h.dial(t, bia, &ours)
	defer partner.Close()
	waitFor(t, func() bool { return len(h.hub.GetOnlineUsers()) == 4 })

	// the only presence message ana gets is the partner's
	online := readMessage(t, first)
	assert.Equal(t, MessageTypeUserOnline, online.Type)
	require.NotNil(t, online.UserID)
	assert.Equal(t, bia, *online.UserID)

	// nobody outside the couple hears about either of them
	for _, conn := range []*websocket.Conn{stranger, loner} {
		require.NoError(t, conn.WriteJSON(ClientMessage{Type: ClientMessagePing}))
		assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)
	}
}

func TestHub_SubscribePicksUpNewCouple(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, nil)
	defer h.close()

	user, couple := uuid.New(), uuid.New()
	var (
		mu     sync.Mutex
		paired *uuid.UUID
	)
	h.hub.ResolveCouplesWith(func(_ context.Context, id uuid.UUID) (*uuid.UUID, error) {
		mu.Lock()
		defer mu.Unlock()
		if id != user {
			return nil, nil
		}
		return paired, nil
	})

	conn := h.dial(t, user, nil)
	defer conn.Close()

	// joined a couple after connecting
	mu.Lock()
	paired = &couple
	mu.Unlock()
	subscribe(t, conn, store.TableLists, "")

	h.hub.Publish(store.ChangeEvent{Table: store.TableLists, Type: store.ChangeInsert, Record: json.RawMessage(`{"id":"1","couple_id":"` + couple.String() + `"}`)})
	message := readUntil(t, conn, MessageTypeChange)
	data, err := json.Marshal(message.Data)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"1"`)
}

func TestHub_PingAndErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, nil)
	defer h.close()
	conn := h.dial(t, uuid.New(), nil)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: ClientMessagePing}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: ClientMessageSubscribe, Table: "pg_authid"}))
	assert.Equal(t, MessageTypeError, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: ClientMessageSubscribe, Table: store.TableLists, Filter: "id"}))
	assert.Equal(t, MessageTypeError, readMessage(t, conn).Type)
}

func TestHub_ListenersAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := newHarness(t, nil)
	var seen atomic.Int32
	h.hub.AddListener(func(e store.ChangeEvent) {
		if e.Table == store.TableCoupleRestaurants {
			seen.Add(1)
		}
	})

	conn := h.dial(t, uuid.New(), nil)
	defer conn.Close()
	waitFor(t, func() bool { return len(h.hub.GetOnlineUsers()) == 1 })

	h.hub.Publish(store.ChangeEvent{Table: store.TableCoupleRestaurants, Type: store.ChangeUpdate, Record: json.RawMessage(`{}`)})
	assert.Equal(t, int32(1), seen.Load())

	h.close()
	// the server side closes the connection on shutdown
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// publishing after shutdown must not block
	h.hub.Publish(store.ChangeEvent{Table: store.TableLists, Type: store.ChangeDelete, Record: json.RawMessage(`{}`)})
}
