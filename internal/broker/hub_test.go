package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	nws "nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const waitFor = 3 * time.Second

type testBroker struct {
	server *httptest.Server
	hub    *Hub
	cancel context.CancelFunc
}

func newTestBroker(t *testing.T) *testBroker {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(NewMemoryRegistry(), nil)
	go hub.Run(ctx)

	server := httptest.NewServer(NewRouter(hub, RouterOptions{Version: "test"}))
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		server.Close()
	})
	return &testBroker{server: server, hub: hub, cancel: cancel}
}

func (b *testBroker) wsURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws"
}

func (b *testBroker) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(b.wsURL(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, m Message) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(m))
}

func receive(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	var m Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func register(t *testing.T, conn *websocket.Conn, id string) string {
	t.Helper()
	send(t, conn, Message{Type: TypeRegister, PeerID: id})
	m := receive(t, conn)
	require.Equal(t, TypeRegistered, m.Type, "payload: %s", m.Payload)
	return m.PeerID
}

func reason(t *testing.T, m Message) string {
	t.Helper()
	require.Equal(t, TypeError, m.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(m.Payload, &p))
	return p.Error
}

func TestHub_Register(t *testing.T) {
	t.Run("generated id", func(t *testing.T) {
		// Given
		b := newTestBroker(t)
		conn := b.dial(t)

		// When
		id := register(t, conn, "")

		// Then
		assert.True(t, ValidPeerID(id))
		assert.Len(t, strings.Split(id, "-"), 3)
	})

	t.Run("requested id", func(t *testing.T) {
		b := newTestBroker(t)

		id := register(t, b.dial(t), "alice-1")

		assert.Equal(t, "alice-1", id)
	})

	t.Run("duplicate id is refused", func(t *testing.T) {
		b := newTestBroker(t)
		register(t, b.dial(t), "alice-1")
		second := b.dial(t)

		send(t, second, Message{Type: TypeRegister, PeerID: "alice-1"})

		assert.Equal(t, ReasonPeerIDTaken, reason(t, receive(t, second)))
	})

	t.Run("invalid id is refused", func(t *testing.T) {
		b := newTestBroker(t)
		conn := b.dial(t)

		send(t, conn, Message{Type: TypeRegister, PeerID: "Not Valid!"})

		assert.Equal(t, ReasonInvalidPeerID, reason(t, receive(t, conn)))
	})

	t.Run("registering twice is refused", func(t *testing.T) {
		b := newTestBroker(t)
		conn := b.dial(t)
		register(t, conn, "")

		send(t, conn, Message{Type: TypeRegister})

		assert.Equal(t, ReasonAlreadyRegistered, reason(t, receive(t, conn)))
	})

	t.Run("id is free again after disconnect", func(t *testing.T) {
		b := newTestBroker(t)
		first := b.dial(t)
		register(t, first, "alice-1")
		watcher := b.dial(t)
		register(t, watcher, "bob-1")
		send(t, watcher, Message{Type: TypeSignal, To: "alice-1", Payload: json.RawMessage(`{}`)})
		receive(t, first)

		// When: alice leaves and bob is told
		require.NoError(t, first.Close())
		left := receive(t, watcher)
		require.Equal(t, TypePeerLeft, left.Type)

		// Then: the id can be claimed again
		assert.Equal(t, "alice-1", register(t, b.dial(t), "alice-1"))
	})
}

func TestHub_Signal(t *testing.T) {
	t.Run("relays between independent client implementations", func(t *testing.T) {
		// Given: alice on gorilla and bob on nhooyr
		b := newTestBroker(t)
		alice := b.dial(t)
		register(t, alice, "alice-1")

		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		bob, _, err := nws.Dial(ctx, b.wsURL(), nil)
		require.NoError(t, err)
		defer bob.Close(nws.StatusNormalClosure, "")

		require.NoError(t, wsjson.Write(ctx, bob, map[string]string{"type": "register", "peer_id": "bob-1"}))
		var registered map[string]any
		require.NoError(t, wsjson.Read(ctx, bob, &registered))
		require.Equal(t, "registered", registered["type"])

		// When: alice signals bob
		send(t, alice, Message{Type: TypeSignal, To: "bob-1", Payload: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)})

		// Then: bob sees it from alice with the payload untouched
		var got struct {
			Type    string          `json:"type"`
			From    string          `json:"from"`
			To      string          `json:"to"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, wsjson.Read(ctx, bob, &got))
		assert.Equal(t, "signal", got.Type)
		assert.Equal(t, "alice-1", got.From)
		assert.Equal(t, "bob-1", got.To)
		assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(got.Payload))

		// And: bob can answer back
		require.NoError(t, wsjson.Write(ctx, bob, map[string]any{
			"type":    "signal",
			"to":      "alice-1",
			"payload": map[string]string{"type": "answer"},
		}))
		answer := receive(t, alice)
		assert.Equal(t, TypeSignal, answer.Type)
		assert.Equal(t, "bob-1", answer.From)
	})

	t.Run("unknown target", func(t *testing.T) {
		b := newTestBroker(t)
		conn := b.dial(t)
		register(t, conn, "alice-1")

		send(t, conn, Message{Type: TypeSignal, To: "nobody-home", Payload: json.RawMessage(`{}`)})

		m := receive(t, conn)
		assert.Equal(t, ReasonPeerUnavailable, reason(t, m))
		assert.Equal(t, "nobody-home", m.To)
	})

	t.Run("self target", func(t *testing.T) {
		b := newTestBroker(t)
		conn := b.dial(t)
		register(t, conn, "alice-1")

		send(t, conn, Message{Type: TypeSignal, To: "alice-1"})

		assert.Equal(t, ReasonPeerUnavailable, reason(t, receive(t, conn)))
	})

	t.Run("must register first", func(t *testing.T) {
		b := newTestBroker(t)
		register(t, b.dial(t), "bob-1")
		conn := b.dial(t)

		send(t, conn, Message{Type: TypeSignal, To: "bob-1"})

		assert.Equal(t, ReasonNotRegistered, reason(t, receive(t, conn)))
	})

	t.Run("unknown type", func(t *testing.T) {
		b := newTestBroker(t)
		conn := b.dial(t)

		send(t, conn, Message{Type: "create_room"})

		assert.Equal(t, ReasonUnknownType, reason(t, receive(t, conn)))
	})
}

func TestHub_Shutdown(t *testing.T) {
	// Given: a connected client
	b := newTestBroker(t)
	conn := b.dial(t)
	register(t, conn, "")

	// When: the hub stops
	b.cancel()
	<-b.hub.Done()

	// Then: the connection is closed by the broker
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestRoutes(t *testing.T) {
	b := newTestBroker(t)

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(b.server.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("version", func(t *testing.T) {
		resp, err := http.Get(b.server.URL + "/version")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("qr code", func(t *testing.T) {
		resp, err := http.Get(b.server.URL + "/qr/sleepy-otter-waffle")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	})

	t.Run("qr code for an invalid id", func(t *testing.T) {
		resp, err := http.Get(b.server.URL + "/qr/NOPE")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("pprof is off by default", func(t *testing.T) {
		resp, err := http.Get(b.server.URL + "/debug/pprof/heap")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
