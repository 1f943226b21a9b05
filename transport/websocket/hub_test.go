package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// recordingHandler implements Handler for testing
type recordingHandler struct {
	mu           sync.Mutex
	connected    []string
	frames       []Frame
	disconnected map[string]string
	connectErr   error
	frameErr     error
	events       chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		disconnected: make(map[string]string),
		events:       make(chan string, 64),
	}
}

func (h *recordingHandler) Connect(session string) error {
	h.mu.Lock()
	h.connected = append(h.connected, session)
	h.mu.Unlock()
	h.events <- "connect"
	return h.connectErr
}

func (h *recordingHandler) HandleFrame(session string, frame Frame) error {
	h.mu.Lock()
	h.frames = append(h.frames, frame)
	h.mu.Unlock()
	h.events <- "frame:" + frame.Type
	return h.frameErr
}

func (h *recordingHandler) Disconnect(session, reason string) {
	h.mu.Lock()
	h.disconnected[session] = reason
	h.mu.Unlock()
	h.events <- "disconnect"
}

func (h *recordingHandler) wait(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-h.events:
		if got != want {
			t.Fatalf("Expected handler event %q, got %q", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for handler event %q", want)
	}
}

type received struct {
	Session string          `json:"session"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

func quietHub(handler Handler, opts ...HubOption) *Hub {
	opts = append([]HubOption{WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return NewHub(handler, opts...)
}

func testClient(hub *Hub, session string) *Client {
	return hub.newClient(session, nil)
}

func nextEnvelope(t *testing.T, c *Client) received {
	t.Helper()
	select {
	case data := <-c.send:
		var env received
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("Failed to unmarshal envelope: %v", err)
		}
		return env
	default:
		t.Fatal("Expected a queued message")
	}
	return received{}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(newRecordingHandler())

	if hub.sessions == nil {
		t.Error("Hub sessions map is nil")
	}
	if hub.register == nil || hub.unregister == nil || hub.done == nil {
		t.Error("Hub channels not initialised")
	}
	if hub.logger == nil {
		t.Error("Hub logger should default to the standard logger")
	}
	if hub.limit != rate.Limit(5) || hub.burst != 10 {
		t.Errorf("Unexpected default rate limit %v/%d", hub.limit, hub.burst)
	}

	hub = NewHub(newRecordingHandler(), WithRateLimit(2, 3))
	if hub.limit != rate.Limit(2) || hub.burst != 3 {
		t.Errorf("WithRateLimit not applied: %v/%d", hub.limit, hub.burst)
	}
}

func TestHubRegisterClient(t *testing.T) {
	handler := newRecordingHandler()
	hub := quietHub(handler)

	client := testClient(hub, "s1")
	hub.registerClient(client)

	if !hub.Connected("s1") || hub.Sessions() != 1 {
		t.Fatal("Client was not registered")
	}
	if len(handler.connected) != 1 || handler.connected[0] != "s1" {
		t.Errorf("Handler not told about the connection: %v", handler.connected)
	}

	env := nextEnvelope(t, client)
	if env.Event != EventWelcome || env.Session != "s1" {
		t.Errorf("Expected welcome for s1, got %+v", env)
	}
}

func TestHubRegisterClientRejected(t *testing.T) {
	handler := newRecordingHandler()
	handler.connectErr = errors.New("already connected")
	hub := quietHub(handler)

	client := testClient(hub, "s1")
	hub.registerClient(client)

	nextEnvelope(t, client) // welcome
	env := nextEnvelope(t, client)
	if env.Event != EventError || !strings.Contains(string(env.Data), "already connected") {
		t.Errorf("Expected error envelope, got %+v", env)
	}
}

func TestHubUnregisterClient(t *testing.T) {
	handler := newRecordingHandler()
	hub := quietHub(handler)

	client := testClient(hub, "s1")
	hub.registerClient(client)
	hub.unregisterClient(client, "client left")

	if hub.Connected("s1") {
		t.Error("Session should have been removed")
	}
	if handler.disconnected["s1"] != "client left" {
		t.Errorf("Expected disconnect reason, got %q", handler.disconnected["s1"])
	}

	// Drain the welcome and check the channel was closed
	for range client.send {
	}

	// A second unregister of the same client is ignored
	hub.unregisterClient(client, "again")
	if handler.disconnected["s1"] != "client left" {
		t.Error("Stale unregister should not reach the handler")
	}
}

func TestHubUnregisterStaleClient(t *testing.T) {
	handler := newRecordingHandler()
	hub := quietHub(handler)

	stale := testClient(hub, "s1")
	current := testClient(hub, "s1")
	hub.registerClient(current)

	hub.unregisterClient(stale, "stale")
	if !hub.Connected("s1") {
		t.Error("Unregistering a replaced client must keep the current one")
	}
	if _, ok := handler.disconnected["s1"]; ok {
		t.Error("Handler should not see a disconnect")
	}
}

func TestHubPublish(t *testing.T) {
	hub := quietHub(newRecordingHandler())
	client := testClient(hub, "s1")
	hub.registerClient(client)
	nextEnvelope(t, client) // welcome

	hub.Publish("s1", "lobby_update", map[string]string{"lobby_id": "Apex"})
	env := nextEnvelope(t, client)
	if env.Event != "lobby_update" || env.Session != "s1" {
		t.Errorf("Unexpected envelope %+v", env)
	}
	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil || data["lobby_id"] != "Apex" {
		t.Errorf("Unexpected payload %s", env.Data)
	}

	// Unknown sessions are ignored
	hub.Publish("nobody", "lobby_update", nil)

	// Unmarshalable payloads are dropped
	hub.Publish("s1", "bad", make(chan int))
	select {
	case <-client.send:
		t.Error("Unmarshalable payload should not be delivered")
	default:
	}
}

func TestHubPublishPreservesOrder(t *testing.T) {
	hub := quietHub(newRecordingHandler())
	client := testClient(hub, "s1")
	hub.registerClient(client)
	nextEnvelope(t, client)

	for i := 0; i < 20; i++ {
		hub.Publish("s1", "seq", i)
	}
	for i := 0; i < 20; i++ {
		env := nextEnvelope(t, client)
		var n int
		json.Unmarshal(env.Data, &n)
		if n != i {
			t.Fatalf("Message %d arrived out of order (got %d)", i, n)
		}
	}
}

func TestHubPublishFullBuffer(t *testing.T) {
	hub := quietHub(newRecordingHandler())
	client := testClient(hub, "s1")
	hub.registerClient(client)

	for i := 0; i < sendBuffer+5; i++ {
		hub.Publish("s1", "flood", i)
	}
	if len(client.send) != sendBuffer {
		t.Errorf("Expected full buffer of %d, got %d", sendBuffer, len(client.send))
	}
}

func TestClientHandle(t *testing.T) {
	handler := newRecordingHandler()
	hub := quietHub(handler, WithRateLimit(0.0001, 2))
	client := testClient(hub, "s1")
	hub.registerClient(client)
	nextEnvelope(t, client)
	<-handler.events // connect

	client.handle([]byte(`{"type":"hello","data":{"players":[{"id":"p1"}]}}`))
	handler.wait(t, "frame:hello")

	client.handle([]byte(`{not json`))
	env := nextEnvelope(t, client)
	if env.Event != EventError || !strings.Contains(string(env.Data), "invalid frame") {
		t.Errorf("Expected invalid frame error, got %+v", env)
	}

	client.handle([]byte(`{"type":"message"}`))
	env = nextEnvelope(t, client)
	if env.Event != EventError || !strings.Contains(string(env.Data), "rate limit") {
		t.Errorf("Expected rate limit error, got %+v", env)
	}
	if len(handler.frames) != 1 {
		t.Errorf("Rate limited frame reached the handler: %d frames", len(handler.frames))
	}
}

func TestClientHandleError(t *testing.T) {
	handler := newRecordingHandler()
	handler.frameErr = errors.New("not in a lobby")
	hub := quietHub(handler)
	client := testClient(hub, "s1")
	hub.registerClient(client)
	nextEnvelope(t, client)

	client.handle([]byte(`{"type":"message","data":{"text":"hi"}}`))
	env := nextEnvelope(t, client)
	if env.Event != EventError || !strings.Contains(string(env.Data), "not in a lobby") {
		t.Errorf("Expected handler error, got %+v", env)
	}
}

func TestHubServeWS(t *testing.T) {
	handler := newRecordingHandler()
	hub := quietHub(handler)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var welcome received
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("Failed to read welcome: %v", err)
	}
	if welcome.Event != EventWelcome || welcome.Session == "" {
		t.Fatalf("Unexpected welcome %+v", welcome)
	}
	handler.wait(t, "connect")

	if err := conn.WriteJSON(Frame{Type: "hello", Data: json.RawMessage(`{"players":[{"id":"p1"}]}`)}); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
	handler.wait(t, "frame:hello")

	hub.Publish(welcome.Session, "relocate", map[string]string{"resource": "Map_01"})
	var relocate received
	if err := conn.ReadJSON(&relocate); err != nil {
		t.Fatalf("Failed to read relocate: %v", err)
	}
	if relocate.Event != "relocate" {
		t.Errorf("Expected relocate, got %+v", relocate)
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	handler.wait(t, "disconnect")

	handler.mu.Lock()
	reason := handler.disconnected[welcome.Session]
	handler.mu.Unlock()
	if reason != "client left" {
		t.Errorf("Expected reason 'client left', got %q", reason)
	}

	cancel()
	<-hub.done

	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code != 503 {
		t.Errorf("Expected 503 after shutdown, got %d", rec.Code)
	}
}

func TestHubShutdownDisconnectsSessions(t *testing.T) {
	handler := newRecordingHandler()
	hub := quietHub(handler)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := testClient(hub, "s1")
	hub.register <- client
	handler.wait(t, "connect")

	cancel()
	handler.wait(t, "disconnect")
	<-hub.done

	if handler.disconnected["s1"] != "server shutting down" {
		t.Errorf("Unexpected reason %q", handler.disconnected["s1"])
	}
	if hub.Sessions() != 0 {
		t.Error("Sessions should be cleared on shutdown")
	}
}
