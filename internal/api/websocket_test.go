package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/bridgesim/internal/event"
	"github.com/nerrad567/bridgesim/internal/infrastructure/config"
	"github.com/nerrad567/bridgesim/internal/infrastructure/logging"
	"github.com/nerrad567/bridgesim/internal/stream"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func mockClient(hub *Hub, channels ...string) *WSClient {
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}, len(channels)),
	}
	for _, ch := range channels {
		client.subscriptions[ch] = struct{}{}
	}
	hub.Register(client)
	return client
}

func receive(t *testing.T, client *WSClient) WSMessage {
	t.Helper()
	select {
	case data := <-client.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast message")
	}
	return WSMessage{}
}

// ─── Hub Tests ─────────────────────────────────────────────────────

func TestHub_Colors(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, ChannelStreamColors)

	hub.Colors([]stream.Color{{LightID: 2, R: 10, G: 20, B: 30}})

	msg := receive(t, client)
	if msg.Type != WSTypeEvent || msg.EventType != ChannelStreamColors {
		t.Errorf("message = %+v", msg)
	}
	colors, ok := msg.Payload.([]any)
	if !ok || len(colors) != 1 {
		t.Fatalf("payload = %#v", msg.Payload)
	}
	if c := colors[0].(map[string]any); c["light_id"] != float64(2) || c["b"] != float64(30) {
		t.Errorf("color = %v", c)
	}
}

func TestHub_StatusAndMirror(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, ChannelStreamStatus, ChannelResourceEvents)

	hub.Status(stream.Status{State: stream.StateIdle, Token: stream.StateIdle})
	if msg := receive(t, client); msg.EventType != ChannelStreamStatus {
		t.Errorf("event_type = %q, want %q", msg.EventType, ChannelStreamStatus)
	}

	hub.Mirror(event.Message{ID: 4, Envelopes: []event.Envelope{{ID: "e1", Type: event.TypeUpdate, Data: []any{}}}})
	msg := receive(t, client)
	if msg.EventType != ChannelResourceEvents {
		t.Errorf("event_type = %q, want %q", msg.EventType, ChannelResourceEvents)
	}
	envelopes, ok := msg.Payload.([]any)
	if !ok || len(envelopes) != 1 {
		t.Errorf("payload = %#v", msg.Payload)
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := testHub(t)
	client := mockClient(hub, ChannelResourceEvents)

	hub.Colors([]stream.Color{{LightID: 0}})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := testHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}
	client := mockClient(hub)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}
	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}

	// Sending to an unregistered client must not panic.
	client.trySend([]byte("late"))
}

// ─── WebSocket Endpoint ────────────────────────────────────────────

func TestWebSocket_EndToEnd(t *testing.T) {
	env := testServer(t, config.GenerationClipV2)
	env.poller.AddSink(env.srv.Hub())

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/develop/ws?channels=" + ChannelStreamStatus
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.srv.Hub().ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A frame without a session decodes to the idle status.
	if err := env.poller.Offer(stream.Frame{Version: stream.VersionClipV2}); err != nil {
		t.Fatal(err)
	}
	env.poller.Tick()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if msg.EventType != ChannelStreamStatus {
		t.Errorf("event_type = %q, want %q", msg.EventType, ChannelStreamStatus)
	}
	payload, _ := msg.Payload.(map[string]any)
	if payload["state"] != stream.StateIdle {
		t.Errorf("payload = %v", msg.Payload)
	}

	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: []string{ChannelStreamColors}},
	}
	if err := ws.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe message: %v", err)
	}
	var response WSMessage
	if err := ws.ReadJSON(&response); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if response.Type != WSTypeResponse || response.ID != "sub-1" {
		t.Errorf("response = %+v", response)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	var errMsg WSMessage
	if err := ws.ReadJSON(&errMsg); err != nil {
		t.Fatalf("read error: %v", err)
	}
	if errMsg.Type != WSTypeError {
		t.Errorf("type = %q, want %q", errMsg.Type, WSTypeError)
	}
}
