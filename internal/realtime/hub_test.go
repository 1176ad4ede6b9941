package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func alert(severity, address string) *Event {
	return &Event{Type: EventAlert, Severity: severity, Address: address, Timestamp: time.Now()}
}

// ---------------------------------------------------------------------------
// Subscription tests
// ---------------------------------------------------------------------------

func TestSubscription_EmptyMatchesEverything(t *testing.T) {
	if !(Subscription{}).matches(alert("low", "0xa")) {
		t.Error("empty subscription should receive every event")
	}
}

func TestSubscription_MinSeverity(t *testing.T) {
	sub := Subscription{MinSeverity: "High"}

	if sub.matches(alert("medium", "0xa")) {
		t.Error("medium should be filtered by min high")
	}
	if !sub.matches(alert("high", "0xa")) {
		t.Error("high should pass min high")
	}
	if !sub.matches(alert("critical", "0xa")) {
		t.Error("critical should pass min high")
	}
}

func TestSubscription_UnknownMinSeverityIgnored(t *testing.T) {
	if !(Subscription{MinSeverity: "severe"}).matches(alert("low", "0xa")) {
		t.Error("unknown severity filter should not drop events")
	}
}

func TestSubscription_Addresses(t *testing.T) {
	sub := Subscription{Addresses: []string{"0xABC"}}

	if !sub.matches(alert("high", "0xabc")) {
		t.Error("address filter should be case-insensitive")
	}
	if sub.matches(alert("high", "0xdef")) {
		t.Error("other addresses should be filtered")
	}
}

func TestSubscriptionFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/alerts/ws?min_severity=critical&address=0xa,%200xb,,", nil)
	sub := SubscriptionFromQuery(r)

	if sub.MinSeverity != "critical" {
		t.Errorf("MinSeverity = %q", sub.MinSeverity)
	}
	if len(sub.Addresses) != 2 || sub.Addresses[0] != "0xa" || sub.Addresses[1] != "0xb" {
		t.Errorf("Addresses = %v", sub.Addresses)
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	stats := testHub().Stats()
	if stats.ConnectedClients != 0 || stats.TotalEvents != 0 {
		t.Errorf("unexpected initial stats: %+v", stats)
	}
}

func TestHub_PublishAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	if !h.Publish(alert("high", "0xa")) {
		t.Fatal("publish should be accepted")
	}
	time.Sleep(50 * time.Millisecond)

	if got := h.Stats().TotalEvents; got != 1 {
		t.Errorf("Expected 1 total event, got %d", got)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{hub: h, send: make(chan []byte, 16)}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats.ConnectedClients != 1 || stats.PeakClients != 1 {
		t.Errorf("unexpected stats after register: %+v", stats)
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats.ConnectedClients != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %d", stats.ConnectedClients)
	}
	if stats.PeakClients != 1 {
		t.Errorf("Expected peak still 1, got %d", stats.PeakClients)
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{hub: h, send: make(chan []byte, 16), sub: Subscription{MinSeverity: "critical"}}
	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Publish(alert("high", "0xa"))
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("client should not receive a high alert")
	default:
	}

	h.Publish(alert("critical", "0xa"))
	select {
	case msg := <-client.send:
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil || e.Severity != "critical" {
			t.Errorf("unexpected message %s (%v)", msg, err)
		}
	case <-time.After(time.Second):
		t.Error("client should receive a critical alert")
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{hub: h, send: make(chan []byte)} // unbuffered, never read
	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Publish(alert("high", "0xa"))
	time.Sleep(100 * time.Millisecond)

	if n := h.Stats().ConnectedClients; n != 0 {
		t.Errorf("slow client should be dropped, %d connected", n)
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Hub did not stop after context cancellation")
	}

	rec := httptest.NewRecorder()
	h.HandleWebSocket(rec, httptest.NewRequest(http.MethodGet, "/v1/alerts/ws", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("stopped hub should refuse upgrades, got %d", rec.Code)
	}
}

func TestHub_WebSocketEndToEnd(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?address=0xBEEF"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for h.Stats().ConnectedClients == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	h.Publish(alert("high", "0xother"))
	h.Publish(alert("high", "0xbeef"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var e Event
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Address != "0xbeef" || e.Type != EventAlert {
		t.Errorf("unexpected event: %+v", e)
	}
}
