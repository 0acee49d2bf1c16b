package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docscanner/internal/dto"
	"docscanner/internal/logger"

	"github.com/gorilla/websocket"
)

func setupHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()
	hub := NewHubService(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, have %d", n, hub.GetClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastEvent(t *testing.T) {
	hub, srv := setupHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.BroadcastEvent(dto.ScanEvent{
		ScanID:         "abc",
		Classification: "Sensitive",
		Confidence:     0.93,
		Regions:        []dto.RegionResult{{Kind: "PAN", XMax: 10, YMax: 10}},
	})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		var event dto.ScanEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("Invalid event JSON: %v", err)
		}
		if event.ScanID != "abc" || len(event.Regions) != 1 || event.Regions[0].Kind != "PAN" {
			t.Errorf("Unexpected event %+v", event)
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	hub, srv := setupHub(t)
	dial(t, srv)
	waitForClients(t, hub, 1)

	hub.mutex.RLock()
	var conn *websocket.Conn
	for c := range hub.clients {
		conn = c
	}
	hub.mutex.RUnlock()

	hub.Unregister(conn)
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHubService(logger.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast([]byte("event"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked with a full queue")
	}
}

func TestHub_RegisterAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHubService(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		hub.Unregister(conn)
		close(registered)
	}))
	defer srv.Close()

	dial(t, srv)
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("Register blocked on a stopped hub")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Stopped hub should keep no clients, has %d", hub.GetClientCount())
	}
}
