package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func quietHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBroadcastReachesOnlyOwner(t *testing.T) {
	hub := quietHub()
	mine, theirs := NewClient(), NewClient()
	hub.Register("user-1", mine)
	hub.Register("user-2", theirs)

	hub.BroadcastBalance("user-1", BalanceUpdate{Entity: EntityCard, ID: "card-1", Balance: "40.00", Available: "960.00"})

	select {
	case msg := <-mine.Messages():
		var got BalanceUpdate
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if got.Entity != EntityCard || got.Available != "960.00" {
			t.Fatalf("unexpected update: %#v", got)
		}
	default:
		t.Fatalf("expected an update for the owner")
	}
	if len(theirs.Messages()) != 0 {
		t.Fatalf("other owners must not receive updates")
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := quietHub()
	client := NewClient()
	hub.Register("user-1", client)
	for i := 0; i < sendBuffer+5; i++ {
		hub.BroadcastBalance("user-1", BalanceUpdate{Entity: EntityAccount, ID: "acc-1", Balance: "1.00"})
	}
	if len(client.Messages()) != sendBuffer {
		t.Fatalf("expected buffer to cap at %d, got %d", sendBuffer, len(client.Messages()))
	}
}

func TestUnregisterRemovesOwner(t *testing.T) {
	hub := quietHub()
	client := NewClient()
	hub.Register("user-1", client)
	hub.Unregister("user-1", client)
	if hub.Connections("user-1") != 0 {
		t.Fatalf("expected no connections")
	}
}

func TestServeWSDeliversUpdates(t *testing.T) {
	hub := quietHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, Upgrader([]string{"*"}), hub, "user-1")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections("user-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	hub.BroadcastBalance("user-1", BalanceUpdate{Entity: EntityLoan, ID: "loan-1", Balance: "500.00"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got BalanceUpdate
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != "loan-1" || got.Balance != "500.00" {
		t.Fatalf("unexpected update: %#v", got)
	}
}

func TestUpgraderRejectsUnknownOrigin(t *testing.T) {
	up := Upgrader([]string{"https://app.example"})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://evil.example")
	if up.CheckOrigin(r) {
		t.Fatalf("expected origin to be rejected")
	}
	r.Header.Set("Origin", "https://app.example")
	if !up.CheckOrigin(r) {
		t.Fatalf("expected origin to be accepted")
	}
}
