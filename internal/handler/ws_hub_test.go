package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/lucylow/quaternion-sub009/internal/auth"
)

func newTestConn(userID string) *WSConn {
	return &WSConn{
		conn:   nil, // no real connection for hub tests
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "match-1")
	if hub.MatchSubscriberCount("match-1") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.MatchSubscriberCount("match-1"))
	}

	hub.Unsubscribe(c, "match-1")
	if hub.MatchSubscriberCount("match-1") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.MatchSubscriberCount("match-1"))
	}
}

func TestHubBroadcastToMatch(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-2")
	c3 := newTestConn("user-3") // not subscribed

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.Subscribe(c1, "match-1")
	hub.Subscribe(c2, "match-1")

	hub.BroadcastToMatch("match-1", WSEvent{
		Type:    EventSnapshot,
		MatchID: "match-1",
		Data:    map[string]int{"tick": 600},
	})

	// c1 and c2 should receive, c3 should not
	select {
	case msg := <-c1.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != EventSnapshot {
			t.Errorf("expected snapshot, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Error("c1 did not receive broadcast")
	}

	select {
	case <-c2.send:
		// ok
	case <-time.After(time.Second):
		t.Error("c2 did not receive broadcast")
	}

	select {
	case <-c3.send:
		t.Error("c3 should not have received broadcast")
	default:
		// ok
	}
}

func TestHubBroadcastToUser(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("user-1")
	c2 := newTestConn("user-1") // same user, two connections
	c3 := newTestConn("user-2")

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)
	defer hub.Unregister(c3)

	hub.BroadcastToUser("user-1", WSEvent{
		Type:    EventResync,
		MatchID: "match-1",
		Data:    map[string]int{"tick": 120},
	})

	// Both c1 and c2 should receive (same user), c3 should not
	for _, c := range []*WSConn{c1, c2} {
		select {
		case <-c.send:
			// ok
		case <-time.After(time.Second):
			t.Errorf("connection for user-1 did not receive broadcast")
		}
	}

	select {
	case <-c3.send:
		t.Error("user-2 should not have received user-1's event")
	default:
		// ok
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)
	hub.Subscribe(c, "match-1")
	hub.Subscribe(c, "match-2")

	hub.Unregister(c)

	if hub.MatchSubscriberCount("match-1") != 0 {
		t.Errorf("expected 0 subscribers for match-1 after unregister")
	}
	if hub.MatchSubscriberCount("match-2") != 0 {
		t.Errorf("expected 0 subscribers for match-2 after unregister")
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	// Concurrently register, subscribe, broadcast, unregister
	for i := range 50 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c := newTestConn("user")
			hub.Register(c)
			hub.Subscribe(c, "match-1")
			hub.BroadcastToMatch("match-1", WSEvent{Type: "test", MatchID: "match-1"})
			hub.Unsubscribe(c, "match-1")
			hub.Unregister(c)
		}(i)
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastMatchEvent(t *testing.T) {
	hub := NewHub()
	c := newTestConn("user-1")
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, "match-1")

	hub.BroadcastMatchEvent("match-1", EventMatchFinished, map[string]int{"winner": 2})

	select {
	case msg := <-c.send:
		var event WSEvent
		json.Unmarshal(msg, &event)
		if event.Type != EventMatchFinished {
			t.Errorf("expected match_finished, got %s", event.Type)
		}
		if event.MatchID != "match-1" {
			t.Errorf("expected match-1, got %s", event.MatchID)
		}
	case <-time.After(time.Second):
		t.Error("did not receive broadcast")
	}
}

func TestWSEventSerialization(t *testing.T) {
	event := WSEvent{
		Type:    EventMatchStarted,
		MatchID: "match-42",
		Data:    map[string]any{"tick": 0, "seed": 12345},
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var parsed WSEvent
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Type != EventMatchStarted {
		t.Errorf("expected match_started, got %s", parsed.Type)
	}
	if parsed.MatchID != "match-42" {
		t.Errorf("expected match-42, got %s", parsed.MatchID)
	}
}

func TestClientMessageSerialization(t *testing.T) {
	raw := []byte(`{"action":"command","match_id":"match-1","tick":42,"issued_at":1000,"order":{"kind":"move","units":[3],"x":10,"y":20}}`)

	var parsed ClientMessage
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Action != "command" {
		t.Errorf("expected command, got %s", parsed.Action)
	}
	if parsed.MatchID != "match-1" {
		t.Errorf("expected match-1, got %s", parsed.MatchID)
	}
	if parsed.Tick != 42 {
		t.Errorf("expected tick 42, got %d", parsed.Tick)
	}
	if len(parsed.Order) == 0 {
		t.Error("expected raw order payload preserved")
	}
}

func TestHandleCommandRejectsSpectator(t *testing.T) {
	h := NewWSHandler(NewHub(), nil, nil)
	c := newTestConn("watcher-1")
	c.role = auth.RoleSpectator

	h.handleCommand(c, ClientMessage{Action: "command", MatchID: "match-1"})

	select {
	case raw := <-c.send:
		var ev WSEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != EventError {
			t.Errorf("expected %s event, got %s", EventError, ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("spectator command produced no rejection")
	}
}
