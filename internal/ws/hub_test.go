package ws

import (
	"encoding/json"
	"testing"
)

func TestHubBroadcastToUser(t *testing.T) {
	h := NewHub()
	a1 := NewClient("a1", 1)
	a2 := NewClient("a2", 1)
	b := NewClient("b", 2)
	for _, c := range []*Client{a1, a2, b} {
		h.Register(c)
	}
	if got := h.UserConnections(1); got != 2 {
		t.Fatalf("UserConnections(1) = %d, want 2", got)
	}

	h.BroadcastToUser(1, map[string]string{"type": "notification"})

	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.Send:
			var got map[string]string
			if err := json.Unmarshal(msg, &got); err != nil || got["type"] != "notification" {
				t.Errorf("client %s got %q", c.ID, msg)
			}
		default:
			t.Errorf("client %s received nothing", c.ID)
		}
	}
	select {
	case msg := <-b.Send:
		t.Errorf("user 2 received %q", msg)
	default:
	}
}

func TestClientCloseUnregisters(t *testing.T) {
	h := NewHub()
	c := NewClient("c", 7)
	h.Register(c)
	c.Close()
	c.Close()

	if got := h.ClientCount(); got != 0 {
		t.Errorf("ClientCount = %d, want 0", got)
	}
	// must not panic on a closed channel
	h.BroadcastToUser(7, "x")
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	c := &Client{ID: "slow", UserID: 3, Send: make(chan []byte, 1)}
	h.Register(c)
	h.BroadcastToUser(3, 1)
	h.BroadcastToUser(3, 2)
	if got := len(c.Send); got != 1 {
		t.Errorf("buffered = %d, want 1", got)
	}
}
