package ws

import (
	"encoding/json"
	"testing"

	"hive/internal/models"
)

func TestExchangeHubPublish(t *testing.T) {
	h := NewExchangeHub()
	a := NewClient("a", 1)
	b := NewClient("b", 2)
	other := NewClient("other", 3)
	h.Join(7, a)
	h.Join(7, b)
	h.Join(8, other)
	if got := h.Room(7).ClientCount(); got != 2 {
		t.Fatalf("room 7 clients = %d, want 2", got)
	}

	h.PublishExchange(&models.Exchange{ID: 7, ProviderID: 1, RequesterID: 2, Status: "ACCEPTED", ProviderConfirmed: true})

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Send:
			var msg ExchangeMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("client %s: %v", c.ID, err)
			}
			if msg.Type != MessageExchangeUpdate || msg.Data.ID != 7 || msg.Data.Status != "ACCEPTED" || !msg.Data.ProviderConfirmed {
				t.Errorf("client %s got %+v", c.ID, msg)
			}
		default:
			t.Errorf("client %s received nothing", c.ID)
		}
	}
	select {
	case raw := <-other.Send:
		t.Errorf("watcher of exchange 8 received %s", raw)
	default:
	}

	// nobody watching: no room is created
	h.PublishExchange(&models.Exchange{ID: 9})
	if h.Room(9) != nil {
		t.Error("publishing created a room for exchange 9")
	}
}

func TestExchangeHubLeaveDropsEmptyRoom(t *testing.T) {
	h := NewExchangeHub()
	a := NewClient("a", 1)
	b := NewClient("b", 2)
	h.Join(7, a)
	h.Join(7, b)

	h.Leave(7, a)
	a.Close()
	h.PublishExchange(&models.Exchange{ID: 7, Status: "CANCELLED"})
	if len(b.Send) != 1 {
		t.Errorf("remaining client queued %d frames, want 1", len(b.Send))
	}

	h.Leave(7, b)
	if h.RoomCount() != 0 {
		t.Errorf("rooms = %d, want 0 after everyone left", h.RoomCount())
	}
	h.Leave(7, b)
}
