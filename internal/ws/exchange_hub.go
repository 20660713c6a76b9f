package ws

import (
	"encoding/json"
	"sync"
	"time"

	"hive/internal/models"
)

const (
	MessageExchangeState  = "exchange_state"
	MessageExchangeUpdate = "exchange_update"
)

// ExchangeState is the view of an exchange streamed to its participants.
type ExchangeState struct {
	ID                 uint       `json:"id"`
	ListingID          uint       `json:"listing_id"`
	ProviderID         uint       `json:"provider_id"`
	RequesterID        uint       `json:"requester_id"`
	Status             string     `json:"status"`
	TimeSpent          int        `json:"time_spent"`
	ProposedDate       *time.Time `json:"proposed_date"`
	ProposedTime       string     `json:"proposed_time"`
	ProviderConfirmed  bool       `json:"provider_confirmed"`
	RequesterConfirmed bool       `json:"requester_confirmed"`
	CompletedAt        *time.Time `json:"completed_at"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	CancelReason       string     `json:"cancel_reason,omitempty"`
}

func StateOf(e *models.Exchange) ExchangeState {
	return ExchangeState{
		ID:                 e.ID,
		ListingID:          e.ListingID,
		ProviderID:         e.ProviderID,
		RequesterID:        e.RequesterID,
		Status:             e.Status,
		TimeSpent:          e.TimeSpent,
		ProposedDate:       e.ProposedDate,
		ProposedTime:       e.ProposedTime,
		ProviderConfirmed:  e.ProviderConfirmed,
		RequesterConfirmed: e.RequesterConfirmed,
		CompletedAt:        e.CompletedAt,
		CancelledAt:        e.CancelledAt,
		CancelReason:       e.CancelReason,
	}
}

// ExchangeMessage is one frame on an exchange stream.
type ExchangeMessage struct {
	Type string        `json:"type"`
	Data ExchangeState `json:"data"`
}

// ExchangeRoom holds the live connections watching one exchange.
type ExchangeRoom struct {
	ExchangeID uint
	clients    map[*Client]struct{}
	mu         sync.RWMutex
}

func (r *ExchangeRoom) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// broadcast sends under the read lock; a client that left can no longer be
// reached, so its Send channel is safe to close after Leave.
func (r *ExchangeRoom) broadcast(data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// ExchangeHub keeps one room per exchange id. Rooms exist only while someone
// is connected.
type ExchangeHub struct {
	mu    sync.Mutex
	rooms map[uint]*ExchangeRoom
}

func NewExchangeHub() *ExchangeHub {
	return &ExchangeHub{rooms: make(map[uint]*ExchangeRoom)}
}

func (h *ExchangeHub) Join(exchangeID uint, c *Client) *ExchangeRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[exchangeID]
	if !ok {
		r = &ExchangeRoom{ExchangeID: exchangeID, clients: make(map[*Client]struct{})}
		h.rooms[exchangeID] = r
	}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	return r
}

func (h *ExchangeHub) Leave(exchangeID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[exchangeID]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.clients, c)
	empty := len(r.clients) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, exchangeID)
	}
}

func (h *ExchangeHub) Room(exchangeID uint) *ExchangeRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[exchangeID]
}

func (h *ExchangeHub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// PublishExchange pushes an exchange_update frame to everyone watching e.
func (h *ExchangeHub) PublishExchange(e *models.Exchange) {
	r := h.Room(e.ID)
	if r == nil {
		return
	}
	data, err := json.Marshal(ExchangeMessage{Type: MessageExchangeUpdate, Data: StateOf(e)})
	if err != nil {
		return
	}
	r.broadcast(data)
}
