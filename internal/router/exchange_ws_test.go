package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hive/internal/domain"
	"hive/internal/ws"

	"github.com/gorilla/websocket"
)

func TestExchangeStream(t *testing.T) {
	s := newTestServer(t)
	_, provider := s.member("provider", domain.RoleUser)
	_, requester := s.member("requester", domain.RoleUser)
	_, stranger := s.member("stranger", domain.RoleUser)

	var listing struct {
		ID uint `json:"id"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/listings", provider, map[string]interface{}{
		"type":          "offer",
		"title":         "Sourdough lesson",
		"time_required": 1,
	}), http.StatusCreated, &listing)
	var requested struct {
		ExchangeID uint `json:"exchange_id"`
	}
	s.expect(s.do(http.MethodPost, "/api/v1/exchanges", requester, map[string]interface{}{"listing_id": listing.ID}),
		http.StatusCreated, &requested)

	srv := httptest.NewServer(s.engine)
	defer srv.Close()
	streamURL := func(id uint, token string) string {
		return fmt.Sprintf("ws%s/ws/exchanges/%d?token=%s", strings.TrimPrefix(srv.URL, "http"), id, token)
	}

	tests := []struct {
		name   string
		id     uint
		token  string
		status int
	}{
		{"no token", requested.ExchangeID, "", http.StatusUnauthorized},
		{"outsider", requested.ExchangeID, stranger, http.StatusForbidden},
		{"unknown exchange", 9999, requester, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(streamURL(tt.id, tt.token), nil)
			if err == nil {
				conn.Close()
				t.Fatal("dial succeeded")
			}
			if resp == nil || resp.StatusCode != tt.status {
				t.Errorf("handshake response = %v, want status %d", resp, tt.status)
			}
		})
	}

	conn, _, err := websocket.DefaultDialer.Dial(streamURL(requested.ExchangeID, requester), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() ws.ExchangeMessage {
		t.Helper()
		var msg ws.ExchangeMessage
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != ws.MessageExchangeState || msg.Data.Status != domain.ExchangeStatusPending {
		t.Fatalf("first frame = %+v, want exchange_state PENDING", msg)
	}

	path := fmt.Sprintf("/api/v1/exchanges/%d", requested.ExchangeID)
	s.expect(s.do(http.MethodPost, path+"/accept", provider, nil), http.StatusOK, nil)
	if msg := read(); msg.Type != ws.MessageExchangeUpdate || msg.Data.Status != domain.ExchangeStatusAccepted {
		t.Fatalf("after accept = %+v, want exchange_update ACCEPTED", msg)
	}

	s.expect(s.do(http.MethodPost, path+"/confirm", provider, nil), http.StatusOK, nil)
	if msg := read(); !msg.Data.ProviderConfirmed || msg.Data.RequesterConfirmed {
		t.Errorf("after provider confirm = %+v", msg.Data)
	}
	s.expect(s.do(http.MethodPost, path+"/confirm", requester, nil), http.StatusOK, nil)
	if msg := read(); msg.Data.Status != domain.ExchangeStatusCompleted || msg.Data.CompletedAt == nil {
		t.Errorf("after completion = %+v, want COMPLETED with completed_at", msg.Data)
	}
}
