package models

import (
	"math/rand"
	"testing"
)

func account(available, blocked int) *TimeBank {
	return &TimeBank{
		Amount:          available + blocked,
		AvailableAmount: available,
		BlockedAmount:   blocked,
		TotalAmount:     available + blocked,
	}
}

func TestAddCredit(t *testing.T) {
	tb := account(2, 1)
	tb.AddCredit(3)
	if tb.Amount != 6 || tb.AvailableAmount != 5 || tb.BlockedAmount != 1 || tb.TotalAmount != 6 {
		t.Errorf("after AddCredit(3): %+v", tb)
	}
}

func TestSpendCredit(t *testing.T) {
	tests := []struct {
		name      string
		available int
		hours     int
		wantOK    bool
		wantAvail int
	}{
		{"exact", 3, 3, true, 0},
		{"partial", 5, 2, true, 3},
		{"one short", 2, 3, false, 2},
		{"empty", 0, 1, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := account(tt.available, 4)
			ok := tb.SpendCredit(tt.hours)
			if ok != tt.wantOK {
				t.Fatalf("SpendCredit(%d) = %v, want %v", tt.hours, ok, tt.wantOK)
			}
			if tb.AvailableAmount != tt.wantAvail {
				t.Errorf("available = %d, want %d", tb.AvailableAmount, tt.wantAvail)
			}
			if tb.BlockedAmount != 4 {
				t.Errorf("blocked = %d, want 4", tb.BlockedAmount)
			}
			if tb.TotalAmount != tt.available+4 {
				t.Errorf("total = %d, want %d (spend never lowers it)", tb.TotalAmount, tt.available+4)
			}
			if !tb.Consistent() {
				t.Errorf("inconsistent: %+v", tb)
			}
		})
	}
}

func TestBlockCredit(t *testing.T) {
	tests := []struct {
		name        string
		available   int
		hours       int
		wantOK      bool
		wantAvail   int
		wantBlocked int
	}{
		{"all", 3, 3, true, 0, 3},
		{"some", 5, 2, true, 3, 2},
		{"too much", 2, 3, false, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := account(tt.available, 0)
			ok := tb.BlockCredit(tt.hours)
			if ok != tt.wantOK {
				t.Fatalf("BlockCredit(%d) = %v, want %v", tt.hours, ok, tt.wantOK)
			}
			if tb.AvailableAmount != tt.wantAvail || tb.BlockedAmount != tt.wantBlocked {
				t.Errorf("available/blocked = %d/%d, want %d/%d", tb.AvailableAmount, tb.BlockedAmount, tt.wantAvail, tt.wantBlocked)
			}
			if tb.Amount != tt.available {
				t.Errorf("amount = %d, want %d (block keeps amount)", tb.Amount, tt.available)
			}
		})
	}
}

func TestUnblockCredit(t *testing.T) {
	tests := []struct {
		name         string
		blocked      int
		hours        int
		wantReleased int
		wantClamped  bool
		wantOK       bool
	}{
		{"exact", 3, 3, 3, false, true},
		{"partial", 5, 2, 2, false, true},
		{"clamped", 2, 5, 2, true, true},
		{"nothing blocked", 0, 2, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := account(1, tt.blocked)
			released, clamped, ok := tb.UnblockCredit(tt.hours)
			if released != tt.wantReleased || clamped != tt.wantClamped || ok != tt.wantOK {
				t.Fatalf("UnblockCredit(%d) = (%d, %v, %v), want (%d, %v, %v)",
					tt.hours, released, clamped, ok, tt.wantReleased, tt.wantClamped, tt.wantOK)
			}
			if tb.AvailableAmount != 1+tt.wantReleased {
				t.Errorf("available = %d, want %d", tb.AvailableAmount, 1+tt.wantReleased)
			}
			if !tb.Consistent() {
				t.Errorf("inconsistent: %+v", tb)
			}
		})
	}
}

// Any sequence of primitives keeps amount == available + blocked with both non-negative.
func TestPrimitivesKeepInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tb := account(5, 0)
	for i := 0; i < 5000; i++ {
		h := rng.Intn(6)
		switch rng.Intn(4) {
		case 0:
			tb.AddCredit(h)
		case 1:
			tb.SpendCredit(h)
		case 2:
			tb.BlockCredit(h)
		case 3:
			tb.UnblockCredit(h)
		}
		if !tb.Consistent() {
			t.Fatalf("step %d: invariant broken: %+v", i, tb)
		}
	}
}
