package service

import (
	"testing"

	"hive/internal/domain"
	"hive/internal/models"
	"hive/internal/repository"
	"hive/pkg/logger"

	"gorm.io/gorm"
)

func TestBalanceCreatesAccountWithGrant(t *testing.T) {
	f := newFixture(t)
	svc := NewTimeBankService(f.db, repository.NewTimeBankRepository(f.db), f.txRepo, 5, logger.Nop())
	id := f.user("newcomer", 0)

	u := &models.User{Email: "fresh@hive.test", Role: domain.RoleUser}
	if err := f.users.Create(u); err != nil {
		t.Fatal(err)
	}
	fresh := u.ID

	tb, err := svc.Balance(f.ctx, fresh)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if tb.Amount != 5 || tb.AvailableAmount != 5 || tb.BlockedAmount != 0 {
		t.Errorf("fresh account = %d/%d/%d, want 5/5/0", tb.Amount, tb.AvailableAmount, tb.BlockedAmount)
	}
	again, err := svc.Balance(f.ctx, fresh)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != tb.ID || again.Amount != 5 {
		t.Errorf("second Balance = id %d amount %d, want id %d amount 5", again.ID, again.Amount, tb.ID)
	}

	old, err := svc.Balance(f.ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if old.Amount != 0 {
		t.Errorf("existing account amount = %d, want 0 (grant only on creation)", old.Amount)
	}
}

func TestAddCreditRejectsNonPositive(t *testing.T) {
	f := newFixture(t)
	id := f.user("u", 0)
	for _, h := range []int{0, -3} {
		_, err := f.timebank.AddCredit(f.ctx, id, h)
		wantErr(t, err, domain.ErrValidation)
	}
	f.assertBalance(id, 0, 0)
}

func TestLedgerUnblock(t *testing.T) {
	f := newFixture(t)
	id := f.user("u", 5)

	tests := []struct {
		name        string
		block       int
		unblock     int
		wantOK      bool
		wantAvail   int
		wantBlocked int
	}{
		{"nothing blocked", 0, 2, false, 5, 0},
		{"exact", 3, 3, true, 5, 0},
		{"partial", 3, 1, true, 3, 2},
		{"clamped", 2, 4, true, 5, 0},
		{"zero hours", 2, 0, false, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.db.Transaction(func(tx *gorm.DB) error {
				ledger := f.timebank.Ledger(tx)
				if tt.block > 0 {
					if _, err := ledger.Block(id, tt.block); err != nil {
						return err
					}
				}
				ok, err := ledger.Unblock(id, tt.unblock)
				if err != nil {
					return err
				}
				if ok != tt.wantOK {
					t.Errorf("Unblock(%d) = %v, want %v", tt.unblock, ok, tt.wantOK)
				}
				return nil
			})
			if err != nil {
				t.Fatal(err)
			}
			f.assertBalance(id, tt.wantAvail, tt.wantBlocked)

			// return to 5 available for the next case
			if err := f.db.Transaction(func(tx *gorm.DB) error {
				_, err := f.timebank.Ledger(tx).Unblock(id, 100)
				return err
			}); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestLedgerSpendFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	payer := f.user("payer", 2)
	payee := f.user("payee", 0)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.timebank.Ledger(tx).Settle(payer, payee, 3, 0)
	})
	wantErr(t, err, domain.ErrInsufficientCredit)
	f.assertBalance(payer, 2, 0)
	f.assertBalance(payee, 0, 0)

	err = f.db.Transaction(func(tx *gorm.DB) error {
		return f.timebank.Ledger(tx).Settle(payer, payee, 2, 0)
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	f.assertBalance(payer, 0, 0)
	f.assertBalance(payee, 2, 0)
}
