package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"hive/config"
	"hive/internal/database"
	"hive/internal/domain"
	"hive/internal/models"
	"hive/internal/repository"
	"hive/pkg/logger"

	"gorm.io/gorm"
)

type sentNotification struct {
	userID uint
	typ    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, userID uint, notifType, _, _ string, _ map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{userID: userID, typ: notifType})
	return nil
}

func (r *recordingNotifier) count(userID uint, notifType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sent {
		if s.userID == userID && s.typ == notifType {
			n++
		}
	}
	return n
}

// recordingPublisher keeps every exchange state pushed to live watchers.
type recordingPublisher struct {
	mu        sync.Mutex
	published []models.Exchange
}

func (r *recordingPublisher) PublishExchange(e *models.Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, *e)
}

func (r *recordingPublisher) statuses(exchangeID uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.published {
		if e.ID == exchangeID {
			out = append(out, e.Status)
		}
	}
	return out
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB

	users     *repository.UserRepository
	listRepo  *repository.ListingRepository
	exRepo    *repository.ExchangeRepository
	txRepo    *repository.TransactionRepository
	reportRep *repository.ReportRepository

	timebank   *TimeBankService
	listings   *ListingService
	exchanges  *ExchangeService
	ratings    *RatingService
	reports    *ReportService
	moderation *ModerationService
	notes      *recordingNotifier
	stream     *recordingPublisher
}

// newFixture wires every service over a fresh sqlite file. Accounts start
// empty; tests fund them explicitly.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "hive.db"),
	}, logger.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := logger.Nop()
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        db,
		users:     repository.NewUserRepository(db),
		listRepo:  repository.NewListingRepository(db),
		exRepo:    repository.NewExchangeRepository(db),
		txRepo:    repository.NewTransactionRepository(db),
		reportRep: repository.NewReportRepository(db),
		notes:     &recordingNotifier{},
		stream:    &recordingPublisher{},
	}
	f.timebank = NewTimeBankService(db, repository.NewTimeBankRepository(db), f.txRepo, 0, log)
	f.listings = NewListingService(db, f.listRepo, f.exRepo, f.users, f.timebank, 20, log)
	f.exchanges = NewExchangeService(db, f.exRepo, f.listRepo, f.users, f.txRepo, f.timebank, f.notes, f.stream, log)
	f.ratings = NewRatingService(db, repository.NewRatingRepository(db), f.exRepo, f.users, f.notes, log)
	f.reports = NewReportService(db, f.reportRep, f.users, f.listRepo, f.exRepo, log)
	f.moderation = NewModerationService(db, f.users, f.listRepo, f.exRepo, f.reportRep,
		repository.NewAuditLogRepository(db), f.timebank, f.notes, f.stream, log)
	return f
}

// user creates a verified member holding credit hours.
func (f *fixture) user(name string, credit int) uint {
	f.t.Helper()
	now := time.Now()
	u := &models.User{
		Email:           name + "@hive.test",
		FirstName:       name,
		Role:            domain.RoleUser,
		EmailVerifiedAt: &now,
	}
	if err := f.users.Create(u); err != nil {
		f.t.Fatalf("create user %s: %v", name, err)
	}
	if credit > 0 {
		if _, err := f.timebank.AddCredit(f.ctx, u.ID, credit); err != nil {
			f.t.Fatalf("fund %s: %v", name, err)
		}
	} else if _, err := f.timebank.Balance(f.ctx, u.ID); err != nil {
		f.t.Fatalf("open account for %s: %v", name, err)
	}
	return u.ID
}

func (f *fixture) admin() uint {
	f.t.Helper()
	id := f.user("admin", 0)
	if err := f.users.UpdateFields(id, map[string]interface{}{"role": domain.RoleAdmin}); err != nil {
		f.t.Fatalf("promote admin: %v", err)
	}
	return id
}

func (f *fixture) offer(owner uint, hours int) *models.Listing {
	f.t.Helper()
	return f.listing(owner, ListingInput{Type: domain.ListingTypeOffer, Title: "Guitar lessons", TimeRequired: hours})
}

func (f *fixture) want(owner uint, hours int) *models.Listing {
	f.t.Helper()
	return f.listing(owner, ListingInput{Type: domain.ListingTypeWant, Title: "Help moving boxes", TimeRequired: hours})
}

func (f *fixture) listing(owner uint, in ListingInput) *models.Listing {
	f.t.Helper()
	l, err := f.listings.Create(f.ctx, owner, in)
	if err != nil {
		f.t.Fatalf("create listing: %v", err)
	}
	return l
}

func (f *fixture) request(requester, listingID uint) *models.Exchange {
	f.t.Helper()
	ex, _, err := f.exchanges.Create(f.ctx, requester, listingID)
	if err != nil {
		f.t.Fatalf("request listing %d: %v", listingID, err)
	}
	return ex
}

func (f *fixture) accept(provider, exchangeID uint) {
	f.t.Helper()
	if _, err := f.exchanges.Accept(f.ctx, provider, exchangeID); err != nil {
		f.t.Fatalf("accept %d: %v", exchangeID, err)
	}
}

// complete takes an exchange from PENDING through both confirmations.
func (f *fixture) complete(ex *models.Exchange) *models.Exchange {
	f.t.Helper()
	f.accept(ex.ProviderID, ex.ID)
	if _, err := f.exchanges.Confirm(f.ctx, ex.ProviderID, ex.ID); err != nil {
		f.t.Fatalf("provider confirm: %v", err)
	}
	done, err := f.exchanges.Confirm(f.ctx, ex.RequesterID, ex.ID)
	if err != nil {
		f.t.Fatalf("requester confirm: %v", err)
	}
	return done
}

// assertBalance checks available and blocked hours; amount must be their sum.
func (f *fixture) assertBalance(userID uint, available, blocked int) {
	f.t.Helper()
	tb, err := f.timebank.Balance(f.ctx, userID)
	if err != nil {
		f.t.Fatalf("balance %d: %v", userID, err)
	}
	if tb.AvailableAmount != available || tb.BlockedAmount != blocked {
		f.t.Errorf("user %d available/blocked = %d/%d, want %d/%d",
			userID, tb.AvailableAmount, tb.BlockedAmount, available, blocked)
	}
	if tb.Amount != tb.AvailableAmount+tb.BlockedAmount {
		f.t.Errorf("user %d amount = %d, want available+blocked = %d",
			userID, tb.Amount, tb.AvailableAmount+tb.BlockedAmount)
	}
}

func (f *fixture) exchange(id uint) *models.Exchange {
	f.t.Helper()
	e, err := f.exRepo.GetByID(id)
	if err != nil {
		f.t.Fatalf("load exchange %d: %v", id, err)
	}
	return e
}

func (f *fixture) reload(listingID uint) *models.Listing {
	f.t.Helper()
	var l models.Listing
	if err := f.db.Unscoped().First(&l, listingID).Error; err != nil {
		f.t.Fatalf("load listing %d: %v", listingID, err)
	}
	return &l
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("err = %v, want %v", err, target)
	}
}
