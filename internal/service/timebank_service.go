package service

import (
	"context"
	"errors"
	"fmt"

	"hive/internal/domain"
	"hive/internal/metrics"
	"hive/internal/models"
	"hive/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// TimeBankService owns every mutation of time-bank accounts.
type TimeBankService struct {
	db     *gorm.DB
	repo   *repository.TimeBankRepository
	txRepo *repository.TransactionRepository
	grant  int
	log    zerolog.Logger
}

func NewTimeBankService(db *gorm.DB, repo *repository.TimeBankRepository, txRepo *repository.TransactionRepository, initialGrant int, log zerolog.Logger) *TimeBankService {
	return &TimeBankService{db: db, repo: repo, txRepo: txRepo, grant: initialGrant, log: log}
}

// Ledger returns the account operations bound to tx. Every call locks the
// account row it touches, so callers must hold tx open until they are done.
func (s *TimeBankService) Ledger(tx *gorm.DB) *Ledger {
	return &Ledger{repo: s.repo.WithTx(tx), grant: s.grant, log: s.log}
}

// Balance returns the user's account, creating it with the starting grant on first access.
func (s *TimeBankService) Balance(ctx context.Context, userID uint) (*models.TimeBank, error) {
	tb, err := s.repo.WithTx(s.db.WithContext(ctx)).GetOrCreate(userID, s.grant)
	if err != nil {
		return nil, fmt.Errorf("load timebank: %w", err)
	}
	return tb, nil
}

// AddCredit grants hours to the user outside any exchange (admin tooling).
func (s *TimeBankService) AddCredit(ctx context.Context, userID uint, hours int) (*models.TimeBank, error) {
	if hours <= 0 {
		return nil, domain.ErrValidation.WithMessage("hours must be positive")
	}
	var tb *models.TimeBank
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tb, err = s.Ledger(tx).Add(userID, hours)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tb, nil
}

func (s *TimeBankService) Transactions(ctx context.Context, userID uint, limit, offset int) ([]models.TimeBankTransaction, error) {
	return s.txRepo.WithTx(s.db.WithContext(ctx)).ListByUserID(userID, limit, offset)
}

// Ledger performs the four account primitives under row locks inside one transaction.
type Ledger struct {
	repo  *repository.TimeBankRepository
	grant int
	log   zerolog.Logger
}

func (l *Ledger) lock(userID uint) (*models.TimeBank, error) {
	tb, err := l.repo.LockForUpdate(userID, l.grant)
	if err != nil {
		return nil, fmt.Errorf("lock timebank %d: %w", userID, err)
	}
	return tb, nil
}

func (l *Ledger) save(tb *models.TimeBank) error {
	if !tb.Consistent() {
		return fmt.Errorf("timebank %d: invariant violated (amount=%d available=%d blocked=%d)",
			tb.UserID, tb.Amount, tb.AvailableAmount, tb.BlockedAmount)
	}
	if err := l.repo.SaveBalances(tb); err != nil {
		return fmt.Errorf("save timebank %d: %w", tb.UserID, err)
	}
	return nil
}

func (l *Ledger) Add(userID uint, hours int) (*models.TimeBank, error) {
	tb, err := l.lock(userID)
	if err != nil {
		return nil, err
	}
	tb.AddCredit(hours)
	if err := l.save(tb); err != nil {
		return nil, err
	}
	metrics.LedgerOperations.WithLabelValues("add", "ok").Inc()
	metrics.LedgerHoursMoved.WithLabelValues("add").Add(float64(hours))
	return tb, nil
}

// Spend fails with ErrInsufficientCredit and no mutation when too little is available.
func (l *Ledger) Spend(userID uint, hours int) (*models.TimeBank, error) {
	tb, err := l.lock(userID)
	if err != nil {
		return nil, err
	}
	if !tb.SpendCredit(hours) {
		metrics.LedgerOperations.WithLabelValues("spend", "rejected").Inc()
		return nil, domain.ErrInsufficientCredit.WithMessage("insufficient time credit: %d hours available, %d required", tb.AvailableAmount, hours)
	}
	if err := l.save(tb); err != nil {
		return nil, err
	}
	metrics.LedgerOperations.WithLabelValues("spend", "ok").Inc()
	metrics.LedgerHoursMoved.WithLabelValues("spend").Add(float64(hours))
	return tb, nil
}

// Block fails with ErrInsufficientCredit and no mutation when too little is available.
func (l *Ledger) Block(userID uint, hours int) (*models.TimeBank, error) {
	tb, err := l.lock(userID)
	if err != nil {
		return nil, err
	}
	if !tb.BlockCredit(hours) {
		metrics.LedgerOperations.WithLabelValues("block", "rejected").Inc()
		return nil, domain.ErrInsufficientCredit.WithMessage("insufficient time credit: %d hours available, %d required", tb.AvailableAmount, hours)
	}
	if err := l.save(tb); err != nil {
		return nil, err
	}
	metrics.LedgerOperations.WithLabelValues("block", "ok").Inc()
	metrics.LedgerHoursMoved.WithLabelValues("block").Add(float64(hours))
	return tb, nil
}

// Unblock releases hours back to available. It reports false without mutating
// when nothing is blocked. When less than hours is blocked the remainder is
// released and the clamp is logged as a consistency anomaly.
func (l *Ledger) Unblock(userID uint, hours int) (bool, error) {
	if hours <= 0 {
		return false, nil
	}
	tb, err := l.lock(userID)
	if err != nil {
		return false, err
	}
	released, clamped, ok := tb.UnblockCredit(hours)
	if !ok {
		metrics.LedgerOperations.WithLabelValues("unblock", "rejected").Inc()
		return false, nil
	}
	if err := l.save(tb); err != nil {
		return false, err
	}
	if clamped {
		metrics.LedgerOperations.WithLabelValues("unblock", "clamped").Inc()
		metrics.ConsistencyAnomalies.Inc()
		l.log.Warn().
			Str("kind", string(domain.KindConsistencyAnomaly)).
			Str("code", domain.ErrUnblockClamped.Code).
			Uint("user_id", userID).
			Int("requested", hours).
			Int("released", released).
			Msg("unblock clamped to blocked amount")
	} else {
		metrics.LedgerOperations.WithLabelValues("unblock", "ok").Inc()
	}
	metrics.LedgerHoursMoved.WithLabelValues("unblock").Add(float64(released))
	return true, nil
}

// Settle moves hours from payer to payee: release is first unblocked on the
// payer, then hours are spent from the payer and added to the payee. Both
// accounts are locked in ascending user id order.
func (l *Ledger) Settle(payerID, payeeID uint, hours, release int) error {
	first, second := payerID, payeeID
	if second < first {
		first, second = second, first
	}
	if _, err := l.lock(first); err != nil {
		return err
	}
	if _, err := l.lock(second); err != nil {
		return err
	}
	if release > 0 {
		if _, err := l.Unblock(payerID, release); err != nil {
			return err
		}
	}
	if _, err := l.Spend(payerID, hours); err != nil {
		return err
	}
	_, err := l.Add(payeeID, hours)
	return err
}

// isNotFound maps a missing row to a domain NotFound naming what; other errors are wrapped.
func isNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFoundf(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
