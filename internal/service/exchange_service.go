package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hive/internal/domain"
	"hive/internal/metrics"
	"hive/internal/models"
	"hive/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// ExchangeService drives the exchange state machine. Row locks are always
// taken in the order listing, exchange, time bank.
type ExchangeService struct {
	db        *gorm.DB
	exchanges *repository.ExchangeRepository
	listings  *repository.ListingRepository
	users     *repository.UserRepository
	txs       *repository.TransactionRepository
	timebank  *TimeBankService
	notifier  Notifier
	publisher ExchangePublisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewExchangeService(
	db *gorm.DB,
	exchanges *repository.ExchangeRepository,
	listings *repository.ListingRepository,
	users *repository.UserRepository,
	txs *repository.TransactionRepository,
	timebank *TimeBankService,
	notifier Notifier,
	publisher ExchangePublisher,
	log zerolog.Logger,
) *ExchangeService {
	return &ExchangeService{
		db:        db,
		exchanges: exchanges,
		listings:  listings,
		users:     users,
		txs:       txs,
		timebank:  timebank,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Create opens a PENDING exchange on a listing. For an offer the requester's
// hours are blocked immediately; a want is already backed by its owner's hold,
// so timeFrozen is 0.
func (s *ExchangeService) Create(ctx context.Context, requesterID, listingID uint) (*models.Exchange, int, error) {
	var (
		ex     *models.Exchange
		frozen int
		out    outbox
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requester, err := activeUser(s.users.WithTx(tx), requesterID, s.now())
		if err != nil {
			return err
		}
		listing, err := s.listings.WithTx(tx).LockByID(listingID)
		if err != nil {
			return isNotFound(err, "listing")
		}
		if listing.UserID == requesterID {
			return domain.ErrSelfAction.WithMessage("you cannot request your own listing")
		}
		if !listing.Browsable() {
			return domain.ErrListingClosed
		}

		exchanges := s.exchanges.WithTx(tx)
		if _, err := exchanges.FindOpen(listing.ID, requesterID); err == nil {
			return domain.ErrDuplicateExchange
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		open, err := exchanges.CountByListing(listing.ID, domain.NonTerminalExchangeStatuses...)
		if err != nil {
			return err
		}
		if int(open) >= listing.Capacity() {
			return domain.ErrListingFull
		}

		if !listing.IsWant() {
			if _, err := s.timebank.Ledger(tx).Block(requesterID, listing.TimeRequired); err != nil {
				return err
			}
			frozen = listing.TimeRequired
		}

		ex = &models.Exchange{
			ListingID:   listing.ID,
			ProviderID:  listing.UserID,
			RequesterID: requesterID,
			Status:      domain.ExchangeStatusPending,
			TimeSpent:   listing.TimeRequired,
		}
		if err := exchanges.Create(ex); err != nil {
			return fmt.Errorf("create exchange: %w", err)
		}
		ex.Listing = *listing

		out.add(listing.UserID, domain.NotifExchangeRequested, "New exchange request",
			fmt.Sprintf("%s requested \"%s\"", requester.DisplayName(), listing.Title),
			map[string]interface{}{"exchange_id": ex.ID, "listing_id": listing.ID})
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	metrics.ExchangeTransitions.WithLabelValues(domain.ExchangeStatusPending, "request").Inc()
	s.log.Info().Uint("exchange_id", ex.ID).Uint("listing_id", listingID).Uint("requester_id", requesterID).Int("time_frozen", frozen).Msg("exchange requested")
	out.flush(ctx, s.notifier, s.log)
	s.publish(ex)
	return ex, frozen, nil
}

// Accept moves a PENDING exchange to ACCEPTED. Provider only.
func (s *ExchangeService) Accept(ctx context.Context, userID, exchangeID uint) (*models.Exchange, error) {
	var out outbox
	ex, err := s.transition(ctx, exchangeID, func(tx *gorm.DB, e *models.Exchange) error {
		if e.ProviderID != userID {
			return domain.ErrNotAuthorized.WithMessage("only the provider can accept this exchange")
		}
		if e.Status != domain.ExchangeStatusPending {
			return domain.ErrInvalidTransition.WithMessage("only pending exchanges can be accepted (status %s)", e.Status)
		}
		now := s.now()
		e.Status = domain.ExchangeStatusAccepted
		e.AcceptedAt = &now
		out.add(e.RequesterID, domain.NotifExchangeAccepted, "Exchange accepted",
			fmt.Sprintf("Your request for \"%s\" was accepted", e.Listing.Title),
			map[string]interface{}{"exchange_id": e.ID})
		return s.exchanges.WithTx(tx).Update(e)
	})
	if err != nil {
		return nil, err
	}
	metrics.ExchangeTransitions.WithLabelValues(domain.ExchangeStatusAccepted, "accept").Inc()
	out.flush(ctx, s.notifier, s.log)
	s.publish(ex)
	return ex, nil
}

// Reject cancels a PENDING exchange on behalf of the provider and releases any hold it carried.
func (s *ExchangeService) Reject(ctx context.Context, userID, exchangeID uint) (*models.Exchange, error) {
	var out outbox
	ex, err := s.transition(ctx, exchangeID, func(tx *gorm.DB, e *models.Exchange) error {
		if e.ProviderID != userID {
			return domain.ErrNotAuthorized.WithMessage("only the provider can reject this exchange")
		}
		if e.Status != domain.ExchangeStatusPending {
			return domain.ErrInvalidTransition.WithMessage("only pending exchanges can be rejected (status %s)", e.Status)
		}
		if err := cancelExchange(s.timebank.Ledger(tx), s.exchanges.WithTx(tx), e, &e.Listing, "rejected by provider", s.now()); err != nil {
			return err
		}
		out.add(e.RequesterID, domain.NotifExchangeRejected, "Exchange declined",
			fmt.Sprintf("Your request for \"%s\" was declined", e.Listing.Title),
			map[string]interface{}{"exchange_id": e.ID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ExchangeTransitions.WithLabelValues(domain.ExchangeStatusCancelled, "reject").Inc()
	out.flush(ctx, s.notifier, s.log)
	s.publish(ex)
	return ex, nil
}

// Cancel withdraws the requester from a PENDING or ACCEPTED exchange. It is
// refused once the provider has confirmed completion.
func (s *ExchangeService) Cancel(ctx context.Context, userID, exchangeID uint) (*models.Exchange, error) {
	var out outbox
	ex, err := s.transition(ctx, exchangeID, func(tx *gorm.DB, e *models.Exchange) error {
		if e.RequesterID != userID {
			return domain.ErrNotAuthorized.WithMessage("only the requester can cancel this exchange")
		}
		if e.IsTerminal() {
			return domain.ErrInvalidTransition.WithMessage("exchange is already %s", e.Status)
		}
		if e.ProviderConfirmed {
			return domain.ErrInvalidTransition.WithMessage("the provider has already confirmed this exchange")
		}
		if err := cancelExchange(s.timebank.Ledger(tx), s.exchanges.WithTx(tx), e, &e.Listing, "cancelled by requester", s.now()); err != nil {
			return err
		}
		out.add(e.ProviderID, domain.NotifExchangeCancelled, "Exchange cancelled",
			fmt.Sprintf("The exchange for \"%s\" was cancelled", e.Listing.Title),
			map[string]interface{}{"exchange_id": e.ID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ExchangeTransitions.WithLabelValues(domain.ExchangeStatusCancelled, "cancel").Inc()
	out.flush(ctx, s.notifier, s.log)
	s.publish(ex)
	return ex, nil
}

// Confirm records one participant's confirmation of an ACCEPTED exchange. The
// second confirmation settles the hours and completes the exchange.
func (s *ExchangeService) Confirm(ctx context.Context, userID, exchangeID uint) (*models.Exchange, error) {
	var out outbox
	ex, err := s.transition(ctx, exchangeID, func(tx *gorm.DB, e *models.Exchange) error {
		if !e.IsParticipant(userID) {
			return domain.ErrNotAuthorized.WithMessage("you are not part of this exchange")
		}
		if e.Status != domain.ExchangeStatusAccepted {
			return domain.ErrInvalidTransition.WithMessage("only accepted exchanges can be confirmed (status %s)", e.Status)
		}
		if userID == e.ProviderID {
			if e.ProviderConfirmed {
				return domain.ErrAlreadyConfirmed
			}
			e.ProviderConfirmed = true
		} else {
			if e.RequesterConfirmed {
				return domain.ErrAlreadyConfirmed
			}
			e.RequesterConfirmed = true
		}

		if !(e.ProviderConfirmed && e.RequesterConfirmed) {
			out.add(e.Counterparty(userID), domain.NotifExchangeConfirmed, "Completion confirmed",
				fmt.Sprintf("Your partner confirmed \"%s\". Confirm too to complete the exchange.", e.Listing.Title),
				map[string]interface{}{"exchange_id": e.ID})
			return s.exchanges.WithTx(tx).Update(e)
		}
		if err := s.complete(tx, e); err != nil {
			return err
		}
		body := fmt.Sprintf("\"%s\" is complete: %d hours were transferred", e.Listing.Title, e.TimeSpent)
		for _, uid := range []uint{e.ProviderID, e.RequesterID} {
			out.add(uid, domain.NotifExchangeCompleted, "Exchange completed", body,
				map[string]interface{}{"exchange_id": e.ID, "hours": e.TimeSpent})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ex.Status == domain.ExchangeStatusCompleted {
		metrics.ExchangeTransitions.WithLabelValues(domain.ExchangeStatusCompleted, "confirm").Inc()
		s.log.Info().Uint("exchange_id", ex.ID).Int("hours", ex.TimeSpent).Msg("exchange completed")
	}
	out.flush(ctx, s.notifier, s.log)
	s.publish(ex)
	return ex, nil
}

func (s *ExchangeService) publish(e *models.Exchange) {
	if s.publisher != nil {
		s.publisher.PublishExchange(e)
	}
}

// complete settles a doubly confirmed exchange. For an offer the requester
// pays from the hold taken at request time; for a want the owner pays from the
// listing's hold, and whatever the hold cannot cover must be available.
func (s *ExchangeService) complete(tx *gorm.DB, e *models.Exchange) error {
	l := &e.Listing
	payer, payee, release := e.RequesterID, e.ProviderID, e.TimeSpent
	if l.IsWant() {
		payer, payee = e.ProviderID, e.RequesterID
		release = e.TimeSpent
		if l.BlockedHours < release {
			release = l.BlockedHours
		}
		l.BlockedHours -= release
	}
	ledger := s.timebank.Ledger(tx)
	if err := ledger.Settle(payer, payee, e.TimeSpent, release); err != nil {
		return err
	}

	created, err := s.txs.WithTx(tx).CreateOnce(&models.TimeBankTransaction{
		FromUserID:      payer,
		ToUserID:        payee,
		ExchangeID:      e.ID,
		TimeAmount:      e.TimeSpent,
		TransactionType: domain.TransactionTypeSpend,
		Description:     fmt.Sprintf("Exchange #%d: %s", e.ID, l.Title),
	})
	if err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	if !created {
		return domain.ErrInvalidTransition.WithMessage("exchange %d was already settled", e.ID)
	}

	now := s.now()
	e.Status = domain.ExchangeStatusCompleted
	e.CompletedAt = &now
	exchanges := s.exchanges.WithTx(tx)
	if err := exchanges.Update(e); err != nil {
		return err
	}

	completed, err := exchanges.CountByListing(l.ID, domain.ExchangeStatusCompleted)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"blocked_hours": l.BlockedHours}
	if int(completed) >= l.Capacity() {
		l.Status = domain.ListingStatusCompleted
		updates["status"] = l.Status
		if l.IsWant() && l.BlockedHours > 0 {
			if _, err := ledger.Unblock(l.UserID, l.BlockedHours); err != nil {
				return err
			}
			l.BlockedHours = 0
			updates["blocked_hours"] = 0
		}
	}
	return s.listings.WithTx(tx).UpdateFields(l.ID, updates)
}

// ProposeDateTime lets the requester suggest when the exchange takes place.
func (s *ExchangeService) ProposeDateTime(ctx context.Context, userID, exchangeID uint, date *time.Time, clock string) (*models.Exchange, error) {
	if date == nil {
		return nil, domain.ErrValidation.WithMessage("date is required")
	}
	if err := notInPast(*date, s.now()); err != nil {
		return nil, err
	}
	if clock != "" {
		if _, err := time.Parse("15:04", clock); err != nil {
			return nil, domain.ErrValidation.WithMessage("time must be HH:MM")
		}
	}
	var out outbox
	ex, err := s.transition(ctx, exchangeID, func(tx *gorm.DB, e *models.Exchange) error {
		if e.RequesterID != userID {
			return domain.ErrNotAuthorized.WithMessage("only the requester can propose a date")
		}
		if e.IsTerminal() {
			return domain.ErrInvalidTransition.WithMessage("exchange is already %s", e.Status)
		}
		e.ProposedDate = date
		e.ProposedTime = clock
		out.add(e.ProviderID, domain.NotifDateProposed, "New date proposed",
			fmt.Sprintf("A date was proposed for \"%s\": %s %s", e.Listing.Title, date.Format("2006-01-02"), clock),
			map[string]interface{}{"exchange_id": e.ID})
		return s.exchanges.WithTx(tx).Update(e)
	})
	if err != nil {
		return nil, err
	}
	out.flush(ctx, s.notifier, s.log)
	s.publish(ex)
	return ex, nil
}

// Get returns the exchange if the viewer takes part in it or is an admin.
func (s *ExchangeService) Get(ctx context.Context, viewerID, exchangeID uint, isAdmin bool) (*models.Exchange, error) {
	e, err := s.exchanges.WithTx(s.db.WithContext(ctx)).GetByID(exchangeID)
	if err != nil {
		return nil, isNotFound(err, "exchange")
	}
	if !isAdmin && !e.IsParticipant(viewerID) {
		return nil, domain.ErrNotAuthorized.WithMessage("you are not part of this exchange")
	}
	return e, nil
}

func (s *ExchangeService) ListMine(ctx context.Context, userID uint, status string, limit, offset int) ([]models.Exchange, error) {
	return s.exchanges.WithTx(s.db.WithContext(ctx)).ListByUser(userID, status, limit, offset)
}

// ListForListing returns every exchange on a listing. Owner only.
func (s *ExchangeService) ListForListing(ctx context.Context, ownerID, listingID uint) ([]models.Exchange, error) {
	db := s.db.WithContext(ctx)
	l, err := s.listings.WithTx(db).GetByID(listingID)
	if err != nil {
		return nil, isNotFound(err, "listing")
	}
	if l.UserID != ownerID {
		return nil, domain.ErrNotAuthorized.WithMessage("only the owner can see requests for this listing")
	}
	return s.exchanges.WithTx(db).ListByListing(listingID)
}

// MyExchangeForListing returns the caller's most recent exchange on the listing.
func (s *ExchangeService) MyExchangeForListing(ctx context.Context, userID, listingID uint) (*models.Exchange, error) {
	e, err := s.exchanges.WithTx(s.db.WithContext(ctx)).LatestByListingAndRequester(listingID, userID)
	if err != nil {
		return nil, isNotFound(err, "exchange")
	}
	return e, nil
}

// transition runs fn on the locked exchange inside a transaction and returns
// the exchange as fn left it.
func (s *ExchangeService) transition(ctx context.Context, exchangeID uint, fn func(tx *gorm.DB, e *models.Exchange) error) (*models.Exchange, error) {
	var ex *models.Exchange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := lockExchange(tx, s.listings, s.exchanges, exchangeID)
		if err != nil {
			return err
		}
		if err := fn(tx, e); err != nil {
			return err
		}
		ex = e
		return nil
	})
	return ex, err
}

// lockExchange locks the exchange's listing and then the exchange itself.
func lockExchange(tx *gorm.DB, listings *repository.ListingRepository, exchanges *repository.ExchangeRepository, exchangeID uint) (*models.Exchange, error) {
	var head models.Exchange
	if err := tx.Select("id", "listing_id").First(&head, exchangeID).Error; err != nil {
		return nil, isNotFound(err, "exchange")
	}
	listing, err := listings.WithTx(tx).LockByIDWithDeleted(head.ListingID)
	if err != nil {
		return nil, isNotFound(err, "listing")
	}
	e, err := exchanges.WithTx(tx).LockByID(exchangeID)
	if err != nil {
		return nil, isNotFound(err, "exchange")
	}
	e.Listing = *listing
	return e, nil
}

// cancelExchange moves an open exchange to CANCELLED and returns the hold it
// carried. Only offer exchanges hold hours of their own (the requester's); a
// want exchange leaves the owner's listing hold in place.
func cancelExchange(ledger *Ledger, exchanges *repository.ExchangeRepository, e *models.Exchange, l *models.Listing, reason string, now time.Time) error {
	if !l.IsWant() {
		if _, err := ledger.Unblock(e.RequesterID, e.TimeSpent); err != nil {
			return err
		}
	}
	e.Status = domain.ExchangeStatusCancelled
	e.CancelledAt = &now
	e.CancelReason = reason
	return exchanges.Update(e)
}

// activeUser loads the acting user and rejects banned accounts.
func activeUser(users *repository.UserRepository, id uint, now time.Time) (*models.User, error) {
	u, err := users.GetByID(id)
	if err != nil {
		return nil, isNotFound(err, "user")
	}
	if u.Banned(now) {
		return nil, domain.ErrUserBanned
	}
	return u, nil
}

// notInPast accepts any time on today's date or later.
func notInPast(t, now time.Time) error {
	y, m, d := now.In(t.Location()).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if t.Before(today) {
		return domain.ErrPastDate
	}
	return nil
}
