package service

import (
	"context"
	"fmt"

	"hive/internal/domain"
	"hive/internal/models"
	"hive/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type RatingInput struct {
	Communication  int
	Punctuality    int
	WouldRecommend bool
	Comment        string
}

// RatingService records post-completion ratings. Ratings never move credit.
type RatingService struct {
	db        *gorm.DB
	ratings   *repository.RatingRepository
	exchanges *repository.ExchangeRepository
	users     *repository.UserRepository
	notifier  Notifier
	log       zerolog.Logger
}

func NewRatingService(db *gorm.DB, ratings *repository.RatingRepository, exchanges *repository.ExchangeRepository, users *repository.UserRepository, notifier Notifier, log zerolog.Logger) *RatingService {
	return &RatingService{db: db, ratings: ratings, exchanges: exchanges, users: users, notifier: notifier, log: log}
}

// Rate lets a participant of a COMPLETED exchange rate the other party once
// and refreshes the ratee's profile aggregate.
func (s *RatingService) Rate(ctx context.Context, raterID, exchangeID uint, in RatingInput) (*models.ExchangeRating, error) {
	if in.Communication < 1 || in.Communication > 5 || in.Punctuality < 1 || in.Punctuality > 5 {
		return nil, domain.ErrValidation.WithMessage("communication and punctuality must be between 1 and 5")
	}
	var (
		rating *models.ExchangeRating
		out    outbox
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.exchanges.WithTx(tx).GetByID(exchangeID)
		if err != nil {
			return isNotFound(err, "exchange")
		}
		if !e.IsParticipant(raterID) {
			return domain.ErrNotAuthorized.WithMessage("you are not part of this exchange")
		}
		if e.Status != domain.ExchangeStatusCompleted {
			return domain.ErrInvalidTransition.WithMessage("only completed exchanges can be rated")
		}
		rateeID := e.Counterparty(raterID)

		ratings := s.ratings.WithTx(tx)
		exists, err := ratings.Exists(e.ID, raterID, rateeID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateRating
		}
		rating = &models.ExchangeRating{
			ExchangeID:     e.ID,
			RaterID:        raterID,
			RateeID:        rateeID,
			Communication:  in.Communication,
			Punctuality:    in.Punctuality,
			WouldRecommend: in.WouldRecommend,
			Comment:        in.Comment,
		}
		if err := ratings.Create(rating); err != nil {
			return fmt.Errorf("create rating: %w", err)
		}

		avg, count, err := ratings.AggregateForRatee(rateeID)
		if err != nil {
			return err
		}
		users := s.users.WithTx(tx)
		if _, err := users.GetOrCreateProfile(rateeID); err != nil {
			return err
		}
		if err := users.UpdateProfileRating(rateeID, avg, count); err != nil {
			return err
		}
		out.add(rateeID, domain.NotifRatingReceived, "New rating",
			fmt.Sprintf("You received a rating for \"%s\"", e.Listing.Title),
			map[string]interface{}{"exchange_id": e.ID, "score": rating.Score()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.flush(ctx, s.notifier, s.log)
	return rating, nil
}

func (s *RatingService) ListForExchange(ctx context.Context, viewerID, exchangeID uint) ([]models.ExchangeRating, error) {
	db := s.db.WithContext(ctx)
	e, err := s.exchanges.WithTx(db).GetByID(exchangeID)
	if err != nil {
		return nil, isNotFound(err, "exchange")
	}
	if !e.IsParticipant(viewerID) {
		return nil, domain.ErrNotAuthorized.WithMessage("you are not part of this exchange")
	}
	return s.ratings.WithTx(db).ListByExchange(exchangeID)
}
