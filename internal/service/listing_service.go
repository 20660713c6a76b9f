package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hive/internal/domain"
	"hive/internal/models"
	"hive/internal/repository"
	"hive/pkg/proximity"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ListingInput struct {
	Type         string
	Title        string
	Description  string
	TimeRequired int
	ActivityType string
	PersonCount  int
	OfferType    string
	LocationType string
	Location     string
	Latitude     *float64
	Longitude    *float64
	Tags         []string
	Date         *time.Time
	ScheduledAt  *time.Time
}

// ListingPatch holds the fields an edit may change; nil means unchanged.
type ListingPatch struct {
	Title        *string
	Description  *string
	TimeRequired *int
	ActivityType *string
	PersonCount  *int
	OfferType    *string
	LocationType *string
	Location     *string
	Latitude     *float64
	Longitude    *float64
	Tags         []string
	Date         *time.Time
	ScheduledAt  *time.Time
}

type BrowseQuery struct {
	Type      string
	Tag       string
	Search    string
	Latitude  *float64
	Longitude *float64
	Limit     int
	Offset    int
}

type BrowseItem struct {
	Listing    models.Listing
	DistanceKm *float64
	Proximity  string
}

type ListingService struct {
	db        *gorm.DB
	listings  *repository.ListingRepository
	exchanges *repository.ExchangeRepository
	users     *repository.UserRepository
	timebank  *TimeBankService
	radiusKm  float64
	log       zerolog.Logger
	now       func() time.Time
}

func NewListingService(db *gorm.DB, listings *repository.ListingRepository, exchanges *repository.ExchangeRepository, users *repository.UserRepository, timebank *TimeBankService, radiusKm float64, log zerolog.Logger) *ListingService {
	return &ListingService{
		db:        db,
		listings:  listings,
		exchanges: exchanges,
		users:     users,
		timebank:  timebank,
		radiusKm:  radiusKm,
		log:       log,
		now:       time.Now,
	}
}

// Create publishes a listing. A want blocks its hours on the owner's account
// before it is stored; if that fails nothing is persisted.
func (s *ListingService) Create(ctx context.Context, ownerID uint, in ListingInput) (*models.Listing, error) {
	l := &models.Listing{
		UserID:       ownerID,
		Type:         in.Type,
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		TimeRequired: in.TimeRequired,
		ActivityType: defaultString(in.ActivityType, domain.ActivityOneToOne),
		PersonCount:  in.PersonCount,
		OfferType:    defaultString(in.OfferType, domain.OfferTypeOneTime),
		LocationType: defaultString(in.LocationType, domain.LocationTypeMyLocation),
		Location:     in.Location,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Tags:         in.Tags,
		Date:         in.Date,
		ScheduledAt:  in.ScheduledAt,
		Status:       domain.ListingStatusActive,
	}
	if l.PersonCount <= 0 {
		l.PersonCount = 1
	}
	if err := s.validate(l); err != nil {
		return nil, err
	}
	if err := s.checkDates(l.Date, l.ScheduledAt); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := activeUser(s.users.WithTx(tx), ownerID, s.now())
		if err != nil {
			return err
		}
		if !owner.IsVerified() {
			return domain.ErrNotVerified
		}
		if l.IsWant() {
			if _, err := s.timebank.Ledger(tx).Block(ownerID, l.WantHold()); err != nil {
				return err
			}
			l.BlockedHours = l.WantHold()
		}
		if err := s.listings.WithTx(tx).Create(l); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("listing_id", l.ID).Str("type", l.Type).Int("hours", l.TimeRequired).Msg("listing created")
	return l, nil
}

// Update edits an active listing that has no open or completed exchanges.
// Changing a want's hours or group size blocks or releases the difference
// against its current hold.
func (s *ListingService) Update(ctx context.Context, ownerID, listingID uint, p ListingPatch) (*models.Listing, error) {
	if err := s.checkDates(p.Date, p.ScheduledAt); err != nil {
		return nil, err
	}
	var l *models.Listing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		l, err = s.lockEditable(tx, ownerID, listingID)
		if err != nil {
			return err
		}
		// INACTIVE listings were closed by a ban and their hold already released.
		if l.Status != domain.ListingStatusActive {
			return domain.ErrListingClosed.WithMessage("listing is %s", strings.ToLower(l.Status))
		}
		applyPatch(l, p)
		if err := s.validate(l); err != nil {
			return err
		}
		if hold := l.WantHold(); l.IsWant() && hold != l.BlockedHours {
			ledger := s.timebank.Ledger(tx)
			if delta := hold - l.BlockedHours; delta > 0 {
				if _, err := ledger.Block(ownerID, delta); err != nil {
					return err
				}
			} else if _, err := ledger.Unblock(ownerID, -delta); err != nil {
				return err
			}
			l.BlockedHours = hold
		}
		return s.listings.WithTx(tx).Update(l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Delete releases a want's hold and soft-deletes the listing. Same
// preconditions as Update.
func (s *ListingService) Delete(ctx context.Context, ownerID, listingID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.lockEditable(tx, ownerID, listingID)
		if err != nil {
			return err
		}
		if err := releaseWantHold(s.timebank.Ledger(tx), s.listings.WithTx(tx), l); err != nil {
			return err
		}
		return s.listings.WithTx(tx).Delete(l.ID)
	})
}

func (s *ListingService) lockEditable(tx *gorm.DB, ownerID, listingID uint) (*models.Listing, error) {
	l, err := s.listings.WithTx(tx).LockByID(listingID)
	if err != nil {
		return nil, isNotFound(err, "listing")
	}
	if l.UserID != ownerID {
		return nil, domain.ErrNotAuthorized.WithMessage("only the owner can change this listing")
	}
	if l.IsFlagged {
		return nil, domain.ErrListingClosed.WithMessage("listing was removed by moderation")
	}
	n, err := s.exchanges.WithTx(tx).CountByListing(l.ID,
		domain.ExchangeStatusPending, domain.ExchangeStatusAccepted, domain.ExchangeStatusCompleted)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, domain.ErrListingLocked
	}
	return l, nil
}

// Get returns a listing. Listings hidden from browse are only visible to the
// owner, participants of its exchanges and admins.
func (s *ListingService) Get(ctx context.Context, viewerID, listingID uint, isAdmin bool) (*models.Listing, error) {
	db := s.db.WithContext(ctx)
	l, err := s.listings.WithTx(db).GetByID(listingID)
	if err != nil {
		return nil, isNotFound(err, "listing")
	}
	if l.Browsable() || isAdmin || l.UserID == viewerID {
		return l, nil
	}
	if viewerID != 0 {
		if _, err := s.exchanges.WithTx(db).LatestByListingAndRequester(listingID, viewerID); err == nil {
			return l, nil
		}
	}
	return nil, domain.NotFoundf("listing")
}

func (s *ListingService) ListMine(ctx context.Context, ownerID uint, limit, offset int) ([]models.Listing, error) {
	return s.listings.WithTx(s.db.WithContext(ctx)).ListByUserID(ownerID, limit, offset)
}

// Browse lists public listings. With a point, located listings are limited to
// the configured radius and sorted nearest first; remote ones always appear.
func (s *ListingService) Browse(ctx context.Context, q BrowseQuery) ([]BrowseItem, error) {
	f := repository.BrowseFilters{
		Type:   q.Type,
		Tag:    q.Tag,
		Search: q.Search,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Latitude != nil && q.Longitude != nil {
		f.HasPoint = true
		f.Latitude = *q.Latitude
		f.Longitude = *q.Longitude
		f.RadiusKm = s.radiusKm
	}
	rows, err := s.listings.WithTx(s.db.WithContext(ctx)).Browse(f)
	if err != nil {
		return nil, err
	}
	items := make([]BrowseItem, 0, len(rows))
	for _, r := range rows {
		item := BrowseItem{Listing: r.Listing, DistanceKm: r.DistanceKm}
		if f.HasPoint {
			item.Proximity = proximity.For(r.DistanceKm, s.radiusKm)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *ListingService) validate(l *models.Listing) error {
	switch {
	case l.Type != domain.ListingTypeOffer && l.Type != domain.ListingTypeWant:
		return domain.ErrValidation.WithMessage("type must be offer or want")
	case l.Title == "":
		return domain.ErrValidation.WithMessage("title is required")
	case l.TimeRequired < 1:
		return domain.ErrValidation.WithMessage("time_required must be at least 1 hour")
	case l.ActivityType != domain.ActivityOneToOne && l.ActivityType != domain.ActivityGroup:
		return domain.ErrValidation.WithMessage("activity_type must be 1to1 or group")
	case l.ActivityType == domain.ActivityGroup && l.PersonCount < 2:
		return domain.ErrValidation.WithMessage("group listings need person_count of at least 2")
	case l.OfferType != domain.OfferTypeOneTime && l.OfferType != domain.OfferTypeRecurring:
		return domain.ErrValidation.WithMessage("offer_type must be 1time or recurring")
	case l.LocationType != domain.LocationTypeMyLocation && l.LocationType != domain.LocationTypeRemote:
		return domain.ErrValidation.WithMessage("location_type must be myLocation or remote")
	case (l.Latitude == nil) != (l.Longitude == nil):
		return domain.ErrValidation.WithMessage("latitude and longitude must be given together")
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90 || *l.Longitude < -180 || *l.Longitude > 180) {
		return domain.ErrValidation.WithMessage("coordinates out of range")
	}
	return nil
}

func (s *ListingService) checkDates(dates ...*time.Time) error {
	now := s.now()
	for _, t := range dates {
		if t != nil {
			if err := notInPast(*t, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyPatch(l *models.Listing, p ListingPatch) {
	if p.Title != nil {
		l.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.TimeRequired != nil {
		l.TimeRequired = *p.TimeRequired
	}
	if p.ActivityType != nil {
		l.ActivityType = *p.ActivityType
	}
	if p.PersonCount != nil {
		l.PersonCount = *p.PersonCount
	}
	if p.OfferType != nil {
		l.OfferType = *p.OfferType
	}
	if p.LocationType != nil {
		l.LocationType = *p.LocationType
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Latitude != nil {
		l.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		l.Longitude = p.Longitude
	}
	if p.Tags != nil {
		l.Tags = p.Tags
	}
	if p.Date != nil {
		l.Date = p.Date
	}
	if p.ScheduledAt != nil {
		l.ScheduledAt = p.ScheduledAt
	}
}

// releaseWantHold returns a want's remaining hold to its owner exactly once.
func releaseWantHold(ledger *Ledger, listings *repository.ListingRepository, l *models.Listing) error {
	if !l.IsWant() || l.BlockedHours == 0 {
		return nil
	}
	if _, err := ledger.Unblock(l.UserID, l.BlockedHours); err != nil {
		return err
	}
	l.BlockedHours = 0
	return listings.UpdateFields(l.ID, map[string]interface{}{"blocked_hours": 0})
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
