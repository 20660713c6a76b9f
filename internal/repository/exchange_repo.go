package repository

import (
	"hive/internal/domain"
	"hive/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExchangeRepository struct {
	db *gorm.DB
}

func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func (r *ExchangeRepository) WithTx(tx *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: tx}
}

func (r *ExchangeRepository) Create(e *models.Exchange) error {
	return r.db.Omit(clause.Associations).Create(e).Error
}

func (r *ExchangeRepository) GetByID(id uint) (*models.Exchange, error) {
	var e models.Exchange
	err := r.db.Preload("Listing").Preload("Provider").Preload("Requester").First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LockByID reads the exchange row with SELECT ... FOR UPDATE and then loads its
// listing without a lock. Must run inside a transaction.
func (r *ExchangeRepository) LockByID(id uint) (*models.Exchange, error) {
	var e models.Exchange
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&e, id).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.Unscoped().First(&e.Listing, e.ListingID).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExchangeRepository) Update(e *models.Exchange) error {
	return r.db.Omit(clause.Associations).Save(e).Error
}

// FindOpen returns the requester's PENDING or ACCEPTED exchange on the listing, if any.
func (r *ExchangeRepository) FindOpen(listingID, requesterID uint) (*models.Exchange, error) {
	var e models.Exchange
	err := r.db.Where("listing_id = ? AND requester_id = ? AND status IN ?", listingID, requesterID, domain.NonTerminalExchangeStatuses).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExchangeRepository) CountByListing(listingID uint, statuses ...string) (int64, error) {
	var c int64
	err := r.db.Model(&models.Exchange{}).Where("listing_id = ? AND status IN ?", listingID, statuses).Count(&c).Error
	return c, err
}

func (r *ExchangeRepository) CountByStatus(status string) (int64, error) {
	var c int64
	err := r.db.Model(&models.Exchange{}).Where("status = ?", status).Count(&c).Error
	return c, err
}

func (r *ExchangeRepository) ListByListing(listingID uint) ([]models.Exchange, error) {
	var list []models.Exchange
	err := r.db.Where("listing_id = ?", listingID).Preload("Requester").Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

// LatestByListingAndRequester returns the requester's most recent exchange on the listing.
func (r *ExchangeRepository) LatestByListingAndRequester(listingID, requesterID uint) (*models.Exchange, error) {
	var e models.Exchange
	err := r.db.Where("listing_id = ? AND requester_id = ?", listingID, requesterID).
		Preload("Listing").Preload("Provider").Preload("Requester").
		Order("created_at DESC, id DESC").First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExchangeRepository) ListByUser(userID uint, status string, limit, offset int) ([]models.Exchange, error) {
	q := r.db.Where("(provider_id = ? OR requester_id = ?)", userID, userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []models.Exchange
	err := q.Preload("Listing").Preload("Provider").Preload("Requester").
		Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// LockOpenByListing locks the listing's PENDING and ACCEPTED exchanges in id order.
func (r *ExchangeRepository) LockOpenByListing(listingID uint) ([]models.Exchange, error) {
	var list []models.Exchange
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("listing_id = ? AND status IN ?", listingID, domain.NonTerminalExchangeStatuses).
		Order("id ASC").Find(&list).Error
	return list, err
}

// LockOpenByUser locks every PENDING or ACCEPTED exchange where the user is a participant.
func (r *ExchangeRepository) LockOpenByUser(userID uint) ([]models.Exchange, error) {
	var list []models.Exchange
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("(provider_id = ? OR requester_id = ?) AND status IN ?", userID, userID, domain.NonTerminalExchangeStatuses).
		Order("id ASC").Find(&list).Error
	return list, err
}
