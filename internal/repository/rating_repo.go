package repository

import (
	"hive/internal/models"

	"gorm.io/gorm"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) WithTx(tx *gorm.DB) *RatingRepository {
	return &RatingRepository{db: tx}
}

func (r *RatingRepository) Create(rt *models.ExchangeRating) error {
	return r.db.Create(rt).Error
}

func (r *RatingRepository) Exists(exchangeID, raterID, rateeID uint) (bool, error) {
	var c int64
	err := r.db.Model(&models.ExchangeRating{}).
		Where("exchange_id = ? AND rater_id = ? AND ratee_id = ?", exchangeID, raterID, rateeID).
		Count(&c).Error
	return c > 0, err
}

func (r *RatingRepository) ListByExchange(exchangeID uint) ([]models.ExchangeRating, error) {
	var list []models.ExchangeRating
	err := r.db.Where("exchange_id = ?", exchangeID).Order("id ASC").Find(&list).Error
	return list, err
}

// AggregateForRatee returns the mean of (communication+punctuality)/2 over all
// ratings the user received, and how many there are.
func (r *RatingRepository) AggregateForRatee(rateeID uint) (float64, int, error) {
	var row struct {
		Avg   float64
		Count int
	}
	err := r.db.Model(&models.ExchangeRating{}).
		Select("COALESCE(AVG((communication + punctuality) / 2.0), 0) AS avg, COUNT(*) AS count").
		Where("ratee_id = ?", rateeID).
		Scan(&row).Error
	return row.Avg, row.Count, err
}
