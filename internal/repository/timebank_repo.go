package repository

import (
	"errors"

	"hive/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TimeBankRepository struct {
	db *gorm.DB
}

func NewTimeBankRepository(db *gorm.DB) *TimeBankRepository {
	return &TimeBankRepository{db: db}
}

func (r *TimeBankRepository) WithTx(tx *gorm.DB) *TimeBankRepository {
	return &TimeBankRepository{db: tx}
}

func (r *TimeBankRepository) GetByUserID(userID uint) (*models.TimeBank, error) {
	var tb models.TimeBank
	err := r.db.Where("user_id = ?", userID).First(&tb).Error
	if err != nil {
		return nil, err
	}
	return &tb, nil
}

// GetOrCreate returns the user's account, creating it with grant hours if missing.
func (r *TimeBankRepository) GetOrCreate(userID uint, grant int) (*models.TimeBank, error) {
	tb, err := r.GetByUserID(userID)
	if err == nil {
		return tb, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := r.create(userID, grant); err != nil {
		return nil, err
	}
	return r.GetByUserID(userID)
}

// LockForUpdate returns the user's account under SELECT ... FOR UPDATE,
// creating it with grant hours first if it does not exist yet.
func (r *TimeBankRepository) LockForUpdate(userID uint, grant int) (*models.TimeBank, error) {
	var tb models.TimeBank
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&tb).Error
	if err == nil {
		return &tb, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := r.create(userID, grant); err != nil {
		return nil, err
	}
	err = r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&tb).Error
	if err != nil {
		return nil, err
	}
	return &tb, nil
}

// create inserts a fresh account; a concurrent insert for the same user is ignored.
func (r *TimeBankRepository) create(userID uint, grant int) error {
	tb := &models.TimeBank{UserID: userID}
	tb.AddCredit(grant)
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(tb).Error
}

// SaveBalances writes the four balance columns of a locked account.
func (r *TimeBankRepository) SaveBalances(tb *models.TimeBank) error {
	return r.db.Model(tb).Select("amount", "available_amount", "blocked_amount", "total_amount", "updated_at").
		Updates(tb).Error
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) GetByExchangeID(exchangeID uint) (*models.TimeBankTransaction, error) {
	var t models.TimeBankTransaction
	err := r.db.Where("exchange_id = ?", exchangeID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateOnce inserts t unless a transaction already exists for its exchange.
// It reports whether a row was written.
func (r *TransactionRepository) CreateOnce(t *models.TimeBankTransaction) (bool, error) {
	res := r.db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exchange_id"}},
		DoNothing: true,
	}).Create(t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *TransactionRepository) CountByExchangeID(exchangeID uint) (int64, error) {
	var c int64
	err := r.db.Model(&models.TimeBankTransaction{}).Where("exchange_id = ?", exchangeID).Count(&c).Error
	return c, err
}

func (r *TransactionRepository) ListByUserID(userID uint, limit, offset int) ([]models.TimeBankTransaction, error) {
	var list []models.TimeBankTransaction
	err := r.db.Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}
