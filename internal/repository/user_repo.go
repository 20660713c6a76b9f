package repository

import (
	"hive/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(u *models.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetWithRelations loads the user with profile and time bank (either may be nil).
func (r *UserRepository) GetWithRelations(id uint) (*models.User, error) {
	var u models.User
	err := r.db.Preload("Profile").Preload("TimeBank").First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// LockByID reads the user row with SELECT ... FOR UPDATE. Must run inside a transaction.
func (r *UserRepository) LockByID(id uint) (*models.User, error) {
	var u models.User
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var u models.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Update(u *models.User) error {
	return r.db.Save(u).Error
}

func (r *UserRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *UserRepository) Count() (int64, error) {
	var c int64
	err := r.db.Model(&models.User{}).Count(&c).Error
	return c, err
}

// GetOrCreateProfile returns the user's profile, creating an empty one on first access.
func (r *UserRepository) GetOrCreateProfile(userID uint) (*models.UserProfile, error) {
	var p models.UserProfile
	err := r.db.Where("user_id = ?", userID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	p = models.UserProfile{UserID: userID}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}
	if p.ID == 0 {
		if err := r.db.Where("user_id = ?", userID).First(&p).Error; err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *UserRepository) UpdateProfileRating(userID uint, rating float64, count int) error {
	return r.db.Model(&models.UserProfile{}).Where("user_id = ?", userID).
		Updates(map[string]interface{}{"rating": rating, "rating_count": count}).Error
}

func (r *UserRepository) SaveProfile(p *models.UserProfile) error {
	return r.db.Save(p).Error
}
