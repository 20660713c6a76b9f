package database

import (
	"errors"
	"strings"
	"time"

	"hive/config"
	"hive/internal/domain"
	"hive/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdmin creates the configured administrator if no user has that email yet.
// An existing user with the email is promoted to ADMIN.
func SeedAdmin(db *gorm.DB, cfg *config.AdminConfig, log zerolog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	var u models.User
	err := db.Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
		if u.Role == domain.RoleAdmin {
			return nil
		}
		log.Info().Str("email", email).Msg("promoting existing user to admin")
		return db.Model(&u).Update("role", domain.RoleAdmin).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	hash, err := HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	now := time.Now()
	u = models.User{
		Email:           email,
		FirstName:       "Admin",
		PasswordHash:    hash,
		Role:            domain.RoleAdmin,
		EmailVerifiedAt: &now,
	}
	if err := db.Create(&u).Error; err != nil {
		return err
	}
	log.Info().Str("email", email).Uint("user_id", u.ID).Msg("admin user seeded")
	return nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
