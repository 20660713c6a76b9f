package models

import (
	"time"

	"hive/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Email           string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName       string         `gorm:"size:100" json:"first_name"`
	LastName        string         `gorm:"size:100" json:"last_name"`
	PasswordHash    string         `gorm:"size:255" json:"-"`
	Role            string         `gorm:"size:20;not null;default:'USER';index" json:"role"` // USER | ADMIN
	EmailVerifiedAt *time.Time     `json:"email_verified_at"`
	IsBanned        bool           `gorm:"not null;default:false;index" json:"is_banned"`
	BanReason       string         `gorm:"size:500" json:"ban_reason,omitempty"`
	BanExpiresAt    *time.Time     `json:"ban_expires_at,omitempty"`
	WarningCount    int            `gorm:"not null;default:0" json:"warning_count"`
	FCMToken        string         `gorm:"size:512" json:"-"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Optional one-to-one records, created on first need by the repositories.
	Profile  *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	TimeBank *TimeBank    `gorm:"foreignKey:UserID" json:"timebank,omitempty"`
}

func (u *User) IsAdmin() bool    { return u.Role == domain.RoleAdmin }
func (u *User) IsVerified() bool { return u.EmailVerifiedAt != nil }

// Banned reports whether the ban is in force at t. A ban without expiry is permanent.
func (u *User) Banned(t time.Time) bool {
	if !u.IsBanned {
		return false
	}
	return u.BanExpiresAt == nil || t.Before(*u.BanExpiresAt)
}

func (u *User) DisplayName() string {
	if u.FirstName != "" {
		if u.LastName != "" {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName
	}
	return u.Email
}

type UserProfile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Bio         string    `gorm:"type:text" json:"bio"`
	Location    string    `gorm:"size:255" json:"location"`
	Skills      []string  `gorm:"serializer:json" json:"skills"`
	Rating      float64   `gorm:"not null;default:0" json:"rating"`
	RatingCount int       `gorm:"not null;default:0" json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
