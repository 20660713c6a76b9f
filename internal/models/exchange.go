package models

import (
	"time"

	"hive/internal/domain"

	"gorm.io/gorm"
)

// Exchange binds a listing to a provider (the listing owner) and a requester.
// For an offer the requester pays; for a want the provider pays.
type Exchange struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	ListingID          uint           `gorm:"not null;index" json:"listing_id"`
	ProviderID         uint           `gorm:"not null;index" json:"provider_id"`
	RequesterID        uint           `gorm:"not null;index" json:"requester_id"`
	Status             string         `gorm:"size:20;not null;default:'PENDING';index" json:"status"`
	TimeSpent          int            `gorm:"not null" json:"time_spent"`
	ProposedDate       *time.Time     `json:"proposed_date"`
	ProposedTime       string         `gorm:"size:5" json:"proposed_time"`
	RequesterConfirmed bool           `gorm:"not null;default:false" json:"requester_confirmed"`
	ProviderConfirmed  bool           `gorm:"not null;default:false" json:"provider_confirmed"`
	AcceptedAt         *time.Time     `json:"accepted_at"`
	CompletedAt        *time.Time     `json:"completed_at"`
	CancelledAt        *time.Time     `json:"cancelled_at"`
	CancelReason       string         `gorm:"size:500" json:"cancel_reason,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	Listing   Listing `gorm:"foreignKey:ListingID" json:"listing"`
	Provider  User    `gorm:"foreignKey:ProviderID" json:"provider"`
	Requester User    `gorm:"foreignKey:RequesterID" json:"requester"`
}

func (Exchange) TableName() string {
	return "exchanges"
}

func (e *Exchange) IsTerminal() bool {
	return e.Status == domain.ExchangeStatusCompleted || e.Status == domain.ExchangeStatusCancelled
}

func (e *Exchange) IsParticipant(userID uint) bool {
	return e.ProviderID == userID || e.RequesterID == userID
}

// Counterparty returns the other participant's id.
func (e *Exchange) Counterparty(userID uint) uint {
	if userID == e.ProviderID {
		return e.RequesterID
	}
	return e.ProviderID
}

type ExchangeRating struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ExchangeID     uint      `gorm:"not null;uniqueIndex:idx_rating_once" json:"exchange_id"`
	RaterID        uint      `gorm:"not null;uniqueIndex:idx_rating_once" json:"rater_id"`
	RateeID        uint      `gorm:"not null;uniqueIndex:idx_rating_once;index" json:"ratee_id"`
	Communication  int       `gorm:"not null" json:"communication"`
	Punctuality    int       `gorm:"not null" json:"punctuality"`
	WouldRecommend bool      `gorm:"not null" json:"would_recommend"`
	Comment        string    `gorm:"type:text" json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ExchangeRating) TableName() string {
	return "exchange_ratings"
}

// Score is the per-rating value that feeds the ratee's profile rating.
func (r *ExchangeRating) Score() float64 {
	return float64(r.Communication+r.Punctuality) / 2
}
