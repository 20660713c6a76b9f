package models

import (
	"time"

	"hive/internal/domain"

	"gorm.io/gorm"
)

// Listing is an offer or a want. A want owns a hold on its owner's time bank
// (BlockedHours) from creation until it is deleted, removed or consumed by
// completions. A group want holds one slot of TimeRequired per participant.
type Listing struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	Type          string         `gorm:"size:10;not null;index" json:"type"` // offer | want
	Title         string         `gorm:"size:255;not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	TimeRequired  int            `gorm:"not null" json:"time_required"`
	BlockedHours  int            `gorm:"not null;default:0" json:"blocked_hours"`
	ActivityType  string         `gorm:"size:10;not null;default:'1to1'" json:"activity_type"` // 1to1 | group
	PersonCount   int            `gorm:"not null;default:1" json:"person_count"`
	OfferType     string         `gorm:"size:20;not null;default:'1time'" json:"offer_type"`
	LocationType  string         `gorm:"size:20;not null;default:'myLocation'" json:"location_type"` // myLocation | remote
	Location      string         `gorm:"size:255" json:"location"`
	Latitude      *float64       `json:"latitude"`
	Longitude     *float64       `json:"longitude"`
	Tags          []string       `gorm:"serializer:json" json:"tags"`
	Date          *time.Time     `json:"date"`
	ScheduledAt   *time.Time     `json:"scheduled_at"`
	Status        string         `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	IsFlagged     bool           `gorm:"not null;default:false;index" json:"is_flagged"`
	FlaggedReason string         `gorm:"size:500" json:"flagged_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (Listing) TableName() string {
	return "listings"
}

func (l *Listing) IsWant() bool   { return l.Type == domain.ListingTypeWant }
func (l *Listing) IsRemote() bool { return l.LocationType == domain.LocationTypeRemote }

// Capacity is the number of exchanges that may be open against the listing at once.
func (l *Listing) Capacity() int {
	if l.ActivityType == domain.ActivityGroup && l.PersonCount > 0 {
		return l.PersonCount
	}
	return 1
}

// WantHold is the number of hours an active want keeps blocked. Offers hold nothing.
func (l *Listing) WantHold() int {
	if !l.IsWant() {
		return 0
	}
	return l.TimeRequired * l.Capacity()
}

// Browsable reports whether the listing appears in public browse results.
func (l *Listing) Browsable() bool {
	return l.Status == domain.ListingStatusActive && !l.IsFlagged
}
