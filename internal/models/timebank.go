package models

import "time"

// TimeBank is a user's hour-credit account.
// Amount == AvailableAmount + BlockedAmount holds after every operation.
type TimeBank struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Amount          int       `gorm:"not null;default:0" json:"amount"`
	AvailableAmount int       `gorm:"not null;default:0" json:"available_amount"`
	BlockedAmount   int       `gorm:"not null;default:0" json:"blocked_amount"`
	TotalAmount     int       `gorm:"not null;default:0" json:"total_amount"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"last_update"`
}

func (TimeBank) TableName() string {
	return "timebanks"
}

// AddCredit grants hours. TotalAmount is the high-water mark and only grows here.
func (tb *TimeBank) AddCredit(hours int) {
	tb.Amount += hours
	tb.AvailableAmount += hours
	tb.TotalAmount += hours
}

// SpendCredit removes hours from the available balance. It reports false and
// leaves the account untouched when fewer than hours are available.
func (tb *TimeBank) SpendCredit(hours int) bool {
	if tb.AvailableAmount < hours {
		return false
	}
	tb.Amount -= hours
	tb.AvailableAmount -= hours
	return true
}

// BlockCredit reserves hours, moving them from available to blocked.
func (tb *TimeBank) BlockCredit(hours int) bool {
	if tb.AvailableAmount < hours {
		return false
	}
	tb.AvailableAmount -= hours
	tb.BlockedAmount += hours
	return true
}

// UnblockCredit releases up to hours back to available and returns how many
// were actually released. When less than hours is blocked, whatever remains
// is released and clamped is true. With nothing blocked it returns ok=false.
func (tb *TimeBank) UnblockCredit(hours int) (released int, clamped bool, ok bool) {
	if tb.BlockedAmount == 0 {
		return 0, false, false
	}
	released = hours
	if tb.BlockedAmount < hours {
		released = tb.BlockedAmount
		clamped = true
	}
	tb.BlockedAmount -= released
	tb.AvailableAmount += released
	return released, clamped, true
}

// Consistent reports whether the account invariants hold.
func (tb *TimeBank) Consistent() bool {
	return tb.AvailableAmount >= 0 && tb.BlockedAmount >= 0 &&
		tb.Amount == tb.AvailableAmount+tb.BlockedAmount
}

// TimeBankTransaction is the immutable record of one completed transfer.
type TimeBankTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	FromUserID      uint      `gorm:"not null;index" json:"from_user_id"`
	ToUserID        uint      `gorm:"not null;index" json:"to_user_id"`
	ExchangeID      uint      `gorm:"uniqueIndex;not null" json:"exchange_id"`
	TimeAmount      int       `gorm:"not null" json:"time_amount"`
	TransactionType string    `gorm:"size:20;not null;default:'SPEND'" json:"transaction_type"`
	Description     string    `gorm:"size:500" json:"description"`
	CreatedAt       time.Time `json:"created_at"`

	FromUser User `gorm:"foreignKey:FromUserID" json:"-"`
	ToUser   User `gorm:"foreignKey:ToUserID" json:"-"`
}

func (TimeBankTransaction) TableName() string {
	return "timebank_transactions"
}
