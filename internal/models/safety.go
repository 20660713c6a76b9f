package models

import (
	"time"

	"gorm.io/gorm"
)

type Report struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ReporterID     uint           `gorm:"not null;index" json:"reporter_id"`
	ReportedUserID *uint          `gorm:"index" json:"reported_user_id"`
	TargetType     string         `gorm:"size:20;not null;index:idx_report_target" json:"target_type"` // user | offer | want | exchange
	TargetID       uint           `gorm:"not null;index:idx_report_target" json:"target_id"`
	Reason         string         `gorm:"size:20;not null" json:"reason"`
	Description    string         `gorm:"type:text" json:"description"`
	Status         string         `gorm:"size:20;not null;default:'PENDING';index" json:"status"` // PENDING | RESOLVED | DISMISSED
	AdminNotes     string         `gorm:"type:text" json:"admin_notes"`
	ResolvedByID   *uint          `json:"resolved_by_id"`
	ResolvedAt     *time.Time     `json:"resolved_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Reporter     User  `gorm:"foreignKey:ReporterID" json:"reporter"`
	ReportedUser *User `gorm:"foreignKey:ReportedUserID" json:"reported_user,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	Action     string    `gorm:"size:100;not null;index" json:"action"`
	Resource   string    `gorm:"size:100;index" json:"resource"`
	ResourceID string    `gorm:"size:100;index" json:"resource_id"`
	IP         string    `gorm:"size:45" json:"ip"`
	UserAgent  string    `gorm:"size:512" json:"user_agent"`
	Metadata   string    `gorm:"type:text" json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
