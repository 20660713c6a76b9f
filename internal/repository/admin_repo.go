package repository

import (
	"time"

	"hive/internal/domain"
	"hive/internal/models"

	"gorm.io/gorm"
)

type KPIStats struct {
	TotalUsers         int64 `json:"total_users"`
	BannedUsers        int64 `json:"banned_users"`
	ActiveOffers       int64 `json:"active_offers"`
	ActiveWants        int64 `json:"active_wants"`
	PendingExchanges   int64 `json:"pending_exchanges"`
	AcceptedExchanges  int64 `json:"accepted_exchanges"`
	CompletedExchanges int64 `json:"completed_exchanges"`
	PendingReports     int64 `json:"pending_reports"`
	HoursExchanged     int64 `json:"hours_exchanged"`
}

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) GetKPIStats() (*KPIStats, error) {
	var s KPIStats
	if err := r.db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return nil, err
	}
	r.db.Model(&models.User{}).Where("is_banned = ?", true).Count(&s.BannedUsers)
	active := r.db.Model(&models.Listing{}).Where("status = ? AND is_flagged = ?", domain.ListingStatusActive, false).Session(&gorm.Session{})
	active.Where("type = ?", domain.ListingTypeOffer).Count(&s.ActiveOffers)
	active.Where("type = ?", domain.ListingTypeWant).Count(&s.ActiveWants)
	r.db.Model(&models.Exchange{}).Where("status = ?", domain.ExchangeStatusPending).Count(&s.PendingExchanges)
	r.db.Model(&models.Exchange{}).Where("status = ?", domain.ExchangeStatusAccepted).Count(&s.AcceptedExchanges)
	r.db.Model(&models.Exchange{}).Where("status = ?", domain.ExchangeStatusCompleted).Count(&s.CompletedExchanges)
	r.db.Model(&models.Report{}).Where("status = ?", domain.ReportStatusPending).Count(&s.PendingReports)

	var hours struct{ Total int64 }
	r.db.Model(&models.TimeBankTransaction{}).Select("COALESCE(SUM(time_amount), 0) as total").Scan(&hours)
	s.HoursExchanged = hours.Total
	return &s, nil
}

// ExchangesCompletedByDay returns daily completed-exchange counts for the last N days.
func (r *AdminRepository) ExchangesCompletedByDay(days int) ([]TimeSeriesPoint, error) {
	since := time.Now().AddDate(0, 0, -days)
	var points []TimeSeriesPoint
	err := r.db.Model(&models.Exchange{}).
		Select("DATE(completed_at) as date, COUNT(*) as count").
		Where("status = ? AND completed_at >= ?", domain.ExchangeStatusCompleted, since).
		Group("DATE(completed_at)").
		Order("date ASC").
		Scan(&points).Error
	return points, err
}
