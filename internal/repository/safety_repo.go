package repository

import (
	"hive/internal/domain"
	"hive/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) WithTx(tx *gorm.DB) *ReportRepository {
	return &ReportRepository{db: tx}
}

func (r *ReportRepository) Create(report *models.Report) error {
	return r.db.Omit(clause.Associations).Create(report).Error
}

func (r *ReportRepository) GetByID(id uint) (*models.Report, error) {
	var rep models.Report
	err := r.db.Preload("Reporter").Preload("ReportedUser").First(&rep, id).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) LockByID(id uint) (*models.Report, error) {
	var rep models.Report
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rep, id).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) Update(report *models.Report) error {
	return r.db.Omit(clause.Associations).Save(report).Error
}

// ExistsPending reports whether the reporter already has an open report on the target.
func (r *ReportRepository) ExistsPending(reporterID uint, targetType string, targetID uint) (bool, error) {
	var c int64
	err := r.db.Model(&models.Report{}).
		Where("reporter_id = ? AND target_type = ? AND target_id = ? AND status = ?",
			reporterID, targetType, targetID, domain.ReportStatusPending).
		Count(&c).Error
	return c > 0, err
}

// List returns reports with optional status filter.
func (r *ReportRepository) List(status string, page, limit int) ([]models.Report, int64, error) {
	q := r.db.Model(&models.Report{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	q.Count(&total)
	var list []models.Report
	err := q.Preload("Reporter").Preload("ReportedUser").Order("created_at DESC, id DESC").
		Limit(limit).Offset((page - 1) * limit).Find(&list).Error
	return list, total, err
}

func (r *ReportRepository) CountByStatus(status string) (int64, error) {
	var c int64
	err := r.db.Model(&models.Report{}).Where("status = ?", status).Count(&c).Error
	return c, err
}

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) WithTx(tx *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: tx}
}

func (r *AuditLogRepository) Create(log *models.AuditLog) error {
	return r.db.Create(log).Error
}

func (r *AuditLogRepository) ListByResource(resource, resourceID string) ([]models.AuditLog, error) {
	var list []models.AuditLog
	err := r.db.Where("resource = ? AND resource_id = ?", resource, resourceID).Order("id ASC").Find(&list).Error
	return list, err
}
