package service

import (
	"context"
	"fmt"
	"strings"

	"hive/internal/domain"
	"hive/internal/models"
	"hive/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ReportInput struct {
	TargetType  string
	TargetID    uint
	Reason      string
	Description string
}

type ReportService struct {
	db        *gorm.DB
	reports   *repository.ReportRepository
	users     *repository.UserRepository
	listings  *repository.ListingRepository
	exchanges *repository.ExchangeRepository
	log       zerolog.Logger
}

func NewReportService(db *gorm.DB, reports *repository.ReportRepository, users *repository.UserRepository, listings *repository.ListingRepository, exchanges *repository.ExchangeRepository, log zerolog.Logger) *ReportService {
	return &ReportService{db: db, reports: reports, users: users, listings: listings, exchanges: exchanges, log: log}
}

// Create files a report against a user, listing or exchange. A reporter may
// hold one pending report per target.
func (s *ReportService) Create(ctx context.Context, reporterID uint, in ReportInput) (*models.Report, error) {
	in.Reason = strings.ToUpper(strings.TrimSpace(in.Reason))
	if !validReason(in.Reason) {
		return nil, domain.ErrValidation.WithMessage("reason must be one of %s", strings.Join(domain.ReportReasons, ", "))
	}
	if in.TargetID == 0 {
		return nil, domain.ErrValidation.WithMessage("target_id is required")
	}

	db := s.db.WithContext(ctx)
	reported, err := s.resolveTarget(db, reporterID, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	exists, err := s.reports.WithTx(db).ExistsPending(reporterID, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateReport
	}

	r := &models.Report{
		ReporterID:     reporterID,
		ReportedUserID: reported,
		TargetType:     in.TargetType,
		TargetID:       in.TargetID,
		Reason:         in.Reason,
		Description:    in.Description,
		Status:         domain.ReportStatusPending,
	}
	if err := s.reports.WithTx(db).Create(r); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.log.Info().Uint("report_id", r.ID).Str("target_type", r.TargetType).Uint("target_id", r.TargetID).Msg("report filed")
	return r, nil
}

// resolveTarget checks the target exists and returns the user it implicates.
func (s *ReportService) resolveTarget(db *gorm.DB, reporterID uint, targetType string, targetID uint) (*uint, error) {
	switch targetType {
	case domain.ReportTargetUser:
		u, err := s.users.WithTx(db).GetByID(targetID)
		if err != nil {
			return nil, isNotFound(err, "user")
		}
		if u.ID == reporterID {
			return nil, domain.ErrSelfAction.WithMessage("you cannot report yourself")
		}
		return &u.ID, nil
	case domain.ReportTargetOffer, domain.ReportTargetWant:
		l, err := s.listings.WithTx(db).GetByID(targetID)
		if err != nil || l.Type != targetType {
			return nil, domain.NotFoundf(targetType)
		}
		if l.UserID == reporterID {
			return nil, domain.ErrSelfAction.WithMessage("you cannot report your own %s", targetType)
		}
		return &l.UserID, nil
	case domain.ReportTargetExchange:
		e, err := s.exchanges.WithTx(db).GetByID(targetID)
		if err != nil {
			return nil, isNotFound(err, "exchange")
		}
		if !e.IsParticipant(reporterID) {
			return nil, domain.ErrNotAuthorized.WithMessage("you are not part of this exchange")
		}
		other := e.Counterparty(reporterID)
		return &other, nil
	default:
		return nil, domain.ErrValidation.WithMessage("target_type must be user, offer, want or exchange")
	}
}

func (s *ReportService) List(ctx context.Context, status string, page, limit int) ([]models.Report, int64, error) {
	return s.reports.WithTx(s.db.WithContext(ctx)).List(status, page, limit)
}

func (s *ReportService) Get(ctx context.Context, id uint) (*models.Report, error) {
	r, err := s.reports.WithTx(s.db.WithContext(ctx)).GetByID(id)
	if err != nil {
		return nil, isNotFound(err, "report")
	}
	return r, nil
}

func validReason(reason string) bool {
	for _, r := range domain.ReportReasons {
		if r == reason {
			return true
		}
	}
	return false
}
