package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"hive/internal/domain"
	"hive/internal/metrics"
	"hive/internal/models"
	"hive/internal/repository"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	resolveActionDismiss = "dismiss"
	defaultBanReason     = "Violation of community guidelines"
)

// ResolveInput composes the effects of resolving a report. Action "dismiss"
// closes the report without effects; otherwise at least one of RemoveContent
// and UserAction is required.
type ResolveInput struct {
	RemoveContent bool
	UserAction    string
	AdminNotes    string
	Action        string
}

type ResolveResult struct {
	Report       *models.Report
	ActionsTaken []string
}

// BanInput describes a direct ban. ReportID, when set, names a PENDING report
// about the same user that the ban resolves.
type BanInput struct {
	Reason       string
	DurationDays int
	ReportID     *uint
}

// ModerationService applies admin actions. Every path that ends an exchange
// early goes through cancelExchange, so holds unwind exactly as they do when
// users cancel.
type ModerationService struct {
	db        *gorm.DB
	users     *repository.UserRepository
	listings  *repository.ListingRepository
	exchanges *repository.ExchangeRepository
	reports   *repository.ReportRepository
	audit     *repository.AuditLogRepository
	timebank  *TimeBankService
	notifier  Notifier
	publisher ExchangePublisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewModerationService(
	db *gorm.DB,
	users *repository.UserRepository,
	listings *repository.ListingRepository,
	exchanges *repository.ExchangeRepository,
	reports *repository.ReportRepository,
	audit *repository.AuditLogRepository,
	timebank *TimeBankService,
	notifier Notifier,
	publisher ExchangePublisher,
	log zerolog.Logger,
) *ModerationService {
	return &ModerationService{
		db:        db,
		users:     users,
		listings:  listings,
		exchanges: exchanges,
		reports:   reports,
		audit:     audit,
		timebank:  timebank,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// ResolveReport closes a PENDING report exactly once, applying the requested effects.
func (s *ModerationService) ResolveReport(ctx context.Context, adminID, reportID uint, in ResolveInput) (*ResolveResult, error) {
	dismiss := in.Action == resolveActionDismiss
	if !dismiss {
		if in.Action != "" {
			return nil, domain.ErrValidation.WithMessage("unknown action %q", in.Action)
		}
		if in.UserAction != "" && in.UserAction != domain.UserActionBan && in.UserAction != domain.UserActionWarn {
			return nil, domain.ErrValidation.WithMessage("user_action must be ban_user or warn_user")
		}
		if !in.RemoveContent && in.UserAction == "" {
			return nil, domain.ErrValidation.WithMessage("at least one action is required: remove_content or user_action")
		}
	}

	var (
		res = &ResolveResult{ActionsTaken: []string{}}
		out outbox
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reports := s.reports.WithTx(tx)
		r, err := reports.LockByID(reportID)
		if err != nil {
			return isNotFound(err, "report")
		}
		if r.Status != domain.ReportStatusPending {
			return domain.ErrInvalidTransition.WithMessage("report has already been %s", r.Status)
		}
		now := s.now()

		if dismiss {
			r.Status = domain.ReportStatusDismissed
			res.ActionsTaken = append(res.ActionsTaken, domain.ActionDismissed)
		} else {
			if in.RemoveContent {
				if err := s.removeReportedContent(tx, r, in.AdminNotes, &out); err != nil {
					return err
				}
				res.ActionsTaken = append(res.ActionsTaken, domain.ActionContentRemoved)
			}
			if in.UserAction != "" {
				if r.ReportedUserID == nil {
					return domain.ErrValidation.WithMessage("report has no reported user")
				}
				switch in.UserAction {
				case domain.UserActionBan:
					reason := in.AdminNotes
					if reason == "" {
						reason = defaultBanReason
					}
					if _, err := s.ban(tx, *r.ReportedUserID, BanInput{Reason: reason}, &out); err != nil {
						return err
					}
					res.ActionsTaken = append(res.ActionsTaken, domain.ActionUserBanned)
				case domain.UserActionWarn:
					msg := in.AdminNotes
					if msg == "" {
						msg = fmt.Sprintf("A report about your activity (%s) was upheld by a moderator.", r.Reason)
					}
					if _, err := s.warn(tx, *r.ReportedUserID, msg, &out); err != nil {
						return err
					}
					res.ActionsTaken = append(res.ActionsTaken, domain.ActionUserWarned)
				}
			}
			r.Status = domain.ReportStatusResolved
		}

		if err := closeReport(reports, r, r.Status, adminID, in.AdminNotes, now); err != nil {
			return err
		}
		res.Report = r
		return s.record(tx, adminID, "resolve_report", r.TargetType, r.TargetID, map[string]interface{}{
			"report_id":     r.ID,
			"status":        r.Status,
			"actions_taken": res.ActionsTaken,
		})
	})
	if err != nil {
		return nil, err
	}
	for _, a := range res.ActionsTaken {
		metrics.ModerationActions.WithLabelValues(a).Inc()
	}
	s.log.Info().Uint("report_id", reportID).Uint("admin_id", adminID).Strs("actions", res.ActionsTaken).Msg("report resolved")
	out.flush(ctx, s.notifier, s.log)
	out.publish(s.publisher)
	return res, nil
}

func (s *ModerationService) removeReportedContent(tx *gorm.DB, r *models.Report, notes string, out *outbox) error {
	reason := notes
	if reason == "" {
		reason = fmt.Sprintf("Removed after report #%d (%s)", r.ID, r.Reason)
	}
	switch r.TargetType {
	case domain.ReportTargetOffer, domain.ReportTargetWant:
		l, err := s.listings.WithTx(tx).LockByID(r.TargetID)
		if err != nil {
			return isNotFound(err, r.TargetType)
		}
		return s.removeListing(tx, l, domain.ListingStatusInactive, reason, out)
	case domain.ReportTargetExchange:
		e, err := lockExchange(tx, s.listings, s.exchanges, r.TargetID)
		if err != nil {
			return err
		}
		if !e.IsTerminal() {
			if err := cancelExchange(s.timebank.Ledger(tx), s.exchanges.WithTx(tx), e, &e.Listing, "removed by moderation", s.now()); err != nil {
				return err
			}
			out.changed(e)
			for _, uid := range []uint{e.ProviderID, e.RequesterID} {
				out.add(uid, domain.NotifExchangeCancelled, "Exchange cancelled",
					fmt.Sprintf("The exchange for \"%s\" was cancelled by moderation", e.Listing.Title),
					map[string]interface{}{"exchange_id": e.ID})
			}
		}
		return s.removeListing(tx, &e.Listing, domain.ListingStatusInactive, reason, out)
	default:
		return domain.ErrValidation.WithMessage("remove_content does not apply to %s reports", r.TargetType)
	}
}

// removeListing takes a locked listing out of circulation: its open exchanges
// are cancelled, a want's hold is released and the listing is flagged.
func (s *ModerationService) removeListing(tx *gorm.DB, l *models.Listing, status, reason string, out *outbox) error {
	ledger := s.timebank.Ledger(tx)
	exchanges := s.exchanges.WithTx(tx)
	open, err := exchanges.LockOpenByListing(l.ID)
	if err != nil {
		return err
	}
	for i := range open {
		e := &open[i]
		if err := cancelExchange(ledger, exchanges, e, l, "listing removed by moderation", s.now()); err != nil {
			return err
		}
		out.changed(e)
		out.add(e.RequesterID, domain.NotifExchangeCancelled, "Exchange cancelled",
			fmt.Sprintf("The exchange for \"%s\" was cancelled because the listing was removed", l.Title),
			map[string]interface{}{"exchange_id": e.ID})
	}

	listings := s.listings.WithTx(tx)
	if err := releaseWantHold(ledger, listings, l); err != nil {
		return err
	}
	l.Status = status
	l.IsFlagged = true
	l.FlaggedReason = reason
	if err := listings.UpdateFields(l.ID, map[string]interface{}{
		"status":         status,
		"is_flagged":     true,
		"flagged_reason": reason,
	}); err != nil {
		return err
	}
	out.add(l.UserID, domain.NotifModeration, fmt.Sprintf("Your %s was removed", l.Type),
		fmt.Sprintf("\"%s\" was removed by a moderator: %s", l.Title, reason),
		map[string]interface{}{"listing_id": l.ID})
	return nil
}

// RemoveListing is the admin delete: the listing ends up CANCELLED and flagged.
func (s *ModerationService) RemoveListing(ctx context.Context, adminID, listingID uint, reason string) (*models.Listing, error) {
	if reason == "" {
		reason = "Removed by an administrator"
	}
	var (
		l   *models.Listing
		out outbox
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		l, err = s.listings.WithTx(tx).LockByID(listingID)
		if err != nil {
			return isNotFound(err, "listing")
		}
		if err := s.removeListing(tx, l, domain.ListingStatusCancelled, reason, &out); err != nil {
			return err
		}
		return s.record(tx, adminID, "remove_listing", "listing", l.ID, map[string]interface{}{"reason": reason})
	})
	if err != nil {
		return nil, err
	}
	metrics.ModerationActions.WithLabelValues(domain.ActionContentRemoved).Inc()
	out.flush(ctx, s.notifier, s.log)
	out.publish(s.publisher)
	return l, nil
}

// BanUser bans a user directly, outside of a report.
func (s *ModerationService) BanUser(ctx context.Context, adminID, userID uint, in BanInput) (*models.User, error) {
	if in.DurationDays < 0 {
		return nil, domain.ErrValidation.WithMessage("duration_days cannot be negative")
	}
	if in.Reason == "" {
		in.Reason = defaultBanReason
	}
	var (
		u   *models.User
		out outbox
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.claimReport(tx, in.ReportID, userID)
		if err != nil {
			return err
		}
		u, err = s.ban(tx, userID, in, &out)
		if err != nil {
			return err
		}
		meta := map[string]interface{}{
			"reason":        in.Reason,
			"duration_days": in.DurationDays,
		}
		if r != nil {
			if err := closeReport(s.reports.WithTx(tx), r, domain.ReportStatusResolved, adminID, in.Reason, s.now()); err != nil {
				return err
			}
			meta["report_id"] = r.ID
		}
		return s.record(tx, adminID, "ban_user", "user", userID, meta)
	})
	if err != nil {
		return nil, err
	}
	metrics.ModerationActions.WithLabelValues(domain.ActionUserBanned).Inc()
	out.flush(ctx, s.notifier, s.log)
	out.publish(s.publisher)
	return u, nil
}

// ban flags the user and unwinds everything they have in flight. Each open
// exchange is cancelled on its own with the usual hold release; the user's
// active listings are deactivated and their want holds returned.
func (s *ModerationService) ban(tx *gorm.DB, userID uint, in BanInput, out *outbox) (*models.User, error) {
	users := s.users.WithTx(tx)
	u, err := users.LockByID(userID)
	if err != nil {
		return nil, isNotFound(err, "user")
	}
	if u.IsAdmin() {
		return nil, domain.ErrNotAuthorized.WithMessage("administrators cannot be banned")
	}

	listingRepo := s.listings.WithTx(tx)
	owned, err := listingRepo.LockActiveByUserID(userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Listing, len(owned))
	for i := range owned {
		byID[owned[i].ID] = &owned[i]
	}

	ledger := s.timebank.Ledger(tx)
	exchanges := s.exchanges.WithTx(tx)
	open, err := exchanges.LockOpenByUser(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range open {
		e := &open[i]
		l, ok := byID[e.ListingID]
		if !ok {
			l = &models.Listing{}
			if err := tx.Unscoped().First(l, e.ListingID).Error; err != nil {
				return nil, fmt.Errorf("load listing %d: %w", e.ListingID, err)
			}
		}
		if err := cancelExchange(ledger, exchanges, e, l, "participant banned", now); err != nil {
			return nil, err
		}
		out.changed(e)
		out.add(e.Counterparty(userID), domain.NotifExchangeCancelled, "Exchange cancelled",
			fmt.Sprintf("The exchange for \"%s\" was cancelled by moderation", l.Title),
			map[string]interface{}{"exchange_id": e.ID})
	}

	for _, l := range byID {
		if err := releaseWantHold(ledger, listingRepo, l); err != nil {
			return nil, err
		}
		if err := listingRepo.UpdateFields(l.ID, map[string]interface{}{"status": domain.ListingStatusInactive}); err != nil {
			return nil, err
		}
	}

	u.IsBanned = true
	u.BanReason = in.Reason
	u.BanExpiresAt = nil
	if in.DurationDays > 0 {
		until := now.AddDate(0, 0, in.DurationDays)
		u.BanExpiresAt = &until
	}
	if err := users.UpdateFields(u.ID, map[string]interface{}{
		"is_banned":      true,
		"ban_reason":     u.BanReason,
		"ban_expires_at": u.BanExpiresAt,
	}); err != nil {
		return nil, err
	}

	body := "Your account has been suspended: " + in.Reason
	if u.BanExpiresAt != nil {
		body += fmt.Sprintf(" (until %s)", u.BanExpiresAt.Format("2006-01-02"))
	}
	out.add(u.ID, domain.NotifBanned, "Account suspended", body, nil)
	s.log.Warn().Uint("user_id", u.ID).Int("exchanges_cancelled", len(open)).Int("listings_deactivated", len(byID)).Msg("user banned")
	return u, nil
}

// WarnUser increments the user's warning count and notifies them. No ledger
// effect. A non-nil reportID resolves that report in the same transaction.
func (s *ModerationService) WarnUser(ctx context.Context, adminID, userID uint, message string, reportID *uint) (*models.User, error) {
	if message == "" {
		return nil, domain.ErrValidation.WithMessage("message is required")
	}
	var (
		u   *models.User
		out outbox
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := s.claimReport(tx, reportID, userID)
		if err != nil {
			return err
		}
		u, err = s.warn(tx, userID, message, &out)
		if err != nil {
			return err
		}
		meta := map[string]interface{}{"message": message}
		if r != nil {
			if err := closeReport(s.reports.WithTx(tx), r, domain.ReportStatusResolved, adminID, message, s.now()); err != nil {
				return err
			}
			meta["report_id"] = r.ID
		}
		return s.record(tx, adminID, "warn_user", "user", userID, meta)
	})
	if err != nil {
		return nil, err
	}
	metrics.ModerationActions.WithLabelValues(domain.ActionUserWarned).Inc()
	out.flush(ctx, s.notifier, s.log)
	out.publish(s.publisher)
	return u, nil
}

func (s *ModerationService) warn(tx *gorm.DB, userID uint, message string, out *outbox) (*models.User, error) {
	users := s.users.WithTx(tx)
	u, err := users.LockByID(userID)
	if err != nil {
		return nil, isNotFound(err, "user")
	}
	u.WarningCount++
	if err := users.UpdateFields(u.ID, map[string]interface{}{"warning_count": u.WarningCount}); err != nil {
		return nil, err
	}
	out.add(u.ID, domain.NotifWarning, "Warning", message, map[string]interface{}{"warning_count": u.WarningCount})
	return u, nil
}

// claimReport locks the report a direct ban or warning refers to. It must be
// PENDING and about the same user.
func (s *ModerationService) claimReport(tx *gorm.DB, reportID *uint, userID uint) (*models.Report, error) {
	if reportID == nil {
		return nil, nil
	}
	r, err := s.reports.WithTx(tx).LockByID(*reportID)
	if err != nil {
		return nil, isNotFound(err, "report")
	}
	if r.Status != domain.ReportStatusPending {
		return nil, domain.ErrInvalidTransition.WithMessage("report has already been %s", r.Status)
	}
	if r.ReportedUserID == nil || *r.ReportedUserID != userID {
		return nil, domain.ErrValidation.WithMessage("report %d is not about this user", r.ID)
	}
	return r, nil
}

func closeReport(reports *repository.ReportRepository, r *models.Report, status string, adminID uint, notes string, now time.Time) error {
	r.Status = status
	r.AdminNotes = notes
	r.ResolvedByID = &adminID
	r.ResolvedAt = &now
	return reports.Update(r)
}

// ExchangeDetail returns an exchange with its audit trail for admins.
func (s *ModerationService) ExchangeDetail(ctx context.Context, exchangeID uint) (*models.Exchange, []models.AuditLog, error) {
	db := s.db.WithContext(ctx)
	e, err := s.exchanges.WithTx(db).GetByID(exchangeID)
	if err != nil {
		return nil, nil, isNotFound(err, "exchange")
	}
	logs, err := s.audit.WithTx(db).ListByResource("exchange", strconv.FormatUint(uint64(e.ID), 10))
	if err != nil {
		return nil, nil, err
	}
	return e, logs, nil
}

func (s *ModerationService) record(tx *gorm.DB, adminID uint, action, resource string, resourceID uint, meta map[string]interface{}) error {
	b, _ := json.Marshal(meta)
	return s.audit.WithTx(tx).Create(&models.AuditLog{
		UserID:     &adminID,
		Action:     action,
		Resource:   resource,
		ResourceID: strconv.FormatUint(uint64(resourceID), 10),
		Metadata:   string(b),
	})
}
