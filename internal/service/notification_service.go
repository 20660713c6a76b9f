package service

import (
	"context"
	"encoding/json"
	"fmt"

	"hive/internal/domain"
	"hive/internal/metrics"
	"hive/internal/models"
	"hive/internal/repository"

	"github.com/rs/zerolog"
)

// Notifier delivers user-facing events. Delivery never affects the outcome of
// the operation that produced the event.
type Notifier interface {
	Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error
}

// ExchangePublisher streams committed exchange state to live watchers.
type ExchangePublisher interface {
	PublishExchange(e *models.Exchange)
}

// Broadcaster pushes a payload to a user's live connections.
type Broadcaster interface {
	BroadcastToUser(userID uint, payload interface{})
}

// emailedTypes are the notification types also sent by email.
var emailedTypes = map[string]bool{
	domain.NotifExchangeCompleted: true,
	domain.NotifWarning:           true,
	domain.NotifBanned:            true,
	domain.NotifModeration:        true,
}

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	hub      Broadcaster
	fcm      *FCMService
	email    *EmailService
	log      zerolog.Logger
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, hub Broadcaster, fcm *FCMService, email *EmailService, log zerolog.Logger) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, hub: hub, fcm: fcm, email: email, log: log}
}

// Notify persists the notification, then fans it out to the live channel,
// push and (for some types) email. Only the persist error is returned.
func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	}
	if err := s.repo.Create(n); err != nil {
		metrics.NotificationsDelivered.WithLabelValues("store", "error").Inc()
		return fmt.Errorf("store notification: %w", err)
	}
	metrics.NotificationsDelivered.WithLabelValues("store", "ok").Inc()

	if s.hub != nil {
		s.hub.BroadcastToUser(userID, map[string]interface{}{"type": "notification", "notification": n})
		metrics.NotificationsDelivered.WithLabelValues("ws", "ok").Inc()
	}
	if s.fcm == nil && s.email == nil {
		return nil
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("notify: load recipient")
		return nil
	}
	if s.fcm != nil && u.FCMToken != "" {
		s.record("push", s.fcm.SendToUser(ctx, u.FCMToken, notifType, title, body, data), userID)
	}
	if s.email != nil && emailedTypes[notifType] {
		s.record("email", s.email.Send(ctx, u.Email, title, body), userID)
	}
	return nil
}

func (s *NotificationService) record(channel string, err error, userID uint) {
	if err != nil {
		metrics.NotificationsDelivered.WithLabelValues(channel, "error").Inc()
		s.log.Warn().Err(err).Str("channel", channel).Uint("user_id", userID).Msg("notification delivery failed")
		return
	}
	metrics.NotificationsDelivered.WithLabelValues(channel, "ok").Inc()
}

func (s *NotificationService) List(userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	list, err := s.repo.ListByUserID(userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(userID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

func (s *NotificationService) MarkRead(userID, id uint) error {
	ok, err := s.repo.MarkRead(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundf("notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.repo.MarkAllRead(userID)
}

func (s *NotificationService) Delete(userID, id uint) error {
	ok, err := s.repo.Delete(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFoundf("notification")
	}
	return nil
}

// outbox collects notifications and exchange changes produced inside a
// transaction so they can be delivered once it commits.
type outbox struct {
	notes     []pendingNotification
	exchanges []models.Exchange
}

type pendingNotification struct {
	userID uint
	typ    string
	title  string
	body   string
	data   map[string]interface{}
}

func (o *outbox) add(userID uint, typ, title, body string, data map[string]interface{}) {
	o.notes = append(o.notes, pendingNotification{userID: userID, typ: typ, title: title, body: body, data: data})
}

// changed records the exchange as it stands now.
func (o *outbox) changed(e *models.Exchange) {
	o.exchanges = append(o.exchanges, *e)
}

func (o *outbox) flush(ctx context.Context, n Notifier, log zerolog.Logger) {
	if n == nil {
		return
	}
	for _, p := range o.notes {
		if err := n.Notify(ctx, p.userID, p.typ, p.title, p.body, p.data); err != nil {
			log.Warn().Err(err).Uint("user_id", p.userID).Str("type", p.typ).Msg("notify failed")
		}
	}
}

func (o *outbox) publish(p ExchangePublisher) {
	if p == nil {
		return
	}
	for i := range o.exchanges {
		p.PublishExchange(&o.exchanges[i])
	}
}
