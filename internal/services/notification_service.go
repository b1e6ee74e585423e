package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uchef/uchef-backend/internal/events"
	"github.com/uchef/uchef-backend/internal/models"
	"github.com/uchef/uchef-backend/internal/realtime"
	"gorm.io/gorm"
)

// NotificationOptions carries the optional references a notification may
// point at.
type NotificationOptions struct {
	SenderID     *uint
	RestaurantID *uint
	OrderID      *uint
}

// NotificationService persists notifications and mirrors them to the
// realtime hub and the event broker. Callers in the ordering flow treat
// Notify as best-effort: they log its error and move on.
type NotificationService interface {
	Notify(recipientID uint, notificationType, title, message string, opts NotificationOptions) (*models.Notification, error)
	// ListForUser returns the user's notifications, newest first.
	ListForUser(userID uint) ([]models.Notification, error)
	// Unread returns the user's unread notifications, newest first.
	Unread(userID uint) ([]models.Notification, error)
	MarkAsRead(userID, notificationID uint) error
	MarkAllAsRead(userID uint) error
}

type notificationService struct {
	db        *gorm.DB
	hub       *realtime.Hub
	publisher events.Publisher
	log       *logrus.Logger
}

// NewNotificationService creates a new instance of NotificationService.
// hub may be nil when no realtime delivery is wanted (tests); publisher may
// be a NoopPublisher when no brokers are configured.
func NewNotificationService(db *gorm.DB, hub *realtime.Hub, publisher events.Publisher) NotificationService {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	return &notificationService{db: db, hub: hub, publisher: publisher, log: log}
}

func (s *notificationService) Notify(recipientID uint, notificationType, title, message string, opts NotificationOptions) (*models.Notification, error) {
	notification := &models.Notification{
		RecipientID:  recipientID,
		SenderID:     opts.SenderID,
		RestaurantID: opts.RestaurantID,
		OrderID:      opts.OrderID,
		Type:         notificationType,
		Title:        title,
		Message:      message,
	}
	if err := s.db.Create(notification).Error; err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Push(recipientID, notification)
	}
	if s.publisher != nil && notification.OrderID != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ev := events.OrderEvent{
			Type:       notificationType,
			OrderID:    *notification.OrderID,
			OccurredAt: notification.CreatedAt,
		}
		if notification.RestaurantID != nil {
			ev.RestaurantID = *notification.RestaurantID
		}
		if err := s.publisher.PublishOrderEvent(ctx, ev); err != nil {
			// Broker delivery is a mirror of the persisted row, never a
			// prerequisite.
			s.log.WithError(err).WithField("order_id", *notification.OrderID).
				Warn("Failed to publish notification event")
		}
	}
	return notification, nil
}

func (s *notificationService) ListForUser(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.Where("recipient_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (s *notificationService) Unread(userID uint) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.Where("recipient_id = ? AND is_read = ?", userID, false).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

func (s *notificationService) MarkAsRead(userID, notificationID uint) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(userID uint) error {
	return s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
