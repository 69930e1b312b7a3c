package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/plazahq/plaza/api/internal/model"
)

// Sender is the delivery transport for notifications (push gateway,
// email bridge). The service stays transport-agnostic.
type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

// NotificationService builds and delivers notifications. When disabled
// it rejects sends with ErrNotificationsDisabled so callers can decide
// whether that matters to them.
type NotificationService struct {
	log     *slog.Logger
	sender  Sender
	enabled bool
}

// NotificationServiceConfig holds configuration for the notification service
type NotificationServiceConfig struct {
	Logger  *slog.Logger
	Sender  Sender
	Enabled bool
}

// NewNotificationService creates a new notification service.
func NewNotificationService(cfg NotificationServiceConfig) *NotificationService {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{
		log:     log,
		sender:  cfg.Sender,
		enabled: cfg.Enabled && cfg.Sender != nil,
	}
}

// SendNotification delivers one notification to its recipient.
func (s *NotificationService) SendNotification(ctx context.Context, n model.Notification) error {
	if !s.enabled {
		return ErrNotificationsDisabled
	}
	if n.UserID == "" && n.Audience == "" {
		return ErrEmptyNotification
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := s.sender.Send(ctx, n); err != nil {
		return fmt.Errorf("sending notification %s: %w", n.ID, err)
	}
	s.log.Info("notification sent",
		slog.String("notification_id", n.ID),
		slog.String("user_id", n.UserID),
		slog.String("audience", n.Audience),
	)
	return nil
}

// SendEventNotification delivers an event start reminder to the event's
// target audience.
func (s *NotificationService) SendEventNotification(ctx context.Context, ev model.EventNotification) error {
	return s.SendNotification(ctx, model.Notification{
		Audience: ev.Audience,
		Title:    "Starting soon: " + ev.Title,
		Body:     fmt.Sprintf("%s starts at %s.", ev.Title, ev.StartTime.Format("15:04 Jan 2")),
		Data: map[string]string{
			"event_id": ev.EventID,
		},
	})
}

// LogSender is a Sender that only records the delivery. Used when no
// push transport is configured (development, test environments).
type LogSender struct {
	log *slog.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

// Send logs the notification instead of delivering it.
func (s *LogSender) Send(ctx context.Context, n model.Notification) error {
	s.log.Info("delivering notification",
		slog.String("notification_id", n.ID),
		slog.String("user_id", n.UserID),
		slog.String("audience", n.Audience),
		slog.String("title", n.Title),
	)
	return nil
}
