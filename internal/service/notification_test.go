package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/plazahq/plaza/api/internal/model"
)

// ============================================================================
// Mock Sender
// ============================================================================

type mockSender struct {
	sendFunc func(ctx context.Context, n model.Notification) error
	sent     []model.Notification
}

func (m *mockSender) Send(ctx context.Context, n model.Notification) error {
	m.sent = append(m.sent, n)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, n)
	}
	return nil
}

func newEnabledService(sender Sender) *NotificationService {
	return NewNotificationService(NotificationServiceConfig{
		Sender:  sender,
		Enabled: true,
	})
}

// ============================================================================
// SendNotification
// ============================================================================

func TestSendNotification_Disabled(t *testing.T) {
	t.Parallel()

	svc := NewNotificationService(NotificationServiceConfig{
		Sender:  &mockSender{},
		Enabled: false,
	})

	err := svc.SendNotification(context.Background(), model.Notification{UserID: "user:1", Title: "hi"})
	if !errors.Is(err, ErrNotificationsDisabled) {
		t.Errorf("expected ErrNotificationsDisabled, got: %v", err)
	}
}

func TestSendNotification_NilSenderDisables(t *testing.T) {
	t.Parallel()

	svc := NewNotificationService(NotificationServiceConfig{Enabled: true})

	err := svc.SendNotification(context.Background(), model.Notification{UserID: "user:1"})
	if !errors.Is(err, ErrNotificationsDisabled) {
		t.Errorf("expected ErrNotificationsDisabled, got: %v", err)
	}
}

func TestSendNotification_NoRecipient(t *testing.T) {
	t.Parallel()

	svc := newEnabledService(&mockSender{})
	err := svc.SendNotification(context.Background(), model.Notification{Title: "orphan"})
	if !errors.Is(err, ErrEmptyNotification) {
		t.Errorf("expected ErrEmptyNotification, got: %v", err)
	}
}

func TestSendNotification_FillsIDAndTimestamp(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	svc := newEnabledService(sender)

	err := svc.SendNotification(context.Background(), model.Notification{
		UserID: "user:2",
		Title:  "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sender.sent))
	}
	got := sender.sent[0]
	if got.ID == "" {
		t.Error("notification id should be generated when empty")
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should be stamped when zero")
	}
}

func TestSendNotification_KeepsProvidedID(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	svc := newEnabledService(sender)

	err := svc.SendNotification(context.Background(), model.Notification{
		ID:        "notif:fixed",
		UserID:    "user:3",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.sent[0].ID != "notif:fixed" {
		t.Errorf("id = %s, want notif:fixed", sender.sent[0].ID)
	}
}

func TestSendNotification_SenderErrorWrapped(t *testing.T) {
	t.Parallel()

	sendErr := errors.New("gateway timeout")
	sender := &mockSender{
		sendFunc: func(ctx context.Context, n model.Notification) error { return sendErr },
	}
	svc := newEnabledService(sender)

	err := svc.SendNotification(context.Background(), model.Notification{UserID: "user:4"})
	if !errors.Is(err, sendErr) {
		t.Errorf("expected sender error, got: %v", err)
	}
}

// ============================================================================
// SendEventNotification
// ============================================================================

func TestSendEventNotification_BuildsReminder(t *testing.T) {
	t.Parallel()

	sender := &mockSender{}
	svc := newEnabledService(sender)

	start := time.Date(2026, 8, 23, 18, 0, 0, 0, time.UTC)
	err := svc.SendEventNotification(context.Background(), model.EventNotification{
		EventID:   "event:9",
		Title:     "Summer Market",
		StartTime: start,
		Audience:  model.AudienceAll,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := sender.sent[0]
	if got.Audience != model.AudienceAll {
		t.Errorf("audience = %s, want all", got.Audience)
	}
	if !strings.HasPrefix(got.Title, "Starting soon: ") {
		t.Errorf("title = %q, want Starting soon prefix", got.Title)
	}
	if got.Data["event_id"] != "event:9" {
		t.Errorf("event_id data = %q", got.Data["event_id"])
	}
}

func TestSendEventNotification_NoAudienceRejected(t *testing.T) {
	t.Parallel()

	svc := newEnabledService(&mockSender{})
	err := svc.SendEventNotification(context.Background(), model.EventNotification{
		EventID: "event:10",
		Title:   "Quiet Event",
	})
	if !errors.Is(err, ErrEmptyNotification) {
		t.Errorf("expected ErrEmptyNotification, got: %v", err)
	}
}
